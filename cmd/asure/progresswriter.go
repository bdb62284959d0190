package main

// progressWriter adapts an Output to the plain io.Writer progress.Meter
// writes its progress line to.
type progressWriter struct {
	out Output
}

func (p progressWriter) Write(b []byte) (int, error) {
	return p.out.Print(string(b))
}
