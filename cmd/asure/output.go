package main

import (
	"fmt"
	"io"
)

// Output defines a uniform interface to write to some stream, letting a
// command's Run method stay test-friendly instead of calling fmt
// directly.
type Output interface {
	Print(text string) (int, error)
	Println(text string) (int, error)
	Printf(format string, args ...interface{}) (int, error)
	Printfln(format string, args ...interface{}) (int, error)
}

// PlainOutput is an Output that writes straight through to Device.
type PlainOutput struct {
	Device io.Writer
}

func (o *PlainOutput) Print(text string) (int, error) {
	return o.Device.Write([]byte(text))
}

func (o *PlainOutput) Println(text string) (int, error) {
	return o.Print(text + "\n")
}

func (o *PlainOutput) Printf(format string, args ...interface{}) (int, error) {
	return o.Device.Write([]byte(fmt.Sprintf(format, args...)))
}

func (o *PlainOutput) Printfln(format string, args ...interface{}) (int, error) {
	return o.Printf(format+"\n", args...)
}
