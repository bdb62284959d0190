// Package surefile implements the on-disk framing for a node stream
// (§4.D): the "asure-2.0" header, one line per node, and an optional
// gzip wrapper around the whole thing.
package surefile

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/sureweave/asure/internal/asureerr"
	"github.com/sureweave/asure/internal/escape"
	"github.com/sureweave/asure/internal/node"
)

const (
	magicLine = "asure-2.0"
	sepLine   = "-----"
)

// Writer serializes a node stream to the asure-2.0 framing.
type Writer struct {
	w       *bufio.Writer
	started bool
}

// NewWriter wraps w, writing the two header lines immediately.
func NewWriter(w io.Writer) (*Writer, error) {
	bw := bufio.NewWriter(w)
	if _, err := fmt.Fprintln(bw, magicLine); err != nil {
		return nil, err
	}
	if _, err := fmt.Fprintln(bw, sepLine); err != nil {
		return nil, err
	}
	return &Writer{w: bw, started: true}, nil
}

// Create opens (or creates) path for writing, wrapping in gzip when
// compressed is true, and returns a Writer plus a closer that flushes
// and closes all underlying layers.
func Create(path string, compressed bool) (*Writer, func() error, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, err
	}

	var under io.Writer = f
	var gz *gzip.Writer
	if compressed {
		gz = gzip.NewWriter(f)
		under = gz
	}

	wr, err := NewWriter(under)
	if err != nil {
		f.Close()
		return nil, nil, err
	}

	closer := func() error {
		if err := wr.Flush(); err != nil {
			return err
		}
		if gz != nil {
			if err := gz.Close(); err != nil {
				return err
			}
		}
		return f.Close()
	}
	return wr, closer, nil
}

// WriteNode appends one node line.
func (w *Writer) WriteNode(n node.Node) error {
	switch n.Kind {
	case node.KindEnter:
		return w.writeHeader('d', n.Name, n.Atts)
	case node.KindFile:
		return w.writeHeader('f', n.Name, n.Atts)
	case node.KindSep:
		_, err := fmt.Fprintln(w.w, "-")
		return err
	case node.KindLeave:
		_, err := fmt.Fprintln(w.w, "u")
		return err
	default:
		return fmt.Errorf("surefile: unknown node kind %v", n.Kind)
	}
}

func (w *Writer) writeHeader(kind byte, name string, atts node.AttMap) error {
	var b strings.Builder
	b.WriteByte(kind)
	b.WriteString(name)
	b.WriteString(" [")
	for _, k := range atts.Keys() {
		b.WriteString(escape.Encode([]byte(k)))
		b.WriteByte(' ')
		b.WriteString(escape.Encode([]byte(atts[k])))
		b.WriteByte(' ')
	}
	b.WriteByte(']')
	_, err := fmt.Fprintln(w.w, b.String())
	return err
}

// Flush flushes buffered output without closing the underlying writer.
func (w *Writer) Flush() error { return w.w.Flush() }

// Reader deserializes a node stream from the asure-2.0 framing.
type Reader struct {
	sc    *bufio.Scanner
	depth int
	done  bool
}

// NewReader wraps r, consuming and validating the two header lines.
func NewReader(r io.Reader) (*Reader, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 16*1024*1024)

	if err := expectLine(sc, magicLine); err != nil {
		return nil, err
	}
	if err := expectLine(sc, sepLine); err != nil {
		return nil, err
	}
	return &Reader{sc: sc}, nil
}

// Open opens path for reading, transparently gzip-decompressing when
// compressed is true, and returns a Reader plus the underlying closer.
func Open(path string, compressed bool) (*Reader, func() error, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	var under io.Reader = f
	var gz *gzip.Reader
	if compressed {
		gz, err = gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, nil, err
		}
		under = gz
	}

	rd, err := NewReader(under)
	if err != nil {
		if gz != nil {
			gz.Close()
		}
		f.Close()
		return nil, nil, err
	}

	closer := func() error {
		if gz != nil {
			gz.Close()
		}
		return f.Close()
	}
	return rd, closer, nil
}

func expectLine(sc *bufio.Scanner, expected string) error {
	if !sc.Scan() {
		if err := sc.Err(); err != nil {
			return err
		}
		return &asureerr.UnexpectedLineError{Got: "", Expected: expected}
	}
	got := sc.Text()
	if got != expected {
		return &asureerr.UnexpectedLineError{Got: got, Expected: expected}
	}
	return nil
}

// Next reads and decodes the next node. It returns io.EOF once the
// stream's outermost Leave has been consumed.
func (r *Reader) Next() (node.Node, error) {
	if r.done {
		return node.Node{}, io.EOF
	}

	if !r.sc.Scan() {
		if err := r.sc.Err(); err != nil {
			return node.Node{}, err
		}
		return node.Node{}, asureerr.ErrTruncatedSurefile
	}
	line := r.sc.Text()
	if line == "" {
		return node.Node{}, asureerr.ErrTruncatedSurefile
	}

	switch line[0] {
	case 'd':
		name, atts, err := decodeEntity(line[1:])
		if err != nil {
			return node.Node{}, err
		}
		r.depth++
		return node.Enter(name, atts), nil
	case 'f':
		name, atts, err := decodeEntity(line[1:])
		if err != nil {
			return node.Node{}, err
		}
		return node.File(name, atts), nil
	case '-':
		return node.Sep(), nil
	case 'u':
		r.depth--
		if r.depth == 0 {
			r.done = true
		}
		return node.Leave(), nil
	default:
		return node.Node{}, &asureerr.InvalidSurefileCharError{Char: line[0]}
	}
}

func decodeEntity(text string) (string, node.AttMap, error) {
	sp := strings.IndexByte(text, ' ')
	if sp < 0 {
		return "", nil, asureerr.ErrTruncatedSurefile
	}
	name := text[:sp]
	rest := text[sp+1:]
	if len(rest) == 0 || rest[0] != '[' {
		return "", nil, asureerr.ErrTruncatedSurefile
	}
	rest = rest[1:]

	atts := make(node.AttMap)
	for len(rest) > 0 && rest[0] != ']' {
		k, r2, err := takeToken(rest)
		if err != nil {
			return "", nil, err
		}
		v, r3, err := takeToken(r2)
		if err != nil {
			return "", nil, err
		}
		rest = r3

		key, err := escape.Decode(k)
		if err != nil {
			return "", nil, err
		}
		val, err := escape.Decode(v)
		if err != nil {
			return "", nil, err
		}
		atts[string(key)] = string(val)
	}

	return name, atts, nil
}

func takeToken(text string) (string, string, error) {
	sp := strings.IndexByte(text, ' ')
	if sp < 0 {
		return "", "", asureerr.ErrTruncatedSurefile
	}
	return text[:sp], text[sp+1:], nil
}
