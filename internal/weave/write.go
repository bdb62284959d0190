package weave

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"os/exec"
	"regexp"
	"strconv"
	"time"

	"github.com/sureweave/asure/internal/asureerr"
	"github.com/sureweave/asure/internal/naming"
)

// nowFunc supplies the current time; a parameter rather than a direct
// time.Now() call so tests can pin the recorded delta timestamp.
type nowFunc func() time.Time

// NewWeave writes the very first delta of a new weave file. Callers
// Write the plain-text body to it and must call Close to commit it into
// place; dropping it without closing leaves only an orphaned temp file,
// cleaned up by the naming.Convention's Cleanup.
type NewWeave struct {
	conv     *naming.Convention
	tempPath string
	w        io.WriteCloser
	header   Header
	closed   bool
}

// StartWeave begins a brand new weave under conv, with the given tags
// (which must include "name") describing delta 1. now is the timestamp
// recorded for that delta.
func StartWeave(conv *naming.Convention, tags map[string]string, now nowFunc) (*NewWeave, error) {
	path, w, err := conv.NewTempWriter()
	if err != nil {
		return nil, err
	}

	header := NewHeader()
	if _, err := header.Add(tags, now()); err != nil {
		w.Close()
		return nil, err
	}

	line, err := header.Encode()
	if err != nil {
		w.Close()
		return nil, err
	}
	if _, err := fmt.Fprintln(w, line); err != nil {
		w.Close()
		return nil, err
	}
	if _, err := fmt.Fprintln(w, "\x01I 1"); err != nil {
		w.Close()
		return nil, err
	}

	return &NewWeave{conv: conv, tempPath: path, w: w, header: header}, nil
}

// Write appends to the new weave's body. The caller is responsible for
// ensuring each call ends on a line boundary; the format has no other
// way to know where one line ends and the next begins.
func (w *NewWeave) Write(p []byte) (int, error) {
	if w.closed {
		return 0, asureerr.ErrAlreadyClosed
	}
	return w.w.Write(p)
}

// Close finishes the body, commits the temp file into place as the new
// main file (rotating any existing main file to the backup name first),
// and returns.
func (w *NewWeave) Close() error {
	if w.closed {
		return asureerr.ErrAlreadyClosed
	}
	w.closed = true

	if _, err := fmt.Fprintln(w.w, "\x01E 1"); err != nil {
		w.w.Close()
		return err
	}
	if err := w.w.Close(); err != nil {
		return err
	}
	return w.conv.Commit(w.tempPath)
}

// diffLineRE matches a GNU-diff ed-style command line: "L[,R]{a|c|d}...".
var diffLineRE = regexp.MustCompile(`^(\d+)(,(\d+))?([acd])`)

// DeltaWriter adds a new delta to an existing weave by diffing the base
// revision against freshly written content. Write to it like any other
// file, then call Close to run `diff` and splice the result into the
// weave.
type DeltaWriter struct {
	conv     *naming.Convention
	basePath string
	tempPath string
	tempFile io.WriteCloser
	base     int
	newDelta int
	header   Header
	closed   bool
}

// StartDelta begins a new delta on top of the given base revision
// number. tags must include "name".
func StartDelta(conv *naming.Convention, tags map[string]string, base int, now nowFunc) (*DeltaWriter, error) {
	// Reserve a name for the base-revision file; extractBase reopens and
	// writes it, so the handle from TempFile is only needed to claim the
	// name exclusively.
	basePath, baseFile, err := conv.TempFile()
	if err != nil {
		return nil, err
	}
	baseFile.Close()

	header, err := extractBase(conv, basePath, base)
	if err != nil {
		return nil, err
	}

	newDelta, err := header.Add(tags, now())
	if err != nil {
		return nil, err
	}

	tempPath, tempFile, err := conv.TempFile()
	if err != nil {
		return nil, err
	}

	return &DeltaWriter{
		conv: conv, basePath: basePath,
		tempPath: tempPath, tempFile: tempFile,
		base: base, newDelta: newDelta, header: header,
	}, nil
}

// extractBase writes the lines belonging to base into basePath, for
// diffing against the new content.
func extractBase(conv *naming.Convention, basePath string, base int) (Header, error) {
	pull, err := OpenPullParser(conv, base)
	if err != nil {
		return Header{}, err
	}
	defer pull.Close()

	out, err := os.Create(basePath)
	if err != nil {
		return Header{}, err
	}
	defer out.Close()
	bw := bufio.NewWriter(out)

	sink := &revSink{dest: bw}
	parser := NewParser(pull, sink)
	n, err := parser.ParseTo(0)
	if err != nil {
		return Header{}, err
	}
	if n != 0 {
		panic("weave: unexpected stop extracting base revision")
	}
	if err := bw.Flush(); err != nil {
		return Header{}, err
	}
	return parser.Header(), nil
}

type revSink struct {
	NopSink
	dest *bufio.Writer
}

func (s *revSink) Plain(text string, keep bool) error {
	if !keep {
		return nil
	}
	_, err := fmt.Fprintln(s.dest, text)
	return err
}

// Write appends to the new revision's content, which will be diffed
// against the extracted base on Close.
func (d *DeltaWriter) Write(p []byte) (int, error) {
	if d.closed {
		return 0, asureerr.ErrAlreadyClosed
	}
	return d.tempFile.Write(p)
}

// Close runs `diff` between the base revision and the newly written
// content, rewrites the weave with the new delta's insert/delete blocks
// spliced in at the right positions, and commits the result.
func (d *DeltaWriter) Close() error {
	if d.closed {
		return asureerr.ErrAlreadyClosed
	}
	d.closed = true
	defer os.Remove(d.basePath)
	defer os.Remove(d.tempPath)

	if err := d.tempFile.Close(); err != nil {
		return err
	}

	weavePath, weaveWriter, err := d.conv.NewTempWriter()
	if err != nil {
		return err
	}
	defer os.Remove(weavePath)

	if err := d.spliceDiff(weaveWriter); err != nil {
		weaveWriter.Close()
		return err
	}
	if err := weaveWriter.Close(); err != nil {
		return err
	}

	return d.conv.Commit(weavePath)
}

func (d *DeltaWriter) spliceDiff(weaveWriter io.Writer) error {
	cmd := exec.Command("diff", d.basePath, d.tempPath)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return err
	}
	if err := cmd.Start(); err != nil {
		return err
	}

	pull, err := OpenPullParser(d.conv, d.base)
	if err != nil {
		return err
	}
	defer pull.Close()

	sink := &weaveSink{dest: weaveWriter}
	parser := NewParser(pull, sink)

	headerLine, err := d.header.Encode()
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintln(weaveWriter, headerLine); err != nil {
		return err
	}

	scanner := bufio.NewScanner(stdout)
	scanner.Buffer(make([]byte, 64*1024), 16*1024*1024)

	isAdding := false
	isDone := false

	for scanner.Scan() {
		line := scanner.Text()

		if m := diffLineRE.FindStringSubmatch(line); m != nil {
			if isAdding {
				if err := sink.End(d.newDelta); err != nil {
					return err
				}
				isAdding = false
			}

			left, _ := strconv.Atoi(m[1])
			right := left
			if m[3] != "" {
				right, _ = strconv.Atoi(m[3])
			}
			cmd := m[4]

			if cmd == "d" || cmd == "c" {
				n, err := parser.ParseTo(left)
				if err != nil {
					return err
				}
				if n == 0 {
					return asureerr.ErrUnexpectedEOF
				}
				if err := sink.Delete(d.newDelta); err != nil {
					return err
				}
				n, err = parser.ParseTo(right + 1)
				if err != nil {
					return err
				}
				if n == 0 {
					isDone = true
				}
				if err := sink.End(d.newDelta); err != nil {
					return err
				}
			} else {
				n, err := parser.ParseTo(right + 1)
				if err != nil {
					return err
				}
				if n == 0 {
					isDone = true
				}
			}

			if cmd == "c" || cmd == "a" {
				if err := sink.Insert(d.newDelta); err != nil {
					return err
				}
				isAdding = true
			}
			continue
		}

		if len(line) == 0 {
			continue
		}
		switch line[0] {
		case '<', '-':
			continue
		case '>':
			if len(line) < 2 {
				continue
			}
			if err := sink.Plain(line[2:], true); err != nil {
				return err
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if isAdding {
		if err := sink.End(d.newDelta); err != nil {
			return err
		}
	}
	if !isDone {
		n, err := parser.ParseTo(0)
		if err != nil {
			return err
		}
		if n != 0 {
			panic("weave: unexpected non-eof finishing delta splice")
		}
	}

	switch err := cmd.Wait().(type) {
	case nil:
		return nil
	case *exec.ExitError:
		code := err.ExitCode()
		if code == 0 || code == 1 {
			return nil
		}
		if code < 0 {
			return asureerr.ErrDiffKilled
		}
		return &asureerr.DiffError{Code: code}
	default:
		return err
	}
}

type weaveSink struct {
	NopSink
	dest io.Writer
}

func (s *weaveSink) Insert(delta int) error {
	_, err := fmt.Fprintf(s.dest, "\x01I %d\n", delta)
	return err
}

func (s *weaveSink) Delete(delta int) error {
	_, err := fmt.Fprintf(s.dest, "\x01D %d\n", delta)
	return err
}

func (s *weaveSink) End(delta int) error {
	_, err := fmt.Fprintf(s.dest, "\x01E %d\n", delta)
	return err
}

func (s *weaveSink) Plain(text string, _ bool) error {
	_, err := fmt.Fprintln(s.dest, text)
	return err
}
