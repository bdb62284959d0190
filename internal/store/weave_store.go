package store

import (
	"io"
	"os"
	"time"

	"github.com/sureweave/asure/internal/naming"
	"github.com/sureweave/asure/internal/node"
	"github.com/sureweave/asure/internal/surefile"
	"github.com/sureweave/asure/internal/weave"
)

// WeaveStore keeps the full history of a tree in a single SCCS-style
// weave file, one delta per scan. Each delta's body is itself a
// surefile-formatted node stream.
type WeaveStore struct {
	conv *naming.Convention
}

// NewWeaveStore opens (or prepares to create) a weave-backed store at
// dir/base.dat[.gz].
func NewWeaveStore(dir, base string, compressed bool) *WeaveStore {
	return &WeaveStore{conv: naming.New(dir, base, "dat", compressed)}
}

func (s *WeaveStore) header() (weave.Header, error) {
	pull, err := weave.OpenPullParser(s.conv, 1)
	if err != nil {
		return weave.Header{}, err
	}
	defer pull.Close()
	return pull.Header(), nil
}

func (s *WeaveStore) resolve(spec VersionSpec) (int, error) {
	h, err := s.header()
	if err != nil {
		return 0, err
	}
	switch spec.Kind {
	case Latest:
		return h.Latest(), nil
	case Prior:
		return h.Latest() - 1, nil
	case Tagged:
		return spec.Number, nil
	default:
		panic("store: unknown version kind")
	}
}

// Versions lists the deltas recorded in the weave header, newest first.
func (s *WeaveStore) Versions() ([]VersionInfo, error) {
	h, err := s.header()
	if err != nil {
		return nil, err
	}
	out := make([]VersionInfo, len(h.Deltas))
	for i, d := range h.Deltas {
		out[len(h.Deltas)-1-i] = VersionInfo{
			Name: d.Name,
			Time: d.Time,
			Spec: VersionSpec{Kind: Tagged, Number: d.Number},
		}
	}
	return out, nil
}

// Load extracts spec's delta and streams it back as a node.Node
// iterator. The weave is parsed on a background goroutine, feeding its
// kept plain-text lines through a pipe into a surefile.Reader, so the
// body is never materialized in full.
func (s *WeaveStore) Load(spec VersionSpec) (NodeIterator, error) {
	delta, err := s.resolve(spec)
	if err != nil {
		return nil, err
	}

	pr, pw := io.Pipe()
	go func() {
		pull, err := weave.OpenPullParser(s.conv, delta)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		defer pull.Close()

		p := weave.NewParser(pull, &lineSink{pw: pw})
		if _, err := p.ParseTo(0); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.Close()
	}()

	return surefile.NewReader(pr)
}

// lineSink feeds a weave's kept plain lines, newline-terminated, into a
// pipe for a surefile.Reader to consume on the other end.
type lineSink struct {
	weave.NopSink
	pw *io.PipeWriter
}

func (s *lineSink) Plain(text string, keep bool) error {
	if !keep {
		return nil
	}
	_, err := s.pw.Write([]byte(text + "\n"))
	return err
}

// NewVersion begins writing a new delta: the first one (via
// weave.StartWeave) if the weave does not exist yet, otherwise a diffed
// delta against the latest existing one. When tags has no "name" entry,
// the delta is named after the current time.
func (s *WeaveStore) NewVersion(tags map[string]string) (Writer, error) {
	if _, ok := tags["name"]; !ok {
		named := make(map[string]string, len(tags)+1)
		for k, v := range tags {
			named[k] = v
		}
		named["name"] = time.Now().Format(time.RFC3339Nano)
		tags = named
	}

	h, err := s.header()
	var ww io.WriteCloser
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, err
		}
		ww, err = weave.StartWeave(s.conv, tags, time.Now)
		if err != nil {
			return nil, err
		}
	} else {
		ww, err = weave.StartDelta(s.conv, tags, h.Latest(), time.Now)
		if err != nil {
			return nil, err
		}
	}

	sw, err := surefile.NewWriter(ww)
	if err != nil {
		ww.Close()
		return nil, err
	}
	return &weaveWriter{sw: sw, ww: ww}, nil
}

type weaveWriter struct {
	sw *surefile.Writer
	ww io.WriteCloser
}

func (w *weaveWriter) WriteNode(n node.Node) error { return w.sw.WriteNode(n) }

func (w *weaveWriter) Commit() error {
	if err := w.sw.Flush(); err != nil {
		return err
	}
	return w.ww.Close()
}
