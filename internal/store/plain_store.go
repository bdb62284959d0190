package store

import (
	"compress/gzip"
	"io"
	"os"

	"github.com/sureweave/asure/internal/asureerr"
	"github.com/sureweave/asure/internal/naming"
	"github.com/sureweave/asure/internal/node"
	"github.com/sureweave/asure/internal/surefile"
)

// PlainStore keeps exactly one surefile on disk, with the previous
// version rotated to a ".bak" on each new write. It has no delta
// history: Versions always reports none, and Load only understands
// Latest and Prior.
type PlainStore struct {
	conv *naming.Convention
}

// NewPlainStore opens (or prepares to create) a plain store at
// dir/base.dat[.gz], with the prior write available at dir/base.bak[.gz].
func NewPlainStore(dir, base string, compressed bool) *PlainStore {
	return &PlainStore{conv: naming.New(dir, base, "dat", compressed)}
}

// Versions always returns an empty list: a plain store keeps no history
// beyond the single backup rotation.
func (s *PlainStore) Versions() ([]VersionInfo, error) {
	return nil, nil
}

// Load opens the main file for Latest, the backup file for Prior; any
// other VersionSpec is rejected since a plain store has no numbered
// deltas to address.
func (s *PlainStore) Load(spec VersionSpec) (NodeIterator, error) {
	var path string
	switch spec.Kind {
	case Latest:
		path = s.conv.MainFile()
	case Prior:
		path = s.conv.BackupFile()
	default:
		return nil, asureerr.ErrTaggedVersionsUnsupported
	}

	rc, err := openCompressed(path, s.conv.Compressed)
	if err != nil {
		return nil, err
	}

	r, err := surefile.NewReader(rc)
	if err != nil {
		rc.Close()
		return nil, err
	}
	return &closingReader{r: r, rc: rc}, nil
}

// openCompressed opens path, transparently gzip-decompressing when
// compressed is true, and returns a single ReadCloser over the whole
// chain.
func openCompressed(path string, compressed bool) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !compressed {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, err
	}
	return &gzipReadCloser{gz: gz, f: f}, nil
}

type gzipReadCloser struct {
	gz *gzip.Reader
	f  *os.File
}

func (g *gzipReadCloser) Read(p []byte) (int, error) { return g.gz.Read(p) }

func (g *gzipReadCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

// closingReader adapts a surefile.Reader to NodeIterator, closing the
// underlying file as soon as the stream ends or errors.
type closingReader struct {
	r      *surefile.Reader
	rc     io.Closer
	closed bool
}

func (c *closingReader) Next() (node.Node, error) {
	n, err := c.r.Next()
	if err != nil && !c.closed {
		c.closed = true
		c.rc.Close()
	}
	return n, err
}

// NewVersion writes a fresh surefile to a temp file; tags are accepted
// for interface symmetry with WeaveStore but, like the weaveless plain
// format, carry no history to attach them to. Commit rotates the
// existing main file to the backup name before putting the new one in
// place.
func (s *PlainStore) NewVersion(tags map[string]string) (Writer, error) {
	path, w, err := s.conv.NewTempWriter()
	if err != nil {
		return nil, err
	}
	sw, err := surefile.NewWriter(w)
	if err != nil {
		w.Close()
		return nil, err
	}
	return &plainWriter{conv: s.conv, tempPath: path, w: w, sw: sw}, nil
}

type plainWriter struct {
	conv     *naming.Convention
	tempPath string
	w        io.WriteCloser
	sw       *surefile.Writer
}

func (w *plainWriter) WriteNode(n node.Node) error { return w.sw.WriteNode(n) }

func (w *plainWriter) Commit() error {
	if err := w.sw.Flush(); err != nil {
		return err
	}
	if err := w.w.Close(); err != nil {
		return err
	}
	return w.conv.Commit(w.tempPath)
}
