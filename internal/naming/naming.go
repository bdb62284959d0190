// Package naming implements the file naming convention used to locate
// and safely replace a weave's main file: a basename with a fixed
// extension for the current version, a ".bak" extension for the
// previous one, and numbered extensions for scratch temp files (§4.J).
//
// The convention never writes to a name that already exists: the main
// file is only ever produced by renaming a finished temp file into
// place, after the previous main file has itself been renamed to the
// backup name.
package naming

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"strconv"

	"github.com/sirupsen/logrus"
)

// RSURE_KEEP, when set to any non-empty value, disables the cleanup that
// Convention.Cleanup would otherwise perform on abandoned temp files,
// useful when debugging a failed run.
const KeepEnvVar = "RSURE_KEEP"

// Convention locates the main/backup/temp files for one archive.
type Convention struct {
	Dir        string
	Base       string
	Ext        string
	Compressed bool

	temps []string
}

// New returns a Convention rooted at dir, using base as the filename
// stem and ext as the main file's extension (e.g. "weave", "dat").
func New(dir, base, ext string, compressed bool) *Convention {
	return &Convention{Dir: dir, Base: base, Ext: ext, Compressed: compressed}
}

// MakeName builds the path for one of this convention's files, given the
// extension to use in place of the main extension.
func (c *Convention) MakeName(ext string) string {
	name := c.Base + "." + ext
	if c.Compressed {
		name += ".gz"
	}
	return filepath.Join(c.Dir, name)
}

// MainFile is the current archive's path.
func (c *Convention) MainFile() string { return c.MakeName(c.Ext) }

// BackupFile is the path the previous main file is renamed to before a
// new main file takes its place.
func (c *Convention) BackupFile() string { return c.MakeName("bak") }

// TempFile creates a brand new scratch file that did not exist before
// this call, retrying with successive numeric extensions (.0, .1, ...)
// on a name collision. The caller is responsible for closing the
// returned file and, on success, eventually renaming it into place; on
// any other outcome it should call Cleanup.
func (c *Convention) TempFile() (string, *os.File, error) {
	for n := 0; ; n++ {
		name := c.MakeName(strconv.Itoa(n))
		f, err := os.OpenFile(name, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			c.temps = append(c.temps, name)
			return name, f, nil
		}
		if !os.IsExist(err) {
			return "", nil, err
		}
	}
}

// NewTempWriter opens a fresh temp file and wraps it with a gzip writer
// when this convention is compressed, matching how the main file will be
// read back.
func (c *Convention) NewTempWriter() (path string, w io.WriteCloser, err error) {
	name, f, err := c.TempFile()
	if err != nil {
		return "", nil, err
	}
	if c.Compressed {
		return name, &gzipWriteCloser{gzip.NewWriter(f), f}, nil
	}
	return name, f, nil
}

type gzipWriteCloser struct {
	gz *gzip.Writer
	f  *os.File
}

func (g *gzipWriteCloser) Write(p []byte) (int, error) { return g.gz.Write(p) }
func (g *gzipWriteCloser) Close() error {
	if err := g.gz.Close(); err != nil {
		g.f.Close()
		return err
	}
	return g.f.Close()
}

// Commit replaces the main file with tempPath: the existing main file
// (if any) is renamed to the backup name first, then tempPath is renamed
// to the main name. Both renames are same-filesystem atomic renames, so
// a partial file never appears under the main name; a crash between them
// leaves no file under the main name, the old archive under the backup
// name and the new one under tempPath.
func (c *Convention) Commit(tempPath string) error {
	main := c.MainFile()
	if _, err := os.Stat(main); err == nil {
		if err := os.Rename(main, c.BackupFile()); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	}

	if err := os.Rename(tempPath, main); err != nil {
		return err
	}

	for i, p := range c.temps {
		if p == tempPath {
			c.temps = append(c.temps[:i], c.temps[i+1:]...)
			break
		}
	}
	return nil
}

// Cleanup removes any temp files this convention created that were never
// committed, unless the RSURE_KEEP environment variable is set.
func (c *Convention) Cleanup() {
	if os.Getenv(KeepEnvVar) != "" {
		return
	}
	for _, p := range c.temps {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			logrus.WithError(err).WithField("path", p).Warn("naming: failed to remove temp file")
		}
	}
	c.temps = nil
}
