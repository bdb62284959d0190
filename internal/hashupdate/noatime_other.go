//go:build !linux

package hashupdate

import "os"

// noatimeOpen opens path for reading. O_NOATIME is Linux-specific, so
// elsewhere this is just a plain read-only open.
func noatimeOpen(path string) (*os.File, error) {
	return os.Open(path)
}
