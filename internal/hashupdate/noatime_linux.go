//go:build linux

package hashupdate

import (
	"os"
	"syscall"
)

// noatimeOpen opens path for reading with O_NOATIME, so hashing a file
// never disturbs its recorded atime, falling back to a plain read-only
// open if the kernel rejects the flag (e.g. path owned by another user).
func noatimeOpen(path string) (*os.File, error) {
	f, err := os.OpenFile(path, os.O_RDONLY|syscall.O_NOATIME, 0)
	if err != nil {
		return os.Open(path)
	}
	return f, nil
}
