package store

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/sureweave/asure/internal/asureerr"
)

// Parse determines the store a command-line path refers to. The path may
// name an existing directory, in which case a weave store with the
// default base name "2sure" is used; otherwise it is treated as (part
// of) a surefile name, and the directory, base name, and compression
// are derived from it.
func Parse(text string) (Store, error) {
	info, err := os.Stat(text)
	if err == nil && info.IsDir() {
		return NewWeaveStore(text, "2sure", true), nil
	}

	dir := filepath.Dir(text)
	if dir == "" {
		dir = "."
	}

	dirInfo, err := os.Stat(dir)
	if err != nil || !dirInfo.IsDir() {
		return nil, asureerr.ErrFileNotInDirectory
	}

	base := filepath.Base(text)
	if base == "" || base == "." || base == string(filepath.Separator) {
		return nil, asureerr.ErrPathMissingFinalFile
	}

	compressed := false
	if core, ok := strings.CutSuffix(base, ".gz"); ok {
		base, compressed = core, true
	}

	if core, ok := strings.CutSuffix(base, ".weave"); ok {
		return NewWeaveStore(dir, core, compressed), nil
	}

	if strings.HasSuffix(base, ".dat") || strings.HasSuffix(base, ".bak") {
		base = base[:len(base)-4]
	}

	return NewWeaveStore(dir, base, compressed), nil
}
