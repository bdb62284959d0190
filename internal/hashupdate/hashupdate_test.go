package hashupdate

import (
	"context"
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sureweave/asure/internal/scanner"
	"github.com/sureweave/asure/internal/tracker"
)

func openTree(dir string) Opener {
	return func() (Source, error) {
		it, err := scanner.Scan(dir)
		if err != nil {
			return nil, err
		}
		return tracker.New(it, dir), nil
	}
}

func TestRunFillsInHashes(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("hello"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "b"), []byte("world"), 0o644))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "sub"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "sub", "c"), []byte("nested"), 0o644))

	it, err := Run(context.Background(), openTree(dir), Options{Workers: 2})
	require.NoError(t, err)

	sums := map[string]string{}
	for {
		n, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if n.IsFile() {
			sums[n.Name] = n.Atts["sha1"]
		}
	}

	require.Equal(t, hashOf("hello"), sums["a"])
	require.Equal(t, hashOf("world"), sums["b"])
	require.Equal(t, hashOf("nested"), sums["c"])
}

func TestRunLeavesNodesWithoutHashUntouched(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.Symlink("a", filepath.Join(dir, "link")))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("x"), 0o644))

	it, err := Run(context.Background(), openTree(dir), Options{})
	require.NoError(t, err)

	var sawLink bool
	for {
		n, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if n.Name == "link" {
			sawLink = true
			require.Empty(t, n.Atts["sha1"])
		}
	}
	require.True(t, sawLink)
}

func hashOf(s string) string {
	sum := sha1.Sum([]byte(s))
	return hex.EncodeToString(sum[:])
}
