package scanner

import (
	"crypto/sha1"
	"encoding/hex"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sureweave/asure/internal/node"
)

func collect(t *testing.T, it Iterator) []node.Node {
	t.Helper()
	var out []node.Node
	for {
		n, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		out = append(out, n)
	}
	return out
}

func TestScanEmptyDirectory(t *testing.T) {
	dir := t.TempDir()
	it, err := Scan(dir)
	require.NoError(t, err)

	nodes := collect(t, it)
	require.Len(t, nodes, 3)
	require.True(t, nodes[0].IsEnter())
	require.Equal(t, node.RootName, nodes[0].Name)
	require.True(t, nodes[1].IsSep())
	require.True(t, nodes[2].IsLeave())
}

func TestScanSingleFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "a"), []byte("hello"), 0o644))

	it, err := Scan(dir)
	require.NoError(t, err)
	nodes := collect(t, it)

	require.Len(t, nodes, 4)
	require.True(t, nodes[0].IsEnter())
	require.True(t, nodes[1].IsSep())
	require.True(t, nodes[2].IsFile())
	require.Equal(t, "a", nodes[2].Name)
	require.Equal(t, "file", nodes[2].Atts["kind"])
	require.Equal(t, uint64(5), nodes[2].Size())
	require.True(t, nodes[3].IsLeave())

	sum := sha1.Sum([]byte("hello"))
	require.Equal(t, "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d", hex.EncodeToString(sum[:]))
}

func TestScanNotADirectory(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "a")
	require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))

	_, err := Scan(p)
	require.Error(t, err)
}

func TestScanOrdersEntriesByEscapedName(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"zeta", "alpha", "mu"} {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), nil, 0o644))
	}
	for _, name := range []string{"zdir", "adir"} {
		require.NoError(t, os.Mkdir(filepath.Join(dir, name), 0o755))
	}

	it, err := Scan(dir)
	require.NoError(t, err)
	nodes := collect(t, it)

	var dirNames, fileNames []string
	for _, n := range nodes {
		if n.IsEnter() && n.Name != node.RootName {
			dirNames = append(dirNames, n.Name)
		}
		if n.IsFile() {
			fileNames = append(fileNames, n.Name)
		}
	}
	require.Equal(t, []string{"adir", "zdir"}, dirNames)
	require.Equal(t, []string{"alpha", "mu", "zeta"}, fileNames)
}
