package ops

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sureweave/asure/internal/compare"
	"github.com/sureweave/asure/internal/node"
	"github.com/sureweave/asure/internal/store"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
}

func TestUpdateFreshScanHashesAllFiles(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	st := store.NewPlainStore(dir, "2sure", false)
	err := Update(context.Background(), dir, st, UpdateOptions{})
	require.NoError(t, err)

	it, err := st.Load(store.VersionSpec{Kind: store.Latest})
	require.NoError(t, err)

	var files []node.Node
	for {
		n, err := it.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if n.IsFile() {
			files = append(files, n)
		}
	}
	require.Len(t, files, 1)
	require.NotEmpty(t, files[0].Atts["sha1"])
}

func TestUpdateCarriesHashForward(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")
	writeFile(t, filepath.Join(dir, "b.txt"), "world")

	st := store.NewPlainStore(dir, "2sure", false)
	require.NoError(t, Update(context.Background(), dir, st, UpdateOptions{}))

	first, err := st.Load(store.VersionSpec{Kind: store.Latest})
	require.NoError(t, err)
	shaByName := map[string]string{}
	for {
		n, err := first.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if n.IsFile() {
			shaByName[n.MustName()] = n.Atts["sha1"]
		}
	}
	require.Len(t, shaByName, 2)

	require.NoError(t, Update(context.Background(), dir, st, UpdateOptions{CarryHashes: true}))

	second, err := st.Load(store.VersionSpec{Kind: store.Latest})
	require.NoError(t, err)
	for {
		n, err := second.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		if n.IsFile() {
			require.Equal(t, shaByName[n.MustName()], n.Atts["sha1"])
		}
	}
}

func TestCompareReportsAddedFile(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	st := store.NewPlainStore(dir, "2sure", false)
	require.NoError(t, Update(context.Background(), dir, st, UpdateOptions{}))

	writeFile(t, filepath.Join(dir, "b.txt"), "world")

	var changes []compare.Change
	err := Compare(dir, st, compare.Options{}, func(c compare.Change) error {
		changes = append(changes, c)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, changes, 1)
	require.Equal(t, compare.Add, changes[0].Kind)
}

func TestShowStreamsStoredVersion(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, "a.txt"), "hello")

	st := store.NewPlainStore(dir, "2sure", false)
	require.NoError(t, Update(context.Background(), dir, st, UpdateOptions{}))

	var names []string
	err := Show(st, store.VersionSpec{Kind: store.Latest}, func(n node.Node) error {
		if n.IsFile() {
			names = append(names, n.MustName())
		}
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"a.txt"}, names)
}
