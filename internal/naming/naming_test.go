package naming

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTempFileAvoidsCollisions(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "tree", "weave", false)

	require.NoError(t, os.WriteFile(filepath.Join(dir, "tree.0"), []byte("x"), 0o644))

	name, f, err := c.TempFile()
	require.NoError(t, err)
	defer f.Close()
	require.Equal(t, filepath.Join(dir, "tree.1"), name)
}

func TestCommitRotatesMainToBackup(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "tree", "weave", false)

	require.NoError(t, os.WriteFile(c.MainFile(), []byte("old"), 0o644))

	tmp, f, err := c.TempFile()
	require.NoError(t, err)
	_, err = f.WriteString("new")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	require.NoError(t, c.Commit(tmp))

	got, err := os.ReadFile(c.MainFile())
	require.NoError(t, err)
	require.Equal(t, "new", string(got))

	backup, err := os.ReadFile(c.BackupFile())
	require.NoError(t, err)
	require.Equal(t, "old", string(backup))
}

func TestCleanupRemovesUncommittedTemps(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "tree", "weave", false)

	name, f, err := c.TempFile()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	c.Cleanup()
	_, err = os.Stat(name)
	require.True(t, os.IsNotExist(err))
}

func TestCleanupHonorsKeepEnvVar(t *testing.T) {
	dir := t.TempDir()
	c := New(dir, "tree", "weave", false)

	name, f, err := c.TempFile()
	require.NoError(t, err)
	require.NoError(t, f.Close())

	t.Setenv(KeepEnvVar, "1")
	c.Cleanup()
	_, err = os.Stat(name)
	require.NoError(t, err)
}

func TestCompressedNameHasGzSuffix(t *testing.T) {
	c := New("/tmp", "tree", "weave", true)
	require.Equal(t, filepath.Join("/tmp", "tree.weave.gz"), c.MainFile())
	require.Equal(t, filepath.Join("/tmp", "tree.bak.gz"), c.BackupFile())
}
