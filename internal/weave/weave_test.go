package weave

import (
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/sureweave/asure/internal/naming"
)

func fixedNow() time.Time { return time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC) }

type collectSink struct {
	NopSink
	lines []string
}

func (c *collectSink) Plain(text string, keep bool) error {
	if keep {
		c.lines = append(c.lines, text)
	}
	return nil
}

func TestStartWeaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	conv := naming.New(dir, "tree", "weave", false)

	w, err := StartWeave(conv, map[string]string{"name": "v1"}, fixedNow)
	require.NoError(t, err)
	_, err = io.WriteString(w, "line one\nline two\nline three\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	_, err = os.Stat(conv.MainFile())
	require.NoError(t, err)

	pull, err := OpenPullParser(conv, 1)
	require.NoError(t, err)
	defer pull.Close()

	sink := &collectSink{}
	p := NewParser(pull, sink)
	n, err := p.ParseTo(0)
	require.NoError(t, err)
	require.Equal(t, 0, n)
	require.Equal(t, []string{"line one", "line two", "line three"}, sink.lines)
	require.Equal(t, []string{"v1"}, p.Header().SortedNames())
}

func TestHeaderEncodeDecodeRoundTrip(t *testing.T) {
	h := NewHeader()
	_, err := h.Add(map[string]string{"name": "first"}, fixedNow())
	require.NoError(t, err)
	_, err = h.Add(map[string]string{"name": "second"}, fixedNow())
	require.NoError(t, err)

	line, err := h.Encode()
	require.NoError(t, err)

	got, err := DecodeHeader(line)
	require.NoError(t, err)
	require.Equal(t, 2, got.Latest())
	require.Equal(t, []string{"first", "second"}, got.SortedNames())
}

func TestDecodeHeaderHandlesForeignFile(t *testing.T) {
	h, err := DecodeHeader("plain sccs content")
	require.NoError(t, err)
	require.Equal(t, 0, h.Version)
	require.Empty(t, h.Deltas)
}

func TestDeltaWriterAddsSecondDelta(t *testing.T) {
	if _, err := exec.LookPath("diff"); err != nil {
		t.Skip("diff binary not available")
	}

	dir := t.TempDir()
	conv := naming.New(dir, "tree", "weave", false)

	w, err := StartWeave(conv, map[string]string{"name": "v1"}, fixedNow)
	require.NoError(t, err)
	_, err = io.WriteString(w, "alpha\nbeta\ngamma\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	dw, err := StartDelta(conv, map[string]string{"name": "v2"}, 1, fixedNow)
	require.NoError(t, err)
	_, err = io.WriteString(dw, "alpha\nBETA\ngamma\ndelta\n")
	require.NoError(t, err)
	require.NoError(t, dw.Close())

	pull, err := OpenPullParser(conv, 2)
	require.NoError(t, err)
	defer pull.Close()
	sink := &collectSink{}
	p := NewParser(pull, sink)
	_, err = p.ParseTo(0)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "BETA", "gamma", "delta"}, sink.lines)

	pull1, err := OpenPullParser(conv, 1)
	require.NoError(t, err)
	defer pull1.Close()
	sink1 := &collectSink{}
	p1 := NewParser(pull1, sink1)
	_, err = p1.ParseTo(0)
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "gamma"}, sink1.lines)
}

func TestCompressedWeaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	conv := naming.New(dir, "tree", "weave", true)

	w, err := StartWeave(conv, map[string]string{"name": "v1"}, fixedNow)
	require.NoError(t, err)
	_, err = io.WriteString(w, "only line\n")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	require.Equal(t, filepath.Join(dir, "tree.weave.gz"), conv.MainFile())

	pull, err := OpenPullParser(conv, 1)
	require.NoError(t, err)
	defer pull.Close()
	sink := &collectSink{}
	p := NewParser(pull, sink)
	_, err = p.ParseTo(0)
	require.NoError(t, err)
	require.Equal(t, []string{"only line"}, sink.lines)
}
