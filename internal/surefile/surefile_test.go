package surefile

import (
	"bytes"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sureweave/asure/internal/node"
)

func TestWriteReadRoundTrip(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	nodes := []node.Node{
		node.Enter(node.RootName, node.AttMap{"uid": "0", "gid": "0", "perm": "755"}),
		node.Sep(),
		node.File("a", node.AttMap{"kind": "file", "size": "5", "sha1": "aaf4c61ddcc5e8a2dabede0f3b482cd9aea9434d"}),
		node.Leave(),
	}
	for _, n := range nodes {
		require.NoError(t, w.WriteNode(n))
	}
	require.NoError(t, w.Flush())

	r, err := NewReader(&buf)
	require.NoError(t, err)

	var got []node.Node
	for {
		n, err := r.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		got = append(got, n)
	}

	require.Len(t, got, len(nodes))
	for i := range nodes {
		require.Equal(t, nodes[i].Kind, got[i].Kind)
		require.Equal(t, nodes[i].Name, got[i].Name)
		for k, v := range nodes[i].Atts {
			require.Equal(t, v, got[i].Atts[k])
		}
	}
}

func TestReaderRejectsBadHeader(t *testing.T) {
	_, err := NewReader(bytes.NewBufferString("nope\n-----\n"))
	require.Error(t, err)
}

func TestReaderRejectsBadLineStart(t *testing.T) {
	r, err := NewReader(bytes.NewBufferString("asure-2.0\n-----\nX garbage\n"))
	require.NoError(t, err)
	_, err = r.Next()
	require.Error(t, err)
}

func TestNamesAndValuesRoundTripEscaped(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewWriter(&buf)
	require.NoError(t, err)

	require.NoError(t, w.WriteNode(node.Enter(node.RootName, node.AttMap{})))
	require.NoError(t, w.WriteNode(node.Sep()))
	require.NoError(t, w.WriteNode(node.File("weird=3dname=5bwith=5dspecials", node.AttMap{"kind": "file", "targ": "a b=c[d]"})))
	require.NoError(t, w.WriteNode(node.Leave()))
	require.NoError(t, w.Flush())

	r, err := NewReader(&buf)
	require.NoError(t, err)
	_, err = r.Next() // Enter
	require.NoError(t, err)
	_, err = r.Next() // Sep
	require.NoError(t, err)
	f, err := r.Next() // File
	require.NoError(t, err)
	require.Equal(t, "weird=3dname=5bwith=5dspecials", f.Name)
	require.Equal(t, "a b=c[d]", f.Atts["targ"])
}
