package tracker

import (
	"io"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/sureweave/asure/internal/node"
)

type sliceSource struct {
	nodes []node.Node
	pos   int
}

func (s *sliceSource) Next() (node.Node, error) {
	if s.pos >= len(s.nodes) {
		return node.Node{}, io.EOF
	}
	n := s.nodes[s.pos]
	s.pos++
	return n, nil
}

func TestTrackerPaths(t *testing.T) {
	src := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Sep(),
		node.Enter("sub", node.AttMap{}),
		node.Sep(),
		node.File("inner", node.AttMap{"kind": "file"}),
		node.Leave(),
		node.File("top", node.AttMap{"kind": "file"}),
		node.Leave(),
	}}

	tr := New(src, "/base")
	var paths []string
	for {
		e, err := tr.Next()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		paths = append(paths, e.Path)
	}

	require.Equal(t, []string{
		"/base",
		"",
		filepath.Join("/base", "sub"),
		"",
		filepath.Join("/base", "sub", "inner"),
		"",
		filepath.Join("/base", "top"),
		"",
	}, paths)
}
