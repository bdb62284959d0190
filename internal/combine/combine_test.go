package combine

import (
	"io"
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

func fileAtt(ino, ctime, size, sha1 string) node.AttMap {
	atts := node.AttMap{"kind": "file", "ino": ino, "ctime": ctime, "size": size}
	if sha1 != "" {
		atts["sha1"] = sha1
	}
	return atts
}

func TestMergeCarriesUnchangedHash(t *testing.T) {
	old := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Sep(),
		node.File("a", fileAtt("1", "100", "5", "deadbeef")),
		node.Leave(),
	}}
	fresh := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Sep(),
		node.File("a", fileAtt("1", "100", "5", "")),
		node.Leave(),
	}}

	var got []node.Node
	err := Merge(old, fresh, func(n node.Node) error {
		got = append(got, n)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, "deadbeef", got[2].Atts["sha1"])
}

func TestMergeDoesNotCarryWhenInodeChanged(t *testing.T) {
	old := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Sep(),
		node.File("a", fileAtt("1", "100", "5", "deadbeef")),
		node.Leave(),
	}}
	fresh := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Sep(),
		node.File("a", fileAtt("2", "100", "5", "")),
		node.Leave(),
	}}

	var got []node.Node
	err := Merge(old, fresh, func(n node.Node) error {
		got = append(got, n)
		return nil
	})
	require.NoError(t, err)
	require.Empty(t, got[2].Atts["sha1"])
}

func TestMergeHandlesAddedAndRemovedEntries(t *testing.T) {
	old := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Sep(),
		node.File("gone", fileAtt("1", "100", "5", "deadbeef")),
		node.Leave(),
	}}
	fresh := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Sep(),
		node.File("new", fileAtt("2", "200", "9", "")),
		node.Leave(),
	}}

	var got []node.Node
	err := Merge(old, fresh, func(n node.Node) error {
		got = append(got, n)
		return nil
	})
	require.NoError(t, err)
	require.Len(t, got, 4)
	require.Equal(t, "new", got[2].Name)
	require.Empty(t, got[2].Atts["sha1"])
}

func TestMergeRecursesIntoMatchingSubdirectories(t *testing.T) {
	old := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Enter("sub", node.AttMap{}),
		node.Sep(),
		node.File("a", fileAtt("1", "100", "5", "deadbeef")),
		node.Leave(),
		node.Sep(),
		node.Leave(),
	}}
	fresh := &sliceSource{nodes: []node.Node{
		node.Enter(node.RootName, node.AttMap{}),
		node.Enter("sub", node.AttMap{}),
		node.Sep(),
		node.File("a", fileAtt("1", "100", "5", "")),
		node.Leave(),
		node.Sep(),
		node.Leave(),
	}}

	var got []node.Node
	err := Merge(old, fresh, func(n node.Node) error {
		got = append(got, n)
		return nil
	})
	require.NoError(t, err)
	var found bool
	for _, n := range got {
		if n.IsFile() && n.Name == "a" {
			found = true
			require.Equal(t, "deadbeef", n.Atts["sha1"])
		}
	}
	require.True(t, found)
}
