// Package tracker wraps a node stream iterator and reconstructs the
// absolute filesystem path of each node as it is visited (§4.E).
package tracker

import (
	"path/filepath"

	"github.com/sureweave/asure/internal/escape"
	"github.com/sureweave/asure/internal/node"
)

// Source is anything that can be pulled for the next Node in a stream.
type Source interface {
	Next() (node.Node, error)
}

// Entry pairs a node with its absolute path. Path is empty for Sep and
// Leave nodes; the outermost "__root__" Enter gets the base path itself.
type Entry struct {
	Node node.Node
	Path string
}

// Tracker decorates a Source with path tracking.
type Tracker struct {
	src     Source
	cur     string
	atRoot  bool
}

// New wraps src, resolving names against base (the scan root).
func New(src Source, base string) *Tracker {
	return &Tracker{src: src, cur: base, atRoot: true}
}

// Next returns the next (node, path) pair, or io.EOF when src is
// exhausted.
func (t *Tracker) Next() (Entry, error) {
	n, err := t.src.Next()
	if err != nil {
		return Entry{}, err
	}

	var path string
	hasPath := false

	switch {
	case n.IsEnter():
		if t.atRoot {
			t.atRoot = false
			path = t.cur
			hasPath = true
		} else {
			raw, derr := escape.Decode(n.Name)
			if derr != nil {
				return Entry{}, derr
			}
			t.cur = filepath.Join(t.cur, string(raw))
			path = t.cur
			hasPath = true
		}
	case n.IsFile():
		raw, derr := escape.Decode(n.Name)
		if derr != nil {
			return Entry{}, derr
		}
		full := filepath.Join(t.cur, string(raw))
		path = full
		hasPath = true
	case n.IsLeave():
		t.cur = filepath.Dir(t.cur)
	}

	if hasPath {
		return Entry{Node: n, Path: path}, nil
	}
	return Entry{Node: n}, nil
}
