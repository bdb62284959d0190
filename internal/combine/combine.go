// Package combine carries sha1 hashes forward from a previous scan into a
// freshly rescanned tree, for files whose identity looks unchanged, so
// that an update only needs to hash what actually changed (§4.G).
//
// The walk mirrors the tree comparator in internal/compare: both streams
// are consumed in lockstep, one node at a time, and the result follows
// the structure of the right (new) tree exactly. It differs from compare
// in what it does at a matching file: instead of reporting a diff, it
// copies the sha1 attribute over when it looks safe to assume the
// content hasn't changed.
package combine

import (
	"io"

	"github.com/sureweave/asure/internal/asureerr"
	"github.com/sureweave/asure/internal/node"
)

// Source is a pull-based node stream, as produced by a scanner or reader.
type Source interface {
	Next() (node.Node, error)
}

// Sink receives the merged node stream, in the new tree's order.
type Sink func(node.Node) error

// Merge walks old (the previous scan, with hashes) and fresh (a new scan,
// without hashes) together and writes the merged stream to out. fresh
// defines the shape of the result; old only contributes sha1 values.
func Merge(old, fresh Source, out Sink) error {
	ln, err := firstNode(old, asureerr.ErrEmptyLeftIterator)
	if err != nil {
		return err
	}
	rn, err := firstNode(fresh, asureerr.ErrEmptyRightIterator)
	if err != nil {
		return err
	}

	m := &merger{old: old, fresh: fresh, left: ln, right: rn, out: out}
	return m.walkRoot()
}

func firstNode(src Source, emptyErr error) (node.Node, error) {
	n, err := src.Next()
	if err == io.EOF {
		return node.Node{}, emptyErr
	}
	return n, err
}

type merger struct {
	old, fresh   Source
	left, right  node.Node
	out          Sink
}

func (m *merger) nextLeft() error {
	n, err := m.old.Next()
	if err == io.EOF {
		m.left = node.Leave()
		return nil
	}
	if err != nil {
		return err
	}
	m.left = n
	return nil
}

func (m *merger) nextRight() error {
	n, err := m.fresh.Next()
	if err == io.EOF {
		m.right = node.Leave()
		return nil
	}
	if err != nil {
		return err
	}
	m.right = n
	return nil
}

func (m *merger) walkRoot() error {
	if !m.left.IsEnter() {
		return asureerr.ErrUnexpectedLeftNode
	}
	if !m.right.IsEnter() {
		return asureerr.ErrUnexpectedRightNode
	}
	if m.left.Name != node.RootName || m.right.Name != node.RootName {
		return asureerr.ErrIncorrectName
	}

	if err := m.emitEnter(); err != nil {
		return err
	}
	if err := m.nextLeft(); err != nil {
		return err
	}
	if err := m.nextRight(); err != nil {
		return err
	}
	return m.walkSameDirs()
}

// walkSameDirs consumes the child-directory run of a directory present in
// both trees, recursing into subdirectories with matching names and
// discarding ones that only exist on one side, then hands off to
// walkSameFiles once both sides reach their Sep.
func (m *merger) walkSameDirs() error {
	for {
		switch {
		case m.left.IsSep() && m.right.IsSep():
			if err := m.emitSep(); err != nil {
				return err
			}
			if err := m.nextLeft(); err != nil {
				return err
			}
			if err := m.nextRight(); err != nil {
				return err
			}
			return m.walkSameFiles()

		case m.right.IsSep() || (!m.left.IsSep() && m.left.Name < m.right.Name):
			// Directory only in old tree: drain it, contributes nothing.
			if err := m.skipLeftSubtree(); err != nil {
				return err
			}

		case m.left.IsSep() || m.left.Name > m.right.Name:
			// New directory, not present in old tree: emit as-is.
			if err := m.copyRightSubtree(); err != nil {
				return err
			}

		default:
			if err := m.emitEnter(); err != nil {
				return err
			}
			if err := m.nextLeft(); err != nil {
				return err
			}
			if err := m.nextRight(); err != nil {
				return err
			}
			if err := m.walkSameDirs(); err != nil {
				return err
			}
		}
	}
}

// walkSameFiles consumes the non-directory run of a directory, carrying
// sha1 forward for files that match on both sides, until both reach
// Leave, which it also emits before returning.
func (m *merger) walkSameFiles() error {
	for {
		switch {
		case m.left.IsLeave() && m.right.IsLeave():
			if err := m.emitLeave(); err != nil {
				return err
			}
			if err := m.nextLeft(); err != nil {
				return err
			}
			return m.nextRight()

		case m.right.IsLeave() || (!m.left.IsLeave() && m.left.Name < m.right.Name):
			if err := m.nextLeft(); err != nil {
				return err
			}

		case m.left.IsLeave() || m.left.Name > m.right.Name:
			if err := m.emitFile(m.right); err != nil {
				return err
			}
			if err := m.nextRight(); err != nil {
				return err
			}

		default:
			merged := maybeCopySha(m.left, m.right)
			if err := m.emitFile(merged); err != nil {
				return err
			}
			if err := m.nextLeft(); err != nil {
				return err
			}
			if err := m.nextRight(); err != nil {
				return err
			}
		}
	}
}

// skipLeftSubtree discards a directory that exists only on the old side:
// its Enter has already been observed, so drain down to the matching
// Leave without emitting anything.
func (m *merger) skipLeftSubtree() error {
	if err := m.nextLeft(); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		switch {
		case m.left.IsEnter():
			depth++
		case m.left.IsLeave():
			depth--
		}
		if depth == 0 {
			break
		}
		if err := m.nextLeft(); err != nil {
			return err
		}
	}
	return m.nextLeft()
}

// copyRightSubtree emits a directory that only exists on the new side
// verbatim, with no hashes to carry.
func (m *merger) copyRightSubtree() error {
	if err := m.emitEnter(); err != nil {
		return err
	}
	if err := m.nextRight(); err != nil {
		return err
	}
	depth := 1
	for depth > 0 {
		switch {
		case m.right.IsEnter():
			depth++
			if err := m.emitEnter(); err != nil {
				return err
			}
		case m.right.IsSep():
			if err := m.emitSep(); err != nil {
				return err
			}
		case m.right.IsFile():
			if err := m.emitFile(m.right); err != nil {
				return err
			}
		case m.right.IsLeave():
			depth--
			if err := m.emitLeave(); err != nil {
				return err
			}
		}
		if depth == 0 {
			break
		}
		if err := m.nextRight(); err != nil {
			return err
		}
	}
	return m.nextRight()
}

func (m *merger) emitEnter() error { return m.out(node.Enter(m.right.Name, m.right.Atts)) }
func (m *merger) emitSep() error   { return m.out(node.Sep()) }
func (m *merger) emitLeave() error { return m.out(node.Leave()) }
func (m *merger) emitFile(n node.Node) error {
	return m.out(node.File(n.Name, n.Atts))
}

// maybeCopySha returns right, with its sha1 attribute set from left when
// both are regular files, neither has moved to a different inode, the
// size is unchanged, and the old tree already has a hash recorded. ctime
// change implies the content may have changed (it changes on any metadata
// write, including a rewrite), so it is required to match along with ino
// and size.
func maybeCopySha(left, right node.Node) node.Node {
	if right.Atts["sha1"] != "" {
		return right
	}
	if !left.IsRegularFile() || !right.IsRegularFile() {
		return right
	}
	if left.Atts["ino"] != right.Atts["ino"] {
		return right
	}
	if left.Atts["ctime"] != right.Atts["ctime"] {
		return right
	}
	if left.Atts["size"] != right.Atts["size"] {
		return right
	}
	sha1 := left.Atts["sha1"]
	if sha1 == "" {
		return right
	}

	atts := right.Atts.Clone()
	atts["sha1"] = sha1
	return node.File(right.Name, atts)
}
