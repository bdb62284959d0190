// Package compare walks two node streams together and reports the
// differences between them as a sequence of change events (§4.H).
package compare

import (
	"io"
	"sort"

	"github.com/sirupsen/logrus"
	"github.com/sureweave/asure/internal/asureerr"
	"github.com/sureweave/asure/internal/node"
)

// Source is a pull-based node stream.
type Source interface {
	Next() (node.Node, error)
}

// ChangeKind classifies one reported difference.
type ChangeKind int

const (
	Add ChangeKind = iota
	Delete
	Modify
)

func (k ChangeKind) String() string {
	switch k {
	case Add:
		return "+"
	case Delete:
		return "-"
	case Modify:
		return "~"
	default:
		return "?"
	}
}

// EntryKind distinguishes a directory from a non-directory entry in a
// reported Change, independent of what kind of change it was.
type EntryKind int

const (
	Dir EntryKind = iota
	NonDir
)

func (k EntryKind) String() string {
	switch k {
	case Dir:
		return "dir"
	default:
		return "file"
	}
}

// Change is one reported difference between the two trees.
type Change struct {
	Kind  ChangeKind
	Entry EntryKind
	Path  string
	// Attrs holds the sorted list of attribute names that differ,
	// populated only for Modify.
	Attrs []string
}

// Sink receives each Change as it is discovered, in tree order.
type Sink func(Change) error

// Options configures a Compare call.
type Options struct {
	// Ignore lists additional attribute names never to report as
	// changed. "ctime" and "ino" are always ignored, since they differ
	// across a restored backup even when content has not changed.
	Ignore []string
}

// Compare walks old and fresh together, reporting additions, deletions,
// and attribute-level modifications to out.
func Compare(old, fresh Source, root string, opts Options, out Sink) error {
	ignore := map[string]bool{"ctime": true, "ino": true}
	for _, a := range opts.Ignore {
		ignore[a] = true
	}

	ln, err := firstNode(old, asureerr.ErrEmptyLeftIterator)
	if err != nil {
		return err
	}
	rn, err := firstNode(fresh, asureerr.ErrEmptyRightIterator)
	if err != nil {
		return err
	}

	c := &comparer{
		old: old, fresh: fresh, left: ln, right: rn,
		ignore: ignore, out: out,
		adds: map[string]bool{}, missings: map[string]bool{},
	}
	return c.walkRoot(root)
}

func firstNode(src Source, emptyErr error) (node.Node, error) {
	n, err := src.Next()
	if err == io.EOF {
		return node.Node{}, emptyErr
	}
	return n, err
}

type comparer struct {
	old, fresh  Source
	left, right node.Node
	ignore      map[string]bool
	out         Sink

	// adds/missings dedupe the "attribute appeared/vanished" warnings so
	// each distinct attribute name is logged only once per run.
	adds, missings map[string]bool
}

func (c *comparer) nextLeft() error {
	n, err := c.old.Next()
	if err == io.EOF {
		c.left = node.Leave()
		return nil
	}
	if err != nil {
		return err
	}
	c.left = n
	return nil
}

func (c *comparer) nextRight() error {
	n, err := c.fresh.Next()
	if err == io.EOF {
		c.right = node.Leave()
		return nil
	}
	if err != nil {
		return err
	}
	c.right = n
	return nil
}

func (c *comparer) walkRoot(root string) error {
	if !c.left.IsEnter() {
		return asureerr.ErrUnexpectedLeftNode
	}
	if !c.right.IsEnter() {
		return asureerr.ErrUnexpectedRightNode
	}
	if c.left.Name != node.RootName || c.right.Name != node.RootName {
		return asureerr.ErrIncorrectName
	}

	if err := c.compareAtts(Dir, c.left, c.right, root); err != nil {
		return err
	}
	if err := c.nextLeft(); err != nil {
		return err
	}
	if err := c.nextRight(); err != nil {
		return err
	}
	return c.walkSameDirs(root)
}

func (c *comparer) walkSameDirs(dir string) error {
	for {
		switch {
		case c.left.IsSep() && c.right.IsSep():
			if err := c.nextLeft(); err != nil {
				return err
			}
			if err := c.nextRight(); err != nil {
				return err
			}
			return c.walkSameFiles(dir)

		case c.right.IsSep() || (!c.left.IsSep() && c.left.Name < c.right.Name):
			if err := c.report(Delete, Dir, dir, c.left.Name); err != nil {
				return err
			}
			if err := c.nextLeft(); err != nil {
				return err
			}
			if err := c.walkLeftDir(); err != nil {
				return err
			}

		case c.left.IsSep() || c.left.Name > c.right.Name:
			if err := c.report(Add, Dir, dir, c.right.Name); err != nil {
				return err
			}
			if err := c.nextRight(); err != nil {
				return err
			}
			if err := c.walkRightDir(); err != nil {
				return err
			}

		default:
			sub := joinPath(dir, c.left.Name)
			if err := c.compareAtts(Dir, c.left, c.right, sub); err != nil {
				return err
			}
			if err := c.nextLeft(); err != nil {
				return err
			}
			if err := c.nextRight(); err != nil {
				return err
			}
			if err := c.walkSameDirs(sub); err != nil {
				return err
			}
		}
	}
}

func (c *comparer) walkSameFiles(dir string) error {
	for {
		switch {
		case c.left.IsLeave() && c.right.IsLeave():
			if err := c.nextLeft(); err != nil {
				return err
			}
			if err := c.nextRight(); err != nil {
				return err
			}
			return nil

		case c.right.IsLeave() || (!c.left.IsLeave() && c.left.Name < c.right.Name):
			if err := c.report(Delete, NonDir, dir, c.left.Name); err != nil {
				return err
			}
			if err := c.nextLeft(); err != nil {
				return err
			}

		case c.left.IsLeave() || c.left.Name > c.right.Name:
			if err := c.report(Add, NonDir, dir, c.right.Name); err != nil {
				return err
			}
			if err := c.nextRight(); err != nil {
				return err
			}

		default:
			sub := joinPath(dir, c.left.Name)
			if err := c.compareAtts(NonDir, c.left, c.right, sub); err != nil {
				return err
			}
			if err := c.nextLeft(); err != nil {
				return err
			}
			if err := c.nextRight(); err != nil {
				return err
			}
		}
	}
}

func (c *comparer) walkLeftDir() error {
	depth := 1
	for depth > 0 {
		switch {
		case c.left.IsEnter():
			depth++
		case c.left.IsLeave():
			depth--
		}
		if depth == 0 {
			break
		}
		if err := c.nextLeft(); err != nil {
			return err
		}
	}
	return c.nextLeft()
}

func (c *comparer) walkRightDir() error {
	depth := 1
	for depth > 0 {
		switch {
		case c.right.IsEnter():
			depth++
		case c.right.IsLeave():
			depth--
		}
		if depth == 0 {
			break
		}
		if err := c.nextRight(); err != nil {
			return err
		}
	}
	return c.nextRight()
}

func (c *comparer) report(kind ChangeKind, entry EntryKind, dir, name string) error {
	return c.out(Change{Kind: kind, Entry: entry, Path: joinPath(dir, name)})
}

// compareAtts diffs the attribute maps of a matching Enter or File pair,
// reporting a Modify change if anything differs, and logging (once per
// distinct attribute name) any attribute that appeared or vanished
// between the two schema versions being compared.
func (c *comparer) compareAtts(entry EntryKind, left, right node.Node, path string) error {
	old := left.Atts.Clone()
	fresh := right.Atts.Clone()
	for k := range c.ignore {
		delete(old, k)
		delete(fresh, k)
	}

	var diffs []string
	for k, v := range fresh {
		ov, ok := old[k]
		if !ok {
			if !c.adds[k] {
				logrus.WithField("attribute", k).Warn("compare: added attribute")
				c.adds[k] = true
			}
		} else if v != ov {
			diffs = append(diffs, k)
		}
		delete(old, k)
	}
	for k := range old {
		if !c.missings[k] {
			logrus.WithField("attribute", k).Warn("compare: missing attribute")
			c.missings[k] = true
		}
	}

	if len(diffs) == 0 {
		return nil
	}
	sort.Strings(diffs)
	return c.out(Change{Kind: Modify, Entry: entry, Path: path, Attrs: diffs})
}

func joinPath(dir, name string) string {
	if dir == "" {
		return name
	}
	if dir == "/" {
		return "/" + name
	}
	return dir + "/" + name
}
