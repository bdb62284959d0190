// Package store locates and opens the on-disk archive for a directory
// tree: either a full weave history (WeaveStore) or a single-version
// plain surefile (PlainStore), per §6.
package store

import (
	"time"

	"github.com/sureweave/asure/internal/node"
)

// VersionKind selects which delta a Load call should retrieve.
type VersionKind int

const (
	Latest VersionKind = iota
	Prior
	Tagged
)

// VersionSpec identifies one version to load. Number is only meaningful
// when Kind is Tagged.
type VersionSpec struct {
	Kind   VersionKind
	Number int
}

// VersionInfo describes one version available in a store, newest first
// from Versions.
type VersionInfo struct {
	Name string
	Time time.Time
	Spec VersionSpec
}

// NodeIterator streams a tree's nodes back out of a store.
type NodeIterator interface {
	Next() (node.Node, error)
}

// Writer accepts a freshly scanned tree's nodes and commits them as a new
// version when Commit is called; if Commit is never called, no change is
// made to the store.
type Writer interface {
	WriteNode(node.Node) error
	Commit() error
}

// Store can list, load, and add versions of one directory tree's
// history.
type Store interface {
	Versions() ([]VersionInfo, error)
	Load(spec VersionSpec) (NodeIterator, error)
	NewVersion(tags map[string]string) (Writer, error)
}
