// Package node defines the linearized tree model: the four node shapes
// that make up a well-formed pre-order encoding of a directory tree
// (§3, §4.B of the design).
package node

import "strconv"

// Kind tags which of the four node shapes a Node holds.
type Kind int

const (
	// KindEnter starts a directory.
	KindEnter Kind = iota
	// KindFile is a non-directory entry.
	KindFile
	// KindSep separates a directory's child-directory list from its
	// non-directory entries.
	KindSep
	// KindLeave ends a directory.
	KindLeave
)

func (k Kind) String() string {
	switch k {
	case KindEnter:
		return "Enter"
	case KindFile:
		return "File"
	case KindSep:
		return "Sep"
	case KindLeave:
		return "Leave"
	default:
		return "Unknown"
	}
}

// RootName is the sentinel basename used by the outermost Enter node.
const RootName = "__root__"

// AttMap is an ordered mapping from short ASCII keys to escaped
// byte-string values. Iteration order is always sorted by key; Keys
// recomputes that order on demand rather than caching it, since attribute
// maps are small and built once per node.
type AttMap map[string]string

// Keys returns the map's keys in ascending sorted order.
func (m AttMap) Keys() []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	// Insertion sort is fine; attribute maps have at most nine entries.
	for i := 1; i < len(keys); i++ {
		for j := i; j > 0 && keys[j-1] > keys[j]; j-- {
			keys[j-1], keys[j] = keys[j], keys[j-1]
		}
	}
	return keys
}

// Clone returns a shallow copy safe to mutate independently.
func (m AttMap) Clone() AttMap {
	out := make(AttMap, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Node is one record of a linearized tree stream.
type Node struct {
	Kind Kind
	Name string // escaped name; empty for Sep/Leave
	Atts AttMap // nil for Sep/Leave
}

// Enter constructs a directory-entry node.
func Enter(name string, atts AttMap) Node { return Node{Kind: KindEnter, Name: name, Atts: atts} }

// File constructs a non-directory entry node.
func File(name string, atts AttMap) Node { return Node{Kind: KindFile, Name: name, Atts: atts} }

// Sep constructs the directory/file-list separator node.
func Sep() Node { return Node{Kind: KindSep} }

// Leave constructs the end-of-directory node.
func Leave() Node { return Node{Kind: KindLeave} }

// IsEnter reports whether n is a directory-entry node.
func (n Node) IsEnter() bool { return n.Kind == KindEnter }

// IsFile reports whether n is a non-directory entry node.
func (n Node) IsFile() bool { return n.Kind == KindFile }

// IsSep reports whether n is the child-directory/file-list separator.
func (n Node) IsSep() bool { return n.Kind == KindSep }

// IsLeave reports whether n ends a directory.
func (n Node) IsLeave() bool { return n.Kind == KindLeave }

// IsRegularFile reports whether n is a File node whose kind attribute is
// "file" (as opposed to a symlink, device, fifo, or socket).
func (n Node) IsRegularFile() bool {
	return n.Kind == KindFile && n.Atts["kind"] == "file"
}

// NeedsHash reports whether n is a regular file lacking a sha1 attribute.
func (n Node) NeedsHash() bool {
	return n.IsRegularFile() && n.Atts["sha1"] == ""
}

// Size parses the size attribute, returning 0 if absent or unparsable.
func (n Node) Size() uint64 {
	if n.Atts == nil {
		return 0
	}
	v, err := strconv.ParseUint(n.Atts["size"], 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// MustName returns the node's name, panicking on Sep/Leave nodes per §4.B.
func (n Node) MustName() string {
	if n.Kind != KindEnter && n.Kind != KindFile {
		panic("node: Name called on Sep/Leave node")
	}
	return n.Name
}

// Kind string helpers used by comparators/printers: the values the "kind"
// attribute takes for each entry type.
const (
	AttrKindDir    = "dir"
	AttrKindFile   = "file"
	AttrKindLink   = "lnk"
	AttrKindFifo   = "fifo"
	AttrKindSocket = "sock"
	AttrKindChar   = "chr"
	AttrKindBlock  = "blk"
)
