// Package scanner walks a directory tree and emits a node.Node stream in
// canonical pre-order (§4.C of the design).
package scanner

import (
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/sureweave/asure/internal/asureerr"
	"github.com/sureweave/asure/internal/escape"
	"github.com/sureweave/asure/internal/node"
)

// Estimate is a cheap pre-pass count used to size the progress meter
// before the real (possibly hashing) traversal begins.
type Estimate struct {
	Files uint64
	Bytes uint64
}

// Iterator produces a node.Node stream via repeated calls to Next, which
// returns io.EOF once the outermost Leave has been emitted.
type Iterator interface {
	Next() (node.Node, error)
}

// Scan walks root and returns an Iterator over it in canonical order:
// Enter, recursively all child directories (each closed with Sep then
// their files then Leave), Sep, files, Leave. The outermost Enter uses
// name "__root__". Returns asureerr.ErrRootMustBeDir immediately if root
// is not a directory.
func Scan(root string) (Iterator, error) {
	info, err := os.Lstat(root)
	if err != nil {
		return nil, err
	}
	if !info.IsDir() {
		return nil, asureerr.ErrRootMustBeDir
	}

	rootDev := deviceOf(info)

	s := &scan{rootDev: rootDev}
	s.queue = append(s.queue, workItem{subdir: root, name: node.RootName, info: info})
	return s, nil
}

// EstimateTree performs a lightweight walk to count files and total
// bytes, for seeding a progress meter ahead of a real scan+hash pass.
func EstimateTree(root string) (Estimate, error) {
	var est Estimate
	it, err := Scan(root)
	if err != nil {
		return est, err
	}
	for {
		n, err := it.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return est, err
		}
		if n.IsFile() {
			est.Files++
			est.Bytes += n.Size()
		}
	}
	return est, nil
}

// statted is one already-lstat'd directory entry awaiting classification.
type statted struct {
	name string
	info os.FileInfo
}

// workItem is either a ready-made Node or a directory whose children
// still need to be expanded onto the queue.
type workItem struct {
	ready  *node.Node
	subdir string // full path; set when this item still needs expanding
	name   string // escaped name to use for the Enter node
	info   os.FileInfo
}

type scan struct {
	rootDev uint64
	queue   []workItem
}

// Next implements Iterator. The traversal is expressed with an explicit
// deque rather than recursion so that deep trees do not risk a Go stack
// overflow: expanding a directory inserts its subdirs/Sep/files/Leave at
// the front of the queue, ahead of everything still pending, which keeps
// depth-first order in a flat slice.
func (s *scan) Next() (node.Node, error) {
	if len(s.queue) == 0 {
		return node.Node{}, io.EOF
	}
	item := s.queue[0]
	s.queue = s.queue[1:]

	if item.ready != nil {
		return *item.ready, nil
	}

	atts, err := encodeAtts(item.subdir, item.info)
	if err != nil {
		return node.Node{}, err
	}

	dev := deviceOf(item.info)
	if dev != s.rootDev {
		// Crossed a mount boundary: represent as an immediately-closed
		// empty directory, contents not traversed.
		s.insertFront([]workItem{{ready: nodePtr(node.Sep())}, {ready: nodePtr(node.Leave())}})
	} else if err := s.expandDir(item.subdir); err != nil {
		return node.Node{}, err
	}

	return node.Enter(item.name, atts), nil
}

func (s *scan) insertFront(items []workItem) {
	rest := make([]workItem, 0, len(items)+len(s.queue))
	rest = append(rest, items...)
	rest = append(rest, s.queue...)
	s.queue = rest
}

// expandDir reads path's entries, splits and sorts them, and inserts the
// resulting work items (subdirectories, Sep, files, Leave) in front of
// whatever remains in the queue.
func (s *scan) expandDir(path string) error {
	entries, err := os.ReadDir(path)
	if err != nil {
		return err
	}

	all := make([]statted, 0, len(entries))
	for _, de := range entries {
		info, err := de.Info()
		if err != nil {
			logrus.WithError(err).WithField("path", filepath.Join(path, de.Name())).
				Warn("scanner: stat failed, skipping")
			continue
		}
		all = append(all, statted{name: de.Name(), info: info})
	}

	// Sort by inode ascending first: a performance aid on some
	// filesystems, not an observable property of the output.
	sort.SliceStable(all, func(i, j int) bool {
		return inodeOf(all[i].info) < inodeOf(all[j].info)
	})

	var dirs, files []statted
	for _, e := range all {
		if e.info.IsDir() {
			dirs = append(dirs, e)
		} else {
			files = append(files, e)
		}
	}

	sortByEscapedName(dirs)
	sortByEscapedName(files)

	var body []workItem

	for _, d := range dirs {
		full := filepath.Join(path, d.name)
		body = append(body, workItem{subdir: full, name: escape.Encode([]byte(d.name)), info: d.info})
	}

	body = append(body, workItem{ready: nodePtr(node.Sep())})

	for _, f := range files {
		full := filepath.Join(path, f.name)
		atts, err := encodeAtts(full, f.info)
		if err != nil {
			logrus.WithError(err).WithField("path", full).Warn("scanner: stat failed")
			continue
		}
		body = append(body, workItem{ready: nodePtr(node.File(escape.Encode([]byte(f.name)), atts))})
	}

	body = append(body, workItem{ready: nodePtr(node.Leave())})

	s.insertFront(body)
	return nil
}

func sortByEscapedName(items []statted) {
	sort.SliceStable(items, func(i, j int) bool {
		return escape.Encode([]byte(items[i].name)) < escape.Encode([]byte(items[j].name))
	})
}

func nodePtr(n node.Node) *node.Node { return &n }

func inodeOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return st.Ino
	}
	return 0
}

func deviceOf(info os.FileInfo) uint64 {
	if st, ok := info.Sys().(*syscall.Stat_t); ok {
		return uint64(st.Dev)
	}
	return 0
}

// encodeAtts builds the attribute map for path per the schema in §6.
func encodeAtts(path string, info os.FileInfo) (node.AttMap, error) {
	atts := make(node.AttMap)
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return atts, nil
	}

	atts["uid"] = strconv.FormatUint(uint64(st.Uid), 10)
	atts["gid"] = strconv.FormatUint(uint64(st.Gid), 10)
	atts["perm"] = strconv.FormatUint(uint64(st.Mode&^syscall.S_IFMT), 10)

	mode := info.Mode()
	switch {
	case mode.IsDir():
		atts["kind"] = node.AttrKindDir
	case mode&os.ModeSymlink != 0:
		atts["kind"] = node.AttrKindLink
		target, err := os.Readlink(path)
		if err != nil {
			return nil, err
		}
		atts["targ"] = escape.Encode([]byte(target))
	case mode&os.ModeNamedPipe != 0:
		atts["kind"] = node.AttrKindFifo
	case mode&os.ModeSocket != 0:
		atts["kind"] = node.AttrKindSocket
	case mode&os.ModeCharDevice != 0:
		atts["kind"] = node.AttrKindChar
		atts["devmaj"] = strconv.FormatUint((uint64(st.Rdev)>>8)&0xfff, 10)
		atts["devmin"] = strconv.FormatUint(uint64(st.Rdev)&0xff, 10)
	case mode&os.ModeDevice != 0:
		atts["kind"] = node.AttrKindBlock
		atts["devmaj"] = strconv.FormatUint((uint64(st.Rdev)>>8)&0xfff, 10)
		atts["devmin"] = strconv.FormatUint(uint64(st.Rdev)&0xff, 10)
	default:
		atts["kind"] = node.AttrKindFile
		atts["ino"] = strconv.FormatUint(st.Ino, 10)
		atts["size"] = strconv.FormatInt(info.Size(), 10)
		atts["mtime"] = strconv.FormatInt(st.Mtim.Sec, 10)
		atts["ctime"] = strconv.FormatInt(st.Ctim.Sec, 10)
	}

	return atts, nil
}
