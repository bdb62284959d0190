// Package ops implements the handful of whole-tree operations that sit
// above the individual stages: a scan (optionally carrying hashes
// forward from a prior version), a comparison of a fresh scan against a
// stored version, and a plain replay of a stored version. These mirror
// rsure's library entry points update(), compare() and show_tree().
package ops

import (
	"context"
	"io"

	"github.com/sureweave/asure/internal/combine"
	"github.com/sureweave/asure/internal/compare"
	"github.com/sureweave/asure/internal/hashupdate"
	"github.com/sureweave/asure/internal/node"
	"github.com/sureweave/asure/internal/progress"
	"github.com/sureweave/asure/internal/scanner"
	"github.com/sureweave/asure/internal/store"
	"github.com/sureweave/asure/internal/tracker"
)

// UpdateOptions configures Update.
type UpdateOptions struct {
	// CarryHashes, when true, loads the store's latest version and
	// copies sha1 over for files that look unchanged before hashing
	// what remains. A first scan of a directory should leave this false.
	CarryHashes bool
	Tags        map[string]string
	Workers     int
	Meter       *progress.Meter
}

// Update scans dir, fills in every sha1 the scan (or the carried-forward
// hashes) still lacks, and writes the result to st as a new version.
func Update(ctx context.Context, dir string, st store.Store, opts UpdateOptions) error {
	var old store.NodeIterator
	if opts.CarryHashes {
		it, err := st.Load(store.VersionSpec{Kind: store.Latest})
		if err != nil {
			return err
		}
		old = it
	}

	entries, err := buildEntries(dir, old)
	if err != nil {
		return err
	}

	est, err := scanner.EstimateTree(dir)
	if err != nil {
		return err
	}

	var progressFn hashupdate.Progress
	if opts.Meter != nil {
		progressFn = opts.Meter.HashProgress()
	}

	opener := func() (hashupdate.Source, error) {
		return &entrySource{entries: entries}, nil
	}
	merged, err := hashupdate.Run(ctx, opener, hashupdate.Options{
		Workers:  opts.Workers,
		Estimate: est.Files,
		Progress: progressFn,
	})
	if err != nil {
		return err
	}

	w, err := st.NewVersion(opts.Tags)
	if err != nil {
		return err
	}
	for {
		n, err := merged.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return err
		}
		if err := w.WriteNode(n); err != nil {
			return err
		}
	}
	return w.Commit()
}

// Compare scans dir fresh and reports its differences against st's
// latest version through out, in tree order.
func Compare(dir string, st store.Store, opts compare.Options, out compare.Sink) error {
	old, err := st.Load(store.VersionSpec{Kind: store.Latest})
	if err != nil {
		return err
	}

	fresh, err := scanner.Scan(dir)
	if err != nil {
		return err
	}

	return compare.Compare(old, fresh, dir, opts, out)
}

// Show streams spec's version from st through out, one node at a time.
func Show(st store.Store, spec store.VersionSpec, out func(node.Node) error) error {
	it, err := st.Load(spec)
	if err != nil {
		return err
	}
	for {
		n, err := it.Next()
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := out(n); err != nil {
			return err
		}
	}
}

// buildEntries scans dir fresh, carrying hashes forward from old (when
// non-nil) via combine.Merge, and resolves each resulting node's
// filesystem path. The merged stream is materialized in full before path
// resolution, the same way rsure holds a whole tree in memory; it is
// then replayed into a fresh tracker.Tracker, which only needs node
// names and kinds to rebuild the path of every node, whatever stream
// produced them.
func buildEntries(dir string, old store.NodeIterator) ([]tracker.Entry, error) {
	fresh, err := scanner.Scan(dir)
	if err != nil {
		return nil, err
	}

	var merged []node.Node
	collect := func(n node.Node) error {
		merged = append(merged, n)
		return nil
	}

	if old == nil {
		for {
			n, err := fresh.Next()
			if err == io.EOF {
				break
			}
			if err != nil {
				return nil, err
			}
			if err := collect(n); err != nil {
				return nil, err
			}
		}
	} else if err := combine.Merge(old, fresh, collect); err != nil {
		return nil, err
	}

	trk := tracker.New(&nodeSliceSource{nodes: merged}, dir)
	var entries []tracker.Entry
	for {
		e, err := trk.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type nodeSliceSource struct {
	nodes []node.Node
	pos   int
}

func (s *nodeSliceSource) Next() (node.Node, error) {
	if s.pos >= len(s.nodes) {
		return node.Node{}, io.EOF
	}
	n := s.nodes[s.pos]
	s.pos++
	return n, nil
}

// entrySource replays a materialized entry slice, the hashupdate.Source
// an Opener hands back for each of pass 1 and pass 2.
type entrySource struct {
	entries []tracker.Entry
	pos     int
}

func (s *entrySource) Next() (tracker.Entry, error) {
	if s.pos >= len(s.entries) {
		return tracker.Entry{}, io.EOF
	}
	e := s.entries[s.pos]
	s.pos++
	return e, nil
}
