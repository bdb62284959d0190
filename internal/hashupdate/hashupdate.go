// Package hashupdate fills in missing sha1 attributes on a node stream
// using a pool of worker goroutines, in two passes over the tree (§4.F).
//
// Pass 1 walks the tree once, handing every file that needs a hash to a
// worker pool, and records the results in an on-disk SQLite side table
// keyed by an ascending id assigned in traversal order. Pass 2 walks the
// tree again (the caller supplies a fresh Source each time, since the
// traversal itself is not seekable) and merges side-table rows back into
// the stream strictly in id order. Two passes, rather than hashing nodes
// as they stream past, let hashing proceed in parallel while the
// resulting surefile is still written out in the single canonical
// pre-order the format requires.
package hashupdate

import (
	"context"
	"crypto/sha1"
	"database/sql"
	"encoding/hex"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"

	"github.com/sureweave/asure/internal/node"
	"github.com/sureweave/asure/internal/tracker"
)

// Source is anything producing a tracker.Entry stream: a scanner wrapped
// in a tracker, or (on pass 2) a fresh instance of the same.
type Source interface {
	Next() (tracker.Entry, error)
}

// Opener produces a fresh Source for one pass over the tree. Pass 1 and
// pass 2 each call it once; both traversals must visit nodes in the same
// order for the id-keyed merge in pass 2 to line up.
type Opener func() (Source, error)

// Progress is called after each file finishes hashing, both reporting
// already-observed traversal order, suitable for driving a progress bar.
type Progress func(hashed, totalEstimate uint64)

// Options configures a Run call.
type Options struct {
	Workers  int      // hashing goroutines; defaults to 4 if <= 0
	Estimate uint64   // total files expected, for Progress; 0 if unknown
	Progress Progress // optional
}

// Run executes both passes and returns an Iterator over the merged node
// stream. The side-table database is a temp file removed when pass 2
// completes (successfully or not).
func Run(ctx context.Context, open Opener, opts Options) (Iterator, error) {
	workers := opts.Workers
	if workers <= 0 {
		workers = 4
	}

	dbPath, err := sideTablePath()
	if err != nil {
		return nil, err
	}

	db, err := openSideTable(dbPath)
	if err != nil {
		os.Remove(dbPath)
		return nil, err
	}

	if err := pass1(ctx, open, db, workers, opts.Estimate, opts.Progress); err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, err
	}

	src, err := open()
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT id, sha1 FROM hashes ORDER BY id ASC")
	if err != nil {
		db.Close()
		os.Remove(dbPath)
		return nil, err
	}

	return &merger{src: src, rows: rows, db: db, dbPath: dbPath}, nil
}

// Iterator is the merged stream returned by Run.
type Iterator interface {
	Next() (node.Node, error)
}

func sideTablePath() (string, error) {
	f, err := os.CreateTemp("", "asure-hashes-*.db")
	if err != nil {
		return "", err
	}
	path := f.Name()
	f.Close()
	os.Remove(path) // sqlite creates it fresh; we only wanted a unique name
	return path, nil
}

func openSideTable(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec(`CREATE TABLE hashes (id INTEGER PRIMARY KEY, sha1 TEXT NOT NULL)`); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// hashJob is one file awaiting a digest, tagged with the traversal-order
// id pass 2 will later look it up by.
type hashJob struct {
	id   uint64
	path string
}

type hashResult struct {
	id   uint64
	sha1 string
}

// pass1 walks the tree once via open, dispatching every NeedsHash file to
// a worker pool and writing results into db as they arrive.
func pass1(ctx context.Context, open Opener, db *sql.DB, workers int, estimate uint64, progress Progress) error {
	src, err := open()
	if err != nil {
		return err
	}

	jobs := make(chan hashJob, workers*2)
	results := make(chan hashResult, workers*2)
	errc := make(chan error, 1)

	done := make(chan struct{})
	go func() {
		defer close(done)
		writeResults(ctx, db, results, estimate, progress)
	}()

	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		hashWorkers(ctx, jobs, results, workers)
		close(results)
	}()

	go func() {
		defer close(jobs)
		var id uint64
		for {
			select {
			case <-ctx.Done():
				errc <- ctx.Err()
				return
			default:
			}

			entry, err := src.Next()
			if err == io.EOF {
				errc <- nil
				return
			}
			if err != nil {
				errc <- err
				return
			}
			if entry.Node.NeedsHash() {
				select {
				case jobs <- hashJob{id: id, path: entry.Path}:
				case <-ctx.Done():
					errc <- ctx.Err()
					return
				}
				id++
			}
		}
	}()

	err = <-errc
	<-workerDone
	<-done
	return err
}

func hashWorkers(ctx context.Context, jobs <-chan hashJob, results chan<- hashResult, n int) {
	sem := make(chan struct{}, n)
	var pending int
	for job := range jobs {
		sem <- struct{}{}
		pending++
		go func(j hashJob) {
			defer func() { <-sem }()
			sum, err := hashFile(j.path)
			if err != nil {
				logrus.WithError(err).WithField("path", j.path).Warn("hashupdate: failed to hash file")
				return
			}
			select {
			case results <- hashResult{id: j.id, sha1: sum}:
			case <-ctx.Done():
			}
		}(job)
	}
	for i := 0; i < n; i++ {
		sem <- struct{}{}
	}
}

func hashFile(path string) (string, error) {
	f, err := noatimeOpen(path)
	if err != nil {
		return "", err
	}
	defer f.Close()

	h := sha1.New()
	if _, err := io.Copy(h, f); err != nil {
		return "", err
	}
	return hex.EncodeToString(h.Sum(nil)), nil
}

func writeResults(ctx context.Context, db *sql.DB, results <-chan hashResult, estimate uint64, progress Progress) {
	var hashed uint64
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		logrus.WithError(err).Error("hashupdate: failed to open side-table transaction")
		return
	}
	stmt, err := tx.Prepare(`INSERT INTO hashes (id, sha1) VALUES (?, ?)`)
	if err != nil {
		logrus.WithError(err).Error("hashupdate: failed to prepare insert")
		tx.Rollback()
		return
	}

	const batchSize = 200
	sinceCommit := 0
	for r := range results {
		if _, err := stmt.Exec(r.id, r.sha1); err != nil {
			logrus.WithError(err).Error("hashupdate: failed to record hash")
			continue
		}
		hashed++
		sinceCommit++
		if progress != nil {
			progress(hashed, estimate)
		}
		if sinceCommit >= batchSize {
			stmt.Close()
			tx.Commit()
			tx, err = db.BeginTx(ctx, nil)
			if err != nil {
				logrus.WithError(err).Error("hashupdate: failed to reopen transaction")
				return
			}
			stmt, err = tx.Prepare(`INSERT INTO hashes (id, sha1) VALUES (?, ?)`)
			if err != nil {
				logrus.WithError(err).Error("hashupdate: failed to reprepare insert")
				return
			}
			sinceCommit = 0
		}
	}
	stmt.Close()
	tx.Commit()
}

// merger implements Iterator, replaying the pass-2 source and merging in
// side-table rows in ascending id order.
type merger struct {
	src    Source
	rows   *sql.Rows
	db     *sql.DB
	dbPath string

	id         uint64
	haveRow    bool
	rowID      uint64
	rowSha1    string
	rowsClosed bool
}

func (m *merger) Next() (node.Node, error) {
	entry, err := m.src.Next()
	if err != nil {
		m.close()
		return node.Node{}, err
	}

	n := entry.Node
	if !n.NeedsHash() {
		return n, nil
	}

	if !m.haveRow && !m.rowsClosed {
		m.advanceRow()
	}

	current := m.id
	m.id++

	if m.haveRow && m.rowID == current {
		atts := n.Atts.Clone()
		atts["sha1"] = m.rowSha1
		n.Atts = atts
		m.haveRow = false
	} else if m.haveRow && m.rowID < current {
		panic("hashupdate: side table id out of order relative to traversal")
	}
	// else: no row for this id (hash failed in pass 1); leave unhashed.

	return n, nil
}

func (m *merger) advanceRow() {
	if m.rows.Next() {
		if err := m.rows.Scan(&m.rowID, &m.rowSha1); err != nil {
			logrus.WithError(err).Error("hashupdate: failed to scan side-table row")
			m.rowsClosed = true
			return
		}
		m.haveRow = true
		return
	}
	m.rowsClosed = true
}

func (m *merger) close() {
	if m.rows != nil {
		m.rows.Close()
	}
	if m.db != nil {
		m.db.Close()
	}
	if m.dbPath != "" {
		os.Remove(m.dbPath)
	}
}
