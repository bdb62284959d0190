// Package progress is the single process-wide progress/logger
// coordinator named in §9 of the design: one mutex guards a
// cleared-before-log terminal line, so the periodic progress line and
// structured log output sent through Meter.WithFields or Meter.Warnf
// never interleave into garbled output. The scanner, hash updater and
// comparator log their recovered per-file failures through logrus
// directly, not through a Meter, so those lines are not coordinated
// with the progress line.
package progress

import (
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Meter is the shared coordinator. The zero value is not usable; build
// one with New.
type Meter struct {
	mu       sync.Mutex
	out      io.Writer
	log      *logrus.Logger
	interval time.Duration
	last     time.Time
	lineLen  int
}

// New builds a Meter that writes its progress line to out and routes
// structured log entries through log. A nil log uses logrus.StandardLogger.
func New(out io.Writer, log *logrus.Logger, interval time.Duration) *Meter {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if interval <= 0 {
		interval = 200 * time.Millisecond
	}
	return &Meter{out: out, log: log, interval: interval}
}

// Update redraws the progress line, throttled to at most once per
// interval; calls between throttle windows are dropped silently, so
// callers can invoke it from a hot loop without added synchronization.
func (m *Meter) Update(done, total uint64, doneBytes, totalBytes uint64) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if !m.last.IsZero() && now.Sub(m.last) < m.interval {
		return
	}
	m.last = now
	m.render(done, total, doneBytes, totalBytes)
}

// HashProgress adapts Update to the hashupdate package's Progress
// callback shape, reporting file counts against an estimate and with
// no byte totals (hashupdate only tracks file counts).
func (m *Meter) HashProgress() func(hashed, totalEstimate uint64) {
	return func(hashed, totalEstimate uint64) {
		m.Update(hashed, totalEstimate, 0, 0)
	}
}

func (m *Meter) render(done, total uint64, doneBytes, totalBytes uint64) {
	var line string
	switch {
	case total > 0 && totalBytes > 0:
		line = fmt.Sprintf("%d/%d files, %s/%s", done, total, humanizeBytes(doneBytes), humanizeBytes(totalBytes))
	case total > 0:
		line = fmt.Sprintf("%d/%d files", done, total)
	case totalBytes > 0:
		line = fmt.Sprintf("%d files, %s/%s", done, humanizeBytes(doneBytes), humanizeBytes(totalBytes))
	default:
		line = fmt.Sprintf("%d files", done)
	}
	m.writeLine(line)
}

// writeLine clears the previously drawn line (by overwriting it with
// spaces) and writes the new one in its place, assuming m.mu is held.
func (m *Meter) writeLine(line string) {
	if m.lineLen > 0 {
		fmt.Fprintf(m.out, "\r%s\r", strings.Repeat(" ", m.lineLen))
	}
	fmt.Fprint(m.out, line)
	m.lineLen = len(line)
}

// Finish clears any partially drawn progress line, leaving the cursor
// at the start of a blank line. Call once at the end of a run.
func (m *Meter) Finish() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lineLen > 0 {
		fmt.Fprintf(m.out, "\r%s\r", strings.Repeat(" ", m.lineLen))
		m.lineLen = 0
	}
}

// WithFields clears the in-place progress line, logs fields and msg at
// the given level, then lets the next Update redraw the line. Use this
// for recovered per-file stat/hash failures instead of calling logrus
// directly, so the two never corrupt each other's output.
func (m *Meter) WithFields(level logrus.Level, fields logrus.Fields, msg string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.lineLen > 0 {
		fmt.Fprintf(m.out, "\r%s\r", strings.Repeat(" ", m.lineLen))
		m.lineLen = 0
	}
	m.log.WithFields(fields).Log(level, msg)
}

// Warnf is WithFields at warning level with no structured fields, the
// common case for a single recovered error.
func (m *Meter) Warnf(format string, args ...interface{}) {
	m.WithFields(logrus.WarnLevel, nil, fmt.Sprintf(format, args...))
}
