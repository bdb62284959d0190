package progress

import (
	"bytes"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestHumanizeBytesUnits(t *testing.T) {
	require.Equal(t, "512.00 bytes", humanizeBytes(512))
	require.Equal(t, "1.00 KiB", humanizeBytes(1024))
	require.Equal(t, "1.50 MiB", humanizeBytes(1024*1024+512*1024))
}

func TestUpdateThrottlesRedraws(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, logrus.New(), time.Hour)

	m.Update(1, 10, 0, 0)
	first := buf.String()
	require.Contains(t, first, "1/10 files")

	m.Update(2, 10, 0, 0)
	require.Equal(t, first, buf.String(), "second update within the throttle window should be dropped")
}

func TestWithFieldsClearsLineBeforeLogging(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{DisableTimestamp: true})
	logger.Out = &buf

	m := New(&buf, logger, 0)
	m.Update(3, 10, 0, 0)
	require.Contains(t, buf.String(), "3/10 files")

	m.Warnf("stat failed for %s", "a")
	require.Contains(t, buf.String(), "stat failed for a")
}

func TestFinishClearsLine(t *testing.T) {
	var buf bytes.Buffer
	m := New(&buf, logrus.New(), 0)
	m.Update(1, 1, 0, 0)
	require.NotZero(t, m.lineLen)

	m.Finish()
	require.Zero(t, m.lineLen)
}
