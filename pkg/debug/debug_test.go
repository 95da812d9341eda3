package debug

import (
	"bytes"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPhaseTimerRecordsInOrder(t *testing.T) {
	timer := NewPhaseTimer()
	boom := errors.New("boom")

	require.NoError(t, timer.Time("first", func() error {
		time.Sleep(time.Millisecond)
		return nil
	}))
	require.ErrorIs(t, timer.Time("second", func() error { return boom }), boom)

	timings := timer.Timings()
	require.Len(t, timings, 2)
	assert.Equal(t, "first", timings[0].Name)
	assert.GreaterOrEqual(t, timings[0].Duration, time.Millisecond)
	assert.NoError(t, timings[0].Err)
	assert.Equal(t, "second", timings[1].Name)
	assert.ErrorIs(t, timings[1].Err, boom)
}

func TestTimingReport(t *testing.T) {
	var buf bytes.Buffer
	TimingReport(&buf, []PhaseTiming{
		{Name: "folded", Duration: 2 * time.Millisecond},
		{Name: "json", Duration: time.Millisecond, Err: errors.New("disk full")},
	})

	out := buf.String()
	assert.Contains(t, out, "Finalize Timing Report")
	assert.Contains(t, out, "folded")
	assert.Contains(t, out, "failed: disk full")
	assert.Contains(t, out, "3ms")
}

func TestTraceLogger(t *testing.T) {
	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.TraceLevel)
	tr := NewTraceLogger(logger)

	tr.Enter(1, 4, "main")
	tr.Exit(1, 4, 1500)
	tr.Mismatch(2, 5, 6)

	entries := hook.AllEntries()
	require.Len(t, entries, 3)
	assert.Equal(t, "enter", entries[0].Message)
	assert.Equal(t, "main", entries[0].Data["name"])
	assert.Equal(t, uint64(1500), entries[1].Data["elapsed_ns"])
	assert.Equal(t, logrus.WarnLevel, entries[2].Level)
	assert.Equal(t, 5, entries[2].Data["top_id"])
}

func TestPprofServer(t *testing.T) {
	logger, _ := test.NewNullLogger()
	s, err := StartPprofServer("127.0.0.1:0", logger)
	require.NoError(t, err)
	defer s.Stop()

	resp, err := http.Get("http://" + s.Addr() + "/debug/pprof/")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestPprofServerBindError(t *testing.T) {
	s, err := StartPprofServer("127.0.0.1:0", nil)
	require.NoError(t, err)
	defer s.Stop()

	_, err = StartPprofServer(s.Addr(), nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pprof server failed")
}
