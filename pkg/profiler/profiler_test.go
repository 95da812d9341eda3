package profiler

import (
	"bytes"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danpilch/fnprof/pkg/clock"
	"github.com/danpilch/fnprof/pkg/report"
	"github.com/danpilch/fnprof/pkg/samples"
)

type fixture struct {
	p       *Profiler
	clk     *clock.Manual
	hook    *test.Hook
	summary *bytes.Buffer
	dir     string
}

func newFixture(t *testing.T, mutate func(*Config)) *fixture {
	t.Helper()
	dir := t.TempDir()
	cfg := DefaultConfig()
	cfg.MaxFunctions = 10
	cfg.Output = filepath.Join(dir, "profile.json")
	cfg.HandleSignals = false
	if mutate != nil {
		mutate(&cfg)
	}

	logger, hook := test.NewNullLogger()
	logger.SetLevel(logrus.DebugLevel)
	clk := clock.NewManual(1_000)
	summary := &bytes.Buffer{}

	return &fixture{
		p:       New(cfg, WithClock(clk), WithLogger(logger), WithSummaryWriter(summary)),
		clk:     clk,
		hook:    hook,
		summary: summary,
		dir:     dir,
	}
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()

	th.Enter(0, "A")
	th.Enter(1, "B")
	f.clk.Advance(50 * time.Millisecond)
	th.Exit(1)
	f.clk.Advance(30 * time.Millisecond)
	th.Exit(0)

	a := f.p.Functions().Get(0)
	b := f.p.Functions().Get(1)
	assert.Equal(t, uint64(1), a.Calls())
	assert.Equal(t, uint64(80*time.Millisecond), a.TimeNS())
	assert.Equal(t, uint64(1), b.Calls())
	assert.Equal(t, uint64(50*time.Millisecond), b.TimeNS())

	require.NoError(t, f.p.Finalize())

	folded, err := os.ReadFile(filepath.Join(f.dir, "profile.folded"))
	require.NoError(t, err)
	assert.Equal(t, "A;B 50000\nA 30000\n", string(folded))

	data, err := os.Open(filepath.Join(f.dir, "profile.json"))
	require.NoError(t, err)
	defer data.Close()
	doc, err := report.ReadJSON(data)
	require.NoError(t, err)
	require.Len(t, doc.Functions, 2)
	assert.Equal(t, "A", doc.Functions[0].Name)
	assert.InDelta(t, 80.0, float64(doc.Functions[0].TimeMS), 1e-9)
	assert.InDelta(t, 50.0, float64(doc.Functions[1].TimeMS), 1e-9)
	assert.InDelta(t, 130.0, float64(doc.TotalTimeMS), 1e-9)

	console := f.summary.String()
	foldedPath := filepath.Join(f.dir, "profile.folded")
	assert.True(t, strings.HasPrefix(console, "Flame graph data written to: "+foldedPath+"\n"))
	assert.Contains(t, console, "  Generate SVG with: flamegraph.pl "+foldedPath+" > profile.svg\n")
	assert.Contains(t, console, "Profile data written to: "+filepath.Join(f.dir, "profile.json"))
}

func TestFlameGraphNoteFollowsSummarySetting(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Summary = false })
	th := f.p.NewThread()
	th.Enter(0, "A")
	th.Exit(0)

	require.NoError(t, f.p.Finalize())
	assert.Empty(t, f.summary.String())
	assert.FileExists(t, filepath.Join(f.dir, "profile.folded"))
}

func TestStackSamplesSplitSelfAndChildTime(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()

	th.Enter(0, "A")
	f.clk.Advance(10 * time.Millisecond)
	th.Enter(1, "B")
	f.clk.Advance(50 * time.Millisecond)
	th.Exit(1)
	f.clk.Advance(20 * time.Millisecond)
	th.Exit(0)

	snap := f.p.Snapshot()
	require.Len(t, snap.Stacks, 2)
	assert.Equal(t, []int32{0, 1}, snap.Stacks[0].FuncIDs)
	assert.Equal(t, uint64(50*time.Millisecond), snap.Stacks[0].TimeNS)
	assert.Equal(t, []int32{0}, snap.Stacks[1].FuncIDs)
	assert.Equal(t, uint64(30*time.Millisecond), snap.Stacks[1].TimeNS)
	assert.Equal(t, uint64(80*time.Millisecond), f.p.Functions().Get(0).TimeNS())
}

func TestCallCountsMatchEnters(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()

	var walk func(depth int)
	walk = func(depth int) {
		th.Enter(depth, "fn")
		if depth < 3 {
			walk(depth + 1)
			walk(depth + 1)
		}
		th.Exit(depth)
	}
	walk(0)

	for depth, want := range []uint64{1, 2, 4, 8} {
		assert.Equal(t, want, f.p.Functions().Get(depth).Calls(), "depth %d", depth)
	}
	assert.Equal(t, 0, th.Depth())
}

func TestNameRegisteredOnce(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()

	th.Enter(2, "first")
	th.Exit(2)
	th.Enter(2, "second")
	th.Exit(2)

	name, ok := f.p.Functions().Get(2).Name()
	require.True(t, ok)
	assert.Equal(t, "first", name)
	assert.Equal(t, uint64(2), f.p.Functions().Get(2).Calls())
}

func TestMismatchedExitPopsWithoutTiming(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()

	th.Enter(0, "A")
	th.Enter(1, "B")
	f.clk.Advance(time.Millisecond)
	th.Exit(2)

	assert.Equal(t, 1, th.Depth())
	assert.Zero(t, f.p.Functions().Get(0).TimeNS())
	assert.Zero(t, f.p.Functions().Get(1).TimeNS())
	assert.Zero(t, f.p.Functions().Get(2).TimeNS())
	assert.Equal(t, uint64(1), f.p.Stats().MismatchedExits)
	assert.Zero(t, f.p.Samples().Len())

	f.clk.Advance(time.Millisecond)
	th.Exit(0)
	assert.Equal(t, 0, th.Depth())
	assert.Equal(t, uint64(2*time.Millisecond), f.p.Functions().Get(0).TimeNS())
}

func TestDepthLimitKeepsShallowFramesIntact(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxCallDepth = 2 })
	th := f.p.NewThread()

	th.Enter(0, "A")
	th.Enter(1, "B")
	th.Enter(2, "C")
	th.Enter(3, "D")
	assert.Equal(t, 2, th.Depth())
	assert.Equal(t, uint64(2), f.p.Stats().DroppedEnters)
	assert.Zero(t, f.p.Functions().Get(2).Calls())

	f.clk.Advance(time.Millisecond)
	th.Exit(3)
	th.Exit(2)
	assert.Equal(t, 2, th.Depth())

	th.Exit(1)
	f.clk.Advance(time.Millisecond)
	th.Exit(0)

	assert.Equal(t, 0, th.Depth())
	assert.Equal(t, uint64(time.Millisecond), f.p.Functions().Get(1).TimeNS())
	assert.Equal(t, uint64(2*time.Millisecond), f.p.Functions().Get(0).TimeNS())
	assert.Zero(t, f.p.Stats().MismatchedExits)
}

func TestInvalidCallsAreIgnored(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()

	th.Exit(0)
	th.Enter(-1, "neg")
	th.Enter(10, "past end")
	th.Exit(10)

	assert.Equal(t, 0, th.Depth())
	assert.Empty(t, f.p.Snapshot().Functions)
}

func TestSameShapeTwiceAccumulates(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()

	for i := 0; i < 2; i++ {
		th.Enter(0, "A")
		f.clk.Advance(5 * time.Millisecond)
		th.Exit(0)
	}

	snap := f.p.Snapshot()
	require.Len(t, snap.Stacks, 1)
	assert.Equal(t, uint64(10*time.Millisecond), snap.Stacks[0].TimeNS)
}

func TestSampleCapacityExhaustion(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxStackSamples = 1 })
	th := f.p.NewThread()

	th.Enter(0, "A")
	f.clk.Advance(time.Millisecond)
	th.Exit(0)
	th.Enter(1, "B")
	f.clk.Advance(time.Millisecond)
	th.Exit(1)

	snap := f.p.Snapshot()
	require.Len(t, snap.Stacks, 1)
	assert.Equal(t, []int32{0}, snap.Stacks[0].FuncIDs)
	assert.Equal(t, uint64(time.Millisecond), f.p.Functions().Get(1).TimeNS())
	assert.Equal(t, uint64(1), f.p.Stats().DroppedSamples)
}

func TestFinalizeRunsOnce(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()
	th.Enter(0, "A")
	th.Exit(0)

	require.NoError(t, f.p.Finalize())
	first := f.summary.Len()
	require.NoError(t, f.p.Finalize())
	assert.Equal(t, first, f.summary.Len())
	assert.False(t, f.p.Active())

	// hooks after finalize are ignored
	th.Enter(0, "A")
	assert.Equal(t, uint64(1), f.p.Functions().Get(0).Calls())
}

func TestFinalizeIgnoresInFlightCalls(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()
	th.Enter(0, "A")
	f.clk.Advance(time.Millisecond)

	require.NoError(t, f.p.Finalize())
	assert.Zero(t, f.p.Functions().Get(0).TimeNS())

	folded, err := os.ReadFile(filepath.Join(f.dir, "profile.folded"))
	require.NoError(t, err)
	assert.Empty(t, folded)
}

func TestFinalizeArtifactsFailIndependently(t *testing.T) {
	f := newFixture(t, nil)
	// a directory where the folded file should go
	require.NoError(t, os.Mkdir(filepath.Join(f.dir, "profile.folded"), 0o755))

	th := f.p.NewThread()
	th.Enter(0, "A")
	th.Exit(0)

	err := f.p.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot write folded report")

	_, statErr := os.Stat(filepath.Join(f.dir, "profile.json"))
	assert.NoError(t, statErr)

	var warned bool
	for _, e := range f.hook.AllEntries() {
		if e.Level == logrus.WarnLevel && e.Message == "Could not write flame graph" {
			warned = true
		}
	}
	assert.True(t, warned)
	assert.Contains(t, f.summary.String(), "Profile data written to:")
}

func TestFinalizeJSONFailureSkipsSummary(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.Output = filepath.Join(t.TempDir(), "missing", "profile.json") })
	th := f.p.NewThread()
	th.Enter(0, "A")
	th.Exit(0)

	err := f.p.Finalize()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "cannot write profile report")
	assert.Empty(t, f.summary.String())
}

func TestFinalizeWritesPprof(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.PprofOutput = filepath.Join(c.Output + ".pb.gz") })
	th := f.p.NewThread()
	th.Enter(0, "A")
	f.clk.Advance(time.Millisecond)
	th.Exit(0)

	require.NoError(t, f.p.Finalize())
	info, err := os.Stat(f.p.Config().PprofOutput)
	require.NoError(t, err)
	assert.Positive(t, info.Size())

	var phases []string
	for _, ph := range f.p.FinalizeTimings() {
		phases = append(phases, ph.Name)
	}
	assert.Equal(t, []string{"folded", "json", "pprof", "summary"}, phases)
}

func TestFinalizeWarnsOnDrops(t *testing.T) {
	f := newFixture(t, nil)
	th := f.p.NewThread()
	th.Enter(0, "A")
	th.Exit(1)

	require.NoError(t, f.p.Finalize())
	last := f.hook.LastEntry()
	require.NotNil(t, last)
	assert.Equal(t, logrus.WarnLevel, last.Level)
	assert.Equal(t, "Profile incomplete", last.Message)
	assert.Equal(t, uint64(1), last.Data["mismatched_exits"])
}

func TestConcurrentThreadsCountExactly(t *testing.T) {
	f := newFixture(t, nil)

	const workers = 8
	const iterations = 500

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			th := f.p.NewThread()
			for i := 0; i < iterations; i++ {
				th.Enter(0, "outer")
				th.Enter(1, "inner")
				th.Exit(1)
				th.Exit(0)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, uint64(workers*iterations), f.p.Functions().Get(0).Calls())
	assert.Equal(t, uint64(workers*iterations), f.p.Functions().Get(1).Calls())
	assert.Equal(t, 2, f.p.Samples().Len())
}

func TestEnterOnKeepsThreadsSeparate(t *testing.T) {
	f := newFixture(t, nil)

	f.p.EnterOn(1, 0, "A")
	f.p.EnterOn(2, 1, "B")
	f.clk.Advance(time.Millisecond)
	f.p.ExitOn(1, 0)
	f.p.ExitOn(2, 1)

	assert.Equal(t, uint64(time.Millisecond), f.p.Functions().Get(0).TimeNS())
	assert.Equal(t, uint64(time.Millisecond), f.p.Functions().Get(1).TimeNS())
	assert.Zero(t, f.p.Stats().MismatchedExits)

	f.p.ForgetThread(1)
	f.p.ExitOn(1, 0)
	assert.Zero(t, f.p.Stats().MismatchedExits)
}

type recordingTracer struct {
	mu     sync.Mutex
	events []string
}

func (r *recordingTracer) Enter(depth, funcID int, name string) {
	r.add("enter " + name)
}

func (r *recordingTracer) Exit(depth, funcID int, elapsedNS uint64) {
	r.add("exit")
}

func (r *recordingTracer) Mismatch(depth, topID, exitID int) {
	r.add("mismatch")
}

func (r *recordingTracer) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func TestTracerReceivesEvents(t *testing.T) {
	tr := &recordingTracer{}
	p := New(Config{MaxFunctions: 4, HandleSignals: false}, WithTracer(tr), WithClock(clock.NewManual(0)))
	th := p.NewThread()

	th.Enter(0, "A")
	th.Enter(1, "B")
	th.Exit(0)
	th.Exit(0)

	assert.Equal(t, []string{"enter A", "enter B", "mismatch", "exit"}, tr.events)
}

func TestNewNormalizesConfig(t *testing.T) {
	p := New(Config{MaxFunctions: 100_000})
	cfg := p.Config()
	assert.Equal(t, MaxFunctions, cfg.MaxFunctions)
	assert.Equal(t, DefaultOutput, cfg.Output)
	assert.Equal(t, MaxFunctions, p.Functions().Len())

	p = New(Config{MaxFunctions: 10})
	assert.Equal(t, 10, p.Functions().Len())
	assert.True(t, strings.HasSuffix(report.FoldedPath(p.Config().Output), ".folded"))
}

func TestEnterExitKeepGoroutinesSeparate(t *testing.T) {
	// one P makes the goroutines share an OS thread
	defer runtime.GOMAXPROCS(runtime.GOMAXPROCS(1))
	f := newFixture(t, nil)

	entered := make(chan struct{})
	advanced := make(chan struct{})
	var wg sync.WaitGroup
	for id, name := range []string{"A", "B"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.p.Enter(id, name)
			entered <- struct{}{}
			<-advanced
			f.p.Exit(id)
		}()
	}
	<-entered
	<-entered
	f.clk.Advance(time.Millisecond)
	close(advanced)
	wg.Wait()

	assert.Equal(t, uint64(time.Millisecond), f.p.Functions().Get(0).TimeNS())
	assert.Equal(t, uint64(time.Millisecond), f.p.Functions().Get(1).TimeNS())
	assert.Zero(t, f.p.Stats().MismatchedExits)
	assert.Zero(t, f.p.goroutines.live())
}

func TestEnterExitNestOnOneGoroutine(t *testing.T) {
	f := newFixture(t, nil)

	f.p.Enter(0, "A")
	f.p.Enter(1, "B")
	f.clk.Advance(50 * time.Millisecond)
	f.p.Exit(1)
	assert.Equal(t, 1, f.p.goroutines.live())
	f.clk.Advance(30 * time.Millisecond)
	f.p.Exit(0)

	assert.Equal(t, uint64(80*time.Millisecond), f.p.Functions().Get(0).TimeNS())
	assert.Equal(t, []samples.Sample{
		{FuncIDs: []int32{0, 1}, TimeNS: uint64(50 * time.Millisecond)},
		{FuncIDs: []int32{0}, TimeNS: uint64(30 * time.Millisecond)},
	}, f.p.Samples().Snapshot())
	assert.Zero(t, f.p.goroutines.live())
}

func TestForgottenThreadKeyStartsEmpty(t *testing.T) {
	f := newFixture(t, nil)

	f.p.EnterOn(42, 0, "A")
	f.p.ForgetThread(42)

	f.p.EnterOn(42, 1, "B")
	f.clk.Advance(time.Millisecond)
	f.p.ExitOn(42, 1)

	assert.Equal(t, []samples.Sample{
		{FuncIDs: []int32{1}, TimeNS: uint64(time.Millisecond)},
	}, f.p.Samples().Snapshot())
	assert.Zero(t, f.p.external.live())
}

func TestUnwoundThreadKeyIsReleased(t *testing.T) {
	f := newFixture(t, nil)

	f.p.EnterOn(7, 0, "A")
	f.p.EnterOn(7, 1, "B")
	f.p.ExitOn(7, 1)
	assert.Equal(t, 1, f.p.external.live())
	f.p.ExitOn(7, 0)
	assert.Zero(t, f.p.external.live())

	f.p.EnterOn(7, 2, "C")
	f.p.ExitOn(7, 2)
	assert.Equal(t, []int32{2}, f.p.Samples().Snapshot()[2].FuncIDs)
}

func TestSkippedExitPastDepthLimit(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxCallDepth = 2 })
	th := f.p.NewThread()

	th.Enter(0, "A")
	th.Enter(1, "B")
	th.Enter(2, "C")
	f.clk.Advance(time.Millisecond)
	// C unwinds without an exit
	th.Exit(1)
	f.clk.Advance(time.Millisecond)
	th.Exit(0)

	assert.Equal(t, uint64(time.Millisecond), f.p.Functions().Get(1).TimeNS())
	assert.Equal(t, uint64(2*time.Millisecond), f.p.Functions().Get(0).TimeNS())
	assert.Equal(t, uint64(1), f.p.Stats().MismatchedExits)
	assert.True(t, th.idle())
}

func TestRecursionPastDepthLimit(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxCallDepth = 2 })
	th := f.p.NewThread()

	for i := 0; i < 5; i++ {
		th.Enter(0, "f")
	}
	f.clk.Advance(time.Millisecond)
	for i := 0; i < 5; i++ {
		th.Exit(0)
	}

	assert.Equal(t, uint64(2), f.p.Functions().Get(0).Calls())
	assert.Equal(t, uint64(3), f.p.Stats().DroppedEnters)
	assert.Zero(t, f.p.Stats().MismatchedExits)
	assert.True(t, th.idle())
}

func TestStrayExitPastDepthLimitPopsOneCall(t *testing.T) {
	f := newFixture(t, func(c *Config) { c.MaxCallDepth = 2 })
	th := f.p.NewThread()

	th.Enter(0, "A")
	th.Enter(1, "B")
	th.Enter(2, "C")
	th.Exit(3)
	assert.Equal(t, uint64(1), f.p.Stats().MismatchedExits)

	f.clk.Advance(time.Millisecond)
	th.Exit(1)
	th.Exit(0)
	assert.Equal(t, uint64(time.Millisecond), f.p.Functions().Get(1).TimeNS())
	assert.True(t, th.idle())
}
