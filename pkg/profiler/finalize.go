package profiler

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/danpilch/fnprof/pkg/debug"
	"github.com/danpilch/fnprof/pkg/report"
)

// Finalize stops recording and writes, in order, the folded-stack file (with a
// console note on how to render it), the JSON report, the optional pprof
// profile and the console summary. It runs at
// most once; later calls return nil. Each artifact fails independently: a
// failure is logged as a warning and included in the returned error.
// Calls still on a thread's stack are not flushed.
func (p *Profiler) Finalize() error {
	if !p.state.CompareAndSwap(stateActive, stateFinalized) {
		return nil
	}
	if p.stopExitHook != nil {
		p.stopExitHook()
	}

	snap := p.Snapshot()
	doc := report.NewDocument(snap)
	timer := debug.NewPhaseTimer()
	var errs []error

	foldedPath := report.FoldedPath(p.cfg.Output)
	if err := timer.Time("folded", func() error {
		return writeFile(foldedPath, func(w io.Writer) error { return report.WriteFolded(w, snap) })
	}); err != nil {
		p.logger.WithError(err).WithField("path", foldedPath).Warn("Could not write flame graph")
		errs = append(errs, fmt.Errorf("cannot write folded report: %w", err))
	} else {
		p.logger.WithField("path", foldedPath).Debug("Flame graph data written")
		if p.cfg.Summary {
			report.WriteFlameGraphHint(p.summaryTo, foldedPath)
		}
	}

	jsonErr := timer.Time("json", func() error {
		return writeFile(p.cfg.Output, func(w io.Writer) error { return report.WriteJSON(w, doc) })
	})
	if jsonErr != nil {
		p.logger.WithError(jsonErr).WithField("path", p.cfg.Output).Warn("Could not write profile")
		errs = append(errs, fmt.Errorf("cannot write profile report: %w", jsonErr))
	}

	if p.cfg.PprofOutput != "" {
		if err := timer.Time("pprof", func() error {
			return writeFile(p.cfg.PprofOutput, func(w io.Writer) error { return report.WritePprof(w, snap) })
		}); err != nil {
			p.logger.WithError(err).WithField("path", p.cfg.PprofOutput).Warn("Could not write pprof profile")
			errs = append(errs, fmt.Errorf("cannot write pprof profile: %w", err))
		}
	}

	if jsonErr == nil && p.cfg.Summary {
		_ = timer.Time("summary", func() error {
			report.WriteSummary(p.summaryTo, doc, p.cfg.Output)
			return nil
		})
	}

	p.timings = timer.Timings()
	p.logStats(len(snap.Functions), len(snap.Stacks))
	return errors.Join(errs...)
}

// FinalizeTimings returns how long each finalize phase took.
func (p *Profiler) FinalizeTimings() []debug.PhaseTiming {
	return p.timings
}

func (p *Profiler) logStats(functions, stacks int) {
	st := p.Stats()
	entry := p.logger.WithFields(logrus.Fields{
		"functions":        functions,
		"stacks":           stacks,
		"dropped_enters":   st.DroppedEnters,
		"mismatched_exits": st.MismatchedExits,
		"dropped_samples":  st.DroppedSamples,
	})
	if st.DroppedEnters > 0 || st.MismatchedExits > 0 || st.DroppedSamples > 0 {
		entry.Warn("Profile incomplete")
		return
	}
	entry.Debug("Profile finalized")
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	bw := bufio.NewWriter(f)
	if err := write(bw); err != nil {
		f.Close()
		return err
	}
	if err := bw.Flush(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
