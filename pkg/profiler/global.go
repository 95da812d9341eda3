package profiler

import (
	"sync"
	"sync/atomic"
)

var (
	defaultMu       sync.Mutex
	defaultProfiler atomic.Pointer[Profiler]
)

// Initialize creates the process-wide profiler on first call and returns it;
// later calls return the existing profiler unchanged. maxFunctions is clamped
// to MaxFunctions and an empty outputPath keeps DefaultOutput. FNPROF_*
// environment variables override both. When signal handling is enabled the
// reports are also written if the process is interrupted.
func Initialize(maxFunctions int, outputPath string, opts ...Option) *Profiler {
	cfg := DefaultConfig()
	cfg.MaxFunctions = maxFunctions
	if outputPath != "" {
		cfg.Output = outputPath
	}
	envErr := cfg.ApplyEnv()

	p, created := InitializeWithConfig(cfg, opts...)
	if created && envErr != nil {
		p.logger.WithError(envErr).Warn("Ignoring invalid profiler environment")
	}
	return p
}

// InitializeWithConfig is Initialize with a full configuration. It reports
// whether this call created the profiler.
func InitializeWithConfig(cfg Config, opts ...Option) (*Profiler, bool) {
	defaultMu.Lock()
	defer defaultMu.Unlock()

	if p := defaultProfiler.Load(); p != nil {
		return p, false
	}
	p := New(cfg, opts...)
	if p.cfg.HandleSignals {
		p.stopExitHook = installExitHook(p)
	}
	defaultProfiler.Store(p)
	return p, true
}

// Default returns the process-wide profiler, or nil before Initialize.
func Default() *Profiler {
	return defaultProfiler.Load()
}

// Enter records a function entry on the process-wide profiler.
func Enter(funcID int, name string) {
	if p := Default(); p != nil {
		p.Enter(funcID, name)
	}
}

// Exit records a function return on the process-wide profiler.
func Exit(funcID int) {
	if p := Default(); p != nil {
		p.Exit(funcID)
	}
}

// Finalize writes the reports of the process-wide profiler. Call it with
// defer in main; it is a no-op before Initialize and after the first run.
func Finalize() error {
	if p := Default(); p != nil {
		return p.Finalize()
	}
	return nil
}
