package profiler

import (
	"os"
	"os/signal"
	"sync"
)

// installExitHook finalizes p when the process receives a termination signal,
// then re-raises the signal with the default disposition restored.
func installExitHook(p *Profiler) (stop func()) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, exitSignals...)
	done := make(chan struct{})

	go func() {
		select {
		case sig := <-sigs:
			if err := p.Finalize(); err != nil {
				p.logger.WithError(err).Warn("Profile finalize on signal incomplete")
			}
			signal.Stop(sigs)
			reraise(sig)
		case <-done:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			signal.Stop(sigs)
			close(done)
		})
	}
}
