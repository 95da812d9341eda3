// Command libfnprof builds the profiler as a C shared library:
//
//	go build -buildmode=c-shared -o libfnprof.so ./cmd/libfnprof
//
// Generated code calls fnprof_init once, then fnprof_enter and fnprof_exit
// around every instrumented function body. The reports are written by an
// atexit handler, or earlier by an explicit fnprof_finalize. Each native
// thread gets its own call stack, released when the thread exits.
package main

/*
#include <stdint.h>

void fnprof_register_atexit(void);
uint64_t fnprof_thread_key(void);
*/
import "C"

import (
	"github.com/sirupsen/logrus"

	"github.com/danpilch/fnprof/pkg/profiler"
)

//export fnprof_init
func fnprof_init(maxFunctions C.int, outputPath *C.char) {
	cfg := profiler.DefaultConfig()
	cfg.MaxFunctions = int(maxFunctions)
	if outputPath != nil {
		if path := C.GoString(outputPath); path != "" {
			cfg.Output = path
		}
	}
	// the host process owns its signals; FNPROF_SIGNALS=1 opts in
	cfg.HandleSignals = false
	envErr := cfg.ApplyEnv()

	logger := logrus.New()
	if lvl, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
		logger.SetLevel(lvl)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}

	if _, created := profiler.InitializeWithConfig(cfg, profiler.WithLogger(logger)); !created {
		return
	}
	if envErr != nil {
		logger.WithError(envErr).Warn("Ignoring invalid profiler environment")
	}
	C.fnprof_register_atexit()
}

//export fnprof_enter
func fnprof_enter(funcID C.int, name *C.char) {
	p := profiler.Default()
	if p == nil || !p.Active() {
		return
	}
	id := int(funcID)
	var goName string
	if fn := p.Functions().Get(id); fn != nil {
		if _, named := fn.Name(); !named && name != nil {
			goName = C.GoString(name)
		}
	}
	p.EnterOn(uint64(C.fnprof_thread_key()), id, goName)
}

//export fnprof_exit
func fnprof_exit(funcID C.int) {
	p := profiler.Default()
	if p == nil {
		return
	}
	p.ExitOn(uint64(C.fnprof_thread_key()), int(funcID))
}

//export fnprof_thread_exit
func fnprof_thread_exit(key C.uint64_t) {
	if p := profiler.Default(); p != nil {
		p.ForgetThread(uint64(key))
	}
}

// fnprof_finalize returns 0 when every report was written.
//
//export fnprof_finalize
func fnprof_finalize() C.int {
	if err := profiler.Finalize(); err != nil {
		return -1
	}
	return 0
}

func main() {}
