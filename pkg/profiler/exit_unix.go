//go:build unix

package profiler

import (
	"os"
	"syscall"

	"golang.org/x/sys/unix"
)

var exitSignals = []os.Signal{unix.SIGINT, unix.SIGTERM, unix.SIGHUP}

func reraise(sig os.Signal) {
	s, ok := sig.(syscall.Signal)
	if !ok {
		os.Exit(1)
	}
	if err := unix.Kill(os.Getpid(), s); err != nil {
		os.Exit(128 + int(s))
	}
}
