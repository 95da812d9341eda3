//go:build !unix

package profiler

import "os"

var exitSignals = []os.Signal{os.Interrupt}

func reraise(os.Signal) {
	os.Exit(1)
}
