//go:build linux

package clock

import "golang.org/x/sys/unix"

func platformClock() Clock {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return Func(runtimeNow)
	}
	return Func(linuxMonotonic)
}

func linuxMonotonic() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		return runtimeNow()
	}
	return uint64(ts.Nano())
}
