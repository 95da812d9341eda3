//go:build darwin

package clock

import "golang.org/x/sys/unix"

// CLOCK_UPTIME_RAW is the mach absolute time base, already converted to nanoseconds
// by libc using the mach timebase ratio.
func platformClock() Clock {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_UPTIME_RAW, &ts); err != nil {
		return Func(runtimeNow)
	}
	return Func(darwinUptime)
}

func darwinUptime() uint64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_UPTIME_RAW, &ts); err != nil {
		return runtimeNow()
	}
	return uint64(ts.Nano())
}
