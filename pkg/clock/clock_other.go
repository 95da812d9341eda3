//go:build !linux && !darwin && !windows

package clock

func platformClock() Clock {
	return Func(runtimeNow)
}
