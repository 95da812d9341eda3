//go:build windows

package clock

import (
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	kernel32                  = windows.NewLazySystemDLL("kernel32.dll")
	procQueryPerformanceCount = kernel32.NewProc("QueryPerformanceCounter")
	procQueryPerformanceFreq  = kernel32.NewProc("QueryPerformanceFrequency")
)

// The performance counter ticks at a fixed frequency read once at startup.
func platformClock() Clock {
	var freq int64
	if err := procQueryPerformanceFreq.Find(); err != nil {
		return Func(runtimeNow)
	}
	if r, _, _ := procQueryPerformanceFreq.Call(uintptr(unsafe.Pointer(&freq))); r == 0 || freq <= 0 {
		return Func(runtimeNow)
	}
	if err := procQueryPerformanceCount.Find(); err != nil {
		return Func(runtimeNow)
	}
	return NewScaled(performanceCounter, uint64(1e9), uint64(freq))
}

func performanceCounter() uint64 {
	var ticks int64
	procQueryPerformanceCount.Call(uintptr(unsafe.Pointer(&ticks)))
	return uint64(ticks)
}
