//go:build linux || darwin || freebsd

package compute

import (
	"golang.org/x/sys/unix"
)

// WallClock reads the monotonic system clock.
type WallClock struct{}

// Time gets the monotonic time in seconds.
func (WallClock) Time() float64 {
	var ts unix.Timespec
	if err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts); err != nil {
		panic("read monotonic clock: " + err.Error())
	}
	return float64(ts.Sec) + float64(ts.Nsec)*1e-9
}
