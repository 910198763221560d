//go:build !(linux || darwin || freebsd)

package compute

import "time"

var processStart = time.Now()

// WallClock reads the monotonic reading of the Go runtime
// clock.
type WallClock struct{}

// Time gets the time in seconds since the process started.
func (WallClock) Time() float64 {
	return time.Since(processStart).Seconds()
}
