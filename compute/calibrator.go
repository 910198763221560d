package compute

import (
	"math"
)

const (
	// CalibrationFraction is the fraction of the target
	// that a calibration probe must last.
	CalibrationFraction = 10

	// MinCalibrationTime is the shortest calibration probe.
	MinCalibrationTime = 1e-6

	// DefaultMaxUnits caps the size of a calibration probe.
	DefaultMaxUnits = 1 << 24
)

// A Calibrator runs a Kernel for roughly a requested
// amount of time.
//
// It estimates the kernel's throughput in units per second
// and keeps refining the estimate as it computes.
type Calibrator struct {
	Clock  Clock
	Kernel Kernel

	// NumProbes is the number of times Compute calls its
	// probe.
	// The work is split into NumProbes chunks, each followed
	// by a probe. If it is 0, the work runs in one chunk
	// without probing.
	NumProbes int

	// MaxUnits caps a calibration probe.
	// If 0, DefaultMaxUnits is used.
	MaxUnits int

	rate float64
}

// NewCalibrator creates an unarmed Calibrator.
func NewCalibrator(clock Clock, kernel Kernel, numProbes int) *Calibrator {
	return &Calibrator{Clock: clock, Kernel: kernel, NumProbes: numProbes}
}

// Armed reports whether the Calibrator has a throughput
// estimate.
func (c *Calibrator) Armed() bool {
	return c.rate > 0
}

// Rate gets the current throughput estimate in units per
// second, or 0 if unarmed.
func (c *Calibrator) Rate() float64 {
	return c.rate
}

// Calibrate measures the kernel's throughput with runs of
// doubling size, until a run takes a noticeable fraction of
// target.
//
// If no run takes any measurable time, the Calibrator is
// left unarmed.
func (c *Calibrator) Calibrate(target float64) {
	c.rate = 0
	goal := math.Max(target/CalibrationFraction, MinCalibrationTime)
	maxUnits := c.MaxUnits
	if maxUnits <= 0 {
		maxUnits = DefaultMaxUnits
	}
	for units := 1; units <= maxUnits; units *= 2 {
		start := c.Clock.Time()
		c.Kernel.Run(units)
		elapsed := c.Clock.Time() - start
		if elapsed > 0 {
			c.rate = float64(units) / elapsed
		}
		if elapsed >= goal {
			return
		}
	}
}

// Compute runs the kernel for approximately target
// seconds, calling probe after every chunk of work.
//
// It returns the elapsed time, including probes, and the
// time spent inside probe.
// If target is not positive or the Calibrator is unarmed,
// nothing is run and zero is returned.
func (c *Calibrator) Compute(target float64, probe func()) (elapsed, probeTime float64) {
	if target <= 0 || !c.Armed() {
		return 0, 0
	}
	units := int(math.Round(target * c.rate))
	if units < 1 {
		return 0, 0
	}
	chunks := c.NumProbes
	if chunks < 1 {
		chunks = 1
		probe = nil
	}
	if chunks > units {
		chunks = units
	}

	start := c.Clock.Time()
	var done int
	for i := 0; i < chunks; i++ {
		n := units*(i+1)/chunks - done
		c.Kernel.Run(n)
		done += n
		if probe != nil {
			probeStart := c.Clock.Time()
			probe()
			probeTime += c.Clock.Time() - probeStart
		}
	}
	elapsed = c.Clock.Time() - start

	if work := elapsed - probeTime; work > 0 {
		c.rate = (c.rate + float64(units)/work) / 2
	}
	return elapsed, probeTime
}
