package bench

import (
	"fmt"

	"github.com/unixpickle/nbc-bench/compute"
)

// A Phase is the state of an OverlapTimer.
type Phase int

const (
	Idle Phase = iota
	Issued
	Computing
	Waiting
	Complete
)

func (p Phase) String() string {
	switch p {
	case Idle:
		return "idle"
	case Issued:
		return "issued"
	case Computing:
		return "computing"
	case Waiting:
		return "waiting"
	case Complete:
		return "complete"
	}
	return fmt.Sprintf("Phase(%d)", int(p))
}

// A Sample holds the durations of the phases of one
// iteration, or sums of them, in seconds.
type Sample struct {
	Issue   float64
	Compute float64
	Probe   float64
	Wait    float64
	Total   float64
}

func (s *Sample) add(other Sample) {
	s.Issue += other.Issue
	s.Compute += other.Compute
	s.Probe += other.Probe
	s.Wait += other.Wait
	s.Total += other.Total
}

// An OverlapTimer times iterations of issuing a
// non-blocking operation, computing, and waiting for the
// operation.
//
// Each iteration moves through the phases Idle, Issued,
// Computing (overlap passes only), Waiting and Complete,
// and Finish returns the timer to Idle.
// Calling a method in the wrong phase panics.
type OverlapTimer struct {
	Clock compute.Clock

	skip   int
	retain bool

	phase   Phase
	req     Completion
	t0      float64
	current Sample

	sums   Sample
	count  int
	totals []float64
}

// NewOverlapTimer creates an idle timer.
func NewOverlapTimer(clock compute.Clock) *OverlapTimer {
	return &OverlapTimer{Clock: clock}
}

// Reset clears the sums for a new pass.
//
// Iterations below skip are not accumulated.
// If retain is set, the total time of every accumulated
// iteration is kept.
func (o *OverlapTimer) Reset(skip int, retain bool) {
	o.expect(Idle)
	o.skip = skip
	o.retain = retain
	o.sums = Sample{}
	o.count = 0
	o.totals = nil
}

// Phase gets the current phase.
func (o *OverlapTimer) Phase() Phase {
	return o.phase
}

// Issue starts an iteration by calling issue.
// If issue fails, the timer stays idle.
func (o *OverlapTimer) Issue(issue func() (Completion, error)) error {
	o.expect(Idle)
	o.current = Sample{}
	o.t0 = o.Clock.Time()
	req, err := issue()
	if err != nil {
		return err
	}
	o.req = req
	o.current.Issue = o.Clock.Time() - o.t0
	o.phase = Issued
	return nil
}

// Compute runs the calibrated workload for target seconds
// while the operation is outstanding, testing it between
// chunks of work.
func (o *OverlapTimer) Compute(cal *compute.Calibrator, target float64) {
	o.expect(Issued)
	o.phase = Computing
	start := o.Clock.Time()
	_, probe := cal.Compute(target, func() {
		o.req.Test()
	})
	o.current.Compute = o.Clock.Time() - start
	o.current.Probe = probe
}

// Wait blocks until the operation finishes.
func (o *OverlapTimer) Wait() {
	if o.phase != Issued && o.phase != Computing {
		panic(fmt.Sprintf("wait in phase %s", o.phase))
	}
	o.phase = Waiting
	start := o.Clock.Time()
	o.req.Wait()
	now := o.Clock.Time()
	o.current.Wait = now - start
	o.current.Total = now - o.t0
	o.req = nil
	o.phase = Complete
}

// Finish ends iteration iter, accumulating its sample if
// it is past the skipped iterations.
func (o *OverlapTimer) Finish(iter int) Sample {
	o.expect(Complete)
	o.phase = Idle
	if iter >= o.skip {
		o.sums.add(o.current)
		o.count++
		if o.retain {
			o.totals = append(o.totals, o.current.Total)
		}
	}
	return o.current
}

// Plain runs an iteration with no compute.
func (o *OverlapTimer) Plain(iter int, issue func() (Completion, error)) error {
	if err := o.Issue(issue); err != nil {
		return err
	}
	o.Wait()
	o.Finish(iter)
	return nil
}

// Overlap runs an iteration that computes for target
// seconds between issuing and waiting.
func (o *OverlapTimer) Overlap(iter int, issue func() (Completion, error),
	cal *compute.Calibrator, target float64) error {
	if err := o.Issue(issue); err != nil {
		return err
	}
	o.Compute(cal, target)
	o.Wait()
	o.Finish(iter)
	return nil
}

// Sums gets the sums of the accumulated samples.
func (o *OverlapTimer) Sums() Sample {
	return o.sums
}

// Count gets the number of accumulated samples.
func (o *OverlapTimer) Count() int {
	return o.count
}

// Totals gets the retained total times.
func (o *OverlapTimer) Totals() []float64 {
	return o.totals
}

func (o *OverlapTimer) expect(p Phase) {
	if o.phase != p {
		panic(fmt.Sprintf("timer is %s, expected %s", o.phase, p))
	}
}
