package bench

import (
	"math"
	"testing"

	"github.com/unixpickle/nbc-bench/compute"
)

type fakeClock struct {
	now float64
}

func (f *fakeClock) Time() float64 {
	return f.now
}

// fakeRequest completes after a fixed amount of fake time.
type fakeRequest struct {
	clock    *fakeClock
	doneAt   float64
	tests    int
	waited   bool
	waitCost float64
}

func (f *fakeRequest) Test() bool {
	f.tests++
	return f.clock.now >= f.doneAt
}

func (f *fakeRequest) Wait() {
	f.waited = true
	if f.clock.now < f.doneAt {
		f.clock.now = f.doneAt
	}
	f.clock.now += f.waitCost
}

type fakeKernel struct {
	clock *fakeClock
}

func (f fakeKernel) Run(units int) {
	f.clock.now += float64(units) * 1e-6
}

func TestOverlapTimerPlain(t *testing.T) {
	clock := &fakeClock{}
	timer := NewOverlapTimer(clock)
	timer.Reset(2, true)
	for i := 0; i < 5; i++ {
		err := timer.Plain(i, func() (Completion, error) {
			clock.now += 1e-6
			return &fakeRequest{clock: clock, doneAt: clock.now + 1e-3}, nil
		})
		if err != nil {
			t.Fatal(err)
		}
		if timer.Phase() != Idle {
			t.Fatalf("unexpected phase %s", timer.Phase())
		}
	}
	if timer.Count() != 3 {
		t.Errorf("expected 3 samples but got %d", timer.Count())
	}
	sums := timer.Sums()
	if math.Abs(sums.Total-3*(1e-3+1e-6)) > 1e-12 {
		t.Errorf("unexpected total %g", sums.Total)
	}
	if math.Abs(sums.Issue-3e-6) > 1e-12 || math.Abs(sums.Wait-3e-3) > 1e-12 {
		t.Errorf("unexpected sums %+v", sums)
	}
	if sums.Compute != 0 {
		t.Errorf("plain pass computed for %g", sums.Compute)
	}
	if len(timer.Totals()) != 3 {
		t.Errorf("expected 3 retained totals but got %d", len(timer.Totals()))
	}
}

func TestOverlapTimerOverlap(t *testing.T) {
	clock := &fakeClock{}
	cal := compute.NewCalibrator(clock, fakeKernel{clock: clock}, 4)
	cal.Calibrate(1e-3)

	timer := NewOverlapTimer(clock)
	timer.Reset(0, false)
	var req *fakeRequest
	err := timer.Overlap(0, func() (Completion, error) {
		req = &fakeRequest{clock: clock, doneAt: clock.now + 1e-3}
		return req, nil
	}, cal, 1e-3)
	if err != nil {
		t.Fatal(err)
	}
	if req.tests != 4 || !req.waited {
		t.Errorf("request tested %d times, waited %v", req.tests, req.waited)
	}
	sums := timer.Sums()
	if math.Abs(sums.Compute-1e-3) > 1e-9 {
		t.Errorf("unexpected compute time %g", sums.Compute)
	}
	if sums.Wait > 1e-9 {
		t.Errorf("unexpected wait time %g", sums.Wait)
	}
	if timer.Totals() != nil {
		t.Error("totals retained without being asked to")
	}
}

func TestOverlapTimerPhases(t *testing.T) {
	clock := &fakeClock{}
	timer := NewOverlapTimer(clock)
	if !panics(timer.Wait) {
		t.Error("wait while idle did not panic")
	}
	if !panics(func() { timer.Finish(0) }) {
		t.Error("finish while idle did not panic")
	}
	timer.Issue(func() (Completion, error) {
		return &fakeRequest{clock: clock}, nil
	})
	if timer.Phase() != Issued {
		t.Fatalf("unexpected phase %s", timer.Phase())
	}
	if !panics(func() { timer.Reset(0, false) }) {
		t.Error("reset while issued did not panic")
	}
	timer.Wait()
	if timer.Phase() != Complete {
		t.Fatalf("unexpected phase %s", timer.Phase())
	}
	if !panics(timer.Wait) {
		t.Error("second wait did not panic")
	}
	timer.Finish(0)
	if timer.Phase() != Idle {
		t.Fatalf("unexpected phase %s", timer.Phase())
	}
}

func panics(f func()) (res bool) {
	defer func() {
		res = recover() != nil
	}()
	f()
	return
}
