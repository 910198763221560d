package simulator

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"sync"

	"github.com/unixpickle/essentials"
)

// ErrDeadlock is returned by EventLoop.Run when every
// Goroutine is polling and no timer is left to fire.
var ErrDeadlock = errors.New("deadlock: all handles are polling")

// An EventStream carries events in one direction through
// an EventLoop.
// Events that arrive while nobody is polling the stream
// are buffered in order.
//
// A stream belongs to the loop that created it.
type EventStream struct {
	loop    *EventLoop
	pending []interface{}
}

func (s *EventStream) pop() (*Event, bool) {
	if len(s.pending) == 0 {
		return nil, false
	}
	msg := s.pending[0]
	essentials.OrderedDelete(&s.pending, 0)
	return &Event{Message: msg, Stream: s}, true
}

// An Event is a message received on some EventStream.
type Event struct {
	Message interface{}
	Stream  *EventStream
}

// A Timer is a pending delivery of an event at some
// point in virtual time.
type Timer struct {
	time  float64
	event *Event
}

// Time gets the virtual time at which the timer fires.
// A timer whose time is still in the future has not
// fired.
func (t *Timer) Time() float64 {
	return t.time
}

// A Handle is how one Goroutine talks to an EventLoop.
// Each Goroutine started by EventLoop.Go gets its own.
type Handle struct {
	*EventLoop

	// Set while the Goroutine is blocked in Poll.
	pollStreams []*EventStream
	pollChan    chan<- *Event
}

// Poll blocks until one of the streams has an event, and
// returns that event.
//
// Buffered events are checked in the order the streams
// are passed.
func (h *Handle) Poll(streams ...*EventStream) *Event {
	ch := make(chan *Event, 1)
	h.modifyHandles(func() {
		if h.pollStreams != nil {
			panic("Handle is shared between Goroutines")
		}
		for _, stream := range streams {
			if event, ok := stream.pop(); ok {
				ch <- event
				return
			}
		}
		h.pollStreams = streams
		h.pollChan = ch
	})
	return <-ch
}

// TryPoll returns a buffered event from one of the
// streams, or nil if there is none.
//
// Events due at the current virtual time that the loop
// has not delivered yet are not visible until the loop
// runs again.
func (h *Handle) TryPoll(streams ...*EventStream) *Event {
	var res *Event
	h.modify(func() {
		for _, stream := range streams {
			if event, ok := stream.pop(); ok {
				res = event
				return
			}
		}
	})
	return res
}

// Schedule delivers msg on stream after delay seconds of
// virtual time.
func (h *Handle) Schedule(stream *EventStream, msg interface{}, delay float64) *Timer {
	if stream.loop != h.EventLoop {
		panic("EventStream is not associated with the correct EventLoop")
	}
	var timer *Timer
	h.modify(func() {
		timer = &Timer{
			time:  h.time + delay,
			event: &Event{Message: msg, Stream: stream},
		}
		if math.IsInf(timer.time, 0) || math.IsNaN(timer.time) {
			panic(fmt.Sprintf("invalid deadline: %f", timer.time))
		}
		h.timers = append(h.timers, timer)
	})
	return timer
}

// Cancel removes a timer that has not fired yet.
// Cancelling a fired timer is a no-op.
func (h *Handle) Cancel(t *Timer) {
	h.modify(func() {
		for i, timer := range h.timers {
			if timer == t {
				essentials.UnorderedDelete(&h.timers, i)
				return
			}
		}
	})
}

// Sleep blocks for delay seconds of virtual time.
func (h *Handle) Sleep(delay float64) {
	stream := h.Stream()
	h.Schedule(stream, nil, delay)
	h.Poll(stream)
}

// An EventLoop schedules events for a set of simulated
// ranks in virtual time.
//
// Goroutines that use the loop must be started with Go.
// Virtual time only advances while every one of them is
// blocked in Poll, so real computation between polls
// takes no virtual time unless it sleeps.
type EventLoop struct {
	lock    sync.Mutex
	timers  []*Timer
	handles []*Handle

	time float64

	running  bool
	notifyCh chan struct{}
}

// NewEventLoop creates an event loop at time 0.
func NewEventLoop() *EventLoop {
	return &EventLoop{notifyCh: make(chan struct{}, 1)}
}

// Stream creates a new EventStream.
func (e *EventLoop) Stream() *EventStream {
	return &EventStream{loop: e}
}

// Go starts f on a new Goroutine with its own Handle.
func (e *EventLoop) Go(f func(h *Handle)) {
	h := &Handle{EventLoop: e}
	e.lock.Lock()
	e.handles = append(e.handles, h)
	e.lock.Unlock()
	go func() {
		f(h)
		e.modifyHandles(func() {
			for i, handle := range e.handles {
				if handle == h {
					essentials.UnorderedDelete(&e.handles, i)
					return
				}
			}
			panic("cannot free handle that does not exist")
		})
	}()
}

// Run drives the loop until every Goroutine started with
// Go has returned.
//
// It returns ErrDeadlock if the Goroutines block forever.
// Only one Run may be active per loop.
func (e *EventLoop) Run() error {
	e.lock.Lock()
	if e.running {
		e.lock.Unlock()
		panic("EventLoop is already running.")
	}
	e.running = true
	e.lock.Unlock()

	defer func() {
		e.lock.Lock()
		e.running = false
		e.lock.Unlock()
	}()

	for range e.notifyCh {
		if more, err := e.step(); !more {
			return err
		}
	}
	panic("unreachable")
}

// MustRun is like Run, but it panics on deadlock.
func (e *EventLoop) MustRun() {
	if err := e.Run(); err != nil {
		panic(err)
	}
}

// Time gets the current virtual time.
func (e *EventLoop) Time() float64 {
	e.lock.Lock()
	defer e.lock.Unlock()
	return e.time
}

// modify runs f under the loop lock.
// f must not change which handles are polling.
func (e *EventLoop) modify(f func()) {
	e.lock.Lock()
	defer e.lock.Unlock()
	f()
}

// modifyHandles is like modify, but it wakes the loop
// afterwards so it can notice polling changes.
func (e *EventLoop) modifyHandles(f func()) {
	e.lock.Lock()
	defer func() {
		e.lock.Unlock()
		select {
		case e.notifyCh <- struct{}{}:
		default:
		}
	}()
	f()
}

// step fires timers until one of them wakes a Goroutine.
// It reports false once the loop is finished, with an
// error if it finished by deadlocking.
func (e *EventLoop) step() (bool, error) {
	e.lock.Lock()
	defer e.lock.Unlock()

	if len(e.handles) == 0 {
		return false, nil
	}
	for _, h := range e.handles {
		if len(h.pollStreams) == 0 {
			// Somebody is still running in real time.
			return true, nil
		}
	}

	for len(e.timers) > 0 {
		timer := e.popTimer()
		e.time = math.Max(e.time, timer.time)
		if e.deliver(timer.event) {
			return true, nil
		}
	}
	return false, ErrDeadlock
}

// popTimer removes the earliest timer, breaking ties at
// random.
func (e *EventLoop) popTimer() *Timer {
	order := rand.Perm(len(e.timers))
	best := order[0]
	for _, i := range order[1:] {
		if e.timers[i].time < e.timers[best].time {
			best = i
		}
	}
	timer := e.timers[best]
	essentials.UnorderedDelete(&e.timers, best)
	return timer
}

// deliver hands the event to a Goroutine polling its
// stream, chosen at random, or buffers it on the stream.
// It reports whether a Goroutine was woken.
func (e *EventLoop) deliver(event *Event) bool {
	for _, i := range rand.Perm(len(e.handles)) {
		h := e.handles[i]
		for _, stream := range h.pollStreams {
			if stream == event.Stream {
				h.pollChan <- event
				h.pollChan = nil
				h.pollStreams = nil
				return true
			}
		}
	}
	event.Stream.pending = append(event.Stream.pending, event.Message)
	return false
}
