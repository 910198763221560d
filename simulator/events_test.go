package simulator

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func ExampleEventLoop() {
	loop := NewEventLoop()
	done := loop.Stream()
	loop.Go(func(h *Handle) {
		event := h.Poll(done)
		fmt.Println(event.Message, h.Time())
	})
	loop.Go(func(h *Handle) {
		h.Schedule(done, "rank 1 finished", 2.25)
	})
	loop.MustRun()
	// Output: rank 1 finished 2.25
}

func TestEventLoopDeliveryTimes(t *testing.T) {
	loop := NewEventLoop()
	streams := []*EventStream{loop.Stream(), loop.Stream(), loop.Stream()}
	delays := []float64{4.0, 0.5, 2.5}

	arrivals := make([]float64, len(streams))
	for i, stream := range streams {
		i, stream := i, stream
		loop.Go(func(h *Handle) {
			if msg := h.Poll(stream).Message; msg != i {
				t.Errorf("stream %d: got message %v", i, msg)
			}
			arrivals[i] = h.Time()
		})
	}
	loop.Go(func(h *Handle) {
		for i, stream := range streams {
			h.Schedule(stream, i, delays[i])
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	for i, expected := range delays {
		if arrivals[i] != expected {
			t.Errorf("stream %d: arrived at %f, expected %f", i, arrivals[i], expected)
		}
	}
	if loop.Time() != 4.0 {
		t.Errorf("final time %f, expected 4", loop.Time())
	}
}

func TestEventLoopSharedStreamShuffles(t *testing.T) {
	seen := map[[2]int]bool{}
	for trial := 0; trial < 1000 && len(seen) < 2; trial++ {
		loop := NewEventLoop()
		stream := loop.Stream()
		var got [2]int
		for i := range got {
			i := i
			loop.Go(func(h *Handle) {
				got[i] = h.Poll(stream).Message.(int)
			})
		}
		loop.Go(func(h *Handle) {
			h.Schedule(stream, 1, 1.0)
			h.Schedule(stream, 2, 1.0)
		})
		if err := loop.Run(); err != nil {
			t.Fatal(err)
		}
		seen[got] = true
	}
	if len(seen) != 2 {
		t.Errorf("expected both receivers to win sometimes, saw %v", seen)
	}
}

func TestEventLoopBuffersUnpolledStreams(t *testing.T) {
	loop := NewEventLoop()
	gate, data, ignored := loop.Stream(), loop.Stream(), loop.Stream()

	var got []interface{}
	loop.Go(func(h *Handle) {
		h.Poll(gate)
		// Both events arrived before this point.
		got = append(got, h.Poll(data).Message, h.Poll(data).Message)
	})
	loop.Go(func(h *Handle) {
		h.Schedule(data, "first", 1.0)
		h.Schedule(data, "second", 2.0)
		h.Schedule(ignored, "never read", 3.0)
		h.Schedule(gate, nil, 5.0)
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0] != "first" || got[1] != "second" {
		t.Errorf("unexpected buffered order %v", got)
	}
	if loop.Time() != 5.0 {
		t.Errorf("final time %f, expected 5", loop.Time())
	}
}

func TestHandlePollMultiple(t *testing.T) {
	loop := NewEventLoop()
	a, b := loop.Stream(), loop.Stream()

	loop.Go(func(h *Handle) {
		if event := h.Poll(a, b); event.Stream != b || event.Message != "b" {
			t.Errorf("expected the earlier event on b, got %v", event.Message)
		}
		h.Sleep(10)
		// Both streams have buffered events now. The order
		// of the arguments decides.
		if event := h.Poll(a, b); event.Stream != a {
			t.Errorf("expected stream a first, got %v", event.Message)
		}
		if event := h.Poll(a, b); event.Stream != b {
			t.Errorf("expected stream b second, got %v", event.Message)
		}
	})
	loop.Go(func(h *Handle) {
		h.Schedule(a, "a", 2.0)
		// Real time between calls has no effect on virtual
		// ordering.
		time.Sleep(time.Millisecond * 50)
		h.Schedule(b, "b", 1.0)
		h.Schedule(b, "b again", 3.0)
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestHandleCancel(t *testing.T) {
	loop := NewEventLoop()
	stream := loop.Stream()
	loop.Go(func(h *Handle) {
		timer := h.Schedule(stream, "cancelled", 1.0)
		h.Schedule(stream, "kept", 2.0)
		h.Cancel(timer)
		if msg := h.Poll(stream).Message; msg != "kept" {
			t.Errorf("unexpected message %v", msg)
		}
		if h.Time() != 2.0 {
			t.Errorf("time %f, expected 2", h.Time())
		}
		// Cancelling a fired timer does nothing.
		h.Cancel(timer)
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestEventLoopDeadlock(t *testing.T) {
	loop := NewEventLoop()
	ping, pong := loop.Stream(), loop.Stream()

	loop.Go(func(h *Handle) {
		h.Poll(ping)
		h.Schedule(pong, nil, 0)
	})
	loop.Go(func(h *Handle) {
		// Still computing in real time while the other
		// Goroutine polls.
		time.Sleep(time.Millisecond * 100)
		h.Poll(pong)
		h.Schedule(ping, nil, 0)
	})

	if err := loop.Run(); !errors.Is(err, ErrDeadlock) {
		t.Errorf("expected ErrDeadlock but got %v", err)
	}
}

func TestHandleTryPoll(t *testing.T) {
	loop := NewEventLoop()
	stream := loop.Stream()
	loop.Go(func(h *Handle) {
		if ev := h.TryPoll(stream); ev != nil {
			t.Errorf("unexpected event: %v", ev.Message)
		}
		h.Schedule(stream, 42, 1.0)
		if ev := h.TryPoll(stream); ev != nil {
			t.Error("event visible before delivery")
		}
		h.Sleep(2.0)
		ev := h.TryPoll(stream)
		if ev == nil {
			t.Error("expected buffered event")
			return
		}
		if ev.Message != 42 || ev.Stream != stream {
			t.Errorf("unexpected event %v", ev.Message)
		}
		if h.TryPoll(stream) != nil {
			t.Error("event delivered twice")
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}
