package simulator

import "testing"

func TestSwitchedNetworkSingleMessage(t *testing.T) {
	loop := NewEventLoop()

	switcher := NewGreedyDropSwitcher(2, 2.0)
	node1, node2 := NewNode(), NewNode()
	port1, port2 := node1.Port(loop), node2.Port(loop)
	network := NewSwitcherNetwork(switcher, []*Node{node1, node2}, 3.0)

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  port1,
			Dest:    port2,
			Message: "hi node 2",
			Size:    124.0,
		})
		if val := port1.Recv(h).Message; val != "hi node 1" {
			t.Errorf("unexpected message: %s", val)
		}
	})
	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  port2,
			Dest:    port1,
			Message: "hi node 1",
			Size:    124.0,
		})
		if val := port2.Recv(h).Message; val != "hi node 2" {
			t.Errorf("unexpected message: %s", val)
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	expectedTime := 124.0/2.0 + 3.0
	if loop.Time() != expectedTime {
		t.Errorf("time should be %f but got %f", expectedTime, loop.Time())
	}
}

func TestSwitchedNetworkOversubscribed(t *testing.T) {
	loop := NewEventLoop()

	dataRate := 4.0
	switcher := NewGreedyDropSwitcher(2, dataRate)
	node1, node2 := NewNode(), NewNode()
	port1, port2 := node1.Port(loop), node2.Port(loop)
	network := NewSwitcherNetwork(switcher, []*Node{node1, node2}, 2.0)

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{
			Source:  port1,
			Dest:    port2,
			Message: "hi node 2 (message 1)",
			Size:    123.0,
		})
		network.Send(h, &Message{
			Source:  port1,
			Dest:    port2,
			Message: "hi node 2 (message 2)",
			Size:    124.0,
		})
		if val := port1.Recv(h).Message; val != "hi node 1" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime := 1.0 + 2.0 + 124.0/dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
	})

	loop.Go(func(h *Handle) {
		// Make sure the other messages are in-flight.
		// This helps us test for the fact that we can
		// reschedule a message before the other messages.
		h.Sleep(1)

		network.Send(h, &Message{
			Source:  port2,
			Dest:    port1,
			Message: "hi node 1",
			Size:    124.0,
		})
		if val := port2.Recv(h).Message; val != "hi node 2 (message 1)" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime := 2.0 + 2.0*123.0/dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
		if val := port2.Recv(h).Message; val != "hi node 2 (message 2)" {
			t.Errorf("unexpected message: %s", val)
		}
		expectedTime += 1.0 / dataRate
		if h.Time() != expectedTime {
			t.Errorf("expected time %f but got %f", expectedTime, h.Time())
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}

	expectedTime := 2.0 + 2.0*123.0/dataRate + 1.0/dataRate
	if loop.Time() != expectedTime {
		t.Errorf("time should be %f but got %f", expectedTime, loop.Time())
	}

	// Make sure that there are no stray messages.
	for _, port := range []*Port{port1, port2} {
		p := port
		loop.Go(func(h *Handle) {
			h.Poll(p.Incoming)
		})
		if loop.Run() == nil {
			t.Error("expected deadlock error")
		}
	}
}

func TestOrderedNetworkSerializesDest(t *testing.T) {
	loop := NewEventLoop()
	network := NewOrderedNetwork(10.0, 0)

	src1, src2, dst := NewNode(), NewNode(), NewNode()
	port1, port2, dstPort := src1.Port(loop), src2.Port(loop), dst.Port(loop)

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{Source: port1, Dest: dstPort, Message: 1, Size: 20})
		network.Send(h, &Message{Source: port2, Dest: dstPort, Message: 2, Size: 30})
	})

	var arrivals []float64
	loop.Go(func(h *Handle) {
		for i := 1; i <= 2; i++ {
			msg := dstPort.Recv(h)
			if msg.Message != i {
				t.Errorf("expected message %d but got %v", i, msg.Message)
			}
			arrivals = append(arrivals, h.Time())
		}
	})

	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
	if len(arrivals) != 2 || arrivals[0] != 2.0 || arrivals[1] != 5.0 {
		t.Errorf("unexpected arrival times: %v", arrivals)
	}
}

func TestRandomNetworkBounds(t *testing.T) {
	loop := NewEventLoop()
	network := RandomNetwork{MaxLatency: 0.5, Rate: 4.0}
	src, dst := NewNode(), NewNode()
	srcPort, dstPort := src.Port(loop), dst.Port(loop)

	loop.Go(func(h *Handle) {
		network.Send(h, &Message{Source: srcPort, Dest: dstPort, Size: 8})
	})
	loop.Go(func(h *Handle) {
		dstPort.Recv(h)
		if h.Time() < 2.0 || h.Time() >= 2.5 {
			t.Errorf("arrival time %f out of range", h.Time())
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}

func TestFairNetworkSharesReceiver(t *testing.T) {
	loop := NewEventLoop()
	nodes := []*Node{NewNode(), NewNode(), NewNode()}
	ports := make([]*Port, len(nodes))
	for i, node := range nodes {
		ports[i] = node.Port(loop)
	}
	network := NewSwitcherNetwork(NewFairShareSwitcher(3, 2.0), nodes, 1.0)

	loop.Go(func(h *Handle) {
		network.Send(h,
			&Message{Source: ports[0], Dest: ports[2], Message: 0, Size: 10},
			&Message{Source: ports[1], Dest: ports[2], Message: 1, Size: 10},
		)
	})
	loop.Go(func(h *Handle) {
		for i := 0; i < 2; i++ {
			ports[2].Recv(h)
			if h.Time() != 11.0 {
				t.Errorf("message %d arrived at %f", i, h.Time())
			}
		}
	})
	if err := loop.Run(); err != nil {
		t.Fatal(err)
	}
}
