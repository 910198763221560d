package simulator

import (
	"math"
	"math/rand"
	"sync"
)

// A Node represents a machine on a virtual network.
type Node struct {
	unused int
}

// NewNode creates a new, unique Node.
func NewNode() *Node {
	return &Node{}
}

// Port creates a new Port connected to the Node.
func (n *Node) Port(loop *EventLoop) *Port {
	return &Port{Node: n, Incoming: loop.Stream()}
}

// A Port identifies a point of communication on a Node.
// Data is sent from Ports and received on Ports.
type Port struct {
	// The Node to which the Port is attached.
	Node *Node

	// A stream of *Message objects.
	Incoming *EventStream
}

// Recv receives the next message.
func (p *Port) Recv(h *Handle) *Message {
	return h.Poll(p.Incoming).Message.(*Message)
}

// A Message is a chunk of data sent between nodes over a
// network.
type Message struct {
	Source  *Port
	Dest    *Port
	Message interface{}
	Size    float64
}

// A Network represents an abstract way of communicating
// between nodes.
type Network interface {
	// Send message objects from one node to another.
	// The message will arrive on the receiving port's
	// incoming EventStream if the communication is
	// successful.
	//
	// This is a non-blocking operation.
	//
	// It is preferrable to pass multiple messages in at
	// once, if possible.
	// Otherwise, the Network may have to continually
	// re-plan the entire message delivery timeline.
	Send(h *Handle, msgs ...*Message)
}

// A RandomNetwork is a network that assigns random delays
// to every message.
//
// Each message takes a uniformly random latency in the
// range [0, MaxLatency) plus its size divided by Rate.
// If Rate is 0, message size has no effect.
type RandomNetwork struct {
	MaxLatency float64
	Rate       float64
}

// Send sends the messages with random delays.
func (r RandomNetwork) Send(h *Handle, msgs ...*Message) {
	for _, msg := range msgs {
		delay := rand.Float64() * r.MaxLatency
		if r.Rate > 0 {
			delay += msg.Size / r.Rate
		}
		h.Schedule(msg.Dest.Incoming, msg, delay)
	}
}

// A SwitcherNetwork routes every message through a
// Switcher. Messages in flight at the same time share the
// interfaces of their nodes, so each new message may slow
// down the ones already being transferred.
type SwitcherNetwork struct {
	lock sync.Mutex

	switcher Switcher
	nodes    []*Node
	index    map[*Node]int
	latency  float64

	schedule []*flightSegment
}

// NewSwitcherNetwork creates a SwitcherNetwork that adds
// a fixed latency to every message.
//
// A message occupies its links during its latency period
// as well as during its transfer, which overestimates
// congestion for small messages.
func NewSwitcherNetwork(switcher Switcher, nodes []*Node, latency float64) *SwitcherNetwork {
	index := make(map[*Node]int, len(nodes))
	for i, node := range nodes {
		index[node] = i
	}
	return &SwitcherNetwork{
		switcher: switcher,
		nodes:    nodes,
		index:    index,
		latency:  latency,
	}
}

// Send adds the messages to the set of transfers and
// re-plans every delivery that has not happened yet.
func (s *SwitcherNetwork) Send(h *Handle, msgs ...*Message) {
	s.lock.Lock()
	defer s.lock.Unlock()

	flights := s.unschedule(h)
	for _, msg := range msgs {
		flights = append(flights, &flight{
			msg:         msg,
			latencyLeft: s.latency,
			bytesLeft:   msg.Size,
		})
	}
	s.reschedule(h, flights)
}

// unschedule cancels pending deliveries and returns the
// state of every undelivered message as of now.
func (s *SwitcherNetwork) unschedule(h *Handle) []*flight {
	var flights []*flight
	now := h.Time()
	for _, seg := range s.schedule {
		if now >= seg.end {
			// Deliveries at or before now may already have fired.
			continue
		}
		if now >= seg.start {
			for _, f := range seg.flights {
				flights = append(flights, f.advance(now-seg.start))
			}
		}
		for _, timer := range seg.timers {
			h.Cancel(timer)
		}
	}
	return flights
}

// reschedule splits the future into segments where the
// link rates stay constant, and schedules one delivery
// timer for each message at the end of its segment.
func (s *SwitcherNetwork) reschedule(h *Handle, flights []*flight) {
	s.schedule = s.schedule[:0]
	start := h.Time()
	for len(flights) > 0 {
		s.assignRates(flights)
		arriving, rest, eta := splitEarliest(flights)

		seg := &flightSegment{start: start, end: start + eta, flights: flights}
		for _, f := range arriving {
			timer := h.Schedule(f.msg.Dest.Incoming, f.msg, seg.end-h.Time())
			seg.timers = append(seg.timers, timer)
		}
		seg.end = seg.timers[0].Time()
		s.schedule = append(s.schedule, seg)

		for i, f := range rest {
			rest[i] = f.advance(seg.end - start)
		}
		flights = rest
		start = seg.end
	}
}

func (s *SwitcherNetwork) assignRates(flights []*flight) {
	links := NewLinkMatrix(len(s.nodes))
	counts := NewLinkMatrix(len(s.nodes))
	for _, f := range flights {
		src, dst := s.endpoints(f.msg)
		links.Set(src, dst, 1)
		counts.Add(src, dst, 1)
	}
	s.switcher.SwitchedRates(links)
	for _, f := range flights {
		src, dst := s.endpoints(f.msg)
		f.rate = links.At(src, dst) / counts.At(src, dst)
	}
}

func (s *SwitcherNetwork) endpoints(msg *Message) (src, dst int) {
	return s.index[msg.Source.Node], s.index[msg.Dest.Node]
}

// A flight is an undelivered message on a SwitcherNetwork.
type flight struct {
	msg *Message

	latencyLeft float64
	bytesLeft   float64
	rate        float64
}

func (f *flight) eta() float64 {
	return math.Max(0, f.latencyLeft+f.bytesLeft/f.rate)
}

// advance returns a copy of f as it will be t seconds
// later, assuming its rate does not change.
func (f *flight) advance(t float64) *flight {
	res := *f
	if t < res.latencyLeft {
		res.latencyLeft -= t
		return &res
	}
	t -= res.latencyLeft
	res.latencyLeft = 0
	res.bytesLeft -= res.rate * t
	return &res
}

// A flightSegment is a period during which the set of
// messages in flight and their rates are fixed.
// It ends when at least one message is delivered.
type flightSegment struct {
	start   float64
	end     float64
	timers  []*Timer
	flights []*flight
}

// splitEarliest separates the flights that arrive first
// from the others.
func splitEarliest(flights []*flight) (earliest, rest []*flight, eta float64) {
	etas := make([]float64, len(flights))
	eta = math.Inf(1)
	for i, f := range flights {
		etas[i] = f.eta()
		eta = math.Min(eta, etas[i])
	}
	for i, f := range flights {
		if etas[i] == eta {
			earliest = append(earliest, f)
		} else {
			rest = append(rest, f)
		}
	}
	return earliest, rest, eta
}

// An OrderedNetwork delivers messages sent to a node in
// order, as if every node had a single incoming link that
// serializes all transfers.
//
// Each message is delayed by a random latency of at most
// MaxRandomLatency, plus the time it takes to push the
// message through the destination link at Rate.
type OrderedNetwork struct {
	Rate             float64
	MaxRandomLatency float64

	lock      sync.Mutex
	nextTimes map[*Node]float64
}

// NewOrderedNetwork creates an OrderedNetwork.
func NewOrderedNetwork(rate float64, maxRandomLatency float64) *OrderedNetwork {
	return &OrderedNetwork{
		Rate:             rate,
		MaxRandomLatency: maxRandomLatency,
		nextTimes:        map[*Node]float64{},
	}
}

// Send sends the messages over the network in order.
func (o *OrderedNetwork) Send(h *Handle, msgs ...*Message) {
	o.lock.Lock()
	defer o.lock.Unlock()

	curTime := h.Time()
	for _, msg := range msgs {
		dest := msg.Dest.Node
		delay := rand.Float64()*o.MaxRandomLatency + msg.Size/o.Rate
		if t, ok := o.nextTimes[dest]; ok && t > curTime {
			// The link is still busy with earlier messages.
			delay += t - curTime
		}
		o.nextTimes[dest] = curTime + delay
		h.Schedule(msg.Dest.Incoming, msg, delay)
	}
}
