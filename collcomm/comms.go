package collcomm

import (
	"github.com/unixpickle/essentials"
	"github.com/unixpickle/nbc-bench/simulator"
)

// AnySource matches messages from every node in Recv.
const AnySource = -1

// A Tag identifies the operation and the step within the
// operation that a message belongs to.
//
// Collective operations use positive Op values, while
// point-to-point messages use Op 0 and store the user tag
// in Step.
type Tag struct {
	Op   int
	Step int
}

type envelope struct {
	tag     Tag
	payload interface{}
}

// A mailbox holds messages that arrived on a port before
// anybody asked for them.
//
// A mailbox outlives the Comms objects that read from it,
// so that messages for a later operation are not lost when
// they overtake the current one.
type mailbox struct {
	stash []*simulator.Message
}

// Comms manages a set of connections between a bunch of
// nodes.
// During a collective operation, each node has a local
// Comms object that represents its view of the world.
//
// Only one Goroutine may use a Comms at once, and only
// one Comms should read from a given port at once.
type Comms struct {
	// Handle is the Goroutine's handle on the event loop.
	Handle *simulator.Handle

	// Port is the current node's port.
	Port *simulator.Port

	// Ports contains ports to all the nodes in the
	// network, including the current node.
	Ports []*simulator.Port

	// Network is the network connecting the nodes.
	Network simulator.Network

	// Op is the operation that Send and Recv tag their
	// messages with.
	Op int

	// Abort receives an event when the group is torn
	// down. It may be nil.
	Abort *simulator.EventStream

	box *mailbox
}

// SpawnComms creates Comms objects for every node in a
// network and calls f for each node in its own Goroutine.
//
// Every Comms reads from a fresh port, so the Comms
// objects can be used for exactly one operation.
func SpawnComms(loop *simulator.EventLoop, network simulator.Network, nodes []*simulator.Node,
	f func(c *Comms)) {
	ports := make([]*simulator.Port, len(nodes))
	for i, node := range nodes {
		ports[i] = node.Port(loop)
	}
	for i := range nodes {
		port := ports[i]
		loop.Go(func(h *simulator.Handle) {
			f(&Comms{
				Handle:  h,
				Port:    port,
				Ports:   ports,
				Network: network,
				Op:      1,
			})
		})
	}
}

// Size gets the number of nodes.
func (c *Comms) Size() int {
	return len(c.Ports)
}

// Index returns the current node's index in the list of
// nodes.
func (c *Comms) Index() int {
	return c.IndexOf(c.Port)
}

// IndexOf returns any node's index.
func (c *Comms) IndexOf(p *simulator.Port) int {
	for i, port := range c.Ports {
		if port == p {
			return i
		}
	}
	panic("unreachable")
}

// Send schedules a payload to be sent to the destination
// as part of the given step of the current operation.
//
// The payload is not copied, so the caller must not
// modify it afterwards.
func (c *Comms) Send(dst, step int, payload interface{}, size float64) {
	c.sendTag(dst, Tag{Op: c.Op, Step: step}, payload, size)
}

// Bcast sends a payload to every other node.
func (c *Comms) Bcast(step int, payload interface{}, size float64) {
	messages := make([]*simulator.Message, 0, len(c.Ports)-1)
	for _, port := range c.Ports {
		if port == c.Port {
			continue
		}
		messages = append(messages, &simulator.Message{
			Source:  c.Port,
			Dest:    port,
			Message: &envelope{tag: Tag{Op: c.Op, Step: step}, payload: payload},
			Size:    size,
		})
	}
	c.Network.Send(c.Handle, messages...)
}

// Recv receives the next payload for the given step of
// the current operation.
//
// The src argument may be AnySource.
// The index of the sending node is returned along with
// the payload.
func (c *Comms) Recv(src, step int) (interface{}, int) {
	return c.recvTag(src, Tag{Op: c.Op, Step: step})
}

func (c *Comms) sendTag(dst int, tag Tag, payload interface{}, size float64) {
	c.Network.Send(c.Handle, &simulator.Message{
		Source:  c.Port,
		Dest:    c.Ports[dst],
		Message: &envelope{tag: tag, payload: payload},
		Size:    size,
	})
}

func (c *Comms) recvTag(src int, tag Tag) (interface{}, int) {
	if payload, source, ok := c.takeStashed(src, tag); ok {
		return payload, source
	}
	for {
		msg := c.poll()
		if c.matches(msg, src, tag) {
			return msg.Message.(*envelope).payload, c.IndexOf(msg.Source)
		}
		c.mailbox().stash = append(c.mailbox().stash, msg)
	}
}

// tryRecvTag is like recvTag, but it only looks at
// messages that have already arrived.
func (c *Comms) tryRecvTag(src int, tag Tag) (interface{}, int, bool) {
	for {
		event := c.Handle.TryPoll(c.Port.Incoming)
		if event == nil {
			break
		}
		c.mailbox().stash = append(c.mailbox().stash, event.Message.(*simulator.Message))
	}
	return c.takeStashed(src, tag)
}

func (c *Comms) takeStashed(src int, tag Tag) (interface{}, int, bool) {
	box := c.mailbox()
	for i, msg := range box.stash {
		if c.matches(msg, src, tag) {
			essentials.OrderedDelete(&box.stash, i)
			return msg.Message.(*envelope).payload, c.IndexOf(msg.Source), true
		}
	}
	return nil, 0, false
}

func (c *Comms) matches(msg *simulator.Message, src int, tag Tag) bool {
	if msg.Message.(*envelope).tag != tag {
		return false
	}
	return src == AnySource || c.Ports[src] == msg.Source
}

func (c *Comms) poll() *simulator.Message {
	if c.Abort == nil {
		return c.Port.Recv(c.Handle)
	}
	event := c.Handle.Poll(c.Port.Incoming, c.Abort)
	if event.Stream == c.Abort {
		panic(abortSignal{})
	}
	return event.Message.(*simulator.Message)
}

func (c *Comms) mailbox() *mailbox {
	if c.box == nil {
		c.box = &mailbox{}
	}
	return c.box
}
