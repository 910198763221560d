package collcomm

import (
	"fmt"
	"sync"

	"github.com/unixpickle/nbc-bench/simulator"
)

// A NetworkKind selects the network model of a World.
type NetworkKind string

const (
	SwitchedNetwork NetworkKind = "switched"
	FairNetwork     NetworkKind = "fair"
	RandomNetwork   NetworkKind = "random"
	OrderedNetwork  NetworkKind = "ordered"
)

// NetworkConfig describes the network connecting the
// ranks of a World.
type NetworkConfig struct {
	Kind NetworkKind

	// Latency is the per-message latency in seconds.
	// For a RandomNetwork, latencies are uniform in
	// [0, 2*Latency).
	Latency float64

	// Rate is the link rate in bytes per second.
	Rate float64
}

// DefaultNetworkConfig returns a switched network with
// microsecond latency and 10 GB/s links.
func DefaultNetworkConfig() NetworkConfig {
	return NetworkConfig{Kind: SwitchedNetwork, Latency: 1e-6, Rate: 1e10}
}

func (n NetworkConfig) build(nodes []*simulator.Node) (simulator.Network, error) {
	if n.Latency < 0 || n.Rate <= 0 {
		return nil, fmt.Errorf("invalid network latency %g or rate %g", n.Latency, n.Rate)
	}
	switch n.Kind {
	case SwitchedNetwork, "":
		switcher := simulator.NewGreedyDropSwitcher(len(nodes), n.Rate)
		return simulator.NewSwitcherNetwork(switcher, nodes, n.Latency), nil
	case FairNetwork:
		switcher := simulator.NewFairShareSwitcher(len(nodes), n.Rate)
		return simulator.NewSwitcherNetwork(switcher, nodes, n.Latency), nil
	case RandomNetwork:
		return simulator.RandomNetwork{MaxLatency: 2 * n.Latency, Rate: n.Rate}, nil
	case OrderedNetwork:
		return simulator.NewOrderedNetwork(n.Rate, n.Latency), nil
	}
	return nil, fmt.Errorf("unknown network kind: %s", n.Kind)
}

// A World is a group of ranks that run the same function
// on a simulated network.
type World struct {
	// Size is the number of ranks.
	Size int

	Network NetworkConfig

	// Algorithms used by the non-blocking collectives.
	// If nil, a TreeAllreducer and a RingReduceScatterer
	// are used.
	Allreducer      Allreducer[float32]
	ReduceScatterer ReduceScatterer[float32]

	lock    sync.Mutex
	err     error
	aborts  []*simulator.EventStream
	elapsed float64
}

// NewWorld creates a World with the default algorithms.
func NewWorld(size int, network NetworkConfig) *World {
	return &World{
		Size:            size,
		Network:         network,
		Allreducer:      TreeAllreducer[float32]{},
		ReduceScatterer: RingReduceScatterer[float32]{},
	}
}

// Run runs f on every rank, each in its own Goroutine,
// and blocks until all of them have returned.
//
// If any rank returns an error or calls Abort, the whole
// group is torn down and the first such error is
// returned.
// If the ranks deadlock, an error is returned as well.
func (w *World) Run(f func(c *Comm) error) error {
	if w.Size < 1 {
		return fmt.Errorf("world needs at least one rank, got %d", w.Size)
	}
	if w.Allreducer == nil {
		w.Allreducer = TreeAllreducer[float32]{}
	}
	if w.ReduceScatterer == nil {
		w.ReduceScatterer = RingReduceScatterer[float32]{}
	}

	loop := simulator.NewEventLoop()
	nodes := make([]*simulator.Node, w.Size)
	for i := range nodes {
		nodes[i] = simulator.NewNode()
	}
	network, err := w.Network.build(nodes)
	if err != nil {
		return err
	}
	mainPorts := make([]*simulator.Port, w.Size)
	asyncPorts := make([]*simulator.Port, w.Size)
	for i, node := range nodes {
		mainPorts[i] = node.Port(loop)
		asyncPorts[i] = node.Port(loop)
	}

	w.lock.Lock()
	w.err = nil
	w.aborts = nil
	w.lock.Unlock()

	for i := range nodes {
		rank := i
		abort := loop.Stream()
		w.register(nil, abort)
		loop.Go(func(h *simulator.Handle) {
			c := &Comm{
				world:   w,
				network: network,
				rank:    rank,
				main: &Comms{
					Handle:  h,
					Port:    mainPorts[rank],
					Ports:   mainPorts,
					Network: network,
					Abort:   abort,
				},
				asyncPorts: asyncPorts,
				asyncBox:   &mailbox{},
			}
			w.runRank(c, f)
		})
	}

	runErr := loop.Run()

	w.lock.Lock()
	defer w.lock.Unlock()
	w.elapsed = loop.Time()
	if w.err != nil {
		return w.err
	}
	if runErr != nil {
		return fmt.Errorf("run world: %w", runErr)
	}
	return nil
}

// Elapsed gets the virtual time at which the last Run
// finished.
func (w *World) Elapsed() float64 {
	w.lock.Lock()
	defer w.lock.Unlock()
	return w.elapsed
}

func (w *World) runRank(c *Comm, f func(c *Comm) error) {
	defer recoverAbort()
	if err := f(c); err != nil {
		w.abort(c.main.Handle, err)
	}
}

// register adds a stream that is notified when the group
// aborts.
// If the group has already aborted, the stream is notified
// right away through h.
func (w *World) register(h *simulator.Handle, stream *simulator.EventStream) {
	w.lock.Lock()
	w.aborts = append(w.aborts, stream)
	aborted := w.err != nil
	w.lock.Unlock()
	if aborted && h != nil {
		h.Schedule(stream, nil, 0)
	}
}

func (w *World) abort(h *simulator.Handle, err error) {
	w.lock.Lock()
	if w.err == nil {
		w.err = err
	}
	streams := append([]*simulator.EventStream{}, w.aborts...)
	w.lock.Unlock()
	for _, stream := range streams {
		h.Schedule(stream, nil, 0)
	}
}

// abortSignal unwinds a Goroutine whose group has been
// aborted.
type abortSignal struct{}

func recoverAbort() {
	if r := recover(); r != nil {
		if _, ok := r.(abortSignal); !ok {
			panic(r)
		}
	}
}
