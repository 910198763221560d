package collcomm

import (
	"errors"
	"fmt"

	"github.com/unixpickle/nbc-bench/simulator"
)

var (
	ErrCount = errors.New("invalid count")
	ErrRank  = errors.New("invalid rank")
	ErrTag   = errors.New("invalid tag")
)

// A Comm is a rank's view of a World.
//
// All ranks must call the collective operations of a Comm
// in the same order.
// A Comm may only be used from the Goroutine that the
// World started for its rank.
type Comm struct {
	world   *World
	network simulator.Network
	rank    int

	main        *Comms
	nextOp      int
	asyncPorts  []*simulator.Port
	asyncBox    *mailbox
	nextAsyncOp int
	outstanding *Request
}

// Rank gets the zero-based index of the current rank.
func (c *Comm) Rank() int {
	return c.rank
}

// Size gets the number of ranks.
func (c *Comm) Size() int {
	return len(c.asyncPorts)
}

// Time gets the current virtual time in seconds.
func (c *Comm) Time() float64 {
	return c.main.Handle.Time()
}

// Handle gets the rank's handle on the event loop.
func (c *Comm) Handle() *simulator.Handle {
	return c.main.Handle
}

// Abort tears down the whole group with err.
// It does not return.
func (c *Comm) Abort(err error) {
	c.world.abort(c.main.Handle, err)
	panic(abortSignal{})
}

// Barrier blocks until every rank has called Barrier.
func (c *Comm) Barrier() {
	c.startBlocking()
	TreeAllreducer[float64]{}.Allreduce(c.main, []float64{}, Sum[float64])
}

// Reduce sums vals element-wise across all ranks.
// The sum is returned on rank 0 and nil is returned on
// every other rank.
func (c *Comm) Reduce(vals []float64) []float64 {
	c.startBlocking()
	return TreeAllreducer[float64]{}.Reduce(c.main, vals, Sum[float64])
}

// Allreduce sums vals element-wise across all ranks and
// returns the sum on every rank.
func (c *Comm) Allreduce(vals []float64) []float64 {
	c.startBlocking()
	return TreeAllreducer[float64]{}.Allreduce(c.main, vals, Sum[float64])
}

// Isend starts sending the data that dt describes in buf
// to the rank dst.
//
// The data is packed before Isend returns, so buf may be
// reused right away.
func (c *Comm) Isend(buf []byte, dt *Vector, dst, tag int) (*Request, error) {
	if err := c.checkPeer(dst, tag); err != nil {
		return nil, fmt.Errorf("isend: %w", err)
	}
	packed, err := dt.Pack(buf)
	if err != nil {
		return nil, fmt.Errorf("isend: %w", err)
	}
	c.main.sendTag(dst, Tag{Step: tag}, packed, float64(len(packed)))
	return completedRequest(), nil
}

// Irecv starts receiving a message from src (which may be
// AnySource) into the layout dt describes in buf.
func (c *Comm) Irecv(buf []byte, dt *Vector, src, tag int) (*Request, error) {
	if src != AnySource {
		if err := c.checkPeer(src, tag); err != nil {
			return nil, fmt.Errorf("irecv: %w", err)
		}
	} else if tag < 0 {
		return nil, fmt.Errorf("irecv: %w: %d", ErrTag, tag)
	}
	if err := dt.check(buf); err != nil {
		return nil, fmt.Errorf("irecv: %w", err)
	}
	msgTag := Tag{Step: tag}
	deliver := func(payload interface{}) {
		if err := dt.Unpack(payload.([]byte), buf); err != nil {
			c.Abort(fmt.Errorf("irecv: %w", err))
		}
	}
	test := func() bool {
		payload, _, ok := c.main.tryRecvTag(src, msgTag)
		if ok {
			deliver(payload)
		}
		return ok
	}
	wait := func() {
		payload, _ := c.main.recvTag(src, msgTag)
		deliver(payload)
	}
	return newRequest(test, wait), nil
}

// Send is a blocking version of Isend.
func (c *Comm) Send(buf []byte, dt *Vector, dst, tag int) error {
	req, err := c.Isend(buf, dt, dst, tag)
	if err != nil {
		return err
	}
	req.Wait()
	return nil
}

// Recv is a blocking version of Irecv.
func (c *Comm) Recv(buf []byte, dt *Vector, src, tag int) error {
	req, err := c.Irecv(buf, dt, src, tag)
	if err != nil {
		return err
	}
	req.Wait()
	return nil
}

// IreduceScatter starts a reduce-scatter of send, where
// rank i gets counts[i] summed elements in recv.
//
// The buffers must not be touched until the request has
// been waited on.
func (c *Comm) IreduceScatter(send, recv []float32, counts []int) (*Request, error) {
	if len(counts) != c.Size() {
		return nil, fmt.Errorf("ireduce_scatter: %w: %d counts for %d ranks",
			ErrCount, len(counts), c.Size())
	}
	var total int
	for _, count := range counts {
		if count < 0 {
			return nil, fmt.Errorf("ireduce_scatter: %w: negative count %d", ErrCount, count)
		}
		total += count
	}
	if total != len(send) {
		return nil, fmt.Errorf("ireduce_scatter: %w: counts sum to %d but %d elements are sent",
			ErrCount, total, len(send))
	}
	if len(recv) < counts[c.rank] {
		return nil, fmt.Errorf("ireduce_scatter: %w: %d elements for count %d",
			ErrTruncated, len(recv), counts[c.rank])
	}
	algorithm := c.world.ReduceScatterer
	return c.issue(func(e *Comms) {
		copy(recv, algorithm.ReduceScatter(e, send, counts, Sum[float32]))
	}), nil
}

// Iallreduce starts summing send across all ranks into
// recv.
//
// The buffers must not be touched until the request has
// been waited on.
func (c *Comm) Iallreduce(send, recv []float32) (*Request, error) {
	if len(recv) < len(send) {
		return nil, fmt.Errorf("iallreduce: %w: %d elements for %d",
			ErrTruncated, len(recv), len(send))
	}
	algorithm := c.world.Allreducer
	return c.issue(func(e *Comms) {
		copy(recv, algorithm.Allreduce(e, send, Sum[float32]))
	}), nil
}

// issue runs a collective on a helper Goroutine that owns
// the rank's async port, so that the operation progresses
// while the rank computes.
func (c *Comm) issue(run func(e *Comms)) *Request {
	if c.outstanding != nil {
		panic(fmt.Sprintf("rank %d: request %s is still outstanding",
			c.rank, c.outstanding.ID()))
	}
	c.nextAsyncOp++
	op := c.nextAsyncOp

	h := c.main.Handle
	done := h.Stream()
	abort := h.Stream()
	c.world.register(h, abort)
	h.Go(func(helper *simulator.Handle) {
		defer recoverAbort()
		run(&Comms{
			Handle:  helper,
			Port:    c.asyncPorts[c.rank],
			Ports:   c.asyncPorts,
			Network: c.network,
			Op:      op,
			Abort:   abort,
			box:     c.asyncBox,
		})
		helper.Schedule(done, nil, 0)
	})

	req := newRequest(func() bool {
		return h.TryPoll(done) != nil
	}, func() {
		if event := h.Poll(done, c.main.Abort); event.Stream == c.main.Abort {
			panic(abortSignal{})
		}
	})
	req.finish = func() {
		c.outstanding = nil
	}
	c.outstanding = req
	return req
}

func (c *Comm) startBlocking() {
	c.nextOp++
	c.main.Op = c.nextOp
}

func (c *Comm) checkPeer(rank, tag int) error {
	if rank < 0 || rank >= c.Size() {
		return fmt.Errorf("%w: %d", ErrRank, rank)
	}
	if tag < 0 {
		return fmt.Errorf("%w: %d", ErrTag, tag)
	}
	return nil
}
