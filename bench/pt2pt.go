package bench

import (
	"fmt"

	"github.com/unixpickle/nbc-bench/collcomm"
)

const pingPongTag = 1

// RunLatency measures the round-trip latency between two
// ranks using a strided datatype.
//
// Rank 0 reports half of the average round-trip time for
// each message size.
func RunLatency(c *collcomm.Comm, cfg Config, rep *Reporter) error {
	return runPointToPoint(c, cfg, TestLatency, rep)
}

// RunMultiLatency is like RunLatency, but every rank in the
// first half of the group plays ping-pong with a rank in
// the second half at the same time.
//
// Rank 0 reports the latency averaged over all ranks.
func RunMultiLatency(c *collcomm.Comm, cfg Config, rep *Reporter) error {
	return runPointToPoint(c, cfg, TestMultiLatency, rep)
}

func runPointToPoint(c *collcomm.Comm, cfg Config, test Test, rep *Reporter) error {
	if err := cfg.Check(test, c.Size()); err != nil {
		return err
	}
	role, partner := ResolveRole(test, c.Rank(), c.Size())
	log := cfg.logger().With("rank", c.Rank(), "test", string(test))
	log.Debug("starting benchmark", "role", role.String(), "partner", partner)

	minSize := cfg.MinSize
	if cfg.BlockSize > minSize {
		minSize = cfg.BlockSize
	}
	pairs := c.Size() / 2

	if c.Rank() == 0 {
		rep.LatencyHeader(test)
	}
	for _, size := range PointSizes(minSize, cfg.MaxSize) {
		iters, skip := cfg.iterations(size)

		dt, err := collcomm.NewVector(size/cfg.BlockSize, cfg.BlockSize, cfg.StrideSize)
		if err != nil {
			return err
		}
		dt.Commit()
		sendBuf, err := allocBytes(dt.Extent(), cfg.MemLimit)
		if err != nil {
			return fmt.Errorf("rank %d: %w", c.Rank(), err)
		}
		recvBuf := make([]byte, len(sendBuf))
		fillBytes(sendBuf, 'a')
		fillBytes(recvBuf, 'b')

		c.Barrier()
		var start float64
		for i := 0; i < iters+skip; i++ {
			if i == skip {
				start = c.Time()
				if test == TestMultiLatency {
					c.Barrier()
				}
			}
			if err := pingPong(c, role, partner, dt, sendBuf, recvBuf); err != nil {
				return err
			}
		}
		end := c.Time()
		dt.Free()

		latency := (end - start) * 1e6 / (2 * float64(iters))
		if test == TestMultiLatency {
			total := c.Reduce([]float64{latency})
			if c.Rank() == 0 {
				latency = total[0] / float64(pairs*2)
			}
		}
		if c.Rank() == 0 {
			rep.LatencyRow(size, cfg.BlockSize, cfg.StrideSize, latency)
			log.Debug("finished size", "bytes", size, "latency_us", latency)
		}
	}
	return nil
}

func pingPong(c *collcomm.Comm, role Role, partner int, dt *collcomm.Vector,
	sendBuf, recvBuf []byte) error {
	send := func() error {
		req, err := c.Isend(sendBuf, dt, partner, pingPongTag)
		if err != nil {
			return err
		}
		req.Wait()
		return nil
	}
	recv := func() error {
		req, err := c.Irecv(recvBuf, dt, partner, pingPongTag)
		if err != nil {
			return err
		}
		req.Wait()
		return nil
	}
	switch role {
	case Sender:
		if err := send(); err != nil {
			return err
		}
		return recv()
	case Receiver:
		if err := recv(); err != nil {
			return err
		}
		return send()
	}
	panic(fmt.Sprintf("no ping-pong for role %s", role))
}

func fillBytes(buf []byte, b byte) {
	for i := range buf {
		buf[i] = b
	}
}
