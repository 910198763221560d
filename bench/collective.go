package bench

import (
	"fmt"

	"github.com/unixpickle/nbc-bench/collcomm"
	"github.com/unixpickle/nbc-bench/compute"
)

// RunCollective benchmarks a non-blocking collective on
// one rank. Every rank of the group must call it.
//
// For each message size, a plain pass measures the latency
// of the operation, and an overlap pass computes for that
// long while the operation is outstanding.
// Rank 0 reports one row per size on rep, which may be
// nil.
//
// If validation finds wrong data, no larger sizes are run
// and a *ValidationError is returned on every rank.
func RunCollective(c *collcomm.Comm, cfg Config, op Operation, rep *Reporter) error {
	if err := cfg.Check(op.Test(), c.Size()); err != nil {
		return err
	}
	role, _ := ResolveRole(op.Test(), c.Rank(), c.Size())
	log := cfg.logger().With("rank", c.Rank(), "test", string(op.Test()))
	log.Debug("starting benchmark", "role", role.String(), "ranks", c.Size())

	sizes := CollectiveSizes(cfg.MinSize, cfg.MaxSize)
	if len(sizes) == 0 {
		return nil
	}
	maxElems := sizes[len(sizes)-1]
	maxRecv := op.RecvCounts(maxElems, c.Size())[c.Rank()]
	bufs, err := NewBuffers(maxElems, maxRecv, cfg.MemLimit)
	if err != nil {
		return fmt.Errorf("rank %d: %w", c.Rank(), err)
	}
	defer bufs.Free()

	r := &collectiveRun{
		comm:      c,
		cfg:       cfg,
		op:        op,
		bufs:      bufs,
		validator: NewValidator(cfg.pattern()),
		timer:     NewOverlapTimer(c),
		cal: compute.NewCalibrator(c, compute.NewSimKernel(c.Handle()),
			cfg.NumProbes),
	}

	if c.Rank() == 0 {
		rep.CollectiveHeader(op, cfg)
	}
	for _, n := range sizes {
		res, err := r.runSize(n)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			rep.CollectiveRow(cfg, res)
			log.Debug("finished size", "bytes", res.Size, "latency_us", res.Latency,
				"overlap_pct", res.Overlap)
		}
		if res.Errors != 0 {
			log.Warn("validation failed", "bytes", res.Size, "errors", res.Errors)
			return &ValidationError{Size: res.Size, Errors: res.Errors}
		}
	}
	return nil
}

type collectiveRun struct {
	comm      *collcomm.Comm
	cfg       Config
	op        Operation
	bufs      *Buffers
	validator *Validator
	timer     *OverlapTimer
	cal       *compute.Calibrator

	counts []int
	errors int
}

func (r *collectiveRun) runSize(n int) (Result, error) {
	c := r.comm
	size := n * ElemSize
	iters, skip := r.cfg.iterations(n)
	r.counts = r.op.RecvCounts(n, c.Size())
	r.bufs.Resize(n, r.counts[c.Rank()])
	r.errors = 0

	c.Barrier()
	r.timer.Reset(skip, false)
	for i := 0; i < iters+skip; i++ {
		if err := r.prepare(i); err != nil {
			return Result{}, err
		}
		if err := r.timer.Plain(i, r.issue); err != nil {
			return Result{}, err
		}
		c.Barrier()
		r.check(i)
	}
	c.Barrier()

	latency := r.timer.Sums().Total / float64(iters)
	r.cal.Calibrate(latency)
	c.Barrier()

	r.timer.Reset(skip, r.cfg.Graph || r.cfg.FullStats)
	for i := 0; i < iters+skip; i++ {
		if err := r.prepare(i); err != nil {
			return Result{}, err
		}
		if err := r.timer.Overlap(i, r.issue, r.cal, latency); err != nil {
			return Result{}, err
		}
		c.Barrier()
		r.check(i)
	}
	c.Barrier()

	return Aggregate(c, r.cfg, size, latency, r.timer.Sums(), iters, r.errors,
		r.timer.Totals()), nil
}

// prepare fills the buffers and runs the warm-up rounds
// before a validated iteration.
func (r *collectiveRun) prepare(iter int) error {
	if !r.cfg.Validate {
		return nil
	}
	r.validator.Fill(r.bufs.Send, r.bufs.Recv, iter)
	for j := 0; j < r.cfg.WarmupValidation; j++ {
		r.comm.Barrier()
		req, err := r.issue()
		if err != nil {
			return err
		}
		req.Wait()
	}
	r.comm.Barrier()
	return nil
}

func (r *collectiveRun) check(iter int) {
	if r.cfg.Validate && len(r.bufs.Recv) > 0 {
		r.errors += r.validator.Check(r.bufs.Recv, r.comm.Size(), iter)
	}
}

func (r *collectiveRun) issue() (Completion, error) {
	return r.op.Issue(r.comm, r.bufs.Send, r.bufs.Recv, r.counts)
}
