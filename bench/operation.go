package bench

import (
	"github.com/unixpickle/nbc-bench/collcomm"
)

// A Completion is the handle of an outstanding operation.
// A *collcomm.Request is a Completion.
type Completion interface {
	Test() bool
	Wait()
}

// An Operation is a non-blocking collective that can be
// benchmarked.
type Operation interface {
	// Name is used in report titles.
	Name() string

	// Test is the benchmark the operation belongs to.
	Test() Test

	// RecvCounts gets the number of output elements of each
	// rank for an n-element input.
	RecvCounts(n, groupSize int) []int

	// Issue starts the operation on buffers that were sized
	// by counts.
	Issue(c *collcomm.Comm, send, recv []float32, counts []int) (Completion, error)
}

// ReduceScatter sums the send buffers of all ranks and
// leaves a segment of the sum on each rank.
type ReduceScatter struct{}

func (ReduceScatter) Name() string {
	return "Non-blocking Reduce_scatter"
}

func (ReduceScatter) Test() Test {
	return TestIreduceScatter
}

func (ReduceScatter) RecvCounts(n, groupSize int) []int {
	return RecvCounts(n, groupSize)
}

func (ReduceScatter) Issue(c *collcomm.Comm, send, recv []float32,
	counts []int) (Completion, error) {
	return c.IreduceScatter(send, recv, counts)
}

// Allreduce sums the send buffers of all ranks into the
// receive buffer of every rank.
type Allreduce struct{}

func (Allreduce) Name() string {
	return "Non-blocking Allreduce"
}

func (Allreduce) Test() Test {
	return TestIallreduce
}

func (Allreduce) RecvCounts(n, groupSize int) []int {
	counts := make([]int, groupSize)
	for i := range counts {
		counts[i] = n
	}
	return counts
}

func (Allreduce) Issue(c *collcomm.Comm, send, recv []float32, counts []int) (Completion, error) {
	return c.Iallreduce(send, recv)
}

// OperationForTest gets the Operation of a collective
// test.
func OperationForTest(test Test) (Operation, bool) {
	switch test {
	case TestIreduceScatter:
		return ReduceScatter{}, true
	case TestIallreduce:
		return Allreduce{}, true
	}
	return nil, false
}
