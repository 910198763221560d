package collcomm

import (
	"github.com/unixpickle/essentials"
)

// A StreamAllreducer splits a vector into chunks and
// pipelines them through a chain of nodes.
//
// Chunks are reduced on their way from the first node to
// the last one, and the last node then streams the
// reduced chunks around the ring back to everyone else.
// Each node works on one chunk while the next chunk is
// still on the wire, so large vectors keep every link
// busy.
type StreamAllreducer[T Number] struct {
	// Granularity multiplies the number of chunks, which
	// is otherwise equal to the number of nodes.
	//
	// If Granularity is 0, it is treated as 1.
	Granularity int
}

// Allreduce streams the chunks through the chain and
// returns the reduced vector.
func (s StreamAllreducer[T]) Allreduce(c *Comms, data []T, fn ReduceFn[T]) []T {
	n, rank := c.Size(), c.Index()
	if len(data) == 0 || n == 1 {
		return cloneVec(data)
	}
	bounds := s.chunkBounds(len(data), n)
	numChunks := len(bounds) - 1
	result := make([]T, len(data))
	last := n - 1

	for i := 0; i < numChunks; i++ {
		local := data[bounds[i]:bounds[i+1]]
		if rank == 0 {
			c.Send(1, i, cloneVec(local), byteSize[T](len(local)))
			continue
		}
		partial, _ := c.Recv(rank-1, i)
		acc := fn(c.Handle, partial.([]T), local)
		if rank == last {
			copy(result[bounds[i]:], acc)
		} else {
			c.Send(rank+1, i, acc, byteSize[T](len(acc)))
		}
	}

	// The last node feeds the ring, and the node right
	// before it is where the ring ends.
	for i := 0; i < numChunks; i++ {
		step := numChunks + i
		chunk := result[bounds[i]:bounds[i+1]]
		if rank != last {
			payload, _ := c.Recv((rank+n-1)%n, step)
			copy(chunk, payload.([]T))
		}
		if rank != last-1 {
			c.Send((rank+1)%n, step, cloneVec(chunk), byteSize[T](len(chunk)))
		}
	}
	return result
}

// chunkBounds returns the start offset of every chunk,
// followed by size.
func (s StreamAllreducer[T]) chunkBounds(size, numNodes int) []int {
	granularity := essentials.MaxInt(s.Granularity, 1)
	chunkSize := essentials.MaxInt(size/(numNodes*granularity), 1)
	var bounds []int
	for i := 0; i < size; i += chunkSize {
		bounds = append(bounds, i)
	}
	return append(bounds, size)
}
