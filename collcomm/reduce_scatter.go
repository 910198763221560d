package collcomm

// A ReduceScatterer reduces vectors that are distributed
// across nodes and leaves one segment of the result on
// each node.
//
// The counts argument has one entry per node and must sum
// to len(data); node i receives the reduced elements
// [sum(counts[:i]), sum(counts[:i+1])).
type ReduceScatterer[T Number] interface {
	ReduceScatter(c *Comms, data []T, counts []int, fn ReduceFn[T]) []T
}

// A NaiveReduceScatterer sends every segment directly to
// the node that owns it.
type NaiveReduceScatterer[T Number] struct{}

// ReduceScatter reduces the segment owned by the current
// node once every other node has sent its copy.
func (n NaiveReduceScatterer[T]) ReduceScatter(c *Comms, data []T, counts []int,
	fn ReduceFn[T]) []T {
	segments := splitSegments(data, counts)
	for i, segment := range segments {
		if i != c.Index() {
			c.Send(i, 0, cloneVec(segment), byteSize[T](len(segment)))
		}
	}

	gathered := make([][]T, c.Size())
	gathered[c.Index()] = segments[c.Index()]
	for i := 0; i < c.Size()-1; i++ {
		incoming, source := c.Recv(AnySource, 0)
		gathered[source] = incoming.([]T)
	}

	return fn(c.Handle, gathered...)
}

// A RingReduceScatterer passes partially reduced segments
// around a ring of nodes.
//
// In step s, node r sends segment (r-s-1) to node r+1 and
// folds the segment (r-s-2) it gets from node r-1 into its
// own data. After len(nodes)-1 steps, node r holds the
// fully reduced segment r.
type RingReduceScatterer[T Number] struct{}

// ReduceScatter runs the ring algorithm.
func (r RingReduceScatterer[T]) ReduceScatter(c *Comms, data []T, counts []int,
	fn ReduceFn[T]) []T {
	segments := splitSegments(data, counts)
	size, idx := c.Size(), c.Index()
	if size == 1 {
		return cloneVec(segments[0])
	}
	next, prev := (idx+1)%size, (idx+size-1)%size

	acc := cloneVec(segments[(idx+size-1)%size])
	for step := 0; step < size-1; step++ {
		c.Send(next, step, acc, byteSize[T](len(acc)))
		incoming, _ := c.Recv(prev, step)
		recvIdx := ((idx-step-2)%size + size) % size
		acc = fn(c.Handle, incoming.([]T), segments[recvIdx])
	}
	return acc
}

func splitSegments[T Number](data []T, counts []int) [][]T {
	res := make([][]T, len(counts))
	var offset int
	for i, count := range counts {
		res[i] = data[offset : offset+count]
		offset += count
	}
	if offset != len(data) {
		panic("counts do not cover data")
	}
	return res
}
