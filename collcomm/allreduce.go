package collcomm

// Allreducer is an algorithm that can apply a ReduceFn to
// vectors that are distributed across nodes.
//
// Every node must call Allreduce with vectors of the same
// length, and every node gets the reduced vector back.
type Allreducer[T Number] interface {
	Allreduce(c *Comms, data []T, fn ReduceFn[T]) []T
}

// A NaiveAllreducer sends every vector from every node to
// every other node.
type NaiveAllreducer[T Number] struct{}

// Allreduce runs fn() on all of the nodes' vectors on
// every node.
func (n NaiveAllreducer[T]) Allreduce(c *Comms, data []T, fn ReduceFn[T]) []T {
	gatheredVecs := make([][]T, c.Size())

	c.Bcast(0, cloneVec(data), byteSize[T](len(data)))

	for i := 0; i < len(gatheredVecs)-1; i++ {
		incoming, source := c.Recv(AnySource, 0)
		gatheredVecs[source] = incoming.([]T)
	}

	gatheredVecs[c.Index()] = data

	return fn(c.Handle, gatheredVecs...)
}

// A TreeAllreducer arranges the nodes in a binary tree
// and performs a reduction by going up the tree to a root
// node, and then back down the tree to the leaves.
type TreeAllreducer[T Number] struct{}

// Allreduce calls fn on vectors along a tree and returns
// the resulting reduced vector.
func (t TreeAllreducer[T]) Allreduce(c *Comms, data []T, fn ReduceFn[T]) []T {
	parent, children := positionInTree(c.Index(), c.Size())

	finalVector := t.Reduce(c, data, fn)
	if parent >= 0 {
		msg, _ := c.Recv(parent, 1)
		finalVector = msg.([]T)
	}

	for _, child := range children {
		c.Send(child, 1, cloneVec(finalVector), byteSize[T](len(finalVector)))
	}

	return finalVector
}

// Reduce performs the upward half of Allreduce.
//
// The reduced vector is returned on node 0, and nil is
// returned on every other node.
func (t TreeAllreducer[T]) Reduce(c *Comms, data []T, fn ReduceFn[T]) []T {
	parent, children := positionInTree(c.Index(), c.Size())

	messages := [][]T{data}
	for range children {
		msg, _ := c.Recv(AnySource, 0)
		messages = append(messages, msg.([]T))
	}

	finalVector := fn(c.Handle, messages...)
	if parent >= 0 {
		c.Send(parent, 0, finalVector, byteSize[T](len(finalVector)))
		return nil
	}
	return finalVector
}

// positionInTree returns the children and parent of a
// node in the reduction tree.
//
// There may be no children.
// The parent is -1 for the root node.
func positionInTree(idx, numNodes int) (parent int, children []int) {
	parent = -1
	for depth := uint(0); true; depth++ {
		rowSize := 1 << depth
		rowStart := rowSize - 1
		if idx >= rowStart+rowSize {
			continue
		}
		rowIdx := idx - rowStart
		if depth > 0 {
			parent = rowIdx/2 + (rowSize/2 - 1)
		}
		firstChild := rowIdx*2 + (rowSize*2 - 1)
		for i := 0; i < 2; i++ {
			if firstChild+i < numNodes {
				children = append(children, firstChild+i)
			}
		}
		return
	}
	panic("unreachable")
}
