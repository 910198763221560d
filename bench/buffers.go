package bench

import (
	"fmt"
)

// Buffers owns the send and receive buffers of one rank.
//
// The buffers are allocated once for the largest size, and
// Send and Recv are resized for each message size.
type Buffers struct {
	Send []float32
	Recv []float32

	send []float32
	recv []float32
}

// NewBuffers allocates room for sendElems and recvElems
// elements.
//
// If the buffers would exceed memLimit bytes, an error
// wrapping ErrResourceExhausted is returned.
func NewBuffers(sendElems, recvElems, memLimit int) (*Buffers, error) {
	total := (sendElems + recvElems) * ElemSize
	if memLimit > 0 && total > memLimit {
		return nil, fmt.Errorf("allocate %d bytes of buffers (limit %d): %w",
			total, memLimit, ErrResourceExhausted)
	}
	b := &Buffers{
		send: make([]float32, sendElems),
		recv: make([]float32, recvElems),
	}
	for i := range b.send {
		b.send[i] = 1
	}
	b.Resize(0, 0)
	return b, nil
}

// Resize sets the lengths of Send and Recv.
func (b *Buffers) Resize(count, recvCount int) {
	if count > len(b.send) || recvCount > len(b.recv) {
		panic(fmt.Sprintf("resize to %d/%d exceeds capacity %d/%d",
			count, recvCount, len(b.send), len(b.recv)))
	}
	b.Send = b.send[:count]
	b.Recv = b.recv[:recvCount]
}

// Free releases the buffers.
func (b *Buffers) Free() {
	b.Send, b.Recv, b.send, b.recv = nil, nil, nil, nil
}

// allocBytes allocates a byte buffer within a memory limit.
func allocBytes(n, memLimit int) ([]byte, error) {
	if memLimit > 0 && n > memLimit {
		return nil, fmt.Errorf("allocate %d bytes (limit %d): %w", n, memLimit, ErrResourceExhausted)
	}
	return make([]byte, n), nil
}
