package collcomm

import (
	"errors"
	"fmt"
)

var (
	ErrNotCommitted = errors.New("datatype is not committed")
	ErrTruncated    = errors.New("buffer too small for datatype")
)

// A Vector describes a strided layout of bytes: Count
// blocks of BlockLen bytes, where consecutive blocks begin
// Stride bytes apart.
//
// A Vector must be committed before it is used for
// communication, and it may not be used after it is freed.
type Vector struct {
	Count    int
	BlockLen int
	Stride   int

	committed bool
	freed     bool
}

// NewVector creates an uncommitted Vector.
func NewVector(count, blockLen, stride int) (*Vector, error) {
	if count < 0 || blockLen < 0 {
		return nil, fmt.Errorf("invalid vector count %d or block length %d", count, blockLen)
	}
	if stride < blockLen {
		return nil, fmt.Errorf("vector stride %d is smaller than block length %d",
			stride, blockLen)
	}
	return &Vector{Count: count, BlockLen: blockLen, Stride: stride}, nil
}

// Contiguous creates a committed Vector for n consecutive
// bytes.
func Contiguous(n int) *Vector {
	return &Vector{Count: 1, BlockLen: n, Stride: n, committed: true}
}

// Commit makes the type usable for communication.
func (v *Vector) Commit() {
	if v.freed {
		panic("commit of freed datatype")
	}
	v.committed = true
}

// Free releases the type.
// Freeing a type twice is a programming error.
func (v *Vector) Free() {
	if v.freed {
		panic("datatype freed twice")
	}
	v.freed = true
	v.committed = false
}

// Size gets the number of bytes of data described by the
// type, which is also its size on the wire.
func (v *Vector) Size() int {
	return v.Count * v.BlockLen
}

// Extent gets the span of memory covered by the type.
func (v *Vector) Extent() int {
	if v.Count == 0 {
		return 0
	}
	return (v.Count-1)*v.Stride + v.BlockLen
}

// Pack copies the data described by the type out of buf.
func (v *Vector) Pack(buf []byte) ([]byte, error) {
	if err := v.check(buf); err != nil {
		return nil, err
	}
	res := make([]byte, 0, v.Size())
	for i := 0; i < v.Count; i++ {
		start := i * v.Stride
		res = append(res, buf[start:start+v.BlockLen]...)
	}
	return res, nil
}

// Unpack scatters packed data into buf.
func (v *Vector) Unpack(packed, buf []byte) error {
	if err := v.check(buf); err != nil {
		return err
	}
	if len(packed) != v.Size() {
		return fmt.Errorf("%w: got %d packed bytes but expected %d",
			ErrTruncated, len(packed), v.Size())
	}
	for i := 0; i < v.Count; i++ {
		copy(buf[i*v.Stride:], packed[i*v.BlockLen:(i+1)*v.BlockLen])
	}
	return nil
}

func (v *Vector) check(buf []byte) error {
	if !v.committed {
		return ErrNotCommitted
	}
	if len(buf) < v.Extent() {
		return fmt.Errorf("%w: %d bytes for extent %d", ErrTruncated, len(buf), v.Extent())
	}
	return nil
}
