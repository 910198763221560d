package collcomm

import (
	"unsafe"

	"github.com/unixpickle/nbc-bench/simulator"
)

// FlopTime is the amount of virtual time it takes to
// perform a single floating-point operation.
const FlopTime = 1e-9

// Number is the set of element types that collective
// operations can reduce.
type Number interface {
	~int | ~int32 | ~int64 | ~float32 | ~float64
}

// A ReduceFn is an operation that reduces many vectors
// into a single vector.
type ReduceFn[T Number] func(h *simulator.Handle, vecs ...[]T) []T

// Sum is a ReduceFn that computes a vector sum.
//
// The vectors are added in the order they are passed.
func Sum[T Number](h *simulator.Handle, vecs ...[]T) []T {
	for _, v := range vecs[1:] {
		if len(v) != len(vecs[0]) {
			panic("mismatching lengths")
		}
	}
	res := make([]T, len(vecs[0]))
	for _, v := range vecs {
		for i, x := range v {
			res[i] += x
		}
	}

	// Simulate computation time.
	h.Sleep(FlopTime * float64(len(vecs)*len(vecs[0])))

	return res
}

// byteSize computes the wire size of n elements of T.
func byteSize[T Number](n int) float64 {
	var zero T
	return float64(n) * float64(unsafe.Sizeof(zero))
}

func cloneVec[T Number](v []T) []T {
	return append(make([]T, 0, len(v)), v...)
}
