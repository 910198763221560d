package simulator

import (
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// A LinkMatrix holds one value per directed link between
// nodes, with the source node as the row and the
// destination node as the column.
//
// Switchers use it to hold demands on the way in and
// transfer rates on the way out.
type LinkMatrix struct {
	dense *mat.Dense
}

// NewLinkMatrix creates an all-zero matrix for n nodes.
func NewLinkMatrix(n int) *LinkMatrix {
	if n == 0 {
		return &LinkMatrix{}
	}
	return &LinkMatrix{dense: mat.NewDense(n, n, nil)}
}

// NumNodes returns the number of nodes.
func (l *LinkMatrix) NumNodes() int {
	if l.dense == nil {
		return 0
	}
	r, _ := l.dense.Dims()
	return r
}

// At gets the value of the link from src to dst.
func (l *LinkMatrix) At(src, dst int) float64 {
	return l.dense.At(src, dst)
}

// Set the value of the link from src to dst.
func (l *LinkMatrix) Set(src, dst int, value float64) {
	l.dense.Set(src, dst, value)
}

// Add adds to the value of the link from src to dst.
func (l *LinkMatrix) Add(src, dst int, delta float64) {
	l.dense.Set(src, dst, l.dense.At(src, dst)+delta)
}

// Egress sums the links leaving src.
func (l *LinkMatrix) Egress(src int) float64 {
	return floats.Sum(l.dense.RawRowView(src))
}

// Ingress sums the links entering dst.
func (l *LinkMatrix) Ingress(dst int) float64 {
	return mat.Sum(l.dense.ColView(dst))
}

// ScaleEgress multiplies every link leaving src.
func (l *LinkMatrix) ScaleEgress(src int, scale float64) {
	floats.Scale(scale, l.dense.RawRowView(src))
}

// ScaleIngress multiplies every link entering dst.
func (l *LinkMatrix) ScaleIngress(dst int, scale float64) {
	for src := 0; src < l.NumNodes(); src++ {
		l.dense.Set(src, dst, l.dense.At(src, dst)*scale)
	}
}
