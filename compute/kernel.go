package compute

import (
	"github.com/unixpickle/nbc-bench/collcomm"
	"github.com/unixpickle/nbc-bench/simulator"
	"gonum.org/v1/gonum/mat"
)

// Dim is the side length of the matrix that a kernel
// multiplies by in one unit of work.
const Dim = 25

// FlopsPerUnit is the number of floating-point operations
// in one unit of kernel work.
const FlopsPerUnit = 2 * Dim * Dim

// A Kernel performs busy work in discrete units.
type Kernel interface {
	Run(units int)
}

// MatVecKernel performs one dense matrix-vector product
// per unit of work.
type MatVecKernel struct {
	a *mat.Dense
	x *mat.VecDense
	y *mat.VecDense
}

// NewMatVecKernel creates a kernel with a constant matrix
// and input vector.
func NewMatVecKernel() *MatVecKernel {
	a := mat.NewDense(Dim, Dim, nil)
	x := mat.NewVecDense(Dim, nil)
	for i := 0; i < Dim; i++ {
		x.SetVec(i, 1)
		for j := 0; j < Dim; j++ {
			a.Set(i, j, 2)
		}
	}
	return &MatVecKernel{a: a, x: x, y: mat.NewVecDense(Dim, nil)}
}

// Run performs units matrix-vector products.
func (m *MatVecKernel) Run(units int) {
	for i := 0; i < units; i++ {
		m.y.MulVec(m.a, m.x)
	}
}

// Result gets the output of the last product.
func (m *MatVecKernel) Result() mat.Vector {
	return m.y
}

// SimKernel runs on a simulated rank.
// It performs a single real product per Run, and charges
// the virtual time that all of the units would take.
type SimKernel struct {
	Handle *simulator.Handle
	inner  *MatVecKernel
}

// NewSimKernel creates a SimKernel for a rank.
func NewSimKernel(h *simulator.Handle) *SimKernel {
	return &SimKernel{Handle: h, inner: NewMatVecKernel()}
}

// Run charges the virtual time of units products.
func (s *SimKernel) Run(units int) {
	if units <= 0 {
		return
	}
	s.inner.Run(1)
	s.Handle.Sleep(float64(units*FlopsPerUnit) * collcomm.FlopTime)
}
