package num

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/blas/blas32"
	"gonum.org/v1/gonum/blas/blas64"
	"gorgonia.org/tensor"
)

// The products below wrap rows of a batch into tensor headers sharing their memory and run
// them through the BLAS engine of tensor. Shapes are checked by the layers, so an error here
// is a bug.

func vec[T Float](a []T) *tensor.Dense {
	return tensor.New(tensor.WithShape(len(a)), tensor.WithBacking(a))
}

func mat[T Float](a []T, r, c int) *tensor.Dense {
	return tensor.New(tensor.WithShape(r, c), tensor.WithBacking(a))
}

func must(err error) {
	if err != nil {
		panic(errors.WithStack(err))
	}
}

// VecMat computes out = v·W where W is a row major [len(v), len(out)] matrix.
func VecMat[T Float](out, v, w []T) {
	wt := mat(w, len(v), len(out))
	must(wt.T())
	_, err := wt.MatVecMul(vec(v), tensor.WithReuse(vec(out)))
	must(err)
}

// MatVec computes out = W·h where W is a row major [len(out), len(h)] matrix. It is the
// adjoint of VecMat.
func MatVec[T Float](out, w, h []T) {
	_, err := mat(w, len(out), len(h)).MatVecMul(vec(h), tensor.WithReuse(vec(out)))
	must(err)
}

// OuterAdd computes g += alpha * (a ⊗ b), g being a row major [len(a), len(b)] matrix.
func OuterAdd[T Float](g, a, b []T, alpha T) {
	x := vec(a)
	if alpha != 1 {
		s := make([]T, len(a))
		AddScaled(s, a, alpha)
		x = vec(s)
	}
	_, err := x.Outer(vec(b), tensor.WithIncr(mat(g, len(a), len(b))))
	must(err)
}

// AddScaled computes a += alpha * b.
func AddScaled[T Float](a, b []T, alpha T) {
	switch a := any(a).(type) {
	case []float32:
		blas32.Axpy(float32(alpha), blas32.Vector{N: len(a), Inc: 1, Data: any(b).([]float32)}, blas32.Vector{N: len(a), Inc: 1, Data: a})
	case []float64:
		blas64.Axpy(float64(alpha), blas64.Vector{N: len(a), Inc: 1, Data: any(b).([]float64)}, blas64.Vector{N: len(a), Inc: 1, Data: a})
	}
}

// Dot returns Σ a[i]*b[i].
func Dot[T Float](a, b []T) T {
	if len(a) == 0 {
		return 0
	}
	r, err := vec(a).Inner(vec(b))
	must(err)
	return r.(T)
}

// Zero sets every element of a to 0.
func Zero[T Float](a []T) { clear(a) }
