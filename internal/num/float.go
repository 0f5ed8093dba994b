// Package num is the numeric backend used by the layers. All kernels work on the backing
// slices of *tensor.Dense values and are generic over the two supported weight types.
//
// Every kernel that processes a batch does so by calling the single sample kernel once
// per sample, so that batched and unbatched paths produce bit identical results.
package num

import (
	"math"

	"github.com/chewxy/math32"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Float is the set of supported weight types.
type Float interface {
	float32 | float64
}

// DtypeOf returns the tensor dtype of T.
func DtypeOf[T Float]() tensor.Dtype {
	var z T
	if _, ok := any(z).(float32); ok {
		return tensor.Float32
	}
	return tensor.Float64
}

// Raw returns the backing slice of t. t must be of dtype T.
func Raw[T Float](t *tensor.Dense) []T {
	var z T
	if _, ok := any(z).(float32); ok {
		return any(t.Float32s()).([]T)
	}
	return any(t.Float64s()).([]T)
}

// New creates a zeroed tensor of dtype T.
func New[T Float](shape ...int) *tensor.Dense {
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(make([]T, tensor.Shape(shape).TotalSize())))
}

// Check verifies that t has the given dtype and exactly size elements.
func Check(t *tensor.Dense, dt tensor.Dtype, size int) error {
	if t == nil {
		return errors.New("nil tensor")
	}
	if t.Dtype() != dt {
		return errors.Errorf("expected dtype %v, got %v", dt, t.Dtype())
	}
	if t.Shape().TotalSize() != size {
		return errors.Errorf("expected %d elements, got %d (shape %v)", size, t.Shape().TotalSize(), t.Shape())
	}
	return nil
}

func exp[T Float](x T) T {
	switch v := any(x).(type) {
	case float32:
		return T(math32.Exp(v))
	default:
		return T(math.Exp(float64(x)))
	}
}

func abs[T Float](x T) T {
	switch v := any(x).(type) {
	case float32:
		return T(math32.Abs(v))
	default:
		return T(math.Abs(float64(x)))
	}
}

func log1p[T Float](x T) T { return T(math.Log1p(float64(x))) }

// Softplus computes log(1+exp(x)) without overflowing for large x.
func Softplus[T Float](x T) T {
	if x > 30 {
		return x
	}
	return log1p(exp(x))
}

// IsFinite reports whether every element of a is neither NaN nor infinite.
func IsFinite[T Float](a []T) bool {
	for _, v := range a {
		switch f := any(v).(type) {
		case float32:
			if math32.IsNaN(f) || math32.IsInf(f, 0) {
				return false
			}
		case float64:
			if math.IsNaN(f) || math.IsInf(f, 0) {
				return false
			}
		}
	}
	return true
}
