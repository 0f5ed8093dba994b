package num

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/vecf32"
	"gorgonia.org/vecf64"
)

// The helpers in this file dispatch on the dtype of their arguments. They are used by the
// training drivers, which are not generic over the weight type.

func sameDtype(a, b *tensor.Dense) error {
	if a.Dtype() != b.Dtype() {
		return errors.Errorf("dtype mismatch: %v vs %v", a.Dtype(), b.Dtype())
	}
	if a.Shape().TotalSize() != b.Shape().TotalSize() {
		return errors.Errorf("size mismatch: %v vs %v", a.Shape(), b.Shape())
	}
	return nil
}

// scalar converts v to the element type of dt.
func scalar(dt tensor.Dtype, v float64) interface{} {
	if dt == tensor.Float32 {
		return float32(v)
	}
	return v
}

// Axpy computes y += alpha * x.
func Axpy(y, x *tensor.Dense, alpha float64) error {
	if err := sameDtype(y, x); err != nil {
		return err
	}
	switch y.Dtype() {
	case tensor.Float32:
		AddScaled(y.Float32s(), x.Float32s(), float32(alpha))
	case tensor.Float64:
		AddScaled(y.Float64s(), x.Float64s(), alpha)
	default:
		return errors.Errorf("unsupported dtype %v", y.Dtype())
	}
	return nil
}

// Add computes a += b.
func Add(a, b *tensor.Dense) error {
	if err := sameDtype(a, b); err != nil {
		return err
	}
	switch a.Dtype() {
	case tensor.Float32:
		vecf32.Add(a.Float32s(), b.Float32s())
	case tensor.Float64:
		vecf64.Add(a.Float64s(), b.Float64s())
	default:
		return errors.Errorf("unsupported dtype %v", a.Dtype())
	}
	return nil
}

// Scale computes a *= s.
func Scale(a *tensor.Dense, s float64) {
	switch a.Dtype() {
	case tensor.Float32:
		vecf32.Scale(a.Float32s(), float32(s))
	case tensor.Float64:
		vecf64.Scale(a.Float64s(), s)
	}
}

// Sign writes the sign of every element of src into dst (0 stays 0).
func Sign(dst, src *tensor.Dense) error {
	if err := sameDtype(dst, src); err != nil {
		return err
	}
	_, err := tensor.Sign(src, tensor.WithReuse(dst))
	return errors.WithStack(err)
}

// Copy copies the elements of src into dst. Both must have the same dtype and size.
func Copy(dst, src *tensor.Dense) error {
	if err := sameDtype(dst, src); err != nil {
		return err
	}
	switch dst.Dtype() {
	case tensor.Float32:
		copy(dst.Float32s(), src.Float32s())
	case tensor.Float64:
		copy(dst.Float64s(), src.Float64s())
	}
	return nil
}

// Fill sets every element of a to v.
func Fill(a *tensor.Dense, v float64) {
	must(a.Memset(scalar(a.Dtype(), v)))
}

// Finite reports whether a contains no NaN or infinite value.
func Finite(a *tensor.Dense) bool {
	switch a.Dtype() {
	case tensor.Float32:
		return IsFinite(a.Float32s())
	case tensor.Float64:
		return IsFinite(a.Float64s())
	}
	return true
}

// At returns the i-th element of the flat backing of a as a float64.
func At(a *tensor.Dense, i int) float64 {
	switch a.Dtype() {
	case tensor.Float32:
		return float64(a.Float32s()[i])
	case tensor.Float64:
		return a.Float64s()[i]
	}
	return 0
}

// Set sets the i-th element of the flat backing of a.
func Set(a *tensor.Dense, i int, v float64) {
	switch a.Dtype() {
	case tensor.Float32:
		a.Float32s()[i] = float32(v)
	case tensor.Float64:
		a.Float64s()[i] = v
	}
}

// Argmax returns the index of the largest element of a[start:end], relative to start.
func Argmax(a *tensor.Dense, start, end int) int {
	switch a.Dtype() {
	case tensor.Float32:
		return vecf32.Argmax(a.Float32s()[start:end])
	case tensor.Float64:
		return vecf64.Argmax(a.Float64s()[start:end])
	}
	return 0
}
