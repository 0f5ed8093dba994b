package num

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestProducts(t *testing.T) {
	// W is [3, 2]
	w := []float64{
		1, 2,
		3, 4,
		5, 6,
	}
	out := make([]float64, 2)
	VecMat(out, []float64{1, 0, -1}, w)
	assert.Equal(t, []float64{-4, -4}, out)

	back := make([]float64, 3)
	MatVec(back, w, []float64{1, 1})
	assert.Equal(t, []float64{3, 7, 11}, back)

	g := make([]float64, 6)
	OuterAdd(g, []float64{1, 2, 3}, []float64{1, -1}, 1)
	OuterAdd(g, []float64{1, 1, 1}, []float64{1, 1}, -2)
	assert.Equal(t, []float64{-1, -3, 0, -4, 1, -5}, g)

	assert.Equal(t, 32.0, Dot(w[:3], w[3:]))
	assert.Equal(t, 0.0, Dot([]float64{}, []float64{}))
}

func TestProductsFloat32(t *testing.T) {
	w := []float32{1, 2, 3, 4, 5, 6}
	out := make([]float32, 2)
	VecMat(out, []float32{1, 1, 1}, w)
	assert.Equal(t, []float32{9, 12}, out)

	back := make([]float32, 3)
	MatVec(back, w, []float32{1, 0})
	assert.Equal(t, []float32{1, 3, 5}, back)
}

func TestProductsDegenerate(t *testing.T) {
	// a single hidden unit and a single visible unit
	out := make([]float64, 1)
	VecMat(out, []float64{1, 2, 3}, []float64{1, 1, 1})
	assert.Equal(t, []float64{6}, out)

	out = make([]float64, 3)
	VecMat(out, []float64{2}, []float64{1, 2, 3})
	assert.Equal(t, []float64{2, 4, 6}, out)

	back := make([]float64, 1)
	MatVec(back, []float64{4}, []float64{0.5})
	assert.Equal(t, []float64{2}, back)

	g := []float64{1}
	OuterAdd(g, []float64{2}, []float64{3}, -1)
	assert.Equal(t, []float64{-5}, g)
}

func TestAxpyKeepsOperand(t *testing.T) {
	for _, size := range []int{1, 4} {
		y := tensor.New(tensor.WithShape(size), tensor.WithBacking(make([]float64, size)))
		x := tensor.New(tensor.WithShape(size), tensor.WithBacking(make([]float64, size)))
		Fill(y, 1)
		Fill(x, 2)
		require.NoError(t, Axpy(y, x, -3))
		for i := 0; i < size; i++ {
			assert.Equal(t, -5.0, At(y, i))
			assert.Equal(t, 2.0, At(x, i))
		}
	}

	y32 := tensor.New(tensor.WithShape(2), tensor.WithBacking([]float32{1, 1}))
	x64 := tensor.New(tensor.WithShape(2), tensor.WithBacking([]float64{1, 1}))
	assert.Error(t, Axpy(y32, x64, 1))
}

func TestSignFill(t *testing.T) {
	src := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking([]float32{-3, 0, 0.5, -0.1}))
	dst := tensor.New(tensor.WithShape(2, 2), tensor.WithBacking(make([]float32, 4)))
	require.NoError(t, Sign(dst, src))
	assert.Equal(t, []float32{-1, 0, 1, -1}, dst.Float32s())
	assert.Equal(t, []float32{-3, 0, 0.5, -0.1}, src.Float32s())

	Fill(dst, 0.25)
	assert.Equal(t, []float32{0.25, 0.25, 0.25, 0.25}, dst.Float32s())

	a := tensor.New(tensor.WithShape(6), tensor.WithBacking([]float64{9, 1, 3, 3, 2, 0}))
	assert.Equal(t, 0, Argmax(a, 0, 6))
	assert.Equal(t, 1, Argmax(a, 1, 4))
	assert.Equal(t, 0, Argmax(a, 4, 6))
}
