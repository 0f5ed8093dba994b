package layer

import (
	"math/rand"
	"testing"

	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

func TestPatchesCoverage(t *testing.T) {
	cases := []struct {
		h, w, ph, pw, vs, hs int
	}{
		{6, 6, 3, 3, 1, 1},
		{10, 12, 4, 5, 3, 2},
		{7, 5, 7, 5, 1, 1},
		{9, 9, 2, 4, 4, 3}, // drops the last partial row and column
	}
	for _, c := range cases {
		d := Must(Patches(c.h, c.w, c.ph, c.pw, c.vs, c.hs, f64))
		l, err := d.Layer()
		require.NoError(t, err)
		m := l.(Multiplexer)

		in := tensor.New(tensor.WithShape(1, c.h, c.w), tensor.Of(tensor.Float64))
		data := num.Raw[float64](in)
		for i := range data {
			data[i] = float64(i)
		}

		out := m.PrepareOneOutput()
		require.NoError(t, m.ActivateHidden(&out, in))
		rows := (c.h-c.ph)/c.vs + 1
		cols := (c.w-c.pw)/c.hs + 1
		require.Len(t, out, rows*cols)
		assert.Equal(t, rows*cols, l.(*PatchesLayer[float64]).Count())

		for n, p := range out {
			assert.Equal(t, tensor.Shape{1, c.ph, c.pw}, p.Shape())
			i, j := (n/cols)*c.vs, (n%cols)*c.hs
			pd := num.Raw[float64](p)
			for y := 0; y < c.ph; y++ {
				for x := 0; x < c.pw; x++ {
					assert.Equal(t, data[(i+y)*c.w+j+x], pd[y*c.pw+x])
				}
			}
		}

		// the output is cleared on every call
		require.NoError(t, m.ActivateHidden(&out, in))
		assert.Len(t, out, rows*cols)
	}
}

func TestPatchesBatch(t *testing.T) {
	l, err := Must(Patches(4, 4, 2, 2, 2, 2, f64)).Layer()
	require.NoError(t, err)
	m := l.(Multiplexer)
	in := tensor.New(tensor.WithShape(3, 16), tensor.Of(tensor.Float64))
	randomize(in, rand.New(rand.NewSource(3)))

	out := m.PrepareOutput(3)
	require.NoError(t, m.BatchActivateHidden(out, in))
	for i := range out {
		one := m.PrepareOneOutput()
		sample := tensor.New(tensor.WithShape(16), tensor.WithBacking(append([]float64(nil), row(num.Raw[float64](in), i, 16)...)))
		require.NoError(t, m.ActivateHidden(&one, sample))
		require.Len(t, out[i], 4)
		for j := range one {
			assert.Equal(t, one[j].Data(), out[i][j].Data())
		}
	}

	assert.Equal(t, ErrShape, errors.Cause(m.BatchActivateHidden(out[:2], in)))
	ctx, err := l.NewContext(1)
	require.NoError(t, err)
	assert.Equal(t, ErrNotBackpropagable, l.BackwardBatch(ctx.Input, ctx))
}

func TestAugment(t *testing.T) {
	l, err := Must(Augment(f64, WithCopies(2), WithElastic(1))).Layer()
	require.NoError(t, err)
	assert.False(t, l.Ready())
	require.NoError(t, l.InitLayer(1, 5, 5))
	a := l.(*AugmentLayer[float64])
	a.SetRand(rand.New(rand.NewSource(1)))
	assert.Equal(t, 4, a.Factor())

	in := l.PrepareInput()
	randomize(in, rand.New(rand.NewSource(2)))
	out := a.PrepareOneOutput()
	require.NoError(t, a.ActivateHidden(&out, in))
	require.Len(t, out, 4)
	for i := 0; i < 3; i++ {
		assert.Equal(t, in.Data(), out[i].Data())
	}
	assert.Equal(t, in.Shape(), out[3].Shape())
	assert.NotEqual(t, in.Data(), out[3].Data())

	flat, err := Must(Augment(WithElastic(1))).Layer()
	require.NoError(t, err)
	err = flat.InitLayer(25)
	assert.Equal(t, ErrDims, errors.Cause(err))
	assert.Contains(t, err.Error(), "[25]")
}

func TestTransforms(t *testing.T) {
	in := tensor.New(tensor.WithShape(4), tensor.WithBacking([]float64{-2, -0.5, 0, 3}))
	cases := []struct {
		desc     Desc
		forward  []float64
		backward []float64
	}{
		{Must(Rectifier(f64)), []float64{2, 0.5, 0, 3}, []float64{-1, -1, 0, 1}},
		{Must(Scale(f64, WithFactor(-2))), []float64{4, 1, 0, -6}, []float64{-2, -2, -2, -2}},
		{Must(Binarize(f64, WithThreshold(0))), []float64{0, 0, 0, 1}, []float64{1, 1, 1, 1}},
	}
	for _, c := range cases {
		t.Run(c.desc.Kind.String(), func(t *testing.T) {
			l := newActivator(t, layerCase{desc: c.desc, shape: []int{4}})
			assert.True(t, l.Traits().HasSameType())
			out := l.PrepareOneOutput()
			require.NoError(t, l.ActivateHidden(out, in))
			assert.Equal(t, c.forward, out.Data())

			ctx, err := l.NewContext(1)
			require.NoError(t, err)
			require.NoError(t, num.Copy(ctx.Input, in))
			num.Fill(ctx.Errors, 1)
			back := tensor.New(tensor.WithShape(1, 4), tensor.Of(tensor.Float64))
			require.NoError(t, l.BackwardBatch(back, ctx))
			assert.Equal(t, c.backward, back.Data())
		})
	}
}

func TestLCNLayer(t *testing.T) {
	l := newActivator(t, layerCase{desc: Must(LCN(f64, WithKernel(3))), shape: []int{1, 3, 3}})
	assert.Equal(t, "LCN(3)", l.ShortString())
	in := l.PrepareInput()
	num.Fill(in, 2)
	out := l.PrepareOneOutput()
	require.NoError(t, l.ActivateHidden(out, in))
	assert.Equal(t, in.Shape(), out.Shape())
	assert.InDelta(t, 0, num.At(out, 4), 1e-12)

	ctx, err := l.NewContext(1)
	require.NoError(t, err)
	num.Fill(ctx.Errors, 0.5)
	back := tensor.New(tensor.WithShape(1, 9), tensor.Of(tensor.Float64))
	require.NoError(t, l.BackwardBatch(back, ctx))
	assert.Equal(t, ctx.Errors.Data(), back.Data())

	flat, err := Must(LCN()).Layer()
	require.NoError(t, err)
	err = flat.InitLayer(9)
	assert.Equal(t, ErrDims, errors.Cause(err))
	assert.Contains(t, err.Error(), "[9]")
}

func TestRandomLayer(t *testing.T) {
	l := newActivator(t, layerCase{desc: Must(Random(f64)), shape: []int{2, 3}})
	l.(*TransformLayer[float64]).SetRand(rand.New(rand.NewSource(1)))
	in := l.PrepareInput()
	a, b := l.PrepareOneOutput(), l.PrepareOneOutput()
	require.NoError(t, l.ActivateHidden(a, in))
	require.NoError(t, l.ActivateHidden(b, in))
	assert.Equal(t, in.Shape(), a.Shape())
	assert.NotEqual(t, a.Data(), b.Data())
	assert.True(t, num.Finite(a))

	ctx, err := l.NewContext(2)
	require.NoError(t, err)
	num.Fill(ctx.Errors, 1)
	back := tensor.New(tensor.WithShape(2, 6), tensor.Of(tensor.Float64))
	num.Fill(back, 1)
	require.NoError(t, l.BackwardBatch(back, ctx))
	assert.Equal(t, make([]float64, 12), back.Data())
}
