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

var f64 = WithWeightType(tensor.Float64)

type layerCase struct {
	name  string
	desc  Desc
	shape []int // sample shape of layers without structural dimensions
}

func activatorCases() []layerCase {
	return []layerCase{
		{"dense", Must(Dense(7, 5, f64)), nil},
		{"dense softmax", Must(Dense(7, 5, f64, WithActivation(Softmax))), nil},
		{"conv", Must(Conv(2, 6, 5, 3, 3, 2, f64, WithActivation(Tanh))), nil},
		{"deconv", Must(Deconv(2, 4, 3, 3, 3, 2, f64, WithActivation(ReLU))), nil},
		{"maxpool", Must(MaxPool(2, 6, 4, 1, 2, 2, f64)), nil},
		{"avgpool", Must(AvgPool(2, 6, 4, 2, 3, 2, f64)), nil},
		{"upsample", Must(Upsample(2, 3, 2, 1, 2, 2, f64)), nil},
		{"rbm", Must(DenseRBM(8, 5, f64)), nil},
		{"rbm gaussian relu", Must(DenseRBM(8, 5, f64, WithVisible(Gaussian), WithHidden(ReLUUnit))), nil},
		{"rbm softmax", Must(DenseRBM(8, 5, f64, WithHidden(SoftmaxUnit))), nil},
		{"conv rbm", Must(ConvRBM(2, 6, 6, 3, 3, 3, f64)), nil},
		{"rectifier", Must(Rectifier(f64)), []int{2, 3, 3}},
		{"scale", Must(Scale(f64, WithFactor(0.5))), []int{5}},
		{"binarize", Must(Binarize(f64, WithThreshold(0.1))), []int{4, 4}},
		{"lcn", Must(LCN(f64, WithKernel(3))), []int{2, 5, 4}},
	}
}

func randomize(t *tensor.Dense, r *rand.Rand) {
	data := num.Raw[float64](t)
	for i := range data {
		data[i] = r.Float64()*2 - 1
	}
}

func newActivator(t *testing.T, c layerCase) Activator {
	l, err := c.desc.Layer()
	require.NoError(t, err)
	if c.shape != nil {
		require.NoError(t, l.InitLayer(c.shape...))
	}
	require.True(t, l.Ready())
	return l.(Activator)
}

// newDyn builds the dynamic counterpart of l and sizes it from l.
func newDyn(t *testing.T, l Layer) Activator {
	dyn, err := l.Desc().DynLayer()
	require.NoError(t, err)
	if l.Traits().HasDims {
		assert.False(t, dyn.Ready())
		err := dyn.(Activator).ActivateHidden(l.(Activator).PrepareOneOutput(), l.PrepareInput())
		assert.Equal(t, ErrUninitialized, errors.Cause(err))
	}
	require.NoError(t, l.DynInit(dyn))
	if !l.Traits().HasDims {
		require.NoError(t, dyn.InitLayer(l.InputShape()...))
	}
	return dyn.(Activator)
}

func copyParams(t *testing.T, dst, src Layer) {
	var s, d []*tensor.Dense
	switch sl := src.(type) {
	case RBM:
		s, d = sl.CDParams(), dst.(RBM).CDParams()
	case Parameterized:
		s, d = sl.Params(), dst.(Parameterized).Params()
	}
	for i := range s {
		require.NoError(t, num.Copy(d[i], s[i]))
	}
}

func TestShapeConsistency(t *testing.T) {
	for _, c := range activatorCases() {
		t.Run(c.name, func(t *testing.T) {
			l := newActivator(t, c)
			assert.Equal(t, l.OutputSize(), l.PrepareOneOutput().Shape().TotalSize())
			assert.Equal(t, l.InputSize(), l.PrepareInput().Shape().TotalSize())
			assert.Equal(t, tensor.Shape{3, l.OutputSize()}.TotalSize(), l.PrepareOutput(3).Shape().TotalSize())
			assert.Equal(t, OutputSize(l), l.OutputSize())
			assert.Equal(t, InputSize(l), l.InputSize())

			dyn := newDyn(t, l)
			assert.Equal(t, l.OutputSize(), dyn.PrepareOneOutput().Shape().TotalSize())
			assert.Equal(t, l.InputShape(), dyn.InputShape())
			assert.Equal(t, l.OutputShape(), dyn.OutputShape())
			assert.Equal(t, OutputSize(l), OutputSize(dyn))

			assert.NotEmpty(t, l.ShortString())
			assert.Equal(t, l.ShortString(), l.ShortString())
		})
	}
}

func TestBatchSingleEquivalence(t *testing.T) {
	r := rand.New(rand.NewSource(1337))
	const n = 4
	for _, c := range activatorCases() {
		t.Run(c.name, func(t *testing.T) {
			l := newActivator(t, c)
			x := l.PrepareInput()
			randomize(x, r)
			one := l.PrepareOneOutput()
			require.NoError(t, l.ActivateHidden(one, x))

			batch := tensor.New(tensor.WithShape(append(tensor.Shape{n}, l.InputShape()...)...), tensor.Of(tensor.Float64))
			for i := 0; i < n; i++ {
				copy(row(num.Raw[float64](batch), i, l.InputSize()), num.Raw[float64](x))
			}
			out := l.PrepareOutput(n)
			require.NoError(t, l.BatchActivateHidden(out, batch))
			for i := 0; i < n; i++ {
				assert.Equal(t, num.Raw[float64](one), row(num.Raw[float64](out), i, l.OutputSize()))
			}
		})
	}
}

func TestReshapeOnTheFly(t *testing.T) {
	l := newActivator(t, layerCase{desc: Must(Dense(6, 2, f64))})
	flat := tensor.New(tensor.WithShape(6), tensor.WithBacking([]float64{1, 2, 3, 4, 5, 6}))
	square := tensor.New(tensor.WithShape(2, 3), tensor.WithBacking([]float64{1, 2, 3, 4, 5, 6}))
	a, b := l.PrepareOneOutput(), l.PrepareOneOutput()
	require.NoError(t, l.ActivateHidden(a, flat))
	require.NoError(t, l.ActivateHidden(b, square))
	assert.Equal(t, a.Data(), b.Data())

	wrong := tensor.New(tensor.WithShape(5), tensor.Of(tensor.Float64))
	assert.Equal(t, ErrShape, errors.Cause(l.ActivateHidden(a, wrong)))
}

type pass struct {
	out   *tensor.Dense
	flat  *tensor.Dense
	ctx   *Context
	grads []*tensor.Dense
}

// trainPass runs a forward, backward and gradient pass over a fixed random batch.
func trainPass(t *testing.T, l Activator, seed int64) pass {
	const n = 3
	r := rand.New(rand.NewSource(seed))
	ctx, err := l.NewContext(n)
	require.NoError(t, err)
	randomize(ctx.Input, r)
	require.NoError(t, l.BatchActivateHidden(ctx.Output, ctx.Input))
	randomize(ctx.Errors, r)
	require.NoError(t, l.AdaptErrors(ctx))

	out := tensor.New(tensor.WithShape(append(tensor.Shape{n}, l.InputShape()...)...), tensor.Of(tensor.Float64))
	flat := tensor.New(tensor.WithShape(n, l.InputSize()), tensor.Of(tensor.Float64))
	require.NoError(t, l.BackwardBatch(out, ctx))
	require.NoError(t, l.BackwardBatch(flat, ctx))
	require.NoError(t, l.ComputeGradients(ctx))
	return pass{out: out, flat: flat, ctx: ctx, grads: ctx.Grads}
}

func TestStaticDynamicParity(t *testing.T) {
	for _, c := range activatorCases() {
		t.Run(c.name, func(t *testing.T) {
			l := newActivator(t, c)
			dyn := newDyn(t, l)
			assert.Equal(t, l.Traits().HasDims, dyn.Traits().Dynamic)
			copyParams(t, dyn, l)

			a := trainPass(t, l, 42)
			b := trainPass(t, dyn, 42)
			assert.Equal(t, a.ctx.Output.Data(), b.ctx.Output.Data())
			assert.Equal(t, a.out.Data(), b.out.Data())
			assert.Equal(t, a.out.Data(), a.flat.Data(), "canonical and flattened backward outputs differ")
			require.Equal(t, len(a.grads), len(b.grads))
			for i := range a.grads {
				assert.Equal(t, a.grads[i].Data(), b.grads[i].Data())
			}
		})
	}
}

func TestBackupRestore(t *testing.T) {
	descs := []Desc{
		Must(Dense(5, 4, f64)),
		Must(Conv(1, 5, 5, 2, 3, 3, f64)),
		Must(DenseRBM(5, 3, f64)),
	}
	r := rand.New(rand.NewSource(7))
	for _, d := range descs {
		t.Run(d.Kind.String(), func(t *testing.T) {
			l, err := d.Layer()
			require.NoError(t, err)
			p := l.(Parameterized)
			assert.False(t, p.HasBackup())
			assert.Equal(t, ErrNoBackup, errors.Cause(p.Restore()))

			var before [][]float64
			for _, pt := range p.Params() {
				before = append(before, append([]float64(nil), num.Raw[float64](pt)...))
			}
			p.Backup()
			for _, pt := range p.Params() {
				randomize(pt, r)
			}
			require.NoError(t, p.Restore())
			for i, pt := range p.Params() {
				assert.Equal(t, before[i], num.Raw[float64](pt))
			}

			// a second backup reuses the snapshot storage
			num.Fill(p.Params()[0], 3)
			p.Backup()
			num.Fill(p.Params()[0], 0)
			require.NoError(t, p.Restore())
			assert.Equal(t, 3.0, num.Raw[float64](p.Params()[0])[0])
		})
	}
}

func TestInitLayer(t *testing.T) {
	l, err := Must(Dense(3, 2)).Layer()
	require.NoError(t, err)
	assert.Equal(t, ErrAlreadyInitialized, errors.Cause(l.InitLayer(3, 2)))

	dyn, err := Must(DynDense()).Layer()
	require.NoError(t, err)
	assert.Equal(t, ErrDims, errors.Cause(dyn.InitLayer(3)))
	require.NoError(t, dyn.InitLayer(3, 2))
	assert.Equal(t, ErrAlreadyInitialized, errors.Cause(dyn.InitLayer(3, 2)))
	assert.Equal(t, 6, dyn.Parameters())

	other, err := Must(DynConv()).Layer()
	require.NoError(t, err)
	assert.Equal(t, ErrKindMismatch, errors.Cause(l.DynInit(other)))

	_, err = dyn.NewContext(2)
	assert.NoError(t, err)
	_, err = other.NewContext(2)
	assert.Equal(t, ErrUninitialized, errors.Cause(err))
}

func TestBackwardChecksShape(t *testing.T) {
	l := newActivator(t, layerCase{desc: Must(Dense(4, 3, f64))})
	ctx, err := l.NewContext(2)
	require.NoError(t, err)
	bad := tensor.New(tensor.WithShape(2, 3), tensor.Of(tensor.Float64))
	assert.Equal(t, ErrShape, errors.Cause(l.BackwardBatch(bad, ctx)))

	other, err := l.NewContext(5)
	require.NoError(t, err)
	out := tensor.New(tensor.WithShape(2, 4), tensor.Of(tensor.Float64))
	assert.Equal(t, ErrShape, errors.Cause(l.BackwardBatch(out, other)))
}
