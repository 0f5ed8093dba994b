package layer

import (
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

var allOptions = []Option{
	WithWeightType(tensor.Float64),
	WithActivation(Tanh),
	WithInit(InitXavier),
	WithBiasInit(InitOne),
	WithVisible(Gaussian),
	WithHidden(ReLUUnit),
	WithBatchSize(10),
	WithMomentum(),
	WithDecay(L2),
	WithSparsity(LocalTarget),
	WithBias(SimpleBias),
	DBNOnly(),
	Parallel(),
	Serial(),
	Verbose(),
	Shuffle(),
	WithClip(),
	WithFreeEnergy(),
	WithInitWeights(),
	WithCopies(1),
	WithElastic(1),
	WithRectifier(Abs),
	WithFactor(2),
	WithThreshold(0.2),
	WithKernel(5),
}

type descCtor func(opts ...Option) (Desc, error)

var ctors = map[Kind]descCtor{
	KindDense:     func(opts ...Option) (Desc, error) { return Dense(4, 3, opts...) },
	KindConv:      func(opts ...Option) (Desc, error) { return Conv(2, 5, 5, 3, 2, 2, opts...) },
	KindDeconv:    func(opts ...Option) (Desc, error) { return Deconv(2, 5, 5, 3, 2, 2, opts...) },
	KindMaxPool:   func(opts ...Option) (Desc, error) { return MaxPool(2, 4, 4, 1, 2, 2, opts...) },
	KindAvgPool:   func(opts ...Option) (Desc, error) { return AvgPool(2, 4, 4, 1, 2, 2, opts...) },
	KindUpsample:  func(opts ...Option) (Desc, error) { return Upsample(2, 2, 2, 1, 2, 2, opts...) },
	KindRBM:       func(opts ...Option) (Desc, error) { return DenseRBM(6, 4, opts...) },
	KindConvRBM:   func(opts ...Option) (Desc, error) { return ConvRBM(1, 6, 6, 2, 3, 3, opts...) },
	KindRectifier: Rectifier,
	KindScale:     Scale,
	KindBinarize:  Binarize,
	KindLCN:       LCN,
	KindRandom:    Random,
	KindPatches:   func(opts ...Option) (Desc, error) { return Patches(6, 6, 3, 3, 1, 1, opts...) },
	KindAugment:   Augment,
}

func TestAllowList(t *testing.T) {
	for k, ctor := range ctors {
		t.Run(k.String(), func(t *testing.T) {
			d, err := ctor()
			require.NoError(t, err, "defaults must be accepted")
			assert.Equal(t, k, d.Kind)

			for _, o := range allOptions {
				_, err := ctor(o)
				if Allowed(k, o.Kind()) {
					assert.NoError(t, err, "%v", o.Kind())
					continue
				}
				if assert.Error(t, err, "%v should be rejected", o.Kind()) {
					assert.Equal(t, ErrDisallowedOption, errors.Cause(err))
				}
			}
		})
	}
}

func TestDefaults(t *testing.T) {
	d := Must(Dense(10, 5))
	assert.Equal(t, tensor.Float32, d.Options.WeightType)
	assert.Equal(t, Sigmoid, d.Options.Activation)
	assert.Equal(t, InitLeCun, d.Options.Init)
	assert.Equal(t, InitZero, d.Options.BiasInit)
	assert.False(t, d.Dynamic)
	assert.Equal(t, 10, d.InputSize())
	assert.Equal(t, 5, d.OutputSize())

	dd := Must(DynDense())
	assert.True(t, dd.Dynamic)
	assert.Equal(t, 0, dd.InputSize())

	// transforms have no structural dimensions and are never dynamic
	assert.False(t, Must(Rectifier()).Dynamic)
}

func TestDerivedDims(t *testing.T) {
	c := Must(Conv(3, 28, 24, 8, 5, 3))
	assert.Equal(t, tensor.Shape{8, 24, 22}, c.Dims.OutputShape(c.Kind))

	dc := Must(Deconv(3, 28, 24, 8, 5, 3))
	assert.Equal(t, tensor.Shape{8, 32, 26}, dc.Dims.OutputShape(dc.Kind))

	p := Must(MaxPool(4, 9, 8, 2, 2, 3))
	assert.Equal(t, tensor.Shape{2, 4, 2}, p.Dims.OutputShape(p.Kind))

	u := Must(Upsample(2, 3, 4, 1, 2, 2))
	assert.Equal(t, tensor.Shape{2, 6, 8}, u.Dims.OutputShape(u.Kind))

	pt := Must(Patches(10, 12, 4, 5, 3, 2))
	assert.Equal(t, 3, pt.Dims.PatchRows())
	assert.Equal(t, 4, pt.Dims.PatchCols())
}

func TestConfigurationErrors(t *testing.T) {
	cases := []struct {
		name  string
		build func() (Desc, error)
		cause error
	}{
		{"gaussian hidden", func() (Desc, error) { return DenseRBM(4, 4, WithHidden(Gaussian)) }, ErrUnsupportedUnit},
		{"softmax visible", func() (Desc, error) { return DenseRBM(4, 4, WithVisible(SoftmaxUnit)) }, ErrUnsupportedUnit},
		{"softmax conv hidden", func() (Desc, error) { return ConvRBM(1, 4, 4, 2, 2, 2, WithHidden(SoftmaxUnit)) }, ErrUnsupportedUnit},
		{"rectifier method", func() (Desc, error) { return Rectifier(WithRectifier(RectifierMethod(3))) }, ErrUnimplemented},
		{"weight type", func() (Desc, error) { return Dense(4, 4, WithWeightType(tensor.Int)) }, ErrDtype},
		{"filter too large", func() (Desc, error) { return Conv(1, 4, 4, 2, 5, 2) }, ErrDims},
		{"patch too large", func() (Desc, error) { return Patches(4, 4, 5, 2, 1, 1) }, ErrDims},
		{"zero dims", func() (Desc, error) { return Dense(0, 4) }, ErrDims},
		{"even lcn kernel", func() (Desc, error) { return LCN(WithKernel(4)) }, ErrDims},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			_, err := c.build()
			if assert.Error(t, err) {
				assert.Equal(t, c.cause, errors.Cause(err))
			}
		})
	}
}

func TestStaticDyn(t *testing.T) {
	d := Must(Conv(1, 8, 8, 4, 3, 3, WithActivation(ReLU)))
	dyn := d.Dyn()
	assert.True(t, dyn.Dynamic)
	assert.Equal(t, ReLU, dyn.Options.Activation)

	s, err := dyn.Static(1, 8, 8, 4, 3, 3)
	require.NoError(t, err)
	assert.Equal(t, d.Dims, s.Dims)
	assert.False(t, s.Dynamic)

	t.Run("sample shape", func(t *testing.T) {
		s, err := Must(LCN(f64, WithKernel(3))).Static(1, 5, 5)
		require.NoError(t, err)
		assert.Equal(t, 25, s.InputSize())
		assert.Equal(t, 25, s.OutputSize())

		l, err := s.Layer()
		require.NoError(t, err)
		assert.True(t, l.Ready())
		assert.Equal(t, tensor.Shape{1, 5, 5}, l.InputShape())
		a := l.(Activator)
		require.NoError(t, a.ActivateHidden(a.PrepareOneOutput(), l.PrepareInput()))

		dyn, err := s.DynLayer()
		require.NoError(t, err)
		assert.False(t, dyn.Ready())

		flat, err := Must(LCN()).Static(25)
		require.NoError(t, err)
		_, err = flat.Layer()
		assert.Equal(t, ErrDims, errors.Cause(err))
	})
}
