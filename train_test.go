package dbn

import (
	"math/rand"
	"testing"

	"github.com/gorgonia/dbn/layer"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorgonia.org/tensor"
)

// prototypes returns n binary samples, each a noisy copy of one of two complementary
// patterns, and their classes.
func prototypes(r *rand.Rand, n int) (*tensor.Dense, []int) {
	patterns := [][]float64{
		{1, 1, 1, 0, 0, 0},
		{0, 0, 0, 1, 1, 1},
	}
	data := tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(n, 6))
	classes := make([]int, n)
	raw := data.Float64s()
	for i := 0; i < n; i++ {
		c := i % 2
		classes[i] = c
		for j, v := range patterns[c] {
			if r.Float64() < 0.05 {
				v = 1 - v
			}
			raw[i*6+j] = v
		}
	}
	return data, classes
}

// separable returns n two dimensional samples of two classes split by x0 = x1.
func separable(r *rand.Rand, n int) (*tensor.Dense, *tensor.Dense) {
	data := tensor.New(tensor.Of(tensor.Float64), tensor.WithShape(n, 2))
	classes := make([]int, n)
	raw := data.Float64s()
	for i := 0; i < n; i++ {
		c := i % 2
		classes[i] = c
		hi, lo := 0.6+0.4*r.Float64(), 0.4*r.Float64()
		if c == 0 {
			raw[i*2], raw[i*2+1] = hi, lo
		} else {
			raw[i*2], raw[i*2+1] = lo, hi
		}
	}
	labels, err := OneHot(tensor.Float64, classes, 2)
	if err != nil {
		panic(err)
	}
	return data, labels
}

func TestPretrainReducesReconstructionError(t *testing.T) {
	conf := DefaultConfig()
	conf.PretrainRate = 0.1
	n, err := New(conf, mk(layer.DenseRBM(6, 4, f64, layer.WithBatchSize(5), layer.WithMomentum(), layer.Shuffle())))
	require.NoError(t, err)

	data, _ := prototypes(rand.New(rand.NewSource(1337)), 40)
	orig := data.Clone().(*tensor.Dense)
	require.NoError(t, n.Pretrain(data, 40))
	assert.Equal(t, orig.Float64s(), data.Float64s(), "pretraining must not touch the data")

	errs := n.Statistics.Reconstruction[0]
	require.Len(t, errs, 40)
	assert.Less(t, errs[len(errs)-1], errs[0])
	assert.Equal(t, []int{0}, n.Statistics.Pretrained)
}

func TestPretrainLayerwise(t *testing.T) {
	n, err := New(DefaultConfig(),
		mk(layer.DenseRBM(6, 4, f64, layer.WithBatchSize(4))),
		mk(layer.DenseRBM(4, 3, f64, layer.WithBatchSize(4), layer.WithDecay(layer.L2), layer.WithSparsity(layer.LocalTarget))),
		mk(layer.DenseRBM(3, 2, f64, layer.WithHidden(layer.SoftmaxUnit))),
	)
	require.NoError(t, err)
	data, _ := prototypes(rand.New(rand.NewSource(7)), 16)
	require.NoError(t, n.Pretrain(data, 3))

	// the softmax RBM at the top is left to fine-tuning
	assert.Equal(t, []int{0, 1}, n.Statistics.Pretrained)
	assert.Len(t, n.Statistics.Reconstruction[1], 3)
}

func TestPretrainConvRBM(t *testing.T) {
	n, err := New(DefaultConfig(),
		mk(layer.ConvRBM(1, 6, 6, 2, 3, 3, f64, layer.WithBatchSize(2), layer.WithSparsity(layer.Lee), layer.WithBias(layer.SimpleBias),
			layer.Verbose(), layer.WithFreeEnergy())),
		mk(layer.MaxPool(2, 4, 4, 1, 2, 2, f64)),
		mk(layer.Dense(8, 2, f64)),
	)
	require.NoError(t, err)
	data := randomBatch(rand.New(rand.NewSource(2)), 6, 1, 6, 6)
	Binarize(data, 0.5)
	require.NoError(t, n.Pretrain(data, 2))
	assert.Len(t, n.Statistics.Reconstruction[0], 2)
	assert.Contains(t, n.buf.String(), "free energy")
}

func TestFineTune(t *testing.T) {
	for _, u := range []Updater{Momentum, Adam, RMSProp} {
		t.Run(u.String(), func(t *testing.T) {
			conf := DefaultConfig()
			conf.BatchSize = 4
			conf.LearningRate = 0.5
			conf.WeightDecay = 0
			conf.FinalMomentum = conf.InitialMomentum
			conf.Updater = u
			if u != Momentum {
				conf.LearningRate = 0.05
			}
			n, err := New(conf, mk(layer.Dense(2, 2, f64, layer.WithActivation(layer.Softmax))))
			require.NoError(t, err)

			data, labels := separable(rand.New(rand.NewSource(42)), 30)
			e, err := n.FineTune(data, labels, 60)
			if err != nil {
				t.Fatalf("%+v", err)
			}
			assert.Equal(t, 0.0, e)
			assert.Len(t, n.Statistics.FineTuneError, 60)

			e2, err := n.Error(data, labels)
			require.NoError(t, err)
			assert.Equal(t, e, e2)
		})
	}
}

func TestFineTuneDeep(t *testing.T) {
	conf := DefaultConfig()
	conf.BatchSize = 5
	conf.LearningRate = 0.5
	n, err := New(conf,
		mk(layer.DenseRBM(6, 5, f64)),
		mk(layer.Dense(5, 2, f64, layer.WithActivation(layer.Softmax))),
	)
	require.NoError(t, err)
	data, classes := prototypes(rand.New(rand.NewSource(11)), 40)
	labels, err := OneHot(tensor.Float64, classes, 2)
	require.NoError(t, err)

	require.NoError(t, n.Pretrain(data, 5))
	e, err := n.FineTune(data, labels, 50)
	if err != nil {
		t.Fatalf("%+v", err)
	}
	assert.True(t, e < 0.1, "classification error %v", e)
}

func TestFineTuneChecksLabels(t *testing.T) {
	n, err := New(DefaultConfig(), mk(layer.Dense(2, 2, f64)))
	require.NoError(t, err)
	data, _ := separable(rand.New(rand.NewSource(1)), 4)

	wrong, err := OneHot(tensor.Float64, []int{0, 1, 2, 0}, 3)
	require.NoError(t, err)
	_, err = n.FineTune(data, wrong, 1)
	assert.Equal(t, layer.ErrShape, errors.Cause(err))

	short, err := OneHot(tensor.Float64, []int{0, 1}, 2)
	require.NoError(t, err)
	_, err = n.Error(data, short)
	assert.Equal(t, layer.ErrShape, errors.Cause(err))
}

func TestLRDrivers(t *testing.T) {
	l := mk(layer.Dense(2, 2, f64))
	w := l.(*layer.DenseLayer[float64]).W().Float64s()
	ls := []layer.Layer{l}

	conf := DefaultConfig()
	conf.LRDriver = Bold
	conf.LearningRate = 1
	d := newLRDriver(conf)

	d.begin(ls)
	e, rolledBack, err := d.end(ls, 0, 0.5)
	require.NoError(t, err)
	assert.False(t, rolledBack)
	assert.Equal(t, 0.5, e)
	assert.Equal(t, 1.0, d.rate)

	d.begin(ls)
	before := append([]float64(nil), w...)
	w[0] += 10
	e, rolledBack, err = d.end(ls, 1, 0.7)
	require.NoError(t, err)
	assert.True(t, rolledBack)
	assert.Equal(t, 0.5, e)
	assert.Equal(t, before, w)
	assert.Equal(t, conf.BoldDec, d.rate)

	d.begin(ls)
	_, rolledBack, err = d.end(ls, 2, 0.2)
	require.NoError(t, err)
	assert.False(t, rolledBack)
	assert.InDelta(t, conf.BoldDec*conf.BoldInc, d.rate, 1e-12)

	conf = DefaultConfig()
	conf.LRDriver = Step
	conf.StepEvery = 2
	conf.StepFactor = 0.1
	conf.LearningRate = 1
	d = newLRDriver(conf)
	for epoch := 0; epoch < 4; epoch++ {
		d.begin(ls)
		_, _, err := d.end(ls, epoch, 0)
		require.NoError(t, err)
	}
	assert.InDelta(t, 0.01, d.rate, 1e-12)
}
