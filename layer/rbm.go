package layer

import (
	"fmt"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

const (
	staticRBMBatch  = 1
	dynamicRBMBatch = 25
)

// RBM is a restricted Boltzmann machine. As an Activator it computes the activation
// probabilities of its hidden units, which lets it be fine-tuned like a standard layer.
type RBM interface {
	Activator
	Parameterized

	RBMTraits() RBMTraits
	Visible() Unit
	Hidden() Unit

	// BatchSize is the pretraining batch size. Static RBMs take it from their descriptor;
	// dynamic RBMs own it.
	BatchSize() int
	SetBatchSize(n int) error
	SetRand(r *rand.Rand)

	W() *tensor.Dense
	B() *tensor.Dense // hidden biases
	C() *tensor.Dense // visible biases

	// CDParams returns W, B and C, the parameters trained by contrastive divergence.
	CDParams() []*tensor.Dense
	// HiddenPlane and VisiblePlane are the number of units sharing a bias.
	HiddenPlane() int
	VisiblePlane() int

	// ActivateHiddenUnits computes the probabilities and, if hs is not nil, a sample of the
	// hidden units of one visible sample.
	ActivateHiddenUnits(ha, hs, v *tensor.Dense) error
	// ActivateVisibleUnits computes the probabilities and, if vs is not nil, a sample of the
	// visible units of one hidden sample.
	ActivateVisibleUnits(va, vs, h *tensor.Dense) error

	// Gibbs runs the positive phase and k steps of Gibbs sampling over a batch, filling the
	// phase buffers owned by the layer.
	Gibbs(batch *tensor.Dense, k int) (*Phases, error)
	// CDGradients overwrites grads, aligned with CDParams, with the contrastive divergence
	// gradients of the phases summed over the batch.
	CDGradients(ph *Phases, grads []*tensor.Dense) error
	ReconstructionError(ph *Phases) float64

	Energy(v, h *tensor.Dense) (float64, error)
	FreeEnergy(v *tensor.Dense) (float64, error)

	// InitVisibleBiases sets the visible biases to log(p/(1-p)), p being the mean activity
	// of every visible unit in data.
	InitVisibleBiases(data *tensor.Dense) error
}

// Phases holds the buffers of contrastive divergence for one batch.
type Phases struct {
	Batch int

	V1       *tensor.Dense // data
	H1A, H1S *tensor.Dense // positive phase hidden probabilities and samples
	V2A, V2S *tensor.Dense // reconstruction
	H2A, H2S *tensor.Dense // negative phase hidden probabilities and samples
}

// RBMLayer implements both dense and convolutional RBMs. A dense RBM has W [NV, NH],
// B [NH] and C [NV]. A convolutional RBM has W [K, NC, NW1, NW2], one hidden bias per
// filter and one visible bias per channel.
type RBMLayer[T num.Float] struct {
	base
	params
	w, b, c *tensor.Dense

	batchSize int
	ph        *Phases
	rnd       *rand.Rand
}

func newRBM[T num.Float](d Desc) *RBMLayer[T] {
	bs := d.Options.BatchSize
	if bs == 0 {
		bs = staticRBMBatch
		if d.Dynamic {
			bs = dynamicRBMBatch
		}
	}
	return &RBMLayer[T]{
		base:      base{desc: d},
		batchSize: bs,
		rnd:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (l *RBMLayer[T]) conv() bool { return l.desc.Kind == KindConvRBM }

func (l *RBMLayer[T]) geom() num.Geom {
	d := l.dims
	return num.Geom{Small: d.K, Big: d.NC, B1: d.NV1, B2: d.NV2, W1: d.NW1, W2: d.NW2}
}

func (l *RBMLayer[T]) init(d Dims) error {
	l.dims = d
	relu := l.desc.Options.Hidden == ReLUUnit
	if l.conv() {
		l.w = l.newTensor(d.K, d.NC, d.NW1, d.NW2)
		l.b = l.newTensor(d.K)
		l.c = l.newTensor(d.NC)
		num.Gaussian(l.w, 0, 0.01)
		if !relu {
			num.Fill(l.b, -0.1)
		}
	} else {
		l.w = l.newTensor(d.NV, d.NH)
		l.b = l.newTensor(d.NH)
		l.c = l.newTensor(d.NV)
		std := 0.1
		if relu {
			std = 0.01
		}
		num.Gaussian(l.w, 0, std)
	}
	l.all = []*tensor.Dense{l.w, l.b, l.c}
	l.ready = true
	return nil
}

func (l *RBMLayer[T]) InitLayer(dims ...int) error { return initLayer(l, &l.base, dims) }

// DynInit also hands the pretraining batch size over to dyn.
func (l *RBMLayer[T]) DynInit(dyn Layer) error {
	if err := dynInit(&l.base, dyn); err != nil {
		return err
	}
	return dyn.(RBM).SetBatchSize(l.BatchSize())
}

func (l *RBMLayer[T]) RBMTraits() RBMTraits {
	rt, _ := RBMTraitsOf(l.desc)
	return rt
}

func (l *RBMLayer[T]) Visible() Unit { return l.desc.Options.Visible }
func (l *RBMLayer[T]) Hidden() Unit  { return l.desc.Options.Hidden }

func (l *RBMLayer[T]) BatchSize() int {
	if l.desc.Dynamic {
		return l.batchSize
	}
	if l.desc.Options.BatchSize > 0 {
		return l.desc.Options.BatchSize
	}
	return staticRBMBatch
}

// SetBatchSize sets the batch size of a dynamic RBM.
func (l *RBMLayer[T]) SetBatchSize(n int) error {
	if !l.desc.Dynamic {
		return errors.Wrap(ErrAlreadyInitialized, "the batch size of a static RBM is fixed")
	}
	if n <= 0 {
		return errors.Wrapf(ErrDims, "batch size %d", n)
	}
	l.batchSize = n
	return nil
}

func (l *RBMLayer[T]) SetRand(r *rand.Rand) { l.rnd = r }

func (l *RBMLayer[T]) W() *tensor.Dense          { return l.w }
func (l *RBMLayer[T]) B() *tensor.Dense          { return l.b }
func (l *RBMLayer[T]) C() *tensor.Dense          { return l.c }
func (l *RBMLayer[T]) Params() []*tensor.Dense   { return l.all[:2] }
func (l *RBMLayer[T]) CDParams() []*tensor.Dense { return l.all }

func (l *RBMLayer[T]) Parameters() int {
	if l.conv() {
		return l.geom().FilterSize()
	}
	return l.dims.NV * l.dims.NH
}

func (l *RBMLayer[T]) HiddenPlane() int {
	if l.conv() {
		g := l.geom()
		return g.S1() * g.S2()
	}
	return 1
}

func (l *RBMLayer[T]) VisiblePlane() int {
	if l.conv() {
		return l.dims.NV1 * l.dims.NV2
	}
	return 1
}

func (l *RBMLayer[T]) ShortString() string {
	d := l.dims
	if l.conv() {
		return fmt.Sprintf("CRBM%s(%v): %dx%dx%d -> (%dx%d) -> %dx%dx%d", dynSuffix(l.desc), l.Hidden(),
			d.NV1, d.NV2, d.NC, d.NW1, d.NW2, d.NH1(KindConvRBM), d.NH2(KindConvRBM), d.K)
	}
	return fmt.Sprintf("RBM%s(%v->%v): %d -> %d", dynSuffix(l.desc), l.Visible(), l.Hidden(), d.NV, d.NH)
}

func (l *RBMLayer[T]) PrepareOneOutput() *tensor.Dense   { return l.prepareOne() }
func (l *RBMLayer[T]) PrepareOutput(n int) *tensor.Dense { return l.prepareBatch(n) }

// hiddenInput computes the input of the hidden units of v, biases included.
func (l *RBMLayer[T]) hiddenInput(out, v []T) {
	if l.conv() {
		num.Correlate(out, v, num.Raw[T](l.w), l.geom())
	} else {
		num.VecMat(out, v, num.Raw[T](l.w))
	}
	num.AddChannelBias(out, num.Raw[T](l.b), l.HiddenPlane())
}

// visibleInput computes the input of the visible units of h, biases included.
func (l *RBMLayer[T]) visibleInput(out, h []T) {
	if l.conv() {
		num.Scatter(out, h, num.Raw[T](l.w), l.geom())
	} else {
		num.MatVec(out, num.Raw[T](l.w), h)
	}
	num.AddChannelBias(out, num.Raw[T](l.c), l.VisiblePlane())
}

func (l *RBMLayer[T]) hidden(ha, hs, v []T, r *rand.Rand) {
	l.hiddenInput(ha, v)
	u := l.Hidden()
	num.Apply(u.activation(), ha, ha)
	if hs == nil {
		return
	}
	switch u {
	case SoftmaxUnit:
		num.OneHot(hs, ha, r)
	case ReLUUnit:
		num.NReLU(hs, ha, r)
	default:
		num.Bernoulli(hs, ha, r)
	}
}

func (l *RBMLayer[T]) visible(va, vs, h []T, r *rand.Rand) {
	l.visibleInput(va, h)
	u := l.Visible()
	num.Apply(u.activation(), va, va)
	if vs == nil {
		return
	}
	if u == Gaussian {
		num.GaussianNoise(vs, va, r)
		return
	}
	num.Bernoulli(vs, va, r)
}

func (l *RBMLayer[T]) ActivateHiddenUnits(ha, hs, v *tensor.Dense) error {
	if err := l.checkOne(ha, v); err != nil {
		return err
	}
	var s []T
	if hs != nil {
		if err := num.Check(hs, l.desc.Options.WeightType, l.OutputSize()); err != nil {
			return errors.Wrapf(ErrShape, "hidden samples: %v", err)
		}
		s = num.Raw[T](hs)
	}
	l.hidden(num.Raw[T](ha), s, num.Raw[T](v), l.rnd)
	return nil
}

func (l *RBMLayer[T]) ActivateVisibleUnits(va, vs, h *tensor.Dense) error {
	if err := l.checkOne(h, va); err != nil {
		return err
	}
	var s []T
	if vs != nil {
		if err := num.Check(vs, l.desc.Options.WeightType, l.InputSize()); err != nil {
			return errors.Wrapf(ErrShape, "visible samples: %v", err)
		}
		s = num.Raw[T](vs)
	}
	l.visible(num.Raw[T](va), s, num.Raw[T](h), l.rnd)
	return nil
}

func (l *RBMLayer[T]) ActivateHidden(out, in *tensor.Dense) error {
	return l.ActivateHiddenUnits(out, nil, in)
}

func (l *RBMLayer[T]) BatchActivateHidden(out, in *tensor.Dense) error {
	n, err := l.checkBatch(out, in)
	if err != nil {
		return err
	}
	ni, no := l.InputSize(), l.OutputSize()
	o, v := num.Raw[T](out), num.Raw[T](in)
	for i := 0; i < n; i++ {
		l.hidden(row(o, i, no), nil, row(v, i, ni), nil)
	}
	return nil
}

func (l *RBMLayer[T]) phases(n int) *Phases {
	if l.ph != nil && l.ph.Batch == n {
		return l.ph
	}
	vis := append(tensor.Shape{n}, l.InputShape()...)
	hid := append(tensor.Shape{n}, l.OutputShape()...)
	l.ph = &Phases{
		Batch: n,
		V1:    l.newTensor(vis...),
		H1A:   l.newTensor(hid...),
		H1S:   l.newTensor(hid...),
		V2A:   l.newTensor(vis...),
		V2S:   l.newTensor(vis...),
		H2A:   l.newTensor(hid...),
		H2S:   l.newTensor(hid...),
	}
	return l.ph
}

func (l *RBMLayer[T]) Gibbs(batch *tensor.Dense, k int) (*Phases, error) {
	if err := l.check(); err != nil {
		return nil, err
	}
	if batch == nil || batch.Dims() == 0 {
		return nil, errors.Wrap(ErrShape, "batches must have a leading dimension")
	}
	n := batch.Shape()[0]
	ni, no := l.InputSize(), l.OutputSize()
	if err := num.Check(batch, l.desc.Options.WeightType, n*ni); err != nil {
		return nil, errors.Wrapf(ErrShape, "%v", err)
	}
	if k < 1 {
		k = 1
	}
	ph := l.phases(n)
	num.Copy(ph.V1, batch)

	v1, h1a, h1s := num.Raw[T](ph.V1), num.Raw[T](ph.H1A), num.Raw[T](ph.H1S)
	v2a, v2s := num.Raw[T](ph.V2A), num.Raw[T](ph.V2S)
	h2a, h2s := num.Raw[T](ph.H2A), num.Raw[T](ph.H2S)

	// one source per sample, so that parallel and serial runs agree
	seeds := make([]int64, n)
	for i := range seeds {
		seeds[i] = l.rnd.Int63()
	}
	step := func(i int) {
		r := rand.New(rand.NewSource(seeds[i]))
		l.hidden(row(h1a, i, no), row(h1s, i, no), row(v1, i, ni), r)
		hs := row(h1s, i, no)
		for s := 0; s < k; s++ {
			l.visible(row(v2a, i, ni), row(v2s, i, ni), hs, r)
			l.hidden(row(h2a, i, no), row(h2s, i, no), row(v2a, i, ni), r)
			hs = row(h2s, i, no)
		}
	}

	if l.RBMTraits().Parallel {
		var wg sync.WaitGroup
		wg.Add(n)
		for i := 0; i < n; i++ {
			go func(i int) {
				defer wg.Done()
				step(i)
			}(i)
		}
		wg.Wait()
	} else {
		for i := 0; i < n; i++ {
			step(i)
		}
	}
	return ph, nil
}

func (l *RBMLayer[T]) CDGradients(ph *Phases, grads []*tensor.Dense) error {
	if err := l.check(); err != nil {
		return err
	}
	if ph == nil || len(grads) != 3 {
		return errors.Wrap(ErrShape, "contrastive divergence needs phases and three gradients")
	}
	for i, g := range grads {
		if err := num.Check(g, l.desc.Options.WeightType, l.all[i].Shape().TotalSize()); err != nil {
			return errors.Wrapf(ErrShape, "gradient %d: %v", i, err)
		}
	}
	zeroAll[T](grads)
	gw, gb, gc := num.Raw[T](grads[0]), num.Raw[T](grads[1]), num.Raw[T](grads[2])
	v1, h1a := num.Raw[T](ph.V1), num.Raw[T](ph.H1A)
	v2a, h2a := num.Raw[T](ph.V2A), num.Raw[T](ph.H2A)
	ni, no := l.InputSize(), l.OutputSize()
	hp, vp := l.HiddenPlane(), l.VisiblePlane()
	for i := 0; i < ph.Batch; i++ {
		pv, ph1 := row(v1, i, ni), row(h1a, i, no)
		nv, nh := row(v2a, i, ni), row(h2a, i, no)
		if l.conv() {
			g := l.geom()
			num.FilterGrad(gw, pv, ph1, g, 1)
			num.FilterGrad(gw, nv, nh, g, -1)
		} else {
			num.OuterAdd(gw, pv, ph1, 1)
			num.OuterAdd(gw, nv, nh, -1)
		}
		num.SumChannels(gb, ph1, hp, 1)
		num.SumChannels(gb, nh, hp, -1)
		num.SumChannels(gc, pv, vp, 1)
		num.SumChannels(gc, nv, vp, -1)
	}
	return nil
}

// ReconstructionError is the mean squared difference between the data and its
// reconstruction.
func (l *RBMLayer[T]) ReconstructionError(ph *Phases) float64 {
	v1, v2a := num.Raw[T](ph.V1), num.Raw[T](ph.V2A)
	if len(v1) == 0 {
		return 0
	}
	var acc float64
	for i := range v1 {
		d := float64(v1[i] - v2a[i])
		acc += d * d
	}
	return acc / float64(len(v1))
}

// visibleTerm is the visible part of the energy: -c·v for binary units and
// Σ(v-c)²/2 for gaussian units.
func (l *RBMLayer[T]) visibleTerm(v []T) float64 {
	c := num.Raw[T](l.c)
	vp := l.VisiblePlane()
	var acc float64
	for i, vi := range v {
		ci := float64(c[i/vp])
		if l.Visible() == Gaussian {
			d := float64(vi) - ci
			acc += d * d / 2
		} else {
			acc -= ci * float64(vi)
		}
	}
	return acc
}

func (l *RBMLayer[T]) Energy(v, h *tensor.Dense) (float64, error) {
	if err := l.checkOne(h, v); err != nil {
		return 0, err
	}
	vr, hr := num.Raw[T](v), num.Raw[T](h)
	x := make([]T, l.OutputSize())
	l.hiddenInput(x, vr) // b + Wv
	return l.visibleTerm(vr) - float64(num.Dot(x, hr)), nil
}

func (l *RBMLayer[T]) FreeEnergy(v *tensor.Dense) (float64, error) {
	if err := l.check(); err != nil {
		return 0, err
	}
	if err := num.Check(v, l.desc.Options.WeightType, l.InputSize()); err != nil {
		return 0, errors.Wrapf(ErrShape, "%v", err)
	}
	vr := num.Raw[T](v)
	x := make([]T, l.OutputSize())
	l.hiddenInput(x, vr)
	return l.visibleTerm(vr) - l.hiddenTerm(x), nil
}

// hiddenTerm is log Σ_h exp(x·h) over the states h of the hidden units, x being their
// input.
func (l *RBMLayer[T]) hiddenTerm(x []T) float64 {
	var acc float64
	switch l.desc.Options.Hidden {
	case SoftmaxUnit:
		// exactly one unit is on
		m := math.Inf(-1)
		for _, xi := range x {
			m = math.Max(m, float64(xi))
		}
		for _, xi := range x {
			acc += math.Exp(float64(xi) - m)
		}
		return m + math.Log(acc)
	case ReLUUnit:
		// a rectified unit is the sum of binary copies biased by -0.5, -1.5, ...; the copies
		// beyond x+40 add nothing representable
		for _, xi := range x {
			for off := 0.5; off < float64(xi)+40; off++ {
				acc += float64(num.Softplus(xi - T(off)))
			}
		}
		return acc
	}
	for _, xi := range x {
		acc += float64(num.Softplus(xi))
	}
	return acc
}

func (l *RBMLayer[T]) InitVisibleBiases(data *tensor.Dense) error {
	if err := l.check(); err != nil {
		return err
	}
	if data == nil || data.Dims() == 0 {
		return errors.Wrap(ErrShape, "data must have a leading dimension")
	}
	n, ni := data.Shape()[0], l.InputSize()
	if err := num.Check(data, l.desc.Options.WeightType, n*ni); err != nil {
		return errors.Wrapf(ErrShape, "%v", err)
	}
	vp := l.VisiblePlane()
	c := num.Raw[T](l.c)
	sums := make([]float64, len(c))
	d := num.Raw[T](data)
	for i := 0; i < n; i++ {
		for j, v := range row(d, i, ni) {
			sums[j/vp] += float64(v)
		}
	}
	for j := range c {
		p := sums[j] / float64(n*vp)
		p = math.Min(math.Max(p, 1e-4), 1-1e-4)
		c[j] = T(math.Log(p / (1 - p)))
	}
	return nil
}

func (l *RBMLayer[T]) NewContext(batch int) (*Context, error) {
	return l.newContext(batch, l.Params())
}

func (l *RBMLayer[T]) AdaptErrors(ctx *Context) error {
	if err := l.checkContext(ctx); err != nil {
		return err
	}
	adaptErrors[T](l.Hidden().activation(), ctx)
	return nil
}

func (l *RBMLayer[T]) BackwardBatch(out *tensor.Dense, ctx *Context) error {
	if err := l.checkBackward(out, ctx); err != nil {
		return err
	}
	ni, no := l.InputSize(), l.OutputSize()
	o, e, w := num.Raw[T](out), num.Raw[T](ctx.Errors), num.Raw[T](l.w)
	for i := 0; i < ctx.Batch; i++ {
		if l.conv() {
			num.Scatter(row(o, i, ni), row(e, i, no), w, l.geom())
		} else {
			num.MatVec(row(o, i, ni), w, row(e, i, no))
		}
	}
	return nil
}

func (l *RBMLayer[T]) ComputeGradients(ctx *Context) error {
	if err := l.checkContext(ctx); err != nil {
		return err
	}
	zeroAll[T](ctx.Grads)
	gw, gb := num.Raw[T](ctx.Grads[0]), num.Raw[T](ctx.Grads[1])
	in, e := num.Raw[T](ctx.Input), num.Raw[T](ctx.Errors)
	ni, no := l.InputSize(), l.OutputSize()
	for i := 0; i < ctx.Batch; i++ {
		vi, ei := row(in, i, ni), row(e, i, no)
		if l.conv() {
			num.FilterGrad(gw, vi, ei, l.geom(), 1)
		} else {
			num.OuterAdd(gw, vi, ei, 1)
		}
		num.SumChannels(gb, ei, l.HiddenPlane(), 1)
	}
	return nil
}
