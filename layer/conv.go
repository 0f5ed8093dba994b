package layer

import (
	"fmt"

	"github.com/gorgonia/dbn/internal/num"
	"gorgonia.org/tensor"
)

// ConvLayer is a valid convolution of an NC x NV1 x NV2 input by K filters of NW1 x NW2,
// producing a K x NH1 x NH2 output with NH = NV - NW + 1. W is [K, NC, NW1, NW2] and b
// holds one bias per filter.
type ConvLayer[T num.Float] struct {
	base
	params
	w, b *tensor.Dense
}

func (l *ConvLayer[T]) geom() num.Geom {
	d := l.dims
	return num.Geom{Small: d.K, Big: d.NC, B1: d.NV1, B2: d.NV2, W1: d.NW1, W2: d.NW2}
}

func (l *ConvLayer[T]) init(d Dims) error {
	o := l.desc.Options
	l.dims = d
	l.w = l.newTensor(d.K, d.NC, d.NW1, d.NW2)
	l.b = l.newTensor(d.K)
	fanIn, fanOut := d.NC*d.NW1*d.NW2, d.K*d.NW1*d.NW2
	num.Initialize(l.w, o.Init, fanIn, fanOut)
	num.Initialize(l.b, o.BiasInit, fanIn, fanOut)
	l.all = []*tensor.Dense{l.w, l.b}
	l.ready = true
	return nil
}

func (l *ConvLayer[T]) InitLayer(dims ...int) error { return initLayer(l, &l.base, dims) }
func (l *ConvLayer[T]) DynInit(dyn Layer) error     { return dynInit(&l.base, dyn) }

func (l *ConvLayer[T]) W() *tensor.Dense        { return l.w }
func (l *ConvLayer[T]) B() *tensor.Dense        { return l.b }
func (l *ConvLayer[T]) Params() []*tensor.Dense { return l.all }
func (l *ConvLayer[T]) Parameters() int         { return l.geom().FilterSize() }

func (l *ConvLayer[T]) ShortString() string {
	d := l.dims
	return fmt.Sprintf("Conv%s: %dx%dx%d -> (%dx%dx%d) -> %v -> %s", dynSuffix(l.desc),
		d.NC, d.NV1, d.NV2, d.K, d.NW1, d.NW2, l.desc.Options.Activation, shapeString(l.OutputShape()))
}

func (l *ConvLayer[T]) PrepareOneOutput() *tensor.Dense   { return l.prepareOne() }
func (l *ConvLayer[T]) PrepareOutput(n int) *tensor.Dense { return l.prepareBatch(n) }

func (l *ConvLayer[T]) activate(out, in []T) {
	g := l.geom()
	num.Correlate(out, in, num.Raw[T](l.w), g)
	num.AddChannelBias(out, num.Raw[T](l.b), g.S1()*g.S2())
	num.Apply(l.desc.Options.Activation, out, out)
}

func (l *ConvLayer[T]) ActivateHidden(out, in *tensor.Dense) error {
	if err := l.checkOne(out, in); err != nil {
		return err
	}
	l.activate(num.Raw[T](out), num.Raw[T](in))
	return nil
}

func (l *ConvLayer[T]) BatchActivateHidden(out, in *tensor.Dense) error {
	n, err := l.checkBatch(out, in)
	if err != nil {
		return err
	}
	g := l.geom()
	o, v := num.Raw[T](out), num.Raw[T](in)
	for i := 0; i < n; i++ {
		l.activate(row(o, i, g.SmallSize()), row(v, i, g.BigSize()))
	}
	return nil
}

func (l *ConvLayer[T]) NewContext(batch int) (*Context, error) { return l.newContext(batch, l.all) }

func (l *ConvLayer[T]) AdaptErrors(ctx *Context) error {
	if err := l.checkContext(ctx); err != nil {
		return err
	}
	adaptErrors[T](l.desc.Options.Activation, ctx)
	return nil
}

// BackwardBatch computes the full convolution of the errors by the filters.
func (l *ConvLayer[T]) BackwardBatch(out *tensor.Dense, ctx *Context) error {
	if err := l.checkBackward(out, ctx); err != nil {
		return err
	}
	g := l.geom()
	o, e, w := num.Raw[T](out), num.Raw[T](ctx.Errors), num.Raw[T](l.w)
	for i := 0; i < ctx.Batch; i++ {
		num.Scatter(row(o, i, g.BigSize()), row(e, i, g.SmallSize()), w, g)
	}
	return nil
}

func (l *ConvLayer[T]) ComputeGradients(ctx *Context) error {
	if err := l.checkContext(ctx); err != nil {
		return err
	}
	zeroAll[T](ctx.Grads)
	g := l.geom()
	gw, gb := num.Raw[T](ctx.Grads[0]), num.Raw[T](ctx.Grads[1])
	in, e := num.Raw[T](ctx.Input), num.Raw[T](ctx.Errors)
	for i := 0; i < ctx.Batch; i++ {
		ei := row(e, i, g.SmallSize())
		num.FilterGrad(gw, row(in, i, g.BigSize()), ei, g, 1)
		num.SumChannels(gb, ei, g.S1()*g.S2(), 1)
	}
	return nil
}
