package layer

import (
	"fmt"

	"github.com/gorgonia/dbn/internal/num"
	"gorgonia.org/tensor"
)

// DenseLayer is a fully connected layer computing f(b + v·W). W is [NV, NH] and b is [NH].
type DenseLayer[T num.Float] struct {
	base
	params
	w, b *tensor.Dense
}

func (l *DenseLayer[T]) init(d Dims) error {
	o := l.desc.Options
	l.dims = d
	l.w = l.newTensor(d.NV, d.NH)
	l.b = l.newTensor(d.NH)
	num.Initialize(l.w, o.Init, d.NV, d.NH)
	num.Initialize(l.b, o.BiasInit, d.NV, d.NH)
	l.all = []*tensor.Dense{l.w, l.b}
	l.ready = true
	return nil
}

func (l *DenseLayer[T]) InitLayer(dims ...int) error { return initLayer(l, &l.base, dims) }
func (l *DenseLayer[T]) DynInit(dyn Layer) error     { return dynInit(&l.base, dyn) }

// W returns the weights.
func (l *DenseLayer[T]) W() *tensor.Dense { return l.w }

// B returns the biases.
func (l *DenseLayer[T]) B() *tensor.Dense { return l.b }

func (l *DenseLayer[T]) Params() []*tensor.Dense { return l.all }
func (l *DenseLayer[T]) Parameters() int         { return l.dims.NV * l.dims.NH }

func (l *DenseLayer[T]) ShortString() string {
	return fmt.Sprintf("Dense%s: %d -> %v -> %d", dynSuffix(l.desc), l.dims.NV, l.desc.Options.Activation, l.dims.NH)
}

func (l *DenseLayer[T]) PrepareOneOutput() *tensor.Dense   { return l.prepareOne() }
func (l *DenseLayer[T]) PrepareOutput(n int) *tensor.Dense { return l.prepareBatch(n) }

func (l *DenseLayer[T]) activate(out, in []T) {
	num.VecMat(out, in, num.Raw[T](l.w))
	num.AddScaled(out, num.Raw[T](l.b), 1)
	num.Apply(l.desc.Options.Activation, out, out)
}

func (l *DenseLayer[T]) ActivateHidden(out, in *tensor.Dense) error {
	if err := l.checkOne(out, in); err != nil {
		return err
	}
	l.activate(num.Raw[T](out), num.Raw[T](in))
	return nil
}

func (l *DenseLayer[T]) BatchActivateHidden(out, in *tensor.Dense) error {
	n, err := l.checkBatch(out, in)
	if err != nil {
		return err
	}
	o, v := num.Raw[T](out), num.Raw[T](in)
	for i := 0; i < n; i++ {
		l.activate(row(o, i, l.dims.NH), row(v, i, l.dims.NV))
	}
	return nil
}

func (l *DenseLayer[T]) NewContext(batch int) (*Context, error) { return l.newContext(batch, l.all) }

func (l *DenseLayer[T]) AdaptErrors(ctx *Context) error {
	if err := l.checkContext(ctx); err != nil {
		return err
	}
	adaptErrors[T](l.desc.Options.Activation, ctx)
	return nil
}

func (l *DenseLayer[T]) BackwardBatch(out *tensor.Dense, ctx *Context) error {
	if err := l.checkBackward(out, ctx); err != nil {
		return err
	}
	o, e, w := num.Raw[T](out), num.Raw[T](ctx.Errors), num.Raw[T](l.w)
	for i := 0; i < ctx.Batch; i++ {
		num.MatVec(row(o, i, l.dims.NV), w, row(e, i, l.dims.NH))
	}
	return nil
}

func (l *DenseLayer[T]) ComputeGradients(ctx *Context) error {
	if err := l.checkContext(ctx); err != nil {
		return err
	}
	zeroAll[T](ctx.Grads)
	gw, gb := num.Raw[T](ctx.Grads[0]), num.Raw[T](ctx.Grads[1])
	in, e := num.Raw[T](ctx.Input), num.Raw[T](ctx.Errors)
	for i := 0; i < ctx.Batch; i++ {
		ei := row(e, i, l.dims.NH)
		num.OuterAdd(gw, row(in, i, l.dims.NV), ei, 1)
		num.AddScaled(gb, ei, 1)
	}
	return nil
}
