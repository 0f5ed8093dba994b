package layer

import (
	"fmt"

	"github.com/gorgonia/dbn/internal/num"
	"gorgonia.org/tensor"
)

// PoolLayer is a 3D max or average pooling layer, reducing an I1 x I2 x I3 volume by
// C1 x C2 x C3 blocks. Input elements outside of a complete block are ignored.
type PoolLayer[T num.Float] struct {
	base
}

func (l *PoolLayer[T]) pool() num.Pool {
	d := l.dims
	return num.Pool{I1: d.I1, I2: d.I2, I3: d.I3, C1: d.C1, C2: d.C2, C3: d.C3}
}

func (l *PoolLayer[T]) init(d Dims) error {
	l.dims = d
	l.ready = true
	return nil
}

func (l *PoolLayer[T]) InitLayer(dims ...int) error { return initLayer(l, &l.base, dims) }
func (l *PoolLayer[T]) DynInit(dyn Layer) error     { return dynInit(&l.base, dyn) }
func (l *PoolLayer[T]) Parameters() int             { return 0 }

func (l *PoolLayer[T]) ShortString() string {
	d := l.dims
	return fmt.Sprintf("%s%s: %dx%dx%d -> (%dx%dx%d) -> %s", l.desc.Kind, dynSuffix(l.desc),
		d.I1, d.I2, d.I3, d.C1, d.C2, d.C3, shapeString(l.OutputShape()))
}

func (l *PoolLayer[T]) PrepareOneOutput() *tensor.Dense   { return l.prepareOne() }
func (l *PoolLayer[T]) PrepareOutput(n int) *tensor.Dense { return l.prepareBatch(n) }

func (l *PoolLayer[T]) activate(out, in []T) {
	if l.desc.Kind == KindMaxPool {
		num.MaxPool(out, in, l.pool())
		return
	}
	num.AvgPool(out, in, l.pool())
}

func (l *PoolLayer[T]) ActivateHidden(out, in *tensor.Dense) error {
	if err := l.checkOne(out, in); err != nil {
		return err
	}
	l.activate(num.Raw[T](out), num.Raw[T](in))
	return nil
}

func (l *PoolLayer[T]) BatchActivateHidden(out, in *tensor.Dense) error {
	n, err := l.checkBatch(out, in)
	if err != nil {
		return err
	}
	p := l.pool()
	o, v := num.Raw[T](out), num.Raw[T](in)
	for i := 0; i < n; i++ {
		l.activate(row(o, i, p.OutSize()), row(v, i, p.InSize()))
	}
	return nil
}

func (l *PoolLayer[T]) NewContext(batch int) (*Context, error) { return l.newContext(batch, nil) }

func (l *PoolLayer[T]) AdaptErrors(ctx *Context) error { return l.checkContext(ctx) }

// BackwardBatch routes the errors of a max pooling to the maxima of every block, or spreads
// them evenly over the block for an average pooling. It needs the input and the output of
// the forward pass in ctx.
func (l *PoolLayer[T]) BackwardBatch(out *tensor.Dense, ctx *Context) error {
	if err := l.checkBackward(out, ctx); err != nil {
		return err
	}
	p := l.pool()
	o, e := num.Raw[T](out), num.Raw[T](ctx.Errors)
	in, fwd := num.Raw[T](ctx.Input), num.Raw[T](ctx.Output)
	for i := 0; i < ctx.Batch; i++ {
		ie, ei := row(o, i, p.InSize()), row(e, i, p.OutSize())
		if l.desc.Kind == KindMaxPool {
			num.MaxPoolBackward(ie, row(in, i, p.InSize()), row(fwd, i, p.OutSize()), ei, p)
		} else {
			num.AvgPoolBackward(ie, ei, p)
		}
	}
	return nil
}

func (l *PoolLayer[T]) ComputeGradients(ctx *Context) error { return l.checkContext(ctx) }
