package layer

import (
	"fmt"

	"github.com/gorgonia/dbn/internal/num"
	"gorgonia.org/tensor"
)

// UpsampleLayer replicates every element of an I1 x I2 x I3 volume over a C1 x C2 x C3
// block.
type UpsampleLayer[T num.Float] struct {
	base
}

// pool describes the output volume reduced to the input.
func (l *UpsampleLayer[T]) pool() num.Pool {
	d := l.dims
	return num.Pool{I1: d.I1 * d.C1, I2: d.I2 * d.C2, I3: d.I3 * d.C3, C1: d.C1, C2: d.C2, C3: d.C3}
}

func (l *UpsampleLayer[T]) init(d Dims) error {
	l.dims = d
	l.ready = true
	return nil
}

func (l *UpsampleLayer[T]) InitLayer(dims ...int) error { return initLayer(l, &l.base, dims) }
func (l *UpsampleLayer[T]) DynInit(dyn Layer) error     { return dynInit(&l.base, dyn) }
func (l *UpsampleLayer[T]) Parameters() int             { return 0 }

func (l *UpsampleLayer[T]) ShortString() string {
	d := l.dims
	return fmt.Sprintf("Upsample%s: %dx%dx%d -> (%dx%dx%d) -> %s", dynSuffix(l.desc),
		d.I1, d.I2, d.I3, d.C1, d.C2, d.C3, shapeString(l.OutputShape()))
}

func (l *UpsampleLayer[T]) PrepareOneOutput() *tensor.Dense   { return l.prepareOne() }
func (l *UpsampleLayer[T]) PrepareOutput(n int) *tensor.Dense { return l.prepareBatch(n) }

func (l *UpsampleLayer[T]) ActivateHidden(out, in *tensor.Dense) error {
	if err := l.checkOne(out, in); err != nil {
		return err
	}
	num.Upsample(num.Raw[T](out), num.Raw[T](in), l.pool())
	return nil
}

func (l *UpsampleLayer[T]) BatchActivateHidden(out, in *tensor.Dense) error {
	n, err := l.checkBatch(out, in)
	if err != nil {
		return err
	}
	p := l.pool()
	o, v := num.Raw[T](out), num.Raw[T](in)
	for i := 0; i < n; i++ {
		num.Upsample(row(o, i, p.InSize()), row(v, i, p.OutSize()), p)
	}
	return nil
}

func (l *UpsampleLayer[T]) NewContext(batch int) (*Context, error) { return l.newContext(batch, nil) }

func (l *UpsampleLayer[T]) AdaptErrors(ctx *Context) error { return l.checkContext(ctx) }

// BackwardBatch sums the errors of every block.
func (l *UpsampleLayer[T]) BackwardBatch(out *tensor.Dense, ctx *Context) error {
	if err := l.checkBackward(out, ctx); err != nil {
		return err
	}
	p := l.pool()
	o, e := num.Raw[T](out), num.Raw[T](ctx.Errors)
	for i := 0; i < ctx.Batch; i++ {
		num.UpsampleBackward(row(o, i, p.OutSize()), row(e, i, p.InSize()), p)
	}
	return nil
}

func (l *UpsampleLayer[T]) ComputeGradients(ctx *Context) error { return l.checkContext(ctx) }
