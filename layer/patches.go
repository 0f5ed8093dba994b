package layer

import (
	"fmt"

	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// PatchesLayer extracts Height x Width patches from a single channel NV1 x NV2 input every
// VStride rows and HStride columns, in row major order. Windows that would cross the
// border of the input are dropped.
type PatchesLayer[T num.Float] struct {
	base
}

func (l *PatchesLayer[T]) init(d Dims) error {
	l.dims = d
	l.ready = true
	return nil
}

func (l *PatchesLayer[T]) InitLayer(dims ...int) error { return initLayer(l, &l.base, dims) }
func (l *PatchesLayer[T]) DynInit(dyn Layer) error     { return dynInit(&l.base, dyn) }
func (l *PatchesLayer[T]) Parameters() int             { return 0 }

// Count is the number of patches extracted from one input.
func (l *PatchesLayer[T]) Count() int { return l.dims.PatchRows() * l.dims.PatchCols() }

func (l *PatchesLayer[T]) ShortString() string {
	d := l.dims
	return fmt.Sprintf("Patches%s: %dx%d -> (%dx%d, %dx%d) -> %d x %dx%d", dynSuffix(l.desc),
		d.NV1, d.NV2, d.Height, d.Width, d.VStride, d.HStride, l.Count(), d.Height, d.Width)
}

func (l *PatchesLayer[T]) PrepareOneOutput() Samples { return make(Samples, 0, l.Count()) }

func (l *PatchesLayer[T]) PrepareOutput(n int) []Samples {
	retVal := make([]Samples, n)
	for i := range retVal {
		retVal[i] = l.PrepareOneOutput()
	}
	return retVal
}

func (l *PatchesLayer[T]) extract(out *Samples, in []T) {
	d := l.dims
	*out = (*out)[:0]
	for i := 0; i+d.Height <= d.NV1; i += d.VStride {
		for j := 0; j+d.Width <= d.NV2; j += d.HStride {
			p := l.prepareOne()
			raw := num.Raw[T](p)
			for y := 0; y < d.Height; y++ {
				copy(raw[y*d.Width:(y+1)*d.Width], in[(i+y)*d.NV2+j:])
			}
			*out = append(*out, p)
		}
	}
}

func (l *PatchesLayer[T]) ActivateHidden(out *Samples, in *tensor.Dense) error {
	if err := l.check(); err != nil {
		return err
	}
	if err := num.Check(in, l.desc.Options.WeightType, l.InputSize()); err != nil {
		return errors.Wrapf(ErrShape, "%v input: %v", l.desc.Kind, err)
	}
	l.extract(out, num.Raw[T](in))
	return nil
}

func (l *PatchesLayer[T]) BatchActivateHidden(out []Samples, in *tensor.Dense) error {
	return batchMultiplex(&l.base, out, in, l.extract)
}

func (l *PatchesLayer[T]) NewContext(batch int) (*Context, error) { return l.newContext(batch, nil) }
func (l *PatchesLayer[T]) AdaptErrors(ctx *Context) error         { return l.checkContext(ctx) }
func (l *PatchesLayer[T]) BackwardBatch(out *tensor.Dense, ctx *Context) error {
	return ErrNotBackpropagable
}
func (l *PatchesLayer[T]) ComputeGradients(ctx *Context) error { return l.checkContext(ctx) }

// batchMultiplex runs fn over every sample of the batch in.
func batchMultiplex[T num.Float](b *base, out []Samples, in *tensor.Dense, fn func(*Samples, []T)) error {
	if err := b.check(); err != nil {
		return err
	}
	if in == nil || in.Dims() == 0 {
		return errors.Wrapf(ErrShape, "%v: batches must have a leading dimension", b.desc.Kind)
	}
	n := in.Shape()[0]
	if err := num.Check(in, b.desc.Options.WeightType, n*b.InputSize()); err != nil {
		return errors.Wrapf(ErrShape, "%v input batch: %v", b.desc.Kind, err)
	}
	if len(out) != n {
		return errors.Wrapf(ErrShape, "%v: %d outputs for %d samples", b.desc.Kind, len(out), n)
	}
	v := num.Raw[T](in)
	for i := 0; i < n; i++ {
		fn(&out[i], row(v, i, b.InputSize()))
	}
	return nil
}
