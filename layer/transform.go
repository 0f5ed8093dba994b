package layer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// TransformLayer is a parameterless layer whose output has the shape of its input: a
// rectifier, a scale, a binarize, a local contrast normalization or a random layer. The
// shape is given to InitLayer or inferred by the network from the preceding layer.
type TransformLayer[T num.Float] struct {
	base
	rnd    *rand.Rand
	kernel []T // LCN window
}

func newTransform[T num.Float](d Desc) *TransformLayer[T] {
	l := &TransformLayer[T]{base: base{desc: d}}
	if d.Kind == KindRandom {
		l.rnd = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return l
}

func (l *TransformLayer[T]) init(d Dims) error {
	if l.desc.Kind == KindLCN {
		if len(d.Shape) < 2 {
			return errors.Wrapf(ErrDims, "%v needs samples of at least 2 dimensions, got %v", KindLCN, d.Shape)
		}
		l.kernel = num.GaussianKernel[T](l.desc.Options.Kernel, num.LCNSigma)
	}
	l.dims = d
	l.ready = true
	return nil
}

func (l *TransformLayer[T]) InitLayer(dims ...int) error { return initLayer(l, &l.base, dims) }
func (l *TransformLayer[T]) DynInit(dyn Layer) error     { return nil }
func (l *TransformLayer[T]) Parameters() int             { return 0 }

// SetRand sets the noise source of a random layer.
func (l *TransformLayer[T]) SetRand(r *rand.Rand) { l.rnd = r }

func (l *TransformLayer[T]) ShortString() string {
	o := l.desc.Options
	switch l.desc.Kind {
	case KindRectifier:
		return fmt.Sprintf("Rectifier(%v)", o.Rectifier)
	case KindScale:
		return fmt.Sprintf("Scale(%v)", o.Factor)
	case KindLCN:
		return fmt.Sprintf("LCN(%d)", o.Kernel)
	case KindRandom:
		return "Random"
	}
	return fmt.Sprintf("Binarize(%v)", o.Threshold)
}

func (l *TransformLayer[T]) PrepareOneOutput() *tensor.Dense   { return l.prepareOne() }
func (l *TransformLayer[T]) PrepareOutput(n int) *tensor.Dense { return l.prepareBatch(n) }

func (l *TransformLayer[T]) activate(out, in []T) {
	o := l.desc.Options
	switch l.desc.Kind {
	case KindRectifier:
		for i, v := range in {
			if v < 0 {
				v = -v
			}
			out[i] = v
		}
	case KindScale:
		f := T(o.Factor)
		for i, v := range in {
			out[i] = f * v
		}
	case KindBinarize:
		t := T(o.Threshold)
		for i, v := range in {
			if v > t {
				out[i] = 1
			} else {
				out[i] = 0
			}
		}
	case KindLCN:
		s := l.dims.Shape
		num.LCN(out, in, l.kernel, s[len(s)-2], s[len(s)-1])
	case KindRandom:
		for i := range out {
			out[i] = T(l.rnd.NormFloat64())
		}
	}
}

func (l *TransformLayer[T]) ActivateHidden(out, in *tensor.Dense) error {
	if err := l.checkOne(out, in); err != nil {
		return err
	}
	l.activate(num.Raw[T](out), num.Raw[T](in))
	return nil
}

func (l *TransformLayer[T]) BatchActivateHidden(out, in *tensor.Dense) error {
	n, err := l.checkBatch(out, in)
	if err != nil {
		return err
	}
	size := l.InputSize()
	o, v := num.Raw[T](out), num.Raw[T](in)
	for i := 0; i < n; i++ {
		l.activate(row(o, i, size), row(v, i, size))
	}
	return nil
}

func (l *TransformLayer[T]) NewContext(batch int) (*Context, error) { return l.newContext(batch, nil) }

func (l *TransformLayer[T]) AdaptErrors(ctx *Context) error { return l.checkContext(ctx) }

// BackwardBatch multiplies the errors by the derivative of the transform. Binarization and
// contrast normalization pass the errors through unchanged; the noise of a random layer
// does not depend on its input.
func (l *TransformLayer[T]) BackwardBatch(out *tensor.Dense, ctx *Context) error {
	if err := l.checkBackward(out, ctx); err != nil {
		return err
	}
	o, e, in := num.Raw[T](out), num.Raw[T](ctx.Errors), num.Raw[T](ctx.Input)
	switch l.desc.Kind {
	case KindRectifier:
		for i, v := range in {
			switch {
			case v > 0:
				o[i] = e[i]
			case v < 0:
				o[i] = -e[i]
			default:
				o[i] = 0
			}
		}
	case KindScale:
		f := T(l.desc.Options.Factor)
		for i, v := range e {
			o[i] = f * v
		}
	case KindRandom:
		num.Zero(o)
	default:
		copy(o, e)
	}
	return nil
}

func (l *TransformLayer[T]) ComputeGradients(ctx *Context) error { return l.checkContext(ctx) }
