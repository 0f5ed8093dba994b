package layer

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// AugmentLayer emits every input sample followed by Copies copies of it and Elastic
// elastically distorted variants.
type AugmentLayer[T num.Float] struct {
	base
	rnd *rand.Rand
}

func newAugment[T num.Float](d Desc) *AugmentLayer[T] {
	return &AugmentLayer[T]{
		base: base{desc: d},
		rnd:  rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (l *AugmentLayer[T]) init(d Dims) error {
	if l.desc.Options.Elastic > 0 && len(d.Shape) < 2 {
		return errors.Wrapf(ErrDims, "%v: elastic distortion needs samples of at least 2 dimensions, got %v", KindAugment, d.Shape)
	}
	l.dims = d
	l.ready = true
	return nil
}

func (l *AugmentLayer[T]) InitLayer(dims ...int) error { return initLayer(l, &l.base, dims) }
func (l *AugmentLayer[T]) DynInit(dyn Layer) error     { return nil }
func (l *AugmentLayer[T]) Parameters() int             { return 0 }

// SetRand sets the source of the elastic distortions.
func (l *AugmentLayer[T]) SetRand(r *rand.Rand) { l.rnd = r }

// Factor is the number of samples emitted per input sample.
func (l *AugmentLayer[T]) Factor() int { return 1 + l.desc.Options.Copies + l.desc.Options.Elastic }

func (l *AugmentLayer[T]) ShortString() string {
	o := l.desc.Options
	return fmt.Sprintf("Augment(copy=%d, elastic=%d)", o.Copies, o.Elastic)
}

func (l *AugmentLayer[T]) PrepareOneOutput() Samples { return make(Samples, 0, l.Factor()) }

func (l *AugmentLayer[T]) PrepareOutput(n int) []Samples {
	retVal := make([]Samples, n)
	for i := range retVal {
		retVal[i] = l.PrepareOneOutput()
	}
	return retVal
}

// planes returns the sample shape as channels x height x width.
func (l *AugmentLayer[T]) planes() (c, h, w int) {
	s := l.dims.Shape
	h, w = s[len(s)-2], s[len(s)-1]
	return tensor.Shape(s).TotalSize() / (h * w), h, w
}

func (l *AugmentLayer[T]) augment(out *Samples, in []T) {
	o := l.desc.Options
	*out = (*out)[:0]
	for i := 0; i < 1+o.Copies; i++ {
		p := l.prepareOne()
		copy(num.Raw[T](p), in)
		*out = append(*out, p)
	}
	for i := 0; i < o.Elastic; i++ {
		p := l.prepareOne()
		c, h, w := l.planes()
		num.Distort(num.Raw[T](p), in, c, h, w, num.DefaultElastic, l.rnd)
		*out = append(*out, p)
	}
}

func (l *AugmentLayer[T]) ActivateHidden(out *Samples, in *tensor.Dense) error {
	if err := l.check(); err != nil {
		return err
	}
	if err := num.Check(in, l.desc.Options.WeightType, l.InputSize()); err != nil {
		return errors.Wrapf(ErrShape, "%v input: %v", l.desc.Kind, err)
	}
	l.augment(out, num.Raw[T](in))
	return nil
}

func (l *AugmentLayer[T]) BatchActivateHidden(out []Samples, in *tensor.Dense) error {
	return batchMultiplex(&l.base, out, in, l.augment)
}

func (l *AugmentLayer[T]) NewContext(batch int) (*Context, error) { return l.newContext(batch, nil) }
func (l *AugmentLayer[T]) AdaptErrors(ctx *Context) error         { return l.checkContext(ctx) }
func (l *AugmentLayer[T]) BackwardBatch(out *tensor.Dense, ctx *Context) error {
	return ErrNotBackpropagable
}
func (l *AugmentLayer[T]) ComputeGradients(ctx *Context) error { return l.checkContext(ctx) }
