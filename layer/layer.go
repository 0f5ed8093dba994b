package layer

import (
	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Layer is the contract shared by every layer kind. The forward methods live in Activator
// or Multiplexer depending on whether the layer emits one or several samples per input.
//
// All tensors handed to a layer must have the layer's weight type. Batches are tensors whose
// first dimension is the number of samples; the remaining dimensions may either be the
// canonical sample shape or be flattened into one.
type Layer interface {
	Kind() Kind
	Traits() Traits
	Desc() Desc

	// Ready reports whether the dimensions of the layer are known.
	Ready() bool
	// Dims returns the runtime dimensions of the layer.
	Dims() Dims

	InputSize() int
	OutputSize() int
	InputShape() tensor.Shape
	OutputShape() tensor.Shape
	// Parameters is the number of weights, biases excluded.
	Parameters() int
	ShortString() string

	// InitLayer sets the dimensions of a dynamic layer, or the sample shape of a layer
	// without structural dimensions. It may be called once.
	InitLayer(dims ...int) error
	// DynInit copies the dimensions of the layer into dyn, an uninitialised dynamic layer
	// of the same kind.
	DynInit(dyn Layer) error

	PrepareInput() *tensor.Dense
	NewContext(batch int) (*Context, error)

	// AdaptErrors multiplies ctx.Errors by the derivative of the activation function.
	AdaptErrors(ctx *Context) error
	// BackwardBatch writes into out the errors of ctx propagated to the input space.
	BackwardBatch(out *tensor.Dense, ctx *Context) error
	// ComputeGradients overwrites ctx.Grads with the gradients of the batch.
	ComputeGradients(ctx *Context) error
}

// Activator is a layer that produces one output sample per input sample.
type Activator interface {
	Layer

	// ActivateHidden computes the output of a single sample. in may have any shape with
	// InputSize elements.
	ActivateHidden(out, in *tensor.Dense) error
	// BatchActivateHidden computes the output of a batch. The result is bit identical to
	// calling ActivateHidden on every sample.
	BatchActivateHidden(out, in *tensor.Dense) error

	PrepareOneOutput() *tensor.Dense
	PrepareOutput(n int) *tensor.Dense
}

// Samples is the output of a multiplexing layer for one input sample.
type Samples []*tensor.Dense

// Multiplexer is a layer that produces an ordered sequence of samples per input sample.
// Multiplexers cannot propagate errors and must come first in a network.
type Multiplexer interface {
	Layer

	// ActivateHidden clears out and refills it with the samples produced from in.
	ActivateHidden(out *Samples, in *tensor.Dense) error
	BatchActivateHidden(out []Samples, in *tensor.Dense) error

	PrepareOneOutput() Samples
	PrepareOutput(n int) []Samples
}

// Parameterized is a layer that owns trainable parameters.
type Parameterized interface {
	Layer

	// Params returns the parameters trained by gradient descent, in the order of the
	// gradients of a Context.
	Params() []*tensor.Dense
	// Backup snapshots every parameter of the layer.
	Backup()
	// Restore brings back the last snapshot.
	Restore() error
	HasBackup() bool
}

// initializer is implemented by every layer: init sizes the layer and allocates its
// parameters.
type initializer interface {
	init(d Dims) error
}

type base struct {
	desc  Desc
	dims  Dims
	ready bool
}

func (b *base) Kind() Kind     { return b.desc.Kind }
func (b *base) Desc() Desc     { return b.desc }
func (b *base) Traits() Traits { return TraitsOf(b.desc) }
func (b *base) Ready() bool    { return b.ready }
func (b *base) Dims() Dims     { return b.dims }

// InputShape and OutputShape are {0} until the layer is ready.
func (b *base) InputShape() tensor.Shape {
	if !b.ready {
		return tensor.Shape{0}
	}
	return b.dims.InputShape(b.desc.Kind)
}

func (b *base) OutputShape() tensor.Shape {
	if !b.ready {
		return tensor.Shape{0}
	}
	return b.dims.OutputShape(b.desc.Kind)
}

func (b *base) InputSize() int  { return b.InputShape().TotalSize() }
func (b *base) OutputSize() int { return b.OutputShape().TotalSize() }

func (b *base) check() error {
	if !b.ready {
		return errors.Wrapf(ErrUninitialized, "%v", b.desc.Kind)
	}
	return nil
}

// initLayer is the InitLayer of every layer.
func initLayer(l initializer, b *base, dims []int) error {
	if b.ready {
		return errors.Wrapf(ErrAlreadyInitialized, "%v", b.desc.Kind)
	}
	d, err := fromInts(b.desc.Kind, dims)
	if err != nil {
		return err
	}
	return l.init(d)
}

// dynInit is the DynInit of every layer.
func dynInit(b *base, dyn Layer) error {
	if !b.desc.Traits().HasDims {
		return nil
	}
	if dyn.Kind() != b.desc.Kind {
		return errors.Wrapf(ErrKindMismatch, "%v into %v", b.desc.Kind, dyn.Kind())
	}
	if err := b.check(); err != nil {
		return err
	}
	return dyn.InitLayer(b.dims.ints(b.desc.Kind)...)
}

func (b *base) newTensor(shape ...int) *tensor.Dense {
	return tensor.New(tensor.Of(b.desc.Options.WeightType), tensor.WithShape(shape...))
}

func (b *base) PrepareInput() *tensor.Dense { return b.newTensor(b.InputShape()...) }

func (b *base) prepareOne() *tensor.Dense { return b.newTensor(b.OutputShape()...) }

func (b *base) prepareBatch(n int) *tensor.Dense {
	return b.newTensor(append(tensor.Shape{n}, b.OutputShape()...)...)
}

// checkOne verifies that in and out hold one sample each.
func (b *base) checkOne(out, in *tensor.Dense) error {
	if err := b.check(); err != nil {
		return err
	}
	dt := b.desc.Options.WeightType
	if err := num.Check(in, dt, b.InputSize()); err != nil {
		return errors.Wrapf(ErrShape, "%v input: %v", b.desc.Kind, err)
	}
	if err := num.Check(out, dt, b.OutputSize()); err != nil {
		return errors.Wrapf(ErrShape, "%v output: %v", b.desc.Kind, err)
	}
	return nil
}

// checkBatch verifies that in and out hold the same number of samples and returns it.
func (b *base) checkBatch(out, in *tensor.Dense) (int, error) {
	if err := b.check(); err != nil {
		return 0, err
	}
	if in == nil || out == nil || in.Dims() == 0 {
		return 0, errors.Wrapf(ErrShape, "%v: batches must have a leading dimension", b.desc.Kind)
	}
	n := in.Shape()[0]
	dt := b.desc.Options.WeightType
	if err := num.Check(in, dt, n*b.InputSize()); err != nil {
		return 0, errors.Wrapf(ErrShape, "%v input batch: %v", b.desc.Kind, err)
	}
	if err := num.Check(out, dt, n*b.OutputSize()); err != nil {
		return 0, errors.Wrapf(ErrShape, "%v output batch: %v", b.desc.Kind, err)
	}
	return n, nil
}

// checkBackward verifies that out can hold the input space errors of ctx.
func (b *base) checkBackward(out *tensor.Dense, ctx *Context) error {
	if err := b.checkContext(ctx); err != nil {
		return err
	}
	if err := num.Check(out, b.desc.Options.WeightType, ctx.Batch*b.InputSize()); err != nil {
		return errors.Wrapf(ErrShape, "%v backward output: %v", b.desc.Kind, err)
	}
	if r := out.Dims(); r != 2 && r != 1+len(b.InputShape()) {
		return errors.Wrapf(ErrShape, "%v backward output of rank %d", b.desc.Kind, r)
	}
	return nil
}

func (b *base) checkContext(ctx *Context) error {
	if err := b.check(); err != nil {
		return err
	}
	if ctx == nil || ctx.Errors == nil || ctx.Errors.Shape().TotalSize() != ctx.Batch*b.OutputSize() {
		return errors.Wrapf(ErrShape, "%v: context does not belong to the layer", b.desc.Kind)
	}
	return nil
}

var (
	_ Activator   = &DenseLayer[float32]{}
	_ Activator   = &ConvLayer[float64]{}
	_ Activator   = &DeconvLayer[float32]{}
	_ Activator   = &PoolLayer[float32]{}
	_ Activator   = &UpsampleLayer[float32]{}
	_ Activator   = &TransformLayer[float32]{}
	_ RBM         = &RBMLayer[float32]{}
	_ Multiplexer = &PatchesLayer[float32]{}
	_ Multiplexer = &AugmentLayer[float64]{}

	_ Parameterized = &DenseLayer[float64]{}
	_ Parameterized = &ConvLayer[float32]{}
	_ Parameterized = &DeconvLayer[float64]{}
)
