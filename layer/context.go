package layer

import (
	"gorgonia.org/tensor"
)

// Context holds the training state of one layer for mini-batches of a fixed size. It is
// overwritten by every batch.
type Context struct {
	Batch int

	Input  *tensor.Dense // [Batch, input...]
	Output *tensor.Dense // [Batch, output...]
	Errors *tensor.Dense // [Batch, output...]

	// Grads is aligned with Parameterized.Params. The update increments belong to the
	// optimizer driving the layer.
	Grads []*tensor.Dense
}

func (b *base) newContext(batch int, params []*tensor.Dense) (*Context, error) {
	if err := b.check(); err != nil {
		return nil, err
	}
	in := append(tensor.Shape{batch}, b.InputShape()...)
	out := append(tensor.Shape{batch}, b.OutputShape()...)
	ctx := &Context{
		Batch:  batch,
		Input:  b.newTensor(in...),
		Output: b.newTensor(out...),
		Errors: b.newTensor(out...),
	}
	for _, p := range params {
		ctx.Grads = append(ctx.Grads, b.newTensor(p.Shape()...))
	}
	return ctx, nil
}
