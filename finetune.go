package dbn

import (
	"github.com/gorgonia/dbn/internal/num"
	"github.com/gorgonia/dbn/layer"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// fineTuner trains the layers that follow the multiplexers with mini-batch gradient descent.
type fineTuner struct {
	maybe
	conf   Config
	layers []layer.Layer

	ctxs map[int][]*layer.Context // per batch size
	u    *updater
}

func newFineTuner(n *Network) (*fineTuner, error) {
	ls := n.layers[n.mux:]
	for i, l := range ls {
		if !l.Traits().SGDSupported {
			return nil, errors.Wrapf(layer.ErrNotBackpropagable, "layer %d (%v)", n.mux+i, l.Kind())
		}
	}
	return &fineTuner{
		conf:   n.conf,
		layers: ls,
		ctxs:   make(map[int][]*layer.Context),
		u:      newUpdater(n.conf.Updater, n.conf.Clip),
	}, nil
}

// contexts returns the training contexts of every layer for batches of the given size.
func (f *fineTuner) contexts(batch int) ([]*layer.Context, error) {
	if c, ok := f.ctxs[batch]; ok {
		return c, nil
	}
	retVal := make([]*layer.Context, len(f.layers))
	for i, l := range f.layers {
		ctx, err := l.NewContext(batch)
		if err != nil {
			return nil, err
		}
		retVal[i] = ctx
	}
	f.ctxs[batch] = retVal
	return retVal, nil
}

// resetMomentum drops the velocities of the updater.
func (f *fineTuner) resetMomentum() { f.u.reset() }

// step trains the layers on one batch of inputs x and targets y.
func (f *fineTuner) step(x, y *tensor.Dense, rate float64, epoch int) error {
	batch := x.Shape()[0]
	ctxs, err := f.contexts(batch)
	if err != nil {
		return err
	}
	last := len(f.layers) - 1

	f.do(func() error { return num.Copy(ctxs[0].Input, x) })
	for i, l := range f.layers {
		ctx := ctxs[i]
		f.do(func() error { return l.(layer.Activator).BatchActivateHidden(ctx.Output, ctx.Input) })
		if i < last {
			f.do(func() error { return num.Copy(ctxs[i+1].Input, ctx.Output) })
		}
	}
	if f.err != nil {
		return f.err
	}
	out := ctxs[last]
	if !num.Finite(out.Output) {
		return errors.Errorf("epoch %d: the network produced non finite values", epoch)
	}

	// the errors of the last layer are target - output
	f.do(func() error { return num.Copy(out.Errors, y) })
	f.do(func() error { return num.Axpy(out.Errors, out.Output, -1) })
	for i := last; i >= 0; i-- {
		l, ctx := f.layers[i], ctxs[i]
		f.do(func() error { return l.AdaptErrors(ctx) })
		if i > 0 {
			f.do(func() error { return l.BackwardBatch(flat(ctxs[i-1].Errors), ctx) })
		}
		if _, ok := l.(layer.Parameterized); ok {
			f.do(func() error { return l.ComputeGradients(ctx) })
		}
	}
	if f.err != nil {
		return f.err
	}
	return f.update(ctxs, batch, rate, epoch)
}

// update applies the gradients of every parameterized layer. Weight decay only applies to
// the weights.
func (f *fineTuner) update(ctxs []*layer.Context, batch int, rate float64, epoch int) error {
	var params, grads []*tensor.Dense
	for i, l := range f.layers {
		p, ok := l.(layer.Parameterized)
		if !ok {
			continue
		}
		for j, w := range p.Params() {
			g := ctxs[i].Grads[j]
			if j == 0 && f.conf.WeightDecay > 0 {
				f.do(func() error { return num.Axpy(g, w, -f.conf.WeightDecay*float64(batch)) })
			}
			params = append(params, w)
			grads = append(grads, g)
		}
	}
	if f.err != nil {
		return f.err
	}
	var momentum float64
	if f.conf.Updater == Momentum {
		momentum = f.conf.momentum(epoch)
	}
	return f.u.step(params, grads, batch, rate, momentum)
}

// checkLabels verifies that labels holds one target per sample of data.
func (n *Network) checkLabels(data, labels *tensor.Dense) error {
	if labels == nil || labels.Dims() < 1 || labels.Shape()[0] != data.Shape()[0] {
		return errors.Wrap(layer.ErrShape, "one label is needed per sample")
	}
	if labels.Dtype() != n.dtype() {
		return errors.Wrapf(layer.ErrDtype, "%v labels for a %v network", labels.Dtype(), n.dtype())
	}
	if labels.Shape()[0] > 0 && sampleSize(labels) != n.OutputSize() {
		return errors.Wrapf(layer.ErrShape, "labels of %d elements for an output of %d", sampleSize(labels), n.OutputSize())
	}
	return nil
}

// FineTune trains the network with mini-batch gradient descent on the targets in labels,
// one row of n.OutputSize() elements per sample. It returns the classification error of the
// network on the training set after the last epoch.
func (n *Network) FineTune(data, labels *tensor.Dense, epochs int) (float64, error) {
	if err := n.check(); err != nil {
		return 0, err
	}
	if err := n.checkBatch(data); err != nil {
		return 0, err
	}
	if err := n.checkLabels(data, labels); err != nil {
		return 0, err
	}
	x, y, err := n.expand(data, labels)
	if err != nil {
		return 0, err
	}
	if x == data {
		x = data.Clone().(*tensor.Dense)
		y = labels.Clone().(*tensor.Dense)
	}
	f, err := newFineTuner(n)
	if err != nil {
		return 0, err
	}
	d := newLRDriver(n.conf)

	count := x.Shape()[0]
	bs := n.conf.BatchSize
	var cur float64
	for epoch := 0; epoch < epochs; epoch++ {
		d.begin(f.layers)
		if err := shuffleRows(n.rnd, x, y); err != nil {
			return 0, err
		}
		for start := 0; start < count; start += bs {
			end := start + bs
			if end > count {
				end = count
			}
			if err := f.step(rows(x, start, end), rows(y, start, end), d.rate, epoch); err != nil {
				return 0, errors.WithMessagef(err, "epoch %d", epoch)
			}
		}
		e, err := n.classError(x, y)
		if err != nil {
			return 0, err
		}
		var rolledBack bool
		if cur, rolledBack, err = d.end(f.layers, epoch, e); err != nil {
			return 0, err
		}
		if rolledBack {
			f.resetMomentum()
			n.logger.Printf("epoch %d - classification error: %.5f - rolled back", epoch, e)
		} else {
			n.logger.Printf("epoch %d - classification error: %.5f", epoch, cur)
		}
		n.Statistics.fineTuned(cur, d.rate)
	}
	if epochs <= 0 {
		return n.classError(x, y)
	}
	return cur, nil
}

// Error is the classification error of the network on data: the fraction of samples whose
// largest output is not the largest element of their label.
func (n *Network) Error(data, labels *tensor.Dense) (float64, error) {
	if err := n.check(); err != nil {
		return 0, err
	}
	if err := n.checkBatch(data); err != nil {
		return 0, err
	}
	if err := n.checkLabels(data, labels); err != nil {
		return 0, err
	}
	x, y, err := n.expand(data, labels)
	if err != nil {
		return 0, err
	}
	return n.classError(x, y)
}

func (n *Network) classError(x, y *tensor.Dense) (float64, error) {
	count := x.Shape()[0]
	if count == 0 {
		return 0, nil
	}
	out, err := n.forward(x)
	if err != nil {
		return 0, err
	}
	size := n.OutputSize()
	predicted, truth := classify(out, count, size), classify(y, count, size)
	var wrong int
	for i := range predicted {
		if predicted[i] != truth[i] {
			wrong++
		}
	}
	return float64(wrong) / float64(count), nil
}
