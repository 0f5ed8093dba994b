package dbn

import (
	"github.com/gorgonia/dbn/internal/num"
	"github.com/gorgonia/dbn/layer"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Pretrain trains every RBM of the network with contrastive divergence, one layer after the
// other, on the activations of the layers before it. The last layer is skipped when its
// traits do not allow it to be pretrained.
func (n *Network) Pretrain(data *tensor.Dense, epochs int) error {
	if err := n.check(); err != nil {
		return err
	}
	if err := n.checkBatch(data); err != nil {
		return err
	}
	input, _, err := n.expand(data, nil)
	if err != nil {
		return err
	}
	if input == data {
		input = data.Clone().(*tensor.Dense)
	}

	count := input.Shape()[0]
	last := len(n.layers) - 1
	for i := n.mux; i <= last; i++ {
		l := n.layers[i]
		if rbm, ok := l.(layer.RBM); ok && (i < last || l.Traits().PretrainLast) {
			n.logger.Printf("Pretraining layer %d: %v", i, l.ShortString())
			if err := n.pretrainRBM(i, rbm, input, epochs); err != nil {
				return errors.WithMessagef(err, "pretraining layer %d", i)
			}
		}
		if i == last {
			break
		}
		a := l.(layer.Activator)
		out := a.PrepareOutput(count)
		if err := a.BatchActivateHidden(out, input); err != nil {
			return errors.WithMessagef(err, "layer %d", i)
		}
		input = out
	}
	return nil
}

// cdTrainer trains one RBM with contrastive divergence.
type cdTrainer struct {
	maybe
	rbm  layer.RBM
	rt   layer.RBMTraits
	conf Config

	u     *updater
	grads []*tensor.Dense
	tmp   []*tensor.Dense // sign buffers of the L1 penalty
	q     []float64       // running mean activity of the hidden groups
}

func newCDTrainer(rbm layer.RBM, conf Config) *cdTrainer {
	t := &cdTrainer{
		rbm:  rbm,
		rt:   rbm.RBMTraits(),
		conf: conf,
	}
	var clip float64
	if t.rt.Clip {
		clip = conf.Clip
	}
	t.u = newUpdater(Momentum, clip)
	dt := rbm.Desc().Options.WeightType
	for _, p := range rbm.CDParams() {
		t.grads = append(t.grads, tensor.New(tensor.Of(dt), tensor.WithShape(p.Shape()...)))
		t.tmp = append(t.tmp, tensor.New(tensor.Of(dt), tensor.WithShape(p.Shape()...)))
	}
	return t
}

// step trains the RBM on one batch and returns its reconstruction error.
func (t *cdTrainer) step(batch *tensor.Dense, epoch int) (recon float64) {
	var ph *layer.Phases
	t.do(func() (err error) {
		ph, err = t.rbm.Gibbs(batch, t.conf.K)
		return
	})
	t.do(func() error { return t.rbm.CDGradients(ph, t.grads) })
	if t.err != nil {
		return 0
	}
	t.sparsity(ph)
	t.decay(ph.Batch)

	var momentum float64
	if t.rt.Momentum {
		momentum = t.conf.momentum(epoch)
	}
	t.do(func() error { return t.u.step(t.rbm.CDParams(), t.grads, ph.Batch, t.conf.PretrainRate, momentum) })
	return t.rbm.ReconstructionError(ph)
}

// decay adds the weight penalty to the gradients. The gradients are sums over the batch, so
// the penalty is scaled by its size.
func (t *cdTrainer) decay(batch int) {
	d := t.rt.Decay
	if d == layer.NoDecay || t.conf.WeightDecay == 0 {
		return
	}
	cost := -t.conf.WeightDecay * float64(batch)
	params := t.rbm.CDParams()
	if !d.IsFull() {
		params = params[:1]
	}
	for i, p := range params {
		if d.IsL1() {
			t.do(func() error { return num.Sign(t.tmp[i], p) })
			t.do(func() error { return num.Axpy(t.grads[i], t.tmp[i], cost) })
			continue
		}
		t.do(func() error { return num.Axpy(t.grads[i], p, cost) })
	}
}

// groupMeans is the mean activity of every group of hidden units sharing a bias.
func (t *cdTrainer) groupMeans(h *tensor.Dense, batch int) []float64 {
	plane := t.rbm.HiddenPlane()
	size := t.rbm.OutputSize()
	retVal := make([]float64, size/plane)
	for i := 0; i < batch; i++ {
		for j := 0; j < size; j++ {
			retVal[j/plane] += num.At(h, i*size+j)
		}
	}
	for k := range retVal {
		retVal[k] /= float64(batch * plane)
	}
	return retVal
}

// sparsity pushes the mean activity of the hidden units towards the sparsity target by
// correcting the gradient of the hidden biases.
func (t *cdTrainer) sparsity(ph *layer.Phases) {
	s := t.rt.Sparsity
	if s == layer.NoSparsity || t.conf.SparsityCost == 0 {
		return
	}
	if s == layer.Lee && t.rt.Bias == layer.NoBias {
		return
	}
	means := t.groupMeans(ph.H1A, ph.Batch)
	switch s {
	case layer.GlobalTarget:
		var m float64
		for _, v := range means {
			m += v
		}
		m /= float64(len(means))
		for k := range means {
			means[k] = m
		}
		fallthrough
	case layer.LocalTarget:
		if t.q == nil {
			t.q = means
		} else {
			for k := range t.q {
				t.q[k] = 0.9*t.q[k] + 0.1*means[k]
			}
		}
		means = t.q
	}
	scale := t.conf.SparsityCost * float64(ph.Batch)
	gb := t.grads[1]
	for k, q := range means {
		num.Set(gb, k, num.At(gb, k)+scale*(t.conf.SparsityTarget-q))
	}
}

// pretrainRBM runs epochs of contrastive divergence over data.
func (n *Network) pretrainRBM(idx int, rbm layer.RBM, data *tensor.Dense, epochs int) error {
	rt := rbm.RBMTraits()
	if rt.InitWeights && rbm.Visible() == layer.Binary {
		if err := rbm.InitVisibleBiases(data); err != nil {
			return err
		}
	}
	t := newCDTrainer(rbm, n.conf)
	count := data.Shape()[0]
	bs := rbm.BatchSize()
	verbose := n.conf.Verbose || (rt.Verbose && !rt.DBNOnly)
	for epoch := 0; epoch < epochs; epoch++ {
		if rt.Shuffle {
			if err := shuffleRows(n.rnd, data, nil); err != nil {
				return err
			}
		}
		var total float64
		var batches int
		for start := 0; start < count; start += bs {
			end := start + bs
			if end > count {
				end = count
			}
			total += t.step(rows(data, start, end), epoch)
			batches++
		}
		if t.err != nil {
			return t.err
		}
		if batches > 0 {
			total /= float64(batches)
		}
		n.Statistics.pretrained(idx, total)
		if !verbose {
			continue
		}
		if !rt.FreeEnergy {
			n.logger.Printf("epoch %d - reconstruction error: %.5f", epoch, total)
			continue
		}
		fe, err := meanFreeEnergy(rbm, data)
		if err != nil {
			return err
		}
		n.logger.Printf("epoch %d - reconstruction error: %.5f - free energy: %.3f", epoch, total, fe)
	}
	return nil
}

func meanFreeEnergy(rbm layer.RBM, data *tensor.Dense) (float64, error) {
	count := data.Shape()[0]
	if count == 0 {
		return 0, nil
	}
	var acc float64
	for i := 0; i < count; i++ {
		fe, err := rbm.FreeEnergy(sample(data, i))
		if err != nil {
			return 0, err
		}
		acc += fe
	}
	return acc / float64(count), nil
}
