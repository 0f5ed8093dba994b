package dbn

import (
	"bytes"
	"fmt"
	"io"
	"log"
	"math/rand"

	"github.com/gorgonia/dbn/internal/num"
	"github.com/gorgonia/dbn/layer"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

var (
	ErrInvalidConfig     = errors.New("invalid configuration")
	ErrEmptyNetwork      = errors.New("a network needs at least one layer that is not a multiplexer")
	ErrMultiplexPosition = errors.New("multiplexing layers must come first")
	ErrShapeMismatch     = errors.New("consecutive layers do not fit")
)

// randSetter is implemented by the layers that draw random numbers.
type randSetter interface {
	SetRand(r *rand.Rand)
}

// Network is a stack of layers trained by layer-wise contrastive divergence and fine-tuned
// by mini-batch gradient descent.
type Network struct {
	Statistics

	conf   Config
	layers []layer.Layer
	mux    int // number of leading multiplexers
	rnd    *rand.Rand

	buf    bytes.Buffer
	logger *log.Logger
}

// New creates a network. The layers that have no structural dimensions take the output
// shape of the layer before them.
func New(conf Config, layers ...layer.Layer) (*Network, error) {
	if !conf.IsValid() {
		return nil, ErrInvalidConfig
	}
	retVal := &Network{
		Statistics: makeStatistics(),
		conf:       conf,
		layers:     layers,
		rnd:        rand.New(rand.NewSource(conf.Seed)),
	}
	retVal.logger = log.New(&retVal.buf, "", log.Ltime)

	for i, l := range layers {
		if l.Traits().IsMultiplex() {
			if i != retVal.mux {
				return nil, errors.Wrapf(ErrMultiplexPosition, "layer %d (%v)", i, l.Kind())
			}
			retVal.mux++
			continue
		}
		if _, ok := l.(layer.Activator); !ok {
			return nil, errors.Errorf("layer %d (%v) has no forward pass", i, l.Kind())
		}
	}
	if retVal.mux == len(layers) {
		return nil, ErrEmptyNetwork
	}
	for i, l := range layers {
		if r, ok := l.(randSetter); ok {
			r.SetRand(rand.New(rand.NewSource(conf.Seed + int64(i) + 1)))
		}
	}
	if err := retVal.propagate(); err != nil {
		return nil, err
	}
	return retVal, nil
}

// MustNew is New that panics on error.
func MustNew(conf Config, layers ...layer.Layer) *Network {
	n, err := New(conf, layers...)
	if err != nil {
		panic(fmt.Sprintf("%+v", err))
	}
	return n
}

func (n *Network) Config() Config { return n.conf }

// Layer returns the i-th layer.
func (n *Network) Layer(i int) layer.Layer { return n.layers[i] }

// Len is the number of layers.
func (n *Network) Len() int { return len(n.layers) }

// InitLayer sets the dimensions of the i-th layer and propagates shapes to the layers after
// it.
func (n *Network) InitLayer(i int, dims ...int) error {
	if i < 0 || i >= len(n.layers) {
		return errors.Errorf("no layer %d in a network of %d layers", i, len(n.layers))
	}
	if err := n.layers[i].InitLayer(dims...); err != nil {
		return errors.WithMessagef(err, "layer %d", i)
	}
	return n.propagate()
}

// InputSize is the number of elements of one input sample.
func (n *Network) InputSize() int { return n.layers[0].InputSize() }

// OutputSize is the number of elements of one output sample of the last layer.
func (n *Network) OutputSize() int { return n.layers[len(n.layers)-1].OutputSize() }

func (n *Network) dtype() tensor.Dtype { return n.layers[0].Desc().Options.WeightType }

// propagate gives every unshaped layer without structural dimensions the output shape of
// the layer before it.
func (n *Network) propagate() error {
	for i := 1; i < len(n.layers); i++ {
		l, prev := n.layers[i], n.layers[i-1]
		if l.Ready() || l.Traits().HasDims || !prev.Ready() {
			continue
		}
		if err := l.InitLayer(prev.OutputShape()...); err != nil {
			return errors.WithMessagef(err, "layer %d", i)
		}
	}
	return nil
}

// check verifies that the network can run.
func (n *Network) check() error {
	dt := n.dtype()
	for i, l := range n.layers {
		if !l.Ready() {
			return errors.Wrapf(layer.ErrUninitialized, "layer %d (%v)", i, l.Kind())
		}
		if l.Desc().Options.WeightType != dt {
			return errors.Wrapf(layer.ErrDtype, "layer %d is %v, the network is %v", i, l.Desc().Options.WeightType, dt)
		}
		if i == 0 {
			continue
		}
		if prev := n.layers[i-1]; prev.OutputSize() != l.InputSize() {
			return errors.Wrapf(ErrShapeMismatch, "layer %d outputs %v, layer %d takes %v", i-1, prev.OutputShape(), i, l.InputShape())
		}
	}
	return nil
}

// checkBatch verifies that data holds samples of the network input.
func (n *Network) checkBatch(data *tensor.Dense) error {
	if data == nil || data.Dims() < 1 || data.Shape()[0] == 0 {
		return errors.Wrap(layer.ErrShape, "batches must have a leading non zero dimension")
	}
	if data.Dtype() != n.dtype() {
		return errors.Wrapf(layer.ErrDtype, "%v batch for a %v network", data.Dtype(), n.dtype())
	}
	if sampleSize(data) != n.InputSize() {
		return errors.Wrapf(layer.ErrShape, "samples of %d elements for an input of %d", sampleSize(data), n.InputSize())
	}
	return nil
}

// expand runs the samples of data through the leading multiplexers. Every label is
// repeated for the samples produced from its input. Without multiplexers data and labels
// are returned as they are.
func (n *Network) expand(data, labels *tensor.Dense) (*tensor.Dense, *tensor.Dense, error) {
	if n.mux == 0 {
		return data, labels, nil
	}
	count := data.Shape()[0]
	var out []*tensor.Dense
	var owner []int
	for i := 0; i < count; i++ {
		cur := []*tensor.Dense{sample(data, i)}
		for _, l := range n.layers[:n.mux] {
			m := l.(layer.Multiplexer)
			var next []*tensor.Dense
			for _, s := range cur {
				samples := m.PrepareOneOutput()
				if err := m.ActivateHidden(&samples, s); err != nil {
					return nil, nil, errors.WithMessagef(err, "sample %d", i)
				}
				next = append(next, samples...)
			}
			cur = next
		}
		out = append(out, cur...)
		for range cur {
			owner = append(owner, i)
		}
	}

	shape := append(tensor.Shape{len(out)}, n.layers[n.mux-1].OutputShape()...)
	retData := tensor.New(tensor.Of(n.dtype()), tensor.WithShape(shape...))
	size := n.layers[n.mux-1].OutputSize()
	for i, s := range out {
		if err := copyInto(retData, i*size, s); err != nil {
			return nil, nil, err
		}
	}
	if labels == nil {
		return retData, nil, nil
	}
	ls := sampleSize(labels)
	retLabels := tensor.New(tensor.Of(labels.Dtype()), tensor.WithShape(len(out), ls))
	for i, o := range owner {
		if err := copyInto(retLabels, i*ls, sample(labels, o)); err != nil {
			return nil, nil, err
		}
	}
	return retData, retLabels, nil
}

// copyInto copies src into dst starting at element offset.
func copyInto(dst *tensor.Dense, offset int, src *tensor.Dense) error {
	size := src.Shape().TotalSize()
	return errors.WithStack(num.Copy(view(dst, offset, offset+size, size), src))
}

// forward runs a batch through the layers that follow the multiplexers.
func (n *Network) forward(batch *tensor.Dense) (*tensor.Dense, error) {
	count := batch.Shape()[0]
	cur := batch
	last := len(n.layers) - 1
	for i := n.mux; i <= last; i++ {
		a := n.layers[i].(layer.Activator)
		var out *tensor.Dense
		if i == last {
			out = a.PrepareOutput(count)
		} else {
			out = borrowTensor(n.dtype(), append(tensor.Shape{count}, a.OutputShape()...)...)
		}
		if err := a.BatchActivateHidden(out, cur); err != nil {
			return nil, errors.WithMessagef(err, "layer %d", i)
		}
		if cur != batch {
			returnTensor(cur)
		}
		cur = out
	}
	return cur, nil
}

// BatchActivate computes the output of the network for every sample of batch. With leading
// multiplexers the result holds one row per produced sample.
func (n *Network) BatchActivate(batch *tensor.Dense) (*tensor.Dense, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	if err := n.checkBatch(batch); err != nil {
		return nil, err
	}
	in, _, err := n.expand(batch, nil)
	if err != nil {
		return nil, err
	}
	return n.forward(in)
}

// Activate computes the output of the network for one sample. With leading multiplexers the
// result is a batch holding the output of every produced sample.
func (n *Network) Activate(s *tensor.Dense) (*tensor.Dense, error) {
	if err := n.check(); err != nil {
		return nil, err
	}
	if s == nil || s.Shape().TotalSize() != n.InputSize() {
		return nil, errors.Wrapf(layer.ErrShape, "a sample has %d elements", n.InputSize())
	}
	if n.mux > 0 {
		return n.BatchActivate(asBatch(s))
	}
	cur := s
	for i, l := range n.layers {
		a := l.(layer.Activator)
		out := a.PrepareOneOutput()
		if err := a.ActivateHidden(out, cur); err != nil {
			return nil, errors.WithMessagef(err, "layer %d", i)
		}
		cur = out
	}
	return cur, nil
}

// Features is the flattened output of the network for one sample.
func (n *Network) Features(s *tensor.Dense) (*tensor.Dense, error) {
	out, err := n.Activate(s)
	if err != nil {
		return nil, err
	}
	if err := out.Reshape(out.Shape().TotalSize()); err != nil {
		return nil, errors.WithStack(err)
	}
	return out, nil
}

// Predict returns the class of one sample. With leading multiplexers the outputs of every
// produced sample are summed before the decision.
func (n *Network) Predict(s *tensor.Dense) (int, error) {
	out, err := n.Activate(s)
	if err != nil {
		return 0, err
	}
	size := n.OutputSize()
	rows := out.Shape().TotalSize() / size
	if rows == 1 {
		return classify(out, 1, size)[0], nil
	}
	sums := tensor.New(tensor.Of(out.Dtype()), tensor.WithShape(1, size))
	for i := 0; i < rows; i++ {
		if err := num.Add(sums, view(out, i*size, (i+1)*size, 1, size)); err != nil {
			return 0, errors.WithStack(err)
		}
	}
	return classify(sums, 1, size)[0], nil
}

// Log writes the execution log of the network into w.
func (n *Network) Log(w io.Writer) error {
	_, err := w.Write(n.buf.Bytes())
	return err
}

func (n *Network) String() string {
	var buf bytes.Buffer
	for i, l := range n.layers {
		fmt.Fprintf(&buf, "%d: %v\n", i, l.ShortString())
	}
	return buf.String()
}
