package dbn

import (
	"encoding/gob"
	"os"

	"github.com/gorgonia/dbn/internal/num"
	"github.com/gorgonia/dbn/layer"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// params lists every parameter of the network, visible biases of RBMs included.
func (n *Network) params() []*tensor.Dense {
	var retVal []*tensor.Dense
	for _, l := range n.layers {
		switch p := l.(type) {
		case layer.RBM:
			retVal = append(retVal, p.CDParams()...)
		case layer.Parameterized:
			retVal = append(retVal, p.Params()...)
		}
	}
	return retVal
}

// Save writes the parameters of the network into filename.
func (n *Network) Save(filename string) error {
	if err := n.check(); err != nil {
		return err
	}
	f, err := os.OpenFile(filename, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0644)
	if err != nil {
		return errors.Wrapf(err, "save %s", filename)
	}
	defer f.Close()

	enc := gob.NewEncoder(f)
	for _, p := range n.params() {
		if err := enc.Encode(p); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

// Load reads parameters written by Save into the network. The network must have the layers
// of the saved one.
func (n *Network) Load(filename string) error {
	if err := n.check(); err != nil {
		return err
	}
	f, err := os.Open(filename)
	if err != nil {
		return errors.Wrapf(err, "load %s", filename)
	}
	defer f.Close()

	dec := gob.NewDecoder(f)
	for i, p := range n.params() {
		v := new(tensor.Dense)
		if err := dec.Decode(v); err != nil {
			return errors.Wrapf(err, "parameter %d", i)
		}
		if !v.Shape().Eq(p.Shape()) || v.Dtype() != p.Dtype() {
			return errors.Wrapf(layer.ErrShape, "parameter %d is a %v %v, the network has a %v %v", i, v.Dtype(), v.Shape(), p.Dtype(), p.Shape())
		}
		if err := num.Copy(p, v); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}
