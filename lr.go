package dbn

import (
	"github.com/gorgonia/dbn/layer"
)

// lrDriver adapts the learning rate between fine-tuning epochs.
type lrDriver struct {
	conf Config
	rate float64
	best float64 // error of the last accepted epoch, bold driver only
	seen bool
}

func newLRDriver(conf Config) *lrDriver {
	return &lrDriver{conf: conf, rate: conf.LearningRate}
}

// begin is called before every epoch. The bold driver snapshots the parameters so that the
// epoch can be rolled back.
func (d *lrDriver) begin(ls []layer.Layer) {
	if d.conf.LRDriver != Bold {
		return
	}
	for _, l := range ls {
		if p, ok := l.(layer.Parameterized); ok {
			p.Backup()
		}
	}
}

// end is called after every epoch with its error. It returns the error of the parameters
// kept in the network and whether the epoch was rolled back.
func (d *lrDriver) end(ls []layer.Layer, epoch int, err float64) (float64, bool, error) {
	switch d.conf.LRDriver {
	case Bold:
		if d.seen && err > d.best {
			for _, l := range ls {
				p, ok := l.(layer.Parameterized)
				if !ok {
					continue
				}
				if e := p.Restore(); e != nil {
					return err, false, e
				}
			}
			d.rate *= d.conf.BoldDec
			return d.best, true, nil
		}
		if d.seen {
			d.rate *= d.conf.BoldInc
		}
		d.best, d.seen = err, true
	case Step:
		if (epoch+1)%d.conf.StepEvery == 0 {
			d.rate *= d.conf.StepFactor
		}
	}
	return err, false, nil
}
