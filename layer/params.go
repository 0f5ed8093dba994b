package layer

import (
	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// params owns the parameters of a layer and their optional backup.
type params struct {
	all []*tensor.Dense
	bak []*tensor.Dense
}

// Backup snapshots the parameters. The snapshot storage is allocated on first use.
func (p *params) Backup() {
	if p.bak == nil {
		p.bak = make([]*tensor.Dense, len(p.all))
		for i, t := range p.all {
			p.bak[i] = t.Clone().(*tensor.Dense)
		}
		return
	}
	for i, t := range p.all {
		num.Copy(p.bak[i], t)
	}
}

// Restore copies the snapshot back into the parameters.
func (p *params) Restore() error {
	if p.bak == nil {
		return ErrNoBackup
	}
	for i, t := range p.all {
		if err := num.Copy(t, p.bak[i]); err != nil {
			return errors.WithStack(err)
		}
	}
	return nil
}

func (p *params) HasBackup() bool { return p.bak != nil }
