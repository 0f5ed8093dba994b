package dbn

import (
	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// paramGrad exposes a parameter and its gradient to the gorgonia solvers.
type paramGrad struct {
	value, grad *tensor.Dense
}

func (p paramGrad) Value() G.Value         { return p.value }
func (p paramGrad) Grad() (G.Value, error) { return p.grad, nil }

// updater applies gradients through a gorgonia solver. The solver is rebuilt whenever the
// learning rate or the momentum changes, which drops its state (velocities, moments).
type updater struct {
	kind Updater
	clip float64

	solver   G.Solver
	rate     float64
	momentum float64
}

func newUpdater(kind Updater, clip float64) *updater {
	return &updater{kind: kind, clip: clip}
}

func (u *updater) solverFor(rate, momentum float64) G.Solver {
	if u.solver != nil && u.rate == rate && u.momentum == momentum {
		return u.solver
	}
	opts := []G.SolverOpt{G.WithLearnRate(rate)}
	if u.clip > 0 {
		opts = append(opts, G.WithClip(u.clip))
	}
	switch u.kind {
	case Adam:
		u.solver = G.NewAdamSolver(opts...)
	case RMSProp:
		u.solver = G.NewRMSPropSolver(opts...)
	default:
		if momentum > 0 {
			u.solver = G.NewMomentum(append(opts, G.WithMomentum(momentum))...)
		} else {
			u.solver = G.NewVanillaSolver(opts...)
		}
	}
	u.rate, u.momentum = rate, momentum
	return u.solver
}

// reset forgets the state of the solver.
func (u *updater) reset() { u.solver = nil }

// step moves params along grads. The gradients are sums over a batch of the given size and
// point uphill; the solvers descend, so they get the negated means. grads are consumed.
func (u *updater) step(params, grads []*tensor.Dense, batch int, rate, momentum float64) error {
	if len(params) != len(grads) {
		return errors.Errorf("%d parameters for %d gradients", len(params), len(grads))
	}
	model := make([]G.ValueGrad, len(params))
	for i, p := range params {
		num.Scale(grads[i], -1/float64(batch))
		model[i] = paramGrad{value: p, grad: grads[i]}
	}
	return errors.WithStack(u.solverFor(rate, momentum).Step(model))
}
