package dbn

import "fmt"

// Updater is the rule applied to the parameters during fine-tuning.
type Updater int

const (
	Momentum Updater = iota // plain SGD with momentum
	Adam
	RMSProp
)

func (u Updater) String() string {
	switch u {
	case Momentum:
		return "Momentum"
	case Adam:
		return "Adam"
	case RMSProp:
		return "RMSProp"
	}
	return fmt.Sprintf("Updater(%d)", int(u))
}

// LRDriver changes the fine-tuning learning rate between epochs.
type LRDriver int

const (
	Fixed LRDriver = iota
	// Bold raises the learning rate after an epoch that lowered the error and rolls the
	// epoch back, lowering the rate, otherwise.
	Bold
	// Step multiplies the learning rate by StepFactor every StepEvery epochs.
	Step
)

func (d LRDriver) String() string {
	switch d {
	case Fixed:
		return "Fixed"
	case Bold:
		return "Bold"
	case Step:
		return "Step"
	}
	return fmt.Sprintf("LRDriver(%d)", int(d))
}

// Config configures the training of a network.
type Config struct {
	BatchSize int // fine-tuning batch size

	LearningRate    float64 // fine-tuning learning rate
	InitialMomentum float64
	FinalMomentum   float64
	MomentumEpoch   int     // epoch at which FinalMomentum replaces InitialMomentum
	WeightDecay     float64 // cost of the L1/L2 penalties
	Clip            float64 // gradient clipping threshold, 0 disables it

	Updater  Updater
	LRDriver LRDriver

	StepEvery  int
	StepFactor float64
	BoldInc    float64
	BoldDec    float64

	PretrainRate   float64 // contrastive divergence learning rate
	K              int     // Gibbs steps of contrastive divergence
	SparsityTarget float64
	SparsityCost   float64

	Verbose bool
	Seed    int64
}

// DefaultConfig returns the configuration used when nothing else is known about the data.
func DefaultConfig() Config {
	return Config{
		BatchSize: 10,

		LearningRate:    0.1,
		InitialMomentum: 0.5,
		FinalMomentum:   0.9,
		MomentumEpoch:   6,
		WeightDecay:     0.0002,
		Clip:            5,

		StepEvery:  10,
		StepFactor: 0.5,
		BoldInc:    1.05,
		BoldDec:    0.5,

		PretrainRate:   0.1,
		K:              1,
		SparsityTarget: 0.01,
		SparsityCost:   1,

		Seed: 1337,
	}
}

func (conf Config) IsValid() bool {
	return conf.BatchSize >= 1 &&
		conf.LearningRate > 0 &&
		conf.PretrainRate > 0 &&
		conf.InitialMomentum >= 0 && conf.InitialMomentum < 1 &&
		conf.FinalMomentum >= 0 && conf.FinalMomentum < 1 &&
		conf.MomentumEpoch >= 0 &&
		conf.WeightDecay >= 0 &&
		conf.Clip >= 0 &&
		conf.Updater >= Momentum && conf.Updater <= RMSProp &&
		conf.LRDriver >= Fixed && conf.LRDriver <= Step &&
		(conf.LRDriver != Step || (conf.StepEvery >= 1 && conf.StepFactor > 0)) &&
		(conf.LRDriver != Bold || (conf.BoldInc >= 1 && conf.BoldDec > 0 && conf.BoldDec < 1)) &&
		conf.K >= 1 &&
		conf.SparsityTarget >= 0 && conf.SparsityTarget < 1 &&
		conf.SparsityCost >= 0
}

// momentum returns the momentum of the given epoch.
func (conf Config) momentum(epoch int) float64 {
	if epoch >= conf.MomentumEpoch {
		return conf.FinalMomentum
	}
	return conf.InitialMomentum
}
