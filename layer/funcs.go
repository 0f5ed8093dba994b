package layer

import (
	"github.com/gorgonia/dbn/internal/num"
)

// Func is an activation function.
type Func = num.Func

// Activation functions.
const (
	Identity = num.Identity
	Sigmoid  = num.Sigmoid
	Tanh     = num.Tanh
	ReLU     = num.ReLU
	Softmax  = num.Softmax
)

// Init is a weight or bias initialisation scheme.
type Init = num.Init

// Initialisation schemes.
const (
	InitNone          = num.InitNone
	InitZero          = num.InitZero
	InitOne           = num.InitOne
	InitGaussian      = num.InitGaussian
	InitSmallGaussian = num.InitSmallGaussian
	InitUniform       = num.InitUniform
	InitLeCun         = num.InitLeCun
	InitXavier        = num.InitXavier
	InitXavierFull    = num.InitXavierFull
	InitHe            = num.InitHe
)

// Unit is the type of the units of an RBM.
type Unit int

const (
	Binary Unit = iota
	Gaussian
	SoftmaxUnit
	ReLUUnit
)

func (u Unit) String() string {
	switch u {
	case Binary:
		return "BINARY"
	case Gaussian:
		return "GAUSSIAN"
	case SoftmaxUnit:
		return "SOFTMAX"
	case ReLUUnit:
		return "RELU"
	}
	return "UNKNOWN"
}

// activation returns the activation function computing the probabilities of a unit.
func (u Unit) activation() Func {
	switch u {
	case Gaussian:
		return Identity
	case SoftmaxUnit:
		return Softmax
	case ReLUUnit:
		return ReLU
	}
	return Sigmoid
}

// Decay is the kind of weight decay applied during RBM training. The Full variants also
// decay the biases.
type Decay int

const (
	NoDecay Decay = iota
	L1
	L2
	L1Full
	L2Full
)

func (d Decay) String() string {
	switch d {
	case NoDecay:
		return "NONE"
	case L1:
		return "L1"
	case L2:
		return "L2"
	case L1Full:
		return "L1_FULL"
	case L2Full:
		return "L2_FULL"
	}
	return "UNKNOWN"
}

// IsL1 reports whether the decay is an L1 penalty.
func (d Decay) IsL1() bool { return d == L1 || d == L1Full }

// IsL2 reports whether the decay is an L2 penalty.
func (d Decay) IsL2() bool { return d == L2 || d == L2Full }

// IsFull reports whether the biases are decayed too.
func (d Decay) IsFull() bool { return d == L1Full || d == L2Full }

// Sparsity is the sparsity method of an RBM.
type Sparsity int

const (
	NoSparsity Sparsity = iota
	GlobalTarget
	LocalTarget
	Lee
)

func (s Sparsity) String() string {
	switch s {
	case NoSparsity:
		return "NONE"
	case GlobalTarget:
		return "GLOBAL_TARGET"
	case LocalTarget:
		return "LOCAL_TARGET"
	case Lee:
		return "LEE"
	}
	return "UNKNOWN"
}

// BiasMode selects how the Lee sparsity penalty is applied to the visible biases.
type BiasMode int

const (
	NoBias BiasMode = iota
	SimpleBias
)

func (b BiasMode) String() string {
	if b == SimpleBias {
		return "SIMPLE"
	}
	return "NONE"
}

// RectifierMethod is the function used by a rectifier layer.
type RectifierMethod int

const (
	Abs RectifierMethod = iota
)

func (m RectifierMethod) String() string {
	if m == Abs {
		return "ABS"
	}
	return "UNKNOWN"
}
