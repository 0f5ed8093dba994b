package num

import (
	"math"

	G "gorgonia.org/gorgonia"
	"gorgonia.org/tensor"
)

// Init is a weight initialisation scheme.
type Init int

const (
	InitNone Init = iota // leave the tensor untouched
	InitZero
	InitOne
	InitGaussian      // N(0, 1)
	InitSmallGaussian // N(0, 0.01)
	InitUniform       // U(-0.05, 0.05)
	InitLeCun         // N(0, 1/sqrt(fanIn))
	InitXavier        // N(0, 1/sqrt(fanIn))
	InitXavierFull    // N(0, sqrt(2/(fanIn+fanOut)))
	InitHe            // N(0, sqrt(2/fanIn))
)

var initNames = [...]string{"NONE", "ZERO", "ONE", "GAUSSIAN", "SMALL_GAUSSIAN", "UNIFORM", "LECUN", "XAVIER", "XAVIER_FULL", "HE"}

func (i Init) String() string {
	if i < 0 || int(i) >= len(initNames) {
		return "UNKNOWN"
	}
	return initNames[i]
}

// Fn returns the gorgonia initialiser implementing the scheme for the given fan in and fan
// out. InitNone returns nil.
func (i Init) Fn(fanIn, fanOut int) G.InitWFn {
	switch i {
	case InitZero:
		return G.Zeroes()
	case InitOne:
		return G.Ones()
	case InitGaussian:
		return G.Gaussian(0, 1)
	case InitSmallGaussian:
		return G.Gaussian(0, 0.01)
	case InitUniform:
		return G.Uniform(-0.05, 0.05)
	case InitLeCun, InitXavier:
		return G.Gaussian(0, 1/math.Sqrt(float64(fanIn)))
	case InitXavierFull:
		return G.Gaussian(0, math.Sqrt(2/float64(fanIn+fanOut)))
	case InitHe:
		return G.Gaussian(0, math.Sqrt(2/float64(fanIn)))
	}
	return nil
}

// Initialize fills t according to the scheme.
func Initialize(t *tensor.Dense, i Init, fanIn, fanOut int) {
	fn := i.Fn(fanIn, fanOut)
	if fn == nil {
		return
	}
	vals := fn(t.Dtype(), t.Shape().Clone()...)
	switch t.Dtype() {
	case tensor.Float32:
		copy(t.Float32s(), vals.([]float32))
	case tensor.Float64:
		copy(t.Float64s(), vals.([]float64))
	}
}

// Gaussian fills t with N(mean, std) samples.
func Gaussian(t *tensor.Dense, mean, std float64) {
	vals := G.Gaussian(mean, std)(t.Dtype(), t.Shape().Clone()...)
	switch t.Dtype() {
	case tensor.Float32:
		copy(t.Float32s(), vals.([]float32))
	case tensor.Float64:
		copy(t.Float64s(), vals.([]float64))
	}
}
