package num

// Func is an activation function.
type Func int

const (
	Identity Func = iota
	Sigmoid
	Tanh
	ReLU
	Softmax
)

var funcNames = [...]string{"IDENTITY", "SIGMOID", "TANH", "RELU", "SOFTMAX"}

func (f Func) String() string {
	if f < 0 || int(f) >= len(funcNames) {
		return "UNKNOWN"
	}
	return funcNames[f]
}

func sigmoid[T Float](x T) T { return 1 / (1 + exp(-x)) }

func tanh[T Float](x T) T {
	e := exp(-2 * x)
	return (1 - e) / (1 + e)
}

// Apply computes out = f(in). in and out may alias. Softmax is computed over the whole slice.
func Apply[T Float](f Func, out, in []T) {
	switch f {
	case Identity:
		copy(out, in)
	case Sigmoid:
		for i, v := range in {
			out[i] = sigmoid(v)
		}
	case Tanh:
		for i, v := range in {
			out[i] = tanh(v)
		}
	case ReLU:
		for i, v := range in {
			if v < 0 {
				v = 0
			}
			out[i] = v
		}
	case Softmax:
		SoftmaxInto(out, in)
	}
}

// SoftmaxInto computes a numerically stable softmax of in into out.
func SoftmaxInto[T Float](out, in []T) {
	if len(in) == 0 {
		return
	}
	max := in[0]
	for _, v := range in[1:] {
		if v > max {
			max = v
		}
	}
	var sum T
	for i, v := range in {
		out[i] = exp(v - max)
		sum += out[i]
	}
	for i := range out {
		out[i] /= sum
	}
}

// Derivative multiplies err in place by f'(x), expressed in terms of the activation output.
// The softmax derivative is taken as 1, it is only ever paired with a cross-entropy error.
func Derivative[T Float](f Func, err, output []T) {
	switch f {
	case Sigmoid:
		for i, o := range output {
			err[i] *= o * (1 - o)
		}
	case Tanh:
		for i, o := range output {
			err[i] *= 1 - o*o
		}
	case ReLU:
		for i, o := range output {
			if o <= 0 {
				err[i] = 0
			}
		}
	}
}
