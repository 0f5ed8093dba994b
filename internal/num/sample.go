package num

import (
	"math/rand"
)

// Bernoulli sets out[i] to 1 with probability p[i] and to 0 otherwise.
func Bernoulli[T Float](out, p []T, r *rand.Rand) {
	for i, v := range p {
		if T(r.Float64()) < v {
			out[i] = 1
		} else {
			out[i] = 0
		}
	}
}

// GaussianNoise sets out[i] = mean[i] + N(0, 1).
func GaussianNoise[T Float](out, mean []T, r *rand.Rand) {
	for i, v := range mean {
		out[i] = v + T(r.NormFloat64())
	}
}

// NReLU samples noisy rectified linear units: max(0, x + N(0, sigmoid(x))).
func NReLU[T Float](out, x []T, r *rand.Rand) {
	for i, v := range x {
		s := v + T(r.NormFloat64())*sigmoid(v)
		if s < 0 {
			s = 0
		}
		out[i] = s
	}
}

// OneHot samples a single active unit from the distribution p.
func OneHot[T Float](out, p []T, r *rand.Rand) {
	u := T(r.Float64())
	var acc T
	chosen := len(p) - 1
	for i, v := range p {
		acc += v
		if u < acc {
			chosen = i
			break
		}
	}
	for i := range out {
		out[i] = 0
	}
	if chosen >= 0 {
		out[chosen] = 1
	}
}
