package num

import (
	"math"
	"math/rand"
)

// Elastic describes an elastic distortion: a random displacement field smoothed by a
// gaussian of standard deviation Sigma and scaled by Alpha.
type Elastic struct {
	Alpha, Sigma float64
}

// DefaultElastic is the distortion used by augmentation layers.
var DefaultElastic = Elastic{Alpha: 4, Sigma: 1.5}

func (e Elastic) kernel() []float64 {
	radius := int(math.Ceil(3 * e.Sigma))
	k := make([]float64, 2*radius+1)
	var sum float64
	for i := range k {
		x := float64(i - radius)
		k[i] = math.Exp(-x * x / (2 * e.Sigma * e.Sigma))
		sum += k[i]
	}
	for i := range k {
		k[i] /= sum
	}
	return k
}

// smooth applies a separable gaussian blur to the h x w field f.
func smooth(f []float64, h, w int, k []float64) {
	r := len(k) / 2
	tmp := make([]float64, len(f))
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			var s float64
			for d, kv := range k {
				jj := j + d - r
				if jj >= 0 && jj < w {
					s += kv * f[i*w+jj]
				}
			}
			tmp[i*w+j] = s
		}
	}
	for i := 0; i < h; i++ {
		for j := 0; j < w; j++ {
			var s float64
			for d, kv := range k {
				ii := i + d - r
				if ii >= 0 && ii < h {
					s += kv * tmp[ii*w+j]
				}
			}
			f[i*w+j] = s
		}
	}
}

// Distort writes an elastically distorted copy of the channels x h x w volume in into out.
// The same displacement field is used for every channel.
func Distort[T Float](out, in []T, channels, h, w int, e Elastic, r *rand.Rand) {
	dx := make([]float64, h*w)
	dy := make([]float64, h*w)
	for i := range dx {
		dx[i] = 2*r.Float64() - 1
		dy[i] = 2*r.Float64() - 1
	}
	k := e.kernel()
	smooth(dx, h, w, k)
	smooth(dy, h, w, k)

	plane := h * w
	at := func(c, i, j int) float64 {
		if i < 0 || i >= h || j < 0 || j >= w {
			return 0
		}
		return float64(in[c*plane+i*w+j])
	}
	for c := 0; c < channels; c++ {
		for i := 0; i < h; i++ {
			for j := 0; j < w; j++ {
				y := float64(i) + e.Alpha*dy[i*w+j]
				x := float64(j) + e.Alpha*dx[i*w+j]
				y0, x0 := int(math.Floor(y)), int(math.Floor(x))
				fy, fx := y-float64(y0), x-float64(x0)
				v := (1-fy)*((1-fx)*at(c, y0, x0)+fx*at(c, y0, x0+1)) +
					fy*((1-fx)*at(c, y0+1, x0)+fx*at(c, y0+1, x0+1))
				out[c*plane+i*w+j] = T(v)
			}
		}
	}
}
