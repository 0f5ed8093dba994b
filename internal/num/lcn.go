package num

import "math"

// LCNSigma is the standard deviation of the window of local contrast normalization.
const LCNSigma = 2.0

// GaussianKernel returns a k x k gaussian window of standard deviation sigma centred on
// its middle element. Its elements sum to 1.
func GaussianKernel[T Float](k int, sigma float64) []T {
	raw := make([]float64, k*k)
	c := float64(k / 2)
	var sum float64
	for p := 0; p < k; p++ {
		for q := 0; q < k; q++ {
			x, y := float64(p)-c, float64(q)-c
			raw[p*k+q] = math.Exp(-(x*x + y*y) / (2 * sigma * sigma))
			sum += raw[p*k+q]
		}
	}
	retVal := make([]T, len(raw))
	for i, v := range raw {
		retVal[i] = T(v / sum)
	}
	return retVal
}

// pad writes the h x w plane src into the middle of dst, a zeroed (h+2r) x (w+2r) plane.
func pad[T Float](dst, src []T, h, w, r int) {
	Zero(dst)
	pw := w + 2*r
	for i := 0; i < h; i++ {
		copy(dst[(i+r)*pw+r:], src[i*w:(i+1)*w])
	}
}

// LCN normalizes the contrast of every h x w plane of in into out. Each element is
// centred on the weighted mean of its neighbourhood and divided by the larger of the
// weighted standard deviation of its neighbourhood and the mean of those deviations over
// the plane. kernel is an odd k x k window from GaussianKernel; outside the plane the
// input is taken as 0.
func LCN[T Float](out, in, kernel []T, h, w int) {
	k := int(math.Sqrt(float64(len(kernel))))
	g := Geom{Small: 1, Big: 1, B1: h + k - 1, B2: w + k - 1, W1: k, W2: k}
	padded := make([]T, g.BigSize())
	local := make([]T, h*w)
	dev := make([]T, h*w)

	plane := h * w
	for c := 0; c+plane <= len(in); c += plane {
		src, dst := in[c:c+plane], out[c:c+plane]
		pad(padded, src, h, w, k/2)
		Correlate(local, padded, kernel, g)
		for i, v := range src {
			dst[i] = v - local[i]
			local[i] = dst[i] * dst[i]
		}

		pad(padded, local, h, w, k/2)
		Correlate(dev, padded, kernel, g)
		var mean T
		for i, v := range dev {
			dev[i] = T(math.Sqrt(float64(v)))
			mean += dev[i]
		}
		mean /= T(plane)

		for i, d := range dev {
			if d = max(d, mean); d > 0 {
				dst[i] /= d
			}
		}
	}
}
