package num

import (
	"math/rand"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
)

func TestGaussianKernel(t *testing.T) {
	k := GaussianKernel[float64](5, LCNSigma)
	assert.Len(t, k, 25)
	var sum float64
	for _, v := range k {
		sum += v
		assert.True(t, v <= k[12], "the middle element is the largest")
	}
	assert.InDelta(t, 1, sum, 1e-12)
	for p := 0; p < 5; p++ {
		for q := 0; q < 5; q++ {
			assert.InDelta(t, k[p*5+q], k[q*5+p], 1e-15)
			assert.InDelta(t, k[p*5+q], k[(4-p)*5+(4-q)], 1e-15)
		}
	}
	assert.Equal(t, []float32{1}, GaussianKernel[float32](1, LCNSigma))
}

func TestLCN(t *testing.T) {
	const h, w = 7, 6
	kernel := GaussianKernel[float64](3, LCNSigma)

	t.Run("constant plane", func(t *testing.T) {
		in := make([]float64, h*w)
		for i := range in {
			in[i] = 4
		}
		out := make([]float64, h*w)
		LCN(out, in, kernel, h, w)
		// the window of the inner elements does not reach the padding
		for i := 1; i < h-1; i++ {
			for j := 1; j < w-1; j++ {
				assert.InDelta(t, 0, out[i*w+j], 1e-12, "(%d, %d)", i, j)
			}
		}
		assert.NotZero(t, out[0])
	})

	t.Run("planes", func(t *testing.T) {
		r := rand.New(rand.NewSource(3))
		in := randSlice(r, 2*h*w)
		out := make([]float64, len(in))
		LCN(out, in, kernel, h, w)

		second := make([]float64, h*w)
		LCN(second, in[h*w:], kernel, h, w)
		assert.Equal(t, second, out[h*w:])

		scaled := make([]float64, len(in))
		for i, v := range in {
			scaled[i] = 3 * v
		}
		again := make([]float64, len(in))
		LCN(again, scaled, kernel, h, w)
		if diff := cmp.Diff(out, again, cmpopts.EquateApprox(0, 1e-9)); diff != "" {
			t.Errorf("contrast normalization depends on the scale of the input (-want +got):\n%s", diff)
		}
	})
}
