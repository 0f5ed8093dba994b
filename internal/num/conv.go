package num

// Geom describes a bank of 2D filters linking a "big" stack of Big channels of extent
// B1xB2 with a "small" stack of Small channels of extent (B1-W1+1)x(B2-W2+1).
//
// Filters are stored row major as [Small, Big, W1, W2]. A valid convolution layer reads
// the big stack (its input) and writes the small one; a deconvolution layer does the
// opposite. Correlate and Scatter are adjoint to each other.
type Geom struct {
	Small, Big int
	B1, B2     int
	W1, W2     int
}

// S1 is the first spatial extent of the small stack.
func (g Geom) S1() int { return g.B1 - g.W1 + 1 }

// S2 is the second spatial extent of the small stack.
func (g Geom) S2() int { return g.B2 - g.W2 + 1 }

// SmallSize is the number of elements of the small stack.
func (g Geom) SmallSize() int { return g.Small * g.S1() * g.S2() }

// BigSize is the number of elements of the big stack.
func (g Geom) BigSize() int { return g.Big * g.B1 * g.B2 }

// FilterSize is the number of elements of the filter bank.
func (g Geom) FilterSize() int { return g.Small * g.Big * g.W1 * g.W2 }

// Correlate computes small[o,i,j] = Σ_b Σ_p Σ_q big[b,i+p,j+q] * w[o,b,p,q].
func Correlate[T Float](small, big, w []T, g Geom) {
	s1, s2 := g.S1(), g.S2()
	fs := g.W1 * g.W2
	for o := 0; o < g.Small; o++ {
		for i := 0; i < s1; i++ {
			for j := 0; j < s2; j++ {
				var acc T
				for b := 0; b < g.Big; b++ {
					wb := w[(o*g.Big+b)*fs:]
					plane := big[b*g.B1*g.B2:]
					for p := 0; p < g.W1; p++ {
						row := plane[(i+p)*g.B2+j:]
						wr := wb[p*g.W2:]
						for q := 0; q < g.W2; q++ {
							acc += row[q] * wr[q]
						}
					}
				}
				small[(o*s1+i)*s2+j] = acc
			}
		}
	}
}

// Scatter computes big[b,x,y] = Σ_o Σ_p Σ_q small[o,x-p,y-q] * w[o,b,p,q], i.e. a full
// convolution of small by the filters. big is overwritten.
func Scatter[T Float](big, small, w []T, g Geom) {
	s1, s2 := g.S1(), g.S2()
	fs := g.W1 * g.W2
	Zero(big[:g.BigSize()])
	for o := 0; o < g.Small; o++ {
		for i := 0; i < s1; i++ {
			for j := 0; j < s2; j++ {
				e := small[(o*s1+i)*s2+j]
				if e == 0 {
					continue
				}
				for b := 0; b < g.Big; b++ {
					wb := w[(o*g.Big+b)*fs:]
					plane := big[b*g.B1*g.B2:]
					for p := 0; p < g.W1; p++ {
						row := plane[(i+p)*g.B2+j:]
						wr := wb[p*g.W2:]
						for q := 0; q < g.W2; q++ {
							row[q] += e * wr[q]
						}
					}
				}
			}
		}
	}
}

// FilterGrad accumulates grad[o,b,p,q] += alpha * Σ_i Σ_j big[b,i+p,j+q] * small[o,i,j].
func FilterGrad[T Float](grad, big, small []T, g Geom, alpha T) {
	s1, s2 := g.S1(), g.S2()
	fs := g.W1 * g.W2
	for o := 0; o < g.Small; o++ {
		for b := 0; b < g.Big; b++ {
			gb := grad[(o*g.Big+b)*fs:]
			plane := big[b*g.B1*g.B2:]
			for p := 0; p < g.W1; p++ {
				for q := 0; q < g.W2; q++ {
					var acc T
					for i := 0; i < s1; i++ {
						row := plane[(i+p)*g.B2+q:]
						sr := small[(o*s1+i)*s2:]
						for j := 0; j < s2; j++ {
							acc += row[j] * sr[j]
						}
					}
					gb[p*g.W2+q] += alpha * acc
				}
			}
		}
	}
}

// AddChannelBias adds bias[c] to every element of channel c of a [len(bias), plane] stack.
func AddChannelBias[T Float](a, bias []T, plane int) {
	for c, bc := range bias {
		ch := a[c*plane : (c+1)*plane]
		for i := range ch {
			ch[i] += bc
		}
	}
}

// SumChannels accumulates sums[c] += alpha * Σ a[c, ...] for a [len(sums), plane] stack.
func SumChannels[T Float](sums, a []T, plane int, alpha T) {
	for c := range sums {
		var acc T
		for _, v := range a[c*plane : (c+1)*plane] {
			acc += v
		}
		sums[c] += alpha * acc
	}
}
