package num

// Pool describes a 3D pooling of an I1xI2xI3 volume by C1xC2xC3 blocks. Input elements
// that do not belong to a complete block are ignored.
type Pool struct {
	I1, I2, I3 int
	C1, C2, C3 int
}

func (p Pool) O1() int { return p.I1 / p.C1 }
func (p Pool) O2() int { return p.I2 / p.C2 }
func (p Pool) O3() int { return p.I3 / p.C3 }

// InSize is the number of elements of the pooled volume.
func (p Pool) InSize() int { return p.I1 * p.I2 * p.I3 }

// OutSize is the number of elements of the reduced volume.
func (p Pool) OutSize() int { return p.O1() * p.O2() * p.O3() }

func (p Pool) block() int { return p.C1 * p.C2 * p.C3 }

// each calls fn for every input element of every complete block, giving the input and
// output flat indices.
func (p Pool) each(fn func(in, out int)) {
	o1, o2, o3 := p.O1(), p.O2(), p.O3()
	for a := 0; a < o1; a++ {
		for b := 0; b < o2; b++ {
			for c := 0; c < o3; c++ {
				out := (a*o2+b)*o3 + c
				for x := 0; x < p.C1; x++ {
					for y := 0; y < p.C2; y++ {
						for z := 0; z < p.C3; z++ {
							in := ((a*p.C1+x)*p.I2+(b*p.C2+y))*p.I3 + (c*p.C3 + z)
							fn(in, out)
						}
					}
				}
			}
		}
	}
}

// MaxPool writes the maximum of every block of in into out.
func MaxPool[T Float](out, in []T, p Pool) {
	seen := make([]bool, len(out))
	p.each(func(i, o int) {
		if !seen[o] || in[i] > out[o] {
			out[o] = in[i]
			seen[o] = true
		}
	})
}

// MaxPoolBackward routes err[o] to every input element equal to the maximum of its
// block. inErr is overwritten.
func MaxPoolBackward[T Float](inErr, in, out, err []T, p Pool) {
	Zero(inErr)
	p.each(func(i, o int) {
		if in[i] == out[o] {
			inErr[i] = err[o]
		}
	})
}

// AvgPool writes the mean of every block of in into out.
func AvgPool[T Float](out, in []T, p Pool) {
	Zero(out)
	p.each(func(i, o int) { out[o] += in[i] })
	n := T(p.block())
	for o := range out {
		out[o] /= n
	}
}

// AvgPoolBackward spreads err[o] evenly over its block. inErr is overwritten.
func AvgPoolBackward[T Float](inErr, err []T, p Pool) {
	Zero(inErr)
	n := T(p.block())
	p.each(func(i, o int) { inErr[i] = err[o] / n })
}

// Upsample replicates every element of the reduced volume in over its block in out, out
// being the pooled volume described by p.
func Upsample[T Float](out, in []T, p Pool) {
	Zero(out)
	p.each(func(i, o int) { out[i] = in[o] })
}

// UpsampleBackward sums err over every block into inErr. It is the adjoint of Upsample.
func UpsampleBackward[T Float](inErr, err []T, p Pool) {
	Zero(inErr)
	p.each(func(i, o int) { inErr[o] += err[i] })
}
