package layer

import (
	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// Dims holds the structural dimensions of a layer. Which fields are meaningful depends on
// the kind of the layer.
type Dims struct {
	NV, NH int // dense, RBM

	NC, NV1, NV2 int // conv, deconv, conv RBM: input channels and extents
	K, NW1, NW2  int // filter count and extents

	I1, I2, I3 int // pooling: input volume
	C1, C2, C3 int // pooling factors

	Height, Width, VStride, HStride int // patches; input extents are NV1 x NV2

	Shape []int // transforms and augmentation: the sample shape
}

// NH1 is the first output extent of a convolutional kind.
func (d Dims) NH1(k Kind) int {
	if k == KindDeconv {
		return d.NV1 + d.NW1 - 1
	}
	return d.NV1 - d.NW1 + 1
}

// NH2 is the second output extent of a convolutional kind.
func (d Dims) NH2(k Kind) int {
	if k == KindDeconv {
		return d.NV2 + d.NW2 - 1
	}
	return d.NV2 - d.NW2 + 1
}

// PatchRows is the number of patch rows extracted from an input.
func (d Dims) PatchRows() int { return (d.NV1-d.Height)/d.VStride + 1 }

// PatchCols is the number of patch columns extracted from an input.
func (d Dims) PatchCols() int { return (d.NV2-d.Width)/d.HStride + 1 }

// InputShape is the shape of one input sample of a layer of kind k.
func (d Dims) InputShape(k Kind) tensor.Shape {
	switch k {
	case KindDense, KindRBM:
		return tensor.Shape{d.NV}
	case KindConv, KindDeconv, KindConvRBM:
		return tensor.Shape{d.NC, d.NV1, d.NV2}
	case KindMaxPool, KindAvgPool, KindUpsample:
		return tensor.Shape{d.I1, d.I2, d.I3}
	case KindPatches:
		return tensor.Shape{1, d.NV1, d.NV2}
	}
	return tensor.Shape(d.Shape).Clone()
}

// OutputShape is the shape of one output sample of a layer of kind k.
func (d Dims) OutputShape(k Kind) tensor.Shape {
	switch k {
	case KindDense, KindRBM:
		return tensor.Shape{d.NH}
	case KindConv, KindConvRBM, KindDeconv:
		return tensor.Shape{d.K, d.NH1(k), d.NH2(k)}
	case KindMaxPool, KindAvgPool:
		return tensor.Shape{d.I1 / d.C1, d.I2 / d.C2, d.I3 / d.C3}
	case KindUpsample:
		return tensor.Shape{d.I1 * d.C1, d.I2 * d.C2, d.I3 * d.C3}
	case KindPatches:
		return tensor.Shape{1, d.Height, d.Width}
	}
	return tensor.Shape(d.Shape).Clone()
}

// fromInts builds the dimensions of a layer of kind k from the arguments of InitLayer.
func fromInts(k Kind, dims []int) (Dims, error) {
	var d Dims
	want := 6
	switch k {
	case KindDense, KindRBM:
		want = 2
	case KindRectifier, KindScale, KindBinarize, KindLCN, KindRandom, KindAugment:
		want = len(dims)
		if want == 0 {
			return d, errors.Wrapf(ErrDims, "%v needs a sample shape", k)
		}
	}
	if len(dims) != want {
		return d, errors.Wrapf(ErrDims, "%v expects %d dimensions, got %d", k, want, len(dims))
	}
	for _, v := range dims {
		if v <= 0 {
			return d, errors.Wrapf(ErrDims, "%v: %v", k, dims)
		}
	}
	switch k {
	case KindDense, KindRBM:
		d.NV, d.NH = dims[0], dims[1]
	case KindConv, KindDeconv, KindConvRBM:
		d.NC, d.NV1, d.NV2, d.K, d.NW1, d.NW2 = dims[0], dims[1], dims[2], dims[3], dims[4], dims[5]
		if k != KindDeconv && (d.NW1 > d.NV1 || d.NW2 > d.NV2) {
			return d, errors.Wrapf(ErrDims, "%v: filter %dx%d larger than input %dx%d", k, d.NW1, d.NW2, d.NV1, d.NV2)
		}
	case KindMaxPool, KindAvgPool, KindUpsample:
		d.I1, d.I2, d.I3, d.C1, d.C2, d.C3 = dims[0], dims[1], dims[2], dims[3], dims[4], dims[5]
		if k != KindUpsample && (d.C1 > d.I1 || d.C2 > d.I2 || d.C3 > d.I3) {
			return d, errors.Wrapf(ErrDims, "%v: pooling factors larger than input", k)
		}
	case KindPatches:
		d.NV1, d.NV2, d.Height, d.Width, d.VStride, d.HStride = dims[0], dims[1], dims[2], dims[3], dims[4], dims[5]
		if d.Height > d.NV1 || d.Width > d.NV2 {
			return d, errors.Wrapf(ErrDims, "%v: patch %dx%d larger than input %dx%d", k, d.Height, d.Width, d.NV1, d.NV2)
		}
	default:
		d.Shape = append([]int(nil), dims...)
	}
	return d, nil
}

// ints is the inverse of fromInts.
func (d Dims) ints(k Kind) []int {
	switch k {
	case KindDense, KindRBM:
		return []int{d.NV, d.NH}
	case KindConv, KindDeconv, KindConvRBM:
		return []int{d.NC, d.NV1, d.NV2, d.K, d.NW1, d.NW2}
	case KindMaxPool, KindAvgPool, KindUpsample:
		return []int{d.I1, d.I2, d.I3, d.C1, d.C2, d.C3}
	case KindPatches:
		return []int{d.NV1, d.NV2, d.Height, d.Width, d.VStride, d.HStride}
	}
	return append([]int(nil), d.Shape...)
}

// Desc describes a layer. A static descriptor carries the dimensions of the layer; a
// dynamic one leaves them to InitLayer.
type Desc struct {
	Kind    Kind
	Dynamic bool
	Dims    Dims
	Options Options
}

func newDesc(k Kind, dims []int, opts []Option) (Desc, error) {
	o, err := resolve(k, opts)
	if err != nil {
		return Desc{}, err
	}
	d := Desc{Kind: k, Dynamic: dims == nil && hasDims(k), Options: o}
	if err := d.validate(); err != nil {
		return Desc{}, err
	}
	if dims != nil {
		if d.Dims, err = fromInts(k, dims); err != nil {
			return Desc{}, err
		}
	}
	return d, nil
}

func (d Desc) validate() error {
	o := d.Options
	switch d.Kind {
	case KindRBM, KindConvRBM:
		if o.Visible != Binary && o.Visible != Gaussian {
			return errors.Wrapf(ErrUnsupportedUnit, "%v visible units: %v", d.Kind, o.Visible)
		}
		switch o.Hidden {
		case Binary, ReLUUnit:
		case SoftmaxUnit:
			if d.Kind == KindConvRBM {
				return errors.Wrapf(ErrUnsupportedUnit, "%v hidden units: %v", d.Kind, o.Hidden)
			}
		default:
			return errors.Wrapf(ErrUnsupportedUnit, "%v hidden units: %v", d.Kind, o.Hidden)
		}
		if o.BatchSize < 0 {
			return errors.Wrapf(ErrDims, "batch size %d", o.BatchSize)
		}
	case KindRectifier:
		if o.Rectifier != Abs {
			return errors.Wrapf(ErrUnimplemented, "rectifier method %v", o.Rectifier)
		}
	case KindLCN:
		if o.Kernel <= 0 || o.Kernel%2 == 0 {
			return errors.Wrapf(ErrDims, "%v kernel %d is not a positive odd extent", d.Kind, o.Kernel)
		}
	case KindAugment:
		if o.Copies < 0 || o.Elastic < 0 {
			return errors.Wrapf(ErrDims, "augmentation factors %d, %d", o.Copies, o.Elastic)
		}
	}
	return nil
}

// Dense describes a fully connected layer of nv inputs and nh outputs.
func Dense(nv, nh int, opts ...Option) (Desc, error) {
	return newDesc(KindDense, []int{nv, nh}, opts)
}

// DynDense describes a fully connected layer sized by InitLayer(nv, nh).
func DynDense(opts ...Option) (Desc, error) { return newDesc(KindDense, nil, opts) }

// Conv describes a valid convolution of an nc x nv1 x nv2 input by k filters of nw1 x nw2.
func Conv(nc, nv1, nv2, k, nw1, nw2 int, opts ...Option) (Desc, error) {
	return newDesc(KindConv, []int{nc, nv1, nv2, k, nw1, nw2}, opts)
}

// DynConv describes a convolution sized by InitLayer(nc, nv1, nv2, k, nw1, nw2).
func DynConv(opts ...Option) (Desc, error) { return newDesc(KindConv, nil, opts) }

// Deconv describes a full convolution of an nc x nv1 x nv2 input by k filters of nw1 x nw2.
func Deconv(nc, nv1, nv2, k, nw1, nw2 int, opts ...Option) (Desc, error) {
	return newDesc(KindDeconv, []int{nc, nv1, nv2, k, nw1, nw2}, opts)
}

// DynDeconv describes a deconvolution sized by InitLayer(nc, nv1, nv2, k, nw1, nw2).
func DynDeconv(opts ...Option) (Desc, error) { return newDesc(KindDeconv, nil, opts) }

// MaxPool describes a 3D max pooling of an i1 x i2 x i3 volume by c1 x c2 x c3 blocks.
func MaxPool(i1, i2, i3, c1, c2, c3 int, opts ...Option) (Desc, error) {
	return newDesc(KindMaxPool, []int{i1, i2, i3, c1, c2, c3}, opts)
}

func DynMaxPool(opts ...Option) (Desc, error) { return newDesc(KindMaxPool, nil, opts) }

// AvgPool describes a 3D average pooling of an i1 x i2 x i3 volume by c1 x c2 x c3 blocks.
func AvgPool(i1, i2, i3, c1, c2, c3 int, opts ...Option) (Desc, error) {
	return newDesc(KindAvgPool, []int{i1, i2, i3, c1, c2, c3}, opts)
}

func DynAvgPool(opts ...Option) (Desc, error) { return newDesc(KindAvgPool, nil, opts) }

// Upsample describes a 3D upsampling of an i1 x i2 x i3 volume by c1 x c2 x c3.
func Upsample(i1, i2, i3, c1, c2, c3 int, opts ...Option) (Desc, error) {
	return newDesc(KindUpsample, []int{i1, i2, i3, c1, c2, c3}, opts)
}

func DynUpsample(opts ...Option) (Desc, error) { return newDesc(KindUpsample, nil, opts) }

// DenseRBM describes a dense restricted Boltzmann machine.
func DenseRBM(nv, nh int, opts ...Option) (Desc, error) {
	return newDesc(KindRBM, []int{nv, nh}, opts)
}

// DynDenseRBM describes a dense RBM sized by InitLayer(nv, nh).
func DynDenseRBM(opts ...Option) (Desc, error) { return newDesc(KindRBM, nil, opts) }

// ConvRBM describes a convolutional RBM over an nc x nv1 x nv2 visible volume with k
// filters of nw1 x nw2.
func ConvRBM(nc, nv1, nv2, k, nw1, nw2 int, opts ...Option) (Desc, error) {
	return newDesc(KindConvRBM, []int{nc, nv1, nv2, k, nw1, nw2}, opts)
}

func DynConvRBM(opts ...Option) (Desc, error) { return newDesc(KindConvRBM, nil, opts) }

// Patches describes the extraction of height x width patches every vstride rows and
// hstride columns of a single channel nv1 x nv2 input.
func Patches(nv1, nv2, height, width, vstride, hstride int, opts ...Option) (Desc, error) {
	return newDesc(KindPatches, []int{nv1, nv2, height, width, vstride, hstride}, opts)
}

func DynPatches(opts ...Option) (Desc, error) { return newDesc(KindPatches, nil, opts) }

// Rectifier describes an element wise rectifier.
func Rectifier(opts ...Option) (Desc, error) { return newDesc(KindRectifier, nil, opts) }

// Scale describes an element wise multiplication by a constant factor.
func Scale(opts ...Option) (Desc, error) { return newDesc(KindScale, nil, opts) }

// Binarize describes an element wise threshold.
func Binarize(opts ...Option) (Desc, error) { return newDesc(KindBinarize, nil, opts) }

// LCN describes a local contrast normalization of every 2D plane of a sample, with a
// gaussian window of WithKernel extent (9 by default).
func LCN(opts ...Option) (Desc, error) { return newDesc(KindLCN, nil, opts) }

// Random describes a layer emitting standard normal noise of the shape of its input.
func Random(opts ...Option) (Desc, error) { return newDesc(KindRandom, nil, opts) }

// Augment describes a data augmentation layer.
func Augment(opts ...Option) (Desc, error) { return newDesc(KindAugment, nil, opts) }

// Must panics if err is not nil.
func Must(d Desc, err error) Desc {
	if err != nil {
		panic(err)
	}
	return d
}

// Traits returns the capabilities of the layers described by d.
func (d Desc) Traits() Traits { return TraitsOf(d) }

// sized reports whether d carries the dimensions of its layers.
func (d Desc) sized() bool { return !d.Dynamic && (hasDims(d.Kind) || d.Dims.Shape != nil) }

// InputSize is the number of elements of one input sample, 0 when the descriptor carries
// no dimensions.
func (d Desc) InputSize() int {
	if !d.sized() {
		return 0
	}
	return d.Dims.InputShape(d.Kind).TotalSize()
}

// OutputSize is the number of elements of one output sample, 0 when the descriptor
// carries no dimensions.
func (d Desc) OutputSize() int {
	if !d.sized() {
		return 0
	}
	return d.Dims.OutputShape(d.Kind).TotalSize()
}

// Static returns the static descriptor with the same options as d and the given
// dimensions. For transform and augmentation kinds the dimensions are the sample shape, and
// the layers built from the result are ready.
func (d Desc) Static(dims ...int) (Desc, error) {
	dd, err := fromInts(d.Kind, dims)
	if err != nil {
		return Desc{}, err
	}
	d.Dims = dd
	d.Dynamic = false
	return d, nil
}

// Dyn returns the dynamic counterpart of d.
func (d Desc) Dyn() Desc {
	d.Dynamic = d.Traits().HasDims
	d.Dims = Dims{}
	return d
}

// Layer builds the layer described by d. Layers of a dynamic descriptor must be sized with
// InitLayer before use.
func (d Desc) Layer() (Layer, error) {
	switch d.Options.WeightType {
	case tensor.Float32:
		return build[float32](d)
	case tensor.Float64:
		return build[float64](d)
	}
	return nil, errors.Wrapf(ErrDtype, "%v", d.Options.WeightType)
}

// DynLayer builds an uninitialised dynamic layer of the same kind and options as d.
func (d Desc) DynLayer() (Layer, error) { return d.Dyn().Layer() }

func build[T num.Float](d Desc) (Layer, error) {
	var l Layer
	switch d.Kind {
	case KindDense:
		l = &DenseLayer[T]{base: base{desc: d}}
	case KindConv:
		l = &ConvLayer[T]{base: base{desc: d}}
	case KindDeconv:
		l = &DeconvLayer[T]{base: base{desc: d}}
	case KindMaxPool, KindAvgPool:
		l = &PoolLayer[T]{base: base{desc: d}}
	case KindUpsample:
		l = &UpsampleLayer[T]{base: base{desc: d}}
	case KindRBM, KindConvRBM:
		l = newRBM[T](d)
	case KindRectifier, KindScale, KindBinarize, KindLCN, KindRandom:
		l = newTransform[T](d)
	case KindPatches:
		l = &PatchesLayer[T]{base: base{desc: d}}
	case KindAugment:
		l = newAugment[T](d)
	default:
		return nil, errors.Errorf("unknown layer kind %v", d.Kind)
	}
	if d.sized() {
		if err := l.(initializer).init(d.Dims); err != nil {
			return nil, err
		}
	}
	return l, nil
}
