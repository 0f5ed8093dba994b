package dbn

import (
	"math/rand"

	"github.com/gorgonia/dbn/internal/num"
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
	"gorgonia.org/tensor/native"
)

// OneHot builds the [len(classes), n] label matrix of the given classes.
func OneHot(dt tensor.Dtype, classes []int, n int) (*tensor.Dense, error) {
	retVal := tensor.New(tensor.Of(dt), tensor.WithShape(len(classes), n))
	for i, c := range classes {
		if c < 0 || c >= n {
			return nil, errors.Errorf("class %d of sample %d is out of [0, %d)", c, i, n)
		}
		num.Set(retVal, i*n+c, 1)
	}
	return retVal, nil
}

// Binarize sets every element of data to 1 if it is above threshold and to 0 otherwise.
func Binarize(data *tensor.Dense, threshold float64) {
	for i, n := 0, data.Shape().TotalSize(); i < n; i++ {
		v := 0.0
		if num.At(data, i) > threshold {
			v = 1
		}
		num.Set(data, i, v)
	}
}

// sampleSize is the number of elements of one sample of a batch.
func sampleSize(t *tensor.Dense) int {
	if t.Dims() == 0 || t.Shape()[0] == 0 {
		return 0
	}
	return t.Shape().TotalSize() / t.Shape()[0]
}

// view builds a tensor of the given shape over the elements [start, end) of the backing
// of t. The two tensors share their memory.
func view(t *tensor.Dense, start, end int, shape ...int) *tensor.Dense {
	var backing interface{}
	switch t.Dtype() {
	case tensor.Float32:
		backing = t.Float32s()[start:end]
	case tensor.Float64:
		backing = t.Float64s()[start:end]
	default:
		panic("unsupported dtype " + t.Dtype().String())
	}
	return tensor.New(tensor.WithShape(shape...), tensor.WithBacking(backing))
}

// rows returns the samples [start, end) of a batch.
func rows(t *tensor.Dense, start, end int) *tensor.Dense {
	size := sampleSize(t)
	shape := append(tensor.Shape{end - start}, t.Shape()[1:]...)
	return view(t, start*size, end*size, shape...)
}

// sample returns the i-th sample of a batch, without the leading dimension.
func sample(t *tensor.Dense, i int) *tensor.Dense {
	size := sampleSize(t)
	return view(t, i*size, (i+1)*size, t.Shape()[1:].Clone()...)
}

// flat returns t as a [n, size] matrix.
func flat(t *tensor.Dense) *tensor.Dense {
	n := t.Shape()[0]
	return view(t, 0, t.Shape().TotalSize(), n, sampleSize(t))
}

// asBatch returns a single sample as a batch of one.
func asBatch(t *tensor.Dense) *tensor.Dense {
	return view(t, 0, t.Shape().TotalSize(), append(tensor.Shape{1}, t.Shape()...)...)
}

// shuffleRows applies the same random permutation to the samples of data and labels.
// labels may be nil.
func shuffleRows(r *rand.Rand, data, labels *tensor.Dense) (err error) {
	if data.Dtype() != tensor.Float32 && data.Dtype() != tensor.Float64 {
		return errors.Errorf("cannot shuffle a %v batch", data.Dtype())
	}
	if labels != nil && labels.Dtype() != data.Dtype() {
		return errors.Errorf("cannot shuffle %v labels with %v data", labels.Dtype(), data.Dtype())
	}
	if data.Dims() == 0 || data.Shape()[0] < 2 {
		return nil
	}
	dm := flat(data)
	var lm *tensor.Dense
	if labels != nil {
		lm = flat(labels)
	}
	switch data.Dtype() {
	case tensor.Float32:
		return shuffle[float32](r, dm, lm)
	default:
		return shuffle[float64](r, dm, lm)
	}
}

// matrix views the rows of a 2D tensor as slices sharing its memory.
func matrix[T num.Float](a *tensor.Dense) ([][]T, error) {
	var m interface{}
	var err error
	switch a.Dtype() {
	case tensor.Float32:
		m, err = native.MatrixF32(a)
	default:
		m, err = native.MatrixF64(a)
	}
	if err != nil {
		return nil, err
	}
	return m.([][]T), nil
}

func shuffle[T num.Float](r *rand.Rand, data, labels *tensor.Dense) (err error) {
	var matX, matY [][]T
	if matX, err = matrix[T](data); err != nil {
		return errors.Wrapf(err, "shuffle failed - data")
	}
	if labels != nil {
		if matY, err = matrix[T](labels); err != nil {
			return errors.Wrapf(err, "shuffle failed - labels")
		}
	}
	tmp := make([]T, len(matX[0]))
	var tmpY []T
	if matY != nil {
		tmpY = make([]T, len(matY[0]))
	}
	for i := range matX {
		j := r.Intn(i + 1)
		copy(tmp, matX[i])
		copy(matX[i], matX[j])
		copy(matX[j], tmp)
		if matY != nil {
			copy(tmpY, matY[i])
			copy(matY[i], matY[j])
			copy(matY[j], tmpY)
		}
	}
	return nil
}

// classify returns the index of the largest of the size elements of every sample of out.
func classify(out *tensor.Dense, n, size int) []int {
	retVal := make([]int, n)
	for i := range retVal {
		retVal[i] = num.Argmax(out, i*size, (i+1)*size)
	}
	return retVal
}
