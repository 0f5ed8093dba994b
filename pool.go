package dbn

import (
	"sync"

	"gorgonia.org/tensor"
)

type poolKey struct {
	dt   tensor.Dtype
	size int
}

// bufPool holds the intermediate activations of batch inference, keyed by dtype and size.
var (
	bufPool   = make(map[poolKey]*sync.Pool)
	bufPoolMu sync.Mutex
)

// borrowTensor returns a tensor of the given shape. Its content is undefined.
func borrowTensor(dt tensor.Dtype, shape ...int) *tensor.Dense {
	k := poolKey{dt, tensor.Shape(shape).TotalSize()}
	bufPoolMu.Lock()
	p, ok := bufPool[k]
	bufPoolMu.Unlock()
	if ok {
		if t, ok := p.Get().(*tensor.Dense); ok {
			if err := t.Reshape(shape...); err == nil {
				return t
			}
		}
	}
	return tensor.New(tensor.Of(dt), tensor.WithShape(shape...))
}

// returnTensor hands t back for reuse. t must not be used afterwards.
func returnTensor(t *tensor.Dense) {
	k := poolKey{t.Dtype(), t.Shape().TotalSize()}
	bufPoolMu.Lock()
	p, ok := bufPool[k]
	if !ok {
		p = new(sync.Pool)
		bufPool[k] = p
	}
	bufPoolMu.Unlock()
	p.Put(t)
}
