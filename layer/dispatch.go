package layer

// The accessors below read a structural dimension of any layer. For static layers the
// value is a property of the descriptor and no instance state is read; for dynamic layers
// it is read off the live instance, which must have been initialised.

func dimsOf(l Layer) Dims {
	if l.Traits().Dynamic {
		return l.Dims()
	}
	return l.Desc().Dims
}

// BatchSize is the pretraining batch size of an RBM, 0 for other layers.
func BatchSize(l Layer) int {
	if !l.Traits().RBM {
		return 0
	}
	if l.Traits().Dynamic {
		return l.(RBM).BatchSize()
	}
	if bs := l.Desc().Options.BatchSize; bs > 0 {
		return bs
	}
	return staticRBMBatch
}

// InputSize is the number of elements of one input sample of l.
func InputSize(l Layer) int {
	if l.Traits().Dynamic || !l.Traits().HasDims {
		return l.InputSize()
	}
	return l.Desc().InputSize()
}

// OutputSize is the number of elements of one output sample of l.
func OutputSize(l Layer) int {
	if l.Traits().Dynamic || !l.Traits().HasDims {
		return l.OutputSize()
	}
	return l.Desc().OutputSize()
}

func NV(l Layer) int  { return dimsOf(l).NV }
func NH(l Layer) int  { return dimsOf(l).NH }
func NC(l Layer) int  { return dimsOf(l).NC }
func K(l Layer) int   { return dimsOf(l).K }
func NV1(l Layer) int { return dimsOf(l).NV1 }
func NV2(l Layer) int { return dimsOf(l).NV2 }
func NW1(l Layer) int { return dimsOf(l).NW1 }
func NW2(l Layer) int { return dimsOf(l).NW2 }

// NH1 is the first output extent of a convolutional layer.
func NH1(l Layer) int { return dimsOf(l).NH1(l.Kind()) }

// NH2 is the second output extent of a convolutional layer.
func NH2(l Layer) int { return dimsOf(l).NH2(l.Kind()) }
