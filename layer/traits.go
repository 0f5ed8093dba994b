package layer

// Traits is the capability record of a layer. It is computed from a descriptor by
// TraitsOf and never stored independently.
type Traits struct {
	Kind Kind

	Neural    bool // has trainable weights
	Dense     bool
	Conv      bool
	Deconv    bool
	Standard  bool // feed-forward, trained by gradient descent
	RBM       bool // energy based, trained by contrastive divergence
	Pooling   bool
	Unpooling bool
	Transform bool
	Patches   bool
	Augment   bool

	Dynamic bool // dimensions set at runtime by InitLayer
	HasDims bool // has structural dimensions at all

	SGDSupported bool
	PretrainLast bool // pretrain the layer when it is the last of a stack
}

// TraitsOf computes the traits of the layers described by d.
func TraitsOf(d Desc) Traits {
	k := d.Kind
	t := Traits{
		Kind:      k,
		Dense:     k == KindDense || k == KindRBM,
		Conv:      k == KindConv || k == KindConvRBM,
		Deconv:    k == KindDeconv,
		RBM:       k == KindRBM || k == KindConvRBM,
		Pooling:   k == KindMaxPool || k == KindAvgPool,
		Unpooling: k == KindUpsample,
		Transform: k == KindRectifier || k == KindScale || k == KindBinarize || k == KindLCN || k == KindRandom,
		Patches:   k == KindPatches,
		Augment:   k == KindAugment,
		HasDims:   hasDims(k),
	}
	t.Neural = t.Dense || t.Conv || t.Deconv
	t.Standard = t.Neural && !t.RBM
	t.Dynamic = t.HasDims && d.Dynamic
	t.SGDSupported = !t.Augment
	t.PretrainLast = !t.Patches && (!t.RBM || d.Options.Hidden != SoftmaxUnit)
	return t
}

func hasDims(k Kind) bool {
	switch k {
	case KindRectifier, KindScale, KindBinarize, KindLCN, KindRandom, KindAugment:
		return false
	}
	return true
}

// IsMultiplex reports whether the layer emits several samples per input sample.
func (t Traits) IsMultiplex() bool { return t.Augment || t.Patches }

// HasSameType reports whether the output of the layer has the shape of its input.
func (t Traits) HasSameType() bool { return t.Transform || t.Augment }

// IsTrained reports whether the layer has parameters updated during fine-tuning.
func (t Traits) IsTrained() bool { return t.Neural }

// IsPretrained reports whether the layer is pretrained by contrastive divergence.
func (t Traits) IsPretrained() bool { return t.RBM }

// IsStandardDense reports whether the layer is a feed-forward dense layer.
func (t Traits) IsStandardDense() bool { return t.Standard && t.Dense }

// IsStandardConv reports whether the layer is a feed-forward convolutional layer.
func (t Traits) IsStandardConv() bool { return t.Standard && t.Conv }

// IsDenseRBM reports whether the layer is a dense RBM.
func (t Traits) IsDenseRBM() bool { return t.RBM && t.Dense }

// IsConvRBM reports whether the layer is a convolutional RBM.
func (t Traits) IsConvRBM() bool { return t.RBM && t.Conv }

// RBMTraits are the training capabilities of an RBM.
type RBMTraits struct {
	Momentum    bool
	Clip        bool
	Parallel    bool
	Serial      bool
	Verbose     bool
	Shuffle     bool
	DBNOnly     bool
	Sparsity    Sparsity
	Bias        BiasMode
	Decay       Decay
	InitWeights bool
	FreeEnergy  bool
}

// RBMTraitsOf computes the RBM traits of d. ok is false when d does not describe an RBM.
func RBMTraitsOf(d Desc) (rt RBMTraits, ok bool) {
	if !TraitsOf(d).RBM {
		return rt, false
	}
	o := d.Options
	return RBMTraits{
		Momentum:    o.Momentum,
		Clip:        o.Clip,
		Parallel:    o.Parallel && !o.Serial,
		Serial:      o.Serial || !o.Parallel,
		Verbose:     o.Verbose,
		Shuffle:     o.Shuffle,
		DBNOnly:     o.DBNOnly,
		Sparsity:    o.Sparsity,
		Bias:        o.Bias,
		Decay:       o.Decay,
		InitWeights: o.InitWeights,
		FreeEnergy:  o.FreeEnergy,
	}, true
}
