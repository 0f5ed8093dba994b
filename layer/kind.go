package layer

// Kind is the closed set of layer kinds.
type Kind int

const (
	KindDense Kind = iota
	KindConv
	KindDeconv
	KindMaxPool
	KindAvgPool
	KindUpsample
	KindRBM
	KindConvRBM
	KindRectifier
	KindScale
	KindBinarize
	KindLCN
	KindRandom
	KindPatches
	KindAugment

	maxKind
)

var kindNames = [...]string{
	"Dense",
	"Conv",
	"Deconv",
	"MaxPool",
	"AvgPool",
	"Upsample",
	"RBM",
	"ConvRBM",
	"Rectifier",
	"Scale",
	"Binarize",
	"LCN",
	"Random",
	"Patches",
	"Augment",
}

func (k Kind) String() string {
	if k < 0 || k >= maxKind {
		return "UnknownKind"
	}
	return kindNames[k]
}
