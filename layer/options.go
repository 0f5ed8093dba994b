package layer

import (
	"github.com/pkg/errors"
	"gorgonia.org/tensor"
)

// OptionKind identifies a configuration option. Every layer kind accepts a fixed set of
// option kinds.
type OptionKind int

const (
	OptWeightType OptionKind = iota
	OptActivation
	OptInit
	OptBiasInit
	OptVisible
	OptHidden
	OptBatchSize
	OptMomentum
	OptDecay
	OptSparsity
	OptBias
	OptDBNOnly
	OptParallel
	OptSerial
	OptVerbose
	OptShuffle
	OptClip
	OptFreeEnergy
	OptInitWeights
	OptCopy
	OptElastic
	OptRectifier
	OptFactor
	OptThreshold
	OptKernel
)

var optionNames = [...]string{
	"WeightType", "Activation", "Init", "BiasInit", "Visible", "Hidden", "BatchSize",
	"Momentum", "Decay", "Sparsity", "Bias", "DBNOnly", "Parallel", "Serial", "Verbose",
	"Shuffle", "Clip", "FreeEnergy", "InitWeights", "Copy", "Elastic", "Rectifier", "Factor",
	"Threshold", "Kernel",
}

func (k OptionKind) String() string {
	if k < 0 || int(k) >= len(optionNames) {
		return "UnknownOption"
	}
	return optionNames[k]
}

type kindSet map[OptionKind]struct{}

func set(ks ...OptionKind) kindSet {
	retVal := make(kindSet, len(ks))
	for _, k := range ks {
		retVal[k] = struct{}{}
	}
	return retVal
}

var (
	neuralOptions = set(OptWeightType, OptActivation, OptInit, OptBiasInit)
	plainOptions  = set(OptWeightType)
	rbmOptions    = set(OptWeightType, OptVisible, OptHidden, OptBatchSize, OptMomentum, OptDecay,
		OptSparsity, OptBias, OptDBNOnly, OptParallel, OptSerial, OptVerbose, OptShuffle, OptClip,
		OptFreeEnergy, OptInitWeights)
)

// allowed is the allow-list of every layer kind.
var allowed = map[Kind]kindSet{
	KindDense:     neuralOptions,
	KindConv:      neuralOptions,
	KindDeconv:    neuralOptions,
	KindMaxPool:   plainOptions,
	KindAvgPool:   plainOptions,
	KindUpsample:  plainOptions,
	KindPatches:   plainOptions,
	KindRBM:       rbmOptions,
	KindConvRBM:   rbmOptions,
	KindRectifier: set(OptWeightType, OptRectifier),
	KindScale:     set(OptWeightType, OptFactor),
	KindBinarize:  set(OptWeightType, OptThreshold),
	KindLCN:       set(OptWeightType, OptKernel),
	KindRandom:    plainOptions,
	KindAugment:   set(OptWeightType, OptCopy, OptElastic),
}

// Allowed reports whether options of kind o may configure layers of kind k.
func Allowed(k Kind, o OptionKind) bool {
	_, ok := allowed[k][o]
	return ok
}

// Options is the resolved configuration of a layer.
type Options struct {
	WeightType tensor.Dtype
	Activation Func
	Init       Init
	BiasInit   Init

	Visible, Hidden Unit
	BatchSize       int
	Momentum        bool
	Decay           Decay
	Sparsity        Sparsity
	Bias            BiasMode
	DBNOnly         bool
	Parallel        bool
	Serial          bool
	Verbose         bool
	Shuffle         bool
	Clip            bool
	FreeEnergy      bool
	InitWeights     bool

	Copies    int
	Elastic   int
	Rectifier RectifierMethod
	Factor    float64
	Threshold float64
	Kernel    int
}

func defaultOptions() Options {
	return Options{
		WeightType: tensor.Float32,
		Activation: Sigmoid,
		Init:       InitLeCun,
		BiasInit:   InitZero,
		Visible:    Binary,
		Hidden:     Binary,
		Factor:     1,
		Threshold:  0.5,
		Kernel:     9,
	}
}

// Option configures a layer descriptor.
type Option struct {
	kind  OptionKind
	apply func(*Options)
}

// Kind returns the kind of the option.
func (o Option) Kind() OptionKind { return o.kind }

func resolve(k Kind, opts []Option) (Options, error) {
	retVal := defaultOptions()
	for _, o := range opts {
		if !Allowed(k, o.kind) {
			return retVal, errors.Wrapf(ErrDisallowedOption, "%v does not accept %v", k, o.kind)
		}
		o.apply(&retVal)
	}
	if retVal.WeightType != tensor.Float32 && retVal.WeightType != tensor.Float64 {
		return retVal, errors.Wrapf(ErrDtype, "%v", retVal.WeightType)
	}
	return retVal, nil
}

// WithWeightType sets the numeric type of the weights. Only tensor.Float32 and
// tensor.Float64 are supported.
func WithWeightType(dt tensor.Dtype) Option {
	return Option{OptWeightType, func(o *Options) { o.WeightType = dt }}
}

// WithActivation sets the activation function.
func WithActivation(f Func) Option {
	return Option{OptActivation, func(o *Options) { o.Activation = f }}
}

// WithInit sets the weight initialiser.
func WithInit(i Init) Option { return Option{OptInit, func(o *Options) { o.Init = i }} }

// WithBiasInit sets the bias initialiser.
func WithBiasInit(i Init) Option { return Option{OptBiasInit, func(o *Options) { o.BiasInit = i }} }

// WithVisible sets the type of the visible units of an RBM.
func WithVisible(u Unit) Option { return Option{OptVisible, func(o *Options) { o.Visible = u }} }

// WithHidden sets the type of the hidden units of an RBM.
func WithHidden(u Unit) Option { return Option{OptHidden, func(o *Options) { o.Hidden = u }} }

// WithBatchSize sets the pretraining batch size of an RBM. Without it static RBMs use 1
// and dynamic RBMs use 25.
func WithBatchSize(n int) Option {
	return Option{OptBatchSize, func(o *Options) { o.BatchSize = n }}
}

// WithMomentum enables momentum during pretraining.
func WithMomentum() Option { return Option{OptMomentum, func(o *Options) { o.Momentum = true }} }

// WithDecay sets the weight decay.
func WithDecay(d Decay) Option { return Option{OptDecay, func(o *Options) { o.Decay = d }} }

// WithSparsity sets the sparsity method.
func WithSparsity(s Sparsity) Option {
	return Option{OptSparsity, func(o *Options) { o.Sparsity = s }}
}

// WithBias sets the bias mode of the Lee sparsity method.
func WithBias(b BiasMode) Option { return Option{OptBias, func(o *Options) { o.Bias = b }} }

// DBNOnly marks an RBM that is only ever trained as part of a network.
func DBNOnly() Option { return Option{OptDBNOnly, func(o *Options) { o.DBNOnly = true }} }

// Parallel runs the phases of contrastive divergence over the samples of a batch in
// parallel.
func Parallel() Option { return Option{OptParallel, func(o *Options) { o.Parallel = true }} }

// Serial forces sequential processing of a batch. It overrides Parallel.
func Serial() Option { return Option{OptSerial, func(o *Options) { o.Serial = true }} }

func Verbose() Option { return Option{OptVerbose, func(o *Options) { o.Verbose = true }} }

// Shuffle shuffles the dataset before every pretraining epoch.
func Shuffle() Option { return Option{OptShuffle, func(o *Options) { o.Shuffle = true }} }

// WithClip enables gradient clipping during pretraining.
func WithClip() Option { return Option{OptClip, func(o *Options) { o.Clip = true }} }

// WithFreeEnergy reports the mean free energy of the training set every epoch.
func WithFreeEnergy() Option {
	return Option{OptFreeEnergy, func(o *Options) { o.FreeEnergy = true }}
}

// WithInitWeights initialises the visible biases from the training data.
func WithInitWeights() Option {
	return Option{OptInitWeights, func(o *Options) { o.InitWeights = true }}
}

// WithCopies makes an augmentation layer emit n extra copies of each sample.
func WithCopies(n int) Option { return Option{OptCopy, func(o *Options) { o.Copies = n }} }

// WithElastic makes an augmentation layer emit n elastically distorted variants of each
// sample.
func WithElastic(n int) Option { return Option{OptElastic, func(o *Options) { o.Elastic = n }} }

// WithRectifier sets the rectifier function.
func WithRectifier(m RectifierMethod) Option {
	return Option{OptRectifier, func(o *Options) { o.Rectifier = m }}
}

// WithFactor sets the factor of a scale layer.
func WithFactor(f float64) Option { return Option{OptFactor, func(o *Options) { o.Factor = f }} }

// WithThreshold sets the threshold of a binarize layer.
func WithThreshold(t float64) Option {
	return Option{OptThreshold, func(o *Options) { o.Threshold = t }}
}

// WithKernel sets the extent of the gaussian window of a local contrast normalization
// layer. It must be odd.
func WithKernel(k int) Option { return Option{OptKernel, func(o *Options) { o.Kernel = k }} }
