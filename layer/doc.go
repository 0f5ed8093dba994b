// Package layer provides the layers of a deep belief network and the contract through
// which a network drives them.
//
// A layer is described by a Desc, built by one of the kind constructors (Dense, Conv,
// DenseRBM, ...) from a set of options. Every kind accepts a fixed set of option kinds; any
// other option is rejected when the descriptor is built. A descriptor is either static,
// carrying the dimensions of the layer, or dynamic, in which case the layer built from it
// must be sized with InitLayer before use.
//
// The capabilities of a layer are given by its Traits, a record computed from the
// descriptor. Drivers generic over the kind of a layer use the traits and the dimension
// accessors of this package instead of asserting concrete types.
//
// Layers that emit one sample per input sample implement Activator. Patch extraction and
// augmentation emit several and implement Multiplexer. Training state lives in a Context
// owned by the caller; RBMs additionally own the buffers of contrastive divergence.
package layer
