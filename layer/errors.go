package layer

import "github.com/pkg/errors"

// Configuration errors.
var (
	ErrDisallowedOption = errors.New("option not allowed for this layer kind")
	ErrUnsupportedUnit  = errors.New("unsupported unit type")
	ErrUnimplemented    = errors.New("not implemented")
	ErrDtype            = errors.New("unsupported weight type")
	ErrDims             = errors.New("invalid dimensions")
)

// Precondition errors.
var (
	ErrUninitialized      = errors.New("dynamic layer used before InitLayer")
	ErrAlreadyInitialized = errors.New("layer dimensions are already set")
	ErrShape              = errors.New("shape mismatch")
	ErrNoBackup           = errors.New("no backup to restore")
	ErrNotBackpropagable  = errors.New("layer cannot propagate errors")
	ErrKindMismatch       = errors.New("layer kind mismatch")
)
