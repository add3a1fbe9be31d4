package linen

import (
	"errors"

	"github.com/born-ml/linen/internal/core"
)

// Common errors.
var (
	ErrPhase         = errors.New("declaration outside a permitted phase")
	ErrReservedField = errors.New("reserved field name")
	ErrInvalidParent = errors.New("invalid parent")
	ErrDoubleAttach  = errors.New("module already attached")
)

// Errors shared with the variable store.
var (
	ErrNameInUse = core.ErrNameInUse
	ErrImmutable = core.ErrImmutable
	ErrNotFound  = core.ErrNotFound
)
