package tensor

import "errors"

// Common errors.
var (
	ErrShape = errors.New("shape mismatch")
	ErrDType = errors.New("dtype mismatch")
	ErrSize  = errors.New("data size mismatch")
)
