package core

import "errors"

// Common errors.
var (
	ErrNameInUse = errors.New("name already in use")
	ErrImmutable = errors.New("variable kind is not mutable")
	ErrNoRNG     = errors.New("no rng provided for kind")
	ErrNotFound  = errors.New("variable not found")
	ErrBadTree   = errors.New("malformed variable tree")
)
