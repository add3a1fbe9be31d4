package core

import "github.com/born-ml/linen/internal/rng"

// Init runs fn against a fresh, fully mutable root scope and returns its
// result together with the variables it created.
//
//	y, vars, err := core.Init(func(s *core.Scope) (*tensor.RawTensor, error) {
//	    conv, err := s.Push("conv_1")
//	    ...
//	}, map[core.Kind]rng.Key{core.Params: rng.New(0)})
func Init[R any](fn func(*Scope) (R, error), rngs map[Kind]rng.Key) (R, Variables, error) {
	root := NewRoot(nil, rngs)
	restore := root.SetMutability(MutableAll())
	defer restore()

	out, err := fn(root)
	if err != nil {
		var zero R
		return zero, nil, err
	}
	return out, root.Snapshot(), nil
}

// Apply runs fn against a root scope holding a copy of vars. Kinds selected by
// mutable may be written; the possibly updated variables are returned and vars
// itself is left untouched.
func Apply[R any](fn func(*Scope) (R, error), vars Variables, rngs map[Kind]rng.Key, mutable Mutability) (R, Variables, error) {
	root := NewRoot(vars, rngs)
	restore := root.SetMutability(mutable)
	defer restore()

	out, err := fn(root)
	if err != nil {
		var zero R
		return zero, nil, err
	}
	return out, root.Snapshot(), nil
}
