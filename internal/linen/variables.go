package linen

import (
	"fmt"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/rng"
)

// Variable declares variable (kind, name) on the module and returns its
// handle, creating the value with init when it does not exist yet.
//
// Declaring the same (kind, name) again returns the same handle without
// calling init. Any other reuse of a reserved name fails with ErrNameInUse.
func (b *Base) Variable(kind core.Kind, name string, init func() (any, error)) (*core.Variable, error) {
	if b.scope == nil || !b.declarationAllowed() {
		return nil, b.phaseError(fmt.Sprintf("variable %s/%s", kind, name))
	}
	if err := validName(name); err != nil {
		return nil, err
	}
	if r, ok := b.reserved[name]; ok {
		if r.module != nil || r.kind != kind {
			return nil, b.collision(name)
		}
		return b.scope.Variable(kind, name, init)
	}
	v, err := b.scope.Variable(kind, name, init)
	if err != nil {
		return nil, err
	}
	b.reserved[name] = reservation{kind: kind}
	b.addChild(Child{Name: name, Kind: kind})
	return v, nil
}

// Param declares parameter name and returns its value. init receives a key
// from MakeRNG(core.Params) and only runs when the parameter is created.
func (b *Base) Param(name string, init core.Initializer) (any, error) {
	v, err := b.Variable(core.Params, name, func() (any, error) {
		key, err := b.scope.MakeRNG(core.Params)
		if err != nil {
			return nil, err
		}
		return init(key)
	})
	if err != nil {
		return nil, err
	}
	return v.Value(), nil
}

// MakeRNG derives a fresh key of kind for this module.
func (b *Base) MakeRNG(kind core.Kind) (rng.Key, error) {
	if b.scope == nil {
		return 0, fmt.Errorf("%w: rng %q requested on unbound module %s", ErrPhase, kind, b.describe())
	}
	return b.scope.MakeRNG(kind)
}

// Get reads variable (kind, name) of the module in any phase.
func (b *Base) Get(kind core.Kind, name string) (any, bool) {
	if b.scope == nil {
		return nil, false
	}
	return b.scope.Get(kind, name)
}

// IsMutable reports whether kind may currently be written.
func (b *Base) IsMutable(kind core.Kind) bool {
	return b.scope != nil && b.scope.IsMutable(kind)
}

// IsInitializing reports whether every kind is writable, as during
// Initialized.
func (b *Base) IsInitializing() bool {
	return b.scope != nil && b.scope.Mutability().Equal(core.MutableAll())
}
