package linen

import (
	"fmt"

	"github.com/born-ml/linen/internal/core"
)

// Mutate opens the store of the bound module m for writes of the kinds
// allowed by mutable, runs fn on a clone of m bound at the same scope, and
// restores the previous mutability when fn returns, fails or panics.
//
//	err := linen.Mutate(model, core.MutableKinds(core.BatchStats), func(m *Model) error {
//	    _, err := m.Call(x, true)
//	    return err
//	})
func Mutate[M Module](m M, mutable core.Mutability, fn func(M) error) error {
	b := m.base()
	if b.scope == nil {
		return fmt.Errorf("%w: Mutate needs a bound module, got %s", ErrPhase, b.describe())
	}

	restore := b.scope.SetMutability(mutable)
	defer restore()
	logger.Debug("store opened", "module", b.describe(), "store", b.scope.ID(), "mutable", mutable.String())

	c := Clone(m)
	cb := c.base()
	cb.name = b.name
	if err := cb.bind(b.scope.Rewound()); err != nil {
		return err
	}
	cb.parent = b.parent
	return fn(c)
}
