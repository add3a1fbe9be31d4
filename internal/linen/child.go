package linen

import (
	"fmt"

	"github.com/born-ml/linen/internal/core"
)

// Child is a named entry under a module: either a submodule or a variable of
// some kind.
type Child struct {
	Name   string
	Module Module    // Set for submodules
	Kind   core.Kind // Set for variables
}

// IsModule reports whether the child is a submodule.
func (c Child) IsModule() bool {
	return c.Module != nil
}

// Child returns the child declared under name.
func (b *Base) Child(name string) (Child, bool) {
	c, ok := b.children[name]
	return c, ok
}

// Children returns the names of all children in declaration order.
func (b *Base) Children() []string {
	return append([]string(nil), b.order...)
}

// Submodules returns the child modules in declaration order.
func (b *Base) Submodules() []Module {
	var out []Module
	for _, name := range b.order {
		if c := b.children[name]; c.IsModule() {
			out = append(out, c.Module)
		}
	}
	return out
}

// Value returns the value of the variable child name.
func (b *Base) Value(name string) (any, bool) {
	c, ok := b.children[name]
	if !ok || c.IsModule() {
		return nil, false
	}
	return b.Get(c.Kind, name)
}

// ChildAs returns the submodule name of m as type M.
func ChildAs[M Module](m Module, name string) (M, error) {
	var zero M
	c, ok := m.base().Child(name)
	if !ok || !c.IsModule() {
		return zero, fmt.Errorf("%w: no submodule %q under %s", ErrNotFound, name, m.base().describe())
	}
	out, ok := c.Module.(M)
	if !ok {
		return zero, fmt.Errorf("%w: submodule %q is %T, not %T", ErrNotFound, name, c.Module, zero)
	}
	return out, nil
}
