package core

import (
	"fmt"
	"strings"
)

// Variable is a live handle to a named, kind-tagged value in a root store.
//
// Reads and writes go to the store; writes check the kind's mutability at
// call time.
type Variable struct {
	store *store
	kind  Kind
	path  []string
	name  string
}

// Kind returns the variable's kind.
func (v *Variable) Kind() Kind {
	return v.kind
}

// Name returns the variable's name within its scope.
func (v *Variable) Name() string {
	return v.name
}

// Path returns the full "kind/path/name" key of the variable.
func (v *Variable) Path() string {
	parts := append([]string{string(v.kind)}, v.path...)
	return strings.Join(append(parts, v.name), Sep)
}

// Value returns the current value.
func (v *Variable) Value() any {
	val, _ := v.store.lookup(v.kind, v.path, v.name)
	return val
}

// SetValue replaces the stored value.
func (v *Variable) SetValue(value any) error {
	if !v.store.mutable.Allows(v.kind) {
		return fmt.Errorf("%w: cannot write %s", ErrImmutable, v.Path())
	}
	return v.store.put(v.kind, v.path, v.name, value)
}
