// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package linen

import (
	"log/slog"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/rng"
)

// Module is implemented by every struct that embeds Base or MultiBase.
type Module = linen.Module

// Base carries the binding state of a single-entry module.
type Base = linen.Base

// MultiBase marks a module with several entry methods. Such a module may only
// declare submodules and variables in Setup.
type MultiBase = linen.MultiBase

// SetupHook is implemented by modules that declare children in Setup.
type SetupHook = linen.SetupHook

// TypeNamer overrides the type tag used for automatic names.
type TypeNamer = linen.TypeNamer

// State is the lifecycle state of a module.
type State = linen.State

// Lifecycle states.
const (
	Unattached = linen.Unattached
	Pending    = linen.Pending
	Bound      = linen.Bound
)

// Child is an entry of a module's child map.
type Child = linen.Child

// Option configures New.
type Option = linen.Option

// BindOption configures Bind, Apply and ApplyMutable.
type BindOption = linen.BindOption

// Variable store types.
type (
	Kind       = core.Kind
	Variables  = core.Variables
	Collection = core.Collection
	View       = core.View
	Variable   = core.Variable
	Mutability = core.Mutability
	Scope      = core.Scope
	Key        = rng.Key
)

// Well known variable kinds.
const (
	Params     = core.Params
	BatchStats = core.BatchStats
)

// Errors.
var (
	ErrNameInUse     = linen.ErrNameInUse
	ErrImmutable     = linen.ErrImmutable
	ErrNotFound      = linen.ErrNotFound
	ErrPhase         = linen.ErrPhase
	ErrReservedField = linen.ErrReservedField
	ErrInvalidParent = linen.ErrInvalidParent
	ErrDoubleAttach  = linen.ErrDoubleAttach
	ErrNoRNG         = core.ErrNoRNG
)

// NewKey returns the rng key for seed.
func NewKey(seed uint64) Key { return rng.New(seed) }

// FoldIn derives a key from k and s.
func FoldIn(k Key, s string) Key { return rng.FoldInString(k, s) }

// Frozen returns a Mutability with no writable kinds.
func Frozen() Mutability { return core.Frozen() }

// MutableAll returns a Mutability where every kind is writable.
func MutableAll() Mutability { return core.MutableAll() }

// MutableKinds returns a Mutability where exactly kinds are writable.
func MutableKinds(kinds ...Kind) Mutability { return core.MutableKinds(kinds...) }

// Flatten returns the leaves of v keyed by "kind/path/name".
func Flatten(v Variables) map[string]any { return core.Flatten(v) }

// Unflatten is the inverse of Flatten.
func Unflatten(flat map[string]any) (Variables, error) { return core.Unflatten(flat) }

// Named gives a submodule an explicit name.
func Named(name string) Option { return linen.Named(name) }

// New attaches m to parent, a module or a *Scope, and returns it.
func New[M Module](parent any, m M, opts ...Option) (M, error) {
	return linen.New(parent, m, opts...)
}

// MustNew is New that panics on error.
func MustNew[M Module](parent any, m M, opts ...Option) M {
	return linen.MustNew(parent, m, opts...)
}

// Register attaches child to parent under an explicit name.
func Register[M Module](parent Module, name string, child M) (M, error) {
	return linen.Register(parent, name, child)
}

// RegisterSlice attaches children as name_0, name_1, ...
func RegisterSlice[M Module](parent Module, name string, children []M) ([]M, error) {
	return linen.RegisterSlice(parent, name, children)
}

// RegisterMap attaches children as name_<key>, in sorted key order.
func RegisterMap[M Module](parent Module, name string, children map[string]M) (map[string]M, error) {
	return linen.RegisterMap(parent, name, children)
}

// ChildAs returns the submodule of m called name as an M.
func ChildAs[M Module](m Module, name string) (M, error) {
	return linen.ChildAs[M](m, name)
}

// Initialized binds a clone of m to a fresh store, runs entry on it to create
// variables, and returns the clone.
func Initialized[M Module](m M, rngs map[Kind]Key, entry func(M) error) (M, error) {
	return linen.Initialized(m, rngs, entry)
}

// Bind binds a clone of m to a copy of vars.
func Bind[M Module](m M, vars Variables, opts ...BindOption) (M, error) {
	return linen.Bind(m, vars, opts...)
}

// Apply binds a clone of m to vars and runs fn on it.
func Apply[M Module, R any](m M, vars Variables, fn func(M) (R, error), opts ...BindOption) (R, error) {
	return linen.Apply(m, vars, fn, opts...)
}

// ApplyMutable is Apply that also returns the updated variables.
func ApplyMutable[M Module, R any](m M, vars Variables, fn func(M) (R, error), opts ...BindOption) (R, Variables, error) {
	return linen.ApplyMutable(m, vars, fn, opts...)
}

// Clone returns an unattached copy of m with overrides applied.
func Clone[M Module](m M, overrides ...func(M)) M {
	return linen.Clone(m, overrides...)
}

// Mutate runs fn on m with the given kinds writable.
func Mutate[M Module](m M, mutable Mutability, fn func(M) error) error {
	return linen.Mutate(m, mutable, fn)
}

// Snapshot returns a deep copy of the store m is bound to.
func Snapshot(m Module) Variables { return linen.Snapshot(m) }

// TypeTag returns the tag m is autonamed with.
func TypeTag(m Module) string { return linen.TypeTag(m) }

// WithRNGs supplies rng streams.
func WithRNGs(rngs map[Kind]Key) BindOption { return linen.WithRNGs(rngs) }

// WithRNG supplies one rng stream.
func WithRNG(kind Kind, key Key) BindOption { return linen.WithRNG(kind, key) }

// WithMutable makes kinds writable.
func WithMutable(kinds ...Kind) BindOption { return linen.WithMutable(kinds...) }

// WithMutability sets the writable kinds.
func WithMutability(m Mutability) BindOption { return linen.WithMutability(m) }

// SetLogger sets the logger used for binding diagnostics.
func SetLogger(l *slog.Logger) { linen.SetLogger(l) }
