// Package core implements the variable store underneath module trees.
//
// A root store owns a Variables tree (kind -> path -> name), per-kind
// mutability flags and per-kind root randomness keys. A Scope is a view onto
// the store at a path: pushing a name narrows the view without copying, and
// every view created from the same root shares one storage.
//
//	root := core.NewRoot(nil, map[core.Kind]rng.Key{core.Params: rng.New(0)})
//	restore := root.SetMutability(core.MutableAll())
//	dense, _ := root.Push("Dense_0")
//	kernel, _ := dense.Param("kernel", initializer)
//	restore()
package core

import (
	"fmt"
	"maps"
	"strings"

	"github.com/google/uuid"

	"github.com/born-ml/linen/internal/rng"
)

// Initializer creates the initial value of a parameter from a randomness key.
type Initializer func(key rng.Key) (any, error)

type store struct {
	id      uuid.UUID
	vars    Variables
	mutable Mutability
	rngs    map[Kind]rng.Key
	handles map[string]*Variable
	created []varKey
}

type varKey struct {
	kind Kind
	path []string
	name string
}

// Scope is an addressable view onto a root store.
//
// The reservation set and rng counters belong to this view only; Rewound
// returns a view at the same path with both reset.
type Scope struct {
	store        *store
	path         []string
	reservations map[string]struct{}
	counters     map[Kind]uint64
}

// NewRoot creates a root store holding a deep copy of vars and returns the
// scope at its root. The store starts frozen.
func NewRoot(vars Variables, rngs map[Kind]rng.Key) *Scope {
	st := &store{
		id:      uuid.New(),
		vars:    vars.Clone(),
		mutable: Frozen(),
		rngs:    make(map[Kind]rng.Key, len(rngs)),
		handles: make(map[string]*Variable),
	}
	for k, key := range rngs {
		st.rngs[k] = key
	}
	return newScope(st, nil)
}

func newScope(st *store, path []string) *Scope {
	return &Scope{
		store:        st,
		path:         path,
		reservations: make(map[string]struct{}),
		counters:     make(map[Kind]uint64),
	}
}

// ID returns the identity of the root store this scope belongs to.
func (s *Scope) ID() uuid.UUID {
	return s.store.id
}

// Path returns a copy of the scope's path from the root.
func (s *Scope) Path() []string {
	return append([]string(nil), s.path...)
}

// PathString returns the path joined with Sep and a leading Sep.
func (s *Scope) PathString() string {
	return Sep + strings.Join(s.path, Sep)
}

// IsRoot reports whether s is the root view of its store.
func (s *Scope) IsRoot() bool {
	return len(s.path) == 0
}

// SameStore reports whether s and o are views onto the same root store.
func (s *Scope) SameStore(o *Scope) bool {
	return o != nil && s.store == o.store
}

// Push reserves name at this level and returns the child view.
//
// Pushing the same name twice on one view fails with ErrNameInUse.
func (s *Scope) Push(name string) (*Scope, error) {
	if err := s.reserve(name); err != nil {
		return nil, err
	}
	return s.Descend(name), nil
}

// Descend returns the child view at name without reserving it.
//
// Module-managed scopes use Descend: the owning module's naming resolver is
// the single authority on collisions beneath it.
func (s *Scope) Descend(name string) *Scope {
	path := make([]string, len(s.path)+1)
	copy(path, s.path)
	path[len(s.path)] = name
	return newScope(s.store, path)
}

// Rewound returns a view at the same path with fresh reservations and rng
// counters.
func (s *Scope) Rewound() *Scope {
	return newScope(s.store, s.path)
}

// Fork returns a view at the same path carrying copies of this view's
// reservations and rng counters. Later activity on either view does not
// affect the other.
func (s *Scope) Fork() *Scope {
	f := newScope(s.store, s.path)
	maps.Copy(f.reservations, s.reservations)
	maps.Copy(f.counters, s.counters)
	return f
}

// Resume returns a Fork of s whose rng counters continue from cur, so keys
// drawn after the rewind never repeat ones drawn through cur.
func (s *Scope) Resume(cur *Scope) *Scope {
	f := s.Fork()
	if cur != nil {
		maps.Copy(f.counters, cur.counters)
	}
	return f
}

// Mark returns the current position in the store's creation log.
func (s *Scope) Mark() int {
	return len(s.store.created)
}

// Rollback deletes every variable created in the store since mark, newest
// first, together with interior nodes left empty. Values written to
// variables that existed before mark are kept.
func (s *Scope) Rollback(mark int) {
	st := s.store
	if mark < 0 || mark >= len(st.created) {
		return
	}
	for i := len(st.created) - 1; i >= mark; i-- {
		st.remove(st.created[i])
	}
	st.created = st.created[:mark]
}

func (s *Scope) reserve(name string) error {
	if name == "" || strings.Contains(name, Sep) {
		return fmt.Errorf("%w: invalid name %q", ErrNameInUse, name)
	}
	if _, ok := s.reservations[name]; ok {
		return fmt.Errorf("%w: %q at %s", ErrNameInUse, name, s.PathString())
	}
	s.reservations[name] = struct{}{}
	return nil
}

// HasRNG reports whether the store carries a root key for kind.
func (s *Scope) HasRNG(kind Kind) bool {
	_, ok := s.store.rngs[kind]
	return ok
}

// MakeRNG derives a fresh key for kind.
//
// The key depends only on the root key, the scope path and how many keys of
// this kind were already drawn from this view, never on activity elsewhere in
// the tree.
func (s *Scope) MakeRNG(kind Kind) (rng.Key, error) {
	root, ok := s.store.rngs[kind]
	if !ok {
		return 0, fmt.Errorf("%w %q at %s", ErrNoRNG, kind, s.PathString())
	}
	s.counters[kind]++
	return rng.FoldIn(rng.FoldInPath(rng.FoldInString(root, string(kind)), s.path), s.counters[kind]), nil
}

// IsMutable reports whether variables of kind may be created or written.
func (s *Scope) IsMutable(kind Kind) bool {
	return s.store.mutable.Allows(kind)
}

// Mutability returns the store's current mutability.
func (s *Scope) Mutability() Mutability {
	return s.store.mutable
}

// SetMutability replaces the store's mutability and returns a function
// restoring the previous value.
func (s *Scope) SetMutability(m Mutability) (restore func()) {
	prev := s.store.mutable
	s.store.mutable = m
	return func() {
		s.store.mutable = prev
	}
}

// Get returns the value of variable (kind, name) at this scope.
func (s *Scope) Get(kind Kind, name string) (any, bool) {
	return s.store.lookup(kind, s.path, name)
}

// Has reports whether variable (kind, name) exists at this scope.
func (s *Scope) Has(kind Kind, name string) bool {
	_, ok := s.Get(kind, name)
	return ok
}

// Variable returns the handle for (kind, name), creating the value with init
// if it does not exist yet.
//
// Creation requires kind to be mutable; otherwise ErrImmutable is returned and
// init is not called. Repeated requests return the same handle.
func (s *Scope) Variable(kind Kind, name string, init func() (any, error)) (*Variable, error) {
	if s.Has(kind, name) {
		return s.store.handle(kind, s.path, name), nil
	}
	if !s.IsMutable(kind) {
		return nil, fmt.Errorf("%w: cannot create %s/%s at %s", ErrImmutable, kind, name, s.PathString())
	}
	value, err := init()
	if err != nil {
		return nil, fmt.Errorf("init %s/%s at %s: %w", kind, name, s.PathString(), err)
	}
	if err := s.store.put(kind, s.path, name, value); err != nil {
		return nil, err
	}
	return s.store.handle(kind, s.path, name), nil
}

// Param returns the value of parameter name, initializing it with a key drawn
// from MakeRNG(Params) when it does not exist yet.
func (s *Scope) Param(name string, init Initializer) (any, error) {
	v, err := s.Variable(Params, name, func() (any, error) {
		key, err := s.MakeRNG(Params)
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

// Variables returns a read-only view of the variables at and below this scope,
// keyed by kind first.
func (s *Scope) Variables() View {
	out := make(Collection)
	for kind, c := range s.store.vars {
		if sub, ok := c.subtree(s.path); ok && len(sub) > 0 {
			out[string(kind)] = sub
		}
	}
	return NewView(out)
}

// Snapshot returns a deep copy of the whole store.
func (s *Scope) Snapshot() Variables {
	return s.store.vars.Clone()
}

func (st *store) lookup(kind Kind, path []string, name string) (any, bool) {
	c, ok := st.vars[kind].subtree(path)
	if !ok {
		return nil, false
	}
	v, ok := c[name]
	if _, interior := v.(Collection); interior {
		return nil, false
	}
	return v, ok
}

func (st *store) put(kind Kind, path []string, name string, value any) error {
	if st.vars == nil {
		st.vars = make(Variables)
	}
	if st.vars[kind] == nil {
		st.vars[kind] = make(Collection)
	}
	c, err := st.vars[kind].ensure(path)
	if err != nil {
		return err
	}
	old, existed := c[name]
	if _, interior := old.(Collection); interior {
		return fmt.Errorf("%w: %s/%s/%s is a subtree", ErrBadTree, kind, strings.Join(path, Sep), name)
	}
	c[name] = value
	if !existed {
		st.created = append(st.created, varKey{kind: kind, path: append([]string(nil), path...), name: name})
	}
	return nil
}

func (st *store) remove(k varKey) {
	c, ok := st.vars[k.kind].subtree(k.path)
	if !ok {
		return
	}
	delete(c, k.name)
	delete(st.handles, handleKey(k.kind, k.path, k.name))
	for i := len(k.path); i > 0; i-- {
		parent, ok := st.vars[k.kind].subtree(k.path[:i-1])
		if !ok {
			return
		}
		child, ok := parent[k.path[i-1]].(Collection)
		if !ok || len(child) > 0 {
			return
		}
		delete(parent, k.path[i-1])
	}
	if len(st.vars[k.kind]) == 0 {
		delete(st.vars, k.kind)
	}
}

func handleKey(kind Kind, path []string, name string) string {
	return string(kind) + "\x00" + strings.Join(path, Sep) + "\x00" + name
}

func (st *store) handle(kind Kind, path []string, name string) *Variable {
	key := handleKey(kind, path, name)
	if h, ok := st.handles[key]; ok {
		return h
	}
	h := &Variable{store: st, kind: kind, path: append([]string(nil), path...), name: name}
	st.handles[key] = h
	return h
}
