package core

import (
	"slices"
	"strings"
)

// Kind partitions variables by role. Each kind has its own mutability.
type Kind string

// Predefined kinds.
const (
	Params     Kind = "param"       // Trainable parameters
	BatchStats Kind = "batch_stats" // Running statistics
)

// Mutability selects which kinds may be created or written.
//
// The zero value is frozen. A Mutability is immutable once constructed.
type Mutability struct {
	all   bool
	kinds map[Kind]struct{}
}

// Frozen returns a Mutability that allows no writes.
func Frozen() Mutability {
	return Mutability{}
}

// MutableAll returns a Mutability that allows writes to every kind.
func MutableAll() Mutability {
	return Mutability{all: true}
}

// MutableKinds returns a Mutability that allows writes to the given kinds only.
func MutableKinds(kinds ...Kind) Mutability {
	if len(kinds) == 0 {
		return Frozen()
	}
	m := Mutability{kinds: make(map[Kind]struct{}, len(kinds))}
	for _, k := range kinds {
		m.kinds[k] = struct{}{}
	}
	return m
}

// Allows reports whether kind k is writable.
func (m Mutability) Allows(k Kind) bool {
	if m.all {
		return true
	}
	_, ok := m.kinds[k]
	return ok
}

// IsFrozen reports whether no kind is writable.
func (m Mutability) IsFrozen() bool {
	return !m.all && len(m.kinds) == 0
}

// Kinds returns the explicitly writable kinds in sorted order.
// It returns nil for MutableAll and Frozen.
func (m Mutability) Kinds() []Kind {
	if m.all || len(m.kinds) == 0 {
		return nil
	}
	out := make([]Kind, 0, len(m.kinds))
	for k := range m.kinds {
		out = append(out, k)
	}
	slices.Sort(out)
	return out
}

// Equal reports whether m and o allow exactly the same kinds.
func (m Mutability) Equal(o Mutability) bool {
	if m.all != o.all {
		return false
	}
	return slices.Equal(m.Kinds(), o.Kinds())
}

// String returns "all", "none" or a comma separated list of kinds.
func (m Mutability) String() string {
	switch {
	case m.all:
		return "all"
	case m.IsFrozen():
		return "none"
	}
	kinds := m.Kinds()
	parts := make([]string, len(kinds))
	for i, k := range kinds {
		parts[i] = string(k)
	}
	return strings.Join(parts, ",")
}
