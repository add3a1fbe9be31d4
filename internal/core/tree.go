package core

import (
	"fmt"
	"maps"
	"slices"
	"strings"
)

// Sep separates segments of flattened variable paths.
const Sep = "/"

// Collection is a nested mapping of names to values.
//
// Interior nodes are Collections; anything else is a leaf value.
type Collection map[string]any

// Clone returns a deep copy of the interior maps. Leaves are shared.
func (c Collection) Clone() Collection {
	if c == nil {
		return nil
	}
	out := make(Collection, len(c))
	for k, v := range c {
		if sub, ok := v.(Collection); ok {
			out[k] = sub.Clone()
			continue
		}
		out[k] = v
	}
	return out
}

// Keys returns the keys of c in sorted order.
func (c Collection) Keys() []string {
	return slices.Sorted(maps.Keys(c))
}

// subtree walks path and returns the Collection found there.
func (c Collection) subtree(path []string) (Collection, bool) {
	cur := c
	for _, p := range path {
		next, ok := cur[p].(Collection)
		if !ok {
			return nil, false
		}
		cur = next
	}
	return cur, cur != nil
}

// ensure walks path creating missing interior nodes.
func (c Collection) ensure(path []string) (Collection, error) {
	cur := c
	for i, p := range path {
		v, ok := cur[p]
		if !ok {
			next := make(Collection)
			cur[p] = next
			cur = next
			continue
		}
		next, ok := v.(Collection)
		if !ok {
			return nil, fmt.Errorf("%w: %s is a leaf", ErrBadTree, strings.Join(path[:i+1], Sep))
		}
		cur = next
	}
	return cur, nil
}

// Variables is the kind -> path -> name mapping held by a root store.
type Variables map[Kind]Collection

// Clone returns a deep copy of the interior maps. Leaves are shared.
func (v Variables) Clone() Variables {
	out := make(Variables, len(v))
	for k, c := range v {
		out[k] = c.Clone()
	}
	return out
}

// Kinds returns the kinds present in v in sorted order.
func (v Variables) Kinds() []Kind {
	return slices.Sorted(maps.Keys(v))
}

// Flatten converts a variable tree into a flat mapping keyed by
// "kind/path.../name".
func Flatten(v Variables) map[string]any {
	flat := make(map[string]any)
	for kind, c := range v {
		flattenInto(flat, string(kind), c)
	}
	return flat
}

func flattenInto(flat map[string]any, prefix string, c Collection) {
	for k, v := range c {
		key := prefix + Sep + k
		if sub, ok := v.(Collection); ok {
			flattenInto(flat, key, sub)
			continue
		}
		flat[key] = v
	}
}

// Unflatten is the inverse of Flatten.
func Unflatten(flat map[string]any) (Variables, error) {
	out := make(Variables)
	for _, key := range slices.Sorted(maps.Keys(flat)) {
		parts := strings.Split(key, Sep)
		if len(parts) < 2 || slices.Contains(parts, "") {
			return nil, fmt.Errorf("%w: invalid key %q", ErrBadTree, key)
		}
		kind := Kind(parts[0])
		if out[kind] == nil {
			out[kind] = make(Collection)
		}
		parent, err := out[kind].ensure(parts[1 : len(parts)-1])
		if err != nil {
			return nil, err
		}
		name := parts[len(parts)-1]
		if _, exists := parent[name]; exists {
			return nil, fmt.Errorf("%w: %q is both a leaf and a prefix", ErrBadTree, key)
		}
		parent[name] = flat[key]
	}
	return out, nil
}
