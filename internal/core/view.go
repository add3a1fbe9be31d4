package core

import (
	"fmt"
	"strings"
)

// View is a read-only navigable view over a nested variable mapping.
//
// A View owns a private copy of the mapping; nothing reachable through it
// aliases the store it was taken from, except leaf values.
//
//	v := module.Variables()
//	kernel, ok := v.At("param", "encoder", "Dense_0", "kernel")
//	dense := v.Get("param").Get("encoder").Get("Dense_0")
type View struct {
	c Collection
}

// NewView returns a view over a deep copy of c.
func NewView(c Collection) View {
	return View{c: c.Clone()}
}

// Get returns the sub-view at key, or an empty view when key is missing or a
// leaf.
func (v View) Get(key string) View {
	sub, _ := v.Lookup(key)
	return sub
}

// Lookup returns the sub-view at key and whether it exists.
func (v View) Lookup(key string) (View, bool) {
	sub, ok := v.c[key].(Collection)
	if !ok {
		return View{}, false
	}
	return View{c: sub}, true
}

// Value returns the leaf stored under name.
func (v View) Value(name string) (any, bool) {
	val, ok := v.c[name]
	if !ok {
		return nil, false
	}
	if _, interior := val.(Collection); interior {
		return nil, false
	}
	return val, true
}

// At walks path and returns what is found: a leaf value, or a View for an
// interior node.
func (v View) At(path ...string) (any, bool) {
	if len(path) == 0 {
		return v, true
	}
	cur := v
	for _, p := range path[:len(path)-1] {
		next, ok := cur.Lookup(p)
		if !ok {
			return nil, false
		}
		cur = next
	}
	last := path[len(path)-1]
	if sub, ok := cur.Lookup(last); ok {
		return sub, true
	}
	return cur.Value(last)
}

// Path is At with a Sep separated path.
func (v View) Path(path string) (any, bool) {
	return v.At(strings.Split(strings.Trim(path, Sep), Sep)...)
}

// Keys returns the keys at this level in sorted order.
func (v View) Keys() []string {
	return v.c.Keys()
}

// Len returns the number of keys at this level.
func (v View) Len() int {
	return len(v.c)
}

// IsEmpty reports whether the view has no keys.
func (v View) IsEmpty() bool {
	return len(v.c) == 0
}

// Map returns a deep copy of the underlying mapping.
func (v View) Map() Collection {
	if v.c == nil {
		return Collection{}
	}
	return v.c.Clone()
}

// Variables interprets the top level of the view as kinds.
func (v View) Variables() Variables {
	out := make(Variables, len(v.c))
	for k, val := range v.c {
		if sub, ok := val.(Collection); ok {
			out[Kind(k)] = sub.Clone()
		}
	}
	return out
}

// Flatten returns the view's leaves keyed by their Sep joined paths.
func (v View) Flatten() map[string]any {
	flat := make(map[string]any)
	for k, val := range v.c {
		if sub, ok := val.(Collection); ok {
			flattenInto(flat, k, sub)
			continue
		}
		flat[k] = val
	}
	return flat
}

// String renders the tree structure with leaf types.
func (v View) String() string {
	var b strings.Builder
	v.write(&b, 0)
	return b.String()
}

func (v View) write(b *strings.Builder, depth int) {
	for _, k := range v.Keys() {
		indent := strings.Repeat("  ", depth)
		if sub, ok := v.Lookup(k); ok {
			fmt.Fprintf(b, "%s%s:\n", indent, k)
			sub.write(b, depth+1)
			continue
		}
		fmt.Fprintf(b, "%s%s: %v\n", indent, k, describe(v.c[k]))
	}
}

func describe(val any) string {
	if s, ok := val.(interface{ Describe() string }); ok {
		return s.Describe()
	}
	return fmt.Sprintf("%T", val)
}
