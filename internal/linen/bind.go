package linen

import (
	"fmt"
	"maps"
	"reflect"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/rng"
)

type bindConfig struct {
	rngs    map[core.Kind]rng.Key
	mutable core.Mutability
}

// BindOption configures Bind, Apply and ApplyMutable.
type BindOption func(*bindConfig)

// WithRNGs supplies root randomness keys per kind.
func WithRNGs(rngs map[core.Kind]rng.Key) BindOption {
	return func(c *bindConfig) {
		maps.Copy(c.rngs, rngs)
	}
}

// WithRNG supplies the root randomness key for one kind.
func WithRNG(kind core.Kind, key rng.Key) BindOption {
	return func(c *bindConfig) {
		c.rngs[kind] = key
	}
}

// WithMutable makes the given kinds writable for the duration of the binding.
func WithMutable(kinds ...core.Kind) BindOption {
	return WithMutability(core.MutableKinds(kinds...))
}

// WithMutability sets the store's mutability for the duration of the binding.
func WithMutability(m core.Mutability) BindOption {
	return func(c *bindConfig) {
		c.mutable = m
	}
}

func newBindConfig(opts []BindOption) bindConfig {
	cfg := bindConfig{rngs: make(map[core.Kind]rng.Key)}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

// Initialized binds a clone of m to a fresh, empty store, runs entry on it
// and returns the bound clone with every variable created.
//
// Every kind is writable while binding and while entry runs; the store is
// frozen afterwards. m must have no parent. A nil entry only runs Setup.
func Initialized[M Module](m M, rngs map[core.Kind]rng.Key, entry func(M) error) (M, error) {
	var zero M
	b, err := prepare(m)
	if err != nil {
		return zero, err
	}
	if b.parent != nil || b.scope != nil {
		return zero, fmt.Errorf("%w: Initialized needs a module without parent, got %s", ErrDoubleAttach, b.describe())
	}

	root := core.NewRoot(nil, rngs)
	restore := root.SetMutability(core.MutableAll())
	defer restore()

	c := Clone(m)
	if err := c.base().attachTo(root); err != nil {
		return zero, err
	}
	if entry != nil {
		if err := entry(c); err != nil {
			return zero, err
		}
	}
	logger.Debug("module initialized", "module", b.typeTag(), "store", root.ID(),
		"variables", len(core.Flatten(root.Snapshot())))
	return c, nil
}

// Bind binds a clone of the detached module m to a store holding a copy of
// vars and returns it. vars is never modified.
func Bind[M Module](m M, vars core.Variables, opts ...BindOption) (M, error) {
	var zero M
	b, err := prepare(m)
	if err != nil {
		return zero, err
	}
	if b.scope != nil || b.parent != nil {
		return zero, fmt.Errorf("%w: %s, clone it first", ErrDoubleAttach, b.describe())
	}

	cfg := newBindConfig(opts)
	root := core.NewRoot(vars, cfg.rngs)
	root.SetMutability(cfg.mutable)

	c := Clone(m)
	if err := c.base().attachTo(root); err != nil {
		return zero, err
	}
	return c, nil
}

// Apply binds a clone of m to vars and runs fn on it.
//
//	y, err := linen.Apply(def, vars, func(m *MLP) (*tensor.RawTensor, error) {
//	    return m.Call(x)
//	})
func Apply[M Module, R any](m M, vars core.Variables, fn func(M) (R, error), opts ...BindOption) (R, error) {
	out, _, err := ApplyMutable(m, vars, fn, opts...)
	return out, err
}

// ApplyMutable is Apply that also returns the variables as they are after fn
// ran. Only kinds made writable with WithMutable can differ from vars.
func ApplyMutable[M Module, R any](m M, vars core.Variables, fn func(M) (R, error), opts ...BindOption) (R, core.Variables, error) {
	var zero R
	bound, err := Bind(m, vars, opts...)
	if err != nil {
		return zero, nil, err
	}
	out, err := fn(bound)
	if err != nil {
		return zero, nil, err
	}
	return out, bound.base().scope.Snapshot(), nil
}

// Clone returns an Unattached copy of m's configuration with overrides
// applied. Explicit names and constructor-argument children are copied;
// scope and binding state are not. Exported slice and map fields get their
// own backing storage, so overrides may edit them in place.
func Clone[M Module](m M, overrides ...func(M)) M {
	out := cloneModule(m).(M)
	for _, o := range overrides {
		o(out)
	}
	return out
}

// Detached is Clone without overrides.
func Detached[M Module](m M) M {
	return Clone(m)
}

func cloneModule(m Module) Module {
	src := m.base()
	v := reflect.ValueOf(m).Elem()
	cp := reflect.New(v.Type())
	cp.Elem().Set(v)
	copyContainers(cp.Elem())
	out := cp.Interface().(Module)

	b := out.base()
	*b = Base{}
	b.init(out)
	if src.explicit {
		b.name = src.name
		b.explicit = true
	}
	b.cursor = maps.Clone(src.argCursor)
	if b.cursor == nil {
		b.cursor = make(map[string]int)
	}
	b.argCursor = maps.Clone(b.cursor)
	for _, arg := range src.args {
		ab := arg.base()
		ac := cloneModule(arg)
		acb := ac.base()
		acb.parent = out
		acb.name = ab.name
		acb.explicit = ab.explicit
		b.reserved[ab.name] = reservation{module: ac}
		b.args = append(b.args, ac)
	}
	return out
}

// copyContainers gives every exported slice and map field of v fresh
// backing storage. Elements are copied shallowly.
func copyContainers(v reflect.Value) {
	for i := range v.NumField() {
		f := v.Field(i)
		if !f.CanSet() {
			continue
		}
		switch f.Kind() {
		case reflect.Slice:
			if f.IsNil() {
				continue
			}
			s := reflect.MakeSlice(f.Type(), f.Len(), f.Len())
			reflect.Copy(s, f)
			f.Set(s)
		case reflect.Map:
			if f.IsNil() {
				continue
			}
			m := reflect.MakeMapWithSize(f.Type(), f.Len())
			iter := f.MapRange()
			for iter.Next() {
				m.SetMapIndex(iter.Key(), iter.Value())
			}
			f.Set(m)
		}
	}
}
