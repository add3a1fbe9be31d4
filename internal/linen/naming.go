package linen

import (
	"fmt"
	"maps"
	"reflect"
	"slices"
	"strconv"
	"strings"

	"github.com/born-ml/linen/internal/core"
)

// TypeNamer overrides the type tag used for automatic names.
type TypeNamer interface {
	TypeName() string
}

func (b *Base) typeTag() string {
	if b.self == nil {
		return "Module"
	}
	return tagOf(b.self)
}

// TypeTag returns the tag m is autonamed with: its TypeName when it is a
// TypeNamer, otherwise its struct type name without type arguments.
func TypeTag(m Module) string {
	return tagOf(m)
}

func tagOf(m Module) string {
	if n, ok := m.(TypeNamer); ok {
		return n.TypeName()
	}
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	name := t.Name()
	if i := strings.IndexByte(name, '['); i >= 0 {
		name = name[:i]
	}
	return name
}

func validName(name string) error {
	if name == "" || strings.Contains(name, core.Sep) {
		return fmt.Errorf("%w: invalid name %q", ErrNameInUse, name)
	}
	return nil
}

// resolve picks the name child c gets under b and checks it is free. Nothing
// is recorded until commit is called.
func (b *Base) resolve(c *Base) (name string, commit func(), err error) {
	if c.explicit {
		if err := validName(c.name); err != nil {
			return "", nil, err
		}
		if b.taken(c.name) {
			return "", nil, b.collision(c.name)
		}
		return c.name, func() { b.reserved[c.name] = reservation{module: c.self} }, nil
	}

	tag := c.typeTag()
	n := b.cursor[tag]
	name = tag + "_" + strconv.Itoa(n)
	if b.taken(name) {
		return "", nil, b.collision(name)
	}
	return name, func() {
		b.cursor[tag] = n + 1
		b.reserved[name] = reservation{module: c.self}
	}, nil
}

func (b *Base) taken(name string) bool {
	_, ok := b.reserved[name]
	return ok
}

func (b *Base) collision(name string) error {
	return fmt.Errorf("%w: %q under %s", ErrNameInUse, name, b.describe())
}

// release drops a reservation and its child entry. The autoname cursor is
// append-only and is left alone.
func (b *Base) release(name string) {
	delete(b.reserved, name)
	if _, ok := b.children[name]; ok {
		delete(b.children, name)
		b.order = slices.DeleteFunc(b.order, func(n string) bool { return n == name })
	}
}

func (b *Base) addChild(c Child) {
	if _, ok := b.children[c.Name]; !ok {
		b.order = append(b.order, c.Name)
	}
	b.children[c.Name] = c
}

// Register attaches child to parent under name. It is the explicit form of
// assigning a submodule to a field in Setup:
//
//	func (a *AutoEncoder) Setup() (err error) {
//	    a.encoder, err = linen.Register(a, "encoder", &MLP{Widths: a.EncoderWidths})
//	    return err
//	}
//
// child must be Unattached. When parent is not bound yet, child becomes
// Pending and is bound together with parent.
func Register[M Module](parent Module, name string, child M) (M, error) {
	var zero M
	pb, err := prepare(parent)
	if err != nil {
		return zero, err
	}
	cb, err := prepare(child)
	if err != nil {
		return zero, err
	}
	if err := pb.checkRegistrable(cb, name); err != nil {
		return zero, err
	}
	if err := pb.register(cb, name); err != nil {
		return zero, err
	}
	return child, nil
}

// RegisterSlice registers each module of children as name_0, name_1, ...
// All names are checked before any child is attached, and children attached
// before a failure are detached again.
func RegisterSlice[M Module](parent Module, name string, children []M) ([]M, error) {
	names := make([]string, len(children))
	for i := range children {
		names[i] = name + "_" + strconv.Itoa(i)
	}
	if err := registerAll(parent, names, children); err != nil {
		return nil, err
	}
	return children, nil
}

// RegisterMap registers each module of children as name_<key>, in sorted key
// order.
func RegisterMap[M Module](parent Module, name string, children map[string]M) (map[string]M, error) {
	keys := slices.Sorted(maps.Keys(children))
	names := make([]string, len(keys))
	ordered := make([]M, len(keys))
	for i, k := range keys {
		names[i] = name + "_" + k
		ordered[i] = children[k]
	}
	if err := registerAll(parent, names, ordered); err != nil {
		return nil, err
	}
	return children, nil
}

func registerAll[M Module](parent Module, names []string, children []M) error {
	pb, err := prepare(parent)
	if err != nil {
		return err
	}
	seen := make(map[*Base]bool, len(children))
	bases := make([]*Base, len(children))
	for i, child := range children {
		cb, err := prepare(child)
		if err != nil {
			return err
		}
		if seen[cb] {
			return fmt.Errorf("%w: %s appears twice in %s", ErrDoubleAttach, cb.typeTag(), names[i])
		}
		seen[cb] = true
		if err := pb.checkRegistrable(cb, names[i]); err != nil {
			return err
		}
		bases[i] = cb
	}
	for i, cb := range bases {
		if err := pb.register(cb, names[i]); err != nil {
			for _, done := range bases[:i] {
				pb.detach(done)
			}
			return err
		}
	}
	return nil
}

func (b *Base) checkRegistrable(c *Base, name string) error {
	if err := validName(name); err != nil {
		return err
	}
	if c == b {
		return fmt.Errorf("%w: %s cannot be its own child", ErrInvalidParent, b.describe())
	}
	if c.scope != nil {
		return fmt.Errorf("%w: %s", ErrDoubleAttach, c.describe())
	}
	if c.parent != nil {
		if c.parent == any(b.self) {
			return fmt.Errorf("%w: %s is already declared under %s", ErrDoubleAttach, c.describe(), b.describe())
		}
		return fmt.Errorf("%w: %s belongs to another parent", ErrInvalidParent, c.describe())
	}
	if c.explicit && c.name != name {
		return fmt.Errorf("%w: %s is already named %q", ErrNameInUse, c.typeTag(), c.name)
	}
	if b.taken(name) {
		return b.collision(name)
	}
	return nil
}

func (b *Base) register(c *Base, name string) error {
	prevName, prevExplicit := c.name, c.explicit
	c.name, c.explicit = name, true
	var err error
	switch {
	case b.scope == nil:
		err = b.addArg(c)
	case !b.declarationAllowed():
		err = b.phaseError("submodule " + name)
	default:
		err = b.attachChild(c)
	}
	if err != nil {
		c.name, c.explicit = prevName, prevExplicit
	}
	return err
}

// detach undoes a successful register.
func (b *Base) detach(c *Base) {
	b.release(c.name)
	b.args = slices.DeleteFunc(b.args, func(m Module) bool { return m.base() == c })
	if c.scope != nil {
		c.unbind(maps.Clone(c.argCursor), c.argReservations())
	}
	c.parent = nil
	c.name = ""
	c.explicit = false
}
