package linen

import (
	"fmt"
	"maps"
	"reflect"
	"strings"

	"github.com/born-ml/linen/internal/core"
)

// Module is implemented by every struct that embeds Base or MultiBase.
type Module interface {
	base() *Base
}

// SetupHook is implemented by modules that declare children or variables at
// binding time.
type SetupHook interface {
	Setup() error
}

// State is the lifecycle state of a module.
type State int

// Lifecycle states.
const (
	Unattached State = iota // Configuration only, no parent
	Pending                 // Parent known, not bound yet
	Bound                   // Has a scope, Setup has run
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case Unattached:
		return "unattached"
	case Pending:
		return "pending"
	case Bound:
		return "bound"
	default:
		return "unknown"
	}
}

type reservation struct {
	module Module
	kind   core.Kind
}

// Base carries the identity, binding and naming state of a module.
// Embed it in module structs; its zero value is ready to use.
type Base struct {
	self     Module
	parent   any
	name     string
	explicit bool
	multi    bool

	scope     *core.Scope
	baseScope *core.Scope
	inSetup   bool
	depth     int

	cursor       map[string]int
	reserved     map[string]reservation
	baseCursor   map[string]int
	baseReserved map[string]reservation

	children map[string]Child
	order    []string

	args      []Module
	argCursor map[string]int
}

func (b *Base) base() *Base { return b }

// MultiBase is Base for modules that expose several entry methods. Such
// modules may only declare children and variables in Setup.
type MultiBase struct {
	Base
}

func (*MultiBase) multiEntry() {}

type multiEntry interface {
	multiEntry()
}

// Option configures New.
type Option func(*Base)

// Named gives the module an explicit name under its parent.
func Named(name string) Option {
	return func(b *Base) {
		b.name = name
		b.explicit = true
	}
}

// New declares m under parent.
//
// parent is nil (m stays Unattached), a root *core.Scope (m is bound at that
// scope), or another Module. Under a bound module m is named and bound right
// away, which requires the parent to be in Setup or in a single-entry entry
// method. Under a module that is not bound yet m becomes Pending.
func New[M Module](parent any, m M, opts ...Option) (M, error) {
	var zero M
	b, err := prepare(m)
	if err != nil {
		return zero, err
	}
	if b.parent != nil || b.scope != nil {
		return zero, fmt.Errorf("%w: %s", ErrDoubleAttach, b.describe())
	}
	for _, opt := range opts {
		opt(b)
	}
	if err := b.attachTo(parent); err != nil {
		if !b.explicit {
			b.name = ""
		}
		return zero, err
	}
	return m, nil
}

// MustNew is New that panics on error.
func MustNew[M Module](parent any, m M, opts ...Option) M {
	out, err := New(parent, m, opts...)
	if err != nil {
		panic(err)
	}
	return out
}

// prepare initializes m's Base on first use and validates its fields.
func prepare(m Module) (*Base, error) {
	b := m.base()
	if b.self != nil {
		return b, nil
	}
	if err := checkFields(m); err != nil {
		return nil, err
	}
	b.init(m)
	return b, nil
}

func (b *Base) init(m Module) {
	b.self = m
	_, b.multi = m.(multiEntry)
	b.cursor = make(map[string]int)
	b.reserved = make(map[string]reservation)
	b.children = make(map[string]Child)
	b.argCursor = make(map[string]int)
}

// checkFields rejects configuration fields that shadow the reserved
// identifiers parent and name.
func checkFields(m Module) error {
	t := reflect.TypeOf(m)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	for i := range t.NumField() {
		f := t.Field(i)
		if f.Anonymous {
			continue
		}
		switch strings.ToLower(f.Name) {
		case "parent", "name":
			return fmt.Errorf("%w: %s.%s", ErrReservedField, t.Name(), f.Name)
		}
	}
	return nil
}

func (b *Base) attachTo(parent any) error {
	switch p := parent.(type) {
	case nil:
		return nil
	case *core.Scope:
		if p == nil {
			return nil
		}
		b.parent = p
		if err := b.bind(p); err != nil {
			b.parent = nil
			return err
		}
		logger.Debug("module bound", "module", b.typeTag(), "path", p.PathString(), "store", p.ID())
		return nil
	case Module:
		pb, err := prepare(p)
		if err != nil {
			return err
		}
		return pb.adopt(b)
	default:
		return fmt.Errorf("%w: %T is neither a Module nor a *core.Scope", ErrInvalidParent, parent)
	}
}

// adopt declares child c under b.
func (b *Base) adopt(c *Base) error {
	if b.scope == nil {
		return b.addArg(c)
	}
	if !b.declarationAllowed() {
		return b.phaseError("submodule " + c.typeTag())
	}
	return b.attachChild(c)
}

// addArg records c as a constructor argument of the unbound module b.
func (b *Base) addArg(c *Base) error {
	name, commit, err := b.resolve(c)
	if err != nil {
		return err
	}
	commit()
	c.parent = b.self
	c.name = name
	b.args = append(b.args, c.self)
	b.argCursor = maps.Clone(b.cursor)
	return nil
}

// attachChild names c under the bound module b and binds it.
func (b *Base) attachChild(c *Base) error {
	name, commit, err := b.resolve(c)
	if err != nil {
		return err
	}
	commit()
	c.parent = b.self
	c.name = name
	b.addChild(Child{Name: name, Module: c.self})
	if err := c.bind(b.scope.Descend(name)); err != nil {
		b.release(name)
		c.parent = nil
		if !c.explicit {
			c.name = ""
		}
		return err
	}
	return nil
}

// bind assigns scope s, binds pending constructor arguments and runs Setup.
// On failure b is restored to its state before the call and variables
// created in the store since then are removed.
func (b *Base) bind(s *core.Scope) error {
	savedCursor := maps.Clone(b.cursor)
	savedReserved := maps.Clone(b.reserved)
	mark := s.Mark()

	b.scope = s
	for _, arg := range b.args {
		ab := arg.base()
		b.addChild(Child{Name: ab.name, Module: arg})
		if err := ab.bind(s.Descend(ab.name)); err != nil {
			s.Rollback(mark)
			b.unbind(savedCursor, savedReserved)
			return err
		}
	}
	if err := b.runSetup(); err != nil {
		s.Rollback(mark)
		b.unbind(savedCursor, savedReserved)
		return err
	}

	b.baseScope = b.scope.Fork()
	b.baseCursor = maps.Clone(b.cursor)
	b.baseReserved = maps.Clone(b.reserved)
	return nil
}

func (b *Base) unbind(cursor map[string]int, reserved map[string]reservation) {
	for _, arg := range b.args {
		ab := arg.base()
		if ab.scope != nil {
			ab.unbind(maps.Clone(ab.argCursor), ab.argReservations())
		}
	}
	b.scope = nil
	b.baseScope = nil
	b.cursor = cursor
	b.reserved = reserved
	b.children = make(map[string]Child)
	b.order = nil
}

func (b *Base) argReservations() map[string]reservation {
	out := make(map[string]reservation, len(b.args))
	for _, arg := range b.args {
		out[arg.base().name] = reservation{module: arg}
	}
	return out
}

func (b *Base) runSetup() error {
	hook, ok := b.self.(SetupHook)
	if !ok {
		return nil
	}
	b.inSetup = true
	defer func() { b.inSetup = false }()
	if err := hook.Setup(); err != nil {
		return fmt.Errorf("setup %s: %w", b.describe(), err)
	}
	return nil
}

// resetTransient restores the naming state and scope recorded right after
// binding. Rng counters keep counting from the current scope.
func (b *Base) resetTransient() {
	if b.baseScope == nil {
		// Still binding.
		return
	}
	b.cursor = maps.Clone(b.baseCursor)
	b.reserved = maps.Clone(b.baseReserved)
	b.scope = b.baseScope.Resume(b.scope)
}

func (b *Base) declarationAllowed() bool {
	return b.inSetup || (b.depth > 0 && !b.multi)
}

func (b *Base) phaseError(what string) error {
	switch {
	case b.scope == nil:
		return fmt.Errorf("%w: %s declared on unbound module %s", ErrPhase, what, b.describe())
	case b.multi && b.depth > 0:
		return fmt.Errorf("%w: multi-entry module %s must declare %s in Setup", ErrPhase, b.describe(), what)
	default:
		return fmt.Errorf("%w: %s declared on %s outside Setup or an entry method", ErrPhase, what, b.describe())
	}
}

// Enter marks the start of an entry method. The returned exit function must
// be called when the method returns:
//
//	exit, err := m.Enter()
//	if err != nil {
//	    return nil, err
//	}
//	defer exit()
//
// The outermost call resets the module's naming state and scope to what they
// were right after binding, both on the way in and on the way out. Keys from
// MakeRNG are not rewound: each call draws fresh ones.
func (b *Base) Enter() (exit func(), err error) {
	if b.scope == nil {
		return func() {}, fmt.Errorf("%w: cannot call methods on unbound module %s", ErrPhase, b.describe())
	}
	if b.depth == 0 {
		b.resetTransient()
	}
	b.depth++
	return func() {
		b.depth--
		if b.depth == 0 {
			b.resetTransient()
		}
	}, nil
}

// Name returns the resolved name, or "" while unresolved.
func (b *Base) Name() string {
	return b.name
}

// Parent returns nil, the parent Module or the root *core.Scope.
func (b *Base) Parent() any {
	return b.parent
}

// State returns the lifecycle state.
func (b *Base) State() State {
	switch {
	case b.scope != nil:
		return Bound
	case b.parent != nil:
		return Pending
	default:
		return Unattached
	}
}

// IsMultiEntry reports whether the module embeds MultiBase.
func (b *Base) IsMultiEntry() bool {
	return b.multi
}

// Scope returns the module's scope, or nil when unbound.
//
// Kernels written against *core.Scope can be called with it directly.
func (b *Base) Scope() *core.Scope {
	return b.scope
}

// Path returns the module's scope path, or "" when unbound.
func (b *Base) Path() string {
	if b.scope == nil {
		return ""
	}
	return b.scope.PathString()
}

// Variables returns a read-only view of the variables at and below the
// module, keyed by kind. Unbound modules have an empty view.
func (b *Base) Variables() core.View {
	if b.scope == nil {
		return core.View{}
	}
	return b.scope.Variables()
}

// Snapshot returns a deep copy of every variable in the module's store, or
// nil when unbound.
func (b *Base) Snapshot() core.Variables {
	if b.scope == nil {
		return nil
	}
	return b.scope.Snapshot()
}

// Snapshot returns a deep copy of the store m is bound to, or nil when m is
// unbound.
func Snapshot(m Module) core.Variables {
	return m.base().Snapshot()
}

func (b *Base) describe() string {
	if b.scope != nil {
		return fmt.Sprintf("%s(%s)", b.typeTag(), b.scope.PathString())
	}
	if b.name != "" {
		return fmt.Sprintf("%s(%s)", b.typeTag(), b.name)
	}
	return b.typeTag()
}
