// Package linen binds declarative module trees to variable scopes.
//
// A module is any struct embedding Base (or MultiBase when it exposes more
// than one entry method). Its exported fields are configuration; it gets a
// scope, a resolved name and children only when it is bound.
//
//	type MLP struct {
//	    linen.Base
//	    Widths []int
//	}
//
//	func (m *MLP) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
//	    exit, err := m.Enter()
//	    if err != nil {
//	        return nil, err
//	    }
//	    defer exit()
//	    for _, w := range m.Widths {
//	        d, err := linen.New(m, &nn.Dense{Features: w}) // Dense_0, Dense_1, ...
//	        ...
//	    }
//	}
//
//	def, _ := linen.New(nil, &MLP{Widths: []int{32, 10}})
//	mlp, err := linen.Initialized(def, rngs, func(m *MLP) error {
//	    _, err := m.Call(x)
//	    return err
//	})
//
// # Lifecycle
//
// A module is Unattached until it is given a parent. Declared under a bound
// parent it becomes Bound at once: it gets a child scope named after it and
// its Setup hook runs. Declared under a parent that is not bound yet it is
// Pending: its name is reserved and it is bound, in declaration order, right
// before the parent's own Setup runs.
//
// # Naming
//
// Children without an explicit name are named TypeTag_N with a counter per
// type tag and parent. Names are reserved per parent for the whole phase, and
// every entry method call starts again from the state the module had right
// after binding, so repeated calls resolve identical names.
//
// # Phases
//
// Variables and submodules may be declared in Setup, or in the entry method of
// a single-entry module. Anything else fails with ErrPhase.
package linen
