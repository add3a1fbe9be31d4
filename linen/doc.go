// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package linen provides declarative modules bound to variable scopes.
//
// # Overview
//
// A module is a plain struct that embeds linen.Base. Its exported fields are
// configuration; its variables live in a separate store, keyed by kind and by
// the module's path in the tree:
//
//	type Dense struct {
//	    linen.Base
//	    Features int
//	}
//
//	func (d *Dense) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
//	    exit, err := d.Enter()
//	    if err != nil {
//	        return nil, err
//	    }
//	    defer exit()
//	    w, err := d.Param("kernel", func(key linen.Key) (any, error) { ... })
//	    ...
//	}
//
// # Lifecycle
//
// A module is Unattached when constructed, Pending once it has a parent that
// is not bound yet, and Bound once it has a scope. Submodules receive their
// names when they are bound: explicit names are kept, unnamed ones get
// "<Type>_<n>" in declaration order.
//
// Single-entry modules may declare submodules and variables inline in their
// entry method. Modules embedding MultiBase must declare everything in Setup.
//
// # Binding
//
//	model, err := linen.Initialized(&MLP{Widths: widths}, rngs, func(m *MLP) error {
//	    _, err := m.Call(x)
//	    return err
//	})
//	vars := linen.Snapshot(model)
//	y, err := linen.Apply(&MLP{Widths: widths}, vars, func(m *MLP) (*tensor.RawTensor, error) {
//	    return m.Call(x)
//	})
//
// Mutate temporarily makes kinds of a bound module writable:
//
//	err := linen.Mutate(model, linen.MutableKinds(linen.BatchStats), func(m *MLP) error { ... })
package linen
