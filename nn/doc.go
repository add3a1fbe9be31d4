// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package nn provides neural network layers built on linen modules.
//
// # Overview
//
// This package contains:
//   - Layers: Dense, BatchNorm, Dropout
//   - Activations: ReLU, Sigmoid, Tanh
//   - Containers: MLP, Sequential, AutoEncoder
//   - Initialization: Xavier, LecunNormal, Zeros, Ones, Constant
//   - Checkpoints: Save, Load
//
// # Basic Usage
//
//	import (
//	    "github.com/born-ml/linen/linen"
//	    "github.com/born-ml/linen/nn"
//	)
//
//	func main() {
//	    model, _ := nn.NewSequential(
//	        &nn.Dense{Features: 128},
//	        &nn.ReLU{},
//	        &nn.Dense{Features: 10},
//	    )
//	    rngs := map[linen.Kind]linen.Key{linen.Params: linen.NewKey(0)}
//	    bound, _ := linen.Initialized(model, rngs, func(m *nn.Sequential) error {
//	        _, err := m.Call(x)
//	        return err
//	    })
//	    _ = nn.Save(bound, "model.born", nil)
//	}
package nn
