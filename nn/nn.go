// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package nn

import (
	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/nn"
	"github.com/born-ml/linen/internal/serialization"
)

// Layer is a module with a single tensor-to-tensor entry method.
type Layer = nn.Layer

// Layers.
type (
	Dense       = nn.Dense
	BatchNorm   = nn.BatchNorm
	Dropout     = nn.Dropout
	ReLU        = nn.ReLU
	Sigmoid     = nn.Sigmoid
	Tanh        = nn.Tanh
	MLP         = nn.MLP
	Sequential  = nn.Sequential
	AutoEncoder = nn.AutoEncoder
)

// Initializer creates a parameter tensor from an rng key.
type Initializer = nn.Initializer

// DropoutRNG is the rng kind consumed by Dropout.
const DropoutRNG = nn.DropoutRNG

// ErrVariableType is returned when a stored variable is not a tensor.
var ErrVariableType = nn.ErrVariableType

// Initializers.
var (
	Xavier      Initializer = nn.Xavier
	LecunNormal Initializer = nn.LecunNormal
	Zeros       Initializer = nn.Zeros
	Ones        Initializer = nn.Ones
)

// Constant returns an initializer filling tensors with value.
func Constant(value float32) Initializer {
	return nn.Constant(value)
}

// NewSequential returns a container running layers in order. The layers must
// be unattached; they become its children Type_0, Type_1, ... when bound.
func NewSequential(layers ...Layer) (*Sequential, error) {
	return nn.NewSequential(layers...)
}

// Save writes the variables of the bound module m to a .born file.
//
// Example:
//
//	err := nn.Save(model, "model.born", map[string]string{"epoch": "3"})
func Save(m linen.Module, path string, metadata map[string]string) error {
	return serialization.Save(path, linen.Snapshot(m), linen.TypeTag(m), metadata)
}

// Load reads the variables stored in a .born file.
//
// Example:
//
//	vars, err := nn.Load("model.born")
//	y, err := linen.Apply(&nn.MLP{Widths: widths}, vars, call)
func Load(path string) (core.Variables, error) {
	ckpt, err := serialization.Load(path)
	if err != nil {
		return nil, err
	}
	return ckpt.Variables()
}
