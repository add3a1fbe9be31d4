// Package nn implements neural network modules on top of the linen module
// system.
//
// This package provides building blocks bound to variable scopes:
//   - Dense: Fully connected layer (param kernel, bias)
//   - BatchNorm: Batch normalization with running statistics (batch_stats)
//   - Dropout: Random masking driven by the "dropout" rng kind
//   - Activations: ReLU, Sigmoid, Tanh
//   - MLP: Dense stack declared inline in its entry method
//   - Sequential: Container whose layers are constructor arguments
//   - AutoEncoder: Multi-entry module with Encode and Decode
package nn

import (
	"errors"
	"fmt"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/rng"
	"github.com/born-ml/linen/internal/tensor"
)

// Variable kinds and rng kinds used by this package.
const (
	// DropoutRNG is the rng kind consumed by Dropout.
	DropoutRNG core.Kind = "dropout"
)

// ErrVariableType is returned when a stored variable is not a tensor.
var ErrVariableType = errors.New("variable is not a tensor")

// Layer is a module with a single tensor-to-tensor entry method.
//
// Every Layer can be placed in a Sequential:
//
//	seq, err := nn.NewSequential(
//	    &nn.Dense{Features: 128},
//	    &nn.ReLU{},
//	    &nn.Dense{Features: 10},
//	)
type Layer interface {
	linen.Module
	// Call computes the output of the layer for input x.
	Call(x *tensor.RawTensor) (*tensor.RawTensor, error)
}

// param declares a tensor parameter of the given shape on b.
func param(b *linen.Base, name string, init Initializer, shape tensor.Shape) (*tensor.RawTensor, error) {
	v, err := b.Param(name, func(key rng.Key) (any, error) {
		return init(key, shape)
	})
	if err != nil {
		return nil, err
	}
	return checkTensor(b, name, v, shape)
}

// variable declares a tensor variable of the given kind and shape on b.
func variable(b *linen.Base, kind core.Kind, name string, init func(tensor.Shape) (*tensor.RawTensor, error), shape tensor.Shape) (*core.Variable, *tensor.RawTensor, error) {
	v, err := b.Variable(kind, name, func() (any, error) {
		return init(shape)
	})
	if err != nil {
		return nil, nil, err
	}
	t, err := checkTensor(b, name, v.Value(), shape)
	if err != nil {
		return nil, nil, err
	}
	return v, t, nil
}

func checkTensor(b *linen.Base, name string, v any, shape tensor.Shape) (*tensor.RawTensor, error) {
	t, ok := v.(*tensor.RawTensor)
	if !ok {
		return nil, fmt.Errorf("%w: %s/%s is %T", ErrVariableType, b.Path(), name, v)
	}
	if !t.Shape().Equal(shape) {
		return nil, fmt.Errorf("%w: %s/%s has shape %s, want %s", tensor.ErrShape, b.Path(), name, t.Shape(), shape)
	}
	return t, nil
}

func features(x *tensor.RawTensor) (int, error) {
	if len(x.Shape()) != 2 {
		return 0, fmt.Errorf("%w: expected [batch, features], got %s", tensor.ErrShape, x.Shape())
	}
	return x.Shape()[1], nil
}
