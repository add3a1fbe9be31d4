package nn

import (
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/tensor"
)

// MLP is a stack of Dense layers declared inline in Call, named Dense_0,
// Dense_1, ... on every call. Activation is applied between layers, not after
// the last one.
//
// Example:
//
//	mlp := &nn.MLP{Widths: []int{64, 64, 10}}
//	m, err := linen.Initialized(mlp, rngs, func(m *nn.MLP) error {
//	    _, err := m.Call(x)
//	    return err
//	})
type MLP struct {
	linen.Base

	Widths     []int
	Activation func(*tensor.RawTensor) (*tensor.RawTensor, error) // tensor.ReLU when nil
}

// Call runs x through the stack.
func (m *MLP) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	exit, err := m.Enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	act := m.Activation
	if act == nil {
		act = tensor.ReLU
	}
	for i, w := range m.Widths {
		d, err := linen.New(m, &Dense{Features: w})
		if err != nil {
			return nil, err
		}
		if x, err = d.Call(x); err != nil {
			return nil, err
		}
		if i < len(m.Widths)-1 {
			if x, err = act(x); err != nil {
				return nil, err
			}
		}
	}
	return x, nil
}
