package nn

import (
	"fmt"

	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/tensor"
)

// Sequential is a container module that chains layers together.
//
// The layers are constructor arguments: they are declared under the
// Sequential before it is bound, named TypeTag_N in order, and bound together
// with it.
//
// Example:
//
//	seq, err := nn.NewSequential(
//	    &nn.Dense{Features: 128},
//	    &nn.ReLU{},
//	    &nn.Dense{Features: 10},
//	)
//	// children: Dense_0, ReLU_0, Dense_1
type Sequential struct {
	linen.Base
}

// NewSequential creates an unbound Sequential holding layers.
func NewSequential(layers ...Layer) (*Sequential, error) {
	s := &Sequential{}
	for i, l := range layers {
		if _, err := linen.New(s, l); err != nil {
			return nil, fmt.Errorf("sequential layer %d: %w", i, err)
		}
	}
	return s, nil
}

// Layers returns the bound layers in order.
func (s *Sequential) Layers() []Layer {
	var out []Layer
	for _, m := range s.Submodules() {
		if l, ok := m.(Layer); ok {
			out = append(out, l)
		}
	}
	return out
}

// Call applies all layers in sequence.
func (s *Sequential) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	exit, err := s.Enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	for _, l := range s.Layers() {
		if x, err = l.Call(x); err != nil {
			return nil, err
		}
	}
	return x, nil
}
