package nn

import (
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/tensor"
)

// ReLU is a Rectified Linear Unit activation module.
//
// Applies the element-wise function: f(x) = max(0, x)
type ReLU struct {
	linen.Base
}

// Call applies ReLU to x.
func (r *ReLU) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return tensor.ReLU(x)
}

// Sigmoid applies f(x) = 1 / (1 + exp(-x)).
type Sigmoid struct {
	linen.Base
}

// Call applies Sigmoid to x.
func (s *Sigmoid) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return tensor.Sigmoid(x)
}

// Tanh applies f(x) = tanh(x).
type Tanh struct {
	linen.Base
}

// Call applies Tanh to x.
func (t *Tanh) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	return tensor.Tanh(x)
}
