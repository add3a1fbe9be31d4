package nn

import (
	"fmt"

	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/tensor"
)

// Dense implements a fully connected layer.
//
// Performs the transformation: y = x @ kernel + bias
// where:
//   - x has shape [batch_size, in_features]
//   - kernel has shape [in_features, Features]
//   - bias has shape [Features]
//   - y has shape [batch_size, Features]
//
// in_features is taken from the first input; the parameters are created
// lazily on that call.
//
// Example:
//
//	d, err := linen.New(parent, &nn.Dense{Features: 128})
//	y, err := d.Call(x) // shape: [32, 128]
type Dense struct {
	linen.Base

	Features   int
	NoBias     bool
	KernelInit Initializer // LecunNormal when nil
	BiasInit   Initializer // Zeros when nil
}

// Call applies the layer to x.
func (d *Dense) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	exit, err := d.Enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	if d.Features <= 0 {
		return nil, fmt.Errorf("dense: features must be positive, got %d", d.Features)
	}
	in, err := features(x)
	if err != nil {
		return nil, fmt.Errorf("dense: %w", err)
	}

	kernelInit := d.KernelInit
	if kernelInit == nil {
		kernelInit = LecunNormal
	}
	kernel, err := param(&d.Base, "kernel", kernelInit, tensor.Shape{in, d.Features})
	if err != nil {
		return nil, err
	}
	y, err := tensor.MatMul(x, kernel)
	if err != nil {
		return nil, err
	}
	if d.NoBias {
		return y, nil
	}

	biasInit := d.BiasInit
	if biasInit == nil {
		biasInit = Zeros
	}
	bias, err := param(&d.Base, "bias", biasInit, tensor.Shape{d.Features})
	if err != nil {
		return nil, err
	}
	return tensor.AddBias(y, bias)
}
