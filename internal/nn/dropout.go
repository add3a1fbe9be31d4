package nn

import (
	"fmt"

	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/tensor"
)

// Dropout zeroes each element with probability Rate and scales the rest by
// 1/(1-Rate). It draws from the DropoutRNG kind, which must be supplied when
// Deterministic is false.
type Dropout struct {
	linen.Base

	Rate          float32
	Deterministic bool
}

// Call applies dropout to x.
func (d *Dropout) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	exit, err := d.Enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	if d.Rate < 0 || d.Rate >= 1 {
		return nil, fmt.Errorf("dropout: rate must be in [0, 1), got %v", d.Rate)
	}
	if d.Deterministic || d.Rate == 0 {
		return x, nil
	}

	key, err := d.MakeRNG(DropoutRNG)
	if err != nil {
		return nil, err
	}
	keep := float32(1) / (1 - d.Rate)
	draws := key.Uniform(x.NumElements(), 0, 1)
	mask := make([]float32, len(draws))
	for i, u := range draws {
		if u >= d.Rate {
			mask[i] = keep
		}
	}
	m, err := tensor.FromFloat32(x.Shape(), mask)
	if err != nil {
		return nil, err
	}
	return tensor.Mul(x, m)
}
