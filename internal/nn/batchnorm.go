package nn

import (
	"fmt"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/tensor"
)

// BatchNorm normalizes its input over the batch dimension.
//
// Variables:
//   - param scale [features], bias [features]
//   - batch_stats mean [features], var [features]
//
// With UseRunningAverage the stored statistics are used. Otherwise the batch
// statistics are used, and the running averages are updated when batch_stats
// is mutable (outside initialization):
//
//	running = Momentum*running + (1-Momentum)*batch
//
// Example:
//
//	err := linen.Mutate(model, core.MutableKinds(core.BatchStats), func(m *MyModel) error {
//	    _, err := m.Call(x)
//	    return err
//	})
type BatchNorm struct {
	linen.Base

	UseRunningAverage bool
	Momentum          float32 // 0.99 when zero
	Epsilon           float32 // 1e-5 when zero
}

// Call normalizes x of shape [batch, features].
func (bn *BatchNorm) Call(x *tensor.RawTensor) (*tensor.RawTensor, error) {
	exit, err := bn.Enter()
	if err != nil {
		return nil, err
	}
	defer exit()

	n, err := features(x)
	if err != nil {
		return nil, fmt.Errorf("batchnorm: %w", err)
	}
	shape := tensor.Shape{n}
	momentum, eps := bn.Momentum, bn.Epsilon
	if momentum == 0 {
		momentum = 0.99
	}
	if eps == 0 {
		eps = 1e-5
	}

	meanVar, runMean, err := variable(&bn.Base, core.BatchStats, "mean", tensor.Zeros, shape)
	if err != nil {
		return nil, err
	}
	varVar, runVar, err := variable(&bn.Base, core.BatchStats, "var", tensor.Ones, shape)
	if err != nil {
		return nil, err
	}

	mean, variance := runMean, runVar
	if !bn.UseRunningAverage {
		if mean, variance, err = tensor.MeanVar(x); err != nil {
			return nil, err
		}
		if bn.IsMutable(core.BatchStats) && !bn.IsInitializing() {
			if err := update(meanVar, runMean, mean, momentum); err != nil {
				return nil, err
			}
			if err := update(varVar, runVar, variance, momentum); err != nil {
				return nil, err
			}
		}
	}

	y, err := tensor.Normalize(x, mean, variance, eps)
	if err != nil {
		return nil, err
	}
	scale, err := param(&bn.Base, "scale", Ones, shape)
	if err != nil {
		return nil, err
	}
	bias, err := param(&bn.Base, "bias", Zeros, shape)
	if err != nil {
		return nil, err
	}
	return tensor.Affine(y, scale, bias)
}

func update(v *core.Variable, running, batch *tensor.RawTensor, momentum float32) error {
	next, err := tensor.Blend(running, batch, momentum)
	if err != nil {
		return err
	}
	return v.SetValue(next)
}
