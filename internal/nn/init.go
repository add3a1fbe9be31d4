package nn

import (
	"math"

	"github.com/born-ml/linen/internal/rng"
	"github.com/born-ml/linen/internal/tensor"
)

// Initializer creates the initial value of a parameter of the given shape
// from a randomness key.
type Initializer func(key rng.Key, shape tensor.Shape) (*tensor.RawTensor, error)

// fans returns fan-in and fan-out of a kernel shape [in, out].
func fans(shape tensor.Shape) (fanIn, fanOut int) {
	switch len(shape) {
	case 0:
		return 1, 1
	case 1:
		return shape[0], shape[0]
	default:
		receptive := 1
		for _, d := range shape[:len(shape)-2] {
			receptive *= d
		}
		return shape[len(shape)-2] * receptive, shape[len(shape)-1] * receptive
	}
}

// Xavier (Glorot) initialization for weights.
//
// Initializes weights with values drawn from a uniform distribution:
// U(-sqrt(6/(fan_in + fan_out)), sqrt(6/(fan_in + fan_out)))
//
// This initialization helps maintain variance of activations across layers.
func Xavier(key rng.Key, shape tensor.Shape) (*tensor.RawTensor, error) {
	fanIn, fanOut := fans(shape)
	bound := math.Sqrt(6.0 / float64(fanIn+fanOut))
	return tensor.Uniform(key, shape, -bound, bound)
}

// LecunNormal draws from a truncated normal distribution with standard
// deviation sqrt(1/fan_in). It is the default kernel initializer of Dense.
func LecunNormal(key rng.Key, shape tensor.Shape) (*tensor.RawTensor, error) {
	fanIn, _ := fans(shape)
	return tensor.TruncatedNormal(key, shape, math.Sqrt(1/float64(fanIn)))
}

// Zeros creates a tensor filled with zeros.
//
// This is commonly used for bias initialization.
func Zeros(_ rng.Key, shape tensor.Shape) (*tensor.RawTensor, error) {
	return tensor.Zeros(shape)
}

// Ones creates a tensor filled with ones.
func Ones(_ rng.Key, shape tensor.Shape) (*tensor.RawTensor, error) {
	return tensor.Ones(shape)
}

// Constant returns an initializer that fills tensors with value.
func Constant(value float32) Initializer {
	return func(_ rng.Key, shape tensor.Shape) (*tensor.RawTensor, error) {
		return tensor.Full(shape, value)
	}
}
