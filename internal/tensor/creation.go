package tensor

import (
	"github.com/born-ml/linen/internal/rng"
)

// Zeros returns a float32 tensor filled with zeros.
func Zeros(shape Shape) (*RawTensor, error) {
	return New(shape, Float32)
}

// Ones returns a float32 tensor filled with ones.
func Ones(shape Shape) (*RawTensor, error) {
	return Full(shape, 1)
}

// Full returns a float32 tensor filled with value.
func Full(shape Shape, value float32) (*RawTensor, error) {
	t, err := New(shape, Float32)
	if err != nil {
		return nil, err
	}
	data := t.AsFloat32()
	for i := range data {
		data[i] = value
	}
	return t, nil
}

// Uniform returns a float32 tensor sampled uniformly from [low, high) with
// key.
func Uniform(key rng.Key, shape Shape, low, high float64) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return FromFloat32(shape, key.Uniform(shape.NumElements(), low, high))
}

// Normal returns a float32 tensor sampled from N(0, stddev²) with key.
func Normal(key rng.Key, shape Shape, stddev float64) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return FromFloat32(shape, key.Normal(shape.NumElements(), stddev))
}

// TruncatedNormal is Normal with samples limited to two standard deviations.
func TruncatedNormal(key rng.Key, shape Shape, stddev float64) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return FromFloat32(shape, key.TruncatedNormal(shape.NumElements(), stddev))
}
