// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor

import (
	"github.com/born-ml/linen/internal/parallel"
	"github.com/born-ml/linen/internal/rng"
	"github.com/born-ml/linen/internal/tensor"
)

// RawTensor is a shaped, typed buffer of tensor data.
type RawTensor = tensor.RawTensor

// Shape is the size of each dimension of a tensor.
type Shape = tensor.Shape

// DataType is the element type of a tensor.
type DataType = tensor.DataType

// ParallelConfig controls how operations split work across goroutines.
type ParallelConfig = parallel.Config

// Element types.
const (
	Float32 = tensor.Float32
	Float64 = tensor.Float64
	Int32   = tensor.Int32
	Int64   = tensor.Int64
)

// Errors.
var (
	ErrShape = tensor.ErrShape
	ErrDType = tensor.ErrDType
	ErrSize  = tensor.ErrSize
)

// New returns a zero-filled tensor.
func New(shape Shape, dtype DataType) (*RawTensor, error) { return tensor.New(shape, dtype) }

// FromFloat32 returns a float32 tensor holding a copy of values.
func FromFloat32(shape Shape, values []float32) (*RawTensor, error) {
	return tensor.FromFloat32(shape, values)
}

// Zeros returns a float32 tensor of zeros.
func Zeros(shape Shape) (*RawTensor, error) { return tensor.Zeros(shape) }

// Ones returns a float32 tensor of ones.
func Ones(shape Shape) (*RawTensor, error) { return tensor.Ones(shape) }

// Full returns a float32 tensor filled with value.
func Full(shape Shape, value float32) (*RawTensor, error) { return tensor.Full(shape, value) }

// Uniform samples a float32 tensor from [low, high).
func Uniform(key rng.Key, shape Shape, low, high float64) (*RawTensor, error) {
	return tensor.Uniform(key, shape, low, high)
}

// Normal samples a float32 tensor from N(0, stddev²).
func Normal(key rng.Key, shape Shape, stddev float64) (*RawTensor, error) {
	return tensor.Normal(key, shape, stddev)
}

// MatMul multiplies two 2D tensors.
func MatMul(a, b *RawTensor) (*RawTensor, error) { return tensor.MatMul(a, b) }

// Add adds two tensors of equal shape.
func Add(a, b *RawTensor) (*RawTensor, error) { return tensor.Add(a, b) }

// Sub subtracts b from a.
func Sub(a, b *RawTensor) (*RawTensor, error) { return tensor.Sub(a, b) }

// Mul multiplies two tensors elementwise.
func Mul(a, b *RawTensor) (*RawTensor, error) { return tensor.Mul(a, b) }

// Scale multiplies every element by s.
func Scale(x *RawTensor, s float32) (*RawTensor, error) { return tensor.Scale(x, s) }

// ReLU returns max(x, 0).
func ReLU(x *RawTensor) (*RawTensor, error) { return tensor.ReLU(x) }

// Sigmoid returns 1/(1+exp(-x)).
func Sigmoid(x *RawTensor) (*RawTensor, error) { return tensor.Sigmoid(x) }

// Tanh returns tanh(x).
func Tanh(x *RawTensor) (*RawTensor, error) { return tensor.Tanh(x) }

// SetParallel sets the parallelism of row-parallel operations.
func SetParallel(c ParallelConfig) { tensor.SetParallel(c) }
