// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

// Package tensor provides the dense CPU tensors stored in linen variables.
//
// # Overview
//
// RawTensor is a shaped, typed byte buffer. Operations return new tensors
// and never modify their inputs:
//
//	x, _ := tensor.FromFloat32(tensor.Shape{2, 3}, []float32{1, 2, 3, 4, 5, 6})
//	w, _ := tensor.Uniform(key, tensor.Shape{3, 4}, -1, 1)
//	y, _ := tensor.MatMul(x, w) // shape: [2, 4]
//
// Row-parallel operations split work across goroutines as configured with
// SetParallel.
package tensor
