// Copyright 2025 Born ML Framework. All rights reserved.
// Use of this source code is governed by an Apache 2.0
// license that can be found in the LICENSE file.

package tensor_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/linen/linen"
	"github.com/born-ml/linen/tensor"
)

func TestMatMulAndActivations(t *testing.T) {
	a, err := tensor.FromFloat32(tensor.Shape{2, 2}, []float32{1, -2, 3, -4})
	require.NoError(t, err)
	id, err := tensor.FromFloat32(tensor.Shape{2, 2}, []float32{1, 0, 0, 1})
	require.NoError(t, err)

	tensor.SetParallel(tensor.ParallelConfig{Enabled: true, NumWorkers: 2, MinChunkSize: 1})
	defer tensor.SetParallel(tensor.ParallelConfig{NumWorkers: 1, MinChunkSize: 1})

	y, err := tensor.MatMul(a, id)
	require.NoError(t, err)
	assert.Equal(t, a.AsFloat32(), y.AsFloat32())

	r, err := tensor.ReLU(y)
	require.NoError(t, err)
	assert.Equal(t, []float32{1, 0, 3, 0}, r.AsFloat32())

	_, err = tensor.MatMul(a, r.Clone())
	require.NoError(t, err)

	bad, err := tensor.Zeros(tensor.Shape{3})
	require.NoError(t, err)
	_, err = tensor.Add(a, bad)
	require.ErrorIs(t, err, tensor.ErrShape)
}

func TestUniformIsKeyed(t *testing.T) {
	k := linen.NewKey(4)
	a, err := tensor.Uniform(k, tensor.Shape{8}, -1, 1)
	require.NoError(t, err)
	b, err := tensor.Uniform(k, tensor.Shape{8}, -1, 1)
	require.NoError(t, err)
	c, err := tensor.Uniform(linen.FoldIn(k, "other"), tensor.Shape{8}, -1, 1)
	require.NoError(t, err)

	assert.Equal(t, a.AsFloat32(), b.AsFloat32())
	assert.NotEqual(t, a.AsFloat32(), c.AsFloat32())
	for _, v := range a.AsFloat32() {
		assert.GreaterOrEqual(t, v, float32(-1))
		assert.Less(t, v, float32(1))
	}
	assert.Equal(t, tensor.Float32, a.DType())
}
