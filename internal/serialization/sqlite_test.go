package serialization_test

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/serialization"
	"github.com/born-ml/linen/internal/tensor"
)

func openStore(t *testing.T) *serialization.SQLiteStore {
	t.Helper()
	s, err := serialization.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "ckpt.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	ctx := context.Background()
	s := openStore(t)

	first := sampleVars(t)
	id1, err := s.Put(ctx, "mlp", first, "MLP", nil)
	require.NoError(t, err)

	second := sampleVars(t)
	second[core.Params]["Dense_0"].(core.Collection)["bias"] = tensor.MustFromFloat32(tensor.Shape{3}, []float32{9, 9, 9})
	id2, err := s.Put(ctx, "mlp", second, "MLP", map[string]string{"step": "2"})
	require.NoError(t, err)
	assert.Greater(t, id2, id1)

	_, err = s.Put(ctx, "other", first, "Dense", nil)
	require.NoError(t, err)

	latest, err := s.Get(ctx, "mlp")
	require.NoError(t, err)
	assert.Equal(t, "2", latest.Header.Metadata["step"])
	got, err := latest.Variables()
	require.NoError(t, err)
	assert.Equal(t, second, got)

	old, err := s.GetRevision(ctx, id1)
	require.NoError(t, err)
	got, err = old.Variables()
	require.NoError(t, err)
	assert.Equal(t, first, got)

	entries, err := s.List(ctx)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "mlp", entries[0].Name)
	assert.Equal(t, "Dense", entries[2].ModelType)
	assert.Equal(t, 4, entries[0].Tensors)
	assert.Positive(t, entries[0].Bytes)
	assert.False(t, entries[0].CreatedAt.IsZero())

	n, err := s.Delete(ctx, "mlp")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	_, err = s.Get(ctx, "mlp")
	require.ErrorIs(t, err, serialization.ErrNotFound)
	_, err = s.GetRevision(ctx, id1)
	require.ErrorIs(t, err, serialization.ErrNotFound)
}

func TestSQLiteStoreRejectsNonTensors(t *testing.T) {
	s := openStore(t)
	_, err := s.Put(context.Background(), "bad", core.Variables{core.Params: core.Collection{"w": 1}}, "X", nil)
	require.ErrorIs(t, err, serialization.ErrNotTensor)
}
