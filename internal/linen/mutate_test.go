package linen

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/linen/internal/core"
)

func initCounter(t *testing.T) *Counter {
	t.Helper()
	m, err := Initialized(&Counter{}, nil, func(c *Counter) error {
		_, err := c.Call()
		return err
	})
	require.NoError(t, err)
	return m
}

func TestMutate(t *testing.T) {
	m := initCounter(t)
	stats := core.MutableKinds(core.BatchStats)

	for want := 1.0; want <= 3; want++ {
		err := Mutate(m, stats, func(c *Counter) error {
			assert.True(t, c.IsMutable(core.BatchStats))
			assert.False(t, c.IsMutable(core.Params))
			got, err := c.Call()
			assert.Equal(t, want, got)
			return err
		})
		require.NoError(t, err)
		assert.False(t, m.IsMutable(core.BatchStats))
	}

	v, ok := m.Get(core.BatchStats, "count")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)

	got, err := m.Call()
	require.NoError(t, err)
	assert.Equal(t, 3.0, got)
}

func TestMutateRestoresOnFailure(t *testing.T) {
	m := initCounter(t)
	stats := core.MutableKinds(core.BatchStats)

	err := Mutate(m, stats, func(*Counter) error { return errBoom })
	require.ErrorIs(t, err, errBoom)
	assert.True(t, m.Scope().Mutability().IsFrozen())

	assert.Panics(t, func() {
		_ = Mutate(m, stats, func(*Counter) error { panic("boom") })
	})
	assert.True(t, m.Scope().Mutability().IsFrozen())
}

func TestMutateNested(t *testing.T) {
	m := initCounter(t)
	err := Mutate(m, core.MutableKinds(core.BatchStats), func(c *Counter) error {
		err := Mutate(c, core.Frozen(), func(inner *Counter) error {
			assert.False(t, inner.IsMutable(core.BatchStats))
			return nil
		})
		assert.True(t, c.IsMutable(core.BatchStats))
		return err
	})
	require.NoError(t, err)
	assert.True(t, m.Scope().Mutability().IsFrozen())
}

func TestMutateKeepsNames(t *testing.T) {
	m, err := Initialized(&Pair{}, testRNGs(0), func(p *Pair) error {
		_, err := p.Call(1)
		return err
	})
	require.NoError(t, err)

	err = Mutate(m, core.MutableAll(), func(p *Pair) error {
		assert.Equal(t, m.Children(), p.Children())
		assert.Equal(t, "/Dense_0", p.a.Path())
		_, err := p.Call(1)
		return err
	})
	require.NoError(t, err)
	assert.Len(t, core.Flatten(m.Snapshot()), 2)
}

func TestMutateUnbound(t *testing.T) {
	err := Mutate(&Counter{}, core.MutableAll(), func(*Counter) error { return nil })
	require.ErrorIs(t, err, ErrPhase)
}
