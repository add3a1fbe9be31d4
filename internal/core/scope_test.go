package core

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/linen/internal/rng"
)

func rngs(seed uint64) map[Kind]rng.Key {
	return map[Kind]rng.Key{Params: rng.New(seed)}
}

func TestScopePushReserves(t *testing.T) {
	root := NewRoot(nil, nil)

	child, err := root.Push("conv_1")
	require.NoError(t, err)
	assert.Equal(t, []string{"conv_1"}, child.Path())
	assert.Equal(t, "/conv_1", child.PathString())
	assert.True(t, child.SameStore(root))

	_, err = root.Push("conv_1")
	assert.ErrorIs(t, err, ErrNameInUse)

	// Descend never reserves.
	again := root.Descend("conv_1")
	assert.Equal(t, child.Path(), again.Path())

	// Rewound drops reservations.
	_, err = root.Rewound().Push("conv_1")
	assert.NoError(t, err)
}

func TestScopeInvalidNames(t *testing.T) {
	root := NewRoot(nil, nil)
	for _, name := range []string{"", "a/b"} {
		_, err := root.Push(name)
		assert.ErrorIs(t, err, ErrNameInUse, "name %q", name)
	}
}

func TestVariableLazyInit(t *testing.T) {
	root := NewRoot(nil, nil)
	defer root.SetMutability(MutableAll())()

	calls := 0
	init := func() (any, error) {
		calls++
		return 1.5, nil
	}

	v1, err := root.Variable(BatchStats, "x", init)
	require.NoError(t, err)
	v2, err := root.Variable(BatchStats, "x", init)
	require.NoError(t, err)

	assert.Same(t, v1, v2)
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1.5, v2.Value())
	assert.Equal(t, "batch_stats/x", v1.Path())
}

func TestVariableImmutable(t *testing.T) {
	root := NewRoot(Variables{Params: Collection{"w": 2.0}}, nil)

	called := false
	_, err := root.Variable(Params, "b", func() (any, error) {
		called = true
		return 0.0, nil
	})
	assert.ErrorIs(t, err, ErrImmutable)
	assert.False(t, called)

	w, err := root.Variable(Params, "w", nil)
	require.NoError(t, err)
	assert.Equal(t, 2.0, w.Value())
	assert.ErrorIs(t, w.SetValue(3.0), ErrImmutable)

	restore := root.SetMutability(MutableKinds(Params))
	require.NoError(t, w.SetValue(3.0))
	restore()

	assert.Equal(t, 3.0, w.Value())
	assert.ErrorIs(t, w.SetValue(4.0), ErrImmutable)
}

func TestVariableInitError(t *testing.T) {
	root := NewRoot(nil, nil)
	defer root.SetMutability(MutableAll())()

	boom := errors.New("boom")
	_, err := root.Variable(Params, "w", func() (any, error) { return nil, boom })
	assert.ErrorIs(t, err, boom)
	assert.False(t, root.Has(Params, "w"))
}

func TestNewRootCopiesInput(t *testing.T) {
	vars := Variables{Params: Collection{"Dense_0": Collection{"kernel": 1.0}}}
	root := NewRoot(vars, nil)
	defer root.SetMutability(MutableAll())()

	v, err := root.Descend("Dense_0").Variable(Params, "kernel", nil)
	require.NoError(t, err)
	require.NoError(t, v.SetValue(9.0))

	_, err = root.Descend("Dense_0").Variable(Params, "bias", func() (any, error) { return 0.0, nil })
	require.NoError(t, err)

	assert.Equal(t, Variables{Params: Collection{"Dense_0": Collection{"kernel": 1.0}}}, vars)
}

func TestMakeRNG(t *testing.T) {
	root := NewRoot(nil, rngs(0))

	a := root.Descend("a")
	k1, err := a.MakeRNG(Params)
	require.NoError(t, err)
	k2, err := a.MakeRNG(Params)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	// Same path, fresh view: same sequence.
	k1b, err := root.Descend("a").MakeRNG(Params)
	require.NoError(t, err)
	assert.Equal(t, k1, k1b)

	// Rewound restarts the sequence.
	k1c, err := a.Rewound().MakeRNG(Params)
	require.NoError(t, err)
	assert.Equal(t, k1, k1c)

	// Different paths never collide.
	kb, err := root.Descend("b").MakeRNG(Params)
	require.NoError(t, err)
	assert.NotEqual(t, k1, kb)

	_, err = a.MakeRNG(BatchStats)
	assert.ErrorIs(t, err, ErrNoRNG)
}

func TestMakeRNGOrderIndependent(t *testing.T) {
	draw := func(order []string) map[string]rng.Key {
		root := NewRoot(nil, rngs(7))
		out := make(map[string]rng.Key)
		for _, name := range order {
			k, err := root.Descend(name).MakeRNG(Params)
			require.NoError(t, err)
			out[name] = k
		}
		return out
	}
	assert.Equal(t, draw([]string{"x", "y", "z"}), draw([]string{"z", "x", "y"}))
}

func TestParamDrawsRNGOnlyOnCreate(t *testing.T) {
	root := NewRoot(nil, rngs(1))
	restore := root.SetMutability(MutableAll())

	var seen []rng.Key
	init := func(key rng.Key) (any, error) {
		seen = append(seen, key)
		return float64(len(seen)), nil
	}
	w, err := root.Param("w", init)
	require.NoError(t, err)
	restore()

	vars := root.Snapshot()
	applied := NewRoot(vars, nil)
	again, err := applied.Param("w", init)
	require.NoError(t, err)

	assert.Equal(t, w, again)
	assert.Len(t, seen, 1)
}

func TestScopeVariablesView(t *testing.T) {
	root := NewRoot(Variables{
		Params: Collection{
			"encoder": Collection{"Dense_0": Collection{"kernel": 1.0}},
			"decoder": Collection{"Dense_0": Collection{"kernel": 2.0}},
		},
		BatchStats: Collection{"decoder": Collection{"mean": 0.5}},
	}, nil)

	view := root.Descend("encoder").Variables()
	assert.Equal(t, []string{"param"}, view.Keys())
	got, ok := view.At("param", "Dense_0", "kernel")
	require.True(t, ok)
	assert.Equal(t, 1.0, got)

	dec := root.Descend("decoder").Variables()
	assert.Equal(t, []string{"batch_stats", "param"}, dec.Keys())
}

func TestSetMutabilityRestore(t *testing.T) {
	root := NewRoot(nil, nil)
	restoreOuter := root.SetMutability(MutableKinds(BatchStats))
	restoreInner := root.SetMutability(MutableAll())

	assert.True(t, root.IsMutable(Params))
	restoreInner()
	assert.False(t, root.IsMutable(Params))
	assert.True(t, root.IsMutable(BatchStats))
	restoreOuter()
	assert.True(t, root.Mutability().IsFrozen())
}

func TestFork(t *testing.T) {
	root := NewRoot(nil, rngs(2))
	s := root.Descend("m")
	_, err := s.Push("a")
	require.NoError(t, err)
	k1, err := s.MakeRNG(Params)
	require.NoError(t, err)

	f := s.Fork()
	_, err = f.Push("a")
	assert.ErrorIs(t, err, ErrNameInUse)

	k2, err := s.MakeRNG(Params)
	require.NoError(t, err)
	k2f, err := f.MakeRNG(Params)
	require.NoError(t, err)
	assert.Equal(t, k2, k2f)
	assert.NotEqual(t, k1, k2f)

	_, err = f.Push("b")
	require.NoError(t, err)
	_, err = s.Push("b")
	assert.NoError(t, err, "fork reservations are private")
}

func TestResumeKeepsRNGCounters(t *testing.T) {
	root := NewRoot(nil, rngs(3))
	base := root.Descend("m")
	_, err := base.Push("a")
	require.NoError(t, err)

	cur := base.Fork()
	k1, err := cur.MakeRNG(Params)
	require.NoError(t, err)
	_, err = cur.Push("b")
	require.NoError(t, err)

	next := base.Resume(cur)
	k2, err := next.MakeRNG(Params)
	require.NoError(t, err)
	assert.NotEqual(t, k1, k2)

	// Reservations come from base, not from cur.
	_, err = next.Push("a")
	assert.ErrorIs(t, err, ErrNameInUse)
	_, err = next.Push("b")
	assert.NoError(t, err)
}

func one() (any, error) { return 1, nil }

func TestRollbackRemovesCreatedVariables(t *testing.T) {
	root := NewRoot(Variables{Params: Collection{"keep": 0}}, nil)
	root.SetMutability(MutableAll())

	_, err := root.Variable(Params, "early", one)
	require.NoError(t, err)
	before := Flatten(root.Snapshot())

	mark := root.Mark()
	deep := root.Descend("a").Descend("b")
	_, err = deep.Variable(BatchStats, "leak", one)
	require.NoError(t, err)
	_, err = root.Descend("a").Variable(Params, "w", one)
	require.NoError(t, err)
	early, err := root.Variable(Params, "early", one)
	require.NoError(t, err)
	require.NoError(t, early.SetValue(2))

	root.Rollback(mark)

	after := root.Snapshot()
	assert.NotContains(t, after, BatchStats)
	assert.NotContains(t, after[Params], "a")
	assert.Equal(t, 2, after[Params]["early"], "writes to older variables are kept")
	delete(before, "param/early")
	flat := Flatten(after)
	delete(flat, "param/early")
	assert.Equal(t, before, flat)
	assert.False(t, deep.Has(BatchStats, "leak"))

	// A rolled back name can be created again.
	_, err = deep.Variable(BatchStats, "leak", one)
	require.NoError(t, err)
	assert.True(t, deep.Has(BatchStats, "leak"))
}
