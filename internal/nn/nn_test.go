package nn_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/linen"
	"github.com/born-ml/linen/internal/nn"
	"github.com/born-ml/linen/internal/rng"
	"github.com/born-ml/linen/internal/tensor"
)

func rngs(seed uint64) map[core.Kind]rng.Key {
	return map[core.Kind]rng.Key{
		core.Params:   rng.New(seed),
		nn.DropoutRNG: rng.New(seed + 1),
	}
}

func input(t *testing.T, batch, features int) *tensor.RawTensor {
	t.Helper()
	x, err := tensor.Uniform(rng.New(99), tensor.Shape{batch, features}, -1, 1)
	require.NoError(t, err)
	return x
}

func shapes(vars core.Variables) map[string]string {
	out := make(map[string]string)
	for k, v := range core.Flatten(vars) {
		out[k] = v.(*tensor.RawTensor).Shape().String()
	}
	return out
}

func call[L nn.Layer](x *tensor.RawTensor) func(L) (*tensor.RawTensor, error) {
	return func(l L) (*tensor.RawTensor, error) { return l.Call(x) }
}

func entry[L nn.Layer](x *tensor.RawTensor) func(L) error {
	return func(l L) error {
		_, err := l.Call(x)
		return err
	}
}

func TestDense(t *testing.T) {
	x := input(t, 5, 3)
	m, err := linen.Initialized(&nn.Dense{Features: 4}, rngs(0), entry[*nn.Dense](x))
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		"param/kernel": "[3 4]",
		"param/bias":   "[4]",
	}, shapes(m.Snapshot()))

	y, err := linen.Apply(&nn.Dense{Features: 4}, m.Snapshot(), call[*nn.Dense](x))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{5, 4}, y.Shape())

	again, err := m.Call(x)
	require.NoError(t, err)
	assert.True(t, y.Equal(again))
}

func TestDenseOptions(t *testing.T) {
	x, err := tensor.Ones(tensor.Shape{2, 3})
	require.NoError(t, err)

	d := &nn.Dense{Features: 2, NoBias: true, KernelInit: nn.Constant(0.5)}
	var y *tensor.RawTensor
	m, err := linen.Initialized(d, rngs(0), func(d *nn.Dense) (err error) {
		y, err = d.Call(x)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, []float32{1.5, 1.5, 1.5, 1.5}, y.AsFloat32())
	assert.Equal(t, []string{"kernel"}, m.Children())
}

func TestDenseErrors(t *testing.T) {
	tests := []struct {
		name    string
		layer   *nn.Dense
		x       *tensor.RawTensor
		wantErr error
	}{
		{"rank", &nn.Dense{Features: 2}, tensor.MustFromFloat32(tensor.Shape{3}, []float32{1, 2, 3}), tensor.ErrShape},
		{"dtype", &nn.Dense{Features: 2}, mustNew(t, tensor.Shape{1, 3}, tensor.Int32), tensor.ErrDType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := linen.Initialized(tt.layer, rngs(0), entry[*nn.Dense](tt.x))
			require.ErrorIs(t, err, tt.wantErr)
		})
	}

	_, err := linen.Initialized(&nn.Dense{}, rngs(0), entry[*nn.Dense](input(t, 1, 1)))
	require.Error(t, err)

	// Parameters from a narrower input no longer fit.
	m, err := linen.Initialized(&nn.Dense{Features: 2}, rngs(0), entry[*nn.Dense](input(t, 1, 3)))
	require.NoError(t, err)
	_, err = m.Call(input(t, 1, 4))
	require.ErrorIs(t, err, tensor.ErrShape)
}

func mustNew(t *testing.T, shape tensor.Shape, dt tensor.DataType) *tensor.RawTensor {
	t.Helper()
	r, err := tensor.New(shape, dt)
	require.NoError(t, err)
	return r
}

func TestMLP(t *testing.T) {
	x := input(t, 4, 6)
	def := &nn.MLP{Widths: []int{8, 8, 2}}

	m, err := linen.Initialized(def, rngs(1), entry[*nn.MLP](x))
	require.NoError(t, err)
	assert.Equal(t, []string{"Dense_0", "Dense_1", "Dense_2"}, m.Children())
	assert.Equal(t, map[string]string{
		"param/Dense_0/kernel": "[6 8]",
		"param/Dense_0/bias":   "[8]",
		"param/Dense_1/kernel": "[8 8]",
		"param/Dense_1/bias":   "[8]",
		"param/Dense_2/kernel": "[8 2]",
		"param/Dense_2/bias":   "[2]",
	}, shapes(m.Snapshot()))

	first, err := m.Call(x)
	require.NoError(t, err)
	second, err := m.Call(x)
	require.NoError(t, err)
	assert.True(t, first.Equal(second))
	assert.Len(t, m.Children(), 3)

	other, err := linen.Initialized(def, rngs(1), entry[*nn.MLP](x))
	require.NoError(t, err)
	assert.Equal(t, m.Snapshot(), other.Snapshot())
}

func TestSequential(t *testing.T) {
	seq, err := nn.NewSequential(
		&nn.Dense{Features: 4},
		&nn.ReLU{},
		&nn.Dense{Features: 2},
		&nn.Sigmoid{},
	)
	require.NoError(t, err)
	assert.Equal(t, linen.Unattached, seq.State())

	x := input(t, 3, 5)
	m, err := linen.Initialized(seq, rngs(2), entry[*nn.Sequential](x))
	require.NoError(t, err)

	assert.Equal(t, []string{"Dense_0", "ReLU_0", "Dense_1", "Sigmoid_0"}, m.Children())
	assert.Len(t, m.Layers(), 4)
	assert.Contains(t, shapes(m.Snapshot()), "param/Dense_1/kernel")

	y, err := linen.Apply(seq, m.Snapshot(), call[*nn.Sequential](x))
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{3, 2}, y.Shape())
	for _, v := range y.AsFloat32() {
		assert.Greater(t, v, float32(0))
		assert.Less(t, v, float32(1))
	}

	dense, err := linen.ChildAs[*nn.Dense](m, "Dense_1")
	require.NoError(t, err)
	assert.Equal(t, "/Dense_1", dense.Path())
}

func TestSequentialRejectsAttachedLayer(t *testing.T) {
	d := &nn.Dense{Features: 1}
	_, err := nn.NewSequential(d)
	require.NoError(t, err)

	_, err = nn.NewSequential(d)
	require.ErrorIs(t, err, linen.ErrDoubleAttach)
}

func TestAutoEncoder(t *testing.T) {
	x := input(t, 2, 6)
	def := &nn.AutoEncoder{EncoderWidths: []int{4, 3}, DecoderWidths: []int{4, 6}}

	m, err := linen.Initialized(def, rngs(3), entry[*nn.AutoEncoder](x))
	require.NoError(t, err)
	assert.True(t, m.IsMultiEntry())
	assert.Equal(t, []string{"encoder", "decoder"}, m.Children())
	assert.Equal(t, "[6 4]", shapes(m.Snapshot())["param/encoder/Dense_0/kernel"])
	assert.Equal(t, "[4 6]", shapes(m.Snapshot())["param/decoder/Dense_1/kernel"])

	z, err := linen.Apply(def, m.Snapshot(), func(a *nn.AutoEncoder) (*tensor.RawTensor, error) {
		return a.Encode(x)
	})
	require.NoError(t, err)
	assert.Equal(t, tensor.Shape{2, 3}, z.Shape())

	recon, err := linen.Apply(def, m.Snapshot(), func(a *nn.AutoEncoder) (*tensor.RawTensor, error) {
		return a.Decode(z)
	})
	require.NoError(t, err)
	full, err := m.Call(x)
	require.NoError(t, err)
	assert.True(t, recon.Equal(full))
}

func TestBatchNorm(t *testing.T) {
	x := tensor.MustFromFloat32(tensor.Shape{4, 2}, []float32{
		1, 2,
		3, 2,
		5, 2,
		7, 2,
	})
	def := &nn.BatchNorm{Momentum: 0.9}

	m, err := linen.Initialized(def, rngs(0), entry[*nn.BatchNorm](x))
	require.NoError(t, err)
	vars := m.Snapshot()
	flat := core.Flatten(vars)
	assert.Equal(t, []float32{0, 0}, flat["batch_stats/mean"].(*tensor.RawTensor).AsFloat32())
	assert.Equal(t, []float32{1, 1}, flat["batch_stats/var"].(*tensor.RawTensor).AsFloat32())

	y, err := linen.Apply(def, vars, call[*nn.BatchNorm](x))
	require.NoError(t, err)
	mean, _, err := tensor.MeanVar(y)
	require.NoError(t, err)
	assert.InDeltaSlice(t, []float32{0, 0}, mean.AsFloat32(), 1e-5)

	_, updated, err := linen.ApplyMutable(def, vars, call[*nn.BatchNorm](x), linen.WithMutable(core.BatchStats))
	require.NoError(t, err)
	running := core.Flatten(updated)["batch_stats/mean"].(*tensor.RawTensor)
	assert.InDeltaSlice(t, []float32{0.4, 0.2}, running.AsFloat32(), 1e-6)
	assert.Equal(t, []float32{0, 0}, flat["batch_stats/mean"].(*tensor.RawTensor).AsFloat32())

	eval := &nn.BatchNorm{UseRunningAverage: true}
	y, err = linen.Apply(eval, vars, call[*nn.BatchNorm](x))
	require.NoError(t, err)
	assert.InDeltaSlice(t, x.AsFloat32(), y.AsFloat32(), 1e-4)
}

func TestBatchNormMutate(t *testing.T) {
	x := input(t, 8, 3)
	m, err := linen.Initialized(&nn.BatchNorm{}, rngs(0), entry[*nn.BatchNorm](x))
	require.NoError(t, err)
	before := core.Flatten(m.Snapshot())["batch_stats/var"]

	err = linen.Mutate(m, core.MutableKinds(core.BatchStats), func(bn *nn.BatchNorm) error {
		_, err := bn.Call(x)
		return err
	})
	require.NoError(t, err)

	after := core.Flatten(m.Snapshot())["batch_stats/var"]
	assert.False(t, before.(*tensor.RawTensor).Equal(after.(*tensor.RawTensor)))
	assert.False(t, m.IsMutable(core.BatchStats))

	// Frozen calls leave the statistics alone.
	_, err = m.Call(x)
	require.NoError(t, err)
	assert.Equal(t, after, core.Flatten(m.Snapshot())["batch_stats/var"])
}

func TestDropout(t *testing.T) {
	x, err := tensor.Ones(tensor.Shape{16, 16})
	require.NoError(t, err)

	det, err := linen.Apply(&nn.Dropout{Rate: 0.5, Deterministic: true}, nil, call[*nn.Dropout](x))
	require.NoError(t, err)
	assert.True(t, det.Equal(x))

	drop := &nn.Dropout{Rate: 0.5}
	y, err := linen.Apply(drop, nil, call[*nn.Dropout](x), linen.WithRNG(nn.DropoutRNG, rng.New(4)))
	require.NoError(t, err)
	zeros := 0
	for _, v := range y.AsFloat32() {
		if v == 0 {
			zeros++
			continue
		}
		assert.Equal(t, float32(2), v)
	}
	assert.Greater(t, zeros, 0)
	assert.Less(t, zeros, x.NumElements())

	same, err := linen.Apply(drop, nil, call[*nn.Dropout](x), linen.WithRNG(nn.DropoutRNG, rng.New(4)))
	require.NoError(t, err)
	assert.True(t, y.Equal(same))

	_, err = linen.Apply(drop, nil, call[*nn.Dropout](x))
	require.ErrorIs(t, err, core.ErrNoRNG)

	_, err = linen.Apply(&nn.Dropout{Rate: 1}, nil, call[*nn.Dropout](x))
	require.Error(t, err)
}

func TestDropoutDrawsFreshMaskPerCall(t *testing.T) {
	x, err := tensor.Ones(tensor.Shape{16, 16})
	require.NoError(t, err)

	twice := func(d *nn.Dropout) ([2]*tensor.RawTensor, error) {
		var out [2]*tensor.RawTensor
		for i := range out {
			y, err := d.Call(x)
			if err != nil {
				return out, err
			}
			out[i] = y
		}
		return out, nil
	}

	first, err := linen.Apply(&nn.Dropout{Rate: 0.5}, nil, twice, linen.WithRNG(nn.DropoutRNG, rng.New(4)))
	require.NoError(t, err)
	assert.False(t, first[0].Equal(first[1]), "two calls in one apply reused the mask")

	again, err := linen.Apply(&nn.Dropout{Rate: 0.5}, nil, twice, linen.WithRNG(nn.DropoutRNG, rng.New(4)))
	require.NoError(t, err)
	assert.True(t, first[0].Equal(again[0]))
	assert.True(t, first[1].Equal(again[1]))
}

func TestInitializers(t *testing.T) {
	key := rng.New(0)
	shape := tensor.Shape{50, 50}

	x, err := nn.Xavier(key, shape)
	require.NoError(t, err)
	for _, v := range x.AsFloat32() {
		assert.LessOrEqual(t, v, float32(0.245))
		assert.GreaterOrEqual(t, v, float32(-0.245))
	}

	l, err := nn.LecunNormal(key, shape)
	require.NoError(t, err)
	for _, v := range l.AsFloat32() {
		assert.LessOrEqual(t, v, float32(0.283))
	}

	c, err := nn.Constant(3)(key, tensor.Shape{2})
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 3}, c.AsFloat32())
}
