package tensor

import (
	"fmt"
	"math"
	"sync"

	"github.com/born-ml/linen/internal/parallel"
)

var (
	cfgMu sync.RWMutex
	cfg   = parallel.DefaultConfig()
)

// SetParallel sets the worker configuration used by row-parallel operations.
func SetParallel(c parallel.Config) {
	cfgMu.Lock()
	defer cfgMu.Unlock()
	cfg = c
}

func parallelConfig() parallel.Config {
	cfgMu.RLock()
	defer cfgMu.RUnlock()
	return cfg
}

func checkFloat32(op string, ts ...*RawTensor) error {
	for _, t := range ts {
		if t == nil {
			return fmt.Errorf("%s: nil tensor", op)
		}
		if t.dtype != Float32 {
			return fmt.Errorf("%w: %s needs float32, got %s", ErrDType, op, t.dtype)
		}
	}
	return nil
}

// rows returns the leading-dimension count and trailing width of a tensor
// viewed as a matrix.
func rows(t *RawTensor) (n, m int) {
	if len(t.shape) == 0 {
		return 1, 1
	}
	m = t.shape[len(t.shape)-1]
	return t.NumElements() / m, m
}

// MatMul multiplies a [n, k] by b [k, m]. Rows of the result are computed in
// parallel.
func MatMul(a, b *RawTensor) (*RawTensor, error) {
	if err := checkFloat32("matmul", a, b); err != nil {
		return nil, err
	}
	if len(a.shape) != 2 || len(b.shape) != 2 || a.shape[1] != b.shape[0] {
		return nil, fmt.Errorf("%w: matmul %s x %s", ErrShape, a.shape, b.shape)
	}
	n, k, m := a.shape[0], a.shape[1], b.shape[1]
	out, err := New(Shape{n, m}, Float32)
	if err != nil {
		return nil, err
	}

	av, bv, ov := a.AsFloat32(), b.AsFloat32(), out.AsFloat32()
	parallel.ForRange(n, func(lo, hi int) {
		for i := lo; i < hi; i++ {
			row := ov[i*m : (i+1)*m]
			for p := range k {
				x := av[i*k+p]
				if x == 0 {
					continue
				}
				brow := bv[p*m : (p+1)*m]
				for j := range row {
					row[j] += x * brow[j]
				}
			}
		}
	}, parallelConfig())
	return out, nil
}

// AddBias adds bias [m] to every row of x [..., m].
func AddBias(x, bias *RawTensor) (*RawTensor, error) {
	if err := checkFloat32("add bias", x, bias); err != nil {
		return nil, err
	}
	n, m := rows(x)
	if len(bias.shape) != 1 || bias.shape[0] != m {
		return nil, fmt.Errorf("%w: bias %s for input %s", ErrShape, bias.shape, x.shape)
	}
	out := x.Clone()
	ov, bv := out.AsFloat32(), bias.AsFloat32()
	for i := range n {
		row := ov[i*m : (i+1)*m]
		for j := range row {
			row[j] += bv[j]
		}
	}
	return out, nil
}

func zip(op string, a, b *RawTensor, f func(x, y float32) float32) (*RawTensor, error) {
	if err := checkFloat32(op, a, b); err != nil {
		return nil, err
	}
	if !a.shape.Equal(b.shape) {
		return nil, fmt.Errorf("%w: %s %s and %s", ErrShape, op, a.shape, b.shape)
	}
	out := a.Clone()
	ov, bv := out.AsFloat32(), b.AsFloat32()
	for i := range ov {
		ov[i] = f(ov[i], bv[i])
	}
	return out, nil
}

func unary(op string, x *RawTensor, f func(float32) float32) (*RawTensor, error) {
	if err := checkFloat32(op, x); err != nil {
		return nil, err
	}
	out := x.Clone()
	ov := out.AsFloat32()
	for i := range ov {
		ov[i] = f(ov[i])
	}
	return out, nil
}

// Add returns a + b element-wise.
func Add(a, b *RawTensor) (*RawTensor, error) {
	return zip("add", a, b, func(x, y float32) float32 { return x + y })
}

// Sub returns a - b element-wise.
func Sub(a, b *RawTensor) (*RawTensor, error) {
	return zip("sub", a, b, func(x, y float32) float32 { return x - y })
}

// Mul returns a * b element-wise.
func Mul(a, b *RawTensor) (*RawTensor, error) {
	return zip("mul", a, b, func(x, y float32) float32 { return x * y })
}

// Scale returns x * s.
func Scale(x *RawTensor, s float32) (*RawTensor, error) {
	return unary("scale", x, func(v float32) float32 { return v * s })
}

// Blend returns w*a + (1-w)*b element-wise.
func Blend(a, b *RawTensor, w float32) (*RawTensor, error) {
	return zip("blend", a, b, func(x, y float32) float32 { return w*x + (1-w)*y })
}

// ReLU returns max(x, 0).
func ReLU(x *RawTensor) (*RawTensor, error) {
	return unary("relu", x, func(v float32) float32 { return max(v, 0) })
}

// Sigmoid returns 1 / (1 + exp(-x)).
func Sigmoid(x *RawTensor) (*RawTensor, error) {
	return unary("sigmoid", x, func(v float32) float32 {
		return float32(1 / (1 + math.Exp(-float64(v))))
	})
}

// Tanh returns tanh(x).
func Tanh(x *RawTensor) (*RawTensor, error) {
	return unary("tanh", x, func(v float32) float32 {
		return float32(math.Tanh(float64(v)))
	})
}

// MeanVar returns the per-column mean and biased variance of x [..., m],
// both of shape [m].
func MeanVar(x *RawTensor) (mean, variance *RawTensor, err error) {
	if err := checkFloat32("mean var", x); err != nil {
		return nil, nil, err
	}
	n, m := rows(x)
	if mean, err = New(Shape{m}, Float32); err != nil {
		return nil, nil, err
	}
	if variance, err = New(Shape{m}, Float32); err != nil {
		return nil, nil, err
	}
	xv, mv, vv := x.AsFloat32(), mean.AsFloat32(), variance.AsFloat32()
	for j := range m {
		var sum, sq float64
		for i := range n {
			v := float64(xv[i*m+j])
			sum += v
			sq += v * v
		}
		mu := sum / float64(n)
		mv[j] = float32(mu)
		vv[j] = float32(max(sq/float64(n)-mu*mu, 0))
	}
	return mean, variance, nil
}

// Normalize returns (x - mean) / sqrt(variance + eps) with mean and variance
// of shape [m] broadcast over the rows of x [..., m].
func Normalize(x, mean, variance *RawTensor, eps float32) (*RawTensor, error) {
	if err := checkFloat32("normalize", x, mean, variance); err != nil {
		return nil, err
	}
	n, m := rows(x)
	if !mean.shape.Equal(Shape{m}) || !variance.shape.Equal(Shape{m}) {
		return nil, fmt.Errorf("%w: normalize %s with stats %s, %s", ErrShape, x.shape, mean.shape, variance.shape)
	}
	out := x.Clone()
	ov, mv, vv := out.AsFloat32(), mean.AsFloat32(), variance.AsFloat32()
	for j := range m {
		inv := float32(1 / math.Sqrt(float64(vv[j]+eps)))
		for i := range n {
			ov[i*m+j] = (ov[i*m+j] - mv[j]) * inv
		}
	}
	return out, nil
}

// Affine returns x * scale + bias with scale and bias of shape [m].
func Affine(x, scale, bias *RawTensor) (*RawTensor, error) {
	if err := checkFloat32("affine", x, scale); err != nil {
		return nil, err
	}
	n, m := rows(x)
	if !scale.shape.Equal(Shape{m}) {
		return nil, fmt.Errorf("%w: scale %s for input %s", ErrShape, scale.shape, x.shape)
	}
	out := x.Clone()
	ov, sv := out.AsFloat32(), scale.AsFloat32()
	for i := range n {
		for j := range m {
			ov[i*m+j] *= sv[j]
		}
	}
	if bias == nil {
		return out, nil
	}
	return AddBias(out, bias)
}
