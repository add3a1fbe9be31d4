package tensor

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"unsafe"
)

// RawTensor is a dense row-major tensor backed by a byte buffer.
//
// RawTensors stored in a variable store are treated as immutable: operations
// always allocate their result.
type RawTensor struct {
	data  []byte
	shape Shape
	dtype DataType
}

// New allocates a zero-filled tensor.
func New(shape Shape, dtype DataType) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	return &RawTensor{
		data:  make([]byte, shape.NumElements()*dtype.Size()),
		shape: shape.Clone(),
		dtype: dtype,
	}, nil
}

// FromBytes creates a tensor holding a copy of data.
func FromBytes(shape Shape, dtype DataType, data []byte) (*RawTensor, error) {
	t, err := New(shape, dtype)
	if err != nil {
		return nil, err
	}
	if len(data) != len(t.data) {
		return nil, fmt.Errorf("%w: %s %s needs %d bytes, got %d", ErrSize, dtype, shape, len(t.data), len(data))
	}
	copy(t.data, data)
	return t, nil
}

// FromFloat32 creates a float32 tensor holding a copy of values.
func FromFloat32(shape Shape, values []float32) (*RawTensor, error) {
	t, err := New(shape, Float32)
	if err != nil {
		return nil, err
	}
	if len(values) != t.NumElements() {
		return nil, fmt.Errorf("%w: shape %s needs %d values, got %d", ErrSize, shape, t.NumElements(), len(values))
	}
	copy(t.AsFloat32(), values)
	return t, nil
}

// MustFromFloat32 is FromFloat32 that panics on error.
func MustFromFloat32(shape Shape, values []float32) *RawTensor {
	t, err := FromFloat32(shape, values)
	if err != nil {
		panic(err)
	}
	return t
}

// Shape returns the tensor's shape.
func (r *RawTensor) Shape() Shape {
	return r.shape
}

// DType returns the tensor's data type.
func (r *RawTensor) DType() DataType {
	return r.dtype
}

// NumElements returns the total number of elements.
func (r *RawTensor) NumElements() int {
	return r.shape.NumElements()
}

// ByteSize returns the size of the data in bytes.
func (r *RawTensor) ByteSize() int {
	return len(r.data)
}

// Data returns the underlying bytes.
func (r *RawTensor) Data() []byte {
	return r.data
}

// AsFloat32 interprets the data as []float32.
// Panics if the tensor's dtype is not Float32.
func (r *RawTensor) AsFloat32() []float32 {
	r.mustBe(Float32)
	//nolint:gosec // unsafe.Slice for zero-copy access, length bounded by NumElements()
	return unsafe.Slice((*float32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsFloat64 interprets the data as []float64.
// Panics if the tensor's dtype is not Float64.
func (r *RawTensor) AsFloat64() []float64 {
	r.mustBe(Float64)
	//nolint:gosec // unsafe.Slice for zero-copy access, length bounded by NumElements()
	return unsafe.Slice((*float64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt32 interprets the data as []int32.
// Panics if the tensor's dtype is not Int32.
func (r *RawTensor) AsInt32() []int32 {
	r.mustBe(Int32)
	//nolint:gosec // unsafe.Slice for zero-copy access, length bounded by NumElements()
	return unsafe.Slice((*int32)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

// AsInt64 interprets the data as []int64.
// Panics if the tensor's dtype is not Int64.
func (r *RawTensor) AsInt64() []int64 {
	r.mustBe(Int64)
	//nolint:gosec // unsafe.Slice for zero-copy access, length bounded by NumElements()
	return unsafe.Slice((*int64)(unsafe.Pointer(&r.data[0])), r.NumElements())
}

func (r *RawTensor) mustBe(dt DataType) {
	if r.dtype != dt {
		panic(fmt.Sprintf("tensor dtype is %s, not %s", r.dtype, dt))
	}
}

// Clone returns a deep copy.
func (r *RawTensor) Clone() *RawTensor {
	return &RawTensor{
		data:  bytes.Clone(r.data),
		shape: r.shape.Clone(),
		dtype: r.dtype,
	}
}

// Reshape returns a copy with a new shape holding the same number of
// elements.
func (r *RawTensor) Reshape(shape Shape) (*RawTensor, error) {
	if err := shape.Validate(); err != nil {
		return nil, err
	}
	if shape.NumElements() != r.NumElements() {
		return nil, fmt.Errorf("%w: cannot reshape %s to %s", ErrShape, r.shape, shape)
	}
	out := r.Clone()
	out.shape = shape.Clone()
	return out, nil
}

// Equal reports whether both tensors have the same dtype, shape and bytes.
func (r *RawTensor) Equal(o *RawTensor) bool {
	if r == nil || o == nil {
		return r == o
	}
	return r.dtype == o.dtype && r.shape.Equal(o.shape) && bytes.Equal(r.data, o.data)
}

// AllClose reports whether two float32 tensors of the same shape differ by at
// most tol element-wise.
func (r *RawTensor) AllClose(o *RawTensor, tol float64) bool {
	if r.dtype != Float32 || o.dtype != Float32 || !r.shape.Equal(o.shape) {
		return false
	}
	a, b := r.AsFloat32(), o.AsFloat32()
	for i := range a {
		if math.Abs(float64(a[i])-float64(b[i])) > tol {
			return false
		}
	}
	return true
}

// Describe returns a short summary such as "float32[2 3]".
func (r *RawTensor) Describe() string {
	return r.dtype.String() + r.shape.String()
}

// String formats small tensors with their values and large ones as a summary.
func (r *RawTensor) String() string {
	const maxShown = 16
	if r.NumElements() > maxShown {
		return r.Describe()
	}
	var b strings.Builder
	b.WriteString(r.Describe())
	b.WriteString(" ")
	switch r.dtype {
	case Float32:
		fmt.Fprint(&b, r.AsFloat32())
	case Float64:
		fmt.Fprint(&b, r.AsFloat64())
	case Int32:
		fmt.Fprint(&b, r.AsInt32())
	case Int64:
		fmt.Fprint(&b, r.AsInt64())
	}
	return b.String()
}
