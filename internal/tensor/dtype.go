// Package tensor provides the dense CPU tensors stored as module variables.
package tensor

import "fmt"

// DataType is the element type of a RawTensor.
type DataType int

// Supported data types.
const (
	Float32 DataType = iota
	Float64
	Int32
	Int64
)

// Size returns the byte size of one element.
func (dt DataType) Size() int {
	switch dt {
	case Float32, Int32:
		return 4
	case Float64, Int64:
		return 8
	default:
		panic("unknown data type")
	}
}

// String returns the lower-case name of the data type.
func (dt DataType) String() string {
	switch dt {
	case Float32:
		return "float32"
	case Float64:
		return "float64"
	case Int32:
		return "int32"
	case Int64:
		return "int64"
	default:
		return "unknown"
	}
}

// ParseDataType is the inverse of DataType.String.
func ParseDataType(s string) (DataType, error) {
	for _, dt := range []DataType{Float32, Float64, Int32, Int64} {
		if dt.String() == s {
			return dt, nil
		}
	}
	return 0, fmt.Errorf("%w: unsupported dtype %q", ErrDType, s)
}
