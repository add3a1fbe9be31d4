package serialization

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateTensorName(t *testing.T) {
	tests := []struct {
		name  string
		valid bool
	}{
		{"param/kernel", true},
		{"param/encoder/Dense_0/kernel", true},
		{"batch_stats/BatchNorm_0/mean", true},
		{"kernel", false},
		{"/param/kernel", false},
		{"param//kernel", false},
		{"param/../kernel", false},
		{"param/./kernel", false},
		{"param\\kernel", false},
		{"param/ker\x00nel", false},
		{"param/" + strings.Repeat("a", MaxTensorNameLen), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorName(tt.name)
			if tt.valid {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidTensorName)
			var ve *ValidationError
			require.True(t, errors.As(err, &ve))
			assert.Equal(t, tt.name, ve.Tensor)
		})
	}
}

func TestValidateTensorOffsets(t *testing.T) {
	tests := []struct {
		name     string
		tensors  []TensorMeta
		dataSize int64
		wantErr  error
	}{
		{
			name: "contiguous",
			tensors: []TensorMeta{
				{Name: "param/b", Offset: 8, Size: 8},
				{Name: "param/a", Offset: 0, Size: 8},
			},
			dataSize: 16,
		},
		{
			name: "overlap",
			tensors: []TensorMeta{
				{Name: "param/a", Offset: 0, Size: 12},
				{Name: "param/b", Offset: 8, Size: 8},
			},
			dataSize: 16,
			wantErr:  ErrOffsetOverlap,
		},
		{
			name:     "out of bounds",
			tensors:  []TensorMeta{{Name: "param/a", Offset: 8, Size: 16}},
			dataSize: 16,
			wantErr:  ErrOutOfBounds,
		},
		{
			name:     "negative",
			tensors:  []TensorMeta{{Name: "param/a", Offset: -8, Size: 8}},
			dataSize: 16,
			wantErr:  ErrNegativeOffset,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateTensorOffsets(tt.tensors, tt.dataSize)
			if tt.wantErr == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidateHeader(t *testing.T) {
	h := &Header{Tensors: []TensorMeta{
		{Name: "param/a", Offset: 0, Size: 4},
		{Name: "param/a", Offset: 4, Size: 4},
	}}
	require.ErrorIs(t, ValidateHeader(h, 8, ValidationNormal), ErrInvalidTensorName)
	require.NoError(t, ValidateHeader(h, 8, ValidationNone))

	h = &Header{Tensors: []TensorMeta{{Name: "param/a", Offset: 0, Size: 32}}}
	require.NoError(t, ValidateHeader(h, 8, ValidationNormal))
	require.ErrorIs(t, ValidateHeader(h, 8, ValidationStrict), ErrOutOfBounds)
}

func TestValidationErrorMessage(t *testing.T) {
	err := &ValidationError{Err: ErrOffsetOverlap, Tensor: "param/a", Tensor2: "param/b", Details: "x"}
	assert.Equal(t, `tensor offsets overlap: tensors "param/a" and "param/b": x`, err.Error())

	err = &ValidationError{Err: ErrTooManyTensors, Details: "got 2"}
	assert.Equal(t, "too many tensors in file: got 2", err.Error())
}

func TestChecksum(t *testing.T) {
	a := ComputeChecksum([]byte("linen"))
	require.NoError(t, ValidateChecksum(a, ComputeChecksum([]byte("linen"))))
	require.ErrorIs(t, ValidateChecksum(a, ComputeChecksum([]byte("linem"))), ErrChecksumMismatch)
}
