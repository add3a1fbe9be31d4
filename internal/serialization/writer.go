package serialization

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/tensor"
)

// Encode writes state to w in format v2.
//
// Tensors are laid out in sorted name order, so equal inputs produce equal
// data sections. FormatVersion, LinenVersion, Kinds and Tensors of header
// are filled in; CreatedAt is set when zero.
func Encode(w io.Writer, state map[string]*tensor.RawTensor, header Header) error {
	header.FormatVersion = FormatVersionV2
	header.LinenVersion = Version
	if header.CreatedAt.IsZero() {
		header.CreatedAt = time.Now().UTC()
	}
	if header.Metadata == nil {
		header.Metadata = make(map[string]string)
	}

	var (
		data   []byte
		offset int64
		kinds  []string
	)
	names := sortedNames(state)
	header.Tensors = make([]TensorMeta, 0, len(names))
	for _, name := range names {
		if err := ValidateTensorName(name); err != nil {
			return err
		}
		raw := state[name]
		size := int64(raw.ByteSize())
		header.Tensors = append(header.Tensors, TensorMeta{
			Name:   name,
			DType:  raw.DType().String(),
			Shape:  []int(raw.Shape()),
			Offset: offset,
			Size:   size,
		})
		data = append(data, raw.Data()...)
		offset += size

		kind, _, _ := strings.Cut(name, core.Sep)
		if !slices.Contains(kinds, kind) {
			kinds = append(kinds, kind)
		}
	}
	header.Kinds = kinds

	headerJSON, err := json.Marshal(header)
	if err != nil {
		return fmt.Errorf("failed to marshal header: %w", err)
	}
	checksum := ComputeChecksum(data)

	fixed := make([]byte, FixedHeaderSizeV2)
	copy(fixed[0:4], MagicBytes)
	binary.LittleEndian.PutUint32(fixed[4:8], uint32(FormatVersionV2))
	binary.LittleEndian.PutUint32(fixed[8:12], flagsFor(header))
	binary.LittleEndian.PutUint64(fixed[16:24], uint64(len(headerJSON)))
	binary.LittleEndian.PutUint64(fixed[24:32], uint64(len(data)))
	copy(fixed[ChecksumOffsetV2:ChecksumOffsetV2+ChecksumSize], checksum[:])

	if _, err := w.Write(fixed); err != nil {
		return fmt.Errorf("failed to write fixed header: %w", err)
	}
	if _, err := w.Write(headerJSON); err != nil {
		return fmt.Errorf("failed to write header JSON: %w", err)
	}
	pos := int64(FixedHeaderSizeV2 + len(headerJSON))
	if padding := alignedSize(pos) - pos; padding > 0 {
		if _, err := w.Write(make([]byte, padding)); err != nil {
			return fmt.Errorf("failed to write padding: %w", err)
		}
	}
	if _, err := w.Write(data); err != nil {
		return fmt.Errorf("failed to write tensor data: %w", err)
	}
	return nil
}

func flagsFor(h Header) uint32 {
	var flags uint32
	if len(h.Metadata) > 0 {
		flags |= FlagHasMetadata
	}
	for _, k := range h.Kinds {
		if k != string(core.Params) {
			flags |= FlagHasBatchStats
		}
	}
	return flags
}

// Marshal encodes vars into a .born byte slice.
func Marshal(vars core.Variables, modelType string, metadata map[string]string) ([]byte, error) {
	state, err := StateDict(vars)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := Encode(&buf, state, Header{ModelType: modelType, Metadata: metadata}); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save writes vars to a .born file at path.
func Save(path string, vars core.Variables, modelType string, metadata map[string]string) error {
	data, err := Marshal(vars, modelType, metadata)
	if err != nil {
		return err
	}
	//nolint:gosec // G306: checkpoints are not secret
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}
