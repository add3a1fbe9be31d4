package serialization

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/tensor"
)

// ReaderOptions configures Decode.
type ReaderOptions struct {
	SkipChecksumValidation bool            // Skip checksum validation (faster but less safe)
	ValidationLevel        ValidationLevel // Validation strictness level
}

// Checkpoint is a decoded .born file.
type Checkpoint struct {
	Version  uint32
	Flags    uint32
	Checksum [32]byte // Zero for v1 files
	Header   Header
	Tensors  map[string]*tensor.RawTensor
}

// Variables returns the checkpoint's tensors as a variable tree.
func (c *Checkpoint) Variables() (core.Variables, error) {
	return FromStateDict(c.Tensors)
}

// Names returns the tensor names in sorted order.
func (c *Checkpoint) Names() []string {
	return sortedNames(c.Tensors)
}

// Decode reads a .born stream of either format version.
func Decode(r io.Reader, opts ReaderOptions) (*Checkpoint, error) {
	prefix := make([]byte, 8)
	if _, err := io.ReadFull(r, prefix); err != nil {
		return nil, fmt.Errorf("failed to read magic bytes: %w", err)
	}
	if string(prefix[:4]) != MagicBytes {
		return nil, ErrInvalidMagic
	}

	c := &Checkpoint{Version: binary.LittleEndian.Uint32(prefix[4:8])}
	var (
		data []byte
		err  error
	)
	switch c.Version {
	case FormatVersion:
		data, err = c.decodeV1(r)
	case FormatVersionV2:
		data, err = c.decodeV2(r, opts)
	default:
		return nil, fmt.Errorf("%w: got %d, expected %d or %d", ErrUnsupportedVersion, c.Version, FormatVersion, FormatVersionV2)
	}
	if err != nil {
		return nil, err
	}

	if err := ValidateHeader(&c.Header, int64(len(data)), opts.ValidationLevel); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}
	if c.Tensors, err = readTensors(c.Header.Tensors, data); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Checkpoint) decodeV1(r io.Reader) ([]byte, error) {
	rest := make([]byte, FixedHeaderSizeV1-8)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	c.Flags = binary.LittleEndian.Uint32(rest[0:4])
	headerSize := binary.LittleEndian.Uint64(rest[4:12])
	if err := c.readHeader(r, headerSize, FixedHeaderSizeV1); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data: %w", err)
	}
	return data, nil
}

func (c *Checkpoint) decodeV2(r io.Reader, opts ReaderOptions) ([]byte, error) {
	rest := make([]byte, FixedHeaderSizeV2-8)
	if _, err := io.ReadFull(r, rest); err != nil {
		return nil, fmt.Errorf("failed to read fixed header: %w", err)
	}
	// rest starts at offset 0x08.
	c.Flags = binary.LittleEndian.Uint32(rest[0:4])
	headerSize := binary.LittleEndian.Uint64(rest[8:16])
	dataSize := binary.LittleEndian.Uint64(rest[16:24])
	copy(c.Checksum[:], rest[ChecksumOffsetV2-8:ChecksumOffsetV2-8+ChecksumSize])

	if err := c.readHeader(r, headerSize, FixedHeaderSizeV2); err != nil {
		return nil, err
	}
	if dataSize > uint64(MaxTensorCount)*uint64(MaxHeaderSize) {
		return nil, &ValidationError{Err: ErrOutOfBounds, Details: fmt.Sprintf("data size %d", dataSize)}
	}

	var buf bytes.Buffer
	n, err := io.CopyN(&buf, r, int64(dataSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read tensor data (%d of %d bytes): %w", n, dataSize, err)
	}
	data := buf.Bytes()
	if !opts.SkipChecksumValidation {
		if err := ValidateChecksum(ComputeChecksum(data), c.Checksum); err != nil {
			return nil, err
		}
	}
	return data, nil
}

// readHeader reads the JSON header and the padding after it.
func (c *Checkpoint) readHeader(r io.Reader, size uint64, fixed int64) error {
	if size > MaxHeaderSize {
		return ErrHeaderTooLarge
	}
	raw := make([]byte, size)
	if _, err := io.ReadFull(r, raw); err != nil {
		return fmt.Errorf("failed to read header JSON: %w", err)
	}
	if err := json.Unmarshal(raw, &c.Header); err != nil {
		return fmt.Errorf("failed to parse header JSON: %w", err)
	}
	//nolint:gosec // G115: size is bounded by MaxHeaderSize
	pos := fixed + int64(size)
	if _, err := io.CopyN(io.Discard, r, alignedSize(pos)-pos); err != nil {
		return fmt.Errorf("failed to skip padding: %w", err)
	}
	return nil
}

func readTensors(metas []TensorMeta, data []byte) (map[string]*tensor.RawTensor, error) {
	out := make(map[string]*tensor.RawTensor, len(metas))
	for _, m := range metas {
		if m.Offset < 0 || m.Size < 0 || m.Offset+m.Size > int64(len(data)) {
			return nil, &ValidationError{
				Err:     ErrOutOfBounds,
				Tensor:  m.Name,
				Details: fmt.Sprintf("offset %d + size %d > data_size %d", m.Offset, m.Size, len(data)),
			}
		}
		dt, err := tensor.ParseDataType(m.DType)
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", m.Name, err)
		}
		t, err := tensor.FromBytes(m.Shape, dt, data[m.Offset:m.Offset+m.Size])
		if err != nil {
			return nil, fmt.Errorf("tensor %s: %w", m.Name, err)
		}
		out[m.Name] = t
	}
	return out, nil
}

// Unmarshal decodes a .born byte slice with strict validation.
func Unmarshal(data []byte) (*Checkpoint, error) {
	return Decode(bytes.NewReader(data), ReaderOptions{ValidationLevel: ValidationStrict})
}

// Load reads a .born file with strict validation.
func Load(path string) (*Checkpoint, error) {
	return LoadWithOptions(path, ReaderOptions{ValidationLevel: ValidationStrict})
}

// LoadWithOptions reads a .born file.
func LoadWithOptions(path string, opts ReaderOptions) (*Checkpoint, error) {
	//nolint:gosec // G304: File path comes from user input, which is expected for model loading
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	c, err := Decode(bufio.NewReader(f), opts)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}
