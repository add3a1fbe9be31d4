package serialization

import (
	"time"
)

// Format constants.
const (
	MagicBytes        = "BORN"
	FormatVersion     = 1    // v1: Basic format without checksum
	FormatVersionV2   = 2    // v2: With SHA-256 checksum
	HeaderAlignment   = 64   // Tensor data starts on a 64-byte boundary
	FixedHeaderSizeV1 = 20   // magic + version + flags + header size
	FixedHeaderSizeV2 = 64   // v2 fixed header size (0x40 bytes)
	ChecksumSize      = 32   // SHA-256 checksum size (32 bytes)
	ChecksumOffsetV2  = 0x20 // Checksum offset in v2 fixed header
)

// Flags for the .born format.
const (
	FlagHasMetadata   uint32 = 1 << 2 // bit 2: custom metadata included
	FlagHasBatchStats uint32 = 1 << 3 // bit 3: non-parameter kinds included
)

// Version is written into every header.
const Version = "0.1.0"

// Header represents the JSON header in a .born file.
type Header struct {
	FormatVersion int               `json:"format_version"` // Version of the .born format
	LinenVersion  string            `json:"linen_version"`  // Version of linen that created this file
	ModelType     string            `json:"model_type"`     // Type of the root module (e.g., "MLP")
	CreatedAt     time.Time         `json:"created_at"`     // When the file was created
	Kinds         []string          `json:"kinds"`          // Variable kinds present
	Tensors       []TensorMeta      `json:"tensors"`        // Tensor metadata
	Metadata      map[string]string `json:"metadata"`       // Custom metadata
}

// TensorMeta describes a tensor in the .born file.
type TensorMeta struct {
	Name   string `json:"name"`   // Flattened variable key (e.g., "param/Dense_0/kernel")
	DType  string `json:"dtype"`  // Data type (e.g., "float32")
	Shape  []int  `json:"shape"`  // Tensor shape
	Offset int64  `json:"offset"` // Offset in the data section
	Size   int64  `json:"size"`   // Size in bytes
}

func alignedSize(n int64) int64 {
	return n + (HeaderAlignment-(n%HeaderAlignment))%HeaderAlignment
}
