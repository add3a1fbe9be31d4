// Package serialization stores variable trees in the .born checkpoint format
// and in SQLite.
//
// A checkpoint holds the flattened variables of a module tree, keyed by
// "kind/path/name" (for example "param/encoder/Dense_0/kernel"):
//
//	Format Structure (v2):
//	  [0x00: Magic "BORN"]
//	  [0x04: Version (uint32 LE)]
//	  [0x08: Flags (uint32 LE)]
//	  [0x0C: Reserved]
//	  [0x10: Header Size (uint64 LE)]
//	  [0x18: Data Size (uint64 LE)]
//	  [0x20: SHA-256 of the data section]
//	  [0x40: Header: JSON metadata]
//	  [Tensor data: raw bytes, 64-byte aligned]
//
// Version 1 files, which lack the data size and checksum, can still be read.
//
// Example usage:
//
//	// Save the variables of a bound module
//	err := serialization.Save("model.born", model.Snapshot(), "MLP", nil)
//
//	// Load them and run the model
//	ckpt, err := serialization.Load("model.born")
//	vars, err := ckpt.Variables()
//	y, err := linen.Apply(&nn.MLP{Widths: widths}, vars, call)
package serialization
