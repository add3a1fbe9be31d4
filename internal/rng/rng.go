// Package rng implements splittable, deterministic randomness keys.
//
// A Key is an opaque 64-bit value. New keys are derived from existing ones by
// folding in data (an integer, a string or a path of strings); derivation is a
// pure function of its inputs, so two derivations that start from the same key
// and fold in the same data always agree regardless of the order in which
// they are performed. This is what lets sibling subtrees of a module tree draw
// randomness in any order (or concurrently) and still be reproducible.
package rng

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
	"math/rand/v2"
)

// Key is a deterministic randomness key.
type Key uint64

// New creates a root key from a seed.
func New(seed uint64) Key {
	return Key(mix(seed ^ 0x9e3779b97f4a7c15))
}

// FoldIn derives a new key from k and an integer.
func FoldIn(k Key, data uint64) Key {
	return Key(mix(uint64(k) ^ mix(data+0x632be59bd9b4e019)))
}

// FoldInString derives a new key from k and a string.
//
// The string is hashed with SHA-256 and the first 8 bytes are folded in.
func FoldInString(k Key, s string) Key {
	sum := sha256.Sum256([]byte(s))
	return FoldIn(k, binary.LittleEndian.Uint64(sum[:8]))
}

// FoldInPath folds every path segment into k in order.
func FoldInPath(k Key, path []string) Key {
	for _, p := range path {
		k = FoldInString(k, p)
	}
	return k
}

// Split returns n keys derived from k.
func Split(k Key, n int) []Key {
	keys := make([]Key, n)
	for i := range keys {
		keys[i] = FoldIn(k, uint64(i))
	}
	return keys
}

// Source returns a math/rand generator seeded from k.
func (k Key) Source() *rand.Rand {
	//nolint:gosec // Deterministic generator for parameter initialization (not security-critical)
	return rand.New(rand.NewPCG(uint64(k), mix(uint64(k)+1)))
}

// Uniform returns n values drawn from U(low, high).
func (k Key) Uniform(n int, low, high float64) []float32 {
	r := k.Source()
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(low + r.Float64()*(high-low))
	}
	return out
}

// Normal returns n values drawn from N(0, stddev^2).
func (k Key) Normal(n int, stddev float64) []float32 {
	r := k.Source()
	out := make([]float32, n)
	for i := range out {
		out[i] = float32(r.NormFloat64() * stddev)
	}
	return out
}

// TruncatedNormal returns n values drawn from N(0, stddev^2) truncated to
// two standard deviations.
func (k Key) TruncatedNormal(n int, stddev float64) []float32 {
	r := k.Source()
	out := make([]float32, n)
	for i := range out {
		v := r.NormFloat64()
		for math.Abs(v) > 2 {
			v = r.NormFloat64()
		}
		out[i] = float32(v * stddev)
	}
	return out
}

// String returns the key in hex.
func (k Key) String() string {
	return fmt.Sprintf("rng.Key(%016x)", uint64(k))
}

// mix is the SplitMix64 finalizer.
func mix(x uint64) uint64 {
	x ^= x >> 30
	x *= 0xbf58476d1ce4e5b9
	x ^= x >> 27
	x *= 0x94d049bb133111eb
	x ^= x >> 31
	return x
}
