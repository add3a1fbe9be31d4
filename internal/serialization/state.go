package serialization

import (
	"fmt"
	"maps"
	"slices"

	"github.com/born-ml/linen/internal/core"
	"github.com/born-ml/linen/internal/tensor"
)

// StateDict flattens vars into a map keyed by "kind/path/name". Every leaf
// must be a *tensor.RawTensor.
func StateDict(vars core.Variables) (map[string]*tensor.RawTensor, error) {
	flat := core.Flatten(vars)
	out := make(map[string]*tensor.RawTensor, len(flat))
	for k, v := range flat {
		t, ok := v.(*tensor.RawTensor)
		if !ok {
			return nil, fmt.Errorf("%w: %s is %T", ErrNotTensor, k, v)
		}
		out[k] = t
	}
	return out, nil
}

// FromStateDict is the inverse of StateDict.
func FromStateDict(state map[string]*tensor.RawTensor) (core.Variables, error) {
	flat := make(map[string]any, len(state))
	for k, t := range state {
		flat[k] = t
	}
	return core.Unflatten(flat)
}

func sortedNames(state map[string]*tensor.RawTensor) []string {
	return slices.Sorted(maps.Keys(state))
}
