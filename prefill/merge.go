package prefill

import (
	"fmt"

	"github.com/bytedance/sonic"
	jsonpatch "github.com/evanphx/json-patch/v5"
)

// MergeKnownData merges data layers with RFC 7386 merge-patch semantics:
// later layers win, null values delete keys, and nested objects merge
// recursively. The first layer is the base.
func MergeKnownData(layers ...map[string]any) (map[string]any, error) {
	merged := []byte("{}")
	for _, layer := range layers {
		if len(layer) == 0 {
			continue
		}
		patch, err := sonic.Marshal(layer)
		if err != nil {
			return nil, fmt.Errorf("encode data layer: %w", err)
		}
		merged, err = jsonpatch.MergePatch(merged, patch)
		if err != nil {
			return nil, fmt.Errorf("merge data layer: %w", err)
		}
	}
	var out map[string]any
	if err := sonic.Unmarshal(merged, &out); err != nil {
		return nil, fmt.Errorf("decode merged data: %w", err)
	}
	return out, nil
}
