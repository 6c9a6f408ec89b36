package improve

import (
	"github.com/parley-ai/parley/internal/textnorm"
	"github.com/parley-ai/parley/pkg/types"
)

// MaxAlternatives caps the merged alternatives list shown per message.
const MaxAlternatives = 3

// MergeAlternatives builds the ordered, deduplicated alternatives list for a
// message. The preferred alternative (when non-nil and non-empty) is appended
// first; generated alternatives follow in their given order. An alternative
// is skipped when its normalized key was already emitted; first occurrence
// wins. The result is truncated to [MaxAlternatives].
func MergeAlternatives(preferred *types.Alternative, generated []types.Alternative) []types.Alternative {
	result := make([]types.Alternative, 0, MaxAlternatives)
	seen := make(map[string]struct{}, MaxAlternatives)

	appendNew := func(a types.Alternative) {
		if len(result) >= MaxAlternatives {
			return
		}
		key := textnorm.Key(a.Text)
		if key == "" {
			return
		}
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		result = append(result, a)
	}

	if preferred != nil {
		appendNew(*preferred)
	}
	for _, a := range generated {
		appendNew(a)
	}
	return result
}
