package rewrite

import (
	"sort"
	"strings"

	"github.com/parley-ai/parley/pkg/types"
)

// ApplyEdits applies the (wrong, right) correction pairs to source and
// returns the rewritten sentence. Edits are processed longest-wrong-first so
// that overlapping matches prefer the more specific phrase. Each edit
// replaces only the first case-insensitive occurrence of its wrong phrase;
// an absent phrase makes the edit a no-op.
//
// When phrases overlap, application order affects the outcome. The
// longest-first ordering is a heuristic; divergent outputs on pathological
// overlapping input are accepted.
func ApplyEdits(source string, edits []types.CorrectionPair) string {
	ordered := make([]types.CorrectionPair, 0, len(edits))
	for _, e := range edits {
		if strings.TrimSpace(e.Wrong) == "" {
			continue
		}
		ordered = append(ordered, e)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Wrong) > len(ordered[j].Wrong)
	})

	out := source
	for _, e := range ordered {
		out = replaceFirstFold(out, e.Wrong, e.Right)
	}
	return out
}

// ApplyFeedbackPoints applies feedback points to source using the same
// longest-part-first single-replacement algorithm as [ApplyEdits], except
// that each point's replacement is computed by [DeriveReplacement] from its
// fix instruction. Points whose fix yields no derivable replacement are
// skipped.
func ApplyFeedbackPoints(source string, points []types.FeedbackPoint) string {
	ordered := make([]types.FeedbackPoint, 0, len(points))
	for _, p := range points {
		if strings.TrimSpace(p.Part) == "" {
			continue
		}
		ordered = append(ordered, p)
	}
	sort.SliceStable(ordered, func(i, j int) bool {
		return len(ordered[i].Part) > len(ordered[j].Part)
	})

	out := source
	for _, p := range ordered {
		replacement, ok := DeriveReplacement(p.Fix, p.Part)
		if !ok {
			continue
		}
		out = replaceFirstFold(out, p.Part, replacement)
	}
	return out
}

// replaceFirstFold replaces the first case-insensitive occurrence of old in s
// with new. When old is absent (or empty), s is returned unchanged.
func replaceFirstFold(s, old, new string) string {
	if old == "" {
		return s
	}
	idx := strings.Index(strings.ToLower(s), strings.ToLower(old))
	if idx < 0 {
		return s
	}
	return s[:idx] + new + s[idx+len(old):]
}
