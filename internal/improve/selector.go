// Package improve selects the single best "improved expression" for a user
// message and merges native-alternative candidates into a deduplicated list.
//
// Candidates from several sources are ranked in a fixed priority order and
// filtered against the source message by normalized key, so the package never
// proposes an "improvement" that is the same expression as what the learner
// already wrote.
package improve

import (
	"github.com/parley-ai/parley/internal/rewrite"
	"github.com/parley-ai/parley/internal/textnorm"
	"github.com/parley-ai/parley/pkg/types"
)

// Expression selects at most one improved expression for source from the
// grammar feedback result. Candidates are considered in fixed priority order:
//
//  1. the corrected text, when the feedback reports errors
//  2. the edit list and feedback points applied to source
//  3. the natural rewrite
//  4. the natural alternative
//
// A candidate qualifies only when it is non-empty, differs from source by
// normalized key, and does not duplicate an earlier (rejected) candidate's
// key. ok is false when no candidate qualifies.
//
// Expression is deterministic and pure given its inputs.
func Expression(source string, fb *types.FeedbackResult) (expr string, ok bool) {
	if fb == nil {
		return "", false
	}

	sourceKey := textnorm.Key(source)
	seen := map[string]struct{}{sourceKey: {}}

	candidates := make([]string, 0, 4)
	if fb.HasErrors && fb.CorrectedText != "" {
		candidates = append(candidates, fb.CorrectedText)
	}
	if len(fb.Edits) > 0 || len(fb.FeedbackPoints) > 0 {
		applied := rewrite.ApplyFeedbackPoints(rewrite.ApplyEdits(source, fb.Edits), fb.FeedbackPoints)
		if applied != "" {
			candidates = append(candidates, applied)
		}
	}
	if fb.NaturalRewrite != "" {
		candidates = append(candidates, fb.NaturalRewrite)
	}
	if fb.NaturalAlternative != "" {
		candidates = append(candidates, fb.NaturalAlternative)
	}

	for _, c := range candidates {
		key := textnorm.Key(c)
		if key == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		return c, true
	}
	return "", false
}
