// Package rewrite turns free-form correction data from the language assistant
// into concrete sentence edits.
//
// It has two halves: [DeriveReplacement] interprets a single free-form fix
// instruction (e.g., `use 'went'`) against the phrase it criticises, and
// [ApplyEdits] / [ApplyFeedbackPoints] splice the resulting replacements into
// a source sentence, longest match first so overlapping matches prefer the
// more specific phrase.
package rewrite

import (
	"regexp"
	"strings"

	"github.com/parley-ai/parley/internal/textnorm"
)

// maxVerbatimFixLen is the longest raw fix accepted verbatim as a replacement
// when it carries no quoted directive. Longer instructions are prose, not
// drop-in phrases.
const maxVerbatimFixLen = 36

var (
	addDirective    = regexp.MustCompile(`(?i)\badd\s+['"]([^'"]+)['"]`)
	useDirective    = regexp.MustCompile(`(?i)\buse\s+['"]([^'"]+)['"]`)
	removeDirective = regexp.MustCompile(`(?i)\b(?:remove|delete|omit)\s+['"]([^'"]+)['"]`)

	spaceBeforePunct = regexp.MustCompile(`\s+([.,!?;:])`)
)

// DeriveReplacement interprets rawFix, a free-form correction instruction for
// contextPhrase, and returns the phrase that should replace contextPhrase in
// the original sentence. ok is false when the instruction is not usable as a
// direct replacement; callers must then skip the edit.
//
// Recognised directive forms, checked in order (case-insensitive, single- or
// double-quoted):
//
//   - add '<phrase>':    contextPhrase with the quoted phrase appended
//   - use '<phrase>':    the quoted phrase verbatim
//   - remove '<phrase>': contextPhrase with the first occurrence of the
//     quoted phrase removed ("delete" and "omit" are synonyms)
//
// A rawFix with no directive is accepted verbatim when short enough to be a
// drop-in phrase. DeriveReplacement never fails on malformed input.
func DeriveReplacement(rawFix, contextPhrase string) (replacement string, ok bool) {
	fix := strings.TrimSpace(rawFix)
	if fix == "" {
		return "", false
	}

	if m := addDirective.FindStringSubmatch(fix); m != nil {
		return textnorm.Collapse(contextPhrase + " " + m[1]), true
	}

	if m := useDirective.FindStringSubmatch(fix); m != nil {
		return strings.TrimSpace(m[1]), true
	}

	if m := removeDirective.FindStringSubmatch(fix); m != nil {
		removed := removeFirstFold(contextPhrase, m[1])
		removed = textnorm.Collapse(removed)
		removed = spaceBeforePunct.ReplaceAllString(removed, "$1")
		if removed == "" {
			return "", false
		}
		return removed, true
	}

	if len(fix) <= maxVerbatimFixLen {
		return fix, true
	}

	return "", false
}

// removeFirstFold deletes the first case-insensitive occurrence of phrase
// from s. When phrase is absent, s is returned unchanged.
func removeFirstFold(s, phrase string) string {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return s
	}
	idx := strings.Index(strings.ToLower(s), strings.ToLower(phrase))
	if idx < 0 {
		return s
	}
	return s[:idx] + s[idx+len(phrase):]
}
