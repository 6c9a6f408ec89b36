package dictionary

import (
	"sort"
	"strings"

	"github.com/antzucaro/matchr"
)

const (
	defaultPhoneticThreshold = 0.70
	defaultFuzzyThreshold    = 0.85
)

// WithPhoneticThreshold sets the minimum Jaro-Winkler score required for a
// phonetically-matched entry to appear in [Store.FindSimilar] results.
// Default: 0.70.
func WithPhoneticThreshold(threshold float64) Option {
	return func(s *Store) {
		s.phoneticThreshold = threshold
	}
}

// WithFuzzyThreshold sets the minimum Jaro-Winkler score required for an
// entry with no phonetic overlap to appear in results. Default: 0.85.
func WithFuzzyThreshold(threshold float64) Option {
	return func(s *Store) {
		s.fuzzyThreshold = threshold
	}
}

// Match is a similarity hit returned by [Store.FindSimilar].
type Match struct {
	EntryID string
	Text    string
	Score   float64
}

// FindSimilar returns entries that sound or look similar to text, best score
// first, at most limit results (limit <= 0 means no cap). It is advisory
// only: saving is gated by exact normalized-key dedup, and this lookup lets
// the caller surface "you may have saved something like this" hints before
// committing.
//
// Candidates are selected in two stages. Double Metaphone codes are computed
// per word for the input and each entry; entries sharing at least one code
// rank by Jaro-Winkler similarity against the phonetic threshold. Entries
// with no phonetic overlap still qualify when their Jaro-Winkler score
// exceeds the stricter fuzzy threshold.
func (s *Store) FindSimilar(text string, limit int) []Match {
	s.mu.Lock()
	defer s.mu.Unlock()

	inputLower := strings.ToLower(strings.TrimSpace(text))
	if inputLower == "" {
		return nil
	}
	inputTokens := strings.Fields(inputLower)
	inputCodes := codesForTokens(inputTokens)

	phonetic := s.phoneticThreshold
	if phonetic == 0 {
		phonetic = defaultPhoneticThreshold
	}
	fuzzy := s.fuzzyThreshold
	if fuzzy == 0 {
		fuzzy = defaultFuzzyThreshold
	}

	var matches []Match
	for _, e := range s.entries {
		entryLower := strings.ToLower(strings.TrimSpace(e.Text))
		if entryLower == "" {
			continue
		}
		entryTokens := strings.Fields(entryLower)

		score := bestJWScore(inputTokens, entryTokens, inputLower, entryLower)
		threshold := fuzzy
		if codesOverlap(inputCodes, codesForTokens(entryTokens)) {
			threshold = phonetic
		}
		if score >= threshold {
			matches = append(matches, Match{EntryID: e.ID, Text: e.Text, Score: score})
		}
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// codesForTokens returns the union of all Double Metaphone codes for the
// given tokens. Empty codes are excluded.
func codesForTokens(tokens []string) map[string]struct{} {
	codes := make(map[string]struct{}, len(tokens)*2)
	for _, t := range tokens {
		p, sec := matchr.DoubleMetaphone(t)
		if p != "" {
			codes[p] = struct{}{}
		}
		if sec != "" {
			codes[sec] = struct{}{}
		}
	}
	return codes
}

// codesOverlap returns true if the two code sets share at least one code.
func codesOverlap(a, b map[string]struct{}) bool {
	if len(a) > len(b) {
		a, b = b, a
	}
	for code := range a {
		if _, ok := b[code]; ok {
			return true
		}
	}
	return false
}

// bestJWScore computes the highest Jaro-Winkler similarity between the input
// and the entry text across three comparisons: the full strings, the
// space-stripped strings, and the best pairwise token score.
func bestJWScore(inputTokens, entryTokens []string, inputFull, entryFull string) float64 {
	score := matchr.JaroWinkler(inputFull, entryFull, false)

	if len(inputTokens) > 1 || len(entryTokens) > 1 {
		concat1 := strings.Join(inputTokens, "")
		concat2 := strings.Join(entryTokens, "")
		if s := matchr.JaroWinkler(concat1, concat2, false); s > score {
			score = s
		}
	}

	for _, it := range inputTokens {
		for _, et := range entryTokens {
			if s := matchr.JaroWinkler(it, et, false); s > score {
				score = s
			}
		}
	}

	return score
}
