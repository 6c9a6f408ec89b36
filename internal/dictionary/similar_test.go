package dictionary

import (
	"testing"

	"github.com/parley-ai/parley/pkg/types"
)

func TestFindSimilar_PhoneticMatch(t *testing.T) {
	t.Parallel()

	s := New()
	saved, _ := s.SaveEntry(SaveParams{Kind: types.KindNative, Text: "Could you repeat that?"})
	_, _ = s.SaveEntry(SaveParams{Kind: types.KindNative, Text: "Where is the station?"})

	matches := s.FindSimilar("could you repeat it", 5)
	if len(matches) == 0 {
		t.Fatal("FindSimilar returned no matches, want the repeat entry")
	}
	if matches[0].EntryID != saved.ID {
		t.Errorf("best match=%q, want %q", matches[0].Text, saved.Text)
	}
}

func TestFindSimilar_NoMatchForUnrelatedText(t *testing.T) {
	t.Parallel()

	s := New()
	_, _ = s.SaveEntry(SaveParams{Kind: types.KindNative, Text: "Where is the station?"})

	if matches := s.FindSimilar("zygomorphic flora", 5); len(matches) != 0 {
		t.Errorf("FindSimilar=%v, want no matches", matches)
	}
}

func TestFindSimilar_LimitAndOrdering(t *testing.T) {
	t.Parallel()

	s := New()
	_, _ = s.SaveEntry(SaveParams{Kind: types.KindNative, Text: "see you later"})
	_, _ = s.SaveEntry(SaveParams{Kind: types.KindNative, Text: "see you soon"})
	exact, _ := s.SaveEntry(SaveParams{Kind: types.KindNative, Text: "see you tomorrow"})

	matches := s.FindSimilar("see you tomorrow", 2)
	if len(matches) != 2 {
		t.Fatalf("matches=%d, want 2 (limit)", len(matches))
	}
	if matches[0].EntryID != exact.ID {
		t.Errorf("best match=%q, want the exact text first", matches[0].Text)
	}
	if matches[0].Score < matches[1].Score {
		t.Error("matches not sorted best score first")
	}
}

func TestFindSimilar_EmptyInput(t *testing.T) {
	t.Parallel()

	s := New()
	_, _ = s.SaveEntry(SaveParams{Kind: types.KindNative, Text: "hello"})

	if matches := s.FindSimilar("   ", 5); matches != nil {
		t.Errorf("FindSimilar on blank input=%v, want nil", matches)
	}
}
