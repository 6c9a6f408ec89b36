package rewrite_test

import (
	"testing"

	"github.com/parley-ai/parley/internal/rewrite"
	"github.com/parley-ai/parley/pkg/types"
)

func TestApplyEdits_Basic(t *testing.T) {
	t.Parallel()

	got := rewrite.ApplyEdits("I go to school yesterday", []types.CorrectionPair{
		{Wrong: "go", Right: "went"},
	})
	if got != "I went to school yesterday" {
		t.Errorf("got %q, want %q", got, "I went to school yesterday")
	}
}

func TestApplyEdits_LongestFirst(t *testing.T) {
	t.Parallel()

	// "go to" must be applied before "go" so the more specific phrase wins.
	got := rewrite.ApplyEdits("I go to the park", []types.CorrectionPair{
		{Wrong: "go", Right: "went"},
		{Wrong: "go to", Right: "walked to"},
	})
	if got != "I walked to the park" {
		t.Errorf("got %q, want %q", got, "I walked to the park")
	}
}

func TestApplyEdits_CaseInsensitiveFirstOccurrenceOnly(t *testing.T) {
	t.Parallel()

	got := rewrite.ApplyEdits("Good good good", []types.CorrectionPair{
		{Wrong: "good", Right: "great"},
	})
	if got != "great good good" {
		t.Errorf("got %q, want %q", got, "great good good")
	}
}

func TestApplyEdits_AbsentPhraseIsNoop(t *testing.T) {
	t.Parallel()

	src := "nothing to fix"
	got := rewrite.ApplyEdits(src, []types.CorrectionPair{
		{Wrong: "missing", Right: "found"},
		{Wrong: "", Right: "ignored"},
	})
	if got != src {
		t.Errorf("got %q, want unchanged %q", got, src)
	}
}

func TestApplyFeedbackPoints(t *testing.T) {
	t.Parallel()

	got := rewrite.ApplyFeedbackPoints("I go to school yesterday", []types.FeedbackPoint{
		{Part: "go", Issue: "wrong tense", Fix: "use 'went'"},
		{Part: "yesterday", Issue: "too long to be usable as a direct replacement because this instruction is prose", Fix: "this fix instruction is far too long to ever be applied verbatim as a phrase"},
	})
	if got != "I went to school yesterday" {
		t.Errorf("got %q, want %q", got, "I went to school yesterday")
	}
}

func TestApplyFeedbackPoints_SkipsUnderivable(t *testing.T) {
	t.Parallel()

	src := "I go home"
	got := rewrite.ApplyFeedbackPoints(src, []types.FeedbackPoint{
		{Part: "go", Fix: ""},
	})
	if got != src {
		t.Errorf("got %q, want unchanged %q", got, src)
	}
}

func TestApplyFeedbackPoints_AddDirectiveUsesPart(t *testing.T) {
	t.Parallel()

	got := rewrite.ApplyFeedbackPoints("I went", []types.FeedbackPoint{
		{Part: "I went", Fix: "Add 'to the store'"},
	})
	if got != "I went to the store" {
		t.Errorf("got %q, want %q", got, "I went to the store")
	}
}
