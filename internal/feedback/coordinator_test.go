package feedback

import (
	"context"
	"errors"
	"testing"

	assistmock "github.com/parley-ai/parley/pkg/provider/assist/mock"
	ttsmock "github.com/parley-ai/parley/pkg/provider/tts/mock"
	"github.com/parley-ai/parley/pkg/types"
)

func newCoordinator(a *assistmock.Provider, s *ttsmock.Provider) *Coordinator {
	if a == nil {
		a = &assistmock.Provider{}
	}
	if s == nil {
		s = &ttsmock.Provider{}
	}
	return New(a, s)
}

func TestToggleFeedback_LoadsOnce(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{
		FeedbackResponse: &types.FeedbackResult{
			HasErrors:     true,
			CorrectedText: "I went to school yesterday",
		},
	}
	c := newCoordinator(provider, nil)
	ctx := context.Background()

	view := c.ToggleFeedback(ctx, "m1", "I go to school yesterday")
	if view.Phase != PhaseLoaded || !view.Selected {
		t.Fatalf("first toggle view=%+v, want loaded and selected", view)
	}
	if view.Result == nil || view.Result.CorrectedText != "I went to school yesterday" {
		t.Errorf("Result=%+v, want feedback payload", view.Result)
	}

	// Second toggle only flips selection, never refetches.
	view = c.ToggleFeedback(ctx, "m1", "I go to school yesterday")
	if view.Phase != PhaseLoaded || view.Selected {
		t.Errorf("second toggle view=%+v, want loaded and deselected", view)
	}
	if got := provider.CallCounts()["GrammarFeedback"]; got != 1 {
		t.Errorf("GrammarFeedback calls=%d, want 1", got)
	}
}

func TestToggleFeedback_FailureDoesNotAutoRetry(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{FeedbackErr: errors.New("timeout")}
	c := newCoordinator(provider, nil)
	ctx := context.Background()

	view := c.ToggleFeedback(ctx, "m1", "hello")
	if view.Phase != PhaseFailed || view.ErrText == "" {
		t.Fatalf("view=%+v, want failed with error text", view)
	}

	// A repeat selection toggles but does not retry.
	c.ToggleFeedback(ctx, "m1", "hello")
	if got := provider.CallCounts()["GrammarFeedback"]; got != 1 {
		t.Errorf("GrammarFeedback calls=%d, want 1", got)
	}
}

func TestImprovedExpression_UsesLoadedFeedback(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{
		FeedbackResponse: &types.FeedbackResult{
			HasErrors:     true,
			CorrectedText: "I went to school yesterday",
		},
	}
	c := newCoordinator(provider, nil)

	if _, ok := c.ImprovedExpression("m1", "I go to school yesterday"); ok {
		t.Fatal("ImprovedExpression returned a value before feedback loaded")
	}

	c.ToggleFeedback(context.Background(), "m1", "I go to school yesterday")
	got, ok := c.ImprovedExpression("m1", "I go to school yesterday")
	if !ok || got != "I went to school yesterday" {
		t.Errorf("ImprovedExpression=(%q, %v), want corrected text", got, ok)
	}
}

func TestLoadAlternatives_MergesPreferredFirst(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{
		FeedbackResponse: &types.FeedbackResult{
			NaturalAlternative: "I went to school yesterday",
			NaturalReason:      "past tense",
		},
		AlternativesResponse: []types.Alternative{
			{Text: "Yesterday I went to school", Tone: "Neutral"},
			{Text: "I went to school yesterday", Tone: "Casual"}, // dup of preferred
			{Text: "School is where I went yesterday", Tone: "Poetic"},
		},
	}
	c := newCoordinator(provider, nil)
	ctx := context.Background()

	c.ToggleFeedback(ctx, "m1", "I go to school yesterday")
	view := c.LoadAlternatives(ctx, "m1", "I go to school yesterday")
	if view.Phase != PhaseLoaded {
		t.Fatalf("view=%+v, want loaded", view)
	}
	if len(view.Items) != 3 {
		t.Fatalf("items=%d, want 3", len(view.Items))
	}
	if view.Items[0].Tone != "Most Common" || view.Items[0].Text != "I went to school yesterday" {
		t.Errorf("first item=%+v, want the preferred alternative", view.Items[0])
	}
	if view.Items[1].Text != "Yesterday I went to school" {
		t.Errorf("second item=%+v, want first generated", view.Items[1])
	}

	// Loaded guard: repeat trigger returns the same list without refetching.
	c.LoadAlternatives(ctx, "m1", "I go to school yesterday")
	if got := provider.CallCounts()["NativeAlternatives"]; got != 1 {
		t.Errorf("NativeAlternatives calls=%d, want 1", got)
	}
}

func TestLoadAlternatives_WithoutFeedback(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{
		AlternativesResponse: []types.Alternative{{Text: "See you soon"}},
	}
	c := newCoordinator(provider, nil)

	view := c.LoadAlternatives(context.Background(), "m1", "see you after")
	if view.Phase != PhaseLoaded || len(view.Items) != 1 {
		t.Errorf("view=%+v, want just the generated item", view)
	}
}

func TestLoadAlternatives_Failure(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{AlternativesErr: errors.New("boom")}
	c := newCoordinator(provider, nil)

	view := c.LoadAlternatives(context.Background(), "m1", "hello")
	if view.Phase != PhaseFailed || view.ErrText == "" {
		t.Errorf("view=%+v, want failed with error text", view)
	}
}

func TestToggleTranslation_LoadToggleInvalidate(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{TranslateResponse: "어제 학교에 갔어요"}
	c := newCoordinator(provider, nil)
	ctx := context.Background()

	// First tap: idle → loading → shown.
	view := c.ToggleTranslation(ctx, "m1", "I went to school yesterday", types.RegisterPolite)
	if view.Phase != TranslationShown || view.Text != "어제 학교에 갔어요" {
		t.Fatalf("first tap view=%+v, want shown with text", view)
	}

	// Second tap: shown → hidden, no remote call.
	view = c.ToggleTranslation(ctx, "m1", "I went to school yesterday", types.RegisterPolite)
	if view.Phase != TranslationHidden {
		t.Fatalf("second tap view=%+v, want hidden", view)
	}
	// Third tap: hidden → shown again.
	view = c.ToggleTranslation(ctx, "m1", "I went to school yesterday", types.RegisterPolite)
	if view.Phase != TranslationShown {
		t.Fatalf("third tap view=%+v, want shown", view)
	}
	if got := provider.CallCounts()["Translate"]; got != 1 {
		t.Fatalf("Translate calls=%d, want 1", got)
	}

	// Register change invalidates: back to idle, next tap refetches.
	c.InvalidateTranslations(nil)
	if got := c.Translation("m1"); got.Phase != TranslationIdle {
		t.Fatalf("after invalidation view=%+v, want idle", got)
	}
	c.ToggleTranslation(ctx, "m1", "I went to school yesterday", types.RegisterCasual)
	if got := provider.CallCounts()["Translate"]; got != 2 {
		t.Errorf("Translate calls=%d, want 2 after invalidation", got)
	}
}

func TestToggleTranslation_FailedAllowsRetry(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{TranslateErr: errors.New("empty translation")}
	c := newCoordinator(provider, nil)
	ctx := context.Background()

	view := c.ToggleTranslation(ctx, "m1", "hello", types.RegisterPolite)
	if view.Phase != TranslationFailed || view.ErrText == "" {
		t.Fatalf("view=%+v, want failed with error text", view)
	}

	provider.TranslateErr = nil
	provider.TranslateResponse = "안녕하세요"
	view = c.ToggleTranslation(ctx, "m1", "hello", types.RegisterPolite)
	if view.Phase != TranslationShown || view.Text != "안녕하세요" {
		t.Errorf("retry view=%+v, want shown", view)
	}
	if got := provider.CallCounts()["Translate"]; got != 2 {
		t.Errorf("Translate calls=%d, want 2", got)
	}
}

func TestInvalidateTranslations_ScopedToIDs(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{TranslateResponse: "번역"}
	c := newCoordinator(provider, nil)
	ctx := context.Background()

	c.ToggleTranslation(ctx, "m1", "one", types.RegisterPolite)
	c.ToggleTranslation(ctx, "m2", "two", types.RegisterPolite)

	c.InvalidateTranslations([]string{"m1"})
	if got := c.Translation("m1"); got.Phase != TranslationIdle {
		t.Errorf("m1 view=%+v, want idle", got)
	}
	if got := c.Translation("m2"); got.Phase != TranslationShown {
		t.Errorf("m2 view=%+v, want untouched shown", got)
	}
}

func TestIndependentMessagesDoNotShareState(t *testing.T) {
	t.Parallel()

	provider := &assistmock.Provider{
		FeedbackResponse: &types.FeedbackResult{Feedback: "fine"},
	}
	c := newCoordinator(provider, nil)
	ctx := context.Background()

	c.ToggleFeedback(ctx, "m1", "one")
	if got := c.Feedback("m2"); got.Phase != PhaseIdle {
		t.Errorf("m2 view=%+v, want idle", got)
	}
}
