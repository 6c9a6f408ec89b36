// Package feedback owns the ephemeral per-message state machines: grammar
// feedback, native alternatives, translation, and speech synthesis.
//
// State is keyed by message identifier and is never persisted; it regenerates
// on demand. Every machine follows the same shape, idle → loading →
// loaded/failed, with a per-(message, feature) in-flight guard so repeated
// triggers are idempotent instead of spawning duplicate requests. Requests
// that resolve after the user navigated away still land in the per-message
// state, which is safe because the state is keyed by message id, not by
// visibility.
package feedback

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/parley-ai/parley/internal/improve"
	"github.com/parley-ai/parley/internal/observe"
	"github.com/parley-ai/parley/pkg/provider/assist"
	"github.com/parley-ai/parley/pkg/provider/tts"
	"github.com/parley-ai/parley/pkg/types"
)

// Phase is the lifecycle of a loadable per-message feature.
type Phase string

const (
	PhaseIdle    Phase = "idle"
	PhaseLoading Phase = "loading"
	PhaseLoaded  Phase = "loaded"
	PhaseFailed  Phase = "failed"
)

// TranslationPhase extends [Phase] with a visibility toggle: once loaded, a
// translation is either shown or hidden without refetching.
type TranslationPhase string

const (
	TranslationIdle    TranslationPhase = "idle"
	TranslationLoading TranslationPhase = "loading"
	TranslationShown   TranslationPhase = "shown"
	TranslationHidden  TranslationPhase = "hidden"
	TranslationFailed  TranslationPhase = "failed"
)

// FeedbackView is a snapshot of one message's grammar-feedback state.
type FeedbackView struct {
	Phase    Phase
	Selected bool
	Result   *types.FeedbackResult
	ErrText  string
}

// AlternativesView is a snapshot of one message's native-alternatives state.
type AlternativesView struct {
	Phase   Phase
	Items   []types.Alternative
	ErrText string
}

// TranslationView is a snapshot of one message's translation state.
type TranslationView struct {
	Phase   TranslationPhase
	Text    string
	ErrText string
}

// Option is a functional option for [New].
type Option func(*Coordinator)

// WithMetrics attaches a metrics instance. When nil, remote calls are not
// counted.
func WithMetrics(m *observe.Metrics) Option {
	return func(c *Coordinator) {
		c.metrics = m
	}
}

// WithTargetLanguage sets the translation target language. Default: "Korean".
func WithTargetLanguage(lang string) Option {
	return func(c *Coordinator) {
		c.targetLang = lang
	}
}

// Coordinator owns all per-message ephemeral state. Safe for concurrent use;
// blocking remote calls happen outside the lock so independent state machines
// never block each other.
type Coordinator struct {
	assist     assist.Provider
	speech     tts.Provider
	metrics    *observe.Metrics
	targetLang string

	mu           sync.Mutex
	feedback     map[string]*FeedbackView
	alternatives map[string]*AlternativesView
	translations map[string]*TranslationView

	speechState
}

// New creates a Coordinator backed by the given providers.
func New(assistant assist.Provider, speech tts.Provider, opts ...Option) *Coordinator {
	c := &Coordinator{
		assist:       assistant,
		speech:       speech,
		targetLang:   "Korean",
		feedback:     make(map[string]*FeedbackView),
		alternatives: make(map[string]*AlternativesView),
		translations: make(map[string]*TranslationView),
	}
	c.speechState.init()
	for _, o := range opts {
		o(c)
	}
	return c
}

// ---------------------------------------------------------------------------
// Grammar feedback
// ---------------------------------------------------------------------------

// ToggleFeedback handles selecting a user message. The first selection
// fetches grammar feedback; while loading, loaded, or failed, repeat triggers
// only flip the selection without refetching.
func (c *Coordinator) ToggleFeedback(ctx context.Context, messageID, text string) FeedbackView {
	c.mu.Lock()
	st, ok := c.feedback[messageID]
	if !ok {
		st = &FeedbackView{Phase: PhaseIdle}
		c.feedback[messageID] = st
	}
	if st.Phase != PhaseIdle {
		st.Selected = !st.Selected
		view := *st
		c.mu.Unlock()
		return view
	}
	st.Phase = PhaseLoading
	st.Selected = true
	c.mu.Unlock()

	start := time.Now()
	result, err := c.assist.GrammarFeedback(ctx, text)
	c.observeRemote(ctx, "feedback", start, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		st.Phase = PhaseFailed
		st.ErrText = fmt.Sprintf("Could not load feedback: %v", err)
		slog.Warn("grammar feedback failed", "message", messageID, "error", err)
	} else {
		st.Phase = PhaseLoaded
		st.Result = result
	}
	return *st
}

// Feedback returns the current grammar-feedback snapshot for a message.
func (c *Coordinator) Feedback(messageID string) FeedbackView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.feedback[messageID]; ok {
		return *st
	}
	return FeedbackView{Phase: PhaseIdle}
}

// ImprovedExpression derives the single improved expression for a message
// from its loaded feedback, if any.
func (c *Coordinator) ImprovedExpression(messageID, source string) (string, bool) {
	c.mu.Lock()
	st, ok := c.feedback[messageID]
	var result *types.FeedbackResult
	if ok && st.Phase == PhaseLoaded {
		result = st.Result
	}
	c.mu.Unlock()
	return improve.Expression(source, result)
}

// ---------------------------------------------------------------------------
// Native alternatives
// ---------------------------------------------------------------------------

// LoadAlternatives fetches native alternatives for a message. While loading
// or once loaded or failed, repeat triggers return the current state without
// a new request. The remote list is merged with a locally-derived preferred
// alternative built from loaded grammar feedback, capped at
// [improve.MaxAlternatives].
func (c *Coordinator) LoadAlternatives(ctx context.Context, messageID, text string) AlternativesView {
	c.mu.Lock()
	st, ok := c.alternatives[messageID]
	if !ok {
		st = &AlternativesView{Phase: PhaseIdle}
		c.alternatives[messageID] = st
	}
	if st.Phase != PhaseIdle {
		view := *st
		c.mu.Unlock()
		return view
	}
	st.Phase = PhaseLoading
	c.mu.Unlock()

	start := time.Now()
	generated, err := c.assist.NativeAlternatives(ctx, text)
	c.observeRemote(ctx, "alternatives", start, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		st.Phase = PhaseFailed
		st.ErrText = fmt.Sprintf("Could not load alternatives: %v", err)
		slog.Warn("native alternatives failed", "message", messageID, "error", err)
		return *st
	}

	st.Phase = PhaseLoaded
	st.Items = improve.MergeAlternatives(c.preferredAlternativeLocked(messageID), generated)
	return *st
}

// Alternatives returns the current alternatives snapshot for a message.
func (c *Coordinator) Alternatives(messageID string) AlternativesView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.alternatives[messageID]; ok {
		return *st
	}
	return AlternativesView{Phase: PhaseIdle}
}

// preferredAlternativeLocked builds the "Most Common" alternative from loaded
// grammar feedback. Returns nil when no feedback is loaded or it carries no
// natural alternative.
func (c *Coordinator) preferredAlternativeLocked(messageID string) *types.Alternative {
	fb, ok := c.feedback[messageID]
	if !ok || fb.Phase != PhaseLoaded || fb.Result == nil || fb.Result.NaturalAlternative == "" {
		return nil
	}
	return &types.Alternative{
		Text:   fb.Result.NaturalAlternative,
		Tone:   "Most Common",
		Nuance: fb.Result.NaturalReason,
	}
}

// ---------------------------------------------------------------------------
// Translation
// ---------------------------------------------------------------------------

// ToggleTranslation handles tapping the translate action on an AI message.
// The first tap fetches the translation; further taps flip shown ↔ hidden
// without refetching. A failed state permits a fresh fetch attempt. Taps
// while loading are no-ops.
func (c *Coordinator) ToggleTranslation(ctx context.Context, messageID, text string, register types.Register) TranslationView {
	c.mu.Lock()
	st, ok := c.translations[messageID]
	if !ok {
		st = &TranslationView{Phase: TranslationIdle}
		c.translations[messageID] = st
	}
	switch st.Phase {
	case TranslationLoading:
		view := *st
		c.mu.Unlock()
		return view
	case TranslationShown:
		st.Phase = TranslationHidden
		view := *st
		c.mu.Unlock()
		return view
	case TranslationHidden:
		st.Phase = TranslationShown
		view := *st
		c.mu.Unlock()
		return view
	}
	// idle or failed: fetch.
	st.Phase = TranslationLoading
	st.ErrText = ""
	c.mu.Unlock()

	start := time.Now()
	translated, err := c.assist.Translate(ctx, text, c.targetLang, register)
	c.observeTranslate(ctx, start, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	if err != nil {
		st.Phase = TranslationFailed
		st.ErrText = fmt.Sprintf("Could not translate: %v", err)
		slog.Warn("translation failed", "message", messageID, "error", err)
	} else {
		st.Phase = TranslationShown
		st.Text = translated
	}
	return *st
}

// Translation returns the current translation snapshot for a message.
func (c *Coordinator) Translation(messageID string) TranslationView {
	c.mu.Lock()
	defer c.mu.Unlock()
	if st, ok := c.translations[messageID]; ok {
		return *st
	}
	return TranslationView{Phase: TranslationIdle}
}

// InvalidateTranslations resets translation state to idle for the given
// message ids, discarding cached text. The register affects phrasing, so a
// persona register change must invalidate every cached translation in the
// conversation. A nil messageIDs resets all messages.
func (c *Coordinator) InvalidateTranslations(messageIDs []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if messageIDs == nil {
		c.translations = make(map[string]*TranslationView)
		return
	}
	for _, id := range messageIDs {
		delete(c.translations, id)
	}
}

// ---------------------------------------------------------------------------

// observeRemote records latency and outcome for assistant calls.
func (c *Coordinator) observeRemote(ctx context.Context, kind string, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.AssistDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordRemoteRequest(ctx, kind, "error")
		c.metrics.RecordRemoteError(ctx, kind)
	} else {
		c.metrics.RecordRemoteRequest(ctx, kind, "ok")
	}
}

func (c *Coordinator) observeTranslate(ctx context.Context, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.TranslateDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordRemoteRequest(ctx, "translate", "error")
		c.metrics.RecordRemoteError(ctx, "translate")
	} else {
		c.metrics.RecordRemoteRequest(ctx, "translate", "ok")
	}
}
