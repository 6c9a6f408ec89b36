package resilience

import (
	"context"

	"github.com/parley-ai/parley/pkg/provider/assist"
	"github.com/parley-ai/parley/pkg/provider/tts"
	"github.com/parley-ai/parley/pkg/types"
)

// Assistant implements [assist.Provider] behind a shared circuit breaker.
// All assistant operations hit the same backend, so they trip and recover
// together; once the breaker opens, every call fails fast with
// [ErrCircuitOpen] until the backend proves healthy again.
type Assistant struct {
	inner assist.Provider
	cb    *CircuitBreaker
}

// Compile-time interface assertion.
var _ assist.Provider = (*Assistant)(nil)

// NewAssistant wraps provider with a circuit breaker.
func NewAssistant(provider assist.Provider, cfg CircuitBreakerConfig) *Assistant {
	if cfg.Name == "" {
		cfg.Name = "assistant"
	}
	return &Assistant{
		inner: provider,
		cb:    NewCircuitBreaker(cfg),
	}
}

// Breaker exposes the underlying breaker for state inspection.
func (a *Assistant) Breaker() *CircuitBreaker { return a.cb }

// GrammarFeedback implements assist.Provider.
func (a *Assistant) GrammarFeedback(ctx context.Context, text string) (*types.FeedbackResult, error) {
	var res *types.FeedbackResult
	err := a.cb.Execute(func() error {
		var err error
		res, err = a.inner.GrammarFeedback(ctx, text)
		return err
	})
	return res, err
}

// NativeAlternatives implements assist.Provider.
func (a *Assistant) NativeAlternatives(ctx context.Context, text string) ([]types.Alternative, error) {
	var res []types.Alternative
	err := a.cb.Execute(func() error {
		var err error
		res, err = a.inner.NativeAlternatives(ctx, text)
		return err
	})
	return res, err
}

// Translate implements assist.Provider.
func (a *Assistant) Translate(ctx context.Context, text, targetLang string, register types.Register) (string, error) {
	var res string
	err := a.cb.Execute(func() error {
		var err error
		res, err = a.inner.Translate(ctx, text, targetLang, register)
		return err
	})
	return res, err
}

// ChatReply implements assist.Provider.
func (a *Assistant) ChatReply(ctx context.Context, req assist.ChatRequest) (string, error) {
	var res string
	err := a.cb.Execute(func() error {
		var err error
		res, err = a.inner.ChatReply(ctx, req)
		return err
	})
	return res, err
}

// UpdateMemorySummary implements assist.Provider.
func (a *Assistant) UpdateMemorySummary(ctx context.Context, req assist.MemoryRequest) (*assist.MemoryResult, error) {
	var res *assist.MemoryResult
	err := a.cb.Execute(func() error {
		var err error
		res, err = a.inner.UpdateMemorySummary(ctx, req)
		return err
	})
	return res, err
}

// Speech implements [tts.Provider] behind a circuit breaker.
type Speech struct {
	inner tts.Provider
	cb    *CircuitBreaker
}

// Compile-time interface assertion.
var _ tts.Provider = (*Speech)(nil)

// NewSpeech wraps provider with a circuit breaker.
func NewSpeech(provider tts.Provider, cfg CircuitBreakerConfig) *Speech {
	if cfg.Name == "" {
		cfg.Name = "speech"
	}
	return &Speech{
		inner: provider,
		cb:    NewCircuitBreaker(cfg),
	}
}

// Breaker exposes the underlying breaker for state inspection.
func (s *Speech) Breaker() *CircuitBreaker { return s.cb }

// Synthesize implements tts.Provider.
func (s *Speech) Synthesize(ctx context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	var audio []byte
	err := s.cb.Execute(func() error {
		var err error
		audio, err = s.inner.Synthesize(ctx, text, voice)
		return err
	})
	return audio, err
}

// SynthesizeStream implements tts.Provider. Only the initial connection
// attempt is covered by the breaker; once a stream is established,
// mid-stream errors are the caller's responsibility.
func (s *Speech) SynthesizeStream(ctx context.Context, text <-chan string, voice tts.VoiceProfile) (<-chan []byte, error) {
	var audio <-chan []byte
	err := s.cb.Execute(func() error {
		var err error
		audio, err = s.inner.SynthesizeStream(ctx, text, voice)
		return err
	})
	return audio, err
}
