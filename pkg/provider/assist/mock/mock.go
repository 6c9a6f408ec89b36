// Package mock provides a test double for the assist.Provider interface.
//
// Use Provider in unit tests to feed controlled responses without a live
// backend and to assert on the requests the core sends. All response fields
// are safe to set before calling any method; mutating them during a
// concurrent call is the caller's responsibility.
//
// Example:
//
//	p := &mock.Provider{ChatReplyResponse: "Nice to meet you!"}
//	reply, err := p.ChatReply(ctx, req)
package mock

import (
	"context"
	"sync"

	"github.com/parley-ai/parley/pkg/provider/assist"
	"github.com/parley-ai/parley/pkg/types"
)

// Provider is a mock implementation of assist.Provider.
// Zero values for response fields cause methods to return zero values and nil
// errors. Set Err fields to inject errors.
type Provider struct {
	mu sync.Mutex

	// --- Configurable responses ---

	// FeedbackResponse is returned by GrammarFeedback.
	FeedbackResponse *types.FeedbackResult

	// FeedbackErr, if non-nil, is returned by GrammarFeedback.
	FeedbackErr error

	// AlternativesResponse is returned by NativeAlternatives.
	AlternativesResponse []types.Alternative

	// AlternativesErr, if non-nil, is returned by NativeAlternatives.
	AlternativesErr error

	// TranslateResponse is returned by Translate.
	TranslateResponse string

	// TranslateErr, if non-nil, is returned by Translate.
	TranslateErr error

	// ChatReplyResponse is returned by ChatReply.
	ChatReplyResponse string

	// ChatReplyErr, if non-nil, is returned by ChatReply.
	ChatReplyErr error

	// MemoryResponse is returned by UpdateMemorySummary.
	MemoryResponse *assist.MemoryResult

	// MemoryErr, if non-nil, is returned by UpdateMemorySummary.
	MemoryErr error

	// --- Recorded calls ---

	// FeedbackCalls records the text passed to each GrammarFeedback call.
	FeedbackCalls []string

	// AlternativesCalls records the text passed to each NativeAlternatives call.
	AlternativesCalls []string

	// TranslateCalls records each Translate invocation.
	TranslateCalls []TranslateCall

	// ChatReplyCalls records each ChatReply request.
	ChatReplyCalls []assist.ChatRequest

	// MemoryCalls records each UpdateMemorySummary request.
	MemoryCalls []assist.MemoryRequest
}

// TranslateCall records a single invocation of Translate.
type TranslateCall struct {
	Text       string
	TargetLang string
	Register   types.Register
}

// Compile-time interface check.
var _ assist.Provider = (*Provider)(nil)

// GrammarFeedback implements assist.Provider.
func (p *Provider) GrammarFeedback(_ context.Context, text string) (*types.FeedbackResult, error) {
	p.mu.Lock()
	p.FeedbackCalls = append(p.FeedbackCalls, text)
	p.mu.Unlock()

	if p.FeedbackErr != nil {
		return nil, p.FeedbackErr
	}
	return p.FeedbackResponse, nil
}

// NativeAlternatives implements assist.Provider.
func (p *Provider) NativeAlternatives(_ context.Context, text string) ([]types.Alternative, error) {
	p.mu.Lock()
	p.AlternativesCalls = append(p.AlternativesCalls, text)
	p.mu.Unlock()

	if p.AlternativesErr != nil {
		return nil, p.AlternativesErr
	}
	return p.AlternativesResponse, nil
}

// Translate implements assist.Provider.
func (p *Provider) Translate(_ context.Context, text, targetLang string, register types.Register) (string, error) {
	p.mu.Lock()
	p.TranslateCalls = append(p.TranslateCalls, TranslateCall{Text: text, TargetLang: targetLang, Register: register})
	p.mu.Unlock()

	if p.TranslateErr != nil {
		return "", p.TranslateErr
	}
	return p.TranslateResponse, nil
}

// ChatReply implements assist.Provider.
func (p *Provider) ChatReply(_ context.Context, req assist.ChatRequest) (string, error) {
	p.mu.Lock()
	p.ChatReplyCalls = append(p.ChatReplyCalls, req)
	p.mu.Unlock()

	if p.ChatReplyErr != nil {
		return "", p.ChatReplyErr
	}
	return p.ChatReplyResponse, nil
}

// UpdateMemorySummary implements assist.Provider.
func (p *Provider) UpdateMemorySummary(_ context.Context, req assist.MemoryRequest) (*assist.MemoryResult, error) {
	p.mu.Lock()
	p.MemoryCalls = append(p.MemoryCalls, req)
	p.mu.Unlock()

	if p.MemoryErr != nil {
		return nil, p.MemoryErr
	}
	if p.MemoryResponse != nil {
		return p.MemoryResponse, nil
	}
	return &assist.MemoryResult{}, nil
}

// CallCounts returns the number of recorded calls per method, keyed by
// method name. Useful for asserting gating behaviour.
func (p *Provider) CallCounts() map[string]int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]int{
		"GrammarFeedback":     len(p.FeedbackCalls),
		"NativeAlternatives":  len(p.AlternativesCalls),
		"Translate":           len(p.TranslateCalls),
		"ChatReply":           len(p.ChatReplyCalls),
		"UpdateMemorySummary": len(p.MemoryCalls),
	}
}
