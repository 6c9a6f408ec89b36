// Package assist defines the remote language-assistant interface used by the
// Parley core: grammar feedback, native alternatives, translation, chat
// replies, and conversation-memory summarisation.
//
// The interface is public so that external packages can supply alternative
// backends (OpenAI-compatible APIs, local models, test doubles) without
// depending on parley internals. Implementations must be safe for concurrent
// use.
package assist

import (
	"context"

	"github.com/parley-ai/parley/pkg/types"
)

// ChatRequest carries everything the assistant needs to produce the AI
// persona's next reply.
type ChatRequest struct {
	// Message is the learner's latest message.
	Message string

	// History is the recent conversation window, oldest first.
	History []types.ChatMessage

	// MemoryProfile holds long-term facts about the learner. Nil when no
	// memory has been accumulated yet.
	MemoryProfile *types.MemoryProfile

	// MemorySummary is the free-text memory summary. May be empty.
	MemorySummary string

	// Persona is the active persona configuration. Nil falls back to a
	// neutral persona.
	Persona *types.AIProfileSettings
}

// MemoryRequest carries the inputs for an incremental memory summarisation.
type MemoryRequest struct {
	// CurrentSummary is the previously stored summary text. May be empty.
	CurrentSummary string

	// CurrentProfile is the previously stored memory profile. May be nil.
	CurrentProfile *types.MemoryProfile

	// History is the recent conversation window, oldest first.
	History []types.ChatMessage
}

// MemoryResult is the assistant's replacement memory state. An empty result
// (blank summary, nil or empty profile) means the history contained no
// memorable information.
type MemoryResult struct {
	Summary string
	Profile *types.MemoryProfile
}

// Provider is the remote language assistant. All calls are plain
// request/response; transport, auth, retries, and timeouts are the
// implementation's concern. Callers only observe success or failure.
type Provider interface {
	// GrammarFeedback analyses a learner message and returns the full
	// feedback payload.
	GrammarFeedback(ctx context.Context, text string) (*types.FeedbackResult, error)

	// NativeAlternatives returns native-sounding alternative phrasings for
	// a learner message.
	NativeAlternatives(ctx context.Context, text string) ([]types.Alternative, error)

	// Translate translates text into targetLang using the given register.
	// An empty translation is a failure and must be returned as an error.
	Translate(ctx context.Context, text, targetLang string, register types.Register) (string, error)

	// ChatReply produces the persona's next reply. A blank reply is a
	// failure and must be returned as an error.
	ChatReply(ctx context.Context, req ChatRequest) (string, error)

	// UpdateMemorySummary recomputes the conversation memory from the
	// given history window.
	UpdateMemorySummary(ctx context.Context, req MemoryRequest) (*MemoryResult, error)
}
