// Package tts defines the text-to-speech provider interface used for the
// read-aloud feature.
//
// Implementations must be safe for concurrent use. Cancellation and timeout
// semantics for the network calls are the provider's responsibility; callers
// only observe success or failure.
package tts

import "context"

// VoiceProfile selects the synthesis voice.
type VoiceProfile struct {
	// ID is the provider-specific voice identifier.
	ID string

	// Name is the human-readable voice name (e.g., a persona voice preset).
	Name string

	// Style is an optional speaking-style hint (e.g., "cheerful").
	Style string
}

// Provider synthesises speech audio from text.
type Provider interface {
	// Synthesize returns the complete audio for text in one buffer.
	// A non-2xx response, an empty body, or a non-audio content type is a
	// failure.
	Synthesize(ctx context.Context, text string, voice VoiceProfile) ([]byte, error)

	// SynthesizeStream pipes text fragments from the text channel and
	// returns a channel emitting raw audio chunks. The audio channel is
	// closed when synthesis completes or ctx is cancelled.
	SynthesizeStream(ctx context.Context, text <-chan string, voice VoiceProfile) (<-chan []byte, error)
}
