// Package mock provides a test double for the tts.Provider interface.
package mock

import (
	"context"
	"sync"

	"github.com/parley-ai/parley/pkg/provider/tts"
)

// SynthesizeCall records a single invocation of Synthesize.
type SynthesizeCall struct {
	Text  string
	Voice tts.VoiceProfile
}

// Provider is a mock implementation of tts.Provider.
// Zero values cause methods to return empty audio and nil errors.
type Provider struct {
	mu sync.Mutex

	// Audio is returned by Synthesize and emitted as a single chunk by
	// SynthesizeStream.
	Audio []byte

	// Err, if non-nil, is returned by both methods.
	Err error

	// Calls records each Synthesize invocation.
	Calls []SynthesizeCall
}

// Compile-time interface check.
var _ tts.Provider = (*Provider)(nil)

// Synthesize implements tts.Provider.
func (p *Provider) Synthesize(_ context.Context, text string, voice tts.VoiceProfile) ([]byte, error) {
	p.mu.Lock()
	p.Calls = append(p.Calls, SynthesizeCall{Text: text, Voice: voice})
	p.mu.Unlock()

	if p.Err != nil {
		return nil, p.Err
	}
	return p.Audio, nil
}

// SynthesizeStream implements tts.Provider.
func (p *Provider) SynthesizeStream(_ context.Context, text <-chan string, voice tts.VoiceProfile) (<-chan []byte, error) {
	if p.Err != nil {
		return nil, p.Err
	}

	out := make(chan []byte, 1)
	go func() {
		defer close(out)
		for range text {
		}
		if len(p.Audio) > 0 {
			out <- p.Audio
		}
	}()
	return out, nil
}

// CallCount returns the number of Synthesize invocations recorded so far.
func (p *Provider) CallCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.Calls)
}
