package feedback

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/parley-ai/parley/pkg/provider/tts"
)

// ErrSpeechUnavailable is returned by [Coordinator.Speak] when no speech
// provider was configured.
var ErrSpeechUnavailable = errors.New("feedback: no speech provider configured")

// speechState holds the read-aloud machinery: a per-message audio cache, a
// loading flag per message, and the single globally-active speaking message.
// The cache is unbounded; per-conversation message counts stay small enough
// that eviction is not worth its complexity here.
type speechState struct {
	audio    map[string][]byte
	loading  map[string]bool
	speaking string
	group    singleflight.Group
}

func (s *speechState) init() {
	s.audio = make(map[string][]byte)
	s.loading = make(map[string]bool)
}

// Speak starts read-aloud for a message, stopping any other active playback.
// Cache hits skip the network entirely. Concurrent calls for the same message
// share one synthesis request.
func (c *Coordinator) Speak(ctx context.Context, messageID, text string, voice tts.VoiceProfile) ([]byte, error) {
	if c.speech == nil {
		return nil, ErrSpeechUnavailable
	}
	c.mu.Lock()
	if audio, ok := c.audio[messageID]; ok {
		c.speaking = messageID
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.SpeechCacheHits.Add(ctx, 1)
		}
		return audio, nil
	}
	c.loading[messageID] = true
	c.mu.Unlock()

	start := time.Now()
	result, err, _ := c.group.Do(messageID, func() (any, error) {
		return c.speech.Synthesize(ctx, text, voice)
	})
	c.observeSpeech(ctx, start, err)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.loading, messageID)
	if err != nil {
		if c.speaking == messageID {
			c.speaking = ""
		}
		slog.Warn("speech synthesis failed", "message", messageID, "error", err)
		return nil, err
	}

	audio := result.([]byte)
	c.audio[messageID] = audio
	c.speaking = messageID
	return audio, nil
}

// SpeakingID returns the identifier of the currently speaking message, or ""
// when nothing is playing.
func (c *Coordinator) SpeakingID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.speaking
}

// SpeechLoading reports whether synthesis is in flight for a message.
func (c *Coordinator) SpeechLoading(messageID string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.loading[messageID]
}

// FinishSpeaking clears the active-speaking identifier after playback
// completes or fails to decode. A mismatched id is ignored; a newer playback
// already took over.
func (c *Coordinator) FinishSpeaking(messageID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.speaking == messageID {
		c.speaking = ""
	}
}

// StopSpeaking unconditionally stops any active playback.
func (c *Coordinator) StopSpeaking() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.speaking = ""
}

func (c *Coordinator) observeSpeech(ctx context.Context, start time.Time, err error) {
	if c.metrics == nil {
		return
	}
	c.metrics.SpeechDuration.Record(ctx, time.Since(start).Seconds())
	if err != nil {
		c.metrics.RecordRemoteRequest(ctx, "speech", "error")
		c.metrics.RecordRemoteError(ctx, "speech")
	} else {
		c.metrics.RecordRemoteRequest(ctx, "speech", "ok")
	}
}
