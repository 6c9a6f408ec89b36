package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/parley-ai/parley/pkg/provider/assist"
	assistmock "github.com/parley-ai/parley/pkg/provider/assist/mock"
	"github.com/parley-ai/parley/pkg/provider/tts"
	ttsmock "github.com/parley-ai/parley/pkg/provider/tts/mock"
	"github.com/parley-ai/parley/pkg/types"
)

func TestAssistant_PassThrough(t *testing.T) {
	t.Parallel()

	inner := &assistmock.Provider{
		ChatReplyResponse: "hello!",
		TranslateResponse: "안녕",
	}
	a := NewAssistant(inner, CircuitBreakerConfig{})

	reply, err := a.ChatReply(context.Background(), assist.ChatRequest{Message: "hi"})
	if err != nil || reply != "hello!" {
		t.Errorf("ChatReply=%q, %v", reply, err)
	}
	translated, err := a.Translate(context.Background(), "hello", "Korean", types.RegisterPolite)
	if err != nil || translated != "안녕" {
		t.Errorf("Translate=%q, %v", translated, err)
	}
	if a.Breaker().State() != StateClosed {
		t.Errorf("state=%v, want closed", a.Breaker().State())
	}
}

func TestAssistant_OpensAfterConsecutiveFailures(t *testing.T) {
	t.Parallel()

	inner := &assistmock.Provider{ChatReplyErr: errors.New("backend down")}
	a := NewAssistant(inner, CircuitBreakerConfig{
		MaxFailures:  3,
		ResetTimeout: time.Hour,
	})

	for i := 0; i < 3; i++ {
		if _, err := a.ChatReply(context.Background(), assist.ChatRequest{Message: "hi"}); err == nil {
			t.Fatal("ChatReply succeeded against a failing backend")
		}
	}
	if a.Breaker().State() != StateOpen {
		t.Fatalf("state=%v, want open", a.Breaker().State())
	}

	// Open breaker rejects without reaching the backend.
	_, err := a.GrammarFeedback(context.Background(), "I goed home")
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("GrammarFeedback err=%v, want ErrCircuitOpen", err)
	}
	if n := inner.CallCounts()["GrammarFeedback"]; n != 0 {
		t.Errorf("GrammarFeedback reached the backend %d times through an open breaker", n)
	}
}

func TestAssistant_SharedBreakerAcrossOperations(t *testing.T) {
	t.Parallel()

	inner := &assistmock.Provider{
		TranslateErr:      errors.New("timeout"),
		ChatReplyResponse: "fine",
	}
	a := NewAssistant(inner, CircuitBreakerConfig{
		MaxFailures:  2,
		ResetTimeout: time.Hour,
	})

	for i := 0; i < 2; i++ {
		_, _ = a.Translate(context.Background(), "hi", "Korean", types.RegisterCasual)
	}

	// Translation failures tripped the breaker for chat too.
	_, err := a.ChatReply(context.Background(), assist.ChatRequest{Message: "hi"})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("ChatReply err=%v, want ErrCircuitOpen", err)
	}
}

func TestSpeech_PassThroughAndOpen(t *testing.T) {
	t.Parallel()

	inner := &ttsmock.Provider{Audio: []byte{1, 2, 3}}
	s := NewSpeech(inner, CircuitBreakerConfig{MaxFailures: 2, ResetTimeout: time.Hour})

	audio, err := s.Synthesize(context.Background(), "hello", tts.VoiceProfile{Name: "cove"})
	if err != nil || len(audio) != 3 {
		t.Errorf("Synthesize=%v, %v", audio, err)
	}

	inner.Err = errors.New("api error")
	for i := 0; i < 2; i++ {
		_, _ = s.Synthesize(context.Background(), "hello", tts.VoiceProfile{})
	}
	if s.Breaker().State() != StateOpen {
		t.Fatalf("state=%v, want open", s.Breaker().State())
	}

	before := inner.CallCount()
	if _, err := s.Synthesize(context.Background(), "hello", tts.VoiceProfile{}); !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("Synthesize err=%v, want ErrCircuitOpen", err)
	}
	if inner.CallCount() != before {
		t.Error("Synthesize reached the backend through an open breaker")
	}
}
