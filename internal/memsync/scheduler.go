// Package memsync schedules conversation-memory synchronization against the
// remote assistant.
//
// Each conversation's recent history is reduced to a signature; a sync only
// reaches the network when the signature differs from the last successfully
// synced one. This makes repeated sync triggers (conversation switches, app
// close, timers) cheap no-ops while the conversation is quiet.
package memsync

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/parley-ai/parley/internal/observe"
	"github.com/parley-ai/parley/pkg/provider/assist"
	"github.com/parley-ai/parley/pkg/types"
)

// DefaultHistoryWindow is how many recent messages feed the signature and the
// summarisation request when no window is configured.
const DefaultHistoryWindow = 30

// Status classifies the outcome of a sync attempt.
type Status string

const (
	// StatusSkipped means the sync never reached the network.
	StatusSkipped Status = "skipped"

	// StatusSucceeded means new memory was stored.
	StatusSucceeded Status = "succeeded"

	// StatusUnchanged means the remote call succeeded but the history held
	// no memorable information; any previous memory is cleared.
	StatusUnchanged Status = "unchanged"

	// StatusFailed means the remote call failed; stored memory is untouched.
	StatusFailed Status = "failed"
)

// Result is the outcome of one sync attempt. When Applied is true the caller
// must replace its stored memory wholesale with Summary and Profile, even
// when both are empty.
type Result struct {
	Status Status

	// Detail is the display-ready status text: "no new messages",
	// "succeeded", "no new memory info", or "failed: <reason>".
	Detail string

	// Applied reports whether Summary and Profile carry the new memory
	// state to store.
	Applied bool

	Summary string
	Profile types.MemoryProfile
}

// Option is a functional option for [New].
type Option func(*Scheduler)

// WithHistoryWindow sets how many trailing messages feed the signature and
// the remote request. Default: [DefaultHistoryWindow].
func WithHistoryWindow(n int) Option {
	return func(s *Scheduler) {
		if n > 0 {
			s.window = n
		}
	}
}

// WithDebounce sets the minimum gap between automatic syncs for one
// conversation. Forced syncs ignore it. Default: no debouncing.
func WithDebounce(d time.Duration) Option {
	return func(s *Scheduler) {
		s.debounce = d
	}
}

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		s.now = now
	}
}

// WithMetrics attaches a metrics instance. When nil, sync outcomes are not
// counted.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Scheduler) {
		s.metrics = m
	}
}

// Scheduler gates memory syncs per conversation. Safe for concurrent use.
type Scheduler struct {
	provider assist.Provider
	window   int
	debounce time.Duration
	now      func() time.Time
	metrics  *observe.Metrics

	mu       sync.Mutex
	lastSig  map[string]string
	lastSync map[string]time.Time
}

// New creates a Scheduler backed by the given assistant.
func New(provider assist.Provider, opts ...Option) *Scheduler {
	s := &Scheduler{
		provider: provider,
		window:   DefaultHistoryWindow,
		now:      time.Now,
		lastSig:  make(map[string]string),
		lastSync: make(map[string]time.Time),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Signature reduces history to a stable fingerprint: the trailing window of
// non-empty messages rendered as "role|text" lines joined by newlines. Two
// histories with the same signature need no new sync.
func (s *Scheduler) Signature(history []types.ChatMessage) string {
	lines := make([]string, 0, s.window)
	for i := len(history) - 1; i >= 0 && len(lines) < s.window; i-- {
		text := strings.TrimSpace(history[i].Text)
		if text == "" {
			continue
		}
		lines = append(lines, string(history[i].Role)+"|"+text)
	}
	// lines were gathered newest-first; restore chronological order.
	for i, j := 0, len(lines)-1; i < j; i, j = i+1, j-1 {
		lines[i], lines[j] = lines[j], lines[i]
	}
	return strings.Join(lines, "\n")
}

// Sync synchronizes one conversation's memory, skipping the network when the
// history signature matches the last synced one or the debounce window has
// not elapsed.
func (s *Scheduler) Sync(ctx context.Context, convID string, history []types.ChatMessage, summary string, profile types.MemoryProfile) Result {
	return s.sync(ctx, convID, history, summary, profile, false)
}

// SyncForced synchronizes regardless of signature gating and debouncing.
// Used on app shutdown where losing the latest memory is worse than a
// redundant call.
func (s *Scheduler) SyncForced(ctx context.Context, convID string, history []types.ChatMessage, summary string, profile types.MemoryProfile) Result {
	return s.sync(ctx, convID, history, summary, profile, true)
}

// LastSignature returns the last successfully synced signature for a
// conversation, or "" when it has never synced. Persisted in the snapshot so
// gating survives restarts.
func (s *Scheduler) LastSignature(convID string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSig[convID]
}

// SetLastSignature restores a conversation's synced signature from a loaded
// snapshot.
func (s *Scheduler) SetLastSignature(convID, sig string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sig == "" {
		delete(s.lastSig, convID)
		return
	}
	s.lastSig[convID] = sig
}

// Forget drops the recorded signature for a conversation, forcing the next
// sync to reach the network. Called when history is cleared.
func (s *Scheduler) Forget(convID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.lastSig, convID)
	delete(s.lastSync, convID)
}

func (s *Scheduler) sync(ctx context.Context, convID string, history []types.ChatMessage, summary string, profile types.MemoryProfile, forced bool) Result {
	sig := s.Signature(history)

	if !forced {
		if skip, detail := s.shouldSkip(convID, sig); skip {
			s.count(ctx, StatusSkipped)
			return Result{Status: StatusSkipped, Detail: detail}
		}
	}
	if sig == "" {
		s.count(ctx, StatusSkipped)
		return Result{Status: StatusSkipped, Detail: "no new messages"}
	}

	windowed := s.trailingWindow(history)
	req := assist.MemoryRequest{
		CurrentSummary: summary,
		History:        windowed,
	}
	if !profile.IsEmpty() {
		p := profile
		req.CurrentProfile = &p
	}

	res, err := s.provider.UpdateMemorySummary(ctx, req)
	if err != nil {
		s.count(ctx, StatusFailed)
		slog.Warn("memory sync failed", "conversation", convID, "error", err)
		return Result{Status: StatusFailed, Detail: fmt.Sprintf("failed: %v", err)}
	}

	s.mu.Lock()
	s.lastSig[convID] = sig
	s.lastSync[convID] = s.now()
	s.mu.Unlock()

	out := Result{Applied: true}
	if res != nil {
		out.Summary = strings.TrimSpace(res.Summary)
		if res.Profile != nil {
			out.Profile = *res.Profile
		}
	}
	// An empty result still applies: memory is replaced wholesale, so a
	// history with nothing memorable clears what was stored before.
	if out.Summary == "" && out.Profile.IsEmpty() {
		out.Status = StatusUnchanged
		out.Detail = "no new memory info"
		s.count(ctx, StatusUnchanged)
		return out
	}

	out.Status = StatusSucceeded
	out.Detail = "succeeded"
	s.count(ctx, StatusSucceeded)
	slog.Debug("memory sync succeeded", "conversation", convID)
	return out
}

func (s *Scheduler) shouldSkip(convID, sig string) (bool, string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.lastSig[convID] == sig {
		return true, "no new messages"
	}
	if s.debounce > 0 {
		if last, ok := s.lastSync[convID]; ok && s.now().Sub(last) < s.debounce {
			return true, "debounced"
		}
	}
	return false, ""
}

// trailingWindow returns the last window messages with non-empty text,
// oldest first.
func (s *Scheduler) trailingWindow(history []types.ChatMessage) []types.ChatMessage {
	out := make([]types.ChatMessage, 0, s.window)
	for i := len(history) - 1; i >= 0 && len(out) < s.window; i-- {
		if strings.TrimSpace(history[i].Text) == "" {
			continue
		}
		out = append(out, history[i])
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func (s *Scheduler) count(ctx context.Context, status Status) {
	if s.metrics != nil {
		s.metrics.RecordMemorySync(ctx, string(status))
	}
}
