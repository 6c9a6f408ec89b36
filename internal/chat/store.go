// Package chat implements the conversation aggregate: the single owner of
// conversations, messages, per-conversation personas, and conversation
// memory. The dictionary lives inside the same aggregate and shares its
// snapshot.
//
// Every mutating call persists the full snapshot before it returns; there is
// no separate flush step for callers to remember. Persistence failures are
// logged and never propagate; losing a snapshot write is recoverable,
// crashing the conversation is not.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/internal/dictionary"
	"github.com/parley-ai/parley/internal/feedback"
	"github.com/parley-ai/parley/internal/memsync"
	"github.com/parley-ai/parley/internal/observe"
	"github.com/parley-ai/parley/pkg/persist"
	"github.com/parley-ai/parley/pkg/provider/assist"
	"github.com/parley-ai/parley/pkg/types"
)

// FallbackReply is appended as the AI message when the remote chat reply
// fails. The user always receives a response, even a degraded one.
const FallbackReply = "Sorry, I had trouble answering just now. Could you say that again?"

// Option is a functional option for [New].
type Option func(*Store)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithMetrics attaches a metrics instance.
func WithMetrics(m *observe.Metrics) Option {
	return func(s *Store) {
		s.metrics = m
	}
}

// WithCoordinator attaches the per-message state coordinator so the store
// can invalidate cached translations when a persona's register changes.
func WithCoordinator(c *feedback.Coordinator) Option {
	return func(s *Store) {
		s.coordinator = c
	}
}

// conversationState is everything the store tracks for one conversation.
type conversationState struct {
	conv     types.Conversation
	messages []types.ChatMessage
	profile  *types.AIProfileSettings // lazily created
	summary  string
	memory   types.MemoryProfile
}

// Store is the aggregate coordinator. All mutations to conversation- and
// message-scoped data go through it; it is the sole writer of the snapshot.
// Safe for concurrent use.
type Store struct {
	assistant   assist.Provider
	scheduler   *memsync.Scheduler
	snapshots   persist.Store
	dict        *dictionary.Store
	coordinator *feedback.Coordinator
	metrics     *observe.Metrics
	now         func() time.Time

	mu            sync.Mutex
	conversations map[string]*conversationState
	order         []string
}

// New creates a Store. The dictionary store is created inside the aggregate
// so its mutations flush the shared snapshot; access it via
// [Store.Dictionary].
func New(assistant assist.Provider, scheduler *memsync.Scheduler, snapshots persist.Store, opts ...Option) *Store {
	s := &Store{
		assistant:     assistant,
		scheduler:     scheduler,
		snapshots:     snapshots,
		now:           time.Now,
		conversations: make(map[string]*conversationState),
	}
	for _, o := range opts {
		o(s)
	}
	s.dict = dictionary.New(dictionary.WithOnChange(func() {
		s.persistSnapshot(context.Background())
	}))
	return s
}

// Dictionary returns the aggregate's dictionary store.
func (s *Store) Dictionary() *dictionary.Store {
	return s.dict
}

// Restore loads the snapshot and populates the aggregate. A missing snapshot
// or a decode failure starts the store from defaults instead of failing.
func (s *Store) Restore(ctx context.Context) {
	blob, err := s.snapshots.Load(ctx, SnapshotKey)
	if err != nil {
		if !errors.Is(err, persist.ErrNotFound) {
			slog.Warn("snapshot load failed, starting from defaults", "error", err)
		}
		return
	}
	snap, err := decodeSnapshot(blob)
	if err != nil {
		slog.Warn("snapshot decode failed, starting from defaults", "error", err)
		return
	}

	s.mu.Lock()
	for _, cs := range snap.Conversations {
		state := &conversationState{
			conv:     cs.Conversation,
			messages: cs.Messages,
			profile:  cs.Profile,
			summary:  cs.Summary,
		}
		if cs.Memory != nil {
			state.memory = *cs.Memory
		}
		s.conversations[cs.Conversation.ID] = state
		s.order = append(s.order, cs.Conversation.ID)
		s.scheduler.SetLastSignature(cs.Conversation.ID, cs.SyncedSig)
	}
	count := len(s.order)
	s.mu.Unlock()

	s.dict.Restore(snap.Entries, snap.Categories)
	if s.metrics != nil {
		s.metrics.ActiveConversations.Add(ctx, int64(count))
	}
	slog.Info("snapshot restored", "conversations", count)
}

// CreateConversation adds a new conversation thread.
func (s *Store) CreateConversation(name, avatar string) types.Conversation {
	s.mu.Lock()
	conv := types.Conversation{
		ID:     uuid.NewString(),
		Name:   name,
		Avatar: avatar,
	}
	s.conversations[conv.ID] = &conversationState{conv: conv}
	s.order = append(s.order, conv.ID)
	s.mu.Unlock()

	if s.metrics != nil {
		s.metrics.ActiveConversations.Add(context.Background(), 1)
	}
	s.persistSnapshot(context.Background())
	return conv
}

// Conversations returns all conversations in creation order.
func (s *Store) Conversations() []types.Conversation {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.Conversation, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.conversations[id].conv)
	}
	return out
}

// Messages returns a copy of a conversation's message list, oldest first.
func (s *Store) Messages(convID string) []types.ChatMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.conversations[convID]
	if !ok {
		return nil
	}
	out := make([]types.ChatMessage, len(state.messages))
	copy(out, state.messages)
	return out
}

// SendUserMessage appends the user's message and requests the persona's
// reply. A blank message is rejected with ok=false and nothing changes. The
// call blocks through the whole exchange; run it from a goroutine to keep a
// UI responsive. On reply failure the fixed [FallbackReply] is appended so
// the conversation never stalls silently. A completed exchange triggers a
// memory-sync pass, whose failure is non-fatal.
func (s *Store) SendUserMessage(ctx context.Context, convID, text string) (types.ChatMessage, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return types.ChatMessage{}, false
	}

	s.mu.Lock()
	state, ok := s.conversations[convID]
	if !ok {
		s.mu.Unlock()
		return types.ChatMessage{}, false
	}

	userMsg := types.ChatMessage{
		ID:        uuid.NewString(),
		Role:      types.RoleUser,
		Text:      text,
		Timestamp: s.timestamp(),
	}
	state.messages = append(state.messages, userMsg)
	state.conv.LastMessage = text
	state.conv.LastActivity = userMsg.Timestamp
	state.conv.UnreadCount = 0

	req := assist.ChatRequest{
		Message:       text,
		History:       append([]types.ChatMessage(nil), state.messages...),
		MemorySummary: state.summary,
		Persona:       s.profileLocked(state),
	}
	if !state.memory.IsEmpty() {
		m := state.memory
		req.MemoryProfile = &m
	}
	s.mu.Unlock()

	s.persistSnapshot(ctx)

	start := s.now()
	reply, err := s.assistant.ChatReply(ctx, req)
	s.observeChat(ctx, start, err)
	if err != nil {
		slog.Warn("chat reply failed, using fallback", "conversation", convID, "error", err)
		reply = FallbackReply
	}

	s.mu.Lock()
	aiMsg := types.ChatMessage{
		ID:        uuid.NewString(),
		Role:      types.RoleAI,
		Text:      reply,
		Timestamp: s.timestamp(),
	}
	state.messages = append(state.messages, aiMsg)
	state.conv.LastMessage = reply
	state.conv.LastActivity = aiMsg.Timestamp
	state.conv.UnreadCount++
	s.mu.Unlock()

	s.persistSnapshot(ctx)

	if err == nil {
		s.SyncMemory(ctx, convID, false)
	}
	return userMsg, true
}

// MarkConversationOpened resets a conversation's unread count without
// touching the last-message preview or activity time.
func (s *Store) MarkConversationOpened(convID string) {
	s.mu.Lock()
	state, ok := s.conversations[convID]
	if ok {
		state.conv.UnreadCount = 0
	}
	s.mu.Unlock()
	if ok {
		s.persistSnapshot(context.Background())
	}
}

// Profile returns a conversation's persona settings, creating the default
// lazily on first access.
func (s *Store) Profile(convID string) types.AIProfileSettings {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.conversations[convID]
	if !ok {
		return types.DefaultProfile("")
	}
	return *s.profileLocked(state)
}

// UpdateAIProfile overwrites a conversation's persona wholesale. The profile
// is normalized first (invalid voice falls back to the default preset,
// traits clamp to [1, 5]). A register change invalidates every cached
// translation in the conversation, since register affects phrasing.
func (s *Store) UpdateAIProfile(convID string, p types.AIProfileSettings) {
	p = p.Normalized()

	s.mu.Lock()
	state, ok := s.conversations[convID]
	if !ok {
		s.mu.Unlock()
		return
	}
	prev := s.profileLocked(state)
	registerChanged := prev.Register != p.Register
	state.profile = &p
	state.conv.Name = p.Name

	var messageIDs []string
	if registerChanged && s.coordinator != nil {
		messageIDs = make([]string, len(state.messages))
		for i, m := range state.messages {
			messageIDs[i] = m.ID
		}
	}
	s.mu.Unlock()

	if registerChanged && s.coordinator != nil {
		s.coordinator.InvalidateTranslations(messageIDs)
	}
	s.persistSnapshot(context.Background())
}

// ClearConversationHistory resets a conversation's message list. Memory is
// kept, but the sync signature is forgotten so the next exchange syncs
// fresh.
func (s *Store) ClearConversationHistory(convID string) {
	s.mu.Lock()
	state, ok := s.conversations[convID]
	if ok {
		state.messages = nil
		state.conv.LastMessage = ""
		state.conv.UnreadCount = 0
	}
	s.mu.Unlock()
	if !ok {
		return
	}
	s.scheduler.Forget(convID)
	s.persistSnapshot(context.Background())
}

// Memory returns a conversation's stored memory summary and profile.
func (s *Store) Memory(convID string) (string, types.MemoryProfile) {
	s.mu.Lock()
	defer s.mu.Unlock()
	state, ok := s.conversations[convID]
	if !ok {
		return "", types.MemoryProfile{}
	}
	return state.summary, state.memory
}

// SyncMemory runs a memory-sync pass for a conversation and applies the
// result. Forced syncs bypass signature gating. The returned result carries
// the display-ready status text.
func (s *Store) SyncMemory(ctx context.Context, convID string, forced bool) memsync.Result {
	s.mu.Lock()
	state, ok := s.conversations[convID]
	if !ok {
		s.mu.Unlock()
		return memsync.Result{Status: memsync.StatusSkipped, Detail: "no new messages"}
	}
	history := append([]types.ChatMessage(nil), state.messages...)
	summary, memory := state.summary, state.memory
	s.mu.Unlock()

	var res memsync.Result
	if forced {
		res = s.scheduler.SyncForced(ctx, convID, history, summary, memory)
	} else {
		res = s.scheduler.Sync(ctx, convID, history, summary, memory)
	}
	if !res.Applied {
		return res
	}

	s.mu.Lock()
	state.summary = res.Summary
	state.memory = res.Profile
	s.mu.Unlock()

	s.persistSnapshot(ctx)
	return res
}

// FlushAll force-syncs memory for every conversation and persists. Called on
// shutdown.
func (s *Store) FlushAll(ctx context.Context) {
	s.mu.Lock()
	ids := append([]string(nil), s.order...)
	s.mu.Unlock()

	for _, id := range ids {
		s.SyncMemory(ctx, id, true)
	}
	s.persistSnapshot(ctx)
}

// ---------------------------------------------------------------------------

// profileLocked returns the conversation's profile, creating the default on
// first access.
func (s *Store) profileLocked(state *conversationState) *types.AIProfileSettings {
	if state.profile == nil {
		p := types.DefaultProfile(state.conv.Name)
		state.profile = &p
	}
	return state.profile
}

func (s *Store) timestamp() string {
	return s.now().Format("15:04")
}

// persistSnapshot writes the full aggregate snapshot. Failures are logged,
// never returned; the in-memory state stays authoritative.
func (s *Store) persistSnapshot(ctx context.Context) {
	s.mu.Lock()
	snap := snapshot{}
	for _, id := range s.order {
		state := s.conversations[id]
		cs := conversationSnapshot{
			Conversation: state.conv,
			Messages:     append([]types.ChatMessage(nil), state.messages...),
			Profile:      state.profile,
			Summary:      state.summary,
			SyncedSig:    s.scheduler.LastSignature(id),
		}
		if !state.memory.IsEmpty() {
			m := state.memory
			cs.Memory = &m
		}
		snap.Conversations = append(snap.Conversations, cs)
	}
	s.mu.Unlock()

	snap.Entries, snap.Categories = s.dict.State()

	blob, err := encodeSnapshot(snap)
	if err != nil {
		slog.Error("snapshot encode failed", "error", err)
		return
	}
	if err := s.snapshots.Save(ctx, SnapshotKey, blob); err != nil {
		slog.Error("snapshot save failed", "error", err)
	}
}

func (s *Store) observeChat(ctx context.Context, start time.Time, err error) {
	if s.metrics == nil {
		return
	}
	s.metrics.AssistDuration.Record(ctx, s.now().Sub(start).Seconds())
	if err != nil {
		s.metrics.RecordRemoteRequest(ctx, "chat", "error")
		s.metrics.RecordRemoteError(ctx, "chat")
	} else {
		s.metrics.RecordRemoteRequest(ctx, "chat", "ok")
	}
}
