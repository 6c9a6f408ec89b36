// Package types defines the shared types used across all Parley packages.
//
// These types form the lingua franca between the conversation store, the
// feedback coordinator, the dictionary, and the remote assistant providers.
// They are intentionally minimal; each package defines its own domain types,
// but cross-cutting data structures live here to avoid circular imports.
package types

import "time"

// Role identifies the author of a chat message.
type Role string

const (
	// RoleUser marks a message written by the learner.
	RoleUser Role = "user"

	// RoleAI marks a message written by the AI persona.
	RoleAI Role = "ai"
)

// ChatMessage is a single message in a conversation. Messages are immutable
// once created and are only ever appended to a conversation's ordered list.
type ChatMessage struct {
	// ID is the unique message identifier. Ephemeral per-message UI state
	// (feedback, translation, speech) is keyed by this value.
	ID string `json:"id"`

	// Role is the message author.
	Role Role `json:"role"`

	// Text is the message content.
	Text string `json:"text"`

	// Timestamp is the display-ready creation time (e.g., "14:03").
	Timestamp string `json:"timestamp"`
}

// Conversation is a persistent chat thread with one AI persona.
type Conversation struct {
	// ID is the unique conversation identifier.
	ID string `json:"id"`

	// Name is the display name of the thread.
	Name string `json:"name"`

	// LastMessage is the preview text of the most recent message.
	LastMessage string `json:"last_message"`

	// LastActivity is the display-ready time of the most recent activity.
	LastActivity string `json:"last_activity"`

	// UnreadCount is the number of messages received since the
	// conversation was last opened.
	UnreadCount int `json:"unread_count"`

	// Avatar is the avatar glyph shown in the conversation list.
	Avatar string `json:"avatar"`
}

// VoicePreset selects the TTS voice used for a persona. Only the enumerated
// presets are valid; unknown values fall back to [DefaultVoicePreset].
type VoicePreset string

const (
	VoiceAria    VoicePreset = "aria"
	VoiceCove    VoicePreset = "cove"
	VoiceEmber   VoicePreset = "ember"
	VoiceJuniper VoicePreset = "juniper"
	VoiceSol     VoicePreset = "sol"
)

// DefaultVoicePreset is used when a profile carries an unknown voice value.
const DefaultVoicePreset = VoiceAria

// IsValid reports whether v is one of the enumerated voice presets.
func (v VoicePreset) IsValid() bool {
	switch v {
	case VoiceAria, VoiceCove, VoiceEmber, VoiceJuniper, VoiceSol:
		return true
	}
	return false
}

// Register selects the Korean translation register for a persona.
type Register string

const (
	RegisterPolite Register = "polite"
	RegisterCasual Register = "casual"
)

// IsValid reports whether r is a recognised register.
func (r Register) IsValid() bool {
	return r == RegisterPolite || r == RegisterCasual
}

// PersonaTraits is the five-trait personality profile of an AI persona.
// Each trait is an integer in [1, 5]; out-of-range values are clamped.
type PersonaTraits struct {
	Warmth    int `json:"warmth"`
	Humor     int `json:"humor"`
	Formality int `json:"formality"`
	Curiosity int `json:"curiosity"`
	Patience  int `json:"patience"`
}

// Clamped returns a copy of t with every trait forced into [1, 5].
func (t PersonaTraits) Clamped() PersonaTraits {
	clamp := func(v int) int {
		if v < 1 {
			return 1
		}
		if v > 5 {
			return 5
		}
		return v
	}
	return PersonaTraits{
		Warmth:    clamp(t.Warmth),
		Humor:     clamp(t.Humor),
		Formality: clamp(t.Formality),
		Curiosity: clamp(t.Curiosity),
		Patience:  clamp(t.Patience),
	}
}

// AIProfileSettings is the per-conversation persona configuration. One profile
// exists per conversation, created lazily with [DefaultProfile] on first
// access and overwritten wholesale on save.
type AIProfileSettings struct {
	// Name is the persona's display name.
	Name string `json:"name"`

	// Avatar holds optional avatar image bytes.
	Avatar []byte `json:"avatar,omitempty"`

	// Voice is the TTS voice preset.
	Voice VoicePreset `json:"voice"`

	// Register is the Korean translation register.
	Register Register `json:"register"`

	// Traits is the persona's personality profile.
	Traits PersonaTraits `json:"traits"`
}

// DefaultProfile returns the profile used before the user customises a
// conversation's persona.
func DefaultProfile(name string) AIProfileSettings {
	return AIProfileSettings{
		Name:     name,
		Voice:    DefaultVoicePreset,
		Register: RegisterPolite,
		Traits:   PersonaTraits{Warmth: 3, Humor: 3, Formality: 3, Curiosity: 3, Patience: 3},
	}
}

// Normalized returns a copy of p with the voice preset replaced by
// [DefaultVoicePreset] when invalid, the register replaced by polite when
// invalid, and all traits clamped to [1, 5].
func (p AIProfileSettings) Normalized() AIProfileSettings {
	if !p.Voice.IsValid() {
		p.Voice = DefaultVoicePreset
	}
	if !p.Register.IsValid() {
		p.Register = RegisterPolite
	}
	p.Traits = p.Traits.Clamped()
	return p
}

// MemoryProfile holds structured long-term facts about the learner, inferred
// from conversation history. It is replaced wholesale by each successful
// remote summarisation.
type MemoryProfile struct {
	Hobbies      []string `json:"hobbies,omitempty"`
	Goals        []string `json:"goals,omitempty"`
	Projects     []string `json:"projects,omitempty"`
	Personality  []string `json:"personality,omitempty"`
	DailyRoutine []string `json:"daily_routine,omitempty"`
	Preferences  []string `json:"preferences,omitempty"`
	Background   []string `json:"background,omitempty"`
	Notes        []string `json:"notes,omitempty"`
}

// IsEmpty reports whether every list in the profile is empty.
func (p MemoryProfile) IsEmpty() bool {
	return len(p.Hobbies) == 0 &&
		len(p.Goals) == 0 &&
		len(p.Projects) == 0 &&
		len(p.Personality) == 0 &&
		len(p.DailyRoutine) == 0 &&
		len(p.Preferences) == 0 &&
		len(p.Background) == 0 &&
		len(p.Notes) == 0
}

// CorrectionPair is a single (wrong phrase, right phrase) edit suggested by
// grammar feedback. Reason is optional explanatory text.
type CorrectionPair struct {
	Wrong  string `json:"wrong"`
	Right  string `json:"right"`
	Reason string `json:"reason,omitempty"`
}

// FeedbackPoint is a structured critique of one phrase in a user message.
// Fix is an optional free-form instruction (e.g., `use 'went'`); see the
// rewrite package for how fixes are turned into replacements.
type FeedbackPoint struct {
	Part  string `json:"part"`
	Issue string `json:"issue,omitempty"`
	Fix   string `json:"fix,omitempty"`
}

// SentenceFeedback is a per-sentence comment from grammar feedback.
type SentenceFeedback struct {
	Sentence string `json:"sentence"`
	Comment  string `json:"comment"`
}

// FeedbackResult is the full grammar feedback payload for one user message.
type FeedbackResult struct {
	// HasErrors indicates whether the message contains grammatical errors.
	HasErrors bool `json:"has_errors"`

	// CorrectedText is the fully corrected version of the message.
	CorrectedText string `json:"corrected_text"`

	// Edits are the individual correction pairs behind CorrectedText.
	Edits []CorrectionPair `json:"edits,omitempty"`

	// Feedback is the overall prose feedback.
	Feedback string `json:"feedback"`

	// FeedbackPoints are per-phrase critiques with optional fixes.
	FeedbackPoints []FeedbackPoint `json:"feedback_points,omitempty"`

	// SentenceFeedback holds per-sentence comments.
	SentenceFeedback []SentenceFeedback `json:"sentence_feedback,omitempty"`

	// NaturalAlternative is a more native-sounding phrasing of the message.
	NaturalAlternative string `json:"natural_alternative"`

	// NaturalReason explains why the alternative sounds more natural.
	NaturalReason string `json:"natural_reason"`

	// NaturalRewrite is a looser native-style rewrite of the whole message.
	NaturalRewrite string `json:"natural_rewrite"`
}

// Alternative is one native-sounding alternative phrasing for a message.
type Alternative struct {
	Text   string `json:"text"`
	Tone   string `json:"tone"`
	Nuance string `json:"nuance"`
}

// EntryKind classifies a dictionary entry by its origin.
type EntryKind string

const (
	// KindNative marks an entry saved from a native alternative.
	KindNative EntryKind = "native"

	// KindGrammar marks an entry saved from a grammar correction.
	KindGrammar EntryKind = "grammar"
)

// DictionaryEntry is a user-curated saved expression.
type DictionaryEntry struct {
	// ID is the unique entry identifier.
	ID string `json:"id"`

	// Kind classifies the entry.
	Kind EntryKind `json:"kind"`

	// Text is the saved expression. No two entries may share a normalized
	// text; enforced at creation time.
	Text string `json:"text"`

	// OriginalText is the message text the entry originated from.
	OriginalText string `json:"original_text"`

	// Tone is a short tone label (e.g., "Casual").
	Tone string `json:"tone"`

	// Nuance is a nuance or explanation string.
	Nuance string `json:"nuance"`

	// CreatedAt is when the entry was saved.
	CreatedAt time.Time `json:"created_at"`

	// CategoryIDs is the set of category identifiers assigned to the entry.
	CategoryIDs []string `json:"category_ids,omitempty"`

	// Corrections preserves the correction pairs behind a grammar entry
	// for audit and display.
	Corrections []CorrectionPair `json:"corrections,omitempty"`
}

// DictionaryCategory is a user-created grouping for dictionary entries.
// Names are non-empty and case-insensitively unique.
type DictionaryCategory struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}
