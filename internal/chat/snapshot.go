package chat

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/parley-ai/parley/pkg/types"
)

// SnapshotKey is the single persistence key under which the whole aggregate
// snapshot is stored.
const SnapshotKey = "snapshot"

// migratedNotesCap bounds the notes list synthesized from a legacy
// plain-text summary.
const migratedNotesCap = 8

// snapshot is the persisted form of the aggregate: conversations with their
// messages, profiles and memory, plus the dictionary. All optional fields
// tolerate absence on read so older snapshots keep loading.
type snapshot struct {
	Conversations []conversationSnapshot     `json:"conversations"`
	Entries       []types.DictionaryEntry    `json:"dictionary_entries,omitempty"`
	Categories    []types.DictionaryCategory `json:"dictionary_categories,omitempty"`
}

type conversationSnapshot struct {
	Conversation types.Conversation       `json:"conversation"`
	Messages     []types.ChatMessage      `json:"messages,omitempty"`
	Profile      *types.AIProfileSettings `json:"profile,omitempty"`
	Summary      string                   `json:"memory_summary,omitempty"`
	Memory       *types.MemoryProfile     `json:"memory_profile,omitempty"`
	SyncedSig    string                   `json:"last_synced_signature,omitempty"`
}

// encodeSnapshot serialises a snapshot to its JSON blob form.
func encodeSnapshot(s snapshot) ([]byte, error) {
	blob, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("chat: encode snapshot: %w", err)
	}
	return blob, nil
}

// decodeSnapshot parses a snapshot blob and applies the legacy memory
// migration: conversations with a plain-text summary but no structured
// memory profile get one synthesized from the summary's bullet lines.
func decodeSnapshot(blob []byte) (snapshot, error) {
	var s snapshot
	if err := json.Unmarshal(blob, &s); err != nil {
		return snapshot{}, fmt.Errorf("chat: decode snapshot: %w", err)
	}
	for i := range s.Conversations {
		cs := &s.Conversations[i]
		if (cs.Memory == nil || cs.Memory.IsEmpty()) && cs.Summary != "" {
			cs.Memory = &types.MemoryProfile{Notes: summaryNotes(cs.Summary)}
		}
	}
	return s, nil
}

// summaryNotes converts a legacy plain-text summary into a notes list: one
// note per non-empty line, leading bullet dashes stripped, capped at
// [migratedNotesCap] items. Best-effort; it does not reconstruct the
// categorised lists the summary was originally distilled from.
func summaryNotes(summary string) []string {
	var notes []string
	for _, line := range strings.Split(summary, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "-"))
		if line == "" {
			continue
		}
		notes = append(notes, line)
		if len(notes) == migratedNotesCap {
			break
		}
	}
	return notes
}
