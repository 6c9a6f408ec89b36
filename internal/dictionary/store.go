// Package dictionary holds the learner's curated expressions and their
// categories.
//
// Entries are deduplicated by normalized text at creation time; categories
// have non-empty, case-insensitively unique names. Deleting a category
// cascades its id out of every entry's category set but leaves the entries
// intact. All methods are safe for concurrent use.
package dictionary

import (
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/parley-ai/parley/internal/textnorm"
	"github.com/parley-ai/parley/pkg/types"
)

var (
	// ErrDuplicateEntry is returned when a saved text normalizes equal to
	// an existing entry's text.
	ErrDuplicateEntry = errors.New("dictionary: entry already saved")

	// ErrEmptyName is returned when a category name is blank.
	ErrEmptyName = errors.New("dictionary: category name must not be empty")

	// ErrDuplicateCategory is returned when a category name matches an
	// existing one case-insensitively.
	ErrDuplicateCategory = errors.New("dictionary: category name already exists")

	// ErrEntryNotFound is returned when no entry has the given id.
	ErrEntryNotFound = errors.New("dictionary: entry not found")

	// ErrCategoryNotFound is returned when no category has the given id.
	ErrCategoryNotFound = errors.New("dictionary: category not found")
)

// FilterKind selects which entries a filtered view shows.
type FilterKind string

const (
	// FilterAll shows every entry.
	FilterAll FilterKind = "all"

	// FilterUncategorized shows entries with an empty category set.
	FilterUncategorized FilterKind = "uncategorized"

	// FilterCategory shows entries containing a specific category id.
	FilterCategory FilterKind = "category"
)

// Filter is the active entry filter. CategoryID is only meaningful when Kind
// is [FilterCategory].
type Filter struct {
	Kind       FilterKind
	CategoryID string
}

// SaveParams carries the inputs for saving a new entry.
type SaveParams struct {
	Kind         types.EntryKind
	Text         string
	OriginalText string
	Tone         string
	Nuance       string
	CategoryIDs  []string
	Corrections  []types.CorrectionPair
}

// Option is a functional option for [New].
type Option func(*Store)

// WithClock overrides the time source. Used in tests.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// WithOnChange registers a hook invoked after every successful mutation,
// outside the store lock. The aggregate uses it to flush the snapshot; the
// hook may call back into the store.
func WithOnChange(fn func()) Option {
	return func(s *Store) {
		s.onChange = fn
	}
}

// Store owns dictionary entries and categories.
type Store struct {
	mu         sync.Mutex
	entries    []types.DictionaryEntry    // most-recent-first
	categories []types.DictionaryCategory // creation order
	filter     Filter

	now      func() time.Time
	onChange func()

	phoneticThreshold float64
	fuzzyThreshold    float64
}

// New creates an empty Store. The initial filter is [FilterAll].
func New(opts ...Option) *Store {
	s := &Store{
		filter: Filter{Kind: FilterAll},
		now:    time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// SaveEntry inserts a new entry at the front of the list (most-recent-first
// ordering). It returns [ErrDuplicateEntry] when the text normalizes equal to
// an already-saved entry. Unknown category ids are dropped and duplicates in
// the id list collapse to one.
func (s *Store) SaveEntry(p SaveParams) (types.DictionaryEntry, error) {
	var changed bool
	defer s.notify(&changed)
	s.mu.Lock()
	defer s.mu.Unlock()

	key := textnorm.Key(p.Text)
	if key == "" {
		return types.DictionaryEntry{}, ErrDuplicateEntry
	}
	for _, e := range s.entries {
		if textnorm.Key(e.Text) == key {
			return types.DictionaryEntry{}, ErrDuplicateEntry
		}
	}

	entry := types.DictionaryEntry{
		ID:           uuid.NewString(),
		Kind:         p.Kind,
		Text:         p.Text,
		OriginalText: p.OriginalText,
		Tone:         p.Tone,
		Nuance:       p.Nuance,
		CreatedAt:    s.now(),
		CategoryIDs:  s.knownUniqueLocked(p.CategoryIDs),
		Corrections:  p.Corrections,
	}
	s.entries = append([]types.DictionaryEntry{entry}, s.entries...)
	changed = true
	return entry, nil
}

// DeleteEntry removes the entry with the given id.
func (s *Store) DeleteEntry(id string) error {
	var changed bool
	defer s.notify(&changed)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, e := range s.entries {
		if e.ID == id {
			s.entries = append(s.entries[:i], s.entries[i+1:]...)
			changed = true
			return nil
		}
	}
	return ErrEntryNotFound
}

// SetCategories replaces an entry's category set. Unknown ids are filtered
// out and duplicates collapse to one.
func (s *Store) SetCategories(entryID string, ids []string) error {
	var changed bool
	defer s.notify(&changed)
	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.entries {
		if s.entries[i].ID == entryID {
			s.entries[i].CategoryIDs = s.knownUniqueLocked(ids)
			changed = true
			return nil
		}
	}
	return ErrEntryNotFound
}

// CreateCategory appends a new category. Names must be non-empty after
// trimming and case-insensitively unique.
func (s *Store) CreateCategory(name string) (types.DictionaryCategory, error) {
	var changed bool
	defer s.notify(&changed)
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return types.DictionaryCategory{}, ErrEmptyName
	}
	if s.categoryNameTakenLocked(name, "") {
		return types.DictionaryCategory{}, ErrDuplicateCategory
	}

	cat := types.DictionaryCategory{
		ID:        uuid.NewString(),
		Name:      name,
		CreatedAt: s.now(),
	}
	s.categories = append(s.categories, cat)
	changed = true
	return cat, nil
}

// RenameCategory changes a category's name under the same validation rules
// as [Store.CreateCategory]. Renaming a category to a different casing of its
// own name is allowed.
func (s *Store) RenameCategory(id, name string) error {
	var changed bool
	defer s.notify(&changed)
	s.mu.Lock()
	defer s.mu.Unlock()

	name = strings.TrimSpace(name)
	if name == "" {
		return ErrEmptyName
	}
	if s.categoryNameTakenLocked(name, id) {
		return ErrDuplicateCategory
	}

	for i := range s.categories {
		if s.categories[i].ID == id {
			s.categories[i].Name = name
			changed = true
			return nil
		}
	}
	return ErrCategoryNotFound
}

// DeleteCategory removes a category, cascades its id out of every entry's
// category set, and resets the active filter to [FilterAll] when it pointed
// at the deleted category. Entries themselves are never deleted.
func (s *Store) DeleteCategory(id string) error {
	var changed bool
	defer s.notify(&changed)
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := -1
	for i, c := range s.categories {
		if c.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return ErrCategoryNotFound
	}
	s.categories = append(s.categories[:idx], s.categories[idx+1:]...)

	for i := range s.entries {
		ids := s.entries[i].CategoryIDs
		kept := ids[:0]
		for _, cid := range ids {
			if cid != id {
				kept = append(kept, cid)
			}
		}
		if len(kept) == 0 {
			s.entries[i].CategoryIDs = nil
		} else {
			s.entries[i].CategoryIDs = kept
		}
	}

	if s.filter.Kind == FilterCategory && s.filter.CategoryID == id {
		s.filter = Filter{Kind: FilterAll}
	}
	changed = true
	return nil
}

// SetFilter sets the active filter. A [FilterCategory] filter pointing at an
// unknown category falls back to [FilterAll].
func (s *Store) SetFilter(f Filter) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if f.Kind == FilterCategory && !s.categoryExistsLocked(f.CategoryID) {
		f = Filter{Kind: FilterAll}
	}
	s.filter = f
}

// Filter returns the active filter.
func (s *Store) Filter() Filter {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.filter
}

// Entries returns a copy of all entries, most recent first.
func (s *Store) Entries() []types.DictionaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.DictionaryEntry, len(s.entries))
	copy(out, s.entries)
	return out
}

// Categories returns a copy of all categories in creation order.
func (s *Store) Categories() []types.DictionaryCategory {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]types.DictionaryCategory, len(s.categories))
	copy(out, s.categories)
	return out
}

// FilteredEntries returns the entries visible under the active filter. The
// filter is a pure predicate over the entry list; no state changes.
func (s *Store) FilteredEntries() []types.DictionaryEntry {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]types.DictionaryEntry, 0, len(s.entries))
	for _, e := range s.entries {
		switch s.filter.Kind {
		case FilterUncategorized:
			if len(e.CategoryIDs) != 0 {
				continue
			}
		case FilterCategory:
			if !containsID(e.CategoryIDs, s.filter.CategoryID) {
				continue
			}
		}
		out = append(out, e)
	}
	return out
}

// State returns the raw entry and category slices for snapshotting.
func (s *Store) State() ([]types.DictionaryEntry, []types.DictionaryCategory) {
	return s.Entries(), s.Categories()
}

// Restore replaces the store contents from a loaded snapshot. The active
// filter resets to [FilterAll].
func (s *Store) Restore(entries []types.DictionaryEntry, categories []types.DictionaryCategory) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries = append([]types.DictionaryEntry(nil), entries...)
	s.categories = append([]types.DictionaryCategory(nil), categories...)
	s.filter = Filter{Kind: FilterAll}
}

// ---- helpers ----

// notify fires the onChange hook when *changed is true. Deferred before the
// lock is taken so it runs after the lock is released, letting the hook call
// back into the store.
func (s *Store) notify(changed *bool) {
	if *changed && s.onChange != nil {
		s.onChange()
	}
}

func (s *Store) categoryNameTakenLocked(name, exceptID string) bool {
	for _, c := range s.categories {
		if c.ID == exceptID {
			continue
		}
		if strings.EqualFold(c.Name, name) {
			return true
		}
	}
	return false
}

func (s *Store) categoryExistsLocked(id string) bool {
	for _, c := range s.categories {
		if c.ID == id {
			return true
		}
	}
	return false
}

// knownUniqueLocked filters ids down to known category ids, dropping
// duplicates while preserving order.
func (s *Store) knownUniqueLocked(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(ids))
	var out []string
	for _, id := range ids {
		if _, dup := seen[id]; dup {
			continue
		}
		if !s.categoryExistsLocked(id) {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func containsID(ids []string, id string) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
