package session

import (
	"github.com/google/uuid"

	"github.com/forjaquest/forja-engine/pkg/scenario"
)

// EntryKind tags each interaction log entry. Pending and Failed are
// distinct kinds, so an entry can never be pending and errored at once.
type EntryKind int

const (
	EntryConfirmed EntryKind = iota // server-confirmed interaction
	EntryPending                    // optimistic, awaiting confirmation
	EntryFailed                     // terminal, submit failed
	EntryScene                      // synthetic scene media card
	EntryIntro                      // synthetic narrated introduction
)

// Entry is one position in the interaction log. Which fields are
// meaningful depends on Kind; entries are only built by Log operations.
type Entry struct {
	Kind EntryKind

	// Confirmed entries.
	Interaction *Interaction

	// Pending and Failed entries.
	ClientID    string
	PlayerInput string
	InputType   string
	Response    string // failure message, or intro narration text

	// Scene entries.
	SceneName     string
	SceneImageURL string
	SceneVideoURL string
}

// Log is the strictly append-ordered interaction sequence, oldest
// first. It mixes confirmed server records, at most one live pending
// entry per in-flight request, and synthetic scene/intro entries that
// never hit the server. Callers serialize mutations (the UI disables
// concurrent sends), so the log needs no locking.
type Log struct {
	entries []Entry
}

// NewLog returns an empty interaction log.
func NewLog() *Log {
	return &Log{}
}

// LoadHistory replaces the log with confirmed entries. The backend
// returns history newest-first; it is reversed to oldest-first here.
func (l *Log) LoadHistory(newestFirst []Interaction) {
	l.entries = make([]Entry, 0, len(newestFirst))
	for i := len(newestFirst) - 1; i >= 0; i-- {
		in := newestFirst[i]
		l.entries = append(l.entries, Entry{Kind: EntryConfirmed, Interaction: &in})
	}
}

// AppendPending appends an optimistic entry for an in-flight request
// and returns its client-local identifier.
func (l *Log) AppendPending(playerInput, inputType string) string {
	clientID := uuid.New().String()
	l.entries = append(l.entries, Entry{
		Kind:        EntryPending,
		ClientID:    clientID,
		PlayerInput: playerInput,
		InputType:   inputType,
	})
	return clientID
}

// InsertSceneBefore splices a synthetic scene card immediately before
// the pending entry, when the scenario is non-nil, has media, and
// differs from the most recent scene card already in the log. Repeated
// calls for the same scenario name are no-ops. Media URLs are resolved
// against baseURL.
func (l *Log) InsertSceneBefore(pendingID string, sc *scenario.Scenario, baseURL string) bool {
	if !sc.HasMedia() {
		return false
	}
	if sc.Name == l.lastSceneName() {
		return false
	}
	idx := l.indexOf(pendingID)
	if idx < 0 {
		return false
	}

	entry := Entry{
		Kind:          EntryScene,
		SceneName:     sc.Name,
		SceneImageURL: scenario.ResolveMediaURL(baseURL, sc.ImageURL),
		SceneVideoURL: scenario.ResolveMediaURL(baseURL, sc.VideoURL),
	}
	l.entries = append(l.entries, Entry{})
	copy(l.entries[idx+1:], l.entries[idx:])
	l.entries[idx] = entry
	return true
}

// ReplacePending swaps the pending entry for the confirmed record,
// preserving its position. Unknown IDs (already resolved) are no-ops.
func (l *Log) ReplacePending(pendingID string, confirmed Interaction) bool {
	idx := l.indexOf(pendingID)
	if idx < 0 {
		return false
	}
	l.entries[idx] = Entry{Kind: EntryConfirmed, Interaction: &confirmed}
	return true
}

// MarkError resolves the pending entry in place to a terminal failed
// entry carrying the error message as its response.
func (l *Log) MarkError(pendingID, message string) bool {
	idx := l.indexOf(pendingID)
	if idx < 0 {
		return false
	}
	e := l.entries[idx]
	e.Kind = EntryFailed
	e.Response = message
	l.entries[idx] = e
	return true
}

// SeedIntro appends the synthetic opening of a brand-new session: a
// scene card when the intro scenario has media, then an intro entry
// whose narration is introText. No-op without an intro scenario.
func (l *Log) SeedIntro(intro *scenario.Scenario, introText, baseURL string) {
	if intro == nil {
		return
	}
	if intro.HasMedia() {
		l.entries = append(l.entries, Entry{
			Kind:          EntryScene,
			SceneName:     intro.Name,
			SceneImageURL: scenario.ResolveMediaURL(baseURL, intro.ImageURL),
			SceneVideoURL: scenario.ResolveMediaURL(baseURL, intro.VideoURL),
		})
	}
	l.entries = append(l.entries, Entry{
		Kind:      EntryIntro,
		ClientID:  uuid.New().String(),
		SceneName: intro.Name,
		Response:  introText,
	})
}

// HasIntro reports whether the log already carries an intro entry.
func (l *Log) HasIntro() bool {
	for _, e := range l.entries {
		if e.Kind == EntryIntro {
			return true
		}
	}
	return false
}

// HasPending reports whether a request is still in flight.
func (l *Log) HasPending() bool {
	for _, e := range l.entries {
		if e.Kind == EntryPending {
			return true
		}
	}
	return false
}

// Entries returns a copy of the log, oldest first.
func (l *Log) Entries() []Entry {
	out := make([]Entry, len(l.entries))
	copy(out, l.entries)
	return out
}

// Len returns the number of log entries.
func (l *Log) Len() int {
	return len(l.entries)
}

// Last returns the most recent entry, or nil for an empty log.
func (l *Log) Last() *Entry {
	if len(l.entries) == 0 {
		return nil
	}
	e := l.entries[len(l.entries)-1]
	return &e
}

func (l *Log) indexOf(clientID string) int {
	if clientID == "" {
		return -1
	}
	for i, e := range l.entries {
		if (e.Kind == EntryPending || e.Kind == EntryFailed) && e.ClientID == clientID {
			return i
		}
	}
	return -1
}

// lastSceneName returns the name on the most recent scene card, or "".
func (l *Log) lastSceneName() string {
	for i := len(l.entries) - 1; i >= 0; i-- {
		if l.entries[i].Kind == EntryScene {
			return l.entries[i].SceneName
		}
	}
	return ""
}
