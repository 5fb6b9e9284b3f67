package dialog

import (
	"sync"

	"traty/internal/core"
)

// State is a node of the dialogue state machine.
type State int

const (
	// StateIdle is the root menu; no flow is open.
	StateIdle State = iota
	StateAwaitingAmount
	StateAwaitingCategory
	StateAwaitingDescription
	StateAwaitingDateRange
	StateAwaitingCategoryFilter
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAwaitingAmount:
		return "awaiting_amount"
	case StateAwaitingCategory:
		return "awaiting_category"
	case StateAwaitingDescription:
		return "awaiting_description"
	case StateAwaitingDateRange:
		return "awaiting_date_range"
	case StateAwaitingCategoryFilter:
		return "awaiting_category_filter"
	}
	return "unknown"
}

// EntryDraft holds the fields collected so far by an entry flow. AmountSet
// and CategorySet track which fields are valid: Amount means nothing before
// the amount step completed, Category before the category step.
type EntryDraft struct {
	Amount      core.Money
	AmountSet   bool
	Category    string
	CategorySet bool
}

// Session is the transient per-user dialogue state. It lives only while a
// flow is open and is never persisted; a process restart silently resets
// every user to the root menu.
type Session struct {
	State State
	Draft EntryDraft
}

// Reset clears the session back to the root menu, dropping every partially
// collected field. A cancelled entry must leave no residue for a later one.
func (s *Session) Reset() {
	*s = Session{}
}

// Registry keys sessions by user id and serializes each user's transitions:
// the state machine is not reentrant, so two messages from one user must
// never run concurrently. Different users proceed in parallel.
type Registry struct {
	mu       sync.Mutex
	sessions map[int64]*userSlot
}

type userSlot struct {
	mu      sync.Mutex
	session Session
}

func NewRegistry() *Registry {
	return &Registry{sessions: make(map[int64]*userSlot)}
}

// Do runs fn with exclusive access to the user's session, holding the
// user's lock for the full transition including any store call.
func (r *Registry) Do(userID int64, fn func(s *Session)) {
	r.mu.Lock()
	slot, ok := r.sessions[userID]
	if !ok {
		slot = &userSlot{}
		r.sessions[userID] = slot
	}
	r.mu.Unlock()

	slot.mu.Lock()
	defer slot.mu.Unlock()
	fn(&slot.session)
}

// Snapshot returns a copy of the user's session, for inspection only.
func (r *Registry) Snapshot(userID int64) Session {
	var out Session
	r.Do(userID, func(s *Session) { out = *s })
	return out
}
