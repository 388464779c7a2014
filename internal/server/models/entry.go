// Package models holds the persistent records of AwayKeeper: away entries
// and per-guild settings.
package models

import "time"

// State is the lifecycle position of an entry relative to "now".
type State int

const (
	StateScheduled State = iota
	StateActive
	StateCompleted
)

func (s State) String() string {
	switch s {
	case StateScheduled:
		return "scheduled"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

// Entry is one declared absence. ReturnAt == nil means open-ended.
type Entry struct {
	ID            int64
	GuildID       string
	UserID        string
	LeaveAt       time.Time
	ReturnAt      *time.Time
	Reason        string
	TimezoneLabel string
	CreatedAt     time.Time
	CreatedBy     *string
}

// Valid reports whether the entry has a usable leave instant. Rows that came
// from damaged storage may not, and are skipped by aggregate computations.
func (e *Entry) Valid() bool {
	return e != nil && !e.LeaveAt.IsZero()
}

// OpenEnded reports whether no return instant is set.
func (e *Entry) OpenEnded() bool { return e.ReturnAt == nil }

// StateAt derives the state at now.
func (e *Entry) StateAt(now time.Time) State {
	if now.Before(e.LeaveAt) {
		return StateScheduled
	}
	if e.ReturnAt == nil || !e.ReturnAt.Before(now) {
		return StateActive
	}
	return StateCompleted
}

// ActiveAt is shorthand for StateAt(now) == StateActive.
func (e *Entry) ActiveAt(now time.Time) bool {
	return e.StateAt(now) == StateActive
}

// EndedAt reports whether the entry has a return strictly before now.
func (e *Entry) EndedAt(now time.Time) bool {
	return e.ReturnAt != nil && e.ReturnAt.Before(now)
}
