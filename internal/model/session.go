package model

import "time"

type SessionType string

const (
	SessionWork       SessionType = "work"
	SessionShortBreak SessionType = "short_break"
	SessionLongBreak  SessionType = "long_break"
)

func ValidSessionType(t SessionType) bool {
	return t == SessionWork || t == SessionShortBreak || t == SessionLongBreak
}

func (t SessionType) IsBreak() bool {
	return t == SessionShortBreak || t == SessionLongBreak
}

// SessionRecord is one ledger entry per phase instance. DurationSeconds is the
// planned length at creation time and never changes afterwards. Exactly one of
// {open, CompletedAt set, CancelledAt set} holds; a record with either
// timestamp set is terminal.
type SessionRecord struct {
	ID              string      `json:"id"`
	UserID          string      `json:"userId"`
	TaskID          *string     `json:"taskId,omitempty"`
	Type            SessionType `json:"type"`
	DurationSeconds int         `json:"durationSeconds"`
	BreakTaken      bool        `json:"breakTaken"`
	BreakSkipped    bool        `json:"breakSkipped"`
	StartedAt       time.Time   `json:"startedAt"`
	CompletedAt     *time.Time  `json:"completedAt,omitempty"`
	CancelledAt     *time.Time  `json:"cancelledAt,omitempty"`
}

// Open reports whether the record is still the in-progress phase.
func (r *SessionRecord) Open() bool {
	return r.CompletedAt == nil && r.CancelledAt == nil
}

// SessionFilter narrows ledger queries. Zero values mean "no constraint".
type SessionFilter struct {
	Type          SessionType
	CompletedOnly bool
	From          *time.Time
	To            *time.Time
	Limit         int
}

// TimerSnapshot is the persisted state of one account's timer. Active and
// Paused are mutually exclusive; both false means idle. TargetEndTime is the
// wall-clock anchor the countdown is recomputed from and must be non-nil
// exactly while Active.
type TimerSnapshot struct {
	UserID           string      `json:"userId"`
	Active           bool        `json:"active"`
	Paused           bool        `json:"paused"`
	SessionType      SessionType `json:"sessionType"`
	RemainingSeconds int         `json:"remainingSeconds"`
	DurationSeconds  int         `json:"durationSeconds"`
	TargetEndTime    *time.Time  `json:"targetEndTime,omitempty"`
	CompletedToday   int         `json:"completedToday"`
	CompletedDay     string      `json:"completedDay"`
	CurrentTaskID    *string     `json:"currentTaskId,omitempty"`
	SessionRecordID  *string     `json:"sessionRecordId,omitempty"`
	Version          int         `json:"version"`
	UpdatedAt        time.Time   `json:"updatedAt"`
}

func (s *TimerSnapshot) Idle() bool {
	return !s.Active && !s.Paused
}
