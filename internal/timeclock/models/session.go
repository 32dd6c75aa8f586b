package models

import (
	"time"

	id "punchcard/pkg/domain"
)

// SessionStatus is the reconciled state of a user-day.
type SessionStatus string

const (
	StatusOff     SessionStatus = "off"
	StatusWorking SessionStatus = "working"
	StatusOnBreak SessionStatus = "on_break"
)

// Anomaly records an event that was not a legal transition from the state
// that preceded it. The event is skipped, never dropped from the log.
type Anomaly struct {
	EventID   id.EventID    `json:"event_id"`
	Kind      EventKind     `json:"kind"`
	Timestamp time.Time     `json:"timestamp"`
	State     SessionStatus `json:"state"`
	Reason    string        `json:"reason"`
}

// SessionDay is the reconciled view of one user's events within one calendar
// day. It is derived on demand and never persisted as authoritative state.
type SessionDay struct {
	Status        SessionStatus `json:"status"`
	WorkedSeconds int64         `json:"worked_seconds"`
	BreakSeconds  int64         `json:"break_seconds"`
	// OpenSince is the ClockIn that opened the live session, set only while
	// Working or OnBreak.
	OpenSince *time.Time `json:"open_since,omitempty"`
	Anomalies []Anomaly  `json:"anomalies,omitempty"`
}

// Worked returns the worked duration, break time excluded.
func (s SessionDay) Worked() time.Duration {
	return time.Duration(s.WorkedSeconds) * time.Second
}

// Break returns the accumulated break duration.
func (s SessionDay) Break() time.Duration {
	return time.Duration(s.BreakSeconds) * time.Second
}
