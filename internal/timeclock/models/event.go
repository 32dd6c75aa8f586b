package models

import (
	"time"

	id "punchcard/pkg/domain"
	dErrors "punchcard/pkg/domain-errors"
)

// EventKind is the punch type of a TimeEvent.
type EventKind string

const (
	KindClockIn    EventKind = "clock_in"
	KindClockOut   EventKind = "clock_out"
	KindBreakStart EventKind = "break_start"
	KindBreakEnd   EventKind = "break_end"
)

// Valid reports whether k is one of the four punch kinds.
func (k EventKind) Valid() bool {
	switch k {
	case KindClockIn, KindClockOut, KindBreakStart, KindBreakEnd:
		return true
	}
	return false
}

// ParseEventKind validates a wire-level kind string.
func ParseEventKind(s string) (EventKind, error) {
	k := EventKind(s)
	if !k.Valid() {
		return "", dErrors.Newf(dErrors.CodeInvalidInput, "unknown event kind %q", s)
	}
	return k, nil
}

// CreatedVia records the provenance of an event. The event log is
// append-only, so provenance is the only way to tell a real punch from a
// synthetic or corrected one.
type CreatedVia string

const (
	ViaManual    CreatedVia = "manual"
	ViaAutoClose CreatedVia = "system-auto-close"
	ViaEdit      CreatedVia = "edit-approved"
)

// Geolocation is an optional punch location snapshot.
type Geolocation struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// TimeEvent is one punch record.
//
// Invariants:
//   - ID, UserID, CompanyID are non-nil
//   - Kind is one of the four punch kinds
//   - Timestamp is a non-zero UTC instant
//
// The store never enforces sequence validity; the reconciler detects and
// reports out-of-order transitions as anomalies.
type TimeEvent struct {
	ID         id.EventID   `json:"id"`
	UserID     id.UserID    `json:"user_id"`
	CompanyID  id.CompanyID `json:"company_id"`
	Kind       EventKind    `json:"kind"`
	Timestamp  time.Time    `json:"timestamp"`
	Geo        *Geolocation `json:"geo,omitempty"`
	Note       string       `json:"note,omitempty"`
	CreatedVia CreatedVia   `json:"created_via"`
	Device     string       `json:"device,omitempty"`
}

// NewTimeEvent constructs a validated TimeEvent with the timestamp
// normalized to UTC.
func NewTimeEvent(eventID id.EventID, userID id.UserID, companyID id.CompanyID, kind EventKind, ts time.Time, via CreatedVia) (*TimeEvent, error) {
	if eventID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event id must not be nil")
	}
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event user id must not be nil")
	}
	if companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event company id must not be nil")
	}
	if !kind.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown event kind %q", kind)
	}
	if ts.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "event timestamp must not be zero")
	}
	switch via {
	case ViaManual, ViaAutoClose, ViaEdit:
	default:
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown provenance %q", via)
	}
	return &TimeEvent{
		ID:         eventID,
		UserID:     userID,
		CompanyID:  companyID,
		Kind:       kind,
		Timestamp:  ts.UTC(),
		CreatedVia: via,
	}, nil
}
