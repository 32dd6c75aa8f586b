// Package event persists the append-only punch log.
//
// Append is insert-if-absent by event id: appending an id the store already
// holds is a no-op, never an error. The end-of-day closer and the edit
// request processor both derive deterministic ids for the events they write,
// so retried and concurrently-run jobs converge without duplicates.
package event

import (
	"context"
	"time"

	"punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
)

// UserRef identifies a user within a company.
type UserRef struct {
	UserID    id.UserID
	CompanyID id.CompanyID
}

// Store is the event log collaborator interface.
type Store interface {
	// Append inserts the event unless its id is already present.
	Append(ctx context.Context, ev *models.TimeEvent) error
	// FindByID returns the event or sentinel.ErrNotFound.
	FindByID(ctx context.Context, eventID id.EventID) (*models.TimeEvent, error)
	// Query returns the user's events with from <= timestamp < to, ordered
	// ascending by timestamp, ties broken by id.
	Query(ctx context.Context, userID id.UserID, companyID id.CompanyID, from, to time.Time) ([]models.TimeEvent, error)
	// ActiveUsers returns every user with at least one event in the range.
	ActiveUsers(ctx context.Context, from, to time.Time) ([]UserRef, error)
}
