// Package notify dispatches best-effort notifications. Delivery (email,
// push) happens downstream of the Kafka topic; punchcard only constructs
// tasks and hands them off. Failures are logged by callers, never escalated
// to fail the mutation they describe.
package notify

import (
	"context"
	"time"

	id "punchcard/pkg/domain"
)

// Category classifies a notification for downstream routing.
type Category string

const (
	// CategoryAutoClose summarizes the end-of-day closer run for a manager.
	CategoryAutoClose Category = "sessions_auto_closed"
	// CategoryEditDecided informs an employee their edit request was decided.
	CategoryEditDecided Category = "edit_request_decided"
)

// Task is one instruction to alert a recipient.
type Task struct {
	RecipientID id.UserID `json:"recipient_id"`
	Category    Category  `json:"category"`
	Summary     string    `json:"summary"`
	CreatedAt   time.Time `json:"created_at"`
}

// Sink delivers notification tasks. Fire-and-forget from the core's
// perspective.
type Sink interface {
	Notify(ctx context.Context, task Task) error
}
