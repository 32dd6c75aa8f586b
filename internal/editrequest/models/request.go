package models

import (
	"time"

	tcmodels "punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
	dErrors "punchcard/pkg/domain-errors"
)

// Status of an edit request. Pending is the only non-terminal state.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// EditRequest is a proposed correction to the punch log, gated by manager
// approval.
//
// Invariants:
//   - Reason is non-empty: reviewers decide on the stated reason
//   - ProposedKind is a valid punch kind, ProposedTimestamp non-zero
//   - Status transitions Pending -> Approved or Pending -> Rejected exactly
//     once; terminal states are immutable
//   - TargetEventID nil means "add a missing entry" rather than "correct an
//     existing one"
type EditRequest struct {
	ID                id.RequestID       `json:"id"`
	UserID            id.UserID          `json:"user_id"`
	CompanyID         id.CompanyID       `json:"company_id"`
	TargetEventID     *id.EventID        `json:"target_event_id,omitempty"`
	ProposedKind      tcmodels.EventKind `json:"proposed_kind"`
	ProposedTimestamp time.Time          `json:"proposed_timestamp"`
	Reason            string             `json:"reason"`
	Status            Status             `json:"status"`
	ReviewerID        *id.UserID         `json:"reviewer_id,omitempty"`
	ReviewComments    string             `json:"review_comments,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
	DecidedAt         *time.Time         `json:"decided_at,omitempty"`
}

// NewEditRequest constructs a validated Pending request.
func NewEditRequest(requestID id.RequestID, userID id.UserID, companyID id.CompanyID, target *id.EventID, kind tcmodels.EventKind, ts time.Time, reason string, now time.Time) (*EditRequest, error) {
	if requestID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request id must not be nil")
	}
	if userID.IsNil() || companyID.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "request user and company ids must not be nil")
	}
	if target != nil && target.IsNil() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "target event id must not be the nil UUID")
	}
	if !kind.Valid() {
		return nil, dErrors.Newf(dErrors.CodeInvariantViolation, "unknown proposed kind %q", kind)
	}
	if ts.IsZero() {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "proposed timestamp must not be zero")
	}
	if reason == "" {
		return nil, dErrors.New(dErrors.CodeInvariantViolation, "a reason is required")
	}
	return &EditRequest{
		ID:                requestID,
		UserID:            userID,
		CompanyID:         companyID,
		TargetEventID:     target,
		ProposedKind:      kind,
		ProposedTimestamp: ts.UTC(),
		Reason:            reason,
		Status:            StatusPending,
		CreatedAt:         now.UTC(),
	}, nil
}

// CanDecide checks the request is still open for a decision.
func (r *EditRequest) CanDecide() error {
	if r.Status != StatusPending {
		return dErrors.Newf(dErrors.CodeInvalidState, "request is already %s", r.Status)
	}
	return nil
}

// ApplyDecision transitions the request to its terminal state. Call
// CanDecide first.
func (r *EditRequest) ApplyDecision(reviewerID id.UserID, approve bool, comments string, now time.Time) {
	if approve {
		r.Status = StatusApproved
	} else {
		r.Status = StatusRejected
	}
	reviewer := reviewerID
	r.ReviewerID = &reviewer
	r.ReviewComments = comments
	decidedAt := now.UTC()
	r.DecidedAt = &decidedAt
}
