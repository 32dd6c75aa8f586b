package request

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"punchcard/internal/editrequest/models"
	tcmodels "punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
	"punchcard/pkg/platform/sentinel"
)

// Postgres persists edit requests in the edit_requests table.
//
// Schema (external migration):
//
//	CREATE TABLE edit_requests (
//	    id              UUID PRIMARY KEY,
//	    user_id         UUID NOT NULL,
//	    company_id      UUID NOT NULL,
//	    target_event_id UUID,
//	    proposed_kind   TEXT NOT NULL,
//	    proposed_ts     TIMESTAMPTZ NOT NULL,
//	    reason          TEXT NOT NULL,
//	    status          TEXT NOT NULL DEFAULT 'pending',
//	    reviewer_id     UUID,
//	    review_comments TEXT NOT NULL DEFAULT '',
//	    created_at      TIMESTAMPTZ NOT NULL,
//	    decided_at      TIMESTAMPTZ
//	);
//	CREATE UNIQUE INDEX edit_requests_pending_target
//	    ON edit_requests (target_event_id) WHERE status = 'pending' AND target_event_id IS NOT NULL;
//	CREATE UNIQUE INDEX edit_requests_pending_addition
//	    ON edit_requests (user_id, proposed_kind, proposed_ts) WHERE status = 'pending' AND target_event_id IS NULL;
//	CREATE INDEX edit_requests_company_pending ON edit_requests (company_id) WHERE status = 'pending';
//
// The partial unique indexes make pending-uniqueness a database guarantee
// rather than a read-then-write race.
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

const requestColumns = "id, user_id, company_id, target_event_id, proposed_kind, proposed_ts, reason, status, reviewer_id, review_comments, created_at, decided_at"

func (s *Postgres) Create(ctx context.Context, req *models.EditRequest) error {
	query := `
		INSERT INTO edit_requests (` + requestColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	_, err := s.db.ExecContext(ctx, query,
		uuid.UUID(req.ID),
		uuid.UUID(req.UserID),
		uuid.UUID(req.CompanyID),
		nullableEventID(req.TargetEventID),
		string(req.ProposedKind),
		req.ProposedTimestamp,
		req.Reason,
		string(req.Status),
		nullableUserID(req.ReviewerID),
		req.ReviewComments,
		req.CreatedAt,
		nullableTime(req.DecidedAt),
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("insert edit request: %w", err)
	}
	return nil
}

func (s *Postgres) FindByID(ctx context.Context, requestID id.RequestID) (*models.EditRequest, error) {
	query := `SELECT ` + requestColumns + ` FROM edit_requests WHERE id = $1`
	req, err := scanRequest(s.db.QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, sentinel.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find edit request: %w", err)
	}
	return req, nil
}

func (s *Postgres) ListByUser(ctx context.Context, userID id.UserID, companyID id.CompanyID) ([]models.EditRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM edit_requests
		WHERE user_id = $1 AND company_id = $2
		ORDER BY created_at ASC, id ASC
	`
	return s.list(ctx, query, uuid.UUID(userID), uuid.UUID(companyID))
}

func (s *Postgres) ListPending(ctx context.Context, companyID id.CompanyID) ([]models.EditRequest, error) {
	query := `
		SELECT ` + requestColumns + `
		FROM edit_requests
		WHERE company_id = $1 AND status = 'pending'
		ORDER BY created_at ASC, id ASC
	`
	return s.list(ctx, query, uuid.UUID(companyID))
}

// Update persists a decision. The status guard in the WHERE clause makes the
// pending-to-terminal transition atomic; a second decision finds zero rows.
func (s *Postgres) Update(ctx context.Context, req *models.EditRequest) error {
	query := `
		UPDATE edit_requests
		SET status = $2, reviewer_id = $3, review_comments = $4, decided_at = $5
		WHERE id = $1 AND status = 'pending'
	`

	res, err := s.db.ExecContext(ctx, query,
		uuid.UUID(req.ID),
		string(req.Status),
		nullableUserID(req.ReviewerID),
		req.ReviewComments,
		nullableTime(req.DecidedAt),
	)
	if err != nil {
		return fmt.Errorf("update edit request: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update edit request: %w", err)
	}
	if affected == 0 {
		if _, err := s.FindByID(ctx, req.ID); errors.Is(err, sentinel.ErrNotFound) {
			return sentinel.ErrNotFound
		}
		return sentinel.ErrInvalidState
	}
	return nil
}

func (s *Postgres) list(ctx context.Context, query string, args ...any) ([]models.EditRequest, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query edit requests: %w", err)
	}
	defer rows.Close()

	var out []models.EditRequest
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan edit request: %w", err)
		}
		out = append(out, *req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate edit requests: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (*models.EditRequest, error) {
	var (
		req            models.EditRequest
		reqID, userID  uuid.UUID
		companyID      uuid.UUID
		target         uuid.NullUUID
		reviewer       uuid.NullUUID
		kind, status   string
		decidedAt      sql.NullTime
	)
	err := row.Scan(&reqID, &userID, &companyID, &target, &kind, &req.ProposedTimestamp,
		&req.Reason, &status, &reviewer, &req.ReviewComments, &req.CreatedAt, &decidedAt)
	if err != nil {
		return nil, err
	}
	req.ID = id.RequestID(reqID)
	req.UserID = id.UserID(userID)
	req.CompanyID = id.CompanyID(companyID)
	req.ProposedKind = tcmodels.EventKind(kind)
	req.Status = models.Status(status)
	req.ProposedTimestamp = req.ProposedTimestamp.UTC()
	req.CreatedAt = req.CreatedAt.UTC()
	if target.Valid {
		targetID := id.EventID(target.UUID)
		req.TargetEventID = &targetID
	}
	if reviewer.Valid {
		reviewerID := id.UserID(reviewer.UUID)
		req.ReviewerID = &reviewerID
	}
	if decidedAt.Valid {
		at := decidedAt.Time.UTC()
		req.DecidedAt = &at
	}
	return &req, nil
}

func nullableEventID(eventID *id.EventID) uuid.NullUUID {
	if eventID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*eventID), Valid: true}
}

func nullableUserID(userID *id.UserID) uuid.NullUUID {
	if userID == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*userID), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
