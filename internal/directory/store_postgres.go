package directory

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	id "punchcard/pkg/domain"
	"punchcard/pkg/platform/sentinel"
)

// Postgres reads membership from the company_members table.
//
// Schema (external migration):
//
//	CREATE TABLE company_members (
//	    user_id    UUID NOT NULL,
//	    company_id UUID NOT NULL,
//	    role       TEXT NOT NULL,
//	    PRIMARY KEY (user_id, company_id)
//	);
type Postgres struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *Postgres {
	return &Postgres{db: db}
}

func (d *Postgres) ManagersOf(ctx context.Context, companyID id.CompanyID) ([]id.UserID, error) {
	query := `
		SELECT user_id
		FROM company_members
		WHERE company_id = $1 AND role IN ('manager', 'admin', 'owner')
		ORDER BY user_id
	`

	rows, err := d.db.QueryContext(ctx, query, uuid.UUID(companyID))
	if err != nil {
		return nil, fmt.Errorf("query managers: %w", err)
	}
	defer rows.Close()

	var managers []id.UserID
	for rows.Next() {
		var userID uuid.UUID
		if err := rows.Scan(&userID); err != nil {
			return nil, fmt.Errorf("scan manager: %w", err)
		}
		managers = append(managers, id.UserID(userID))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate managers: %w", err)
	}
	return managers, nil
}

func (d *Postgres) RoleOf(ctx context.Context, userID id.UserID, companyID id.CompanyID) (Role, error) {
	query := `SELECT role FROM company_members WHERE user_id = $1 AND company_id = $2`

	var role string
	err := d.db.QueryRowContext(ctx, query, uuid.UUID(userID), uuid.UUID(companyID)).Scan(&role)
	if errors.Is(err, sql.ErrNoRows) {
		return "", sentinel.ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("query role: %w", err)
	}
	return Role(role), nil
}
