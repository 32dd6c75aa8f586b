// Package request persists edit requests. Pending-uniqueness is enforced
// here: at most one pending request may exist per target event, and per
// (user, proposed timestamp, proposed kind) triple for additions.
package request

import (
	"context"

	"punchcard/internal/editrequest/models"
	id "punchcard/pkg/domain"
)

// Store is the edit-request persistence interface.
//
// Create returns sentinel.ErrConflict when a pending request already covers
// the same target event or, for additions, the same (user, timestamp, kind)
// triple. Update returns sentinel.ErrInvalidState when the stored request is
// no longer pending, which is what makes concurrent decisions lose cleanly.
type Store interface {
	Create(ctx context.Context, req *models.EditRequest) error
	FindByID(ctx context.Context, requestID id.RequestID) (*models.EditRequest, error)
	ListByUser(ctx context.Context, userID id.UserID, companyID id.CompanyID) ([]models.EditRequest, error)
	ListPending(ctx context.Context, companyID id.CompanyID) ([]models.EditRequest, error)
	Update(ctx context.Context, req *models.EditRequest) error
}
