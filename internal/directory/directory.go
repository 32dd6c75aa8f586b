// Package directory answers role questions about company members. Membership
// management itself lives in the surrounding platform; punchcard only reads.
package directory

import (
	"context"

	id "punchcard/pkg/domain"
)

// Role is a member's role within a company.
type Role string

const (
	RoleEmployee Role = "employee"
	RoleManager  Role = "manager"
	RoleAdmin    Role = "admin"
	RoleOwner    Role = "owner"
)

// Managerial reports whether the role receives closer summaries and may
// review edit requests.
func (r Role) Managerial() bool {
	switch r {
	case RoleManager, RoleAdmin, RoleOwner:
		return true
	}
	return false
}

// Member ties a user to a company with a role.
type Member struct {
	UserID    id.UserID
	CompanyID id.CompanyID
	Role      Role
}

// Directory is the role lookup collaborator interface.
type Directory interface {
	// ManagersOf returns every member of the company with a managerial role.
	ManagersOf(ctx context.Context, companyID id.CompanyID) ([]id.UserID, error)
	// RoleOf returns the member's role, or sentinel.ErrNotFound when the
	// user does not belong to the company.
	RoleOf(ctx context.Context, userID id.UserID, companyID id.CompanyID) (Role, error)
}
