package directory

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	id "punchcard/pkg/domain"
	"punchcard/pkg/platform/sentinel"
)

type memberKey struct {
	userID    id.UserID
	companyID id.CompanyID
}

// InMemory keeps company membership in process memory for tests and
// development.
type InMemory struct {
	mu      sync.RWMutex
	members map[memberKey]Role
}

func NewInMemory() *InMemory {
	return &InMemory{members: make(map[memberKey]Role)}
}

// Add registers or replaces a membership.
func (d *InMemory) Add(member Member) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.members[memberKey{userID: member.UserID, companyID: member.CompanyID}] = member.Role
}

func (d *InMemory) ManagersOf(_ context.Context, companyID id.CompanyID) ([]id.UserID, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	var managers []id.UserID
	for key, role := range d.members {
		if key.companyID == companyID && role.Managerial() {
			managers = append(managers, key.userID)
		}
	}
	sort.Slice(managers, func(i, j int) bool {
		a := uuid.UUID(managers[i])
		b := uuid.UUID(managers[j])
		return bytes.Compare(a[:], b[:]) < 0
	})
	return managers, nil
}

func (d *InMemory) RoleOf(_ context.Context, userID id.UserID, companyID id.CompanyID) (Role, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if role, ok := d.members[memberKey{userID: userID, companyID: companyID}]; ok {
		return role, nil
	}
	return "", sentinel.ErrNotFound
}
