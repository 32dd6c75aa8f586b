package request

import (
	"bytes"
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"punchcard/internal/editrequest/models"
	id "punchcard/pkg/domain"
	"punchcard/pkg/platform/sentinel"
)

// InMemory keeps edit requests in process memory for tests and development.
type InMemory struct {
	mu       sync.RWMutex
	requests map[id.RequestID]models.EditRequest
}

func NewInMemory() *InMemory {
	return &InMemory{requests: make(map[id.RequestID]models.EditRequest)}
}

func (s *InMemory) Create(_ context.Context, req *models.EditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.requests[req.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.requests {
		if existing.Status != models.StatusPending {
			continue
		}
		if collides(&existing, req) {
			return sentinel.ErrConflict
		}
	}
	s.requests[req.ID] = *req
	return nil
}

func (s *InMemory) FindByID(_ context.Context, requestID id.RequestID) (*models.EditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[requestID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return &req, nil
}

func (s *InMemory) ListByUser(_ context.Context, userID id.UserID, companyID id.CompanyID) ([]models.EditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.EditRequest
	for _, req := range s.requests {
		if req.UserID == userID && req.CompanyID == companyID {
			out = append(out, req)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) ListPending(_ context.Context, companyID id.CompanyID) ([]models.EditRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.EditRequest
	for _, req := range s.requests {
		if req.CompanyID == companyID && req.Status == models.StatusPending {
			out = append(out, req)
		}
	}
	sortByCreation(out)
	return out, nil
}

func (s *InMemory) Update(_ context.Context, req *models.EditRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.requests[req.ID]
	if !ok {
		return sentinel.ErrNotFound
	}
	if stored.Status != models.StatusPending {
		return sentinel.ErrInvalidState
	}
	s.requests[req.ID] = *req
	return nil
}

// collides reports whether two requests cover the same correction target.
func collides(a, b *models.EditRequest) bool {
	if a.TargetEventID != nil && b.TargetEventID != nil {
		return *a.TargetEventID == *b.TargetEventID
	}
	if a.TargetEventID == nil && b.TargetEventID == nil {
		return a.UserID == b.UserID &&
			a.ProposedKind == b.ProposedKind &&
			a.ProposedTimestamp.Equal(b.ProposedTimestamp)
	}
	return false
}

func sortByCreation(requests []models.EditRequest) {
	sort.SliceStable(requests, func(i, j int) bool {
		if !requests[i].CreatedAt.Equal(requests[j].CreatedAt) {
			return requests[i].CreatedAt.Before(requests[j].CreatedAt)
		}
		a := uuid.UUID(requests[i].ID)
		b := uuid.UUID(requests[j].ID)
		return bytes.Compare(a[:], b[:]) < 0
	})
}
