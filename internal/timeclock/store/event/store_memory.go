package event

import (
	"bytes"
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"punchcard/internal/timeclock/models"
	id "punchcard/pkg/domain"
	"punchcard/pkg/platform/sentinel"
)

// InMemory keeps the punch log in process memory. It backs unit tests and
// development; it intentionally favors clarity over performance.
type InMemory struct {
	mu     sync.RWMutex
	events map[id.EventID]models.TimeEvent
}

func NewInMemory() *InMemory {
	return &InMemory{events: make(map[id.EventID]models.TimeEvent)}
}

func (s *InMemory) Append(_ context.Context, ev *models.TimeEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.events[ev.ID]; exists {
		// Insert-if-absent contract: duplicate ids are silently ignored.
		return nil
	}
	s.events[ev.ID] = *ev
	return nil
}

func (s *InMemory) FindByID(_ context.Context, eventID id.EventID) (*models.TimeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ev, ok := s.events[eventID]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	out := ev
	return &out, nil
}

func (s *InMemory) Query(_ context.Context, userID id.UserID, companyID id.CompanyID, from, to time.Time) ([]models.TimeEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []models.TimeEvent
	for _, ev := range s.events {
		if ev.UserID != userID || ev.CompanyID != companyID {
			continue
		}
		if ev.Timestamp.Before(from) || !ev.Timestamp.Before(to) {
			continue
		}
		out = append(out, ev)
	}
	sortAscending(out)
	return out, nil
}

func (s *InMemory) ActiveUsers(_ context.Context, from, to time.Time) ([]UserRef, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[UserRef]struct{})
	for _, ev := range s.events {
		if ev.Timestamp.Before(from) || !ev.Timestamp.Before(to) {
			continue
		}
		seen[UserRef{UserID: ev.UserID, CompanyID: ev.CompanyID}] = struct{}{}
	}

	refs := make([]UserRef, 0, len(seen))
	for ref := range seen {
		refs = append(refs, ref)
	}
	// Deterministic order keeps closer runs and tests reproducible.
	sort.Slice(refs, func(i, j int) bool {
		a := uuid.UUID(refs[i].UserID)
		b := uuid.UUID(refs[j].UserID)
		return bytes.Compare(a[:], b[:]) < 0
	})
	return refs, nil
}

// Len reports the number of stored events. Test helper.
func (s *InMemory) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.events)
}

func sortAscending(events []models.TimeEvent) {
	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].Timestamp.Equal(events[j].Timestamp) {
			return events[i].Timestamp.Before(events[j].Timestamp)
		}
		a := uuid.UUID(events[i].ID)
		b := uuid.UUID(events[j].ID)
		return bytes.Compare(a[:], b[:]) < 0
	})
}
