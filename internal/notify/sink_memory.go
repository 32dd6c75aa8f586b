package notify

import (
	"context"
	"sync"
)

// MemorySink collects tasks for assertions in tests.
type MemorySink struct {
	mu    sync.Mutex
	tasks []Task
	err   error
}

func NewMemorySink() *MemorySink {
	return &MemorySink{}
}

// FailWith makes every subsequent Notify return err.
func (s *MemorySink) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *MemorySink) Notify(_ context.Context, task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return s.err
	}
	s.tasks = append(s.tasks, task)
	return nil
}

// Tasks returns a copy of everything delivered so far.
func (s *MemorySink) Tasks() []Task {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}
