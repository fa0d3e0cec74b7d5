package hook

import (
	"context"
	"fmt"
	"sync"
)

type Func func(ctx context.Context) error

// Error wraps the failure of a single hook. Name is empty for unnamed
// hooks, in which case Index is the position among the unnamed ones.
type Error struct {
	Name  string
	Index int
	Err   error
}

func (e *Error) Error() string {
	if e.Name != "" {
		return fmt.Sprintf("hook %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("hook #%d: %v", e.Index, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Storage keeps the hooks of a single phase. Named hooks run first in
// the order their name was first registered, unnamed hooks after them
// in registration order.
type Storage struct {
	mu      sync.Mutex
	names   []string
	named   map[string]Func
	unnamed []Func
}

func New() *Storage {
	return &Storage{
		named: make(map[string]Func),
	}
}

// Register adds body. A name already present keeps its slot and gets
// the new body.
func (s *Storage) Register(name string, body Func) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if name == "" {
		s.unnamed = append(s.unnamed, body)
		return
	}

	if _, exists := s.named[name]; !exists {
		s.names = append(s.names, name)
	}
	s.named[name] = body
}

func (s *Storage) Has(name string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.named[name]
	return ok
}

func (s *Storage) Names() []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	names := make([]string, len(s.names))
	copy(names, s.names)
	return names
}

func (s *Storage) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	return len(s.names) + len(s.unnamed)
}

// Run executes every hook sequentially and stops at the first failure.
// Hooks registered while running are not picked up by this run.
func (s *Storage) Run(ctx context.Context) error {
	s.mu.Lock()
	names := make([]string, len(s.names))
	copy(names, s.names)
	named := make([]Func, len(names))
	for i, name := range names {
		named[i] = s.named[name]
	}
	unnamed := make([]Func, len(s.unnamed))
	copy(unnamed, s.unnamed)
	s.mu.Unlock()

	for i, body := range named {
		if err := body(ctx); err != nil {
			return &Error{Name: names[i], Index: i, Err: err}
		}
	}

	for i, body := range unnamed {
		if err := body(ctx); err != nil {
			return &Error{Index: i, Err: err}
		}
	}

	return nil
}
