package di

import (
	"context"
	"sync"

	"github.com/danpasecinic/trellis/internal/reflect"
)

// Entry is a registered component instance and its dependency edges.
type Entry struct {
	Key          string
	Identifier   string
	TypeKey      string
	Instance     any
	Dependencies []reflect.Field
	PostInject   func(ctx context.Context) error
	PostInjectID string

	post postInjectState
}

type postInjectState struct {
	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
}

// Done reports whether the post-inject method of the entry finished.
func (e *Entry) Done() bool {
	select {
	case <-e.post.done:
		return true
	default:
		return false
	}
}

// store is an insertion-ordered map of entries.
type store struct {
	keys    []string
	entries map[string]*Entry
}

func newStore() *store {
	return &store{entries: make(map[string]*Entry)}
}

func (s *store) put(e *Entry) {
	if _, exists := s.entries[e.Key]; !exists {
		s.keys = append(s.keys, e.Key)
	}
	s.entries[e.Key] = e
}

func (s *store) get(key string) (*Entry, bool) {
	e, ok := s.entries[key]
	return e, ok
}

func (s *store) list() []*Entry {
	out := make([]*Entry, 0, len(s.keys))
	for _, key := range s.keys {
		out = append(out, s.entries[key])
	}
	return out
}
