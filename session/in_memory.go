package session

import (
	"sync"

	"github.com/hupe1980/agentkit/core"
)

// InMemory is a volatile Session kept in process memory. It is safe for
// concurrent access. Returned slices are copies so callers cannot mutate
// the stored history.
type InMemory struct {
	id    string
	mu    sync.RWMutex
	items []core.Content
}

var _ Session = (*InMemory)(nil)

// NewInMemory constructs an empty in-memory session. An empty id gets a
// generated one.
func NewInMemory(id string) *InMemory {
	if id == "" {
		id = core.NewID()
	}
	return &InMemory{id: id}
}

// ID implements Session.
func (s *InMemory) ID() string { return s.id }

// Items implements Session.
func (s *InMemory) Items(limit int) ([]core.Content, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	items := s.items
	if limit > 0 && len(items) > limit {
		items = items[len(items)-limit:]
	}

	return core.CloneContents(items), nil
}

// AddItems implements Session.
func (s *InMemory) AddItems(items ...core.Content) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.items = append(s.items, core.CloneContents(items)...)

	return nil
}

// PopItem implements Session.
func (s *InMemory) PopItem() (*core.Content, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.items) == 0 {
		return nil, nil
	}

	last := s.items[len(s.items)-1]
	s.items = s.items[:len(s.items)-1]

	return &last, nil
}

// Clear implements Session.
func (s *InMemory) Clear() error {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()

	return nil
}

// Store hands out in-memory sessions by id, creating them lazily.
type Store struct {
	mu       sync.Mutex
	sessions map[string]*InMemory
}

// NewStore constructs an empty Store.
func NewStore() *Store {
	return &Store{sessions: make(map[string]*InMemory)}
}

// Get returns the session for id, creating it on first use.
func (st *Store) Get(id string) *InMemory {
	st.mu.Lock()
	defer st.mu.Unlock()

	sess, ok := st.sessions[id]
	if !ok {
		sess = NewInMemory(id)
		st.sessions[id] = sess
	}

	return sess
}

// Delete forgets the session for id.
func (st *Store) Delete(id string) {
	st.mu.Lock()
	delete(st.sessions, id)
	st.mu.Unlock()
}
