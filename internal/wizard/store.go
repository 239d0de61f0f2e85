package wizard

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type entry struct {
	owner string

	mu sync.Mutex
	ws Workspace
}

// Store keeps workspaces in memory, scoped by owner.
type Store struct {
	mu      sync.RWMutex
	entries map[string]*entry
}

func NewStore() *Store {
	return &Store{entries: make(map[string]*entry)}
}

// Create registers an empty workspace for owner.
func (s *Store) Create(owner string, now time.Time) Workspace {
	ws := newWorkspace(uuid.NewString(), owner, now)
	s.mu.Lock()
	s.entries[ws.ID] = &entry{owner: owner, ws: ws}
	s.mu.Unlock()
	return ws
}

// Get returns the current value of a workspace.
func (s *Store) Get(owner, id string) (Workspace, error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return Workspace{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.ws, nil
}

// Update applies fn under the workspace lock. The result replaces the stored
// value only when fn succeeds.
func (s *Store) Update(owner, id string, fn func(Workspace) (Workspace, error)) (Workspace, error) {
	e, err := s.lookup(owner, id)
	if err != nil {
		return Workspace{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	next, err := fn(e.ws)
	if err != nil {
		return e.ws, err
	}
	e.ws = next
	return next, nil
}

func (s *Store) Delete(owner, id string) error {
	if _, err := s.lookup(owner, id); err != nil {
		return err
	}
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()
	return nil
}

func (s *Store) lookup(owner, id string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok || e.owner != owner {
		return nil, ErrNotFound
	}
	return e, nil
}
