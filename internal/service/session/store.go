package session

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/shxuryaaz/Blackswan-BFSI-Chatbot/internal/model/loan"
)

// ErrNotFound is returned for unknown session identifiers.
var ErrNotFound = errors.New("session not found")

// Store is the process-wide session registry. Each entry carries its own
// mutex so one session processes messages strictly sequentially while
// different sessions proceed in parallel.
type Store struct {
	mu    sync.RWMutex
	items map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	sess *loan.Session
}

// NewStore bootstraps an empty in-memory registry.
func NewStore() *Store {
	return &Store{items: make(map[string]*entry)}
}

// Create provisions a fresh session in the INTAKE stage.
func (s *Store) Create() *loan.Session {
	sess := &loan.Session{
		ID:        uuid.NewString(),
		Stage:     loan.StageIntake,
		Log:       make([]loan.Turn, 0, 16),
		CreatedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.items[sess.ID] = &entry{sess: sess}
	s.mu.Unlock()

	return sess
}

// Acquire locks the session for exclusive processing of one inbound message
// and returns it with a release func. Callers must release promptly; the
// lock spans one message's full effect, never less.
func (s *Store) Acquire(id string) (*loan.Session, func(), error) {
	s.mu.RLock()
	e, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return nil, nil, ErrNotFound
	}

	e.mu.Lock()
	return e.sess, e.mu.Unlock, nil
}

// Get returns a point-in-time copy safe for read-only callers.
func (s *Store) Get(id string) (loan.Session, error) {
	s.mu.RLock()
	e, ok := s.items[id]
	s.mu.RUnlock()
	if !ok {
		return loan.Session{}, ErrNotFound
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sess.Snapshot(), nil
}

// Len reports the number of live sessions.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}
