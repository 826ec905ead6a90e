package session

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/quantumflow/agentflow/internal/models"
)

var (
	// ErrSessionNotFound indicates the requested session does not exist
	ErrSessionNotFound = errors.New("session not found")

	// ErrSessionExists indicates a session id is already taken
	ErrSessionExists = errors.New("session already exists")

	// ErrInvalidTransition indicates a status change the lifecycle does not allow
	ErrInvalidTransition = errors.New("invalid status transition")
)

var now = func() time.Time { return time.Now().UTC() }

// entry guards one session. turnMu serializes turns, mu guards the data.
type entry struct {
	turnMu sync.Mutex
	mu     sync.RWMutex
	ctx    *models.SessionContext
}

// Store owns every SessionContext for the lifetime of the process
type Store struct {
	mu        sync.RWMutex
	sessions  map[string]*entry
	byUser    map[string][]string
	userMu    sync.Mutex
	userLocks map[string]*sync.Mutex
}

// NewStore creates an empty session store
func NewStore() *Store {
	return &Store{
		sessions:  make(map[string]*entry),
		byUser:    make(map[string][]string),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// Create adds a new session. The store keeps its own copy.
func (s *Store) Create(c *models.SessionContext) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.sessions[c.SessionID]; exists {
		return fmt.Errorf("%w: %s", ErrSessionExists, c.SessionID)
	}

	s.sessions[c.SessionID] = &entry{ctx: c.Clone()}
	s.byUser[c.UserID] = append(s.byUser[c.UserID], c.SessionID)
	return nil
}

func (s *Store) lookup(sessionID string) (*entry, error) {
	s.mu.RLock()
	e, ok := s.sessions[sessionID]
	s.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, sessionID)
	}
	return e, nil
}

// Get returns a snapshot of the session
func (s *Store) Get(sessionID string) (*models.SessionContext, error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.ctx.Clone(), nil
}

// Update applies fn to the live session under its data lock.
// If fn returns an error the session is left untouched.
func (s *Store) Update(sessionID string, fn func(*models.SessionContext) error) error {
	e, err := s.lookup(sessionID)
	if err != nil {
		return err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	working := e.ctx.Clone()
	if err := fn(working); err != nil {
		return err
	}
	e.ctx = working
	return nil
}

// BeginTurn acquires the session's turn lock. The caller must invoke the
// returned release func when the turn is over.
func (s *Store) BeginTurn(sessionID string) (func(), error) {
	e, err := s.lookup(sessionID)
	if err != nil {
		return nil, err
	}
	e.turnMu.Lock()
	return e.turnMu.Unlock, nil
}

// LockUser serializes session starts for one user
func (s *Store) LockUser(userID string) func() {
	s.userMu.Lock()
	l, ok := s.userLocks[userID]
	if !ok {
		l = &sync.Mutex{}
		s.userLocks[userID] = l
	}
	s.userMu.Unlock()

	l.Lock()
	return l.Unlock
}

// ActiveForUser returns the ids of the user's sessions that are still active
func (s *Store) ActiveForUser(userID string) []string {
	s.mu.RLock()
	ids := append([]string(nil), s.byUser[userID]...)
	s.mu.RUnlock()

	var active []string
	for _, id := range ids {
		c, err := s.Get(id)
		if err != nil {
			continue
		}
		if c.Status == models.StatusActive {
			active = append(active, id)
		}
	}
	return active
}

// List returns snapshots of every session ordered by creation time
func (s *Store) List() []*models.SessionContext {
	return s.filter(func(*models.SessionContext) bool { return true })
}

// ListByStrategy returns snapshots of the sessions bound to a strategy
func (s *Store) ListByStrategy(strategyName string) []*models.SessionContext {
	return s.filter(func(c *models.SessionContext) bool {
		return c.StrategyName == strategyName
	})
}

// CountByStatus counts sessions currently in the given status
func (s *Store) CountByStatus(status models.SessionStatus) int {
	return len(s.filter(func(c *models.SessionContext) bool {
		return c.Status == status
	}))
}

// Len returns the number of stored sessions
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

func (s *Store) filter(keep func(*models.SessionContext) bool) []*models.SessionContext {
	s.mu.RLock()
	entries := make([]*entry, 0, len(s.sessions))
	for _, e := range s.sessions {
		entries = append(entries, e)
	}
	s.mu.RUnlock()

	out := make([]*models.SessionContext, 0, len(entries))
	for _, e := range entries {
		e.mu.RLock()
		if keep(e.ctx) {
			out = append(out, e.ctx.Clone())
		}
		e.mu.RUnlock()
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].SessionID < out[j].SessionID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}
