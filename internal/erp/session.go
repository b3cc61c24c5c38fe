package erp

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Session is the authenticated ERP session shared by the process.
type Session struct {
	ID            uuid.UUID `json:"id"`
	Token         string    `json:"token"`
	User          string    `json:"user,omitempty"`
	EstablishedAt time.Time `json:"established_at"`
}

// Valid reports whether the session carries a usable credential.
func (s *Session) Valid() bool {
	return s != nil && s.Token != "" && s.Token != guestSID
}

// SessionStore holds at most one active session.
type SessionStore interface {
	Load(ctx context.Context) (*Session, error)
	Save(ctx context.Context, sess *Session) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the session in process memory.
type MemoryStore struct {
	mu   sync.RWMutex
	sess *Session
}

// NewMemoryStore constructs an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// Load returns a copy of the held session, or nil.
func (m *MemoryStore) Load(ctx context.Context) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.sess == nil {
		return nil, nil
	}
	cp := *m.sess
	return &cp, nil
}

// Save replaces the held session.
func (m *MemoryStore) Save(ctx context.Context, sess *Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sess == nil {
		m.sess = nil
		return nil
	}
	cp := *sess
	m.sess = &cp
	return nil
}

// Clear drops the held session.
func (m *MemoryStore) Clear(ctx context.Context) error {
	m.mu.Lock()
	m.sess = nil
	m.mu.Unlock()
	return nil
}

func newSession(token, user string) *Session {
	return &Session{
		ID:            uuid.New(),
		Token:         token,
		User:          user,
		EstablishedAt: time.Now().UTC(),
	}
}
