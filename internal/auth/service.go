// Package auth signs the gateway into the ERP.
package auth

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/odyssey-erp/erpnext-gateway/internal/erp"
)

// SessionPort is the ERP session surface used by Service.
type SessionPort interface {
	Login(ctx context.Context, username, password string) (*erp.Session, error)
	Logout(ctx context.Context) error
	Session(ctx context.Context) (*erp.Session, error)
}

// Info describes the held session without exposing its credential.
type Info struct {
	ID            uuid.UUID `json:"id"`
	User          string    `json:"user,omitempty"`
	EstablishedAt time.Time `json:"established_at"`
}

// Service wraps authentication business rules.
type Service struct {
	sessions SessionPort
}

// NewService constructs a new Service.
func NewService(sessions SessionPort) *Service {
	return &Service{sessions: sessions}
}

// ValidateCredentials logs into the ERP, replacing any held session.
func (s *Service) ValidateCredentials(ctx context.Context, username, password string) (Info, error) {
	sess, err := s.sessions.Login(ctx, username, password)
	if err != nil {
		return Info{}, err
	}
	if sess.User == "" {
		sess.User = username
	}
	return infoOf(sess), nil
}

// Logout ends the held session.
func (s *Service) Logout(ctx context.Context) error {
	return s.sessions.Logout(ctx)
}

// Current returns the held session or erp.ErrNoSession.
func (s *Service) Current(ctx context.Context) (Info, error) {
	sess, err := s.sessions.Session(ctx)
	if err != nil {
		return Info{}, err
	}
	return infoOf(sess), nil
}

func infoOf(sess *erp.Session) Info {
	return Info{ID: sess.ID, User: sess.User, EstablishedAt: sess.EstablishedAt}
}
