package auth

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Manager starts, resolves and ends token-backed sessions.
type Manager struct {
	sessions SessionStore
	issuer   string
	key      string
	ttl      time.Duration
	now      func() time.Time
}

func NewManager(sessions SessionStore, issuer, key string, ttl time.Duration, now func() time.Time) *Manager {
	return &Manager{sessions: sessions, issuer: issuer, key: key, ttl: ttl, now: now}
}

// Start registers a new session for the user and returns its token.
func (m *Manager) Start(ctx context.Context, userID int64) (Token, error) {
	now := m.now()
	tok, err := Issue(userID, uuid.NewString(), m.issuer, m.key, now, m.ttl)
	if err != nil {
		return Token{}, errors.Wrap(err, "sign token")
	}
	err = m.sessions.Create(ctx, Session{
		ID:        tok.SessionID,
		UserID:    userID,
		CreatedAt: now,
		ExpiresAt: tok.ExpiresAt,
	})
	if err != nil {
		return Token{}, err
	}
	return tok, nil
}

// Resolve validates the token and checks that its session is still live.
// Bad or expired tokens and missing sessions match ErrNoSession; anything
// else is a backend failure.
func (m *Manager) Resolve(ctx context.Context, token string) (Session, error) {
	claims, err := Parse(token, m.key, m.issuer, m.now())
	if err != nil {
		return Session{}, errors.WithMessage(ErrNoSession, err.Error())
	}
	s, err := m.sessions.Get(ctx, claims.ID)
	if err != nil {
		return Session{}, err
	}
	if s.UserID != claims.UserID {
		return Session{}, ErrNoSession
	}
	return s, nil
}

// End revokes the session so its token stops working.
func (m *Manager) End(ctx context.Context, sessionID string) error {
	return m.sessions.Revoke(ctx, sessionID)
}
