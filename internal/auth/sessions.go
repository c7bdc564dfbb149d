package auth

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// ErrNoSession is returned for unknown, expired or revoked sessions.
var ErrNoSession = errors.New("session not found")

type Session struct {
	ID        string    `json:"id"`
	UserID    int64     `json:"user_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SessionStore is the server-side session registry.
type SessionStore interface {
	Create(ctx context.Context, s Session) error
	Get(ctx context.Context, id string) (Session, error)
	Revoke(ctx context.Context, id string) error
}

// RedisSessions keeps sessions as JSON values that expire with the session.
type RedisSessions struct {
	client *redis.Client
	now    func() time.Time
}

func NewRedisSessions(client *redis.Client, now func() time.Time) *RedisSessions {
	return &RedisSessions{client: client, now: now}
}

func redisKey(id string) string { return "clubhub:session:" + id }

func (r *RedisSessions) Create(ctx context.Context, s Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return errors.New("session already expired")
	}
	payload, err := json.Marshal(s)
	if err != nil {
		return err
	}
	return errors.Wrap(r.client.Set(ctx, redisKey(s.ID), payload, ttl).Err(), "store session")
}

func (r *RedisSessions) Get(ctx context.Context, id string) (Session, error) {
	raw, err := r.client.Get(ctx, redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return Session{}, ErrNoSession
	}
	if err != nil {
		return Session{}, errors.Wrap(err, "load session")
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, errors.Wrap(err, "decode session")
	}
	return s, nil
}

func (r *RedisSessions) Revoke(ctx context.Context, id string) error {
	return errors.Wrap(r.client.Del(ctx, redisKey(id)).Err(), "revoke session")
}

// MemorySessions is an in-process registry for tests and single-node runs.
type MemorySessions struct {
	mu       sync.Mutex
	now      func() time.Time
	sessions map[string]Session
}

func NewMemorySessions(now func() time.Time) *MemorySessions {
	return &MemorySessions{now: now, sessions: make(map[string]Session)}
}

func (m *MemorySessions) Create(_ context.Context, s Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[s.ID] = s
	return nil
}

func (m *MemorySessions) Get(_ context.Context, id string) (Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[id]
	if !ok {
		return Session{}, ErrNoSession
	}
	if !m.now().Before(s.ExpiresAt) {
		delete(m.sessions, id)
		return Session{}, ErrNoSession
	}
	return s, nil
}

func (m *MemorySessions) Revoke(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, id)
	return nil
}
