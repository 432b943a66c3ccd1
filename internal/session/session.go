package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

var (
	ErrNotFound = errors.New("session not found")
	ErrExpired  = errors.New("session expired")
)

// Session is one signed-in browser. Token is the upstream bearer token.
type Session struct {
	ID        uuid.UUID
	User      domain.User
	Token     string
	CreatedAt time.Time
	ExpiresAt time.Time
}

func (s *Session) Expired(now time.Time) bool {
	return !now.Before(s.ExpiresAt)
}

type ctxKey struct{}

func WithSession(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

func FromContext(ctx context.Context) (*Session, bool) {
	s, ok := ctx.Value(ctxKey{}).(*Session)
	return s, ok && s != nil
}

// Repository persists sessions so they survive a restart.
type Repository interface {
	Save(ctx context.Context, s *Session) error
	Find(ctx context.Context, id uuid.UUID) (*Session, error)
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
