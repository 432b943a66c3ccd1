package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

type entry struct {
	sess *Session
	ref  *ReferenceCache
}

// Store is the server-side session state: the signed-in user, their
// upstream token and their reference cache. Memory is authoritative while
// the process lives; the repository lets sessions outlive a restart.
type Store struct {
	repo Repository
	ttl  time.Duration
	log  *zap.Logger
	now  func() time.Time

	mu      sync.RWMutex
	entries map[uuid.UUID]*entry
}

func NewStore(repo Repository, ttl time.Duration, log *zap.Logger) *Store {
	return &Store{
		repo:    repo,
		ttl:     ttl,
		log:     log,
		now:     time.Now,
		entries: make(map[uuid.UUID]*entry),
	}
}

func (s *Store) Create(ctx context.Context, user domain.User, token string) (*Session, error) {
	if !user.Role.IsValid() {
		return nil, domain.ErrUnknownRole
	}
	now := s.now()
	sess := &Session{
		ID:        uuid.New(),
		User:      user,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(s.ttl),
	}
	if err := s.repo.Save(ctx, sess); err != nil {
		return nil, fmt.Errorf("persisting session: %w", err)
	}

	s.mu.Lock()
	s.entries[sess.ID] = &entry{sess: sess, ref: NewReferenceCache()}
	s.mu.Unlock()
	return sess, nil
}

// Get returns a live session from memory, falling back to the repository.
func (s *Store) Get(ctx context.Context, id uuid.UUID) (*Session, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()

	if !ok {
		sess, err := s.repo.Find(ctx, id)
		if err != nil {
			return nil, err
		}
		e = &entry{sess: sess, ref: NewReferenceCache()}
		s.mu.Lock()
		if existing, ok := s.entries[id]; ok {
			e = existing
		} else {
			s.entries[id] = e
		}
		s.mu.Unlock()
	}

	if e.sess.Expired(s.now()) {
		_ = s.Destroy(ctx, id)
		return nil, ErrExpired
	}
	return e.sess, nil
}

// Destroy removes the session and its reference cache.
func (s *Store) Destroy(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	delete(s.entries, id)
	s.mu.Unlock()

	if err := s.repo.Delete(ctx, id); err != nil && !errors.Is(err, ErrNotFound) {
		return fmt.Errorf("deleting session: %w", err)
	}
	return nil
}

// Reference returns the reference cache of a session held in memory.
func (s *Store) Reference(id uuid.UUID) (*ReferenceCache, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.entries[id]
	if !ok {
		return nil, false
	}
	return e.ref, true
}

// Token implements upstream.TokenSource: the token of the session carried
// by ctx, else the persisted copy.
func (s *Store) Token(ctx context.Context) (string, bool) {
	sess, ok := FromContext(ctx)
	if !ok {
		return "", false
	}
	if sess.Token != "" {
		return sess.Token, true
	}
	stored, err := s.repo.Find(ctx, sess.ID)
	if err != nil || stored.Token == "" {
		return "", false
	}
	return stored.Token, true
}

// Purge drops expired sessions from memory and storage.
func (s *Store) Purge(ctx context.Context) (int64, error) {
	now := s.now()
	s.mu.Lock()
	for id, e := range s.entries {
		if e.sess.Expired(now) {
			delete(s.entries, id)
		}
	}
	s.mu.Unlock()
	return s.repo.DeleteExpired(ctx, now)
}

// RunJanitor purges expired sessions every interval until ctx is done.
func (s *Store) RunJanitor(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n, err := s.Purge(ctx)
			if err != nil {
				s.log.Error("purging expired sessions", zap.Error(err))
				continue
			}
			if n > 0 {
				s.log.Info("purged expired sessions", zap.Int64("count", n))
			}
		}
	}
}
