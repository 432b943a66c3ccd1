package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/session"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/upstream"
)

// ReferenceService fills a session's doctor and product pickers from the
// rep's "my data" endpoint.
type ReferenceService struct {
	api   *upstream.Client
	store *session.Store
	log   *zap.Logger
}

func NewReferenceService(api *upstream.Client, store *session.Store, log *zap.Logger) *ReferenceService {
	return &ReferenceService{api: api, store: store, log: log}
}

// Cache returns the reference cache of sess. A session restored from storage
// gets an empty cache.
func (s *ReferenceService) Cache(ctx context.Context, sess *session.Session) (*session.ReferenceCache, error) {
	if c, ok := s.store.Reference(sess.ID); ok {
		return c, nil
	}
	if _, err := s.store.Get(ctx, sess.ID); err != nil {
		return nil, err
	}
	c, ok := s.store.Reference(sess.ID)
	if !ok {
		return nil, session.ErrNotFound
	}
	return c, nil
}

// Load returns the session's reference data, fetching it on first use.
func (s *ReferenceService) Load(ctx context.Context, sess *session.Session) (session.Reference, error) {
	c, err := s.Cache(ctx, sess)
	if err != nil {
		return session.Reference{}, err
	}
	ref, err := c.Load(ctx, func(ctx context.Context) (*session.Reference, error) {
		data, err := s.api.MyData(ctx)
		if err != nil {
			return nil, err
		}
		s.log.Debug("reference data loaded",
			zap.String("user_id", sess.User.ID),
			zap.Int("doctors", len(data.Doctors)),
			zap.Int("products", len(data.Products)),
		)
		return data, nil
	})
	if err != nil {
		return session.Reference{}, err
	}
	return ref, nil
}

// Reload drops the cached data and fetches it again.
func (s *ReferenceService) Reload(ctx context.Context, sess *session.Session) (session.Reference, error) {
	c, err := s.Cache(ctx, sess)
	if err != nil {
		return session.Reference{}, err
	}
	c.Invalidate()
	return s.Load(ctx, sess)
}
