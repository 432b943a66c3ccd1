package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
	"github.com/dmehra2102/prod-golang-projects/repdash/pkg/auth"
)

// Record is the persisted form of a session. The upstream token is sealed.
type Record struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	ExpiresAt time.Time `gorm:"not null"`

	UserID       string  `gorm:"column:user_id;type:varchar(64);not null;index"`
	Username     string  `gorm:"column:username;type:varchar(100);not null"`
	Role         string  `gorm:"column:role;type:varchar(30);not null"`
	TeamArea     string  `gorm:"column:team_area;type:varchar(100)"`
	TeamProducts string  `gorm:"column:team_products;type:text"`
	Supervisor   *string `gorm:"column:supervisor;type:varchar(64)"`

	SealedToken string `gorm:"column:sealed_token;type:text;not null"`
}

func (Record) TableName() string {
	return "dashboard.sessions"
}

type GormRepository struct {
	db     *gorm.DB
	sealer *auth.Sealer
}

func NewGormRepository(db *gorm.DB, sealer *auth.Sealer) *GormRepository {
	return &GormRepository{db: db, sealer: sealer}
}

func (r *GormRepository) Save(ctx context.Context, s *Session) error {
	sealed, err := r.sealer.Seal(s.Token)
	if err != nil {
		return fmt.Errorf("sealing upstream token: %w", err)
	}
	rec := Record{
		ID:           s.ID,
		CreatedAt:    s.CreatedAt,
		ExpiresAt:    s.ExpiresAt,
		UserID:       s.User.ID,
		Username:     s.User.Username,
		Role:         string(s.User.Role),
		TeamArea:     s.User.TeamArea,
		TeamProducts: strings.Join(s.User.TeamProducts, ","),
		Supervisor:   s.User.Supervisor,
		SealedToken:  sealed,
	}
	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		return fmt.Errorf("saving session: %w", err)
	}
	return nil
}

func (r *GormRepository) Find(ctx context.Context, id uuid.UUID) (*Session, error) {
	var rec Record
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("finding session: %w", err)
	}

	token, err := r.sealer.Open(rec.SealedToken)
	if err != nil {
		// sealed under a previous secret: treat as gone
		return nil, ErrNotFound
	}
	role, err := domain.ParseRole(rec.Role)
	if err != nil {
		return nil, ErrNotFound
	}

	var products []string
	if rec.TeamProducts != "" {
		products = strings.Split(rec.TeamProducts, ",")
	}
	return &Session{
		ID: rec.ID,
		User: domain.User{
			ID:           rec.UserID,
			Username:     rec.Username,
			Role:         role,
			TeamArea:     rec.TeamArea,
			TeamProducts: products,
			Supervisor:   rec.Supervisor,
		},
		Token:     token,
		CreatedAt: rec.CreatedAt,
		ExpiresAt: rec.ExpiresAt,
	}, nil
}

func (r *GormRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&Record{}).Error
}

func (r *GormRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now).Delete(&Record{})
	return res.RowsAffected, res.Error
}

// MemoryRepository keeps sessions in process. Used in tests and when no
// database is configured.
type MemoryRepository struct {
	mu       sync.Mutex
	sessions map[uuid.UUID]Session
}

func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{sessions: make(map[uuid.UUID]Session)}
}

func (r *MemoryRepository) Save(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[s.ID] = *s
	return nil
}

func (r *MemoryRepository) Find(_ context.Context, id uuid.UUID) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (r *MemoryRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.sessions, id)
	return nil
}

func (r *MemoryRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for id, s := range r.sessions {
		if s.Expired(now) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}
