package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// AuditPublisher forwards entries to an event stream. Optional.
type AuditPublisher interface {
	Publish(ctx context.Context, entry *domain.AuditLog) error
}

type AuditMetrics interface {
	AuditWritten()
	AuditDropped()
}

type AuditService struct {
	repo      AuditRepository
	publisher AuditPublisher
	metrics   AuditMetrics
	log       *zap.Logger
	entries   chan *domain.AuditLog
	done      chan struct{}

	// mu guards closed; senders hold it shared so Shutdown never closes
	// entries under them.
	mu     sync.RWMutex
	closed bool
}

const auditBufferSize = 10_000

func NewAuditService(repo AuditRepository, publisher AuditPublisher, metrics AuditMetrics, log *zap.Logger) *AuditService {
	return newAuditService(repo, publisher, metrics, log, auditBufferSize)
}

func newAuditService(repo AuditRepository, publisher AuditPublisher, metrics AuditMetrics, log *zap.Logger, size int) *AuditService {
	svc := &AuditService{
		repo:      repo,
		publisher: publisher,
		metrics:   metrics,
		log:       log,
		entries:   make(chan *domain.AuditLog, size),
		done:      make(chan struct{}),
	}
	go svc.worker()
	return svc
}

// LogAsync enqueues an audit entry for async persistence.
// If the buffer is full, the entry is dropped and a warning is emitted.
func (s *AuditService) LogAsync(_ context.Context, entry AuditEntry) {
	al := &domain.AuditLog{
		OccurredAt:   time.Now().UTC(),
		UserID:       entry.Caller.UserID,
		UserRole:     entry.Caller.Role,
		IPAddress:    entry.Caller.IPAddress,
		RequestID:    entry.Caller.RequestID,
		Action:       entry.Action,
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		Changes:      entry.Changes,
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		s.drop("audit service stopped, dropping entry", entry)
		return
	}
	select {
	case s.entries <- al:
	default:
		s.drop("audit log buffer full, dropping entry", entry)
	}
}

func (s *AuditService) drop(msg string, entry AuditEntry) {
	if s.metrics != nil {
		s.metrics.AuditDropped()
	}
	s.log.Warn(msg,
		zap.String("action", string(entry.Action)),
		zap.String("resource", entry.ResourceType),
	)
}

// Shutdown stops accepting entries and waits for the queued ones. Entries
// logged afterwards are dropped.
func (s *AuditService) Shutdown() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.entries)
	s.mu.Unlock()

	select {
	case <-s.done:
	case <-time.After(10 * time.Second):
		s.log.Warn("audit service shutdown timed out; some entries may be lost")
	}
}

func (s *AuditService) worker() {
	defer close(s.done)
	for entry := range s.entries {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := s.repo.Create(ctx, entry); err != nil {
			s.log.Error("failed to persist audit log", zap.Error(err))
		} else if s.metrics != nil {
			s.metrics.AuditWritten()
		}
		if s.publisher != nil {
			if err := s.publisher.Publish(ctx, entry); err != nil {
				s.log.Error("failed to publish audit event", zap.Error(err))
			}
		}
		cancel()
	}
}
