package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"go.uber.org/zap"

	"github.com/dmehra2102/prod-golang-projects/repdash/config"
	"github.com/dmehra2102/prod-golang-projects/repdash/internal/domain"
)

// AuditEvent is the Kafka payload for one audit log entry.
type AuditEvent struct {
	OccurredAt   time.Time `json:"occurredAt"`
	UserID       string    `json:"userId"`
	UserRole     string    `json:"userRole"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resourceType"`
	ResourceID   string    `json:"resourceId,omitempty"`
	RequestID    string    `json:"requestId,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	Changes      string    `json:"changes,omitempty"`
}

type AuditPublisher struct {
	producer sarama.SyncProducer
	topic    string
	log      *zap.Logger
}

func NewAuditPublisher(cfg config.KafkaConfig, log *zap.Logger) (*AuditPublisher, error) {
	sc := sarama.NewConfig()
	sc.ClientID = "repdash"
	sc.Producer.RequiredAcks = sarama.WaitForAll
	sc.Producer.Return.Successes = true
	sc.Producer.Retry.Max = 3
	sc.Producer.Compression = sarama.CompressionSnappy

	producer, err := sarama.NewSyncProducer(cfg.Brokers, sc)
	if err != nil {
		return nil, fmt.Errorf("creating kafka producer: %w", err)
	}
	return NewAuditPublisherWithProducer(producer, cfg.AuditTopic, log), nil
}

func NewAuditPublisherWithProducer(p sarama.SyncProducer, topic string, log *zap.Logger) *AuditPublisher {
	return &AuditPublisher{producer: p, topic: topic, log: log}
}

// Publish sends entry keyed by user so one user's actions stay ordered.
func (p *AuditPublisher) Publish(_ context.Context, entry *domain.AuditLog) error {
	occurred := entry.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	payload, err := json.Marshal(AuditEvent{
		OccurredAt:   occurred,
		UserID:       entry.UserID,
		UserRole:     string(entry.UserRole),
		Action:       string(entry.Action),
		ResourceType: entry.ResourceType,
		ResourceID:   entry.ResourceID,
		RequestID:    entry.RequestID,
		IPAddress:    entry.IPAddress,
		Changes:      entry.Changes,
	})
	if err != nil {
		return fmt.Errorf("encoding audit event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(entry.UserID),
		Value: sarama.ByteEncoder(payload),
		Headers: []sarama.RecordHeader{
			{Key: []byte("action"), Value: []byte(entry.Action)},
			{Key: []byte("resource"), Value: []byte(entry.ResourceType)},
		},
	}
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return fmt.Errorf("publishing audit event: %w", err)
	}
	p.log.Debug("audit event published",
		zap.String("topic", p.topic),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset),
	)
	return nil
}

func (p *AuditPublisher) Close() error {
	return p.producer.Close()
}
