package service

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"ai-loanengine-be/internal/pkg/logger"
	"ai-loanengine-be/pkg/events"
)

// IAuditPublisherService publishes audit events onto the in-process bus.
type IAuditPublisherService interface {
	Publish(topic string, event events.Event)
}

type auditPublisherService struct {
	pubSub *gochannel.GoChannel
	logger *log.Logger
}

func NewAuditPublisherService(pubSub *gochannel.GoChannel, logger *log.Logger) IAuditPublisherService {
	return &auditPublisherService{
		pubSub: pubSub,
		logger: logger,
	}
}

// auditRecord is the wire form of an event on the bus.
type auditRecord struct {
	Type       string                 `json:"type"`
	Payload    map[string]interface{} `json:"payload"`
	OccurredAt time.Time              `json:"occurred_at"`
}

// Publish is fire-and-forget: an audit failure must never fail the turn
// that produced it.
func (s *auditPublisherService) Publish(topic string, event events.Event) {
	record := auditRecord{
		Type:       event.EventType(),
		Payload:    event.Payload(),
		OccurredAt: event.Timestamp(),
	}
	payload, err := json.Marshal(record)
	if err != nil {
		s.logger.Printf("[ERROR] Failed to marshal audit event %s: %v", event.EventType(), err)
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	if err := s.pubSub.Publish(topic, msg); err != nil {
		s.logger.Printf("[ERROR] Failed to publish audit event %s: %v", event.EventType(), err)
	}
}

// IAuditConsumerService drains the audit topics into the audit log.
type IAuditConsumerService interface {
	Consume(ctx context.Context) error
}

type auditConsumerService struct {
	pubSub *gochannel.GoChannel
	topics []string
	logger logger.ILogger
}

func NewAuditConsumerService(pubSub *gochannel.GoChannel, auditLogger logger.ILogger) IAuditConsumerService {
	return &auditConsumerService{
		pubSub: pubSub,
		topics: []string{events.TopicTurnCompleted, events.TopicDocumentAnalyzed},
		logger: auditLogger,
	}
}

func (s *auditConsumerService) Consume(ctx context.Context) error {
	for _, topic := range s.topics {
		messages, err := s.pubSub.Subscribe(ctx, topic)
		if err != nil {
			return err
		}

		go func(topic string, messages <-chan *message.Message) {
			for msg := range messages {
				s.processMessage(topic, msg)
			}
		}(topic, messages)
	}
	return nil
}

func (s *auditConsumerService) processMessage(topic string, msg *message.Message) {
	var record auditRecord
	if err := json.Unmarshal(msg.Payload, &record); err != nil {
		s.logger.Error("audit", "failed to unmarshal audit message", map[string]interface{}{
			"topic": topic,
			"error": err.Error(),
		})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	details := record.Payload
	if details == nil {
		details = map[string]interface{}{}
	}
	details["occurred_at"] = record.OccurredAt.Format(time.RFC3339)
	s.logger.Info("audit", record.Type, details)
	msg.Ack()
}
