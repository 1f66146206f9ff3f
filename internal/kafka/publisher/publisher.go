package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/turbosms-go/internal/models"
)

var errProducerNotInitialised = errors.New("kafka publisher: producer not initialised")

// SyncProducer captures the subset of producer behaviour required by the Kafka publishers.
type SyncProducer interface {
	PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error
}

// ErrProducerNotInitialised exposes the sentinel error for callers and tests.
func ErrProducerNotInitialised() error {
	return errProducerNotInitialised
}

// StatusPublisher emits dispatch status events keyed by message id.
type StatusPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewStatusPublisher constructs a StatusPublisher instance.
func NewStatusPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *StatusPublisher {
	if prod == nil {
		return nil
	}
	return &StatusPublisher{
		producer: prod,
		topic:    topic,
		logger:   nopIfZero(logger),
	}
}

// PublishStatus writes the supplied status event to Kafka synchronously.
func (p *StatusPublisher) PublishStatus(_ context.Context, event models.StatusEvent) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}
	if err := publishJSON(p.producer, p.topic, event.MessageID, event.TraceID, event); err != nil {
		return fmt.Errorf("kafka publisher: status event: %w", err)
	}
	p.logger.Debug().
		Str("message_id", event.MessageID).
		Str("event", event.EventType).
		Msg("status event published")
	return nil
}

// DLQPublisher writes DLQ records to the configured Kafka topic.
type DLQPublisher struct {
	producer SyncProducer
	topic    string
	logger   zerolog.Logger
}

// NewDLQPublisher constructs a DLQPublisher instance.
func NewDLQPublisher(prod SyncProducer, topic string, logger zerolog.Logger) *DLQPublisher {
	if prod == nil {
		return nil
	}
	return &DLQPublisher{
		producer: prod,
		topic:    topic,
		logger:   nopIfZero(logger),
	}
}

// PublishDLQ writes the supplied DLQ record to Kafka synchronously.
func (p *DLQPublisher) PublishDLQ(_ context.Context, record models.DLQRecord) error {
	if p == nil || p.producer == nil {
		return errProducerNotInitialised
	}
	if err := publishJSON(p.producer, p.topic, record.MessageID, record.TraceID, record); err != nil {
		return fmt.Errorf("kafka publisher: dlq record: %w", err)
	}
	p.logger.Info().
		Str("message_id", record.MessageID).
		Str("failure_type", record.FailureType).
		Msg("dlq record published")
	return nil
}

func publishJSON(prod SyncProducer, topic, key, traceID string, v any) error {
	payload, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	headers := map[string][]byte{
		"content-type": []byte("application/json"),
	}
	if traceID != "" {
		headers["trace-id"] = []byte(traceID)
	}

	var keyBytes []byte
	if key != "" {
		keyBytes = []byte(key)
	}
	if err := prod.PublishSync(topic, keyBytes, headers, payload); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	return nil
}

func nopIfZero(logger zerolog.Logger) zerolog.Logger {
	if reflect.ValueOf(logger).IsZero() {
		return zerolog.Nop()
	}
	return logger
}
