package worker

import (
	"context"

	"github.com/ajayykmr/turbosms-go/internal/kafka/consumer"
)

// NewRecordFromConsumer copies a consumed Kafka record into a worker record and
// binds commit to it. The engine commits once a record is finished, whether it
// was sent or routed to the DLQ.
func NewRecordFromConsumer(rec *consumer.Record, commit func(context.Context) error) *Record {
	if rec == nil {
		return nil
	}

	wr := &Record{
		Topic:     rec.Topic,
		Partition: rec.Partition,
		Offset:    rec.Offset,
		Key:       cloneBytes(rec.Key),
		Value:     cloneBytes(rec.Value),
		Timestamp: rec.Timestamp,
		Headers:   cloneHeaders(rec.Headers),
	}

	if commit != nil {
		wr.setCommitFn(commit)
	}

	return wr
}
