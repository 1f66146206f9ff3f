package worker

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ajayykmr/turbosms-go/internal/kafka/consumer"
)

func TestNewRecordFromConsumerCopiesAndBindsCommit(t *testing.T) {
	src := &consumer.Record{
		Topic:     "turbosms.dispatch.request",
		Partition: 2,
		Offset:    41,
		Key:       []byte("msg-1"),
		Value:     []byte(`{"text":"hi"}`),
		Timestamp: time.Unix(10, 0),
		Headers:   map[string][]byte{"trace-id": []byte("t-1")},
	}

	errCommit := errors.New("commit failed")
	called := 0
	rec := NewRecordFromConsumer(src, func(context.Context) error {
		called++
		return errCommit
	})

	src.Value[0] = 'X'
	src.Headers["trace-id"][0] = 'X'
	if string(rec.Value) != `{"text":"hi"}` || string(rec.Headers["trace-id"]) != "t-1" {
		t.Fatalf("expected record to own its buffers, got %q %q", rec.Value, rec.Headers["trace-id"])
	}
	if rec.Partition != 2 || rec.Offset != 41 {
		t.Fatalf("unexpected position %d/%d", rec.Partition, rec.Offset)
	}

	if err := rec.Commit(context.Background()); !errors.Is(err, errCommit) || called != 1 {
		t.Fatalf("expected bound commit to run, got %v (calls=%d)", err, called)
	}

	clone := rec.Clone()
	if err := clone.Commit(context.Background()); !errors.Is(err, errCommit) || called != 2 {
		t.Fatalf("expected clone to keep commit binding, got %v", err)
	}
}

func TestNewRecordFromConsumerNil(t *testing.T) {
	if NewRecordFromConsumer(nil, nil) != nil {
		t.Fatalf("expected nil record")
	}
}
