package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	common "github.com/ajayykmr/turbosms-go/internal/adapters/common"
	"github.com/ajayykmr/turbosms-go/internal/models"
)

// Config contains the runtime settings the worker engine relies on.
type Config struct {
	Channel           string
	MsgMaxBytes       int
	WorkerConcurrency int
}

// Record represents a Kafka message delivered to the worker. It keeps the
// engine decoupled from the concrete consumer while still exposing the data
// the engine requires.
type Record struct {
	Topic     string
	Partition int32
	Offset    int64
	Key       []byte
	Value     []byte
	Timestamp time.Time
	Headers   map[string][]byte

	commitFn func(context.Context) error
}

// Commit runs the commit function bound by the consumer bridge. Records built
// without one commit as a no-op.
func (r *Record) Commit(ctx context.Context) error {
	if r == nil || r.commitFn == nil {
		return nil
	}
	return r.commitFn(ctx)
}

func (r *Record) setCommitFn(fn func(context.Context) error) {
	r.commitFn = fn
}

// Clone returns a deep copy of the record so it can be safely shared with
// asynchronous goroutines.
func (r *Record) Clone() *Record {
	if r == nil {
		return nil
	}

	clone := *r
	clone.Key = cloneBytes(r.Key)
	clone.Value = cloneBytes(r.Value)
	if len(r.Headers) > 0 {
		clone.Headers = cloneHeaders(r.Headers)
	}

	return &clone
}

// ValidatedMessage captures the canonical representation of a request after it
// has passed validation.
type ValidatedMessage struct {
	Channel      string
	MessageID    string
	TraceID      string
	TenantID     string
	CreatedAt    time.Time
	Metadata     map[string]string
	Request      any
	RawPayload   []byte
	Key          []byte
	KafkaHeaders map[string][]byte
}

// Adapter submits a validated message to the gateway and returns the
// normalized answer. Errors are classified with common.ErrTransient or
// common.ErrPermanent.
type Adapter interface {
	Send(ctx context.Context, msg *ValidatedMessage) (*models.ProviderResponse, error)
}

// Validator parses and validates inbound Kafka records. On failure the
// returned message may be nil or partially populated.
type Validator interface {
	ParseAndValidate(ctx context.Context, channel string, payload []byte) (*ValidatedMessage, error)
}

// StatusPublisher publishes lifecycle updates for a message.
type StatusPublisher interface {
	PublishStatus(ctx context.Context, event models.StatusEvent) error
}

// DLQPublisher writes failed messages to the DLQ topic.
type DLQPublisher interface {
	PublishDLQ(ctx context.Context, record models.DLQRecord) error
}

// Committer commits Kafka offsets after processing.
type Committer interface {
	Commit(ctx context.Context, record *Record) error
}

// CommitFunc adapts a function to the Committer interface.
type CommitFunc func(ctx context.Context, record *Record) error

// Commit calls f.
func (f CommitFunc) Commit(ctx context.Context, record *Record) error {
	return f(ctx, record)
}

// Dependencies collects the runtime collaborators required by the engine.
type Dependencies struct {
	Adapter         Adapter
	Validator       Validator
	StatusPublisher StatusPublisher
	DLQPublisher    DLQPublisher
	Committer       Committer
	Logger          zerolog.Logger
	Now             func() time.Time
}

// Engine validates inbound records, submits each to the gateway exactly once
// and reports the outcome on the status and DLQ topics. Concurrency is bounded
// by a weighted semaphore.
type Engine struct {
	cfg             Config
	adapter         Adapter
	validator       Validator
	statusPublisher StatusPublisher
	dlqPublisher    DLQPublisher
	committer       Committer
	logger          zerolog.Logger

	semaphore *semaphore.Weighted
	offsets   *offsetTracker

	now func() time.Time
}

// NewEngine constructs a worker engine using the supplied configuration and
// collaborators.
func NewEngine(cfg Config, deps Dependencies) (*Engine, error) {
	if cfg.Channel == "" {
		return nil, errors.New("worker: channel must be provided")
	}
	if cfg.WorkerConcurrency < 1 {
		return nil, errors.New("worker: worker concurrency must be >= 1")
	}
	if cfg.MsgMaxBytes < 0 {
		return nil, errors.New("worker: msg max bytes cannot be negative")
	}
	if deps.Adapter == nil {
		return nil, errors.New("worker: adapter dependency is required")
	}
	if deps.Validator == nil {
		return nil, errors.New("worker: validator dependency is required")
	}
	if deps.StatusPublisher == nil {
		return nil, errors.New("worker: status publisher dependency is required")
	}
	if deps.DLQPublisher == nil {
		return nil, errors.New("worker: DLQ publisher dependency is required")
	}
	if deps.Committer == nil {
		return nil, errors.New("worker: committer dependency is required")
	}

	logger := deps.Logger
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	logger = logger.With().Str("component", "worker_engine").Logger()

	nowFunc := deps.Now
	if nowFunc == nil {
		nowFunc = time.Now
	}

	return &Engine{
		cfg:             cfg,
		adapter:         deps.Adapter,
		validator:       deps.Validator,
		statusPublisher: deps.StatusPublisher,
		dlqPublisher:    deps.DLQPublisher,
		committer:       deps.Committer,
		logger:          logger,
		semaphore:       semaphore.NewWeighted(int64(cfg.WorkerConcurrency)),
		offsets:         newOffsetTracker(),
		now:             nowFunc,
	}, nil
}

// HandleRecord checks the record size, parses the payload and hands valid
// messages to a background goroutine. Invalid records are reported
// synchronously. Offsets are committed per partition in arrival order, so a
// record finishing early waits for every earlier record of its partition.
func (e *Engine) HandleRecord(ctx context.Context, record *Record) {
	if record == nil {
		return
	}
	entry := e.offsets.track(record)

	if e.cfg.MsgMaxBytes > 0 && len(record.Value) > e.cfg.MsgMaxBytes {
		err := fmt.Errorf("payload exceeds maximum size: got %d bytes, limit %d bytes", len(record.Value), e.cfg.MsgMaxBytes)
		msg := e.partialMessageFromRecord(record)
		e.logger.Warn().
			Str("message_id", msg.MessageID).
			Err(err).
			Msg("worker: record discarded because it exceeds configured size limit")
		e.reject(ctx, entry, msg, err)
		return
	}

	validated, err := e.validator.ParseAndValidate(ctx, e.cfg.Channel, record.Value)
	if err != nil {
		if validated == nil {
			validated = e.partialMessageFromRecord(record)
		}
		e.fillFromRecord(validated, record)
		e.logger.Warn().
			Str("message_id", validated.MessageID).
			Err(err).
			Msg("worker: validation failed for record")
		e.reject(ctx, entry, validated, err)
		return
	}
	e.fillFromRecord(validated, record)

	if err := e.semaphore.Acquire(ctx, 1); err != nil {
		e.logger.Error().
			Str("message_id", validated.MessageID).
			Err(err).
			Msg("worker: failed to acquire concurrency semaphore")
		e.offsets.abandon(entry)
		return
	}

	go e.processRecord(ctx, entry, validated)
}

// Wait blocks until every in-flight message has finished or ctx is done.
func (e *Engine) Wait(ctx context.Context) error {
	if err := e.semaphore.Acquire(ctx, int64(e.cfg.WorkerConcurrency)); err != nil {
		return err
	}
	e.semaphore.Release(int64(e.cfg.WorkerConcurrency))
	return nil
}

func (e *Engine) processRecord(ctx context.Context, entry *trackedRecord, msg *ValidatedMessage) {
	defer e.semaphore.Release(1)

	if ctx.Err() != nil {
		e.logger.Warn().
			Str("message_id", msg.MessageID).
			Msg("worker: context cancelled before processing began")
		e.offsets.abandon(entry)
		return
	}

	e.publishStatus(ctx, msg, models.StatusEvent{EventType: models.StatusEventQueued})
	e.publishStatus(ctx, msg, models.StatusEvent{EventType: models.StatusEventAttempt, Attempt: 1})

	start := e.now()
	resp, err := e.adapter.Send(ctx, msg)
	duration := e.now().Sub(start)

	log := e.logger.With().
		Str("message_id", msg.MessageID).
		Dur("duration", duration).
		Logger()

	if err == nil {
		log.Info().Msg("worker: message sent")
		e.publishStatus(ctx, msg, models.StatusEvent{
			EventType:        models.StatusEventSent,
			Attempt:          1,
			ProviderResponse: resp,
			DurationMs:       duration.Milliseconds(),
		})
		e.offsets.finish(ctx, entry, e.commitRecord)
		return
	}

	if ctx.Err() != nil && (errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)) {
		log.Warn().Err(err).Msg("worker: shutdown during send; leaving offset uncommitted")
		e.offsets.abandon(entry)
		return
	}

	failureType := models.FailureTypeUnknown
	switch {
	case errors.Is(err, common.ErrPermanent):
		failureType = models.FailureTypePermanent
	case errors.Is(err, common.ErrTransient):
		failureType = models.FailureTypeTransient
	}
	log.Warn().Err(err).Str("failure_type", failureType).Msg("worker: send failed")

	now := e.now()
	e.publishStatus(ctx, msg, models.StatusEvent{
		EventType:        models.StatusEventFailed,
		Attempt:          1,
		ProviderResponse: resp,
		Error:            err.Error(),
		DurationMs:       duration.Milliseconds(),
		Timestamp:        now,
	})
	e.publishDLQ(ctx, msg, models.DLQRecord{
		Attempts:      1,
		FailureType:   failureType,
		LastError:     err.Error(),
		GatewayCode:   gatewayCode(resp),
		FirstFailedAt: now,
		LastAttemptAt: now,
	})
	e.offsets.finish(ctx, entry, e.commitRecord)
}

func (e *Engine) reject(ctx context.Context, entry *trackedRecord, msg *ValidatedMessage, err error) {
	now := e.now()
	e.publishStatus(ctx, msg, models.StatusEvent{EventType: models.StatusEventFailed, Error: err.Error(), Timestamp: now})
	e.publishDLQ(ctx, msg, models.DLQRecord{
		FailureType:   models.FailureTypeValidation,
		LastError:     err.Error(),
		FirstFailedAt: now,
		LastAttemptAt: now,
	})
	e.offsets.finish(ctx, entry, e.commitRecord)
}

func (e *Engine) publishStatus(ctx context.Context, msg *ValidatedMessage, event models.StatusEvent) {
	if msg == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = e.now()
	}
	event.MessageID = msg.MessageID
	event.Channel = msg.Channel
	event.TraceID = msg.TraceID

	if err := e.statusPublisher.PublishStatus(ctx, event); err != nil {
		e.logger.Error().
			Str("message_id", msg.MessageID).
			Str("event", event.EventType).
			Err(err).
			Msg("worker: failed to publish status event")
	}
}

func (e *Engine) publishDLQ(ctx context.Context, msg *ValidatedMessage, record models.DLQRecord) {
	if msg == nil {
		return
	}
	if record.FirstFailedAt.IsZero() {
		record.FirstFailedAt = e.now()
	}
	if record.LastAttemptAt.IsZero() {
		record.LastAttemptAt = record.FirstFailedAt
	}
	record.MessageID = msg.MessageID
	record.Channel = msg.Channel
	record.TraceID = msg.TraceID
	record.Meta = msg.Metadata
	if json.Valid(msg.RawPayload) {
		record.OriginalMessage = json.RawMessage(cloneBytes(msg.RawPayload))
	}

	if err := e.dlqPublisher.PublishDLQ(ctx, record); err != nil {
		e.logger.Error().
			Str("message_id", msg.MessageID).
			Err(err).
			Msg("worker: failed to publish DLQ record")
	}
}

func (e *Engine) commitRecord(ctx context.Context, record *Record) {
	if record == nil {
		return
	}
	if err := e.committer.Commit(ctx, record); err != nil {
		e.logger.Error().
			Str("topic", record.Topic).
			Int32("partition", record.Partition).
			Int64("offset", record.Offset).
			Err(err).
			Msg("worker: failed to commit record offset")
	}
}

func (e *Engine) fillFromRecord(msg *ValidatedMessage, record *Record) {
	if msg.Channel == "" {
		msg.Channel = e.cfg.Channel
	}
	if msg.MessageID == "" {
		msg.MessageID = string(record.Key)
	}
	if len(msg.RawPayload) == 0 {
		msg.RawPayload = cloneBytes(record.Value)
	}
	if len(msg.Key) == 0 {
		msg.Key = cloneBytes(record.Key)
	}
	if len(msg.KafkaHeaders) == 0 && len(record.Headers) > 0 {
		msg.KafkaHeaders = cloneHeaders(record.Headers)
	}
}

func (e *Engine) partialMessageFromRecord(record *Record) *ValidatedMessage {
	return &ValidatedMessage{
		Channel:      e.cfg.Channel,
		MessageID:    string(record.Key),
		RawPayload:   cloneBytes(record.Value),
		Key:          cloneBytes(record.Key),
		KafkaHeaders: cloneHeaders(record.Headers),
	}
}

func gatewayCode(resp *models.ProviderResponse) *int {
	if resp == nil || resp.Code == nil {
		return nil
	}
	code := *resp.Code
	return &code
}

func cloneBytes(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	clone := make([]byte, len(b))
	copy(clone, b)
	return clone
}

func cloneHeaders(headers map[string][]byte) map[string][]byte {
	if len(headers) == 0 {
		return nil
	}
	clone := make(map[string][]byte, len(headers))
	for k, v := range headers {
		clone[k] = cloneBytes(v)
	}
	return clone
}
