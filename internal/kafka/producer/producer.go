// Package producer publishes dispatch status events and DLQ records with a
// synchronous Sarama producer.
package producer

import (
	"errors"
	"fmt"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"
)

const (
	defaultMetadataRefreshInterval = 30 * time.Second
	defaultClientID                = "turbosms-dispatch-producer"
)

// Option customises the producer during construction.
type Option func(*options)

type options struct {
	config          *sarama.Config
	clientID        string
	refreshInterval time.Duration
}

// WithConfig supplies a preconfigured Sarama config. It is copied, so the
// caller keeps ownership.
func WithConfig(cfg *sarama.Config) Option {
	return func(o *options) {
		if cfg != nil {
			o.config = cfg
		}
	}
}

// WithClientID sets the client id reported to the brokers.
func WithClientID(id string) Option {
	return func(o *options) {
		if id != "" {
			o.clientID = id
		}
	}
}

// WithMetadataRefreshInterval overrides how often cluster metadata is
// refreshed to keep readiness current.
func WithMetadataRefreshInterval(interval time.Duration) Option {
	return func(o *options) {
		if interval > 0 {
			o.refreshInterval = interval
		}
	}
}

// TopicStats summarises deliveries to one topic since start.
type TopicStats struct {
	Delivered  int64
	Failed     int64
	LastOffset int64
	LastError  string
}

// Producer sends status and DLQ events and waits for every acknowledgement.
// It keeps per-topic delivery counts and tracks readiness through metadata
// refreshes.
type Producer struct {
	logger zerolog.Logger

	client sarama.Client
	sync   sarama.SyncProducer

	ready atomic.Bool

	mu    sync.Mutex
	stats map[string]*TopicStats

	stopCh    chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// New connects to brokers and starts the metadata watcher.
func New(brokers []string, logger zerolog.Logger, opts ...Option) (*Producer, error) {
	if len(brokers) == 0 {
		return nil, errors.New("kafka producer: at least one broker is required")
	}

	settings := &options{
		clientID:        defaultClientID,
		refreshInterval: defaultMetadataRefreshInterval,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(settings)
		}
	}

	cfg := defaultConfig()
	if settings.config != nil {
		copied := *settings.config
		cfg = &copied
	}
	cfg.ClientID = settings.clientID
	cfg.Metadata.RefreshFrequency = settings.refreshInterval

	client, err := sarama.NewClient(brokers, cfg)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: create client: %w", err)
	}
	sp, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("kafka producer: create sync producer: %w", err)
	}

	p := newProducer(client, sp, logger)
	if err := client.RefreshMetadata(); err != nil {
		p.logger.Error().Err(err).Msg("kafka producer initial metadata refresh failed")
	} else {
		p.ready.Store(true)
	}

	p.wg.Add(1)
	go p.watchMetadata(settings.refreshInterval)
	return p, nil
}

func newProducer(client sarama.Client, sp sarama.SyncProducer, logger zerolog.Logger) *Producer {
	if reflect.ValueOf(logger).IsZero() {
		logger = zerolog.Nop()
	}
	return &Producer{
		logger: logger,
		client: client,
		sync:   sp,
		stats:  make(map[string]*TopicStats),
		stopCh: make(chan struct{}),
	}
}

// PublishSync sends one event and waits for the broker acknowledgement.
func (p *Producer) PublishSync(topic string, key []byte, headers map[string][]byte, payload []byte) error {
	if topic == "" {
		return errors.New("kafka producer: topic is required")
	}

	msg := &sarama.ProducerMessage{
		Topic:   topic,
		Value:   sarama.ByteEncoder(payload),
		Headers: toRecordHeaders(headers),
	}
	if len(key) > 0 {
		msg.Key = sarama.ByteEncoder(key)
	}

	partition, offset, err := p.sync.SendMessage(msg)
	p.record(topic, offset, err)
	if err != nil {
		p.ready.Store(false)
		return fmt.Errorf("kafka producer: send to %s: %w", topic, err)
	}
	p.ready.Store(true)
	p.logger.Debug().
		Str("topic", topic).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("kafka producer delivered event")
	return nil
}

func (p *Producer) record(topic string, offset int64, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	st, ok := p.stats[topic]
	if !ok {
		st = &TopicStats{LastOffset: -1}
		p.stats[topic] = st
	}
	if err != nil {
		st.Failed++
		st.LastError = err.Error()
		return
	}
	st.Delivered++
	st.LastOffset = offset
}

// Stats returns a copy of the delivery counters keyed by topic.
func (p *Producer) Stats() map[string]TopicStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make(map[string]TopicStats, len(p.stats))
	for topic, st := range p.stats {
		out[topic] = *st
	}
	return out
}

// LogStats writes one line per topic, in topic order.
func (p *Producer) LogStats() {
	stats := p.Stats()
	topics := make([]string, 0, len(stats))
	for topic := range stats {
		topics = append(topics, topic)
	}
	sort.Strings(topics)
	for _, topic := range topics {
		st := stats[topic]
		p.logger.Info().
			Str("topic", topic).
			Int64("delivered", st.Delivered).
			Int64("failed", st.Failed).
			Int64("last_offset", st.LastOffset).
			Str("last_error", st.LastError).
			Msg("kafka producer topic summary")
	}
}

// IsReady reports whether the last metadata refresh or send succeeded.
func (p *Producer) IsReady() bool {
	return p.ready.Load()
}

// Close stops the metadata watcher and releases the producer and client.
func (p *Producer) Close() error {
	var errs []error
	p.closeOnce.Do(func() {
		close(p.stopCh)
		p.wg.Wait()
		if err := p.sync.Close(); err != nil {
			errs = append(errs, err)
		}
		if p.client != nil {
			if err := p.client.Close(); err != nil && !errors.Is(err, sarama.ErrClosedClient) {
				errs = append(errs, err)
			}
		}
	})
	return errors.Join(errs...)
}

func (p *Producer) watchMetadata(interval time.Duration) {
	defer p.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-p.stopCh:
			return
		case <-ticker.C:
			if err := p.client.RefreshMetadata(); err != nil {
				p.logger.Error().Err(err).Msg("kafka producer metadata refresh failed")
				p.ready.Store(false)
			} else {
				p.ready.Store(true)
			}
		}
	}
}

func toRecordHeaders(headers map[string][]byte) []sarama.RecordHeader {
	if len(headers) == 0 {
		return nil
	}
	out := make([]sarama.RecordHeader, 0, len(headers))
	for k, v := range headers {
		out = append(out, sarama.RecordHeader{Key: []byte(k), Value: append([]byte(nil), v...)})
	}
	return out
}

func defaultConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = sarama.V2_5_0_0
	cfg.ClientID = defaultClientID
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 6
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond
	cfg.Producer.Return.Errors = true
	cfg.Producer.Return.Successes = true
	cfg.Producer.Idempotent = true
	cfg.Net.MaxOpenRequests = 1
	cfg.Metadata.Full = true
	return cfg
}
