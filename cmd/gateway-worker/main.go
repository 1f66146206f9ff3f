package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/turbosms-go/internal/adapters/turbosms"
	"github.com/ajayykmr/turbosms-go/internal/config"
	"github.com/ajayykmr/turbosms-go/internal/factory"
	"github.com/ajayykmr/turbosms-go/internal/kafka/consumer"
	"github.com/ajayykmr/turbosms-go/internal/kafka/producer"
	kafkapublisher "github.com/ajayykmr/turbosms-go/internal/kafka/publisher"
	"github.com/ajayykmr/turbosms-go/internal/logger"
	"github.com/ajayykmr/turbosms-go/internal/models"
	"github.com/ajayykmr/turbosms-go/internal/worker"
	dispatchvalidator "github.com/ajayykmr/turbosms-go/internal/worker/validator/dispatch"
)

const drainTimeout = 30 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		fail("config load", err)
	}
	if err := cfg.ValidateWorker(); err != nil {
		fail("config validate", err)
	}

	baseLogger, err := logger.New(cfg.App.Env, cfg.App.LogLevel)
	if err != nil {
		fail("logger init", err)
	}
	log := baseLogger.With().Str("service", "gateway-worker").Logger()

	prod, err := producer.New(cfg.Kafka.Brokers, logger.Component(log, "kafka"),
		producer.WithClientID(cfg.Kafka.ClientID+"-producer"),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka producer")
	}
	defer func() {
		prod.LogStats()
		if err := prod.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka producer")
		}
	}()

	consumerOpts := []consumer.Option{consumer.WithClientID(cfg.Kafka.ClientID + "-consumer")}
	if cfg.Kafka.StartFromOldest {
		consumerOpts = append(consumerOpts, consumer.WithOldestOffset())
	}
	cons, err := consumer.New(cfg.Kafka.Brokers, cfg.Kafka.ConsumerGroup, logger.Component(log, "consumer"), cfg.Worker.CommitOnSuccessOnly, consumerOpts...)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create kafka consumer")
	}
	defer func() {
		if err := cons.Close(); err != nil {
			log.Error().Err(err).Msg("failed to close kafka consumer")
		}
	}()

	statusPublisher := kafkapublisher.NewStatusPublisher(prod, cfg.Topics.Status, logger.Component(log, "status-publisher"))
	dlqPublisher := kafkapublisher.NewDLQPublisher(prod, cfg.Topics.DLQ, logger.Component(log, "dlq-publisher"))

	backend, err := factory.Backend(cfg.Gateway)
	if err != nil {
		log.Fatal().Err(err).Msg("invalid gateway connection")
	}
	client, err := factory.Client(cfg.Gateway, logger.Component(log, "gateway"))
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise gateway client")
	}

	adapter, err := turbosms.NewAdapter(client, logger.Component(log, "turbosms-adapter"),
		turbosms.WithDefaultSender(cfg.Gateway.DefaultSender),
	)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise turbosms adapter")
	}

	validator := dispatchvalidator.New(cfg.Validation, logger.Component(log, "dispatch-validator"))

	engine, err := worker.NewEngine(worker.Config{
		Channel:           models.ChannelTurboSMS,
		MsgMaxBytes:       cfg.Validation.MsgMaxBytes,
		WorkerConcurrency: cfg.Worker.Concurrency,
	}, worker.Dependencies{
		Adapter:         adapter,
		Validator:       validator,
		StatusPublisher: statusPublisher,
		DLQPublisher:    dlqPublisher,
		Committer: worker.CommitFunc(func(ctx context.Context, record *worker.Record) error {
			return record.Commit(ctx)
		}),
		Logger: log,
		Now:    time.Now,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise worker engine")
	}

	errCh := make(chan error, 1)
	go func() {
		if err := cons.Consume(ctx, []string{cfg.Topics.Request}, worker.KafkaHandler(engine, cons)); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
		close(errCh)
	}()

	log.Info().
		Str("request_topic", cfg.Topics.Request).
		Str("backend", backend).
		Int("concurrency", cfg.Worker.Concurrency).
		Bool("producer_ready", prod.IsReady()).
		Msg("gateway worker started")

	select {
	case <-ctx.Done():
		log.Info().Msg("shutdown signal received")
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("consumer terminated with error")
		}
	}

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := engine.Wait(drainCtx); err != nil {
		log.Warn().Err(err).Msg("in-flight messages did not finish before shutdown")
	}
}

func fail(stage string, err error) {
	l := zerolog.New(os.Stdout).With().Timestamp().Logger()
	l.Fatal().Err(err).Str("stage", stage).Msg("gateway worker init failed")
}
