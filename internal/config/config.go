package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config captures all runtime configuration for the gateway client, the CLI
// and the dispatch worker.
type Config struct {
	App        AppConfig
	Gateway    GatewayConfig
	Kafka      KafkaConfig
	Topics     TopicPair
	Worker     WorkerConfig
	Validation ValidationConfig
}

// AppConfig contains generic application level settings.
type AppConfig struct {
	Env      string
	LogLevel string
}

// GatewayConfig holds the turbosms.ua client settings.
type GatewayConfig struct {
	APIKey             string
	BaseURL            string
	Connection         string
	InsecureSkipVerify bool
	TimeoutSeconds     int
	DefaultSender      string
	MockLatencyMillis  int
}

// Timeout returns the per-request timeout as a duration.
func (g GatewayConfig) Timeout() time.Duration {
	return time.Duration(g.TimeoutSeconds) * time.Second
}

// MockLatency returns the artificial delay of the mock backend.
func (g GatewayConfig) MockLatency() time.Duration {
	return time.Duration(g.MockLatencyMillis) * time.Millisecond
}

// KafkaConfig defines broker information. ClientID is suffixed with
// -consumer and -producer for the two Kafka clients.
type KafkaConfig struct {
	Brokers         []string
	ConsumerGroup   string
	ClientID        string
	StartFromOldest bool
}

// TopicPair groups the request, status and DLQ topics of the dispatch worker.
type TopicPair struct {
	Request string
	Status  string
	DLQ     string
}

// WorkerConfig controls dispatch worker behaviour.
type WorkerConfig struct {
	Concurrency         int
	CommitOnSuccessOnly bool
}

// ValidationConfig holds the limits used while validating inbound dispatch
// requests.
type ValidationConfig struct {
	MsgMaxBytes     int
	RecipientsMax   int
	MetaMaxEntries  int
	MetaMaxKeyLen   int
	MetaMaxValueLen int
}

// Load reads environment variables (and a .env file when present), applies
// defaults, validates required values and returns a populated Config. Kafka
// settings are only checked by ValidateWorker so the CLI can run without them.
func Load() (*Config, error) {
	_ = godotenv.Load()

	ldr := &envLoader{}

	cfg := &Config{}
	cfg.App.Env = ldr.getString("APP_ENV", "development", false)
	cfg.App.LogLevel = ldr.getString("LOG_LEVEL", "info", false)

	cfg.Gateway.APIKey = ldr.getString("TURBOSMS_API_KEY", "", true)
	cfg.Gateway.BaseURL = ldr.getString("TURBOSMS_BASE_URL", "https://api.turbosms.ua", false)
	cfg.Gateway.Connection = ldr.getString("TURBOSMS_CONNECTION", "primary", false)
	cfg.Gateway.InsecureSkipVerify = ldr.getBool("TURBOSMS_TLS_INSECURE", false, false)
	cfg.Gateway.TimeoutSeconds = ldr.getInt("TURBOSMS_TIMEOUT_SECONDS", 30, false)
	cfg.Gateway.DefaultSender = ldr.getString("TURBOSMS_DEFAULT_SENDER", "MAGAZIN", false)
	cfg.Gateway.MockLatencyMillis = ldr.getInt("TURBOSMS_MOCK_LATENCY_MS", 0, false)
	if cfg.Gateway.MockLatencyMillis < 0 {
		ldr.addError("TURBOSMS_MOCK_LATENCY_MS cannot be negative")
	}
	if cfg.Gateway.TimeoutSeconds <= 0 {
		ldr.addError("TURBOSMS_TIMEOUT_SECONDS must be positive")
	}

	cfg.Kafka.Brokers = ldr.getStringSlice("KAFKA_BROKERS", false)
	cfg.Kafka.ConsumerGroup = ldr.getString("DISPATCH_CONSUMER_GROUP", "turbosms-dispatch", false)
	cfg.Kafka.ClientID = ldr.getString("KAFKA_CLIENT_ID", "turbosms-dispatch", false)
	cfg.Kafka.StartFromOldest = ldr.getBool("KAFKA_START_FROM_OLDEST", false, false)

	cfg.Topics = TopicPair{
		Request: ldr.getString("KAFKA_DISPATCH_REQUEST_TOPIC", "", false),
		Status:  ldr.getString("KAFKA_DISPATCH_STATUS_TOPIC", "", false),
		DLQ:     ldr.getString("KAFKA_DISPATCH_DLQ_TOPIC", "", false),
	}

	cfg.Worker.Concurrency = ldr.getInt("WORKER_CONCURRENCY", 4, false)
	cfg.Worker.CommitOnSuccessOnly = ldr.getBool("COMMIT_ON_SUCCESS_ONLY", true, false)

	cfg.Validation.MsgMaxBytes = ldr.getInt("MSG_MAX_BYTES", 200000, false)
	cfg.Validation.RecipientsMax = ldr.getInt("RECIPIENTS_MAX", 50, false)
	cfg.Validation.MetaMaxEntries = ldr.getInt("META_MAX_ENTRIES", 20, false)
	cfg.Validation.MetaMaxKeyLen = ldr.getInt("META_MAX_KEY_LEN", 64, false)
	cfg.Validation.MetaMaxValueLen = ldr.getInt("META_MAX_VALUE_LEN", 256, false)

	if err := ldr.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// ValidateWorker checks the settings only the dispatch worker needs.
func (c *Config) ValidateWorker() error {
	ldr := &envLoader{}
	if len(c.Kafka.Brokers) == 0 {
		ldr.addError("KAFKA_BROKERS must contain at least one entry")
	}
	if c.Kafka.ConsumerGroup == "" {
		ldr.addError("DISPATCH_CONSUMER_GROUP is required")
	}
	if c.Topics.Request == "" {
		ldr.addError("KAFKA_DISPATCH_REQUEST_TOPIC is required")
	}
	if c.Topics.Status == "" {
		ldr.addError("KAFKA_DISPATCH_STATUS_TOPIC is required")
	}
	if c.Topics.DLQ == "" {
		ldr.addError("KAFKA_DISPATCH_DLQ_TOPIC is required")
	}
	if c.Worker.Concurrency <= 0 {
		ldr.addError("WORKER_CONCURRENCY must be positive")
	}
	return ldr.validate()
}

type envLoader struct {
	errs []string
}

func (l *envLoader) validate() error {
	if len(l.errs) == 0 {
		return nil
	}
	return fmt.Errorf("config validation failed: %s", strings.Join(l.errs, "; "))
}

func (l *envLoader) getString(key, def string, required bool) string {
	if val, ok := os.LookupEnv(key); ok {
		val = strings.TrimSpace(val)
		if val == "" {
			if required {
				l.addError(fmt.Sprintf("%s is required", key))
			}
			return def
		}
		return val
	}
	if required {
		l.addError(fmt.Sprintf("%s is required", key))
	}
	return def
}

func (l *envLoader) getInt(key string, def int, required bool) int {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	i, err := strconv.Atoi(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid integer", key))
		return def
	}
	return i
}

func (l *envLoader) getBool(key string, def bool, required bool) bool {
	raw := l.getString(key, "", required)
	if raw == "" {
		return def
	}
	parsed, err := strconv.ParseBool(raw)
	if err != nil {
		l.addError(fmt.Sprintf("%s must be a valid boolean", key))
		return def
	}
	return parsed
}

func (l *envLoader) getStringSlice(key string, required bool) []string {
	raw := l.getString(key, "", required)
	if raw == "" {
		if required {
			return nil
		}
		return []string{}
	}
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	if required && len(out) == 0 {
		l.addError(fmt.Sprintf("%s must contain at least one entry", key))
	}
	return out
}

func (l *envLoader) addError(err string) {
	l.errs = append(l.errs, err)
}
