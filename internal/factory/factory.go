// Package factory wires a gateway client from runtime configuration.
package factory

import (
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/ajayykmr/turbosms-go/internal/config"
	"github.com/ajayykmr/turbosms-go/internal/gateway"
	"github.com/ajayykmr/turbosms-go/internal/transport"
)

// BackendMock answers every call in memory without touching the network.
const BackendMock = "mock"

// Client constructs the gateway client for cfg. Connection selects the
// transport: primary (alias curl), fallback (alias stream) or mock.
func Client(cfg config.GatewayConfig, logger zerolog.Logger) (*gateway.Client, error) {
	opts := []gateway.Option{
		gateway.WithBaseURL(cfg.BaseURL),
		gateway.WithLogger(logger),
	}

	backend, err := Backend(cfg)
	if err != nil {
		return nil, err
	}
	switch backend {
	case BackendMock:
		opts = append(opts, gateway.WithTransport(transport.NewMock(logger, transport.WithLatency(cfg.MockLatency()))))
	default:
		ct := gateway.ConnectionType(backend)
		if cfg.InsecureSkipVerify {
			logger.Warn().Msg("tls certificate verification disabled for gateway calls")
		}
		opts = append(opts,
			gateway.WithConnectionType(ct),
			gateway.WithTransportOptions(transport.WithTimeout(cfg.Timeout())),
			gateway.WithInsecureSkipVerify(cfg.InsecureSkipVerify),
		)
	}

	client, err := gateway.NewClient(cfg.APIKey, opts...)
	if err != nil {
		return nil, fmt.Errorf("factory: gateway client init: %w", err)
	}
	logger.Info().
		Str("backend", backend).
		Str("base_url", cfg.BaseURL).
		Msg("gateway client initialised")
	return client, nil
}

// Backend resolves the configured connection to the backend Client builds:
// mock, primary or fallback. Aliases such as curl and stream are mapped to
// their canonical names.
func Backend(cfg config.GatewayConfig) (string, error) {
	backend := normalize(cfg.Connection, string(gateway.ConnectionPrimary))
	if backend == BackendMock {
		return BackendMock, nil
	}
	ct, err := gateway.ParseConnectionType(backend)
	if err != nil {
		return "", fmt.Errorf("factory: %w", err)
	}
	return string(ct), nil
}

func normalize(value, def string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return def
	}
	return value
}
