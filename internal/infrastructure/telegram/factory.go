package telegram

import (
	"fmt"

	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

const (
	// requestsPerSecond bounds API calls across all clients of the process
	requestsPerSecond = 10
	requestBurst      = 10
)

// Factory creates MTProto clients that share one rate limiter
type Factory struct {
	cfg     *config.TelegramConfig
	limiter *rate.Limiter
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewFactory creates a client factory
func NewFactory(cfg *config.TelegramConfig, m *metrics.Metrics, logger zerolog.Logger) *Factory {
	return &Factory{
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(requestsPerSecond), requestBurst),
		metrics: m,
		logger:  logger,
	}
}

// Configured reports whether the API identity pair is set
func (f *Factory) Configured() bool {
	return f.cfg.Configured()
}

// New returns a client with an empty session
func (f *Factory) New() (deps.RemoteClient, error) {
	if !f.Configured() {
		return nil, fmt.Errorf("telegram API credentials are not configured")
	}
	return f.newClient(NewMemorySessionStorage(nil)), nil
}

// FromCredential returns a client restored from an exported session
func (f *Factory) FromCredential(credential string) (deps.RemoteClient, error) {
	if !f.Configured() {
		return nil, fmt.Errorf("telegram API credentials are not configured")
	}

	storage, err := ImportSession(credential)
	if err != nil {
		return nil, err
	}
	return f.newClient(storage), nil
}

func (f *Factory) newClient(storage *MemorySessionStorage) *MTProtoClient {
	return newMTProtoClient(f.cfg.APIID, f.cfg.APIHash, storage, f.limiter, f.metrics, f.logger)
}

// Ensure Factory implements deps.ClientFactory interface
var _ deps.ClientFactory = (*Factory)(nil)
