package telegram

import (
	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

// Module provides the Telegram client factory for fx DI
var Module = fx.Module("telegram",
	fx.Provide(NewClientFactoryFx),
)

// NewClientFactoryFx creates the client factory for fx DI
func NewClientFactoryFx(cfg *config.TelegramConfig, m *metrics.Metrics, logger zerolog.Logger) deps.ClientFactory {
	if !cfg.Configured() {
		logger.Warn().Msg("TELEGRAM_API_ID or TELEGRAM_API_HASH is not set, account linking is disabled")
	} else {
		logger.Info().Int("api_id", cfg.APIID).Msg("Telegram client factory initialized")
	}

	return NewFactory(cfg, m, logger)
}
