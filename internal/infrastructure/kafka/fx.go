package kafka

import (
	"context"

	"github.com/rs/zerolog"
	"go.uber.org/fx"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

// Module provides the link event publisher for fx DI
var Module = fx.Module("kafka",
	fx.Provide(NewEventPublisherFx),
)

// NewEventPublisherFx creates a Kafka publisher, or a no-op one when no brokers are set
func NewEventPublisherFx(
	lc fx.Lifecycle,
	kafkaCfg *config.KafkaConfig,
	m *metrics.Metrics,
	logger zerolog.Logger,
) (deps.EventPublisher, error) {
	if !kafkaCfg.Enabled() {
		logger.Info().Msg("KAFKA_BROKERS is not set, link events are disabled")
		return NoopPublisher{}, nil
	}

	producer, err := NewLinkProducer(kafkaCfg, m, logger.With().Str("component", "link-producer").Logger())
	if err != nil {
		return nil, err
	}

	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			return producer.Close()
		},
	})

	return producer, nil
}
