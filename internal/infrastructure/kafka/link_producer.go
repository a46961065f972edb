package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/IBM/sarama"
	"github.com/rs/zerolog"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
	"github.com/Conte777/tgviewer/internal/utils"
)

// LinkProducer publishes link events to Kafka
type LinkProducer struct {
	producer sarama.SyncProducer
	topic    string
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	now      func() time.Time
}

// NewLinkProducer creates a synchronous Kafka producer for link events
func NewLinkProducer(cfg *config.KafkaConfig, m *metrics.Metrics, logger zerolog.Logger) (*LinkProducer, error) {
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("no kafka brokers specified")
	}
	if cfg.TopicLinkEvent == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.Return.Successes = true
	saramaConfig.Producer.Retry.Max = 3
	saramaConfig.Producer.Retry.Backoff = 250 * time.Millisecond
	saramaConfig.Producer.Timeout = 5 * time.Second
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Version = sarama.V2_6_0_0
	saramaConfig.ClientID = "tgviewer-link-producer"

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaConfig)
	if err != nil {
		logger.Error().Err(err).Msg("failed to create link event Kafka producer")
		return nil, err
	}

	logger.Info().
		Strs("brokers", cfg.Brokers).
		Str("topic", cfg.TopicLinkEvent).
		Msg("Link event Kafka producer initialized")

	return newLinkProducer(producer, cfg.TopicLinkEvent, m, logger), nil
}

func newLinkProducer(producer sarama.SyncProducer, topic string, m *metrics.Metrics, logger zerolog.Logger) *LinkProducer {
	return &LinkProducer{
		producer: producer,
		topic:    topic,
		metrics:  m,
		logger:   logger,
		now:      time.Now,
	}
}

// PublishLinked sends telegram.account.linked
func (p *LinkProducer) PublishLinked(ctx context.Context, userID int64, phone string) error {
	return p.send(ctx, &LinkEvent{
		Type:        EventAccountLinked,
		UserID:      userID,
		PhoneNumber: utils.MaskPhoneNumber(phone),
		OccurredAt:  p.now().UTC(),
	})
}

// PublishUnlinked sends telegram.account.unlinked
func (p *LinkProducer) PublishUnlinked(ctx context.Context, userID int64) error {
	return p.send(ctx, &LinkEvent{
		Type:       EventAccountUnlinked,
		UserID:     userID,
		OccurredAt: p.now().UTC(),
	})
}

func (p *LinkProducer) send(ctx context.Context, event *LinkEvent) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled before sending: %w", err)
	}

	bytes, err := json.Marshal(event)
	if err != nil {
		p.metrics.RecordKafkaError(event.Type)
		p.logger.Error().Err(err).
			Str("event_type", event.Type).
			Msg("failed to marshal link event")
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(strconv.FormatInt(event.UserID, 10)),
		Value: sarama.ByteEncoder(bytes),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		p.metrics.RecordKafkaError(event.Type)
		p.logger.Error().Err(err).
			Str("topic", p.topic).
			Str("event_type", event.Type).
			Int64("user_id", event.UserID).
			Msg("failed to send link event")
		return err
	}

	p.metrics.RecordKafkaMessage()
	p.logger.Debug().
		Str("topic", p.topic).
		Str("event_type", event.Type).
		Int64("user_id", event.UserID).
		Int32("partition", partition).
		Int64("offset", offset).
		Msg("link event sent")

	return nil
}

// Close closes the producer
func (p *LinkProducer) Close() error {
	if p.producer == nil {
		return nil
	}

	if err := p.producer.Close(); err != nil {
		p.logger.Error().Err(err).Msg("failed to close link event producer")
		return err
	}

	p.logger.Info().Msg("Link event producer closed")
	return nil
}

// NoopPublisher drops link events when Kafka is not configured
type NoopPublisher struct{}

func (NoopPublisher) PublishLinked(context.Context, int64, string) error { return nil }
func (NoopPublisher) PublishUnlinked(context.Context, int64) error       { return nil }

var (
	_ deps.EventPublisher = (*LinkProducer)(nil)
	_ deps.EventPublisher = NoopPublisher{}
)
