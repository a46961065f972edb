package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

func newTestProducer(t *testing.T) (*LinkProducer, *mocks.SyncProducer) {
	t.Helper()

	mock := mocks.NewSyncProducer(t, nil)
	p := newLinkProducer(mock, "telegram.account.events", metrics.GetDefaultMetrics(), zerolog.Nop())
	p.now = func() time.Time { return time.Date(2024, 3, 9, 11, 30, 0, 0, time.UTC) }
	return p, mock
}

func decodeEvent(t *testing.T, msg *sarama.ProducerMessage) LinkEvent {
	t.Helper()

	raw, err := msg.Value.Encode()
	require.NoError(t, err)

	var event LinkEvent
	require.NoError(t, json.Unmarshal(raw, &event))
	return event
}

func TestNewLinkProducer_Validation(t *testing.T) {
	_, err := NewLinkProducer(&config.KafkaConfig{}, metrics.GetDefaultMetrics(), zerolog.Nop())
	assert.EqualError(t, err, "no kafka brokers specified")

	_, err = NewLinkProducer(&config.KafkaConfig{Brokers: []string{"localhost:9092"}}, metrics.GetDefaultMetrics(), zerolog.Nop())
	assert.EqualError(t, err, "kafka topic is required")
}

func TestLinkProducer_PublishLinked(t *testing.T) {
	p, mock := newTestProducer(t)

	var sent *sarama.ProducerMessage
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	require.NoError(t, p.PublishLinked(context.Background(), 42, "+15551230000"))
	require.NoError(t, mock.Close())

	require.NotNil(t, sent)
	assert.Equal(t, "telegram.account.events", sent.Topic)
	key, err := sent.Key.Encode()
	require.NoError(t, err)
	assert.Equal(t, "42", string(key))

	event := decodeEvent(t, sent)
	assert.Equal(t, EventAccountLinked, event.Type)
	assert.Equal(t, int64(42), event.UserID)
	assert.NotEqual(t, "+15551230000", event.PhoneNumber, "phone number is masked")
	assert.NotEmpty(t, event.PhoneNumber)
	assert.True(t, event.OccurredAt.Equal(time.Date(2024, 3, 9, 11, 30, 0, 0, time.UTC)))
}

func TestLinkProducer_PublishUnlinked(t *testing.T) {
	p, mock := newTestProducer(t)

	var sent *sarama.ProducerMessage
	mock.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
		sent = msg
		return nil
	})

	require.NoError(t, p.PublishUnlinked(context.Background(), 7))
	require.NoError(t, mock.Close())

	event := decodeEvent(t, sent)
	assert.Equal(t, EventAccountUnlinked, event.Type)
	assert.Equal(t, int64(7), event.UserID)
	assert.Empty(t, event.PhoneNumber)
}

func TestLinkProducer_SendFailure(t *testing.T) {
	p, mock := newTestProducer(t)
	mock.ExpectSendMessageAndFail(errors.New("broker not available"))

	err := p.PublishUnlinked(context.Background(), 7)

	assert.EqualError(t, err, "broker not available")
	require.NoError(t, mock.Close())
}

func TestLinkProducer_CancelledContext(t *testing.T) {
	p, mock := newTestProducer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.PublishLinked(ctx, 1, "+15551230000")

	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, mock.Close())
}

func TestNoopPublisher(t *testing.T) {
	var p NoopPublisher
	assert.NoError(t, p.PublishLinked(context.Background(), 1, "+1"))
	assert.NoError(t, p.PublishUnlinked(context.Background(), 1))
}
