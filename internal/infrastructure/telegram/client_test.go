package telegram

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/gotd/td/telegram/auth"
	"github.com/gotd/td/tg"
	"github.com/gotd/td/tgerr"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/tgviewer/config"
	"github.com/Conte777/tgviewer/internal/domain/link/entities"
	"github.com/Conte777/tgviewer/internal/infrastructure/metrics"
)

func TestClassifySignIn(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want entities.SignInOutcome
	}{
		{name: "accepted", err: nil, want: entities.SignInAccepted},
		{name: "password needed", err: fmt.Errorf("sign in: %w", auth.ErrPasswordAuthNeeded), want: entities.SignInNeedsSecondFactor},
		{name: "invalid code", err: tgerr.New(400, "PHONE_CODE_INVALID"), want: entities.SignInInvalidCode},
		{name: "empty code", err: tgerr.New(400, "PHONE_CODE_EMPTY"), want: entities.SignInInvalidCode},
		{name: "expired code", err: tgerr.New(400, "PHONE_CODE_EXPIRED"), want: entities.SignInFailed},
		{name: "network", err: errors.New("connection reset"), want: entities.SignInFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := classifySignIn(tt.err)
			assert.Equal(t, tt.want, got.Outcome)
			if tt.want == entities.SignInFailed {
				assert.Equal(t, tt.err, got.Err)
			} else {
				assert.NoError(t, got.Err)
			}
		})
	}
}

func TestClassifyPassword(t *testing.T) {
	assert.Equal(t, entities.SignInAccepted, classifyPassword(nil).Outcome)
	assert.Equal(t, entities.SignInInvalidPassword, classifyPassword(auth.ErrPasswordInvalid).Outcome)

	failed := classifyPassword(tgerr.New(400, "SRP_ID_INVALID"))
	assert.Equal(t, entities.SignInFailed, failed.Outcome)
	assert.Error(t, failed.Err)
}

func TestPhoneCodeHash(t *testing.T) {
	hash, err := phoneCodeHash(&tg.AuthSentCode{PhoneCodeHash: "abc123"})
	require.NoError(t, err)
	assert.Equal(t, "abc123", hash)

	_, err = phoneCodeHash(nil)
	assert.Error(t, err)
}

func testFactory(cfg *config.TelegramConfig) *Factory {
	return NewFactory(cfg, metrics.GetDefaultMetrics(), zerolog.Nop())
}

func TestFactory_NotConfigured(t *testing.T) {
	f := testFactory(&config.TelegramConfig{})

	assert.False(t, f.Configured())

	_, err := f.New()
	assert.Error(t, err)

	_, err = f.FromCredential("AAAA")
	assert.Error(t, err)
}

func TestFactory_CredentialRoundTrip(t *testing.T) {
	f := testFactory(&config.TelegramConfig{APIID: 12345, APIHash: "hash"})
	ctx := context.Background()

	_, err := f.FromCredential("not base64!")
	assert.Error(t, err)

	storage := NewMemorySessionStorage([]byte(`{"Version":1}`))
	credential, err := storage.ExportSession(ctx)
	require.NoError(t, err)

	restored, err := f.FromCredential(credential)
	require.NoError(t, err)

	exported, err := restored.ExportCredential(ctx)
	require.NoError(t, err)
	assert.Equal(t, credential, exported)
}

func TestClient_NotConnected(t *testing.T) {
	f := testFactory(&config.TelegramConfig{APIID: 12345, APIHash: "hash"})
	client, err := f.New()
	require.NoError(t, err)
	ctx := context.Background()

	assert.NoError(t, client.Disconnect(ctx))
	assert.NoError(t, client.Disconnect(ctx), "disconnect is idempotent")

	_, err = client.IsAuthorized(ctx)
	assert.ErrorIs(t, err, ErrNotConnected)

	assert.ErrorIs(t, client.RequestCode(ctx, "+15551230000"), ErrNotConnected)

	result := client.SignIn(ctx, "+15551230000", "12345")
	assert.Equal(t, entities.SignInFailed, result.Outcome)

	err = client.Conversations(ctx, 10, func(entities.RemoteConversation) error { return nil })
	assert.ErrorIs(t, err, ErrNotConnected)

	_, err = client.ExportCredential(ctx)
	assert.Error(t, err, "a new client has no session to export")
}
