package business

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Conte777/tgviewer/internal/domain/link/deps"
	"github.com/Conte777/tgviewer/internal/domain/link/entities"
	linkerrors "github.com/Conte777/tgviewer/internal/domain/link/errors"
	pkgerrors "github.com/Conte777/tgviewer/pkg/errors"
)

const testPhone = "+15551230000"

func TestLinker_BeginNotConfigured(t *testing.T) {
	f := newFixture(t)
	f.factory.configured = false

	err := f.linker.Begin(context.Background(), 1, testPhone)

	assert.ErrorIs(t, err, linkerrors.ErrNotConfigured)
	var cfgErr *pkgerrors.ConfigurationError
	assert.True(t, errors.As(err, &cfgErr))
	assert.Zero(t, f.factory.newCalls.Load(), "no client must be created")
}

func TestLinker_BeginRequiresPhone(t *testing.T) {
	f := newFixture(t)

	err := f.linker.Begin(context.Background(), 1, "")

	assert.ErrorIs(t, err, linkerrors.ErrPhoneRequired)
}

func TestLinker_BeginSendsCode(t *testing.T) {
	f := newFixture(t)
	var gotPhone string
	client := &mockRemoteClient{
		requestCodeFunc: func(ctx context.Context, phone string) error {
			gotPhone = phone
			return nil
		},
	}
	f.withClient(client)

	require.NoError(t, f.linker.Begin(context.Background(), 1, testPhone))

	assert.Equal(t, testPhone, gotPhone)
	assert.True(t, f.hasPending(1, testPhone))
	assert.Zero(t, client.disconnects.Load(), "pending client stays connected")
}

func TestLinker_BeginAlreadyAuthorizedSkipsCode(t *testing.T) {
	f := newFixture(t)
	client := &mockRemoteClient{
		isAuthorizedFunc: func(context.Context) (bool, error) { return true, nil },
	}
	f.withClient(client)

	require.NoError(t, f.linker.Begin(context.Background(), 1, testPhone))

	assert.Zero(t, client.requestCodeCalls.Load())
	assert.True(t, f.hasPending(1, testPhone))
}

func TestLinker_BeginRemoteFailure(t *testing.T) {
	tests := []struct {
		name   string
		client *mockRemoteClient
		want   string
	}{
		{
			name: "connect fails",
			client: &mockRemoteClient{
				connectFunc: func(context.Context) error { return errors.New("dial tcp: timeout") },
			},
			want: "Failed to send code: dial tcp: timeout",
		},
		{
			name: "send code fails",
			client: &mockRemoteClient{
				requestCodeFunc: func(context.Context, string) error { return errors.New("PHONE_NUMBER_INVALID") },
			},
			want: "Failed to send code: PHONE_NUMBER_INVALID",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.withClient(tt.client)

			err := f.linker.Begin(context.Background(), 1, testPhone)

			var valErr *pkgerrors.ValidationError
			require.True(t, errors.As(err, &valErr))
			assert.Equal(t, tt.want, err.Error())
			assert.Equal(t, int32(1), tt.client.disconnects.Load())
			assert.False(t, f.hasPending(1, testPhone))
		})
	}
}

func TestLinker_BeginReplacesPendingClient(t *testing.T) {
	f := newFixture(t)
	first := &mockRemoteClient{}
	second := &mockRemoteClient{}

	f.withClient(first)
	require.NoError(t, f.linker.Begin(context.Background(), 1, testPhone))
	f.withClient(second)
	require.NoError(t, f.linker.Begin(context.Background(), 1, testPhone))

	assert.Equal(t, int32(1), first.disconnects.Load())
	assert.Zero(t, second.disconnects.Load())
	assert.Equal(t, 1, f.pending.Len())
}

func TestLinker_SubmitWithoutBegin(t *testing.T) {
	f := newFixture(t)

	_, err := f.linker.SubmitCode(context.Background(), 1, testPhone, "12345", "")

	assert.ErrorIs(t, err, linkerrors.ErrNoPendingLink)
	assert.Zero(t, f.repo.calls.Load(), "credential store must not be touched")
}

func TestLinker_SubmitForOtherUserHasNoPending(t *testing.T) {
	f := newFixture(t)
	f.withClient(&mockRemoteClient{})
	require.NoError(t, f.linker.Begin(context.Background(), 1, testPhone))

	_, err := f.linker.SubmitCode(context.Background(), 2, testPhone, "12345", "")

	assert.ErrorIs(t, err, linkerrors.ErrNoPendingLink)
	assert.True(t, f.hasPending(1, testPhone))
}

func TestLinker_InvalidCodeExample(t *testing.T) {
	f := newFixture(t)
	client := &mockRemoteClient{
		signInFunc: func(ctx context.Context, phone, code string) entities.SignInResult {
			if code == "00000" {
				return entities.InvalidCode()
			}
			return entities.Accepted()
		},
	}
	f.withClient(client)

	require.NoError(t, f.linker.Begin(context.Background(), 1, "+15551230000"))

	_, err := f.linker.SubmitCode(context.Background(), 1, "+15551230000", "00000", "")

	var valErr *pkgerrors.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "Invalid verification code", err.Error())
	assert.False(t, f.hasPending(1, "+15551230000"))
	assert.Equal(t, int32(1), client.disconnects.Load())
	assert.Zero(t, f.repo.activeCount(1))

	// a failed handshake never blocks a new one
	f.withClient(&mockRemoteClient{})
	assert.NoError(t, f.linker.Begin(context.Background(), 1, "+15551230000"))
}

func TestLinker_SubmitSuccess(t *testing.T) {
	f := newFixture(t)
	client := &mockRemoteClient{}
	f.withClient(client)
	ctx := context.Background()

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
	result, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "")

	require.NoError(t, err)
	assert.False(t, result.RequiresPassword)
	assert.False(t, f.hasPending(1, testPhone))
	assert.Equal(t, int32(1), client.disconnects.Load())
	assert.Equal(t, int32(1), f.events.linked.Load())

	stored, err := f.repo.GetActive(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, testPhone, stored.PhoneNumber)
	assert.Equal(t, "exported-credential", stored.SessionString)
}

func TestLinker_PublishFailureDoesNotFailLink(t *testing.T) {
	f := newFixture(t)
	f.events.err = errors.New("broker down")
	f.withClient(&mockRemoteClient{})
	ctx := context.Background()

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
	_, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "")

	assert.NoError(t, err)
	assert.Equal(t, 1, f.repo.activeCount(1))
}

func TestLinker_SecondFactorFlow(t *testing.T) {
	f := newFixture(t)
	client := &mockRemoteClient{
		signInFunc: func(context.Context, string, string) entities.SignInResult {
			return entities.NeedsSecondFactor()
		},
		signInWithPasswordFunc: func(ctx context.Context, password string) entities.SignInResult {
			if password == "hunter2" {
				return entities.Accepted()
			}
			return entities.InvalidPassword()
		},
	}
	f.withClient(client)
	ctx := context.Background()

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))

	result, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "")
	require.NoError(t, err)
	assert.True(t, result.RequiresPassword)
	assert.True(t, f.hasPending(1, testPhone), "pending link is kept for the password step")
	assert.Zero(t, f.repo.activeCount(1))
	assert.Zero(t, client.disconnects.Load())

	result, err = f.linker.SubmitCode(ctx, 1, testPhone, "12345", "hunter2")
	require.NoError(t, err)
	assert.False(t, result.RequiresPassword)
	assert.Equal(t, int32(1), client.signInCalls.Load(), "code is not submitted twice")
	assert.Equal(t, int32(1), client.passwordCalls.Load())
	assert.Equal(t, 1, f.repo.activeCount(1))
	assert.False(t, f.hasPending(1, testPhone))
	assert.Equal(t, int32(1), client.disconnects.Load())
}

func TestLinker_SecondFactorInOneCall(t *testing.T) {
	f := newFixture(t)
	client := &mockRemoteClient{
		signInFunc: func(context.Context, string, string) entities.SignInResult {
			return entities.NeedsSecondFactor()
		},
	}
	f.withClient(client)
	ctx := context.Background()

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
	_, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "hunter2")

	require.NoError(t, err)
	assert.Equal(t, int32(1), client.signInCalls.Load())
	assert.Equal(t, int32(1), client.passwordCalls.Load())
	assert.Equal(t, 1, f.repo.activeCount(1))
}

func TestLinker_InvalidPassword(t *testing.T) {
	tests := []struct {
		name   string
		result entities.SignInResult
	}{
		{name: "rejected", result: entities.InvalidPassword()},
		{name: "remote failure", result: entities.Failed(errors.New("SRP_ID_INVALID"))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			client := &mockRemoteClient{
				signInFunc: func(context.Context, string, string) entities.SignInResult {
					return entities.NeedsSecondFactor()
				},
				signInWithPasswordFunc: func(context.Context, string) entities.SignInResult {
					return tt.result
				},
			}
			f.withClient(client)
			ctx := context.Background()

			require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
			_, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "wrong")

			assert.ErrorIs(t, err, linkerrors.ErrInvalidPassword)
			assert.Equal(t, "Invalid 2FA password", err.Error())
			assert.False(t, f.hasPending(1, testPhone))
			assert.Equal(t, int32(1), client.disconnects.Load())
			assert.Zero(t, f.repo.activeCount(1))
		})
	}
}

func TestLinker_SignInFailed(t *testing.T) {
	f := newFixture(t)
	client := &mockRemoteClient{
		signInFunc: func(context.Context, string, string) entities.SignInResult {
			return entities.Failed(errors.New("PHONE_CODE_EXPIRED"))
		},
	}
	f.withClient(client)
	ctx := context.Background()

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
	_, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "")

	var valErr *pkgerrors.ValidationError
	require.True(t, errors.As(err, &valErr))
	assert.Equal(t, "Authentication failed: PHONE_CODE_EXPIRED", err.Error())
	assert.False(t, f.hasPending(1, testPhone))
	assert.Equal(t, int32(1), client.disconnects.Load())
}

func TestLinker_SaveFailure(t *testing.T) {
	f := newFixture(t)
	f.repo.saveErr = errors.New("connection refused")
	client := &mockRemoteClient{}
	f.withClient(client)
	ctx := context.Background()

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
	_, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "")

	var internalErr *pkgerrors.InternalError
	require.True(t, errors.As(err, &internalErr))
	assert.Equal(t, "Failed to save session", err.Error())
	assert.NotContains(t, err.Error(), "connection refused")
	assert.False(t, f.hasPending(1, testPhone))
	assert.Equal(t, int32(1), client.disconnects.Load())
	assert.Zero(t, f.events.linked.Load())
}

func TestLinker_ExportFailure(t *testing.T) {
	f := newFixture(t)
	client := &mockRemoteClient{
		exportCredentialFunc: func(context.Context) (string, error) { return "", errors.New("no session") },
	}
	f.withClient(client)
	ctx := context.Background()

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
	_, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "")

	assert.Equal(t, "Failed to save session", err.Error())
	assert.Zero(t, f.repo.activeCount(1))
	assert.False(t, f.hasPending(1, testPhone))
}

func TestLinker_SubmitRequiresCode(t *testing.T) {
	f := newFixture(t)
	f.withClient(&mockRemoteClient{})
	ctx := context.Background()

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
	_, err := f.linker.SubmitCode(ctx, 1, testPhone, "", "")

	assert.ErrorIs(t, err, linkerrors.ErrCodeRequired)
	assert.True(t, f.hasPending(1, testPhone), "a malformed submission keeps the handshake")
}

func TestLinker_ConcurrentLinksKeepOneActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.factory.newFunc = func() (deps.RemoteClient, error) { return &mockRemoteClient{}, nil }

	phones := []string{"+10000000001", "+10000000002", "+10000000003", "+10000000004"}
	for _, phone := range phones {
		require.NoError(t, f.linker.Begin(ctx, 1, phone))
	}

	var wg sync.WaitGroup
	for _, phone := range phones {
		wg.Add(1)
		go func(phone string) {
			defer wg.Done()
			_, err := f.linker.SubmitCode(ctx, 1, phone, "12345", "")
			assert.NoError(t, err)
		}(phone)
	}
	wg.Wait()

	assert.Equal(t, 1, f.repo.activeCount(1))
	assert.Zero(t, f.pending.Len())
}

func TestLinker_EndToEnd(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.withClient(&mockRemoteClient{})

	var restoredFrom string
	f.factory.fromCredentialFunc = func(credential string) (deps.RemoteClient, error) {
		restoredFrom = credential
		return &mockRemoteClient{
			isAuthorizedFunc: func(context.Context) (bool, error) { return true, nil },
			conversationsFunc: func(ctx context.Context, limit int, yield func(entities.RemoteConversation) error) error {
				return yield(entities.RemoteConversation{ID: 42, Title: "Saved", IsUser: true})
			},
		}, nil
	}

	require.NoError(t, f.linker.Begin(ctx, 1, testPhone))
	_, err := f.linker.SubmitCode(ctx, 1, testPhone, "12345", "")
	require.NoError(t, err)

	chats, err := f.viewer.ListConversations(ctx, 1)
	require.NoError(t, err)
	require.Len(t, chats, 1)
	assert.Equal(t, entities.ConversationSummary{ID: 42, Title: "Saved", Type: "user"}, chats[0])
	assert.Equal(t, "exported-credential", restoredFrom)

	status, err := f.viewer.Status(ctx, 1)
	require.NoError(t, err)
	assert.True(t, status.Connected)
	require.NotNil(t, status.PhoneNumber)
	assert.Equal(t, testPhone, *status.PhoneNumber)
}
