package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/questor/adapters/events"
	"github.com/layer-3/questor/adapters/metrics"
	"github.com/layer-3/questor/adapters/signature"
	"github.com/layer-3/questor/adapters/store"
	"github.com/layer-3/questor/adapters/tokenizer"
	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const loginMessage = "Sign in to Shardeum Quest\nNonce: 42"

type authFixture struct {
	service *AuthService
	ledger  ports.Ledger
	now     time.Time
}

func newAuthFixture(t *testing.T, eventPub ports.EventPublisher, recorder ports.Recorder) *authFixture {
	t.Helper()
	f := &authFixture{
		ledger: store.NewMemoryStore(),
		now:    time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	tok, err := tokenizer.NewJWTTokenizer("test-secret", tokenizer.WithClock(clock))
	require.NoError(t, err)

	f.service = NewAuthService(
		signature.NewEthVerifier(),
		tok,
		f.ledger,
		eventPub,
		recorder,
		discardLogger(),
		WithAuthClock(clock),
	)
	return f
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	w := newWallet(t)
	f := newAuthFixture(t, events.NopPublisher{}, metrics.NopRecorder{})

	token, account, err := f.service.Login(ctx, w.address, w.sign(t, loginMessage), loginMessage)
	require.NoError(t, err)
	assert.NotEmpty(t, token)
	assert.Equal(t, core.NormalizeAddress(w.address), account.WalletAddress)
	assert.Equal(t, int64(0), account.TotalXP)
	assert.Empty(t, account.CompletedQuests)

	session, err := f.service.ValidateSessionToken(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, account.WalletAddress, session.Address)
	assert.Equal(t, account.ID, session.AccountID)
	assert.Equal(t, 24*time.Hour, session.ExpiresAt.Sub(session.IssuedAt))

	t.Run("second login reuses the account", func(t *testing.T) {
		f.now = f.now.Add(time.Hour)
		defer func() { f.now = f.now.Add(-time.Hour) }()

		other := "Another message"
		_, again, err := f.service.Login(ctx, w.address, w.sign(t, other), other)
		require.NoError(t, err)
		assert.Equal(t, account.ID, again.ID)
		assert.True(t, again.LastActive.Equal(f.now))
	})
}

func TestLoginRejections(t *testing.T) {
	ctx := context.Background()
	w := newWallet(t)
	other := newWallet(t)
	f := newAuthFixture(t, events.NopPublisher{}, metrics.NopRecorder{})

	tests := []struct {
		name      string
		address   string
		signature string
		message   string
		want      error
	}{
		{"missing address", "", w.sign(t, loginMessage), loginMessage, core.ErrInvalidInput},
		{"missing signature", w.address, "", loginMessage, core.ErrInvalidInput},
		{"missing message", w.address, w.sign(t, loginMessage), "", core.ErrInvalidInput},
		{"malformed address", "0x1234", w.sign(t, loginMessage), loginMessage, core.ErrInvalidAddress},
		{"signed by another wallet", w.address, other.sign(t, loginMessage), loginMessage, core.ErrInvalidSignature},
		{"different message", w.address, w.sign(t, loginMessage), loginMessage + ".", core.ErrInvalidSignature},
		{"garbage signature", w.address, "0xnothex", loginMessage, core.ErrInvalidSignature},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, account, err := f.service.Login(ctx, tt.address, tt.signature, tt.message)
			assert.ErrorIs(t, err, tt.want)
			assert.Empty(t, token)
			assert.Nil(t, account)
		})
	}

	_, err := f.ledger.GetAccount(ctx, w.address)
	assert.ErrorIs(t, err, core.ErrAccountNotFound, "rejected logins must not create accounts")
}

func TestValidateSessionToken(t *testing.T) {
	ctx := context.Background()
	w := newWallet(t)
	f := newAuthFixture(t, events.NopPublisher{}, metrics.NopRecorder{})

	token, _, err := f.service.Login(ctx, w.address, w.sign(t, loginMessage), loginMessage)
	require.NoError(t, err)
	issued := f.now

	t.Run("accepted just before expiry", func(t *testing.T) {
		f.now = issued.Add(23*time.Hour + 59*time.Minute)
		_, err := f.service.ValidateSessionToken(ctx, token)
		assert.NoError(t, err)
	})

	t.Run("rejected after expiry", func(t *testing.T) {
		f.now = issued.Add(24*time.Hour + time.Minute)
		_, err := f.service.ValidateSessionToken(ctx, token)
		assert.ErrorIs(t, err, core.ErrUnauthenticated)
	})

	t.Run("rejected when malformed", func(t *testing.T) {
		f.now = issued
		for _, bad := range []string{"", "abc", token + "x", token[:len(token)-2]} {
			_, err := f.service.ValidateSessionToken(ctx, bad)
			assert.ErrorIs(t, err, core.ErrUnauthenticated)
		}
	})

	t.Run("rejected when signed with another secret", func(t *testing.T) {
		f.now = issued
		forger, err := tokenizer.NewJWTTokenizer("other-secret")
		require.NoError(t, err)
		forged, err := forger.SessionToToken(&core.Session{
			ID:        "forged",
			Address:   core.NormalizeAddress(w.address),
			IssuedAt:  issued,
			ExpiresAt: issued.Add(time.Hour),
		})
		require.NoError(t, err)

		_, err = f.service.ValidateSessionToken(ctx, forged)
		assert.ErrorIs(t, err, core.ErrUnauthenticated)
	})
}

func TestLoginPublishesAccountCreatedOnce(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, events.TopicAccountCreated)
	require.NoError(t, err)

	w := newWallet(t)
	f := newAuthFixture(t, events.NewWatermillPublisher(pubSub), metrics.NopRecorder{})

	for i := 0; i < 3; i++ {
		_, _, err := f.service.Login(ctx, w.address, w.sign(t, loginMessage), loginMessage)
		require.NoError(t, err)
	}

	select {
	case msg := <-messages:
		var event events.AccountCreatedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		msg.Ack()
		assert.Equal(t, core.NormalizeAddress(w.address), event.Address)
	case <-ctx.Done():
		t.Fatal("account created event not received")
	}

	select {
	case msg := <-messages:
		t.Fatalf("unexpected second event: %s", msg.Payload)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoginEventFailureDoesNotFailLogin(t *testing.T) {
	pub := &mockPublisher{}
	pub.On("PublishAccountCreated", mock.Anything, mock.Anything).Return(errors.New("broker down"))

	rec := &mockRecorder{}
	rec.On("RecordLogin", LoginSucceeded).Once()

	w := newWallet(t)
	f := newAuthFixture(t, pub, rec)

	token, _, err := f.service.Login(context.Background(), w.address, w.sign(t, loginMessage), loginMessage)
	require.NoError(t, err)
	assert.NotEmpty(t, token)

	pub.AssertExpectations(t)
	rec.AssertExpectations(t)
}

func TestLoginStoreUnavailable(t *testing.T) {
	ledger := &mockLedger{}
	ledger.On("FindOrCreateAccount", mock.Anything, mock.Anything, mock.Anything).
		Return(nil, false, core.ErrStoreUnavailable)

	rec := &mockRecorder{}
	rec.On("RecordLogin", LoginFailed).Once()

	tok, err := tokenizer.NewJWTTokenizer("test-secret")
	require.NoError(t, err)
	svc := NewAuthService(signature.NewEthVerifier(), tok, ledger, events.NopPublisher{}, rec, discardLogger())

	w := newWallet(t)
	_, _, err = svc.Login(context.Background(), w.address, w.sign(t, loginMessage), loginMessage)
	assert.ErrorIs(t, err, core.ErrStoreUnavailable)

	ledger.AssertExpectations(t)
	rec.AssertExpectations(t)
}
