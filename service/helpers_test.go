package service

import (
	"context"
	"crypto/ecdsa"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/accounts"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/layer-3/questor/core"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func ptr[T any](v T) *T {
	return &v
}

type wallet struct {
	key     *ecdsa.PrivateKey
	address string
}

func newWallet(t *testing.T) wallet {
	t.Helper()
	key, err := crypto.GenerateKey()
	require.NoError(t, err)
	return wallet{key: key, address: crypto.PubkeyToAddress(key.PublicKey).Hex()}
}

// sign produces a personal_sign signature with v in {27, 28}
func (w wallet) sign(t *testing.T, message string) string {
	t.Helper()
	sig, err := crypto.Sign(accounts.TextHash([]byte(message)), w.key)
	require.NoError(t, err)
	sig[crypto.RecoveryIDOffset] += 27
	return hexutil.Encode(sig)
}

type mockLedger struct {
	mock.Mock
}

func (m *mockLedger) FindOrCreateAccount(ctx context.Context, address string, now time.Time) (*core.Account, bool, error) {
	args := m.Called(ctx, address, now)
	account, _ := args.Get(0).(*core.Account)
	return account, args.Bool(1), args.Error(2)
}

func (m *mockLedger) GetAccount(ctx context.Context, address string) (*core.Account, error) {
	args := m.Called(ctx, address)
	account, _ := args.Get(0).(*core.Account)
	return account, args.Error(1)
}

func (m *mockLedger) CreditCompletion(ctx context.Context, address string, quest core.Quest, evidence core.Evidence, now time.Time) (*core.Account, error) {
	args := m.Called(ctx, address, quest, evidence, now)
	account, _ := args.Get(0).(*core.Account)
	return account, args.Error(1)
}

func (m *mockLedger) ListCompletions(ctx context.Context, address string) ([]core.Completion, error) {
	args := m.Called(ctx, address)
	completions, _ := args.Get(0).([]core.Completion)
	return completions, args.Error(1)
}

func (m *mockLedger) UpdateUsername(ctx context.Context, address, username string) (*core.Account, error) {
	args := m.Called(ctx, address, username)
	account, _ := args.Get(0).(*core.Account)
	return account, args.Error(1)
}

func (m *mockLedger) TopAccounts(ctx context.Context, limit int) ([]core.Account, error) {
	args := m.Called(ctx, limit)
	accounts, _ := args.Get(0).([]core.Account)
	return accounts, args.Error(1)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishAccountCreated(ctx context.Context, account *core.Account) error {
	return m.Called(ctx, account).Error(0)
}

func (m *mockPublisher) PublishQuestCompleted(ctx context.Context, account *core.Account, completion core.Completion) error {
	return m.Called(ctx, account, completion).Error(0)
}

type mockRecorder struct {
	mock.Mock
}

func (m *mockRecorder) RecordLogin(result string) {
	m.Called(result)
}

func (m *mockRecorder) RecordCompletion(result string, verified bool) {
	m.Called(result, verified)
}
