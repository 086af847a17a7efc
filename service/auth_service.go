package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"
)

const DefaultSessionTTL = 24 * time.Hour

// Login results reported to the Recorder
const (
	LoginSucceeded = "success"
	LoginRejected  = "rejected"
	LoginFailed    = "error"
)

// AuthService handles wallet login and session validation
type AuthService struct {
	verifier  ports.SignatureVerifier
	tokenizer ports.Tokenizer
	ledger    ports.Ledger
	eventPub  ports.EventPublisher
	recorder  ports.Recorder
	logger    *slog.Logger

	sessionTTL time.Duration
	now        func() time.Time
}

// AuthOption configures an AuthService
type AuthOption func(*AuthService)

// WithSessionTTL overrides the lifetime of issued sessions
func WithSessionTTL(ttl time.Duration) AuthOption {
	return func(s *AuthService) {
		if ttl > 0 {
			s.sessionTTL = ttl
		}
	}
}

// WithAuthClock overrides the clock used to stamp sessions and accounts
func WithAuthClock(now func() time.Time) AuthOption {
	return func(s *AuthService) {
		s.now = now
	}
}

// NewAuthService creates a new authentication service
func NewAuthService(
	verifier ports.SignatureVerifier,
	tokenizer ports.Tokenizer,
	ledger ports.Ledger,
	eventPub ports.EventPublisher,
	recorder ports.Recorder,
	logger *slog.Logger,
	opts ...AuthOption,
) *AuthService {
	s := &AuthService{
		verifier:   verifier,
		tokenizer:  tokenizer,
		ledger:     ledger,
		eventPub:   eventPub,
		recorder:   recorder,
		logger:     logger,
		sessionTTL: DefaultSessionTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Login verifies that signature over message was produced by address,
// creates the account on first login and issues a session token
func (s *AuthService) Login(ctx context.Context, address, signature, message string) (string, *core.Account, error) {
	if strings.TrimSpace(address) == "" || signature == "" || message == "" {
		s.recorder.RecordLogin(LoginRejected)
		return "", nil, fmt.Errorf("walletAddress, signature and message are required: %w", core.ErrInvalidInput)
	}

	if err := s.verifier.Verify(message, signature, strings.TrimSpace(address)); err != nil {
		s.recorder.RecordLogin(LoginRejected)
		s.logger.Debug("login rejected", "address", address, "error", err)
		return "", nil, err
	}

	now := s.now()
	account, created, err := s.ledger.FindOrCreateAccount(ctx, core.NormalizeAddress(address), now)
	if err != nil {
		s.recorder.RecordLogin(LoginFailed)
		return "", nil, fmt.Errorf("failed to load account: %w", err)
	}

	session := &core.Session{
		ID:        uuid.New().String(),
		Address:   account.WalletAddress,
		AccountID: account.ID,
		IssuedAt:  now,
		ExpiresAt: now.Add(s.sessionTTL),
	}

	token, err := s.tokenizer.SessionToToken(session)
	if err != nil {
		s.recorder.RecordLogin(LoginFailed)
		return "", nil, fmt.Errorf("failed to create session token: %w", err)
	}

	if created {
		s.logger.Info("account created", "address", account.WalletAddress, "account_id", account.ID)
		if err := s.eventPub.PublishAccountCreated(ctx, account); err != nil {
			s.logger.Warn("failed to publish account created event", "address", account.WalletAddress, "error", err)
		}
	}

	s.recorder.RecordLogin(LoginSucceeded)
	return token, account, nil
}

// ValidateSessionToken returns the session carried by token.
// Every rejection is reported as core.ErrUnauthenticated.
func (s *AuthService) ValidateSessionToken(ctx context.Context, token string) (*core.Session, error) {
	if token == "" {
		return nil, core.ErrUnauthenticated
	}

	session, err := s.tokenizer.TokenToSession(token)
	if err != nil {
		s.logger.DebugContext(ctx, "session token rejected", "error", err)
		return nil, core.ErrUnauthenticated
	}

	if session.Address == "" || !s.now().Before(session.ExpiresAt) {
		s.logger.DebugContext(ctx, "session token rejected", "reason", "empty subject or expired")
		return nil, core.ErrUnauthenticated
	}

	return session, nil
}
