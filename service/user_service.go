package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"unicode/utf8"

	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"
)

const (
	LeaderboardSize   = 10
	MaxUsernameLength = 32
	AnonymousUsername = "Anonymous"
)

// UserService serves profiles and the leaderboard
type UserService struct {
	ledger ports.Ledger
	logger *slog.Logger
}

// NewUserService creates a new user service
func NewUserService(ledger ports.Ledger, logger *slog.Logger) *UserService {
	return &UserService{
		ledger: ledger,
		logger: logger,
	}
}

// GetProfile returns the account at address
func (s *UserService) GetProfile(ctx context.Context, address string) (*core.Account, error) {
	return s.ledger.GetAccount(ctx, core.NormalizeAddress(address))
}

// UpdateProfile sets the display name. A nil username leaves the profile
// unchanged. Surrounding whitespace is dropped; an empty name clears it.
func (s *UserService) UpdateProfile(ctx context.Context, address string, username *string) (*core.Account, error) {
	address = core.NormalizeAddress(address)
	if username == nil {
		return s.ledger.GetAccount(ctx, address)
	}

	name := strings.TrimSpace(*username)
	if utf8.RuneCountInString(name) > MaxUsernameLength {
		return nil, fmt.Errorf("username exceeds %d characters: %w", MaxUsernameLength, core.ErrInvalidInput)
	}
	return s.ledger.UpdateUsername(ctx, address, name)
}

// Leaderboard returns the top accounts by XP. A store failure yields an empty board.
func (s *UserService) Leaderboard(ctx context.Context) []core.LeaderboardEntry {
	accounts, err := s.ledger.TopAccounts(ctx, LeaderboardSize)
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to read leaderboard", "error", err)
		return []core.LeaderboardEntry{}
	}

	entries := make([]core.LeaderboardEntry, 0, len(accounts))
	for i, a := range accounts {
		name := a.Username
		if name == "" {
			name = AnonymousUsername
		}
		entries = append(entries, core.LeaderboardEntry{
			Rank:          i + 1,
			WalletAddress: a.WalletAddress,
			Username:      name,
			TotalXP:       a.TotalXP,
		})
	}
	return entries
}
