package core

import (
	"strings"
	"time"
)

// Account is the persisted progress record of a single wallet
type Account struct {
	ID              int64     // Creation sequence, also used as leaderboard tie-break
	WalletAddress   string    // Lower-cased wallet address, immutable
	Username        string    // Optional display name
	TotalXP         int64     // Sum of the rewards of CompletedQuests
	CompletedQuests []int     // Quest ids in completion order
	LastActive      time.Time // Last authenticated action
	CreatedAt       time.Time
}

// HasCompleted reports whether questID is already in the completed set
func (a *Account) HasCompleted(questID int) bool {
	for _, id := range a.CompletedQuests {
		if id == questID {
			return true
		}
	}
	return false
}

// Quest is a static catalog entry
type Quest struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	XPReward    int64  `json:"xpReward"`
	Content     string `json:"content,omitempty"`
	Link        string `json:"link,omitempty"`
}

// Evidence is the caller-supplied description of the on-chain transaction
// that accompanies a completion. It is recorded, never verified.
type Evidence struct {
	TxReference string
	Verified    bool
}

// Completion is the audit record of one credited quest
type Completion struct {
	QuestID     int
	XPReward    int64
	Evidence    Evidence
	CompletedAt time.Time
}

// LeaderboardEntry is one ranked row of the leaderboard projection
type LeaderboardEntry struct {
	Rank          int
	WalletAddress string
	Username      string
	TotalXP       int64
}

// NormalizeAddress returns the canonical (lower-case, trimmed) form of a wallet address
func NormalizeAddress(address string) string {
	return strings.ToLower(strings.TrimSpace(address))
}
