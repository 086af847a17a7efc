package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"
)

type memoryAccount struct {
	account     core.Account
	completions []core.Completion
}

// MemoryStore is an in-memory implementation of the Ledger interface
type MemoryStore struct {
	accounts map[string]*memoryAccount
	nextID   int64
	mu       sync.RWMutex
}

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Ledger {
	return &MemoryStore{
		accounts: make(map[string]*memoryAccount),
	}
}

// FindOrCreateAccount returns the account for address, creating it on first use
func (s *MemoryStore) FindOrCreateAccount(ctx context.Context, address string, now time.Time) (*core.Account, bool, error) {
	address = core.NormalizeAddress(address)

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, exists := s.accounts[address]
	if !exists {
		s.nextID++
		rec = &memoryAccount{
			account: core.Account{
				ID:              s.nextID,
				WalletAddress:   address,
				CompletedQuests: []int{},
				CreatedAt:       now,
			},
		}
		s.accounts[address] = rec
	}
	rec.account.LastActive = now

	return copyAccount(&rec.account), !exists, nil
}

// GetAccount retrieves an account by address
func (s *MemoryStore) GetAccount(ctx context.Context, address string) (*core.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.accounts[core.NormalizeAddress(address)]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return copyAccount(&rec.account), nil
}

// CreditCompletion records the completion and adds the reward under a single lock
func (s *MemoryStore) CreditCompletion(ctx context.Context, address string, quest core.Quest, evidence core.Evidence, now time.Time) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[core.NormalizeAddress(address)]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	if rec.account.HasCompleted(quest.ID) {
		return nil, core.ErrAlreadyCompleted
	}

	rec.account.CompletedQuests = append(rec.account.CompletedQuests, quest.ID)
	rec.account.TotalXP += quest.XPReward
	rec.account.LastActive = now
	rec.completions = append(rec.completions, core.Completion{
		QuestID:     quest.ID,
		XPReward:    quest.XPReward,
		Evidence:    evidence,
		CompletedAt: now,
	})

	return copyAccount(&rec.account), nil
}

// ListCompletions returns the completion history of an account
func (s *MemoryStore) ListCompletions(ctx context.Context, address string) ([]core.Completion, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, ok := s.accounts[core.NormalizeAddress(address)]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	return append([]core.Completion{}, rec.completions...), nil
}

// UpdateUsername sets the display name of an account
func (s *MemoryStore) UpdateUsername(ctx context.Context, address, username string) (*core.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[core.NormalizeAddress(address)]
	if !ok {
		return nil, core.ErrAccountNotFound
	}
	rec.account.Username = username
	return copyAccount(&rec.account), nil
}

// TopAccounts returns the highest-XP accounts
func (s *MemoryStore) TopAccounts(ctx context.Context, limit int) ([]core.Account, error) {
	if limit <= 0 {
		return []core.Account{}, nil
	}

	s.mu.RLock()
	all := make([]core.Account, 0, len(s.accounts))
	for _, rec := range s.accounts {
		all = append(all, *copyAccount(&rec.account))
	}
	s.mu.RUnlock()

	sortLeaderboard(all)
	if len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func copyAccount(a *core.Account) *core.Account {
	out := *a
	out.CompletedQuests = append([]int{}, a.CompletedQuests...)
	return &out
}

// sortLeaderboard orders by XP descending, then creation order
func sortLeaderboard(accounts []core.Account) {
	sort.SliceStable(accounts, func(i, j int) bool {
		if accounts[i].TotalXP != accounts[j].TotalXP {
			return accounts[i].TotalXP > accounts[j].TotalXP
		}
		return accounts[i].ID < accounts[j].ID
	})
}
