package ports

import (
	"context"
	"time"

	"github.com/layer-3/questor/core"
)

// Ledger persists accounts and their quest completions.
// Implementations must make FindOrCreateAccount and CreditCompletion atomic at the store level.
type Ledger interface {
	// FindOrCreateAccount upserts the account keyed by the normalized address and sets lastActive.
	// created is true when this call inserted the record.
	FindOrCreateAccount(ctx context.Context, address string, now time.Time) (account *core.Account, created bool, err error)
	GetAccount(ctx context.Context, address string) (*core.Account, error)

	// CreditCompletion appends the quest and adds its reward in one conditional operation.
	// Returns core.ErrAlreadyCompleted without mutating anything when the quest is already present.
	CreditCompletion(ctx context.Context, address string, quest core.Quest, evidence core.Evidence, now time.Time) (*core.Account, error)
	ListCompletions(ctx context.Context, address string) ([]core.Completion, error)

	UpdateUsername(ctx context.Context, address, username string) (*core.Account, error)
	// TopAccounts returns at most limit accounts ordered by totalXP desc, then creation order.
	TopAccounts(ctx context.Context, limit int) ([]core.Account, error)
}
