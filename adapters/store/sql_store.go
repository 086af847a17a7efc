package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"

	_ "github.com/lib/pq"  // PostgreSQL driver
	_ "modernc.org/sqlite" // SQLite driver
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// SQLSource hands out a live database handle, typically a *connmgr.Manager[*sqlx.DB]
type SQLSource interface {
	Get(ctx context.Context) (*sqlx.DB, error)
}

type accountRow struct {
	ID            int64  `db:"id"`
	WalletAddress string `db:"wallet_address"`
	Username      string `db:"username"`
	TotalXP       int64  `db:"total_xp"`
	LastActive    int64  `db:"last_active"`
	CreatedAt     int64  `db:"created_at"`
}

type completionRow struct {
	QuestID     int    `db:"quest_id"`
	XPReward    int64  `db:"xp_reward"`
	TxReference string `db:"tx_reference"`
	Verified    bool   `db:"verified"`
	CompletedAt int64  `db:"completed_at"`
}

const selectAccount = `SELECT id, wallet_address, username, total_xp, last_active, created_at FROM accounts`

// SQLStore is a sqlx implementation of the Ledger interface for PostgreSQL and SQLite
type SQLStore struct {
	conns SQLSource
}

// NewSQLStore creates a new SQL store
func NewSQLStore(conns SQLSource) ports.Ledger {
	return &SQLStore{conns: conns}
}

// OpenSQL connects to the database, tunes the pool for the driver and applies migrations
func OpenSQL(ctx context.Context, driver, dsn string) (*sqlx.DB, error) {
	db, err := sqlx.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", driver, err)
	}

	switch driver {
	case DriverSQLite:
		// one writer at a time, transactions queue on the pool
		db.SetMaxOpenConns(1)
	default:
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to ping %s database: %w", driver, err)
	}

	if err := ApplyMigrations(ctx, db, driver); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return db, nil
}

// FindOrCreateAccount inserts the account if missing and touches lastActive in one transaction.
// The unique wallet_address constraint arbitrates concurrent first logins.
func (s *SQLStore) FindOrCreateAccount(ctx context.Context, address string, now time.Time) (*core.Account, bool, error) {
	address = core.NormalizeAddress(address)
	db, err := s.conns.Get(ctx)
	if err != nil {
		return nil, false, err
	}

	var account *core.Account
	var created bool
	err = withTx(ctx, db, func(tx *sqlx.Tx) error {
		insert := tx.Rebind(`INSERT INTO accounts (wallet_address, username, total_xp, last_active, created_at)
			VALUES (?, '', 0, ?, ?)
			ON CONFLICT (wallet_address) DO NOTHING`)
		res, err := tx.ExecContext(ctx, insert, address, now.UnixMilli(), now.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to insert account: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		created = rows == 1

		touch := tx.Rebind(`UPDATE accounts SET last_active = ? WHERE wallet_address = ?`)
		if _, err := tx.ExecContext(ctx, touch, now.UnixMilli(), address); err != nil {
			return fmt.Errorf("failed to update last_active: %w", err)
		}

		account, err = loadAccount(ctx, tx, address)
		return err
	})
	if err != nil {
		return nil, false, sqlError("failed to upsert account", err)
	}

	return account, created, nil
}

// GetAccount retrieves an account by address
func (s *SQLStore) GetAccount(ctx context.Context, address string) (*core.Account, error) {
	db, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	account, err := loadAccount(ctx, db, core.NormalizeAddress(address))
	if err != nil {
		return nil, sqlError("failed to get account", err)
	}
	return account, nil
}

// CreditCompletion inserts the completion guarded by the (account_id, quest_id) unique key
// and increments total_xp in the same transaction
func (s *SQLStore) CreditCompletion(ctx context.Context, address string, quest core.Quest, evidence core.Evidence, now time.Time) (*core.Account, error) {
	address = core.NormalizeAddress(address)
	db, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	var account *core.Account
	err = withTx(ctx, db, func(tx *sqlx.Tx) error {
		var accountID int64
		if err := tx.GetContext(ctx, &accountID, tx.Rebind(`SELECT id FROM accounts WHERE wallet_address = ?`), address); err != nil {
			return err
		}

		insert := tx.Rebind(`INSERT INTO completions (account_id, quest_id, xp_reward, tx_reference, verified, completed_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (account_id, quest_id) DO NOTHING`)
		res, err := tx.ExecContext(ctx, insert, accountID, quest.ID, quest.XPReward, evidence.TxReference, evidence.Verified, now.UnixMilli())
		if err != nil {
			return fmt.Errorf("failed to insert completion: %w", err)
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to get rows affected: %w", err)
		}
		if rows == 0 {
			return core.ErrAlreadyCompleted
		}

		credit := tx.Rebind(`UPDATE accounts SET total_xp = total_xp + ?, last_active = ? WHERE id = ?`)
		if _, err := tx.ExecContext(ctx, credit, quest.XPReward, now.UnixMilli(), accountID); err != nil {
			return fmt.Errorf("failed to credit xp: %w", err)
		}

		account, err = loadAccount(ctx, tx, address)
		return err
	})
	if err != nil {
		return nil, sqlError("failed to credit completion", err)
	}

	return account, nil
}

// ListCompletions returns the completion history in completion order
func (s *SQLStore) ListCompletions(ctx context.Context, address string) ([]core.Completion, error) {
	db, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	account, err := loadAccount(ctx, db, core.NormalizeAddress(address))
	if err != nil {
		return nil, sqlError("failed to list completions", err)
	}

	var rows []completionRow
	query := db.Rebind(`SELECT quest_id, xp_reward, tx_reference, verified, completed_at
		FROM completions WHERE account_id = ? ORDER BY seq`)
	if err := db.SelectContext(ctx, &rows, query, account.ID); err != nil {
		return nil, sqlError("failed to list completions", err)
	}

	completions := make([]core.Completion, 0, len(rows))
	for _, r := range rows {
		completions = append(completions, core.Completion{
			QuestID:     r.QuestID,
			XPReward:    r.XPReward,
			Evidence:    core.Evidence{TxReference: r.TxReference, Verified: r.Verified},
			CompletedAt: time.UnixMilli(r.CompletedAt).UTC(),
		})
	}
	return completions, nil
}

// UpdateUsername sets the display name of an existing account
func (s *SQLStore) UpdateUsername(ctx context.Context, address, username string) (*core.Account, error) {
	address = core.NormalizeAddress(address)
	db, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	res, err := db.ExecContext(ctx, db.Rebind(`UPDATE accounts SET username = ? WHERE wallet_address = ?`), username, address)
	if err != nil {
		return nil, sqlError("failed to update username", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return nil, sqlError("failed to update username", err)
	}
	if rows == 0 {
		return nil, core.ErrAccountNotFound
	}

	account, err := loadAccount(ctx, db, address)
	if err != nil {
		return nil, sqlError("failed to update username", err)
	}
	return account, nil
}

// TopAccounts returns the highest-XP accounts, ties broken by creation order
func (s *SQLStore) TopAccounts(ctx context.Context, limit int) ([]core.Account, error) {
	if limit <= 0 {
		return []core.Account{}, nil
	}
	db, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	var rows []accountRow
	query := db.Rebind(selectAccount + ` ORDER BY total_xp DESC, id ASC LIMIT ?`)
	if err := db.SelectContext(ctx, &rows, query, limit); err != nil {
		return nil, sqlError("failed to read leaderboard", err)
	}

	accounts := make([]core.Account, 0, len(rows))
	for _, r := range rows {
		account := r.toDomain()
		if account.CompletedQuests, err = loadQuestIDs(ctx, db, r.ID); err != nil {
			return nil, sqlError("failed to read leaderboard", err)
		}
		accounts = append(accounts, *account)
	}
	return accounts, nil
}

type queryer interface {
	sqlx.QueryerContext
	Rebind(query string) string
}

func loadAccount(ctx context.Context, q queryer, address string) (*core.Account, error) {
	var row accountRow
	if err := sqlx.GetContext(ctx, q, &row, q.Rebind(selectAccount+` WHERE wallet_address = ?`), address); err != nil {
		return nil, err
	}

	account := row.toDomain()
	var err error
	if account.CompletedQuests, err = loadQuestIDs(ctx, q, row.ID); err != nil {
		return nil, err
	}
	return account, nil
}

func loadQuestIDs(ctx context.Context, q queryer, accountID int64) ([]int, error) {
	ids := []int{}
	query := q.Rebind(`SELECT quest_id FROM completions WHERE account_id = ? ORDER BY seq`)
	if err := sqlx.SelectContext(ctx, q, &ids, query, accountID); err != nil {
		return nil, err
	}
	return ids, nil
}

func (r accountRow) toDomain() *core.Account {
	return &core.Account{
		ID:              r.ID,
		WalletAddress:   r.WalletAddress,
		Username:        r.Username,
		TotalXP:         r.TotalXP,
		CompletedQuests: []int{},
		LastActive:      time.UnixMilli(r.LastActive).UTC(),
		CreatedAt:       time.UnixMilli(r.CreatedAt).UTC(),
	}
}

// withTx runs fn in a transaction, committing on success and rolling back otherwise
func withTx(ctx context.Context, db *sqlx.DB, fn func(tx *sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	// no-op after a successful commit
	defer func() { _ = tx.Rollback() }()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// sqlError maps driver errors onto the domain taxonomy
func sqlError(msg string, err error) error {
	switch {
	case errors.Is(err, sql.ErrNoRows):
		return core.ErrAccountNotFound
	case errors.Is(err, core.ErrAlreadyCompleted), errors.Is(err, core.ErrAccountNotFound):
		return err
	}
	return unavailable(msg, err)
}
