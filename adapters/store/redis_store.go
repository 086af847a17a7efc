package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"
	"github.com/redis/go-redis/v9"
)

// RedisSource hands out a live Redis client, typically a *connmgr.Manager[*redis.Client]
type RedisSource interface {
	Get(ctx context.Context) (*redis.Client, error)
}

// Script results below zero signal a rejected credit
const (
	creditNoAccount        = -1
	creditAlreadyCompleted = -2
)

// KEYS: account hash, id sequence, leaderboard zset
// ARGV: address, now (unix ms)
var findOrCreateScript = redis.NewScript(`
local created = 0
if redis.call('EXISTS', KEYS[1]) == 0 then
	local id = redis.call('INCR', KEYS[2])
	redis.call('HSET', KEYS[1], 'id', id, 'address', ARGV[1], 'username', '', 'total_xp', 0, 'created_at', ARGV[2])
	redis.call('ZADD', KEYS[3], 0, ARGV[1])
	created = 1
end
redis.call('HSET', KEYS[1], 'last_active', ARGV[2])
return created
`)

// KEYS: account hash, quest set, quest list, completions hash, leaderboard zset
// ARGV: quest id, reward, evidence json, now (unix ms), address
var creditScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return -1
end
if redis.call('SADD', KEYS[2], ARGV[1]) == 0 then
	return -2
end
redis.call('RPUSH', KEYS[3], ARGV[1])
redis.call('HSET', KEYS[4], ARGV[1], ARGV[3])
local total = redis.call('HINCRBY', KEYS[1], 'total_xp', ARGV[2])
redis.call('HSET', KEYS[1], 'last_active', ARGV[4])
redis.call('ZADD', KEYS[5], total, ARGV[5])
return total
`)

// KEYS: account hash
// ARGV: username
var updateUsernameScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
	return 0
end
redis.call('HSET', KEYS[1], 'username', ARGV[1])
return 1
`)

type redisCompletion struct {
	QuestID     int    `json:"quest_id"`
	XPReward    int64  `json:"xp_reward"`
	TxReference string `json:"tx_reference"`
	Verified    bool   `json:"verified"`
	CompletedAt int64  `json:"completed_at"`
}

// RedisStore is a Redis implementation of the Ledger interface
type RedisStore struct {
	conns  RedisSource
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(conns RedisSource) ports.Ledger {
	return &RedisStore{
		conns:  conns,
		prefix: "questor:",
	}
}

func (s *RedisStore) accountKey(address string) string {
	return s.prefix + "account:" + address
}

func (s *RedisStore) questSetKey(address string) string {
	return s.accountKey(address) + ":quest_set"
}

func (s *RedisStore) questListKey(address string) string {
	return s.accountKey(address) + ":quests"
}

func (s *RedisStore) completionsKey(address string) string {
	return s.accountKey(address) + ":completions"
}

func (s *RedisStore) sequenceKey() string {
	return s.prefix + "account_seq"
}

func (s *RedisStore) leaderboardKey() string {
	return s.prefix + "leaderboard"
}

// FindOrCreateAccount upserts the account in a single script
func (s *RedisStore) FindOrCreateAccount(ctx context.Context, address string, now time.Time) (*core.Account, bool, error) {
	address = core.NormalizeAddress(address)
	client, err := s.conns.Get(ctx)
	if err != nil {
		return nil, false, err
	}

	keys := []string{s.accountKey(address), s.sequenceKey(), s.leaderboardKey()}
	created, err := findOrCreateScript.Run(ctx, client, keys, address, now.UnixMilli()).Int64()
	if err != nil {
		return nil, false, unavailable("failed to upsert account", err)
	}

	account, err := s.loadAccount(ctx, client, address)
	if err != nil {
		return nil, false, err
	}
	return account, created == 1, nil
}

// GetAccount retrieves an account by address
func (s *RedisStore) GetAccount(ctx context.Context, address string) (*core.Account, error) {
	client, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}
	return s.loadAccount(ctx, client, core.NormalizeAddress(address))
}

// CreditCompletion runs the gate and the credit as one script
func (s *RedisStore) CreditCompletion(ctx context.Context, address string, quest core.Quest, evidence core.Evidence, now time.Time) (*core.Account, error) {
	address = core.NormalizeAddress(address)
	client, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	payload, err := json.Marshal(redisCompletion{
		QuestID:     quest.ID,
		XPReward:    quest.XPReward,
		TxReference: evidence.TxReference,
		Verified:    evidence.Verified,
		CompletedAt: now.UnixMilli(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal completion: %w", err)
	}

	keys := []string{
		s.accountKey(address),
		s.questSetKey(address),
		s.questListKey(address),
		s.completionsKey(address),
		s.leaderboardKey(),
	}
	result, err := creditScript.Run(ctx, client, keys, quest.ID, quest.XPReward, string(payload), now.UnixMilli(), address).Int64()
	if err != nil {
		return nil, unavailable("failed to credit completion", err)
	}

	switch result {
	case creditNoAccount:
		return nil, core.ErrAccountNotFound
	case creditAlreadyCompleted:
		return nil, core.ErrAlreadyCompleted
	}

	return s.loadAccount(ctx, client, address)
}

// ListCompletions returns the completion history in completion order
func (s *RedisStore) ListCompletions(ctx context.Context, address string) ([]core.Completion, error) {
	address = core.NormalizeAddress(address)
	client, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	exists, err := client.Exists(ctx, s.accountKey(address)).Result()
	if err != nil {
		return nil, unavailable("failed to check account", err)
	}
	if exists == 0 {
		return nil, core.ErrAccountNotFound
	}

	pipe := client.TxPipeline()
	orderCmd := pipe.LRange(ctx, s.questListKey(address), 0, -1)
	recordsCmd := pipe.HGetAll(ctx, s.completionsKey(address))
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable("failed to load completions", err)
	}

	records := recordsCmd.Val()
	completions := make([]core.Completion, 0, len(orderCmd.Val()))
	for _, id := range orderCmd.Val() {
		raw, ok := records[id]
		if !ok {
			continue
		}
		var rec redisCompletion
		if err := json.Unmarshal([]byte(raw), &rec); err != nil {
			return nil, fmt.Errorf("failed to decode completion %s: %w", id, err)
		}
		completions = append(completions, core.Completion{
			QuestID:     rec.QuestID,
			XPReward:    rec.XPReward,
			Evidence:    core.Evidence{TxReference: rec.TxReference, Verified: rec.Verified},
			CompletedAt: time.UnixMilli(rec.CompletedAt).UTC(),
		})
	}
	return completions, nil
}

// UpdateUsername sets the display name of an existing account
func (s *RedisStore) UpdateUsername(ctx context.Context, address, username string) (*core.Account, error) {
	address = core.NormalizeAddress(address)
	client, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	updated, err := updateUsernameScript.Run(ctx, client, []string{s.accountKey(address)}, username).Int64()
	if err != nil {
		return nil, unavailable("failed to update username", err)
	}
	if updated == 0 {
		return nil, core.ErrAccountNotFound
	}
	return s.loadAccount(ctx, client, address)
}

// TopAccounts reads the leaderboard sorted set. Every member tied with the last
// ranked score is loaded so the creation-order tie-break stays exact at the cut.
func (s *RedisStore) TopAccounts(ctx context.Context, limit int) ([]core.Account, error) {
	if limit <= 0 {
		return []core.Account{}, nil
	}
	client, err := s.conns.Get(ctx)
	if err != nil {
		return nil, err
	}

	top, err := client.ZRevRangeWithScores(ctx, s.leaderboardKey(), 0, int64(limit-1)).Result()
	if err != nil {
		return nil, unavailable("failed to read leaderboard", err)
	}

	members := make([]string, 0, len(top))
	if len(top) < limit {
		for _, z := range top {
			members = append(members, z.Member.(string))
		}
	} else {
		cut := strconv.FormatFloat(top[len(top)-1].Score, 'f', -1, 64)
		members, err = client.ZRevRangeByScore(ctx, s.leaderboardKey(), &redis.ZRangeBy{Max: "+inf", Min: cut}).Result()
		if err != nil {
			return nil, unavailable("failed to read leaderboard", err)
		}
	}

	accounts := make([]core.Account, 0, len(members))
	for _, member := range members {
		account, err := s.loadAccount(ctx, client, member)
		if errors.Is(err, core.ErrAccountNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		accounts = append(accounts, *account)
	}

	sortLeaderboard(accounts)
	if len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

func (s *RedisStore) loadAccount(ctx context.Context, client *redis.Client, address string) (*core.Account, error) {
	pipe := client.TxPipeline()
	fieldsCmd := pipe.HGetAll(ctx, s.accountKey(address))
	questsCmd := pipe.LRange(ctx, s.questListKey(address), 0, -1)
	if _, err := pipe.Exec(ctx); err != nil && !errors.Is(err, redis.Nil) {
		return nil, unavailable("failed to load account", err)
	}

	fields := fieldsCmd.Val()
	if len(fields) == 0 {
		return nil, core.ErrAccountNotFound
	}

	account := &core.Account{
		WalletAddress:   address,
		Username:        fields["username"],
		CompletedQuests: make([]int, 0, len(questsCmd.Val())),
	}

	var err error
	if account.ID, err = strconv.ParseInt(fields["id"], 10, 64); err != nil {
		return nil, fmt.Errorf("invalid id for account %s: %w", address, err)
	}
	if account.TotalXP, err = strconv.ParseInt(fields["total_xp"], 10, 64); err != nil {
		return nil, fmt.Errorf("invalid total_xp for account %s: %w", address, err)
	}
	account.CreatedAt = parseMillis(fields["created_at"])
	account.LastActive = parseMillis(fields["last_active"])

	for _, raw := range questsCmd.Val() {
		id, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid quest id %q for account %s: %w", raw, address, err)
		}
		account.CompletedQuests = append(account.CompletedQuests, id)
	}

	return account, nil
}

func parseMillis(raw string) time.Time {
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}

func unavailable(msg string, err error) error {
	return fmt.Errorf("%s: %v: %w", msg, err, core.ErrStoreUnavailable)
}
