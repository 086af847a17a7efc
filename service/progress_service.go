package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/layer-3/questor/catalog"
	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"
)

const MaxTxReferenceLength = 128

// Completion results reported to the Recorder
const (
	CompletionCredited  = "credited"
	CompletionDuplicate = "duplicate"
	CompletionRejected  = "rejected"
	CompletionFailed    = "error"
)

// ProgressService credits quest completions exactly once per account and quest
type ProgressService struct {
	quests   *catalog.Catalog
	ledger   ports.Ledger
	eventPub ports.EventPublisher
	recorder ports.Recorder
	logger   *slog.Logger
	now      func() time.Time
}

// NewProgressService creates a new progress service
func NewProgressService(
	quests *catalog.Catalog,
	ledger ports.Ledger,
	eventPub ports.EventPublisher,
	recorder ports.Recorder,
	logger *slog.Logger,
) *ProgressService {
	return &ProgressService{
		quests:   quests,
		ledger:   ledger,
		eventPub: eventPub,
		recorder: recorder,
		logger:   logger,
		now:      time.Now,
	}
}

// ValidateEvidence checks the caller-supplied transaction reference
func ValidateEvidence(evidence core.Evidence) error {
	ref := strings.TrimSpace(evidence.TxReference)
	if ref == "" {
		return fmt.Errorf("txReference is required: %w", core.ErrInvalidInput)
	}
	if len(ref) > MaxTxReferenceLength {
		return fmt.Errorf("txReference exceeds %d characters: %w", MaxTxReferenceLength, core.ErrInvalidInput)
	}
	return nil
}

// CompleteQuest credits questID to the account at address. The duplicate check and
// the credit happen in one ledger operation, so concurrent or retried requests for
// the same quest credit it at most once.
func (s *ProgressService) CompleteQuest(ctx context.Context, address string, questID int, evidence core.Evidence) (*core.Account, core.Quest, error) {
	evidence.TxReference = strings.TrimSpace(evidence.TxReference)
	if err := ValidateEvidence(evidence); err != nil {
		s.recorder.RecordCompletion(CompletionRejected, evidence.Verified)
		return nil, core.Quest{}, err
	}

	quest, ok := s.quests.Get(questID)
	if !ok {
		s.recorder.RecordCompletion(CompletionRejected, evidence.Verified)
		return nil, core.Quest{}, core.ErrQuestNotFound
	}

	address = core.NormalizeAddress(address)
	if _, err := s.ledger.GetAccount(ctx, address); err != nil {
		if errors.Is(err, core.ErrAccountNotFound) {
			// a valid session always belongs to an account created at login
			s.logger.ErrorContext(ctx, "authenticated wallet has no account", "address", address)
		}
		s.recorder.RecordCompletion(CompletionFailed, evidence.Verified)
		return nil, core.Quest{}, err
	}

	now := s.now()
	account, err := s.ledger.CreditCompletion(ctx, address, quest, evidence, now)
	if err != nil {
		if errors.Is(err, core.ErrAlreadyCompleted) {
			s.recorder.RecordCompletion(CompletionDuplicate, evidence.Verified)
			return nil, quest, err
		}
		s.recorder.RecordCompletion(CompletionFailed, evidence.Verified)
		return nil, quest, fmt.Errorf("failed to credit quest %d: %w", quest.ID, err)
	}

	s.logger.InfoContext(ctx, "quest completed",
		"address", address,
		"quest_id", quest.ID,
		"xp_reward", quest.XPReward,
		"total_xp", account.TotalXP,
		"verified", evidence.Verified,
	)

	completion := core.Completion{
		QuestID:     quest.ID,
		XPReward:    quest.XPReward,
		Evidence:    evidence,
		CompletedAt: now,
	}
	if err := s.eventPub.PublishQuestCompleted(ctx, account, completion); err != nil {
		s.logger.WarnContext(ctx, "failed to publish quest completed event", "address", address, "quest_id", quest.ID, "error", err)
	}

	s.recorder.RecordCompletion(CompletionCredited, evidence.Verified)
	return account, quest, nil
}

// GetProgress returns the account at address
func (s *ProgressService) GetProgress(ctx context.Context, address string) (*core.Account, error) {
	return s.ledger.GetAccount(ctx, core.NormalizeAddress(address))
}

// ListHistory returns the credited completions of the account in completion order
func (s *ProgressService) ListHistory(ctx context.Context, address string) ([]core.Completion, error) {
	return s.ledger.ListCompletions(ctx, core.NormalizeAddress(address))
}

// Quests returns the quest catalog in id order
func (s *ProgressService) Quests() []core.Quest {
	return s.quests.List()
}

// Quest returns one catalog entry
func (s *ProgressService) Quest(id int) (core.Quest, error) {
	q, ok := s.quests.Get(id)
	if !ok {
		return core.Quest{}, core.ErrQuestNotFound
	}
	return q, nil
}
