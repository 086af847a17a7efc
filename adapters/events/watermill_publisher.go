package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/layer-3/questor/core"
	"github.com/layer-3/questor/ports"
)

const (
	TopicAccountCreated = "questor.account.created"
	TopicQuestCompleted = "questor.quest.completed"
)

// AccountCreatedEvent is published the first time a wallet logs in
type AccountCreatedEvent struct {
	Address   string    `json:"address"`
	AccountID int64     `json:"account_id"`
	CreatedAt time.Time `json:"created_at"`
}

// QuestCompletedEvent is published after a completion has been credited
type QuestCompletedEvent struct {
	Address     string    `json:"address"`
	QuestID     int       `json:"quest_id"`
	XPReward    int64     `json:"xp_reward"`
	TotalXP     int64     `json:"total_xp"`
	TxReference string    `json:"tx_reference"`
	Verified    bool      `json:"verified"`
	CompletedAt time.Time `json:"completed_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{
		publisher: publisher,
	}
}

// PublishAccountCreated publishes an account creation event
func (p *WatermillPublisher) PublishAccountCreated(ctx context.Context, account *core.Account) error {
	return p.publish(ctx, TopicAccountCreated, AccountCreatedEvent{
		Address:   account.WalletAddress,
		AccountID: account.ID,
		CreatedAt: account.CreatedAt,
	})
}

// PublishQuestCompleted publishes a quest completion event
func (p *WatermillPublisher) PublishQuestCompleted(ctx context.Context, account *core.Account, completion core.Completion) error {
	return p.publish(ctx, TopicQuestCompleted, QuestCompletedEvent{
		Address:     account.WalletAddress,
		QuestID:     completion.QuestID,
		XPReward:    completion.XPReward,
		TotalXP:     account.TotalXP,
		TxReference: completion.Evidence.TxReference,
		Verified:    completion.Evidence.Verified,
		CompletedAt: completion.CompletedAt,
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}

	return nil
}

// NopPublisher drops every event. Used when event publishing is disabled.
type NopPublisher struct{}

func (NopPublisher) PublishAccountCreated(context.Context, *core.Account) error { return nil }

func (NopPublisher) PublishQuestCompleted(context.Context, *core.Account, core.Completion) error {
	return nil
}
