package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/layer-3/questor/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPublishQuestCompleted(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, TopicQuestCompleted)
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub)
	completedAt := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	account := &core.Account{WalletAddress: "0xabc", TotalXP: 250}
	completion := core.Completion{
		QuestID:     2,
		XPReward:    150,
		Evidence:    core.Evidence{TxReference: "0xdead", Verified: false},
		CompletedAt: completedAt,
	}
	require.NoError(t, pub.PublishQuestCompleted(ctx, account, completion))

	select {
	case msg := <-messages:
		var event QuestCompletedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		msg.Ack()

		assert.Equal(t, "0xabc", event.Address)
		assert.Equal(t, 2, event.QuestID)
		assert.Equal(t, int64(150), event.XPReward)
		assert.Equal(t, int64(250), event.TotalXP)
		assert.Equal(t, "0xdead", event.TxReference)
		assert.False(t, event.Verified)
		assert.True(t, event.CompletedAt.Equal(completedAt))
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}

func TestPublishAccountCreated(t *testing.T) {
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	defer pubSub.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	messages, err := pubSub.Subscribe(ctx, TopicAccountCreated)
	require.NoError(t, err)

	pub := NewWatermillPublisher(pubSub)
	require.NoError(t, pub.PublishAccountCreated(ctx, &core.Account{ID: 3, WalletAddress: "0xabc"}))

	select {
	case msg := <-messages:
		var event AccountCreatedEvent
		require.NoError(t, json.Unmarshal(msg.Payload, &event))
		msg.Ack()
		assert.Equal(t, int64(3), event.AccountID)
		assert.Equal(t, "0xabc", event.Address)
	case <-ctx.Done():
		t.Fatal("event not delivered")
	}
}
