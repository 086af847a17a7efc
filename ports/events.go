package ports

import (
	"context"

	"github.com/layer-3/questor/core"
)

// EventPublisher publishes ledger events to other consumers
type EventPublisher interface {
	PublishAccountCreated(ctx context.Context, account *core.Account) error
	PublishQuestCompleted(ctx context.Context, account *core.Account, completion core.Completion) error
}

// Recorder counts domain outcomes for monitoring
type Recorder interface {
	RecordLogin(result string)
	RecordCompletion(result string, verified bool)
}
