package confirmation

import (
	"context"
	"fmt"

	"tableside/internal/messaging"
	"tableside/internal/models"
)

// Enqueuer publishes confirmation tasks to the task exchange.
type Enqueuer struct {
	publisher *messaging.Publisher
}

// NewEnqueuer creates a task enqueuer.
func NewEnqueuer(publisher *messaging.Publisher) *Enqueuer {
	return &Enqueuer{publisher: publisher}
}

// EnqueueConfirmation publishes the task as a persistent message so it
// survives a broker restart.
func (e *Enqueuer) EnqueueConfirmation(ctx context.Context, task *models.ConfirmationTask) error {
	if err := e.publisher.PublishTask(ctx, messaging.ConfirmationKey, task); err != nil {
		return fmt.Errorf("failed to publish confirmation task: %w", err)
	}
	return nil
}
