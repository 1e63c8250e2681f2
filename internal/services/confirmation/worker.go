package confirmation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"

	"tableside/internal/logger"
	"tableside/internal/messaging"
	"tableside/internal/models"
	"tableside/internal/services/order"
)

const maxAttempts = 3

// initialBackoff doubles on every retry. Variable so tests can shrink it.
var initialBackoff = time.Second

// Confirmer performs the confirmation unit of work. Satisfied by
// *order.Repository.
type Confirmer interface {
	ConfirmOrder(ctx context.Context, restaurantID, orderID uuid.UUID, changedBy string) (bool, *models.Order, error)
}

// EventPublisher fans confirmation results out to consoles.
type EventPublisher interface {
	PublishEvent(ctx context.Context, routingKey string, event interface{}) error
}

// Worker consumes confirmation tasks, deducts stock and flips orders from
// PENDING to CONFIRMED. Each task is retried in-process with backoff;
// after the attempts are exhausted the task is dropped with an operator
// alert and the order stays PENDING for manual re-dispatch.
type Worker struct {
	confirmer Confirmer
	events    EventPublisher
	consumer  *messaging.Consumer
	logger    *logger.Logger
	workerID  string
}

// NewWorker wires a confirmation worker.
func NewWorker(confirmer Confirmer, events EventPublisher, conn *messaging.Connection, log *logger.Logger, workerID string, prefetch int) *Worker {
	return &Worker{
		confirmer: confirmer,
		events:    events,
		consumer:  messaging.NewConsumer(conn, log, messaging.ConfirmationQueue, workerID, prefetch, false),
		logger:    log,
		workerID:  workerID,
	}
}

// Run consumes tasks until the context is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker_started", "Confirmation worker started", "", map[string]interface{}{
		"worker_id": w.workerID,
	})
	return w.consumer.StartConsuming(ctx, w.handleTask)
}

// Close stops the consumer.
func (w *Worker) Close() error {
	return w.consumer.Close()
}

func (w *Worker) handleTask(ctx context.Context, delivery amqp091.Delivery) error {
	var task models.ConfirmationTask
	if err := json.Unmarshal(delivery.Body, &task); err != nil {
		w.logger.Error("task_malformed", "Dropping malformed confirmation task", "", err, nil)
		return nil
	}

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		confirmed, confirmedOrder, err := w.confirmer.ConfirmOrder(ctx, task.RestaurantID, task.OrderID, w.workerID)
		if err == nil {
			if !confirmed {
				// Duplicate delivery; the order already moved past PENDING.
				w.logger.Info("task_skipped", "Order already confirmed", "", map[string]interface{}{
					"order_number": task.OrderNumber,
				})
				return nil
			}
			w.publishConfirmed(ctx, confirmedOrder)
			w.logger.Info("order_confirmed", "Order confirmed and sent to kitchen", "", map[string]interface{}{
				"order_number": task.OrderNumber,
				"attempt":      attempt,
			})
			return nil
		}

		if errors.Is(err, order.ErrOrderNotFound) {
			w.logger.Warn("task_orphaned", "Confirmation task references unknown order", "",
				map[string]interface{}{"order_number": task.OrderNumber})
			return nil
		}

		lastErr = err
		if attempt < maxAttempts {
			backoff := initialBackoff << (attempt - 1)
			w.logger.Warn("confirmation_retry", "Confirmation attempt failed, retrying", "",
				map[string]interface{}{
					"order_number": task.OrderNumber,
					"attempt":      attempt,
					"backoff":      backoff.String(),
					"error":        err.Error(),
				})
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	// The order stays PENDING; an operator can re-dispatch the task.
	w.logger.Error("confirmation_failed",
		fmt.Sprintf("Order %s could not be confirmed after %d attempts, operator attention required",
			task.OrderNumber, maxAttempts), "", lastErr,
		map[string]interface{}{"order_number": task.OrderNumber})
	return nil
}

// publishConfirmed announces the confirmed order to the tenant's consoles.
// Notification failures never affect the committed confirmation.
func (w *Worker) publishConfirmed(ctx context.Context, confirmedOrder *models.Order) {
	event := models.NewOrderEvent(models.EventOrderUpdated, confirmedOrder)
	for _, role := range []string{models.RoleAll, models.RoleKitchen} {
		key := models.NotificationRoutingKey(confirmedOrder.RestaurantID, role)
		if err := w.events.PublishEvent(ctx, key, event); err != nil {
			w.logger.Error("event_publish_failed", "Failed to publish confirmation event", "", err,
				map[string]interface{}{"routing_key": key})
		}
	}
}
