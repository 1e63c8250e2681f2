package notification

import (
	"context"

	"tableside/internal/logger"
	"tableside/internal/models"
)

// EventPublisher publishes notification frames to the event exchange.
type EventPublisher interface {
	PublishEvent(ctx context.Context, routingKey string, event interface{}) error
}

// Broadcaster publishes order lifecycle events for tenant consoles.
// Delivery is best-effort: failures are logged and never surfaced to the
// originating operation.
type Broadcaster struct {
	events EventPublisher
	logger *logger.Logger
}

// NewBroadcaster creates a broadcaster over the event exchange.
func NewBroadcaster(events EventPublisher, log *logger.Logger) *Broadcaster {
	return &Broadcaster{events: events, logger: log}
}

// BroadcastNewOrder announces a freshly created order to all consoles and
// kitchen displays of the tenant.
func (b *Broadcaster) BroadcastNewOrder(ctx context.Context, order *models.Order) {
	b.publish(ctx, models.NewOrderEvent(models.EventNewOrder, order), order)
}

// BroadcastOrderUpdate announces a status change.
func (b *Broadcaster) BroadcastOrderUpdate(ctx context.Context, order *models.Order) {
	b.publish(ctx, models.NewOrderEvent(models.EventOrderUpdated, order), order)
}

// BroadcastItemAlert tells waiter consoles an item is ready to serve.
// Kitchen displays already see the item state, so only the "all" group
// receives the alert.
func (b *Broadcaster) BroadcastItemAlert(ctx context.Context, order *models.Order, item *models.OrderLineItem) {
	event := models.NewOrderEvent(models.EventItemAlert, order)
	event.Payload = map[string]interface{}{
		"item_id":   item.ID,
		"item_name": item.Name,
		"status":    item.Status,
	}
	key := models.NotificationRoutingKey(order.RestaurantID, models.RoleAll)
	if err := b.events.PublishEvent(ctx, key, event); err != nil {
		b.logger.Error("broadcast_failed", "Failed to publish item alert", "", err,
			map[string]interface{}{"routing_key": key, "order_number": order.Number})
	}
}

func (b *Broadcaster) publish(ctx context.Context, event *models.OrderEvent, order *models.Order) {
	for _, role := range []string{models.RoleAll, models.RoleKitchen} {
		key := models.NotificationRoutingKey(order.RestaurantID, role)
		if err := b.events.PublishEvent(ctx, key, event); err != nil {
			b.logger.Error("broadcast_failed", "Failed to publish order event", "", err,
				map[string]interface{}{"routing_key": key, "order_number": order.Number})
		}
	}
}
