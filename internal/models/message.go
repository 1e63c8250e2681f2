package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConfirmationTask is the payload queued after order creation and consumed
// by the confirmation worker. Delivery is at-least-once; the worker's
// status guard makes handling idempotent.
type ConfirmationTask struct {
	OrderID      uuid.UUID `json:"order_id"`
	RestaurantID uuid.UUID `json:"restaurant_id"`
	OrderNumber  string    `json:"order_number"`
	EnqueuedAt   time.Time `json:"enqueued_at"`
}

// Event names carried on notification frames.
const (
	EventNewOrder     = "order.new"
	EventOrderUpdated = "order.updated"
	EventItemAlert    = "order.item_alert"
)

// Notification roles. Kitchen displays subscribe to a filtered view;
// "all" reaches every connected console for the restaurant.
const (
	RoleAll     = "all"
	RoleKitchen = "kitchen"
)

// OrderEvent is one notification frame published to connected consoles.
type OrderEvent struct {
	Event        string      `json:"event"`
	RestaurantID uuid.UUID   `json:"restaurant_id"`
	OrderID      uuid.UUID   `json:"order_id"`
	OrderNumber  string      `json:"order_number"`
	Status       OrderStatus `json:"status"`
	Timestamp    time.Time   `json:"timestamp"`
	Payload      interface{} `json:"payload,omitempty"`
}

// NewOrderEvent builds a notification frame for the given order.
func NewOrderEvent(event string, order *Order) *OrderEvent {
	return &OrderEvent{
		Event:        event,
		RestaurantID: order.RestaurantID,
		OrderID:      order.ID,
		OrderNumber:  order.Number,
		Status:       order.Status,
		Timestamp:    time.Now().UTC(),
		Payload:      order,
	}
}

// NotificationRoutingKey builds the topic routing key for a tenant+role
// subscriber group, e.g. notify.<restaurant_id>.kitchen.
func NotificationRoutingKey(restaurantID uuid.UUID, role string) string {
	return fmt.Sprintf("notify.%s.%s", restaurantID, role)
}
