package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Order is the aggregate root for a customer order.
type Order struct {
	ID               uuid.UUID       `json:"id"`
	RestaurantID     uuid.UUID       `json:"restaurant_id"`
	Number           string          `json:"order_number"`
	Type             OrderType       `json:"order_type"`
	Status           OrderStatus     `json:"status"`
	TableID          *uuid.UUID      `json:"table_id,omitempty"`
	CustomerName     string          `json:"customer_name,omitempty"`
	CustomerPhone    string          `json:"customer_phone,omitempty"`
	Subtotal         decimal.Decimal `json:"subtotal"`
	TaxAmount        decimal.Decimal `json:"tax_amount"`
	DiscountAmount   decimal.Decimal `json:"discount_amount"`
	TipAmount        decimal.Decimal `json:"tip_amount"`
	Total            decimal.Decimal `json:"total"`
	PaymentStatus    PaymentStatus   `json:"payment_status"`
	Notes            string          `json:"notes,omitempty"`
	KitchenNotes     string          `json:"kitchen_notes,omitempty"`
	EstimatedReadyAt *time.Time      `json:"estimated_ready_at,omitempty"`
	ActualReadyAt    *time.Time      `json:"actual_ready_at,omitempty"`
	PaidAt           *time.Time      `json:"paid_at,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	Items            []OrderLineItem `json:"items,omitempty"`
	History          []StatusHistory `json:"history,omitempty"`
}

// OrderLineItem is one ordered menu item with its resolved modifiers.
// Prices are frozen at creation time; later catalog changes never touch
// existing orders.
type OrderLineItem struct {
	ID             uuid.UUID           `json:"id"`
	OrderID        uuid.UUID           `json:"order_id"`
	MenuItemID     uuid.UUID           `json:"menu_item_id"`
	Name           string              `json:"name"`
	Quantity       int                 `json:"quantity"`
	UnitPrice      decimal.Decimal     `json:"unit_price"`
	ModifiersPrice decimal.Decimal     `json:"modifiers_price"`
	TotalPrice     decimal.Decimal     `json:"total_price"`
	Status         ItemStatus          `json:"status"`
	Notes          string              `json:"notes,omitempty"`
	Modifiers      []OrderItemModifier `json:"modifiers,omitempty"`
}

// OrderItemModifier is one modifier selection on a line item, with name
// and group name denormalized for receipts.
type OrderItemModifier struct {
	ID          uuid.UUID       `json:"id"`
	OrderItemID uuid.UUID       `json:"order_item_id"`
	ModifierID  uuid.UUID       `json:"modifier_id"`
	Name        string          `json:"name"`
	GroupName   string          `json:"group_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	TotalPrice  decimal.Decimal `json:"total_price"`
}

// StatusHistory is one append-only entry in the order status log.
type StatusHistory struct {
	Status    OrderStatus `json:"status"`
	ChangedBy string      `json:"changed_by"`
	Notes     string      `json:"notes,omitempty"`
	ChangedAt time.Time   `json:"timestamp"`
}

// CreateOrderRequest is the inbound payload for order creation.
type CreateOrderRequest struct {
	Type           string            `json:"order_type"`
	TableID        *uuid.UUID        `json:"table_id,omitempty"`
	CustomerName   string            `json:"customer_name,omitempty"`
	CustomerPhone  string            `json:"customer_phone,omitempty"`
	Notes          string            `json:"notes,omitempty"`
	KitchenNotes   string            `json:"kitchen_notes,omitempty"`
	DiscountAmount decimal.Decimal   `json:"discount_amount"`
	Items          []CreateOrderLine `json:"items"`
}

// CreateOrderLine is one requested line item.
type CreateOrderLine struct {
	MenuItemID uuid.UUID                 `json:"menu_item_id"`
	Quantity   int                       `json:"quantity"`
	Notes      string                    `json:"notes,omitempty"`
	Modifiers  []CreateModifierSelection `json:"modifiers,omitempty"`
}

// CreateModifierSelection is one requested modifier with its own quantity,
// independent of the line quantity.
type CreateModifierSelection struct {
	ModifierID uuid.UUID `json:"modifier_id"`
	Quantity   int       `json:"quantity"`
}

// Validate checks structural validity of the request. Referential checks
// (table, menu items, modifiers) happen in the service against the tenant.
func (req *CreateOrderRequest) Validate() error {
	orderType := OrderType(req.Type)
	if !orderType.IsValid() {
		return fmt.Errorf("order_type must be one of: dine_in, takeaway, delivery")
	}

	if orderType == DineIn && req.TableID == nil {
		return fmt.Errorf("table_id is required for dine_in orders")
	}

	if len(req.CustomerName) > 100 {
		return fmt.Errorf("customer_name must not exceed 100 characters")
	}

	if req.DiscountAmount.IsNegative() {
		return fmt.Errorf("discount_amount must not be negative")
	}

	if len(req.Items) == 0 {
		return fmt.Errorf("items array cannot be empty")
	}

	for i, item := range req.Items {
		if item.MenuItemID == uuid.Nil {
			return fmt.Errorf("items[%d].menu_item_id is required", i)
		}
		if item.Quantity < 1 {
			return fmt.Errorf("items[%d].quantity must be at least 1", i)
		}
		for j, mod := range item.Modifiers {
			if mod.ModifierID == uuid.Nil {
				return fmt.Errorf("items[%d].modifiers[%d].modifier_id is required", i, j)
			}
			if mod.Quantity < 1 {
				return fmt.Errorf("items[%d].modifiers[%d].quantity must be at least 1", i, j)
			}
		}
	}

	return nil
}

// FormatOrderNumber builds the human-facing order number for a given day
// and sequence, e.g. 20250901-0042.
func FormatOrderNumber(date time.Time, sequence int) string {
	return fmt.Sprintf("%s-%04d", date.Format("20060102"), sequence)
}

// OrderFilters narrows order listings.
type OrderFilters struct {
	Status  OrderStatus
	Type    OrderType
	TableID *uuid.UUID
	From    *time.Time
	To      *time.Time
}

// TodayStats summarizes the current business day for a restaurant.
type TodayStats struct {
	TotalOrders    int                 `json:"total_orders"`
	OrdersByStatus map[OrderStatus]int `json:"orders_by_status"`
	Revenue        decimal.Decimal     `json:"revenue"`
}
