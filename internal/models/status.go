package models

// OrderStatus represents the lifecycle status of an order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusConfirmed OrderStatus = "confirmed"
	StatusPreparing OrderStatus = "preparing"
	StatusReady     OrderStatus = "ready"
	StatusServed    OrderStatus = "served"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// statusTransitions is the authoritative transition table. Every status
// change, operator-initiated or automated, must follow one of these edges.
var statusTransitions = map[OrderStatus][]OrderStatus{
	StatusPending:   {StatusConfirmed, StatusPreparing, StatusCancelled},
	StatusConfirmed: {StatusPreparing, StatusCancelled},
	StatusPreparing: {StatusReady, StatusCancelled},
	StatusReady:     {StatusServed, StatusCancelled},
	StatusServed:    {StatusCompleted},
	StatusCompleted: {},
	StatusCancelled: {},
}

// IsValid reports whether the status is a known order status.
func (s OrderStatus) IsValid() bool {
	_, ok := statusTransitions[s]
	return ok
}

// IsTerminal reports whether no further transitions are allowed.
func (s OrderStatus) IsTerminal() bool {
	return len(statusTransitions[s]) == 0 && s.IsValid()
}

// CanTransitionTo reports whether the edge s -> target exists.
func (s OrderStatus) CanTransitionTo(target OrderStatus) bool {
	for _, next := range statusTransitions[s] {
		if next == target {
			return true
		}
	}
	return false
}

// ActiveStatuses are the statuses of orders still occupying kitchen or
// table resources.
func ActiveStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusReady, StatusServed}
}

// KitchenQueueStatuses are the statuses surfaced on kitchen displays.
func KitchenQueueStatuses() []OrderStatus {
	return []OrderStatus{StatusPending, StatusConfirmed, StatusPreparing, StatusReady}
}

// ItemStatus represents the kitchen-tracking status of a single line item.
type ItemStatus string

const (
	ItemPending   ItemStatus = "pending"
	ItemPreparing ItemStatus = "preparing"
	ItemReady     ItemStatus = "ready"
	ItemServed    ItemStatus = "served"
)

// IsValid reports whether the item status is known.
func (s ItemStatus) IsValid() bool {
	switch s {
	case ItemPending, ItemPreparing, ItemReady, ItemServed:
		return true
	}
	return false
}

// DeriveStatusFromItems computes the order status implied by its item
// statuses. The second return value reports whether a transition is due;
// re-running with the same inputs after applying it yields false, which
// keeps the automation idempotent.
func DeriveStatusFromItems(current OrderStatus, items []ItemStatus) (OrderStatus, bool) {
	if len(items) == 0 {
		return current, false
	}

	switch current {
	case StatusPreparing:
		for _, item := range items {
			if item != ItemReady && item != ItemServed {
				return current, false
			}
		}
		return StatusReady, true
	case StatusPending, StatusConfirmed:
		for _, item := range items {
			if item == ItemPreparing {
				return StatusPreparing, true
			}
		}
	}

	return current, false
}

// PaymentStatus represents whether an order has been paid.
type PaymentStatus string

const (
	PaymentUnpaid PaymentStatus = "unpaid"
	PaymentPaid   PaymentStatus = "paid"
)

// TableStatus represents the occupancy state of a dining table.
type TableStatus string

const (
	TableAvailable    TableStatus = "available"
	TableOccupied     TableStatus = "occupied"
	TableReserved     TableStatus = "reserved"
	TableCleaning     TableStatus = "cleaning"
	TableOutOfService TableStatus = "out_of_service"
)

// OrderType represents how an order is fulfilled.
type OrderType string

const (
	DineIn   OrderType = "dine_in"
	Takeaway OrderType = "takeaway"
	Delivery OrderType = "delivery"
)

// IsValid reports whether the order type is known.
func (t OrderType) IsValid() bool {
	switch t {
	case DineIn, Takeaway, Delivery:
		return true
	}
	return false
}
