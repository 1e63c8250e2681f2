package order

import "errors"

// Sentinel errors for the order lifecycle. The HTTP handler maps these to
// response codes; callers test with errors.Is.
var (
	ErrOrderNotFound       = errors.New("order not found")
	ErrItemNotFound        = errors.New("order item not found")
	ErrTableNotFound       = errors.New("table not found")
	ErrTableOutOfService   = errors.New("table is out of service")
	ErrMenuItemNotFound    = errors.New("menu item not found")
	ErrMenuItemUnavailable = errors.New("menu item is not available")
	ErrOrderNotCancellable = errors.New("order can no longer be cancelled")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrInvalidTransition   = errors.New("invalid status transition")
	ErrOrderImmutable      = errors.New("completed or cancelled orders cannot be modified")
)
