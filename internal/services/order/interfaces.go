package order

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tableside/internal/models"
)

// Store defines the persistence operations the service needs. Satisfied by
// *Repository; narrow interface for testability.
type Store interface {
	CreateOrder(ctx context.Context, order *models.Order, changedBy string) error
	GetOrder(ctx context.Context, restaurantID, orderID uuid.UUID) (*models.Order, error)
	ListOrders(ctx context.Context, restaurantID uuid.UUID, filters models.OrderFilters) ([]models.Order, error)
	UpdateStatus(ctx context.Context, restaurantID, orderID uuid.UUID, target models.OrderStatus, note, changedBy string) (*models.Order, error)
	UpdateItemStatus(ctx context.Context, restaurantID, orderID, itemID uuid.UUID, status models.ItemStatus, changedBy string) (*models.Order, error)
	UpdateTip(ctx context.Context, restaurantID, orderID uuid.UUID, tip decimal.Decimal) (*models.Order, error)
	KitchenQueue(ctx context.Context, restaurantID uuid.UUID) ([]models.Order, error)
	TodayStats(ctx context.Context, restaurantID uuid.UUID) (*models.TodayStats, error)
}

// MenuProvider resolves menu items with their assigned modifier groups and
// ingredient requirements, scoped to a restaurant.
type MenuProvider interface {
	GetMenuItemsByIDs(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.MenuItemSnapshot, error)
}

// TableProvider resolves dining tables scoped to a restaurant.
type TableProvider interface {
	GetTable(ctx context.Context, restaurantID, tableID uuid.UUID) (*models.Table, error)
}

// TenantProvider exposes restaurant-level configuration.
type TenantProvider interface {
	GetTaxRate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, error)
}

// TaskQueue enqueues confirmation tasks for asynchronous processing.
type TaskQueue interface {
	EnqueueConfirmation(ctx context.Context, task *models.ConfirmationTask) error
}

// Broadcaster fans order lifecycle events out to connected consoles.
// Delivery is best-effort; implementations never return an error to the
// originating operation.
type Broadcaster interface {
	BroadcastNewOrder(ctx context.Context, order *models.Order)
	BroadcastOrderUpdate(ctx context.Context, order *models.Order)
	BroadcastItemAlert(ctx context.Context, order *models.Order, item *models.OrderLineItem)
}
