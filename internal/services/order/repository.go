package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tableside/internal/database"
	"tableside/internal/logger"
	"tableside/internal/models"
)

// Repository persists the order aggregate. Every mutation of an order and
// its side effects (table occupancy, counters, stock) happens inside a
// single transaction scoped to that order.
type Repository struct {
	db     *database.DB
	logger *logger.Logger
}

// NewRepository creates a new order repository.
func NewRepository(db *database.DB, log *logger.Logger) *Repository {
	return &Repository{db: db, logger: log}
}

// CreateOrder inserts the full aggregate in one transaction: order number
// allocation, order row, line items, modifier selections, the initial
// history entry, and the table occupancy change for dine-in orders.
func (r *Repository) CreateOrder(ctx context.Context, order *models.Order, changedBy string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	day := time.Now().UTC()
	var seq int
	err = tx.QueryRow(ctx, database.AllocateOrderNumberSQL,
		order.RestaurantID, day.Format("2006-01-02")).Scan(&seq)
	if err != nil {
		return fmt.Errorf("failed to allocate order number: %w", err)
	}
	order.Number = models.FormatOrderNumber(day, seq)

	err = tx.QueryRow(ctx, database.InsertOrderSQL,
		order.ID, order.RestaurantID, order.Number, order.Type, order.Status,
		order.TableID, nullable(order.CustomerName), nullable(order.CustomerPhone),
		order.Subtotal.StringFixed(2), order.TaxAmount.StringFixed(2),
		order.DiscountAmount.StringFixed(2), order.TipAmount.StringFixed(2),
		order.Total.StringFixed(2), order.PaymentStatus,
		nullable(order.Notes), nullable(order.KitchenNotes), order.EstimatedReadyAt,
	).Scan(&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert order: %w", err)
	}

	for i := range order.Items {
		item := &order.Items[i]
		_, err = tx.Exec(ctx, database.InsertOrderItemSQL,
			item.ID, order.ID, item.MenuItemID, item.Name, item.Quantity,
			item.UnitPrice.StringFixed(2), item.ModifiersPrice.StringFixed(2),
			item.TotalPrice.StringFixed(2), item.Status, nullable(item.Notes))
		if err != nil {
			return fmt.Errorf("failed to insert order item: %w", err)
		}

		for j := range item.Modifiers {
			mod := &item.Modifiers[j]
			_, err = tx.Exec(ctx, database.InsertOrderItemModifierSQL,
				mod.ID, item.ID, mod.ModifierID, mod.Name, mod.GroupName,
				mod.Quantity, mod.UnitPrice.StringFixed(2), mod.TotalPrice.StringFixed(2))
			if err != nil {
				return fmt.Errorf("failed to insert order item modifier: %w", err)
			}
		}
	}

	_, err = tx.Exec(ctx, database.InsertOrderStatusLogSQL,
		order.ID, order.Status, changedBy, "Order created")
	if err != nil {
		return fmt.Errorf("failed to insert status log: %w", err)
	}

	if order.Type == models.DineIn && order.TableID != nil {
		_, err = tx.Exec(ctx, database.UpdateTableStatusSQL, *order.TableID, models.TableOccupied)
		if err != nil {
			return fmt.Errorf("failed to occupy table: %w", err)
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	order.History = append(order.History, models.StatusHistory{
		Status:    order.Status,
		ChangedBy: changedBy,
		Notes:     "Order created",
		ChangedAt: order.CreatedAt,
	})

	return nil
}

// GetOrder loads the full aggregate for the tenant.
func (r *Repository) GetOrder(ctx context.Context, restaurantID, orderID uuid.UUID) (*models.Order, error) {
	order, err := scanOrder(r.db.QueryRow(ctx, database.SelectOrderSQL, restaurantID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := r.loadOrderDetail(ctx, order); err != nil {
		return nil, err
	}

	return order, nil
}

// loadOrderDetail attaches line items, modifier selections and history.
func (r *Repository) loadOrderDetail(ctx context.Context, order *models.Order) error {
	rows, err := r.db.Query(ctx, database.SelectOrderItemsSQL, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order items: %w", err)
	}
	defer rows.Close()

	itemIndex := make(map[uuid.UUID]int)
	for rows.Next() {
		var item models.OrderLineItem
		var unitPrice, modifiersPrice, totalPrice string
		var notes *string
		err = rows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name,
			&item.Quantity, &unitPrice, &modifiersPrice, &totalPrice, &item.Status, &notes)
		if err != nil {
			return fmt.Errorf("failed to scan order item: %w", err)
		}
		if item.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return fmt.Errorf("invalid unit price: %w", err)
		}
		if item.ModifiersPrice, err = decimal.NewFromString(modifiersPrice); err != nil {
			return fmt.Errorf("invalid modifiers price: %w", err)
		}
		if item.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
			return fmt.Errorf("invalid total price: %w", err)
		}
		if notes != nil {
			item.Notes = *notes
		}
		itemIndex[item.ID] = len(order.Items)
		order.Items = append(order.Items, item)
	}
	if err := rows.Err(); err != nil {
		return err
	}
	rows.Close()

	modRows, err := r.db.Query(ctx, database.SelectOrderItemModifiersSQL, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order item modifiers: %w", err)
	}
	defer modRows.Close()

	for modRows.Next() {
		var mod models.OrderItemModifier
		var unitPrice, totalPrice string
		err = modRows.Scan(&mod.ID, &mod.OrderItemID, &mod.ModifierID, &mod.Name,
			&mod.GroupName, &mod.Quantity, &unitPrice, &totalPrice)
		if err != nil {
			return fmt.Errorf("failed to scan order item modifier: %w", err)
		}
		if mod.UnitPrice, err = decimal.NewFromString(unitPrice); err != nil {
			return fmt.Errorf("invalid modifier unit price: %w", err)
		}
		if mod.TotalPrice, err = decimal.NewFromString(totalPrice); err != nil {
			return fmt.Errorf("invalid modifier total price: %w", err)
		}
		if idx, ok := itemIndex[mod.OrderItemID]; ok {
			order.Items[idx].Modifiers = append(order.Items[idx].Modifiers, mod)
		}
	}
	if err := modRows.Err(); err != nil {
		return err
	}

	historyRows, err := r.db.Query(ctx, database.SelectOrderHistorySQL, order.ID)
	if err != nil {
		return fmt.Errorf("failed to load order history: %w", err)
	}
	defer historyRows.Close()

	for historyRows.Next() {
		var entry models.StatusHistory
		var changedBy, notes *string
		if err := historyRows.Scan(&entry.Status, &changedBy, &notes, &entry.ChangedAt); err != nil {
			return fmt.Errorf("failed to scan history entry: %w", err)
		}
		if changedBy != nil {
			entry.ChangedBy = *changedBy
		}
		if notes != nil {
			entry.Notes = *notes
		}
		order.History = append(order.History, entry)
	}
	return historyRows.Err()
}

// ListOrders returns orders for the tenant matching the filters.
func (r *Repository) ListOrders(ctx context.Context, restaurantID uuid.UUID, filters models.OrderFilters) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, database.ListOrdersSQL,
		restaurantID, string(filters.Status), string(filters.Type),
		filters.TableID, filters.From, filters.To)
	if err != nil {
		return nil, fmt.Errorf("failed to list orders: %w", err)
	}
	defer rows.Close()

	return collectOrders(rows)
}

// UpdateStatus applies one validated status transition with its side
// effects and history append, all in one transaction.
func (r *Repository) UpdateStatus(ctx context.Context, restaurantID, orderID uuid.UUID, target models.OrderStatus, note, changedBy string) (*models.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, database.SelectOrderForUpdateSQL, restaurantID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if err := r.applyStatusChange(ctx, tx, order, target, note, changedBy); err != nil {
		return nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetOrder(ctx, restaurantID, orderID)
}

// applyStatusChange validates the edge against the transition table and
// applies the status write, history append and table side effects inside
// the caller's transaction.
func (r *Repository) applyStatusChange(ctx context.Context, tx pgx.Tx, order *models.Order, target models.OrderStatus, note, changedBy string) error {
	if !target.IsValid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidTransition, target)
	}
	if !order.Status.CanTransitionTo(target) {
		r.logger.Warn("invalid_transition_rejected",
			fmt.Sprintf("Transition %s -> %s is not allowed", order.Status, target),
			"", map[string]interface{}{
				"order_number": order.Number,
				"from":         order.Status,
				"to":           target,
			})
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, order.Status, target)
	}

	if _, err := tx.Exec(ctx, database.UpdateOrderStatusSQL, order.ID, target); err != nil {
		return fmt.Errorf("failed to update order status: %w", err)
	}

	if _, err := tx.Exec(ctx, database.InsertOrderStatusLogSQL, order.ID, target, changedBy, nullable(note)); err != nil {
		return fmt.Errorf("failed to insert status log: %w", err)
	}

	// Table occupancy follows the order in the same transaction so a
	// reader never observes, say, a completed order on an occupied table.
	if order.TableID != nil {
		switch target {
		case models.StatusCompleted:
			if _, err := tx.Exec(ctx, database.UpdateTableStatusSQL, *order.TableID, models.TableCleaning); err != nil {
				return fmt.Errorf("failed to mark table for cleaning: %w", err)
			}
		case models.StatusCancelled:
			var active int
			if err := tx.QueryRow(ctx, database.CountActiveOrdersOnTableSQL, *order.TableID, order.ID).Scan(&active); err != nil {
				return fmt.Errorf("failed to count active orders on table: %w", err)
			}
			if active == 0 {
				if _, err := tx.Exec(ctx, database.UpdateTableStatusSQL, *order.TableID, models.TableAvailable); err != nil {
					return fmt.Errorf("failed to release table: %w", err)
				}
			}
		}
	}

	order.Status = target
	return nil
}

// UpdateItemStatus updates one line item's status and re-derives the order
// status in the same transaction. Re-running with the same inputs is a
// no-op: the derivation reports no transition once the order has moved.
func (r *Repository) UpdateItemStatus(ctx context.Context, restaurantID, orderID, itemID uuid.UUID, status models.ItemStatus, changedBy string) (*models.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, database.SelectOrderForUpdateSQL, restaurantID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if order.Status.IsTerminal() {
		return nil, ErrOrderImmutable
	}

	tag, err := tx.Exec(ctx, database.UpdateOrderItemStatusSQL, orderID, itemID, status)
	if err != nil {
		return nil, fmt.Errorf("failed to update item status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil, ErrItemNotFound
	}

	itemRows, err := tx.Query(ctx, database.SelectOrderItemStatusesSQL, orderID)
	if err != nil {
		return nil, fmt.Errorf("failed to load item statuses: %w", err)
	}
	var itemStatuses []models.ItemStatus
	for itemRows.Next() {
		var s models.ItemStatus
		if err := itemRows.Scan(&s); err != nil {
			itemRows.Close()
			return nil, fmt.Errorf("failed to scan item status: %w", err)
		}
		itemStatuses = append(itemStatuses, s)
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return nil, err
	}

	if derived, due := models.DeriveStatusFromItems(order.Status, itemStatuses); due {
		if err := r.applyStatusChange(ctx, tx, order, derived, "auto-updated", changedBy); err != nil {
			return nil, err
		}
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetOrder(ctx, restaurantID, orderID)
}

// tipAllowed reports whether a tip may still be recorded. Terminal orders
// are immutable; tips land on SERVED orders before completion stamps
// paid_at.
func tipAllowed(status models.OrderStatus) bool {
	return !status.IsTerminal()
}

// UpdateTip records a tip and folds it into the order total.
func (r *Repository) UpdateTip(ctx context.Context, restaurantID, orderID uuid.UUID, tip decimal.Decimal) (*models.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, database.SelectOrderForUpdateSQL, restaurantID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("failed to load order: %w", err)
	}

	if !tipAllowed(order.Status) {
		return nil, ErrOrderImmutable
	}

	if _, err := tx.Exec(ctx, database.UpdateOrderTipSQL, orderID, tip.StringFixed(2)); err != nil {
		return nil, fmt.Errorf("failed to record tip: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	return r.GetOrder(ctx, restaurantID, orderID)
}

// ConfirmOrder performs the confirmation unit of work: status guard, stock
// deduction with movement ledger entries, and the PENDING -> CONFIRMED
// flip, all in one transaction. Returns false without error when the guard
// finds the order already past PENDING (duplicate task delivery).
func (r *Repository) ConfirmOrder(ctx context.Context, restaurantID, orderID uuid.UUID, changedBy string) (bool, *models.Order, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return false, nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	order, err := scanOrder(tx.QueryRow(ctx, database.SelectOrderForUpdateSQL, restaurantID, orderID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil, ErrOrderNotFound
		}
		return false, nil, fmt.Errorf("failed to load order: %w", err)
	}

	if order.Status != models.StatusPending {
		return false, order, nil
	}

	itemRows, err := tx.Query(ctx, database.SelectOrderItemsSQL, orderID)
	if err != nil {
		return false, nil, fmt.Errorf("failed to load order items: %w", err)
	}
	type lineUsage struct {
		menuItemID uuid.UUID
		quantity   int
	}
	var lines []lineUsage
	for itemRows.Next() {
		var item models.OrderLineItem
		var unitPrice, modifiersPrice, totalPrice string
		var notes *string
		err = itemRows.Scan(&item.ID, &item.OrderID, &item.MenuItemID, &item.Name,
			&item.Quantity, &unitPrice, &modifiersPrice, &totalPrice, &item.Status, &notes)
		if err != nil {
			itemRows.Close()
			return false, nil, fmt.Errorf("failed to scan order item: %w", err)
		}
		lines = append(lines, lineUsage{menuItemID: item.MenuItemID, quantity: item.Quantity})
	}
	itemRows.Close()
	if err := itemRows.Err(); err != nil {
		return false, nil, err
	}

	for _, line := range lines {
		requirements, err := r.menuItemIngredients(ctx, tx, line.menuItemID)
		if err != nil {
			return false, nil, err
		}

		for _, req := range requirements {
			usage := req.Quantity.Mul(decimal.NewFromInt(int64(line.quantity)))

			var previousStock, newStock string
			err = tx.QueryRow(ctx, database.DecrementStockSQL, req.InventoryItemID, usage.String()).
				Scan(&previousStock, &newStock)
			if err != nil {
				// Zero rows means the stock guard failed; the whole
				// transaction rolls back and a restock may land before the
				// next attempt.
				if errors.Is(err, pgx.ErrNoRows) {
					return false, nil, fmt.Errorf("ingredient %s needs %s: %w",
						req.InventoryItemID, usage, ErrInsufficientStock)
				}
				return false, nil, fmt.Errorf("failed to decrement stock for %s: %w", req.InventoryItemID, err)
			}

			_, err = tx.Exec(ctx, database.InsertStockMovementSQL,
				restaurantID, req.InventoryItemID, "usage",
				usage.String(), previousStock, newStock, order.Number)
			if err != nil {
				return false, nil, fmt.Errorf("failed to record stock movement: %w", err)
			}
		}
	}

	if err := r.applyStatusChange(ctx, tx, order, models.StatusConfirmed,
		"auto-confirmed and sent to kitchen", changedBy); err != nil {
		return false, nil, err
	}

	if err = tx.Commit(ctx); err != nil {
		return false, nil, fmt.Errorf("failed to commit transaction: %w", err)
	}

	updated, err := r.GetOrder(ctx, restaurantID, orderID)
	if err != nil {
		return true, order, nil
	}
	return true, updated, nil
}

func (r *Repository) menuItemIngredients(ctx context.Context, tx pgx.Tx, menuItemID uuid.UUID) ([]models.IngredientRequirement, error) {
	rows, err := tx.Query(ctx, database.SelectMenuItemIngredientsSQL, menuItemID)
	if err != nil {
		return nil, fmt.Errorf("failed to load ingredients: %w", err)
	}
	defer rows.Close()

	var requirements []models.IngredientRequirement
	for rows.Next() {
		var req models.IngredientRequirement
		var quantity string
		if err := rows.Scan(&req.InventoryItemID, &quantity); err != nil {
			return nil, fmt.Errorf("failed to scan ingredient: %w", err)
		}
		if req.Quantity, err = decimal.NewFromString(quantity); err != nil {
			return nil, fmt.Errorf("invalid ingredient quantity: %w", err)
		}
		requirements = append(requirements, req)
	}
	return requirements, rows.Err()
}

// KitchenQueue returns active orders created since the start of the
// business day, oldest pending work first within each status bucket.
func (r *Repository) KitchenQueue(ctx context.Context, restaurantID uuid.UUID) ([]models.Order, error) {
	rows, err := r.db.Query(ctx, database.KitchenQueueSQL, restaurantID, startOfBusinessDay())
	if err != nil {
		return nil, fmt.Errorf("failed to load kitchen queue: %w", err)
	}
	defer rows.Close()

	orders, err := collectOrders(rows)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		if err := r.loadOrderDetail(ctx, &orders[i]); err != nil {
			return nil, err
		}
	}
	return orders, nil
}

// TodayStats aggregates the current business day.
func (r *Repository) TodayStats(ctx context.Context, restaurantID uuid.UUID) (*models.TodayStats, error) {
	rows, err := r.db.Query(ctx, database.TodayStatsSQL, restaurantID, startOfBusinessDay())
	if err != nil {
		return nil, fmt.Errorf("failed to load today stats: %w", err)
	}
	defer rows.Close()

	stats := &models.TodayStats{
		OrdersByStatus: make(map[models.OrderStatus]int),
		Revenue:        decimal.Zero,
	}

	for rows.Next() {
		var status models.OrderStatus
		var count int
		var revenue string
		if err := rows.Scan(&status, &count, &revenue); err != nil {
			return nil, fmt.Errorf("failed to scan stats row: %w", err)
		}
		stats.OrdersByStatus[status] = count
		stats.TotalOrders += count
		if status != models.StatusCancelled {
			amount, err := decimal.NewFromString(revenue)
			if err != nil {
				return nil, fmt.Errorf("invalid revenue amount: %w", err)
			}
			stats.Revenue = stats.Revenue.Add(amount)
		}
	}
	return stats, rows.Err()
}

// startOfBusinessDay is midnight UTC of the current day.
func startOfBusinessDay() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

// scanOrder scans one order row (without detail) from SelectOrderSQL
// column order.
func scanOrder(row pgx.Row) (*models.Order, error) {
	var order models.Order
	var customerName, customerPhone, notes, kitchenNotes *string
	var subtotal, taxAmount, discountAmount, tipAmount, total string

	err := row.Scan(&order.ID, &order.RestaurantID, &order.Number, &order.Type,
		&order.Status, &order.TableID, &customerName, &customerPhone,
		&subtotal, &taxAmount, &discountAmount, &tipAmount, &total,
		&order.PaymentStatus, &notes, &kitchenNotes,
		&order.EstimatedReadyAt, &order.ActualReadyAt, &order.PaidAt,
		&order.CreatedAt, &order.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if customerName != nil {
		order.CustomerName = *customerName
	}
	if customerPhone != nil {
		order.CustomerPhone = *customerPhone
	}
	if notes != nil {
		order.Notes = *notes
	}
	if kitchenNotes != nil {
		order.KitchenNotes = *kitchenNotes
	}

	if order.Subtotal, err = decimal.NewFromString(subtotal); err != nil {
		return nil, fmt.Errorf("invalid subtotal: %w", err)
	}
	if order.TaxAmount, err = decimal.NewFromString(taxAmount); err != nil {
		return nil, fmt.Errorf("invalid tax amount: %w", err)
	}
	if order.DiscountAmount, err = decimal.NewFromString(discountAmount); err != nil {
		return nil, fmt.Errorf("invalid discount amount: %w", err)
	}
	if order.TipAmount, err = decimal.NewFromString(tipAmount); err != nil {
		return nil, fmt.Errorf("invalid tip amount: %w", err)
	}
	if order.Total, err = decimal.NewFromString(total); err != nil {
		return nil, fmt.Errorf("invalid total: %w", err)
	}

	return &order, nil
}

// collectOrders drains rows produced by any query selecting SelectOrderSQL
// columns.
func collectOrders(rows pgx.Rows) ([]models.Order, error) {
	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan order: %w", err)
		}
		orders = append(orders, *order)
	}
	return orders, rows.Err()
}

// nullable maps empty strings to NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
