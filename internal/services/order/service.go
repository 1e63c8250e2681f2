package order

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tableside/internal/logger"
	"tableside/internal/models"
	"tableside/internal/pricing"
)

// kitchenBufferMinutes pads the longest prep time when estimating the
// ready-at timestamp.
const kitchenBufferMinutes = 5

// Service orchestrates the order lifecycle: validation, pricing,
// persistence, confirmation dispatch and console notifications.
type Service struct {
	store       Store
	menu        MenuProvider
	tables      TableProvider
	tenant      TenantProvider
	queue       TaskQueue
	broadcaster Broadcaster
	logger      *logger.Logger
}

// NewService wires the order service.
func NewService(store Store, menu MenuProvider, tables TableProvider, tenant TenantProvider, queue TaskQueue, broadcaster Broadcaster, log *logger.Logger) *Service {
	return &Service{
		store:       store,
		menu:        menu,
		tables:      tables,
		tenant:      tenant,
		queue:       queue,
		broadcaster: broadcaster,
		logger:      log,
	}
}

// CreateOrder validates and prices the request, persists the aggregate,
// enqueues the confirmation task and announces the order to consoles.
// Prices are frozen here; later catalog edits never affect this order.
func (s *Service) CreateOrder(ctx context.Context, requestID string, restaurantID uuid.UUID, actor string, req *models.CreateOrderRequest) (*models.Order, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	orderType := models.OrderType(req.Type)

	if orderType == models.DineIn {
		table, err := s.tables.GetTable(ctx, restaurantID, *req.TableID)
		if err != nil {
			return nil, err
		}
		if table.Status == models.TableOutOfService {
			return nil, fmt.Errorf("table %d: %w", table.TableNumber, ErrTableOutOfService)
		}
	}

	order, err := s.buildOrder(ctx, restaurantID, orderType, req)
	if err != nil {
		return nil, err
	}

	if err := s.store.CreateOrder(ctx, order, actor); err != nil {
		return nil, err
	}

	s.logger.Info("order_created", "Order created", requestID, map[string]interface{}{
		"order_number": order.Number,
		"order_id":     order.ID,
		"total":        order.Total,
		"items":        len(order.Items),
	})

	// The order is committed; a failed enqueue must not roll it back.
	// The order stays PENDING and can be re-dispatched.
	task := &models.ConfirmationTask{
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		OrderNumber:  order.Number,
		EnqueuedAt:   time.Now().UTC(),
	}
	if err := s.queue.EnqueueConfirmation(ctx, task); err != nil {
		s.logger.Error("enqueue_failed", "Failed to enqueue confirmation task", requestID, err,
			map[string]interface{}{"order_number": order.Number})
	}

	s.broadcaster.BroadcastNewOrder(ctx, order)

	return order, nil
}

// buildOrder resolves the catalog, prices every line and assembles the
// unpersisted aggregate.
func (s *Service) buildOrder(ctx context.Context, restaurantID uuid.UUID, orderType models.OrderType, req *models.CreateOrderRequest) (*models.Order, error) {
	ids := make([]uuid.UUID, 0, len(req.Items))
	seen := make(map[uuid.UUID]bool)
	for _, line := range req.Items {
		if !seen[line.MenuItemID] {
			seen[line.MenuItemID] = true
			ids = append(ids, line.MenuItemID)
		}
	}

	menuItems, err := s.menu.GetMenuItemsByIDs(ctx, restaurantID, ids)
	if err != nil {
		return nil, err
	}

	orderID := uuid.New()
	var items []models.OrderLineItem
	var lineTotals []decimal.Decimal
	maxPrepMinutes := 0

	for _, line := range req.Items {
		menuItem, ok := menuItems[line.MenuItemID]
		if !ok {
			return nil, fmt.Errorf("menu item %s: %w", line.MenuItemID, ErrMenuItemNotFound)
		}
		if !menuItem.IsAvailable {
			return nil, fmt.Errorf("menu item %q: %w", menuItem.Name, ErrMenuItemUnavailable)
		}

		linePricing, err := pricing.ComputeLineItem(menuItem, line.Quantity, line.Modifiers)
		if err != nil {
			return nil, err
		}

		item := models.OrderLineItem{
			ID:             uuid.New(),
			OrderID:        orderID,
			MenuItemID:     menuItem.ID,
			Name:           menuItem.Name,
			Quantity:       line.Quantity,
			UnitPrice:      linePricing.UnitPrice,
			ModifiersPrice: linePricing.ModifiersPricePerUnit,
			TotalPrice:     linePricing.LineTotal,
			Status:         models.ItemPending,
			Notes:          line.Notes,
		}
		for _, mod := range linePricing.Breakdown {
			modifierID, err := uuid.Parse(mod.ModifierID)
			if err != nil {
				return nil, fmt.Errorf("invalid modifier id %q: %w", mod.ModifierID, err)
			}
			item.Modifiers = append(item.Modifiers, models.OrderItemModifier{
				ID:          uuid.New(),
				OrderItemID: item.ID,
				ModifierID:  modifierID,
				Name:        mod.Name,
				GroupName:   mod.GroupName,
				Quantity:    mod.Quantity,
				UnitPrice:   mod.UnitPrice,
				TotalPrice:  mod.TotalPrice,
			})
		}

		items = append(items, item)
		lineTotals = append(lineTotals, linePricing.LineTotal)
		if menuItem.PrepTimeMinutes > maxPrepMinutes {
			maxPrepMinutes = menuItem.PrepTimeMinutes
		}
	}

	taxRate, err := s.tenant.GetTaxRate(ctx, restaurantID)
	if err != nil {
		return nil, err
	}

	totals, err := pricing.ComputeOrderTotals(lineTotals, taxRate, req.DiscountAmount)
	if err != nil {
		return nil, err
	}

	estimatedReadyAt := time.Now().UTC().Add(time.Duration(maxPrepMinutes+kitchenBufferMinutes) * time.Minute)

	return &models.Order{
		ID:               orderID,
		RestaurantID:     restaurantID,
		Type:             orderType,
		Status:           models.StatusPending,
		TableID:          req.TableID,
		CustomerName:     req.CustomerName,
		CustomerPhone:    req.CustomerPhone,
		Subtotal:         totals.Subtotal,
		TaxAmount:        totals.TaxAmount,
		DiscountAmount:   totals.DiscountAmount,
		TipAmount:        decimal.Zero,
		Total:            totals.Total,
		PaymentStatus:    models.PaymentUnpaid,
		Notes:            req.Notes,
		KitchenNotes:     req.KitchenNotes,
		EstimatedReadyAt: &estimatedReadyAt,
		Items:            items,
	}, nil
}

// GetOrder returns the full aggregate.
func (s *Service) GetOrder(ctx context.Context, restaurantID, orderID uuid.UUID) (*models.Order, error) {
	return s.store.GetOrder(ctx, restaurantID, orderID)
}

// GetOrders lists orders matching the filters.
func (s *Service) GetOrders(ctx context.Context, restaurantID uuid.UUID, filters models.OrderFilters) ([]models.Order, error) {
	return s.store.ListOrders(ctx, restaurantID, filters)
}

// UpdateStatus moves the order along the lifecycle and notifies consoles.
func (s *Service) UpdateStatus(ctx context.Context, requestID string, restaurantID, orderID uuid.UUID, target models.OrderStatus, note, actor string) (*models.Order, error) {
	order, err := s.store.UpdateStatus(ctx, restaurantID, orderID, target, note, actor)
	if err != nil {
		return nil, err
	}

	s.logger.Info("order_status_updated", "Order status updated", requestID, map[string]interface{}{
		"order_number": order.Number,
		"status":       order.Status,
	})

	s.broadcaster.BroadcastOrderUpdate(ctx, order)
	return order, nil
}

// CancelOrder cancels the order unless it has already reached a state the
// lifecycle cannot cancel from.
func (s *Service) CancelOrder(ctx context.Context, requestID string, restaurantID, orderID uuid.UUID, reason, actor string) (*models.Order, error) {
	if reason == "" {
		reason = "Order cancelled"
	}
	order, err := s.store.UpdateStatus(ctx, restaurantID, orderID, models.StatusCancelled, reason, actor)
	if err != nil {
		if errors.Is(err, ErrInvalidTransition) {
			return nil, ErrOrderNotCancellable
		}
		return nil, err
	}

	s.logger.Info("order_cancelled", "Order cancelled", requestID, map[string]interface{}{
		"order_number": order.Number,
		"reason":       reason,
	})

	s.broadcaster.BroadcastOrderUpdate(ctx, order)
	return order, nil
}

// UpdateItemStatus updates one line item and lets the store derive the
// order status. Waiters get an alert when an item becomes ready to serve.
func (s *Service) UpdateItemStatus(ctx context.Context, requestID string, restaurantID, orderID, itemID uuid.UUID, status models.ItemStatus, actor string) (*models.Order, error) {
	if !status.IsValid() {
		return nil, fmt.Errorf("unknown item status %q", status)
	}

	order, err := s.store.UpdateItemStatus(ctx, restaurantID, orderID, itemID, status, actor)
	if err != nil {
		return nil, err
	}

	s.logger.Info("item_status_updated", "Order item status updated", requestID, map[string]interface{}{
		"order_number": order.Number,
		"item_id":      itemID,
		"item_status":  status,
	})

	s.broadcaster.BroadcastOrderUpdate(ctx, order)
	if status == models.ItemReady {
		for i := range order.Items {
			if order.Items[i].ID == itemID {
				s.broadcaster.BroadcastItemAlert(ctx, order, &order.Items[i])
				break
			}
		}
	}

	return order, nil
}

// RecordTip records a tip on the order and re-derives its total.
func (s *Service) RecordTip(ctx context.Context, requestID string, restaurantID, orderID uuid.UUID, tip decimal.Decimal) (*models.Order, error) {
	if tip.IsNegative() {
		return nil, fmt.Errorf("tip_amount must not be negative")
	}

	order, err := s.store.UpdateTip(ctx, restaurantID, orderID, tip)
	if err != nil {
		return nil, err
	}

	s.logger.Info("tip_recorded", "Tip recorded", requestID, map[string]interface{}{
		"order_number": order.Number,
		"tip_amount":   tip,
	})

	return order, nil
}

// GetKitchenQueue returns the working set for kitchen consoles.
func (s *Service) GetKitchenQueue(ctx context.Context, restaurantID uuid.UUID) ([]models.Order, error) {
	return s.store.KitchenQueue(ctx, restaurantID)
}

// GetTodayStats summarizes the current business day.
func (s *Service) GetTodayStats(ctx context.Context, restaurantID uuid.UUID) (*models.TodayStats, error) {
	return s.store.TodayStats(ctx, restaurantID)
}

// RequeueConfirmation re-dispatches the confirmation task for an order
// stuck in PENDING, typically after an enqueue failure or an exhausted
// worker retry cycle.
func (s *Service) RequeueConfirmation(ctx context.Context, requestID string, restaurantID, orderID uuid.UUID) error {
	order, err := s.store.GetOrder(ctx, restaurantID, orderID)
	if err != nil {
		return err
	}
	if order.Status != models.StatusPending {
		return fmt.Errorf("%w: order %s is %s, only pending orders can be re-dispatched",
			ErrInvalidTransition, order.Number, order.Status)
	}

	task := &models.ConfirmationTask{
		OrderID:      order.ID,
		RestaurantID: order.RestaurantID,
		OrderNumber:  order.Number,
		EnqueuedAt:   time.Now().UTC(),
	}
	if err := s.queue.EnqueueConfirmation(ctx, task); err != nil {
		return fmt.Errorf("failed to enqueue confirmation task: %w", err)
	}

	s.logger.Info("confirmation_requeued", "Confirmation task re-dispatched", requestID,
		map[string]interface{}{"order_number": order.Number})
	return nil
}
