package order

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tableside/internal/logger"
	"tableside/internal/models"
)

type fakeStore struct {
	created        []*models.Order
	orders         map[uuid.UUID]*models.Order
	updateStatusFn func(target models.OrderStatus) (*models.Order, error)
}

func (f *fakeStore) CreateOrder(ctx context.Context, order *models.Order, changedBy string) error {
	order.Number = "20250901-0001"
	f.created = append(f.created, order)
	return nil
}

func (f *fakeStore) GetOrder(ctx context.Context, restaurantID, orderID uuid.UUID) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	return order, nil
}

func (f *fakeStore) ListOrders(ctx context.Context, restaurantID uuid.UUID, filters models.OrderFilters) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeStore) UpdateStatus(ctx context.Context, restaurantID, orderID uuid.UUID, target models.OrderStatus, note, changedBy string) (*models.Order, error) {
	if f.updateStatusFn != nil {
		return f.updateStatusFn(target)
	}
	order, ok := f.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	order.Status = target
	return order, nil
}

func (f *fakeStore) UpdateItemStatus(ctx context.Context, restaurantID, orderID, itemID uuid.UUID, status models.ItemStatus, changedBy string) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	for i := range order.Items {
		if order.Items[i].ID == itemID {
			order.Items[i].Status = status
			return order, nil
		}
	}
	return nil, ErrItemNotFound
}

func (f *fakeStore) UpdateTip(ctx context.Context, restaurantID, orderID uuid.UUID, tip decimal.Decimal) (*models.Order, error) {
	order, ok := f.orders[orderID]
	if !ok {
		return nil, ErrOrderNotFound
	}
	if !tipAllowed(order.Status) {
		return nil, ErrOrderImmutable
	}
	order.TipAmount = tip
	return order, nil
}

func (f *fakeStore) KitchenQueue(ctx context.Context, restaurantID uuid.UUID) ([]models.Order, error) {
	return nil, nil
}

func (f *fakeStore) TodayStats(ctx context.Context, restaurantID uuid.UUID) (*models.TodayStats, error) {
	return &models.TodayStats{}, nil
}

type fakeMenu struct {
	items map[uuid.UUID]*models.MenuItemSnapshot
}

func (f *fakeMenu) GetMenuItemsByIDs(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.MenuItemSnapshot, error) {
	found := make(map[uuid.UUID]*models.MenuItemSnapshot)
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			found[id] = item
		}
	}
	return found, nil
}

type fakeTables struct {
	table *models.Table
}

func (f *fakeTables) GetTable(ctx context.Context, restaurantID, tableID uuid.UUID) (*models.Table, error) {
	if f.table == nil {
		return nil, ErrTableNotFound
	}
	return f.table, nil
}

type fakeTenant struct {
	taxRate decimal.Decimal
}

func (f *fakeTenant) GetTaxRate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, error) {
	return f.taxRate, nil
}

type fakeQueue struct {
	tasks []*models.ConfirmationTask
	err   error
}

func (f *fakeQueue) EnqueueConfirmation(ctx context.Context, task *models.ConfirmationTask) error {
	if f.err != nil {
		return f.err
	}
	f.tasks = append(f.tasks, task)
	return nil
}

type fakeBroadcaster struct {
	newOrders  int
	updates    int
	itemAlerts int
}

func (f *fakeBroadcaster) BroadcastNewOrder(ctx context.Context, order *models.Order)    { f.newOrders++ }
func (f *fakeBroadcaster) BroadcastOrderUpdate(ctx context.Context, order *models.Order) { f.updates++ }
func (f *fakeBroadcaster) BroadcastItemAlert(ctx context.Context, order *models.Order, item *models.OrderLineItem) {
	f.itemAlerts++
}

type serviceFixture struct {
	service     *Service
	store       *fakeStore
	menu        *fakeMenu
	tables      *fakeTables
	queue       *fakeQueue
	broadcaster *fakeBroadcaster
}

func newFixture() *serviceFixture {
	f := &serviceFixture{
		store:       &fakeStore{orders: make(map[uuid.UUID]*models.Order)},
		menu:        &fakeMenu{items: make(map[uuid.UUID]*models.MenuItemSnapshot)},
		tables:      &fakeTables{},
		queue:       &fakeQueue{},
		broadcaster: &fakeBroadcaster{},
	}
	f.service = NewService(f.store, f.menu, f.tables, &fakeTenant{taxRate: decimal.NewFromInt(10)},
		f.queue, f.broadcaster, logger.New("order-service-test"))
	return f
}

func (f *serviceFixture) addMenuItem(price string, available bool) uuid.UUID {
	id := uuid.New()
	f.menu.items[id] = &models.MenuItemSnapshot{
		ID:              id,
		Name:            "Margherita",
		Price:           mustDecimal(price),
		PrepTimeMinutes: 15,
		IsAvailable:     available,
	}
	return id
}

func mustDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

func TestCreateOrderTakeaway(t *testing.T) {
	f := newFixture()
	itemID := f.addMenuItem("10.00", true)

	order, err := f.service.CreateOrder(context.Background(), "req-1", uuid.New(), "waiter_1",
		&models.CreateOrderRequest{
			Type:  "takeaway",
			Items: []models.CreateOrderLine{{MenuItemID: itemID, Quantity: 2}},
		})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v", err)
	}

	if order.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if !order.Subtotal.Equal(mustDecimal("20.00")) {
		t.Errorf("subtotal = %s, want 20.00", order.Subtotal)
	}
	if !order.TaxAmount.Equal(mustDecimal("2.00")) {
		t.Errorf("tax = %s, want 2.00", order.TaxAmount)
	}
	if !order.Total.Equal(mustDecimal("22.00")) {
		t.Errorf("total = %s, want 22.00", order.Total)
	}
	if order.EstimatedReadyAt == nil {
		t.Error("estimated ready timestamp not set")
	}

	if len(f.store.created) != 1 {
		t.Fatalf("persisted %d orders, want 1", len(f.store.created))
	}
	if len(f.queue.tasks) != 1 {
		t.Fatalf("enqueued %d tasks, want 1", len(f.queue.tasks))
	}
	if f.queue.tasks[0].OrderNumber != "20250901-0001" {
		t.Errorf("task order number = %s", f.queue.tasks[0].OrderNumber)
	}
	if f.broadcaster.newOrders != 1 {
		t.Errorf("broadcast %d new-order events, want 1", f.broadcaster.newOrders)
	}
}

func TestCreateOrderTableOutOfService(t *testing.T) {
	f := newFixture()
	itemID := f.addMenuItem("10.00", true)
	tableID := uuid.New()
	f.tables.table = &models.Table{ID: tableID, TableNumber: 7, Status: models.TableOutOfService}

	_, err := f.service.CreateOrder(context.Background(), "req-1", uuid.New(), "waiter_1",
		&models.CreateOrderRequest{
			Type:    "dine_in",
			TableID: &tableID,
			Items:   []models.CreateOrderLine{{MenuItemID: itemID, Quantity: 1}},
		})
	if !errors.Is(err, ErrTableOutOfService) {
		t.Fatalf("CreateOrder() error = %v, want ErrTableOutOfService", err)
	}

	if len(f.store.created) != 0 {
		t.Error("order was persisted despite table rejection")
	}
	if len(f.queue.tasks) != 0 {
		t.Error("task was enqueued despite table rejection")
	}
}

func TestCreateOrderMenuItemChecks(t *testing.T) {
	f := newFixture()
	unavailable := f.addMenuItem("10.00", false)

	_, err := f.service.CreateOrder(context.Background(), "req-1", uuid.New(), "waiter_1",
		&models.CreateOrderRequest{
			Type:  "takeaway",
			Items: []models.CreateOrderLine{{MenuItemID: uuid.New(), Quantity: 1}},
		})
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Errorf("unknown item error = %v, want ErrMenuItemNotFound", err)
	}

	_, err = f.service.CreateOrder(context.Background(), "req-2", uuid.New(), "waiter_1",
		&models.CreateOrderRequest{
			Type:  "takeaway",
			Items: []models.CreateOrderLine{{MenuItemID: unavailable, Quantity: 1}},
		})
	if !errors.Is(err, ErrMenuItemUnavailable) {
		t.Errorf("unavailable item error = %v, want ErrMenuItemUnavailable", err)
	}
}

func TestCreateOrderSurvivesEnqueueFailure(t *testing.T) {
	f := newFixture()
	itemID := f.addMenuItem("10.00", true)
	f.queue.err = errors.New("broker unreachable")

	order, err := f.service.CreateOrder(context.Background(), "req-1", uuid.New(), "waiter_1",
		&models.CreateOrderRequest{
			Type:  "takeaway",
			Items: []models.CreateOrderLine{{MenuItemID: itemID, Quantity: 1}},
		})
	if err != nil {
		t.Fatalf("CreateOrder() error = %v, want nil despite enqueue failure", err)
	}
	if order.Status != models.StatusPending {
		t.Errorf("status = %s, want pending", order.Status)
	}
	if len(f.store.created) != 1 {
		t.Error("order was not persisted")
	}
}

func TestCancelOrderNotCancellable(t *testing.T) {
	f := newFixture()
	f.store.updateStatusFn = func(target models.OrderStatus) (*models.Order, error) {
		return nil, ErrInvalidTransition
	}

	_, err := f.service.CancelOrder(context.Background(), "req-1", uuid.New(), uuid.New(), "", "manager_1")
	if !errors.Is(err, ErrOrderNotCancellable) {
		t.Errorf("CancelOrder() error = %v, want ErrOrderNotCancellable", err)
	}
}

func TestUpdateItemStatusAlertsOnReady(t *testing.T) {
	f := newFixture()
	restaurantID := uuid.New()
	orderID := uuid.New()
	itemID := uuid.New()
	f.store.orders[orderID] = &models.Order{
		ID:     orderID,
		Number: "20250901-0002",
		Status: models.StatusPreparing,
		Items: []models.OrderLineItem{
			{ID: itemID, Name: "Margherita", Status: models.ItemPreparing},
		},
	}

	_, err := f.service.UpdateItemStatus(context.Background(), "req-1", restaurantID, orderID, itemID, models.ItemReady, "chef_1")
	if err != nil {
		t.Fatalf("UpdateItemStatus() error = %v", err)
	}

	if f.broadcaster.itemAlerts != 1 {
		t.Errorf("broadcast %d item alerts, want 1", f.broadcaster.itemAlerts)
	}
	if f.broadcaster.updates != 1 {
		t.Errorf("broadcast %d order updates, want 1", f.broadcaster.updates)
	}
}

func TestRequeueConfirmationOnlyForPending(t *testing.T) {
	f := newFixture()
	restaurantID := uuid.New()
	pendingID := uuid.New()
	confirmedID := uuid.New()
	f.store.orders[pendingID] = &models.Order{ID: pendingID, Number: "20250901-0003", Status: models.StatusPending}
	f.store.orders[confirmedID] = &models.Order{ID: confirmedID, Number: "20250901-0004", Status: models.StatusConfirmed}

	if err := f.service.RequeueConfirmation(context.Background(), "req-1", restaurantID, pendingID); err != nil {
		t.Errorf("RequeueConfirmation(pending) error = %v", err)
	}
	if len(f.queue.tasks) != 1 {
		t.Errorf("enqueued %d tasks, want 1", len(f.queue.tasks))
	}

	if err := f.service.RequeueConfirmation(context.Background(), "req-2", restaurantID, confirmedID); err == nil {
		t.Error("RequeueConfirmation(confirmed) succeeded, want error")
	}
}

func TestTipAllowedOnlyBeforeTerminal(t *testing.T) {
	tests := []struct {
		status  models.OrderStatus
		allowed bool
	}{
		{models.StatusPending, true},
		{models.StatusServed, true},
		{models.StatusCompleted, false},
		{models.StatusCancelled, false},
	}

	for _, tt := range tests {
		if got := tipAllowed(tt.status); got != tt.allowed {
			t.Errorf("tipAllowed(%s) = %v, want %v", tt.status, got, tt.allowed)
		}
	}
}

func TestRecordTipRejectedOnCompletedOrder(t *testing.T) {
	f := newFixture()
	restaurantID := uuid.New()
	orderID := uuid.New()
	f.store.orders[orderID] = &models.Order{
		ID:            orderID,
		Number:        "20250901-0005",
		Status:        models.StatusCompleted,
		PaymentStatus: models.PaymentPaid,
		Total:         mustDecimal("22.00"),
	}

	_, err := f.service.RecordTip(context.Background(), "req-1", restaurantID, orderID, mustDecimal("3.00"))
	if !errors.Is(err, ErrOrderImmutable) {
		t.Fatalf("RecordTip(completed) error = %v, want ErrOrderImmutable", err)
	}

	if !f.store.orders[orderID].Total.Equal(mustDecimal("22.00")) {
		t.Error("total changed on a paid order")
	}
}

func TestRecordTipRejectsNegative(t *testing.T) {
	f := newFixture()

	_, err := f.service.RecordTip(context.Background(), "req-1", uuid.New(), uuid.New(), decimal.NewFromInt(-5))
	if err == nil {
		t.Error("RecordTip(-5) succeeded, want error")
	}
}
