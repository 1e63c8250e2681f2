package models

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

func TestFormatOrderNumber(t *testing.T) {
	date := time.Date(2025, time.September, 1, 14, 30, 0, 0, time.UTC)

	tests := []struct {
		sequence int
		want     string
	}{
		{1, "20250901-0001"},
		{42, "20250901-0042"},
		{9999, "20250901-9999"},
		{10000, "20250901-10000"},
	}

	for _, tt := range tests {
		if got := FormatOrderNumber(date, tt.sequence); got != tt.want {
			t.Errorf("FormatOrderNumber(%d) = %q, want %q", tt.sequence, got, tt.want)
		}
	}
}

func validRequest() *CreateOrderRequest {
	tableID := uuid.New()
	return &CreateOrderRequest{
		Type:    "dine_in",
		TableID: &tableID,
		Items: []CreateOrderLine{
			{MenuItemID: uuid.New(), Quantity: 2},
		},
	}
}

func TestCreateOrderRequestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*CreateOrderRequest)
		wantErr string
	}{
		{
			name:   "valid dine_in",
			mutate: func(req *CreateOrderRequest) {},
		},
		{
			name: "valid takeaway without table",
			mutate: func(req *CreateOrderRequest) {
				req.Type = "takeaway"
				req.TableID = nil
			},
		},
		{
			name:    "unknown type",
			mutate:  func(req *CreateOrderRequest) { req.Type = "drive_through" },
			wantErr: "order_type",
		},
		{
			name:    "dine_in without table",
			mutate:  func(req *CreateOrderRequest) { req.TableID = nil },
			wantErr: "table_id",
		},
		{
			name:    "empty items",
			mutate:  func(req *CreateOrderRequest) { req.Items = nil },
			wantErr: "items",
		},
		{
			name:    "zero quantity",
			mutate:  func(req *CreateOrderRequest) { req.Items[0].Quantity = 0 },
			wantErr: "quantity",
		},
		{
			name:    "missing menu item id",
			mutate:  func(req *CreateOrderRequest) { req.Items[0].MenuItemID = uuid.Nil },
			wantErr: "menu_item_id",
		},
		{
			name: "zero modifier quantity",
			mutate: func(req *CreateOrderRequest) {
				req.Items[0].Modifiers = []CreateModifierSelection{{ModifierID: uuid.New(), Quantity: 0}}
			},
			wantErr: "modifiers[0].quantity",
		},
		{
			name:    "negative discount",
			mutate:  func(req *CreateOrderRequest) { req.DiscountAmount = decimal.NewFromInt(-1) },
			wantErr: "discount_amount",
		},
		{
			name:    "customer name too long",
			mutate:  func(req *CreateOrderRequest) { req.CustomerName = strings.Repeat("x", 101) },
			wantErr: "customer_name",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(req)

			err := req.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() = %v, want error containing %q", err, tt.wantErr)
			}
		})
	}
}

func TestNotificationRoutingKey(t *testing.T) {
	id := uuid.MustParse("6ba7b810-9dad-11d1-80b4-00c04fd430c8")

	got := NotificationRoutingKey(id, RoleKitchen)
	want := "notify.6ba7b810-9dad-11d1-80b4-00c04fd430c8.kitchen"
	if got != want {
		t.Errorf("NotificationRoutingKey() = %q, want %q", got, want)
	}
}
