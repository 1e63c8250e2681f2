package models

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PricingMode determines how a modifier prices against its line item.
type PricingMode string

const (
	PricingFixed         PricingMode = "fixed"
	PricingPercentage    PricingMode = "percentage"
	PricingReplacement   PricingMode = "replacement"
	PricingFree          PricingMode = "free"
	PricingQuantityBased PricingMode = "quantity_based"
)

// MenuItemSnapshot is the catalog view the engine prices against. It is a
// point-in-time read; the resulting order freezes every price it derives.
type MenuItemSnapshot struct {
	ID              uuid.UUID
	Name            string
	Price           decimal.Decimal
	PrepTimeMinutes int
	IsAvailable     bool
	ModifierGroups  []ModifierGroup
	Ingredients     []IngredientRequirement
}

// ModifierGroup is a named set of modifiers assigned to a menu item.
type ModifierGroup struct {
	ID            uuid.UUID
	Name          string
	SelectionMode string
	Modifiers     []Modifier
}

// Modifier is one priced customization inside a group.
type Modifier struct {
	ID                   uuid.UUID
	Name                 string
	PricingMode          PricingMode
	Value                decimal.Decimal
	FreeQuantity         int
	PricePerUnitQuantity decimal.Decimal
	IsAvailable          bool
}

// IngredientRequirement links a menu item to the stock it consumes per
// unit sold.
type IngredientRequirement struct {
	InventoryItemID uuid.UUID
	Quantity        decimal.Decimal
}

// Table is the dining table entity referenced by dine-in orders.
type Table struct {
	ID           uuid.UUID   `json:"id"`
	RestaurantID uuid.UUID   `json:"restaurant_id"`
	TableNumber  int         `json:"table_number"`
	Status       TableStatus `json:"status"`
}
