// Package pricing computes line and order prices for menu items with
// nested, multi-type modifiers. It performs no I/O; callers resolve the
// catalog snapshot and persist the frozen result.
package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"tableside/internal/models"
)

var (
	// ErrModifierNotApplicable means the selected modifier does not belong
	// to any group assigned to the menu item.
	ErrModifierNotApplicable = errors.New("modifier not applicable to menu item")
	// ErrModifierUnavailable means the modifier exists but is disabled.
	ErrModifierUnavailable = errors.New("modifier is not available")
	// ErrInvalidDiscount means the discount would drive the total negative.
	ErrInvalidDiscount = errors.New("discount exceeds order total")
	// ErrNegativeSubtotal means replacement modifiers priced below the base
	// item drove the summed line totals negative before any discount.
	ErrNegativeSubtotal = errors.New("order subtotal is negative")
)

// ModifierPrice is the computed price of one modifier selection.
type ModifierPrice struct {
	ModifierID string
	Name       string
	GroupName  string
	Quantity   int
	UnitPrice  decimal.Decimal
	TotalPrice decimal.Decimal
}

// LinePricing is the computed price of one line item.
type LinePricing struct {
	UnitPrice             decimal.Decimal
	ModifiersPricePerUnit decimal.Decimal
	LineTotal             decimal.Decimal
	Breakdown             []ModifierPrice
}

// OrderTotals are the order-level monetary fields at creation time.
type OrderTotals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	DiscountAmount decimal.Decimal
	Total          decimal.Decimal
}

// ComputeLineItem prices a menu item at the given quantity with the given
// modifier selections. Each selection carries its own quantity, independent
// of the line quantity.
func ComputeLineItem(item *models.MenuItemSnapshot, quantity int, selections []models.CreateModifierSelection) (*LinePricing, error) {
	if quantity < 1 {
		return nil, fmt.Errorf("quantity must be at least 1, got %d", quantity)
	}

	pricing := &LinePricing{
		UnitPrice:             item.Price,
		ModifiersPricePerUnit: decimal.Zero,
	}

	for _, selection := range selections {
		modifier, groupName, found := resolveModifier(item, selection.ModifierID.String())
		if !found {
			return nil, fmt.Errorf("modifier %s: %w", selection.ModifierID, ErrModifierNotApplicable)
		}
		if !modifier.IsAvailable {
			return nil, fmt.Errorf("modifier %q: %w", modifier.Name, ErrModifierUnavailable)
		}

		unitPrice, totalPrice := modifierPrice(item.Price, modifier, selection.Quantity)

		pricing.ModifiersPricePerUnit = pricing.ModifiersPricePerUnit.Add(totalPrice)
		pricing.Breakdown = append(pricing.Breakdown, ModifierPrice{
			ModifierID: modifier.ID.String(),
			Name:       modifier.Name,
			GroupName:  groupName,
			Quantity:   selection.Quantity,
			UnitPrice:  unitPrice,
			TotalPrice: totalPrice,
		})
	}

	pricing.LineTotal = item.Price.Add(pricing.ModifiersPricePerUnit).Mul(decimal.NewFromInt(int64(quantity)))

	return pricing, nil
}

// resolveModifier searches the item's assigned groups for the modifier.
func resolveModifier(item *models.MenuItemSnapshot, modifierID string) (*models.Modifier, string, bool) {
	for gi := range item.ModifierGroups {
		group := &item.ModifierGroups[gi]
		for mi := range group.Modifiers {
			if group.Modifiers[mi].ID.String() == modifierID {
				return &group.Modifiers[mi], group.Name, true
			}
		}
	}
	return nil, "", false
}

// modifierPrice evaluates the pricing mode formula for one selection.
// basePrice is the menu item's unit price.
func modifierPrice(basePrice decimal.Decimal, modifier *models.Modifier, quantity int) (unitPrice, totalPrice decimal.Decimal) {
	qty := decimal.NewFromInt(int64(quantity))

	switch modifier.PricingMode {
	case models.PricingFixed:
		unitPrice = modifier.Value
		totalPrice = modifier.Value.Mul(qty)
	case models.PricingPercentage:
		unitPrice = basePrice.Mul(modifier.Value).Div(decimal.NewFromInt(100))
		totalPrice = unitPrice.Mul(qty)
	case models.PricingReplacement:
		unitPrice = modifier.Value.Sub(basePrice)
		totalPrice = unitPrice.Mul(qty)
	case models.PricingFree:
		unitPrice = decimal.Zero
		totalPrice = decimal.Zero
	case models.PricingQuantityBased:
		billable := quantity - modifier.FreeQuantity
		if billable < 0 {
			billable = 0
		}
		unitPrice = modifier.PricePerUnitQuantity
		totalPrice = modifier.PricePerUnitQuantity.Mul(decimal.NewFromInt(int64(billable)))
	default:
		unitPrice = decimal.Zero
		totalPrice = decimal.Zero
	}

	return unitPrice, totalPrice
}

// ComputeOrderTotals derives order-level amounts from line totals. taxRate
// is a percentage (8.875 means 8.875%). The tax amount is rounded to cents
// once, at this final boundary. A discount that would produce a negative
// total is rejected.
func ComputeOrderTotals(lineTotals []decimal.Decimal, taxRate, discount decimal.Decimal) (*OrderTotals, error) {
	subtotal := decimal.Zero
	for _, lineTotal := range lineTotals {
		subtotal = subtotal.Add(lineTotal)
	}

	if subtotal.IsNegative() {
		return nil, fmt.Errorf("line totals sum to %s: %w", subtotal, ErrNegativeSubtotal)
	}

	taxAmount := subtotal.Mul(taxRate).Div(decimal.NewFromInt(100)).Round(2)

	total := subtotal.Add(taxAmount).Sub(discount)
	if total.IsNegative() {
		return nil, fmt.Errorf("discount %s on subtotal %s: %w", discount, subtotal, ErrInvalidDiscount)
	}

	return &OrderTotals{
		Subtotal:       subtotal,
		TaxAmount:      taxAmount,
		DiscountAmount: discount,
		Total:          total,
	}, nil
}
