package pricing

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"tableside/internal/models"
)

func dec(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// burgerWithModifiers builds a 10.00 menu item with one modifier per
// pricing mode, all in a single assigned group.
func burgerWithModifiers() (*models.MenuItemSnapshot, map[string]uuid.UUID) {
	ids := map[string]uuid.UUID{
		"fixed":          uuid.New(),
		"percentage":     uuid.New(),
		"replacement":    uuid.New(),
		"free":           uuid.New(),
		"quantity_based": uuid.New(),
		"unavailable":    uuid.New(),
	}

	item := &models.MenuItemSnapshot{
		ID:          uuid.New(),
		Name:        "Burger",
		Price:       dec("10.00"),
		IsAvailable: true,
		ModifierGroups: []models.ModifierGroup{
			{
				ID:   uuid.New(),
				Name: "Extras",
				Modifiers: []models.Modifier{
					{ID: ids["fixed"], Name: "Extra cheese", PricingMode: models.PricingFixed, Value: dec("1.50"), IsAvailable: true},
					{ID: ids["percentage"], Name: "Deluxe", PricingMode: models.PricingPercentage, Value: dec("20"), IsAvailable: true},
					{ID: ids["replacement"], Name: "Vegan patty", PricingMode: models.PricingReplacement, Value: dec("12.50"), IsAvailable: true},
					{ID: ids["free"], Name: "No onions", PricingMode: models.PricingFree, Value: dec("9.99"), IsAvailable: true},
					{ID: ids["quantity_based"], Name: "Sauce", PricingMode: models.PricingQuantityBased, FreeQuantity: 2, PricePerUnitQuantity: dec("0.50"), IsAvailable: true},
					{ID: ids["unavailable"], Name: "Truffle", PricingMode: models.PricingFixed, Value: dec("5.00"), IsAvailable: false},
				},
			},
		},
	}

	return item, ids
}

func TestComputeLineItem_PricingModes(t *testing.T) {
	item, ids := burgerWithModifiers()

	tests := []struct {
		name          string
		modifier      string
		quantity      int
		wantPerUnit   string
		wantUnitPrice string
	}{
		{name: "fixed", modifier: "fixed", quantity: 2, wantPerUnit: "3.00", wantUnitPrice: "1.50"},
		{name: "percentage", modifier: "percentage", quantity: 1, wantPerUnit: "2.00", wantUnitPrice: "2.00"},
		{name: "replacement", modifier: "replacement", quantity: 1, wantPerUnit: "2.50", wantUnitPrice: "2.50"},
		{name: "free", modifier: "free", quantity: 3, wantPerUnit: "0", wantUnitPrice: "0"},
		{name: "quantity based above free allowance", modifier: "quantity_based", quantity: 5, wantPerUnit: "1.50", wantUnitPrice: "0.50"},
		{name: "quantity based clamped at zero", modifier: "quantity_based", quantity: 2, wantPerUnit: "0", wantUnitPrice: "0.50"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			selections := []models.CreateModifierSelection{
				{ModifierID: ids[tt.modifier], Quantity: tt.quantity},
			}

			got, err := ComputeLineItem(item, 1, selections)
			if err != nil {
				t.Fatalf("ComputeLineItem returned error: %v", err)
			}

			if !got.ModifiersPricePerUnit.Equal(dec(tt.wantPerUnit)) {
				t.Errorf("ModifiersPricePerUnit = %s, want %s", got.ModifiersPricePerUnit, tt.wantPerUnit)
			}
			if len(got.Breakdown) != 1 {
				t.Fatalf("Breakdown length = %d, want 1", len(got.Breakdown))
			}
			if !got.Breakdown[0].UnitPrice.Equal(dec(tt.wantUnitPrice)) {
				t.Errorf("Breakdown unit price = %s, want %s", got.Breakdown[0].UnitPrice, tt.wantUnitPrice)
			}
			if !got.Breakdown[0].TotalPrice.Equal(dec(tt.wantPerUnit)) {
				t.Errorf("Breakdown total price = %s, want %s", got.Breakdown[0].TotalPrice, tt.wantPerUnit)
			}

			wantLine := dec("10.00").Add(dec(tt.wantPerUnit))
			if !got.LineTotal.Equal(wantLine) {
				t.Errorf("LineTotal = %s, want %s", got.LineTotal, wantLine)
			}
		})
	}
}

func TestComputeLineItem_FixedModifierOnMultiQuantityLine(t *testing.T) {
	// Item price 10.00, one fixed 1.50 modifier, line quantity 2:
	// (10 + 1.50) x 2 = 23.00.
	item, ids := burgerWithModifiers()

	got, err := ComputeLineItem(item, 2, []models.CreateModifierSelection{
		{ModifierID: ids["fixed"], Quantity: 1},
	})
	if err != nil {
		t.Fatalf("ComputeLineItem returned error: %v", err)
	}

	if !got.ModifiersPricePerUnit.Equal(dec("1.50")) {
		t.Errorf("ModifiersPricePerUnit = %s, want 1.50", got.ModifiersPricePerUnit)
	}
	if !got.LineTotal.Equal(dec("23.00")) {
		t.Errorf("LineTotal = %s, want 23.00", got.LineTotal)
	}
}

func TestComputeLineItem_NoModifiers(t *testing.T) {
	item, _ := burgerWithModifiers()

	got, err := ComputeLineItem(item, 2, nil)
	if err != nil {
		t.Fatalf("ComputeLineItem returned error: %v", err)
	}
	if !got.LineTotal.Equal(dec("20.00")) {
		t.Errorf("LineTotal = %s, want 20.00", got.LineTotal)
	}
	if !got.ModifiersPricePerUnit.IsZero() {
		t.Errorf("ModifiersPricePerUnit = %s, want 0", got.ModifiersPricePerUnit)
	}
}

func TestComputeLineItem_Errors(t *testing.T) {
	item, ids := burgerWithModifiers()

	t.Run("modifier from another item", func(t *testing.T) {
		_, err := ComputeLineItem(item, 1, []models.CreateModifierSelection{
			{ModifierID: uuid.New(), Quantity: 1},
		})
		if !errors.Is(err, ErrModifierNotApplicable) {
			t.Errorf("error = %v, want ErrModifierNotApplicable", err)
		}
	})

	t.Run("unavailable modifier", func(t *testing.T) {
		_, err := ComputeLineItem(item, 1, []models.CreateModifierSelection{
			{ModifierID: ids["unavailable"], Quantity: 1},
		})
		if !errors.Is(err, ErrModifierUnavailable) {
			t.Errorf("error = %v, want ErrModifierUnavailable", err)
		}
	})

	t.Run("zero quantity", func(t *testing.T) {
		if _, err := ComputeLineItem(item, 0, nil); err == nil {
			t.Error("expected error for zero quantity")
		}
	})
}

func TestComputeOrderTotals(t *testing.T) {
	tests := []struct {
		name       string
		lineTotals []string
		taxRate    string
		discount   string
		wantSub    string
		wantTax    string
		wantTotal  string
		wantErr    error
	}{
		{
			// item 10.00 x2, tax 10%.
			name:       "single line with tax",
			lineTotals: []string{"20.00"},
			taxRate:    "10",
			discount:   "0",
			wantSub:    "20.00",
			wantTax:    "2.00",
			wantTotal:  "22.00",
		},
		{
			name:       "flat discount",
			lineTotals: []string{"20.00"},
			taxRate:    "10",
			discount:   "5.00",
			wantSub:    "20.00",
			wantTax:    "2.00",
			wantTotal:  "17.00",
		},
		{
			name:       "fractional tax rate rounds at boundary",
			lineTotals: []string{"20.00"},
			taxRate:    "8.875",
			discount:   "0",
			wantSub:    "20.00",
			wantTax:    "1.78",
			wantTotal:  "21.78",
		},
		{
			name:       "multiple lines",
			lineTotals: []string{"23.00", "9.50"},
			taxRate:    "0",
			discount:   "0",
			wantSub:    "32.50",
			wantTax:    "0",
			wantTotal:  "32.50",
		},
		{
			name:       "discount exceeding total rejected",
			lineTotals: []string{"10.00"},
			taxRate:    "0",
			discount:   "15.00",
			wantErr:    ErrInvalidDiscount,
		},
		{
			// Replacement modifiers priced below the base can push a line
			// negative; the rejection must not blame the discount.
			name:       "negative subtotal without discount rejected",
			lineTotals: []string{"-4.00", "2.50"},
			taxRate:    "10",
			discount:   "0",
			wantErr:    ErrNegativeSubtotal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lineTotals := make([]decimal.Decimal, 0, len(tt.lineTotals))
			for _, s := range tt.lineTotals {
				lineTotals = append(lineTotals, dec(s))
			}

			got, err := ComputeOrderTotals(lineTotals, dec(tt.taxRate), dec(tt.discount))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("ComputeOrderTotals returned error: %v", err)
			}

			if !got.Subtotal.Equal(dec(tt.wantSub)) {
				t.Errorf("Subtotal = %s, want %s", got.Subtotal, tt.wantSub)
			}
			if !got.TaxAmount.Equal(dec(tt.wantTax)) {
				t.Errorf("TaxAmount = %s, want %s", got.TaxAmount, tt.wantTax)
			}
			if !got.Total.Equal(dec(tt.wantTotal)) {
				t.Errorf("Total = %s, want %s", got.Total, tt.wantTotal)
			}
		})
	}
}
