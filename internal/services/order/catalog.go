package order

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"tableside/internal/database"
	"tableside/internal/models"
)

// Catalog reads menu, table and restaurant configuration. It satisfies
// MenuProvider, TableProvider and TenantProvider.
type Catalog struct {
	db *database.DB
}

// NewCatalog creates a catalog reader.
func NewCatalog(db *database.DB) *Catalog {
	return &Catalog{db: db}
}

// GetMenuItemsByIDs loads the requested menu items with their modifier
// groups, keyed by item ID. IDs not found for the restaurant are simply
// absent from the result.
func (c *Catalog) GetMenuItemsByIDs(ctx context.Context, restaurantID uuid.UUID, ids []uuid.UUID) (map[uuid.UUID]*models.MenuItemSnapshot, error) {
	rows, err := c.db.Query(ctx, database.SelectMenuItemsByIDsSQL, restaurantID, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to load menu items: %w", err)
	}
	defer rows.Close()

	items := make(map[uuid.UUID]*models.MenuItemSnapshot)
	for rows.Next() {
		var item models.MenuItemSnapshot
		var price string
		if err := rows.Scan(&item.ID, &item.Name, &price, &item.PrepTimeMinutes, &item.IsAvailable); err != nil {
			return nil, fmt.Errorf("failed to scan menu item: %w", err)
		}
		if item.Price, err = decimal.NewFromString(price); err != nil {
			return nil, fmt.Errorf("invalid menu item price: %w", err)
		}
		items[item.ID] = &item
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	rows.Close()

	for _, item := range items {
		if err := c.loadModifierGroups(ctx, item); err != nil {
			return nil, err
		}
	}

	return items, nil
}

func (c *Catalog) loadModifierGroups(ctx context.Context, item *models.MenuItemSnapshot) error {
	rows, err := c.db.Query(ctx, database.SelectMenuItemModifierGroupsSQL, item.ID)
	if err != nil {
		return fmt.Errorf("failed to load modifier groups: %w", err)
	}
	defer rows.Close()

	groupIndex := make(map[uuid.UUID]int)
	for rows.Next() {
		var group models.ModifierGroup
		var mod models.Modifier
		var value, perUnit string
		err = rows.Scan(&group.ID, &group.Name, &group.SelectionMode,
			&mod.ID, &mod.Name, &mod.PricingMode, &value, &mod.FreeQuantity,
			&perUnit, &mod.IsAvailable)
		if err != nil {
			return fmt.Errorf("failed to scan modifier group: %w", err)
		}
		if mod.Value, err = decimal.NewFromString(value); err != nil {
			return fmt.Errorf("invalid modifier value: %w", err)
		}
		if mod.PricePerUnitQuantity, err = decimal.NewFromString(perUnit); err != nil {
			return fmt.Errorf("invalid modifier per-unit price: %w", err)
		}

		idx, ok := groupIndex[group.ID]
		if !ok {
			idx = len(item.ModifierGroups)
			groupIndex[group.ID] = idx
			item.ModifierGroups = append(item.ModifierGroups, group)
		}
		item.ModifierGroups[idx].Modifiers = append(item.ModifierGroups[idx].Modifiers, mod)
	}
	return rows.Err()
}

// GetTable loads one dining table for the restaurant.
func (c *Catalog) GetTable(ctx context.Context, restaurantID, tableID uuid.UUID) (*models.Table, error) {
	var table models.Table
	err := c.db.QueryRow(ctx, database.SelectTableSQL, restaurantID, tableID).
		Scan(&table.ID, &table.RestaurantID, &table.TableNumber, &table.Status)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrTableNotFound
		}
		return nil, fmt.Errorf("failed to load table: %w", err)
	}
	return &table, nil
}

// GetTaxRate returns the restaurant's tax rate as a percentage.
func (c *Catalog) GetTaxRate(ctx context.Context, restaurantID uuid.UUID) (decimal.Decimal, error) {
	var rate string
	if err := c.db.QueryRow(ctx, database.SelectTaxRateSQL, restaurantID).Scan(&rate); err != nil {
		return decimal.Zero, fmt.Errorf("failed to load tax rate: %w", err)
	}
	taxRate, err := decimal.NewFromString(rate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tax rate: %w", err)
	}
	return taxRate, nil
}
