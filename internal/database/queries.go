package database

// Order aggregate queries. NUMERIC columns travel as text so they convert
// losslessly to and from decimals.
const (
	AllocateOrderNumberSQL = `
		INSERT INTO order_counters (restaurant_id, day, last_seq)
		VALUES ($1, $2, 1)
		ON CONFLICT (restaurant_id, day)
		DO UPDATE SET last_seq = order_counters.last_seq + 1
		RETURNING last_seq`

	InsertOrderSQL = `
		INSERT INTO orders (id, restaurant_id, number, type, status, table_id,
			customer_name, customer_phone, subtotal, tax_amount, discount_amount,
			tip_amount, total, payment_status, notes, kitchen_notes, estimated_ready_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING created_at, updated_at`

	InsertOrderItemSQL = `
		INSERT INTO order_items (id, order_id, menu_item_id, name, quantity,
			unit_price, modifiers_price, total_price, status, notes)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	InsertOrderItemModifierSQL = `
		INSERT INTO order_item_modifiers (id, order_item_id, modifier_id, name,
			group_name, quantity, unit_price, total_price)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	InsertOrderStatusLogSQL = `
		INSERT INTO order_status_log (order_id, status, changed_by, notes)
		VALUES ($1, $2, $3, $4)`

	SelectOrderSQL = `
		SELECT id, restaurant_id, number, type, status, table_id, customer_name,
			customer_phone, subtotal::text, tax_amount::text, discount_amount::text,
			tip_amount::text, total::text, payment_status, notes, kitchen_notes,
			estimated_ready_at, actual_ready_at, paid_at, created_at, updated_at
		FROM orders
		WHERE restaurant_id = $1 AND id = $2`

	SelectOrderForUpdateSQL = SelectOrderSQL + `
		FOR UPDATE`

	SelectOrderItemsSQL = `
		SELECT id, order_id, menu_item_id, name, quantity, unit_price::text,
			modifiers_price::text, total_price::text, status, notes
		FROM order_items
		WHERE order_id = $1
		ORDER BY id`

	SelectOrderItemModifiersSQL = `
		SELECT m.id, m.order_item_id, m.modifier_id, m.name, m.group_name,
			m.quantity, m.unit_price::text, m.total_price::text
		FROM order_item_modifiers m
		JOIN order_items i ON i.id = m.order_item_id
		WHERE i.order_id = $1
		ORDER BY m.id`

	SelectOrderHistorySQL = `
		SELECT status, changed_by, notes, changed_at
		FROM order_status_log
		WHERE order_id = $1
		ORDER BY changed_at ASC, id ASC`

	UpdateOrderStatusSQL = `
		UPDATE orders
		SET status = $2,
			actual_ready_at = COALESCE(actual_ready_at, CASE WHEN $2 = 'ready' THEN NOW() END),
			paid_at = CASE WHEN $2 = 'completed' THEN NOW() ELSE paid_at END,
			payment_status = CASE WHEN $2 = 'completed' THEN 'paid' ELSE payment_status END,
			updated_at = NOW()
		WHERE id = $1`

	UpdateOrderTipSQL = `
		UPDATE orders SET tip_amount = $2, total = total - tip_amount + $2, updated_at = NOW()
		WHERE id = $1`

	UpdateOrderItemStatusSQL = `
		UPDATE order_items SET status = $3
		WHERE order_id = $1 AND id = $2`

	SelectOrderItemStatusesSQL = `
		SELECT status FROM order_items WHERE order_id = $1`

	CountActiveOrdersOnTableSQL = `
		SELECT COUNT(*) FROM orders
		WHERE table_id = $1 AND id != $2
			AND status IN ('pending', 'confirmed', 'preparing', 'ready', 'served')`

	ListOrdersSQL = `
		SELECT id, restaurant_id, number, type, status, table_id, customer_name,
			customer_phone, subtotal::text, tax_amount::text, discount_amount::text,
			tip_amount::text, total::text, payment_status, notes, kitchen_notes,
			estimated_ready_at, actual_ready_at, paid_at, created_at, updated_at
		FROM orders
		WHERE restaurant_id = $1
			AND ($2::text = '' OR status = $2)
			AND ($3::text = '' OR type = $3)
			AND ($4::uuid IS NULL OR table_id = $4)
			AND ($5::timestamptz IS NULL OR created_at >= $5)
			AND ($6::timestamptz IS NULL OR created_at < $6)
		ORDER BY created_at DESC
		LIMIT 200`

	KitchenQueueSQL = `
		SELECT id, restaurant_id, number, type, status, table_id, customer_name,
			customer_phone, subtotal::text, tax_amount::text, discount_amount::text,
			tip_amount::text, total::text, payment_status, notes, kitchen_notes,
			estimated_ready_at, actual_ready_at, paid_at, created_at, updated_at
		FROM orders
		WHERE restaurant_id = $1
			AND status IN ('pending', 'confirmed', 'preparing', 'ready')
			AND created_at >= $2
		ORDER BY
			CASE status
				WHEN 'pending' THEN 1
				WHEN 'confirmed' THEN 2
				WHEN 'preparing' THEN 3
				WHEN 'ready' THEN 4
			END ASC,
			created_at ASC`

	TodayStatsSQL = `
		SELECT status, COUNT(*), COALESCE(SUM(total), 0)::text
		FROM orders
		WHERE restaurant_id = $1 AND created_at >= $2
		GROUP BY status`
)

// Table queries.
const (
	SelectTableSQL = `
		SELECT id, restaurant_id, table_number, status
		FROM restaurant_tables
		WHERE restaurant_id = $1 AND id = $2`

	UpdateTableStatusSQL = `
		UPDATE restaurant_tables SET status = $2
		WHERE id = $1`
)

// Catalog queries.
const (
	SelectMenuItemsByIDsSQL = `
		SELECT id, name, price::text, prep_time_minutes, is_available
		FROM menu_items
		WHERE restaurant_id = $1 AND id = ANY($2)`

	SelectMenuItemModifierGroupsSQL = `
		SELECT mg.id, mg.name, mg.selection_mode,
			m.id, m.name, m.pricing_mode, m.price_value::text, m.free_quantity,
			m.price_per_unit_quantity::text, m.is_available
		FROM menu_item_modifier_groups link
		JOIN modifier_groups mg ON mg.id = link.modifier_group_id
		JOIN modifiers m ON m.group_id = mg.id
		WHERE link.menu_item_id = $1
		ORDER BY mg.id, m.id`

	SelectMenuItemIngredientsSQL = `
		SELECT inventory_item_id, quantity::text
		FROM menu_item_ingredients
		WHERE menu_item_id = $1`

	SelectTaxRateSQL = `
		SELECT tax_rate::text FROM restaurants WHERE id = $1`
)

// Inventory queries used by the confirmation worker.
const (
	DecrementStockSQL = `
		UPDATE inventory_items
		SET current_stock = current_stock - $2::numeric
		WHERE id = $1 AND current_stock >= $2::numeric
		RETURNING (current_stock + $2::numeric)::text, current_stock::text`

	InsertStockMovementSQL = `
		INSERT INTO stock_movements (restaurant_id, inventory_item_id,
			movement_type, quantity, previous_stock, new_stock, reference)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
)
