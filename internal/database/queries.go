package database

// Ingredient ledger queries. Reserve and release are single conditional
// updates so the read-check-write is atomic per ingredient.
const (
	ReserveIngredientSQL = `
		UPDATE ingredients SET quantity = quantity - $2, updated_at = NOW()
		WHERE id = $1 AND quantity >= $2
		RETURNING quantity, safe_threshold`

	ReleaseIngredientSQL = `
		UPDATE ingredients SET quantity = quantity + $2, updated_at = NOW()
		WHERE id = $1
		RETURNING quantity, safe_threshold`

	GetIngredientSQL = `
		SELECT id, name, quantity, safe_threshold, created_at, updated_at
		FROM ingredients WHERE id = $1`

	GetIngredientsByIDsSQL = `
		SELECT id, name, quantity, safe_threshold, created_at, updated_at
		FROM ingredients WHERE id = ANY($1)
		ORDER BY id ASC`

	GetLowStockIngredientsSQL = `
		SELECT name, quantity, safe_threshold
		FROM ingredients WHERE quantity < safe_threshold
		ORDER BY name ASC`
)

// Product queries
const (
	GetProductSQL = `
		SELECT p.id, p.name, p.price, p.sell_price, p.image, p.display_type,
			   COALESCE(array_agg(pi.ingredient_id ORDER BY pi.ingredient_id)
			            FILTER (WHERE pi.ingredient_id IS NOT NULL), '{}')
		FROM products p
		LEFT JOIN product_ingredients pi ON pi.product_id = p.id
		WHERE p.id = $1
		GROUP BY p.id`

	RecomputeDisplayTypeSQL = `
		UPDATE products SET display_type = CASE WHEN EXISTS (
			SELECT 1 FROM product_ingredients pi
			JOIN ingredients i ON i.id = pi.ingredient_id
			WHERE pi.product_id = $1 AND i.quantity < i.safe_threshold
		) THEN 2 ELSE 1 END
		WHERE id = $1
		RETURNING display_type`
)

// Table and cart line queries
const (
	GetTableSQL = `
		SELECT id, name, is_active, active_step, request, notice, created_at, updated_at
		FROM tables WHERE id = $1`

	UpdateTableWorkflowSQL = `
		UPDATE tables SET active_step = $2, request = $3, notice = $4, updated_at = NOW()
		WHERE id = $1`

	// Single-column writes so a step change and a concurrent flag signal
	// cannot overwrite each other.
	SetTableStepSQL = `
		UPDATE tables SET active_step = $2, updated_at = NOW()
		WHERE id = $1`

	SetTableRequestSQL = `
		UPDATE tables SET request = $2, updated_at = NOW()
		WHERE id = $1`

	SetTableNoticeSQL = `
		UPDATE tables SET notice = $2, updated_at = NOW()
		WHERE id = $1`

	SwapTableStateSQL = `
		UPDATE tables SET is_active = $2, active_step = $3, request = $4, notice = $5, updated_at = NOW()
		WHERE id = $1`

	// SwapCartLinesSQL moves both carts in one statement; the deferred unique
	// constraint on (table_id, product_id) is checked at commit.
	SwapCartLinesSQL = `
		UPDATE cart_lines
		SET table_id = CASE WHEN table_id = $1 THEN $2 ELSE $1 END
		WHERE table_id IN ($1, $2)`

	GetCartLineSQL = `
		SELECT id, table_id, product_id, quantity, fulfillment, created_at
		FROM cart_lines WHERE table_id = $1 AND product_id = $2`

	GetCartLinesSQL = `
		SELECT cl.id, cl.table_id, cl.product_id, p.name, cl.quantity, cl.fulfillment, cl.created_at
		FROM cart_lines cl
		JOIN products p ON p.id = cl.product_id
		WHERE cl.table_id = $1
		ORDER BY cl.created_at ASC, cl.id ASC`

	InsertCartLineSQL = `
		INSERT INTO cart_lines (table_id, product_id, quantity, fulfillment)
		VALUES ($1, $2, $3, $4)
		RETURNING id`

	UpdateCartLineSQL = `
		UPDATE cart_lines SET quantity = $2, fulfillment = $3 WHERE id = $1`

	DeleteCartLineSQL = `
		DELETE FROM cart_lines WHERE id = $1`

	MarkCartLinesDoneSQL = `
		UPDATE cart_lines
		SET fulfillment = jsonb_build_array(
			jsonb_build_object('state', 'done', 'done_quantity', quantity))
		WHERE table_id = $1`

	CountCartLinesSQL = `
		SELECT COUNT(*) FROM cart_lines WHERE table_id = $1`
)

// Coupon queries. Redemption is a conditional increment so two concurrent
// checkouts cannot push usage past the cap.
const (
	RedeemCouponSQL = `
		UPDATE coupons SET current_usage = current_usage + 1
		WHERE code = $1 AND current_usage < max_usage
		RETURNING id, code, discount_value, max_usage, current_usage`

	GetCouponSQL = `
		SELECT id, code, discount_value, max_usage, current_usage, created_at
		FROM coupons WHERE code = $1`
)

// Order queries
const (
	InsertOrderSQL = `
		INSERT INTO orders (id, customer_name, phone, email, payment_method, discount, final_price, cart, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	GetOrderSQL = `
		SELECT id, customer_name, phone, email, payment_method, discount, final_price,
			   cart, status, payment_amount, created_at, updated_at
		FROM orders WHERE id = $1`

	ListOrdersSQL = `
		SELECT id, customer_name, phone, email, payment_method, discount, final_price,
			   cart, status, payment_amount, created_at, updated_at
		FROM orders ORDER BY created_at DESC
		LIMIT $1`

	MarkOrderPaidSQL = `
		UPDATE orders SET status = 'paid', payment_amount = $2, updated_at = NOW()
		WHERE id = $1 AND status = 'pending'`
)
