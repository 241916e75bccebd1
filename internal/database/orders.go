package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const orderColumns = `id, table_id, user_id, customer_name, order_type, status, total_amount, created_at, updated_at`

func scanOrder(row interface{ Scan(dest ...any) error }) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.TableID, &o.UserID, &o.CustomerName, &o.OrderType,
		&o.Status, &o.TotalAmount, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

type CreateOrderParams struct {
	TableID      pgtype.UUID
	UserID       uuid.UUID
	CustomerName pgtype.Text
	OrderType    string
	TotalAmount  pgtype.Numeric
}

func (q *Queries) CreateOrder(ctx context.Context, arg CreateOrderParams) (Order, error) {
	const sql = `
		INSERT INTO orders (table_id, user_id, customer_name, order_type, status, total_amount)
		VALUES ($1, $2, $3, $4, 'pending', $5)
		RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, sql, arg.TableID, arg.UserID, arg.CustomerName, arg.OrderType, arg.TotalAmount))
}

func (q *Queries) GetOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	const sql = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1`
	return scanOrder(q.db.QueryRow(ctx, sql, id))
}

// GetOrderForUpdate locks the order row for the duration of the transaction,
// serializing concurrent item mutations, cancellation and settlement against
// the same order.
func (q *Queries) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (Order, error) {
	const sql = `SELECT ` + orderColumns + ` FROM orders WHERE id = $1 FOR NO KEY UPDATE`
	return scanOrder(q.db.QueryRow(ctx, sql, id))
}

type ListOrdersParams struct {
	Status    pgtype.Text
	OrderType pgtype.Text
	TableID   pgtype.UUID
	UserID    pgtype.UUID
	StartDate pgtype.Timestamptz
	EndDate   pgtype.Timestamptz
	Limit     int32
	Offset    int32
}

func (q *Queries) ListOrders(ctx context.Context, arg ListOrdersParams) ([]Order, error) {
	const sql = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE ($1::text IS NULL OR status = $1)
		  AND ($2::text IS NULL OR order_type = $2)
		  AND ($3::uuid IS NULL OR table_id = $3)
		  AND ($4::uuid IS NULL OR user_id = $4)
		  AND ($5::timestamptz IS NULL OR created_at >= $5)
		  AND ($6::timestamptz IS NULL OR created_at < $6)
		ORDER BY created_at DESC, id DESC
		LIMIT $7 OFFSET $8`
	rows, err := q.db.Query(ctx, sql, arg.Status, arg.OrderType, arg.TableID, arg.UserID,
		arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// ListKitchenOrders returns non-terminal orders in strict FIFO: oldest
// creation time first, ties broken by ascending id for a total order.
func (q *Queries) ListKitchenOrders(ctx context.Context) ([]Order, error) {
	const sql = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE status IN ('pending', 'processing')
		ORDER BY created_at ASC, id ASC`
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (q *Queries) ListOrdersAwaitingPayment(ctx context.Context) ([]Order, error) {
	const sql = `
		SELECT ` + orderColumns + ` FROM orders
		WHERE status = 'delivered'
		ORDER BY created_at ASC, id ASC`
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var orders []Order
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

// CountActiveOrdersByTable counts orders on a table that are not completed or
// cancelled. Used to decide whether a table can be released.
func (q *Queries) CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	const sql = `
		SELECT COUNT(*) FROM orders
		WHERE table_id = $1 AND status NOT IN ('completed', 'cancelled')`
	var n int64
	err := q.db.QueryRow(ctx, sql, tableID).Scan(&n)
	return n, err
}

type UpdateOrderStatusParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus string
}

// UpdateOrderStatus advances the order only when it is still in FromStatus,
// returning pgx.ErrNoRows when a concurrent writer got there first.
func (q *Queries) UpdateOrderStatus(ctx context.Context, arg UpdateOrderStatusParams) (Order, error) {
	const sql = `
		UPDATE orders SET status = $2, updated_at = now()
		WHERE id = $1 AND status = $3
		RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, sql, arg.ID, arg.Status, arg.FromStatus))
}

// CancelOrder enforces the cancellation precondition atomically: only
// pending or processing orders can be cancelled.
func (q *Queries) CancelOrder(ctx context.Context, id uuid.UUID) (Order, error) {
	const sql = `
		UPDATE orders SET status = 'cancelled', updated_at = now()
		WHERE id = $1 AND status IN ('pending', 'processing')
		RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, sql, id))
}

type UpdateOrderTotalParams struct {
	ID          uuid.UUID
	TotalAmount pgtype.Numeric
}

func (q *Queries) UpdateOrderTotal(ctx context.Context, arg UpdateOrderTotalParams) (Order, error) {
	const sql = `
		UPDATE orders SET total_amount = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + orderColumns
	return scanOrder(q.db.QueryRow(ctx, sql, arg.ID, arg.TotalAmount))
}

func (q *Queries) CountOrdersByStatus(ctx context.Context, status string) (int64, error) {
	const sql = `SELECT COUNT(*) FROM orders WHERE status = $1`
	var n int64
	err := q.db.QueryRow(ctx, sql, status).Scan(&n)
	return n, err
}

func (q *Queries) CountOrdersToday(ctx context.Context) (int64, error) {
	const sql = `SELECT COUNT(*) FROM orders WHERE created_at::date = CURRENT_DATE`
	var n int64
	err := q.db.QueryRow(ctx, sql).Scan(&n)
	return n, err
}

// --- Order items ---

const orderItemColumns = `id, order_id, menu_id, quantity, unit_price, subtotal, notes, status, created_at`

func scanOrderItem(row interface{ Scan(dest ...any) error }) (OrderItem, error) {
	var i OrderItem
	err := row.Scan(&i.ID, &i.OrderID, &i.MenuID, &i.Quantity, &i.UnitPrice,
		&i.Subtotal, &i.Notes, &i.Status, &i.CreatedAt)
	return i, err
}

type CreateOrderItemParams struct {
	OrderID   uuid.UUID
	MenuID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
	Notes     pgtype.Text
}

func (q *Queries) CreateOrderItem(ctx context.Context, arg CreateOrderItemParams) (OrderItem, error) {
	const sql = `
		INSERT INTO order_items (order_id, menu_id, quantity, unit_price, subtotal, notes, status)
		VALUES ($1, $2, $3, $4, $5, $6, 'pending')
		RETURNING ` + orderItemColumns
	return scanOrderItem(q.db.QueryRow(ctx, sql, arg.OrderID, arg.MenuID, arg.Quantity,
		arg.UnitPrice, arg.Subtotal, arg.Notes))
}

func (q *Queries) GetOrderItem(ctx context.Context, id uuid.UUID) (OrderItem, error) {
	const sql = `SELECT ` + orderItemColumns + ` FROM order_items WHERE id = $1`
	return scanOrderItem(q.db.QueryRow(ctx, sql, id))
}

// ListOrderItemsByOrder preserves insertion order, which the kitchen queue
// relies on.
func (q *Queries) ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]OrderItem, error) {
	const sql = `
		SELECT ` + orderItemColumns + ` FROM order_items
		WHERE order_id = $1
		ORDER BY created_at ASC, id ASC`
	rows, err := q.db.Query(ctx, sql, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []OrderItem
	for rows.Next() {
		i, err := scanOrderItem(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

type UpdateOrderItemStatusParams struct {
	ID         uuid.UUID
	Status     string
	FromStatus string
}

func (q *Queries) UpdateOrderItemStatus(ctx context.Context, arg UpdateOrderItemStatusParams) (OrderItem, error) {
	const sql = `
		UPDATE order_items SET status = $2
		WHERE id = $1 AND status = $3
		RETURNING ` + orderItemColumns
	return scanOrderItem(q.db.QueryRow(ctx, sql, arg.ID, arg.Status, arg.FromStatus))
}

func (q *Queries) CountItemsNotServed(ctx context.Context, orderID uuid.UUID) (int64, error) {
	const sql = `SELECT COUNT(*) FROM order_items WHERE order_id = $1 AND status <> 'served'`
	var n int64
	err := q.db.QueryRow(ctx, sql, orderID).Scan(&n)
	return n, err
}

func (q *Queries) SumItemSubtotals(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error) {
	const sql = `SELECT COALESCE(SUM(subtotal), 0) FROM order_items WHERE order_id = $1`
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sql, orderID).Scan(&n)
	return n, err
}
