package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
)

// Errors returned by the order service.
var (
	ErrEmptyCart         = errors.New("order must contain at least one item")
	ErrInvalidOrderType  = errors.New("invalid order_type")
	ErrInvalidQuantity   = errors.New("quantity must be >= 1")
	ErrInvalidMenuID     = errors.New("invalid menu_id")
	ErrInvalidTableID    = errors.New("invalid table_id")
	ErrTableRequired     = errors.New("table_id is required for dine_in orders")
	ErrTableNotFound     = errors.New("table not found")
	ErrMenuNotFound      = errors.New("menu not found")
	ErrMenuUnavailable   = errors.New("menu is not active")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrOrderNotFound     = errors.New("order not found")
	ErrOrderNotOpen      = errors.New("order no longer accepts items")
	ErrItemNotFound      = errors.New("order item not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrItemsNotReady     = errors.New("not all items are served")
)

// orderTransitions is the single adjacency table for the order state
// machine. Cancellation is reachable from pending and processing only;
// completed and cancelled are terminal.
var orderTransitions = map[string][]string{
	enum.OrderStatusPending:    {enum.OrderStatusProcessing, enum.OrderStatusCancelled},
	enum.OrderStatusProcessing: {enum.OrderStatusDelivered, enum.OrderStatusCancelled},
	enum.OrderStatusDelivered:  {enum.OrderStatusCompleted},
}

// itemNextStatus encodes the monotonic item progression. There is no entry
// for served: it is terminal.
var itemNextStatus = map[string]string{
	enum.OrderItemStatusPending: enum.OrderItemStatusCooking,
	enum.OrderItemStatusCooking: enum.OrderItemStatusServed,
}

func canTransition(from, to string) bool {
	for _, s := range orderTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

func isTerminalOrderStatus(s string) bool {
	return s == enum.OrderStatusCompleted || s == enum.OrderStatusCancelled
}

// TxBeginner starts a new database transaction. Satisfied by *pgxpool.Pool.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// OrderStore defines the DB methods the lifecycle engine needs.
// Satisfied by *database.Queries (pool- or tx-backed).
type OrderStore interface {
	GetMenuForOrder(ctx context.Context, id uuid.UUID) (database.Menu, error)
	ReserveStock(ctx context.Context, arg database.ReserveStockParams) (database.Inventory, error)
	ReleaseStock(ctx context.Context, arg database.ReleaseStockParams) (database.Inventory, error)
	CreateOrder(ctx context.Context, arg database.CreateOrderParams) (database.Order, error)
	CreateOrderItem(ctx context.Context, arg database.CreateOrderItemParams) (database.OrderItem, error)
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetOrderItem(ctx context.Context, id uuid.UUID) (database.OrderItem, error)
	UpdateOrderItemStatus(ctx context.Context, arg database.UpdateOrderItemStatusParams) (database.OrderItem, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CancelOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	UpdateOrderTotal(ctx context.Context, arg database.UpdateOrderTotalParams) (database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	CountItemsNotServed(ctx context.Context, orderID uuid.UUID) (int64, error)
	SumItemSubtotals(ctx context.Context, orderID uuid.UUID) (pgtype.Numeric, error)
	OccupyTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	ReleaseTable(ctx context.Context, id uuid.UUID) (database.Table, error)
	CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx), letting the
// service derive store instances from its own transactions.
type NewOrderStore func(db database.DBTX) OrderStore

// OrderService owns the order fulfillment lifecycle: submission, item
// progression, delivery and cancellation. Every operation runs as a single
// transaction spanning its stock checks, status checks and writes.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore) *OrderService {
	return &OrderService{pool: pool, newStore: newStore}
}

// SubmitOrderRequest is the validated input for creating an order.
type SubmitOrderRequest struct {
	TableID      string // empty for take-away
	UserID       uuid.UUID
	CustomerName string
	OrderType    string
	Items        []SubmitOrderItem
}

// SubmitOrderItem is a single cart line.
type SubmitOrderItem struct {
	MenuID   string
	Quantity int32
	Notes    string
}

// SubmitOrderResult is the created order with its items.
type SubmitOrderResult struct {
	Order database.Order
	Items []database.OrderItem
}

// Submit creates an order atomically: stock is reserved per item with a
// conditional decrement, prices are snapshotted from the menu, and for
// dine-in the table is marked occupied. Any failure rolls back the whole
// submission; stock is never partially consumed.
func (s *OrderService) Submit(ctx context.Context, req SubmitOrderRequest) (*SubmitOrderResult, error) {
	if req.OrderType != enum.OrderTypeDineIn && req.OrderType != enum.OrderTypeTakeAway {
		return nil, ErrInvalidOrderType
	}
	if len(req.Items) == 0 {
		return nil, ErrEmptyCart
	}

	var tableID pgtype.UUID
	if req.OrderType == enum.OrderTypeDineIn {
		if req.TableID == "" {
			return nil, ErrTableRequired
		}
		tid, err := uuid.Parse(req.TableID)
		if err != nil {
			return nil, ErrInvalidTableID
		}
		tableID = pgtype.UUID{Bytes: tid, Valid: true}
	}

	type parsedItem struct {
		menuID   uuid.UUID
		quantity int32
		notes    string
	}
	parsed := make([]parsedItem, len(req.Items))
	for i, item := range req.Items {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		mid, err := uuid.Parse(item.MenuID)
		if err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuID)
		}
		parsed[i] = parsedItem{menuID: mid, quantity: item.Quantity, notes: item.Notes}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Snapshot prices and reserve stock. A failed reservation aborts the
	// transaction, which undoes every earlier decrement.
	type pricedItem struct {
		params database.CreateOrderItemParams
	}
	total := decimal.Zero
	priced := make([]pricedItem, 0, len(parsed))
	for i, item := range parsed {
		menu, err := store.GetMenuForOrder(ctx, item.menuID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get menu: %w", i, err)
		}
		if !menu.IsActive {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuUnavailable)
		}

		if _, err := store.ReserveStock(ctx, database.ReserveStockParams{
			MenuID:   item.menuID,
			Quantity: item.quantity,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrInsufficientStock)
			}
			return nil, fmt.Errorf("items[%d]: reserve stock: %w", i, err)
		}

		unitPrice := numericToDecimal(menu.Price)
		subtotal := unitPrice.Mul(decimal.NewFromInt32(item.quantity))
		total = total.Add(subtotal)

		notes := pgtype.Text{}
		if item.notes != "" {
			notes = pgtype.Text{String: item.notes, Valid: true}
		}
		priced = append(priced, pricedItem{params: database.CreateOrderItemParams{
			MenuID:    item.menuID,
			Quantity:  item.quantity,
			UnitPrice: decimalToNumeric(unitPrice),
			Subtotal:  decimalToNumeric(subtotal),
			Notes:     notes,
		}})
	}

	// The table is occupied before the order row exists so an unknown table
	// surfaces as ErrTableNotFound rather than a foreign key violation on
	// orders.table_id.
	if tableID.Valid {
		if _, err := store.OccupyTable(ctx, tableID.Bytes); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, ErrTableNotFound
			}
			return nil, fmt.Errorf("occupy table: %w", err)
		}
	}

	customerName := pgtype.Text{}
	if req.CustomerName != "" {
		customerName = pgtype.Text{String: req.CustomerName, Valid: true}
	}

	order, err := store.CreateOrder(ctx, database.CreateOrderParams{
		TableID:      tableID,
		UserID:       req.UserID,
		CustomerName: customerName,
		OrderType:    req.OrderType,
		TotalAmount:  decimalToNumeric(total),
	})
	if err != nil {
		return nil, fmt.Errorf("create order: %w", err)
	}

	items := make([]database.OrderItem, 0, len(priced))
	for _, pi := range priced {
		pi.params.OrderID = order.ID
		item, err := store.CreateOrderItem(ctx, pi.params)
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &SubmitOrderResult{Order: order, Items: items}, nil
}

// AddItems appends cart lines to an open order with the same stock semantics
// as submission, then recomputes the order total from item subtotals.
func (s *OrderService) AddItems(ctx context.Context, orderID uuid.UUID, reqItems []SubmitOrderItem) (*SubmitOrderResult, error) {
	if len(reqItems) == 0 {
		return nil, ErrEmptyCart
	}
	for i, item := range reqItems {
		if item.Quantity < 1 {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
		if _, err := uuid.Parse(item.MenuID); err != nil {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrInvalidMenuID)
		}
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status != enum.OrderStatusPending && order.Status != enum.OrderStatusProcessing {
		return nil, ErrOrderNotOpen
	}

	items := make([]database.OrderItem, 0, len(reqItems))
	for i, ri := range reqItems {
		menuID, _ := uuid.Parse(ri.MenuID)
		menu, err := store.GetMenuForOrder(ctx, menuID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get menu: %w", i, err)
		}
		if !menu.IsActive {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuUnavailable)
		}
		if _, err := store.ReserveStock(ctx, database.ReserveStockParams{
			MenuID:   menuID,
			Quantity: ri.Quantity,
		}); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrInsufficientStock)
			}
			return nil, fmt.Errorf("items[%d]: reserve stock: %w", i, err)
		}

		unitPrice := numericToDecimal(menu.Price)
		notes := pgtype.Text{}
		if ri.Notes != "" {
			notes = pgtype.Text{String: ri.Notes, Valid: true}
		}
		item, err := store.CreateOrderItem(ctx, database.CreateOrderItemParams{
			OrderID:   order.ID,
			MenuID:    menuID,
			Quantity:  ri.Quantity,
			UnitPrice: decimalToNumeric(unitPrice),
			Subtotal:  decimalToNumeric(unitPrice.Mul(decimal.NewFromInt32(ri.Quantity))),
			Notes:     notes,
		})
		if err != nil {
			return nil, fmt.Errorf("create order item: %w", err)
		}
		items = append(items, item)
	}

	// Total is always derived from item subtotals, never supplied by callers.
	sum, err := store.SumItemSubtotals(ctx, order.ID)
	if err != nil {
		return nil, fmt.Errorf("sum subtotals: %w", err)
	}
	order, err = store.UpdateOrderTotal(ctx, database.UpdateOrderTotalParams{
		ID:          order.ID,
		TotalAmount: sum,
	})
	if err != nil {
		return nil, fmt.Errorf("update total: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &SubmitOrderResult{Order: order, Items: items}, nil
}

// AdvanceItemResult carries the updated item and its (possibly advanced)
// owning order.
type AdvanceItemResult struct {
	Item  database.OrderItem
	Order database.Order
}

// AdvanceItem moves an item one step forward: pending→cooking or
// cooking→served. Any other target, including skips and reversals, is
// rejected. The first item to start cooking pulls the order into processing.
func (s *OrderService) AdvanceItem(ctx context.Context, itemID uuid.UUID, target string) (*AdvanceItemResult, error) {
	if target != enum.OrderItemStatusCooking && target != enum.OrderItemStatusServed {
		return nil, ErrInvalidTransition
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.GetOrderItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrItemNotFound
		}
		return nil, fmt.Errorf("get item: %w", err)
	}

	// Locking the order row serializes concurrent item advances, delivery,
	// cancellation and settlement on the same order.
	order, err := store.GetOrderForUpdate(ctx, item.OrderID)
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	if isTerminalOrderStatus(order.Status) || order.Status == enum.OrderStatusDelivered {
		return nil, ErrInvalidTransition
	}

	if itemNextStatus[item.Status] != target {
		return nil, ErrInvalidTransition
	}

	item, err = store.UpdateOrderItemStatus(ctx, database.UpdateOrderItemStatusParams{
		ID:         itemID,
		Status:     target,
		FromStatus: item.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInvalidTransition
		}
		return nil, fmt.Errorf("update item status: %w", err)
	}

	if target == enum.OrderItemStatusCooking && order.Status == enum.OrderStatusPending {
		order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
			ID:         order.ID,
			Status:     enum.OrderStatusProcessing,
			FromStatus: enum.OrderStatusPending,
		})
		if err != nil {
			return nil, fmt.Errorf("advance order to processing: %w", err)
		}
	}
	// All items served does NOT auto-deliver: delivery is an explicit
	// kitchen action via MarkDelivered.

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &AdvanceItemResult{Item: item, Order: order}, nil
}

// MarkDelivered transitions an order to delivered once every item is served.
func (s *OrderService) MarkDelivered(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if !canTransition(order.Status, enum.OrderStatusDelivered) {
		return database.Order{}, ErrInvalidTransition
	}

	notServed, err := store.CountItemsNotServed(ctx, orderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("count items: %w", err)
	}
	if notServed > 0 {
		return database.Order{}, ErrItemsNotReady
	}

	order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         orderID,
		Status:     enum.OrderStatusDelivered,
		FromStatus: order.Status,
	})
	if err != nil {
		return database.Order{}, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// Cancel aborts a pending or processing order. Stock is restored for every
// item not yet served; served items are treated as consumed. The table is
// released when no other active order references it.
func (s *OrderService) Cancel(ctx context.Context, orderID uuid.UUID) (database.Order, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return database.Order{}, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetOrderForUpdate(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrOrderNotFound
		}
		return database.Order{}, fmt.Errorf("get order: %w", err)
	}
	if !canTransition(order.Status, enum.OrderStatusCancelled) {
		return database.Order{}, ErrInvalidTransition
	}

	order, err = store.CancelOrder(ctx, orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, ErrInvalidTransition
		}
		return database.Order{}, fmt.Errorf("cancel order: %w", err)
	}

	items, err := store.ListOrderItemsByOrder(ctx, orderID)
	if err != nil {
		return database.Order{}, fmt.Errorf("list items: %w", err)
	}
	for _, item := range items {
		if item.Status == enum.OrderItemStatusServed {
			continue
		}
		if _, err := store.ReleaseStock(ctx, database.ReleaseStockParams{
			MenuID:   item.MenuID,
			Quantity: item.Quantity,
		}); err != nil && !errors.Is(err, pgx.ErrNoRows) {
			return database.Order{}, fmt.Errorf("release stock: %w", err)
		}
	}

	if order.TableID.Valid {
		if err := releaseTableIfIdle(ctx, store, order.TableID.Bytes); err != nil {
			return database.Order{}, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return database.Order{}, fmt.Errorf("commit tx: %w", err)
	}
	return order, nil
}

// releaseTableIfIdle frees a table unless another active order still
// references it. Shared with the payment finalizer.
func releaseTableIfIdle(ctx context.Context, store interface {
	CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	ReleaseTable(ctx context.Context, id uuid.UUID) (database.Table, error)
}, tableID uuid.UUID) error {
	active, err := store.CountActiveOrdersByTable(ctx, tableID)
	if err != nil {
		return fmt.Errorf("count active orders: %w", err)
	}
	if active > 0 {
		return nil
	}
	if _, err := store.ReleaseTable(ctx, tableID); err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return fmt.Errorf("release table: %w", err)
	}
	return nil
}

// --- Helpers ---

func numericToDecimal(n pgtype.Numeric) decimal.Decimal {
	if !n.Valid {
		return decimal.Zero
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return decimal.Zero
	}
	return d
}

func decimalToNumeric(d decimal.Decimal) pgtype.Numeric {
	var n pgtype.Numeric
	_ = n.Scan(d.StringFixed(2))
	return n
}
