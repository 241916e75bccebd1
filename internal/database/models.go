package database

import (
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

// Table is a physical seating unit. Status is one of the enum.TableStatus*
// values; only the order lifecycle moves it to or from "occupied".
type Table struct {
	ID          uuid.UUID
	TableNumber string
	Capacity    int32
	Status      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Order is a single dine-in or take-away transaction. TableID is null for
// take-away orders. TotalAmount is derived from item subtotals and never set
// directly by callers.
type Order struct {
	ID           uuid.UUID
	TableID      pgtype.UUID
	UserID       uuid.UUID
	CustomerName pgtype.Text
	OrderType    string
	Status       string
	TotalAmount  pgtype.Numeric
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// OrderItem is one menu line within an order. UnitPrice is a snapshot of the
// menu price at order time.
type OrderItem struct {
	ID        uuid.UUID
	OrderID   uuid.UUID
	MenuID    uuid.UUID
	Quantity  int32
	UnitPrice pgtype.Numeric
	Subtotal  pgtype.Numeric
	Notes     pgtype.Text
	Status    string
	CreatedAt time.Time
}

// Inventory is the per-menu daily stock counter. The schema enforces
// 0 <= remaining_stock <= daily_stock.
type Inventory struct {
	ID             uuid.UUID
	MenuID         uuid.UUID
	DailyStock     int32
	RemainingStock int32
	UpdatedAt      time.Time
}

// InventoryRow joins an inventory counter with its menu name for list views.
type InventoryRow struct {
	ID             uuid.UUID
	MenuID         uuid.UUID
	MenuName       string
	DailyStock     int32
	RemainingStock int32
	UpdatedAt      time.Time
}

// Payment is an immutable settlement record for exactly one order. The
// schema has a unique index on order_id; there is no update or delete query.
type Payment struct {
	ID            uuid.UUID
	OrderID       uuid.UUID
	CashierID     uuid.UUID
	PaymentMethod string
	AmountPaid    pgtype.Numeric
	ChangeAmount  pgtype.Numeric
	PaidAt        time.Time
}

type Menu struct {
	ID        uuid.UUID
	Name      string
	Category  pgtype.Text
	Price     pgtype.Numeric
	IsActive  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

type User struct {
	ID           uuid.UUID
	Name         string
	Username     string
	PasswordHash string
	Role         string
	IsActive     bool
	CreatedAt    time.Time
}
