package database

import (
	"context"

	"github.com/google/uuid"
)

const inventoryColumns = `id, menu_id, daily_stock, remaining_stock, updated_at`

func scanInventory(row interface{ Scan(dest ...any) error }) (Inventory, error) {
	var i Inventory
	err := row.Scan(&i.ID, &i.MenuID, &i.DailyStock, &i.RemainingStock, &i.UpdatedAt)
	return i, err
}

type SetDailyStockParams struct {
	MenuID     uuid.UUID
	DailyStock int32
}

// SetDailyStock creates or replaces the daily allotment for a menu item.
// Remaining stock is reset to the new allotment.
func (q *Queries) SetDailyStock(ctx context.Context, arg SetDailyStockParams) (Inventory, error) {
	const sql = `
		INSERT INTO inventories (menu_id, daily_stock, remaining_stock)
		VALUES ($1, $2, $2)
		ON CONFLICT (menu_id) DO UPDATE
		SET daily_stock = EXCLUDED.daily_stock,
		    remaining_stock = EXCLUDED.remaining_stock,
		    updated_at = now()
		RETURNING ` + inventoryColumns
	return scanInventory(q.db.QueryRow(ctx, sql, arg.MenuID, arg.DailyStock))
}

func (q *Queries) GetInventoryByMenu(ctx context.Context, menuID uuid.UUID) (Inventory, error) {
	const sql = `SELECT ` + inventoryColumns + ` FROM inventories WHERE menu_id = $1`
	return scanInventory(q.db.QueryRow(ctx, sql, menuID))
}

func (q *Queries) ListInventories(ctx context.Context) ([]InventoryRow, error) {
	const sql = `
		SELECT i.id, i.menu_id, m.name, i.daily_stock, i.remaining_stock, i.updated_at
		FROM inventories i JOIN menus m ON m.id = i.menu_id
		ORDER BY m.name`
	return q.queryInventoryRows(ctx, sql)
}

// ListLowStockAbsolute returns items with 0 < remaining <= threshold units.
func (q *Queries) ListLowStockAbsolute(ctx context.Context, threshold int32) ([]InventoryRow, error) {
	const sql = `
		SELECT i.id, i.menu_id, m.name, i.daily_stock, i.remaining_stock, i.updated_at
		FROM inventories i JOIN menus m ON m.id = i.menu_id
		WHERE i.remaining_stock > 0 AND i.remaining_stock <= $1
		ORDER BY i.remaining_stock`
	return q.queryInventoryRows(ctx, sql, threshold)
}

// ListLowStockPercent returns items with 0 < remaining <= threshold percent
// of the daily allotment.
func (q *Queries) ListLowStockPercent(ctx context.Context, threshold int32) ([]InventoryRow, error) {
	const sql = `
		SELECT i.id, i.menu_id, m.name, i.daily_stock, i.remaining_stock, i.updated_at
		FROM inventories i JOIN menus m ON m.id = i.menu_id
		WHERE i.daily_stock > 0
		  AND i.remaining_stock > 0
		  AND (i.remaining_stock * 100 / i.daily_stock) <= $1
		ORDER BY i.remaining_stock`
	return q.queryInventoryRows(ctx, sql, threshold)
}

func (q *Queries) ListOutOfStock(ctx context.Context) ([]InventoryRow, error) {
	const sql = `
		SELECT i.id, i.menu_id, m.name, i.daily_stock, i.remaining_stock, i.updated_at
		FROM inventories i JOIN menus m ON m.id = i.menu_id
		WHERE i.remaining_stock <= 0
		ORDER BY m.name`
	return q.queryInventoryRows(ctx, sql)
}

func (q *Queries) queryInventoryRows(ctx context.Context, sql string, args ...any) ([]InventoryRow, error) {
	rows, err := q.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var result []InventoryRow
	for rows.Next() {
		var r InventoryRow
		if err := rows.Scan(&r.ID, &r.MenuID, &r.MenuName, &r.DailyStock, &r.RemainingStock, &r.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

type ReserveStockParams struct {
	MenuID   uuid.UUID
	Quantity int32
}

// ReserveStock is the check-and-decrement in a single statement: the WHERE
// clause re-validates remaining stock at commit, so two concurrent
// reservations can never jointly overdraw. Returns pgx.ErrNoRows when stock
// is insufficient (or the menu has no inventory row).
func (q *Queries) ReserveStock(ctx context.Context, arg ReserveStockParams) (Inventory, error) {
	const sql = `
		UPDATE inventories
		SET remaining_stock = remaining_stock - $2, updated_at = now()
		WHERE menu_id = $1 AND remaining_stock >= $2
		RETURNING ` + inventoryColumns
	return scanInventory(q.db.QueryRow(ctx, sql, arg.MenuID, arg.Quantity))
}

type ReleaseStockParams struct {
	MenuID   uuid.UUID
	Quantity int32
}

// ReleaseStock returns reserved units, clamped at the daily allotment so a
// double release can never inflate stock past the configured ceiling.
func (q *Queries) ReleaseStock(ctx context.Context, arg ReleaseStockParams) (Inventory, error) {
	const sql = `
		UPDATE inventories
		SET remaining_stock = LEAST(remaining_stock + $2, daily_stock), updated_at = now()
		WHERE menu_id = $1
		RETURNING ` + inventoryColumns
	return scanInventory(q.db.QueryRow(ctx, sql, arg.MenuID, arg.Quantity))
}

// ResetDailyStock restores every counter to its daily allotment. Intended to
// run once per business day while no orders are being submitted.
func (q *Queries) ResetDailyStock(ctx context.Context) (int64, error) {
	const sql = `UPDATE inventories SET remaining_stock = daily_stock, updated_at = now()`
	tag, err := q.db.Exec(ctx, sql)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (q *Queries) CountOutOfStock(ctx context.Context) (int64, error) {
	const sql = `SELECT COUNT(*) FROM inventories WHERE remaining_stock <= 0`
	var n int64
	err := q.db.QueryRow(ctx, sql).Scan(&n)
	return n, err
}
