package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const tableColumns = `id, table_number, capacity, status, created_at, updated_at`

func scanTable(row interface{ Scan(dest ...any) error }) (Table, error) {
	var t Table
	err := row.Scan(&t.ID, &t.TableNumber, &t.Capacity, &t.Status, &t.CreatedAt, &t.UpdatedAt)
	return t, err
}

type CreateTableParams struct {
	TableNumber string
	Capacity    int32
}

func (q *Queries) CreateTable(ctx context.Context, arg CreateTableParams) (Table, error) {
	const sql = `
		INSERT INTO tables (table_number, capacity, status)
		VALUES ($1, $2, 'available')
		RETURNING ` + tableColumns
	return scanTable(q.db.QueryRow(ctx, sql, arg.TableNumber, arg.Capacity))
}

func (q *Queries) GetTable(ctx context.Context, id uuid.UUID) (Table, error) {
	const sql = `SELECT ` + tableColumns + ` FROM tables WHERE id = $1`
	return scanTable(q.db.QueryRow(ctx, sql, id))
}

func (q *Queries) ListTables(ctx context.Context, status pgtype.Text) ([]Table, error) {
	const sql = `
		SELECT ` + tableColumns + ` FROM tables
		WHERE ($1::text IS NULL OR status = $1)
		ORDER BY table_number`
	rows, err := q.db.Query(ctx, sql, status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var tables []Table
	for rows.Next() {
		t, err := scanTable(rows)
		if err != nil {
			return nil, err
		}
		tables = append(tables, t)
	}
	return tables, rows.Err()
}

type UpdateTableParams struct {
	ID          uuid.UUID
	TableNumber string
	Capacity    int32
}

func (q *Queries) UpdateTable(ctx context.Context, arg UpdateTableParams) (Table, error) {
	const sql = `
		UPDATE tables SET table_number = $2, capacity = $3, updated_at = now()
		WHERE id = $1
		RETURNING ` + tableColumns
	return scanTable(q.db.QueryRow(ctx, sql, arg.ID, arg.TableNumber, arg.Capacity))
}

// OccupyTable marks a table occupied. Unconditional on status: a table may
// carry several active orders, and occupied follows from any of them
// existing. pgx.ErrNoRows means the table does not exist.
func (q *Queries) OccupyTable(ctx context.Context, id uuid.UUID) (Table, error) {
	const sql = `
		UPDATE tables SET status = 'occupied', updated_at = now()
		WHERE id = $1
		RETURNING ` + tableColumns
	return scanTable(q.db.QueryRow(ctx, sql, id))
}

// ReleaseTable frees an occupied table. Callers must first verify no other
// active order references it.
func (q *Queries) ReleaseTable(ctx context.Context, id uuid.UUID) (Table, error) {
	const sql = `
		UPDATE tables SET status = 'available', updated_at = now()
		WHERE id = $1 AND status = 'occupied'
		RETURNING ` + tableColumns
	return scanTable(q.db.QueryRow(ctx, sql, id))
}

// ReserveTable is the only direct status edit allowed outside the order
// lifecycle: a pre-arrival booking on an available table.
func (q *Queries) ReserveTable(ctx context.Context, id uuid.UUID) (Table, error) {
	const sql = `
		UPDATE tables SET status = 'reserved', updated_at = now()
		WHERE id = $1 AND status = 'available'
		RETURNING ` + tableColumns
	return scanTable(q.db.QueryRow(ctx, sql, id))
}

func (q *Queries) UnreserveTable(ctx context.Context, id uuid.UUID) (Table, error) {
	const sql = `
		UPDATE tables SET status = 'available', updated_at = now()
		WHERE id = $1 AND status = 'reserved'
		RETURNING ` + tableColumns
	return scanTable(q.db.QueryRow(ctx, sql, id))
}

func (q *Queries) CountTablesByStatus(ctx context.Context, status string) (int64, error) {
	const sql = `SELECT COUNT(*) FROM tables WHERE status = $1`
	var n int64
	err := q.db.QueryRow(ctx, sql, status).Scan(&n)
	return n, err
}
