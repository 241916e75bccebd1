package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const menuColumns = `id, name, category, price, is_active, created_at, updated_at`

func scanMenu(row interface{ Scan(dest ...any) error }) (Menu, error) {
	var m Menu
	err := row.Scan(&m.ID, &m.Name, &m.Category, &m.Price, &m.IsActive, &m.CreatedAt, &m.UpdatedAt)
	return m, err
}

type CreateMenuParams struct {
	Name     string
	Category pgtype.Text
	Price    pgtype.Numeric
}

func (q *Queries) CreateMenu(ctx context.Context, arg CreateMenuParams) (Menu, error) {
	const sql = `
		INSERT INTO menus (name, category, price, is_active)
		VALUES ($1, $2, $3, true)
		RETURNING ` + menuColumns
	return scanMenu(q.db.QueryRow(ctx, sql, arg.Name, arg.Category, arg.Price))
}

func (q *Queries) GetMenu(ctx context.Context, id uuid.UUID) (Menu, error) {
	const sql = `SELECT ` + menuColumns + ` FROM menus WHERE id = $1`
	return scanMenu(q.db.QueryRow(ctx, sql, id))
}

// GetMenuForOrder is the price-snapshot lookup used at submission time.
func (q *Queries) GetMenuForOrder(ctx context.Context, id uuid.UUID) (Menu, error) {
	const sql = `SELECT ` + menuColumns + ` FROM menus WHERE id = $1`
	return scanMenu(q.db.QueryRow(ctx, sql, id))
}

func (q *Queries) ListMenus(ctx context.Context, activeOnly bool) ([]Menu, error) {
	const sql = `
		SELECT ` + menuColumns + ` FROM menus
		WHERE (NOT $1::bool OR is_active)
		ORDER BY name`
	rows, err := q.db.Query(ctx, sql, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var menus []Menu
	for rows.Next() {
		m, err := scanMenu(rows)
		if err != nil {
			return nil, err
		}
		menus = append(menus, m)
	}
	return menus, rows.Err()
}

type UpdateMenuParams struct {
	ID       uuid.UUID
	Name     string
	Category pgtype.Text
	Price    pgtype.Numeric
}

func (q *Queries) UpdateMenu(ctx context.Context, arg UpdateMenuParams) (Menu, error) {
	const sql = `
		UPDATE menus SET name = $2, category = $3, price = $4, updated_at = now()
		WHERE id = $1
		RETURNING ` + menuColumns
	return scanMenu(q.db.QueryRow(ctx, sql, arg.ID, arg.Name, arg.Category, arg.Price))
}

type SetMenuActiveParams struct {
	ID       uuid.UUID
	IsActive bool
}

func (q *Queries) SetMenuActive(ctx context.Context, arg SetMenuActiveParams) (Menu, error) {
	const sql = `
		UPDATE menus SET is_active = $2, updated_at = now()
		WHERE id = $1
		RETURNING ` + menuColumns
	return scanMenu(q.db.QueryRow(ctx, sql, arg.ID, arg.IsActive))
}
