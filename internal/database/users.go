package database

import (
	"context"

	"github.com/google/uuid"
)

const userColumns = `id, name, username, password_hash, role, is_active, created_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Name, &u.Username, &u.PasswordHash, &u.Role, &u.IsActive, &u.CreatedAt)
	return u, err
}

type CreateUserParams struct {
	Name         string
	Username     string
	PasswordHash string
	Role         string
}

func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	const sql = `
		INSERT INTO users (name, username, password_hash, role, is_active)
		VALUES ($1, $2, $3, $4, true)
		RETURNING ` + userColumns
	return scanUser(q.db.QueryRow(ctx, sql, arg.Name, arg.Username, arg.PasswordHash, arg.Role))
}

func (q *Queries) GetUserByID(ctx context.Context, id uuid.UUID) (User, error) {
	const sql = `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(q.db.QueryRow(ctx, sql, id))
}

func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	const sql = `SELECT ` + userColumns + ` FROM users WHERE username = $1`
	return scanUser(q.db.QueryRow(ctx, sql, username))
}

func (q *Queries) ListUsers(ctx context.Context) ([]User, error) {
	const sql = `SELECT ` + userColumns + ` FROM users ORDER BY name`
	rows, err := q.db.Query(ctx, sql)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

type UpdateUserParams struct {
	ID   uuid.UUID
	Name string
	Role string
}

func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	const sql = `
		UPDATE users SET name = $2, role = $3
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(q.db.QueryRow(ctx, sql, arg.ID, arg.Name, arg.Role))
}

type SetUserActiveParams struct {
	ID       uuid.UUID
	IsActive bool
}

func (q *Queries) SetUserActive(ctx context.Context, arg SetUserActiveParams) (User, error) {
	const sql = `
		UPDATE users SET is_active = $2
		WHERE id = $1
		RETURNING ` + userColumns
	return scanUser(q.db.QueryRow(ctx, sql, arg.ID, arg.IsActive))
}
