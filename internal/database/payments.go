package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
)

const paymentColumns = `id, order_id, cashier_id, payment_method, amount_paid, change_amount, paid_at`

func scanPayment(row interface{ Scan(dest ...any) error }) (Payment, error) {
	var p Payment
	err := row.Scan(&p.ID, &p.OrderID, &p.CashierID, &p.PaymentMethod,
		&p.AmountPaid, &p.ChangeAmount, &p.PaidAt)
	return p, err
}

type CreatePaymentParams struct {
	OrderID       uuid.UUID
	CashierID     uuid.UUID
	PaymentMethod string
	AmountPaid    pgtype.Numeric
	ChangeAmount  pgtype.Numeric
}

// CreatePayment inserts the settlement record. The unique index on order_id
// makes a second settlement fail with pgconn code 23505.
func (q *Queries) CreatePayment(ctx context.Context, arg CreatePaymentParams) (Payment, error) {
	const sql = `
		INSERT INTO payments (order_id, cashier_id, payment_method, amount_paid, change_amount)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING ` + paymentColumns
	return scanPayment(q.db.QueryRow(ctx, sql, arg.OrderID, arg.CashierID,
		arg.PaymentMethod, arg.AmountPaid, arg.ChangeAmount))
}

func (q *Queries) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (Payment, error) {
	const sql = `SELECT ` + paymentColumns + ` FROM payments WHERE order_id = $1`
	return scanPayment(q.db.QueryRow(ctx, sql, orderID))
}

type ListPaymentsParams struct {
	CashierID     pgtype.UUID
	PaymentMethod pgtype.Text
	StartDate     pgtype.Timestamptz
	EndDate       pgtype.Timestamptz
	Limit         int32
	Offset        int32
}

func (q *Queries) ListPayments(ctx context.Context, arg ListPaymentsParams) ([]Payment, error) {
	const sql = `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE ($1::uuid IS NULL OR cashier_id = $1)
		  AND ($2::text IS NULL OR payment_method = $2)
		  AND ($3::timestamptz IS NULL OR paid_at >= $3)
		  AND ($4::timestamptz IS NULL OR paid_at < $4)
		ORDER BY paid_at DESC, id DESC
		LIMIT $5 OFFSET $6`
	rows, err := q.db.Query(ctx, sql, arg.CashierID, arg.PaymentMethod,
		arg.StartDate, arg.EndDate, arg.Limit, arg.Offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var payments []Payment
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

func (q *Queries) GetTodayRevenue(ctx context.Context) (pgtype.Numeric, error) {
	const sql = `
		SELECT COALESCE(SUM(amount_paid - change_amount), 0)
		FROM payments WHERE paid_at::date = CURRENT_DATE`
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sql).Scan(&n)
	return n, err
}

func (q *Queries) GetTodayChangeGiven(ctx context.Context) (pgtype.Numeric, error) {
	const sql = `
		SELECT COALESCE(SUM(change_amount), 0)
		FROM payments WHERE paid_at::date = CURRENT_DATE`
	var n pgtype.Numeric
	err := q.db.QueryRow(ctx, sql).Scan(&n)
	return n, err
}
