package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
)

// Errors returned by the payment service.
var (
	ErrOrderNotDelivered    = errors.New("order is not delivered")
	ErrAlreadyPaid          = errors.New("order already has a payment")
	ErrInsufficientPayment  = errors.New("amount paid is less than order total")
	ErrInvalidPaymentMethod = errors.New("invalid payment_method")
)

// PaymentStore defines the DB methods settlement needs.
// Satisfied by *database.Queries (pool- or tx-backed).
type PaymentStore interface {
	GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error)
	ReleaseTable(ctx context.Context, id uuid.UUID) (database.Table, error)
}

// NewPaymentStore creates a PaymentStore from a DBTX (pool or tx).
type NewPaymentStore func(db database.DBTX) PaymentStore

// PaymentService settles delivered orders into immutable payment records.
type PaymentService struct {
	pool     TxBeginner
	newStore NewPaymentStore
}

func NewPaymentService(pool TxBeginner, newStore NewPaymentStore) *PaymentService {
	return &PaymentService{pool: pool, newStore: newStore}
}

// SettleRequest is the validated input for settling an order.
type SettleRequest struct {
	OrderID    uuid.UUID
	CashierID  uuid.UUID
	Method     string
	AmountPaid decimal.Decimal
}

// SettleResult is the created payment with the completed order.
type SettleResult struct {
	Payment database.Payment
	Order   database.Order
}

// Settle validates and finalizes one order in a single transaction: the
// order must be delivered and unpaid, the tendered amount must cover the
// total. On success the payment record is written, the order completes, and
// a dine-in table is released unless another active order holds it.
func (s *PaymentService) Settle(ctx context.Context, req SettleRequest) (*SettleResult, error) {
	switch req.Method {
	case enum.PaymentMethodCash, enum.PaymentMethodDebit, enum.PaymentMethodQRIS:
	default:
		return nil, ErrInvalidPaymentMethod
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	// Row lock serializes two cashiers settling the same order.
	order, err := store.GetOrderForUpdate(ctx, req.OrderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("get order: %w", err)
	}
	if order.Status == enum.OrderStatusCompleted {
		return nil, ErrAlreadyPaid
	}
	if order.Status != enum.OrderStatusDelivered {
		return nil, ErrOrderNotDelivered
	}

	if _, err := store.GetPaymentByOrder(ctx, req.OrderID); err == nil {
		return nil, ErrAlreadyPaid
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("get payment: %w", err)
	}

	total := numericToDecimal(order.TotalAmount)
	if req.AmountPaid.LessThan(total) {
		return nil, ErrInsufficientPayment
	}
	change := req.AmountPaid.Sub(total)

	payment, err := store.CreatePayment(ctx, database.CreatePaymentParams{
		OrderID:       req.OrderID,
		CashierID:     req.CashierID,
		PaymentMethod: req.Method,
		AmountPaid:    decimalToNumeric(req.AmountPaid),
		ChangeAmount:  decimalToNumeric(change),
	})
	if err != nil {
		// Unique index on order_id backs the at-most-one-payment invariant
		// even if the row lock is ever bypassed.
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, ErrAlreadyPaid
		}
		return nil, fmt.Errorf("create payment: %w", err)
	}

	order, err = store.UpdateOrderStatus(ctx, database.UpdateOrderStatusParams{
		ID:         req.OrderID,
		Status:     enum.OrderStatusCompleted,
		FromStatus: enum.OrderStatusDelivered,
	})
	if err != nil {
		return nil, fmt.Errorf("complete order: %w", err)
	}

	if order.TableID.Valid {
		if err := releaseTableIfIdle(ctx, store, order.TableID.Bytes); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &SettleResult{Payment: payment, Order: order}, nil
}
