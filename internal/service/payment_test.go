package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
)

// mockPaymentStore implements PaymentStore with configurable behavior.
type mockPaymentStore struct {
	getOrderForUpdateFn  func(ctx context.Context, id uuid.UUID) (database.Order, error)
	getPaymentByOrderFn  func(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
	createPaymentFn      func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error)
	updateOrderStatusFn  func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error)
	countActiveByTableFn func(ctx context.Context, tableID uuid.UUID) (int64, error)
	releaseTableFn       func(ctx context.Context, id uuid.UUID) (database.Table, error)
}

func (m *mockPaymentStore) GetOrderForUpdate(ctx context.Context, id uuid.UUID) (database.Order, error) {
	return m.getOrderForUpdateFn(ctx, id)
}
func (m *mockPaymentStore) GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error) {
	return m.getPaymentByOrderFn(ctx, orderID)
}
func (m *mockPaymentStore) CreatePayment(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
	return m.createPaymentFn(ctx, arg)
}
func (m *mockPaymentStore) UpdateOrderStatus(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
	return m.updateOrderStatusFn(ctx, arg)
}
func (m *mockPaymentStore) CountActiveOrdersByTable(ctx context.Context, tableID uuid.UUID) (int64, error) {
	return m.countActiveByTableFn(ctx, tableID)
}
func (m *mockPaymentStore) ReleaseTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	return m.releaseTableFn(ctx, id)
}

func newPaymentTestService(store *mockPaymentStore) (*PaymentService, *mockTx) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	newStore := func(db database.DBTX) PaymentStore { return store }
	return NewPaymentService(pool, newStore), tx
}

// defaultPaymentStore returns a store holding one delivered, unpaid dine-in
// order worth 50000.00 at the given table.
func defaultPaymentStore(orderID uuid.UUID, tableID pgtype.UUID) *mockPaymentStore {
	return &mockPaymentStore{
		getOrderForUpdateFn: func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			if id == orderID {
				return database.Order{
					ID:          orderID,
					TableID:     tableID,
					Status:      enum.OrderStatusDelivered,
					OrderType:   enum.OrderTypeDineIn,
					TotalAmount: makeNumeric("50000.00"),
				}, nil
			}
			return database.Order{}, pgx.ErrNoRows
		},
		getPaymentByOrderFn: func(ctx context.Context, oid uuid.UUID) (database.Payment, error) {
			return database.Payment{}, pgx.ErrNoRows
		},
		createPaymentFn: func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
			return database.Payment{
				ID:            uuid.New(),
				OrderID:       arg.OrderID,
				CashierID:     arg.CashierID,
				PaymentMethod: arg.PaymentMethod,
				AmountPaid:    arg.AmountPaid,
				ChangeAmount:  arg.ChangeAmount,
			}, nil
		},
		updateOrderStatusFn: func(ctx context.Context, arg database.UpdateOrderStatusParams) (database.Order, error) {
			return database.Order{ID: arg.ID, TableID: tableID, Status: arg.Status, TotalAmount: makeNumeric("50000.00")}, nil
		},
		countActiveByTableFn: func(ctx context.Context, tid uuid.UUID) (int64, error) {
			return 0, nil
		},
		releaseTableFn: func(ctx context.Context, id uuid.UUID) (database.Table, error) {
			return database.Table{ID: id, Status: enum.TableStatusAvailable}, nil
		},
	}
}

func settleReq(orderID uuid.UUID, method, amount string) SettleRequest {
	paid, _ := decimal.NewFromString(amount)
	return SettleRequest{
		OrderID:    orderID,
		CashierID:  uuid.New(),
		Method:     method,
		AmountPaid: paid,
	}
}

// =====================
// Settle
// =====================

func TestSettle_CashWithChange(t *testing.T) {
	orderID := uuid.New()
	tableID := uuid.New()
	store := defaultPaymentStore(orderID, pgtype.UUID{Bytes: tableID, Valid: true})

	var created database.CreatePaymentParams
	base := store.createPaymentFn
	store.createPaymentFn = func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
		created = arg
		return base(ctx, arg)
	}
	var releasedTable uuid.UUID
	store.releaseTableFn = func(ctx context.Context, id uuid.UUID) (database.Table, error) {
		releasedTable = id
		return database.Table{ID: id, Status: enum.TableStatusAvailable}, nil
	}
	svc, tx := newPaymentTestService(store)

	result, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodCash, "60000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !tx.committed {
		t.Fatal("transaction should commit")
	}
	if !numericEquals(created.AmountPaid, "60000") {
		t.Fatalf("amount paid = %s, want 60000", numericToDecimal(created.AmountPaid))
	}
	if !numericEquals(created.ChangeAmount, "10000") {
		t.Fatalf("change = %s, want 10000", numericToDecimal(created.ChangeAmount))
	}
	if result.Order.Status != enum.OrderStatusCompleted {
		t.Fatalf("order status = %s, want completed", result.Order.Status)
	}
	if releasedTable != tableID {
		t.Fatalf("released table = %s, want %s", releasedTable, tableID)
	}
}

func TestSettle_ExactAmount(t *testing.T) {
	orderID := uuid.New()
	store := defaultPaymentStore(orderID, pgtype.UUID{})
	svc, _ := newPaymentTestService(store)

	result, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodQRIS, "50000"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !numericEquals(result.Payment.ChangeAmount, "0") {
		t.Fatalf("change = %s, want 0", numericToDecimal(result.Payment.ChangeAmount))
	}
}

func TestSettle_InvalidMethod(t *testing.T) {
	orderID := uuid.New()
	svc, _ := newPaymentTestService(defaultPaymentStore(orderID, pgtype.UUID{}))

	_, err := svc.Settle(context.Background(), settleReq(orderID, "credit", "50000"))
	if !errors.Is(err, ErrInvalidPaymentMethod) {
		t.Fatalf("expected ErrInvalidPaymentMethod, got: %v", err)
	}
}

func TestSettle_OrderNotFound(t *testing.T) {
	svc, _ := newPaymentTestService(defaultPaymentStore(uuid.New(), pgtype.UUID{}))

	_, err := svc.Settle(context.Background(), settleReq(uuid.New(), enum.PaymentMethodCash, "50000"))
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestSettle_NotDelivered(t *testing.T) {
	for _, status := range []string{
		enum.OrderStatusPending,
		enum.OrderStatusProcessing,
		enum.OrderStatusCancelled,
	} {
		orderID := uuid.New()
		store := defaultPaymentStore(orderID, pgtype.UUID{})
		store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
			return database.Order{ID: orderID, Status: status, TotalAmount: makeNumeric("50000.00")}, nil
		}
		svc, _ := newPaymentTestService(store)

		_, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodCash, "50000"))
		if !errors.Is(err, ErrOrderNotDelivered) {
			t.Fatalf("status %s: expected ErrOrderNotDelivered, got: %v", status, err)
		}
	}
}

func TestSettle_CompletedOrder(t *testing.T) {
	orderID := uuid.New()
	store := defaultPaymentStore(orderID, pgtype.UUID{})
	store.getOrderForUpdateFn = func(ctx context.Context, id uuid.UUID) (database.Order, error) {
		return database.Order{ID: orderID, Status: enum.OrderStatusCompleted, TotalAmount: makeNumeric("50000.00")}, nil
	}
	svc, _ := newPaymentTestService(store)

	_, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodCash, "50000"))
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got: %v", err)
	}
}

func TestSettle_ExistingPayment(t *testing.T) {
	orderID := uuid.New()
	store := defaultPaymentStore(orderID, pgtype.UUID{})
	store.getPaymentByOrderFn = func(ctx context.Context, oid uuid.UUID) (database.Payment, error) {
		return database.Payment{ID: uuid.New(), OrderID: oid}, nil
	}
	svc, _ := newPaymentTestService(store)

	_, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodDebit, "50000"))
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got: %v", err)
	}
}

func TestSettle_UniqueViolationMapsToAlreadyPaid(t *testing.T) {
	orderID := uuid.New()
	store := defaultPaymentStore(orderID, pgtype.UUID{})
	store.createPaymentFn = func(ctx context.Context, arg database.CreatePaymentParams) (database.Payment, error) {
		return database.Payment{}, &pgconn.PgError{Code: "23505", ConstraintName: "idx_payments_order_id"}
	}
	svc, tx := newPaymentTestService(store)

	_, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodCash, "50000"))
	if !errors.Is(err, ErrAlreadyPaid) {
		t.Fatalf("expected ErrAlreadyPaid, got: %v", err)
	}
	if tx.committed {
		t.Fatal("transaction must not commit on a duplicate payment")
	}
}

func TestSettle_InsufficientAmount(t *testing.T) {
	orderID := uuid.New()
	svc, _ := newPaymentTestService(defaultPaymentStore(orderID, pgtype.UUID{}))

	_, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodCash, "49999.99"))
	if !errors.Is(err, ErrInsufficientPayment) {
		t.Fatalf("expected ErrInsufficientPayment, got: %v", err)
	}
}

func TestSettle_TableKeptWithOtherActiveOrder(t *testing.T) {
	orderID := uuid.New()
	tableID := uuid.New()
	store := defaultPaymentStore(orderID, pgtype.UUID{Bytes: tableID, Valid: true})
	store.countActiveByTableFn = func(ctx context.Context, tid uuid.UUID) (int64, error) {
		return 1, nil
	}
	store.releaseTableFn = func(ctx context.Context, id uuid.UUID) (database.Table, error) {
		panic("table must stay occupied while another order is active")
	}
	svc, _ := newPaymentTestService(store)

	if _, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodCash, "50000")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSettle_TakeAwaySkipsTable(t *testing.T) {
	orderID := uuid.New()
	store := defaultPaymentStore(orderID, pgtype.UUID{})
	store.countActiveByTableFn = func(ctx context.Context, tid uuid.UUID) (int64, error) {
		panic("no table bookkeeping for take-away orders")
	}
	svc, _ := newPaymentTestService(store)

	if _, err := svc.Settle(context.Background(), settleReq(orderID, enum.PaymentMethodQRIS, "55000")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
