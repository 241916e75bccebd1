package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
	"github.com/AlpianPPLG/RestosSystem/internal/middleware"
	"github.com/AlpianPPLG/RestosSystem/internal/service"
	"github.com/AlpianPPLG/RestosSystem/internal/ws"
)

// PaymentServicer defines the service methods needed by payment handlers.
// Satisfied by *service.PaymentService.
type PaymentServicer interface {
	Settle(ctx context.Context, req service.SettleRequest) (*service.SettleResult, error)
}

// PaymentStore defines the database methods needed by payment read handlers.
// Satisfied by *database.Queries.
type PaymentStore interface {
	ListPayments(ctx context.Context, arg database.ListPaymentsParams) ([]database.Payment, error)
	ListOrdersAwaitingPayment(ctx context.Context) ([]database.Order, error)
}

// PaymentHandler handles settlement and payment history endpoints.
type PaymentHandler struct {
	svc   PaymentServicer
	store PaymentStore
	hub   *ws.Hub
}

// NewPaymentHandler creates a new PaymentHandler. The hub may be nil in tests.
func NewPaymentHandler(svc PaymentServicer, store PaymentStore, hub *ws.Hub) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Settle)
	r.Get("/", h.List)
	r.Get("/pending", h.ListPending)
}

// --- Request / Response types ---

type settleRequest struct {
	OrderID       string `json:"order_id"`
	PaymentMethod string `json:"payment_method"`
	AmountPaid    string `json:"amount_paid"`
}

type paymentResponse struct {
	ID            uuid.UUID `json:"id"`
	OrderID       uuid.UUID `json:"order_id"`
	CashierID     uuid.UUID `json:"cashier_id"`
	PaymentMethod string    `json:"payment_method"`
	AmountPaid    string    `json:"amount_paid"`
	ChangeAmount  string    `json:"change_amount"`
	PaidAt        time.Time `json:"paid_at"`
}

type settleResponse struct {
	Payment paymentResponse `json:"payment"`
	Order   orderResponse   `json:"order"`
}

type paymentListResponse struct {
	Payments []paymentResponse `json:"payments"`
	Limit    int               `json:"limit"`
	Offset   int               `json:"offset"`
}

// --- Handlers ---

// Settle handles POST /payments.
func (h *PaymentHandler) Settle(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	orderID, err := uuid.Parse(req.OrderID)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order_id"})
		return
	}

	amountPaid, err := decimal.NewFromString(req.AmountPaid)
	if err != nil || amountPaid.IsNegative() {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid amount_paid"})
		return
	}

	result, err := h.svc.Settle(r.Context(), service.SettleRequest{
		OrderID:    orderID,
		CashierID:  claims.UserID,
		Method:     req.PaymentMethod,
		AmountPaid: amountPaid,
	})
	if err != nil {
		writePaymentError(w, err)
		return
	}

	resp := settleResponse{
		Payment: toPaymentResponse(result.Payment),
		Order:   toOrderResponse(result.Order, nil),
	}
	broadcastEvent(h.hub, "order.paid", resp, enum.UserRoleWaiter, enum.UserRoleCashier, enum.UserRoleAdmin)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)

	params := database.ListPaymentsParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("cashier_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid cashier_id"})
			return
		}
		params.CashierID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("method"); s != "" {
		params.PaymentMethod = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid start_date format, use YYYY-MM-DD"})
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse("2006-01-02", s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid end_date format, use YYYY-MM-DD"})
			return
		}
		params.EndDate = pgtype.Timestamptz{Time: t, Valid: true}
	}

	payments, err := h.store.ListPayments(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list payments: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]paymentResponse, len(payments))
	for i, p := range payments {
		resp[i] = toPaymentResponse(p)
	}

	writeJSON(w, http.StatusOK, paymentListResponse{
		Payments: resp,
		Limit:    limit,
		Offset:   offset,
	})
}

// ListPending handles GET /payments/pending: delivered orders waiting to be
// settled, oldest first.
func (h *PaymentHandler) ListPending(w http.ResponseWriter, r *http.Request) {
	orders, err := h.store.ListOrdersAwaitingPayment(r.Context())
	if err != nil {
		log.Printf("ERROR: list orders awaiting payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}

	writeJSON(w, http.StatusOK, map[string][]orderResponse{"orders": resp})
}

// --- Helpers ---

func writePaymentError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidPaymentMethod),
		errors.Is(err, service.ErrInsufficientPayment):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotDelivered),
		errors.Is(err, service.ErrAlreadyPaid):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: settle payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toPaymentResponse(p database.Payment) paymentResponse {
	return paymentResponse{
		ID:            p.ID,
		OrderID:       p.OrderID,
		CashierID:     p.CashierID,
		PaymentMethod: p.PaymentMethod,
		AmountPaid:    numericToString(p.AmountPaid),
		ChangeAmount:  numericToString(p.ChangeAmount),
		PaidAt:        p.PaidAt,
	}
}
