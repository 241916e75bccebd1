package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
	"github.com/AlpianPPLG/RestosSystem/internal/middleware"
	"github.com/AlpianPPLG/RestosSystem/internal/service"
	"github.com/AlpianPPLG/RestosSystem/internal/ws"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	Submit(ctx context.Context, req service.SubmitOrderRequest) (*service.SubmitOrderResult, error)
	AddItems(ctx context.Context, orderID uuid.UUID, items []service.SubmitOrderItem) (*service.SubmitOrderResult, error)
	Cancel(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetOrder(ctx context.Context, id uuid.UUID) (database.Order, error)
	ListOrders(ctx context.Context, arg database.ListOrdersParams) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
	GetPaymentByOrder(ctx context.Context, orderID uuid.UUID) (database.Payment, error)
}

// OrderHandler handles order endpoints.
type OrderHandler struct {
	svc   OrderServicer
	store OrderStore
	hub   *ws.Hub
}

// NewOrderHandler creates a new OrderHandler. The hub may be nil in tests.
func NewOrderHandler(svc OrderServicer, store OrderStore, hub *ws.Hub) *OrderHandler {
	return &OrderHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers order endpoints on the given Chi router.
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Post("/{id}/items", h.AddItems)
	r.Delete("/{id}", h.Cancel)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType    string                   `json:"order_type"`
	TableID      string                   `json:"table_id"`
	CustomerName string                   `json:"customer_name"`
	Items        []createOrderItemRequest `json:"items"`
}

type createOrderItemRequest struct {
	MenuID   string `json:"menu_id"`
	Quantity int32  `json:"quantity"`
	Notes    string `json:"notes"`
}

type addItemsRequest struct {
	Items []createOrderItemRequest `json:"items"`
}

type orderResponse struct {
	ID           uuid.UUID           `json:"id"`
	TableID      *string             `json:"table_id"`
	UserID       uuid.UUID           `json:"user_id"`
	CustomerName *string             `json:"customer_name"`
	OrderType    string              `json:"order_type"`
	Status       string              `json:"status"`
	TotalAmount  string              `json:"total_amount"`
	CreatedAt    time.Time           `json:"created_at"`
	UpdatedAt    time.Time           `json:"updated_at"`
	Items        []orderItemResponse `json:"items,omitempty"`
}

type orderItemResponse struct {
	ID        uuid.UUID `json:"id"`
	MenuID    uuid.UUID `json:"menu_id"`
	Quantity  int32     `json:"quantity"`
	UnitPrice string    `json:"unit_price"`
	Subtotal  string    `json:"subtotal"`
	Notes     *string   `json:"notes"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"created_at"`
}

// orderDetailResponse extends orderResponse with the payment, if settled.
type orderDetailResponse struct {
	orderResponse
	Payment *paymentResponse `json:"payment"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
	Limit  int             `json:"limit"`
	Offset int             `json:"offset"`
}

// --- Handlers ---

// Create handles POST /orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.ClaimsFromContext(r.Context())
	if !ok {
		writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
		return
	}

	var req createOrderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.SubmitOrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.SubmitOrderItem{
			MenuID:   it.MenuID,
			Quantity: it.Quantity,
			Notes:    it.Notes,
		}
	}

	result, err := h.svc.Submit(r.Context(), service.SubmitOrderRequest{
		TableID:      req.TableID,
		UserID:       claims.UserID,
		CustomerName: req.CustomerName,
		OrderType:    req.OrderType,
		Items:        items,
	})
	if err != nil {
		writeOrderError(w, "create order", err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	broadcastEvent(h.hub, "order.created", resp, enum.UserRoleKitchen, enum.UserRoleWaiter)
	writeJSON(w, http.StatusCreated, resp)
}

// List handles GET /orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	limit, offset := parseLimitOffset(r)

	params := database.ListOrdersParams{
		Limit:  int32(limit),
		Offset: int32(offset),
	}

	if s := r.URL.Query().Get("status"); s != "" {
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("type"); s != "" {
		params.OrderType = pgtype.Text{String: s, Valid: true}
	}
	if s := r.URL.Query().Get("table_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid table_id"})
			return
		}
		params.TableID = pgtype.UUID{Bytes: id, Valid: true}
	}
	if s := r.URL.Query().Get("user_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid user_id"})
			return
		}
		params.UserID = pgtype.UUID{Bytes: id, Valid: true}
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

	orders, err := h.store.ListOrders(r.Context(), params)
	if err != nil {
		log.Printf("ERROR: list orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := make([]orderResponse, len(orders))
	for i, o := range orders {
		resp[i] = toOrderResponse(o, nil)
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: resp,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.store.GetOrder(r.Context(), orderID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
			return
		}
		log.Printf("ERROR: get order: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	items, err := h.store.ListOrderItemsByOrder(r.Context(), orderID)
	if err != nil {
		log.Printf("ERROR: list order items: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	detail := orderDetailResponse{orderResponse: toOrderResponse(order, items)}

	payment, err := h.store.GetPaymentByOrder(r.Context(), orderID)
	switch {
	case err == nil:
		p := toPaymentResponse(payment)
		detail.Payment = &p
	case errors.Is(err, pgx.ErrNoRows):
		// Unsettled order, no payment yet.
	default:
		log.Printf("ERROR: get payment: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

// AddItems handles POST /orders/{id}/items.
func (h *OrderHandler) AddItems(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	var req addItemsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}

	items := make([]service.SubmitOrderItem, len(req.Items))
	for i, it := range req.Items {
		items[i] = service.SubmitOrderItem{
			MenuID:   it.MenuID,
			Quantity: it.Quantity,
			Notes:    it.Notes,
		}
	}

	result, err := h.svc.AddItems(r.Context(), orderID, items)
	if err != nil {
		writeOrderError(w, "add items", err)
		return
	}

	resp := toOrderResponse(result.Order, result.Items)
	broadcastEvent(h.hub, "order.updated", resp, enum.UserRoleKitchen, enum.UserRoleWaiter)
	writeJSON(w, http.StatusOK, resp)
}

// Cancel handles DELETE /orders/{id}.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.Cancel(r.Context(), orderID)
	if err != nil {
		writeOrderError(w, "cancel order", err)
		return
	}

	resp := toOrderResponse(order, nil)
	broadcastEvent(h.hub, "order.cancelled", resp, enum.UserRoleKitchen, enum.UserRoleWaiter, enum.UserRoleCashier)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

// broadcastEvent pushes a JSON event to the given role rooms. A nil hub is
// allowed so handlers can be constructed without one in tests.
func broadcastEvent(hub *ws.Hub, eventType string, payload interface{}, roles ...string) {
	if hub == nil {
		return
	}
	data, err := json.Marshal(payload)
	if err != nil {
		log.Printf("ERROR: marshal %s event: %v", eventType, err)
		return
	}
	hub.BroadcastToRoles(roles, ws.Event{Type: eventType, Payload: data})
}

func parseLimitOffset(r *http.Request) (int, int) {
	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}

	offset := 0
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// writeOrderError maps known service errors to HTTP status codes.
// Validation problems are 400, missing records 404, state conflicts 409.
func writeOrderError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, service.ErrEmptyCart),
		errors.Is(err, service.ErrInvalidOrderType),
		errors.Is(err, service.ErrInvalidQuantity),
		errors.Is(err, service.ErrInvalidMenuID),
		errors.Is(err, service.ErrInvalidTableID),
		errors.Is(err, service.ErrTableRequired),
		errors.Is(err, service.ErrMenuUnavailable):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrOrderNotFound),
		errors.Is(err, service.ErrItemNotFound),
		errors.Is(err, service.ErrMenuNotFound),
		errors.Is(err, service.ErrTableNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": err.Error()})
	case errors.Is(err, service.ErrInsufficientStock),
		errors.Is(err, service.ErrOrderNotOpen),
		errors.Is(err, service.ErrInvalidTransition),
		errors.Is(err, service.ErrItemsNotReady):
		writeJSON(w, http.StatusConflict, map[string]string{"error": err.Error()})
	default:
		log.Printf("ERROR: %s: %v", op, err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
	}
}

func toOrderResponse(o database.Order, items []database.OrderItem) orderResponse {
	resp := orderResponse{
		ID:          o.ID,
		UserID:      o.UserID,
		OrderType:   o.OrderType,
		Status:      o.Status,
		TotalAmount: numericToString(o.TotalAmount),
		CreatedAt:   o.CreatedAt,
		UpdatedAt:   o.UpdatedAt,
	}
	if o.TableID.Valid {
		s := uuid.UUID(o.TableID.Bytes).String()
		resp.TableID = &s
	}
	if o.CustomerName.Valid {
		resp.CustomerName = &o.CustomerName.String
	}
	if items != nil {
		resp.Items = make([]orderItemResponse, len(items))
		for i, item := range items {
			resp.Items[i] = toOrderItemResponse(item)
		}
	}
	return resp
}

func toOrderItemResponse(item database.OrderItem) orderItemResponse {
	resp := orderItemResponse{
		ID:        item.ID,
		MenuID:    item.MenuID,
		Quantity:  item.Quantity,
		UnitPrice: numericToString(item.UnitPrice),
		Subtotal:  numericToString(item.Subtotal),
		Status:    item.Status,
		CreatedAt: item.CreatedAt,
	}
	if item.Notes.Valid {
		resp.Notes = &item.Notes.String
	}
	return resp
}

func numericToString(n pgtype.Numeric) string {
	if !n.Valid {
		return "0.00"
	}
	val, err := n.Value()
	if err != nil || val == nil {
		return "0.00"
	}
	d, err := decimal.NewFromString(val.(string))
	if err != nil {
		return "0.00"
	}
	return d.StringFixed(2)
}
