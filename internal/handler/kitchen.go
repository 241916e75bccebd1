package handler

import (
	"context"
	"encoding/json"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
	"github.com/AlpianPPLG/RestosSystem/internal/service"
	"github.com/AlpianPPLG/RestosSystem/internal/ws"
)

// KitchenServicer defines the service methods needed by kitchen handlers.
// Satisfied by *service.OrderService.
type KitchenServicer interface {
	AdvanceItem(ctx context.Context, itemID uuid.UUID, target string) (*service.AdvanceItemResult, error)
	MarkDelivered(ctx context.Context, orderID uuid.UUID) (database.Order, error)
}

// KitchenStore defines the database methods needed by the queue view.
// Satisfied by *database.Queries.
type KitchenStore interface {
	ListKitchenOrders(ctx context.Context) ([]database.Order, error)
	ListOrderItemsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.OrderItem, error)
}

// KitchenHandler serves the kitchen display: the FIFO queue of open orders
// and the item progression actions.
type KitchenHandler struct {
	svc   KitchenServicer
	store KitchenStore
	hub   *ws.Hub
}

// NewKitchenHandler creates a new KitchenHandler. The hub may be nil in tests.
func NewKitchenHandler(svc KitchenServicer, store KitchenStore, hub *ws.Hub) *KitchenHandler {
	return &KitchenHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers kitchen endpoints on the given Chi router.
func (h *KitchenHandler) RegisterRoutes(r chi.Router) {
	r.Get("/queue", h.Queue)
	r.Patch("/items/{id}/status", h.AdvanceItem)
	r.Patch("/orders/{id}/deliver", h.MarkDelivered)
}

// --- Request / Response types ---

type advanceItemRequest struct {
	Status string `json:"status"`
}

type queueEntry struct {
	Order orderResponse       `json:"order"`
	Items []orderItemResponse `json:"items"`
}

type queueResponse struct {
	Queue []queueEntry `json:"queue"`
}

// --- Handlers ---

// Queue handles GET /kitchen/queue. Orders are returned oldest first; the
// optional filter query narrows items to one status (all|pending|cooking|served).
func (h *KitchenHandler) Queue(w http.ResponseWriter, r *http.Request) {
	filter := r.URL.Query().Get("filter")
	switch filter {
	case "", "all", enum.OrderItemStatusPending, enum.OrderItemStatusCooking, enum.OrderItemStatusServed:
	default:
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid filter"})
		return
	}

	orders, err := h.store.ListKitchenOrders(r.Context())
	if err != nil {
		log.Printf("ERROR: list kitchen orders: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	queue := make([]queueEntry, 0, len(orders))
	for _, o := range orders {
		items, err := h.store.ListOrderItemsByOrder(r.Context(), o.ID)
		if err != nil {
			log.Printf("ERROR: list order items: %v", err)
			writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
			return
		}

		entry := queueEntry{Order: toOrderResponse(o, nil), Items: make([]orderItemResponse, 0, len(items))}
		for _, item := range items {
			if filter != "" && filter != "all" && item.Status != filter {
				continue
			}
			entry.Items = append(entry.Items, toOrderItemResponse(item))
		}
		queue = append(queue, entry)
	}

	writeJSON(w, http.StatusOK, queueResponse{Queue: queue})
}

// AdvanceItem handles PATCH /kitchen/items/{id}/status.
func (h *KitchenHandler) AdvanceItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid item ID"})
		return
	}

	var req advanceItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.Status == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "status is required"})
		return
	}

	result, err := h.svc.AdvanceItem(r.Context(), itemID, req.Status)
	if err != nil {
		writeOrderError(w, "advance item", err)
		return
	}

	resp := struct {
		Item  orderItemResponse `json:"item"`
		Order orderResponse     `json:"order"`
	}{
		Item:  toOrderItemResponse(result.Item),
		Order: toOrderResponse(result.Order, nil),
	}
	broadcastEvent(h.hub, "item.updated", resp, enum.UserRoleWaiter, enum.UserRoleKitchen)
	writeJSON(w, http.StatusOK, resp)
}

// MarkDelivered handles PATCH /kitchen/orders/{id}/deliver.
func (h *KitchenHandler) MarkDelivered(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid order ID"})
		return
	}

	order, err := h.svc.MarkDelivered(r.Context(), orderID)
	if err != nil {
		writeOrderError(w, "mark delivered", err)
		return
	}

	resp := toOrderResponse(order, nil)
	broadcastEvent(h.hub, "order.delivered", resp, enum.UserRoleWaiter, enum.UserRoleCashier)
	writeJSON(w, http.StatusOK, resp)
}
