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
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
	"github.com/AlpianPPLG/RestosSystem/internal/ws"
)

// InventoryServicer defines the stock policy methods handlers need.
// Satisfied by *service.InventoryService.
type InventoryServicer interface {
	StockLevel(dailyStock, remainingStock int32) string
	LowStock(ctx context.Context) ([]database.InventoryRow, error)
	OutOfStock(ctx context.Context) ([]database.InventoryRow, error)
	ResetDaily(ctx context.Context) (int64, error)
}

// InventoryStore defines the database methods needed by inventory handlers.
// Satisfied by *database.Queries.
type InventoryStore interface {
	ListInventories(ctx context.Context) ([]database.InventoryRow, error)
	GetInventoryByMenu(ctx context.Context, menuID uuid.UUID) (database.Inventory, error)
	SetDailyStock(ctx context.Context, arg database.SetDailyStockParams) (database.Inventory, error)
}

// InventoryHandler handles the daily stock counter endpoints.
type InventoryHandler struct {
	svc   InventoryServicer
	store InventoryStore
	hub   *ws.Hub
}

// NewInventoryHandler creates a new InventoryHandler. The hub may be nil in tests.
func NewInventoryHandler(svc InventoryServicer, store InventoryStore, hub *ws.Hub) *InventoryHandler {
	return &InventoryHandler{svc: svc, store: store, hub: hub}
}

// RegisterRoutes registers inventory read endpoints on the given Chi router.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Get("/low", h.LowStock)
	r.Get("/out", h.OutOfStock)
	r.Get("/{menu_id}", h.GetByMenu)
}

// RegisterAdminRoutes registers the stock management endpoints.
func (h *InventoryHandler) RegisterAdminRoutes(r chi.Router) {
	r.Put("/{menu_id}", h.SetDailyStock)
	r.Post("/reset", h.ResetDaily)
}

// --- Request / Response types ---

type setDailyStockRequest struct {
	DailyStock int32 `json:"daily_stock"`
}

type inventoryResponse struct {
	ID             uuid.UUID `json:"id"`
	MenuID         uuid.UUID `json:"menu_id"`
	MenuName       string    `json:"menu_name,omitempty"`
	DailyStock     int32     `json:"daily_stock"`
	RemainingStock int32     `json:"remaining_stock"`
	StockLevel     string    `json:"stock_level"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type resetDailyResponse struct {
	ResetCount int64 `json:"reset_count"`
}

// --- Handlers ---

// List handles GET /inventory. Every counter carries its derived stock level.
func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	rows, err := h.store.ListInventories(r.Context())
	if err != nil {
		log.Printf("ERROR: list inventories: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.writeRows(w, rows)
}

// GetByMenu handles GET /inventory/{menu_id}.
func (h *InventoryHandler) GetByMenu(w http.ResponseWriter, r *http.Request) {
	menuID, err := uuid.Parse(chi.URLParam(r, "menu_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}

	inv, err := h.store.GetInventoryByMenu(r.Context(), menuID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "inventory not found"})
			return
		}
		log.Printf("ERROR: get inventory: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	writeJSON(w, http.StatusOK, h.toResponse(inv))
}

// LowStock handles GET /inventory/low.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.LowStock(r.Context())
	if err != nil {
		log.Printf("ERROR: list low stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.writeRows(w, rows)
}

// OutOfStock handles GET /inventory/out.
func (h *InventoryHandler) OutOfStock(w http.ResponseWriter, r *http.Request) {
	rows, err := h.svc.OutOfStock(r.Context())
	if err != nil {
		log.Printf("ERROR: list out of stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}
	h.writeRows(w, rows)
}

// SetDailyStock handles PUT /inventory/{menu_id}. Remaining stock resets to
// the new allotment.
func (h *InventoryHandler) SetDailyStock(w http.ResponseWriter, r *http.Request) {
	menuID, err := uuid.Parse(chi.URLParam(r, "menu_id"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid menu ID"})
		return
	}

	var req setDailyStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	if req.DailyStock < 0 {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "daily_stock must be >= 0"})
		return
	}

	inv, err := h.store.SetDailyStock(r.Context(), database.SetDailyStockParams{
		MenuID:     menuID,
		DailyStock: req.DailyStock,
	})
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23503" {
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "menu not found"})
			return
		}
		log.Printf("ERROR: set daily stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := h.toResponse(inv)
	broadcastEvent(h.hub, "inventory.updated", resp, enum.UserRoleWaiter, enum.UserRoleKitchen, enum.UserRoleAdmin)
	writeJSON(w, http.StatusOK, resp)
}

// ResetDaily handles POST /inventory/reset.
func (h *InventoryHandler) ResetDaily(w http.ResponseWriter, r *http.Request) {
	count, err := h.svc.ResetDaily(r.Context())
	if err != nil {
		log.Printf("ERROR: reset daily stock: %v", err)
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
		return
	}

	resp := resetDailyResponse{ResetCount: count}
	broadcastEvent(h.hub, "inventory.reset", resp, enum.UserRoleWaiter, enum.UserRoleKitchen, enum.UserRoleAdmin)
	writeJSON(w, http.StatusOK, resp)
}

// --- Helpers ---

func (h *InventoryHandler) writeRows(w http.ResponseWriter, rows []database.InventoryRow) {
	resp := make([]inventoryResponse, len(rows))
	for i, row := range rows {
		resp[i] = inventoryResponse{
			ID:             row.ID,
			MenuID:         row.MenuID,
			MenuName:       row.MenuName,
			DailyStock:     row.DailyStock,
			RemainingStock: row.RemainingStock,
			StockLevel:     h.svc.StockLevel(row.DailyStock, row.RemainingStock),
			UpdatedAt:      row.UpdatedAt,
		}
	}
	writeJSON(w, http.StatusOK, map[string][]inventoryResponse{"inventories": resp})
}

func (h *InventoryHandler) toResponse(inv database.Inventory) inventoryResponse {
	return inventoryResponse{
		ID:             inv.ID,
		MenuID:         inv.MenuID,
		DailyStock:     inv.DailyStock,
		RemainingStock: inv.RemainingStock,
		StockLevel:     h.svc.StockLevel(inv.DailyStock, inv.RemainingStock),
		UpdatedAt:      inv.UpdatedAt,
	}
}
