package handler

import (
	"context"
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/AlpianPPLG/RestosSystem/internal/enum"
)

// DashboardStore defines the aggregate queries behind the admin dashboard.
// Satisfied by *database.Queries.
type DashboardStore interface {
	CountOrdersToday(ctx context.Context) (int64, error)
	CountOrdersByStatus(ctx context.Context, status string) (int64, error)
	GetTodayRevenue(ctx context.Context) (pgtype.Numeric, error)
	GetTodayChangeGiven(ctx context.Context) (pgtype.Numeric, error)
	CountTablesByStatus(ctx context.Context, status string) (int64, error)
	CountOutOfStock(ctx context.Context) (int64, error)
}

// DashboardHandler serves the admin overview aggregates.
type DashboardHandler struct {
	store DashboardStore
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(store DashboardStore) *DashboardHandler {
	return &DashboardHandler{store: store}
}

// RegisterRoutes registers dashboard endpoints on the given Chi router.
func (h *DashboardHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.Summary)
}

type dashboardResponse struct {
	OrdersToday      int64            `json:"orders_today"`
	OrdersByStatus   map[string]int64 `json:"orders_by_status"`
	RevenueToday     string           `json:"revenue_today"`
	ChangeGivenToday string           `json:"change_given_today"`
	TablesByStatus   map[string]int64 `json:"tables_by_status"`
	OutOfStockCount  int64            `json:"out_of_stock_count"`
}

// Summary handles GET /dashboard.
func (h *DashboardHandler) Summary(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	ordersToday, err := h.store.CountOrdersToday(ctx)
	if err != nil {
		h.fail(w, "count orders today", err)
		return
	}

	byStatus := make(map[string]int64, 5)
	for _, status := range []string{
		enum.OrderStatusPending,
		enum.OrderStatusProcessing,
		enum.OrderStatusDelivered,
		enum.OrderStatusCompleted,
		enum.OrderStatusCancelled,
	} {
		count, err := h.store.CountOrdersByStatus(ctx, status)
		if err != nil {
			h.fail(w, "count orders by status", err)
			return
		}
		byStatus[status] = count
	}

	revenue, err := h.store.GetTodayRevenue(ctx)
	if err != nil {
		h.fail(w, "today revenue", err)
		return
	}
	change, err := h.store.GetTodayChangeGiven(ctx)
	if err != nil {
		h.fail(w, "today change given", err)
		return
	}

	tables := make(map[string]int64, 3)
	for _, status := range []string{
		enum.TableStatusAvailable,
		enum.TableStatusReserved,
		enum.TableStatusOccupied,
	} {
		count, err := h.store.CountTablesByStatus(ctx, status)
		if err != nil {
			h.fail(w, "count tables by status", err)
			return
		}
		tables[status] = count
	}

	outOfStock, err := h.store.CountOutOfStock(ctx)
	if err != nil {
		h.fail(w, "count out of stock", err)
		return
	}

	writeJSON(w, http.StatusOK, dashboardResponse{
		OrdersToday:      ordersToday,
		OrdersByStatus:   byStatus,
		RevenueToday:     numericToString(revenue),
		ChangeGivenToday: numericToString(change),
		TablesByStatus:   tables,
		OutOfStockCount:  outOfStock,
	})
}

func (h *DashboardHandler) fail(w http.ResponseWriter, op string, err error) {
	log.Printf("ERROR: dashboard %s: %v", op, err)
	writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
}
