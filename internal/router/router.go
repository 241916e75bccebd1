package router

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/AlpianPPLG/RestosSystem/internal/config"
	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
	"github.com/AlpianPPLG/RestosSystem/internal/handler"
	mw "github.com/AlpianPPLG/RestosSystem/internal/middleware"
	"github.com/AlpianPPLG/RestosSystem/internal/service"
	"github.com/AlpianPPLG/RestosSystem/internal/ws"
)

// New creates a Chi router with all application routes wired up.
// Authentication and role checks are applied per route group: waiters submit
// and cancel orders, the kitchen works the queue, cashiers settle, admins
// manage the catalog and staff.
func New(cfg *config.Config, queries *database.Queries, pool *pgxpool.Pool, hub *ws.Hub) chi.Router {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// CORS configuration
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:3000"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300, // 5 minutes
	}))

	// Public routes
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok","version":"1.0.0"}`))
	})

	// Auth routes (public)
	authHandler := handler.NewAuthHandler(queries, cfg.JWTSecret)
	authHandler.RegisterRoutes(r)

	// WebSocket route (handles auth internally via query param)
	r.Get("/ws/orders", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWS(hub, cfg.JWTSecret, w, r)
	})

	// Services
	orderService := service.NewOrderService(pool, func(db database.DBTX) service.OrderStore {
		return database.New(db)
	})
	paymentService := service.NewPaymentService(pool, func(db database.DBTX) service.PaymentStore {
		return database.New(db)
	})
	inventoryService := service.NewInventoryService(queries, cfg.LowStockPolicy, cfg.LowStockThreshold)

	// Handlers
	orderHandler := handler.NewOrderHandler(orderService, queries, hub)
	kitchenHandler := handler.NewKitchenHandler(orderService, queries, hub)
	paymentHandler := handler.NewPaymentHandler(paymentService, queries, hub)
	tableHandler := handler.NewTableHandler(queries)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, queries, hub)
	menuHandler := handler.NewMenuHandler(queries)
	userHandler := handler.NewUserHandler(queries)
	dashboardHandler := handler.NewDashboardHandler(queries)

	// Protected routes (require authentication)
	r.Group(func(r chi.Router) {
		r.Use(mw.Authenticate(cfg.JWTSecret))

		// Shared read surface: every role sees menus, tables, inventory
		// levels and order detail.
		r.Get("/me", userHandler.Me)
		r.Route("/menus", menuHandler.RegisterRoutes)
		r.Route("/tables", tableHandler.RegisterRoutes)
		r.Route("/inventory", inventoryHandler.RegisterRoutes)

		// Orders: waiters run the floor, admins can step in anywhere.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleWaiter, enum.UserRoleCashier, enum.UserRoleKitchen, enum.UserRoleAdmin))
			r.Get("/orders", orderHandler.List)
			r.Get("/orders/{id}", orderHandler.Get)
		})
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleWaiter, enum.UserRoleAdmin))
			r.Post("/orders", orderHandler.Create)
			r.Post("/orders/{id}/items", orderHandler.AddItems)
			r.Delete("/orders/{id}", orderHandler.Cancel)
		})

		// Kitchen queue and item progression.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleKitchen, enum.UserRoleAdmin))
			r.Route("/kitchen", kitchenHandler.RegisterRoutes)
		})

		// Settlement.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleCashier, enum.UserRoleAdmin))
			r.Route("/payments", paymentHandler.RegisterRoutes)
		})

		// Admin surface: catalog, stock, tables, staff, dashboard.
		r.Group(func(r chi.Router) {
			r.Use(mw.RequireRole(enum.UserRoleAdmin))
			r.Route("/admin", func(r chi.Router) {
				r.Route("/menus", menuHandler.RegisterAdminRoutes)
				r.Route("/tables", tableHandler.RegisterAdminRoutes)
				r.Route("/inventory", inventoryHandler.RegisterAdminRoutes)
				r.Route("/users", userHandler.RegisterRoutes)
				r.Route("/dashboard", dashboardHandler.RegisterRoutes)
			})
		})
	})

	log.Println("Router initialized with all handlers")
	return r
}
