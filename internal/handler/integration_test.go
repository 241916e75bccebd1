//go:build integration

package handler_test

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"golang.org/x/crypto/bcrypt"

	"github.com/AlpianPPLG/RestosSystem/internal/config"
	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/router"
	"github.com/AlpianPPLG/RestosSystem/internal/ws"
)

// TestIntegrationFlow exercises the full order lifecycle against a real
// PostgreSQL database: admin bootstrap, menu and stock setup, dine-in order,
// kitchen progression, delivery, settlement and table release.
func TestIntegrationFlow(t *testing.T) {
	ctx := context.Background()

	pgContainer, connStr, cleanup := setupPostgresContainer(t, ctx)
	defer cleanup()

	runMigrations(t, connStr)

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	defer pool.Close()

	cfg := &config.Config{
		Port:              "8081",
		DatabaseURL:       connStr,
		JWTSecret:         "integration-test-secret",
		LowStockPolicy:    "absolute",
		LowStockThreshold: 5,
	}
	queries := database.New(pool)
	hub := ws.NewHub()
	// The hub goroutine leaks on test exit; it has no shutdown mechanism.
	go hub.Run()

	r := router.New(cfg, queries, pool, hub)
	server := httptest.NewServer(r)
	defer server.Close()

	// --- 1. Bootstrap admin user (direct insert, no public signup) ---
	adminID := createAdminUser(t, ctx, pool)

	// --- 2. Login ---
	token := integrationLogin(t, server, "admin", "password123")

	// --- 3. Create a table ---
	tableResp := httpPostJSON(t, server, "/admin/tables", map[string]interface{}{
		"table_number": "T1",
		"capacity":     4,
	}, token)
	tableID := uuid.MustParse(tableResp["id"].(string))

	// --- 4. Create a menu item with stock ---
	menuResp := httpPostJSON(t, server, "/admin/menus", map[string]interface{}{
		"name":     "Nasi Goreng",
		"category": "main",
		"price":    "25000",
	}, token)
	menuID := uuid.MustParse(menuResp["id"].(string))

	httpPutJSON(t, server, "/admin/inventory/"+menuID.String(), map[string]interface{}{
		"daily_stock": 10,
	}, token)

	// --- 5. Submit a dine-in order: 2x Nasi Goreng ---
	orderResp := httpPostJSON(t, server, "/orders", map[string]interface{}{
		"order_type":    "dine_in",
		"table_id":      tableID.String(),
		"customer_name": "Siti",
		"items": []map[string]interface{}{
			{"menu_id": menuID.String(), "quantity": 2},
		},
	}, token)
	orderID := uuid.MustParse(orderResp["id"].(string))

	if got := orderResp["total_amount"].(string); got != "50000.00" {
		t.Fatalf("order total_amount: got %s, want 50000.00 (price snapshot)", got)
	}
	if got := orderResp["status"].(string); got != "pending" {
		t.Fatalf("order status: got %s, want pending", got)
	}
	items := orderResp["items"].([]interface{})
	if len(items) != 1 {
		t.Fatalf("order items: got %d, want 1", len(items))
	}
	itemID := uuid.MustParse(items[0].(map[string]interface{})["id"].(string))

	// --- 6. Stock was reserved and the table occupied ---
	invResp := httpGetJSON(t, server, "/inventory/"+menuID.String(), token)
	if got := invResp["remaining_stock"].(float64); got != 8 {
		t.Fatalf("remaining_stock after order: got %v, want 8", got)
	}
	assertTableStatus(t, server, tableID, "occupied", token)

	// --- 7. Kitchen queue shows the order ---
	queueResp := httpGetJSON(t, server, "/kitchen/queue", token)
	queue := queueResp["queue"].([]interface{})
	if len(queue) != 1 {
		t.Fatalf("kitchen queue: got %d entries, want 1", len(queue))
	}

	// --- 8. Advance the item: cooking pulls the order into processing ---
	advResp := httpPatchJSON(t, server, "/kitchen/items/"+itemID.String()+"/status",
		map[string]interface{}{"status": "cooking"}, token)
	if got := advResp["order"].(map[string]interface{})["status"].(string); got != "processing" {
		t.Fatalf("order status after first cooking item: got %s, want processing", got)
	}

	httpPatchJSON(t, server, "/kitchen/items/"+itemID.String()+"/status",
		map[string]interface{}{"status": "served"}, token)

	// --- 9. Deliver ---
	delResp := httpPatchJSON(t, server, "/kitchen/orders/"+orderID.String()+"/deliver", nil, token)
	if got := delResp["status"].(string); got != "delivered" {
		t.Fatalf("order status after deliver: got %s, want delivered", got)
	}

	// --- 10. Settle with cash, overpaying for change ---
	settleResp := httpPostJSON(t, server, "/payments", map[string]interface{}{
		"order_id":       orderID.String(),
		"payment_method": "cash",
		"amount_paid":    "60000",
	}, token)
	payment := settleResp["payment"].(map[string]interface{})
	if got := payment["change_amount"].(string); got != "10000.00" {
		t.Fatalf("change_amount: got %s, want 10000.00", got)
	}
	if got := settleResp["order"].(map[string]interface{})["status"].(string); got != "completed" {
		t.Fatalf("order status after settle: got %s, want completed", got)
	}

	// --- 11. Table released, second settle rejected ---
	assertTableStatus(t, server, tableID, "available", token)

	status := httpPostStatus(t, server, "/payments", map[string]interface{}{
		"order_id":       orderID.String(),
		"payment_method": "cash",
		"amount_paid":    "60000",
	}, token)
	if status != http.StatusConflict {
		t.Fatalf("second settle: got status %d, want %d", status, http.StatusConflict)
	}

	// --- 12. Order detail carries the payment ---
	detail := httpGetJSON(t, server, "/orders/"+orderID.String(), token)
	if detail["payment"] == nil {
		t.Fatal("order detail missing payment after settlement")
	}

	// --- 13. Dashboard reflects the day ---
	dash := httpGetJSON(t, server, "/admin/dashboard", token)
	if got := dash["orders_today"].(float64); got != 1 {
		t.Fatalf("orders_today: got %v, want 1", got)
	}

	t.Logf("integration flow passed: container=%s admin=%s order=%s",
		pgContainer.GetContainerID(), adminID, orderID)
}

// --- Setup helpers ---

func setupPostgresContainer(t *testing.T, ctx context.Context) (testcontainers.Container, string, func()) {
	t.Helper()

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("restos_test"),
		tcpostgres.WithUsername("restos"),
		tcpostgres.WithPassword("restos"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("get connection string: %v", err)
	}

	cleanup := func() {
		if err := pgContainer.Terminate(ctx); err != nil {
			t.Logf("terminate container: %v", err)
		}
	}

	return pgContainer, connStr, cleanup
}

func runMigrations(t *testing.T, connStr string) {
	t.Helper()

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		t.Fatalf("open db for migrations: %v", err)
	}
	defer db.Close()

	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		t.Fatalf("create migrate driver: %v", err)
	}

	// Path relative to this package directory; go test sets cwd there.
	m, err := migrate.NewWithDatabaseInstance(
		"file://../../migrations",
		"postgres", driver)
	if err != nil {
		t.Fatalf("create migrate instance: %v", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		t.Fatalf("run migrations: %v", err)
	}
}

func createAdminUser(t *testing.T, ctx context.Context, pool *pgxpool.Pool) uuid.UUID {
	t.Helper()
	hashedPassword, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}

	var id uuid.UUID
	err = pool.QueryRow(ctx,
		`INSERT INTO users (name, username, password_hash, role)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id`,
		"Administrator", "admin", string(hashedPassword), "admin",
	).Scan(&id)
	if err != nil {
		t.Fatalf("create admin user: %v", err)
	}
	return id
}

func integrationLogin(t *testing.T, server *httptest.Server, username, password string) string {
	t.Helper()
	resp := httpPostJSON(t, server, "/auth/login", map[string]interface{}{
		"username": username,
		"password": password,
	}, "")
	token, ok := resp["access_token"].(string)
	if !ok || token == "" {
		t.Fatalf("login failed: no access_token in response: %+v", resp)
	}
	return token
}

func assertTableStatus(t *testing.T, server *httptest.Server, tableID uuid.UUID, want, token string) {
	t.Helper()
	resp := httpGetJSON(t, server, "/tables/"+tableID.String(), token)
	if got, _ := resp["status"].(string); got != want {
		t.Fatalf("table status: got %s, want %s", got, want)
	}
}

// --- HTTP helpers ---

func httpDoJSON(t *testing.T, server *httptest.Server, method, path string, body map[string]interface{}, token string) (*http.Response, map[string]interface{}) {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewReader(b)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequest(method, server.URL+path, reader)
	if err != nil {
		t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer resp.Body.Close()

	var result map[string]interface{}
	_ = json.NewDecoder(resp.Body).Decode(&result)
	return resp, result
}

func httpPostJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	resp, result := httpDoJSON(t, server, "POST", path, body, token)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Fatalf("POST %s: status %d, body: %v", path, resp.StatusCode, result)
	}
	return result
}

func httpPostStatus(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) int {
	t.Helper()
	resp, _ := httpDoJSON(t, server, "POST", path, body, token)
	return resp.StatusCode
}

func httpPutJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	resp, result := httpDoJSON(t, server, "PUT", path, body, token)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Fatalf("PUT %s: status %d, body: %v", path, resp.StatusCode, result)
	}
	return result
}

func httpPatchJSON(t *testing.T, server *httptest.Server, path string, body map[string]interface{}, token string) map[string]interface{} {
	t.Helper()
	resp, result := httpDoJSON(t, server, "PATCH", path, body, token)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Fatalf("PATCH %s: status %d, body: %v", path, resp.StatusCode, result)
	}
	return result
}

func httpGetJSON(t *testing.T, server *httptest.Server, path string, token string) map[string]interface{} {
	t.Helper()
	resp, result := httpDoJSON(t, server, "GET", path, nil, token)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		t.Fatalf("GET %s: status %d, body: %v", path, resp.StatusCode, result)
	}
	return result
}
