package handler_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
	"github.com/AlpianPPLG/RestosSystem/internal/handler"
	"github.com/AlpianPPLG/RestosSystem/internal/middleware"
)

// --- Mock TableStore ---

type mockTableStore struct {
	createTableFn    func(ctx context.Context, arg database.CreateTableParams) (database.Table, error)
	getTableFn       func(ctx context.Context, id uuid.UUID) (database.Table, error)
	listTablesFn     func(ctx context.Context, status pgtype.Text) ([]database.Table, error)
	updateTableFn    func(ctx context.Context, arg database.UpdateTableParams) (database.Table, error)
	reserveTableFn   func(ctx context.Context, id uuid.UUID) (database.Table, error)
	unreserveTableFn func(ctx context.Context, id uuid.UUID) (database.Table, error)
}

func (m *mockTableStore) CreateTable(ctx context.Context, arg database.CreateTableParams) (database.Table, error) {
	if m.createTableFn != nil {
		return m.createTableFn(ctx, arg)
	}
	return database.Table{}, pgx.ErrNoRows
}

func (m *mockTableStore) GetTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	if m.getTableFn != nil {
		return m.getTableFn(ctx, id)
	}
	return database.Table{}, pgx.ErrNoRows
}

func (m *mockTableStore) ListTables(ctx context.Context, status pgtype.Text) ([]database.Table, error) {
	if m.listTablesFn != nil {
		return m.listTablesFn(ctx, status)
	}
	return []database.Table{}, nil
}

func (m *mockTableStore) UpdateTable(ctx context.Context, arg database.UpdateTableParams) (database.Table, error) {
	if m.updateTableFn != nil {
		return m.updateTableFn(ctx, arg)
	}
	return database.Table{}, pgx.ErrNoRows
}

func (m *mockTableStore) ReserveTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	if m.reserveTableFn != nil {
		return m.reserveTableFn(ctx, id)
	}
	return database.Table{}, pgx.ErrNoRows
}

func (m *mockTableStore) UnreserveTable(ctx context.Context, id uuid.UUID) (database.Table, error) {
	if m.unreserveTableFn != nil {
		return m.unreserveTableFn(ctx, id)
	}
	return database.Table{}, pgx.ErrNoRows
}

func setupTableRouter(store *mockTableStore) *chi.Mux {
	h := handler.NewTableHandler(store)
	r := chi.NewRouter()
	r.Use(middleware.Authenticate(testJWTSecret))
	r.Route("/tables", h.RegisterRoutes)
	r.Route("/admin/tables", h.RegisterAdminRoutes)
	return r
}

func testTable(number, status string) database.Table {
	now := time.Now()
	return database.Table{
		ID:          uuid.New(),
		TableNumber: number,
		Capacity:    4,
		Status:      status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
}

// --- Tests ---

func TestTableCreate_HappyPath(t *testing.T) {
	claims := testClaims(enum.UserRoleAdmin)
	store := &mockTableStore{
		createTableFn: func(ctx context.Context, arg database.CreateTableParams) (database.Table, error) {
			if arg.TableNumber != "T7" || arg.Capacity != 6 {
				t.Errorf("params: got %+v, want T7/6", arg)
			}
			return testTable("T7", enum.TableStatusAvailable), nil
		},
	}

	router := setupTableRouter(store)
	rr := doAuthRequest(t, router, "POST", "/admin/tables", map[string]interface{}{
		"table_number": "T7",
		"capacity":     6,
	}, claims)

	if rr.Code != http.StatusCreated {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusCreated, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "available" {
		t.Errorf("status: got %v, want available", resp["status"])
	}
}

func TestTableCreate_DuplicateNumberConflict(t *testing.T) {
	claims := testClaims(enum.UserRoleAdmin)
	store := &mockTableStore{
		createTableFn: func(ctx context.Context, arg database.CreateTableParams) (database.Table, error) {
			return database.Table{}, &pgconn.PgError{Code: "23505", ConstraintName: "tables_table_number_key"}
		},
	}

	router := setupTableRouter(store)
	rr := doAuthRequest(t, router, "POST", "/admin/tables", map[string]interface{}{
		"table_number": "T1",
		"capacity":     4,
	}, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusConflict)
	}
}

func TestTableCreate_Validation(t *testing.T) {
	claims := testClaims(enum.UserRoleAdmin)
	router := setupTableRouter(&mockTableStore{})

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"missing number", map[string]interface{}{"capacity": 4}},
		{"zero capacity", map[string]interface{}{"table_number": "T1", "capacity": 0}},
		{"negative capacity", map[string]interface{}{"table_number": "T1", "capacity": -2}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doAuthRequest(t, router, "POST", "/admin/tables", tt.body, claims)
			if rr.Code != http.StatusBadRequest {
				t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
			}
		})
	}
}

func TestTableList_StatusFilter(t *testing.T) {
	claims := testClaims(enum.UserRoleWaiter)
	store := &mockTableStore{
		listTablesFn: func(ctx context.Context, status pgtype.Text) ([]database.Table, error) {
			if !status.Valid || status.String != "available" {
				t.Errorf("status filter: got %+v, want available", status)
			}
			return []database.Table{testTable("T1", enum.TableStatusAvailable)}, nil
		},
	}

	router := setupTableRouter(store)
	rr := doAuthRequest(t, router, "GET", "/tables?status=available", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	tables := resp["tables"].([]interface{})
	if len(tables) != 1 {
		t.Fatalf("tables: got %d, want 1", len(tables))
	}
}

func TestTableList_InvalidStatus(t *testing.T) {
	claims := testClaims(enum.UserRoleWaiter)
	router := setupTableRouter(&mockTableStore{})

	rr := doAuthRequest(t, router, "GET", "/tables?status=broken", nil, claims)
	if rr.Code != http.StatusBadRequest {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusBadRequest)
	}
}

func TestTableReserve_HappyPath(t *testing.T) {
	claims := testClaims(enum.UserRoleWaiter)
	table := testTable("T3", enum.TableStatusReserved)
	store := &mockTableStore{
		reserveTableFn: func(ctx context.Context, id uuid.UUID) (database.Table, error) {
			return table, nil
		},
	}

	router := setupTableRouter(store)
	rr := doAuthRequest(t, router, "PATCH", "/tables/"+table.ID.String()+"/reserve", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusOK, rr.Body.String())
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "reserved" {
		t.Errorf("status: got %v, want reserved", resp["status"])
	}
}

func TestTableReserve_NotAvailableConflict(t *testing.T) {
	claims := testClaims(enum.UserRoleWaiter)
	table := testTable("T3", enum.TableStatusOccupied)
	store := &mockTableStore{
		// Conditional update matches nothing when the table is occupied,
		// but the row itself exists.
		getTableFn: func(ctx context.Context, id uuid.UUID) (database.Table, error) {
			return table, nil
		},
	}

	router := setupTableRouter(store)
	rr := doAuthRequest(t, router, "PATCH", "/tables/"+table.ID.String()+"/reserve", nil, claims)

	if rr.Code != http.StatusConflict {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, http.StatusConflict, rr.Body.String())
	}
}

func TestTableReserve_NotFound(t *testing.T) {
	claims := testClaims(enum.UserRoleWaiter)
	router := setupTableRouter(&mockTableStore{})

	rr := doAuthRequest(t, router, "PATCH", "/tables/"+uuid.New().String()+"/reserve", nil, claims)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}

func TestTableUnreserve_HappyPath(t *testing.T) {
	claims := testClaims(enum.UserRoleWaiter)
	table := testTable("T3", enum.TableStatusAvailable)
	store := &mockTableStore{
		unreserveTableFn: func(ctx context.Context, id uuid.UUID) (database.Table, error) {
			return table, nil
		},
	}

	router := setupTableRouter(store)
	rr := doAuthRequest(t, router, "PATCH", "/tables/"+table.ID.String()+"/unreserve", nil, claims)

	if rr.Code != http.StatusOK {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
	resp := decodeResponse(t, rr)
	if resp["status"] != "available" {
		t.Errorf("status: got %v, want available", resp["status"])
	}
}

func TestTableUpdate_NotFound(t *testing.T) {
	claims := testClaims(enum.UserRoleAdmin)
	router := setupTableRouter(&mockTableStore{})

	rr := doAuthRequest(t, router, "PUT", "/admin/tables/"+uuid.New().String(), map[string]interface{}{
		"table_number": "T9",
		"capacity":     2,
	}, claims)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("status: got %d, want %d", rr.Code, http.StatusNotFound)
	}
}
