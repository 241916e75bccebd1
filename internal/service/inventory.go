package service

import (
	"context"

	"github.com/AlpianPPLG/RestosSystem/internal/database"
	"github.com/AlpianPPLG/RestosSystem/internal/enum"
)

// InventoryStore defines the DB methods the stock policy needs.
type InventoryStore interface {
	ListLowStockAbsolute(ctx context.Context, threshold int32) ([]database.InventoryRow, error)
	ListLowStockPercent(ctx context.Context, threshold int32) ([]database.InventoryRow, error)
	ListOutOfStock(ctx context.Context) ([]database.InventoryRow, error)
	ResetDailyStock(ctx context.Context) (int64, error)
}

// InventoryService holds the configured low-stock policy. Stock level is a
// pure derived classification, never stored state.
type InventoryService struct {
	store     InventoryStore
	policy    string
	threshold int32
}

// NewInventoryService validates the policy, falling back to the absolute
// policy with its default threshold of 5 units.
func NewInventoryService(store InventoryStore, policy string, threshold int) *InventoryService {
	if policy != enum.LowStockPolicyAbsolute && policy != enum.LowStockPolicyPercent {
		policy = enum.LowStockPolicyAbsolute
	}
	if threshold <= 0 {
		if policy == enum.LowStockPolicyPercent {
			threshold = 20
		} else {
			threshold = 5
		}
	}
	return &InventoryService{store: store, policy: policy, threshold: int32(threshold)}
}

// StockLevel classifies a counter as out, low or ok under the configured
// policy.
func (s *InventoryService) StockLevel(dailyStock, remainingStock int32) string {
	if remainingStock <= 0 {
		return enum.StockLevelOut
	}
	switch s.policy {
	case enum.LowStockPolicyPercent:
		if dailyStock > 0 && remainingStock*100/dailyStock <= s.threshold {
			return enum.StockLevelLow
		}
	default:
		if remainingStock <= s.threshold {
			return enum.StockLevelLow
		}
	}
	return enum.StockLevelOK
}

// LowStock lists counters below the configured threshold.
func (s *InventoryService) LowStock(ctx context.Context) ([]database.InventoryRow, error) {
	if s.policy == enum.LowStockPolicyPercent {
		return s.store.ListLowStockPercent(ctx, s.threshold)
	}
	return s.store.ListLowStockAbsolute(ctx, s.threshold)
}

// OutOfStock lists exhausted counters.
func (s *InventoryService) OutOfStock(ctx context.Context) ([]database.InventoryRow, error) {
	return s.store.ListOutOfStock(ctx)
}

// ResetDaily restores every counter to its daily allotment. It is meant for
// off-hours use: it takes no locks against in-flight reservations.
func (s *InventoryService) ResetDaily(ctx context.Context) (int64, error) {
	return s.store.ResetDailyStock(ctx)
}
