package enum

// ── State machines (CHECK constrained in DB) ──

const (
	OrderStatusPending    = "pending"
	OrderStatusProcessing = "processing"
	OrderStatusDelivered  = "delivered"
	OrderStatusCompleted  = "completed"
	OrderStatusCancelled  = "cancelled"
)

const (
	OrderItemStatusPending = "pending"
	OrderItemStatusCooking = "cooking"
	OrderItemStatusServed  = "served"
)

const (
	TableStatusAvailable = "available"
	TableStatusReserved  = "reserved"
	TableStatusOccupied  = "occupied"
)

// ── Role and type labels (CHECK constrained in DB) ──

const (
	UserRoleAdmin   = "admin"
	UserRoleWaiter  = "waiter"
	UserRoleKitchen = "kitchen"
	UserRoleCashier = "cashier"
)

const (
	OrderTypeDineIn   = "dine_in"
	OrderTypeTakeAway = "take_away"
)

const (
	PaymentMethodCash  = "cash"
	PaymentMethodDebit = "debit"
	PaymentMethodQRIS  = "qris"
)

// ── Derived labels (never stored) ──

const (
	StockLevelOK  = "ok"
	StockLevelLow = "low"
	StockLevelOut = "out"
)

const (
	LowStockPolicyAbsolute = "absolute"
	LowStockPolicyPercent  = "percent"
)
