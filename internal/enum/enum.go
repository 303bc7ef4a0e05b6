package enum

// ── Order types (CHECK constrained in DB) ──

const (
	OrderTypeDineIn  = "dinein"
	OrderTypeTakeout = "takeout"
)

// ── Order statuses (CHECK constrained in DB) ──

const (
	OrderStatusCompleted = "completed"
	OrderStatusCancelled = "cancelled"
	OrderStatusPending   = "pending"
	OrderStatusDelivered = "delivered"
)

// ── Search types (no DB constraint, request-level only) ──

const (
	SearchTypeOrderNo = "order_no"
	SearchTypePhone   = "phone"
)

// ── Updatable order fields (whitelisted for /admin/order/update) ──

const (
	OrderFieldStatus         = "status"
	OrderFieldPhone          = "phone"
	OrderFieldTableNum       = "table_num"
	OrderFieldTakeoutAddress = "takeout_address"
	OrderFieldTakeoutTime    = "takeout_time"
)

// ValidOrderType reports whether s is a known order type.
func ValidOrderType(s string) bool {
	return s == OrderTypeDineIn || s == OrderTypeTakeout
}

// ValidOrderStatus reports whether s is a known order status.
func ValidOrderStatus(s string) bool {
	switch s {
	case OrderStatusCompleted, OrderStatusCancelled,
		OrderStatusPending, OrderStatusDelivered:
		return true
	}
	return false
}

// ValidSearchType reports whether s is a known search type.
func ValidSearchType(s string) bool {
	return s == SearchTypeOrderNo || s == SearchTypePhone
}

// ValidOrderField reports whether s may be targeted by a generic
// order field update.
func ValidOrderField(s string) bool {
	switch s {
	case OrderFieldStatus, OrderFieldPhone, OrderFieldTableNum,
		OrderFieldTakeoutAddress, OrderFieldTakeoutTime:
		return true
	}
	return false
}
