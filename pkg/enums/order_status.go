package enums

import "fmt"

// OrderStatus tracks an order's lifecycle. Legacy rows written as
// "COMPLETED" by an earlier webhook path migrate to OrderStatusPaid.
type OrderStatus string

const (
	// OrderStatusPending marks an order placed through direct checkout,
	// awaiting payment.
	OrderStatusPending OrderStatus = "pending"
	// OrderStatusPaid marks an order reconciled against a confirmed
	// payment.
	OrderStatusPaid OrderStatus = "paid"
)

var validOrderStatuses = []OrderStatus{
	OrderStatusPending,
	OrderStatusPaid,
}

// String implements fmt.Stringer.
func (s OrderStatus) String() string {
	return string(s)
}

// IsValid reports whether the value is a known OrderStatus.
func (s OrderStatus) IsValid() bool {
	for _, candidate := range validOrderStatuses {
		if candidate == s {
			return true
		}
	}
	return false
}

// ParseOrderStatus converts raw input into an OrderStatus.
func ParseOrderStatus(value string) (OrderStatus, error) {
	for _, candidate := range validOrderStatuses {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid order status %q", value)
}
