package models

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/backstagehn/storefront-backend/pkg/enums"
)

// Order is one committed purchase. PaymentSessionID is set only on orders
// produced by payment reconciliation; its unique index is what makes a
// redelivered provider event idempotent.
type Order struct {
	ID               int64             `gorm:"column:id;primaryKey;autoIncrement"`
	UserID           int64             `gorm:"column:user_id;not null;index"`
	Total            decimal.Decimal   `gorm:"column:total;type:numeric(12,2);not null"`
	Status           enums.OrderStatus `gorm:"column:status;not null;default:'pending'"`
	PaymentSessionID *string           `gorm:"column:payment_session_id;uniqueIndex"`
	Items            []OrderItem       `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time         `gorm:"column:created_at;autoCreateTime"`
}
