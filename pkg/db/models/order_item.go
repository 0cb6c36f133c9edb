package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderItem snapshots one line of an order. UnitPrice is captured at
// transaction time so historical invoices survive catalog price changes.
// The product reference is RESTRICT: a product with sales records cannot
// be deleted.
type OrderItem struct {
	ID        int64           `gorm:"column:id;primaryKey;autoIncrement"`
	OrderID   int64           `gorm:"column:order_id;not null;index"`
	ProductID int64           `gorm:"column:product_id;not null;index"`
	Quantity  int             `gorm:"column:quantity;not null"`
	UnitPrice decimal.Decimal `gorm:"column:unit_price;type:numeric(12,2);not null"`
	Product   *Product        `gorm:"foreignKey:ProductID;constraint:OnDelete:RESTRICT"`
	CreatedAt time.Time       `gorm:"column:created_at;autoCreateTime"`
}
