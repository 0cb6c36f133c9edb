package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Product is a catalog listing. Stock only ever decreases through order
// fulfillment; the column carries a CHECK (stock >= 0) so a committed
// transaction can never leave a negative count.
type Product struct {
	ID          int64           `gorm:"column:id;primaryKey;autoIncrement"`
	Name        string          `gorm:"column:name;not null;uniqueIndex"`
	Brand       string          `gorm:"column:brand;not null"`
	Category    string          `gorm:"column:category;not null"`
	Price       decimal.Decimal `gorm:"column:price;type:numeric(12,2);not null"`
	Stock       int             `gorm:"column:stock;not null;default:0"`
	Description string          `gorm:"column:description;not null;default:''"`
	ImageURL    string          `gorm:"column:image_url;not null;default:''"`
	SearchName  string          `gorm:"column:search_name;not null;index"`
	CreatedAt   time.Time       `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time       `gorm:"column:updated_at;autoUpdateTime"`
}
