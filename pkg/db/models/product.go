package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product is a catalog item with its live price, tax rate, and stock counter.
type Product struct {
	ID            uuid.UUID           `gorm:"column:id;type:uuid;primaryKey"`
	Name          string              `gorm:"column:name;not null"`
	SKU           string              `gorm:"column:sku;not null;uniqueIndex"`
	Description   *string             `gorm:"column:description"`
	Category      *string             `gorm:"column:category"`
	Supplier      *string             `gorm:"column:supplier"`
	StockQuantity int                 `gorm:"column:stock_quantity;not null;default:0;check:stock_quantity >= 0"`
	ReorderLevel  int                 `gorm:"column:reorder_level;not null;default:0"`
	CostPrice     decimal.NullDecimal `gorm:"column:cost_price;type:numeric(12,2)"`
	SellingPrice  decimal.NullDecimal `gorm:"column:selling_price;type:numeric(12,2)"`
	GSTRate       decimal.NullDecimal `gorm:"column:gst_rate;type:numeric(5,2)"`
	LastRestocked *time.Time          `gorm:"column:last_restocked"`
	CreatedAt     time.Time           `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt     time.Time           `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}

// HasPricing reports whether both the selling price and the tax rate are set.
func (p *Product) HasPricing() bool {
	return p.SellingPrice.Valid && p.GSTRate.Valid
}
