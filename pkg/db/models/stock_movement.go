package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
)

// StockMovement is an append-only audit row for every stock counter change.
type StockMovement struct {
	ID        uuid.UUID                 `gorm:"column:id;type:uuid;primaryKey"`
	ProductID uuid.UUID                 `gorm:"column:product_id;type:uuid;not null;index"`
	OrderID   *uuid.UUID                `gorm:"column:order_id;type:uuid;index"`
	Delta     int                       `gorm:"column:delta;not null"`
	Reason    enums.StockMovementReason `gorm:"column:reason;type:varchar(32);not null"`
	CreatedAt time.Time                 `gorm:"column:created_at;autoCreateTime"`
}

func (m *StockMovement) BeforeCreate(*gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	return nil
}
