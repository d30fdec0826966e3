package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
)

// Order is a committed customer order with its priced totals.
type Order struct {
	ID               uuid.UUID               `gorm:"column:id;type:uuid;primaryKey"`
	CustomerName     string                  `gorm:"column:customer_name;not null"`
	CustomerEmail    string                  `gorm:"column:customer_email;not null"`
	PhoneNumber      *string                 `gorm:"column:phone_number"`
	ShippingAddress  string                  `gorm:"column:shipping_address;not null"`
	Subtotal         decimal.Decimal         `gorm:"column:subtotal;type:numeric(12,2);not null"`
	DiscountType     *enums.DiscountType     `gorm:"column:discount_type;type:varchar(16)"`
	DiscountValue    decimal.Decimal         `gorm:"column:discount_value;type:numeric(12,2);not null;default:0"`
	DiscountAmount   decimal.Decimal         `gorm:"column:discount_amount;type:numeric(12,2);not null;default:0"`
	TotalGST         decimal.Decimal         `gorm:"column:total_gst;type:numeric(12,2);not null;default:0"`
	ShippingCharges  decimal.Decimal         `gorm:"column:shipping_charges;type:numeric(12,2);not null;default:0"`
	TotalAmount      decimal.Decimal         `gorm:"column:total_amount;type:numeric(12,2);not null"`
	PaymentStatus    enums.PaymentStatus     `gorm:"column:payment_status;type:varchar(16);not null;default:'Unpaid'"`
	PaymentMethod    enums.PaymentMethod     `gorm:"column:payment_method;type:varchar(16);not null"`
	Status           enums.OrderStatus       `gorm:"column:status;type:varchar(16);not null;default:'Pending'"`
	ShippingProvider *enums.ShippingProvider `gorm:"column:shipping_provider;type:varchar(32)"`
	TrackingID       *string                 `gorm:"column:tracking_id"`
	VehicleID        *uuid.UUID              `gorm:"column:vehicle_id;type:uuid"`
	OrderDate        time.Time               `gorm:"column:order_date;not null"`
	Items            []OrderItem             `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE"`
	CreatedAt        time.Time               `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time               `gorm:"column:updated_at;autoUpdateTime"`
}

func (o *Order) BeforeCreate(*gorm.DB) error {
	if o.ID == uuid.Nil {
		o.ID = uuid.New()
	}
	if o.OrderDate.IsZero() {
		o.OrderDate = time.Now().UTC()
	}
	return nil
}

// OrderItem binds a product and quantity to an order. Prices are not
// snapshotted; totals live on the order.
type OrderItem struct {
	ID        uuid.UUID `gorm:"column:id;type:uuid;primaryKey"`
	OrderID   uuid.UUID `gorm:"column:order_id;type:uuid;not null;index"`
	ProductID uuid.UUID `gorm:"column:product_id;type:uuid;not null;index"`
	Quantity  int       `gorm:"column:quantity;not null;check:quantity > 0"`
	Product   *Product  `gorm:"foreignKey:ProductID;references:ID"`
}

func (i *OrderItem) BeforeCreate(*gorm.DB) error {
	if i.ID == uuid.Nil {
		i.ID = uuid.New()
	}
	return nil
}
