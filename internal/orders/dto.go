package orders

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/metrics"
)

// LineInput is one requested order line.
type LineInput struct {
	ProductID uuid.UUID `json:"product_id" validate:"required"`
	Quantity  int       `json:"quantity" validate:"gt=0"`
}

// CreateOrderInput carries everything needed to place an order. Money
// fields are checked by the validator and the pricing engine.
type CreateOrderInput struct {
	CustomerName     string                  `json:"customer_name" validate:"required,max=255"`
	CustomerEmail    string                  `json:"customer_email" validate:"required,email"`
	PhoneNumber      *string                 `json:"phone_number,omitempty" validate:"omitempty,max=32"`
	ShippingAddress  string                  `json:"shipping_address" validate:"required"`
	PaymentMethod    enums.PaymentMethod     `json:"payment_method" validate:"required,enum"`
	PaymentStatus    enums.PaymentStatus     `json:"payment_status,omitempty" validate:"omitempty,enum"`
	Status           enums.OrderStatus       `json:"status,omitempty" validate:"omitempty,enum"`
	DiscountType     *enums.DiscountType     `json:"discount_type,omitempty" validate:"omitempty,enum"`
	DiscountValue    decimal.Decimal         `json:"discount_value"`
	ShippingCharges  decimal.Decimal         `json:"shipping_charges"`
	ShippingProvider *enums.ShippingProvider `json:"shipping_provider,omitempty" validate:"omitempty,enum"`
	TrackingID       *string                 `json:"tracking_id,omitempty"`
	VehicleID        *uuid.UUID              `json:"vehicle_id,omitempty"`
	OrderDate        *time.Time              `json:"order_date,omitempty"`
	Items            []LineInput             `json:"items" validate:"dive"`
}

// UpdateOrderInput lists the mutable order fields. Nil fields are left
// unchanged; an empty ShippingProvider clears it.
type UpdateOrderInput struct {
	Status           *enums.OrderStatus   `json:"status,omitempty"`
	PaymentStatus    *enums.PaymentStatus `json:"payment_status,omitempty"`
	ShippingProvider *string              `json:"shipping_provider,omitempty"`
	TrackingID       *string              `json:"tracking_id,omitempty"`
	VehicleID        *uuid.UUID           `json:"vehicle_id,omitempty"`
}

// Source tags where an order request came from.
type Source string

const (
	SourceSingle Source = metrics.SourceSingle
	SourceBatch  Source = metrics.SourceBatch
)

// OrderCreatedEvent is the outbox payload for a newly placed order.
type OrderCreatedEvent struct {
	OrderID     uuid.UUID         `json:"order_id"`
	Status      enums.OrderStatus `json:"status"`
	TotalAmount decimal.Decimal   `json:"total_amount"`
	Items       []LineInput       `json:"items"`
}

// OrderStatusChangedEvent is the outbox payload for a status transition.
type OrderStatusChangedEvent struct {
	OrderID   uuid.UUID         `json:"order_id"`
	From      enums.OrderStatus `json:"from"`
	To        enums.OrderStatus `json:"to"`
	Restocked bool              `json:"restocked"`
	Reopened  bool              `json:"reopened"`
}
