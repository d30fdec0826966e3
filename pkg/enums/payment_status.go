package enums

import (
	"fmt"
	"strings"
)

// PaymentStatus tracks whether an order has been paid.
type PaymentStatus string

const (
	PaymentStatusPaid     PaymentStatus = "Paid"
	PaymentStatusUnpaid   PaymentStatus = "Unpaid"
	PaymentStatusPending  PaymentStatus = "Pending"
	PaymentStatusCOD      PaymentStatus = "COD"
	PaymentStatusRefunded PaymentStatus = "Refunded"
)

var validPaymentStatuses = []PaymentStatus{
	PaymentStatusPaid,
	PaymentStatusUnpaid,
	PaymentStatusPending,
	PaymentStatusCOD,
	PaymentStatusRefunded,
}

// String implements fmt.Stringer.
func (p PaymentStatus) String() string {
	return string(p)
}

// IsValid reports whether the value is a known PaymentStatus.
func (p PaymentStatus) IsValid() bool {
	for _, candidate := range validPaymentStatuses {
		if candidate == p {
			return true
		}
	}
	return false
}

// ParsePaymentStatus converts raw input into a PaymentStatus.
func ParsePaymentStatus(value string) (PaymentStatus, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validPaymentStatuses {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid payment status %q", value)
}
