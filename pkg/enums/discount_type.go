package enums

import (
	"fmt"
	"strings"
)

// DiscountType selects how an order-level discount value is interpreted.
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

var validDiscountTypes = []DiscountType{
	DiscountTypePercentage,
	DiscountTypeFixed,
}

func (d DiscountType) String() string {
	return string(d)
}

func (d DiscountType) IsValid() bool {
	for _, candidate := range validDiscountTypes {
		if candidate == d {
			return true
		}
	}
	return false
}

// ParseDiscountType converts raw input into a DiscountType. Empty input is
// not a discount type; callers treat it as "no discount".
func ParseDiscountType(value string) (DiscountType, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validDiscountTypes {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid discount type %q", value)
}
