package enums

import "fmt"

// StockMovementReason explains why a product's stock counter changed.
type StockMovementReason string

const (
	StockMovementOrderPlaced    StockMovementReason = "order_placed"
	StockMovementOrderRestocked StockMovementReason = "order_restocked"
	StockMovementOrderReopened  StockMovementReason = "order_reopened"
)

var validStockMovementReasons = []StockMovementReason{
	StockMovementOrderPlaced,
	StockMovementOrderRestocked,
	StockMovementOrderReopened,
}

// IsValid reports whether the value is a known StockMovementReason.
func (r StockMovementReason) IsValid() bool {
	for _, candidate := range validStockMovementReasons {
		if candidate == r {
			return true
		}
	}
	return false
}

// ParseStockMovementReason converts raw input into a StockMovementReason.
func ParseStockMovementReason(value string) (StockMovementReason, error) {
	for _, candidate := range validStockMovementReasons {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid stock movement reason %q", value)
}
