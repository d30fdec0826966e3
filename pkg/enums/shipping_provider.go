package enums

import (
	"fmt"
	"strings"
)

// ShippingProvider identifies who delivers an order.
type ShippingProvider string

const (
	ShippingProviderSelf      ShippingProvider = "Self-Delivery"
	ShippingProviderBlueDart  ShippingProvider = "BlueDart"
	ShippingProviderDelhivery ShippingProvider = "Delhivery"
	ShippingProviderDTDC      ShippingProvider = "DTDC"
)

var validShippingProviders = []ShippingProvider{
	ShippingProviderSelf,
	ShippingProviderBlueDart,
	ShippingProviderDelhivery,
	ShippingProviderDTDC,
}

func (p ShippingProvider) String() string {
	return string(p)
}

func (p ShippingProvider) IsValid() bool {
	for _, candidate := range validShippingProviders {
		if candidate == p {
			return true
		}
	}
	return false
}

func ParseShippingProvider(value string) (ShippingProvider, error) {
	trimmed := strings.TrimSpace(value)
	for _, candidate := range validShippingProviders {
		if strings.EqualFold(string(candidate), trimmed) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid shipping provider %q", value)
}
