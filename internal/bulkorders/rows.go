package bulkorders

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/orders"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
)

// Column names of an order import.
const (
	ColGroupID         = "order_group_id"
	ColCustomerName    = "customer_name"
	ColCustomerEmail   = "customer_email"
	ColShippingAddress = "shipping_address"
	ColPaymentMethod   = "payment_method"
	ColItemSKU         = "item_sku"
	ColItemQuantity    = "item_quantity"
	ColDiscountType    = "discount_type"
	ColDiscountValue   = "discount_value"
	ColShippingCharges = "shipping_charges"
)

// RequiredHeaders must all be present in an import's header row.
var RequiredHeaders = []string{
	ColGroupID,
	ColCustomerName,
	ColCustomerEmail,
	ColShippingAddress,
	ColPaymentMethod,
	ColItemSKU,
	ColItemQuantity,
	ColDiscountType,
	ColDiscountValue,
	ColShippingCharges,
}

// Row is one raw input row keyed by header. Line is the 1-based line of the
// row in its source file, header included.
type Row struct {
	Line   int
	Fields map[string]string
}

func (r Row) get(column string) string {
	return strings.TrimSpace(r.Fields[column])
}

func checkHeaders(headers []string) error {
	var missing []string
	for _, required := range RequiredHeaders {
		if !slices.Contains(headers, required) {
			missing = append(missing, required)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return pkgerrors.Newf(pkgerrors.CodeValidation,
		"Invalid CSV headers. Required: %s", strings.Join(RequiredHeaders, ", ")).
		WithDetails(map[string]any{"missing": missing})
}

type skuLine struct {
	sku      string
	quantity int
	line     int
}

// group is the logical order built from all rows sharing a group key.
type group struct {
	id       string
	header   *orders.CreateOrderInput
	items    []skuLine
	rows     []Row
	badLines []int
}

func (g *group) failed() bool {
	return len(g.badLines) > 0
}

// parsedRow holds the typed fields of one row.
type parsedRow struct {
	header orders.CreateOrderInput
	item   skuLine
}

func parseRow(row Row) (*parsedRow, error) {
	quantity, err := strconv.Atoi(row.get(ColItemQuantity))
	if err != nil {
		return nil, parseError("item_quantity %q is not an integer", row.get(ColItemQuantity))
	}
	if quantity <= 0 {
		return nil, parseError("item_quantity must be greater than 0, got %d", quantity)
	}
	discountValue, err := parseAmount(row, ColDiscountValue)
	if err != nil {
		return nil, err
	}
	shipping, err := parseAmount(row, ColShippingCharges)
	if err != nil {
		return nil, err
	}
	method, err := enums.ParsePaymentMethod(row.get(ColPaymentMethod))
	if err != nil {
		return nil, parseError("Invalid PaymentMethod '%s'.", row.get(ColPaymentMethod))
	}

	header := orders.CreateOrderInput{
		CustomerName:    row.get(ColCustomerName),
		CustomerEmail:   row.get(ColCustomerEmail),
		ShippingAddress: row.get(ColShippingAddress),
		PaymentMethod:   method,
		DiscountValue:   discountValue,
		ShippingCharges: shipping,
	}
	if raw := row.get(ColDiscountType); raw != "" {
		discountType, err := enums.ParseDiscountType(raw)
		if err != nil {
			return nil, parseError("Invalid DiscountType '%s'. Use 'percentage' or 'fixed'.", raw)
		}
		header.DiscountType = &discountType
	}

	return &parsedRow{
		header: header,
		item:   skuLine{sku: row.get(ColItemSKU), quantity: quantity, line: row.Line},
	}, nil
}

// parseAmount reads an optional decimal column; blank means zero.
func parseAmount(row Row, column string) (decimal.Decimal, error) {
	raw := row.get(column)
	if raw == "" {
		return decimal.Zero, nil
	}
	value, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, parseError("%s %q is not a number", column, raw)
	}
	return value, nil
}

func parseError(format string, args ...any) error {
	return pkgerrors.New(pkgerrors.CodeParse, "Invalid data format: "+fmt.Sprintf(format, args...))
}

func joinLines(lines []int) string {
	parts := make([]string, len(lines))
	for i, line := range lines {
		parts[i] = strconv.Itoa(line)
	}
	return strings.Join(parts, ", ")
}
