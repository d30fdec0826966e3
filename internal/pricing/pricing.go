// Package pricing computes order totals: subtotal, proportional discount
// allocation, per-line GST, and the grand total. It performs no I/O.
package pricing

import (
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
)

// Places is the scale persisted order aggregates are rounded to.
const Places = 2

var hundred = decimal.NewFromInt(100)

// Line is one priced input line. TaxRate is a percentage (18 means 18%).
type Line struct {
	ProductID uuid.UUID
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Quantity  int
}

// Discount is an order-level discount. The zero value means no discount.
type Discount struct {
	Type  enums.DiscountType
	Value decimal.Decimal
}

func Percentage(value decimal.Decimal) Discount {
	return Discount{Type: enums.DiscountTypePercentage, Value: value}
}

func Fixed(value decimal.Decimal) Discount {
	return Discount{Type: enums.DiscountTypeFixed, Value: value}
}

// IsNone reports whether the discount has no effect. A typed discount with a
// zero value counts as none.
func (d Discount) IsNone() bool {
	return d.Type == "" || d.Value.IsZero()
}

// LineQuote carries the full-precision figures of one line.
type LineQuote struct {
	ProductID     uuid.UUID
	Quantity      int
	Subtotal      decimal.Decimal
	DiscountShare decimal.Decimal
	Taxable       decimal.Decimal
	Tax           decimal.Decimal
}

// Quote is the immutable result of pricing an order. Aggregates are kept at
// full precision; Totals returns the rounded values for persistence.
type Quote struct {
	Lines         []LineQuote
	Subtotal      decimal.Decimal
	TotalDiscount decimal.Decimal
	TotalTax      decimal.Decimal
	Shipping      decimal.Decimal
	GrandTotal    decimal.Decimal
}

// Totals are the rounded aggregates written to the order row.
type Totals struct {
	Subtotal   decimal.Decimal
	Discount   decimal.Decimal
	TotalTax   decimal.Decimal
	Shipping   decimal.Decimal
	GrandTotal decimal.Decimal
}

func (q *Quote) Totals() Totals {
	return Totals{
		Subtotal:   q.Subtotal.Round(Places),
		Discount:   q.TotalDiscount.Round(Places),
		TotalTax:   q.TotalTax.Round(Places),
		Shipping:   q.Shipping.Round(Places),
		GrandTotal: q.GrandTotal.Round(Places),
	}
}

// Price computes a Quote for lines. It fails with CodeInvalidDiscount when the
// discount cannot be applied and CodeValidation for malformed lines or a
// negative shipping charge.
func Price(lines []Line, discount Discount, shipping decimal.Decimal) (*Quote, error) {
	if shipping.IsNegative() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "shipping charges cannot be negative")
	}

	quote := &Quote{
		Lines:    make([]LineQuote, len(lines)),
		Subtotal: decimal.Zero,
		TotalTax: decimal.Zero,
		Shipping: shipping,
	}
	for i, line := range lines {
		if line.Quantity <= 0 {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "quantity for product %s must be greater than zero", line.ProductID)
		}
		if line.UnitPrice.IsNegative() || line.TaxRate.IsNegative() {
			return nil, pkgerrors.Newf(pkgerrors.CodeValidation, "price and tax rate for product %s cannot be negative", line.ProductID)
		}
		lineSubtotal := line.UnitPrice.Mul(decimal.NewFromInt(int64(line.Quantity)))
		quote.Lines[i] = LineQuote{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			Subtotal:  lineSubtotal,
		}
		quote.Subtotal = quote.Subtotal.Add(lineSubtotal)
	}

	totalDiscount, err := resolveDiscount(discount, quote.Subtotal)
	if err != nil {
		return nil, err
	}
	quote.TotalDiscount = totalDiscount

	allocate(quote.Lines, quote.Subtotal, totalDiscount)

	for i := range quote.Lines {
		lq := &quote.Lines[i]
		lq.Taxable = lq.Subtotal.Sub(lq.DiscountShare)
		lq.Tax = lq.Taxable.Mul(lines[i].TaxRate).Div(hundred)
		quote.TotalTax = quote.TotalTax.Add(lq.Tax)
	}

	quote.GrandTotal = quote.Subtotal.Sub(totalDiscount).Add(quote.TotalTax).Add(shipping)
	return quote, nil
}

func resolveDiscount(discount Discount, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if discount.Type == "" {
		return decimal.Zero, nil
	}
	if discount.Value.IsNegative() {
		return decimal.Zero, pkgerrors.New(pkgerrors.CodeInvalidDiscount, "discount value cannot be negative")
	}
	if discount.Value.IsZero() {
		return decimal.Zero, nil
	}

	switch discount.Type {
	case enums.DiscountTypePercentage:
		if discount.Value.GreaterThan(hundred) {
			return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeInvalidDiscount, "percentage discount %s exceeds 100", discount.Value)
		}
		return subtotal.Mul(discount.Value).Div(hundred), nil
	case enums.DiscountTypeFixed:
		if discount.Value.GreaterThan(subtotal) {
			return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeInvalidDiscount,
				"fixed discount (%s) cannot be greater than the subtotal (%s)",
				discount.Value.StringFixed(Places), subtotal.StringFixed(Places))
		}
		return discount.Value, nil
	default:
		return decimal.Zero, pkgerrors.Newf(pkgerrors.CodeInvalidDiscount, "unknown discount type %q", discount.Type)
	}
}

// allocate splits total across lines in proportion to their subtotals. The
// last line with a non-zero subtotal absorbs the division remainder so the
// shares sum to total exactly.
func allocate(lines []LineQuote, subtotal, total decimal.Decimal) {
	for i := range lines {
		lines[i].DiscountShare = decimal.Zero
	}
	if !subtotal.IsPositive() || total.IsZero() {
		return
	}

	last := -1
	for i := range lines {
		if lines[i].Subtotal.IsPositive() {
			last = i
		}
	}

	allocated := decimal.Zero
	for i := range lines {
		if !lines[i].Subtotal.IsPositive() {
			continue
		}
		if i == last {
			lines[i].DiscountShare = total.Sub(allocated)
			return
		}
		share := lines[i].Subtotal.Mul(total).Div(subtotal)
		lines[i].DiscountShare = share
		allocated = allocated.Add(share)
	}
}
