package bulkorders

import (
	"encoding/csv"
	"io"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
)

// Columns an export adds after the import columns.
const (
	ColSubtotal      = "subtotal"
	ColTotalGST      = "total_gst"
	ColTotalAmount   = "total_amount"
	ColStatus        = "status"
	ColPaymentStatus = "payment_status"
)

// ExportHeaders is the header row of an order export. Its leading columns
// are RequiredHeaders, so an export can be imported again.
var ExportHeaders = append(append([]string(nil), RequiredHeaders...),
	ColSubtotal,
	ColTotalGST,
	ColTotalAmount,
	ColStatus,
	ColPaymentStatus,
)

// WriteTemplate writes an empty import file: the header row only.
func WriteTemplate(w io.Writer) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(RequiredHeaders); err != nil {
		return err
	}
	cw.Flush()
	return cw.Error()
}

// WriteExportCSV writes one record per order item with the order id as the
// group key. An order without items still gets one record with blank item
// columns. Items must have their Product loaded for the SKU column.
func WriteExportCSV(w io.Writer, orders []models.Order) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ExportHeaders); err != nil {
		return err
	}
	for i := range orders {
		order := &orders[i]
		if len(order.Items) == 0 {
			if err := cw.Write(exportRecord(order, "", "")); err != nil {
				return err
			}
			continue
		}
		for _, item := range order.Items {
			sku := ""
			if item.Product != nil {
				sku = item.Product.SKU
			}
			if err := cw.Write(exportRecord(order, sku, strconv.Itoa(item.Quantity))); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	return cw.Error()
}

func exportRecord(order *models.Order, sku, quantity string) []string {
	discountType := ""
	if order.DiscountType != nil {
		discountType = order.DiscountType.String()
	}
	return []string{
		order.ID.String(),
		order.CustomerName,
		order.CustomerEmail,
		order.ShippingAddress,
		string(order.PaymentMethod),
		sku,
		quantity,
		discountType,
		money(order.DiscountValue),
		money(order.ShippingCharges),
		money(order.Subtotal),
		money(order.TotalGST),
		money(order.TotalAmount),
		string(order.Status),
		string(order.PaymentStatus),
	}
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
