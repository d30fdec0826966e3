package bulkorders

import (
	"bytes"
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/orders"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/products"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/reports"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/stock"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/dbtest"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/outbox"
)

type fixture struct {
	conn     *gorm.DB
	products *products.Repository
	orders   *orders.Service
	reports  *reports.MemoryStore
}

type importerOption func(*ServiceParams)

func newFixture(t *testing.T) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	productRepo := products.NewRepository(conn)
	ledger, err := stock.NewLedger(productRepo, time.Second, nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	orderSvc, err := orders.NewService(orders.ServiceParams{
		Repo:     orders.NewRepository(conn),
		Products: productRepo,
		Tx:       db.NewFromGorm(conn),
		Ledger:   ledger,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
	})
	if err != nil {
		t.Fatalf("new order service: %v", err)
	}
	return &fixture{
		conn:     conn,
		products: productRepo,
		orders:   orderSvc,
		reports:  reports.NewMemoryStore(time.Hour),
	}
}

func (f *fixture) importer(t *testing.T, opts ...importerOption) *Service {
	t.Helper()
	params := ServiceParams{
		Orders:   f.orders,
		Products: f.products,
		Tx:       db.NewFromGorm(f.conn),
		Reports:  f.reports,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new import service: %v", err)
	}
	return svc
}

func (f *fixture) product(t *testing.T, sku, price, gst string, qty int) *models.Product {
	t.Helper()
	p := &models.Product{
		Name:          "Product " + sku,
		SKU:           sku,
		StockQuantity: qty,
		SellingPrice:  decimal.NewNullDecimal(decimal.RequireFromString(price)),
		GSTRate:       decimal.NewNullDecimal(decimal.RequireFromString(gst)),
	}
	if err := f.products.Create(context.Background(), p); err != nil {
		t.Fatalf("create product %s: %v", sku, err)
	}
	return p
}

func (f *fixture) stockOf(t *testing.T, sku string) int {
	t.Helper()
	p, err := f.products.FindBySKU(context.Background(), sku)
	if err != nil {
		t.Fatalf("find product %s: %v", sku, err)
	}
	return p.StockQuantity
}

func (f *fixture) orderCount(t *testing.T) int64 {
	t.Helper()
	var n int64
	if err := f.conn.Model(&models.Order{}).Count(&n).Error; err != nil {
		t.Fatalf("count orders: %v", err)
	}
	return n
}

func row(group, sku, qty string, overrides ...string) Row {
	fields := map[string]string{
		ColGroupID:         group,
		ColCustomerName:    "Customer " + group,
		ColCustomerEmail:   "buyer@example.com",
		ColShippingAddress: "1 Ring Road, Delhi",
		ColPaymentMethod:   "UPI",
		ColItemSKU:         sku,
		ColItemQuantity:    qty,
		ColDiscountType:    "",
		ColDiscountValue:   "0",
		ColShippingCharges: "0",
	}
	for i := 0; i+1 < len(overrides); i += 2 {
		fields[overrides[i]] = overrides[i+1]
	}
	return Row{Fields: fields}
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.conn.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count %T: %v", model, err)
	}
	return n
}

func expectErrors(t *testing.T, got, want []string) {
	t.Helper()
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected errors:\n got  %q\n want %q", got, want)
	}
}

func TestImportCreatesValidGroupsAndReportsMalformedOne(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "A-1", "100", "18", 10)
	f.product(t, "B-1", "50", "5", 10)

	rows := []Row{
		row("G1", "A-1", "2", ColDiscountType, "Percentage", ColDiscountValue, "10", ColShippingCharges, "20"),
		row("G1", "B-1", "3"),
		row("G2", "A-1", "1"),
		row("G2", "B-1", "two"),
		row("G3", "B-1", "1", ColPaymentMethod, "cod"),
	}

	result, err := f.importer(t).Import(ctx, RequiredHeaders, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.OrdersCreated != 2 {
		t.Fatalf("expected 2 orders, got %d", result.OrdersCreated)
	}
	expectErrors(t, result.Errors, []string{
		"Line 4 (Group ID: G2): Order not created: group has invalid data on line(s) 5.",
		`Line 5 (Group ID: G2): Invalid data format: item_quantity "two" is not an integer`,
	})
	if want := "2 order(s) created successfully. 2 row(s) corresponding to failed orders had errors."; result.Message != want {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if result.ReportID == "" {
		t.Fatal("expected an error report id")
	}

	if got := f.stockOf(t, "A-1"); got != 8 {
		t.Fatalf("expected A-1 stock 8, got %d", got)
	}
	if got := f.stockOf(t, "B-1"); got != 6 {
		t.Fatalf("expected B-1 stock 6, got %d", got)
	}

	var g1 models.Order
	if err := f.conn.Where("customer_name = ?", "Customer G1").First(&g1).Error; err != nil {
		t.Fatalf("load G1: %v", err)
	}
	if !g1.TotalAmount.Equal(decimal.RequireFromString("374.15")) {
		t.Fatalf("expected G1 total 374.15, got %s", g1.TotalAmount)
	}
	var g3 models.Order
	if err := f.conn.Where("customer_name = ?", "Customer G3").First(&g3).Error; err != nil {
		t.Fatalf("load G3: %v", err)
	}
	if g3.PaymentMethod != enums.PaymentMethodCOD {
		t.Fatalf("expected COD, got %s", g3.PaymentMethod)
	}

	report, err := f.reports.Get(ctx, result.ReportID)
	if err != nil {
		t.Fatalf("get report: %v", err)
	}
	if len(report.Rows) != 2 {
		t.Fatalf("expected 2 report rows, got %d", len(report.Rows))
	}
	for _, r := range report.Rows {
		if r.GroupID != "G2" {
			t.Fatalf("expected only G2 rows in report, got %q", r.GroupID)
		}
	}
	var buf bytes.Buffer
	if err := report.WriteCSV(&buf); err != nil {
		t.Fatalf("write report: %v", err)
	}
	if !strings.HasPrefix(buf.String(), strings.Join(RequiredHeaders, ",")+",error_reason\n") {
		t.Fatalf("unexpected report header: %q", buf.String())
	}
}

func TestImportRejectsNonPositiveQuantities(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "A-1", "10", "5", 10)

	result, err := f.importer(t).Import(ctx, RequiredHeaders, []Row{
		row("G1", "A-1", "0"),
		row("G1", "A-1", "1"),
		row("G2", "A-1", "-3"),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.OrdersCreated != 0 {
		t.Fatalf("expected no orders, got %d", result.OrdersCreated)
	}
	expectErrors(t, result.Errors, []string{
		"Line 2 (Group ID: G1): Invalid data format: item_quantity must be greater than 0, got 0",
		"Line 3 (Group ID: G1): Order not created: group has invalid data on line(s) 2.",
		"Line 4 (Group ID: G2): Invalid data format: item_quantity must be greater than 0, got -3",
	})
	if got := f.stockOf(t, "A-1"); got != 10 {
		t.Fatalf("expected stock untouched, got %d", got)
	}
	if got := f.count(t, &models.StockMovement{}); got != 0 {
		t.Fatalf("expected no stock movements, got %d", got)
	}
}

func TestImportRollsBackOnlyTheFailingGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "A-1", "10", "5", 5)

	rows := []Row{
		row("G1", "A-1", "4"),
		row("G2", "A-1", "3"),
		row("G3", "MISSING", "1"),
		row("G4", "A-1", "1"),
	}
	result, err := f.importer(t).Import(ctx, RequiredHeaders, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.OrdersCreated != 2 {
		t.Fatalf("expected 2 orders, got %d", result.OrdersCreated)
	}
	expectErrors(t, result.Errors, []string{
		"Line 3 (Group ID: G2): Order creation failed: Not enough stock for Product A-1. Available: 1, Requested: 3",
		"Line 4 (Group ID: G3): Order creation failed: Item SKU 'MISSING' (Line 4) not found.",
	})
	if got := f.stockOf(t, "A-1"); got != 0 {
		t.Fatalf("expected stock 0, got %d", got)
	}
	if got := f.orderCount(t); got != 2 {
		t.Fatalf("expected 2 order rows, got %d", got)
	}
}

func TestImportLocksEveryBatchProductBeforePlacing(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "A-1", "10", "5", 10)
	b := f.product(t, "B-1", "10", "5", 10)

	holder := f.orders.Ledger().NewSession()
	t.Cleanup(holder.Release)
	if _, err := holder.LockAndGet(ctx, f.conn, b.ID); err != nil {
		t.Fatalf("hold B-1: %v", err)
	}

	rows := []Row{
		row("G1", "A-1", "1"),
		row("G2", "B-1", "1"),
	}
	result, err := f.importer(t).Import(ctx, RequiredHeaders, rows)
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.OrdersCreated != 0 {
		t.Fatalf("expected no group placed while a batch product is held, got %d", result.OrdersCreated)
	}
	reason := "Order creation failed: timed out waiting for stock lock on product " + b.ID.String()
	expectErrors(t, result.Errors, []string{
		"Line 2 (Group ID: G1): " + reason,
		"Line 3 (Group ID: G2): " + reason,
	})
	if got := f.stockOf(t, "A-1"); got != 10 {
		t.Fatalf("expected A-1 untouched, got %d", got)
	}

	holder.Release()
	result, err = f.importer(t).Import(ctx, RequiredHeaders, rows)
	if err != nil {
		t.Fatalf("retry import: %v", err)
	}
	if result.OrdersCreated != 2 || len(result.Errors) != 0 {
		t.Fatalf("expected both groups placed after release, got %d created, errors %q", result.OrdersCreated, result.Errors)
	}
}

// failAfterWrite places the order and then fails for one customer, so the
// savepoint must undo rows and stock that were already written.
type failAfterWrite struct {
	*orders.Service
	customer string
}

func (p failAfterWrite) PlaceInTx(ctx context.Context, tx *gorm.DB, session *stock.Session, input orders.CreateOrderInput, source orders.Source) (*models.Order, error) {
	order, err := p.Service.PlaceInTx(ctx, tx, session, input, source)
	if err != nil {
		return nil, err
	}
	if input.CustomerName == p.customer {
		return nil, errors.New("label printer offline")
	}
	return order, nil
}

func TestImportSavepointDiscardsWrittenGroup(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "A-1", "10", "5", 10)

	svc := f.importer(t, func(p *ServiceParams) {
		p.Orders = failAfterWrite{Service: f.orders, customer: "Customer G2"}
	})
	result, err := svc.Import(ctx, RequiredHeaders, []Row{
		row("G1", "A-1", "2"),
		row("G2", "A-1", "3"),
		row("G2", "A-1", "1"),
		row("G3", "A-1", "4"),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.OrdersCreated != 2 {
		t.Fatalf("expected 2 orders, got %d", result.OrdersCreated)
	}
	if len(result.Errors) != 2 {
		t.Fatalf("expected 2 errors, got %q", result.Errors)
	}
	if want := "Line 3 (Group ID: G2): Order creation failed: label printer offline"; result.Errors[0] != want {
		t.Fatalf("unexpected first error %q", result.Errors[0])
	}
	if got := f.stockOf(t, "A-1"); got != 4 {
		t.Fatalf("expected stock 4, got %d", got)
	}
	if got := f.orderCount(t); got != 2 {
		t.Fatalf("expected 2 order rows, got %d", got)
	}
	if got := f.count(t, &models.OrderItem{}); got != 2 {
		t.Fatalf("expected 2 order items, got %d", got)
	}
	if got := f.count(t, &models.StockMovement{}); got != 2 {
		t.Fatalf("expected 2 stock movements, got %d", got)
	}
}

type refusingCommit struct {
	conn *gorm.DB
}

func (r refusingCommit) WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error {
	tx := r.conn.WithContext(ctx).Begin()
	if tx.Error != nil {
		return tx.Error
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	tx.Rollback()
	return errors.New("disk full")
}

func TestImportCommitFailureRollsBackEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "A-1", "10", "5", 10)

	svc := f.importer(t, func(p *ServiceParams) { p.Tx = refusingCommit{conn: f.conn} })
	result, err := svc.Import(ctx, RequiredHeaders, []Row{
		row("G1", "A-1", "2"),
		row("G2", "A-1", "x"),
		row("G3", "A-1", "1"),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}

	if result.OrdersCreated != 0 {
		t.Fatalf("expected no orders, got %d", result.OrdersCreated)
	}
	expectErrors(t, result.Errors, []string{
		"Line 2 (Group ID: G1): Database transaction failed: disk full. No orders were created in this batch.",
		`Line 3 (Group ID: G2): Invalid data format: item_quantity "x" is not an integer`,
		"Line 4 (Group ID: G3): Database transaction failed: disk full. No orders were created in this batch.",
	})
	if want := "File processed, but 3 row(s) had errors. No orders were created."; result.Message != want {
		t.Fatalf("unexpected message %q", result.Message)
	}
	if got := f.stockOf(t, "A-1"); got != 10 {
		t.Fatalf("expected stock 10, got %d", got)
	}
	if got := f.orderCount(t); got != 0 {
		t.Fatalf("expected no order rows, got %d", got)
	}
}

func TestImportRejectsBadHeadersAndEmptyBatch(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := f.importer(t)

	_, err := svc.Import(ctx, []string{"order_group_id", "item_sku"}, []Row{row("G1", "A", "1")})
	if code := pkgerrors.CodeOf(err); code != pkgerrors.CodeValidation {
		t.Fatalf("expected validation error, got %s", code)
	}
	if msg := pkgerrors.MessageOf(err); !strings.Contains(msg, "Invalid CSV headers. Required: order_group_id, customer_name") {
		t.Fatalf("unexpected message %q", msg)
	}

	_, err = svc.Import(ctx, RequiredHeaders, nil)
	if code := pkgerrors.CodeOf(err); code != pkgerrors.CodeEmptyBatch {
		t.Fatalf("expected empty batch error, got %s", code)
	}
}

func TestImportRowsWithoutGroupKey(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	result, err := f.importer(t).Import(ctx, RequiredHeaders, []Row{row(" ", "A-1", "1")})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.OrdersCreated != 0 {
		t.Fatalf("expected no orders, got %d", result.OrdersCreated)
	}
	expectErrors(t, result.Errors, []string{"Line 2 (Group ID: N/A): Missing 'order_group_id'."})
	if result.ReportID == "" {
		t.Fatal("expected an error report id")
	}
}

func TestImportFirstRowOfGroupWins(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.product(t, "A-1", "10", "5", 10)
	f.product(t, "B-1", "10", "5", 10)

	result, err := f.importer(t).Import(ctx, RequiredHeaders, []Row{
		row("G1", "A-1", "1", ColCustomerName, "First Name"),
		row("G1", "B-1", "1", ColCustomerName, "Second Name"),
	})
	if err != nil {
		t.Fatalf("import: %v", err)
	}
	if result.OrdersCreated != 1 {
		t.Fatalf("expected 1 order, got %d", result.OrdersCreated)
	}
	if len(result.Errors) != 0 || result.ReportID != "" {
		t.Fatalf("expected a clean import, got errors %q report %q", result.Errors, result.ReportID)
	}

	var order models.Order
	if err := f.conn.Preload("Items").First(&order).Error; err != nil {
		t.Fatalf("load order: %v", err)
	}
	if order.CustomerName != "First Name" {
		t.Fatalf("expected first row's customer, got %q", order.CustomerName)
	}
	if len(order.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(order.Items))
	}

	var events []models.OutboxEvent
	if err := f.conn.Find(&events).Error; err != nil {
		t.Fatalf("load events: %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("expected 1 outbox event, got %d", len(events))
	}
	if !strings.Contains(string(events[0].Payload), `"importId"`) {
		t.Fatalf("expected import id in payload, got %s", events[0].Payload)
	}
}

func TestParseRowErrors(t *testing.T) {
	cases := map[string]struct {
		row  Row
		want string
	}{
		"payment method": {row("G", "A", "1", ColPaymentMethod, "Cheque"), "Invalid data format: Invalid PaymentMethod 'Cheque'."},
		"discount type":   {row("G", "A", "1", ColDiscountType, "bogus"), "Invalid data format: Invalid DiscountType 'bogus'. Use 'percentage' or 'fixed'."},
		"discount value":  {row("G", "A", "1", ColDiscountValue, "ten"), `Invalid data format: discount_value "ten" is not a number`},
		"shipping":        {row("G", "A", "1", ColShippingCharges, "1,5"), `Invalid data format: shipping_charges "1,5" is not a number`},
		"zero quantity":   {row("G", "A", "0"), "Invalid data format: item_quantity must be greater than 0, got 0"},
		"negative":        {row("G", "A", " -2 "), "Invalid data format: item_quantity must be greater than 0, got -2"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := parseRow(tc.row)
			if err == nil {
				t.Fatal("expected a parse error")
			}
			if code := pkgerrors.CodeOf(err); code != pkgerrors.CodeParse {
				t.Fatalf("expected parse code, got %s", code)
			}
			if msg := pkgerrors.MessageOf(err); msg != tc.want {
				t.Fatalf("unexpected message %q", msg)
			}
		})
	}

	parsed, err := parseRow(row("G", "A", "3", ColDiscountValue, "", ColShippingCharges, " "))
	if err != nil {
		t.Fatalf("parse row: %v", err)
	}
	if !parsed.header.DiscountValue.IsZero() || !parsed.header.ShippingCharges.IsZero() {
		t.Fatalf("expected blank amounts to be zero")
	}
	if parsed.header.DiscountType != nil {
		t.Fatalf("expected no discount type")
	}
	if parsed.item.quantity != 3 {
		t.Fatalf("expected quantity 3, got %d", parsed.item.quantity)
	}
}

func TestSummary(t *testing.T) {
	cases := []struct {
		created, failed int
		want            string
	}{
		{3, 0, "3 order(s) created successfully."},
		{1, 2, "1 order(s) created successfully. 2 row(s) corresponding to failed orders had errors."},
		{0, 2, "File processed, but 2 row(s) had errors. No orders were created."},
		{0, 0, "File processed. No valid orders found or created."},
	}
	for _, tc := range cases {
		if got := summary(tc.created, tc.failed); got != tc.want {
			t.Fatalf("summary(%d, %d) = %q, want %q", tc.created, tc.failed, got, tc.want)
		}
	}
}

func TestNewServiceRequiresDependencies(t *testing.T) {
	if _, err := NewService(ServiceParams{}); err == nil {
		t.Fatal("expected missing dependencies to fail")
	}
}
