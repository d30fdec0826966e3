package orders

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/products"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/stock"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/dbtest"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/metrics"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/outbox"
)

type fixture struct {
	conn     *gorm.DB
	products *products.Repository
	svc      *Service
	reg      *prometheus.Registry
}

type fixtureOption func(*ServiceParams)

func withOutbox(publisher outboxPublisher) fixtureOption {
	return func(p *ServiceParams) { p.Outbox = publisher }
}

func newFixture(t *testing.T, opts ...fixtureOption) *fixture {
	t.Helper()
	conn := dbtest.Open(t)
	productRepo := products.NewRepository(conn)
	ledger, err := stock.NewLedger(productRepo, 2*time.Second, nil)
	if err != nil {
		t.Fatalf("new ledger: %v", err)
	}
	reg := prometheus.NewRegistry()
	params := ServiceParams{
		Repo:     NewRepository(conn),
		Products: productRepo,
		Tx:       db.NewFromGorm(conn),
		Ledger:   ledger,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), nil),
		Metrics:  metrics.NewOrderMetrics(reg),
		LockWait: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(&params)
	}
	svc, err := NewService(params)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return &fixture{conn: conn, products: productRepo, svc: svc, reg: reg}
}

func (f *fixture) product(t *testing.T, name, sku, price, gst string, stockQty int) *models.Product {
	t.Helper()
	p := &models.Product{Name: name, SKU: sku, StockQuantity: stockQty}
	if price != "" {
		p.SellingPrice = decimal.NewNullDecimal(decimal.RequireFromString(price))
	}
	if gst != "" {
		p.GSTRate = decimal.NewNullDecimal(decimal.RequireFromString(gst))
	}
	if err := f.products.Create(context.Background(), p); err != nil {
		t.Fatalf("create product %s: %v", sku, err)
	}
	return p
}

func (f *fixture) stockOf(t *testing.T, id uuid.UUID) int {
	t.Helper()
	p, err := f.products.FindByID(context.Background(), id)
	if err != nil {
		t.Fatalf("find product: %v", err)
	}
	return p.StockQuantity
}

func (f *fixture) count(t *testing.T, model any) int64 {
	t.Helper()
	var n int64
	if err := f.conn.Model(model).Count(&n).Error; err != nil {
		t.Fatalf("count: %v", err)
	}
	return n
}

// counter returns the value of the counter series matching labels, or 0.
func (f *fixture) counter(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := f.reg.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, family := range families {
		if family.GetName() != name {
			continue
		}
		for _, metric := range family.GetMetric() {
			if matchLabels(metric, labels) {
				return metric.GetCounter().GetValue()
			}
		}
	}
	return 0
}

func matchLabels(metric *dto.Metric, labels map[string]string) bool {
	pairs := metric.GetLabel()
	if len(pairs) != len(labels) {
		return false
	}
	for _, pair := range pairs {
		if labels[pair.GetName()] != pair.GetValue() {
			return false
		}
	}
	return true
}

func input(items ...LineInput) CreateOrderInput {
	return CreateOrderInput{
		CustomerName:    "Asha Rao",
		CustomerEmail:   "asha@example.com",
		ShippingAddress: "12 MG Road, Pune",
		PaymentMethod:   enums.PaymentMethodUPI,
		Items:           items,
	}
}

func line(p *models.Product, qty int) LineInput {
	return LineInput{ProductID: p.ID, Quantity: qty}
}

func ptr[T any](v T) *T {
	return &v
}
