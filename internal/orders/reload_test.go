package orders

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
)

var errReadUnavailable = errors.New("read replica unavailable")

// failingReads serves transactional work from the real repository but fails
// every read made outside a transaction.
type failingReads struct {
	Repository
}

func (f failingReads) FindByID(context.Context, uuid.UUID) (*models.Order, error) {
	return nil, errReadUnavailable
}

func withFailingReads() fixtureOption {
	return func(p *ServiceParams) { p.Repo = failingReads{Repository: p.Repo} }
}

func TestCreateOrderReportsCommittedOrderWhenReloadFails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, withFailingReads())
	a := f.product(t, "Widget A", "A-1", "100", "18", 5)

	order, err := f.svc.CreateOrder(ctx, input(line(a, 2)))
	if err != nil {
		t.Fatalf("committed order reported as failure: %v", err)
	}
	if order == nil || order.ID == uuid.Nil {
		t.Fatalf("expected the committed order, got %+v", order)
	}
	if len(order.Items) != 1 || order.Items[0].Quantity != 2 {
		t.Fatalf("expected committed items on the returned order, got %+v", order.Items)
	}
	if got := f.count(t, &models.Order{}); got != 1 {
		t.Fatalf("expected 1 order row, got %d", got)
	}
	if got := f.stockOf(t, a.ID); got != 3 {
		t.Fatalf("expected stock 3, got %d", got)
	}
}

func TestUpdateOrderReportsCommittedChangeWhenReloadFails(t *testing.T) {
	ctx := context.Background()
	seed := newFixture(t)
	a := seed.product(t, "Widget A", "A-1", "100", "18", 5)
	placed, err := seed.svc.CreateOrder(ctx, input(line(a, 2)))
	if err != nil {
		t.Fatalf("create order: %v", err)
	}

	flaky := *seed.svc
	flaky.repo = failingReads{Repository: seed.svc.repo}

	updated, err := flaky.UpdateOrder(ctx, placed.ID, UpdateOrderInput{
		Status:           ptr(enums.OrderStatusCancelled),
		TrackingID:       ptr(" TRK-9 "),
		ShippingProvider: ptr(""),
	})
	if err != nil {
		t.Fatalf("committed update reported as failure: %v", err)
	}
	if updated.Status != enums.OrderStatusCancelled {
		t.Fatalf("expected Cancelled, got %s", updated.Status)
	}
	if updated.TrackingID == nil || *updated.TrackingID != "TRK-9" {
		t.Fatalf("expected trimmed tracking id, got %v", updated.TrackingID)
	}
	if updated.ShippingProvider != nil {
		t.Fatalf("expected shipping provider cleared, got %v", *updated.ShippingProvider)
	}
	if got := seed.stockOf(t, a.ID); got != 5 {
		t.Fatalf("expected stock restored to 5, got %d", got)
	}
}
