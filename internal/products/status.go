package products

import (
	"context"

	"github.com/google/uuid"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/pagination"
)

// StockStatusFor derives the stock status of a quantity against the
// low-stock threshold.
func StockStatusFor(quantity, threshold int) enums.StockStatus {
	switch {
	case quantity <= 0:
		return enums.StockStatusOutOfStock
	case quantity <= threshold:
		return enums.StockStatusLowStock
	default:
		return enums.StockStatusInStock
	}
}

// View is a product as returned by read paths, with its derived status.
type View struct {
	models.Product
	StockStatus enums.StockStatus
}

type thresholdSource interface {
	LowStockThreshold(ctx context.Context, fallback int) (int, error)
}

// ReadService serves product reads with the stock status projection applied.
type ReadService struct {
	repo      *Repository
	settings  thresholdSource
	threshold int
}

func NewReadService(repo *Repository, settings thresholdSource, defaultThreshold int) *ReadService {
	return &ReadService{repo: repo, settings: settings, threshold: defaultThreshold}
}

func (s *ReadService) currentThreshold(ctx context.Context) (int, error) {
	if s.settings == nil {
		return s.threshold, nil
	}
	return s.settings.LowStockThreshold(ctx, s.threshold)
}

func (s *ReadService) Get(ctx context.Context, id uuid.UUID) (*View, error) {
	product, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	threshold, err := s.currentThreshold(ctx)
	if err != nil {
		return nil, err
	}
	return &View{Product: *product, StockStatus: StockStatusFor(product.StockQuantity, threshold)}, nil
}

func (s *ReadService) List(ctx context.Context, params pagination.Params) (*pagination.Page[View], error) {
	page, err := s.repo.List(ctx, params)
	if err != nil {
		return nil, err
	}
	threshold, err := s.currentThreshold(ctx)
	if err != nil {
		return nil, err
	}
	out := &pagination.Page[View]{Items: make([]View, len(page.Items)), NextCursor: page.NextCursor}
	for i, p := range page.Items {
		out.Items[i] = View{Product: p, StockStatus: StockStatusFor(p.StockQuantity, threshold)}
	}
	return out, nil
}
