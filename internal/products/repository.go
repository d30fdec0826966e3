// Package products owns product persistence: lookup by id or SKU, row
// locking, conditional stock updates, and the derived stock status.
package products

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/pagination"
)

// Store is the product surface the order engine depends on.
type Store interface {
	WithTx(tx *gorm.DB) Store
	FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error)
	FindBySKU(ctx context.Context, sku string) (*models.Product, error)
	LockByID(ctx context.Context, id uuid.UUID, wait time.Duration) (*models.Product, error)
	AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error)
}

type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// WithTx returns a repository bound to the provided transaction.
func (r *Repository) WithTx(tx *gorm.DB) Store {
	if tx == nil {
		return r
	}
	return &Repository{db: tx}
}

func (r *Repository) Create(ctx context.Context, product *models.Product) error {
	product.SKU = strings.TrimSpace(product.SKU)
	if product.SKU == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "sku is required")
	}
	if product.StockQuantity < 0 {
		return pkgerrors.New(pkgerrors.CodeValidation, "stock quantity cannot be negative")
	}
	if err := r.db.WithContext(ctx).Create(product).Error; err != nil {
		if db.IsUniqueViolation(err, "") {
			return pkgerrors.Wrap(pkgerrors.CodeConflict, err, fmt.Sprintf("product with sku %s already exists", product.SKU))
		}
		return err
	}
	return nil
}

// FindByID loads a product or fails with CodeNotFound.
func (r *Repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	var product models.Product
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&product).Error
	if db.IsNotFound(err) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Product with ID %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// FindBySKU loads a product by its SKU or fails with CodeNotFound.
func (r *Repository) FindBySKU(ctx context.Context, sku string) (*models.Product, error) {
	sku = strings.TrimSpace(sku)
	var product models.Product
	err := r.db.WithContext(ctx).Where("sku = ?", sku).First(&product).Error
	if db.IsNotFound(err) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Product with SKU '%s' not found", sku)
	}
	if err != nil {
		return nil, err
	}
	return &product, nil
}

// LockByID reads the product holding an exclusive row lock until the
// enclosing transaction ends. On Postgres the wait is bounded by wait; a
// timeout surfaces as CodeLockTimeout. Other dialects rely on
// database-level write serialization.
func (r *Repository) LockByID(ctx context.Context, id uuid.UUID, wait time.Duration) (*models.Product, error) {
	query := r.db.WithContext(ctx)
	if db.IsPostgres(r.db) {
		if wait > 0 {
			if err := query.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", wait.Milliseconds())).Error; err != nil {
				return nil, err
			}
		}
		query = query.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate})
	}

	var product models.Product
	err := query.Where("id = ?", id).First(&product).Error
	switch {
	case db.IsNotFound(err):
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Product with ID %s not found", id)
	case db.IsLockTimeout(err):
		return nil, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, fmt.Sprintf("timed out waiting for stock lock on product %s", id))
	case err != nil:
		return nil, err
	}
	return &product, nil
}

// AdjustStock adds delta to the stock counter unless the result would be
// negative. It reports false when the guard rejected the update.
func (r *Repository) AdjustStock(ctx context.Context, id uuid.UUID, delta int) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&models.Product{}).
		Where("id = ? AND stock_quantity + ? >= 0", id, delta).
		Updates(map[string]any{
			"stock_quantity": gorm.Expr("stock_quantity + ?", delta),
			"updated_at":     time.Now().UTC(),
		})
	if res.Error != nil {
		if db.IsLockTimeout(res.Error) {
			return false, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, res.Error, fmt.Sprintf("timed out updating stock on product %s", id))
		}
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// UpsertBySKU creates the product or refreshes its catalog fields when the
// SKU already exists. Stock is only set on insert.
func (r *Repository) UpsertBySKU(ctx context.Context, product *models.Product) (bool, error) {
	existing, err := r.FindBySKU(ctx, product.SKU)
	if err != nil && !pkgerrors.Is(err, pkgerrors.CodeNotFound) {
		return false, err
	}
	if existing == nil {
		return true, r.Create(ctx, product)
	}
	product.ID = existing.ID
	product.StockQuantity = existing.StockQuantity
	return false, r.db.WithContext(ctx).Model(existing).Updates(map[string]any{
		"name":          product.Name,
		"description":   product.Description,
		"category":      product.Category,
		"supplier":      product.Supplier,
		"reorder_level": product.ReorderLevel,
		"cost_price":    product.CostPrice,
		"selling_price": product.SellingPrice,
		"gst_rate":      product.GSTRate,
	}).Error
}

// List returns products newest first using keyset pagination.
func (r *Repository) List(ctx context.Context, params pagination.Params) (*pagination.Page[models.Product], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Product{})
	if cursor != nil {
		query = query.Where("(created_at < ?) OR (created_at = ? AND id < ?)", cursor.At, cursor.At, cursor.ID)
	}

	var rows []models.Product
	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &pagination.Page[models.Product]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{At: last.CreatedAt, ID: last.ID})
	}
	return page, nil
}
