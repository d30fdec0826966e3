package orders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/pagination"
)

// Repository defines persistence operations for orders and their items.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, order *models.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error)
	LockByID(ctx context.Context, id uuid.UUID, wait time.Duration) (*models.Order, error)
	List(ctx context.Context, params pagination.Params) (*pagination.Page[models.Order], error)
	UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an orders repository bound to the provided DB.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

// Create inserts the order together with its items.
func (r *repository) Create(ctx context.Context, order *models.Order) error {
	return r.db.WithContext(ctx).Create(order).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Order, error) {
	var order models.Order
	err := r.db.WithContext(ctx).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Items.Product").
		Where("id = ?", id).
		First(&order).Error
	if db.IsNotFound(err) {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Order with ID %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &order, nil
}

// LockByID takes the order row lock on Postgres, so concurrent status
// updates of one order serialize, then loads the order with its items.
func (r *repository) LockByID(ctx context.Context, id uuid.UUID, wait time.Duration) (*models.Order, error) {
	if db.IsPostgres(r.db) {
		query := r.db.WithContext(ctx)
		if wait > 0 {
			if err := query.Exec(fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", wait.Milliseconds())).Error; err != nil {
				return nil, err
			}
		}
		var locked models.Order
		err := query.Clauses(clause.Locking{Strength: clause.LockingStrengthUpdate}).
			Select("id").
			Where("id = ?", id).
			First(&locked).Error
		switch {
		case db.IsNotFound(err):
			return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "Order with ID %s not found", id)
		case db.IsLockTimeout(err):
			return nil, pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, fmt.Sprintf("timed out waiting for lock on order %s", id))
		case err != nil:
			return nil, err
		}
	}
	return r.FindByID(ctx, id)
}

// List returns orders newest first by order date.
func (r *repository) List(ctx context.Context, params pagination.Params) (*pagination.Page[models.Order], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	limit := pagination.NormalizeLimit(params.Limit)

	query := r.db.WithContext(ctx).Model(&models.Order{}).
		Preload("Items", func(tx *gorm.DB) *gorm.DB { return tx.Order("id ASC") }).
		Preload("Items.Product")
	if cursor != nil {
		query = query.Where("(order_date < ?) OR (order_date = ? AND id < ?)", cursor.At, cursor.At, cursor.ID)
	}

	var rows []models.Order
	if err := query.Order("order_date DESC").Order("id DESC").Limit(limit + 1).Find(&rows).Error; err != nil {
		return nil, err
	}

	page := &pagination.Page[models.Order]{Items: rows}
	if len(rows) > limit {
		page.Items = rows[:limit]
		last := page.Items[limit-1]
		page.NextCursor = pagination.EncodeCursor(pagination.Cursor{At: last.OrderDate, ID: last.ID})
	}
	return page, nil
}

func (r *repository) UpdateFields(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	if len(updates) == 0 {
		return nil
	}
	updates["updated_at"] = time.Now().UTC()
	res := r.db.WithContext(ctx).Model(&models.Order{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return pkgerrors.Newf(pkgerrors.CodeNotFound, "Order with ID %s not found", id)
	}
	return nil
}
