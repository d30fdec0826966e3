// Package settings reads and writes runtime key/value settings.
package settings

import (
	"context"
	"strconv"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/repo"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
)

// KeyLowStockThreshold holds the quantity at or below which a product is low on stock.
const KeyLowStockThreshold = "LOW_STOCK_THRESHOLD"

type Repository struct {
	repo.Base
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{Base: repo.NewBase(db)}
}

// WithTx returns a repository that reads and writes through tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return &Repository{Base: r.Bound(tx)}
}

// Get returns the value stored for key and whether it exists.
func (r *Repository) Get(ctx context.Context, key string) (string, bool, error) {
	var row models.AppSetting
	err := r.DB(ctx).Where("key = ?", key).First(&row).Error
	if db.IsNotFound(err) {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return row.Value, true, nil
}

// Set inserts or replaces the value stored for key.
func (r *Repository) Set(ctx context.Context, key, value string) error {
	row := models.AppSetting{Key: key, Value: value}
	return r.DB(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&row).Error
}

// LowStockThreshold returns the configured threshold, or fallback when the
// setting is missing or not a non-negative integer.
func (r *Repository) LowStockThreshold(ctx context.Context, fallback int) (int, error) {
	raw, ok, err := r.Get(ctx, KeyLowStockThreshold)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	n, convErr := strconv.Atoi(strings.TrimSpace(raw))
	if convErr != nil || n < 0 {
		return fallback, nil
	}
	return n, nil
}
