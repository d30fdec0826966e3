// Package repo holds the connection plumbing shared by the gorm repositories.
package repo

import (
	"context"

	"gorm.io/gorm"
)

// Base carries the connection a repository reads and writes through.
type Base struct {
	db *gorm.DB
}

func NewBase(db *gorm.DB) Base {
	return Base{db: db}
}

// DB returns the connection bound to ctx. A nil ctx returns it unbound.
func (b Base) DB(ctx context.Context) *gorm.DB {
	if ctx == nil {
		return b.db
	}
	return b.db.WithContext(ctx)
}

// Bound returns a copy that runs on tx. A nil tx keeps the receiver.
func (b Base) Bound(tx *gorm.DB) Base {
	if tx == nil {
		return b
	}
	return Base{db: tx}
}
