// Package stock serializes and applies changes to product stock counters.
//
// A Session is the lock scope of one unit of work. Locks taken through a
// Session are held until Release, which callers defer until after the
// enclosing transaction has committed or rolled back.
package stock

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/products"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/logger"
)

// DefaultLockWait bounds lock acquisition when no wait is configured.
const DefaultLockWait = 5 * time.Second

// Movement attributes a stock change for the audit trail.
type Movement struct {
	OrderID *uuid.UUID
	Reason  enums.StockMovementReason
}

type Ledger struct {
	products products.Store
	locks    *lockTable
	wait     time.Duration
	logg     *logger.Logger
}

func NewLedger(store products.Store, wait time.Duration, logg *logger.Logger) (*Ledger, error) {
	if store == nil {
		return nil, fmt.Errorf("product store required")
	}
	if wait <= 0 {
		wait = DefaultLockWait
	}
	if logg == nil {
		logg = logger.Nop()
	}
	return &Ledger{
		products: store,
		locks:    newLockTable(),
		wait:     wait,
		logg:     logg,
	}, nil
}

// NewSession opens a lock scope. Sessions are not reusable after Release.
func (l *Ledger) NewSession() *Session {
	return &Session{ledger: l, held: make(map[uuid.UUID]struct{})}
}

type Session struct {
	ledger *Ledger

	mu       sync.Mutex
	held     map[uuid.UUID]struct{}
	order    []uuid.UUID
	released bool
}

// SortIDs returns ids deduplicated in ascending byte order, the global lock
// acquisition order.
func SortIDs(ids []uuid.UUID) []uuid.UUID {
	out := slices.Clone(ids)
	slices.SortFunc(out, func(a, b uuid.UUID) int { return bytes.Compare(a[:], b[:]) })
	return slices.Compact(out)
}

// LockAndGet acquires the exclusive lock on productID (re-entrant within the
// session) and returns the product as currently stored.
func (s *Session) LockAndGet(ctx context.Context, tx *gorm.DB, productID uuid.UUID) (*models.Product, error) {
	if err := s.acquire(ctx, productID); err != nil {
		return nil, err
	}
	return s.ledger.products.WithTx(tx).LockByID(ctx, productID, s.ledger.wait)
}

// LockAll locks every id in ascending order and returns the locked products
// keyed by id.
func (s *Session) LockAll(ctx context.Context, tx *gorm.DB, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error) {
	locked := make(map[uuid.UUID]*models.Product, len(ids))
	for _, id := range SortIDs(ids) {
		product, err := s.LockAndGet(ctx, tx, id)
		if err != nil {
			return nil, err
		}
		locked[id] = product
	}
	return locked, nil
}

// Decrement removes qty units from productID. It fails with
// CodeInsufficientStock when fewer than qty units are available.
func (s *Session) Decrement(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, mv Movement) error {
	if qty <= 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "decrement quantity must be positive, got %d", qty)
	}
	return s.adjust(ctx, tx, productID, -qty, mv)
}

// Increment returns qty units to productID. There is no upper bound.
func (s *Session) Increment(ctx context.Context, tx *gorm.DB, productID uuid.UUID, qty int, mv Movement) error {
	if qty <= 0 {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "increment quantity must be positive, got %d", qty)
	}
	return s.adjust(ctx, tx, productID, qty, mv)
}

func (s *Session) adjust(ctx context.Context, tx *gorm.DB, productID uuid.UUID, delta int, mv Movement) error {
	if !s.holds(productID) {
		return pkgerrors.Newf(pkgerrors.CodeInternal, "stock change on product %s without holding its lock", productID)
	}
	store := s.ledger.products.WithTx(tx)

	ok, err := store.AdjustStock(ctx, productID, delta)
	if err != nil {
		return err
	}
	if !ok {
		current, findErr := store.FindByID(ctx, productID)
		if findErr != nil {
			return findErr
		}
		return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
			"Not enough stock for %s. Available: %d, Requested: %d", current.Name, current.StockQuantity, -delta).
			WithDetails(map[string]any{
				"product_id": productID.String(),
				"sku":        current.SKU,
				"available":  current.StockQuantity,
				"requested":  -delta,
			})
	}

	movement := models.StockMovement{
		ProductID: productID,
		OrderID:   mv.OrderID,
		Delta:     delta,
		Reason:    mv.Reason,
	}
	if err := tx.WithContext(ctx).Create(&movement).Error; err != nil {
		return fmt.Errorf("record stock movement: %w", err)
	}
	return nil
}

// Release frees every lock held by the session. It is safe to call more than once.
func (s *Session) Release() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		return
	}
	s.released = true
	for i := len(s.order) - 1; i >= 0; i-- {
		s.ledger.locks.release(s.order[i])
	}
	s.order = nil
	clear(s.held)
}

func (s *Session) holds(id uuid.UUID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.held[id]
	return ok
}

func (s *Session) acquire(ctx context.Context, id uuid.UUID) error {
	s.mu.Lock()
	if s.released {
		s.mu.Unlock()
		return pkgerrors.New(pkgerrors.CodeInternal, "stock session already released")
	}
	if _, ok := s.held[id]; ok {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	if err := s.ledger.locks.acquire(ctx, id, s.ledger.wait); err != nil {
		logCtx := s.ledger.logg.WithProductID(ctx, id.String())
		s.ledger.logg.Warn(logCtx, "stock lock wait exceeded")
		if errors.Is(err, errLockWaitExceeded) {
			return pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, fmt.Sprintf("timed out waiting for stock lock on product %s", id))
		}
		return pkgerrors.Wrap(pkgerrors.CodeLockTimeout, err, fmt.Sprintf("stopped waiting for stock lock on product %s", id))
	}

	s.mu.Lock()
	s.held[id] = struct{}{}
	s.order = append(s.order, id)
	s.mu.Unlock()
	return nil
}
