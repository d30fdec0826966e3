package orders

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/stock"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/enums"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
)

// StockEffect is the inventory side effect of a status change.
type StockEffect int

const (
	EffectNone StockEffect = iota
	// EffectRestock returns every line quantity to stock.
	EffectRestock
	// EffectReopen takes every line quantity out of stock again.
	EffectReopen
)

// fulfillmentRank orders the forward path. Cancelled and Returned are off it.
var fulfillmentRank = map[enums.OrderStatus]int{
	enums.OrderStatusPending:    0,
	enums.OrderStatusProcessing: 1,
	enums.OrderStatusShipped:    2,
	enums.OrderStatusInTransit:  3,
	enums.OrderStatusDelivered:  4,
}

// PlanTransition checks that an order may move from one status to another
// and reports the stock effect of the move. Setting the current status again
// is allowed and has no effect.
func PlanTransition(from, to enums.OrderStatus) (StockEffect, error) {
	if !to.IsValid() {
		return EffectNone, pkgerrors.Newf(pkgerrors.CodeValidation, "invalid order status %q", to)
	}
	if from == to {
		return EffectNone, nil
	}
	if from == enums.OrderStatusDelivered {
		return EffectNone, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order is %s and can no longer change status", from)
	}

	switch {
	case to.IsRestocked() && from.IsRestocked():
		return EffectNone, nil
	case to.IsRestocked():
		return EffectRestock, nil
	case from.IsRestocked():
		return EffectReopen, nil
	}

	if fulfillmentRank[to] < fulfillmentRank[from] {
		return EffectNone, pkgerrors.Newf(pkgerrors.CodeStateConflict, "order cannot move back from %s to %s", from, to)
	}
	return EffectNone, nil
}

// applyStockEffect performs effect for every item of order through session.
// It must run inside the transaction that persists the new status.
func applyStockEffect(ctx context.Context, tx *gorm.DB, session *stock.Session, order *models.Order, effect StockEffect) error {
	if effect == EffectNone || len(order.Items) == 0 {
		return nil
	}

	ids := make([]uuid.UUID, 0, len(order.Items))
	for _, item := range order.Items {
		ids = append(ids, item.ProductID)
	}
	locked, err := session.LockAll(ctx, tx, ids)
	if err != nil {
		return err
	}

	orderID := order.ID
	for _, item := range order.Items {
		switch effect {
		case EffectRestock:
			err = session.Increment(ctx, tx, item.ProductID, item.Quantity, stock.Movement{OrderID: &orderID, Reason: enums.StockMovementOrderRestocked})
		case EffectReopen:
			err = session.Decrement(ctx, tx, item.ProductID, item.Quantity, stock.Movement{OrderID: &orderID, Reason: enums.StockMovementOrderReopened})
			if pkgerrors.Is(err, pkgerrors.CodeInsufficientStock) {
				return reopenFailure(err, order.Status, locked[item.ProductID])
			}
		}
		if err != nil {
			return err
		}
	}
	return nil
}

func reopenFailure(err error, from enums.OrderStatus, product *models.Product) error {
	action := "return"
	if from == enums.OrderStatusCancelled {
		action = "cancellation"
	}
	name := "product"
	if product != nil {
		name = product.Name
	}
	wrapped := pkgerrors.Wrap(pkgerrors.CodeInsufficientStock, err,
		"Cannot reverse "+action+" for "+name+". Not enough stock available.")
	if typed := pkgerrors.As(err); typed != nil {
		wrapped = wrapped.WithDetails(typed.Details())
	}
	return wrapped
}

func statusLabel(status enums.OrderStatus) string {
	return strings.ReplaceAll(strings.ToLower(string(status)), " ", "_")
}
