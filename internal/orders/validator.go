package orders

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/internal/products"
	"github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/db/models"
	pkgerrors "github.com/preetam988-sanks/AI-Based-Supply-Chain-Dashboard/pkg/errors"
)

type enumValue interface {
	IsValid() bool
}

func newStructValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		tag := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if tag == "" || tag == "-" {
			return f.Name
		}
		return tag
	})
	_ = v.RegisterValidation("enum", func(fl validator.FieldLevel) bool {
		value, ok := fl.Field().Interface().(enumValue)
		return ok && value.IsValid()
	})
	return v
}

// Validator performs the pre-lock checks of an order request. Stock is
// checked again under lock when the order is placed.
type Validator struct {
	products products.Store
	validate *validator.Validate
}

func NewValidator(store products.Store) *Validator {
	return &Validator{products: store, validate: newStructValidator()}
}

// CheckInput validates the request shape without touching storage.
func (v *Validator) CheckInput(input CreateOrderInput) error {
	if len(input.Items) == 0 {
		return pkgerrors.New(pkgerrors.CodeEmptyOrder, "An order must contain at least one item.")
	}
	if err := v.validate.Struct(input); err != nil {
		return formatValidationErrors(err)
	}
	if input.Status.IsRestocked() {
		return pkgerrors.Newf(pkgerrors.CodeValidation, "an order cannot be created with status %s", input.Status)
	}
	if input.ShippingCharges.IsNegative() {
		return pkgerrors.New(pkgerrors.CodeValidation, "shipping charges cannot be negative")
	}
	return nil
}

// Check validates input and resolves every referenced product through tx.
// Requested quantities are summed per product before comparing to stock.
func (v *Validator) Check(ctx context.Context, tx *gorm.DB, input CreateOrderInput) (map[uuid.UUID]*models.Product, error) {
	if err := v.CheckInput(input); err != nil {
		return nil, err
	}

	store := v.products.WithTx(tx)
	resolved := make(map[uuid.UUID]*models.Product, len(input.Items))
	demand := make(map[uuid.UUID]int, len(input.Items))
	for _, line := range input.Items {
		product, ok := resolved[line.ProductID]
		if !ok {
			found, err := store.FindByID(ctx, line.ProductID)
			if err != nil {
				return nil, err
			}
			if !found.HasPricing() {
				return nil, incompletePricing(found)
			}
			product = found
			resolved[line.ProductID] = product
		}
		demand[line.ProductID] += line.Quantity
		if product.StockQuantity < demand[line.ProductID] {
			return nil, insufficientStock(product, demand[line.ProductID])
		}
	}
	return resolved, nil
}

func incompletePricing(product *models.Product) error {
	return pkgerrors.Newf(pkgerrors.CodeIncompletePricing,
		"Product '%s' is missing selling price or GST rate.", product.Name).
		WithDetails(map[string]any{"product_id": product.ID.String(), "sku": product.SKU})
}

func insufficientStock(product *models.Product, requested int) error {
	return pkgerrors.Newf(pkgerrors.CodeInsufficientStock,
		"Not enough stock for %s. Available: %d, Requested: %d", product.Name, product.StockQuantity, requested).
		WithDetails(map[string]any{
			"product_id": product.ID.String(),
			"sku":        product.SKU,
			"available":  product.StockQuantity,
			"requested":  requested,
		})
}

func formatValidationErrors(err error) *pkgerrors.Error {
	var errs validator.ValidationErrors
	if !errors.As(err, &errs) {
		return pkgerrors.Wrap(pkgerrors.CodeValidation, err, "validation failed")
	}
	details := make(map[string]string, len(errs))
	parts := make([]string, 0, len(errs))
	for _, fieldErr := range errs {
		field := fieldPath(fieldErr)
		msg := validationMessage(fieldErr)
		details[field] = msg
		parts = append(parts, field+" "+msg)
	}
	return pkgerrors.New(pkgerrors.CodeValidation, strings.Join(parts, "; ")).WithDetails(details)
}

func fieldPath(fe validator.FieldError) string {
	ns := fe.Namespace()
	if idx := strings.Index(ns, "."); idx >= 0 {
		return ns[idx+1:]
	}
	return fe.Field()
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "email":
		return "must be a valid email"
	case "enum":
		return fmt.Sprintf("has unsupported value %v", fe.Value())
	}
	return "is invalid"
}
