package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
	"testing"
)

func TestMetadataForKnownCodes(t *testing.T) {
	tests := []struct {
		code      Code
		status    int
		retryable bool
		detailsOK bool
	}{
		{code: CodeValidation, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeNotFound, status: http.StatusNotFound},
		{code: CodeStateConflict, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeInternal, status: http.StatusInternalServerError, retryable: true},
		{code: CodeIncompletePricing, status: http.StatusUnprocessableEntity, detailsOK: true},
		{code: CodeInsufficientStock, status: http.StatusConflict, detailsOK: true},
		{code: CodeInvalidDiscount, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeEmptyOrder, status: http.StatusBadRequest},
		{code: CodeEmptyBatch, status: http.StatusBadRequest},
		{code: CodeParse, status: http.StatusBadRequest, detailsOK: true},
		{code: CodeLockTimeout, status: http.StatusServiceUnavailable, retryable: true},
		{code: CodePersistence, status: http.StatusInternalServerError},
	}

	for _, tt := range tests {
		meta := MetadataFor(tt.code)
		if meta.HTTPStatus != tt.status {
			t.Fatalf("code %s expected status %d got %d", tt.code, tt.status, meta.HTTPStatus)
		}
		if meta.PublicMessage == "" {
			t.Fatalf("code %s missing public message", tt.code)
		}
		if meta.Retryable != tt.retryable {
			t.Fatalf("code %s expected retryable %v got %v", tt.code, tt.retryable, meta.Retryable)
		}
		if meta.DetailsAllowed != tt.detailsOK {
			t.Fatalf("code %s expected details allowed %v got %v", tt.code, tt.detailsOK, meta.DetailsAllowed)
		}
	}
}

func TestMetadataForUnknownCodeDefaultsToInternal(t *testing.T) {
	meta := MetadataFor("SOMETHING_UNKNOWN")
	if meta.HTTPStatus != http.StatusInternalServerError {
		t.Fatalf("expected internal status, got %d", meta.HTTPStatus)
	}
}

func TestErrorConstructors(t *testing.T) {
	base := Newf(CodeInsufficientStock, "Not enough stock for %s. Available: %d, Requested: %d", "Widget", 1, 3)
	if base.Code() != CodeInsufficientStock {
		t.Fatalf("unexpected code %s", base.Code())
	}
	if base.Message() != "Not enough stock for Widget. Available: 1, Requested: 3" {
		t.Fatalf("unexpected message %q", base.Message())
	}
	if base.Details() != nil {
		t.Fatalf("details should be nil by default")
	}
	base.WithDetails(map[string]any{"sku": "W-1"})
	if base.Details() == nil {
		t.Fatalf("details should be preserved")
	}

	cause := stdErrors.New("boom")
	wrapped := Wrap(CodePersistence, cause, "commit failed")
	if !stdErrors.Is(wrapped, cause) {
		t.Fatalf("Wrap did not preserve cause")
	}
	if wrapped.Retryable() {
		t.Fatalf("persistence failures are not retryable")
	}
	if !New(CodeLockTimeout, "busy").Retryable() {
		t.Fatalf("lock timeouts are retryable")
	}
}

func TestAsAndHelpersSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", New(CodeEmptyOrder, "no items"))
	if got := As(err); got == nil || got.Code() != CodeEmptyOrder {
		t.Fatalf("As failed to return typed error")
	}
	if !Is(err, CodeEmptyOrder) || Is(err, CodeNotFound) {
		t.Fatalf("Is mismatched code")
	}
	if CodeOf(stdErrors.New("plain")) != CodeInternal {
		t.Fatalf("untyped errors map to internal")
	}
	if MessageOf(err) != "no items" {
		t.Fatalf("unexpected message %q", MessageOf(err))
	}
	if MessageOf(stdErrors.New("plain")) != "plain" {
		t.Fatalf("untyped message should be error text")
	}
	if As(nil) != nil {
		t.Fatalf("As(nil) should return nil")
	}
}
