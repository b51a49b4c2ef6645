package cart

import (
	"errors"
	"fmt"
)

// EngineErrorCode categorizes failures the engine detects locally - none of
// these ever produce a network call.
type EngineErrorCode string

const (
	// ErrCodeQuantityTooLow: setQuantity below 1. The engine never
	// auto-deletes a line through a quantity change; removal is its own
	// operation.
	ErrCodeQuantityTooLow EngineErrorCode = "QUANTITY_TOO_LOW"

	// ErrCodeNotReady: a mutation arrived while the replica is not in a
	// usable state (never loaded, loading, or a failed load).
	ErrCodeNotReady EngineErrorCode = "NOT_READY"

	// ErrCodeUnknownLine: the referenced product id has no line in the
	// replica.
	ErrCodeUnknownLine EngineErrorCode = "UNKNOWN_LINE"

	// ErrCodeUnknownProduct: the catalog has no entry for the product id,
	// so no price snapshot can be taken.
	ErrCodeUnknownProduct EngineErrorCode = "UNKNOWN_PRODUCT"

	// ErrCodeClosed: the engine was shut down.
	ErrCodeClosed EngineErrorCode = "ENGINE_CLOSED"
)

// EngineError is a locally-detected, locally-resolved failure.
type EngineError struct {
	Code    EngineErrorCode
	Message string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func engineErrIs(err error, code EngineErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsQuantityTooLow reports a rejected quantity below 1.
func IsQuantityTooLow(err error) bool { return engineErrIs(err, ErrCodeQuantityTooLow) }

// IsNotReady reports a mutation rejected because the replica is unusable.
func IsNotReady(err error) bool { return engineErrIs(err, ErrCodeNotReady) }

// IsUnknownLine reports a mutation against a product with no cart line.
func IsUnknownLine(err error) bool { return engineErrIs(err, ErrCodeUnknownLine) }

// IsUnknownProduct reports an add against a product the catalog lacks.
func IsUnknownProduct(err error) bool { return engineErrIs(err, ErrCodeUnknownProduct) }

func newQuantityTooLowError(quantity int) *EngineError {
	return &EngineError{
		Code:    ErrCodeQuantityTooLow,
		Message: fmt.Sprintf("quantity must be at least 1, got %d (use remove to delete a line)", quantity),
	}
}

func newNotReadyError(state State) *EngineError {
	return &EngineError{
		Code:    ErrCodeNotReady,
		Message: fmt.Sprintf("cart is %s - load it before mutating", state),
	}
}

func newUnknownLineError(productID string) *EngineError {
	return &EngineError{
		Code:    ErrCodeUnknownLine,
		Message: fmt.Sprintf("no cart line for product %q", productID),
	}
}

func newUnknownProductError(productID string) *EngineError {
	return &EngineError{
		Code:    ErrCodeUnknownProduct,
		Message: fmt.Sprintf("product %q is not in the catalog", productID),
	}
}

var errClosed = &EngineError{Code: ErrCodeClosed, Message: "engine is closed"}
