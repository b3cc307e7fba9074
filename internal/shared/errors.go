package shared

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrNotFound indicates resource not found.
var ErrNotFound = errors.New("not found")

// ErrConcurrencyConflict indicates a lost-update detected by an optimistic check.
var ErrConcurrencyConflict = errors.New("concurrent modification detected")

// ValidationError reports malformed input. Field may be empty when the
// problem concerns the request as a whole.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return fmt.Sprintf("validation: %s", e.Reason)
	}
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Reason)
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

// InsufficientStockError reports a movement or order line that would drive a
// product's stock below zero. It always names the offending product.
type InsufficientStockError struct {
	ProductID   int64
	ProductName string
	Requested   float64
	Available   float64
}

func (e *InsufficientStockError) Error() string {
	name := e.ProductName
	if name == "" {
		name = fmt.Sprintf("product %d", e.ProductID)
	}
	return fmt.Sprintf("insufficient stock for %s: requested %.2f, available %.2f", name, e.Requested, e.Available)
}

// OverpaymentError reports a payment exceeding an order's remaining amount.
type OverpaymentError struct {
	OrderID     int64
	OrderNumber string
	Amount      decimal.Decimal
	Remaining   decimal.Decimal
}

func (e *OverpaymentError) Error() string {
	ref := e.OrderNumber
	if ref == "" {
		ref = fmt.Sprintf("order %d", e.OrderID)
	}
	return fmt.Sprintf("payment of %s exceeds remaining %s on %s", e.Amount.StringFixed(2), e.Remaining.StringFixed(2), ref)
}

// InvalidTransitionError reports a delivery state machine misuse.
type InvalidTransitionError struct {
	OrderID int64
	From    string
	Op      string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("order %d: cannot %s from status %s", e.OrderID, e.Op, e.From)
}
