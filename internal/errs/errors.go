package errs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	ErrConflict  = errors.New("conflict")
	ErrInvalid   = errors.New("invalid")
	// ErrCurrencyMismatch signals arithmetic between two Money values of different currencies.
	ErrCurrencyMismatch = errors.New("currency_mismatch")
	// ErrTooFewEntries signals a transaction with fewer than two entries.
	ErrTooFewEntries = errors.New("too_few_entries")
	// ErrUnbalanced signals sum(debits) != sum(credits) for some currency.
	ErrUnbalanced = errors.New("unbalanced_transaction")
	// ErrInsufficientLots signals a sale larger than the eligible open quantity.
	ErrInsufficientLots = errors.New("insufficient_lots")
	// ErrInsufficientQuantity signals a lot sale larger than the lot's remaining quantity.
	ErrInsufficientQuantity = errors.New("insufficient_quantity")
	// ErrInvalidLotSelection signals a specific-ID selection naming an unusable lot.
	ErrInvalidLotSelection = errors.New("invalid_lot_selection")
	// ErrInvalidLotOperation signals a lot mutation that violates lot invariants
	// (e.g. disposing before acquisition).
	ErrInvalidLotOperation = errors.New("invalid_lot_operation")
	// ErrSystemAccount indicates a system account cannot be modified/deactivated.
	ErrSystemAccount = errors.New("system_account")
)

// UnbalancedTransactionError reports the per-currency imbalance that failed
// transaction validation.
type UnbalancedTransactionError struct {
	Currency string
	Debits   decimal.Decimal
	Credits  decimal.Decimal
}

func (e *UnbalancedTransactionError) Error() string {
	return fmt.Sprintf("unbalanced transaction: %s debits %s != credits %s (imbalance %s)",
		e.Currency, e.Debits, e.Credits, e.Imbalance())
}

func (e *UnbalancedTransactionError) Unwrap() error { return ErrUnbalanced }

// Imbalance returns debits minus credits.
func (e *UnbalancedTransactionError) Imbalance() decimal.Decimal { return e.Debits.Sub(e.Credits) }

// InsufficientLotsError reports requested vs available quantity for a sale.
type InsufficientLotsError struct {
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientLotsError) Error() string {
	return fmt.Sprintf("insufficient lots: requested %s, available %s", e.Requested, e.Available)
}

func (e *InsufficientLotsError) Unwrap() error { return ErrInsufficientLots }

// InsufficientQuantityError reports a single-lot oversell.
type InsufficientQuantityError struct {
	LotID     uuid.UUID
	Requested decimal.Decimal
	Remaining decimal.Decimal
}

func (e *InsufficientQuantityError) Error() string {
	return fmt.Sprintf("lot %s: cannot sell %s, only %s remaining", e.LotID, e.Requested, e.Remaining)
}

func (e *InsufficientQuantityError) Unwrap() error { return ErrInsufficientQuantity }

// InvalidLotSelectionError distinguishes a missing lot from one that is
// already fully disposed, so callers can react differently.
type InvalidLotSelectionError struct {
	LotID  uuid.UUID
	Reason string
}

func (e *InvalidLotSelectionError) Error() string {
	return fmt.Sprintf("lot %s: %s", e.LotID, e.Reason)
}

func (e *InvalidLotSelectionError) Unwrap() error { return ErrInvalidLotSelection }
