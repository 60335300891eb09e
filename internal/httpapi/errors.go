package httpapi

import (
	"errors"
	"net/http"

	"github.com/marwick/ledger/internal/errs"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeErr(w http.ResponseWriter, status int, msg, code string) {
	toJSON(w, status, errorResponse{Error: msg, Code: code})
}

func badRequest(w http.ResponseWriter, msg string) { writeErr(w, http.StatusBadRequest, msg, "") }
func notFound(w http.ResponseWriter)               { writeErr(w, http.StatusNotFound, "not_found", "not_found") }

// respondErr maps domain errors onto HTTP statuses: missing → 404, ownership →
// 403, concurrent/duplicate → 409, broken invariants → 422, anything the
// caller got wrong → 400, and the rest → 500.
func respondErr(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, errs.ErrNotFound):
		notFound(w)
	case errors.Is(err, errs.ErrForbidden):
		writeErr(w, http.StatusForbidden, err.Error(), "forbidden")
	case errors.Is(err, errs.ErrConflict):
		writeErr(w, http.StatusConflict, err.Error(), "conflict")
	case errors.Is(err, errs.ErrSystemAccount):
		writeErr(w, http.StatusConflict, err.Error(), "system_account")
	case errors.Is(err, errs.ErrUnbalanced):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "unbalanced_transaction")
	case errors.Is(err, errs.ErrTooFewEntries):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "too_few_entries")
	case errors.Is(err, errs.ErrCurrencyMismatch):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "currency_mismatch")
	case errors.Is(err, errs.ErrInsufficientLots):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "insufficient_lots")
	case errors.Is(err, errs.ErrInsufficientQuantity):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "insufficient_quantity")
	case errors.Is(err, errs.ErrInvalidLotSelection):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "invalid_lot_selection")
	case errors.Is(err, errs.ErrInvalidLotOperation):
		writeErr(w, http.StatusUnprocessableEntity, err.Error(), "invalid_lot_operation")
	case errors.Is(err, errs.ErrInvalid):
		badRequest(w, err.Error())
	default:
		writeErr(w, http.StatusInternalServerError, "internal error", "internal")
	}
}
