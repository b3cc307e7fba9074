package httpx

import (
	"errors"
	"net/http"

	"github.com/go-playground/validator/v10"

	"github.com/caravel-dms/caravel/internal/shared"
)

// RespondError maps domain errors to HTTP responses using RFC7807.
// Every failure names the offending entity; the operators reconcile money
// and inventory against these messages.
func RespondError(w http.ResponseWriter, err error) {
	var (
		validationErr  *shared.ValidationError
		stockErr       *shared.InsufficientStockError
		overpaymentErr *shared.OverpaymentError
		transitionErr  *shared.InvalidTransitionError
		fieldErrs      validator.ValidationErrors
	)
	switch {
	case errors.Is(err, shared.ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.As(err, &validationErr):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &fieldErrs):
		Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.As(err, &stockErr):
		Problem(w, http.StatusUnprocessableEntity, "Insufficient Stock", err.Error())
	case errors.As(err, &overpaymentErr):
		Problem(w, http.StatusUnprocessableEntity, "Overpayment", err.Error())
	case errors.As(err, &transitionErr):
		Problem(w, http.StatusConflict, "Invalid Transition", err.Error())
	case errors.Is(err, shared.ErrConcurrencyConflict):
		Problem(w, http.StatusConflict, "Concurrency Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		Problem(w, http.StatusConflict, "Duplicate Request", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
