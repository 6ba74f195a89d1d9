package market

import (
	"errors"
	"net/http"
)

// Error kinds returned by the registry and ledgers.  Every failure is a value
// handed back to the caller; nothing in the ledger core retries or panics.
var (
	ErrNotFound                  = errors.New("entity not found")
	ErrDuplicateProject          = errors.New("project already registered")
	ErrInvalidTransition         = errors.New("invalid status transition")
	ErrInvalidAmount             = errors.New("invalid amount")
	ErrInvalidPrice              = errors.New("invalid price")
	ErrProjectNotVerified        = errors.New("project not verified")
	ErrInsufficientCredits       = errors.New("insufficient credits outstanding")
	ErrInsufficientListingAmount = errors.New("insufficient credits in listing")
	ErrListingInactive           = errors.New("listing not active")
	ErrDuplicateVerifier         = errors.New("verifier already registered")
	ErrVerifierInactive          = errors.New("verifier not active")
	ErrForbidden                 = errors.New("caller not authorized for entity")
)

// ValidationError reports a field that failed the registry's bounds checks.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

// NewValidationError builds a ValidationError for a named field.
func NewValidationError(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}

// HTTPStatus maps an error kind to the status code the API surface returns.
func HTTPStatus(err error) int {
	var vErr *ValidationError
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrDuplicateProject), errors.Is(err, ErrDuplicateVerifier):
		return http.StatusConflict
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrListingInactive),
		errors.Is(err, ErrProjectNotVerified),
		errors.Is(err, ErrInsufficientCredits),
		errors.Is(err, ErrInsufficientListingAmount),
		errors.Is(err, ErrVerifierInactive):
		return http.StatusConflict
	case errors.Is(err, ErrInvalidAmount), errors.Is(err, ErrInvalidPrice):
		return http.StatusBadRequest
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
