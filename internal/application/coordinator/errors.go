package coordinator

import "errors"

var (
	ErrValidation           = errors.New("validation failed")
	ErrUnauthenticated      = errors.New("Not authenticated")
	ErrForbiddenRole        = errors.New("Only sellers can list credits")
	ErrBusy                 = errors.New("Another operation is still in progress")
	ErrMissingIdentity      = errors.New("Authentication returned no user")
	ErrSignedOut            = errors.New("Signed out before the request finished")
	ErrUnknownView          = errors.New("Unknown view")
	ErrUnknownAuthMode      = errors.New("Unknown authentication mode")
	ErrPurchaseRolledBack   = errors.New("Purchase failed and was rolled back")
	ErrPurchaseInconsistent = errors.New("Purchase failed after the order was recorded")
)

// ValidationError names the field that failed a form constraint.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

// Is lets errors.Is(err, ErrValidation) match any ValidationError.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

func invalid(field, msg string) error {
	return &ValidationError{Field: field, Message: msg}
}
