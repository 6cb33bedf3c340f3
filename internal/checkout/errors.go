package checkout

import (
	"errors"
	"fmt"
)

var ErrNoOrdersReturned = errors.New("checkout returned no orders")

// ValidationError names the shipping field that failed client-side
// validation. It blocks submission before any network call.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
