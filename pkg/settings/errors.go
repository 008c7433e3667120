package settings

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound           = errors.New("settings: no record for guild")
	ErrAlreadyExists      = errors.New("settings: record already exists")
	ErrStorageUnavailable = errors.New("settings: storage unavailable")
	ErrUnknownDomain      = errors.New("settings: unknown domain")
)

// ValidationError reports a rejected field value. Nothing is written when it is returned.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Message)
}

// AsValidationError unwraps err into a *ValidationError when possible.
func AsValidationError(err error) (*ValidationError, bool) {
	var ve *ValidationError
	if errors.As(err, &ve) {
		return ve, true
	}
	return nil, false
}
