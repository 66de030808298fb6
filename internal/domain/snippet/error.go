package snippet

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound     = errors.New("snippet not found")
	ErrInvalidInput = errors.New("invalid snippet input")
	ErrForbidden    = errors.New("snippet belongs to another user")
)

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
