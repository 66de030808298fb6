package gateway

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrTransient covers transport failures and 5xx answers. Retrying later may succeed.
	ErrTransient = errors.New("remote temporarily unavailable")

	ErrUnauthorized     = errors.New("unauthorized")
	ErrNotAuthenticated = errors.New("not signed in")
)

// RemoteError is a 4xx answer: the server understood and refused.
type RemoteError struct {
	Status  int
	Message string
}

func (e *RemoteError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("remote error: %s", http.StatusText(e.Status))
	}
	return fmt.Sprintf("remote error (%d): %s", e.Status, e.Message)
}

func (e *RemoteError) Unwrap() error {
	if e.Status == http.StatusUnauthorized {
		return ErrUnauthorized
	}
	return nil
}

func IsNotFound(err error) bool {
	var re *RemoteError
	return errors.As(err, &re) && re.Status == http.StatusNotFound
}

func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}
