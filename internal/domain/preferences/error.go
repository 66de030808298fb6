package preferences

import "errors"

var (
	ErrNotFound     = errors.New("preferences not found")
	ErrInvalidInput = errors.New("invalid preferences")
)
