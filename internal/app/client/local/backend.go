package local

import (
	"errors"
)

var (
	ErrNotFound      = errors.New("not found")
	ErrQuotaExceeded = errors.New("local storage quota exceeded")
)

// Backend is a durable key/value space for the store's collections.
// Get returns ErrNotFound for a missing key. SetMany is all-or-nothing.
type Backend interface {
	Get(key string) ([]byte, error)
	Set(key string, value []byte) error
	SetMany(values map[string][]byte) error
	Delete(keys ...string) error
	Close() error
}

// projectedSize returns the total stored size after values replace the
// current entries of the same keys.
func projectedSize(current map[string]int, values map[string][]byte) int64 {
	var total int64
	for k, n := range current {
		if _, replaced := values[k]; replaced {
			continue
		}
		total += int64(len(k) + n)
	}
	for k, v := range values {
		total += int64(len(k) + len(v))
	}
	return total
}
