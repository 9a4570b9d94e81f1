package errors

import (
	"errors"
)

// Error categories shared by the stores and handlers. Concrete errors wrap one of
// these so callers can branch with errors.Is without importing the producer.
var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
)
