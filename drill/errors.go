package drill

import (
	"errors"
	"fmt"
)

var (
	// ErrUnauthorized is returned when no user could be resolved for the request.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidArgument is the parent of every input validation failure.
	ErrInvalidArgument = errors.New("invalid argument")
	ErrInvalidLength   = fmt.Errorf("%w: length must be between %d and %d", ErrInvalidArgument, MinLength, MaxLength)
	ErrInvalidSubject  = fmt.Errorf("%w: subject must be %q or a subject id", ErrInvalidArgument, AllSubjects)
	// ErrInsufficientPool matches any *InsufficientPoolError.
	ErrInsufficientPool = errors.New("insufficient pool")
	// ErrNotFound covers missing or foreign sessions, missing questions and already answered items.
	ErrNotFound = errors.New("not found")
)

// InsufficientPoolError reports how many eligible questions were actually available.
type InsufficientPoolError struct {
	Requested int
	Available int
}

func (e *InsufficientPoolError) Error() string {
	return fmt.Sprintf("insufficient pool: requested %d, available %d", e.Requested, e.Available)
}

func (e *InsufficientPoolError) Is(target error) bool {
	return target == ErrInsufficientPool
}
