package domain

import (
	"errors"
	"fmt"
)

// Error kinds. Detailed errors wrap one of these with fmt.Errorf("%w: ...") so callers
// classify them with errors.Is.
var (
	ErrNotFound   = errors.New("not found")
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict")
	ErrForbidden  = errors.New("forbidden")
)

// ErrParticipantLimitReached is returned when an event has no free slots left. It is a conflict.
var ErrParticipantLimitReached = fmt.Errorf("%w: participant limit reached", ErrConflict)
