package models

import "errors"

// Domain error kinds. Operations wrap one of these with context
// (fmt.Errorf("%w: ...", ErrX)) and callers match them with errors.Is.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInvalidState      = errors.New("invalid state")
	ErrDuplicateEntry    = errors.New("duplicate entry")
	ErrCapacity          = errors.New("capacity exceeded")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrNotParticipant    = errors.New("not a participant")
	ErrConflict          = errors.New("conflict")
)

var domainErrors = []error{
	ErrValidation,
	ErrNotFound,
	ErrInvalidState,
	ErrDuplicateEntry,
	ErrCapacity,
	ErrInsufficientFunds,
	ErrNotParticipant,
	ErrConflict,
}

// IsDomainError reports whether err is a client-correctable failure rather
// than an infrastructure fault.
func IsDomainError(err error) bool {
	for _, target := range domainErrors {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
