package game

import "errors"

// Error kinds returned by room operations. Concrete errors wrap one of these
// with context, so callers match with errors.Is.
var (
	ErrValidation        = errors.New("invalid request")
	ErrNotFound          = errors.New("not found")
	ErrCapacity          = errors.New("capacity reached")
	ErrInsufficientFunds = errors.New("insufficient funds")
	ErrOutOfTurn         = errors.New("not your turn")
	ErrStore             = errors.New("store failure")
)
