package server

import (
	"errors"

	"github.com/lox/twentyone/internal/game"
)

// Error codes sent in ErrorData.Code.
const (
	CodeInvalidMessage     = "invalid_message"
	CodeUnknownMessageType = "unknown_message_type"
	CodeNotAuthenticated   = "not_authenticated"
	CodeValidation         = "validation"
	CodeNotFound           = "not_found"
	CodeCapacity           = "capacity"
	CodeInsufficientFunds  = "insufficient_funds"
	CodeOutOfTurn          = "out_of_turn"
	CodeStoreError         = "store_error"
	CodeInternal           = "internal"
)

// errorCode maps a room service error to its wire code and client message.
// Store failures are reported without detail.
func errorCode(err error) (string, string) {
	switch {
	case errors.Is(err, game.ErrStore):
		return CodeStoreError, "Something went wrong, please try again"
	case errors.Is(err, game.ErrValidation):
		return CodeValidation, err.Error()
	case errors.Is(err, game.ErrNotFound):
		return CodeNotFound, err.Error()
	case errors.Is(err, game.ErrCapacity):
		return CodeCapacity, err.Error()
	case errors.Is(err, game.ErrInsufficientFunds):
		return CodeInsufficientFunds, err.Error()
	case errors.Is(err, game.ErrOutOfTurn):
		return CodeOutOfTurn, err.Error()
	default:
		return CodeInternal, "Something went wrong, please try again"
	}
}
