package game

import (
	"fmt"
	"strings"
)

// Action is a turn action a seated player can submit.
type Action int

const (
	Hit Action = iota + 1
	Stand
	Surrender
)

// TurnActions lists every action offered to the seat holding the turn.
var TurnActions = []Action{Hit, Stand, Surrender}

// String returns the wire token for the action.
func (a Action) String() string {
	switch a {
	case Hit:
		return "hit"
	case Stand:
		return "stand"
	case Surrender:
		return "surrender"
	default:
		return "unknown"
	}
}

// Valid reports whether a is one of the turn actions.
func (a Action) Valid() bool {
	return a >= Hit && a <= Surrender
}

// ParseAction maps a wire token to an Action. Anything outside the closed
// set is a validation error.
func ParseAction(s string) (Action, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "hit":
		return Hit, nil
	case "stand":
		return Stand, nil
	case "surrender":
		return Surrender, nil
	}
	return 0, fmt.Errorf("%w: unknown action %q", ErrValidation, s)
}

// MarshalText encodes the action as its token.
func (a Action) MarshalText() ([]byte, error) {
	if !a.Valid() {
		return nil, fmt.Errorf("%w: unknown action %d", ErrValidation, int(a))
	}
	return []byte(a.String()), nil
}

// UnmarshalText decodes an action token.
func (a *Action) UnmarshalText(text []byte) error {
	parsed, err := ParseAction(string(text))
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}
