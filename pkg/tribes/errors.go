package tribes

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedAction is wrapped by every StructuralError.
	ErrMalformedAction = errors.New("malformed action")
	// ErrInternal marks a broken invariant discovered after validation passed.
	ErrInternal = errors.New("internal invariant violated")
	// ErrCorruptState is returned when a persisted document fails to load.
	ErrCorruptState = errors.New("corrupt game state")
)

// StructuralError reports an action that cannot be interpreted: a missing
// required field, an unknown kind, or an unparseable document.
type StructuralError struct {
	Action  ActionType
	Message string
}

func (e *StructuralError) Error() string {
	if e.Action == "" {
		return e.Message
	}
	return fmt.Sprintf("%s %s", e.Action, e.Message)
}

func (e *StructuralError) Unwrap() error {
	return ErrMalformedAction
}

// TurnError reports an action submitted out of turn, by an eliminated tribe,
// or after the game finished.
type TurnError struct {
	Tribe   Tribe
	Message string
}

func (e *TurnError) Error() string {
	return e.Message
}

// RuleViolation reports an action that is well formed but illegal.
type RuleViolation struct {
	Action ActionType
	Reason string
}

func (e *RuleViolation) Error() string {
	return e.Reason
}

func violation(kind ActionType, format string, args ...any) error {
	return &RuleViolation{Action: kind, Reason: fmt.Sprintf(format, args...)}
}

func missing(kind ActionType, field string) error {
	return &StructuralError{Action: kind, Message: "requires " + field}
}

func internalf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInternal, fmt.Sprintf(format, args...))
}
