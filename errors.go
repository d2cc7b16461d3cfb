package flow

import "errors"

var (
	// ErrNoAgent is returned when a Spec is forced without a target agent.
	ErrNoAgent = errors.New("spec has no target agent")
	// ErrNoEngine is returned when a Spec is forced with no Engine bound in
	// the execution context.
	ErrNoEngine = errors.New("no engine bound in context")
	// ErrInvalidMaxTurns is returned when a Spec carries a negative max-turns
	// limit.
	ErrInvalidMaxTurns = errors.New("max turns must not be negative")
	// ErrNoSchema is returned by Result.Decode when the target agent declared
	// no output schema.
	ErrNoSchema = errors.New("agent declares no output schema")
)
