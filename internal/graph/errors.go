package graph

import "fmt"

// ValidationError reports a malformed node or edge handed to a mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed on %s: %s", e.Field, e.Reason)
}

// ConnectionError reports a persistence backend failure. For mutations the
// in-memory graph has already been updated when this is returned; callers
// needing strict durability must retry the persistence call themselves.
type ConnectionError struct {
	Op  string
	Err error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// NotInitializedError reports an operation invoked outside the Ready state.
type NotInitializedError struct {
	State State
}

func (e *NotInitializedError) Error() string {
	return fmt.Sprintf("store is not ready (state: %s)", e.State)
}
