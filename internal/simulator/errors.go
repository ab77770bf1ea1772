package simulator

import "fmt"

// SessionInitError means the browser could not be launched or the target
// could not be loaded. Nothing ran.
type SessionInitError struct {
	URL string
	Err error
}

func (e *SessionInitError) Error() string {
	return fmt.Sprintf("failed to open browser session at %s: %v", e.URL, e.Err)
}

func (e *SessionInitError) Unwrap() error { return e.Err }

// ActionError is a failure of a single action. The run loop logs it and moves on.
type ActionError struct {
	Action Action
	Err    error
}

func (e *ActionError) Error() string {
	return fmt.Sprintf("action %s failed: %v", e.Action, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }

// ValidationError reports bad input detected before a browser is launched.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
