// internal/analytics/errors.go
package analytics

import "fmt"

// AuthenticationError means the export API rejected the credentials. It is
// never retried.
type AuthenticationError struct {
	StatusCode int
	Message    string
}

func (e *AuthenticationError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("authentication failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("authentication failed (status %d): %s", e.StatusCode, e.Message)
}

// NetworkError is a transient failure: the request did not complete, or the
// server answered 429 or 5xx.
type NetworkError struct {
	Range DateRange
	// StatusCode is zero when no response was received.
	StatusCode int
	Err        error
}

func (e *NetworkError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("export request for %s failed with status %d: %v", e.Range, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("export request for %s failed: %v", e.Range, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// ParseError means the response as a whole could not be decoded.
type ParseError struct {
	// Line is the 1-based NDJSON line, or zero for whole-body errors.
	Line int
	Err  error
}

func (e *ParseError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("malformed export response at line %d: %v", e.Line, e.Err)
	}
	return fmt.Sprintf("malformed export response: %v", e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// APIError is any other non-2xx answer.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("export API returned status %d: %s", e.StatusCode, e.Body)
}

// ValidationError rejects a request before any I/O happens.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
