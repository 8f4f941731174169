package engine

import (
	"errors"
	"fmt"
)

// Failure taxonomy for engine invocation. Fatal errors abort the whole
// batch; throttling is retried with backoff and then downgraded; anything
// else is isolated to the page it occurred on.
var (
	// ErrEngineUnavailable is returned when the local OCR runtime or its
	// language data cannot be found. The engine cannot function at all,
	// so this aborts the batch before any page is attempted.
	ErrEngineUnavailable = errors.New("OCR engine is not available")

	// ErrMissingCredentials is returned when neither GOOGLE_APPLICATION_CREDENTIALS
	// nor GOOGLE_CREDENTIALS environment variables are configured.
	ErrMissingCredentials = errors.New("missing Google Cloud credentials: set GOOGLE_APPLICATION_CREDENTIALS or GOOGLE_CREDENTIALS environment variable")

	// ErrAuthFailed is returned when standing credentials exist but the
	// cloud service rejects them. Fatal for the same reason as a missing
	// runtime: no page can succeed.
	ErrAuthFailed = errors.New("cloud OCR authentication failed")

	// ErrThrottled is returned when the cloud service rate-limits a
	// request. Transient: retried with bounded exponential backoff.
	ErrThrottled = errors.New("cloud OCR request was throttled")

	// ErrPageFailed is returned for a processing failure isolated to one
	// page. The batch records the failure and continues.
	ErrPageFailed = errors.New("OCR processing failed for page")
)

// EngineError wraps errors with additional context about the OCR engine failure.
type EngineError struct {
	// Op is the operation that failed (e.g., "Invoke", "CheckReady").
	Op string

	// Err is the underlying error.
	Err error

	// Details provides additional context about the failure.
	Details string
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("engine: %s failed: %s: %v", e.Op, e.Details, e.Err)
	}
	return fmt.Sprintf("engine: %s failed: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error for error unwrapping.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is implements error matching for errors.Is chains.
func (e *EngineError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewEngineError creates a new EngineError with the specified operation and underlying error.
func NewEngineError(op string, err error, details string) *EngineError {
	return &EngineError{
		Op:      op,
		Err:     err,
		Details: details,
	}
}

// WrapEngineError wraps an error as an EngineError if it isn't already one.
func WrapEngineError(op string, err error, details string) error {
	if err == nil {
		return nil
	}

	var engErr *EngineError
	if errors.As(err, &engErr) {
		return err // Already wrapped
	}

	return NewEngineError(op, err, details)
}

// IsFatal reports whether err means the engine cannot function at all.
// A fatal error aborts the batch; in-flight pages are cancelled.
func IsFatal(err error) bool {
	return errors.Is(err, ErrEngineUnavailable) ||
		errors.Is(err, ErrMissingCredentials) ||
		errors.Is(err, ErrAuthFailed)
}

// IsThrottled reports whether err is a transient rate-limit rejection.
func IsThrottled(err error) bool {
	return errors.Is(err, ErrThrottled)
}
