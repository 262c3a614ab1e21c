package apperror

import "errors"

// Reason codes shared by every module. They are stable and safe to expose to clients.
const (
	ReasonInvalidInput       = "invalid_input"
	ReasonNoAvailableRoom    = "no_available_room"
	ReasonStorageUnavailable = "storage_unavailable"
	ReasonInternalFault      = "internal_fault"
	ReasonNotFound           = "not_found"
	ReasonNotCancellable     = "not_cancellable"
	ReasonUnauthorized       = "unauthorized"
	ReasonRateLimited        = "rate_limited"
)

// AppError is a custom error type that includes an HTTP status code and a machine-readable reason.
type AppError struct {
	Code    int    // HTTP Status Code (e.g., 400, 404)
	Reason  string // One of the Reason* constants
	Message string // User-facing error message
	Err     error  // The underlying error, if any (not exposed to user)
}

func (e *AppError) Error() string {
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Is reports whether target is an AppError with the same reason and message.
// A wrapped storage fault therefore still matches the sentinel it was built from.
func (e *AppError) Is(target error) bool {
	t, ok := target.(*AppError)
	if !ok {
		return false
	}
	return e.Reason == t.Reason && e.Message == t.Message
}

// New creates a new AppError with a status code, reason and message.
func New(code int, reason, message string) *AppError {
	return &AppError{
		Code:    code,
		Reason:  reason,
		Message: message,
	}
}

// Wrap creates a copy of base carrying err as its cause.
func Wrap(err error, base *AppError) *AppError {
	return &AppError{
		Code:    base.Code,
		Reason:  base.Reason,
		Message: base.Message,
		Err:     err,
	}
}

// HasReason reports whether err is an AppError with the given reason.
func HasReason(err error, reason string) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Reason == reason
}
