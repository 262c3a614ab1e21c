package db

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/nekogravitycat/room-booking-backend/internal/pkg/apperror"
)

var (
	ErrStorageUnavailable = apperror.New(http.StatusServiceUnavailable, apperror.ReasonStorageUnavailable, "storage temporarily unavailable, please retry")
	ErrInternal           = apperror.New(http.StatusInternalServerError, apperror.ReasonInternalFault, "internal error")
)

// Classify wraps a raw storage error in the matching AppError and keeps the
// cause for logging. Errors that already carry a reason pass through.
func Classify(err error, op string) error {
	if err == nil {
		return nil
	}
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	cause := fmt.Errorf("%s: %w", op, err)
	if IsUnavailable(err) {
		return apperror.Wrap(cause, ErrStorageUnavailable)
	}
	return apperror.Wrap(cause, ErrInternal)
}

// IsRetryable reports whether the whole transaction may be re-run safely.
func IsRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return false
	}
	switch pgErr.Code {
	case pgerrcode.SerializationFailure, pgerrcode.DeadlockDetected, pgerrcode.ExclusionViolation:
		return true
	default:
		return false
	}
}

// IsUnavailable reports whether err means the store could not be reached or
// did not answer in time, as opposed to rejecting the statement.
func IsUnavailable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgerrcode.LockNotAvailable, pgerrcode.QueryCanceled,
			pgerrcode.AdminShutdown, pgerrcode.CrashShutdown, pgerrcode.CannotConnectNow,
			pgerrcode.TooManyConnections:
			return true
		}
		return pgerrcode.IsConnectionException(pgErr.Code)
	}

	var connectErr *pgconn.ConnectError
	if errors.As(err, &connectErr) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}
	return pgconn.Timeout(err) || pgconn.SafeToRetry(err)
}

// IsUniqueViolation reports a unique constraint violation, optionally on a specific constraint.
func IsUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != pgerrcode.UniqueViolation {
		return false
	}
	return constraint == "" || pgErr.ConstraintName == constraint
}
