package errors

import (
	"context"
	"errors"
	"net"
	"strings"

	"gorm.io/gorm"
)

// ParseDBError maps a persistence error onto the API error taxonomy.
//
// A missing record becomes NOT_FOUND; everything else is treated as a
// transient store failure and surfaced as DATABASE_ERROR. Retrying is
// deliberately left to the caller.
func ParseDBError(err error) *APIError {
	if err == nil {
		return nil
	}

	if apiErr, ok := err.(*APIError); ok {
		return apiErr
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrResourceNotFound
	}

	if isTransient(err) {
		return NewAPIError(ErrDatabase, "store temporarily unavailable: "+err.Error())
	}

	return NewAPIError(ErrDatabase, err.Error())
}

// isTransient reports whether the error looks like a temporary store outage
// rather than a logic error. Covers connection failures, timeouts and lock
// contention across SQLite, MySQL and PostgreSQL.
func isTransient(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	transientFragments := []string{
		"database is locked",
		"sqlite_busy",
		"lock wait timeout",
		"deadlock",
		"could not obtain lock",
		"connection refused",
		"connection reset",
		"broken pipe",
		"bad connection",
	}
	for _, fragment := range transientFragments {
		if strings.Contains(msg, fragment) {
			return true
		}
	}
	return false
}
