package store

import (
	"context"
	"errors"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rotisserie/eris"
)

// Sentinel errors. Callers match with errors.Is; both adapters wrap
// them with context.
var (
	ErrNotFound = eris.New("store: not found")
	// ErrConflict marks a rejected write: a backward status transition
	// or a terminal run flipping to the other terminal status.
	// Re-applying the current status is not a conflict.
	ErrConflict = eris.New("store: conflict")
)

// IsTransient reports whether a store error is worth retrying:
// connection failures, timeouts, serialization conflicts, and lock
// contention. ErrNotFound and ErrConflict are never transient.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotFound) || errors.Is(err, ErrConflict) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case strings.HasPrefix(pgErr.Code, "08"): // connection exceptions
			return true
		case pgErr.Code == "40001" || pgErr.Code == "40P01": // serialization, deadlock
			return true
		case strings.HasPrefix(pgErr.Code, "53"): // insufficient resources
			return true
		case pgErr.Code == "57P01": // admin shutdown
			return true
		}
		return false
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}

	// modernc sqlite surfaces contention as text.
	msg := err.Error()
	return strings.Contains(msg, "database is locked") ||
		strings.Contains(msg, "database table is locked") ||
		strings.Contains(msg, "SQLITE_BUSY")
}
