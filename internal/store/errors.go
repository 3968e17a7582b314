package store

import (
	"database/sql/driver"
	"errors"
	"net"
	"syscall"

	"github.com/lib/pq"
)

// ErrDayNotFound is returned by Get when no row exists for the day.
var ErrDayNotFound = errors.New("store: day not found")

// ErrEmptyRecord is returned when an upsert is attempted with a nil record.
var ErrEmptyRecord = errors.New("store: empty record")

// pq error class 08 is "Connection Exception".
const pqClassConnection = "08"

// IsTransient reports whether an error is a connection-level failure worth
// retrying on a fresh connection. SQL errors, constraint violations and
// data errors are not transient: retrying them would just repeat the
// failure, so they propagate immediately.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, driver.ErrBadConn) {
		return true
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.EPIPE) {
		return true
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code.Class() == pqClassConnection
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
