package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"net"
	"strings"
)

// IsUnavailableErr reports whether err means the database could not be reached at all,
// as opposed to a statement being rejected.
func IsUnavailableErr(err error) bool {
	if err == nil {
		return false
	}

	if errors.Is(err, driver.ErrBadConn) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "connection refused"),
		strings.Contains(msg, "no such host"),
		strings.Contains(msg, "database is closed"),
		strings.Contains(msg, "sql: database is closed"),
		strings.Contains(msg, "server closed the connection"),
		strings.Contains(msg, "broken pipe"):
		return true
	}
	return false
}

// IsTimeoutErr reports whether err came from an expired deadline or a cancelled statement.
func IsTimeoutErr(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return true
	}
	// PostgreSQL query_canceled (57014)
	return strings.Contains(err.Error(), "canceling statement due to")
}
