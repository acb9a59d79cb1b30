package db

import (
	"context"
	"database/sql/driver"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsUnavailableErr(t *testing.T) {
	assert.False(t, IsUnavailableErr(nil))
	assert.True(t, IsUnavailableErr(fmt.Errorf("exec: %w", driver.ErrBadConn)))
	assert.True(t, IsUnavailableErr(errors.New("dial tcp 127.0.0.1:5432: connect: connection refused")))
	assert.True(t, IsUnavailableErr(errors.New("sql: database is closed")))
	assert.False(t, IsUnavailableErr(errors.New("UNIQUE constraint failed")))
}

func TestIsTimeoutErr(t *testing.T) {
	assert.False(t, IsTimeoutErr(nil))
	assert.True(t, IsTimeoutErr(fmt.Errorf("tx: %w", context.DeadlineExceeded)))
	assert.True(t, IsTimeoutErr(errors.New("ERROR: canceling statement due to statement timeout (SQLSTATE 57014)")))
	assert.False(t, IsTimeoutErr(errors.New("disk full")))
}
