package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shishobooks/bookhub/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// flakyConnector hands out one connection whose execs fail with busy errors
// until busy runs out, then with fail if set.
type flakyConnector struct {
	mu    sync.Mutex
	busy  int
	fail  error
	execs int
}

func (fc *flakyConnector) Connect(context.Context) (driver.Conn, error) {
	return &flakyConn{fc}, nil
}

func (fc *flakyConnector) Driver() driver.Driver {
	return flakyDriver{}
}

type flakyDriver struct{}

func (flakyDriver) Open(string) (driver.Conn, error) {
	return nil, errors.New("open through the connector")
}

func (fc *flakyConnector) attempts() int {
	fc.mu.Lock()
	defer fc.mu.Unlock()
	return fc.execs
}

type flakyConn struct {
	fc *flakyConnector
}

func (c *flakyConn) ExecContext(context.Context, string, []driver.NamedValue) (driver.Result, error) {
	c.fc.mu.Lock()
	defer c.fc.mu.Unlock()
	c.fc.execs++
	if c.fc.busy > 0 {
		c.fc.busy--
		return nil, errors.New("database is locked (5) (SQLITE_BUSY)")
	}
	if c.fc.fail != nil {
		return nil, c.fc.fail
	}
	return driver.RowsAffected(1), nil
}

func (c *flakyConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *flakyConn) Close() error {
	return nil
}

func (c *flakyConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

func TestIsBusyError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		err  error
		busy bool
	}{
		{"nil", nil, false},
		{"pure-go driver busy", errors.New("database is locked (5) (SQLITE_BUSY)"), true},
		{"cgo driver busy", errors.New("database is locked"), true},
		{"locked table", errors.New("database table is locked: categories"), true},
		{"wrapped busy", errors.Wrap(errors.New("SQLITE_BUSY"), "apply delta"), true},
		{"duplicate category name", errors.New("constraint failed: UNIQUE constraint failed: categories.name (2067)"), false},
		{"missing table", errors.New("SQL logic error: no such table: requests (1)"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.busy, isBusyError(tt.err))
		})
	}
}

func TestRetryConnector(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		retries  int
		busy     int
		fail     error
		attempts int
		errMsg   string
	}{
		{
			name:     "busy twice then succeeds",
			retries:  config.NewForTest().DatabaseBusyRetryCount,
			busy:     2,
			attempts: 3,
		},
		{
			name:     "gives up after the configured retries",
			retries:  2,
			busy:     10,
			attempts: 3,
			errMsg:   "database is locked",
		},
		{
			name:     "other errors are not retried",
			retries:  5,
			fail:     errors.New("UNIQUE constraint failed: categories.name"),
			attempts: 1,
			errMsg:   "UNIQUE constraint failed",
		},
		{
			name:     "zero retries makes one attempt",
			retries:  0,
			busy:     1,
			attempts: 1,
			errMsg:   "database is locked",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			fc := &flakyConnector{busy: tt.busy, fail: tt.fail}
			db := sql.OpenDB(newRetryConnector(fc, tt.retries))
			defer db.Close()

			_, err := db.ExecContext(context.Background(), "UPDATE categories SET book_count = book_count + 1 WHERE id = 1")
			if tt.errMsg == "" {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.errMsg)
			}
			assert.Equal(t, tt.attempts, fc.attempts())
		})
	}
}

func TestRetryWithBackoff_StopsWhenContextIsDone(t *testing.T) {
	t.Parallel()
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	attempts := 0
	err := retryWithBackoff(ctx, 10, func() error {
		attempts++
		return errors.New("database is locked")
	})

	require.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, attempts, 10)
}
