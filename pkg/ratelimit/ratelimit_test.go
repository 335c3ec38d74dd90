package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAllow(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(60, 2)
	l.now = func() time.Time { return now }

	assert.True(t, l.Allow("a"))
	assert.True(t, l.Allow("a"))
	assert.False(t, l.Allow("a"), "burst exhausted")
	assert.True(t, l.Allow("b"), "buckets are per key")

	now = now.Add(time.Second)
	assert.True(t, l.Allow("a"), "one token refills per second at 60/min")
	assert.False(t, l.Allow("a"))
}

func TestAllowSweepsIdleClients(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	l := New(60, 1)
	l.now = func() time.Time { return now }

	l.Allow("a")
	now = now.Add(idleTTL + time.Minute)
	l.Allow("b")

	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.clients["a"]
	assert.False(t, ok)
	assert.Len(t, l.clients, 1)
}

func TestMiddleware(t *testing.T) {
	t.Parallel()

	e := echo.New()
	l := New(1, 1)
	h := l.Middleware()(func(c echo.Context) error {
		return c.NoContent(http.StatusNoContent)
	})

	call := func(user *models.User) error {
		req := httptest.NewRequest(http.MethodPost, "/requests/lookups", nil)
		rec := httptest.NewRecorder()
		c := e.NewContext(req, rec)
		if user != nil {
			c.Set("user", user)
		}
		return h(c)
	}

	alice := &models.User{ID: 1}
	bob := &models.User{ID: 2}

	require.NoError(t, call(alice))
	err := call(alice)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeRateLimited))

	require.NoError(t, call(bob))
}
