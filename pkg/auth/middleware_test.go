package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runMiddleware(t *testing.T, mw echo.MiddlewareFunc, c echo.Context) (bool, error) {
	t.Helper()
	called := false
	err := mw(func(_ echo.Context) error {
		called = true
		return nil
	})(c)
	return called, err
}

func TestMiddlewareAuthenticate(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	authService := NewService(db, "test-secret")
	m := NewMiddleware(authService)
	user := testutils.CreateUser(t, db, models.RoleUser)
	token, err := authService.GenerateToken(user)
	require.NoError(t, err)

	tests := []struct {
		name    string
		prepare func(r *http.Request)
		allowed bool
	}{
		{
			name:    "bearer header",
			prepare: func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer "+token) },
			allowed: true,
		},
		{
			name:    "session cookie",
			prepare: func(r *http.Request) { r.AddCookie(&http.Cookie{Name: CookieName, Value: token}) },
			allowed: true,
		},
		{
			name:    "no token",
			prepare: func(_ *http.Request) {},
		},
		{
			name:    "garbage token",
			prepare: func(r *http.Request) { r.Header.Set(echo.HeaderAuthorization, "Bearer not-a-jwt") },
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := echo.New()
			req := httptest.NewRequest(http.MethodGet, "/books", nil)
			tt.prepare(req)
			c := e.NewContext(req, httptest.NewRecorder())

			called, err := runMiddleware(t, m.Authenticate, c)
			if tt.allowed {
				require.NoError(t, err)
				assert.True(t, called)
				current, err := CurrentUser(c)
				require.NoError(t, err)
				assert.Equal(t, user.ID, current.ID)
				return
			}
			assert.False(t, called)
			assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized), "got %v", err)
		})
	}
}

func TestMiddlewareAuthenticate_RejectsInactiveUser(t *testing.T) {
	t.Parallel()

	db := testutils.NewDB(t)
	authService := NewService(db, "test-secret")
	m := NewMiddleware(authService)
	user := testutils.CreateUser(t, db, models.RoleUser)
	token, err := authService.GenerateToken(user)
	require.NoError(t, err)

	_, err = db.NewUpdate().Model(user).Set("is_active = ?", false).WherePK().Exec(testutils.Context())
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodGet, "/books", nil)
	req.Header.Set(echo.HeaderAuthorization, "Bearer "+token)
	c := echo.New().NewContext(req, httptest.NewRecorder())

	called, err := runMiddleware(t, m.Authenticate, c)
	assert.False(t, called)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized), "got %v", err)
}

func TestRequirePermission(t *testing.T) {
	t.Parallel()
	m := NewMiddleware(nil)

	admin := &models.User{ID: 1, Role: models.RoleAdmin, IsActive: true}
	reader := &models.User{ID: 2, Role: models.RoleUser, IsActive: true}

	newContext := func(user *models.User) echo.Context {
		c := echo.New().NewContext(httptest.NewRequest(http.MethodPost, "/requests/1/approve", nil), httptest.NewRecorder())
		if user != nil {
			c.Set("user", user)
		}
		return c
	}

	moderate := m.RequirePermission(models.ResourceRequests, models.OperationModerate)

	called, err := runMiddleware(t, moderate, newContext(admin))
	require.NoError(t, err)
	assert.True(t, called)

	called, err = runMiddleware(t, moderate, newContext(reader))
	assert.False(t, called)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeForbidden), "got %v", err)

	_, err = runMiddleware(t, moderate, newContext(nil))
	assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized), "got %v", err)

	submit := m.RequirePermission(models.ResourceRequests, models.OperationSubmit)
	called, err = runMiddleware(t, submit, newContext(reader))
	require.NoError(t, err)
	assert.True(t, called)

	writeBooks := m.RequirePermission(models.ResourceBooks, models.OperationWrite)
	_, err = runMiddleware(t, writeBooks, newContext(reader))
	assert.True(t, errcodes.HasCode(err, errcodes.CodeForbidden), "got %v", err)
}
