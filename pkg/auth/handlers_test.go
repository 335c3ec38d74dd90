package auth

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shishobooks/bookhub/pkg/binder"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
	"github.com/shishobooks/bookhub/pkg/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func newTestService(t *testing.T) *Service {
	t.Helper()
	svc := NewService(testutils.NewDB(t), "test-jwt-secret")
	svc.bcryptCost = bcrypt.MinCost
	return svc
}

func newTestContext(t *testing.T, payload, method, path string) (echo.Context, *httptest.ResponseRecorder) {
	t.Helper()

	e := echo.New()
	b, err := binder.New()
	require.NoError(t, err)
	e.Binder = b
	e.HTTPErrorHandler = errcodes.NewHandler().Handle

	req := httptest.NewRequest(method, path, strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rr := httptest.NewRecorder()
	return e.NewContext(req, rr), rr
}

func TestRegister_FirstUserIsAdmin(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := testutils.Context()

	first, err := svc.Register(ctx, "Ada@Example.com", "ada", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, first.Role)
	assert.Equal(t, "ada@example.com", first.Email)

	second, err := svc.Register(ctx, "grace@example.com", "grace", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, second.Role)

	_, err = svc.Register(ctx, "ADA@example.com", "ada2", "correct-horse")
	assert.True(t, errcodes.HasCode(err, errcodes.CodeConflict), "got %v", err)
}

func TestAuthenticate(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	ctx := testutils.Context()

	_, err := svc.Register(ctx, "ada@example.com", "ada", "correct-horse")
	require.NoError(t, err)

	user, err := svc.Authenticate(ctx, "ADA@example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, "ada", user.Username)

	_, err = svc.Authenticate(ctx, "ada@example.com", "wrong")
	assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized), "got %v", err)

	_, err = svc.Authenticate(ctx, "nobody@example.com", "correct-horse")
	assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized), "got %v", err)
}

func TestValidateToken(t *testing.T) {
	t.Parallel()
	svc := NewService(nil, "test-jwt-secret")

	token, err := svc.GenerateToken(&models.User{ID: 7, Email: "ada@example.com", Role: models.RoleAdmin})
	require.NoError(t, err)

	claims, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, 7, claims.UserID)
	assert.Equal(t, models.RoleAdmin, claims.Role)

	other := NewService(nil, "another-secret")
	_, err = other.ValidateToken(token)
	assert.Error(t, err)
}

func TestHandler_Register(t *testing.T) {
	t.Parallel()
	h := &handler{authService: newTestService(t)}

	payload := `{"email":"ada@example.com","username":"ada","password":"correct-horse"}`
	c, rr := newTestContext(t, payload, http.MethodPost, "/auth/register")

	require.NoError(t, h.register(c))
	assert.Equal(t, http.StatusCreated, rr.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada@example.com", resp.User.Email)
	assert.Equal(t, models.RoleAdmin, resp.User.Role)
	assert.Contains(t, rr.Header().Get("Set-Cookie"), CookieName+"=")
}

func TestHandler_RegisterRejectsShortPassword(t *testing.T) {
	t.Parallel()
	h := &handler{authService: newTestService(t)}

	payload := `{"email":"ada@example.com","username":"ada","password":"short"}`
	c, _ := newTestContext(t, payload, http.MethodPost, "/auth/register")

	err := h.register(c)
	require.Error(t, err)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeValidationError), "got %v", err)
}

func TestHandler_Login(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	h := &handler{authService: svc}

	_, err := svc.Register(testutils.Context(), "ada@example.com", "ada", "correct-horse")
	require.NoError(t, err)

	c, rr := newTestContext(t, `{"email":"ada@example.com","password":"correct-horse"}`, http.MethodPost, "/auth/login")
	require.NoError(t, h.login(c))
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, resp.User.ID, claims.UserID)
}

func TestHandler_Refresh(t *testing.T) {
	t.Parallel()
	svc := newTestService(t)
	h := &handler{authService: svc}

	user, err := svc.Register(testutils.Context(), "ada@example.com", "ada", "correct-horse")
	require.NoError(t, err)

	c, _ := newTestContext(t, "", http.MethodPost, "/auth/refresh")
	err = h.refresh(c)
	assert.True(t, errcodes.HasCode(err, errcodes.CodeUnauthorized), "got %v", err)

	c, rr := newTestContext(t, "", http.MethodPost, "/auth/refresh")
	c.Set("user", user)
	require.NoError(t, h.refresh(c))
	assert.Equal(t, http.StatusOK, rr.Code)

	var resp TokenResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	claims, err := svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.True(t, claims.ExpiresAt.After(time.Now().Add(TokenExpiry-time.Minute)))
	assert.Contains(t, rr.Header().Get("Set-Cookie"), CookieName+"=")
}
