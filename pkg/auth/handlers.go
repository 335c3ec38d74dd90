package auth

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pkg/errors"
	"github.com/shishobooks/bookhub/pkg/errcodes"
	"github.com/shishobooks/bookhub/pkg/models"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "bookhub_session"
	// CookieMaxAge is how long the cookie is valid.
	CookieMaxAge = 7 * 24 * time.Hour // 7 days
)

type handler struct {
	authService *Service
}

func buildMeResponse(user *models.User) MeResponse {
	return MeResponse{
		ID:       user.ID,
		Email:    user.Email,
		Username: user.Username,
		Role:     user.Role,
	}
}

func sessionCookie(c echo.Context, value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   c.Request().TLS != nil || c.Request().Header.Get("X-Forwarded-Proto") == "https",
		SameSite: http.SameSiteLaxMode,
	}
}

func (h *handler) issue(c echo.Context, status int, user *models.User) error {
	token, err := h.authService.GenerateToken(user)
	if err != nil {
		return errors.WithStack(err)
	}

	c.SetCookie(sessionCookie(c, token, int(CookieMaxAge.Seconds())))

	return errors.WithStack(c.JSON(status, TokenResponse{
		Token: token,
		User:  buildMeResponse(user),
	}))
}

func (h *handler) register(c echo.Context) error {
	ctx := c.Request().Context()

	params := RegisterPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Register(ctx, params.Email, params.Username, params.Password)
	if err != nil {
		return err
	}

	return h.issue(c, http.StatusCreated, user)
}

func (h *handler) login(c echo.Context) error {
	ctx := c.Request().Context()

	params := LoginPayload{}
	if err := c.Bind(&params); err != nil {
		return errors.WithStack(err)
	}

	user, err := h.authService.Authenticate(ctx, params.Email, params.Password)
	if err != nil {
		return err
	}

	return h.issue(c, http.StatusOK, user)
}

func (h *handler) logout(c echo.Context) error {
	// MaxAge -1 tells the browser to drop the cookie.
	c.SetCookie(sessionCookie(c, "", -1))

	return errors.WithStack(c.NoContent(http.StatusNoContent))
}

// refresh re-issues a token for the already authenticated user, extending the
// session by another TokenExpiry.
func (h *handler) refresh(c echo.Context) error {
	user, err := CurrentUser(c)
	if err != nil {
		return err
	}

	return h.issue(c, http.StatusOK, user)
}

// me returns the user resolved by the Authenticate middleware.
func (h *handler) me(c echo.Context) error {
	user, ok := c.Get("user").(*models.User)
	if !ok {
		return errcodes.Unauthorized("Authentication required")
	}

	return errors.WithStack(c.JSON(http.StatusOK, buildMeResponse(user)))
}
