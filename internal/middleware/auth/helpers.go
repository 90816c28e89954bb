package auth

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/models"
)

const (
	AccessCookie  = "accessToken"
	RefreshCookie = "refreshToken"

	userKey = "currentUser"
)

type ctxKey struct{}

// accessToken prefers the Authorization header over the cookie.
func accessToken(r *http.Request) string {
	if h := r.Header.Get(echo.HeaderAuthorization); h != "" {
		if scheme, tok, ok := strings.Cut(h, " "); ok && strings.EqualFold(scheme, "Bearer") {
			if tok = strings.TrimSpace(tok); tok != "" {
				return tok
			}
		}
	}
	if c, err := r.Cookie(AccessCookie); err == nil {
		return c.Value
	}
	return ""
}

func setUser(c echo.Context, u *models.User) {
	c.Set(userKey, u)
	c.SetRequest(c.Request().WithContext(WithUser(c.Request().Context(), u)))
}

func WithUser(ctx context.Context, u *models.User) context.Context {
	return context.WithValue(ctx, ctxKey{}, u)
}

func UserFromContext(ctx context.Context) (*models.User, bool) {
	u, ok := ctx.Value(ctxKey{}).(*models.User)
	return u, ok && u != nil
}

// CurrentUser returns the user attached by Protect, falling back to the request context.
func CurrentUser(c echo.Context) (*models.User, bool) {
	if u, ok := c.Get(userKey).(*models.User); ok && u != nil {
		return u, true
	}
	return UserFromContext(c.Request().Context())
}
