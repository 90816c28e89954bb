package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/middleware/auth"
	"github.com/Skotchmaster/school_backend/pkg/tokens"
)

type CookieConfig struct {
	Secure     bool
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

func CreateCookie(name, value string, maxAge time.Duration, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Expires:  time.Now().Add(maxAge),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func DeleteCookie(name string, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (cc CookieConfig) set(c echo.Context, p tokens.Pair) {
	c.SetCookie(CreateCookie(auth.AccessCookie, p.AccessToken, cc.AccessTTL, cc.Secure))
	c.SetCookie(CreateCookie(auth.RefreshCookie, p.RefreshToken, cc.RefreshTTL, cc.Secure))
}

func (cc CookieConfig) clear(c echo.Context) {
	c.SetCookie(DeleteCookie(auth.AccessCookie, cc.Secure))
	c.SetCookie(DeleteCookie(auth.RefreshCookie, cc.Secure))
}
