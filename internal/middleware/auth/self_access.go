package auth

import (
	"context"
	"errors"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
)

// OwnerLookup resolves a route parameter to the id of the user owning that record.
type OwnerLookup func(ctx context.Context, id string) (ownerID string, err error)

// SelfAccess confines callers whose active role is in restricted to records they own.
// With no restricted roles every caller is confined.
func SelfAccess(param string, lookup OwnerLookup, restricted ...string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return apperr.ErrUnauthorized
			}

			owner, err := lookup(c.Request().Context(), c.Param(param))
			if errors.Is(err, apperr.ErrUserNotFound) || errors.Is(err, apperr.ErrNotFound) {
				return apperr.ErrNotFound
			}
			if err != nil {
				return apperr.As(err)
			}

			if owner != u.ID && isRestricted(u.ActiveRole, restricted) {
				return apperr.Forbidden("Access denied. You can only access your own records")
			}
			return next(c)
		}
	}
}

func isRestricted(role string, restricted []string) bool {
	if len(restricted) == 0 {
		return true
	}
	for _, r := range restricted {
		if r == role {
			return true
		}
	}
	return false
}
