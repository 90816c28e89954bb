package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/internal/repo"
	"github.com/Skotchmaster/school_backend/pkg/logging"
	"github.com/Skotchmaster/school_backend/pkg/tokens"
)

// UserLoader loads a user with its active role and that role's permissions.
type UserLoader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type Authenticator struct {
	Tokens *tokens.Service
	Users  UserLoader
}

func NewAuthenticator(tok *tokens.Service, users UserLoader) *Authenticator {
	return &Authenticator{Tokens: tok, Users: users}
}

// Protect rejects the request unless it carries a valid access token for an existing, active user.
func (a *Authenticator) Protect(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		raw := accessToken(c.Request())
		if raw == "" {
			return apperr.ErrUnauthorized.WithMessage("Not authorized, no token")
		}

		claims, err := a.Tokens.VerifyAccess(raw)
		if errors.Is(err, tokens.ErrTokenExpired) {
			return apperr.ErrTokenExpired
		}
		if err != nil {
			return apperr.ErrTokenInvalid
		}

		ctx := c.Request().Context()
		u, err := a.Users.FindByID(ctx, claims.Subject)
		if errors.Is(err, repo.ErrNotFound) {
			return apperr.ErrUnauthorized.WithMessage("User no longer exists")
		}
		if err != nil {
			return apperr.Internal(fmt.Errorf("load user: %w", err))
		}
		if !u.IsActive() {
			return apperr.ErrAccountInactive
		}

		l := logging.FromContext(ctx).With(slog.String("user_id", u.ID), slog.String("role", u.ActiveRole))
		c.SetRequest(c.Request().WithContext(logging.IntoContext(ctx, l)))
		setUser(c, u)
		return next(c)
	}
}
