package auth

import (
	"fmt"
	"log/slog"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/audit"
	"github.com/Skotchmaster/school_backend/internal/models"
	"github.com/Skotchmaster/school_backend/pkg/logging"
)

// Authorizer decides whether an authenticated user may continue.
type Authorizer interface {
	Authorize(u *models.User) error
}

// PermissionCheck passes when the user's active role grants Action on Resource.
type PermissionCheck struct {
	Resource string
	Action   models.Action
}

func Permission(resource string, action models.Action) PermissionCheck {
	return PermissionCheck{Resource: resource, Action: action}
}

func (p PermissionCheck) Authorize(u *models.User) error {
	if u.RoleData == nil || len(u.RoleData.Permissions) == 0 || !u.RoleData.HasPermission(p.Resource, p.Action) {
		return denied(fmt.Sprintf("permission %s:%s", p.Resource, p.Action))
	}
	return nil
}

// RoleCheck passes when the active role is one of Allowed. Held but inactive roles do not count.
type RoleCheck struct {
	Allowed []string
}

func Roles(allowed ...string) RoleCheck {
	return RoleCheck{Allowed: allowed}
}

func (r RoleCheck) Authorize(u *models.User) error {
	for _, a := range r.Allowed {
		if u.ActiveRole == a {
			return nil
		}
	}
	return denied("role " + strings.Join(r.Allowed, " or "))
}

func denied(required string) *apperr.Error {
	return apperr.Forbidden("Access denied. Required " + required)
}

// Guard turns authorizers into echo middleware, auditing every denial.
type Guard struct {
	Audit *audit.Recorder
}

func (g Guard) Require(az Authorizer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			u, ok := CurrentUser(c)
			if !ok {
				return apperr.ErrUnauthorized
			}
			if err := az.Authorize(u); err != nil {
				ctx := c.Request().Context()
				logging.FromContext(ctx).Warn("access denied",
					slog.String("path", c.Path()),
					slog.String("reason", err.Error()),
				)
				g.Audit.Record(ctx, audit.Event{
					Type: audit.AccessDenied, Outcome: audit.OutcomeDenied,
					UserID: u.ID, Role: u.ActiveRole, Resource: c.Request().Method + " " + c.Path(),
					Reason: apperr.As(err).Message,
				})
				return err
			}
			return next(c)
		}
	}
}

func Require(az Authorizer) echo.MiddlewareFunc {
	return Guard{}.Require(az)
}
