package httpserver

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/handlers"
	"github.com/Skotchmaster/school_backend/internal/middleware/auth"
	"github.com/Skotchmaster/school_backend/internal/middleware/csrf"
	"github.com/Skotchmaster/school_backend/internal/models"
	loggingmw "github.com/Skotchmaster/school_backend/pkg/middleware/logging"
	"github.com/Skotchmaster/school_backend/pkg/middleware/metrics"
	"github.com/Skotchmaster/school_backend/pkg/middleware/ratelimit"
)

type Deps struct {
	Auth   *handlers.AuthHandler
	Users  *handlers.UserHandler
	Roles  *handlers.RoleHandler
	Search *handlers.SearchHandler

	Authenticator *auth.Authenticator
	Guard         auth.Guard
	Limiter       *ratelimit.Limiter

	Metrics  *metrics.HTTP
	Gatherer prometheus.Gatherer

	// CSRF is applied to the API group when set.
	CSRF *csrf.Config

	// Ready backs /health/ready; nil means always ready.
	Ready func(ctx context.Context) error
}

// New builds the echo instance with the shared middleware chain.
func New(base *slog.Logger, production bool, v echo.Validator, corsOrigins []string) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = v
	e.HTTPErrorHandler = ErrorHandler(production)

	e.Use(middleware.Recover())
	e.Use(loggingmw.RequestLogger(base))
	if len(corsOrigins) > 0 {
		e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
			AllowOrigins:     corsOrigins,
			AllowCredentials: true,
		}))
	}
	return e
}

func tooManyRequests(echo.Context) error { return apperr.ErrTooManyRequests }

// selfRestricted lists the roles that may only read their own user record.
func selfRestricted() []string {
	out := make([]string, 0, len(models.AllRoles))
	for _, r := range models.AllRoles {
		if r != models.RoleAdministrator {
			out = append(out, r)
		}
	}
	return out
}

func Register(e *echo.Echo, d *Deps) {
	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if d.Ready != nil {
			if err := d.Ready(c.Request().Context()); err != nil {
				return c.JSON(http.StatusServiceUnavailable, handlers.Response{Message: "Not ready"})
			}
		}
		return c.NoContent(http.StatusOK)
	})
	if d.Gatherer != nil {
		e.GET("/metrics", metrics.Handler(d.Gatherer))
	}

	v1 := e.Group("/api/v1")
	if d.Metrics != nil {
		v1.Use(d.Metrics.Middleware())
	}
	if d.CSRF != nil {
		v1.Use(csrf.Middleware(*d.CSRF))
	}

	protect := d.Authenticator.Protect
	admin := d.Guard.Require(auth.Roles(models.RoleAdministrator))

	public := v1.Group("/auth")
	if d.Limiter != nil {
		limited := d.Limiter.Middleware(tooManyRequests)
		public.POST("/login", d.Auth.Login, limited)
		public.POST("/forgot-password", d.Auth.ForgotPassword, limited)
		public.POST("/verify-reset-otp", d.Auth.VerifyResetOTP, limited)
		public.PUT("/reset-password", d.Auth.ResetPassword, limited)
	} else {
		public.POST("/login", d.Auth.Login)
		public.POST("/forgot-password", d.Auth.ForgotPassword)
		public.POST("/verify-reset-otp", d.Auth.VerifyResetOTP)
		public.PUT("/reset-password", d.Auth.ResetPassword)
	}
	public.POST("/refresh-token", d.Auth.RefreshToken)
	public.POST("/switch-role", d.Auth.SwitchRole, protect)
	public.POST("/logout", d.Auth.Logout, protect)

	v1.GET("/users/:id", d.Users.GetUser, protect,
		auth.SelfAccess("id", d.Users.Svc.Owner, selfRestricted()...))

	users := v1.Group("/administration/users", protect, admin)
	users.POST("/assign-role", d.Users.AssignRole)
	users.GET("", d.Users.ListUsers)
	users.GET("/:identifier", d.Users.GetByIdentifier)
	users.PATCH("/suspend", d.Users.Suspend)
	users.PATCH("/unsuspend", d.Users.Unsuspend)

	roles := v1.Group("/roles", protect, admin)
	roles.GET("", d.Roles.ListRoles)
	roles.GET("/:id", d.Roles.GetRole)

	v1.GET("/permissions", d.Roles.ListPermissions, protect, d.Guard.Require(auth.Permission("ROLE", models.ActionRead)))
	v1.GET("/audit/events", d.Search.Events, protect, d.Guard.Require(auth.Permission("AUDIT", models.ActionRead)))
}
