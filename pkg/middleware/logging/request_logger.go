package loggingmw

import (
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/pkg/logging"
)

// RequestLogger puts a request-scoped logger into the context and logs one line per request.
// Errors are rendered here so the logged status is the one the client sees.
func RequestLogger(base *slog.Logger) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			rid := c.Request().Header.Get(echo.HeaderXRequestID)
			if rid == "" {
				rid = uuid.NewString()
			}
			c.Response().Header().Set(echo.HeaderXRequestID, rid)

			l := base.With(
				slog.String("request_id", rid),
				slog.String("method", c.Request().Method),
				slog.String("path", c.Path()),
				slog.String("remote_ip", c.RealIP()),
			)

			req := c.Request().WithContext(logging.IntoContext(c.Request().Context(), l))
			c.SetRequest(req)

			start := time.Now()
			err := next(c)
			dur := time.Since(start)

			if err != nil {
				c.Error(err)
			}
			status := c.Response().Status

			// Protect may have enriched the logger with the caller's identity
			l = logging.FromContext(c.Request().Context())
			switch {
			case status >= 500:
				l.Error("request completed", slog.Int("status", status), slog.Int64("duration_ms", dur.Milliseconds()), slog.Any("error", err))
			case status >= 400:
				l.Warn("request completed", slog.Int("status", status), slog.Int64("duration_ms", dur.Milliseconds()))
			default:
				l.Info("request completed", slog.Int("status", status), slog.Int64("duration_ms", dur.Milliseconds()), slog.Int64("bytes", c.Response().Size))
			}
			return nil
		}
	}
}
