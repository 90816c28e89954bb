package httpserver

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/handlers"
	"github.com/Skotchmaster/school_backend/pkg/logging"
)

// ErrorHandler renders every failure in the response envelope. Stack traces of
// unexpected errors are only exposed outside production.
func ErrorHandler(production bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		ae := toAppError(err)
		status := ae.Status()
		body := handlers.Response{Success: false, Message: ae.Message, Errors: ae.Fields}

		if status >= http.StatusInternalServerError {
			l := logging.FromContext(c.Request().Context())
			l.Error("request_failed", "status", status, "reason", ae.Kind, "error", err, "stack", ae.StackTrace())
			if !production {
				body.Stack = ae.StackTrace()
			}
			if ae.Kind == apperr.KindInternal {
				body.Message = apperr.ErrInternal.Message
			}
		}

		var werr error
		if c.Request().Method == http.MethodHead {
			werr = c.NoContent(status)
		} else {
			werr = c.JSON(status, body)
		}
		if werr != nil {
			logging.FromContext(c.Request().Context()).Error("write_error_response", "error", werr)
		}
	}
}

func toAppError(err error) *apperr.Error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		msg := http.StatusText(he.Code)
		if m, ok := he.Message.(string); ok && m != "" {
			msg = m
		}
		switch he.Code {
		case http.StatusNotFound:
			return apperr.NotFound(msg)
		case http.StatusMethodNotAllowed:
			return apperr.ErrMethodNotAllowed.WithMessage(msg)
		case http.StatusBadRequest, http.StatusUnsupportedMediaType:
			return apperr.ErrInvalidRequest.WithMessage(msg)
		case http.StatusUnauthorized:
			return apperr.ErrUnauthorized.WithMessage(msg)
		case http.StatusForbidden:
			return apperr.Forbidden(msg)
		case http.StatusTooManyRequests:
			return apperr.ErrTooManyRequests
		}
		if he.Code < http.StatusInternalServerError {
			return apperr.ErrInvalidRequest.WithMessage(msg)
		}
		return apperr.Internal(fmt.Errorf("http %d: %v", he.Code, he.Message))
	}
	return apperr.As(err)
}
