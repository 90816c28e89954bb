package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/handlers"
)

func render(t *testing.T, production bool, err error) (int, handlers.Response) {
	t.Helper()

	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)
	ErrorHandler(production)(err, c)

	var body handlers.Response
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec.Code, body
}

func TestErrorHandler_TypedErrors(t *testing.T) {
	code, body := render(t, true, apperr.ErrInvalidCredentials)
	assert.Equal(t, http.StatusUnauthorized, code)
	assert.False(t, body.Success)
	assert.Equal(t, "Invalid email or password", body.Message)
	assert.Nil(t, body.Data)

	code, body = render(t, true, apperr.Validation(map[string]string{"email": "Email is required"}))
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Equal(t, "Email is required", body.Errors["email"])
}

func TestErrorHandler_UnexpectedErrors(t *testing.T) {
	code, body := render(t, false, errors.New("db exploded"))
	assert.Equal(t, http.StatusInternalServerError, code)
	assert.Equal(t, "Internal server error", body.Message)
	assert.NotEmpty(t, body.Stack)

	_, body = render(t, true, errors.New("db exploded"))
	assert.Empty(t, body.Stack)
	assert.NotContains(t, body.Message, "exploded")
}

func TestErrorHandler_EchoErrors(t *testing.T) {
	code, body := render(t, true, echo.ErrNotFound)
	assert.Equal(t, http.StatusNotFound, code)
	assert.Equal(t, "Not Found", body.Message)

	code, body = render(t, true, echo.ErrMethodNotAllowed)
	assert.Equal(t, http.StatusMethodNotAllowed, code)
	assert.Equal(t, "Method Not Allowed", body.Message)

	code, _ = render(t, true, echo.ErrUnsupportedMediaType)
	assert.Equal(t, http.StatusBadRequest, code)

	code, _ = render(t, true, echo.NewHTTPError(http.StatusTooManyRequests))
	assert.Equal(t, http.StatusTooManyRequests, code)
}
