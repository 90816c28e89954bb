package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// Response is the envelope every endpoint answers with.
type Response struct {
	Success bool              `json:"success"`
	Data    any               `json:"data"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Stack   string            `json:"stack,omitempty"`
}

func ok(c echo.Context, data any, msg string) error {
	return c.JSON(http.StatusOK, Response{Success: true, Data: data, Message: msg})
}

func created(c echo.Context, data any, msg string) error {
	return c.JSON(http.StatusCreated, Response{Success: true, Data: data, Message: msg})
}
