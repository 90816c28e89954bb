package handlers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/middleware/auth"
	"github.com/Skotchmaster/school_backend/internal/service"
)

type UserHandler struct {
	Svc *service.UserService
}

func actorID(c echo.Context) (string, error) {
	u, found := auth.CurrentUser(c)
	if !found {
		return "", apperr.ErrUnauthorized
	}
	return u.ID, nil
}

func (h *UserHandler) GetUser(c echo.Context) error {
	p, err := h.Svc.Get(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return ok(c, p, "User retrieved")
}

func (h *UserHandler) AssignRole(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}

	var req assignRoleRequest
	if err := bind(c, &req); err != nil {
		return err
	}

	res, err := h.Svc.AssignRole(c.Request().Context(), actor, service.AssignRoleInput{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	if res.Created {
		return created(c, res.User, "User created and role assigned")
	}
	return ok(c, res.User, "Role assigned")
}

func (h *UserHandler) ListUsers(c echo.Context) error {
	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	res, err := h.Svc.List(c.Request().Context(), page, limit)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, Response{Success: true, Data: res, Message: "Users retrieved"})
}

func (h *UserHandler) GetByIdentifier(c echo.Context) error {
	p, err := h.Svc.Get(c.Request().Context(), c.Param("identifier"))
	if err != nil {
		return err
	}
	return ok(c, p, "User retrieved")
}

func (h *UserHandler) Suspend(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req identifierRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.Svc.Suspend(c.Request().Context(), actor, req.Identifier)
	if err != nil {
		return err
	}
	return ok(c, p, "User suspended")
}

func (h *UserHandler) Unsuspend(c echo.Context) error {
	actor, err := actorID(c)
	if err != nil {
		return err
	}
	var req identifierRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	p, err := h.Svc.Unsuspend(c.Request().Context(), actor, req.Identifier)
	if err != nil {
		return err
	}
	return ok(c, p, "User unsuspended")
}

// queryInt reads an optional non-negative integer query parameter.
func queryInt(c echo.Context, name string) (int, error) {
	raw := c.QueryParam(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, apperr.Validation(map[string]string{name: name + " must be a positive integer"})
	}
	return n, nil
}
