package handlers

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/service"
)

type RoleHandler struct {
	Svc *service.RoleService
}

func (h *RoleHandler) ListRoles(c echo.Context) error {
	roles, err := h.Svc.List(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, roles, "Roles retrieved")
}

func (h *RoleHandler) GetRole(c echo.Context) error {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil {
		return apperr.Validation(map[string]string{"id": "Role id must be a number"})
	}
	role, err := h.Svc.Get(c.Request().Context(), uint(id))
	if err != nil {
		return err
	}
	return ok(c, role, "Role retrieved")
}

func (h *RoleHandler) ListPermissions(c echo.Context) error {
	perms, err := h.Svc.Permissions(c.Request().Context())
	if err != nil {
		return err
	}
	return ok(c, perms, "Permissions retrieved")
}
