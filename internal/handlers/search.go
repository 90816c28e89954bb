package handlers

import (
	"context"

	"github.com/labstack/echo/v4"

	"github.com/Skotchmaster/school_backend/internal/apperr"
	"github.com/Skotchmaster/school_backend/internal/audit"
	"github.com/Skotchmaster/school_backend/internal/util"
)

// AuditSearcher is satisfied by *audit.ESStore.
type AuditSearcher interface {
	Search(ctx context.Context, q audit.Query) (int64, []audit.Event, error)
}

type SearchHandler struct {
	Store AuditSearcher
}

type auditPage struct {
	Total  int64         `json:"total"`
	Page   int           `json:"page"`
	Limit  int           `json:"limit"`
	Events []audit.Event `json:"events"`
}

// Events searches the security audit trail. Without a configured store the endpoint is unavailable.
func (h *SearchHandler) Events(c echo.Context) error {
	if h.Store == nil {
		return apperr.NotFound("Audit search is not enabled")
	}

	page, err := queryInt(c, "page")
	if err != nil {
		return err
	}
	size, err := queryInt(c, "limit")
	if err != nil {
		return err
	}
	from, size := util.Calculate(page, size)
	if page < 1 {
		page = 1
	}

	total, events, err := h.Store.Search(c.Request().Context(), audit.Query{
		Text:   c.QueryParam("q"),
		UserID: c.QueryParam("user_id"),
		Type:   c.QueryParam("type"),
		From:   from,
		Size:   size,
	})
	if err != nil {
		return apperr.Internal(err)
	}
	if events == nil {
		events = []audit.Event{}
	}
	return ok(c, auditPage{Total: total, Page: page, Limit: size, Events: events}, "Audit events retrieved")
}
