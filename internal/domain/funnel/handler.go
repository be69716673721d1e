package funnel

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/funnel/whatif", h.WhatIf)
}

// WhatIf recomputes the funnel for a caller-selected subset of criteria.
func (h *Handler) WhatIf(c echo.Context) error {
	var req WhatIfRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	result := h.svc.ComputeFunnel(c.Request().Context(), req.Criteria, req.EnabledInclusion, req.EnabledExclusion)
	return c.JSON(http.StatusOK, result)
}
