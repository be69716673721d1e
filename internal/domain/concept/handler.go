package concept

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/cohortlab/cohort/pkg/pagination"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.GET("/concepts", h.SearchConcepts)
	api.GET("/concepts/:code/hierarchy", h.GetHierarchy)
}

// SearchConcepts resolves ?term= against reference vocabularies, optionally
// restricted by ?code_system=.
func (h *Handler) SearchConcepts(c echo.Context) error {
	term := c.QueryParam("term")
	if term == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "term is required")
	}
	codeSystem := c.QueryParam("code_system")
	switch codeSystem {
	case "", SystemICD10CM, "ICD10", SystemCPT, SystemNDC:
	default:
		return echo.NewHTTPError(http.StatusBadRequest, "invalid code_system")
	}

	matches, err := h.svc.Search(c.Request().Context(), term, codeSystem)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}

	pg := pagination.FromContext(c)
	page := pagination.Slice(matches, pg)
	return c.JSON(http.StatusOK, pagination.NewResponse(page, len(matches), pg.Limit, pg.Offset))
}

// GetHierarchy returns the prefix neighborhood of a code. Defaults to ICD10CM.
func (h *Handler) GetHierarchy(c echo.Context) error {
	code := c.Param("code")
	codeSystem := c.QueryParam("code_system")
	if codeSystem == "" {
		codeSystem = SystemICD10CM
	}

	hier, err := h.svc.HierarchyFor(c.Request().Context(), code, codeSystem)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, hier)
}
