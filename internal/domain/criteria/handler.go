package criteria

import (
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cohortlab/cohort/internal/platform/artifacts"
	"github.com/cohortlab/cohort/pkg/pagination"
)

// ProcessRequest is the criteria/process request body.
type ProcessRequest struct {
	CriteriaText string `json:"criteria_text"`
}

// ChatRequest is the ai-chat request body.
type ChatRequest struct {
	Message     string        `json:"message"`
	SQL         string        `json:"sql"`
	ChatHistory []ChatMessage `json:"chat_history"`
}

// SaveArtifactRequest is the artifacts POST body.
type SaveArtifactRequest struct {
	Name    string         `json:"name"`
	Type    string         `json:"artifact_type"`
	Payload map[string]any `json:"payload"`
}

type Handler struct {
	svc   *Service
	store *artifacts.Store
}

func NewHandler(svc *Service, store *artifacts.Store) *Handler {
	return &Handler{svc: svc, store: store}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/criteria/process", h.ProcessCriteria)
	api.POST("/ai-chat", h.AIChat)
	api.GET("/units/:test", h.GetUnits)
	api.GET("/artifacts", h.ListArtifacts)
	api.GET("/artifacts/:id", h.GetArtifact)
	api.POST("/artifacts", h.SaveArtifact)
}

// ProcessCriteria runs the full parse/resolve/generate/execute pipeline.
func (h *Handler) ProcessCriteria(c echo.Context) error {
	var req ProcessRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.CriteriaText) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "criteria_text is required")
	}
	result, err := h.svc.Process(c.Request().Context(), req.CriteriaText)
	if err != nil {
		return echo.NewHTTPError(http.StatusUnprocessableEntity, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// AIChat handles interactive SQL assistance.
func (h *Handler) AIChat(c echo.Context) error {
	var req ChatRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.Message) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "message is required")
	}
	result, err := h.svc.Chat(c.Request().Context(), req.Message, req.SQL, req.ChatHistory)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, result)
}

// GetUnits resolves unit conversion rules for a lab test name.
func (h *Handler) GetUnits(c echo.Context) error {
	return c.JSON(http.StatusOK, ResolveUnits(c.Param("test")))
}

func (h *Handler) ListArtifacts(c echo.Context) error {
	metas, err := h.store.List(c.QueryParam("artifact_type"))
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	pg := pagination.FromContext(c)
	page := pagination.Slice(metas, pg)
	return c.JSON(http.StatusOK, pagination.NewResponse(page, len(metas), pg.Limit, pg.Offset))
}

func (h *Handler) GetArtifact(c echo.Context) error {
	artifact, err := h.store.Load(c.Param("id"))
	if err != nil {
		if errors.Is(err, artifacts.ErrNotFound) {
			return echo.NewHTTPError(http.StatusNotFound, "artifact not found")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, artifact)
}

func (h *Handler) SaveArtifact(c echo.Context) error {
	var req SaveArtifactRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if req.Name == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "name is required")
	}
	meta, err := h.store.Save(req.Name, req.Payload, req.Type)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusCreated, meta)
}
