package executor

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/cohortlab/cohort/internal/platform/llm"
)

// Runner is the execution capability the handler needs; satisfied by
// *Executor and by stubs in tests.
type Runner interface {
	Run(ctx context.Context, sql, mode string) Result
}

// TableLister supplies the table names quoted in debug prompts. The schema
// catalog service implements it.
type TableLister interface {
	Tables(ctx context.Context) ([]string, error)
}

type Handler struct {
	runner Runner
	gen    llm.Generator
	tables TableLister
}

func NewHandler(runner Runner, gen llm.Generator, tables TableLister) *Handler {
	return &Handler{runner: runner, gen: gen, tables: tables}
}

func (h *Handler) RegisterRoutes(api *echo.Group) {
	api.POST("/execute-sql", h.ExecuteSQL)
	api.POST("/debug-sql", h.DebugSQL)
}

// ExecuteSQL runs a caller-supplied query through the guarded executor.
// The mode defaults to preview.
func (h *Handler) ExecuteSQL(c echo.Context) error {
	var req SQLRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.SQL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sql is required")
	}
	if req.Mode == "" {
		req.Mode = ModePreview
	}
	result := h.runner.Run(c.Request().Context(), req.SQL, req.Mode)
	return c.JSON(http.StatusOK, result)
}

// DebugSQL asks the model to analyze a failed query. Failures come back as
// ok=false payloads, matching the executor's in-band error convention.
func (h *Handler) DebugSQL(c echo.Context) error {
	var req DebugRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if strings.TrimSpace(req.SQL) == "" {
		return echo.NewHTTPError(http.StatusBadRequest, "sql is required")
	}

	ctx := c.Request().Context()
	tableNames, err := h.tables.Tables(ctx)
	if err != nil {
		tableNames = nil
	}

	prompt := buildDebugPrompt(req.SQL, req.Error, tableNames)
	response, err := h.gen.Generate(ctx, prompt)
	if err != nil {
		return c.JSON(http.StatusOK, DebugResponse{OK: false, Error: err.Error()})
	}

	resp := DebugResponse{OK: true, Analysis: response}
	if corrected, ok := llm.ExtractFencedSQL(response); ok {
		resp.CorrectedSQL = &corrected
	}
	return c.JSON(http.StatusOK, resp)
}

func buildDebugPrompt(sql, errMsg string, tables []string) string {
	return fmt.Sprintf(`You are a SQL debugging expert. Analyze this SQL error and provide helpful guidance.

DATABASE SCHEMA:
Available tables: %s

Key columns:
- patients: patient_id, age, gender
- claims: claim_id, patient_id, primary_diagnosis_code, secondary_diagnosis_code, tertiary_diagnosis_code, drug_name, procedure_code

FAILED SQL QUERY:
%s

ERROR MESSAGE:
%s

Please provide:
1. **What went wrong**: Clear explanation of the error
2. **Why it happened**: Root cause analysis
3. **How to fix it**: Specific steps to correct the query
4. **Corrected SQL**: Provide the fixed SQL query

Format your response in a clear, structured way.`,
		strings.Join(tables, ", "), sql, errMsg)
}
