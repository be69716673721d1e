package executor

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"github.com/cohortlab/cohort/internal/platform/llm"
)

type stubRunner struct {
	lastSQL  string
	lastMode string
	result   Result
}

func (s *stubRunner) Run(_ context.Context, sql, mode string) Result {
	s.lastSQL = sql
	s.lastMode = mode
	return s.result
}

type stubTables struct{ names []string }

func (s stubTables) Tables(context.Context) ([]string, error) { return s.names, nil }

func newTestHandler(runner *stubRunner, gen llm.Generator) (*Handler, *echo.Echo) {
	h := NewHandler(runner, gen, stubTables{names: []string{"patients", "claims"}})
	e := echo.New()
	return h, e
}

func TestHandler_ExecuteSQL(t *testing.T) {
	runner := &stubRunner{result: Result{
		OK:          true,
		Summary:     &Summary{RowCount: 3, TimingMS: 1.5},
		Columns:     []string{"cnt"},
		PreviewRows: []map[string]any{{"cnt": 3}},
		Warnings:    []string{},
	}}
	h, e := newTestHandler(runner, &llm.Static{})

	body := `{"sql":"SELECT COUNT(*) AS cnt FROM patients","mode":"count"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExecuteSQL(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if runner.lastMode != ModeCount {
		t.Errorf("mode = %q, want count", runner.lastMode)
	}

	var got Result
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.OK || got.Summary.RowCount != 3 {
		t.Errorf("unexpected result: %+v", got)
	}
}

func TestHandler_ExecuteSQL_DefaultsToPreview(t *testing.T) {
	runner := &stubRunner{result: Result{OK: true, Summary: &Summary{}}}
	h, e := newTestHandler(runner, &llm.Static{})

	body := `{"sql":"SELECT 1"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.ExecuteSQL(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if runner.lastMode != ModePreview {
		t.Errorf("mode = %q, want preview", runner.lastMode)
	}
}

func TestHandler_ExecuteSQL_MissingSQL(t *testing.T) {
	h, e := newTestHandler(&stubRunner{}, &llm.Static{})

	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"sql":"  "}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	err := h.ExecuteSQL(c)
	if err == nil {
		t.Fatal("expected error for blank sql")
	}
	httpErr, ok := err.(*echo.HTTPError)
	if !ok || httpErr.Code != http.StatusBadRequest {
		t.Errorf("expected 400 HTTPError, got %v", err)
	}
}

func TestHandler_DebugSQL(t *testing.T) {
	analysis := "The table name is misspelled.\n```sql\nSELECT * FROM patients\n```"
	gen := &llm.Static{Responses: []string{analysis}}
	h, e := newTestHandler(&stubRunner{}, gen)

	body := `{"sql":"SELECT * FROM patiens","error":"relation \"patiens\" does not exist"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.DebugSQL(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var got DebugResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !got.OK {
		t.Fatalf("expected ok response, got %+v", got)
	}
	if got.CorrectedSQL == nil || *got.CorrectedSQL != "SELECT * FROM patients" {
		t.Errorf("CorrectedSQL = %v, want fixed statement", got.CorrectedSQL)
	}
}

func TestHandler_DebugSQL_NoCorrectionFence(t *testing.T) {
	gen := &llm.Static{Responses: []string{"The error means the column does not exist."}}
	h, e := newTestHandler(&stubRunner{}, gen)

	body := `{"sql":"SELECT agee FROM patients","error":"column does not exist"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.DebugSQL(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got DebugResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.CorrectedSQL != nil {
		t.Errorf("CorrectedSQL = %v, want nil", got.CorrectedSQL)
	}
}

func TestHandler_DebugSQL_GeneratorDisabled(t *testing.T) {
	h, e := newTestHandler(&stubRunner{}, llm.Disabled{})

	body := `{"sql":"SELECT 1","error":"boom"}`
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	if err := h.DebugSQL(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got DebugResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.OK {
		t.Error("expected ok=false when generation is unavailable")
	}
	if got.Error == "" {
		t.Error("expected error message")
	}
}
