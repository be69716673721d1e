package executor

// Output modes for Run.
const (
	ModeCount   = "count"
	ModePreview = "preview"
	ModeFull    = "full"
)

// Error kinds carried in ExecError.Kind. Callers branch on these instead of
// parsing messages.
const (
	KindSafetyViolation  = "SafetyViolation"
	KindSyntaxError      = "SyntaxError"
	KindSchemaError      = "SchemaError"
	KindOperationalError = "OperationalError"
	KindUnknownError     = "UnknownError"
	KindInvalidMode      = "InvalidMode"
)

// previewLimit caps preview-mode rows; largeResultThreshold triggers the
// full-mode warning.
const (
	previewLimit         = 10
	largeResultThreshold = 1000
)

// Summary carries the row count and wall-clock timing of a query.
type Summary struct {
	RowCount int     `json:"n"`
	TimingMS float64 `json:"timing_ms"`
}

// ExecError is a classified query failure.
type ExecError struct {
	Message string `json:"message"`
	Kind    string `json:"kind"`
}

// Result is the structured outcome of a guarded execution. Failures are
// reported in-band: OK is false and Error is set, never a Go error.
type Result struct {
	OK          bool             `json:"ok"`
	Summary     *Summary         `json:"execution_summary,omitempty"`
	Columns     []string         `json:"columns,omitempty"`
	PreviewRows []map[string]any `json:"preview_rows"`
	Warnings    []string         `json:"warnings"`
	Error       *ExecError       `json:"error,omitempty"`
}

func failure(kind, message string) Result {
	return Result{
		OK:          false,
		PreviewRows: []map[string]any{},
		Warnings:    []string{},
		Error:       &ExecError{Message: message, Kind: kind},
	}
}

// SQLRequest is the execute-sql request body.
type SQLRequest struct {
	SQL  string `json:"sql"`
	Mode string `json:"mode,omitempty"`
}

// DebugRequest is the debug-sql request body.
type DebugRequest struct {
	SQL   string `json:"sql"`
	Error string `json:"error"`
}

// DebugResponse carries the model's analysis of a failed query.
type DebugResponse struct {
	OK           bool    `json:"ok"`
	Analysis     string  `json:"analysis,omitempty"`
	CorrectedSQL *string `json:"corrected_sql"`
	Error        string  `json:"error,omitempty"`
}
