package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Executor runs ad-hoc SQL against the cohort database behind a keyword
// denylist and a per-query timeout. Failures never surface as Go errors:
// every outcome is a structured Result so callers and the HTTP surface can
// branch on Error.Kind.
type Executor struct {
	pool    *pgxpool.Pool
	timeout time.Duration
}

func New(pool *pgxpool.Pool, timeout time.Duration) *Executor {
	return &Executor{pool: pool, timeout: timeout}
}

// Run executes sql in the given output mode.
//
// count returns only the row count, preview returns the count plus the first
// 10 rows, full returns every row (warning above 1000). The denylist and mode
// check run before any connection is acquired.
func (e *Executor) Run(ctx context.Context, sql, mode string) Result {
	if execErr := checkDestructive(sql); execErr != nil {
		return failure(execErr.Kind, execErr.Message)
	}
	switch mode {
	case ModeCount, ModePreview, ModeFull:
	default:
		return failure(KindInvalidMode,
			fmt.Sprintf("Invalid mode '%s'. Use 'count', 'preview', or 'full'", mode))
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return failureFromError(err)
	}
	defer conn.Release()

	start := time.Now()
	rows, err := conn.Query(ctx, sql)
	if err != nil {
		return failureFromError(err)
	}
	defer rows.Close()

	columns := make([]string, 0, len(rows.FieldDescriptions()))
	for _, fd := range rows.FieldDescriptions() {
		columns = append(columns, string(fd.Name))
	}

	var all []map[string]any
	for rows.Next() {
		vals, err := rows.Values()
		if err != nil {
			return failureFromError(err)
		}
		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if i < len(vals) {
				row[col] = vals[i]
			}
		}
		all = append(all, row)
	}
	if err := rows.Err(); err != nil {
		return failureFromError(err)
	}
	elapsed := time.Since(start)

	return shapeResult(mode, columns, all, elapsed)
}

// shapeResult turns collected rows into the mode-specific response. Split out
// from Run so the row-shaping rules are testable without a database.
func shapeResult(mode string, columns []string, all []map[string]any, elapsed time.Duration) Result {
	summary := &Summary{
		RowCount: len(all),
		TimingMS: float64(elapsed.Microseconds()) / 1000.0,
	}
	res := Result{
		OK:          true,
		Summary:     summary,
		Columns:     columns,
		PreviewRows: []map[string]any{},
		Warnings:    []string{},
	}

	switch mode {
	case ModeCount:
		// count mode returns no rows at all.
	case ModePreview:
		if len(all) > previewLimit {
			res.PreviewRows = all[:previewLimit]
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Showing %d of %d rows", previewLimit, len(all)))
		} else if all != nil {
			res.PreviewRows = all
		}
	case ModeFull:
		if all != nil {
			res.PreviewRows = all
		}
		if len(all) > largeResultThreshold {
			res.Warnings = append(res.Warnings,
				fmt.Sprintf("Large result set: %d rows returned", len(all)))
		}
	}
	return res
}

// classify maps a query failure to an error kind. Postgres failures classify
// by SQLSTATE; everything else falls back to message inspection.
func classify(err error) *ExecError {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		kind := KindOperationalError
		switch pgErr.Code {
		case "42601":
			kind = KindSyntaxError
		case "42P01", "42703":
			kind = KindSchemaError
		}
		return &ExecError{Message: pgErr.Message, Kind: kind}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &ExecError{Message: "query timed out", Kind: KindOperationalError}
	}

	msg := err.Error()
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "syntax error"):
		return &ExecError{Message: msg, Kind: KindSyntaxError}
	case strings.Contains(lower, "no such table"),
		strings.Contains(lower, "no such column"),
		strings.Contains(lower, "does not exist"):
		return &ExecError{Message: msg, Kind: KindSchemaError}
	case strings.Contains(lower, "connection"),
		strings.Contains(lower, "timeout"):
		return &ExecError{Message: msg, Kind: KindOperationalError}
	}
	return &ExecError{Message: msg, Kind: KindUnknownError}
}

func failureFromError(err error) Result {
	execErr := classify(err)
	return failure(execErr.Kind, execErr.Message)
}

// Explain returns the planner's text plan for sql without executing it.
func (e *Executor) Explain(ctx context.Context, sql string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	rows, err := e.pool.Query(ctx, "EXPLAIN "+sql)
	if err != nil {
		return nil, fmt.Errorf("explain query: %w", err)
	}
	defer rows.Close()

	var plan []string
	for rows.Next() {
		var line string
		if err := rows.Scan(&line); err != nil {
			return nil, err
		}
		plan = append(plan, line)
	}
	return plan, rows.Err()
}

// ValidateSyntax prepares sql without executing it. The message is the
// parse failure when invalid.
func (e *Executor) ValidateSyntax(ctx context.Context, sql string) (bool, string) {
	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	conn, err := e.pool.Acquire(ctx)
	if err != nil {
		return false, err.Error()
	}
	defer conn.Release()

	if _, err := conn.Conn().Prepare(ctx, "", sql); err != nil {
		return false, err.Error()
	}
	return true, "SQL syntax is valid"
}
