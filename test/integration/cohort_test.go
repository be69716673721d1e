package integration

import (
	"context"
	"testing"
	"time"

	"github.com/cohortlab/cohort/internal/domain/catalog"
	"github.com/cohortlab/cohort/internal/domain/concept"
	"github.com/cohortlab/cohort/internal/domain/executor"
	"github.com/cohortlab/cohort/internal/domain/funnel"
)

func newExecutor() *executor.Executor {
	return executor.New(globalPool, 10*time.Second)
}

func TestExecutorCountMode(t *testing.T) {
	res := newExecutor().Run(context.Background(), "SELECT * FROM patients", executor.ModeCount)
	if !res.OK {
		t.Fatalf("result = %+v", res)
	}
	if res.Summary.RowCount != 6 {
		t.Errorf("RowCount = %d, want 6", res.Summary.RowCount)
	}
	if len(res.PreviewRows) != 0 {
		t.Errorf("count mode returned %d rows", len(res.PreviewRows))
	}
}

func TestExecutorPreviewColumnsAndRows(t *testing.T) {
	res := newExecutor().Run(context.Background(),
		"SELECT patient_id, age FROM patients ORDER BY patient_id LIMIT 2", executor.ModePreview)
	if !res.OK {
		t.Fatalf("result = %+v", res)
	}
	if len(res.Columns) != 2 || res.Columns[0] != "patient_id" || res.Columns[1] != "age" {
		t.Errorf("Columns = %v", res.Columns)
	}
	if len(res.PreviewRows) != 2 {
		t.Fatalf("got %d rows, want 2", len(res.PreviewRows))
	}
	if res.PreviewRows[0]["patient_id"] != "P0001" {
		t.Errorf("first row = %v", res.PreviewRows[0])
	}
}

func TestExecutorRejectsDestructiveSQL(t *testing.T) {
	res := newExecutor().Run(context.Background(), "DELETE FROM patients", executor.ModePreview)
	if res.OK || res.Error == nil {
		t.Fatalf("result = %+v", res)
	}
	if res.Error.Kind != executor.KindSafetyViolation {
		t.Errorf("Kind = %q, want %q", res.Error.Kind, executor.KindSafetyViolation)
	}

	var n int
	if err := globalPool.QueryRow(context.Background(), "SELECT COUNT(*) FROM patients").Scan(&n); err != nil {
		t.Fatalf("count patients: %v", err)
	}
	if n != 6 {
		t.Errorf("patients = %d after blocked DELETE, want 6", n)
	}
}

func TestExecutorClassifiesErrors(t *testing.T) {
	exec := newExecutor()

	res := exec.Run(context.Background(), "SELEC * FROM patients", executor.ModePreview)
	if res.OK || res.Error.Kind != executor.KindSyntaxError {
		t.Errorf("syntax result = %+v", res)
	}

	res = exec.Run(context.Background(), "SELECT * FROM no_such_table", executor.ModePreview)
	if res.OK || res.Error.Kind != executor.KindSchemaError {
		t.Errorf("missing table result = %+v", res)
	}

	res = exec.Run(context.Background(), "SELECT no_such_column FROM patients", executor.ModePreview)
	if res.OK || res.Error.Kind != executor.KindSchemaError {
		t.Errorf("missing column result = %+v", res)
	}
}

func TestExecutorQueryTimeout(t *testing.T) {
	exec := executor.New(globalPool, 100*time.Millisecond)
	res := exec.Run(context.Background(), "SELECT pg_sleep(2)", executor.ModePreview)
	if res.OK || res.Error == nil {
		t.Fatalf("result = %+v", res)
	}
	if res.Error.Kind != executor.KindOperationalError {
		t.Errorf("Kind = %q, want %q", res.Error.Kind, executor.KindOperationalError)
	}
}

func TestExecutorExplainAndValidate(t *testing.T) {
	exec := newExecutor()
	ctx := context.Background()

	plan, err := exec.Explain(ctx, "SELECT * FROM patients WHERE age > 40")
	if err != nil {
		t.Fatalf("Explain() error = %v", err)
	}
	if len(plan) == 0 {
		t.Error("empty plan")
	}

	if ok, _ := exec.ValidateSyntax(ctx, "SELECT patient_id FROM patients"); !ok {
		t.Error("valid statement reported invalid")
	}
	if ok, msg := exec.ValidateSyntax(ctx, "SELEC patient_id FROM patients"); ok {
		t.Error("invalid statement reported valid")
	} else if msg == "" {
		t.Error("missing error detail for invalid statement")
	}
}

func TestConceptSearchAgainstDatabase(t *testing.T) {
	svc := concept.NewService(concept.NewRepo(globalPool))

	matches, err := svc.Search(context.Background(), "diabetes", concept.SystemICD10CM)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) == 0 {
		t.Fatal("no matches for diabetes")
	}
	seen := map[string]bool{}
	for _, m := range matches {
		seen[m.Code] = true
	}
	for _, code := range []string{"E11.9", "E11.65", "E11.22"} {
		if !seen[code] {
			t.Errorf("missing code %s in %v", code, matches)
		}
	}
	for i := 1; i < len(matches); i++ {
		if matches[i].MatchScore > matches[i-1].MatchScore {
			t.Errorf("matches not sorted by score: %v", matches)
			break
		}
	}
}

func TestConceptSearchDrugs(t *testing.T) {
	svc := concept.NewService(concept.NewRepo(globalPool))

	matches, err := svc.Search(context.Background(), "metformin", concept.SystemNDC)
	if err != nil {
		t.Fatalf("Search() error = %v", err)
	}
	if len(matches) != 1 || matches[0].Code != "50090-2875" {
		t.Fatalf("matches = %v", matches)
	}
	if matches[0].MatchScore != 0.9 {
		t.Errorf("MatchScore = %v, want 0.9 for name-only match", matches[0].MatchScore)
	}
}

func TestCatalogIntrospection(t *testing.T) {
	repo := catalog.NewRepo(globalPool)
	ctx := context.Background()

	tables, err := repo.TableNames(ctx)
	if err != nil {
		t.Fatalf("TableNames() error = %v", err)
	}
	want := map[string]bool{"patients": false, "claims": false, "ref_icd10": false, "ref_cpt": false, "ref_ndc": false}
	for _, tb := range tables {
		if _, ok := want[tb]; ok {
			want[tb] = true
		}
	}
	for tb, found := range want {
		if !found {
			t.Errorf("table %s missing from %v", tb, tables)
		}
	}

	cols, err := repo.Columns(ctx, "patients")
	if err != nil {
		t.Fatalf("Columns() error = %v", err)
	}
	var pk string
	for _, c := range cols {
		if c.PrimaryKey {
			pk = c.Name
		}
	}
	if pk != "patient_id" {
		t.Errorf("primary key = %q, want patient_id", pk)
	}

	n, err := repo.RowCount(ctx, "claims")
	if err != nil {
		t.Fatalf("RowCount() error = %v", err)
	}
	if n != 6 {
		t.Errorf("claims rows = %d, want 6", n)
	}
}

func TestFunnelAgainstDatabase(t *testing.T) {
	svc := funnel.NewService(newExecutor(), 500)

	criteria := funnel.CriteriaSet{
		Inclusion: []funnel.Criterion{
			{ID: "inc1", Domain: "demographic", Concept: "age", Description: "Age 18-75"},
			{ID: "inc2", Domain: "diagnosis", Concept: "type 2 diabetes", Description: "Type 2 diabetes"},
		},
		Exclusion: []funnel.Criterion{
			{ID: "exc1", Domain: "diagnosis", Concept: "heart failure", Description: "Heart failure"},
		},
	}

	res := svc.ComputeFunnel(context.Background(), criteria,
		[]string{"inc1", "inc2"}, []string{"exc1"})

	if res.BaseCount != 6 {
		t.Errorf("BaseCount = %d, want 6", res.BaseCount)
	}
	if len(res.Steps) != 3 {
		t.Fatalf("got %d steps, want 3", len(res.Steps))
	}
	// Ages 45, 70, 30, 55 fall in range; 17 and 80 do not.
	if res.Steps[0].Count != 4 {
		t.Errorf("age step count = %d, want 4", res.Steps[0].Count)
	}
	// P0001, P0002, P0003, P0006 carry an E11 code on some claim.
	if res.Steps[1].Count != 4 {
		t.Errorf("diabetes step count = %d, want 4", res.Steps[1].Count)
	}
	// Only P0002 has an I50 code.
	if res.Steps[2].DropCount != 1 {
		t.Errorf("heart failure exclusion dropped %d, want 1", res.Steps[2].DropCount)
	}
	if res.FinalCount != 3 {
		t.Errorf("FinalCount = %d, want 3", res.FinalCount)
	}
}
