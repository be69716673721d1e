package funnel

import (
	"context"
	"math"
	"strings"
	"testing"

	"github.com/cohortlab/cohort/internal/domain/executor"
)

// stubRunner answers count queries by substring match, first hit wins.
type stubRunner struct {
	responses []stubResponse
	calls     []string
}

type stubResponse struct {
	contains string
	count    int
	fail     bool
}

func (s *stubRunner) Run(_ context.Context, sql, _ string) executor.Result {
	s.calls = append(s.calls, sql)
	for _, r := range s.responses {
		if !strings.Contains(sql, r.contains) {
			continue
		}
		if r.fail {
			return executor.Result{
				OK:          false,
				PreviewRows: []map[string]any{},
				Error:       &executor.ExecError{Message: "boom", Kind: executor.KindOperationalError},
			}
		}
		return executor.Result{
			OK:          true,
			Summary:     &executor.Summary{RowCount: 1},
			PreviewRows: []map[string]any{{"cnt": int64(r.count)}},
			Warnings:    []string{},
		}
	}
	return executor.Result{
		OK:          false,
		PreviewRows: []map[string]any{},
		Error:       &executor.ExecError{Message: "no stub response", Kind: executor.KindUnknownError},
	}
}

func approxEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestComputeFunnel_AgeFilterScenario(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "age BETWEEN", count: 420},
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	criteria := CriteriaSet{Inclusion: []Criterion{
		{ID: "I01", Domain: "demographic", Concept: "age", Description: "Age 18-75"},
	}}
	res := svc.ComputeFunnel(context.Background(), criteria, []string{"I01"}, nil)

	if res.BaseCount != 500 {
		t.Errorf("BaseCount = %d, want 500", res.BaseCount)
	}
	if len(res.Steps) != 1 {
		t.Fatalf("got %d steps, want 1", len(res.Steps))
	}
	step := res.Steps[0]
	if step.Count != 420 || step.DropCount != 80 {
		t.Errorf("step = %+v, want count 420 drop 80", step)
	}
	if !approxEqual(step.Percentage, 84.0) {
		t.Errorf("Percentage = %v, want 84.0", step.Percentage)
	}
	if !approxEqual(step.DropPct, 16.0) {
		t.Errorf("DropPct = %v, want 16.0", step.DropPct)
	}
	if res.FinalCount != 420 {
		t.Errorf("FinalCount = %d, want 420", res.FinalCount)
	}
}

func TestComputeFunnel_ExclusionScenario(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "age BETWEEN", count: 420},
		{contains: "I50%", count: 30},
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	criteria := CriteriaSet{
		Inclusion: []Criterion{{ID: "I01", Domain: "demographic", Concept: "age"}},
		Exclusion: []Criterion{{ID: "E01", Concept: "heart failure", Description: "Heart failure"}},
	}
	res := svc.ComputeFunnel(context.Background(), criteria, []string{"I01"}, []string{"E01"})

	if len(res.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(res.Steps))
	}
	excl := res.Steps[1]
	if excl.Type != StepExclusion {
		t.Errorf("Type = %q, want exclusion", excl.Type)
	}
	if excl.Count != 390 || excl.DropCount != 30 {
		t.Errorf("step = %+v, want count 390 drop 30", excl)
	}
	if !approxEqual(excl.DropPct, 30.0/420.0*100) {
		t.Errorf("DropPct = %v, want %v", excl.DropPct, 30.0/420.0*100)
	}
	if !strings.HasPrefix(excl.Name, "Exclude: ") {
		t.Errorf("Name = %q, want Exclude: prefix", excl.Name)
	}
	if res.FinalCount != 390 {
		t.Errorf("FinalCount = %d, want 390", res.FinalCount)
	}
}

func TestComputeFunnel_DisabledCriterionEmitsNoStep(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	criteria := CriteriaSet{Inclusion: []Criterion{
		{ID: "I01", Domain: "demographic", Concept: "age"},
	}}
	res := svc.ComputeFunnel(context.Background(), criteria, nil, nil)

	if len(res.Steps) != 0 {
		t.Errorf("got %d steps, want 0", len(res.Steps))
	}
	if res.FinalCount != 500 {
		t.Errorf("FinalCount = %d, want unchanged base", res.FinalCount)
	}
}

func TestComputeFunnel_UnmatchedCriterionKeepsBaseCount(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "SELECT 500 AS cnt", count: 500},
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	criteria := CriteriaSet{Inclusion: []Criterion{
		{ID: "I02", Domain: "lab", Concept: "unknown_marker"},
	}}
	res := svc.ComputeFunnel(context.Background(), criteria, []string{"I02"}, nil)

	if len(res.Steps) != 1 {
		t.Fatalf("got %d steps, want 1", len(res.Steps))
	}
	if res.Steps[0].Count != 500 || res.Steps[0].DropCount != 0 {
		t.Errorf("step = %+v, want count 500 drop 0", res.Steps[0])
	}
}

func TestComputeFunnel_FailedStepIsOmitted(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "age BETWEEN", fail: true},
		{contains: "Metformin", count: 310},
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	criteria := CriteriaSet{Inclusion: []Criterion{
		{ID: "I01", Domain: "demographic", Concept: "age"},
		{ID: "I02", Domain: "drug", Concept: "metformin"},
	}}
	res := svc.ComputeFunnel(context.Background(), criteria, []string{"I01", "I02"}, nil)

	if len(res.Steps) != 1 {
		t.Fatalf("got %d steps, want 1 (failed step omitted)", len(res.Steps))
	}
	// The running count entering the surviving step is still the base.
	if res.Steps[0].ID != "I02" || res.Steps[0].DropCount != 190 {
		t.Errorf("step = %+v, want I02 with drop 190", res.Steps[0])
	}
}

func TestComputeFunnel_BaseQueryFailureFallsBack(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "FROM patients", fail: true},
	}}
	svc := NewService(runner, 500)

	res := svc.ComputeFunnel(context.Background(), CriteriaSet{}, nil, nil)
	if res.BaseCount != 500 {
		t.Errorf("BaseCount = %d, want fallback 500", res.BaseCount)
	}
}

func TestComputeFunnel_Monotonicity(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "age BETWEEN", count: 420},
		{contains: "E11%", count: 350},
		{contains: "Metformin", count: 310},
		{contains: "I50%", count: 25},
		{contains: "'C%'", count: 12},
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	criteria := CriteriaSet{
		Inclusion: []Criterion{
			{ID: "I01", Domain: "demographic", Concept: "age"},
			{ID: "I02", Domain: "diagnosis", Concept: "type 2 diabetes"},
			{ID: "I03", Domain: "drug", Concept: "metformin"},
		},
		Exclusion: []Criterion{
			{ID: "E01", Concept: "heart failure"},
			{ID: "E02", Concept: "cancer"},
		},
	}
	res := svc.ComputeFunnel(context.Background(), criteria,
		[]string{"I01", "I02", "I03"}, []string{"E01", "E02"})

	prev := res.BaseCount
	for i, step := range res.Steps {
		if step.Count > prev {
			t.Errorf("step %d count %d exceeds previous %d", i, step.Count, prev)
		}
		if step.Percentage < 0 || step.Percentage > 100 {
			t.Errorf("step %d percentage %v out of range", i, step.Percentage)
		}
		want := float64(step.Count) / float64(res.BaseCount) * 100
		if !approxEqual(step.Percentage, want) {
			t.Errorf("step %d percentage %v, want %v", i, step.Percentage, want)
		}
		prev = step.Count
	}
	if res.FinalCount != res.Steps[len(res.Steps)-1].Count {
		t.Errorf("FinalCount %d != last step count", res.FinalCount)
	}
}

func TestComputeFunnel_ZeroCurrentCountGuardsDivision(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "age BETWEEN", count: 0},
		{contains: "I50%", count: 0},
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	criteria := CriteriaSet{
		Inclusion: []Criterion{{ID: "I01", Domain: "demographic", Concept: "age"}},
		Exclusion: []Criterion{{ID: "E01", Concept: "heart failure"}},
	}
	res := svc.ComputeFunnel(context.Background(), criteria, []string{"I01"}, []string{"E01"})

	if len(res.Steps) != 2 {
		t.Fatalf("got %d steps, want 2", len(res.Steps))
	}
	excl := res.Steps[1]
	if excl.DropPct != 0 {
		t.Errorf("DropPct = %v, want 0 when entering count is 0", excl.DropPct)
	}
}

func TestSummaryFunnel(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "age BETWEEN", count: 420},
		{contains: "E11%", count: 350},
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	criteria := CriteriaSet{Inclusion: []Criterion{
		{ID: "I01", Domain: "demographic", Concept: "age"},
		{ID: "I02", Domain: "diagnosis", Concept: "type 2 diabetes"},
	}}
	steps := svc.SummaryFunnel(context.Background(), criteria, 137)

	if len(steps) != 4 {
		t.Fatalf("got %d steps, want 4", len(steps))
	}
	if steps[0].Step != "Base Population" || steps[0].Pct != 100.0 {
		t.Errorf("base step = %+v", steps[0])
	}
	if steps[1].Step != "Age Filter (18-75)" || steps[1].Count != 420 || steps[1].Pct != 84.0 {
		t.Errorf("age step = %+v", steps[1])
	}
	if steps[2].Step != "Type 2 Diabetes" || steps[2].Count != 350 || steps[2].Pct != 70.0 {
		t.Errorf("diagnosis step = %+v", steps[2])
	}
	if steps[3].Step != "Final Cohort" || steps[3].Count != 137 || steps[3].Pct != 27.4 {
		t.Errorf("final step = %+v", steps[3])
	}
}

func TestSummaryFunnel_SkipsAbsentDomains(t *testing.T) {
	runner := &stubRunner{responses: []stubResponse{
		{contains: "FROM patients", count: 500},
	}}
	svc := NewService(runner, 500)

	steps := svc.SummaryFunnel(context.Background(), CriteriaSet{}, 100)
	if len(steps) != 2 {
		t.Fatalf("got %d steps, want base + final only", len(steps))
	}
}
