package funnel

import (
	"context"
	"math"

	"github.com/cohortlab/cohort/internal/domain/executor"
)

const basePopulationSQL = "SELECT COUNT(*) AS cnt FROM patients"

// runner is the slice of the guarded executor the engine needs.
type runner interface {
	Run(ctx context.Context, sql, mode string) executor.Result
}

// Service computes patient attrition funnels. All queries go through the
// guarded executor; a step whose query fails is omitted rather than failing
// the whole funnel, leaving the running count unchanged.
type Service struct {
	runner       runner
	fallbackBase int
}

func NewService(r runner, fallbackBase int) *Service {
	if fallbackBase <= 0 {
		fallbackBase = 500
	}
	return &Service{runner: r, fallbackBase: fallbackBase}
}

// baseCount measures the base population, degrading to the configured
// fallback so funnel display never hard-fails on a transient query error.
func (s *Service) baseCount(ctx context.Context) int {
	res := s.runner.Run(ctx, basePopulationSQL, executor.ModePreview)
	if !res.OK || len(res.PreviewRows) == 0 {
		return s.fallbackBase
	}
	if n, ok := rowCount(res.PreviewRows[0]); ok {
		return n
	}
	return s.fallbackBase
}

// ComputeFunnel walks the enabled criteria in document order, applying
// inclusions then exclusions against a running cohort count.
func (s *Service) ComputeFunnel(ctx context.Context, criteria CriteriaSet, enabledInclusion, enabledExclusion []string) Result {
	base := s.baseCount(ctx)
	current := base
	steps := []Step{}

	enabledInc := toSet(enabledInclusion)
	enabledExc := toSet(enabledExclusion)

	for _, cr := range criteria.Inclusion {
		if !enabledInc[cr.id()] {
			continue
		}
		sql := CompileInclusion(cr, base)
		res := s.runner.Run(ctx, sql, executor.ModePreview)
		if !res.OK || len(res.PreviewRows) == 0 {
			continue
		}
		newCount, ok := rowCount(res.PreviewRows[0])
		if !ok {
			continue
		}
		dropCount := current - newCount
		steps = append(steps, Step{
			ID:         cr.id(),
			Name:       cr.name(),
			Type:       StepInclusion,
			Count:      newCount,
			Percentage: pct(newCount, base),
			DropCount:  dropCount,
			DropPct:    pct(dropCount, current),
		})
		current = newCount
	}

	for _, cr := range criteria.Exclusion {
		if !enabledExc[cr.id()] {
			continue
		}
		sql := CompileExclusion(cr, current)
		res := s.runner.Run(ctx, sql, executor.ModePreview)
		if !res.OK || len(res.PreviewRows) == 0 {
			continue
		}
		excluded, ok := rowCount(res.PreviewRows[0])
		if !ok {
			continue
		}
		newCount := current - excluded
		steps = append(steps, Step{
			ID:         cr.id(),
			Name:       "Exclude: " + cr.name(),
			Type:       StepExclusion,
			Count:      newCount,
			Percentage: pct(newCount, base),
			DropCount:  excluded,
			DropPct:    pct(excluded, current),
		})
		current = newCount
	}

	return Result{BaseCount: base, FinalCount: current, Steps: steps}
}

// SummaryFunnel produces the coarse display funnel shown alongside processed
// criteria: base population, the well-known demographic and diagnosis
// filters when present, and the final cohort count.
func (s *Service) SummaryFunnel(ctx context.Context, criteria CriteriaSet, finalCount int) []SummaryStep {
	base := s.baseCount(ctx)
	steps := []SummaryStep{{Step: "Base Population", Count: base, Pct: 100.0}}

	if hasDomain(criteria.Inclusion, "demographic") {
		res := s.runner.Run(ctx, "SELECT COUNT(*) AS cnt FROM patients WHERE age BETWEEN 18 AND 75", executor.ModePreview)
		if res.OK && len(res.PreviewRows) > 0 {
			if n, ok := rowCount(res.PreviewRows[0]); ok {
				steps = append(steps, SummaryStep{Step: "Age Filter (18-75)", Count: n, Pct: round1(pct(n, base))})
			}
		}
	}

	if hasDomain(criteria.Inclusion, "diagnosis") {
		res := s.runner.Run(ctx, `SELECT COUNT(DISTINCT patient_id) AS cnt FROM claims
			WHERE primary_diagnosis_code LIKE 'E11%'`, executor.ModePreview)
		if res.OK && len(res.PreviewRows) > 0 {
			if n, ok := rowCount(res.PreviewRows[0]); ok {
				steps = append(steps, SummaryStep{Step: "Type 2 Diabetes", Count: n, Pct: round1(pct(n, base))})
			}
		}
	}

	steps = append(steps, SummaryStep{Step: "Final Cohort", Count: finalCount, Pct: round1(pct(finalCount, base))})
	return steps
}

func hasDomain(criteria []Criterion, domain string) bool {
	for _, c := range criteria {
		if c.Domain == domain {
			return true
		}
	}
	return false
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set
}

func pct(n, of int) float64 {
	if of <= 0 {
		return 0
	}
	return float64(n) / float64(of) * 100
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// rowCount pulls the cnt column out of a count-query row. pgx returns
// COUNT(*) as int64 but the stub path may carry plain ints.
func rowCount(row map[string]any) (int, bool) {
	v, exists := row["cnt"]
	if !exists {
		return 0, false
	}
	switch n := v.(type) {
	case int64:
		return int(n), true
	case int32:
		return int(n), true
	case int:
		return n, true
	case float64:
		return int(n), true
	}
	return 0, false
}
