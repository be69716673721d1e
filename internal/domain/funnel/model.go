package funnel

// Criterion is one inclusion or exclusion rule from a criteria document.
// Criteria are immutable inputs; the engine never mutates them.
type Criterion struct {
	ID          string `json:"id"`
	Domain      string `json:"domain"`
	Concept     string `json:"concept"`
	Description string `json:"description"`
}

// CriteriaSet groups the ordered inclusion and exclusion criteria.
type CriteriaSet struct {
	Inclusion []Criterion `json:"inclusion"`
	Exclusion []Criterion `json:"exclusion"`
}

// Step types.
const (
	StepInclusion = "inclusion"
	StepExclusion = "exclusion"
)

// Step records the cohort size after one criterion is applied. Percentage is
// always against the fixed base population; DropPct is against the cohort
// entering the step.
type Step struct {
	ID         string  `json:"id"`
	Name       string  `json:"name"`
	Type       string  `json:"type"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
	DropCount  int     `json:"drop_count"`
	DropPct    float64 `json:"drop_pct"`
}

// Result is a computed attrition funnel.
type Result struct {
	BaseCount  int    `json:"base_count"`
	FinalCount int    `json:"final_count"`
	Steps      []Step `json:"steps"`
}

// SummaryStep is one row of the coarse display funnel.
type SummaryStep struct {
	Step  string  `json:"step"`
	Count int     `json:"count"`
	Pct   float64 `json:"pct"`
}

// WhatIfRequest is the funnel/whatif request body.
type WhatIfRequest struct {
	Criteria         CriteriaSet `json:"criteria"`
	EnabledInclusion []string    `json:"enabled_inclusion"`
	EnabledExclusion []string    `json:"enabled_exclusion"`
}

// name picks the display label for a criterion.
func (c Criterion) name() string {
	if c.Description != "" {
		return c.Description
	}
	if c.Concept != "" {
		return c.Concept
	}
	return "Unknown"
}

func (c Criterion) id() string {
	if c.ID == "" {
		return "unknown"
	}
	return c.ID
}
