package criteria

import (
	"encoding/json"
	"fmt"
)

// Clinical domains a predicate can belong to.
var validDomains = map[string]bool{
	"demographic": true, "diagnosis": true, "procedure": true,
	"drug": true, "lab": true, "enrollment": true, "observation": true,
}

var validVerifiability = map[string]bool{
	"rwd": true, "partial_rwd": true, "non_rwd": true,
}

var validOperators = map[string]bool{
	">=": true, "<=": true, ">": true, "<": true, "=": true, "between": true,
}

// FloatOrRange decodes a JSON number or a two-element array. Between
// constraints carry a range; everything else a single value.
type FloatOrRange struct {
	Value float64
	Range *[2]float64
}

func (v *FloatOrRange) UnmarshalJSON(b []byte) error {
	var single float64
	if err := json.Unmarshal(b, &single); err == nil {
		v.Value = single
		v.Range = nil
		return nil
	}
	var pair [2]float64
	if err := json.Unmarshal(b, &pair); err == nil {
		v.Range = &pair
		return nil
	}
	return fmt.Errorf("value must be a number or a two-element array")
}

func (v FloatOrRange) MarshalJSON() ([]byte, error) {
	if v.Range != nil {
		return json.Marshal(*v.Range)
	}
	return json.Marshal(v.Value)
}

// IntOrRange is FloatOrRange for count constraints.
type IntOrRange struct {
	Value int
	Range *[2]int
}

func (v *IntOrRange) UnmarshalJSON(b []byte) error {
	var single int
	if err := json.Unmarshal(b, &single); err == nil {
		v.Value = single
		v.Range = nil
		return nil
	}
	var pair [2]int
	if err := json.Unmarshal(b, &pair); err == nil {
		v.Range = &pair
		return nil
	}
	return fmt.Errorf("count must be an integer or a two-element array")
}

func (v IntOrRange) MarshalJSON() ([]byte, error) {
	if v.Range != nil {
		return json.Marshal(*v.Range)
	}
	return json.Marshal(v.Value)
}

// TemporalWindow is a time window relative to a reference date.
type TemporalWindow struct {
	Reference  string `json:"reference"`
	BeforeDays *int   `json:"before_days,omitempty"`
	AfterDays  *int   `json:"after_days,omitempty"`
	During     string `json:"during,omitempty"`
}

// ValueConstraint bounds a numeric measurement, e.g. age 18-75 or HbA1c >= 7.
type ValueConstraint struct {
	Operator string       `json:"operator"`
	Value    FloatOrRange `json:"value"`
	Unit     string       `json:"unit,omitempty"`
}

// CountConstraint bounds event occurrences, e.g. at least 2 visits.
type CountConstraint struct {
	Operator   string     `json:"operator"`
	Count      IntOrRange `json:"count"`
	WithinDays *int       `json:"within_days,omitempty"`
	Proportion *float64   `json:"proportion,omitempty"`
}

// ConceptResolution maps a clinical concept to dataset codes.
type ConceptResolution struct {
	Resolved      bool             `json:"resolved"`
	ConceptIDs    []string         `json:"concept_ids"`
	CodeSystem    string           `json:"code_system"`
	MatchingLogic string           `json:"matching_logic"`
	UnitRules     map[string]any   `json:"unit_rules,omitempty"`
	Confidence    string           `json:"confidence"`
	Alternatives  []map[string]any `json:"alternatives,omitempty"`
}

// Predicate is one inclusion or exclusion criterion.
type Predicate struct {
	ID                   string             `json:"id"`
	Description          string             `json:"description"`
	Domain               string             `json:"domain"`
	Concept              string             `json:"concept"`
	ConceptResolution    *ConceptResolution `json:"concept_resolution,omitempty"`
	Temporal             *TemporalWindow    `json:"temporal,omitempty"`
	ValueConstraint      *ValueConstraint   `json:"value_constraint,omitempty"`
	CountConstraint      *CountConstraint   `json:"count_constraint,omitempty"`
	Verifiability        string             `json:"verifiability"`
	NeedsDefinition      bool               `json:"needs_definition"`
	CandidateDefinitions []string           `json:"candidate_definitions,omitempty"`
}

// Gap is an assumption or ambiguity in the criteria needing attention.
type Gap struct {
	PredicateID        string `json:"predicate_id"`
	Issue              string `json:"issue"`
	ProposedResolution string `json:"proposed_resolution,omitempty"`
	RequiresUserInput  bool   `json:"requires_user_input"`
}

// AnchorDefinition names an index event for temporal logic.
type AnchorDefinition struct {
	Name            string `json:"name"`
	Description     string `json:"description"`
	DerivationLogic string `json:"derivation_logic,omitempty"`
}

// Doc is the complete structured representation of I/E criteria: the single
// source of truth through the processing pipeline.
type Doc struct {
	StudyID           string                      `json:"study_id"`
	Version           string                      `json:"version"`
	Anchors           map[string]AnchorDefinition `json:"anchors"`
	Inclusion         []Predicate                 `json:"inclusion"`
	Exclusion         []Predicate                 `json:"exclusion"`
	AssumptionsAndGaps []Gap                      `json:"assumptions_and_gaps"`
	NonRWDGates       []string                    `json:"non_rwd_gates"`
}

// Validate checks the structural invariants of a parsed criteria document.
func (d *Doc) Validate() error {
	if d.StudyID == "" {
		return fmt.Errorf("study_id is required")
	}
	if d.Version == "" {
		d.Version = "1.0"
	}
	seen := map[string]bool{}
	for _, p := range append(append([]Predicate{}, d.Inclusion...), d.Exclusion...) {
		if err := p.validate(); err != nil {
			return err
		}
		if seen[p.ID] {
			return fmt.Errorf("duplicate predicate id %q", p.ID)
		}
		seen[p.ID] = true
	}
	for _, g := range d.AssumptionsAndGaps {
		if g.PredicateID == "" || g.Issue == "" {
			return fmt.Errorf("gap entries require predicate_id and issue")
		}
	}
	return nil
}

func (p Predicate) validate() error {
	if p.ID == "" {
		return fmt.Errorf("predicate id is required")
	}
	if p.Concept == "" {
		return fmt.Errorf("predicate %s: concept is required", p.ID)
	}
	if !validDomains[p.Domain] {
		return fmt.Errorf("predicate %s: invalid domain %q", p.ID, p.Domain)
	}
	if !validVerifiability[p.Verifiability] {
		return fmt.Errorf("predicate %s: invalid verifiability %q", p.ID, p.Verifiability)
	}
	if vc := p.ValueConstraint; vc != nil {
		if !validOperators[vc.Operator] {
			return fmt.Errorf("predicate %s: invalid operator %q", p.ID, vc.Operator)
		}
		if vc.Operator == "between" && vc.Value.Range == nil {
			return fmt.Errorf("predicate %s: between requires a value range", p.ID)
		}
	}
	if cc := p.CountConstraint; cc != nil && !validOperators[cc.Operator] {
		return fmt.Errorf("predicate %s: invalid count operator %q", p.ID, cc.Operator)
	}
	return nil
}
