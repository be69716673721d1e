package concept

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

func wantsSystem(filter, system string) bool {
	if filter == "" {
		return true
	}
	if system == SystemICD10CM {
		// Accept the common short form.
		return filter == SystemICD10CM || filter == "ICD10"
	}
	return filter == system
}

// Search resolves a clinical term to scored codes across the diagnosis,
// procedure and drug vocabularies, plus a supplemental scan of diagnosis
// descriptions observed in claims. Results come back sorted by score
// descending; ties keep vocabulary order. An empty result is not an error.
func (s *Service) Search(ctx context.Context, term, codeSystem string) ([]Match, error) {
	searchTerm := strings.ToLower(strings.TrimSpace(term))
	if searchTerm == "" {
		return nil, fmt.Errorf("search term is required")
	}

	var results []Match

	if wantsSystem(codeSystem, SystemICD10CM) {
		entries, err := s.repo.SearchDiagnoses(ctx, searchTerm)
		if err != nil {
			return nil, fmt.Errorf("search diagnoses: %w", err)
		}
		for _, e := range entries {
			results = append(results, Match{
				Code:          e.Code,
				Description:   e.Description,
				CodeSystem:    SystemICD10CM,
				MatchScore:    diagnosisScore(searchTerm, e.Description),
				MatchingLogic: "wildcard_supported",
			})
		}
	}

	if wantsSystem(codeSystem, SystemCPT) {
		entries, err := s.repo.SearchProcedures(ctx, searchTerm)
		if err != nil {
			return nil, fmt.Errorf("search procedures: %w", err)
		}
		for _, e := range entries {
			results = append(results, Match{
				Code:          e.Code,
				Description:   e.Description,
				CodeSystem:    SystemCPT,
				MatchScore:    procedureScore(searchTerm, e.Description),
				MatchingLogic: "exact_only",
			})
		}
	}

	if wantsSystem(codeSystem, SystemNDC) {
		drugs, err := s.repo.SearchDrugs(ctx, searchTerm)
		if err != nil {
			return nil, fmt.Errorf("search drugs: %w", err)
		}
		for _, d := range drugs {
			results = append(results, Match{
				Code:          d.Code,
				Description:   fmt.Sprintf("%s (%s)", d.Name, d.Class),
				CodeSystem:    SystemNDC,
				MatchScore:    drugScore(searchTerm, d.Name, d.Class),
				MatchingLogic: "ingredient_or_class",
				DrugName:      d.Name,
				DrugClass:     d.Class,
			})
		}
	}

	if wantsSystem(codeSystem, SystemICD10CM) {
		entries, err := s.repo.SearchClaimDiagnoses(ctx, searchTerm)
		if err != nil {
			return nil, fmt.Errorf("search claim diagnoses: %w", err)
		}
		for _, e := range entries {
			if containsCode(results, e.Code) {
				continue
			}
			results = append(results, Match{
				Code:          e.Code,
				Description:   e.Description,
				CodeSystem:    SystemICD10CM,
				MatchScore:    0.6,
				MatchingLogic: "wildcard_supported",
				Source:        "claims_data",
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MatchScore > results[j].MatchScore
	})
	return results, nil
}

func containsCode(results []Match, code string) bool {
	for _, r := range results {
		if r.Code == code {
			return true
		}
	}
	return false
}

func diagnosisScore(term, description string) float64 {
	desc := strings.ToLower(description)
	switch {
	case term == desc:
		return 1.0
	case strings.HasPrefix(desc, term):
		return 0.9
	default:
		return 0.7
	}
}

// procedureScore scores any substring hit 0.8. The rows arrive pre-filtered
// by the same substring, so the 0.6 arm only fires if the repository match
// semantics ever diverge from this check.
func procedureScore(term, description string) float64 {
	if strings.Contains(strings.ToLower(description), term) {
		return 0.8
	}
	return 0.6
}

func drugScore(term, name, class string) float64 {
	nameMatch := strings.Contains(strings.ToLower(name), term)
	classMatch := strings.Contains(strings.ToLower(class), term)
	switch {
	case nameMatch && classMatch:
		return 1.0
	case nameMatch:
		return 0.9
	default:
		return 0.7
	}
}

// HierarchyFor returns the prefix neighborhood of an ICD-10 code: its parent
// (one character shorter, once past the 3-character category), every code
// sharing its prefix, and its siblings under the parent. Other code systems
// have no hierarchy.
func (s *Service) HierarchyFor(ctx context.Context, code, codeSystem string) (*Hierarchy, error) {
	if codeSystem != SystemICD10CM {
		return &Hierarchy{
			Code:       code,
			CodeSystem: codeSystem,
			Children:   []CodedEntry{},
			Siblings:   []CodedEntry{},
			Message:    "Hierarchy not supported",
		}, nil
	}

	var parent *string
	if len(code) > 3 {
		p := code[:len(code)-1]
		parent = &p
	}

	children, err := s.repo.DiagnosesWithPrefix(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("lookup children: %w", err)
	}

	siblings := []CodedEntry{}
	if parent != nil {
		siblings, err = s.repo.DiagnosesWithPrefix(ctx, *parent)
		if err != nil {
			return nil, fmt.Errorf("lookup siblings: %w", err)
		}
	}
	if children == nil {
		children = []CodedEntry{}
	}
	if siblings == nil {
		siblings = []CodedEntry{}
	}

	return &Hierarchy{
		Code:       code,
		CodeSystem: SystemICD10CM,
		Parent:     parent,
		Children:   children,
		Siblings:   siblings,
	}, nil
}
