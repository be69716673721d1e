package criteria

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/cohortlab/cohort/internal/domain/concept"
	"github.com/cohortlab/cohort/internal/domain/executor"
	"github.com/cohortlab/cohort/internal/domain/funnel"
	"github.com/cohortlab/cohort/internal/platform/artifacts"
	"github.com/cohortlab/cohort/internal/platform/llm"
)

// Stage statuses.
const (
	statusCompleted = "completed"
	statusError     = "error"
)

// Stage reports progress of one pipeline phase in the process response.
type Stage struct {
	Stage       int    `json:"stage"`
	Name        string `json:"name"`
	Status      string `json:"status"`
	Description string `json:"description"`
}

// ChatMessage is one turn of an assistant conversation.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ProcessResult is the full output of the criteria pipeline.
type ProcessResult struct {
	Stages           []Stage                    `json:"stages"`
	CriteriaDSL      *Doc                       `json:"criteria_dsl"`
	ResolvedConcepts map[string][]concept.Match `json:"resolved_concepts"`
	GeneratedSQL     string                     `json:"generated_sql"`
	ExecutionResult  *executor.Result           `json:"execution_result"`
	FunnelData       []funnel.SummaryStep       `json:"funnel_data"`
	Artifact         *artifacts.Metadata        `json:"artifact,omitempty"`
}

// ChatResult is the assistant's reply plus any corrected SQL it proposed.
type ChatResult struct {
	OK           bool    `json:"ok"`
	Response     string  `json:"response,omitempty"`
	CorrectedSQL *string `json:"corrected_sql"`
	Error        string  `json:"error,omitempty"`
}

type runner interface {
	Run(ctx context.Context, sql, mode string) executor.Result
}

type conceptSearcher interface {
	Search(ctx context.Context, term, codeSystem string) ([]concept.Match, error)
}

type tableLister interface {
	Tables(ctx context.Context) ([]string, error)
}

// Service orchestrates the criteria pipeline: parse the protocol text with
// the injected generator, resolve concepts against the reference
// vocabularies, generate the cohort SQL, execute it through the guarded
// executor, and compute the display funnel.
type Service struct {
	gen      llm.Generator
	runner   runner
	concepts conceptSearcher
	funnels  *funnel.Service
	tables   tableLister
	store    *artifacts.Store
}

func NewService(gen llm.Generator, r runner, concepts conceptSearcher, funnels *funnel.Service, tables tableLister, store *artifacts.Store) *Service {
	return &Service{gen: gen, runner: r, concepts: concepts, funnels: funnels, tables: tables, store: store}
}

// Process runs the full pipeline on raw I/E criteria text.
func (s *Service) Process(ctx context.Context, criteriaText string) (*ProcessResult, error) {
	res := &ProcessResult{Stages: []Stage{}}

	// Stage 1: parse the protocol text into the criteria DSL.
	doc, err := s.parseCriteria(ctx, criteriaText)
	if err != nil {
		return nil, fmt.Errorf("parse criteria: %w", err)
	}
	res.CriteriaDSL = doc
	res.Stages = append(res.Stages, Stage{
		Stage: 1, Name: "IE Interpreter", Status: statusCompleted,
		Description: "Parsing I/E criteria into structured format",
	})

	// Stage 2: resolve concepts to codes. Resolution failures degrade to
	// unresolved predicates rather than failing the pipeline.
	res.ResolvedConcepts = s.resolveConcepts(ctx, doc)
	res.Stages = append(res.Stages, Stage{
		Stage: 2, Name: "Deep Research", Status: statusCompleted,
		Description: "Resolving medical concepts to database codes",
	})

	// Stage 3: generate the cohort SQL.
	sql, err := s.generateSQL(ctx, doc)
	if err != nil {
		return nil, fmt.Errorf("generate sql: %w", err)
	}
	res.GeneratedSQL = sql
	res.Stages = append(res.Stages, Stage{
		Stage: 3, Name: "Coding Agent", Status: statusCompleted,
		Description: "Generating SQL queries from criteria",
	})

	// Stage 4: execute through the guarded executor.
	exec := s.runner.Run(ctx, sql, executor.ModePreview)
	res.ExecutionResult = &exec
	execStatus := statusCompleted
	if !exec.OK {
		execStatus = statusError
	}
	res.Stages = append(res.Stages, Stage{
		Stage: 4, Name: "SQL Runner", Status: execStatus,
		Description: "Executing SQL against database",
	})

	// Stage 5: funnel, only on successful execution.
	if exec.OK {
		res.FunnelData = s.funnels.SummaryFunnel(ctx, toFunnelCriteria(doc), exec.Summary.RowCount)
		res.Stages = append(res.Stages, Stage{
			Stage: 5, Name: "Funnel Analysis", Status: statusCompleted,
			Description: "Calculating patient funnel",
		})
	}

	// Persist the bundle for audit. Storage trouble is not worth failing a
	// finished pipeline over.
	meta, err := s.store.Save(doc.StudyID, map[string]any{
		"criteria_dsl":     doc,
		"generated_sql":    sql,
		"execution_result": exec,
		"funnel_data":      res.FunnelData,
	}, artifacts.TypeBundle)
	if err != nil {
		log.Warn().Err(err).Str("study_id", doc.StudyID).Msg("failed to save artifact")
	} else {
		res.Artifact = meta
	}

	return res, nil
}

func (s *Service) parseCriteria(ctx context.Context, criteriaText string) (*Doc, error) {
	response, err := s.gen.Generate(ctx, buildParsePrompt(criteriaText))
	if err != nil {
		return nil, err
	}
	raw := llm.ExtractJSON(response)
	if raw == "" {
		raw = response
	}
	var doc Doc
	if err := json.Unmarshal([]byte(raw), &doc); err != nil {
		return nil, fmt.Errorf("decode criteria dsl: %w", err)
	}
	if err := doc.Validate(); err != nil {
		return nil, err
	}
	return &doc, nil
}

// resolveConcepts attaches code mappings to every codeable predicate and
// unit rules to lab predicates.
func (s *Service) resolveConcepts(ctx context.Context, doc *Doc) map[string][]concept.Match {
	resolved := map[string][]concept.Match{}
	for _, preds := range [][]Predicate{doc.Inclusion, doc.Exclusion} {
		for i := range preds {
			p := &preds[i]
			system := codeSystemFor(p.Domain)
			if system == "" {
				if p.Domain == "lab" {
					p.ConceptResolution = labResolution(p.Concept)
				}
				continue
			}
			matches, err := s.concepts.Search(ctx, p.Concept, system)
			if err != nil {
				log.Warn().Err(err).Str("predicate", p.ID).Msg("concept search failed")
				p.ConceptResolution = &ConceptResolution{
					Resolved: false, ConceptIDs: []string{}, CodeSystem: system,
					MatchingLogic: matchingLogicFor(p.Domain), Confidence: "low",
				}
				continue
			}
			resolved[p.ID] = matches
			p.ConceptResolution = resolutionFromMatches(matches, system, p.Domain)
		}
	}
	return resolved
}

func resolutionFromMatches(matches []concept.Match, system, domain string) *ConceptResolution {
	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.Code)
		if len(ids) == 5 {
			break
		}
	}
	confidence := "low"
	if len(matches) > 0 {
		switch top := matches[0].MatchScore; {
		case top >= 0.9:
			confidence = "high"
		case top >= 0.7:
			confidence = "medium"
		}
	}
	return &ConceptResolution{
		Resolved:      len(ids) > 0,
		ConceptIDs:    ids,
		CodeSystem:    system,
		MatchingLogic: matchingLogicFor(domain),
		Confidence:    confidence,
	}
}

func labResolution(conceptName string) *ConceptResolution {
	info := ResolveUnits(conceptName)
	cr := &ConceptResolution{
		Resolved: info.Available, ConceptIDs: []string{}, CodeSystem: "local",
		MatchingLogic: "exact", Confidence: "medium",
	}
	if info.Available {
		cr.UnitRules = map[string]any{
			"standard_unit":     info.StandardUnit,
			"alternative_units": info.AlternativeUnits,
			"range":             info.Range,
		}
	}
	return cr
}

func codeSystemFor(domain string) string {
	switch domain {
	case "diagnosis":
		return concept.SystemICD10CM
	case "procedure":
		return concept.SystemCPT
	case "drug":
		return concept.SystemNDC
	}
	return ""
}

func matchingLogicFor(domain string) string {
	switch domain {
	case "diagnosis":
		return "wildcard"
	case "drug":
		return "ingredient"
	}
	return "exact"
}

func (s *Service) generateSQL(ctx context.Context, doc *Doc) (string, error) {
	docJSON, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", err
	}
	response, err := s.gen.Generate(ctx, buildSQLPrompt(string(docJSON)))
	if err != nil {
		return "", err
	}
	if sql, ok := llm.ExtractFencedSQL(response); ok {
		return sql, nil
	}
	// Models sometimes answer with a bare statement.
	if strings.Contains(response, "WITH") && strings.Contains(response, "SELECT") {
		return strings.TrimSpace(response), nil
	}
	return strings.TrimSpace(response), nil
}

// Chat answers an interactive SQL-assistance message.
func (s *Service) Chat(ctx context.Context, message, sql string, history []ChatMessage) (*ChatResult, error) {
	tables, err := s.tables.Tables(ctx)
	if err != nil {
		tables = nil
	}
	prompt := buildChatPrompt(buildChatSystemPrompt(sql, tables), history, message)

	response, err := s.gen.Generate(ctx, prompt)
	if err != nil {
		return &ChatResult{OK: false, Error: err.Error()}, nil
	}
	result := &ChatResult{OK: true, Response: response}
	if corrected, ok := llm.ExtractFencedSQL(response); ok {
		result.CorrectedSQL = &corrected
	}
	return result, nil
}

func toFunnelCriteria(doc *Doc) funnel.CriteriaSet {
	return funnel.CriteriaSet{
		Inclusion: toFunnelCriteriaList(doc.Inclusion),
		Exclusion: toFunnelCriteriaList(doc.Exclusion),
	}
}

func toFunnelCriteriaList(preds []Predicate) []funnel.Criterion {
	out := make([]funnel.Criterion, 0, len(preds))
	for _, p := range preds {
		out = append(out, funnel.Criterion{
			ID:          p.ID,
			Domain:      p.Domain,
			Concept:     p.Concept,
			Description: p.Description,
		})
	}
	return out
}
