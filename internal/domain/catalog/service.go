package catalog

import (
	"context"
	"fmt"
)

// tableDescriptions annotates the known tables; unknown tables get an empty
// description rather than being dropped.
var tableDescriptions = map[string]string{
	"claims":          "Main claims table containing diagnoses, procedures, drugs, and services",
	"patients":        "Patient demographics and enrollment periods",
	"ref_icd10":       "ICD-10 diagnosis code reference",
	"ref_cpt":         "CPT procedure code reference",
	"ref_ndc":         "NDC drug code reference",
	"data_dictionary": "Data dictionary and field descriptions",
}

// domainMappings tells SQL-generating callers where each clinical domain
// lives.
var domainMappings = map[string]map[string]any{
	"diagnosis": {
		"table":              "claims",
		"code_columns":       []string{"primary_diagnosis_code", "secondary_diagnosis_code", "tertiary_diagnosis_code"},
		"desc_columns":       []string{"primary_diagnosis_desc", "secondary_diagnosis_desc", "tertiary_diagnosis_desc"},
		"date_column":        "service_date",
		"reference_table":    "ref_icd10",
		"reference_code_col": "icd_10_code",
		"reference_desc_col": "description",
	},
	"procedure": {
		"table":              "claims",
		"code_columns":       []string{"cpt_code", "hcpcs_code"},
		"desc_columns":       []string{"cpt_description", "hcpcs_description"},
		"date_column":        "service_date",
		"reference_table":    "ref_cpt",
		"reference_code_col": "cpt_code",
		"reference_desc_col": "description",
	},
	"drug": {
		"table":               "claims",
		"code_columns":        []string{"ndc_code"},
		"desc_columns":        []string{"drug_name"},
		"class_column":        "drug_class",
		"date_column":         "service_date",
		"supply_column":       "days_supply",
		"quantity_column":     "quantity_dispensed",
		"reference_table":     "ref_ndc",
		"reference_code_col":  "ndc_code",
		"reference_name_col":  "drug_name",
		"reference_class_col": "drug_class",
	},
	"demographic": {
		"table":   "patients",
		"columns": []string{"age", "gender", "race", "ethnicity", "state", "date_of_birth"},
	},
	"enrollment": {
		"table":        "patients",
		"start_column": "enrollment_start_date",
		"end_column":   "enrollment_end_date",
	},
}

var relationships = []Relationship{
	{
		From:        "claims.patient_id",
		To:          "patients.patient_id",
		Type:        "many-to-one",
		Description: "Claims belong to patients",
	},
}

var sampleQueries = map[string]string{
	"get_patients_with_diagnosis": `SELECT DISTINCT c.patient_id
FROM claims c
WHERE c.primary_diagnosis_code LIKE 'E11%'`,
	"get_patients_on_drug": `SELECT DISTINCT c.patient_id
FROM claims c
WHERE c.ndc_code = '50090-2875-01'`,
	"get_patients_by_age": `SELECT patient_id
FROM patients
WHERE age BETWEEN 18 AND 75`,
}

var catalogNotes = []string{
	"All date columns are stored as TEXT in ISO format (YYYY-MM-DD)",
	"Use LIKE with % for ICD-10 wildcard matching (e.g., 'E11%' for all T2DM codes)",
	"Multiple diagnosis columns exist: primary, secondary, tertiary",
	"Claims table contains all clinical events (diagnoses, procedures, drugs)",
	"Always join claims to patients on patient_id",
}

type Service struct {
	repo Repository
}

func NewService(repo Repository) *Service {
	return &Service{repo: repo}
}

// Tables lists the catalogued table names. Satisfies the executor handler's
// TableLister.
func (s *Service) Tables(ctx context.Context) ([]string, error) {
	return s.repo.TableNames(ctx)
}

// GetCatalog assembles the full schema document: live table shapes and row
// counts, plus the static domain mappings, relationships and guidance notes.
func (s *Service) GetCatalog(ctx context.Context) (*Catalog, error) {
	names, err := s.repo.TableNames(ctx)
	if err != nil {
		return nil, fmt.Errorf("list tables: %w", err)
	}

	tables := make([]Table, 0, len(names))
	for _, name := range names {
		cols, err := s.repo.Columns(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("describe %s: %w", name, err)
		}
		count, err := s.repo.RowCount(ctx, name)
		if err != nil {
			return nil, fmt.Errorf("count %s: %w", name, err)
		}
		tables = append(tables, Table{
			Name:        name,
			RowCount:    count,
			Columns:     cols,
			Description: tableDescriptions[name],
		})
	}

	return &Catalog{
		Tables:         tables,
		DomainMappings: domainMappings,
		Relationships:  relationships,
		SampleQueries:  sampleQueries,
		Notes:          catalogNotes,
	}, nil
}

// GetDatabaseInfo returns headline population counts along with the catalog.
// Missing patients/claims tables yield zero counts, not errors.
func (s *Service) GetDatabaseInfo(ctx context.Context) (*DatabaseInfo, error) {
	cat, err := s.GetCatalog(ctx)
	if err != nil {
		return nil, err
	}

	info := &DatabaseInfo{Catalog: cat, Tables: make([]string, 0, len(cat.Tables))}
	for _, t := range cat.Tables {
		info.Tables = append(info.Tables, t.Name)
		switch t.Name {
		case "patients":
			info.PatientCount = t.RowCount
		case "claims":
			info.ClaimsCount = t.RowCount
		}
	}
	return info, nil
}
