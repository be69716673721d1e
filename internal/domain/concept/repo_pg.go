package concept

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func scanCodedEntries(rows pgx.Rows) ([]CodedEntry, error) {
	defer rows.Close()
	var out []CodedEntry
	for rows.Next() {
		var e CodedEntry
		if err := rows.Scan(&e.Code, &e.Description); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *repoPG) SearchDiagnoses(ctx context.Context, term string) ([]CodedEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT icd_10_code, description
		FROM ref_icd10
		WHERE description ILIKE '%' || $1 || '%'
		ORDER BY description`, term)
	if err != nil {
		return nil, err
	}
	return scanCodedEntries(rows)
}

func (r *repoPG) SearchProcedures(ctx context.Context, term string) ([]CodedEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT cpt_code, description
		FROM ref_cpt
		WHERE description ILIKE '%' || $1 || '%'
		ORDER BY description`, term)
	if err != nil {
		return nil, err
	}
	return scanCodedEntries(rows)
}

func (r *repoPG) SearchDrugs(ctx context.Context, term string) ([]DrugEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT ndc_code, drug_name, drug_class
		FROM ref_ndc
		WHERE drug_name ILIKE '%' || $1 || '%'
		   OR drug_class ILIKE '%' || $1 || '%'
		ORDER BY drug_name`, term)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []DrugEntry
	for rows.Next() {
		var d DrugEntry
		if err := rows.Scan(&d.Code, &d.Name, &d.Class); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (r *repoPG) SearchClaimDiagnoses(ctx context.Context, term string) ([]CodedEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT DISTINCT primary_diagnosis_code, primary_diagnosis_desc
		FROM claims
		WHERE primary_diagnosis_desc ILIKE '%' || $1 || '%'
		  AND primary_diagnosis_code IS NOT NULL
		LIMIT 10`, term)
	if err != nil {
		return nil, err
	}
	return scanCodedEntries(rows)
}

func (r *repoPG) DiagnosesWithPrefix(ctx context.Context, prefix string) ([]CodedEntry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT icd_10_code, description
		FROM ref_icd10
		WHERE icd_10_code LIKE $1 || '%'
		ORDER BY icd_10_code`, prefix)
	if err != nil {
		return nil, err
	}
	return scanCodedEntries(rows)
}
