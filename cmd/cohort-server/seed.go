package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type refDiagnosis struct {
	code string
	desc string
}

type refDrug struct {
	ndc   string
	name  string
	class string
}

type refProcedure struct {
	code string
	desc string
}

var seedDiagnoses = []refDiagnosis{
	{"E11.9", "Type 2 diabetes mellitus without complications"},
	{"E11.65", "Type 2 diabetes mellitus with hyperglycemia"},
	{"E11.22", "Type 2 diabetes mellitus with diabetic chronic kidney disease"},
	{"E11.40", "Type 2 diabetes mellitus with diabetic neuropathy, unspecified"},
	{"E10.9", "Type 1 diabetes mellitus without complications"},
	{"I10", "Essential (primary) hypertension"},
	{"I50.9", "Heart failure, unspecified"},
	{"I50.22", "Chronic systolic (congestive) heart failure"},
	{"I50.32", "Chronic diastolic (congestive) heart failure"},
	{"I25.10", "Atherosclerotic heart disease of native coronary artery"},
	{"N18.3", "Chronic kidney disease, stage 3"},
	{"N18.4", "Chronic kidney disease, stage 4"},
	{"E78.5", "Hyperlipidemia, unspecified"},
	{"E66.9", "Obesity, unspecified"},
	{"C50.911", "Malignant neoplasm of unspecified site of right female breast"},
	{"C61", "Malignant neoplasm of prostate"},
	{"C34.90", "Malignant neoplasm of unspecified part of unspecified bronchus or lung"},
	{"J44.9", "Chronic obstructive pulmonary disease, unspecified"},
	{"F32.9", "Major depressive disorder, single episode, unspecified"},
	{"M54.5", "Low back pain"},
}

var seedDrugs = []refDrug{
	{"50090-2875", "Metformin Hydrochloride", "Biguanide"},
	{"00093-7214", "Metformin HCl ER", "Biguanide"},
	{"00002-8215", "Insulin Glargine", "Long-Acting Insulin"},
	{"00169-4132", "Semaglutide", "GLP-1 Receptor Agonist"},
	{"00310-6270", "Dapagliflozin", "SGLT2 Inhibitor"},
	{"00006-0277", "Sitagliptin", "DPP-4 Inhibitor"},
	{"00071-0155", "Atorvastatin Calcium", "Statin"},
	{"00186-5040", "Rosuvastatin Calcium", "Statin"},
	{"00781-5786", "Lisinopril", "ACE Inhibitor"},
	{"00093-7368", "Losartan Potassium", "ARB"},
	{"00378-0357", "Metoprolol Succinate", "Beta Blocker"},
	{"00172-5710", "Furosemide", "Loop Diuretic"},
	{"51079-0983", "Amlodipine Besylate", "Calcium Channel Blocker"},
	{"68180-0512", "Sertraline Hydrochloride", "SSRI"},
	{"00054-0087", "Prednisone", "Corticosteroid"},
}

var seedProcedures = []refProcedure{
	{"99213", "Office or other outpatient visit, established patient, low complexity"},
	{"99214", "Office or other outpatient visit, established patient, moderate complexity"},
	{"83036", "Hemoglobin A1c measurement"},
	{"80061", "Lipid panel"},
	{"82947", "Glucose, quantitative, blood"},
	{"82565", "Creatinine, blood"},
	{"93000", "Electrocardiogram, routine ECG with at least 12 leads"},
	{"93306", "Echocardiography, transthoracic, complete"},
	{"71046", "Radiologic examination, chest, 2 views"},
	{"36415", "Collection of venous blood by venipuncture"},
}

var seedStates = []string{"CA", "TX", "NY", "FL", "IL", "PA", "OH", "GA", "NC", "MI"}
var seedRaces = []string{"White", "Black or African American", "Asian", "Other"}
var seedEthnicities = []string{"Not Hispanic or Latino", "Hispanic or Latino"}

// runSeed truncates and repopulates the synthetic claims dataset. The same
// seed value always produces the same rows.
func runSeed(ctx context.Context, pool *pgxpool.Pool, patientCount int, seed int64) error {
	rng := rand.New(rand.NewSource(seed))

	tx, err := pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin seed transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	for _, table := range []string{"claims", "patients", "ref_icd10", "ref_cpt", "ref_ndc"} {
		if _, err := tx.Exec(ctx, "TRUNCATE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}

	if err := seedReferenceTables(ctx, tx); err != nil {
		return err
	}

	claimCount, err := seedPatientsAndClaims(ctx, tx, rng, patientCount)
	if err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit seed transaction: %w", err)
	}

	fmt.Printf("Seeded %d patients, %d claims, %d ICD-10 codes, %d NDC codes, %d CPT codes.\n",
		patientCount, claimCount, len(seedDiagnoses), len(seedDrugs), len(seedProcedures))
	return nil
}

func seedReferenceTables(ctx context.Context, tx pgx.Tx) error {
	for _, d := range seedDiagnoses {
		if _, err := tx.Exec(ctx,
			"INSERT INTO ref_icd10 (icd_10_code, description) VALUES ($1, $2)",
			d.code, d.desc); err != nil {
			return fmt.Errorf("insert ref_icd10 %s: %w", d.code, err)
		}
	}
	for _, d := range seedDrugs {
		if _, err := tx.Exec(ctx,
			"INSERT INTO ref_ndc (ndc_code, drug_name, drug_class) VALUES ($1, $2, $3)",
			d.ndc, d.name, d.class); err != nil {
			return fmt.Errorf("insert ref_ndc %s: %w", d.ndc, err)
		}
	}
	for _, p := range seedProcedures {
		if _, err := tx.Exec(ctx,
			"INSERT INTO ref_cpt (cpt_code, description) VALUES ($1, $2)",
			p.code, p.desc); err != nil {
			return fmt.Errorf("insert ref_cpt %s: %w", p.code, err)
		}
	}
	return nil
}

func seedPatientsAndClaims(ctx context.Context, tx pgx.Tx, rng *rand.Rand, patientCount int) (int, error) {
	const dateLayout = "2006-01-02"
	now := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)

	claimSeq := 0
	for i := 1; i <= patientCount; i++ {
		patientID := fmt.Sprintf("P%04d", i)
		age := 18 + rng.Intn(72)
		gender := "F"
		if rng.Intn(2) == 0 {
			gender = "M"
		}
		dob := now.AddDate(-age, 0, -rng.Intn(364))
		enrollStart := now.AddDate(0, -(6 + rng.Intn(30)), 0)
		enrollEnd := enrollStart.AddDate(1, rng.Intn(12), 0)

		_, err := tx.Exec(ctx, `
			INSERT INTO patients (patient_id, age, gender, race, ethnicity, state,
				date_of_birth, enrollment_start_date, enrollment_end_date)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
			patientID, age, gender,
			seedRaces[rng.Intn(len(seedRaces))],
			seedEthnicities[rng.Intn(len(seedEthnicities))],
			seedStates[rng.Intn(len(seedStates))],
			dob.Format(dateLayout),
			enrollStart.Format(dateLayout),
			enrollEnd.Format(dateLayout))
		if err != nil {
			return claimSeq, fmt.Errorf("insert patient %s: %w", patientID, err)
		}

		// Each patient carries a handful of claims. A primary diagnosis is
		// fixed per patient so prevalence stays stable across claims.
		primary := seedDiagnoses[rng.Intn(len(seedDiagnoses))]
		nClaims := 2 + rng.Intn(6)
		for j := 0; j < nClaims; j++ {
			claimSeq++
			claim := fmt.Sprintf("C%06d", claimSeq)
			serviceDate := enrollStart.AddDate(0, 0, rng.Intn(365))

			var secondaryCode, secondaryDesc, tertiaryCode, tertiaryDesc *string
			if rng.Intn(2) == 0 {
				d := seedDiagnoses[rng.Intn(len(seedDiagnoses))]
				secondaryCode, secondaryDesc = &d.code, &d.desc
			}
			if rng.Intn(4) == 0 {
				d := seedDiagnoses[rng.Intn(len(seedDiagnoses))]
				tertiaryCode, tertiaryDesc = &d.code, &d.desc
			}

			var drugName, drugClass, ndcCode *string
			var daysSupply, qty *int
			if rng.Intn(2) == 0 {
				d := seedDrugs[rng.Intn(len(seedDrugs))]
				drugName, drugClass, ndcCode = &d.name, &d.class, &d.ndc
				ds := 30 * (1 + rng.Intn(3))
				q := 30 + rng.Intn(90)
				daysSupply, qty = &ds, &q
			}

			var cptCode *string
			if rng.Intn(3) != 0 {
				p := seedProcedures[rng.Intn(len(seedProcedures))]
				cptCode = &p.code
			}

			_, err := tx.Exec(ctx, `
				INSERT INTO claims (claim_id, patient_id,
					primary_diagnosis_code, primary_diagnosis_desc,
					secondary_diagnosis_code, secondary_diagnosis_desc,
					tertiary_diagnosis_code, tertiary_diagnosis_desc,
					drug_name, drug_class, ndc_code, cpt_code, hcpcs_code,
					days_supply, quantity_dispensed, service_date)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`,
				claim, patientID,
				primary.code, primary.desc,
				secondaryCode, secondaryDesc,
				tertiaryCode, tertiaryDesc,
				drugName, drugClass, ndcCode, cptCode, nil,
				daysSupply, qty,
				serviceDate.Format(dateLayout))
			if err != nil {
				return claimSeq, fmt.Errorf("insert claim %s: %w", claim, err)
			}
		}
	}
	return claimSeq, nil
}
