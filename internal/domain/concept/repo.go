package concept

import "context"

// Repository reads the code reference tables and the claims vocabulary.
// All searches are case-insensitive substring matches on descriptions.
type Repository interface {
	SearchDiagnoses(ctx context.Context, term string) ([]CodedEntry, error)
	SearchProcedures(ctx context.Context, term string) ([]CodedEntry, error)
	SearchDrugs(ctx context.Context, term string) ([]DrugEntry, error)
	// SearchClaimDiagnoses scans the live claims table for diagnosis
	// descriptions matching term; capped at 10 distinct codes.
	SearchClaimDiagnoses(ctx context.Context, term string) ([]CodedEntry, error)
	// DiagnosesWithPrefix lists ICD-10 codes starting with prefix, for
	// hierarchy lookups.
	DiagnosesWithPrefix(ctx context.Context, prefix string) ([]CodedEntry, error)
}
