package catalog

// Column describes one column of a catalogued table.
type Column struct {
	Name       string `json:"name"`
	Type       string `json:"type"`
	Nullable   bool   `json:"nullable"`
	PrimaryKey bool   `json:"primary_key"`
}

// Table describes one catalogued table with its live row count.
type Table struct {
	Name        string   `json:"name"`
	RowCount    int64    `json:"row_count"`
	Columns     []Column `json:"columns"`
	Description string   `json:"description"`
}

// Relationship documents a join path between tables.
type Relationship struct {
	From        string `json:"from"`
	To          string `json:"to"`
	Type        string `json:"type"`
	Description string `json:"description"`
}

// Catalog is the complete schema document handed to SQL-generating callers.
type Catalog struct {
	Tables         []Table                   `json:"tables"`
	DomainMappings map[string]map[string]any `json:"domain_mappings"`
	Relationships  []Relationship            `json:"relationships"`
	SampleQueries  map[string]string         `json:"sample_queries"`
	Notes          []string                  `json:"notes"`
}

// DatabaseInfo is the database-info response: headline counts plus the
// full catalog.
type DatabaseInfo struct {
	PatientCount int64    `json:"patient_count"`
	ClaimsCount  int64    `json:"claims_count"`
	Tables       []string `json:"tables"`
	Catalog      *Catalog `json:"catalog"`
}
