package concept

// Code systems searched by the concept resolver.
const (
	SystemICD10CM = "ICD10CM"
	SystemCPT     = "CPT"
	SystemNDC     = "NDC"
)

// Match is a scored vocabulary hit for a search term. Scores live in [0,1];
// 1.0 is an exact description match.
type Match struct {
	Code          string  `json:"code"`
	Description   string  `json:"description"`
	CodeSystem    string  `json:"code_system"`
	MatchScore    float64 `json:"match_score"`
	MatchingLogic string  `json:"matching_logic"`
	DrugName      string  `json:"drug_name,omitempty"`
	DrugClass     string  `json:"drug_class,omitempty"`
	Source        string  `json:"source,omitempty"`
}

// CodedEntry is a bare code/description pair from a reference table.
type CodedEntry struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

// DrugEntry is a row from the drug reference table.
type DrugEntry struct {
	Code  string
	Name  string
	Class string
}

// Hierarchy describes the prefix-based neighborhood of an ICD-10 code.
type Hierarchy struct {
	Code       string       `json:"code"`
	CodeSystem string       `json:"code_system"`
	Parent     *string      `json:"parent"`
	Children   []CodedEntry `json:"children"`
	Siblings   []CodedEntry `json:"siblings"`
	Message    string       `json:"message,omitempty"`
}
