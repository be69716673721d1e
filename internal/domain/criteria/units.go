package criteria

import (
	"fmt"
	"sort"
	"strings"
)

// UnitConversion is an alternative unit and its conversion formula.
type UnitConversion struct {
	Unit       string `json:"unit"`
	Conversion string `json:"conversion"`
}

// UnitInfo describes the standard unit and reference ranges for a lab test.
type UnitInfo struct {
	TestName         string                `json:"test_name"`
	Available        bool                  `json:"available"`
	StandardUnit     string                `json:"standard_unit,omitempty"`
	AlternativeUnits []UnitConversion      `json:"alternative_units,omitempty"`
	Range            map[string][2]float64 `json:"range,omitempty"`
	Notes            string                `json:"notes,omitempty"`
	Message          string                `json:"message,omitempty"`
	Suggestion       string                `json:"suggestion,omitempty"`
}

type unitEntry struct {
	standardUnit     string
	alternativeUnits []UnitConversion
	ranges           map[string][2]float64
}

var unitConversions = map[string]unitEntry{
	"egfr": {
		standardUnit: "mL/min/1.73m²",
		ranges: map[string][2]float64{
			"normal": {90, 120}, "ckd_stage_3": {30, 59}, "ckd_stage_4": {15, 29},
		},
	},
	"hba1c": {
		standardUnit: "%",
		alternativeUnits: []UnitConversion{
			{Unit: "mmol/mol", Conversion: "mmol/mol = (% - 2.15) * 10.929"},
		},
		ranges: map[string][2]float64{
			"normal": {4.0, 5.6}, "prediabetes": {5.7, 6.4}, "diabetes": {6.5, 15.0},
		},
	},
	"glucose": {
		standardUnit: "mg/dL",
		alternativeUnits: []UnitConversion{
			{Unit: "mmol/L", Conversion: "mg/dL = mmol/L * 18.0"},
		},
		ranges: map[string][2]float64{
			"normal_fasting": {70, 99}, "diabetes_fasting": {126, 400},
		},
	},
	"creatinine": {
		standardUnit: "mg/dL",
		alternativeUnits: []UnitConversion{
			{Unit: "μmol/L", Conversion: "mg/dL = μmol/L / 88.4"},
		},
		ranges: map[string][2]float64{
			"normal_male": {0.7, 1.3}, "normal_female": {0.6, 1.1},
		},
	},
	"uacr": {
		standardUnit: "mg/g",
		alternativeUnits: []UnitConversion{
			{Unit: "mg/mmol", Conversion: "mg/g = mg/mmol * 0.113"},
		},
		ranges: map[string][2]float64{
			"normal": {0, 30}, "microalbuminuria": {30, 300}, "macroalbuminuria": {300, 10000},
		},
	},
	"ldl": {
		standardUnit: "mg/dL",
		alternativeUnits: []UnitConversion{
			{Unit: "mmol/L", Conversion: "mg/dL = mmol/L * 38.67"},
		},
		ranges: map[string][2]float64{
			"optimal": {0, 100}, "near_optimal": {100, 129}, "high": {160, 500},
		},
	},
	"hdl": {
		standardUnit: "mg/dL",
		alternativeUnits: []UnitConversion{
			{Unit: "mmol/L", Conversion: "mg/dL = mmol/L * 38.67"},
		},
		ranges: map[string][2]float64{
			"low_risk_male": {40, 100}, "low_risk_female": {50, 100},
		},
	},
}

// ResolveUnits looks up unit conversion rules for a lab test. Lookup is
// insensitive to case, spaces and underscores, so "HbA1c" finds "hba1c".
func ResolveUnits(testName string) UnitInfo {
	key := strings.NewReplacer(" ", "", "_", "").Replace(strings.ToLower(testName))
	entry, ok := unitConversions[key]
	if !ok {
		return UnitInfo{
			TestName:   testName,
			Available:  false,
			Message:    fmt.Sprintf("No unit information available for '%s'", testName),
			Suggestion: "Use standard clinical units or consult data dictionary",
		}
	}
	return UnitInfo{
		TestName:         testName,
		Available:        true,
		StandardUnit:     entry.standardUnit,
		AlternativeUnits: entry.alternativeUnits,
		Range:            entry.ranges,
		Notes:            fmt.Sprintf("Standard unit: %s", entry.standardUnit),
	}
}

// SupportedTests lists the lab tests with unit conversion support.
func SupportedTests() []string {
	tests := make([]string, 0, len(unitConversions))
	for name := range unitConversions {
		tests = append(tests, name)
	}
	sort.Strings(tests)
	return tests
}
