package criteria

import (
	"fmt"
	"strings"
)

// parsePromptTemplate asks the model for a bare Criteria DSL document. The
// schema sketch keeps responses parseable without tool calls.
const parsePromptTemplate = `Parse the following I/E criteria into Criteria DSL JSON format.
Return ONLY the JSON, no additional text.

The JSON document has this shape:
{
  "study_id": "<identifier>",
  "version": "1.0",
  "anchors": {"index_event": {"name": "...", "description": "..."}},
  "inclusion": [{
    "id": "I01",
    "description": "<original text>",
    "domain": "demographic|diagnosis|procedure|drug|lab|enrollment|observation",
    "concept": "<concept name>",
    "value_constraint": {"operator": ">=|<=|>|<|=|between", "value": <number or [lo, hi]>, "unit": "..."},
    "verifiability": "rwd|partial_rwd|non_rwd",
    "needs_definition": false
  }],
  "exclusion": [...same shape, ids E01...],
  "assumptions_and_gaps": [{"predicate_id": "...", "issue": "...", "requires_user_input": false}],
  "non_rwd_gates": []
}

CRITERIA TEXT:
%s`

func buildParsePrompt(criteriaText string) string {
	return fmt.Sprintf(parsePromptTemplate, criteriaText)
}

func buildSQLPrompt(criteriaJSON string) string {
	return fmt.Sprintf(`Generate SQL for this criteria.

Criteria DSL:
%s

Code mappings:
- Type 2 Diabetes: primary_diagnosis_code LIKE 'E11%%' OR secondary_diagnosis_code LIKE 'E11%%' OR tertiary_diagnosis_code LIKE 'E11%%'
- Metformin: drug_name LIKE '%%Metformin%%'
- Heart failure: primary_diagnosis_code LIKE 'I50%%' OR secondary_diagnosis_code LIKE 'I50%%' OR tertiary_diagnosis_code LIKE 'I50%%'
- Cancer: primary_diagnosis_code LIKE 'C%%' OR secondary_diagnosis_code LIKE 'C%%' OR tertiary_diagnosis_code LIKE 'C%%'

Tables: patients(patient_id, age, gender), claims(claim_id, patient_id,
primary_diagnosis_code, secondary_diagnosis_code, tertiary_diagnosis_code,
drug_name, ndc_code, cpt_code, service_date).

Generate a single SELECT counting distinct eligible patients, composed with
CTEs, one CTE per criterion. Return ONLY the SQL in a code block.`, criteriaJSON)
}

func buildChatSystemPrompt(sql string, tables []string) string {
	return fmt.Sprintf(`You are an expert SQL assistant helping debug and improve SQL queries.

DATABASE SCHEMA:
Available tables: %s

Key columns:
- patients: patient_id, age, gender
- claims: claim_id, patient_id, primary_diagnosis_code, secondary_diagnosis_code, tertiary_diagnosis_code, drug_name, procedure_code

CURRENT SQL QUERY:
`+"```sql\n%s\n```"+`

Your role:
1. Analyze the SQL query for potential issues
2. Explain errors clearly and suggest fixes
3. Answer questions about the query
4. Provide corrected SQL when needed

Be conversational, helpful, and concise.`, strings.Join(tables, ", "), sql)
}

// buildChatPrompt flattens the system prompt and history into one completion
// prompt for the injected generator.
func buildChatPrompt(system string, history []ChatMessage, message string) string {
	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", strings.ToUpper(m.Role), m.Content)
	}
	fmt.Fprintf(&b, "USER: %s\nASSISTANT:", message)
	return b.String()
}
