package executor

import (
	"fmt"
	"strings"
)

// destructiveKeywords are rejected anywhere in the statement text. The check
// is deliberately lexical: it runs before any database round trip and also
// catches keywords smuggled through comments or CTE bodies. The trade-off is
// false positives on string literals containing a keyword, which is an
// accepted cost for a read-only analytics surface.
var destructiveKeywords = []string{"DROP", "DELETE", "TRUNCATE", "UPDATE", "INSERT", "ALTER"}

// checkDestructive returns a SafetyViolation for the first denylisted keyword
// found in the statement, or nil when the statement passes.
func checkDestructive(sql string) *ExecError {
	upper := strings.ToUpper(sql)
	for _, kw := range destructiveKeywords {
		if strings.Contains(upper, kw) {
			return &ExecError{
				Message: fmt.Sprintf("Destructive operation '%s' not allowed", kw),
				Kind:    KindSafetyViolation,
			}
		}
	}
	return nil
}
