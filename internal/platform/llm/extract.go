package llm

import (
	"regexp"
	"strings"
)

var sqlFenceRe = regexp.MustCompile("(?s)```sql\\s*\\n(.*?)\\n```")

// ExtractFencedSQL pulls the first fenced ```sql block out of a model
// response. The second return is false when the response has no fence.
func ExtractFencedSQL(response string) (string, bool) {
	if m := sqlFenceRe.FindStringSubmatch(response); m != nil {
		return strings.TrimSpace(m[1]), true
	}
	return "", false
}

// ExtractSQL is ExtractFencedSQL with a fallback: when no fence is present
// the whole response is treated as SQL, which copes with models that answer
// with bare statements.
func ExtractSQL(response string) string {
	if sql, ok := ExtractFencedSQL(response); ok {
		return sql
	}
	return strings.TrimSpace(response)
}

// ExtractJSON returns the first balanced top-level {...} object in a model
// response, skipping any prose or markdown around it. Returns "" when the
// response contains no complete object.
func ExtractJSON(response string) string {
	start := strings.IndexByte(response, '{')
	if start < 0 {
		return ""
	}
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(response); i++ {
		c := response[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
