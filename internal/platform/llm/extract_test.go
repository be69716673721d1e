package llm

import (
	"context"
	"testing"
)

func TestExtractSQLFenced(t *testing.T) {
	response := "Here is the query:\n```sql\nSELECT COUNT(*) FROM patients\n```\nLet me know if you need changes."
	got := ExtractSQL(response)
	want := "SELECT COUNT(*) FROM patients"
	if got != want {
		t.Errorf("ExtractSQL() = %q, want %q", got, want)
	}
}

func TestExtractSQLMultipleFencesTakesFirst(t *testing.T) {
	response := "```sql\nSELECT 1\n```\nor alternatively\n```sql\nSELECT 2\n```"
	if got := ExtractSQL(response); got != "SELECT 1" {
		t.Errorf("ExtractSQL() = %q, want %q", got, "SELECT 1")
	}
}

func TestExtractSQLNoFence(t *testing.T) {
	if got := ExtractSQL("  SELECT * FROM claims  "); got != "SELECT * FROM claims" {
		t.Errorf("ExtractSQL() = %q, want bare statement", got)
	}
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		name     string
		response string
		want     string
	}{
		{
			name:     "bare object",
			response: `{"a": 1}`,
			want:     `{"a": 1}`,
		},
		{
			name:     "surrounded by prose",
			response: "Sure, here it is: {\"a\": {\"b\": 2}} hope that helps",
			want:     `{"a": {"b": 2}}`,
		},
		{
			name:     "braces inside strings are ignored",
			response: `{"note": "a } inside", "x": 1}`,
			want:     `{"note": "a } inside", "x": 1}`,
		},
		{
			name:     "escaped quote inside string",
			response: `{"note": "say \"}\" here"}`,
			want:     `{"note": "say \"}\" here"}`,
		},
		{
			name:     "unbalanced object",
			response: `{"a": 1`,
			want:     "",
		},
		{
			name:     "no object at all",
			response: "no structured output",
			want:     "",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractJSON(tt.response); got != tt.want {
				t.Errorf("ExtractJSON() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestStaticGenerator(t *testing.T) {
	gen := &Static{Responses: []string{"one", "two"}}
	ctx := context.Background()

	for _, want := range []string{"one", "two"} {
		got, err := gen.Generate(ctx, "prompt")
		if err != nil {
			t.Fatalf("Generate() error = %v", err)
		}
		if got != want {
			t.Errorf("Generate() = %q, want %q", got, want)
		}
	}
	if _, err := gen.Generate(ctx, "prompt"); err == nil {
		t.Error("expected error after responses exhausted")
	}
}

func TestDisabledGenerator(t *testing.T) {
	_, err := Disabled{}.Generate(context.Background(), "prompt")
	if err != ErrDisabled {
		t.Errorf("Generate() error = %v, want ErrDisabled", err)
	}
}
