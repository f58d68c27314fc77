package ruleset

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
)

const sampleYAML = `rules:
  - id: AVOID_NULL_RETURN
    pattern: 'return\s+null;'
    message: Return Optional.empty() instead of null.
    critical: true
    fix: return Optional.empty();
  - id: NO_VECTOR
    pattern: '\bVector<'
    message: Vector is obsolete; use ArrayList.
`

func TestParse_YAMLMapping(t *testing.T) {
	rs, err := Parse([]byte(sampleYAML), FormatYAML)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	want := []Rule{
		{
			ID:       "AVOID_NULL_RETURN",
			Pattern:  `return\s+null;`,
			Message:  "Return Optional.empty() instead of null.",
			Critical: true,
			Fix:      "return Optional.empty();",
		},
		{
			ID:      "NO_VECTOR",
			Pattern: `\bVector<`,
			Message: "Vector is obsolete; use ArrayList.",
		},
	}
	if diff := cmp.Diff(want, rs.Rules); diff != "" {
		t.Errorf("rules mismatch (-want +got):\n%s", diff)
	}
}

func TestParse_YAMLList(t *testing.T) {
	data := "- id: A\n  pattern: a\n  message: m\n"
	rs, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if rs.Len() != 1 || rs.Rules[0].ID != "A" {
		t.Errorf("rules = %+v", rs.Rules)
	}
	if rs.Rules[0].Critical {
		t.Error("critical should default to false")
	}
	if rs.Rules[0].Fix != "" {
		t.Error("fix should default to empty")
	}
}

func TestParse_JSON(t *testing.T) {
	tests := []struct {
		name string
		data string
	}{
		{"list", `[{"id":"A","pattern":"a","message":"m","critical":true}]`},
		{"mapping", `{"rules":[{"id":"A","pattern":"a","message":"m","critical":true}]}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse([]byte(tt.data), FormatJSON)
			if err != nil {
				t.Fatalf("Parse error: %v", err)
			}
			if rs.Len() != 1 || !rs.Rules[0].Critical {
				t.Errorf("rules = %+v", rs.Rules)
			}
		})
	}
}

func TestParse_SeverityAlias(t *testing.T) {
	data := "- id: A\n  pattern: a\n  message: m\n  severity: critical\n- id: B\n  pattern: b\n  message: m\n  severity: warning\n"
	rs, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if !rs.Rules[0].Critical {
		t.Error("severity: critical should mark the rule critical")
	}
	if rs.Rules[1].Critical {
		t.Error("severity: warning should not mark the rule critical")
	}
}

func TestParse_MissingRequiredFields(t *testing.T) {
	tests := []struct {
		name    string
		data    string
		wantErr string
	}{
		{"missing id", "- pattern: a\n  message: m\n", "rule #1: missing required field(s): id"},
		{"missing pattern", "- id: A\n  message: m\n", "rule #1 (A): missing required field(s): pattern"},
		{"missing message", "- id: A\n  pattern: a\n", "rule #1 (A): missing required field(s): message"},
		{"second entry", "- id: A\n  pattern: a\n  message: m\n- id: B\n", "rule #2 (B): missing required field(s): pattern, message"},
		{"duplicate id", "- id: A\n  pattern: a\n  message: m\n- id: A\n  pattern: b\n  message: m\n", `rule #2: duplicate id "A"`},
		{"bad severity", "- id: A\n  pattern: a\n  message: m\n  severity: high\n", `unknown severity "high"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse([]byte(tt.data), FormatYAML)
			if err == nil {
				t.Fatalf("expected error, got %d rules", rs.Len())
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
			if rs.Len() != 0 {
				t.Errorf("partial rule set returned: %+v", rs.Rules)
			}
		})
	}
}

func TestParse_InvalidPatternIsNotALoadError(t *testing.T) {
	data := "- id: BAD\n  pattern: '(unclosed'\n  message: m\n- id: OK\n  pattern: ok\n  message: m\n"
	rs, err := Parse([]byte(data), FormatYAML)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	errs := rs.Check()
	if len(errs) != 1 {
		t.Fatalf("Check() = %v, want one error", errs)
	}
	var perr *PatternError
	if !errors.As(errs[0], &perr) || perr.RuleID != "BAD" {
		t.Errorf("Check()[0] = %v, want PatternError for BAD", errs[0])
	}
}

func TestParse_Empty(t *testing.T) {
	if _, err := Parse([]byte("  \n"), FormatYAML); err == nil {
		t.Error("expected error for empty document")
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "rules.yml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatal(err)
	}
	rs, err := Load(path)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if rs.Len() != 2 {
		t.Errorf("Len() = %d, want 2", rs.Len())
	}

	if _, err := Load(filepath.Join(dir, "missing.yml")); err == nil {
		t.Error("expected error for missing file")
	}
	if _, err := Load(""); err == nil {
		t.Error("expected error for empty path")
	}
}

func TestFormatForPath(t *testing.T) {
	tests := []struct {
		path string
		want Format
	}{
		{"rules.json", FormatJSON},
		{"RULES.JSON", FormatJSON},
		{"rules.yml", FormatYAML},
		{".stylegate.yaml", FormatYAML},
		{"rules", FormatYAML},
	}
	for _, tt := range tests {
		if got := FormatForPath(tt.path); got != tt.want {
			t.Errorf("FormatForPath(%q) = %q, want %q", tt.path, got, tt.want)
		}
	}
}

func TestDigest(t *testing.T) {
	a, _ := Parse([]byte(sampleYAML), FormatYAML)
	b, _ := Parse([]byte(sampleYAML), FormatYAML)
	if a.Digest() != b.Digest() {
		t.Error("Digest should be stable for identical rule sets")
	}
	b.Rules[1].Critical = true
	if a.Digest() == b.Digest() {
		t.Error("Digest should change when a rule changes")
	}
}

func TestCompile_MultiLine(t *testing.T) {
	r := Rule{ID: "A", Pattern: `^\s*return null;$`}
	re, err := r.Compile()
	if err != nil {
		t.Fatalf("Compile error: %v", err)
	}
	if got := len(re.FindAllStringIndex("a\n  return null;\nb", -1)); got != 1 {
		t.Errorf("matches = %d, want 1 (^/$ must match at line boundaries)", got)
	}
}

func TestGet(t *testing.T) {
	rs, _ := Parse([]byte(sampleYAML), FormatYAML)
	if r, ok := rs.Get("NO_VECTOR"); !ok || r.Message == "" {
		t.Errorf("Get(NO_VECTOR) = %+v, %v", r, ok)
	}
	if _, ok := rs.Get("NOPE"); ok {
		t.Error("Get(NOPE) should miss")
	}
}

func TestParse_UnknownKeysAreErrors(t *testing.T) {
	tests := []struct {
		name    string
		format  Format
		data    string
		wantErr string
	}{
		{"misspelled top-level key", FormatYAML, "rule:\n  - id: A\n    pattern: a\n    message: m\n", "rule"},
		{"no rules key", FormatYAML, "{}\n", `no "rules" list`},
		{"misspelled entry key", FormatYAML, "- id: A\n  pattern: a\n  message: m\n  critcal: true\n", "critcal"},
		{"misspelled entry key in mapping", FormatYAML, "rules:\n  - id: A\n    pattern: a\n    message: m\n    fixx: b\n", "fixx"},
		{"JSON misspelled top-level key", FormatJSON, `{"rulez":[{"id":"A","pattern":"a","message":"m"}]}`, "rulez"},
		{"JSON no rules key", FormatJSON, `{}`, `no "rules" list`},
		{"JSON misspelled entry key", FormatJSON, `[{"id":"A","pattern":"a","message":"m","critcal":true}]`, "critcal"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rs, err := Parse([]byte(tt.data), tt.format)
			if err == nil {
				t.Fatalf("expected error, got %d rules", rs.Len())
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want substring %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestParse_EmptyRulesListIsAllowed(t *testing.T) {
	rs, err := Parse([]byte("rules: []\n"), FormatYAML)
	if err != nil {
		t.Fatalf("Parse error: %v", err)
	}
	if rs.Len() != 0 {
		t.Errorf("rules = %+v", rs.Rules)
	}
}
