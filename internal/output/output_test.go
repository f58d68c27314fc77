package output

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/dshills/stylegate/internal/review"
)

func sampleReport() *review.Report {
	vs := []review.Violation{
		{Path: "src/Foo.java", Line: 3, Column: 5, RuleID: "AVOID_NULL_RETURN", Message: "Return Optional instead of null", Critical: true, Fix: "return Optional.empty();", Match: "return null;"},
		{Path: "src/Foo.java", Line: 7, Column: 9, RuleID: "NO_VECTOR", Message: "Use ArrayList, not Vector<T>", Match: "Vector<"},
		{Path: "src/Bar.java", Line: 1, Column: 1, RuleID: "NO_VECTOR", Message: "Use ArrayList, not Vector<T>", Match: "Vector<"},
	}
	return &review.Report{
		Tool:    "stylegate",
		Version: "1.2.0",
		RunID:   "abc",
		Repo:    review.RepoInfo{Root: "/tmp/repo", Branch: "main"},
		Inputs: review.InputInfo{
			Mode:      "staged",
			Extension: ".java",
			Files:     []string{"src/Foo.java", "src/Bar.java"},
		},
		Rules:      review.RulesInfo{Count: 2, Digest: "d1"},
		Verdict:    review.Aggregate(vs),
		Violations: vs,
	}
}

func emptyReport() *review.Report {
	return &review.Report{
		Tool:       "stylegate",
		Version:    "1.2.0",
		Inputs:     review.InputInfo{Mode: "unstaged"},
		Verdict:    review.Aggregate(nil),
		Violations: []review.Violation{},
	}
}

func TestGetWriter(t *testing.T) {
	for _, f := range []string{"text", "json", "markdown", "sarif", "github"} {
		if _, err := GetWriter(f); err != nil {
			t.Errorf("GetWriter(%q) error: %v", f, err)
		}
	}
	if _, err := GetWriter("html"); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestTextWriter_NoViolations(t *testing.T) {
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{"unstaged mode", "Verdict: CLEAN (0 violations, 0 critical)", "No violations found."} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestTextWriter_WithViolations(t *testing.T) {
	report := sampleReport()
	report.Skipped = []review.SkippedRule{{Path: "src/Foo.java", RuleID: "BROKEN", Error: "bad"}}
	var buf bytes.Buffer
	if err := (&TextWriter{}).Write(&buf, report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"Verdict: CRITICAL (3 violations, 1 critical)",
		"  3:5  [!!]  AVOID_NULL_RETURN  Return Optional instead of null",
		"      fix: return Optional.empty();",
		"skipped rule BROKEN in src/Foo.java",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
	// Files appear in report order.
	if strings.Index(out, "src/Foo.java\n") > strings.Index(out, "src/Bar.java\n") {
		t.Error("files out of order")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, os.ErrClosed }

func TestTextWriter_PropagatesError(t *testing.T) {
	if err := (&TextWriter{}).Write(failingWriter{}, sampleReport()); err == nil {
		t.Error("expected write error")
	}
}

func TestJSONWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&JSONWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	if strings.Contains(buf.String(), `\u003c`) {
		t.Error("JSON output should not HTML-escape '<'")
	}
	var got review.Report
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if got.Verdict.Outcome != review.OutcomeCritical || got.Verdict.TotalViolations != 3 {
		t.Errorf("Verdict = %+v", got.Verdict)
	}
	var raw map[string]any
	_ = json.Unmarshal(buf.Bytes(), &raw)
	verdict := raw["verdict"].(map[string]any)
	if _, ok := verdict["totalViolations"]; !ok {
		t.Error("verdict should carry totalViolations")
	}
}

func TestMarkdownWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	for _, want := range []string{
		"## stylegate :x: critical",
		"| Critical | 1 |",
		"| Warning  | 2 |",
		"<summary><code>src/Foo.java</code> (2)</summary>",
		"```java\n  return Optional.empty();\n  ```",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("markdown missing %q:\n%s", want, out)
		}
	}
}

func TestMarkdownWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&MarkdownWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "No style violations") {
		t.Errorf("markdown = %s", buf.String())
	}
}

func TestSummary(t *testing.T) {
	report := sampleReport()
	got := Summary(report, report.Violations[2:])
	for _, want := range []string{
		"### stylegate :x: critical",
		"Found 3 violation(s), 1 critical, across 2 file(s).",
		"- `src/Bar.java:1` **warning** `NO_VECTOR`",
	} {
		if !strings.Contains(got, want) {
			t.Errorf("summary missing %q:\n%s", want, got)
		}
	}
	if got := Summary(emptyReport(), nil); !strings.Contains(got, "No style violations") {
		t.Errorf("empty summary = %q", got)
	}
}

func TestSARIFWriter(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, sampleReport()); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	run := log.Runs[0]
	if len(run.Tool.Driver.Rules) != 2 {
		t.Errorf("rules = %d, want 2 distinct", len(run.Tool.Driver.Rules))
	}
	if len(run.Results) != 3 {
		t.Fatalf("results = %d, want 3", len(run.Results))
	}
	first := run.Results[0]
	if first.Level != "error" || first.RuleIndex != 0 {
		t.Errorf("first result = %+v", first)
	}
	region := first.Locations[0].PhysicalLocation.Region
	if region.StartLine != 3 || region.StartColumn != 5 {
		t.Errorf("region = %+v", region)
	}
	if run.Results[2].Level != "warning" || run.Results[2].RuleIndex != 1 {
		t.Errorf("third result = %+v", run.Results[2])
	}
	if run.Properties.Outcome != "critical" {
		t.Errorf("run outcome = %q", run.Properties.Outcome)
	}
}

func TestSARIFWriter_Empty(t *testing.T) {
	var buf bytes.Buffer
	if err := (&SARIFWriter{}).Write(&buf, emptyReport()); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), `"results": []`) {
		t.Errorf("empty SARIF should have an empty results array:\n%s", buf.String())
	}
}

func TestGitHubWriter(t *testing.T) {
	report := sampleReport()
	report.Violations[1].Message = "line one\nline two: 100%"
	var buf bytes.Buffer
	if err := (&GitHubWriter{}).Write(&buf, report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d lines, want 4:\n%s", len(lines), buf.String())
	}
	want0 := "::error file=src/Foo.java,line=3,col=5,title=AVOID_NULL_RETURN::Return Optional instead of null"
	if lines[0] != want0 {
		t.Errorf("line 0 = %q, want %q", lines[0], want0)
	}
	if !strings.HasSuffix(lines[1], "::line one%0Aline two: 100%25") {
		t.Errorf("line 1 not escaped: %q", lines[1])
	}
	if lines[3] != "::notice title=stylegate::outcome critical, 3 violation(s)" {
		t.Errorf("notice = %q", lines[3])
	}
}

func TestGitHubWriter_FileLineAndTruncation(t *testing.T) {
	vs := []review.Violation{
		{Path: "src/Foo.java", Line: 2, FileLine: 41, Column: 3, RuleID: "AVOID_NULL_RETURN", Message: "m", Critical: true},
	}
	report := &review.Report{
		Tool:       "stylegate",
		Inputs:     review.InputInfo{Mode: "diff", Truncated: true},
		Verdict:    review.Aggregate(vs),
		Violations: vs,
	}
	var buf bytes.Buffer
	if err := (&GitHubWriter{}).Write(&buf, report); err != nil {
		t.Fatalf("Write error: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "::error file=src/Foo.java,line=41,col=3,") {
		t.Errorf("annotation should use the file line:\n%s", out)
	}
	if !strings.Contains(out, "::warning title=stylegate::diff exceeded the size limit") {
		t.Errorf("missing truncation warning:\n%s", out)
	}

	buf.Reset()
	if err := (&SARIFWriter{}).Write(&buf, report); err != nil {
		t.Fatal(err)
	}
	var log sarifLog
	if err := json.Unmarshal(buf.Bytes(), &log); err != nil {
		t.Fatalf("invalid SARIF: %v", err)
	}
	if got := log.Runs[0].Results[0].Locations[0].PhysicalLocation.Region.StartLine; got != 41 {
		t.Errorf("SARIF startLine = %d, want 41", got)
	}

	if got := Summary(report, nil); !strings.Contains(got, "**Incomplete:**") {
		t.Errorf("summary should flag the truncated diff:\n%s", got)
	}
}

func TestEscapeProperty(t *testing.T) {
	if got := escapeProperty("a,b:c%"); got != "a%2Cb%3Ac%25" {
		t.Errorf("escapeProperty = %q", got)
	}
}

func TestWriteReport_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "report.json")
	if err := WriteReport(sampleReport(), "json", path); err != nil {
		t.Fatalf("WriteReport error: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !json.Valid(data) {
		t.Error("file does not contain valid JSON")
	}
	if err := WriteReport(sampleReport(), "yaml", path); err == nil {
		t.Error("expected error for unsupported format")
	}
}

func TestInferLang(t *testing.T) {
	tests := map[string]string{
		"src/Foo.java": "java",
		"main.go":      "go",
		"App.kt":       "kotlin",
		"README":       "",
	}
	for path, want := range tests {
		if got := inferLang(path); got != want {
			t.Errorf("inferLang(%q) = %q, want %q", path, got, want)
		}
	}
}
