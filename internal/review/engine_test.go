package review

import (
	"testing"

	"github.com/dshills/stylegate/internal/config"
	"github.com/dshills/stylegate/internal/gitctx"
	"github.com/dshills/stylegate/internal/ruleset"
)

func runDiff(t *testing.T, text string, rs ruleset.RuleSet) *Report {
	t.Helper()
	cfg := config.Default()
	return Run(gitctx.DiffResult{Diff: text, Mode: "diff"}, rs, cfg, nil)
}

func TestRun_CriticalNullReturn(t *testing.T) {
	text := `diff --git a/Foo.java b/Foo.java
new file mode 100644
--- /dev/null
+++ b/Foo.java
@@ -0,0 +1,3 @@
+class Foo {
+    return null;
+}
`
	report := runDiff(t, text, rules(avoidNull))
	want := Verdict{TotalViolations: 1, HasCritical: true, Outcome: OutcomeCritical}
	if report.Verdict != want {
		t.Errorf("Verdict = %+v, want %+v", report.Verdict, want)
	}
	if len(report.Violations) != 1 || report.Violations[0].Line != 2 {
		t.Errorf("Violations = %+v, want one on line 2", report.Violations)
	}
}

func TestRun_NonSourceExtension(t *testing.T) {
	text := `diff --git a/Foo.txt b/Foo.txt
new file mode 100644
--- /dev/null
+++ b/Foo.txt
@@ -0,0 +1 @@
+return null;
`
	report := runDiff(t, text, rules(avoidNull, noVector))
	if report.Verdict.TotalViolations != 0 || report.Verdict.Outcome != OutcomeClean {
		t.Errorf("Verdict = %+v, want clean", report.Verdict)
	}
	if len(report.Inputs.Files) != 0 {
		t.Errorf("Inputs.Files = %v, want none", report.Inputs.Files)
	}
	if report.Violations == nil {
		t.Error("Violations should be an empty slice, not nil")
	}
}

func TestRun_OneCleanOneWarning(t *testing.T) {
	text := `diff --git a/Clean.java b/Clean.java
--- a/Clean.java
+++ b/Clean.java
@@ -1 +1,2 @@
 class Clean {}
+// nothing to see
diff --git a/Old.java b/Old.java
--- a/Old.java
+++ b/Old.java
@@ -1 +1,2 @@
 class Old {}
+Vector<String> names;
`
	report := runDiff(t, text, rules(avoidNull, noVector))
	want := Verdict{TotalViolations: 1, HasCritical: false, Outcome: OutcomeViolations}
	if report.Verdict != want {
		t.Errorf("Verdict = %+v, want %+v", report.Verdict, want)
	}
	if len(report.Inputs.Files) != 2 {
		t.Errorf("Inputs.Files = %v, want 2 files", report.Inputs.Files)
	}
}

func TestRun_ReportMetadata(t *testing.T) {
	rs := rules(avoidNull, ruleset.Rule{ID: "BAD", Pattern: "(", Message: "x"})
	d := gitctx.DiffResult{
		Diff:  "diff --git a/A.java b/A.java\n--- a/A.java\n+++ b/A.java\n@@ -1 +1,2 @@\n x\n+y\n",
		Mode:  "range",
		Range: "main..HEAD",
		Repo:  gitctx.RepoMeta{Root: "/src", Head: "abc123", Branch: "feature"},
	}
	report := Run(d, rs, config.Default(), nil)

	if report.Tool != "stylegate" {
		t.Errorf("Tool = %q", report.Tool)
	}
	if len(report.RunID) != 32 {
		t.Errorf("RunID = %q, want 32 hex chars", report.RunID)
	}
	if report.Inputs.Mode != "range" || report.Inputs.Range != "main..HEAD" {
		t.Errorf("Inputs = %+v", report.Inputs)
	}
	if report.Repo.Head != "abc123" || report.Repo.Branch != "feature" {
		t.Errorf("Repo = %+v", report.Repo)
	}
	if report.Rules.Count != 2 || report.Rules.Digest != rs.Digest() {
		t.Errorf("Rules = %+v", report.Rules)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].RuleID != "BAD" {
		t.Errorf("Skipped = %+v", report.Skipped)
	}
}

func TestNewRunID_Unique(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		id := NewRunID()
		if seen[id] {
			t.Fatalf("duplicate run id %s", id)
		}
		seen[id] = true
	}
}
