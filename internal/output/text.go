package output

import (
	"io"
	"strings"

	"github.com/dshills/stylegate/internal/review"
)

// TextWriter outputs a human-readable text report.
type TextWriter struct{}

func (t *TextWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}

	ew.printf("stylegate review: %s mode\n", report.Inputs.Mode)
	if report.Inputs.Range != "" {
		ew.printf("Range: %s\n", report.Inputs.Range)
	}
	if report.Repo.Root != "" {
		ew.printf("Repository: %s (branch: %s)\n", report.Repo.Root, report.Repo.Branch)
	}
	ew.printf("Files checked: %d | Rules: %d\n", len(report.Inputs.Files), report.Rules.Count)
	if report.Inputs.Truncated {
		ew.println("Note: diff truncated at max-diff-bytes; some files were not checked")
	}
	ew.println(strings.Repeat("─", 60))

	v := report.Verdict
	ew.printf("Verdict: %s (%d violations, %d critical)\n",
		strings.ToUpper(string(v.Outcome)), v.TotalViolations, countCritical(report.Violations))
	ew.println(strings.Repeat("─", 60))

	for _, s := range report.Skipped {
		ew.printf("skipped rule %s in %s: %s\n", s.RuleID, s.Path, s.Error)
	}

	if v.TotalViolations == 0 {
		ew.println("\nNo violations found.")
		return ew.err
	}

	for _, g := range groupByFile(report.Violations) {
		ew.printf("\n%s\n", g.Path)
		for _, viol := range g.Violations {
			ew.printf("  %d:%d  %s  %s  %s\n",
				viol.Line, viol.Column, severityIcon(viol), viol.RuleID, viol.Message)
			if viol.Match != "" {
				ew.printf("      > %s\n", firstLine(viol.Match))
			}
			if viol.Fix != "" {
				ew.printf("      fix: %s\n", firstLine(viol.Fix))
			}
		}
	}

	ew.printf("\n%s\n", strings.Repeat("─", 60))
	ew.printf("Completed in %dms (parse: %dms, match: %dms)\n",
		report.Timing.TotalMs, report.Timing.ParseMs, report.Timing.MatchMs)

	return ew.err
}

func severityIcon(v review.Violation) string {
	if v.Critical {
		return "[!!]"
	}
	return "[!] "
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i] + " …"
	}
	return s
}
