package output

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/dshills/stylegate/internal/review"
)

// MarkdownWriter outputs a PR-comment-friendly markdown report.
type MarkdownWriter struct{}

func (m *MarkdownWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	v := report.Verdict
	critical := countCritical(report.Violations)

	ew.printf("## stylegate %s %s\n\n", outcomeEmoji(v.Outcome), v.Outcome)
	ew.printf("| Severity | Count |\n")
	ew.printf("|----------|-------|\n")
	ew.printf("| Critical | %d |\n", critical)
	ew.printf("| Warning  | %d |\n", v.TotalViolations-critical)
	ew.printf("| **Total** | **%d** |\n\n", v.TotalViolations)

	if v.TotalViolations == 0 {
		ew.println("No style violations in the added lines. :white_check_mark:")
		return ew.err
	}

	for _, g := range groupByFile(report.Violations) {
		lang := inferLang(g.Path)
		ew.printf("<details>\n<summary><code>%s</code> (%d)</summary>\n\n", g.Path, len(g.Violations))
		for _, viol := range g.Violations {
			ew.printf("- **%s** `%s` line %d: %s\n", severityLabel(viol), viol.RuleID, viol.Line, viol.Message)
			if viol.Fix != "" {
				ew.printf("\n  ```%s\n  %s\n  ```\n", lang, strings.ReplaceAll(viol.Fix, "\n", "\n  "))
			}
		}
		ew.printf("\n</details>\n\n")
	}

	if len(report.Skipped) > 0 {
		ew.printf("> %d rule(s) were skipped because their pattern does not compile.\n\n", len(report.Skipped))
	}
	ew.printf("*Checked %d file(s) against %d rule(s) in %dms*\n",
		len(report.Inputs.Files), report.Rules.Count, report.Timing.TotalMs)
	return ew.err
}

func outcomeEmoji(o review.Outcome) string {
	switch o {
	case review.OutcomeCritical:
		return ":x:"
	case review.OutcomeViolations:
		return ":warning:"
	default:
		return ":white_check_mark:"
	}
}

var langByExt = map[string]string{
	".go":    "go",
	".java":  "java",
	".kt":    "kotlin",
	".scala": "scala",
	".py":    "python",
	".js":    "javascript",
	".ts":    "typescript",
	".rs":    "rust",
	".rb":    "ruby",
	".cs":    "csharp",
	".sql":   "sql",
	".yml":   "yaml",
	".yaml":  "yaml",
}

func inferLang(path string) string {
	return langByExt[filepath.Ext(path)]
}

// Summary renders a short markdown summary of the verdict, suitable for a
// pull request review body. It lists the violations that could not be
// attached inline.
func Summary(report *review.Report, outside []review.Violation) string {
	var b strings.Builder
	v := report.Verdict
	fmt.Fprintf(&b, "### stylegate %s %s\n\n", outcomeEmoji(v.Outcome), v.Outcome)
	if report.Inputs.Truncated {
		b.WriteString("> **Incomplete:** the diff exceeded the size limit and later files were not checked. " +
			"This verdict covers only the checked part.\n\n")
	}
	switch v.TotalViolations {
	case 0:
		b.WriteString("No style violations in the added lines.\n")
	default:
		fmt.Fprintf(&b, "Found %d violation(s), %d critical, across %d file(s).\n",
			v.TotalViolations, countCritical(report.Violations), len(groupByFile(report.Violations)))
	}
	if len(outside) > 0 {
		b.WriteString("\nNot attached inline:\n\n")
		for _, viol := range outside {
			fmt.Fprintf(&b, "- `%s:%d` **%s** `%s`: %s\n", viol.Path, viol.Line, severityLabel(viol), viol.RuleID, viol.Message)
		}
	}
	return b.String()
}
