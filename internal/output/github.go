package output

import (
	"io"
	"strings"

	"github.com/dshills/stylegate/internal/review"
)

// GitHubWriter emits GitHub Actions workflow commands. The runner turns
// them into annotations on the pull request's changed files, so they use
// file lines whatever the configured line mapping.
type GitHubWriter struct{}

func (g *GitHubWriter) Write(w io.Writer, report *review.Report) error {
	ew := &errWriter{w: w}
	for _, v := range report.Violations {
		cmd := "warning"
		if v.Critical {
			cmd = "error"
		}
		ew.printf("::%s file=%s,line=%d,col=%d,title=%s::%s\n",
			cmd,
			escapeProperty(v.Path),
			v.AnnotationLine(),
			v.Column,
			escapeProperty(v.RuleID),
			escapeData(v.Message),
		)
	}
	if report.Inputs.Truncated {
		ew.println("::warning title=stylegate::diff exceeded the size limit; later files were not checked")
	}
	ew.printf("::notice title=stylegate::outcome %s, %d violation(s)\n",
		report.Verdict.Outcome, report.Verdict.TotalViolations)
	return ew.err
}

// escapeData escapes a workflow command message.
func escapeData(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A")
	return r.Replace(s)
}

// escapeProperty escapes a workflow command property value.
func escapeProperty(s string) string {
	r := strings.NewReplacer("%", "%25", "\r", "%0D", "\n", "%0A", ":", "%3A", ",", "%2C")
	return r.Replace(s)
}
