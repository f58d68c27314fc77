package github

import (
	"fmt"
	"strings"

	"github.com/dshills/stylegate/internal/diff"
	"github.com/dshills/stylegate/internal/output"
	"github.com/dshills/stylegate/internal/review"
)

// ReviewComment is an inline comment anchored to a post-change line.
type ReviewComment struct {
	Path string `json:"path"`
	Line int    `json:"line"`
	Body string `json:"body"`
}

// ReviewRequest is a pull request review to post.
type ReviewRequest struct {
	CommitID string          `json:"commit_id,omitempty"`
	Body     string          `json:"body"`
	Event    string          `json:"event"`
	Comments []ReviewComment `json:"comments"`
}

// Status is a commit status.
type Status struct {
	State       string
	Description string
	Context     string
	TargetURL   string
}

// ReviewOptions controls BuildReview.
type ReviewOptions struct {
	// LineMapping says how violation lines are numbered ("content" or
	// "file"). Inline comments always use post-change file lines.
	LineMapping string
	// MaxComments caps inline comments; the rest are listed in the body.
	// Zero means no cap.
	MaxComments int
	CommitID    string
}

// BuildReview turns a report into a review with one inline comment per
// violation. Violations whose line cannot be placed in the diff, or that
// exceed MaxComments, are listed in the summary body instead.
func BuildReview(report *review.Report, files []diff.FileChange, opts ReviewOptions) ReviewRequest {
	byPath := make(map[string]diff.FileChange, len(files))
	for _, f := range files {
		if _, ok := byPath[f.Path]; !ok {
			byPath[f.Path] = f
		}
	}

	var comments []ReviewComment
	var outside []review.Violation
	for _, v := range report.Violations {
		fc, ok := byPath[v.Path]
		line := 0
		if ok {
			line = fileLine(fc, v.Line, opts.LineMapping)
		}
		if line == 0 || (opts.MaxComments > 0 && len(comments) >= opts.MaxComments) {
			outside = append(outside, v)
			continue
		}
		comments = append(comments, ReviewComment{
			Path: v.Path,
			Line: line,
			Body: InlineComment(v),
		})
	}

	return ReviewRequest{
		CommitID: opts.CommitID,
		Body:     output.Summary(report, outside),
		Event:    "COMMENT",
		Comments: comments,
	}
}

// fileLine returns the post-change line for a violation line, or 0 if the
// line is not an added line of fc.
func fileLine(fc diff.FileChange, line int, lineMapping string) int {
	if lineMapping == review.LineFile {
		for _, a := range fc.Added {
			if a.Number == line {
				return line
			}
		}
		return 0
	}
	return fc.FileLine(line)
}

// InlineComment renders the body of one inline comment.
func InlineComment(v review.Violation) string {
	var sb strings.Builder
	label := "warning"
	if v.Critical {
		label = "critical"
	}
	fmt.Fprintf(&sb, "**%s** `%s`: %s", label, v.RuleID, v.Message)
	if v.Fix != "" {
		fmt.Fprintf(&sb, "\n\nSuggested fix:\n```\n%s\n```", v.Fix)
	}
	return sb.String()
}

// StatusFor maps a verdict to a commit status. Non-critical violations do
// not block: they report success with a warning in the description.
func StatusFor(v review.Verdict, context string) Status {
	st := Status{Context: context}
	switch v.Outcome {
	case review.OutcomeCritical:
		st.State = "failure"
		st.Description = fmt.Sprintf("%d style violation(s) including critical", v.TotalViolations)
	case review.OutcomeViolations:
		st.State = "success"
		st.Description = fmt.Sprintf("%d non-critical style violation(s)", v.TotalViolations)
	default:
		st.State = "success"
		st.Description = "No style violations"
	}
	return st
}

// ReportStatus is StatusFor with the run's completeness applied. A run
// whose diff was truncated never reports success: part of the change was
// not checked.
func ReportStatus(r *review.Report, context string) Status {
	if !r.Inputs.Truncated {
		return StatusFor(r.Verdict, context)
	}
	return Status{
		Context:     context,
		State:       "error",
		Description: fmt.Sprintf("Diff too large, only part checked (%d violation(s) so far)", r.Verdict.TotalViolations),
	}
}
