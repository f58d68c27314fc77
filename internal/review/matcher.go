package review

import (
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/dshills/stylegate/internal/diff"
	"github.com/dshills/stylegate/internal/logging"
	"github.com/dshills/stylegate/internal/ruleset"
)

// Line mapping modes.
const (
	// LineContent numbers lines within the file's joined added content.
	LineContent = "content"
	// LineFile numbers lines as in the post-change file.
	LineFile = "file"
)

// Options controls Analyze.
type Options struct {
	// Concurrency is the number of files matched at once. Values below 2
	// match sequentially.
	Concurrency int
	LineMapping string
	Logger      *slog.Logger
}

// Result is the output of Analyze.
type Result struct {
	Violations []Violation
	Skipped    []SkippedRule
}

// Match applies every rule to one file's added content. Violations are
// ordered by rule, then by match position. A rule whose pattern does not
// compile is logged and skipped for this file only.
func Match(fc diff.FileChange, rs ruleset.RuleSet, logger *slog.Logger) []Violation {
	vs, _ := matchFile(fc, rs, logging.OrDiscard(logger))
	return vs
}

func matchFile(fc diff.FileChange, rs ruleset.RuleSet, logger *slog.Logger) ([]Violation, []SkippedRule) {
	if len(fc.Added) == 0 {
		return nil, nil
	}
	content := fc.AddedContent()

	var out []Violation
	var skipped []SkippedRule
	for _, rule := range rs.Rules {
		re, err := rule.Compile()
		if err != nil {
			logger.Error("skipping rule with invalid pattern", "rule", rule.ID, "path", fc.Path, "err", err)
			skipped = append(skipped, SkippedRule{Path: fc.Path, RuleID: rule.ID, Error: err.Error()})
			continue
		}

		// Matches arrive in ascending order, so newlines are counted
		// incrementally from the previous match.
		line, counted := 1, 0
		for _, loc := range re.FindAllStringIndex(content, -1) {
			start, end := loc[0], loc[1]
			line += strings.Count(content[counted:start], "\n")
			counted = start
			lineStart := strings.LastIndexByte(content[:start], '\n') + 1
			out = append(out, Violation{
				Path:     fc.Path,
				Line:     line,
				Column:   start - lineStart + 1,
				RuleID:   rule.ID,
				Message:  rule.Message,
				Critical: rule.Critical,
				Fix:      rule.Fix,
				Match:    content[start:end],
			})
		}
	}
	return out, skipped
}

// Analyze matches every file against the rule set. Violations are ordered by
// file (diff order), then rule order, then match position, whether or not
// files are matched concurrently.
func Analyze(files []diff.FileChange, rs ruleset.RuleSet, opts Options) Result {
	logger := logging.OrDiscard(opts.Logger)

	// Each file's results land in its own slot, so concatenating the slots
	// restores diff order regardless of completion order.
	perFile := make([][]Violation, len(files))
	skipped := make([][]SkippedRule, len(files))
	if opts.Concurrency < 2 || len(files) < 2 {
		for i, fc := range files {
			perFile[i], skipped[i] = matchFile(fc, rs, logger)
		}
	} else {
		var g errgroup.Group
		g.SetLimit(opts.Concurrency)
		for i, fc := range files {
			g.Go(func() error {
				perFile[i], skipped[i] = matchFile(fc, rs, logger)
				return nil
			})
		}
		_ = g.Wait() // matchFile never fails
	}

	var res Result
	for i, fc := range files {
		vs := perFile[i]
		for j := range vs {
			vs[j].FileLine = fc.FileLine(vs[j].Line)
			if opts.LineMapping == LineFile && vs[j].FileLine > 0 {
				vs[j].Line = vs[j].FileLine
			}
		}
		res.Violations = append(res.Violations, vs...)
		res.Skipped = append(res.Skipped, skipped[i]...)
	}
	return res
}
