package review

import (
	"crypto/rand"
	"encoding/hex"
	"log/slog"
	"time"

	"github.com/dshills/stylegate/internal/config"
	"github.com/dshills/stylegate/internal/diff"
	"github.com/dshills/stylegate/internal/gitctx"
	"github.com/dshills/stylegate/internal/logging"
	"github.com/dshills/stylegate/internal/ruleset"
)

// Tool and Version identify stylegate in reports.
const Tool = "stylegate"

var Version = "dev"

// Run checks the diff against the rule set and assembles a report.
// It never fails: malformed sections and bad patterns are logged and
// skipped.
func Run(d gitctx.DiffResult, rs ruleset.RuleSet, cfg config.Config, logger *slog.Logger) *Report {
	logger = logging.OrDiscard(logger)
	start := time.Now()

	files := diff.Parse(d.Diff, diff.Options{Extension: cfg.Extension, Logger: logger})
	parsed := time.Now()

	res := Analyze(files, rs, Options{
		Concurrency: cfg.Concurrency,
		LineMapping: cfg.LineMapping,
		Logger:      logger,
	})
	matched := time.Now()

	paths := make([]string, 0, len(files))
	for _, f := range files {
		paths = append(paths, f.Path)
	}
	violations := res.Violations
	if violations == nil {
		violations = []Violation{}
	}

	report := &Report{
		Tool:    Tool,
		Version: Version,
		RunID:   NewRunID(),
		Repo: RepoInfo{
			Root:   d.Repo.Root,
			Head:   d.Repo.Head,
			Branch: d.Repo.Branch,
		},
		Inputs: InputInfo{
			Mode:      d.Mode,
			Range:     d.Range,
			Extension: cfg.Extension,
			Files:     paths,
			Truncated: d.Truncated,
		},
		Rules: RulesInfo{
			Count:  rs.Len(),
			Digest: rs.Digest(),
		},
		Verdict:    Aggregate(violations),
		Violations: violations,
		Skipped:    res.Skipped,
		Timing: Timing{
			ParseMs: parsed.Sub(start).Milliseconds(),
			MatchMs: matched.Sub(parsed).Milliseconds(),
			TotalMs: time.Since(start).Milliseconds(),
		},
	}
	logger.Debug("review complete",
		"run", report.RunID,
		"files", len(files),
		"violations", report.Verdict.TotalViolations,
		"outcome", report.Verdict.Outcome)
	return report
}

// NewRunID returns a random 128-bit run identifier in hex.
func NewRunID() string {
	var b [16]byte
	_, _ = rand.Read(b[:])
	return hex.EncodeToString(b[:])
}
