package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/stylegate/internal/config"
	"github.com/dshills/stylegate/internal/diff"
	"github.com/dshills/stylegate/internal/gitctx"
	"github.com/dshills/stylegate/internal/logging"
	"github.com/dshills/stylegate/internal/output"
	"github.com/dshills/stylegate/internal/patch"
	"github.com/dshills/stylegate/internal/redact"
	"github.com/dshills/stylegate/internal/review"
	"github.com/dshills/stylegate/internal/ruleset"
	"github.com/dshills/stylegate/internal/storage"
)

// Shared review flags
var (
	flagPaths        string
	flagExclude      string
	flagContextLines int
	flagMaxDiffBytes int
	flagFormat       string
	flagOut          string
	flagFailOn       string
	flagRules        string
	flagExtension    string
	flagLineMapping  string
	flagConcurrency  int
	flagNoRedact     bool
	flagPatchOut     string
)

func addReviewFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&flagPaths, "paths", "", "Include file path globs (comma-separated)")
	cmd.Flags().StringVar(&flagExclude, "exclude", "", "Exclude file path globs (comma-separated)")
	cmd.Flags().IntVar(&flagContextLines, "context-lines", 0, "Number of context lines in diff")
	cmd.Flags().IntVar(&flagMaxDiffBytes, "max-diff-bytes", 0, "Maximum diff size in bytes")
	cmd.Flags().StringVar(&flagFormat, "format", "", "Output format (text, json, markdown, sarif, github)")
	cmd.Flags().StringVar(&flagOut, "out", "", "Output file path (default: stdout)")
	cmd.Flags().StringVar(&flagFailOn, "fail-on", "", "Exit 1 at or above this outcome (none, violations, critical)")
	cmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path")
	cmd.Flags().StringVar(&flagExtension, "extension", "", `Only check files with this extension ("" checks all files)`)
	cmd.Flags().StringVar(&flagLineMapping, "line-mapping", "", "Report lines as content offsets or file lines (content, file)")
	cmd.Flags().IntVar(&flagConcurrency, "concurrency", 0, "Files matched in parallel")
	cmd.Flags().BoolVar(&flagNoRedact, "no-redact", false, "Disable secret redaction (use with caution)")
	cmd.Flags().StringVar(&flagPatchOut, "patch-out", "", "Write fix patches for violations with a fix to this file")
}

func buildOverrides() map[string]string {
	m := make(map[string]string)
	if flagFormat != "" {
		m["format"] = flagFormat
	}
	if flagFailOn != "" {
		m["failOn"] = flagFailOn
	}
	if flagContextLines > 0 {
		m["contextLines"] = strconv.Itoa(flagContextLines)
	}
	if flagMaxDiffBytes > 0 {
		m["maxDiffBytes"] = strconv.Itoa(flagMaxDiffBytes)
	}
	if flagRules != "" {
		m["rulesFile"] = flagRules
	}
	if flagExtension != "" {
		m["extension"] = flagExtension
	}
	if flagLineMapping != "" {
		m["lineMapping"] = flagLineMapping
	}
	if flagConcurrency > 0 {
		m["concurrency"] = strconv.Itoa(flagConcurrency)
	}
	return m
}

// loadReviewConfig loads configuration for a reviewing command. An
// explicit --extension "" means every file is checked, which the override
// map cannot express.
func loadReviewConfig(cmd *cobra.Command, overrides map[string]string) (config.Config, error) {
	cfg, err := loadConfig(overrides)
	if err != nil {
		return config.Config{}, err
	}
	if f := cmd.Flags().Lookup("extension"); f != nil && f.Changed && flagExtension == "" {
		cfg.Extension = ""
	}
	if flagNoRedact {
		cfg.Privacy.RedactSecrets = false
		fmt.Fprintln(os.Stderr, "WARNING: secret redaction is disabled")
	}
	return cfg, nil
}

func buildDiffOpts(cfg config.Config) gitctx.DiffOptions {
	opts := gitctx.DiffOptions{
		ContextLines: cfg.ContextLines,
		MaxDiffBytes: cfg.MaxDiffBytes,
		Include:      cfg.Include,
		Exclude:      cfg.Exclude,
	}
	if flagPaths != "" {
		opts.Include = splitComma(flagPaths)
	}
	if flagExclude != "" {
		opts.Exclude = append(opts.Exclude, splitComma(flagExclude)...)
	}
	return opts
}

func splitComma(s string) []string {
	parts := strings.Split(s, ",")
	var result []string
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			result = append(result, p)
		}
	}
	return result
}

func loadRules(cfg config.Config) (ruleset.RuleSet, bool) {
	rs, err := ruleset.Load(cfg.RulesFile)
	if err != nil {
		fail(ExitUsageError, "loading rules: %v", err)
		return ruleset.RuleSet{}, false
	}
	return rs, true
}

// runReview checks d against rs, writes the report and sets the exit code
// from the verdict.
func runReview(ctx context.Context, d gitctx.DiffResult, rs ruleset.RuleSet, cfg config.Config) {
	logger := newLogger(cfg)

	report := review.Run(d, rs, cfg, logger)

	if flagPatchOut != "" {
		if err := writePatches(d, report, cfg); err != nil {
			fail(ExitRuntimeError, "writing patches: %v", err)
			return
		}
	}

	report = redact.Report(report, cfg.Privacy)
	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fail(ExitRuntimeError, "writing output: %v", err)
		return
	}
	saveLocalRun(ctx, cfg, report)

	gate(report, cfg)
}

// gate sets the exit code from the verdict. A truncated run that would
// otherwise pass is a runtime failure, since part of the change was not
// checked.
func gate(report *review.Report, cfg config.Config) {
	switch {
	case review.MeetsThreshold(report.Verdict.Outcome, cfg.FailOn):
		exitCode = ExitViolations
	case report.Inputs.Truncated:
		fail(ExitRuntimeError, "diff exceeded %d bytes; the verdict covers only part of the change (raise --max-diff-bytes)", cfg.MaxDiffBytes)
	}
}

// writePatches renders fix patches from the unredacted report, since
// fixes replace the matched text.
func writePatches(d gitctx.DiffResult, report *review.Report, cfg config.Config) error {
	files := diff.Parse(d.Diff, diff.Options{Extension: cfg.Extension, Logger: logging.Discard()})
	text := patch.Generate(files, report.Violations, cfg.LineMapping, os.Stderr)
	return os.WriteFile(flagPatchOut, []byte(text), 0o644)
}

// saveLocalRun records a local run when a persistent store is configured.
func saveLocalRun(ctx context.Context, cfg config.Config, report *review.Report) {
	if cfg.Storage.Driver == storage.DriverMemory {
		return
	}
	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run not recorded: %v\n", err)
		return
	}
	defer store.Close()
	run := storage.NewRun(report, report.Inputs.Mode, report.Repo.Root, 0, report.Repo.Head)
	if err := store.SaveRun(ctx, run); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: run not recorded: %v\n", err)
	}
}

var reviewCmd = &cobra.Command{
	Use:   "review",
	Short: "Check code changes against the style rules",
	Long:  "Check the added lines of a diff against the style rules. Use subcommands to choose the diff.",
}

// diffCommand builds a review subcommand around a diff source.
func diffCommand(use, short string, args cobra.PositionalArgs, source func(ctx context.Context, args []string, cfg config.Config) (gitctx.DiffResult, error)) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  args,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadReviewConfig(cmd, buildOverrides())
			if err != nil {
				return err
			}
			// Rules are validated before any diff is read.
			rs, ok := loadRules(cfg)
			if !ok {
				return nil
			}
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}
			d, err := source(ctx, args, cfg)
			if err != nil {
				fail(ExitRuntimeError, "%v", err)
				return nil
			}
			runReview(ctx, d, rs, cfg)
			return nil
		},
	}
}

var (
	flagMergeBase   bool
	flagSnippetPath string
	flagSnippetBase string
)

var reviewUnstagedCmd = diffCommand("unstaged", "Review unstaged changes (working tree vs index)", cobra.NoArgs,
	func(ctx context.Context, _ []string, cfg config.Config) (gitctx.DiffResult, error) {
		return gitctx.Unstaged(ctx, buildDiffOpts(cfg))
	})

var reviewStagedCmd = diffCommand("staged", "Review staged changes (index vs HEAD)", cobra.NoArgs,
	func(ctx context.Context, _ []string, cfg config.Config) (gitctx.DiffResult, error) {
		return gitctx.Staged(ctx, buildDiffOpts(cfg))
	})

var reviewCommitCmd = diffCommand("commit <sha>", "Review a specific commit", cobra.ExactArgs(1),
	func(ctx context.Context, args []string, cfg config.Config) (gitctx.DiffResult, error) {
		return gitctx.Commit(ctx, args[0], buildDiffOpts(cfg))
	})

var reviewRangeCmd = diffCommand("range <revRange>", "Review a revision range (e.g., origin/main..HEAD)", cobra.ExactArgs(1),
	func(ctx context.Context, args []string, cfg config.Config) (gitctx.DiffResult, error) {
		return gitctx.Range(ctx, args[0], flagMergeBase, buildDiffOpts(cfg))
	})

var reviewCodebaseCmd = diffCommand("codebase", "Review all tracked files as if newly added", cobra.NoArgs,
	func(ctx context.Context, _ []string, cfg config.Config) (gitctx.DiffResult, error) {
		return gitctx.Codebase(ctx, buildDiffOpts(cfg))
	})

var reviewDiffCmd = diffCommand("diff <file|->", "Review a unified diff file, or stdin with -", cobra.ExactArgs(1),
	func(ctx context.Context, args []string, cfg config.Config) (gitctx.DiffResult, error) {
		return gitctx.FromFile(args[0], buildDiffOpts(cfg))
	})

var reviewSnippetCmd = diffCommand("snippet", "Review code from stdin", cobra.NoArgs,
	func(ctx context.Context, _ []string, cfg config.Config) (gitctx.DiffResult, error) {
		content, err := io.ReadAll(os.Stdin)
		if err != nil {
			return gitctx.DiffResult{}, fmt.Errorf("reading stdin: %w", err)
		}
		var base string
		if flagSnippetBase != "" {
			data, err := os.ReadFile(flagSnippetBase)
			if err != nil {
				return gitctx.DiffResult{}, fmt.Errorf("reading base file: %w", err)
			}
			base = string(data)
		}
		return gitctx.Snippet(ctx, string(content), snippetPath(flagSnippetPath, cfg.Extension), base)
	})

// snippetPath names a pathless snippet after the checked extension so the
// extension filter keeps it.
func snippetPath(path, ext string) string {
	if path != "" {
		return path
	}
	return "snippet" + ext
}

func init() {
	subcommands := []*cobra.Command{
		reviewUnstagedCmd,
		reviewStagedCmd,
		reviewCommitCmd,
		reviewRangeCmd,
		reviewSnippetCmd,
		reviewCodebaseCmd,
		reviewDiffCmd,
	}
	for _, cmd := range subcommands {
		reviewCmd.AddCommand(cmd)
		addReviewFlags(cmd)
	}

	reviewRangeCmd.Flags().BoolVar(&flagMergeBase, "merge-base", true, "Use merge base for branch comparisons")

	reviewSnippetCmd.Flags().StringVar(&flagSnippetPath, "path", "", "File path the snippet belongs to (its extension is checked)")
	reviewSnippetCmd.Flags().StringVar(&flagSnippetBase, "base", "", "Base file to diff against")
}
