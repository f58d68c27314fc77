package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/dshills/stylegate/internal/bot"
	"github.com/dshills/stylegate/internal/config"
	"github.com/dshills/stylegate/internal/github"
	"github.com/dshills/stylegate/internal/metrics"
	"github.com/dshills/stylegate/internal/output"
	"github.com/dshills/stylegate/internal/ruleset"
	"github.com/dshills/stylegate/internal/storage"
)

var (
	flagGHOwner       string
	flagGHRepo        string
	flagGHDryRun      bool
	flagGHMaxComments int
	flagGHSince       string
)

// newGitHubClient creates a client from the token in the configured
// environment variable.
func newGitHubClient(ctx context.Context, cfg config.Config, logger *slog.Logger) (*github.Client, error) {
	client, err := github.NewClient(ctx, os.Getenv(cfg.GitHub.TokenEnv), cfg.GitHub.APIURL)
	if err != nil {
		if github.IsAuthError(err) {
			return nil, fmt.Errorf("%w (set %s)", err, cfg.GitHub.TokenEnv)
		}
		return nil, err
	}
	return client.WithLogger(logger), nil
}

// newRunner assembles the pull request pipeline. The returned cleanup
// closes the store.
func newRunner(ctx context.Context, cfg config.Config, rs ruleset.RuleSet, client *github.Client, m *metrics.Metrics, logger *slog.Logger) (*bot.Runner, func(), error) {
	store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
	if err != nil {
		return nil, nil, err
	}
	c, err := openCache(cfg, cfg.Cache.Enabled)
	if err != nil {
		store.Close()
		return nil, nil, err
	}
	r := &bot.Runner{
		Source:   client,
		Reviews:  client,
		Statuses: client,
		Rules:    rs,
		Config:   cfg,
		Store:    store,
		Cache:    c,
		Metrics:  m,
		Logger:   logger,
	}
	return r, func() { store.Close() }, nil
}

// reviewPR runs the pipeline for one pull request and reports the result
// locally. It is shared by the github and action commands.
func reviewPR(ctx context.Context, cfg config.Config, ref bot.PRRef) {
	rs, ok := loadRules(cfg)
	if !ok {
		return
	}
	logger := newLogger(cfg)
	client, err := newGitHubClient(ctx, cfg, logger)
	if err != nil {
		fail(ExitAuthError, "%v", err)
		return
	}
	runner, cleanup, err := newRunner(ctx, cfg, rs, client, nil, logger)
	if err != nil {
		fail(ExitRuntimeError, "%v", err)
		return
	}
	defer cleanup()

	fmt.Fprintf(os.Stderr, "Reviewing %s...\n", ref)
	report, err := runner.Run(ctx, ref)
	if err != nil {
		if github.IsAuthError(err) {
			fail(ExitAuthError, "%v", err)
			return
		}
		fail(ExitRuntimeError, "%v", err)
		return
	}

	if err := output.WriteReport(report, cfg.Format, flagOut); err != nil {
		fail(ExitRuntimeError, "writing output: %v", err)
		return
	}
	gate(report, cfg)
}

func githubOverrides() map[string]string {
	m := buildOverrides()
	if flagGHDryRun {
		m["github.dryRun"] = "true"
	}
	if flagGHMaxComments > 0 {
		m["maxComments"] = strconv.Itoa(flagGHMaxComments)
	}
	return m
}

var githubCmd = &cobra.Command{
	Use:   "github <pr-number>",
	Short: "Review a GitHub pull request",
	Long:  "Fetch a PR diff from GitHub, check it against the rules, post inline comments and set the commit status.",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		prNumber, err := strconv.Atoi(args[0])
		if err != nil || prNumber <= 0 {
			fail(ExitUsageError, "invalid PR number %q", args[0])
			return nil
		}

		cfg, err := loadReviewConfig(cmd, githubOverrides())
		if err != nil {
			return err
		}
		ctx := context.Background()

		owner, repo := flagGHOwner, flagGHRepo
		if owner == "" || repo == "" {
			detected, detectedRepo, err := github.DetectRepo(ctx)
			if err != nil {
				fail(ExitRuntimeError, "%v\nUse --owner and --repo flags to specify manually.", err)
				return nil
			}
			if owner == "" {
				owner = detected
			}
			if repo == "" {
				repo = detectedRepo
			}
		}

		reviewPR(ctx, cfg, bot.PRRef{Owner: owner, Repo: repo, Number: prNumber, Since: flagGHSince})
		return nil
	},
}

func init() {
	addReviewFlags(githubCmd)
	githubCmd.Flags().StringVar(&flagGHOwner, "owner", "", "GitHub repository owner (auto-detected if omitted)")
	githubCmd.Flags().StringVar(&flagGHRepo, "repo", "", "GitHub repository name (auto-detected if omitted)")
	githubCmd.Flags().BoolVar(&flagGHDryRun, "dry-run", false, "Run review but don't post to GitHub")
	githubCmd.Flags().IntVar(&flagGHMaxComments, "max-comments", 0, "Maximum inline comments per review")
	githubCmd.Flags().StringVar(&flagGHSince, "since", "", "Only review changes pushed after this commit")
}
