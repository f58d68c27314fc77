package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/stylegate/internal/bot"
	"github.com/dshills/stylegate/internal/github"
)

var actionCmd = &cobra.Command{
	Use:   "action",
	Short: "Review the pull request of the current GitHub Actions run",
	Long: "Read the pull_request event from GITHUB_EVENT_PATH, review the pull request, " +
		"and emit workflow annotations. Events other than opened, synchronize and reopened are ignored.",
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := githubOverrides()
		if _, ok := overrides["format"]; !ok {
			overrides["format"] = "github"
		}
		cfg, err := loadReviewConfig(cmd, overrides)
		if err != nil {
			return err
		}

		eventPath := os.Getenv("GITHUB_EVENT_PATH")
		if eventPath == "" {
			fail(ExitUsageError, "GITHUB_EVENT_PATH is not set; run inside GitHub Actions or use the github command")
			return nil
		}
		ev, err := github.ParseEventFile(eventPath, os.Getenv("GITHUB_REPOSITORY"))
		if err != nil {
			fail(ExitUsageError, "%v", err)
			return nil
		}
		if !ev.Supported() {
			fmt.Fprintf(os.Stderr, "Ignoring pull_request action %q\n", ev.Action)
			return nil
		}

		reviewPR(context.Background(), cfg, bot.PRRef{
			Owner:   ev.Owner,
			Repo:    ev.Repo,
			Number:  ev.Number,
			HeadSHA: ev.HeadSHA,
		})
		return nil
	},
}

func init() {
	addReviewFlags(actionCmd)
	actionCmd.Flags().BoolVar(&flagGHDryRun, "dry-run", false, "Run review but don't post to GitHub")
	actionCmd.Flags().IntVar(&flagGHMaxComments, "max-comments", 0, "Maximum inline comments per review")
}
