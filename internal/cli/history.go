package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/dshills/stylegate/internal/storage"
)

var (
	flagHistoryLimit int
	flagHistoryJSON  bool
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "List recorded review runs",
	Long:  "List review runs recorded in the configured store (storage.driver sqlite or postgres).",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(nil)
		if err != nil {
			return err
		}
		if cfg.Storage.Driver == storage.DriverMemory {
			fmt.Fprintln(os.Stderr, "No persistent store configured; set storage.driver to sqlite or postgres.")
			return nil
		}
		ctx := context.Background()
		store, err := storage.Open(ctx, cfg.Storage.Driver, cfg.Storage.DSN)
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		defer store.Close()

		runs, err := store.ListRuns(ctx, flagHistoryLimit)
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		for i := range runs {
			runs[i].Report = nil
		}

		if flagHistoryJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(runs)
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "WHEN\tSOURCE\tTARGET\tOUTCOME\tVIOLATIONS\tRUN")
		for _, r := range runs {
			target := r.Repo
			if r.PR > 0 {
				target = fmt.Sprintf("%s#%d", r.Repo, r.PR)
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%.12s\n",
				r.CreatedAt.Local().Format(time.DateTime), r.Source, target, r.Outcome, r.Violations, r.ID)
		}
		return tw.Flush()
	},
}

func init() {
	historyCmd.Flags().IntVar(&flagHistoryLimit, "limit", 20, "Maximum runs to show (0 for all)")
	historyCmd.Flags().BoolVar(&flagHistoryJSON, "json", false, "Print runs as JSON")
}
