package cli

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/dshills/stylegate/internal/ruleset"
)

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Inspect the style rules",
}

func rulesFromFlags() (ruleset.RuleSet, string, bool) {
	overrides := map[string]string{}
	if flagRules != "" {
		overrides["rulesFile"] = flagRules
	}
	cfg, err := loadConfig(overrides)
	if err != nil {
		fail(ExitUsageError, "%v", err)
		return ruleset.RuleSet{}, "", false
	}
	rs, ok := loadRules(cfg)
	return rs, cfg.RulesFile, ok
}

var rulesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List the rules in load order",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rs, _, ok := rulesFromFlags()
		if !ok {
			return
		}
		tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "ID\tSEVERITY\tFIX\tMESSAGE")
		for _, r := range rs.Rules {
			sev := "warning"
			if r.Critical {
				sev = "critical"
			}
			fix := "-"
			if r.Fix != "" {
				fix = "yes"
			}
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", r.ID, sev, fix, r.Message)
		}
		tw.Flush()
	},
}

var rulesValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Load the rules and compile every pattern",
	Long: "Load the rules file and compile every pattern. A pattern that does not compile " +
		"is skipped during review, so validate reports it here instead.",
	Args: cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		rs, path, ok := rulesFromFlags()
		if !ok {
			return
		}
		errs := rs.Check()
		for _, err := range errs {
			fmt.Fprintf(os.Stderr, "  %v\n", err)
		}
		if len(errs) > 0 {
			fail(ExitUsageError, "%s: %d of %d rule(s) have invalid patterns", path, len(errs), rs.Len())
			return
		}
		fmt.Fprintf(os.Stdout, "%s: %d rule(s) OK (digest %.12s)\n", path, rs.Len(), rs.Digest())
	},
}

func init() {
	rulesCmd.AddCommand(rulesListCmd)
	rulesCmd.AddCommand(rulesValidateCmd)
	rulesCmd.PersistentFlags().StringVar(&flagRules, "rules", "", "Rules file path")
}
