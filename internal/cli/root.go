package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/dshills/stylegate/internal/config"
	"github.com/dshills/stylegate/internal/logging"
	"github.com/dshills/stylegate/internal/review"
)

// Exit codes
const (
	ExitSuccess      = 0
	ExitViolations   = 1
	ExitUsageError   = 2
	ExitAuthError    = 3
	ExitRuntimeError = 4
)

var rootCmd = &cobra.Command{
	Use:   "stylegate",
	Short: "Regex style rules for pull requests",
	Long: "stylegate matches the added lines of a diff against regex style rules, " +
		"reports every violation, and gates on the verdict locally, in CI, or as a GitHub webhook service.",
	SilenceUsage: true,
}

var (
	flagLogLevel  string
	flagLogFormat string
)

// Run executes the root command and returns an exit code.
func Run() int {
	rootCmd.AddCommand(reviewCmd)
	rootCmd.AddCommand(githubCmd)
	rootCmd.AddCommand(actionCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(rulesCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(configCmd)
	rootCmd.AddCommand(cacheCmd)
	rootCmd.AddCommand(hookCmd)
	rootCmd.AddCommand(versionCmd)

	if err := rootCmd.Execute(); err != nil {
		// Cobra already prints the error
		return ExitUsageError
	}

	return exitCode
}

// exitCode is set by command handlers to control the process exit code.
var exitCode = ExitSuccess

// fail prints err and sets the exit code.
func fail(code int, format string, args ...any) {
	fmt.Fprintf(os.Stderr, "Error: "+format+"\n", args...)
	exitCode = code
}

// loadConfig loads configuration with the given flag overrides applied,
// plus the persistent logging flags.
func loadConfig(overrides map[string]string) (config.Config, error) {
	if overrides == nil {
		overrides = map[string]string{}
	}
	overrides["log.level"] = flagLogLevel
	overrides["log.format"] = flagLogFormat
	return config.Load(overrides)
}

func newLogger(cfg config.Config) *slog.Logger {
	return logging.New(os.Stderr, cfg.Log.Format, cfg.Log.Level)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print stylegate version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(os.Stdout, "stylegate version %s\n", review.Version)
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&flagLogFormat, "log-format", "", "Log format (text, json)")
}
