package cli

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/stylegate/internal/ruleset"
)

const (
	hookMarkerStart = "# >>> stylegate pre-commit hook >>>"
	hookMarkerEnd   = "# <<< stylegate pre-commit hook <<<"
)

var (
	hookFailOn string
	hookFormat string
	hookRules  string
)

var hookCmd = &cobra.Command{
	Use:   "hook",
	Short: "Manage git pre-commit hook",
}

var hookInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Install stylegate as a git pre-commit hook",
	Long: "Add a stylegate section to .git/hooks/pre-commit that checks staged changes. " +
		"Existing hook content is kept; reinstalling replaces only the stylegate section.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if hookFailOn != "violations" && hookFailOn != "critical" {
			fail(ExitUsageError, "--fail-on must be violations or critical for a hook, got %q", hookFailOn)
			return nil
		}
		if hookRules != "" {
			if _, err := ruleset.Load(hookRules); err != nil {
				fail(ExitUsageError, "%v", err)
				return nil
			}
		}
		hookPath, err := getHookPath()
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}

		section := generateHookScript(hookFailOn, hookFormat, hookRules)
		existing, err := os.ReadFile(hookPath)
		if err != nil && !os.IsNotExist(err) {
			fail(ExitRuntimeError, "reading hook file: %v", err)
			return nil
		}
		content := "#!/bin/sh\n" + section
		if len(existing) > 0 {
			content = replaceHookSection(string(existing), section)
		}

		if err := os.MkdirAll(filepath.Dir(hookPath), 0o755); err != nil {
			fail(ExitRuntimeError, "creating hooks directory: %v", err)
			return nil
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(ExitRuntimeError, "writing hook file: %v", err)
			return nil
		}
		fmt.Fprintf(os.Stdout, "Installed stylegate pre-commit hook at %s (blocks on %s)\n", hookPath, hookFailOn)
		return nil
	},
}

var hookUninstallCmd = &cobra.Command{
	Use:   "uninstall",
	Short: "Remove the stylegate pre-commit hook section",
	RunE: func(cmd *cobra.Command, args []string) error {
		hookPath, err := getHookPath()
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		existing, err := os.ReadFile(hookPath)
		if os.IsNotExist(err) {
			fmt.Fprintln(os.Stdout, "No pre-commit hook found.")
			return nil
		}
		if err != nil {
			fail(ExitRuntimeError, "reading hook file: %v", err)
			return nil
		}
		if !strings.Contains(string(existing), hookMarkerStart) {
			fmt.Fprintf(os.Stdout, "No stylegate section in %s\n", hookPath)
			return nil
		}

		content := removeHookSection(string(existing))
		if isBareShebang(content) {
			if err := os.Remove(hookPath); err != nil {
				fail(ExitRuntimeError, "removing hook file: %v", err)
				return nil
			}
			fmt.Fprintf(os.Stdout, "Removed pre-commit hook at %s\n", hookPath)
			return nil
		}
		if err := os.WriteFile(hookPath, []byte(content), 0o755); err != nil {
			fail(ExitRuntimeError, "writing hook file: %v", err)
			return nil
		}
		fmt.Fprintf(os.Stdout, "Removed stylegate section from %s\n", hookPath)
		return nil
	},
}

// isBareShebang reports whether a hook has nothing left but an interpreter line.
func isBareShebang(content string) bool {
	trimmed := strings.TrimSpace(content)
	return trimmed == "" || (strings.HasPrefix(trimmed, "#!") && !strings.Contains(trimmed, "\n"))
}

func getHookPath() (string, error) {
	out, err := exec.Command("git", "rev-parse", "--git-path", "hooks").Output()
	if err != nil {
		return "", fmt.Errorf("not a git repository: %w", err)
	}
	return filepath.Join(strings.TrimSpace(string(out)), "pre-commit"), nil
}

func generateHookScript(failOn, format, rules string) string {
	cmd := fmt.Sprintf("stylegate review staged --fail-on %s --format %s", failOn, format)
	if rules != "" {
		cmd += " --rules " + shellQuote(rules)
	}
	var b strings.Builder
	b.WriteString(hookMarkerStart + "\n")
	b.WriteString(cmd + "\n")
	b.WriteString("STYLEGATE_EXIT=$?\n")
	b.WriteString("if [ $STYLEGATE_EXIT -eq 1 ]; then\n")
	b.WriteString("  echo \"stylegate: style violations at or above --fail-on, commit blocked\"\n")
	b.WriteString("  exit 1\n")
	b.WriteString("elif [ $STYLEGATE_EXIT -ge 2 ]; then\n")
	b.WriteString("  echo \"stylegate: check could not run (exit $STYLEGATE_EXIT), allowing commit\"\n")
	b.WriteString("fi\n")
	b.WriteString(hookMarkerEnd + "\n")
	return b.String()
}

func shellQuote(s string) string {
	return "'" + strings.ReplaceAll(s, "'", `'\''`) + "'"
}

func replaceHookSection(existing, section string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		// No existing stylegate section, append
		if !strings.HasSuffix(existing, "\n") {
			existing += "\n"
		}
		return existing + section
	}

	// Replace existing section
	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	// Trim leading newline from after to avoid double newlines
	after = strings.TrimPrefix(after, "\n")
	return before + section + after
}

func removeHookSection(existing string) string {
	startIdx := strings.Index(existing, hookMarkerStart)
	endIdx := strings.Index(existing, hookMarkerEnd)

	if startIdx == -1 || endIdx == -1 {
		return existing
	}

	before := existing[:startIdx]
	after := existing[endIdx+len(hookMarkerEnd):]
	after = strings.TrimPrefix(after, "\n")

	return before + after
}

func init() {
	hookCmd.AddCommand(hookInstallCmd)
	hookCmd.AddCommand(hookUninstallCmd)
	hookInstallCmd.Flags().StringVar(&hookFailOn, "fail-on", "critical", "Block the commit at or above this outcome (violations, critical)")
	hookInstallCmd.Flags().StringVar(&hookFormat, "format", "text", "Output format (text, json, markdown, sarif)")
	hookInstallCmd.Flags().StringVar(&hookRules, "rules", "", "Rules file path (default from config)")
}
