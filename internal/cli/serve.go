package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/stylegate/internal/metrics"
	"github.com/dshills/stylegate/internal/server"
)

var flagServeAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the GitHub webhook server",
	Long:  "Serve /webhook/github, /analyze, /runs, /metrics and /health, reviewing pull requests as GitHub delivers events.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		overrides := buildOverrides()
		if flagServeAddr != "" {
			overrides["server.addr"] = flagServeAddr
		}
		cfg, err := loadConfig(overrides)
		if err != nil {
			return err
		}
		rs, ok := loadRules(cfg)
		if !ok {
			return nil
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		logger := newLogger(cfg)
		client, err := newGitHubClient(ctx, cfg, logger)
		if err != nil {
			fail(ExitAuthError, "%v", err)
			return nil
		}
		m := metrics.New()
		runner, cleanup, err := newRunner(ctx, cfg, rs, client, m, logger)
		if err != nil {
			fail(ExitRuntimeError, "%v", err)
			return nil
		}
		defer cleanup()

		secret := os.Getenv(cfg.Server.WebhookSecretEnv)
		if secret == "" {
			logger.Warn("webhook signature checks disabled", "env", cfg.Server.WebhookSecretEnv)
		}
		srv := server.New(runner, server.Options{
			WebhookSecret: []byte(secret),
			Store:         runner.Store,
			Metrics:       m,
			Logger:        logger,
		})
		if err := srv.ListenAndServe(ctx, cfg.Server.Addr); err != nil {
			fail(ExitRuntimeError, "server: %v", err)
			return nil
		}
		fmt.Fprintln(os.Stderr, "Server stopped.")
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&flagServeAddr, "addr", "", "Listen address (default from server.addr)")
	serveCmd.Flags().StringVar(&flagRules, "rules", "", "Rules file path")
	serveCmd.Flags().StringVar(&flagExtension, "extension", "", "Only check files with this extension")
}
