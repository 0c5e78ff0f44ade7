package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"variation-pipeline/internal/api"
	"variation-pipeline/internal/config"
	"variation-pipeline/internal/logging"

	"github.com/spf13/cobra"
)

// @title Variation Pipeline API
// @version 1.0
// @description Start and inspect protein variation fetch, flatten and partition runs.
// @host localhost:8080
// @BasePath /api/v1
func main() {
	var configPath, addr string

	rootCmd := &cobra.Command{
		Use:           "pipeline-api",
		Short:         "HTTP API for protein variation pipeline runs",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Server.Addr = addr
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			logger, err := logging.New(cfg.Logging.Level, cfg.Logging.Format)
			if err != nil {
				return err
			}
			defer logger.Sync()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return api.Serve(ctx, cfg, logger)
		},
	}
	rootCmd.Flags().StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides server.addr)")

	if err := rootCmd.ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
