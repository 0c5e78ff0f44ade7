package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"variation-pipeline/internal/api"
	"variation-pipeline/internal/store"

	"github.com/spf13/cobra"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List recorded runs",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cfg.Store.Path == "" {
			return store.ErrNotOpen
		}
		if err := store.InitDB(cfg.Store.Path); err != nil {
			return err
		}
		defer store.Close()

		runs, err := store.ListRuns()
		if err != nil {
			return err
		}

		tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "RUN ID\tSTATUS\tSTARTED\tFETCHED\tFLATTENED\tPARTITIONED\tFAILED")
		for _, r := range runs {
			failed := r.Fetch.Failed + r.Flatten.Failed + r.Partition.Failed
			fmt.Fprintf(tw, "%s\t%s\t%s\t%d/%d\t%d/%d\t%d/%d\t%d\n",
				r.RunID, r.Status, r.StartTime.Local().Format(time.DateTime),
				r.Fetch.Succeeded, r.Fetch.Processed,
				r.Flatten.Succeeded, r.Flatten.Processed,
				r.Partition.Succeeded, r.Partition.Processed,
				failed,
			)
		}
		return tw.Flush()
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if addr, _ := cmd.Flags().GetString("addr"); addr != "" {
			cfg.Server.Addr = addr
		}
		return api.Serve(cmd.Context(), cfg, logger)
	},
}

func init() {
	serveCmd.Flags().String("addr", "", "listen address (overrides server.addr)")
}
