// Command pipeline fetches protein variation data from the EBI Proteins API,
// flattens it into per-accession CSV tables and partitions those by type.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"variation-pipeline/internal/config"
	"variation-pipeline/internal/logging"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	configPath string
	input      string
	jsonDir    string
	csvDir     string
	sortDir    string
	dbPath     string
	workers    int
	timeout    string
	logLevel   string
	logFormat  string
	noClear    bool

	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "pipeline",
	Short: "Protein variation fetch, flatten and partition pipeline",
	Long: `Fetch variation records for UniProt accessions, flatten their nested
features into CSV tables and split each table into one CSV per variant type.

Stages exchange data through folders:
  fetch     -> <json_dir>/<id>_variations.json
  flatten   -> <csv_dir>/<id>_variations.csv
  partition -> <sort_dir>/<id>_variations/<type>.csv`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "config.yaml", "path to the YAML config file")
	pf.StringVarP(&input, "input", "i", "", "spreadsheet of identifiers (.xlsx or .csv)")
	pf.StringVar(&jsonDir, "json-dir", "", "folder for fetched JSON artifacts")
	pf.StringVar(&csvDir, "csv-dir", "", "folder for flattened CSV tables")
	pf.StringVar(&sortDir, "sort-dir", "", "folder for partitioned CSV files")
	pf.StringVar(&dbPath, "db", "", "run history database (empty string keeps the config value)")
	pf.IntVarP(&workers, "workers", "w", 0, "concurrent fetches (1 = sequential)")
	pf.StringVar(&timeout, "timeout", "", "per-request timeout, e.g. 30s")
	pf.StringVar(&logLevel, "log-level", "", "debug, info, warn or error")
	pf.StringVar(&logFormat, "log-format", "", "console or json")
	pf.BoolVar(&noClear, "no-clear", false, "keep existing partition files instead of clearing the subfolder")

	rootCmd.AddCommand(runCmd, fetchCmd, flattenCmd, partitionCmd, runsCmd, serveCmd)
}

// loadConfig applies, in order: defaults, config file, environment, flags
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("input") {
		cfg.Input.Path = input
	}
	if flags.Changed("json-dir") {
		cfg.Paths.JSONDir = jsonDir
	}
	if flags.Changed("csv-dir") {
		cfg.Paths.CSVDir = csvDir
	}
	if flags.Changed("sort-dir") {
		cfg.Paths.SortDir = sortDir
	}
	if flags.Changed("db") {
		cfg.Store.Path = dbPath
	}
	if flags.Changed("workers") {
		cfg.Fetch.Workers = workers
	}
	if flags.Changed("timeout") {
		cfg.Fetch.Timeout = timeout
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = logLevel
	}
	if flags.Changed("log-format") {
		cfg.Logging.Format = logFormat
	}
	if noClear {
		cfg.Partition.ClearBeforeWrite = false
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	if err != nil {
		return nil, err
	}
	return cfg, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
