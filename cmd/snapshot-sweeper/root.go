package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"snapshot-sweeper/internal/cleanup"
	"snapshot-sweeper/internal/config"
	"snapshot-sweeper/internal/confirm"
	"snapshot-sweeper/internal/database"
	"snapshot-sweeper/internal/exclusion"
	"snapshot-sweeper/internal/limiter"
	"snapshot-sweeper/internal/logging"
	"snapshot-sweeper/internal/metrics"
)

// rootOptions mirrors the flags; only flags the operator set override the
// config file.
type rootOptions struct {
	configPath string

	pool          string
	date          string
	excludeFile   string
	label         string
	batchSize     int
	dryRun        bool
	noConfirm     bool
	showQueued    bool
	showExcluded  bool
	showConfig    bool
	batchInterval time.Duration

	dbPath          string
	metricsTextfile string
	logLevel        string
	logFile         string
}

func (a *app) newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "snapshot-sweeper",
		Short: "Destroy old ZFS snapshots in batches.",
		Long: `snapshot-sweeper lists the snapshots of a pool, keeps everything newer than the
cutoff date, everything on the exclusion list and everything with another label,
and destroys the rest in fixed-size batches after asking for confirmation.

Snapshot names must look like DATASET@YYYY-mm-dd-HHMM-ss-LABEL.`,
		Example: `  snapshot-sweeper -p tank -n -s            # show what would be removed
  snapshot-sweeper -p tank -d 2024-01-01-0000-00 -l CHECKPOINT
  snapshot-sweeper -p tank -e ~/.zfs-keep -i 50 -f`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		CompletionOptions: cobra.CompletionOptions{
			DisableDefaultCmd: true,
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runSweep(cmd, opts)
		},
	}
	cmd.SetIn(a.stdin)
	cmd.SetOut(a.stdout)
	cmd.SetErr(a.stderr)
	cmd.SetFlagErrorFunc(func(c *cobra.Command, err error) error {
		return &config.Error{Field: "flags", Err: err}
	})

	cmd.PersistentFlags().StringVar(&opts.configPath, "config", "", "YAML config file, flags override its values")

	f := cmd.Flags()
	f.StringVarP(&opts.pool, "pool", "p", "", "Pool (or dataset) to clean, example: tank")
	f.StringVarP(&opts.date, "date", "d", "", "Cutoff date in snapshot format, default now minus 30 days. Example: 2017-09-26-1111-00")
	f.StringVarP(&opts.excludeFile, "exclude-file", "e", "", "File listing snapshots to keep, one full name per line")
	f.StringVarP(&opts.label, "label", "l", "", "Only consider snapshots with this label")
	f.IntVarP(&opts.batchSize, "per-iteration", "i", config.Default().BatchSize, "Snapshots destroyed per zfs call")
	f.BoolVarP(&opts.dryRun, "dry-run", "n", false, "Show what would be destroyed without destroying anything")
	f.BoolVarP(&opts.noConfirm, "no-confirm", "f", false, "Do not ask for confirmation")
	f.BoolVarP(&opts.showQueued, "show-queued", "s", false, "List the snapshots queued for removal")
	f.BoolVarP(&opts.showExcluded, "show-excluded", "x", false, "List the snapshots kept by the exclusion file")
	f.BoolVarP(&opts.showConfig, "show-config", "c", false, "Print the full resolved configuration")
	f.DurationVar(&opts.batchInterval, "batch-interval", 0, "Minimum pause between batches, 0 disables")
	f.StringVar(&opts.dbPath, "db", "", "SQLite run history database, disabled when empty")
	f.StringVar(&opts.metricsTextfile, "metrics-textfile", "", "Write Prometheus metrics to this file after the run")
	f.StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn, error")
	f.StringVar(&opts.logFile, "log-file", "", "Also append logs to this file")

	cmd.AddCommand(a.newHistoryCmd(opts))
	return cmd
}

// loadConfig reads the config file, if any, and applies the flags the
// operator set explicitly.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg := config.Default()
	if opts.configPath != "" {
		loaded, err := config.Load(opts.configPath)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	changed := cmd.Flags().Changed
	if changed("pool") {
		cfg.Pool = opts.pool
	}
	if changed("date") {
		cfg.Date = opts.date
	}
	if changed("exclude-file") {
		cfg.ExcludeFile = opts.excludeFile
	}
	if changed("label") {
		cfg.Label = opts.label
	}
	if changed("per-iteration") {
		cfg.BatchSize = opts.batchSize
	}
	if changed("dry-run") {
		cfg.DryRun = opts.dryRun
	}
	if changed("no-confirm") {
		cfg.NoConfirm = opts.noConfirm
	}
	if changed("show-queued") {
		cfg.ShowQueued = opts.showQueued
	}
	if changed("show-excluded") {
		cfg.ShowExcluded = opts.showExcluded
	}
	if changed("show-config") {
		cfg.ShowConfig = opts.showConfig
	}
	if changed("batch-interval") {
		cfg.BatchInterval = opts.batchInterval
	}
	if changed("db") {
		cfg.DatabasePath = opts.dbPath
	}
	if changed("metrics-textfile") {
		cfg.MetricsTextfile = opts.metricsTextfile
	}
	if changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}
	if changed("log-file") {
		cfg.Logging.File = opts.logFile
	}
	return cfg, nil
}

func (a *app) runSweep(cmd *cobra.Command, opts *rootOptions) error {
	cfg, err := loadConfig(cmd, opts)
	if err != nil {
		return err
	}
	if err := cfg.Resolve(a.now()); err != nil {
		return err
	}

	logger, closer, err := logging.NewWithConfig(cfg.Logging)
	if err != nil {
		return err
	}
	defer closer.Close()
	if cfg.Logging.File == "" {
		logger.SetOutput(a.stderr)
	}

	cfg.Dump(a.stdout, cfg.ShowConfig)

	excludes, err := exclusion.Load(cfg.ExcludeFile)
	if err != nil {
		return &config.Error{Field: "exclude_file", Err: err}
	}
	logger.WithFields(logrus.Fields{"pool": cfg.Pool, "excluded_names": excludes.Len()}).Debug("Exclusion list loaded")

	var history cleanup.History
	if cfg.DatabasePath != "" {
		logger.WithField("path", cfg.DatabasePath).Debug("Opening history database")
		db, err := database.NewHistoryDB(cfg.DatabasePath)
		if err != nil {
			return fmt.Errorf("open history database: %w", err)
		}
		defer func() {
			if err := db.Close(); err != nil {
				logger.WithError(err).Error("Failed to close database")
			}
		}()
		history = db
	}

	m := metrics.New(cfg.Pool)

	pacer := limiter.NewPacer(cfg.BatchInterval)
	if pacer.Enabled() {
		logger.WithField("interval", cfg.BatchInterval.String()).Info("Pausing between batches")
	}

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)
	go func() {
		select {
		case sig := <-sigChan:
			logger.WithField("signal", sig.String()).Warn("Received signal, stopping after the current batch")
			cancel()
		case <-ctx.Done():
		}
	}()

	cleaner := cleanup.NewCleaner(cleanup.Options{
		Client:   a.newClient(),
		Prompter: confirm.Terminal{In: a.stdin, Out: a.stdout},
		Out:      a.stdout,
		Logger:   logger,
		History:  history,
		Metrics:  m,
		Pacer:    pacer,
		Location: a.now().Location(),
		Now:      a.now,
	})

	_, runErr := cleaner.Run(ctx, cfg, excludes)

	if cfg.MetricsTextfile != "" {
		if err := m.WriteTextfile(cfg.MetricsTextfile); err != nil {
			logger.WithError(err).Error("Failed to write metrics")
		}
	}
	return runErr
}
