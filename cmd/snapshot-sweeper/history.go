package main

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/tabwriter"

	"github.com/goccy/go-json"
	homedir "github.com/mitchellh/go-homedir"
	"github.com/spf13/cobra"

	"snapshot-sweeper/internal/config"
	"snapshot-sweeper/internal/database"
)

const defaultHistoryPath = "/var/lib/snapshot-sweeper/history.db"

type historyOptions struct {
	dbPath     string
	recent     int
	runID      string
	action     string
	stats      bool
	days       int
	jsonOutput bool
	vacuum     bool
}

func (a *app) newHistoryCmd(root *rootOptions) *cobra.Command {
	opts := &historyOptions{}
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Query the run history database.",
		Example: `  snapshot-sweeper history --recent 10         # 10 most recent runs
  snapshot-sweeper history --run <id>          # every snapshot touched by a run
  snapshot-sweeper history --action ERROR      # most recent failed destroys
  snapshot-sweeper history --stats --days 7 --json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := historyPath(opts.dbPath, root.configPath)
			if err != nil {
				return err
			}
			return a.runHistory(path, opts)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", "", "History database, default database_path from --config or "+defaultHistoryPath)
	f.IntVar(&opts.recent, "recent", 10, "Show the N most recent runs")
	f.StringVar(&opts.runID, "run", "", "Show the snapshot events of one run")
	f.StringVar(&opts.action, "action", "", "Show recent events with this action (DELETE, DRY_RUN, EXCLUDED, SKIP, ERROR)")
	f.BoolVar(&opts.stats, "stats", false, "Show statistics")
	f.IntVar(&opts.days, "days", 30, "Number of days for statistics")
	f.BoolVar(&opts.jsonOutput, "json", false, "Output in JSON format")
	f.BoolVar(&opts.vacuum, "vacuum", false, "Compact the database and exit")
	return cmd
}

func historyPath(flagPath, configPath string) (string, error) {
	path := flagPath
	if path == "" && configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return "", err
		}
		path = cfg.DatabasePath
	}
	if path == "" {
		path = defaultHistoryPath
	}
	expanded, err := homedir.Expand(path)
	if err != nil {
		return "", &config.Error{Field: "db", Err: err}
	}
	return expanded, nil
}

func (a *app) runHistory(path string, opts *historyOptions) error {
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("database file not found: %s", path)
		}
		return err
	}

	db, err := database.NewHistoryDB(path)
	if err != nil {
		return fmt.Errorf("open history database: %w", err)
	}
	defer db.Close()

	action := strings.ToUpper(strings.TrimSpace(opts.action))
	switch {
	case opts.vacuum:
		if err := db.Vacuum(); err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		fmt.Fprintf(a.stdout, "Vacuumed %s\n", path)

	case opts.stats:
		stats, err := db.GetStats(opts.days)
		if err != nil {
			return fmt.Errorf("get statistics: %w", err)
		}
		if opts.jsonOutput {
			return writeJSON(a.stdout, stats)
		}
		printStats(a.stdout, stats, opts.days)

	case opts.runID != "":
		run, err := db.GetRun(opts.runID)
		if err != nil {
			return fmt.Errorf("get run: %w", err)
		}
		if run == nil {
			return fmt.Errorf("run %s not found", opts.runID)
		}
		events, err := db.EventsForRun(opts.runID)
		if err != nil {
			return fmt.Errorf("get run events: %w", err)
		}
		if opts.jsonOutput {
			return writeJSON(a.stdout, struct {
				Run    *database.RunRecord     `json:"run"`
				Events []database.EventRecord `json:"events"`
			}{run, events})
		}
		printRuns(a.stdout, []database.RunRecord{*run})
		fmt.Fprintln(a.stdout)
		printEvents(a.stdout, events)

	case action != "":
		events, err := db.EventsByAction(action, opts.recent)
		if err != nil {
			return fmt.Errorf("query by action: %w", err)
		}
		if opts.jsonOutput {
			return writeJSON(a.stdout, events)
		}
		fmt.Fprintf(a.stdout, "Events with action: %s\n\n", action)
		printEvents(a.stdout, events)

	default:
		runs, err := db.RecentRuns(opts.recent)
		if err != nil {
			return fmt.Errorf("get recent runs: %w", err)
		}
		if opts.jsonOutput {
			return writeJSON(a.stdout, runs)
		}
		printRuns(a.stdout, runs)
	}
	return nil
}

func writeJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}

func printStats(w io.Writer, stats *database.Stats, days int) {
	fmt.Fprintf(w, "Run Statistics (Last %d days)\n", days)
	fmt.Fprintf(w, "Period: %s to %s\n\n", stats.StartDate.Format("2006-01-02"), stats.EndDate.Format("2006-01-02"))
	fmt.Fprintf(w, "Total Runs:         %d\n", stats.Runs)
	fmt.Fprintf(w, "Snapshots Deleted:  %d\n\n", stats.SnapshotsDeleted)

	printCounts(w, "By State:", stats.RunsByState)
	printCounts(w, "By Action:", stats.EventsByAction)
}

func printCounts(w io.Writer, title string, counts map[string]int) {
	if len(counts) == 0 {
		return
	}
	keys := make([]string, 0, len(counts))
	for k := range counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	fmt.Fprintln(w, title)
	for _, k := range keys {
		fmt.Fprintf(w, "  %-15s %d\n", k, counts[k])
	}
	fmt.Fprintln(w)
}

func printRuns(w io.Writer, runs []database.RunRecord) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tStarted\tPool\tState\tQueued\tBatches\tDry Run")
	_, _ = fmt.Fprintln(tw, "--\t-------\t----\t-----\t------\t-------\t-------")
	for _, r := range runs {
		_, _ = fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d/%d\t%t\n",
			r.ID, r.StartedAt.Format("2006-01-02 15:04:05"), r.Pool, r.State,
			r.Queued, r.BatchesCompleted, r.BatchesTotal, r.DryRun)
	}
	_ = tw.Flush()
}

func printEvents(w io.Writer, events []database.EventRecord) {
	if len(events) == 0 {
		fmt.Fprintln(w, "No records found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(tw, "ID\tTimestamp\tAction\tBatch\tSnapshot\tReason")
	_, _ = fmt.Fprintln(tw, "--\t---------\t------\t-----\t--------\t------")
	for _, e := range events {
		reason := e.Reason
		if e.ErrorMessage != "" {
			reason = e.ErrorMessage
		}
		_, _ = fmt.Fprintf(tw, "%d\t%s\t%s\t%d\t%s\t%s\n",
			e.ID, e.Timestamp.Format("2006-01-02 15:04:05"), e.Action, e.Batch, e.Name, reason)
	}
	_ = tw.Flush()
}
