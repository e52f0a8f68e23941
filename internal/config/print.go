package config

import (
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"snapshot-sweeper/internal/snapshot"
)

// Dump writes the configuration banner. The full form lists every toggle.
func (c *Config) Dump(w io.Writer, full bool) {
	fmt.Fprintln(w, "Configuration")
	fmt.Fprintln(w, "----------------")
	fmt.Fprintf(w, "Pool: %s\n", c.Pool)
	fmt.Fprintf(w, "Cut Off Date: %s\n", c.Cutoff.Format(snapshot.Layout))
	fmt.Fprintf(w, "Exclude File: %s\n", c.ExcludeFile)
	if full {
		fmt.Fprintf(w, "Show Queued: %t\n", c.ShowQueued)
		fmt.Fprintf(w, "Show Excluded: %t\n", c.ShowExcluded)
		fmt.Fprintf(w, "Dry Run: %t\n", c.DryRun)
		fmt.Fprintf(w, "Iteration Amount (Batch): %d\n", c.BatchSize)
		fmt.Fprintf(w, "Ask For Confirmation: %t\n", !c.NoConfirm)
	}
	fmt.Fprintf(w, "Label (Filter): %s\n", c.Label)
	if full {
		fmt.Fprintf(w, "Batch Interval: %s\n", c.BatchInterval)
		fmt.Fprintf(w, "Protected Datasets: %v\n", c.ProtectedDatasets)
		fmt.Fprintf(w, "Database: %s\n", c.DatabasePath)
		fmt.Fprintf(w, "Show Config: %t\n", c.ShowConfig)
	}
	fmt.Fprintln(w)
}

// YAML renders the configuration in the same shape Load accepts.
func (c *Config) YAML() ([]byte, error) {
	out := *c
	if !c.Cutoff.IsZero() {
		out.Date = c.Cutoff.Format(snapshot.Layout)
	}
	return yaml.Marshal(&out)
}
