package cleanup

import (
	"fmt"
	"io"

	"snapshot-sweeper/internal/snapshot"
)

const rule = "----------------"

// report prints the operator-facing summary of a plan. Lists are only
// printed on request; counts and unrecognised names always are.
func (r *run) report(plan Plan) {
	sel := plan.Selection
	if r.cfg.ShowQueued {
		writeList(r.out, "These snapshots are QUEUED for REMOVAL:", sel.ToDelete)
	}
	if r.cfg.ShowExcluded {
		writeList(r.out, "These snapshots are EXCLUDED from REMOVAL:", sel.Excluded)
	}

	if len(plan.Malformed) > 0 {
		fmt.Fprintln(r.out, "These snapshots were SKIPPED, unrecognised name format:")
		fmt.Fprintln(r.out, rule)
		for _, m := range plan.Malformed {
			fmt.Fprintln(r.out, m.Raw)
		}
		fmt.Fprintln(r.out)
	}

	fmt.Fprintf(r.out, "Amount of Snapshots to Remove: %d\n", len(sel.ToDelete))
	fmt.Fprintf(r.out, "Amount of Snapshots to Exclude: %d\n", len(sel.Excluded))
	if len(plan.Malformed) > 0 {
		fmt.Fprintf(r.out, "Amount of Snapshots Skipped: %d\n", len(plan.Malformed))
	}
	if len(plan.Batches) > 0 {
		fmt.Fprintf(r.out, "Batches: %d (up to %d per batch)\n", len(plan.Batches), r.cfg.BatchSize)
	}
	if r.cfg.DryRun {
		fmt.Fprintln(r.out, "Dry run, nothing will be deleted.")
	}
}

func writeList(w io.Writer, title string, records []snapshot.Record) {
	fmt.Fprintln(w, title)
	fmt.Fprintln(w, rule)
	for _, rec := range records {
		fmt.Fprintln(w, rec.FullName)
	}
	fmt.Fprintln(w)
}
