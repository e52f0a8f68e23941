package selection

import (
	"fmt"
	"time"

	"snapshot-sweeper/internal/snapshot"
)

// Reason captures why a snapshot received its verdict, for logs and history.
type Reason struct {
	Verdict     Verdict
	Cutoff      time.Time
	AgeDays     int    // age of the snapshot at evaluation time
	Label       string // configured label filter, empty when unset
	EvaluatedAt time.Time
}

// Explain evaluates r and records the inputs behind the verdict.
func (c Chain) Explain(r snapshot.Record, cutoff time.Time, label string, now time.Time) Reason {
	return Reason{
		Verdict:     c.Classify(r),
		Cutoff:      cutoff,
		AgeDays:     int(now.Sub(r.Timestamp).Hours() / 24),
		Label:       label,
		EvaluatedAt: now,
	}
}

// ToLogString formats the reason for structured logging.
// Example: "delete: age=45d cutoff=2026-09-16-0000-00 label=CHECKPOINT"
func (r Reason) ToLogString() string {
	s := fmt.Sprintf("%s: age=%dd cutoff=%s", r.Verdict, r.AgeDays, r.Cutoff.Format(snapshot.Layout))
	if r.Label != "" {
		s += " label=" + r.Label
	}
	return s
}
