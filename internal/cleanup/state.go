package cleanup

import "fmt"

// State is a step of the deletion state machine:
//
//	Computing -> Reporting -> (dry run? Stop : ConfirmGate) -> (confirmed? Deleting : Stop)
//	Deleting -> Done | Failed
type State int

const (
	Computing State = iota
	Reporting
	ConfirmGate
	Deleting
	Stop
	Done
	Failed
)

func (s State) String() string {
	switch s {
	case Computing:
		return "computing"
	case Reporting:
		return "reporting"
	case ConfirmGate:
		return "confirm"
	case Deleting:
		return "deleting"
	case Stop:
		return "stop"
	case Done:
		return "done"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Terminal reports whether no further transition can happen.
func (s State) Terminal() bool {
	return s == Stop || s == Done || s == Failed
}

// StopReason says why a run ended in Stop.
type StopReason string

const (
	StopNone     StopReason = ""
	StopDryRun   StopReason = "dry_run"
	StopEmpty    StopReason = "nothing_to_delete"
	StopDeclined StopReason = "declined"
)

// DeletionFailureError reports a failed batch. Batches before it were
// destroyed and are not rolled back; batches after it were not attempted.
type DeletionFailureError struct {
	Batch     int      // 1-based index of the failed batch
	Completed int      // batches destroyed before the failure
	Total     int
	Names     []string // snapshots of the failed batch that still exist
	Destroyed []string // snapshots of the failed batch removed before it failed
	Err       error
}

func (e *DeletionFailureError) Error() string {
	msg := fmt.Sprintf("batch %d/%d failed after %d completed batches", e.Batch, e.Total, e.Completed)
	if len(e.Destroyed) > 0 {
		msg += fmt.Sprintf(" (%d of its snapshots were destroyed)", len(e.Destroyed))
	}
	return msg + ": " + e.Err.Error()
}

func (e *DeletionFailureError) Unwrap() error {
	return e.Err
}
