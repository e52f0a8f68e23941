package exitcodes

// Exit codes for snapshot-sweeper
// These codes form the operational contract with cron jobs and operators
const (
	Success         = 0 // Done, dry run, nothing to do, or operator declined
	InvalidConfig   = 2 // Flags or configuration file invalid
	SafetyViolation = 3 // Safety validator refused a destroy target
	DeletionFailed  = 4 // A batch failed; later batches were not attempted
	RuntimeError    = 5 // Listing, history database or other runtime failure
)
