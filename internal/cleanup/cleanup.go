package cleanup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/sirupsen/logrus"

	"snapshot-sweeper/internal/batch"
	"snapshot-sweeper/internal/config"
	"snapshot-sweeper/internal/confirm"
	"snapshot-sweeper/internal/database"
	"snapshot-sweeper/internal/exclusion"
	"snapshot-sweeper/internal/limiter"
	"snapshot-sweeper/internal/metrics"
	"snapshot-sweeper/internal/safety"
	"snapshot-sweeper/internal/selection"
	"snapshot-sweeper/internal/snapshot"
	"snapshot-sweeper/internal/zfs"
)

const confirmPrompt = "Do you want to delete the above snapshots?"

// History stores the outcome of each run. Write failures are logged and
// never abort a run.
type History interface {
	BeginRun(info database.RunInfo) (string, error)
	RecordEvent(runID string, ev database.Event) error
	FinishRun(runID string, s database.RunSummary) error
}

// Options wires the Cleaner to its collaborators. Client, Prompter and Out
// are required; the rest may be nil.
type Options struct {
	Client   zfs.Client
	Prompter confirm.Prompter
	Out      io.Writer // operator-facing report
	Logger   logrus.FieldLogger
	History  History
	Metrics  *metrics.Run
	Pacer    *limiter.Pacer
	Location *time.Location // zone snapshot timestamps are written in
	Now      func() time.Time
}

// Plan is everything Computing produces.
type Plan struct {
	Selection selection.Result
	Batches   [][]snapshot.Record
	Malformed []*snapshot.MalformedIdentifierError
}

// Outcome summarises a run.
type Outcome struct {
	State            State
	Trail            []State // every state entered, in order
	StopReason       StopReason
	Plan             Plan
	BatchesCompleted int
	Deleted          int
	RunID            string
}

// Cleaner runs the selection and batched deletion for one pool
type Cleaner struct {
	client   zfs.Client
	prompter confirm.Prompter
	out      io.Writer
	logger   logrus.FieldLogger
	history  History
	metrics  *metrics.Run
	pacer    *limiter.Pacer
	loc      *time.Location
	now      func() time.Time
}

// NewCleaner creates a new Cleaner instance
func NewCleaner(opts Options) *Cleaner {
	c := &Cleaner{
		client:   opts.Client,
		prompter: opts.Prompter,
		out:      opts.Out,
		logger:   opts.Logger,
		history:  opts.History,
		metrics:  opts.Metrics,
		pacer:    opts.Pacer,
		loc:      opts.Location,
		now:      opts.Now,
	}
	if c.out == nil {
		c.out = io.Discard
	}
	if c.logger == nil {
		l := logrus.New()
		l.SetOutput(io.Discard)
		c.logger = l
	}
	if c.loc == nil {
		c.loc = time.Local
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

// run carries the mutable state of one invocation of Run.
type run struct {
	*Cleaner
	cfg     *config.Config
	history History
	outcome Outcome
	started time.Time
}

func (r *run) enter(s State) {
	r.outcome.State = s
	r.outcome.Trail = append(r.outcome.Trail, s)
	r.logger.WithField("state", s.String()).Debug("state transition")
}

// Run executes the state machine once. cfg must already be resolved.
// A declined confirmation, a dry run and an empty selection all end in Stop
// with a nil error.
func (c *Cleaner) Run(ctx context.Context, cfg *config.Config, excludes *exclusion.Set) (Outcome, error) {
	r := &run{Cleaner: c, cfg: cfg, history: c.history, started: c.now()}
	r.beginHistory()

	err := r.execute(ctx, excludes)
	r.finish(err)
	return r.outcome, err
}

func (r *run) execute(ctx context.Context, excludes *exclusion.Set) error {
	r.enter(Computing)
	plan, err := r.compute(ctx, excludes)
	if err != nil {
		r.enter(Failed)
		return err
	}
	r.outcome.Plan = plan

	r.enter(Reporting)
	r.report(plan)

	if r.cfg.DryRun {
		r.recordAll(database.ActionDryRun, plan.Selection.ToDelete, "")
		r.logger.WithField("queued", len(plan.Selection.ToDelete)).Info("[DRY RUN] No snapshots will be destroyed")
		r.stop(StopDryRun)
		return nil
	}

	if len(plan.Selection.ToDelete) == 0 {
		fmt.Fprintln(r.out, "Your pool is already clean. Take care!")
		r.stop(StopEmpty)
		return nil
	}

	if !r.cfg.NoConfirm {
		r.enter(ConfirmGate)
		ok, err := r.prompter.Confirm(confirmPrompt)
		if err != nil {
			r.logger.WithError(err).Warn("Confirmation aborted")
		}
		if err != nil || !ok {
			fmt.Fprintln(r.out, "Nothing will be deleted. Take care!")
			r.stop(StopDeclined)
			return nil
		}
	}

	r.enter(Deleting)
	if err := r.destroy(ctx, plan); err != nil {
		r.enter(Failed)
		return err
	}
	r.enter(Done)
	return nil
}

func (r *run) stop(reason StopReason) {
	r.outcome.StopReason = reason
	r.enter(Stop)
}

// compute lists, parses, selects, validates and batches.
func (r *run) compute(ctx context.Context, excludes *exclusion.Set) (Plan, error) {
	raws, err := r.client.List(ctx, r.cfg.Pool)
	if err != nil {
		return Plan{}, fmt.Errorf("list snapshots: %w", err)
	}

	records, malformed := snapshot.ParseAll(raws, r.loc)
	for _, m := range malformed {
		r.logger.WithFields(logrus.Fields{"snapshot": m.Raw, "reason": m.Reason}).
			Warn("Snapshot is not in the managed format, skipping")
		r.record(database.Event{Action: database.ActionSkip, Name: m.Raw, Reason: m.Reason})
	}

	chain := selection.NewChain(r.cfg.Cutoff, r.cfg.Label, excludes)
	sel := selection.Select(records, chain)

	validator := safety.NewValidator(r.cfg.Pool, r.cfg.ProtectedDatasets)
	if err := validator.ValidateAll(sel.ToDelete); err != nil {
		return Plan{}, err
	}

	batches, err := batch.Split(sel.ToDelete, r.cfg.BatchSize)
	if err != nil {
		return Plan{}, &config.Error{Field: "batch_size", Err: err}
	}

	r.recordAll(database.ActionExcluded, sel.Excluded, "")
	if r.metrics != nil {
		r.metrics.RecordSelection(len(sel.ToDelete), len(sel.Excluded), len(malformed))
	}

	r.logger.WithFields(logrus.Fields{
		"listed":    len(raws),
		"parsed":    sel.Total(),
		"queued":    len(sel.ToDelete),
		"excluded":  len(sel.Excluded),
		"retained":  sel.Retained,
		"malformed": len(malformed),
		"batches":   len(batches),
	}).Info("Selection computed")

	return Plan{Selection: sel, Batches: batches, Malformed: malformed}, nil
}

// destroy submits batches strictly one after another and stops at the
// first failure.
func (r *run) destroy(ctx context.Context, plan Plan) error {
	total := len(plan.Selection.ToDelete)
	for i, b := range plan.Batches {
		fail := func(err error, failed []snapshot.Record, destroyed []string) error {
			r.recordAll(database.ActionError, failed, err.Error(), i+1)
			return &DeletionFailureError{
				Batch:     i + 1,
				Completed: r.outcome.BatchesCompleted,
				Total:     len(plan.Batches),
				Names:     batch.Names(failed),
				Destroyed: destroyed,
				Err:       err,
			}
		}

		if err := ctx.Err(); err != nil {
			return fail(err, b, nil)
		}
		// the first batch takes the initial token, so every later one waits
		if err := r.pacer.Wait(ctx); err != nil {
			return fail(err, b, nil)
		}

		log := r.logger.WithFields(logrus.Fields{"batch": i + 1, "of": len(plan.Batches), "size": len(b)})
		log.Debug("Destroying batch")

		start := r.now()
		// an issued destroy is never interrupted
		err := r.client.Destroy(context.WithoutCancel(ctx), batch.Names(b))
		gone, left := b, []snapshot.Record(nil)
		if err != nil {
			gone, left = splitDestroyed(b, err)
		}
		if r.metrics != nil {
			r.metrics.ObserveBatch(len(gone), err == nil, r.now().Sub(start))
		}

		if len(gone) > 0 {
			r.outcome.Deleted += len(gone)
			r.recordAll(database.ActionDelete, gone, "", i+1)
			fmt.Fprintf(r.out, "Deleted | %6.2f%% <=> [%d/%d]\n",
				float64(r.outcome.Deleted)/float64(total)*100, r.outcome.Deleted, total)
		}
		if err != nil {
			log.WithError(err).WithField("destroyed", len(gone)).Error("Failed to destroy batch")
			return fail(err, left, batch.Names(gone))
		}
		r.outcome.BatchesCompleted++
	}
	return nil
}

// splitDestroyed separates the records a failed destroy still removed from
// the ones that remain.
func splitDestroyed(b []snapshot.Record, err error) (gone, left []snapshot.Record) {
	var partial *zfs.PartialDestroyError
	if !errors.As(err, &partial) {
		return nil, b
	}
	removed := make(map[string]bool, len(partial.Destroyed))
	for _, name := range partial.Destroyed {
		removed[name] = true
	}
	for _, rec := range b {
		if removed[rec.FullName] {
			gone = append(gone, rec)
		} else {
			left = append(left, rec)
		}
	}
	return gone, left
}

func (r *run) beginHistory() {
	if r.history == nil {
		return
	}
	id, err := r.history.BeginRun(database.RunInfo{
		Pool:      r.cfg.Pool,
		Cutoff:    r.cfg.Cutoff,
		Label:     r.cfg.Label,
		BatchSize: r.cfg.BatchSize,
		DryRun:    r.cfg.DryRun,
	})
	if err != nil {
		r.logger.WithError(err).Error("Failed to record run start, continuing without history")
		r.history = nil
		return
	}
	r.outcome.RunID = id
}

func (r *run) finish(runErr error) {
	now := r.now()
	if r.metrics != nil {
		r.metrics.Finish(r.outcome.State.String(), r.started, now)
	}

	fields := logrus.Fields{
		"state":             r.outcome.State.String(),
		"batches_completed": r.outcome.BatchesCompleted,
		"batches_total":     len(r.outcome.Plan.Batches),
		"deleted":           r.outcome.Deleted,
		"duration":          now.Sub(r.started).Round(time.Millisecond).String(),
	}
	if r.outcome.StopReason != StopNone {
		fields["reason"] = string(r.outcome.StopReason)
	}
	if runErr != nil {
		r.logger.WithFields(fields).WithError(runErr).Error("Run failed")
	} else {
		r.logger.WithFields(fields).Info("Run complete")
	}

	if r.history == nil {
		return
	}
	summary := database.RunSummary{
		State:            r.outcome.State.String(),
		Queued:           len(r.outcome.Plan.Selection.ToDelete),
		Excluded:         len(r.outcome.Plan.Selection.Excluded),
		Malformed:        len(r.outcome.Plan.Malformed),
		BatchesTotal:     len(r.outcome.Plan.Batches),
		BatchesCompleted: r.outcome.BatchesCompleted,
	}
	if runErr != nil {
		summary.ErrorMessage = runErr.Error()
	}
	if err := r.history.FinishRun(r.outcome.RunID, summary); err != nil {
		r.logger.WithError(err).Error("Failed to record run outcome")
	}
}

func (r *run) record(ev database.Event) {
	if r.history == nil {
		return
	}
	if err := r.history.RecordEvent(r.outcome.RunID, ev); err != nil {
		r.logger.WithError(err).WithField("snapshot", ev.Name).Error("Failed to record to database")
	}
}

// recordAll stores one event per record; an optional trailing argument is
// the 1-based batch number.
func (r *run) recordAll(action string, records []snapshot.Record, errMsg string, batchNo ...int) {
	if r.history == nil {
		return
	}
	chain := selection.NewChain(r.cfg.Cutoff, r.cfg.Label, nil)
	now := r.now()
	for _, rec := range records {
		ts := rec.Timestamp
		ev := database.Event{
			Action:       action,
			Name:         rec.FullName,
			Dataset:      rec.Dataset,
			Label:        rec.Label,
			SnapshotTime: &ts,
			ErrorMessage: errMsg,
		}
		reason := chain.Explain(rec, r.cfg.Cutoff, r.cfg.Label, now)
		if action == database.ActionExcluded {
			reason.Verdict = selection.Excluded
		}
		ev.Reason = reason.ToLogString()
		if len(batchNo) > 0 {
			ev.Batch = batchNo[0]
		}
		r.record(ev)
	}
}

// IsDeletionFailure reports whether err came from a failed batch.
func IsDeletionFailure(err error) bool {
	var dfe *DeletionFailureError
	return errors.As(err, &dfe)
}
