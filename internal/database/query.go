package database

import (
	"database/sql"
	"errors"
	"time"
)

const runColumns = `id, pool, started_at, finished_at, cutoff, label, batch_size, dry_run,
	state, queued, excluded, malformed, batches_total, batches_completed, error_message`

const eventColumns = `id, run_id, timestamp, action, name, dataset, label,
	snapshot_time, batch, reason, error_message`

// RecentRuns returns the N most recent runs
func (d *HistoryDB) RecentRuns(limit int) ([]RunRecord, error) {
	rows, err := d.db.Query(`SELECT `+runColumns+` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// GetRun returns one run by id
func (d *HistoryDB) GetRun(id string) (*RunRecord, error) {
	row := d.db.QueryRow(`SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// EventsForRun returns the events of a run in insertion order
func (d *HistoryDB) EventsForRun(runID string) ([]EventRecord, error) {
	return d.queryEvents(`SELECT `+eventColumns+` FROM snapshot_events WHERE run_id = ? ORDER BY id`, runID)
}

// EventsByAction returns the N most recent events with the given action
func (d *HistoryDB) EventsByAction(action string, limit int) ([]EventRecord, error) {
	return d.queryEvents(`SELECT `+eventColumns+` FROM snapshot_events WHERE action = ? ORDER BY id DESC LIMIT ?`, action, limit)
}

// Stats aggregates history over a time window
type Stats struct {
	StartDate        time.Time      `json:"start_date"`
	EndDate          time.Time      `json:"end_date"`
	Runs             int            `json:"runs"`
	RunsByState      map[string]int `json:"runs_by_state"`
	SnapshotsDeleted int            `json:"snapshots_deleted"`
	EventsByAction   map[string]int `json:"events_by_action"`
}

// GetStats returns statistics for the last N days
func (d *HistoryDB) GetStats(days int) (*Stats, error) {
	end := d.now()
	start := end.AddDate(0, 0, -days)
	stats := &Stats{
		StartDate:      start,
		EndDate:        end,
		RunsByState:    map[string]int{},
		EventsByAction: map[string]int{},
	}

	rows, err := d.db.Query(`SELECT state, COUNT(*) FROM runs WHERE started_at BETWEEN ? AND ? GROUP BY state`, start, end)
	if err != nil {
		return nil, err
	}
	for rows.Next() {
		var state string
		var n int
		if err := rows.Scan(&state, &n); err != nil {
			rows.Close()
			return nil, err
		}
		stats.RunsByState[state] = n
		stats.Runs += n
	}
	rows.Close()

	rows, err = d.db.Query(`SELECT action, COUNT(*) FROM snapshot_events WHERE timestamp BETWEEN ? AND ? GROUP BY action`, start, end)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		var action string
		var n int
		if err := rows.Scan(&action, &n); err != nil {
			return nil, err
		}
		stats.EventsByAction[action] = n
	}
	stats.SnapshotsDeleted = stats.EventsByAction[ActionDelete]
	return stats, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (RunRecord, error) {
	var r RunRecord
	var finished sql.NullTime
	var label, errMsg sql.NullString
	err := s.Scan(&r.ID, &r.Pool, &r.StartedAt, &finished, &r.Cutoff, &label, &r.BatchSize, &r.DryRun,
		&r.State, &r.Queued, &r.Excluded, &r.Malformed, &r.BatchesTotal, &r.BatchesCompleted, &errMsg)
	if err != nil {
		return r, err
	}
	if finished.Valid {
		t := finished.Time
		r.FinishedAt = &t
	}
	r.Label = label.String
	r.ErrorMessage = errMsg.String
	return r, nil
}

func (d *HistoryDB) queryEvents(query string, args ...any) ([]EventRecord, error) {
	rows, err := d.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []EventRecord
	for rows.Next() {
		var e EventRecord
		var snapTime sql.NullTime
		var dataset, label, reason, errMsg sql.NullString
		if err := rows.Scan(&e.ID, &e.RunID, &e.Timestamp, &e.Action, &e.Name, &dataset, &label,
			&snapTime, &e.Batch, &reason, &errMsg); err != nil {
			return nil, err
		}
		if snapTime.Valid {
			t := snapTime.Time
			e.SnapshotTime = &t
		}
		e.Dataset = dataset.String
		e.Label = label.String
		e.Reason = reason.String
		e.ErrorMessage = errMsg.String
		events = append(events, e)
	}
	return events, rows.Err()
}
