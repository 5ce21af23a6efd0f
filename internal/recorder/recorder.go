// Package recorder persists executed plan snapshots to sqlite for offline
// analysis and replay.
package recorder

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/bipedlab/locomotion/internal/gait"
)

// Store wraps the snapshot database.
type Store struct {
	*sql.DB
}

// Open opens (or creates) the sqlite database at path. Callers run
// MigrateUp before first use.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("recorder: open %s: %w", path, err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("recorder: ping %s: %w", path, err)
	}
	return &Store{db}, nil
}

// ExecutionRow is one recorded plan execution.
type ExecutionRow struct {
	ExecutionID  string
	Channel      string
	PlanDuration float64
	StartedAt    time.Time
}

// SnapshotRow is one recorded control tick.
type SnapshotRow struct {
	ExecutionID string
	Sequence    uint64
	SnapshotKey string
	Time        float64
	PlanTime    float64
	Phase       int
	Completed   bool
	Payload     []byte
}

// Input decodes the stored QP input snapshot.
func (r *SnapshotRow) Input() (*gait.QPInput, error) {
	var in gait.QPInput
	if err := json.Unmarshal(r.Payload, &in); err != nil {
		return nil, fmt.Errorf("recorder: decode snapshot %s/%d: %w", r.ExecutionID, r.Sequence, err)
	}
	return &in, nil
}

// BeginExecution registers a plan execution before its first snapshot.
func (s *Store) BeginExecution(executionID, channel string, planDuration float64, startedAt time.Time) error {
	_, err := s.Exec(
		"INSERT INTO executions (execution_id, channel, plan_duration, started_at) VALUES (?, ?, ?, ?)",
		executionID, channel, planDuration, startedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("recorder: begin execution %s: %w", executionID, err)
	}
	return nil
}

// RecordSnapshot stores one tick's QP input. The full snapshot is kept as
// JSON alongside the indexed columns.
func (s *Store) RecordSnapshot(in *gait.QPInput) error {
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("recorder: encode snapshot: %w", err)
	}
	_, err = s.Exec(
		`INSERT INTO snapshots (execution_id, sequence, snapshot_key, t, plan_time, phase, completed, payload)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		in.ExecutionID, in.Sequence, in.SnapshotKey, in.Time, in.PlanTime, in.Phase, in.Completed, string(payload),
	)
	if err != nil {
		return fmt.Errorf("recorder: record snapshot %s/%d: %w", in.ExecutionID, in.Sequence, err)
	}
	return nil
}

// Executions lists recorded executions, newest first.
func (s *Store) Executions() ([]ExecutionRow, error) {
	rows, err := s.Query("SELECT execution_id, channel, plan_duration, started_at FROM executions ORDER BY started_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ExecutionRow
	for rows.Next() {
		var r ExecutionRow
		if err := rows.Scan(&r.ExecutionID, &r.Channel, &r.PlanDuration, &r.StartedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Snapshots returns an execution's snapshots in tick order, up to limit
// (limit <= 0 means all).
func (s *Store) Snapshots(executionID string, limit int) ([]SnapshotRow, error) {
	if limit <= 0 {
		limit = -1 // sqlite: no limit
	}
	rows, err := s.Query(
		`SELECT execution_id, sequence, snapshot_key, t, plan_time, phase, completed, payload
		 FROM snapshots WHERE execution_id = ? ORDER BY sequence ASC LIMIT ?`,
		executionID, limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SnapshotRow
	for rows.Next() {
		var r SnapshotRow
		var payload string
		if err := rows.Scan(&r.ExecutionID, &r.Sequence, &r.SnapshotKey, &r.Time, &r.PlanTime, &r.Phase, &r.Completed, &payload); err != nil {
			return nil, err
		}
		r.Payload = []byte(payload)
		out = append(out, r)
	}
	return out, rows.Err()
}
