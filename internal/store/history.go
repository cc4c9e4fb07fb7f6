package store

import (
	"database/sql"
	"errors"
	"fmt"
)

// --- Run history ---

// RecordRun stores run and its findings in one transaction and returns the
// assigned run id.
func (s *Store) RecordRun(run *Run, findings []RunFinding) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("record run: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.Exec(
		`INSERT INTO runs (started_at, root, lock_generated_at, file_count, total, passed, warned, failed, blocking)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.StartedAt, run.Root, run.LockGeneratedAt, run.FileCount,
		run.Total, run.Passed, run.Warned, run.Failed, run.Blocking,
	)
	if err != nil {
		return 0, fmt.Errorf("insert run: %w", err)
	}
	runID, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("last insert id: %w", err)
	}

	if len(findings) > 0 {
		stmt, err := tx.Prepare(
			`INSERT INTO run_findings (run_id, file, line, compat_key, status, outcome, severity, feature_id, message, allowlisted)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		)
		if err != nil {
			return 0, fmt.Errorf("prepare finding insert: %w", err)
		}
		defer stmt.Close()
		for _, f := range findings {
			if _, err := stmt.Exec(runID, f.File, f.Line, f.Key, f.Status, f.Outcome,
				f.Severity, f.FeatureID, f.Message, f.Allowlisted); err != nil {
				return 0, fmt.Errorf("insert finding %q: %w", f.Key, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("record run: %w", err)
	}
	run.ID = runID
	return runID, nil
}

const runColumns = `id, started_at, root, lock_generated_at, file_count, total, passed, warned, failed, blocking`

func scanRun(scanner interface{ Scan(...any) error }) (*Run, error) {
	r := &Run{}
	var lockAt sql.NullTime
	if err := scanner.Scan(&r.ID, &r.StartedAt, &r.Root, &lockAt, &r.FileCount,
		&r.Total, &r.Passed, &r.Warned, &r.Failed, &r.Blocking); err != nil {
		return nil, err
	}
	if lockAt.Valid {
		t := lockAt.Time
		r.LockGeneratedAt = &t
	}
	return r, nil
}

// Runs returns up to limit runs, newest first. limit <= 0 returns all.
func (s *Store) Runs(limit int) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs ORDER BY started_at DESC, id DESC"
	var args []any
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("runs: %w", err)
	}
	defer rows.Close()
	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RunByID returns the run with id, or nil when there is none.
func (s *Store) RunByID(id int64) (*Run, error) {
	r, err := scanRun(s.db.QueryRow("SELECT "+runColumns+" FROM runs WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("run by id: %w", err)
	}
	return r, nil
}

// RunFindings returns a run's findings in the order they were recorded.
func (s *Store) RunFindings(runID int64) ([]*RunFinding, error) {
	rows, err := s.db.Query(
		`SELECT id, run_id, file, line, compat_key, status, outcome, severity, feature_id, COALESCE(message, ''), allowlisted
		 FROM run_findings WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("run findings: %w", err)
	}
	defer rows.Close()
	var out []*RunFinding
	for rows.Next() {
		f := &RunFinding{}
		var featureID sql.NullString
		if err := rows.Scan(&f.ID, &f.RunID, &f.File, &f.Line, &f.Key, &f.Status, &f.Outcome,
			&f.Severity, &featureID, &f.Message, &f.Allowlisted); err != nil {
			return nil, fmt.Errorf("scan finding: %w", err)
		}
		if featureID.Valid {
			id := featureID.String
			f.FeatureID = &id
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// PruneRuns keeps the newest keep runs and deletes the rest along with their
// findings. It returns the number of runs removed.
func (s *Store) PruneRuns(keep int) (int64, error) {
	if keep < 0 {
		keep = 0
	}
	res, err := s.db.Exec(
		`DELETE FROM runs WHERE id NOT IN (
			SELECT id FROM runs ORDER BY started_at DESC, id DESC LIMIT ?
		)`, keep,
	)
	if err != nil {
		return 0, fmt.Errorf("prune runs: %w", err)
	}
	return res.RowsAffected()
}
