package history

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Status is the lifecycle state of a recorded run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Run is one pipeline invocation.
type Run struct {
	ID               string
	Package          string
	UpstreamVersion  string
	Codename         string
	ChangelogVersion string
	Status           Status
	StopAfter        string
	Built            bool
	FailedStage      string
	ErrorClass       string
	ErrorMessage     string
	ArtifactDigest   string
	LogPath          string
	StartedAt        time.Time
	FinishedAt       time.Time
}

// Duration returns how long the run took, or zero while it is still running.
func (r Run) Duration() time.Duration {
	if r.FinishedAt.IsZero() || r.StartedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Stage is the recorded outcome of one pipeline stage.
type Stage struct {
	Seq       int
	Name      string
	Status    string
	StartedAt time.Time
	Duration  time.Duration
}

// Outcome closes a run.
type Outcome struct {
	Status         Status
	Built          bool
	FailedStage    string
	ErrorClass     string
	ErrorMessage   string
	ArtifactDigest string
	FinishedAt     time.Time
}

// BeginRun inserts run in the running state.
func (s *Store) BeginRun(ctx context.Context, run Run) error {
	if run.Status == "" {
		run.Status = StatusRunning
	}
	_, err := s.exec(ctx, `INSERT INTO runs
        (id, package, upstream_version, codename, changelog_version, status, stop_after, log_path, started_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.Package, run.UpstreamVersion, run.Codename, run.ChangelogVersion,
		string(run.Status), nullString(run.StopAfter), nullString(run.LogPath), formatTime(run.StartedAt),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", run.ID, err)
	}
	return nil
}

// RecordStages replaces the stage rows of a run.
func (s *Store) RecordStages(ctx context.Context, runID string, stages []Stage) error {
	return retryOnBusy(ctx, func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, "DELETE FROM stages WHERE run_id = ?", runID); err != nil {
			return fmt.Errorf("clear stages: %w", err)
		}
		for _, st := range stages {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO stages (run_id, seq, name, status, started_at, duration_ms) VALUES (?, ?, ?, ?, ?, ?)",
				runID, st.Seq, st.Name, st.Status, formatTime(st.StartedAt), st.Duration.Milliseconds(),
			); err != nil {
				return fmt.Errorf("insert stage %s: %w", st.Name, err)
			}
		}
		return tx.Commit()
	})
}

// FinishRun records the final state of a run.
func (s *Store) FinishRun(ctx context.Context, runID string, out Outcome) error {
	if out.FinishedAt.IsZero() {
		out.FinishedAt = time.Now()
	}
	res, err := s.exec(ctx, `UPDATE runs SET
        status = ?, built = ?, failed_stage = ?, error_class = ?, error_message = ?,
        artifact_digest = ?, finished_at = ?
        WHERE id = ?`,
		string(out.Status), boolToInt(out.Built), nullString(out.FailedStage), nullString(out.ErrorClass),
		nullString(out.ErrorMessage), nullString(out.ArtifactDigest), formatTime(out.FinishedAt), runID,
	)
	if err != nil {
		return fmt.Errorf("finish run %s: %w", runID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: no such run", runID)
	}
	return nil
}

// HasSuccessfulBuild reports whether a source package for this changelog
// version and codename was already built successfully.
func (s *Store) HasSuccessfulBuild(ctx context.Context, pkg, codename, changelogVersion string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM runs
         WHERE package = ? AND codename = ? AND changelog_version = ? AND status = ? AND built = 1`,
		pkg, codename, changelogVersion, string(StatusSucceeded),
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("query build history: %w", err)
	}
	return count > 0, nil
}

const runColumns = "id, package, upstream_version, codename, changelog_version, status, stop_after, built, failed_stage, error_class, error_message, artifact_digest, log_path, started_at, finished_at"

// Recent returns up to limit runs, newest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT "+runColumns+" FROM runs ORDER BY started_at DESC, id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	var runs []Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}

// Get returns a single run by id. The boolean is false when no run matches.
func (s *Store) Get(ctx context.Context, runID string) (Run, bool, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", runID)
	run, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, false, nil
	}
	if err != nil {
		return Run{}, false, fmt.Errorf("get run %s: %w", runID, err)
	}
	return run, true, nil
}

// Stages returns the recorded stages of a run in execution order.
func (s *Store) Stages(ctx context.Context, runID string) ([]Stage, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT seq, name, status, started_at, duration_ms FROM stages WHERE run_id = ? ORDER BY seq", runID)
	if err != nil {
		return nil, fmt.Errorf("query stages: %w", err)
	}
	defer rows.Close()

	var stages []Stage
	for rows.Next() {
		var (
			st         Stage
			startedRaw sql.NullString
			durationMS int64
		)
		if err := rows.Scan(&st.Seq, &st.Name, &st.Status, &startedRaw, &durationMS); err != nil {
			return nil, fmt.Errorf("scan stage: %w", err)
		}
		st.StartedAt = parseTime(startedRaw)
		st.Duration = time.Duration(durationMS) * time.Millisecond
		stages = append(stages, st)
	}
	return stages, rows.Err()
}

func scanRun(scanner interface{ Scan(dest ...any) error }) (Run, error) {
	var (
		run          Run
		status       string
		stopAfter    sql.NullString
		built        int
		failedStage  sql.NullString
		errorClass   sql.NullString
		errorMessage sql.NullString
		digest       sql.NullString
		logPath      sql.NullString
		startedRaw   sql.NullString
		finishedRaw  sql.NullString
	)
	if err := scanner.Scan(
		&run.ID,
		&run.Package,
		&run.UpstreamVersion,
		&run.Codename,
		&run.ChangelogVersion,
		&status,
		&stopAfter,
		&built,
		&failedStage,
		&errorClass,
		&errorMessage,
		&digest,
		&logPath,
		&startedRaw,
		&finishedRaw,
	); err != nil {
		return Run{}, err
	}
	run.Status = Status(status)
	run.StopAfter = stopAfter.String
	run.Built = built != 0
	run.FailedStage = failedStage.String
	run.ErrorClass = errorClass.String
	run.ErrorMessage = errorMessage.String
	run.ArtifactDigest = digest.String
	run.LogPath = logPath.String
	run.StartedAt = parseTime(startedRaw)
	run.FinishedAt = parseTime(finishedRaw)
	return run, nil
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
