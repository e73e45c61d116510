package pipeline

import (
	"time"

	"ppabuild/internal/fetch"
	"ppabuild/internal/workspace"
)

// StageStatus is the outcome of one stage within a run.
type StageStatus string

const (
	StatusPending StageStatus = "pending"
	StatusDone    StageStatus = "done"
	StatusSkipped StageStatus = "skipped"
	StatusFailed  StageStatus = "failed"
)

// StageResult records what happened to one planned stage.
type StageResult struct {
	Stage     Stage
	Status    StageStatus
	StartedAt time.Time
	Duration  time.Duration
	Detail    string
}

// Report summarises a run. It is returned even when the run fails.
type Report struct {
	RunID     string
	Release   Release
	Layout    workspace.Layout
	Stages    []StageResult
	Artifact  fetch.Result
	Archives  []string
	StartedAt time.Time
	Duration  time.Duration
}

// Completed reports whether stage s finished successfully.
func (r Report) Completed(s Stage) bool {
	for _, st := range r.Stages {
		if st.Stage == s {
			return st.Status == StatusDone
		}
	}
	return false
}

// FailedStage returns the stage that failed, if any.
func (r Report) FailedStage() (Stage, bool) {
	for _, st := range r.Stages {
		if st.Status == StatusFailed {
			return st.Stage, true
		}
	}
	return "", false
}
