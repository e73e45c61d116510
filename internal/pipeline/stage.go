package pipeline

import (
	"fmt"
	"strings"

	"ppabuild/internal/services"
)

// Stage names one step of the pipeline.
type Stage string

const (
	StageResetWorkspace  Stage = "reset-workspace"
	StageFetch           Stage = "fetch"
	StageExtract         Stage = "extract"
	StageStageMetadata   Stage = "stage-metadata"
	StageVendor          Stage = "vendor-dependencies"
	StageResetSourceTree Stage = "reset-source-tree"
	StageReextract       Stage = "reextract"
	StageRelocate        Stage = "relocate-metadata"
	StageStamp           Stage = "stamp-changelog"
	StageBuild           Stage = "build"
)

// Stages is the fixed execution order.
var Stages = []Stage{
	StageResetWorkspace,
	StageFetch,
	StageExtract,
	StageStageMetadata,
	StageVendor,
	StageResetSourceTree,
	StageReextract,
	StageRelocate,
	StageStamp,
	StageBuild,
}

// ParseStage resolves a stage name given on the command line.
func ParseStage(name string) (Stage, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	for _, s := range Stages {
		if string(s) == name {
			return s, nil
		}
	}
	return "", services.Wrap(services.ErrUsage, "", "stage", fmt.Sprintf("unknown stage %q (valid: %s)", name, StageNames()), nil)
}

// StageNames lists every stage, comma separated, for help text.
func StageNames() string {
	names := make([]string, len(Stages))
	for i, s := range Stages {
		names[i] = string(s)
	}
	return strings.Join(names, ", ")
}

// Skippable reports whether s may be left out while later stages still run.
// Every earlier stage produces something a later stage consumes.
func (s Stage) Skippable() bool {
	return s == StageStamp || s == StageBuild
}

func (s Stage) index() int {
	for i, candidate := range Stages {
		if candidate == s {
			return i
		}
	}
	return -1
}

// StageError ties a failure to the stage that produced it.
type StageError struct {
	Stage Stage
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("stage %s failed: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}
