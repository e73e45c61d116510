package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"ppabuild/internal/config"
	"ppabuild/internal/fetch"
	"ppabuild/internal/history"
	"ppabuild/internal/logging"
	"ppabuild/internal/preflight"
	"ppabuild/internal/services"
	"ppabuild/internal/workspace"
)

// Fetcher downloads the release artifact.
type Fetcher interface {
	Fetch(ctx context.Context, url, destDir, filename string) (fetch.Result, error)
}

// Extractor unpacks the release artifact into a directory.
type Extractor interface {
	Extract(archivePath, destDir string) error
}

// Stager copies packaging metadata into the workspace and relocates it.
type Stager interface {
	Stage(templateDir, destDir string) (string, error)
	Relocate(metadataDir, sourceTree string) (string, error)
}

// DependencyArchiver produces the offline dependency archives.
type DependencyArchiver interface {
	ArchiveDependencies(ctx context.Context, sourceTree, outputDir string) ([]string, error)
}

// Stamper writes the new changelog entry.
type Stamper interface {
	Stamp(ctx context.Context, sourceTree, codename, version string) error
}

// Builder produces the signed source package.
type Builder interface {
	Build(ctx context.Context, sourceTree string) error
}

// Recorder persists run history. It is optional.
type Recorder interface {
	BeginRun(ctx context.Context, run history.Run) error
	RecordStages(ctx context.Context, runID string, stages []history.Stage) error
	FinishRun(ctx context.Context, runID string, out history.Outcome) error
	HasSuccessfulBuild(ctx context.Context, pkg, codename, changelogVersion string) (bool, error)
}

// Dependencies are the collaborators a Pipeline drives.
type Dependencies struct {
	Fetcher   Fetcher
	Extractor Extractor
	Stager    Stager
	Archiver  DependencyArchiver
	Stamper   Stamper
	Builder   Builder
	Recorder  Recorder
	// Preflight replaces the local readiness checks when set.
	Preflight func(ctx context.Context, plan preflight.Plan) error
}

// Pipeline runs the release packaging stages in order.
type Pipeline struct {
	cfg    *config.Config
	deps   Dependencies
	logger *slog.Logger
}

// New assembles a Pipeline from explicit collaborators.
func New(cfg *config.Config, logger *slog.Logger, deps Dependencies) *Pipeline {
	if deps.Preflight == nil {
		deps.Preflight = func(ctx context.Context, plan preflight.Plan) error {
			return preflight.Err(preflight.RunAll(ctx, cfg, plan))
		}
	}
	return &Pipeline{
		cfg:    cfg,
		deps:   deps,
		logger: logging.NewComponentLogger(logger, "pipeline"),
	}
}

// Run executes the planned stages for rel. Stages run strictly in order and
// the first failure ends the run; nothing is rolled back. The report is
// returned in every case.
func (p *Pipeline) Run(ctx context.Context, rel Release, opts Options) (Report, error) {
	report := Report{Release: rel, StartedAt: time.Now()}
	if err := rel.Validate(); err != nil {
		return report, err
	}
	if err := opts.Validate(); err != nil {
		return report, err
	}

	report.RunID = opts.RunID
	if report.RunID == "" {
		report.RunID = uuid.NewString()
	}
	report.Layout = workspace.NewLayout(p.cfg.Paths.WorkDir, p.cfg.Package.Name, rel.Version, p.cfg.Package.ArchiveExt)
	for _, s := range opts.planned() {
		status := StatusPending
		if opts.skips(s) {
			status = StatusSkipped
		}
		report.Stages = append(report.Stages, StageResult{Stage: s, Status: status})
	}

	ctx = services.WithRunID(ctx, report.RunID)
	ctx = services.WithRelease(ctx, rel.Version)
	logger := logging.WithContext(ctx, p.logger)

	plan := planFor(report)
	if err := p.deps.Preflight(ctx, plan); err != nil {
		return report, err
	}

	lock, err := workspace.Acquire(report.Layout.Root)
	if err != nil {
		return report, err
	}
	defer func() {
		if err := lock.Release(); err != nil {
			logger.Warn("release workspace lock", logging.Error(err))
		}
	}()

	if plan.Build && !opts.AllowRebuild {
		if err := p.guardDuplicate(ctx, rel); err != nil {
			return report, err
		}
	}

	p.begin(ctx, report, opts)
	logger.Info("pipeline started",
		logging.String(logging.FieldEventType, "run_start"),
		logging.String("codename", rel.Codename),
		logging.String("changelog_version", rel.ChangelogVersion),
		logging.String("workspace", report.Layout.Root),
		logging.String("stop_after", string(opts.StopAfter)),
	)

	runErr := p.execute(ctx, &report, rel)
	report.Duration = time.Since(report.StartedAt)
	p.finish(ctx, report, runErr)

	if runErr != nil {
		logger.Error("pipeline failed",
			logging.String(logging.FieldEventType, "run_failed"),
			logging.String("error_class", services.Classify(runErr)),
			logging.Duration("run_duration", report.Duration),
			logging.Error(runErr),
		)
		return report, runErr
	}
	logger.Info("pipeline completed",
		logging.String(logging.FieldEventType, "run_complete"),
		logging.Duration("run_duration", report.Duration),
	)
	return report, nil
}

func planFor(report Report) preflight.Plan {
	var plan preflight.Plan
	for _, st := range report.Stages {
		if st.Status == StatusSkipped {
			continue
		}
		switch st.Stage {
		case StageVendor:
			plan.Vendor = true
		case StageStamp:
			plan.Changelog = true
		case StageBuild:
			plan.Build = true
		}
	}
	return plan
}

func (p *Pipeline) guardDuplicate(ctx context.Context, rel Release) error {
	if p.deps.Recorder == nil {
		return nil
	}
	built, err := p.deps.Recorder.HasSuccessfulBuild(ctx, p.cfg.Package.Name, rel.Codename, rel.ChangelogVersion)
	if err != nil {
		logging.WarnWithContext(logging.WithContext(ctx, p.logger), "build history unavailable; duplicate guard skipped", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path permissions"),
		)
		return nil
	}
	if built {
		return services.Wrap(services.ErrUsage, "", "history",
			fmt.Sprintf("%s %s was already built for %s; bump the changelog version or pass --allow-rebuild",
				p.cfg.Package.Name, rel.ChangelogVersion, rel.Codename), nil)
	}
	return nil
}

func (p *Pipeline) execute(ctx context.Context, report *Report, rel Release) error {
	for i := range report.Stages {
		res := &report.Stages[i]
		stageCtx := services.WithStage(ctx, string(res.Stage))
		logger := logging.WithContext(stageCtx, p.logger)

		if res.Status == StatusSkipped {
			logger.Info("stage skipped", logging.String(logging.FieldEventType, "stage_skipped"))
			continue
		}
		if err := ctx.Err(); err != nil {
			res.Status = StatusFailed
			res.Detail = "interrupted"
			return &StageError{Stage: res.Stage, Err: err}
		}

		res.StartedAt = time.Now()
		logger.Info("stage started", logging.String(logging.FieldEventType, "stage_start"))
		detail, err := p.runStage(stageCtx, res.Stage, report, rel)
		res.Duration = time.Since(res.StartedAt)
		if err != nil {
			res.Status = StatusFailed
			res.Detail = services.Classify(err)
			logger.Error("stage failed",
				logging.String(logging.FieldEventType, "stage_failed"),
				logging.String("error_class", services.Classify(err)),
				logging.Duration("stage_duration", res.Duration),
				logging.Error(err),
			)
			return &StageError{Stage: res.Stage, Err: err}
		}
		res.Status = StatusDone
		res.Detail = detail
		logger.Info("stage completed",
			logging.String(logging.FieldEventType, "stage_complete"),
			logging.Duration("stage_duration", res.Duration),
		)
	}
	return nil
}

// runStage performs one stage and returns a short detail for the summary.
func (p *Pipeline) runStage(ctx context.Context, stage Stage, report *Report, rel Release) (string, error) {
	layout := report.Layout
	switch stage {
	case StageResetWorkspace:
		return layout.Root, workspace.Reset(layout.Root)
	case StageFetch:
		url, err := fetch.RenderURL(p.cfg.Package.SourceURL, p.cfg.Package.Name, rel.Version)
		if err != nil {
			return "", err
		}
		result, err := p.deps.Fetcher.Fetch(ctx, url, layout.Root, layout.ArtifactName())
		if err != nil {
			return "", err
		}
		report.Artifact = result
		return layout.ArtifactName(), nil
	case StageExtract, StageReextract:
		return filepath.Base(layout.SourceTree), p.deps.Extractor.Extract(layout.Artifact, layout.SourceTree)
	case StageStageMetadata:
		dest, err := p.deps.Stager.Stage(p.cfg.Package.DebianDir, layout.Metadata)
		return dest, err
	case StageVendor:
		archives, err := p.deps.Archiver.ArchiveDependencies(ctx, layout.SourceTree, layout.Metadata)
		report.Archives = archives
		names := make([]string, len(archives))
		for i, a := range archives {
			names[i] = filepath.Base(a)
		}
		return strings.Join(names, ", "), err
	case StageResetSourceTree:
		return filepath.Base(layout.SourceTree), workspace.Reset(layout.SourceTree)
	case StageRelocate:
		return p.deps.Stager.Relocate(layout.Metadata, layout.SourceTree)
	case StageStamp:
		return rel.ChangelogVersion + " " + rel.Codename,
			p.deps.Stamper.Stamp(ctx, layout.SourceTree, rel.Codename, rel.ChangelogVersion)
	case StageBuild:
		return "", p.deps.Builder.Build(ctx, layout.SourceTree)
	}
	return "", fmt.Errorf("no handler for stage %s", stage)
}

func (p *Pipeline) begin(ctx context.Context, report Report, opts Options) {
	if p.deps.Recorder == nil {
		return
	}
	err := p.deps.Recorder.BeginRun(ctx, history.Run{
		ID:               report.RunID,
		Package:          p.cfg.Package.Name,
		UpstreamVersion:  report.Release.Version,
		Codename:         report.Release.Codename,
		ChangelogVersion: report.Release.ChangelogVersion,
		StopAfter:        string(opts.StopAfter),
		LogPath:          opts.LogPath,
		StartedAt:        report.StartedAt,
	})
	if err != nil {
		p.historyWarning(ctx, err)
	}
}

// finish records the outcome even when ctx was cancelled.
func (p *Pipeline) finish(ctx context.Context, report Report, runErr error) {
	if p.deps.Recorder == nil {
		return
	}
	ctx = context.WithoutCancel(ctx)

	stages := make([]history.Stage, len(report.Stages))
	for i, st := range report.Stages {
		stages[i] = history.Stage{
			Seq:       i,
			Name:      string(st.Stage),
			Status:    string(st.Status),
			StartedAt: st.StartedAt,
			Duration:  st.Duration,
		}
	}
	if err := p.deps.Recorder.RecordStages(ctx, report.RunID, stages); err != nil {
		p.historyWarning(ctx, err)
	}

	out := history.Outcome{
		Status:         history.StatusSucceeded,
		Built:          report.Completed(StageBuild),
		ArtifactDigest: report.Artifact.Digest,
		FinishedAt:     report.StartedAt.Add(report.Duration),
	}
	if runErr != nil {
		out.Status = history.StatusFailed
		out.ErrorClass = services.Classify(runErr)
		out.ErrorMessage = runErr.Error()
		if stage, ok := report.FailedStage(); ok {
			out.FailedStage = string(stage)
		}
	}
	if err := p.deps.Recorder.FinishRun(ctx, report.RunID, out); err != nil {
		p.historyWarning(ctx, err)
	}
}

func (p *Pipeline) historyWarning(ctx context.Context, err error) {
	logging.WarnWithContext(logging.WithContext(ctx, p.logger), "failed to record build history", "history_write_failed",
		logging.Error(err),
		logging.String(logging.FieldErrorHint, "the run itself is unaffected; check history.path"),
	)
}
