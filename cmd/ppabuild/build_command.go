package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"ppabuild/internal/config"
	"ppabuild/internal/history"
	"ppabuild/internal/logging"
	"ppabuild/internal/notifications"
	"ppabuild/internal/pipeline"
)

func runBuild(cmd *cobra.Command, ctx *commandContext, args []string, flags buildFlags) error {
	rel := pipeline.Release{Version: args[0], Codename: args[1], ChangelogVersion: args[2]}
	if err := rel.Validate(); err != nil {
		return err
	}
	opts, err := flags.options()
	if err != nil {
		return err
	}
	cfg, err := ctx.ensureConfig()
	if err != nil {
		return err
	}

	base, err := logging.NewFromConfig(cfg)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	started := time.Now()
	opts.RunID = uuid.NewString()
	logger, runLog, err := logging.NewRunLogger(base, cfg.Paths.LogDir, opts.RunID, started)
	if err != nil {
		return err
	}
	defer runLog.Close()
	opts.LogPath = runLog.Path
	if removed := logging.PruneRunLogs(logger, cfg.Paths.LogDir, cfg.Logging.RetentionDays, runLog.Path, started); removed > 0 {
		logger.Debug("pruned old run logs", logging.Int("removed", removed))
	}

	recorder, closeRecorder := openRecorder(cfg, logger)
	defer closeRecorder()

	p, err := pipeline.NewFromConfig(cfg, logger, recorder)
	if err != nil {
		return err
	}
	report, runErr := p.Run(cmd.Context(), rel, opts)
	renderReport(cmd.OutOrStdout(), report, runLog.Path)
	notifyRun(cmd.Context(), notifications.NewService(cfg.Notifications), logger, cfg, report, opts, runErr)
	return runErr
}

// notifyRun publishes the outcome of a run that got as far as its first stage.
func notifyRun(ctx context.Context, svc notifications.Service, logger *slog.Logger, cfg *config.Config, report pipeline.Report, opts pipeline.Options, runErr error) {
	started := false
	for _, st := range report.Stages {
		if st.Status == pipeline.StatusDone || st.Status == pipeline.StatusFailed {
			started = true
			break
		}
	}
	if !started {
		return
	}

	run := notifications.Run{
		Package:          cfg.Package.Name,
		Version:          report.Release.Version,
		Codename:         report.Release.Codename,
		ChangelogVersion: report.Release.ChangelogVersion,
		StopAfter:        string(opts.StopAfter),
		Built:            report.Completed(pipeline.StageBuild),
		Err:              runErr,
		Duration:         report.Duration,
	}
	event := notifications.EventRunSucceeded
	if runErr != nil {
		event = notifications.EventRunFailed
		if stage, ok := report.FailedStage(); ok {
			run.FailedStage = string(stage)
		}
	}
	if err := svc.Publish(context.WithoutCancel(ctx), event, run); err != nil {
		logging.WarnWithContext(logger, "notification not delivered", "notification_failed",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check notifications.ntfy_topic"),
		)
	}
}

// openRecorder opens the build history when enabled. The pipeline runs
// without history when the database cannot be opened.
func openRecorder(cfg *config.Config, logger *slog.Logger) (pipeline.Recorder, func()) {
	if !cfg.History.Enabled {
		return nil, func() {}
	}
	store, err := history.Open(cfg)
	if err != nil {
		logging.WarnWithContext(logger, "build history unavailable", "history_unavailable",
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check history.path or set history.enabled = false"),
		)
		return nil, func() {}
	}
	return store, func() { _ = store.Close() }
}

func renderReport(w io.Writer, report pipeline.Report, logPath string) {
	if len(report.Stages) == 0 {
		return
	}
	rows := make([][]string, 0, len(report.Stages))
	for _, st := range report.Stages {
		duration := "-"
		if st.Status == pipeline.StatusDone || st.Status == pipeline.StatusFailed {
			duration = st.Duration.Round(time.Millisecond).String()
		}
		rows = append(rows, []string{stageLabel(st.Stage), string(st.Status), duration, st.Detail})
	}
	fmt.Fprintln(w, renderTable([]string{"Stage", "Status", "Duration", "Detail"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight, alignLeft}))

	fmt.Fprintf(w, "Run:       %s\n", report.RunID)
	fmt.Fprintf(w, "Workspace: %s\n", report.Layout.Root)
	if report.Artifact.Path != "" {
		fmt.Fprintf(w, "Artifact:  %s (%s)\n", filepath.Base(report.Artifact.Path), humanize.Bytes(uint64(report.Artifact.Size)))
	}
	if report.Completed(pipeline.StageBuild) {
		fmt.Fprintf(w, "Source package files written to %s\n", report.Layout.Root)
	}
	if logPath != "" {
		fmt.Fprintf(w, "Log:       %s\n", logPath)
	}
}
