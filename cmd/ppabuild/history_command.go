package main

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"ppabuild/internal/history"
	"ppabuild/internal/pipeline"
	"ppabuild/internal/services"
)

func newHistoryCommand(ctx *commandContext) *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history [run-id]",
		Short: "List recent runs, or the stages of one run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			if !cfg.History.Enabled {
				return services.Wrap(services.ErrConfiguration, "", "history", "history is disabled (history.enabled = false)", nil)
			}
			store, err := history.Open(cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			if len(args) == 1 {
				return showRun(cmd, store, args[0])
			}
			runs, err := store.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(runs) == 0 {
				fmt.Fprintln(out, "No runs recorded")
				return nil
			}
			rows := make([][]string, 0, len(runs))
			for _, run := range runs {
				rows = append(rows, []string{
					run.ID,
					humanize.Time(run.StartedAt),
					run.UpstreamVersion,
					run.Codename,
					run.ChangelogVersion,
					runStatus(run),
					formatDuration(run.Duration()),
				})
			}
			fmt.Fprintln(out, renderTable(
				[]string{"Run", "Started", "Version", "Codename", "Changelog Version", "Status", "Duration"},
				rows,
				[]columnAlignment{alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignLeft, alignRight},
			))
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to list")
	return cmd
}

func showRun(cmd *cobra.Command, store *history.Store, id string) error {
	run, ok, err := store.Get(cmd.Context(), id)
	if err != nil {
		return err
	}
	if !ok {
		return services.Wrap(services.ErrUsage, "", "history", fmt.Sprintf("run %s not found", id), nil)
	}
	stages, err := store.Stages(cmd.Context(), id)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Run:      %s\n", run.ID)
	fmt.Fprintf(out, "Release:  %s %s for %s (%s)\n", run.Package, run.UpstreamVersion, run.Codename, run.ChangelogVersion)
	fmt.Fprintf(out, "Status:   %s\n", runStatus(run))
	fmt.Fprintf(out, "Started:  %s\n", run.StartedAt.Local().Format(time.DateTime))
	if run.ErrorMessage != "" {
		fmt.Fprintf(out, "Error:    %s (%s)\n", run.ErrorMessage, run.ErrorClass)
	}
	if run.ArtifactDigest != "" {
		fmt.Fprintf(out, "BLAKE3:   %s\n", run.ArtifactDigest)
	}
	if run.LogPath != "" {
		fmt.Fprintf(out, "Log:      %s\n", run.LogPath)
	}
	if len(stages) == 0 {
		return nil
	}
	rows := make([][]string, 0, len(stages))
	for _, st := range stages {
		rows = append(rows, []string{stageLabel(pipeline.Stage(st.Name)), st.Status, formatDuration(st.Duration)})
	}
	fmt.Fprintln(out, renderTable([]string{"Stage", "Status", "Duration"}, rows,
		[]columnAlignment{alignLeft, alignLeft, alignRight}))
	return nil
}

func runStatus(run history.Run) string {
	switch {
	case run.Status == history.StatusFailed && run.FailedStage != "":
		return "failed at " + run.FailedStage
	case run.Status == history.StatusSucceeded && run.Built:
		return "built"
	case run.Status == history.StatusSucceeded && run.StopAfter != "":
		return "stopped after " + run.StopAfter
	default:
		return string(run.Status)
	}
}

func formatDuration(d time.Duration) string {
	if d <= 0 {
		return "-"
	}
	return d.Round(time.Second).String()
}
