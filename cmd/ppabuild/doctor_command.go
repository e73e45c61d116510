package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ppabuild/internal/fetch"
	"ppabuild/internal/notifications"
	"ppabuild/internal/preflight"
)

func newDoctorCommand(ctx *commandContext) *cobra.Command {
	var testNotification bool

	cmd := &cobra.Command{
		Use:   "doctor [version]",
		Short: "Check tools, paths and signing key; with a version, probe the release URL",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}
			results := preflight.RunAll(cmd.Context(), cfg, preflight.FullPlan())
			if len(args) == 1 {
				url, err := fetch.RenderURL(cfg.Package.SourceURL, cfg.Package.Name, args[0])
				if err != nil {
					return err
				}
				results = append(results, preflight.CheckRelease(cmd.Context(), url, cfg.Fetch.UserAgent))
			}

			out := cmd.OutOrStdout()
			colorize := shouldColorize(out)
			for _, line := range renderSectionHeader("ppabuild doctor", colorize) {
				fmt.Fprintln(out, line)
			}
			for _, r := range results {
				fmt.Fprintln(out, renderStatusLine(r.Name, resultKind(r), r.Detail, colorize))
			}
			if testNotification {
				svc := notifications.NewService(cfg.Notifications)
				if err := svc.Publish(cmd.Context(), notifications.EventTest, notifications.Run{}); err != nil {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusError, err.Error(), colorize))
				} else {
					fmt.Fprintln(out, renderStatusLine("Notifications", statusOK, "Test notification sent", colorize))
				}
			}
			return preflight.Err(results)
		},
	}
	cmd.Flags().BoolVar(&testNotification, "test-notification", false, "send a test notification to the configured ntfy topic")
	return cmd
}

func resultKind(r preflight.Result) statusKind {
	switch {
	case !r.Passed:
		return statusError
	case r.Warn:
		return statusWarn
	default:
		return statusOK
	}
}
