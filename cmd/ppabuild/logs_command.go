package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"ppabuild/internal/history"
	"ppabuild/internal/logs"
	"ppabuild/internal/services"
)

func newLogsCommand(ctx *commandContext) *cobra.Command {
	var lines int
	var follow bool

	cmd := &cobra.Command{
		Use:   "logs [run-id]",
		Short: "Print the JSON log of a run (default: the most recent)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := ctx.ensureConfig()
			if err != nil {
				return err
			}

			var path string
			if len(args) == 1 {
				if !cfg.History.Enabled {
					return services.Wrap(services.ErrConfiguration, "", "logs", "looking up a run requires history.enabled = true", nil)
				}
				store, err := history.Open(cfg)
				if err != nil {
					return err
				}
				run, ok, err := store.Get(cmd.Context(), args[0])
				store.Close()
				if err != nil {
					return err
				}
				if !ok || run.LogPath == "" {
					return services.Wrap(services.ErrUsage, "", "logs", fmt.Sprintf("no log recorded for run %s", args[0]), nil)
				}
				path = run.LogPath
			} else if path, err = logs.Latest(cfg.Paths.LogDir); err != nil {
				return services.Wrap(services.ErrUsage, "", "logs", "", err)
			}

			out := cmd.OutOrStdout()
			tail, offset, err := logs.Last(path, lines)
			if err != nil {
				return services.Wrap(services.ErrFilesystem, "", "logs", path, err)
			}
			for _, line := range tail {
				fmt.Fprintln(out, line)
			}
			if !follow {
				return nil
			}
			return logs.Follow(cmd.Context(), path, offset, func(line string) {
				fmt.Fprintln(out, line)
			})
		},
	}
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "number of trailing lines to print")
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "keep printing lines as they are written")
	return cmd
}
