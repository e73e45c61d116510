package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"ppabuild/internal/pipeline"
	"ppabuild/internal/services"
)

type buildFlags struct {
	skipBuild    bool
	stopAfter    string
	skipStages   []string
	allowRebuild bool
}

func newRootCommand() *cobra.Command {
	var configFlag, workDirFlag, logLevelFlag string
	var flags buildFlags

	ctx := newCommandContext(&configFlag, &workDirFlag, &logLevelFlag)

	rootCmd := &cobra.Command{
		Use:   "ppabuild [flags] <version> <codename> <changelog-version>",
		Short: "Build a signed Ubuntu source package from an upstream release",
		Long: "ppabuild downloads an upstream release, vendors its dependencies, stages the\n" +
			"debian/ packaging, stamps a changelog entry for the target series and runs\n" +
			"debuild to produce a source package ready for a PPA upload.\n\n" +
			"Stages: " + pipeline.StageNames(),
		Example:       "  ppabuild 25.01 kinetic 25.01-1~ubuntu22.10~ppa1\n  ppabuild --skip-build 25.01 noble 25.01-1~ubuntu24.04~ppa1",
		SilenceUsage:  true,
		SilenceErrors: true,
		Args:          exactArgs(3),
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if shouldSkipConfig(cmd) {
				return nil
			}
			_, err := ctx.ensureConfig()
			return err
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, ctx, args, flags)
		},
	}
	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return services.Wrap(services.ErrUsage, "", "flags", "", err)
	})

	persistent := rootCmd.PersistentFlags()
	persistent.StringVarP(&configFlag, "config", "c", "", "configuration file (default ~/.config/ppabuild/config.toml, then ./ppabuild.toml)")
	persistent.StringVar(&workDirFlag, "work-dir", "", "override paths.work_dir")
	persistent.StringVar(&logLevelFlag, "log-level", "", "override logging.level")
	bindBuildFlags(rootCmd.Flags(), &flags)

	rootCmd.AddCommand(newConfigCommand())
	rootCmd.AddCommand(newHistoryCommand(ctx))
	rootCmd.AddCommand(newDoctorCommand(ctx))
	rootCmd.AddCommand(newLogsCommand(ctx))

	return rootCmd
}

func bindBuildFlags(fs *pflag.FlagSet, flags *buildFlags) {
	fs.BoolVar(&flags.skipBuild, "skip-build", false, "stop after dependency vendoring (no changelog stamp, no debuild)")
	fs.StringVar(&flags.stopAfter, "stop-after", "", "stop successfully after the named stage")
	fs.StringSliceVar(&flags.skipStages, "skip-stage", nil, "skip stamp-changelog and/or build (repeatable)")
	fs.BoolVar(&flags.allowRebuild, "allow-rebuild", false, "permit a changelog version already built for this codename")
	fs.SortFlags = false
}

// exactArgs is cobra.ExactArgs with the failure classified as a usage error.
func exactArgs(n int) cobra.PositionalArgs {
	return func(cmd *cobra.Command, args []string) error {
		if len(args) != n {
			return services.Wrap(services.ErrUsage, "", "",
				fmt.Sprintf("expected %d arguments (<version> <codename> <changelog-version>), got %d", n, len(args)), nil)
		}
		return nil
	}
}

// options turns the build flags into pipeline options.
func (f buildFlags) options() (pipeline.Options, error) {
	var opts pipeline.Options
	opts.AllowRebuild = f.allowRebuild
	if f.stopAfter != "" {
		stage, err := pipeline.ParseStage(f.stopAfter)
		if err != nil {
			return opts, err
		}
		opts.StopAfter = stage
	}
	if f.skipBuild {
		if opts.StopAfter != "" && opts.StopAfter != pipeline.StageVendor {
			return opts, services.Wrap(services.ErrUsage, "", "flags", "--skip-build conflicts with --stop-after "+string(opts.StopAfter), nil)
		}
		opts.StopAfter = pipeline.StageVendor
	}
	for _, name := range f.skipStages {
		stage, err := pipeline.ParseStage(name)
		if err != nil {
			return opts, err
		}
		opts.Skip = append(opts.Skip, stage)
	}
	return opts, opts.Validate()
}
