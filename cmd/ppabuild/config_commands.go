package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"ppabuild/internal/config"
	"ppabuild/internal/debuild"
	"ppabuild/internal/preflight"
	"ppabuild/internal/services"
)

var skipConfigLoad = map[string]string{"skipConfigLoad": "true"}

func newConfigCommand() *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Create or check the ppabuild configuration",
		Args:  cobra.NoArgs,
	}
	configCmd.AddCommand(newConfigInitCommand(), newConfigValidateCommand())
	return configCmd
}

func newConfigInitCommand() *cobra.Command {
	var targetPath string
	var overwrite bool

	cmd := &cobra.Command{
		Use:         "init",
		Short:       "Write a commented sample configuration",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := initTarget(targetPath)
			if err != nil {
				return err
			}
			if !overwrite {
				_, statErr := os.Stat(target)
				switch {
				case statErr == nil:
					return services.Wrap(services.ErrUsage, "", "config init",
						fmt.Sprintf("%s already exists (pass --overwrite to replace it)", target), nil)
				case !errors.Is(statErr, fs.ErrNotExist):
					return services.Wrap(services.ErrFilesystem, "", "config init", "stat "+target, statErr)
				}
			}
			if err := config.CreateSample(target); err != nil {
				return services.Wrap(services.ErrFilesystem, "", "config init", "write "+target, err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote sample configuration to %s\n", target)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintf(out, "  - point package.debian_dir at the packaging template (relative paths resolve from %s)\n", filepath.Dir(target))
			fmt.Fprintln(out, "  - set changelog maintainer fields or export DEBFULLNAME and DEBEMAIL")
			fmt.Fprintln(out, "  - run `ppabuild doctor` to check the toolchain")
			return nil
		},
	}

	cmd.Flags().StringVarP(&targetPath, "path", "p", "", "Destination for the configuration file")
	cmd.Flags().BoolVar(&overwrite, "overwrite", false, "Replace an existing configuration file")
	return cmd
}

func initTarget(flagPath string) (string, error) {
	if p := strings.TrimSpace(flagPath); p != "" {
		expanded, err := config.ExpandPath(p)
		if err != nil {
			return "", services.Wrap(services.ErrUsage, "", "config init", "resolve --path", err)
		}
		return expanded, nil
	}
	p, err := config.DefaultConfigPath()
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "", "config init", "resolve default config path", err)
	}
	return p, nil
}

func newConfigValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:         "validate",
		Short:       "Load the configuration and summarise the effective settings",
		Args:        cobra.NoArgs,
		Annotations: skipConfigLoad,
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			cfg, path, exists, err := config.Load(strings.TrimSpace(configPath))
			if err != nil {
				return services.Wrap(services.ErrConfiguration, "", "config validate", "load config", err)
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return services.Wrap(services.ErrFilesystem, "", "config validate", "create directories", err)
			}

			out := cmd.OutOrStdout()
			source := path
			if !exists {
				source = path + " (not found, defaults in use)"
			}
			fmt.Fprintf(out, "Config path: %s\n", source)
			fmt.Fprintln(out, renderTable([]string{"Setting", "Value"}, settingsRows(cfg), nil))

			if tmpl := preflight.CheckPackagingTemplate(cfg.Package.DebianDir); !tmpl.Passed {
				fmt.Fprintf(out, "Warning: %s: %s\n", tmpl.Name, tmpl.Detail)
			}
			fmt.Fprintln(out, "Configuration valid")
			return nil
		},
	}
}

func settingsRows(cfg *config.Config) [][]string {
	signing := "debuild default"
	if cfg.Build.SigningKey != "" {
		if fpr, err := debuild.ResolveSigningKey(cfg.Build.SigningKey); err == nil {
			signing = fpr
		} else {
			signing = "unreadable: " + cfg.Build.SigningKey
		}
	}
	history := "disabled"
	if cfg.History.Enabled {
		history = cfg.History.Path
	}
	notify := "disabled"
	if cfg.Notifications.NtfyTopic != "" {
		notify = cfg.Notifications.NtfyTopic
	}
	return [][]string{
		{"Package", cfg.Package.Name},
		{"Release URL", cfg.Package.SourceURL},
		{"Packaging template", cfg.Package.DebianDir},
		{"Workspace", cfg.Paths.WorkDir},
		{"Run logs", cfg.Paths.LogDir},
		{"History", history},
		{"Signing key", signing},
		{"Notifications", notify},
	}
}
