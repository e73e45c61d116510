package changelog

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"text/template"

	"ppabuild/internal/config"
	"ppabuild/internal/logging"
	"ppabuild/internal/runner"
	"ppabuild/internal/services"
)

// CommandRunner executes one external command to completion.
type CommandRunner interface {
	Run(ctx context.Context, cmd runner.Command) error
}

// Stamper adds a new top entry to debian/changelog through dch.
type Stamper struct {
	run     CommandRunner
	tool    string
	pkg     string
	cfg     config.Changelog
	message *template.Template
	logger  *slog.Logger
}

// New builds a Stamper. The entry message template is parsed up front.
func New(cfg *config.Config, run CommandRunner, logger *slog.Logger) (*Stamper, error) {
	tmpl, err := template.New("message").Option("missingkey=error").Parse(cfg.Changelog.Message)
	if err != nil {
		return nil, services.Wrap(services.ErrConfiguration, "", "changelog", "parse message template", err)
	}
	return &Stamper{
		run:     run,
		tool:    cfg.Tools.Changelog,
		pkg:     cfg.Package.Name,
		cfg:     cfg.Changelog,
		message: tmpl,
		logger:  logging.NewComponentLogger(logger, "changelog"),
	}, nil
}

// Path returns the changelog location inside sourceTree.
func Path(sourceTree string) string {
	return filepath.Join(sourceTree, "debian", "changelog")
}

// Stamp records version for codename as the newest changelog entry. The
// command runs with sourceTree as its working directory, and the resulting top
// entry is read back to confirm dch wrote what was asked.
func (s *Stamper) Stamp(ctx context.Context, sourceTree, codename, version string) error {
	if err := ValidateVersion(version); err != nil {
		return err
	}
	if strings.TrimSpace(codename) == "" {
		return services.Wrap(services.ErrUsage, "", "changelog", "empty distribution codename", nil)
	}
	logger := logging.WithContext(ctx, s.logger)
	path := Path(sourceTree)

	if current, err := ReadTopEntry(path); err != nil {
		logging.WarnWithContext(logger, "unable to read current changelog entry", "changelog_unreadable",
			logging.String("path", path),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "dch will report the problem if the changelog is unusable"),
		)
	} else if cmp, err := CompareVersions(version, current.Version); err == nil && cmp <= 0 {
		logging.WarnWithContext(logger, "new changelog version does not sort above the current entry", "changelog_version_order",
			logging.String("current_version", current.Version),
			logging.String("new_version", version),
			logging.String(logging.FieldErrorHint, "the archive will reject an upload that does not increase the version"),
		)
	}

	message, err := s.renderMessage(codename, version)
	if err != nil {
		return err
	}
	args := make([]string, 0, 8)
	if s.cfg.ForceBadVersion {
		args = append(args, "--force-bad-version")
	}
	args = append(args,
		"--distribution", codename,
		"--package", s.pkg,
		"--newversion", version,
		message,
	)
	var env []string
	if s.cfg.MaintainerName != "" {
		env = append(env, "DEBFULLNAME="+s.cfg.MaintainerName)
	}
	if s.cfg.MaintainerEmail != "" {
		env = append(env, "DEBEMAIL="+s.cfg.MaintainerEmail)
	}
	if err := s.run.Run(ctx, runner.Command{
		Tool:   "dch",
		Binary: s.tool,
		Args:   args,
		Dir:    sourceTree,
		Env:    env,
	}); err != nil {
		return err
	}

	top, err := ReadTopEntry(path)
	if err != nil {
		return services.Wrap(services.ErrExternalTool, "", "changelog", "read stamped changelog", err)
	}
	if top.Version != version || top.Distribution != codename {
		return services.Wrap(services.ErrExternalTool, "", "changelog",
			fmt.Sprintf("top entry is %s (%s) after stamping, expected %s (%s)", top.Version, top.Distribution, version, codename), nil)
	}
	logger.Info("changelog stamped",
		logging.String("version", top.Version),
		logging.String("distribution", top.Distribution),
	)
	return nil
}

func (s *Stamper) renderMessage(codename, version string) (string, error) {
	var b strings.Builder
	data := map[string]string{"Codename": codename, "Version": version, "Package": s.pkg}
	if err := s.message.Execute(&b, data); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "", "changelog", "render message template", err)
	}
	return b.String(), nil
}
