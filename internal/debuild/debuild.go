package debuild

import (
	"context"
	"encoding/hex"
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ProtonMail/go-crypto/openpgp"

	"ppabuild/internal/config"
	"ppabuild/internal/logging"
	"ppabuild/internal/runner"
	"ppabuild/internal/services"
)

// CommandRunner executes one external command to completion.
type CommandRunner interface {
	Run(ctx context.Context, cmd runner.Command) error
}

// Builder invokes the source package builder inside a prepared source tree.
type Builder struct {
	run         CommandRunner
	pkg         string
	tool        string
	args        []string
	fingerprint string
	logger      *slog.Logger
}

// New builds a Builder. When a signing key file is configured its fingerprint
// is resolved immediately so a bad key fails before the pipeline starts.
func New(cfg *config.Config, run CommandRunner, logger *slog.Logger) (*Builder, error) {
	b := &Builder{
		run:    run,
		pkg:    cfg.Package.Name,
		tool:   cfg.Tools.Build,
		args:   append([]string(nil), cfg.Build.Args...),
		logger: logging.NewComponentLogger(logger, "debuild"),
	}
	if cfg.Build.SigningKey != "" {
		fpr, err := ResolveSigningKey(cfg.Build.SigningKey)
		if err != nil {
			return nil, err
		}
		b.fingerprint = fpr
	}
	return b, nil
}

// Fingerprint returns the signing key passed to the builder, if any.
func (b *Builder) Fingerprint() string {
	return b.fingerprint
}

// Args returns the full argument vector handed to the build tool.
func (b *Builder) Args() []string {
	args := append([]string(nil), b.args...)
	if b.fingerprint != "" {
		args = append(args, "-k"+b.fingerprint)
	}
	return args
}

// Build runs the builder with sourceTree as its working directory and logs
// the upload files debuild leaves next to the tree.
func (b *Builder) Build(ctx context.Context, sourceTree string) error {
	logger := logging.WithContext(ctx, b.logger)
	if err := b.run.Run(ctx, runner.Command{
		Tool:   "debuild",
		Binary: b.tool,
		Args:   b.Args(),
		Dir:    sourceTree,
	}); err != nil {
		return err
	}
	files, err := b.Outputs(sourceTree)
	if err != nil {
		logger.Warn("could not list source package files",
			logging.String(logging.FieldEventType, "build_outputs_unreadable"),
			logging.Error(err),
		)
	}
	logger.Info("source package built",
		logging.String("source_tree", sourceTree),
		logging.Strings("files", files),
	)
	return nil
}

// Outputs lists the <pkg>_* files in the directory holding sourceTree: the
// .dsc, _source.changes, _source.buildinfo and tarballs that make up the
// upload. Names are sorted.
func (b *Builder) Outputs(sourceTree string) ([]string, error) {
	matches, err := filepath.Glob(filepath.Join(filepath.Dir(sourceTree), b.pkg+"_*"))
	if err != nil {
		return nil, err
	}
	var files []string
	for _, m := range matches {
		info, err := os.Stat(m)
		if err != nil {
			return nil, err
		}
		if info.Mode().IsRegular() {
			files = append(files, filepath.Base(m))
		}
	}
	sort.Strings(files)
	return files, nil
}

// ResolveSigningKey reads an armored OpenPGP key file, public or secret, and
// returns the primary key fingerprint as upper-case hex.
func ResolveSigningKey(path string) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "", "signing key", "open "+path, err)
	}
	defer f.Close()

	entities, err := openpgp.ReadArmoredKeyRing(f)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "", "signing key", "read "+path, err)
	}
	if len(entities) == 0 || entities[0].PrimaryKey == nil {
		return "", services.Wrap(services.ErrConfiguration, "", "signing key", path, errors.New("no key found"))
	}
	return strings.ToUpper(hex.EncodeToString(entities[0].PrimaryKey.Fingerprint)), nil
}
