package pipeline

import (
	"fmt"
	"strings"

	"ppabuild/internal/changelog"
	"ppabuild/internal/services"
)

// Release holds the inputs of one run. It is validated once and passed by value.
type Release struct {
	// Version is the upstream release tag, e.g. "25.01".
	Version string
	// Codename is the target distribution series, e.g. "kinetic".
	Codename string
	// ChangelogVersion is the Debian version stamped into the changelog.
	ChangelogVersion string
}

// Validate checks the release inputs before anything touches the filesystem.
func (r Release) Validate() error {
	v := r.Version
	switch {
	case strings.TrimSpace(v) == "":
		return usage("version must not be empty")
	case v == "." || v == "..":
		return usage(fmt.Sprintf("invalid version %q", v))
	case strings.ContainsAny(v, "/\\ \t\n"):
		return usage(fmt.Sprintf("version %q must not contain slashes or whitespace", v))
	}
	if r.Codename == "" {
		return usage("codename must not be empty")
	}
	for _, c := range r.Codename {
		if !(c >= 'a' && c <= 'z') && !(c >= '0' && c <= '9') && c != '-' {
			return usage(fmt.Sprintf("codename %q must be lower-case letters, digits or hyphens", r.Codename))
		}
	}
	return changelog.ValidateVersion(r.ChangelogVersion)
}

// Options tunes which stages a run executes.
type Options struct {
	// StopAfter ends the run successfully once the named stage completes.
	// Empty runs every stage.
	StopAfter Stage
	// Skip marks stages that are passed over while the rest still runs.
	Skip []Stage
	// AllowRebuild bypasses the duplicate build guard.
	AllowRebuild bool
	// RunID identifies the run in logs and history. Generated when empty.
	RunID string
	// LogPath is recorded in history next to the run.
	LogPath string
}

// Validate checks stage references.
func (o Options) Validate() error {
	if o.StopAfter != "" && o.StopAfter.index() < 0 {
		return usage(fmt.Sprintf("unknown stop-after stage %q", o.StopAfter))
	}
	for _, s := range o.Skip {
		if s.index() < 0 {
			return usage(fmt.Sprintf("unknown stage %q", s))
		}
		if !s.Skippable() {
			return usage(fmt.Sprintf("stage %s cannot be skipped", s))
		}
		if s == o.StopAfter {
			return usage(fmt.Sprintf("stage %s is both skipped and the stop-after target", s))
		}
	}
	return nil
}

func (o Options) skips(s Stage) bool {
	for _, candidate := range o.Skip {
		if candidate == s {
			return true
		}
	}
	return false
}

// planned returns the stages up to and including StopAfter.
func (o Options) planned() []Stage {
	if o.StopAfter == "" {
		return Stages
	}
	return Stages[:o.StopAfter.index()+1]
}

func usage(msg string) error {
	return services.Wrap(services.ErrUsage, "", "", msg, nil)
}
