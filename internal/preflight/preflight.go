package preflight

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"ppabuild/internal/config"
	"ppabuild/internal/services"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name   string
	Passed bool
	// Warn marks a passing check worth a look, such as a tool whose helper
	// programs are missing.
	Warn   bool
	Detail string
}

// Plan names the tool-driven stages a run will reach. Tools for stages
// outside the plan are not required.
type Plan struct {
	Vendor    bool
	Changelog bool
	Build     bool
}

// FullPlan requires every tool.
func FullPlan() Plan {
	return Plan{Vendor: true, Changelog: true, Build: true}
}

// RunAll executes the local preflight checks for a run: the workspace parent
// must be writable, the packaging template must exist and every tool the plan
// needs must be on PATH. No network access happens here.
func RunAll(ctx context.Context, cfg *config.Config, plan Plan) []Result {
	if cfg == nil {
		return nil
	}

	var results []Result
	results = append(results, CheckDirectoryAccess("Workspace parent", filepath.Dir(cfg.Paths.WorkDir)))
	results = append(results, CheckPackagingTemplate(cfg.Package.DebianDir))
	results = append(results, CheckTools(cfg, plan)...)
	if plan.Build && cfg.Build.SigningKey != "" {
		results = append(results, CheckSigningKey(cfg.Build.SigningKey))
	}
	return results
}

// Failed returns the checks that did not pass.
func Failed(results []Result) []Result {
	var failed []Result
	for _, r := range results {
		if !r.Passed {
			failed = append(failed, r)
		}
	}
	return failed
}

// Err folds failed checks into a single configuration error, or nil.
func Err(results []Result) error {
	failed := Failed(results)
	if len(failed) == 0 {
		return nil
	}
	parts := make([]string, 0, len(failed))
	for _, r := range failed {
		parts = append(parts, fmt.Sprintf("%s: %s", r.Name, r.Detail))
	}
	return services.Wrap(services.ErrConfiguration, "preflight", "", strings.Join(parts, "; "), nil)
}
