package preflight

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"ppabuild/internal/config"
	"ppabuild/internal/debuild"
	"ppabuild/internal/deps"
)

// CheckRelease verifies the release artifact URL answers a HEAD request. It
// is only used by the doctor command; a pipeline run downloads exactly once.
func CheckRelease(ctx context.Context, url, userAgent string) Result {
	const name = "Release artifact"

	url = strings.TrimSpace(url)
	if url == "" {
		return Result{Name: name, Detail: "missing url"}
	}

	checkCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client := &http.Client{Timeout: 10 * time.Second}
	req, err := http.NewRequestWithContext(checkCtx, http.MethodHead, url, nil)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("request failed (%v)", err)}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("unreachable (%v)", err)}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode <= 299:
		return Result{Name: name, Passed: true, Detail: "Reachable"}
	case resp.StatusCode == http.StatusNotFound:
		return Result{Name: name, Detail: "not found (check the version)"}
	default:
		return Result{Name: name, Detail: fmt.Sprintf("unexpected status (%d)", resp.StatusCode)}
	}
}

// CheckDirectoryAccess verifies that the directory exists and is readable/writable.
func CheckDirectoryAccess(name, path string) Result {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Result{Name: name, Detail: fmt.Sprintf("%s (error: does not exist)", path)}
		}
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: stat: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.W_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: insufficient permissions: %v)", path, err)}
	}
	return Result{Name: name, Passed: true, Detail: fmt.Sprintf("%s (read/write ok)", path)}
}

// CheckPackagingTemplate verifies the debian/ template directory carries a
// changelog for dch to extend.
func CheckPackagingTemplate(path string) Result {
	const name = "Packaging template"

	info, err := os.Stat(path)
	if err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: %v)", path, err)}
	}
	if !info.IsDir() {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: is not a directory)", path)}
	}
	if err := unix.Access(path, unix.R_OK|unix.X_OK); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: unreadable: %v)", path, err)}
	}
	if _, err := os.Stat(filepath.Join(path, "changelog")); err != nil {
		return Result{Name: name, Detail: fmt.Sprintf("%s (error: no changelog)", path)}
	}
	return Result{Name: name, Passed: true, Detail: path}
}

// CheckSigningKey verifies the configured key file yields a fingerprint.
func CheckSigningKey(path string) Result {
	const name = "Signing key"

	fpr, err := debuild.ResolveSigningKey(path)
	if err != nil {
		return Result{Name: name, Detail: err.Error()}
	}
	return Result{Name: name, Passed: true, Detail: fpr}
}

// Requirements lists the external programs the planned stages invoke.
func Requirements(cfg *config.Config, plan Plan) []deps.Requirement {
	var reqs []deps.Requirement
	if plan.Vendor {
		reqs = append(reqs,
			deps.Requirement{
				Name:    "Vendor tool",
				Command: first(cfg.Vendor.Command),
				Purpose: "Required for dependency vendoring (cargo)",
			},
			deps.Requirement{
				Name:    "Archive tool",
				Command: first(cfg.Tools.Archive),
				Purpose: "Required to pack vendored sources (tar with xz support)",
				Helpers: []string{"xz"},
			},
		)
		if cfg.Grammars.Enabled {
			reqs = append(reqs, deps.Requirement{
				Name:    "Grammar build tool",
				Command: first(cfg.Grammars.Command),
				Purpose: "Required to generate grammar sources",
			})
		}
	}
	if plan.Changelog {
		reqs = append(reqs, deps.Requirement{
			Name:    "Changelog tool",
			Command: cfg.Tools.Changelog,
			Purpose: "Required to stamp debian/changelog (devscripts)",
		})
	}
	if plan.Build {
		reqs = append(reqs, deps.Requirement{
			Name:    "Package builder",
			Command: cfg.Tools.Build,
			Purpose: "Required to build the source package (devscripts)",
			Helpers: []string{"dpkg-buildpackage", "dpkg-source"},
		})
	}
	return reqs
}

// CheckTools converts tool availability into preflight results.
func CheckTools(cfg *config.Config, plan Plan) []Result {
	statuses := deps.CheckBinaries(Requirements(cfg, plan))
	results := make([]Result, 0, len(statuses))
	for _, s := range statuses {
		if s.Available {
			detail := s.Path
			if s.Detail != "" {
				detail += " (" + s.Detail + ")"
			}
			results = append(results, Result{Name: s.Name, Passed: true, Warn: len(s.MissingHelpers) > 0, Detail: detail})
			continue
		}
		detail := s.Detail
		if s.Purpose != "" {
			detail += "; " + s.Purpose
		}
		results = append(results, Result{Name: s.Name, Passed: s.Optional, Detail: detail})
	}
	return results
}

func first(values []string) string {
	if len(values) == 0 {
		return ""
	}
	return values[0]
}
