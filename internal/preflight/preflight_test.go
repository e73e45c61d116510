package preflight

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"ppabuild/internal/services"
	"ppabuild/internal/testsupport"
)

func TestCheckDirectoryAccess_OK(t *testing.T) {
	dir := t.TempDir()
	result := CheckDirectoryAccess("test", dir)
	if !result.Passed {
		t.Fatalf("expected pass for temp dir, got: %s", result.Detail)
	}
}

func TestCheckDirectoryAccess_NotExist(t *testing.T) {
	result := CheckDirectoryAccess("test", filepath.Join(t.TempDir(), "nope"))
	if result.Passed {
		t.Fatal("expected failure for missing dir")
	}
	if result.Detail == "" {
		t.Fatal("expected non-empty detail")
	}
}

func TestCheckDirectoryAccess_NotDir(t *testing.T) {
	f := filepath.Join(t.TempDir(), "file.txt")
	if err := os.WriteFile(f, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	result := CheckDirectoryAccess("test", f)
	if result.Passed {
		t.Fatal("expected failure for file path")
	}
}

func TestCheckPackagingTemplate(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "debian")
	testsupport.WritePackagingTemplate(t, dir)
	if result := CheckPackagingTemplate(dir); !result.Passed {
		t.Fatalf("expected pass, got %s", result.Detail)
	}

	if err := os.Remove(filepath.Join(dir, "changelog")); err != nil {
		t.Fatal(err)
	}
	if result := CheckPackagingTemplate(dir); result.Passed {
		t.Fatal("expected failure without a changelog")
	}
}

func TestCheckRelease_OK(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	result := CheckRelease(context.Background(), srv.URL, "ppabuild/test")
	if !result.Passed {
		t.Fatalf("expected pass, got: %s", result.Detail)
	}
}

func TestCheckRelease_NotFound(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	result := CheckRelease(context.Background(), srv.URL, "")
	if result.Passed {
		t.Fatal("expected failure for missing release")
	}
	if !strings.Contains(result.Detail, "not found") {
		t.Fatalf("unexpected detail %q", result.Detail)
	}
}

func TestCheckRelease_MissingURL(t *testing.T) {
	if result := CheckRelease(context.Background(), "", ""); result.Passed {
		t.Fatal("expected failure for missing URL")
	}
}

func TestRunAll_NilConfig(t *testing.T) {
	if results := RunAll(context.Background(), nil, FullPlan()); results != nil {
		t.Fatal("expected nil results for nil config")
	}
}

func TestRunAll_AllToolsPresent(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())

	results := RunAll(context.Background(), cfg, FullPlan())
	// workspace parent + template + cargo + tar + dch + debuild
	if len(results) != 6 {
		t.Fatalf("expected 6 results, got %d: %+v", len(results), results)
	}
	if err := Err(results); err != nil {
		t.Fatalf("expected all checks to pass: %v", err)
	}
}

func TestRunAll_PlanLimitsRequiredTools(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("cargo", "tar"))
	t.Setenv("PATH", filepath.Join(testsupport.BaseDir(cfg), "bin"))

	if err := Err(RunAll(context.Background(), cfg, Plan{Vendor: true})); err != nil {
		t.Fatalf("vendoring-only plan should not need dch or debuild: %v", err)
	}

	err := Err(RunAll(context.Background(), cfg, FullPlan()))
	if !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if !strings.Contains(err.Error(), "Changelog tool") || !strings.Contains(err.Error(), "Package builder") {
		t.Fatalf("expected both missing tools named, got %v", err)
	}
}

func TestRunAll_ReportsBadSigningKey(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries())
	cfg.Build.SigningKey = filepath.Join(t.TempDir(), "missing.asc")

	failed := Failed(RunAll(context.Background(), cfg, FullPlan()))
	if len(failed) != 1 || failed[0].Name != "Signing key" {
		t.Fatalf("expected only the signing key check to fail, got %+v", failed)
	}
}

func TestCheckTools_WarnsOnMissingHelpers(t *testing.T) {
	cfg := testsupport.NewConfig(t, testsupport.WithStubbedBinaries("cargo", "tar", "dch", "debuild", "xz"))
	t.Setenv("PATH", filepath.Join(testsupport.BaseDir(cfg), "bin"))

	results := CheckTools(cfg, FullPlan())
	if err := Err(results); err != nil {
		t.Fatalf("missing helpers must not fail preflight: %v", err)
	}
	byName := map[string]Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	if byName["Archive tool"].Warn {
		t.Fatalf("xz is present, expected no warning: %+v", byName["Archive tool"])
	}
	builder := byName["Package builder"]
	if !builder.Warn || !strings.Contains(builder.Detail, "dpkg-buildpackage") {
		t.Fatalf("expected helper warning for debuild, got %+v", builder)
	}
}
