package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/pelletier/go-toml/v2"

	"ppabuild/internal/config"
	"ppabuild/internal/testsupport"
)

// fakeDch prepends a changelog entry built from the dch arguments.
const fakeDch = `#!/bin/sh
while [ $# -gt 0 ]; do
  case "$1" in
    --distribution) dist="$2"; shift 2 ;;
    --package) pkg="$2"; shift 2 ;;
    --newversion) ver="$2"; shift 2 ;;
    --*) shift ;;
    *) msg="$1"; shift ;;
  esac
done
{
  printf '%s (%s) %s; urgency=medium\n\n  * %s\n\n -- %s <%s>  Mon, 01 Jan 2024 00:00:00 +0000\n\n' "$pkg" "$ver" "$dist" "$msg" "$DEBFULLNAME" "$DEBEMAIL"
  cat debian/changelog
} > debian/changelog.new && mv debian/changelog.new debian/changelog
`

// fakeDebuild writes a .changes file next to the tree like debuild -S does.
const fakeDebuild = `#!/bin/sh
ver=$(sed -n '1s/.*(\(.*\)).*/\1/p' debian/changelog)
touch "../helix_${ver}_source.changes"
`

type cliTestEnv struct {
	cfg        *config.Config
	configPath string
	binDir     string
	server     *httptest.Server
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("DEBFULLNAME", "Helix Packager")
	t.Setenv("DEBEMAIL", "packager@example.com")
	t.Setenv("PPABUILD_SIGNING_KEY", "")

	tarball := testsupport.ReleaseTarball(t, map[string]string{
		"Cargo.toml":             "[workspace]\n",
		"Cargo.lock":             "version = 3\n",
		"helix-term/src/main.rs": "fn main() {}\n",
	})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/25.01/helix-25.01-source.tar.xz" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write(tarball)
	}))
	t.Cleanup(srv.Close)

	cfg := testsupport.NewConfig(t, testsupport.WithSourceURL(srv.URL+"/{{.Version}}/helix-{{.Version}}-source.tar.xz"))
	env := &cliTestEnv{
		cfg:        cfg,
		configPath: filepath.Join(testsupport.BaseDir(cfg), "ppabuild.toml"),
		binDir:     filepath.Join(testsupport.BaseDir(cfg), "bin"),
		server:     srv,
	}
	env.writeTool(t, "cargo", "#!/bin/sh\nmkdir -p vendor/serde\n")
	env.writeTool(t, "tar", "#!/bin/sh\ntouch \"$2\"\n")
	env.writeTool(t, "dch", fakeDch)
	env.writeTool(t, "debuild", fakeDebuild)
	t.Setenv("PATH", env.binDir+string(os.PathListSeparator)+os.Getenv("PATH"))
	env.writeConfig(t)
	return env
}

func (e *cliTestEnv) writeTool(t *testing.T, name, script string) {
	t.Helper()
	if err := os.MkdirAll(e.binDir, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(e.binDir, name), []byte(script), 0o755); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
}

func (e *cliTestEnv) writeConfig(t *testing.T) {
	t.Helper()
	data, err := toml.Marshal(e.cfg)
	if err != nil {
		t.Fatalf("marshal config: %v", err)
	}
	if err := os.WriteFile(e.configPath, data, 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
}

func (e *cliTestEnv) tree() string {
	return filepath.Join(e.cfg.Paths.WorkDir, "helix-25.01")
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func requireContains(t *testing.T, output, substr string) {
	t.Helper()
	if !strings.Contains(output, substr) {
		t.Fatalf("expected %q to contain %q", output, substr)
	}
}
