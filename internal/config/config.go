package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

// Package describes the upstream project being packaged.
type Package struct {
	Name            string `toml:"name"`
	SourceURL       string `toml:"source_url"`
	ArchiveExt      string `toml:"archive_ext"`
	StripComponents int    `toml:"strip_components"`
	DebianDir       string `toml:"debian_dir"`
}

// Paths contains workspace and log locations.
type Paths struct {
	WorkDir string `toml:"work_dir"`
	LogDir  string `toml:"log_dir"`
}

// Fetch controls the release download.
type Fetch struct {
	TimeoutSeconds int    `toml:"timeout_seconds"`
	UserAgent      string `toml:"user_agent"`
	Progress       bool   `toml:"progress"`
}

// Tools names the external programs driven by the pipeline.
type Tools struct {
	Archive   []string `toml:"archive"`
	Changelog string   `toml:"changelog"`
	Build     string   `toml:"build"`
}

// Vendor configures the dependency vendoring sub-stage.
type Vendor struct {
	Command     []string `toml:"command"`
	Directory   string   `toml:"directory"`
	ArchiveName string   `toml:"archive_name"`
}

// Grammars configures the optional release-compile sub-stage that archives
// generated grammar sources next to the vendor archive.
type Grammars struct {
	Enabled     bool     `toml:"enabled"`
	Command     []string `toml:"command"`
	SourceDir   string   `toml:"source_dir"`
	ArchiveName string   `toml:"archive_name"`
}

// Changelog controls the dch invocation.
type Changelog struct {
	Message         string `toml:"message"`
	ForceBadVersion bool   `toml:"force_bad_version"`
	MaintainerName  string `toml:"maintainer_name"`
	MaintainerEmail string `toml:"maintainer_email"`
}

// Build controls the debuild invocation.
type Build struct {
	Args       []string `toml:"args"`
	SigningKey string   `toml:"signing_key"`
}

// History configures the local build ledger.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Notifications configures end-of-run push notifications.
type Notifications struct {
	NtfyTopic             string `toml:"ntfy_topic"`
	RequestTimeoutSeconds int    `toml:"request_timeout_seconds"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format        string `toml:"format"`
	Level         string `toml:"level"`
	ToolOutput    bool   `toml:"tool_output"`
	RetentionDays int    `toml:"retention_days"`
}

// Config encapsulates all configuration values for ppabuild.
//
// Configuration sections by subsystem:
//   - Package: upstream name, download URL template, packaging template dir
//   - Paths: workspace root and log directory
//   - Fetch: download timeout and presentation
//   - Tools, Vendor, Grammars: external command vectors
//   - Changelog, Build: dch and debuild behaviour
//   - History: build ledger location
//   - Notifications: ntfy topic for run results
//   - Logging: log format and level
type Config struct {
	Package       Package       `toml:"package"`
	Paths         Paths         `toml:"paths"`
	Fetch         Fetch         `toml:"fetch"`
	Tools         Tools         `toml:"tools"`
	Vendor        Vendor        `toml:"vendor"`
	Grammars      Grammars      `toml:"grammars"`
	Changelog     Changelog     `toml:"changelog"`
	Build         Build         `toml:"build"`
	History       History       `toml:"history"`
	Notifications Notifications `toml:"notifications"`
	Logging       Logging       `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(defaultConfigPath)
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		decoder.DisallowUnknownFields()
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config %s: %w", resolvedPath, err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	defaultPath, err := expandPath(defaultConfigPath)
	if err != nil {
		return "", false, err
	}

	projectPath, err := filepath.Abs(projectConfigName)
	if err != nil {
		return "", false, err
	}

	if info, err := os.Stat(defaultPath); err == nil && !info.IsDir() {
		return defaultPath, true, nil
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	return defaultPath, false, nil
}

// EnsureDirectories creates the log directory and the history database
// directory. The workspace itself is owned by the pipeline and never created here.
func (c *Config) EnsureDirectories() error {
	dirs := []string{c.Paths.LogDir}
	if c.History.Enabled && strings.TrimSpace(c.History.Path) != "" {
		dirs = append(dirs, filepath.Dir(c.History.Path))
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// VendorArchivePath returns where the vendor archive lands inside metadataDir.
func (c *Config) VendorArchivePath(metadataDir string) string {
	return filepath.Join(metadataDir, c.Vendor.ArchiveName)
}

// GrammarArchivePath returns where the grammar archive lands inside metadataDir.
func (c *Config) GrammarArchivePath(metadataDir string) string {
	return filepath.Join(metadataDir, c.Grammars.ArchiveName)
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	cleaned := filepath.Clean(pathValue)
	absolute, err := filepath.Abs(cleaned)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", cleaned, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}

	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
