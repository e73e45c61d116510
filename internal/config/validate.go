package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"text/template"
)

var supportedArchiveExts = map[string]bool{
	"tar.xz":  true,
	"tar.gz":  true,
	"tgz":     true,
	"tar.zst": true,
	"tar.lz4": true,
	"tar.bz2": true,
}

// Validate ensures the configuration is usable.
func (c *Config) Validate() error {
	if err := c.validatePackage(); err != nil {
		return err
	}
	if err := c.validatePaths(); err != nil {
		return err
	}
	if c.Fetch.TimeoutSeconds < 0 {
		return errors.New("fetch.timeout_seconds must be non-negative")
	}
	if err := c.validateTools(); err != nil {
		return err
	}
	if err := c.validateVendor(); err != nil {
		return err
	}
	if err := c.validateChangelog(); err != nil {
		return err
	}
	if err := c.validateNotifications(); err != nil {
		return err
	}
	if err := c.validateLogging(); err != nil {
		return err
	}
	return nil
}

func (c *Config) validateNotifications() error {
	topic := c.Notifications.NtfyTopic
	if topic != "" && !strings.HasPrefix(topic, "https://") && !strings.HasPrefix(topic, "http://") {
		return fmt.Errorf("notifications.ntfy_topic %q must be an http(s) URL", topic)
	}
	if c.Notifications.RequestTimeoutSeconds < 0 {
		return errors.New("notifications.request_timeout_seconds must be non-negative")
	}
	return nil
}

func (c *Config) validatePackage() error {
	if c.Package.Name == "" {
		return errors.New("package.name must be set")
	}
	if strings.ContainsAny(c.Package.Name, " /_") {
		return fmt.Errorf("package.name %q must not contain spaces, slashes or underscores", c.Package.Name)
	}
	tmpl, err := template.New("source_url").Option("missingkey=error").Parse(c.Package.SourceURL)
	if err != nil {
		return fmt.Errorf("package.source_url: %w", err)
	}
	const probe = "version-probe"
	var rendered strings.Builder
	if err := tmpl.Execute(&rendered, map[string]string{"Version": probe, "Package": c.Package.Name}); err != nil {
		return fmt.Errorf("package.source_url: %w", err)
	}
	if !strings.Contains(rendered.String(), probe) {
		return errors.New("package.source_url must reference {{.Version}}")
	}
	if !strings.HasPrefix(rendered.String(), "https://") && !strings.HasPrefix(rendered.String(), "http://") {
		return errors.New("package.source_url must be an http(s) URL")
	}
	if !supportedArchiveExts[c.Package.ArchiveExt] {
		return fmt.Errorf("package.archive_ext %q is not supported", c.Package.ArchiveExt)
	}
	if c.Package.StripComponents < 0 {
		return errors.New("package.strip_components must be non-negative")
	}
	return nil
}

func (c *Config) validatePaths() error {
	if c.Paths.WorkDir == filepath.Dir(c.Paths.WorkDir) {
		return fmt.Errorf("paths.work_dir %q must not be a filesystem root", c.Paths.WorkDir)
	}
	if c.Package.DebianDir == c.Paths.WorkDir || isWithin(c.Paths.WorkDir, c.Package.DebianDir) {
		return errors.New("package.debian_dir must live outside paths.work_dir")
	}
	return nil
}

func (c *Config) validateTools() error {
	if len(c.Tools.Archive) == 0 {
		return errors.New("tools.archive must name a command")
	}
	if c.Tools.Changelog == "" {
		return errors.New("tools.changelog must be set")
	}
	if c.Tools.Build == "" {
		return errors.New("tools.build must be set")
	}
	return nil
}

func (c *Config) validateVendor() error {
	if len(c.Vendor.Command) == 0 {
		return errors.New("vendor.command must name a command")
	}
	if err := relativeInside("vendor.directory", c.Vendor.Directory); err != nil {
		return err
	}
	if strings.ContainsRune(c.Vendor.ArchiveName, filepath.Separator) {
		return errors.New("vendor.archive_name must be a file name")
	}
	if !c.Grammars.Enabled {
		return nil
	}
	if len(c.Grammars.Command) == 0 {
		return errors.New("grammars.command must name a command when grammars are enabled")
	}
	if err := relativeInside("grammars.source_dir", c.Grammars.SourceDir); err != nil {
		return err
	}
	if strings.ContainsRune(c.Grammars.ArchiveName, filepath.Separator) {
		return errors.New("grammars.archive_name must be a file name")
	}
	if c.Grammars.ArchiveName == c.Vendor.ArchiveName {
		return errors.New("grammars.archive_name must differ from vendor.archive_name")
	}
	return nil
}

func (c *Config) validateChangelog() error {
	if _, err := template.New("message").Option("missingkey=error").Parse(c.Changelog.Message); err != nil {
		return fmt.Errorf("changelog.message: %w", err)
	}
	if c.Changelog.MaintainerEmail != "" && !strings.Contains(c.Changelog.MaintainerEmail, "@") {
		return fmt.Errorf("changelog.maintainer_email %q is not an email address", c.Changelog.MaintainerEmail)
	}
	return nil
}

func (c *Config) validateLogging() error {
	if c.Logging.RetentionDays < 0 {
		return errors.New("logging.retention_days must be non-negative")
	}
	switch c.Logging.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logging.format %q must be console or json", c.Logging.Format)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be debug, info, warn or error", c.Logging.Level)
	}
	return nil
}

func relativeInside(key, value string) error {
	if value == "" {
		return fmt.Errorf("%s must be set", key)
	}
	if filepath.IsAbs(value) {
		return fmt.Errorf("%s must be relative to the source tree", key)
	}
	if value == ".." || strings.HasPrefix(value, ".."+string(filepath.Separator)) {
		return fmt.Errorf("%s must stay inside the source tree", key)
	}
	return nil
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && rel != "."
}
