package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

func (c *Config) normalize() error {
	if err := c.normalizePackage(); err != nil {
		return err
	}
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeFetch()
	c.normalizeTools()
	c.normalizeVendor()
	c.normalizeChangelog()
	if err := c.normalizeBuild(); err != nil {
		return err
	}
	if err := c.normalizeHistory(); err != nil {
		return err
	}
	c.Notifications.NtfyTopic = strings.TrimSpace(c.Notifications.NtfyTopic)
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePackage() error {
	c.Package.Name = strings.TrimSpace(c.Package.Name)
	c.Package.SourceURL = strings.TrimSpace(c.Package.SourceURL)
	if c.Package.SourceURL == "" {
		c.Package.SourceURL = defaultSourceURL
	}
	c.Package.ArchiveExt = strings.TrimPrefix(strings.TrimSpace(c.Package.ArchiveExt), ".")
	if c.Package.ArchiveExt == "" {
		c.Package.ArchiveExt = defaultArchiveExt
	}
	if strings.TrimSpace(c.Package.DebianDir) == "" {
		c.Package.DebianDir = defaultDebianDir
	}
	var err error
	if c.Package.DebianDir, err = expandPath(strings.TrimSpace(c.Package.DebianDir)); err != nil {
		return fmt.Errorf("package.debian_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizePaths() error {
	if strings.TrimSpace(c.Paths.WorkDir) == "" {
		c.Paths.WorkDir = defaultWorkDir
	}
	var err error
	if c.Paths.WorkDir, err = expandPath(strings.TrimSpace(c.Paths.WorkDir)); err != nil {
		return fmt.Errorf("paths.work_dir: %w", err)
	}
	if strings.TrimSpace(c.Paths.LogDir) == "" {
		c.Paths.LogDir = defaultLogDir
	}
	if c.Paths.LogDir, err = expandPath(strings.TrimSpace(c.Paths.LogDir)); err != nil {
		return fmt.Errorf("paths.log_dir: %w", err)
	}
	return nil
}

func (c *Config) normalizeFetch() {
	c.Fetch.UserAgent = strings.TrimSpace(c.Fetch.UserAgent)
	if c.Fetch.UserAgent == "" {
		c.Fetch.UserAgent = defaultUserAgent
	}
}

func (c *Config) normalizeTools() {
	c.Tools.Archive = trimArgs(c.Tools.Archive)
	c.Tools.Changelog = strings.TrimSpace(c.Tools.Changelog)
	if c.Tools.Changelog == "" {
		c.Tools.Changelog = defaultChangelogTool
	}
	c.Tools.Build = strings.TrimSpace(c.Tools.Build)
	if c.Tools.Build == "" {
		c.Tools.Build = defaultBuildTool
	}
}

func (c *Config) normalizeVendor() {
	c.Vendor.Command = trimArgs(c.Vendor.Command)
	c.Vendor.Directory = filepath.Clean(strings.TrimSpace(c.Vendor.Directory))
	if c.Vendor.Directory == "." {
		c.Vendor.Directory = defaultVendorDirectory
	}
	c.Vendor.ArchiveName = strings.TrimSpace(c.Vendor.ArchiveName)
	if c.Vendor.ArchiveName == "" {
		c.Vendor.ArchiveName = defaultVendorArchive
	}

	c.Grammars.Command = trimArgs(c.Grammars.Command)
	c.Grammars.SourceDir = filepath.Clean(strings.TrimSpace(c.Grammars.SourceDir))
	if c.Grammars.SourceDir == "." {
		c.Grammars.SourceDir = defaultGrammarSourceDir
	}
	c.Grammars.ArchiveName = strings.TrimSpace(c.Grammars.ArchiveName)
	if c.Grammars.ArchiveName == "" {
		c.Grammars.ArchiveName = defaultGrammarArchive
	}
}

func (c *Config) normalizeChangelog() {
	c.Changelog.Message = strings.TrimSpace(c.Changelog.Message)
	if c.Changelog.Message == "" {
		c.Changelog.Message = defaultChangelogMessage
	}
	c.Changelog.MaintainerName = strings.TrimSpace(c.Changelog.MaintainerName)
	if c.Changelog.MaintainerName == "" {
		if value, ok := os.LookupEnv("DEBFULLNAME"); ok {
			c.Changelog.MaintainerName = strings.TrimSpace(value)
		}
	}
	c.Changelog.MaintainerEmail = strings.TrimSpace(c.Changelog.MaintainerEmail)
	if c.Changelog.MaintainerEmail == "" {
		if value, ok := os.LookupEnv("DEBEMAIL"); ok {
			c.Changelog.MaintainerEmail = strings.TrimSpace(value)
		}
	}
}

func (c *Config) normalizeBuild() error {
	c.Build.Args = trimArgs(c.Build.Args)
	c.Build.SigningKey = strings.TrimSpace(c.Build.SigningKey)
	if c.Build.SigningKey == "" {
		if value, ok := os.LookupEnv("PPABUILD_SIGNING_KEY"); ok {
			c.Build.SigningKey = strings.TrimSpace(value)
		}
	}
	if c.Build.SigningKey != "" {
		var err error
		if c.Build.SigningKey, err = expandPath(c.Build.SigningKey); err != nil {
			return fmt.Errorf("build.signing_key: %w", err)
		}
	}
	return nil
}

func (c *Config) normalizeHistory() error {
	if strings.TrimSpace(c.History.Path) == "" {
		c.History.Path = defaultHistoryPath
	}
	var err error
	if c.History.Path, err = expandPath(strings.TrimSpace(c.History.Path)); err != nil {
		return fmt.Errorf("history.path: %w", err)
	}
	return nil
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	if c.Logging.Format == "" {
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func trimArgs(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
