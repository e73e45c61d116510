package config

const (
	defaultConfigPath       = "~/.config/ppabuild/config.toml"
	projectConfigName       = "ppabuild.toml"
	defaultPackageName      = "helix"
	defaultSourceURL        = "https://github.com/helix-editor/helix/releases/download/{{.Version}}/helix-{{.Version}}-source.tar.xz"
	defaultArchiveExt       = "tar.xz"
	defaultDebianDir        = "debian"
	defaultWorkDir          = "target"
	defaultLogDir           = "~/.local/share/ppabuild/logs"
	defaultHistoryPath      = "~/.local/share/ppabuild/history.db"
	defaultUserAgent        = "ppabuild/dev"
	defaultChangelogTool    = "dch"
	defaultBuildTool        = "debuild"
	defaultVendorDirectory  = "vendor"
	defaultVendorArchive    = "vendor.tar.xz"
	defaultGrammarSourceDir = "runtime/grammars/sources"
	defaultGrammarArchive   = "grammars.src.tar.xz"
	defaultChangelogMessage = "No-change backport to {{.Codename}}"
	defaultLogFormat        = "console"
	defaultLogLevel         = "info"
	defaultLogRetentionDays = 30
	defaultNtfyTimeout      = 10
)

// Default returns a Config populated with repository defaults.
func Default() Config {
	return Config{
		Package: Package{
			Name:       defaultPackageName,
			SourceURL:  defaultSourceURL,
			ArchiveExt: defaultArchiveExt,
			DebianDir:  defaultDebianDir,
		},
		Paths: Paths{
			WorkDir: defaultWorkDir,
			LogDir:  defaultLogDir,
		},
		Fetch: Fetch{
			UserAgent: defaultUserAgent,
			Progress:  true,
		},
		Tools: Tools{
			Archive:   []string{"tar", "cJf"},
			Changelog: defaultChangelogTool,
			Build:     defaultBuildTool,
		},
		Vendor: Vendor{
			Command:     []string{"cargo", "vendor"},
			Directory:   defaultVendorDirectory,
			ArchiveName: defaultVendorArchive,
		},
		Grammars: Grammars{
			Enabled:     false,
			Command:     []string{"cargo", "build", "--release", "--locked"},
			SourceDir:   defaultGrammarSourceDir,
			ArchiveName: defaultGrammarArchive,
		},
		Changelog: Changelog{
			Message:         defaultChangelogMessage,
			ForceBadVersion: true,
		},
		Build: Build{
			Args: []string{"--no-lintian", "-S", "-sa"},
		},
		History: History{
			Enabled: true,
			Path:    defaultHistoryPath,
		},
		Notifications: Notifications{
			RequestTimeoutSeconds: defaultNtfyTimeout,
		},
		Logging: Logging{
			Format:        defaultLogFormat,
			Level:         defaultLogLevel,
			RetentionDays: defaultLogRetentionDays,
		},
	}
}
