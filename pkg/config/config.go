// Package config loads daemon configuration from, in priority order,
// built-in defaults, a canonmap.toml file, environment variables, and
// CLI flags.
package config

import (
	"flag"
	"fmt"
	"os"

	"github.com/BurntSushi/toml"
)

// Remote configures the GitHub repository the graph document syncs to.
// The token is a plain personal access token: single-editor local
// tooling, no secret manager involved.
type Remote struct {
	Owner    string `toml:"owner"`
	Repo     string `toml:"repo"`
	Token    string `toml:"token"`
	FilePath string `toml:"file_path"`
}

// Config is the full daemon configuration.
type Config struct {
	// DataPath is the local graph document.
	DataPath string `toml:"data_path"`
	// DBPath is the SQLite database holding routine state.
	DBPath string `toml:"db_path"`
	// Addr is the HTTP listen address.
	Addr string `toml:"addr"`
	// WebDir serves the UI from disk when set; empty means the
	// embedded assets.
	WebDir string `toml:"web_dir"`
	// TemplateDir holds the CPD/CCD markdown templates.
	TemplateDir string `toml:"template_dir"`
	// VacationStart (YYYY-MM-DD) arms the pre-vacation hardening
	// check for the 14 days before it. Empty disables it.
	VacationStart string `toml:"vacation_start"`
	// BackupDir receives a document snapshot on every local edit.
	// Empty disables snapshots.
	BackupDir string `toml:"backup_dir"`

	Remote Remote `toml:"remote"`
}

func setDefaults(cfg *Config) {
	cfg.DataPath = "public/data.json"
	cfg.DBPath = "canonmap.db"
	cfg.Addr = ":8080"
	cfg.TemplateDir = "docs/templates"
	cfg.BackupDir = ".canonmap/backups"
	cfg.Remote.FilePath = "public/data.json"
}

// findConfigFile looks for a project config in the current directory.
func findConfigFile() string {
	for _, name := range []string{"canonmap.toml", ".canonmap.toml"} {
		if _, err := os.Stat(name); err == nil {
			return name
		}
	}
	return ""
}

func loadConfigFile(cfg *Config, path string) error {
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return err
	}
	return nil
}

func loadFromEnv(cfg *Config) {
	set := func(dst *string, key string) {
		if v := os.Getenv(key); v != "" {
			*dst = v
		}
	}
	set(&cfg.DataPath, "CANONMAP_DATA")
	set(&cfg.DBPath, "CANONMAP_DB")
	set(&cfg.Addr, "CANONMAP_ADDR")
	set(&cfg.WebDir, "CANONMAP_WEB_DIR")
	set(&cfg.TemplateDir, "CANONMAP_TEMPLATE_DIR")
	set(&cfg.VacationStart, "CANONMAP_VACATION_START")
	set(&cfg.BackupDir, "CANONMAP_BACKUP_DIR")
	set(&cfg.Remote.Owner, "CANONMAP_GITHUB_OWNER")
	set(&cfg.Remote.Repo, "CANONMAP_GITHUB_REPO")
	set(&cfg.Remote.Token, "CANONMAP_GITHUB_TOKEN")
	set(&cfg.Remote.FilePath, "CANONMAP_GITHUB_FILE")
}

func registerFlags(cfg *Config, fs *flag.FlagSet) {
	fs.StringVar(&cfg.DataPath, "data", cfg.DataPath, "path to the graph document")
	fs.StringVar(&cfg.DBPath, "db", cfg.DBPath, "path to the sqlite database")
	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "http listen address")
	fs.StringVar(&cfg.WebDir, "web-dir", cfg.WebDir, "serve UI assets from this directory instead of the embedded copy")
	fs.StringVar(&cfg.TemplateDir, "template-dir", cfg.TemplateDir, "directory with CPD/CCD markdown templates")
	fs.StringVar(&cfg.VacationStart, "vacation-start", cfg.VacationStart, "vacation start date (YYYY-MM-DD)")
	fs.StringVar(&cfg.BackupDir, "backup-dir", cfg.BackupDir, "directory for document snapshots, empty to disable")
	fs.StringVar(&cfg.Remote.Owner, "github-owner", cfg.Remote.Owner, "github repository owner")
	fs.StringVar(&cfg.Remote.Repo, "github-repo", cfg.Remote.Repo, "github repository name")
	fs.StringVar(&cfg.Remote.Token, "github-token", cfg.Remote.Token, "github personal access token")
}

// Load resolves the configuration from all sources. Later sources win:
// defaults, then canonmap.toml, then environment, then flags.
func Load(fs *flag.FlagSet, args []string) (*Config, error) {
	cfg := &Config{}
	setDefaults(cfg)

	if path := findConfigFile(); path != "" {
		if err := loadConfigFile(cfg, path); err != nil {
			return nil, fmt.Errorf("loading config file %s: %w", path, err)
		}
	}

	loadFromEnv(cfg)

	registerFlags(cfg, fs)
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parsing flags: %w", err)
	}

	return cfg, nil
}

// RemoteConfigured reports whether the sync client has enough to talk
// to GitHub.
func (c *Config) RemoteConfigured() bool {
	return c.Remote.Owner != "" && c.Remote.Repo != "" && c.Remote.Token != ""
}
