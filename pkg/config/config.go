// Package config provides configuration management for repoq. It handles
// loading and validating application settings and repository definitions
// from YAML files, with sensible defaults applied for everything left
// unset.
package config

import (
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/repoq/pkg/errors"
	"gopkg.in/yaml.v3"
)

// Config represents the application configuration.
type Config struct {
	// Repository definitions bundled with the main configuration.
	// Additional definitions can come from drop-in files and directories.
	Repos []*RepoConfig `yaml:"repos"`

	Settings Settings `yaml:"settings"`
}

// Settings represents general application settings.
type Settings struct {
	// Cache settings
	CacheDir string        `yaml:"cache_dir,omitempty"`
	CacheTTL time.Duration `yaml:"cache_ttl"`

	// State settings
	StateDir string `yaml:"state_dir,omitempty"`

	// Network settings
	HTTPTimeout        time.Duration `yaml:"http_timeout"`
	MaxConcurrentSyncs int           `yaml:"max_concurrent_syncs"`

	// Query behavior
	InstallonlyPkgs   []string `yaml:"installonly_pkgs,omitempty"`
	ProtectedPackages []string `yaml:"protected_packages,omitempty"`
	RecentDays        int      `yaml:"recent_days"`

	// Output settings
	LogLevel string `yaml:"log_level"` // error, warn, info, debug
}

// Default configuration values.
const (
	DefaultCacheTTL    = 48 * time.Hour
	DefaultHTTPTimeout = 30 * time.Second
	DefaultMaxSyncs    = 3
	DefaultRecentDays  = 7
)

// DefaultInstallonlyPkgs are the package name patterns expected to have
// several versions installed at once.
var DefaultInstallonlyPkgs = []string{
	"kernel", "kernel-core", "kernel-modules", "kernel-devel",
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	cacheDir, err := os.UserCacheDir()
	if err != nil {
		cacheDir = "."
	}
	stateDir, err := os.UserConfigDir()
	if err != nil {
		stateDir = "."
	}
	return &Config{
		Repos: []*RepoConfig{},
		Settings: Settings{
			CacheDir:           filepath.Join(cacheDir, "repoq"),
			StateDir:           filepath.Join(stateDir, "repoq"),
			CacheTTL:           DefaultCacheTTL,
			HTTPTimeout:        DefaultHTTPTimeout,
			MaxConcurrentSyncs: DefaultMaxSyncs,
			InstallonlyPkgs:    DefaultInstallonlyPkgs,
			RecentDays:         DefaultRecentDays,
			LogLevel:           "info",
		},
	}
}

// LoadConfig loads configuration from a file. A missing file yields the
// defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, errors.Wrap(errors.ErrConfig, "empty config path")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrInvalidPath, err.Error())
	}
	file, err := os.Open(absPath)
	if err != nil {
		if os.IsNotExist(err) {
			return DefaultConfig(), nil
		}
		return nil, errors.Wrapf(err, "failed to open config file: %s", path)
	}
	defer func() { _ = file.Close() }()

	return LoadConfigFromReader(file)
}

// LoadConfigFromReader loads configuration from an io.Reader.
func LoadConfigFromReader(reader io.Reader) (*Config, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read config data")
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
	}

	config.applyDefaults()
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

func (c *Config) applyDefaults() {
	def := DefaultConfig()
	if c.Settings.CacheDir == "" {
		c.Settings.CacheDir = def.Settings.CacheDir
	}
	if c.Settings.CacheTTL == 0 {
		c.Settings.CacheTTL = def.Settings.CacheTTL
	}
	if c.Settings.StateDir == "" {
		c.Settings.StateDir = def.Settings.StateDir
	}
	if c.Settings.HTTPTimeout == 0 {
		c.Settings.HTTPTimeout = def.Settings.HTTPTimeout
	}
	if c.Settings.MaxConcurrentSyncs == 0 {
		c.Settings.MaxConcurrentSyncs = def.Settings.MaxConcurrentSyncs
	}
	if c.Settings.InstallonlyPkgs == nil {
		c.Settings.InstallonlyPkgs = def.Settings.InstallonlyPkgs
	}
	if c.Settings.RecentDays == 0 {
		c.Settings.RecentDays = def.Settings.RecentDays
	}
	if c.Settings.LogLevel == "" {
		c.Settings.LogLevel = def.Settings.LogLevel
	}
	for _, repo := range c.Repos {
		repo.applyDefaults()
	}
}

// GetDefaultConfigPath returns the default location of the main
// configuration file.
func GetDefaultConfigPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving config directory")
	}
	return filepath.Join(dir, "repoq", "config.yaml"), nil
}

// GetDefaultReposDir returns the default drop-in directory for repository
// definition files.
func GetDefaultReposDir() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", errors.Wrap(err, "resolving config directory")
	}
	return filepath.Join(dir, "repoq", "repos.d"), nil
}

// InstalledDBPath returns the location of the installed package state
// file.
func (s *Settings) InstalledDBPath() string {
	return filepath.Join(s.StateDir, "installed.json")
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if c == nil {
		return errors.Wrap(errors.ErrConfig, "nil configuration")
	}
	seen := make(map[string]bool)
	for _, repo := range c.Repos {
		if err := repo.Validate(); err != nil {
			return err
		}
		if seen[repo.ID] {
			return errors.Wrapf(errors.ErrDuplicateRepo, "repository %q defined twice", repo.ID)
		}
		seen[repo.ID] = true
	}
	if c.Settings.MaxConcurrentSyncs < 0 {
		return errors.Wrap(errors.ErrConfig, "max_concurrent_syncs must not be negative")
	}
	return nil
}
