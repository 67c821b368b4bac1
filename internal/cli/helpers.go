package cli

import (
	"fmt"

	"github.com/glorpus-work/repoq/pkg/base"
	"github.com/glorpus-work/repoq/pkg/config"
)

// These variables will be set by the main package
var (
	ConfigPath *string
	Verbose    *bool
)

// loadConfig loads the main configuration file, preferring the path given
// on the command line over the default location. A missing file yields the
// built-in defaults.
func loadConfig() (*config.Config, error) {
	path := ""
	if ConfigPath != nil {
		path = *ConfigPath
	}
	if path == "" {
		defaultPath, err := config.GetDefaultConfigPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	if Verbose != nil && *Verbose {
		cfg.Settings.LogLevel = "debug"
	}
	return cfg, nil
}

// newSession loads the configuration and builds a ready session with the
// configured repositories registered on the sack. Drop-in repository
// definitions from the default repos.d directory are merged in.
func newSession() (*base.Base, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	b := base.New(cfg)
	if err := b.Setup(); err != nil {
		return nil, fmt.Errorf("failed to set up session: %w", err)
	}

	s := b.Sack()
	if err := s.CreateReposFromConfig(); err != nil {
		return nil, err
	}
	reposDir, err := config.GetDefaultReposDir()
	if err != nil {
		return nil, err
	}
	if err := s.CreateReposFromDirs([]string{reposDir}); err != nil {
		return nil, err
	}
	return b, nil
}
