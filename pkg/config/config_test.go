package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig(t *testing.T) {
	t.Run("MissingFileYieldsDefaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		require.NoError(t, err)
		assert.Equal(t, DefaultMaxSyncs, cfg.Settings.MaxConcurrentSyncs)
		assert.Equal(t, DefaultCacheTTL, cfg.Settings.CacheTTL)
		assert.Equal(t, "info", cfg.Settings.LogLevel)
	})

	t.Run("EmptyPathRejected", func(t *testing.T) {
		_, err := LoadConfig("")
		assert.ErrorIs(t, err, errors.ErrConfig)
	})

	t.Run("ParsesAndFillsDefaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "config.yaml")
		content := `
repos:
  - id: base
    url: https://example.com/base
    enabled: true
settings:
  http_timeout: 10s
  log_level: debug
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		require.Len(t, cfg.Repos, 1)
		assert.Equal(t, "base", cfg.Repos[0].ID)
		assert.Equal(t, KindAvailable, cfg.Repos[0].Kind)
		assert.Equal(t, 10*time.Second, cfg.Settings.HTTPTimeout)
		assert.Equal(t, "debug", cfg.Settings.LogLevel)
		assert.Equal(t, DefaultMaxSyncs, cfg.Settings.MaxConcurrentSyncs)
		assert.Equal(t, DefaultInstallonlyPkgs, cfg.Settings.InstallonlyPkgs)
	})

	t.Run("MalformedYAML", func(t *testing.T) {
		_, err := LoadConfigFromReader(strings.NewReader("settings: ["))
		assert.ErrorIs(t, err, errors.ErrConfigParse)
	})

	t.Run("DuplicateRepoIDs", func(t *testing.T) {
		content := `
repos:
  - id: base
    url: https://example.com/a
  - id: base
    url: https://example.com/b
`
		_, err := LoadConfigFromReader(strings.NewReader(content))
		assert.ErrorIs(t, err, errors.ErrDuplicateRepo)
	})
}

func TestParseRepoConfigs(t *testing.T) {
	t.Run("BareList", func(t *testing.T) {
		content := `
- id: base
  url: https://example.com/base
- id: fixtures
  kind: testcase
  path: /srv/fixtures.yaml
`
		repos, err := ParseRepoConfigs(strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, repos, 2)
		assert.Equal(t, KindAvailable, repos[0].Kind)
		assert.Equal(t, KindTestcase, repos[1].Kind)
	})

	t.Run("ReposKey", func(t *testing.T) {
		content := `
repos:
  - id: base
    url: https://example.com/base
`
		repos, err := ParseRepoConfigs(strings.NewReader(content))
		require.NoError(t, err)
		require.Len(t, repos, 1)
	})

	t.Run("MissingID", func(t *testing.T) {
		_, err := ParseRepoConfigs(strings.NewReader("- url: https://example.com\n"))
		assert.ErrorIs(t, err, errors.ErrEmptyRepoID)
	})

	t.Run("MissingSource", func(t *testing.T) {
		_, err := ParseRepoConfigs(strings.NewReader("- id: base\n"))
		assert.ErrorIs(t, err, errors.ErrRepoURLMissing)
	})

	t.Run("UnknownKind", func(t *testing.T) {
		content := `
- id: base
  kind: weird
  url: https://example.com
`
		_, err := ParseRepoConfigs(strings.NewReader(content))
		assert.ErrorIs(t, err, errors.ErrConfig)
	})
}
