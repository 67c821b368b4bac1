package repo

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/glorpus-work/repoq/pkg/config"
	"github.com/glorpus-work/repoq/pkg/download"
	pkgerrors "github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/pool"
	"github.com/glorpus-work/repoq/pkg/system"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleMetadata = `{
  "packages": [
    {
      "name": "foo", "epoch": 1, "version": "2.0", "release": "1", "arch": "x86_64",
      "provides": ["libfoo = 2.0"],
      "files": ["/usr/bin/foo"]
    },
    {"name": "bar", "version": "1.0", "release": "1", "arch": "noarch"}
  ],
  "advisories": [
    {
      "id": "SA-2026:1", "kind": "security", "severity": "critical",
      "refs": [{"name": "foo", "evr": "1:2.0-1", "arch": "x86_64"}]
    }
  ]
}`

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func configuredRepo(t *testing.T, cfg *config.RepoConfig) *Repository {
	t.Helper()
	r := New(cfg.ID, KindFromConfig(cfg.Kind))
	require.NoError(t, r.Configure(cfg))
	return r
}

func TestConfigure(t *testing.T) {
	t.Run("Transitions", func(t *testing.T) {
		r := New("base", KindAvailable)
		assert.Equal(t, StateUnconfigured, r.State())

		err := r.Configure(&config.RepoConfig{ID: "base", Kind: config.KindAvailable, URL: "https://example.com", Enabled: true})
		require.NoError(t, err)
		assert.Equal(t, StateConfigured, r.State())
		assert.True(t, r.Enabled())
	})

	t.Run("TwiceRejected", func(t *testing.T) {
		cfg := &config.RepoConfig{ID: "base", Kind: config.KindAvailable, URL: "https://example.com"}
		r := configuredRepo(t, cfg)
		err := r.Configure(cfg)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidRepoState)
	})

	t.Run("InvalidDefinition", func(t *testing.T) {
		r := New("base", KindAvailable)
		err := r.Configure(&config.RepoConfig{ID: "base", Kind: config.KindAvailable})
		assert.ErrorIs(t, err, pkgerrors.ErrRepoURLMissing)
		assert.Equal(t, StateUnconfigured, r.State())
	})
}

func TestSync(t *testing.T) {
	ctx := context.Background()

	t.Run("LocalPath", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "metadata.json", sampleMetadata)
		r := configuredRepo(t, &config.RepoConfig{ID: "local", Kind: config.KindAvailable, Path: path, Enabled: true})

		require.NoError(t, r.Sync(ctx, SyncOptions{}))
		assert.Equal(t, StateSynced, r.State())
	})

	t.Run("RemoteFetch", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			require.Equal(t, "/base/metadata.json", req.URL.Path)
			_, _ = w.Write([]byte(sampleMetadata))
		}))
		defer srv.Close()

		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, URL: srv.URL + "/base", Enabled: true})
		opts := SyncOptions{
			Downloader: download.NewManager(5*time.Second, ""),
			CacheDir:   t.TempDir(),
		}
		require.NoError(t, r.Sync(ctx, opts))
		assert.Equal(t, StateSynced, r.State())
		assert.FileExists(t, filepath.Join(opts.CacheDir, "base", MetadataFilename))
	})

	t.Run("FreshCacheSkipsFetch", func(t *testing.T) {
		cacheDir := t.TempDir()
		require.NoError(t, os.MkdirAll(filepath.Join(cacheDir, "base"), 0o755))
		writeFile(t, filepath.Join(cacheDir, "base"), MetadataFilename, sampleMetadata)

		// No server behind the URL: a fetch attempt would fail.
		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, URL: "http://127.0.0.1:1", Enabled: true})
		opts := SyncOptions{
			Downloader: download.NewManager(time.Second, ""),
			CacheDir:   cacheDir,
			TTL:        time.Hour,
		}
		require.NoError(t, r.Sync(ctx, opts))
		assert.Equal(t, StateSynced, r.State())
	})

	t.Run("NetworkFailure", func(t *testing.T) {
		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, URL: "http://127.0.0.1:1", Enabled: true})
		opts := SyncOptions{
			Downloader: download.NewManager(time.Second, ""),
			CacheDir:   t.TempDir(),
		}
		err := r.Sync(ctx, opts)
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrSync)
		assert.Equal(t, StateFailed, r.State())
	})

	t.Run("FailedIsRetryable", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "metadata.json", sampleMetadata)
		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, URL: "http://127.0.0.1:1", Enabled: true})
		opts := SyncOptions{Downloader: download.NewManager(time.Second, ""), CacheDir: t.TempDir()}
		require.Error(t, r.Sync(ctx, opts))

		// A second attempt with a working source succeeds.
		r.cfg.URL = ""
		r.cfg.Path = path
		require.NoError(t, r.Sync(ctx, opts))
		assert.Equal(t, StateSynced, r.State())
		assert.NoError(t, r.LastError())
	})

	t.Run("SignatureFailure", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "metadata.json", sampleMetadata)
		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, Path: path, Enabled: true, GPGCheck: true})

		err := r.Sync(ctx, SyncOptions{Verifier: failingVerifier{}})
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrSignature)
		// The repository stays retryable after a key import.
		require.NoError(t, r.Sync(ctx, SyncOptions{Verifier: passingVerifier{}}))
		assert.Equal(t, StateSynced, r.State())
	})

	t.Run("UnconfiguredRejected", func(t *testing.T) {
		r := New("base", KindAvailable)
		err := r.Sync(ctx, SyncOptions{})
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidRepoState)
	})
}

type failingVerifier struct{}

func (failingVerifier) Verify(context.Context, string, string) error {
	return pkgerrors.Wrap(pkgerrors.ErrSignature, "untrusted key")
}

type passingVerifier struct{}

func (passingVerifier) Verify(context.Context, string, string) error { return nil }

func TestLoad(t *testing.T) {
	ctx := context.Background()

	t.Run("AvailableJSON", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "metadata.json", sampleMetadata)
		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, Path: path, Enabled: true})
		require.NoError(t, r.Sync(ctx, SyncOptions{}))

		p := pool.New()
		require.NoError(t, r.Load(ctx, p, nil))
		assert.Equal(t, StateLoaded, r.State())
		assert.Equal(t, 2, p.Count())
		require.Len(t, p.Advisories(), 1)
		assert.Equal(t, "SA-2026:1", p.Advisories()[0].ID)

		foo := p.Get(1)
		assert.Equal(t, "foo", foo.Name())
		assert.Equal(t, 1, foo.Epoch())
		assert.Equal(t, "base", foo.RepoID())
		assert.False(t, foo.Installed())
	})

	t.Run("Idempotent", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "metadata.json", sampleMetadata)
		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, Path: path, Enabled: true})
		require.NoError(t, r.Sync(ctx, SyncOptions{}))

		p := pool.New()
		require.NoError(t, r.Load(ctx, p, nil))
		require.NoError(t, r.Load(ctx, p, nil))
		assert.Equal(t, 2, p.Count())
	})

	t.Run("TestcaseYAML", func(t *testing.T) {
		fixture := `
packages:
  - name: fixture-pkg
    version: "1.0"
    release: "1"
    arch: noarch
    provides: ["fixture-pkg = 1.0"]
`
		path := writeFile(t, t.TempDir(), "fixture.yaml", fixture)
		r := configuredRepo(t, &config.RepoConfig{ID: "fixtures", Kind: config.KindTestcase, Path: path, Enabled: true})
		require.NoError(t, r.Sync(ctx, SyncOptions{}))

		p := pool.New()
		require.NoError(t, r.Load(ctx, p, nil))
		assert.Equal(t, 1, p.Count())
		assert.Equal(t, "fixture-pkg", p.Get(1).Name())
	})

	t.Run("System", func(t *testing.T) {
		state := system.NewState()
		state.Packages = []*system.InstalledPackage{
			{Name: "app", Version: "1.0", Release: "1", Arch: "x86_64", Reason: "user"},
		}
		r := New("@system", KindSystem)
		r.configureInternal()
		require.NoError(t, r.Sync(ctx, SyncOptions{}))

		p := pool.New()
		require.NoError(t, r.Load(ctx, p, state))
		require.Equal(t, 1, p.Count())
		assert.True(t, p.Get(1).Installed())
		assert.Equal(t, "@system", p.Get(1).RepoID())
	})

	t.Run("MalformedMetadata", func(t *testing.T) {
		path := writeFile(t, t.TempDir(), "metadata.json", "{broken")
		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, Path: path, Enabled: true})
		require.NoError(t, r.Sync(ctx, SyncOptions{}))

		err := r.Load(ctx, pool.New(), nil)
		require.Error(t, err)
		assert.ErrorIs(t, err, pkgerrors.ErrParse)
		assert.Equal(t, StateFailed, r.State())
		assert.Error(t, r.LastError())
	})

	t.Run("NotSyncedRejected", func(t *testing.T) {
		r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, URL: "https://example.com", Enabled: true})
		err := r.Load(ctx, pool.New(), nil)
		assert.ErrorIs(t, err, pkgerrors.ErrInvalidRepoState)
	})
}

func TestLoadFilelists(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	metadata := `{
  "packages": [{"name": "foo", "version": "1.0", "release": "1", "arch": "x86_64"}],
  "filelists": "filelists.json"
}`
	filelists := `{
  "packages": [
    {"name": "foo", "version": "1.0", "release": "1", "arch": "x86_64", "files": ["/usr/bin/foo", "/etc/foo.conf"]},
    {"name": "ghost", "version": "9", "release": "1", "arch": "noarch", "files": ["/usr/bin/ghost"]}
  ]
}`
	path := writeFile(t, dir, "metadata.json", metadata)
	writeFile(t, dir, "filelists.json", filelists)

	r := configuredRepo(t, &config.RepoConfig{ID: "base", Kind: config.KindAvailable, Path: path, Enabled: true})
	require.NoError(t, r.Sync(ctx, SyncOptions{}))

	p := pool.New()
	require.NoError(t, r.Load(ctx, p, nil))
	assert.Empty(t, p.Get(1).Files())

	require.NoError(t, r.LoadFilelists(ctx, p))
	assert.Equal(t, []string{"/usr/bin/foo", "/etc/foo.conf"}, p.Get(1).Files())
	// The unknown entry is skipped, not interned.
	assert.Equal(t, 1, p.Count())
}
