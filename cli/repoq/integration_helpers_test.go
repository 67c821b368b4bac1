//go:build integration

package main

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/glorpus-work/repoq/pkg/system"
)

const sampleRepoMetadata = `{
  "packages": [
    {
      "name": "foo",
      "epoch": 1,
      "version": "2.0",
      "release": "1",
      "arch": "x86_64",
      "sourcerpm": "foo-2.0-1.src.rpm",
      "provides": ["libfoo = 2.0"],
      "files": ["/usr/bin/foo"]
    },
    {
      "name": "foo",
      "epoch": 1,
      "version": "1.0",
      "release": "1",
      "arch": "x86_64",
      "sourcerpm": "foo-1.0-1.src.rpm"
    },
    {
      "name": "bar",
      "version": "1.0",
      "release": "1",
      "arch": "x86_64",
      "requires": ["libfoo"]
    }
  ],
  "advisories": [
    {
      "id": "RQSA-2026:0001",
      "kind": "security",
      "severity": "important",
      "refs": [{"name": "foo", "evr": "1:2.0-1", "arch": "x86_64"}]
    },
    {
      "id": "RQBA-2026:0100",
      "kind": "bugfix",
      "severity": "moderate",
      "refs": [{"name": "foo", "evr": "1:1.5-1", "arch": "x86_64"}]
    }
  ]
}`

// layeredRepoMetadata holds two binaries of different names built from
// different versions of the same source package.
const layeredRepoMetadata = `{
  "packages": [
    {
      "name": "alpha",
      "version": "2.0",
      "release": "1",
      "arch": "x86_64",
      "sourcerpm": "proj-2.0-1.src.rpm"
    },
    {
      "name": "beta",
      "version": "1.0",
      "release": "1",
      "arch": "x86_64",
      "sourcerpm": "proj-1.0-1.src.rpm"
    }
  ]
}`

const layeredSourceMetadata = `{
  "packages": [
    {
      "name": "proj",
      "version": "2.0",
      "release": "1",
      "arch": "src"
    },
    {
      "name": "proj",
      "version": "1.0",
      "release": "1",
      "arch": "src"
    }
  ]
}`

// buildRepoDir writes a servable repository directory holding the sample
// metadata document.
func buildRepoDir(t *testing.T, root string) string {
	t.Helper()
	repoDir := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(repoDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "metadata.json"), []byte(sampleRepoMetadata), 0o644))
	return repoDir
}

// buildLayeredRepoDir writes the layered metadata plus a source/
// subdirectory, so the derived "<id>-source" repository resolves against
// the same server.
func buildLayeredRepoDir(t *testing.T, root string) string {
	t.Helper()
	repoDir := filepath.Join(root, "repo")
	require.NoError(t, os.MkdirAll(filepath.Join(repoDir, "source"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "metadata.json"), []byte(layeredRepoMetadata), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(repoDir, "source", "metadata.json"), []byte(layeredSourceMetadata), 0o644))
	return repoDir
}

// startRepoServer serves the given repository directory over HTTP.
func startRepoServer(t *testing.T, repoDir string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.FileServer(http.Dir(repoDir)))
	t.Cleanup(srv.Close)
	return srv
}

// writeTempConfig writes a minimal config YAML with a single repository.
func writeTempConfig(t *testing.T, path, repoID, repoURL, cacheDir, stateDir string) {
	t.Helper()
	yamlContent := `settings:
  cache_dir: ` + cacheDir + `
  state_dir: ` + stateDir + `
  http_timeout: 5s
  max_concurrent_syncs: 2
  log_level: error
repos:
  - id: ` + repoID + `
    url: ` + repoURL + `
    enabled: true
`
	require.NoError(t, os.WriteFile(path, []byte(yamlContent), 0o600))
}

// writeInstalledState persists a system state with one user-installed foo
// at the older version.
func writeInstalledState(t *testing.T, stateDir string) {
	t.Helper()
	st := system.NewState()
	st.Packages = append(st.Packages, &system.InstalledPackage{
		Name: "foo", Epoch: 1, Version: "1.0", Release: "1", Arch: "x86_64", Reason: "user",
	})
	require.NoError(t, os.MkdirAll(stateDir, 0o755))
	require.NoError(t, st.Save(filepath.Join(stateDir, "installed.json")))
}

// runCLI executes the root command with the given arguments and returns
// captured standard output lines.
func runCLI(t *testing.T, args ...string) []string {
	t.Helper()
	var out bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetArgs(args)
	require.NoError(t, cmd.ExecuteContext(context.Background()))

	text := strings.TrimSpace(out.String())
	if text == "" {
		return nil
	}
	return strings.Split(text, "\n")
}
