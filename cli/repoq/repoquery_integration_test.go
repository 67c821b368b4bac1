//go:build integration

package main

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func queryFixture(t *testing.T) string {
	t.Helper()
	tempDir := t.TempDir()
	repoDir := buildRepoDir(t, tempDir)
	srv := startRepoServer(t, repoDir)

	cfgPath := filepath.Join(tempDir, "config.yaml")
	stateDir := filepath.Join(tempDir, "state")
	writeTempConfig(t, cfgPath, "testrepo", srv.URL, filepath.Join(tempDir, "cache"), stateDir)
	writeInstalledState(t, stateDir)
	return cfgPath
}

func TestRepoquery_ListsWholeUniverse(t *testing.T) {
	cfgPath := queryFixture(t)

	lines := runCLI(t, "--config", cfgPath, "repoquery")
	assert.Equal(t, []string{
		"bar-1.0-1.x86_64",
		"foo-1:1.0-1.x86_64",
		"foo-1:2.0-1.x86_64",
	}, lines)
}

func TestRepoquery_SpecSelectsByName(t *testing.T) {
	cfgPath := queryFixture(t)

	lines := runCLI(t, "--config", cfgPath, "repoquery", "bar")
	assert.Equal(t, []string{"bar-1.0-1.x86_64"}, lines)
}

func TestRepoquery_WhatProvidesCapability(t *testing.T) {
	cfgPath := queryFixture(t)

	lines := runCLI(t, "--config", cfgPath, "repoquery", "--whatprovides", "libfoo")
	assert.Equal(t, []string{"foo-1:2.0-1.x86_64"}, lines)
}

func TestRepoquery_WhatRequiresExpandsPackageName(t *testing.T) {
	cfgPath := queryFixture(t)

	lines := runCLI(t, "--config", cfgPath, "repoquery", "--whatrequires", "foo")
	assert.Equal(t, []string{"bar-1.0-1.x86_64"}, lines)
}

func TestRepoquery_FileOwnership(t *testing.T) {
	cfgPath := queryFixture(t)

	lines := runCLI(t, "--config", cfgPath, "repoquery", "--file", "/usr/bin/foo")
	assert.Equal(t, []string{"foo-1:2.0-1.x86_64"}, lines)
}

func TestRepoquery_InstalledAndUpgrades(t *testing.T) {
	cfgPath := queryFixture(t)

	installed := runCLI(t, "--config", cfgPath, "repoquery", "--installed")
	assert.Equal(t, []string{"foo-1:1.0-1.x86_64"}, installed)

	upgrades := runCLI(t, "--config", cfgPath, "repoquery", "--upgrades")
	assert.Equal(t, []string{"foo-1:2.0-1.x86_64"}, upgrades)
}

func TestRepoquery_LatestLimit(t *testing.T) {
	cfgPath := queryFixture(t)

	lines := runCLI(t, "--config", cfgPath, "repoquery", "--available", "--latest-limit", "1", "foo")
	assert.Equal(t, []string{"foo-1:2.0-1.x86_64"}, lines)
}

func TestRepoquery_AdvisoryMatchesFixAndNewer(t *testing.T) {
	cfgPath := queryFixture(t)

	// The advisory references foo 1:1.5-1; the fixed 1:2.0-1 build is
	// covered, the older installed 1:1.0-1 is not.
	lines := runCLI(t, "--config", cfgPath, "repoquery", "--advisory", "RQBA-2026:0100")
	assert.Equal(t, []string{"foo-1:2.0-1.x86_64"}, lines)
}

func TestRepoquery_SrpmResolvesAfterLatestLimit(t *testing.T) {
	tempDir := t.TempDir()
	repoDir := buildLayeredRepoDir(t, tempDir)
	srv := startRepoServer(t, repoDir)

	cfgPath := filepath.Join(tempDir, "config.yaml")
	writeTempConfig(t, cfgPath, "layered", srv.URL, filepath.Join(tempDir, "cache"), filepath.Join(tempDir, "state"))

	// The limit groups binaries by name, so alpha-2.0 and beta-1.0 both
	// survive and resolve to their distinct source versions.
	lines := runCLI(t, "--config", cfgPath, "repoquery", "--srpm", "--latest-limit", "1", "alpha", "beta")
	assert.Equal(t, []string{"proj-1.0-1.src", "proj-2.0-1.src"}, lines)
}

func TestRepoquery_SecurityAdvisory(t *testing.T) {
	cfgPath := queryFixture(t)

	lines := runCLI(t, "--config", cfgPath, "repoquery", "--security")
	assert.Equal(t, []string{"foo-1:2.0-1.x86_64"}, lines)
}

func TestRepoquery_ExactDepsWithoutTargetFails(t *testing.T) {
	cfgPath := queryFixture(t)

	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", cfgPath, "repoquery", "--exactdeps"})
	require.Error(t, cmd.Execute())
}

func TestRepolist_ShowsConfiguredRepo(t *testing.T) {
	cfgPath := queryFixture(t)

	lines := runCLI(t, "--config", cfgPath, "repolist")
	require.NotEmpty(t, lines)
	found := false
	for _, line := range lines {
		if strings.HasPrefix(line, "testrepo") {
			found = true
			break
		}
	}
	assert.True(t, found, "repolist output should mention testrepo")
}
