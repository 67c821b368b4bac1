package system

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/pool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleState() *State {
	s := NewState()
	s.Packages = []*InstalledPackage{
		{
			Name: "app", Version: "1.0", Release: "1", Arch: "x86_64",
			Reason:   "user",
			Requires: []string{"liba >= 0.9"},
		},
		{
			Name: "liba", Version: "0.9", Release: "1", Arch: "x86_64",
			Reason:   "dependency",
			Provides: []string{"liba = 0.9"},
		},
	}
	return s
}

func TestStateRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "installed.json")
	require.NoError(t, sampleState().Save(path))

	loaded := NewState()
	require.NoError(t, loaded.Load(path))
	require.Len(t, loaded.Packages, 2)
	assert.Equal(t, "app", loaded.Packages[0].Name)
	assert.Equal(t, "user", loaded.Packages[0].Reason)
}

func TestStateLoad(t *testing.T) {
	t.Run("MissingFileIsEmpty", func(t *testing.T) {
		s := NewState()
		require.NoError(t, s.Load(filepath.Join(t.TempDir(), "nope.json")))
		assert.Empty(t, s.Packages)
	})

	t.Run("RelativePathRejected", func(t *testing.T) {
		s := NewState()
		err := s.Load("relative/installed.json")
		assert.ErrorIs(t, err, errors.ErrInvalidPath)
	})

	t.Run("MalformedJSON", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "installed.json")
		require.NoError(t, os.WriteFile(path, []byte("{broken"), 0o644))
		err := NewState().Load(path)
		assert.ErrorIs(t, err, errors.ErrParse)
	})
}

func TestStateRecords(t *testing.T) {
	records := sampleState().Records("@system")
	require.Len(t, records, 2)

	app := records[0]
	assert.True(t, app.Installed)
	assert.Equal(t, "@system", app.RepoID)
	assert.Equal(t, pool.ReasonUser, app.Reason)
	require.Len(t, app.Requires, 1)
	assert.Equal(t, "liba", app.Requires[0].Name)

	liba := records[1]
	assert.Equal(t, pool.ReasonDependency, liba.Reason)
}

func TestSetReason(t *testing.T) {
	s := sampleState()
	require.NoError(t, s.SetReason("liba", "user"))
	assert.Equal(t, "user", s.Find("liba").Reason)

	err := s.SetReason("ghost", "user")
	assert.ErrorIs(t, err, errors.ErrNoMatch)
}
