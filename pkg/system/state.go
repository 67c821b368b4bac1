// Package system provides a JSON-backed store of the installed package
// set, including the recorded installation reason for each package. It is
// the data source behind the system repository.
package system

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/nevra"
	"github.com/glorpus-work/repoq/pkg/pool"
)

// InstalledPackage is one installed package record as persisted in the
// state file.
type InstalledPackage struct {
	Name        string   `json:"name"`
	Epoch       int      `json:"epoch,omitempty"`
	Version     string   `json:"version"`
	Release     string   `json:"release"`
	Arch        string   `json:"arch"`
	SourceRPM   string   `json:"sourcerpm,omitempty"`
	BuildTime   int64    `json:"build_time,omitempty"`
	InstallTime int64    `json:"install_time,omitempty"`
	Reason      string   `json:"reason"` // user or dependency
	Files       []string `json:"files,omitempty"`
	Provides    []string `json:"provides,omitempty"`
	Requires    []string `json:"requires,omitempty"`
	Conflicts   []string `json:"conflicts,omitempty"`
	Obsoletes   []string `json:"obsoletes,omitempty"`
	Recommends  []string `json:"recommends,omitempty"`
	Suggests    []string `json:"suggests,omitempty"`
	Enhances    []string `json:"enhances,omitempty"`
	Supplements []string `json:"supplements,omitempty"`
}

// State represents the installed package database.
type State struct {
	FormatVersion string              `json:"format_version"`
	LastUpdate    time.Time           `json:"last_update"`
	Packages      []*InstalledPackage `json:"packages"`
	rwMutex       sync.RWMutex
}

// NewState creates a new empty installed state.
func NewState() *State {
	return &State{
		FormatVersion: "1",
		LastUpdate:    time.Now(),
		Packages:      []*InstalledPackage{},
	}
}

// Load loads the installed state from file. A missing file leaves the
// state empty.
func (s *State) Load(dbPath string) error {
	cleanPath := filepath.Clean(dbPath)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("state path must be absolute: %s: %w", dbPath, errors.ErrInvalidPath)
	}
	if _, err := os.Stat(cleanPath); os.IsNotExist(err) {
		return nil
	}
	file, err := os.Open(cleanPath)
	if err != nil {
		return fmt.Errorf("failed to open state file: %w", err)
	}
	defer func() { _ = file.Close() }()

	return s.parseFromReader(file)
}

func (s *State) parseFromReader(reader io.Reader) error {
	data, err := io.ReadAll(reader)
	if err != nil {
		return fmt.Errorf("failed to read state: %w", err)
	}

	s.rwMutex.Lock()
	defer s.rwMutex.Unlock()
	if err := json.Unmarshal(data, s); err != nil {
		return errors.Wrap(errors.ErrParse, err.Error())
	}
	if s.Packages == nil {
		s.Packages = []*InstalledPackage{}
	}
	return nil
}

// Save writes the installed state to file atomically.
func (s *State) Save(dbPath string) (err error) {
	cleanPath := filepath.Clean(dbPath)
	if !filepath.IsAbs(cleanPath) {
		return fmt.Errorf("state path must be absolute: %s: %w", dbPath, errors.ErrInvalidPath)
	}

	tmpFile, err := os.CreateTemp(filepath.Dir(cleanPath), "repoq-state-*.tmp")
	if err != nil {
		return fmt.Errorf("failed to create temporary file: %w", err)
	}
	tmpPath := tmpFile.Name()
	defer func() {
		if err != nil {
			_ = os.Remove(tmpPath)
		}
	}()

	s.rwMutex.RLock()
	data, err := json.MarshalIndent(s, "", "  ")
	s.rwMutex.RUnlock()
	if err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to marshal state: %w", err)
	}
	if _, err = tmpFile.Write(data); err != nil {
		_ = tmpFile.Close()
		return fmt.Errorf("failed to write state: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("failed to close state file: %w", err)
	}
	return os.Rename(tmpPath, cleanPath)
}

// Find returns the installed package with the given name, or nil.
func (s *State) Find(name string) *InstalledPackage {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()
	for _, pkg := range s.Packages {
		if pkg.Name == name {
			return pkg
		}
	}
	return nil
}

// SetReason updates the recorded installation reason of a package.
func (s *State) SetReason(name, reason string) error {
	s.rwMutex.Lock()
	defer s.rwMutex.Unlock()
	for _, pkg := range s.Packages {
		if pkg.Name == name {
			pkg.Reason = reason
			s.LastUpdate = time.Now()
			return nil
		}
	}
	return errors.Wrapf(errors.ErrNoMatch, "package %s not installed", name)
}

// Records converts the installed state into pool records attributed to
// repoID. Unparseable capability strings are dropped.
func (s *State) Records(repoID string) []pool.Record {
	s.rwMutex.RLock()
	defer s.rwMutex.RUnlock()

	records := make([]pool.Record, 0, len(s.Packages))
	for _, pkg := range s.Packages {
		reason := pool.ReasonDependency
		if pkg.Reason == "user" {
			reason = pool.ReasonUser
		}
		records = append(records, pool.Record{
			Name:        pkg.Name,
			Epoch:       pkg.Epoch,
			Version:     pkg.Version,
			Release:     pkg.Release,
			Arch:        pkg.Arch,
			SourceRPM:   pkg.SourceRPM,
			BuildTime:   pkg.BuildTime,
			Files:       pkg.Files,
			Provides:    parseDeps(pkg.Provides),
			Requires:    parseDeps(pkg.Requires),
			Conflicts:   parseDeps(pkg.Conflicts),
			Obsoletes:   parseDeps(pkg.Obsoletes),
			Recommends:  parseDeps(pkg.Recommends),
			Suggests:    parseDeps(pkg.Suggests),
			Enhances:    parseDeps(pkg.Enhances),
			Supplements: parseDeps(pkg.Supplements),
			RepoID:      repoID,
			Installed:   true,
			Reason:      reason,
		})
	}
	return records
}

func parseDeps(specs []string) nevra.ReldepList {
	deps := make(nevra.ReldepList, 0, len(specs))
	for _, spec := range specs {
		dep, err := nevra.ParseReldep(spec)
		if err != nil {
			continue
		}
		deps = append(deps, dep)
	}
	return deps
}
