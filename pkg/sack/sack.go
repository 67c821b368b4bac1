// Package sack implements the repository sack: the container that owns
// every repository of a session, drives the sync-and-load pipeline and
// feeds the shared package pool.
package sack

import (
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/glorpus-work/repoq/internal/logger"
	"github.com/glorpus-work/repoq/pkg/config"
	"github.com/glorpus-work/repoq/pkg/download"
	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/pool"
	"github.com/glorpus-work/repoq/pkg/repo"
	"github.com/glorpus-work/repoq/pkg/system"
)

// Reserved repository ids.
const (
	SystemRepoID  = "@system"
	CmdlineRepoID = "@commandline"
)

// SourceRepoSuffix marks the source variant of a binary repository.
const SourceRepoSuffix = repo.SourceRepoSuffix

// Sack owns the repositories of one session.
type Sack struct {
	pool  *pool.Pool
	cfg   *config.Config
	state *system.State

	downloader  download.Manager
	verifier    repo.SignatureVerifier
	keyImporter repo.KeyImporter

	repos map[string]*repo.Repository
	order []string

	systemRepo  *repo.Repository
	cmdlineRepo *repo.Repository
	cmdlinePkgs map[string]pool.Package

	// failures collects per-repository pipeline errors from the last
	// UpdateAndLoadEnabledRepos run.
	failures map[string]error

	// updatedAndLoaded makes a second full pipeline run a no-op, even if
	// repositories were added in between.
	updatedAndLoaded bool
}

// New creates a sack over the given pool and configuration.
func New(p *pool.Pool, cfg *config.Config, state *system.State, dl download.Manager) *Sack {
	return &Sack{
		pool:        p,
		cfg:         cfg,
		state:       state,
		downloader:  dl,
		repos:       make(map[string]*repo.Repository),
		cmdlinePkgs: make(map[string]pool.Package),
		failures:    make(map[string]error),
	}
}

// SetSignatureVerifier installs the metadata signature checker.
func (s *Sack) SetSignatureVerifier(v repo.SignatureVerifier) { s.verifier = v }

// SetKeyImporter installs the key importer used for the one retry after a
// signature failure.
func (s *Sack) SetKeyImporter(k repo.KeyImporter) { s.keyImporter = k }

// Pool returns the shared package pool.
func (s *Sack) Pool() *pool.Pool { return s.pool }

// CreateRepo registers a new unconfigured repository under id.
func (s *Sack) CreateRepo(id string) (*repo.Repository, error) {
	if strings.TrimSpace(id) == "" {
		return nil, errors.ErrEmptyRepoID
	}
	if _, exists := s.repos[id]; exists {
		return nil, errors.Wrapf(errors.ErrDuplicateRepo, "repository %q already exists", id)
	}
	r := repo.New(id, repo.KindAvailable)
	s.repos[id] = r
	s.order = append(s.order, id)
	return r, nil
}

// addRepoConfig creates and configures a repository from a definition.
func (s *Sack) addRepoConfig(cfg *config.RepoConfig) error {
	if _, exists := s.repos[cfg.ID]; exists {
		return errors.Wrapf(errors.ErrDuplicateRepo, "repository %q already exists", cfg.ID)
	}
	r := repo.New(cfg.ID, repo.KindFromConfig(cfg.Kind))
	if err := r.Configure(cfg); err != nil {
		return err
	}
	s.repos[cfg.ID] = r
	s.order = append(s.order, cfg.ID)
	return nil
}

// CreateReposFromConfig registers every repository the main configuration
// defines.
func (s *Sack) CreateReposFromConfig() error {
	for _, rc := range s.cfg.Repos {
		if err := s.addRepoConfig(rc); err != nil {
			return err
		}
	}
	return nil
}

// CreateReposFromFile registers the repositories defined in one file.
func (s *Sack) CreateReposFromFile(path string) error {
	defs, err := config.LoadRepoConfigs(path)
	if err != nil {
		return err
	}
	for _, rc := range defs {
		if err := s.addRepoConfig(rc); err != nil {
			return err
		}
	}
	return nil
}

// CreateReposFromDirs registers repositories from drop-in definition files
// across the given directories. Files are processed in filename-sorted
// order; when the same filename exists in several directories the first
// directory's copy wins and later ones are ignored.
func (s *Sack) CreateReposFromDirs(dirs []string) error {
	chosen := make(map[string]string)
	var names []string
	for _, dir := range dirs {
		entries, err := os.ReadDir(dir)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return errors.Wrapf(err, "failed to read repository directory: %s", dir)
		}
		for _, entry := range entries {
			if entry.IsDir() {
				continue
			}
			name := entry.Name()
			ext := filepath.Ext(name)
			if ext != ".yaml" && ext != ".yml" {
				continue
			}
			if _, taken := chosen[name]; taken {
				logger.Debug("ignoring shadowed repository file", logger.Fields{
					"file": filepath.Join(dir, name),
				})
				continue
			}
			chosen[name] = filepath.Join(dir, name)
			names = append(names, name)
		}
	}
	sort.Strings(names)

	for _, name := range names {
		if err := s.CreateReposFromFile(chosen[name]); err != nil {
			return err
		}
	}
	return nil
}

// RepoPath is one explicit id-to-path repository definition.
type RepoPath struct {
	ID   string
	Path string
}

// CreateReposFromPaths registers local repositories from explicit
// id-to-path pairs.
func (s *Sack) CreateReposFromPaths(pairs []RepoPath) error {
	for _, pair := range pairs {
		kind := config.KindAvailable
		ext := filepath.Ext(pair.Path)
		if ext == ".yaml" || ext == ".yml" {
			kind = config.KindTestcase
		}
		rc := &config.RepoConfig{ID: pair.ID, Kind: kind, Path: pair.Path, Enabled: true}
		if err := s.addRepoConfig(rc); err != nil {
			return err
		}
	}
	return nil
}

// GetRepo returns the repository with the given id.
func (s *Sack) GetRepo(id string) (*repo.Repository, error) {
	if r, ok := s.repos[id]; ok {
		return r, nil
	}
	return nil, errors.Wrapf(errors.ErrRepoNotFound, "repository %q", id)
}

// Repos returns all registered repositories in registration order.
func (s *Sack) Repos() []*repo.Repository {
	out := make([]*repo.Repository, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.repos[id])
	}
	return out
}

// EnabledRepos returns the enabled repositories in registration order.
func (s *Sack) EnabledRepos() []*repo.Repository {
	var out []*repo.Repository
	for _, id := range s.order {
		if s.repos[id].Enabled() {
			out = append(out, s.repos[id])
		}
	}
	return out
}

// EnableSourceRepos enables, for every enabled binary repository, the
// matching source repository ("<id>-source"). An explicitly defined
// source repository wins; otherwise one is derived from the binary
// repository's own definition.
func (s *Sack) EnableSourceRepos() error {
	for _, id := range s.order {
		r := s.repos[id]
		if !r.Enabled() || strings.HasSuffix(id, SourceRepoSuffix) {
			continue
		}
		if src, ok := s.repos[id+SourceRepoSuffix]; ok {
			if !src.Enabled() {
				src.SetEnabled(true)
				logger.Debug("enabled source repository", logger.Fields{"repo": src.ID()})
			}
			continue
		}
		cfg := r.SourceVariantConfig()
		if cfg == nil {
			continue
		}
		cfg.Enabled = true
		if err := s.addRepoConfig(cfg); err != nil {
			return err
		}
		logger.Debug("derived source repository", logger.Fields{"repo": cfg.ID})
	}
	return nil
}

// SystemRepo returns the system repository, creating it on first use.
func (s *Sack) SystemRepo() *repo.Repository {
	if s.systemRepo == nil {
		s.systemRepo = repo.NewInternal(SystemRepoID, repo.KindSystem)
	}
	return s.systemRepo
}

// CmdlineRepo returns the command-line repository, creating it on first
// use.
func (s *Sack) CmdlineRepo() *repo.Repository {
	if s.cmdlineRepo == nil {
		s.cmdlineRepo = repo.NewInternal(CmdlineRepoID, repo.KindCmdline)
	}
	return s.cmdlineRepo
}

// Failures returns the per-repository errors collected by the last load
// pipeline run.
func (s *Sack) Failures() map[string]error {
	out := make(map[string]error, len(s.failures))
	for id, err := range s.failures {
		out[id] = err
	}
	return out
}
