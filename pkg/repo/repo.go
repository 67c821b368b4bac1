// Package repo implements repositories: named sources of package metadata
// with a configure/sync/load lifecycle. A repository starts unconfigured,
// receives its definition, syncs remote metadata into the local cache and
// finally loads the parsed records into the pool.
package repo

import (
	"strings"

	"github.com/glorpus-work/repoq/pkg/config"
	"github.com/glorpus-work/repoq/pkg/errors"
)

// Kind classifies a repository by where its packages come from.
type Kind int

// SourceRepoSuffix marks the source variant of a binary repository.
const SourceRepoSuffix = "-source"

// Repository kinds.
const (
	KindAvailable Kind = iota
	KindSystem
	KindCmdline
	KindTestcase
)

func (k Kind) String() string {
	switch k {
	case KindAvailable:
		return "available"
	case KindSystem:
		return "system"
	case KindCmdline:
		return "cmdline"
	case KindTestcase:
		return "testcase"
	default:
		return "unknown"
	}
}

// KindFromConfig maps a definition kind string to a Kind.
func KindFromConfig(s string) Kind {
	if s == config.KindTestcase {
		return KindTestcase
	}
	return KindAvailable
}

// State is the lifecycle state of a repository.
type State int

// Lifecycle states, in order. A repository only moves forward through
// them, except that any step can land in StateFailed.
const (
	StateUnconfigured State = iota
	StateConfigured
	StateSynced
	StateLoaded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnconfigured:
		return "unconfigured"
	case StateConfigured:
		return "configured"
	case StateSynced:
		return "synced"
	case StateLoaded:
		return "loaded"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Repository is one package source.
type Repository struct {
	id      string
	kind    Kind
	state   State
	cfg     *config.RepoConfig
	enabled bool

	// metadataPath is the local path of the synced metadata document;
	// filelistsDoc names the optional sibling file-lists document.
	metadataPath string
	filelistsDoc string
	lastErr      error
}

// New creates an unconfigured repository.
func New(id string, kind Kind) *Repository {
	return &Repository{id: id, kind: kind}
}

// NewInternal creates one of the built-in repositories (system, cmdline)
// already configured and enabled; they need no user-facing definition.
func NewInternal(id string, kind Kind) *Repository {
	r := New(id, kind)
	r.configureInternal()
	return r
}

// ID returns the repository id.
func (r *Repository) ID() string { return r.id }

// Kind returns the repository kind.
func (r *Repository) Kind() Kind { return r.kind }

// State returns the current lifecycle state.
func (r *Repository) State() State { return r.state }

// Enabled reports whether the repository takes part in the load pipeline.
func (r *Repository) Enabled() bool { return r.enabled }

// SetEnabled toggles pipeline participation.
func (r *Repository) SetEnabled(enabled bool) { r.enabled = enabled }

// Config returns the repository definition, or nil before Configure.
func (r *Repository) Config() *config.RepoConfig { return r.cfg }

// Priority returns the configured priority, higher wins.
func (r *Repository) Priority() uint {
	if r.cfg == nil {
		return 0
	}
	return r.cfg.Priority
}

// Required reports whether a failure of this repository aborts the whole
// pipeline. System repositories are always required.
func (r *Repository) Required() bool {
	if r.kind == KindSystem {
		return true
	}
	return r.cfg != nil && r.cfg.Required
}

// LastError returns the error that put the repository into StateFailed.
func (r *Repository) LastError() error { return r.lastErr }

// SourceVariantConfig derives the definition of the companion source
// repository: same settings under "<id>-source", with metadata expected
// under a source/ subtree of the binary location. Internal repositories,
// repositories that are themselves source variants and path-backed
// repositories without a derivable layout yield nil.
func (r *Repository) SourceVariantConfig() *config.RepoConfig {
	if r.cfg == nil || r.cfg.URL == "" || strings.HasSuffix(r.id, SourceRepoSuffix) {
		return nil
	}
	src := *r.cfg
	src.ID = r.id + SourceRepoSuffix
	src.URL = strings.TrimSuffix(r.cfg.URL, "/") + "/source"
	src.Enabled = false
	return &src
}

// Configure attaches a definition to the repository. It is only valid on
// an unconfigured repository.
func (r *Repository) Configure(cfg *config.RepoConfig) error {
	if r.state != StateUnconfigured {
		return errors.Wrapf(errors.ErrInvalidRepoState, "repository %q is %s, not unconfigured", r.id, r.state)
	}
	if cfg == nil {
		return errors.Wrapf(errors.ErrConfig, "repository %q configured with nil definition", r.id)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	r.cfg = cfg
	r.enabled = cfg.Enabled
	r.state = StateConfigured
	return nil
}

// configureInternal is used for the built-in system, cmdline and testcase
// repositories which need no user-facing definition.
func (r *Repository) configureInternal() {
	r.state = StateConfigured
	r.enabled = true
}

func (r *Repository) fail(err error) error {
	r.state = StateFailed
	r.lastErr = err
	return err
}
