package config

import (
	"io"
	"net/url"
	"os"
	"strings"

	"github.com/glorpus-work/repoq/pkg/errors"
	"gopkg.in/yaml.v3"
)

// RepoConfig represents a single repository definition.
type RepoConfig struct {
	ID       string `yaml:"id"`
	Kind     string `yaml:"kind,omitempty"` // available (default) or testcase
	URL      string `yaml:"url,omitempty"`
	Path     string `yaml:"path,omitempty"`
	Enabled  bool   `yaml:"enabled"`
	Priority uint   `yaml:"priority,omitempty"`
	// Required makes any sync or load failure of this repository fatal to
	// the whole pipeline instead of a collected per-repository error.
	Required  bool   `yaml:"required,omitempty"`
	GPGCheck  bool   `yaml:"gpgcheck,omitempty"`
	GPGKeyURL string `yaml:"gpgkey,omitempty"`
}

// Repository kinds accepted in definitions.
const (
	KindAvailable = "available"
	KindTestcase  = "testcase"
)

func (rc *RepoConfig) applyDefaults() {
	if rc.Kind == "" {
		rc.Kind = KindAvailable
	}
}

// Validate checks a single repository definition.
func (rc *RepoConfig) Validate() error {
	if strings.TrimSpace(rc.ID) == "" {
		return errors.ErrEmptyRepoID
	}
	switch rc.Kind {
	case KindAvailable, KindTestcase:
	default:
		return errors.Wrapf(errors.ErrConfig, "repository %q has unknown kind %q", rc.ID, rc.Kind)
	}
	if rc.URL == "" && rc.Path == "" {
		return errors.Wrapf(errors.ErrRepoURLMissing, "repository %q", rc.ID)
	}
	if rc.URL != "" {
		if _, err := url.Parse(rc.URL); err != nil {
			return errors.Wrapf(errors.ErrConfig, "repository %q has invalid url: %v", rc.ID, err)
		}
	}
	return nil
}

// GetURL parses and returns the repository URL, or nil when unset or
// malformed.
func (rc *RepoConfig) GetURL() *url.URL {
	if rc.URL == "" {
		return nil
	}
	parsed, err := url.Parse(rc.URL)
	if err != nil {
		return nil
	}
	return parsed
}

// repoFile is the shape of a repository drop-in file: either a bare list
// or a document with a "repos" key.
type repoFile struct {
	Repos []*RepoConfig `yaml:"repos"`
}

// ParseRepoConfigs reads repository definitions from a reader. Both a
// top-level list and a document with a "repos" key are accepted.
func ParseRepoConfigs(reader io.Reader) ([]*RepoConfig, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, errors.Wrap(err, "failed to read repository definitions")
	}

	var repos []*RepoConfig
	if err := yaml.Unmarshal(data, &repos); err != nil {
		var doc repoFile
		if docErr := yaml.Unmarshal(data, &doc); docErr != nil {
			return nil, errors.Wrap(errors.ErrConfigParse, err.Error())
		}
		repos = doc.Repos
	}

	for _, repo := range repos {
		repo.applyDefaults()
		if err := repo.Validate(); err != nil {
			return nil, err
		}
	}
	return repos, nil
}

// LoadRepoConfigs reads repository definitions from a file.
func LoadRepoConfigs(path string) ([]*RepoConfig, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "failed to open repository definition file: %s", path)
	}
	defer func() { _ = file.Close() }()
	return ParseRepoConfigs(file)
}
