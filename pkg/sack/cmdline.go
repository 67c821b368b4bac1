package sack

import (
	"context"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	"github.com/glorpus-work/repoq/internal/logger"
	"github.com/glorpus-work/repoq/pkg/download"
	"github.com/glorpus-work/repoq/pkg/pool"
	"github.com/glorpus-work/repoq/pkg/repo"
)

// AddCmdlinePackages makes standalone package files queryable. Each spec
// may be a local path or an http(s) URL of a package archive; remote ones
// are downloaded into the cache first. Specs that do not point at a
// package archive are silently skipped so callers can pass raw user input
// mixed with ordinary package specs. The result maps each added spec to
// its pool package.
func (s *Sack) AddCmdlinePackages(ctx context.Context, specs []string) (map[string]pool.Package, error) {
	r := s.CmdlineRepo()
	out := make(map[string]pool.Package, len(specs))

	for _, spec := range specs {
		local, ok, err := s.localizePackageSpec(ctx, spec)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		doc, err := repo.ReadPackageFile(ctx, local)
		if err != nil {
			return nil, err
		}
		id := s.pool.Intern(doc.Record(CmdlineRepoID))
		out[spec] = s.pool.Get(id)
	}

	if len(out) > 0 && r.State() != repo.StateLoaded {
		if err := r.Sync(ctx, repo.SyncOptions{}); err != nil {
			return nil, err
		}
		if err := r.Load(ctx, s.pool, s.state); err != nil {
			return nil, err
		}
	}
	return out, nil
}

// localizePackageSpec resolves a spec to a local package file. The second
// result is false when the spec is not a package file at all.
func (s *Sack) localizePackageSpec(ctx context.Context, spec string) (string, bool, error) {
	if u, err := url.Parse(spec); err == nil && (u.Scheme == "http" || u.Scheme == "https") {
		if !strings.HasSuffix(u.Path, repo.PackageFileSuffix) {
			return "", false, nil
		}
		dest := filepath.Join(s.cfg.Settings.CacheDir, "commandline")
		path, err := s.downloader.Fetch(ctx, download.Item{
			ID:       spec,
			URL:      u,
			Filename: filepath.Base(u.Path),
		}, download.Options{Dir: dest})
		if err != nil {
			return "", false, err
		}
		return path, true, nil
	}

	if !strings.HasSuffix(spec, repo.PackageFileSuffix) {
		return "", false, nil
	}
	info, err := os.Stat(spec)
	if err != nil || info.IsDir() {
		logger.Debug("ignoring non-existent package file", logger.Fields{"spec": spec})
		return "", false, nil
	}
	return spec, true, nil
}
