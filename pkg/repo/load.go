package repo

import (
	"context"
	"path/filepath"

	"github.com/glorpus-work/repoq/internal/logger"
	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/pool"
	"github.com/glorpus-work/repoq/pkg/system"
)

// Load interns the synced metadata into the pool. Loading an already
// loaded repository is a no-op. Parse failures put the repository into
// StateFailed without touching what other repositories contributed.
func (r *Repository) Load(ctx context.Context, p *pool.Pool, state *system.State) error {
	switch r.state {
	case StateLoaded:
		return nil
	case StateSynced:
	default:
		return errors.Wrapf(errors.ErrInvalidRepoState, "repository %q cannot load while %s", r.id, r.state)
	}

	switch r.kind {
	case KindSystem:
		for _, rec := range state.Records(r.id) {
			p.Intern(rec)
		}
		r.state = StateLoaded
		return nil
	case KindCmdline:
		// Cmdline packages are interned one by one as they are added;
		// there is no metadata document to load.
		r.state = StateLoaded
		return nil
	}

	md, err := r.readMetadata(ctx)
	if err != nil {
		return r.fail(err)
	}

	for i := range md.Packages {
		p.Intern(md.Packages[i].Record(r.id))
	}
	for i := range md.Advisories {
		p.AddAdvisory(md.Advisories[i].Advisory())
	}
	r.filelistsDoc = md.Filelists
	r.state = StateLoaded
	logger.Debug("repository loaded", logger.Fields{
		"repo":     r.id,
		"packages": len(md.Packages),
	})
	return nil
}

func (r *Repository) readMetadata(ctx context.Context) (*Metadata, error) {
	reader, err := openDocument(ctx, r.metadataPath)
	if err != nil {
		return nil, err
	}
	defer func() { _ = reader.Close() }()

	if r.kind == KindTestcase {
		return ParseTestcaseMetadata(reader)
	}
	return ParseMetadata(reader)
}

// LoadFilelists merges the repository's separate file-lists document into
// the already interned records. Repositories without one are skipped.
func (r *Repository) LoadFilelists(ctx context.Context, p *pool.Pool) error {
	if r.state != StateLoaded || r.filelistsDoc == "" {
		return nil
	}

	path := r.filelistsDoc
	if !filepath.IsAbs(path) {
		path = filepath.Join(filepath.Dir(r.metadataPath), path)
	}
	reader, err := openDocument(ctx, path)
	if err != nil {
		return err
	}
	defer func() { _ = reader.Close() }()

	var doc FilelistsDoc
	if r.kind == KindTestcase {
		md, parseErr := parseTestcaseFilelists(reader)
		if parseErr != nil {
			return parseErr
		}
		doc = *md
	} else {
		md, parseErr := parseFilelists(reader)
		if parseErr != nil {
			return parseErr
		}
		doc = *md
	}

	for _, entry := range doc.Packages {
		rec := pool.Record{
			Name: entry.Name, Epoch: entry.Epoch,
			Version: entry.Version, Release: entry.Release,
			Arch: entry.Arch, RepoID: r.id,
		}
		id, ok := p.Lookup(rec)
		if !ok {
			logger.Debug("filelists entry for unknown package", logger.Fields{
				"repo":    r.id,
				"package": rec.NEVRA().String(),
			})
			continue
		}
		p.AppendFiles(id, entry.Files)
	}
	return nil
}
