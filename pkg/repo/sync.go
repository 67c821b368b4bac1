package repo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"time"

	"github.com/glorpus-work/repoq/internal/logger"
	"github.com/glorpus-work/repoq/pkg/download"
	pkgerrors "github.com/glorpus-work/repoq/pkg/errors"
)

// MetadataFilename is the document name fetched from remote repositories.
const MetadataFilename = "metadata.json"

// SignatureVerifier checks the authenticity of a synced metadata document.
// Only the success or failure signal is consumed here; key material and
// verification mechanics live with the implementation.
type SignatureVerifier interface {
	Verify(ctx context.Context, repoID, metadataPath string) error
}

// KeyImporter imports the signing key of a repository after a failed
// verification, enabling one retry.
type KeyImporter interface {
	ImportKey(ctx context.Context, repoID, keyURL string) error
}

// SyncOptions carries the collaborators and tunables of a sync.
type SyncOptions struct {
	Downloader download.Manager
	Verifier   SignatureVerifier
	CacheDir   string
	// TTL is how long a previously synced document counts as fresh.
	// Fresh documents are not fetched again.
	TTL time.Duration
}

// Sync brings the local metadata copy up to date. Repositories that are
// not metadata-backed (system, cmdline) advance to synced without any
// work. A signature failure is returned as ErrSignature and leaves the
// repository retryable; callers may import the key and sync again.
func (r *Repository) Sync(ctx context.Context, opts SyncOptions) error {
	switch r.state {
	case StateConfigured, StateSynced, StateFailed:
	default:
		return pkgerrors.Wrapf(pkgerrors.ErrInvalidRepoState, "repository %q cannot sync while %s", r.id, r.state)
	}

	switch r.kind {
	case KindSystem, KindCmdline:
		r.state = StateSynced
		return nil
	case KindTestcase:
		r.metadataPath = r.cfg.Path
		r.state = StateSynced
		return nil
	}

	if r.cfg.Path != "" {
		if _, err := os.Stat(r.cfg.Path); err != nil {
			return r.fail(pkgerrors.Wrapf(pkgerrors.ErrFileNotFound, "repository %s metadata at %s", r.id, r.cfg.Path))
		}
		r.metadataPath = r.cfg.Path
		return r.finishSync(ctx, opts)
	}

	dest := filepath.Join(opts.CacheDir, r.id)
	cached := filepath.Join(dest, MetadataFilename)

	if stamp, err := os.Stat(cached); err == nil {
		if opts.TTL > 0 && time.Since(stamp.ModTime()) < opts.TTL {
			logger.Debug("metadata still fresh, skipping fetch", logger.Fields{"repo": r.id})
			r.metadataPath = cached
			return r.finishSync(ctx, opts)
		}
	}

	item := download.Item{
		ID:       r.id,
		URL:      r.cfg.GetURL().JoinPath(MetadataFilename),
		Filename: MetadataFilename,
	}
	if stamp, err := os.Stat(cached); err == nil {
		item.IfModifiedSince = stamp.ModTime()
	}

	path, err := opts.Downloader.Fetch(ctx, item, download.Options{Dir: dest})
	switch {
	case err == nil:
		r.metadataPath = path
	case errors.Is(err, pkgerrors.ErrNotModified):
		logger.Debug("metadata unchanged upstream", logger.Fields{"repo": r.id})
		now := time.Now()
		_ = os.Chtimes(cached, now, now)
		r.metadataPath = cached
	default:
		return r.fail(pkgerrors.Wrapf(pkgerrors.ErrSync, "repository %q: %v", r.id, err))
	}

	return r.finishSync(ctx, opts)
}

func (r *Repository) finishSync(ctx context.Context, opts SyncOptions) error {
	if r.cfg.GPGCheck && opts.Verifier != nil {
		if err := opts.Verifier.Verify(ctx, r.id, r.metadataPath); err != nil {
			return pkgerrors.Wrapf(pkgerrors.ErrSignature, "repository %q: %v", r.id, err)
		}
	}
	r.state = StateSynced
	r.lastErr = nil
	return nil
}
