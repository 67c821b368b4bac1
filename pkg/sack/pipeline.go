package sack

import (
	"context"
	"errors"
	"sync"

	"github.com/glorpus-work/repoq/internal/logger"
	"github.com/glorpus-work/repoq/pkg/config"
	pkgerrors "github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/repo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// UpdateAndLoadEnabledRepos syncs every enabled repository and loads the
// results into the pool. Syncing runs concurrently, bounded by the
// configured limit; loading is serialized on a single goroutine because
// the pool has one writer. With loadSystem the system repository goes
// through the pipeline first.
//
// Failures of ordinary repositories are collected, logged and the
// repository is disabled; the pipeline carries on. A failure of the
// system repository or of a repository marked required aborts the run.
// When every repository fails the summary is ErrAllReposFailed.
//
// A second call after a completed run is a no-op, even if repositories
// were added in between. Callers who register repositories later must
// load them individually.
func (s *Sack) UpdateAndLoadEnabledRepos(ctx context.Context, loadSystem bool) error {
	if s.updatedAndLoaded {
		return nil
	}

	var repos []*repo.Repository
	if loadSystem {
		repos = append(repos, s.SystemRepo())
	}
	repos = append(repos, s.EnabledRepos()...)
	s.failures = make(map[string]error)
	if len(repos) == 0 {
		s.updatedAndLoaded = true
		return nil
	}

	maxSyncs := s.cfg.Settings.MaxConcurrentSyncs
	if maxSyncs <= 0 {
		maxSyncs = config.DefaultMaxSyncs
	}

	var mu sync.Mutex
	recordFailure := func(r *repo.Repository, err error) error {
		if r.Required() {
			return err
		}
		mu.Lock()
		s.failures[r.ID()] = err
		mu.Unlock()
		logger.Warn("repository failed, continuing without it", logger.Fields{
			"repo":  r.ID(),
			"error": err.Error(),
		})
		r.SetEnabled(false)
		return nil
	}

	loadQueue := make(chan *repo.Repository)
	group, gctx := errgroup.WithContext(ctx)

	// One serial loader drains the queue.
	group.Go(func() error {
		for r := range loadQueue {
			if err := r.Load(gctx, s.pool, s.state); err != nil {
				if ferr := recordFailure(r, err); ferr != nil {
					return ferr
				}
			}
		}
		return nil
	})

	syncGroup, sctx := errgroup.WithContext(gctx)
	sem := semaphore.NewWeighted(int64(maxSyncs))
	for _, r := range repos {
		syncGroup.Go(func() error {
			if err := sem.Acquire(sctx, 1); err != nil {
				return err
			}
			defer sem.Release(1)

			if err := s.syncWithRetry(sctx, r); err != nil {
				return recordFailure(r, err)
			}
			select {
			case loadQueue <- r:
				return nil
			case <-sctx.Done():
				return sctx.Err()
			}
		})
	}

	syncErr := syncGroup.Wait()
	close(loadQueue)
	loadErr := group.Wait()

	// A loader abort cancels the sync workers; report the original error,
	// not the cancellation it caused.
	switch {
	case loadErr != nil && !errors.Is(loadErr, context.Canceled):
		return loadErr
	case syncErr != nil && !errors.Is(syncErr, context.Canceled):
		return syncErr
	case loadErr != nil:
		return loadErr
	case syncErr != nil:
		return syncErr
	}

	ordinary := 0
	for _, r := range repos {
		if !r.Required() {
			ordinary++
		}
	}
	if ordinary > 0 && len(s.failures) == ordinary {
		return pkgerrors.Wrapf(pkgerrors.ErrAllReposFailed, "%d repositories", ordinary)
	}
	s.updatedAndLoaded = true
	return nil
}

// syncWithRetry syncs a repository, retrying exactly once after a
// signature failure when a key importer is available. A retry that fails
// again is reported as a sync error.
func (s *Sack) syncWithRetry(ctx context.Context, r *repo.Repository) error {
	opts := repo.SyncOptions{
		Downloader: s.downloader,
		Verifier:   s.verifier,
		CacheDir:   s.cfg.Settings.CacheDir,
		TTL:        s.cfg.Settings.CacheTTL,
	}

	err := r.Sync(ctx, opts)
	if err == nil || !errors.Is(err, pkgerrors.ErrSignature) {
		return err
	}
	if s.keyImporter == nil {
		return pkgerrors.Wrapf(pkgerrors.ErrSync, "repository %q: %v", r.ID(), err)
	}

	keyURL := ""
	if r.Config() != nil {
		keyURL = r.Config().GPGKeyURL
	}
	logger.Info("importing signing key after verification failure", logger.Fields{"repo": r.ID()})
	if impErr := s.keyImporter.ImportKey(ctx, r.ID(), keyURL); impErr != nil {
		return pkgerrors.Wrapf(pkgerrors.ErrSync, "repository %q: key import failed: %v", r.ID(), impErr)
	}
	if err = r.Sync(ctx, opts); err != nil {
		if errors.Is(err, pkgerrors.ErrSignature) {
			return pkgerrors.Wrapf(pkgerrors.ErrSync, "repository %q: %v", r.ID(), err)
		}
		return err
	}
	return nil
}

// LoadFilelists loads the deferred file-ownership metadata of every
// loaded repository and marks the pool complete for file queries.
func (s *Sack) LoadFilelists(ctx context.Context) error {
	if s.pool.FilelistsLoaded() {
		return nil
	}
	for _, r := range s.Repos() {
		if err := r.LoadFilelists(ctx, s.pool); err != nil {
			return err
		}
	}
	s.pool.SetFilelistsLoaded()
	return nil
}
