// Package base provides the top level session object tying together
// configuration, the package pool, the installed system state and the
// repository sack. A Base must be set up exactly once before the query
// layer can be used, and an advisory file lock serializes cache access
// between concurrent processes.
package base

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/glorpus-work/repoq/internal/logger"
	"github.com/glorpus-work/repoq/pkg/config"
	"github.com/glorpus-work/repoq/pkg/download"
	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/fsutil"
	"github.com/glorpus-work/repoq/pkg/pool"
	"github.com/glorpus-work/repoq/pkg/sack"
	"github.com/glorpus-work/repoq/pkg/system"
)

const lockFilename = "repoq.lock"

// Base is the session object owning all long lived engine state.
type Base struct {
	mu sync.Mutex

	cfg        *config.Config
	pool       *pool.Pool
	state      *system.State
	sack       *sack.Sack
	downloader download.Manager

	setup    bool
	lockHeld bool
}

// New creates a session for the given configuration. A nil configuration
// selects the built-in defaults. Setup must be called before the sack or
// the pool can be used.
func New(cfg *config.Config) *Base {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	return &Base{cfg: cfg}
}

// SetDownloadManager replaces the download manager used for repository
// syncs. It must be called before Setup.
func (b *Base) SetDownloadManager(dl download.Manager) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.downloader = dl
}

// Setup initializes the pool, loads the installed system state and builds
// the repository sack. It may be called at most once per session.
func (b *Base) Setup() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.setup {
		return errors.ErrAlreadySetup
	}

	logger.InitLogger(b.cfg.Settings.LogLevel)

	b.pool = pool.New()
	b.state = system.NewState()
	if err := b.state.Load(b.cfg.Settings.InstalledDBPath()); err != nil {
		return errors.Wrap(err, "loading system state")
	}
	if b.downloader == nil {
		b.downloader = download.NewManager(b.cfg.Settings.HTTPTimeout, "")
	}
	b.sack = sack.New(b.pool, b.cfg, b.state, b.downloader)
	b.setup = true
	return nil
}

// Config returns the session configuration.
func (b *Base) Config() *config.Config { return b.cfg }

// Pool returns the package pool, or nil before Setup.
func (b *Base) Pool() *pool.Pool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pool
}

// Sack returns the repository sack, or nil before Setup.
func (b *Base) Sack() *sack.Sack {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sack
}

// System returns the installed system state, or nil before Setup.
func (b *Base) System() *system.State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// SaveSystemState persists the installed package state back to disk.
func (b *Base) SaveSystemState() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.setup {
		return errors.ErrNotSetup
	}
	if err := fsutil.EnsureDir(b.cfg.Settings.StateDir); err != nil {
		return err
	}
	return b.state.Save(b.cfg.Settings.InstalledDBPath())
}

func (b *Base) lockPath() string {
	return filepath.Join(b.cfg.Settings.CacheDir, lockFilename)
}

// TryLock attempts to take the advisory cache lock without blocking.
// It reports whether the lock was acquired. A lock file left behind by
// a dead process is removed and the acquisition retried.
func (b *Base) TryLock() (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.lockHeld {
		return true, nil
	}
	if err := fsutil.EnsureDir(b.cfg.Settings.CacheDir); err != nil {
		return false, err
	}
	for attempt := 0; attempt < 2; attempt++ {
		ok, err := b.createLockFile()
		if err != nil {
			return false, err
		}
		if ok {
			b.lockHeld = true
			return true, nil
		}
		if !b.removeStaleLock() {
			return false, nil
		}
	}
	return false, nil
}

// Lock blocks until the advisory cache lock is acquired or the context is
// cancelled.
func (b *Base) Lock(ctx context.Context) error {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		ok, err := b.TryLock()
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		select {
		case <-ctx.Done():
			return errors.Wrap(errors.ErrLocked, ctx.Err().Error())
		case <-ticker.C:
		}
	}
}

// Unlock releases the advisory cache lock. Releasing a lock that is not
// held is a no-op.
func (b *Base) Unlock() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.lockHeld {
		return nil
	}
	b.lockHeld = false
	if err := os.Remove(b.lockPath()); err != nil && !os.IsNotExist(err) {
		return errors.Wrap(err, "releasing cache lock")
	}
	return nil
}

func (b *Base) createLockFile() (bool, error) {
	f, err := os.OpenFile(b.lockPath(), os.O_CREATE|os.O_EXCL|os.O_WRONLY, fsutil.FileModeDefault)
	if os.IsExist(err) {
		return false, nil
	}
	if err != nil {
		return false, errors.Wrap(err, "creating cache lock")
	}
	_, werr := fmt.Fprintf(f, "%d\n", os.Getpid())
	cerr := f.Close()
	if werr != nil || cerr != nil {
		os.Remove(b.lockPath())
		return false, errors.Wrap(errors.ErrLocked, "writing cache lock")
	}
	return true, nil
}

// removeStaleLock reports whether the existing lock file belonged to a
// process that no longer exists and was removed.
func (b *Base) removeStaleLock() bool {
	data, err := os.ReadFile(b.lockPath())
	if err != nil {
		// Holder released it between our attempts.
		return os.IsNotExist(err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		logger.Debug("removing malformed cache lock", logger.Fields{"path": b.lockPath()})
		return os.Remove(b.lockPath()) == nil
	}
	if pid == os.Getpid() || processAlive(pid) {
		return false
	}
	logger.Debug("removing stale cache lock", logger.Fields{"pid": pid})
	return os.Remove(b.lockPath()) == nil
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	err = proc.Signal(syscall.Signal(0))
	return err == nil || err == syscall.EPERM
}
