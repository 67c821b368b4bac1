// Package errors defines the error values shared across the repoq engine.
// Failures are modelled as sentinel errors wrapped with context via %w so
// that callers can classify them with errors.Is at policy boundaries
// (the load pipeline failure policy, the key-import retry path, strict
// spec matching).
package errors

import "fmt"

// Common error types.
var (
	// Configuration errors - fatal at setup.
	ErrConfig           = fmt.Errorf("invalid configuration")
	ErrConfigParse      = fmt.Errorf("failed to parse config")
	ErrEmptyRepoID      = fmt.Errorf("repository id cannot be empty")
	ErrDuplicateRepo    = fmt.Errorf("repository already exists")
	ErrRepoNotFound     = fmt.Errorf("repository not found")
	ErrRepoURLMissing   = fmt.Errorf("repository URL cannot be empty")
	ErrInvalidRepoState = fmt.Errorf("invalid repository state for operation")

	// Sync errors - recoverable per repository unless it was explicitly required.
	ErrSync           = fmt.Errorf("repository sync failed")
	ErrSignature      = fmt.Errorf("metadata signature verification failed")
	ErrNotModified    = fmt.Errorf("metadata not modified")
	ErrDownloadFailed = fmt.Errorf("download failed")
	ErrHashMismatch   = fmt.Errorf("file hash mismatch")
	ErrAllReposFailed = fmt.Errorf("all requested repositories failed to sync")

	// Load errors.
	ErrParse = fmt.Errorf("failed to parse repository metadata")

	// Query errors.
	ErrInvalidSpec = fmt.Errorf("cannot parse package spec")
	ErrNoMatch     = fmt.Errorf("no match for package spec")
	ErrUsage       = fmt.Errorf("invalid combination of query options")

	// Pool and set errors - these indicate programming errors in the caller.
	ErrPoolMismatch = fmt.Errorf("package sets belong to different pools")
	ErrPoolNotReady = fmt.Errorf("pool queried before setup")

	// Session errors.
	ErrAlreadySetup = fmt.Errorf("base is already set up")
	ErrNotSetup     = fmt.Errorf("base has not been set up")
	ErrLocked       = fmt.Errorf("cache directory is locked by another process")

	// Filesystem errors.
	ErrInvalidPath  = fmt.Errorf("invalid path")
	ErrFileNotFound = fmt.Errorf("file not found")
)

// Wrap wraps an error with additional context.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", msg, err)
}

// Wrapf wraps an error with additional formatted context.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}
