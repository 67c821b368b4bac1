package pool

import (
	"strings"

	"github.com/glorpus-work/repoq/pkg/nevra"
)

// Package is a lightweight, copyable reference to a record in the pool. It
// never owns data and is valid only as long as its pool is alive. The zero
// Package is invalid; using it is a programming error and panics.
type Package struct {
	pool *Pool
	id   ID
}

// ID returns the pool id of the package.
func (p Package) ID() ID { return p.id }

// Pool returns the owning pool.
func (p Package) Pool() *Pool { return p.pool }

// Valid reports whether the handle points into a live pool.
func (p Package) Valid() bool { return p.pool != nil && p.id != 0 && int(p.id) <= len(p.pool.records) }

func (p Package) rec() *Record {
	if !p.Valid() {
		panic("pool: package handle used before pool setup or after teardown")
	}
	return p.pool.record(p.id)
}

// Name returns the package name.
func (p Package) Name() string { return p.rec().Name }

// Epoch returns the package epoch.
func (p Package) Epoch() int { return p.rec().Epoch }

// Version returns the package version.
func (p Package) Version() string { return p.rec().Version }

// Release returns the package release.
func (p Package) Release() string { return p.rec().Release }

// Arch returns the package architecture.
func (p Package) Arch() string { return p.rec().Arch }

// EVR returns the epoch-version-release tuple.
func (p Package) EVR() nevra.EVR {
	r := p.rec()
	return nevra.EVR{Epoch: r.Epoch, Version: r.Version, Release: r.Release}
}

// NEVRA returns the full identity tuple.
func (p Package) NEVRA() nevra.NEVRA { return p.rec().NEVRA() }

// SourceRPM returns the source package file name, empty for source packages
// themselves.
func (p Package) SourceRPM() string { return p.rec().SourceRPM }

// SourceName derives the source package name from the source rpm file name
// ("foo-1.0-1.src.rpm" yields "foo"). Empty when there is no source rpm.
func (p Package) SourceName() string {
	srpm := p.rec().SourceRPM
	srpm = strings.TrimSuffix(srpm, ".rpm")
	srpm = strings.TrimSuffix(srpm, ".src")
	// Strip "-version-release".
	relDash := strings.LastIndexByte(srpm, '-')
	if relDash <= 0 {
		return srpm
	}
	verDash := strings.LastIndexByte(srpm[:relDash], '-')
	if verDash <= 0 {
		return srpm
	}
	return srpm[:verDash]
}

// BuildTime returns the build timestamp in seconds since the epoch.
func (p Package) BuildTime() int64 { return p.rec().BuildTime }

// Files returns the file-ownership list of the package.
func (p Package) Files() []string { return p.rec().Files }

// Provides returns the provides edges.
func (p Package) Provides() nevra.ReldepList { return p.rec().Provides }

// Requires returns the requires edges.
func (p Package) Requires() nevra.ReldepList { return p.rec().Requires }

// Conflicts returns the conflicts edges.
func (p Package) Conflicts() nevra.ReldepList { return p.rec().Conflicts }

// Obsoletes returns the obsoletes edges.
func (p Package) Obsoletes() nevra.ReldepList { return p.rec().Obsoletes }

// Recommends returns the recommends edges.
func (p Package) Recommends() nevra.ReldepList { return p.rec().Recommends }

// Suggests returns the suggests edges.
func (p Package) Suggests() nevra.ReldepList { return p.rec().Suggests }

// Enhances returns the enhances edges.
func (p Package) Enhances() nevra.ReldepList { return p.rec().Enhances }

// Supplements returns the supplements edges.
func (p Package) Supplements() nevra.ReldepList { return p.rec().Supplements }

// RepoID returns the id of the repository the package was interned from.
func (p Package) RepoID() string { return p.rec().RepoID }

// Installed reports whether the package came from the system repository.
func (p Package) Installed() bool { return p.rec().Installed }

// Reason returns the recorded installation reason, empty for packages that
// are not installed.
func (p Package) Reason() InstallReason { return p.rec().Reason }

// String renders the full NEVRA.
func (p Package) String() string { return p.NEVRA().String() }
