// Package pool implements the process-wide package index. Repository
// loading interns package records into the pool; each record gets a stable
// integer id that is never reused while the pool is alive. Queries run over
// pool ids and dereference them through lightweight Package handles.
//
// The pool is not internally synchronized. All mutation (Intern,
// AddAdvisory) must happen on one logical writer; reads may run
// concurrently with each other once no mutation is in flight. The
// repository sack enforces this discipline by construction.
package pool

import (
	"github.com/glorpus-work/repoq/pkg/advisory"
	"github.com/glorpus-work/repoq/pkg/nevra"
)

// ID is the interned integer identity of a package record. The zero value
// is never a valid id.
type ID uint32

// InstallReason records why an installed package is on the system.
type InstallReason string

// Install reasons, as recorded in system state.
const (
	ReasonUser       InstallReason = "user"
	ReasonDependency InstallReason = "dependency"
)

// Record is the full set of attributes interned for one package.
type Record struct {
	Name    string
	Epoch   int
	Version string
	Release string
	Arch    string

	SourceRPM string
	BuildTime int64
	Files     []string

	Provides    nevra.ReldepList
	Requires    nevra.ReldepList
	Conflicts   nevra.ReldepList
	Obsoletes   nevra.ReldepList
	Recommends  nevra.ReldepList
	Suggests    nevra.ReldepList
	Enhances    nevra.ReldepList
	Supplements nevra.ReldepList

	RepoID    string
	Installed bool
	Reason    InstallReason
}

// NEVRA returns the identity tuple of the record.
func (r *Record) NEVRA() nevra.NEVRA {
	return nevra.NEVRA{
		Name: r.Name,
		EVR:  nevra.EVR{Epoch: r.Epoch, Version: r.Version, Release: r.Release},
		Arch: r.Arch,
	}
}

// Pool owns all interned package records and their advisory associations.
// Exactly one pool exists per session; it is created by the session setup
// and torn down with it.
type Pool struct {
	records    []Record
	byKey      map[string]ID
	advisories advisory.Set
	filelists  bool
}

// New creates an empty pool.
func New() *Pool {
	return &Pool{byKey: make(map[string]ID)}
}

// Intern adds a record to the pool and returns its id. Interning a record
// with identical provenance (same repository and NEVRA) is idempotent and
// returns the previously assigned id with the stored record left untouched.
func (p *Pool) Intern(rec Record) ID {
	key := provenanceKey(&rec)
	if id, ok := p.byKey[key]; ok {
		return id
	}
	p.records = append(p.records, rec)
	id := ID(len(p.records))
	p.byKey[key] = id
	return id
}

// Lookup returns the id previously assigned to a record with the same
// provenance, without interning anything.
func (p *Pool) Lookup(rec Record) (ID, bool) {
	id, ok := p.byKey[provenanceKey(&rec)]
	return id, ok
}

func provenanceKey(rec *Record) string {
	return rec.RepoID + "\x00" + rec.NEVRA().String()
}

// Count returns the number of interned packages.
func (p *Pool) Count() int {
	return len(p.records)
}

// Get returns a handle for the given id. Ids are assigned densely starting
// at 1; asking for an id the pool never assigned is a programming error.
func (p *Pool) Get(id ID) Package {
	if id == 0 || int(id) > len(p.records) {
		panic("pool: no such package id")
	}
	return Package{pool: p, id: id}
}

// MaxID returns the highest assigned id, or 0 for an empty pool.
func (p *Pool) MaxID() ID {
	return ID(len(p.records))
}

// AddAdvisory associates an advisory with the pool.
func (p *Pool) AddAdvisory(a advisory.Advisory) {
	p.advisories = append(p.advisories, a)
}

// Advisories returns all advisories known to the pool.
func (p *Pool) Advisories() advisory.Set {
	return p.advisories
}

// AppendFiles adds file-ownership entries to an already interned record.
// Used when file lists are loaded lazily after the main metadata.
func (p *Pool) AppendFiles(id ID, files []string) {
	rec := p.record(id)
	rec.Files = append(rec.Files, files...)
}

// SetFilelistsLoaded marks that file-ownership metadata has been interned.
// File filters give incomplete answers until this is set.
func (p *Pool) SetFilelistsLoaded() {
	p.filelists = true
}

// FilelistsLoaded reports whether file-ownership metadata is available.
func (p *Pool) FilelistsLoaded() bool {
	return p.filelists
}

func (p *Pool) record(id ID) *Record {
	return &p.records[id-1]
}
