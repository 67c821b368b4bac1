// Package query implements the package query layer: a package set
// augmented with a filter algebra, free-form spec resolution and
// dependency-relationship filters.
//
// Successive filter calls on the same query compose with AND semantics:
// each call intersects the current content with the predicate's matches.
// OR semantics are expressed explicitly by cloning a query, filtering the
// copies differently and unioning them back together.
package query

import (
	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/nevra"
	"github.com/glorpus-work/repoq/pkg/pkgset"
	"github.com/glorpus-work/repoq/pkg/pool"
)

// Query is a package set with a filter algebra. It carries no state beyond
// its membership; every filter mutates the query in place and returns it
// for chaining.
type Query struct {
	*pkgset.Set
}

// New creates a query over the pool. With includeAll the query starts as
// the full pool universe, otherwise empty. Querying without a pool is a
// programming error and panics.
func New(p *pool.Pool, includeAll bool) *Query {
	if p == nil {
		panic(errors.ErrPoolNotReady)
	}
	if includeAll {
		return &Query{Set: pkgset.Full(p)}
	}
	return &Query{Set: pkgset.New(p)}
}

// FromSet wraps an existing set without copying it.
func FromSet(s *pkgset.Set) *Query {
	return &Query{Set: s}
}

// Clone returns an independent copy of the query.
func (q *Query) Clone() *Query {
	return &Query{Set: q.Set.Clone()}
}

// replace swaps the query content for s. Both must share the pool.
func (q *Query) replace(s *pkgset.Set) {
	if s.Pool() != q.Pool() {
		panic("query: replacement set belongs to a different pool")
	}
	*q.Set = *s
}

// filter keeps only members satisfying pred.
func (q *Query) filter(pred func(pkg pool.Package) bool) *Query {
	matched := pkgset.New(q.Pool())
	q.Each(func(pkg pool.Package) bool {
		if pred(pkg) {
			matched.Add(pkg)
		}
		return true
	})
	q.replace(matched)
	return q
}

// FilterName keeps packages whose name matches any of the values under cmp.
func (q *Query) FilterName(cmp nevra.Cmp, names ...string) *Query {
	return q.filter(func(pkg pool.Package) bool {
		return matchAny(cmp, pkg.Name(), names)
	})
}

// FilterArch keeps packages whose architecture matches any of the values.
func (q *Query) FilterArch(cmp nevra.Cmp, archs ...string) *Query {
	return q.filter(func(pkg pool.Package) bool {
		return matchAny(cmp, pkg.Arch(), archs)
	})
}

// FilterEVR keeps packages whose EVR matches any of the values. Ordering
// comparators (GT, GTE, LT, LTE, NEQ against parsed EVRs) compare version
// order; EQ and GLOB match the textual renderings, with and without epoch.
func (q *Query) FilterEVR(cmp nevra.Cmp, evrs ...string) *Query {
	return q.filter(func(pkg pool.Package) bool {
		for _, want := range evrs {
			switch cmp {
			case nevra.CmpGT, nevra.CmpGTE, nevra.CmpLT, nevra.CmpLTE, nevra.CmpNEQ:
				if cmp.Check(pkg.EVR().Compare(nevra.ParseEVR(want))) {
					return true
				}
			default:
				if (nevra.Pattern{EVR: want}).MatchEVR(cmp, pkg.EVR()) {
					return true
				}
			}
		}
		return false
	})
}

// FilterFile keeps packages owning a file that matches any of the patterns.
func (q *Query) FilterFile(cmp nevra.Cmp, paths ...string) *Query {
	return q.filter(func(pkg pool.Package) bool {
		for _, f := range pkg.Files() {
			if matchAny(cmp, f, paths) {
				return true
			}
		}
		return false
	})
}

// FilterSourceRPM keeps packages whose source rpm file name matches any of
// the values.
func (q *Query) FilterSourceRPM(cmp nevra.Cmp, srpms ...string) *Query {
	return q.filter(func(pkg pool.Package) bool {
		return matchAny(cmp, pkg.SourceRPM(), srpms)
	})
}

// FilterRepoID keeps packages interned from repositories whose id matches.
func (q *Query) FilterRepoID(cmp nevra.Cmp, ids ...string) *Query {
	return q.filter(func(pkg pool.Package) bool {
		return matchAny(cmp, pkg.RepoID(), ids)
	})
}

// FilterInstalled keeps packages from the system repository.
func (q *Query) FilterInstalled() *Query {
	return q.filter(pool.Package.Installed)
}

// FilterAvailable keeps packages from available (non-system) repositories.
func (q *Query) FilterAvailable() *Query {
	return q.filter(func(pkg pool.Package) bool {
		return !pkg.Installed()
	})
}

// FilterRecent keeps packages built at or after the cutoff (seconds since
// the epoch).
func (q *Query) FilterRecent(since int64) *Query {
	return q.filter(func(pkg pool.Package) bool {
		return pkg.BuildTime() >= since
	})
}

func matchAny(cmp nevra.Cmp, value string, patterns []string) bool {
	for _, p := range patterns {
		if nevra.MatchString(cmp, value, p) {
			return true
		}
	}
	return false
}
