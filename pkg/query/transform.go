package query

import (
	"sort"
	"strings"

	"github.com/glorpus-work/repoq/pkg/advisory"
	"github.com/glorpus-work/repoq/pkg/nevra"
	"github.com/glorpus-work/repoq/pkg/pkgset"
	"github.com/glorpus-work/repoq/pkg/pool"
)

// FilterLatestEVR groups the query by name and architecture and orders
// each group by version descending. limit > 0 keeps the newest limit
// versions of each group, limit < 0 keeps everything except the oldest
// -limit versions, limit == 0 leaves the query untouched.
func (q *Query) FilterLatestEVR(limit int) *Query {
	if limit == 0 {
		return q
	}

	groups := make(map[string][]pool.Package)
	var order []string
	q.Each(func(pkg pool.Package) bool {
		key := pkg.Name() + "." + pkg.Arch()
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], pkg)
		return true
	})

	kept := pkgset.New(q.Pool())
	for _, key := range order {
		group := groups[key]
		sort.SliceStable(group, func(i, j int) bool {
			return group[i].EVR().Compare(group[j].EVR()) > 0
		})
		var keep []pool.Package
		if limit > 0 {
			n := limit
			if n > len(group) {
				n = len(group)
			}
			keep = group[:n]
		} else {
			n := len(group) + limit
			if n < 0 {
				n = 0
			}
			keep = group[:n]
		}
		for _, pkg := range keep {
			kept.Add(pkg)
		}
	}
	q.replace(kept)
	return q
}

// FilterAdvisories keeps packages referenced by any of the advisories.
// A package matches a reference when name and arch are equal and the
// package EVR stands in the cmp relation to the reference EVR, so
// CmpLT selects packages older than the fixed version and CmpGTE selects
// already-patched ones.
func (q *Query) FilterAdvisories(advisories advisory.Set, cmp nevra.Cmp) *Query {
	return q.filter(func(pkg pool.Package) bool {
		for _, adv := range advisories {
			for _, ref := range adv.Refs {
				if ref.Name != pkg.Name() {
					continue
				}
				if ref.Arch != "" && ref.Arch != pkg.Arch() {
					continue
				}
				if cmp.Check(pkg.EVR().Compare(ref.EVR)) {
					return true
				}
			}
		}
		return false
	})
}

// FilterSourceRPMs replaces the query content with the source packages
// that built its members, looked up in universe by source name, EVR and
// the src architecture. Members without a resolvable source are dropped.
func (q *Query) FilterSourceRPMs(universe *Query) *Query {
	type srcKey struct {
		name string
		evr  string
	}
	wanted := make(map[srcKey]struct{})
	q.Each(func(pkg pool.Package) bool {
		srpm := pkg.SourceRPM()
		if srpm == "" {
			return true
		}
		name, evr, ok := splitSourceRPM(srpm)
		if !ok {
			return true
		}
		wanted[srcKey{name, evr}] = struct{}{}
		return true
	})

	sources := pkgset.New(q.Pool())
	universe.Each(func(pkg pool.Package) bool {
		if pkg.Arch() != "src" && pkg.Arch() != "nosrc" {
			return true
		}
		evr := pkg.EVR()
		key := srcKey{pkg.Name(), evr.Version + "-" + evr.Release}
		if _, ok := wanted[key]; ok {
			sources.Add(pkg)
		}
		return true
	})
	q.replace(sources)
	return q
}

// splitSourceRPM splits "name-version-release.src.rpm" into name and
// "version-release".
func splitSourceRPM(srpm string) (name, evr string, ok bool) {
	base := strings.TrimSuffix(srpm, ".rpm")
	base = strings.TrimSuffix(base, ".src")
	base = strings.TrimSuffix(base, ".nosrc")
	relDash := strings.LastIndexByte(base, '-')
	if relDash <= 0 {
		return "", "", false
	}
	verDash := strings.LastIndexByte(base[:relDash], '-')
	if verDash <= 0 {
		return "", "", false
	}
	return base[:verDash], base[verDash+1:], true
}
