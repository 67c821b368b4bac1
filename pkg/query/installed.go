package query

import (
	"github.com/glorpus-work/repoq/pkg/nevra"
	"github.com/glorpus-work/repoq/pkg/pkgset"
	"github.com/glorpus-work/repoq/pkg/pool"
)

// FilterUserInstalled keeps installed packages recorded as explicitly
// requested by the user, dropping those pulled in only as dependencies.
func (q *Query) FilterUserInstalled() *Query {
	return q.filter(func(pkg pool.Package) bool {
		return pkg.Installed() && pkg.Reason() == pool.ReasonUser
	})
}

// FilterLeaves keeps installed packages that no other installed package
// depends on, directly or through weak dependencies.
func (q *Query) FilterLeaves() *Query {
	installed := New(q.Pool(), true).FilterInstalled()
	members := installed.Packages()

	required := pkgset.New(q.Pool())
	for _, pkg := range members {
		edges := append(nevra.ReldepList{}, pkg.Requires()...)
		edges = append(edges, pkg.Recommends()...)
		edges = append(edges, pkg.Suggests()...)
		for _, edge := range edges {
			for _, target := range members {
				if target.ID() == pkg.ID() {
					continue
				}
				if packageSatisfies(edge, target) {
					required.Add(target)
				}
			}
		}
	}

	q.Intersect(installed.Set)
	q.Difference(required)
	return q
}

// FilterDuplicates keeps installed packages that have more than one
// installed version of the same name and architecture. Packages matching
// an installonly pattern, by explicit provide or by name, are excluded
// first, multiple versions of those are expected.
func (q *Query) FilterDuplicates(installonly []string) *Query {
	candidates := q.Clone().FilterInstalled()
	if len(installonly) > 0 {
		exprs := parseCapabilities(installonly)
		protected := candidates.Clone().filter(func(pkg pool.Package) bool {
			for _, expr := range exprs {
				if packageSatisfies(expr, pkg) {
					return true
				}
			}
			return false
		})
		candidates.Difference(protected.Set)
	}

	groups := make(map[string][]pool.Package)
	candidates.Each(func(pkg pool.Package) bool {
		key := pkg.Name() + "." + pkg.Arch()
		groups[key] = append(groups[key], pkg)
		return true
	})

	duplicates := pkgset.New(q.Pool())
	for _, group := range groups {
		if len(group) > 1 {
			for _, pkg := range group {
				duplicates.Add(pkg)
			}
		}
	}
	q.replace(duplicates)
	return q
}

// FilterUnneeded keeps installed dependency-installed packages that are
// not transitively required by any user-installed or protected package.
func (q *Query) FilterUnneeded(protected []string) *Query {
	installed := New(q.Pool(), true).FilterInstalled()
	members := installed.Packages()

	// Seed with user-installed and protected packages, then walk the
	// requirement graph (strong and weak edges) to collect everything
	// reachable from them.
	needed := installed.Clone().FilterUserInstalled()
	if len(protected) > 0 {
		needed.Union(installed.Clone().FilterName(nevra.CmpGlob, protected...).Set)
	}

	frontier := needed.Packages()
	for len(frontier) > 0 {
		var next []pool.Package
		for _, pkg := range frontier {
			edges := append(nevra.ReldepList{}, pkg.Requires()...)
			edges = append(edges, pkg.Recommends()...)
			for _, edge := range edges {
				for _, target := range members {
					if needed.Contains(target) {
						continue
					}
					if packageSatisfies(edge, target) {
						needed.Add(target)
						next = append(next, target)
					}
				}
			}
		}
		frontier = next
	}

	q.Intersect(installed.Set)
	q.Difference(needed.Set)
	return q
}

// FilterExtras keeps installed packages with no same-name, same-EVR,
// same-arch counterpart in any available repository.
func (q *Query) FilterExtras() *Query {
	available := make(map[string]struct{})
	New(q.Pool(), true).FilterAvailable().Each(func(pkg pool.Package) bool {
		available[pkg.NEVRA().String()] = struct{}{}
		return true
	})
	return q.filter(func(pkg pool.Package) bool {
		if !pkg.Installed() {
			return false
		}
		_, found := available[pkg.NEVRA().String()]
		return !found
	})
}

// FilterUpgrades keeps available packages strictly newer than the
// installed package of the same name and architecture. Names with no
// installed counterpart are dropped.
func (q *Query) FilterUpgrades() *Query {
	installed := make(map[string]nevra.EVR)
	New(q.Pool(), true).FilterInstalled().Each(func(pkg pool.Package) bool {
		key := pkg.Name() + "." + pkg.Arch()
		if have, ok := installed[key]; !ok || pkg.EVR().Compare(have) > 0 {
			installed[key] = pkg.EVR()
		}
		return true
	})
	return q.filter(func(pkg pool.Package) bool {
		if pkg.Installed() {
			return false
		}
		have, ok := installed[pkg.Name()+"."+pkg.Arch()]
		return ok && pkg.EVR().Compare(have) > 0
	})
}

// FilterDowngrades keeps available packages strictly older than the
// lowest installed package of the same name and architecture.
func (q *Query) FilterDowngrades() *Query {
	installed := make(map[string]nevra.EVR)
	New(q.Pool(), true).FilterInstalled().Each(func(pkg pool.Package) bool {
		key := pkg.Name() + "." + pkg.Arch()
		if have, ok := installed[key]; !ok || pkg.EVR().Compare(have) < 0 {
			installed[key] = pkg.EVR()
		}
		return true
	})
	return q.filter(func(pkg pool.Package) bool {
		if pkg.Installed() {
			return false
		}
		have, ok := installed[pkg.Name()+"."+pkg.Arch()]
		return ok && pkg.EVR().Compare(have) < 0
	})
}
