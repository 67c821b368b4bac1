package query

import (
	"github.com/glorpus-work/repoq/internal/logger"
	"github.com/glorpus-work/repoq/pkg/errors"
	"github.com/glorpus-work/repoq/pkg/nevra"
	"github.com/glorpus-work/repoq/pkg/pkgset"
	"github.com/glorpus-work/repoq/pkg/pool"
)

// edgeAccessor selects one dependency edge list of a package.
type edgeAccessor func(pkg pool.Package) nevra.ReldepList

// parseCapabilities parses capability strings into reldep expressions.
// Unparseable entries contribute no matches and are logged, per the
// invalid-spec policy; they do not fail the whole filter.
func parseCapabilities(capabilities []string) nevra.ReldepList {
	exprs := make(nevra.ReldepList, 0, len(capabilities))
	for _, c := range capabilities {
		dep, err := nevra.ParseReldep(c)
		if err != nil {
			logger.Debug("skipping unparseable capability", logger.Fields{"capability": c})
			continue
		}
		exprs = append(exprs, dep)
	}
	return exprs
}

// edgeMatches reports whether a dependency edge matches a filter
// expression: the expression name (glob-capable) must match the edge name
// and the version ranges must intersect.
func edgeMatches(expr, edge nevra.Reldep) bool {
	return expr.MatchName(edge.Name) && expr.Intersects(edge)
}

// filterRelation keeps packages having at least one edge matching any of
// the expressions.
func (q *Query) filterRelation(edges edgeAccessor, exprs nevra.ReldepList) *Query {
	return q.filter(func(pkg pool.Package) bool {
		for _, edge := range edges(pkg) {
			for _, expr := range exprs {
				if edgeMatches(expr, edge) {
					return true
				}
			}
		}
		return false
	})
}

// packageSatisfies reports whether target provides a capability (or owns a
// file) satisfying the dependency edge.
func packageSatisfies(edge nevra.Reldep, target pool.Package) bool {
	for _, prov := range target.Provides() {
		if edge.SatisfiedBy(prov) {
			return true
		}
	}
	// The package name itself is an implicit provide at the package EVR.
	if edge.SatisfiedBy(nevra.Reldep{Name: target.Name(), Cmp: nevra.CmpEQ, EVR: target.EVR().String()}) {
		return true
	}
	if nevra.IsFilePattern(edge.Name) {
		for _, f := range target.Files() {
			if f == edge.Name {
				return true
			}
		}
	}
	return false
}

// filterRelationSet keeps packages having at least one edge satisfied by
// any package in pkgs.
func (q *Query) filterRelationSet(edges edgeAccessor, pkgs *pkgset.Set) *Query {
	targets := pkgs.Packages()
	return q.filter(func(pkg pool.Package) bool {
		for _, edge := range edges(pkg) {
			for _, target := range targets {
				if packageSatisfies(edge, target) {
					return true
				}
			}
		}
		return false
	})
}

// FilterProvides keeps packages providing any of the capabilities. File
// paths only match symbolic provides here; use FilterWhatProvides to fall
// back to file-ownership matching.
func (q *Query) FilterProvides(capabilities ...string) *Query {
	return q.filterRelation(pool.Package.Provides, parseCapabilities(capabilities))
}

// FilterRequires keeps packages requiring any of the capabilities.
func (q *Query) FilterRequires(capabilities ...string) *Query {
	return q.filterRelation(pool.Package.Requires, parseCapabilities(capabilities))
}

// FilterRequiresSet keeps packages requiring any package in pkgs.
func (q *Query) FilterRequiresSet(pkgs *pkgset.Set) *Query {
	return q.filterRelationSet(pool.Package.Requires, pkgs)
}

// FilterConflicts keeps packages conflicting with any of the capabilities.
func (q *Query) FilterConflicts(capabilities ...string) *Query {
	return q.filterRelation(pool.Package.Conflicts, parseCapabilities(capabilities))
}

// FilterConflictsSet keeps packages conflicting with any package in pkgs.
func (q *Query) FilterConflictsSet(pkgs *pkgset.Set) *Query {
	return q.filterRelationSet(pool.Package.Conflicts, pkgs)
}

// FilterObsoletes keeps packages obsoleting any of the capabilities.
func (q *Query) FilterObsoletes(capabilities ...string) *Query {
	return q.filterRelation(pool.Package.Obsoletes, parseCapabilities(capabilities))
}

// FilterRecommends keeps packages recommending any of the capabilities.
func (q *Query) FilterRecommends(capabilities ...string) *Query {
	return q.filterRelation(pool.Package.Recommends, parseCapabilities(capabilities))
}

// FilterRecommendsSet keeps packages recommending any package in pkgs.
func (q *Query) FilterRecommendsSet(pkgs *pkgset.Set) *Query {
	return q.filterRelationSet(pool.Package.Recommends, pkgs)
}

// FilterSuggests keeps packages suggesting any of the capabilities.
func (q *Query) FilterSuggests(capabilities ...string) *Query {
	return q.filterRelation(pool.Package.Suggests, parseCapabilities(capabilities))
}

// FilterSuggestsSet keeps packages suggesting any package in pkgs.
func (q *Query) FilterSuggestsSet(pkgs *pkgset.Set) *Query {
	return q.filterRelationSet(pool.Package.Suggests, pkgs)
}

// FilterEnhances keeps packages enhancing any of the capabilities.
func (q *Query) FilterEnhances(capabilities ...string) *Query {
	return q.filterRelation(pool.Package.Enhances, parseCapabilities(capabilities))
}

// FilterEnhancesSet keeps packages enhancing any package in pkgs.
func (q *Query) FilterEnhancesSet(pkgs *pkgset.Set) *Query {
	return q.filterRelationSet(pool.Package.Enhances, pkgs)
}

// FilterSupplements keeps packages supplementing any of the capabilities.
func (q *Query) FilterSupplements(capabilities ...string) *Query {
	return q.filterRelation(pool.Package.Supplements, parseCapabilities(capabilities))
}

// FilterSupplementsSet keeps packages supplementing any package in pkgs.
func (q *Query) FilterSupplementsSet(pkgs *pkgset.Set) *Query {
	return q.filterRelationSet(pool.Package.Supplements, pkgs)
}

// FilterWhatProvides keeps packages providing any of the capabilities,
// falling back to interpreting the inputs as file-path globs when the
// provides match comes up empty. This mirrors the compatibility behavior
// for capability strings that are actually paths.
func (q *Query) FilterWhatProvides(capabilities []string) *Query {
	provides := q.Clone().FilterProvides(capabilities...)
	if !provides.Empty() {
		q.replace(provides.Set)
		return q
	}
	return q.FilterFile(nevra.CmpGlob, capabilities...)
}

// CheckExactDepsUsage validates the exactdeps modifier: it only makes
// sense together with a whatrequires or whatdepends filter.
func CheckExactDepsUsage(exactDeps bool, whatRequires, whatDepends []string) error {
	if exactDeps && len(whatRequires) == 0 && len(whatDepends) == 0 {
		return errors.Wrap(errors.ErrUsage, "exactdeps requires whatrequires or whatdepends")
	}
	return nil
}

// resolveNevrasToPackages resolves each glob as a NEVRA/name spec (no
// provides, no file names) against a snapshot of base and unions the
// matches.
func resolveNevrasToPackages(base *Query, globs []string) *pkgset.Set {
	settings := ResolveSpecSettings{WithNevra: true}
	resolved := pkgset.New(base.Pool())
	for _, glob := range globs {
		tmp := base.Clone()
		tmp.ResolveSpec(glob, settings)
		resolved.Union(tmp.Set)
	}
	return resolved
}

// FilterWhatRequires keeps packages that require any of the capabilities.
// Without exactDeps the capability strings are additionally resolved to
// concrete packages and "requires any of these packages" matches are
// unioned in, catching requirement edges expressed by package name rather
// than by the formal capability string.
func (q *Query) FilterWhatRequires(capabilities []string, exactDeps bool) *Query {
	if exactDeps {
		return q.FilterRequires(capabilities...)
	}
	viaPackages := q.Clone().FilterRequiresSet(resolveNevrasToPackages(q, capabilities))
	q.FilterRequires(capabilities...)
	q.Union(viaPackages.Set)
	return q
}

// FilterWhatDepends keeps packages that require, recommend, suggest,
// enhance or supplement any of the capabilities, with the same
// package-resolution expansion as FilterWhatRequires unless exactDeps is
// set.
func (q *Query) FilterWhatDepends(capabilities []string, exactDeps bool) *Query {
	exprs := parseCapabilities(capabilities)
	edgeKinds := []edgeAccessor{
		pool.Package.Requires,
		pool.Package.Recommends,
		pool.Package.Suggests,
		pool.Package.Enhances,
		pool.Package.Supplements,
	}

	depends := q.Clone().filterRelation(edgeKinds[0], exprs)
	for _, edges := range edgeKinds[1:] {
		depends.Union(q.Clone().filterRelation(edges, exprs).Set)
	}

	if !exactDeps {
		resolved := resolveNevrasToPackages(q, capabilities)
		for _, edges := range edgeKinds {
			depends.Union(q.Clone().filterRelationSet(edges, resolved).Set)
		}
	}

	q.replace(depends.Set)
	return q
}

// FilterWhatConflicts keeps packages conflicting with any of the
// capabilities or with any package the capabilities resolve to.
func (q *Query) FilterWhatConflicts(capabilities []string) *Query {
	viaPackages := q.Clone().FilterConflictsSet(resolveNevrasToPackages(q, capabilities))
	q.FilterConflicts(capabilities...)
	q.Union(viaPackages.Set)
	return q
}

// FilterWhatObsoletes keeps packages whose obsoletes match any of the
// capabilities. Obsoletes edges name capabilities directly, so there is
// no package-resolution expansion here.
func (q *Query) FilterWhatObsoletes(capabilities []string) *Query {
	return q.FilterObsoletes(capabilities...)
}

// FilterWhatRecommends keeps packages recommending any of the
// capabilities or any package the capabilities resolve to.
func (q *Query) FilterWhatRecommends(capabilities []string) *Query {
	viaPackages := q.Clone().FilterRecommendsSet(resolveNevrasToPackages(q, capabilities))
	q.FilterRecommends(capabilities...)
	q.Union(viaPackages.Set)
	return q
}

// FilterWhatSuggests keeps packages suggesting any of the capabilities
// or any package the capabilities resolve to.
func (q *Query) FilterWhatSuggests(capabilities []string) *Query {
	viaPackages := q.Clone().FilterSuggestsSet(resolveNevrasToPackages(q, capabilities))
	q.FilterSuggests(capabilities...)
	q.Union(viaPackages.Set)
	return q
}

// FilterWhatEnhances keeps packages enhancing any of the capabilities
// or any package the capabilities resolve to.
func (q *Query) FilterWhatEnhances(capabilities []string) *Query {
	viaPackages := q.Clone().FilterEnhancesSet(resolveNevrasToPackages(q, capabilities))
	q.FilterEnhances(capabilities...)
	q.Union(viaPackages.Set)
	return q
}

// FilterWhatSupplements keeps packages supplementing any of the
// capabilities or any package the capabilities resolve to.
func (q *Query) FilterWhatSupplements(capabilities []string) *Query {
	viaPackages := q.Clone().FilterSupplementsSet(resolveNevrasToPackages(q, capabilities))
	q.FilterSupplements(capabilities...)
	q.Union(viaPackages.Set)
	return q
}
