package query

import (
	"strings"

	"github.com/glorpus-work/repoq/pkg/nevra"
	"github.com/glorpus-work/repoq/pkg/pkgset"
	"github.com/glorpus-work/repoq/pkg/pool"
)

// ResolveSpecSettings controls which match layers ResolveSpec tries and
// how strings compare.
type ResolveSpecSettings struct {
	// IgnoreCase folds case on name and arch matching.
	IgnoreCase bool
	// WithNevra enables the NEVRA-form layer (name, name.arch,
	// name-version-release.arch and friends).
	WithNevra bool
	// WithProvides enables matching the spec against provide capabilities.
	WithProvides bool
	// WithFilenames enables matching file-path specs against package file
	// lists.
	WithFilenames bool
	// WithBinaries additionally tries bare command names as
	// /usr/bin/<spec> and /usr/sbin/<spec>.
	WithBinaries bool
}

// DefaultResolveSpecSettings enables every match layer.
func DefaultResolveSpecSettings() ResolveSpecSettings {
	return ResolveSpecSettings{
		WithNevra:     true,
		WithProvides:  true,
		WithFilenames: true,
		WithBinaries:  true,
	}
}

// ResolveSpec narrows the query to packages matching a free-form spec and
// reports whether anything matched. Layers are tried in a fixed order and
// the first one producing matches wins: NEVRA forms, then provides, then
// file names (for path-shaped specs), then /usr/bin and /usr/sbin
// binaries. A spec with no matches in any enabled layer leaves the query
// empty and returns false.
func (q *Query) ResolveSpec(spec string, settings ResolveSpecSettings) bool {
	cmp := nevra.CmpEQ
	if nevra.HasGlob(spec) {
		cmp = nevra.CmpGlob
	}
	if settings.IgnoreCase {
		cmp = cmp.Fold()
	}

	if settings.WithNevra {
		for _, form := range nevra.DefaultForms {
			pat, ok := nevra.SplitForm(spec, form)
			if !ok {
				continue
			}
			if matched := q.matchPattern(pat, cmp); matched != nil {
				q.replace(matched)
				return true
			}
		}
	}

	if settings.WithProvides {
		provides := q.Clone().FilterProvides(spec)
		if !provides.Empty() {
			q.replace(provides.Set)
			return true
		}
	}

	if settings.WithFilenames && nevra.IsFilePattern(spec) {
		files := q.Clone().FilterFile(nevra.CmpGlob, spec)
		if !files.Empty() {
			q.replace(files.Set)
			return true
		}
	}

	if settings.WithBinaries && !strings.ContainsRune(spec, '/') {
		binaries := q.Clone().FilterFile(nevra.CmpGlob, "/usr/bin/"+spec, "/usr/sbin/"+spec)
		if !binaries.Empty() {
			q.replace(binaries.Set)
			return true
		}
	}

	q.Clear()
	return false
}

// matchPattern evaluates one form interpretation against the query
// content. It returns nil when nothing matches so callers can fall through
// to the next form.
func (q *Query) matchPattern(pat nevra.Pattern, cmp nevra.Cmp) *pkgset.Set {
	matched := pkgset.New(q.Pool())
	q.Each(func(pkg pool.Package) bool {
		if !nevra.MatchString(cmp, pkg.Name(), pat.Name) {
			return true
		}
		if pat.Arch != "" && !nevra.MatchString(cmp, pkg.Arch(), pat.Arch) {
			return true
		}
		if !pat.MatchEVR(cmp, pkg.EVR()) {
			return true
		}
		matched.Add(pkg)
		return true
	})
	if matched.Empty() {
		return nil
	}
	return matched
}

// MatchSpecs narrows the query to the union of matches for the specs.
// Specs naming known command-line packages match those packages directly
// before general resolution applies. Specs with no match anywhere are
// returned in the second result; an empty spec list keeps the query
// unchanged.
func (q *Query) MatchSpecs(specs []string, cmdline map[string]pool.Package, settings ResolveSpecSettings) (matched *Query, unmatched []string) {
	if len(specs) == 0 {
		return q, nil
	}
	result := New(q.Pool(), false)
	for _, spec := range specs {
		if pkg, ok := cmdline[spec]; ok {
			result.Add(pkg)
			continue
		}
		sub := q.Clone()
		if sub.ResolveSpec(spec, settings) {
			result.Union(sub.Set)
		} else {
			unmatched = append(unmatched, spec)
		}
	}
	q.replace(result.Set)
	return q, unmatched
}
