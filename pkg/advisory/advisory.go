// Package advisory provides security/bugfix/enhancement notice records
// referencing package versions, as shipped in repository metadata.
package advisory

import "github.com/glorpus-work/repoq/pkg/nevra"

// Kind classifies an advisory.
type Kind string

// Advisory kinds.
const (
	KindSecurity    Kind = "security"
	KindBugfix      Kind = "bugfix"
	KindEnhancement Kind = "enhancement"
	KindNewPackage  Kind = "newpackage"
)

// Ref is one package version named by an advisory.
type Ref struct {
	Name string
	EVR  nevra.EVR
	Arch string
}

// Advisory is a notice referencing one or more package versions.
type Advisory struct {
	ID       string
	Kind     Kind
	Severity string
	Issued   int64
	Refs     []Ref
}

// Set is a list of advisories with simple narrowing helpers, used as the
// input of the advisory package filter.
type Set []Advisory

// FilterKind keeps advisories of the given kinds.
func (s Set) FilterKind(kinds ...Kind) Set {
	out := make(Set, 0, len(s))
	for _, a := range s {
		for _, k := range kinds {
			if a.Kind == k {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// FilterName keeps advisories whose id matches any of the given patterns
// (glob-capable).
func (s Set) FilterName(patterns ...string) Set {
	out := make(Set, 0, len(s))
	for _, a := range s {
		for _, p := range patterns {
			if nevra.MatchString(nevra.CmpGlob, a.ID, p) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}

// FilterSeverity keeps advisories of the given severities (exact,
// case-insensitive).
func (s Set) FilterSeverity(severities ...string) Set {
	out := make(Set, 0, len(s))
	for _, a := range s {
		for _, sev := range severities {
			if nevra.MatchString(nevra.CmpIEQ, a.Severity, sev) {
				out = append(out, a)
				break
			}
		}
	}
	return out
}
