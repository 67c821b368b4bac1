package nevra

import "strings"

// Form identifies one way of splitting a free-form package spec into
// identity fields. Specs are ambiguous ("foo-1.0" may be a name or a
// name-version), so resolution tries forms in a fixed priority order and
// the first form producing matches wins.
type Form int

// Spec interpretation forms, in resolution priority order.
const (
	FormNEVRA Form = iota // name-epoch:version-release.arch
	FormNA                // name.arch
	FormName              // name
	FormNEVR              // name-epoch:version-release
	FormNEV               // name-epoch:version
)

// DefaultForms is the resolution order applied by spec matching.
var DefaultForms = []Form{FormNEVRA, FormNA, FormName, FormNEVR, FormNEV}

// Pattern is one candidate interpretation of a spec. Fields are textual and
// glob-capable; empty fields are unconstrained.
type Pattern struct {
	Name string
	EVR  string // "version-release" or "epoch:version-release"; no release for FormNEV
	Arch string
}

// SplitForm splits spec according to form. It reports false when the spec
// cannot take the requested shape.
func SplitForm(spec string, form Form) (Pattern, bool) {
	switch form {
	case FormName:
		return Pattern{Name: spec}, true
	case FormNA:
		dot := strings.LastIndexByte(spec, '.')
		if dot <= 0 || dot == len(spec)-1 {
			return Pattern{}, false
		}
		return Pattern{Name: spec[:dot], Arch: spec[dot+1:]}, true
	case FormNEV:
		dash := strings.LastIndexByte(spec, '-')
		if dash <= 0 || dash == len(spec)-1 {
			return Pattern{}, false
		}
		return Pattern{Name: spec[:dash], EVR: spec[dash+1:]}, true
	case FormNEVR:
		name, evr, ok := splitNameEVR(spec)
		if !ok {
			return Pattern{}, false
		}
		return Pattern{Name: name, EVR: evr}, true
	case FormNEVRA:
		dot := strings.LastIndexByte(spec, '.')
		if dot <= 0 || dot == len(spec)-1 {
			return Pattern{}, false
		}
		name, evr, ok := splitNameEVR(spec[:dot])
		if !ok {
			return Pattern{}, false
		}
		return Pattern{Name: name, EVR: evr, Arch: spec[dot+1:]}, true
	default:
		return Pattern{}, false
	}
}

// splitNameEVR splits "name-version-release" on the second dash from the
// right.
func splitNameEVR(s string) (name, evr string, ok bool) {
	relDash := strings.LastIndexByte(s, '-')
	if relDash <= 0 {
		return "", "", false
	}
	verDash := strings.LastIndexByte(s[:relDash], '-')
	if verDash <= 0 {
		return "", "", false
	}
	return s[:verDash], s[verDash+1:], true
}

// MatchEVR matches a package EVR against the textual, possibly glob-carrying
// pattern field. Both the epoch-qualified and the plain rendering of the
// package EVR are candidates, so "1.0-1" matches a package with epoch 0 and
// "1:1.0-1" matches one with epoch 1. Version-only patterns (FormNEV) match
// when the release is unconstrained.
func (p Pattern) MatchEVR(cmp Cmp, evr EVR) bool {
	if p.EVR == "" {
		return true
	}
	candidates := []string{
		evr.String(),
		evr.Version + "-" + evr.Release,
		evr.Version,
	}
	for _, c := range candidates {
		if MatchString(cmp, c, p.EVR) {
			return true
		}
	}
	return false
}
