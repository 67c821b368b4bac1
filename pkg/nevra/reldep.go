package nevra

import (
	"strings"

	"github.com/glorpus-work/repoq/pkg/errors"
)

// Reldep is a parsed dependency expression: a capability name with an
// optional comparator and version. Unversioned expressions have CmpNone.
type Reldep struct {
	Name string
	Cmp  Cmp
	EVR  string
}

// ParseReldep parses a capability string such as "libfoo", "libfoo >= 1.2-3"
// or "webserver = 2:1.0". Glob characters are allowed in the name.
func ParseReldep(s string) (Reldep, error) {
	fields := strings.Fields(s)
	switch len(fields) {
	case 1:
		return Reldep{Name: fields[0]}, nil
	case 3:
		cmp, ok := parseCmpToken(fields[1])
		if !ok {
			return Reldep{}, errors.Wrapf(errors.ErrInvalidSpec, "unknown comparator %q in %q", fields[1], s)
		}
		return Reldep{Name: fields[0], Cmp: cmp, EVR: fields[2]}, nil
	default:
		return Reldep{}, errors.Wrapf(errors.ErrInvalidSpec, "malformed capability %q", s)
	}
}

func parseCmpToken(tok string) (Cmp, bool) {
	switch tok {
	case "=", "==":
		return CmpEQ, true
	case "!=":
		return CmpNEQ, true
	case ">":
		return CmpGT, true
	case ">=":
		return CmpGTE, true
	case "<":
		return CmpLT, true
	case "<=":
		return CmpLTE, true
	default:
		return CmpNone, false
	}
}

// String renders the reldep back into capability notation.
func (r Reldep) String() string {
	if r.Cmp == CmpNone {
		return r.Name
	}
	return r.Name + " " + r.Cmp.String() + " " + r.EVR
}

// MatchName matches the expression name against a concrete capability name.
// The expression side may carry glob characters.
func (r Reldep) MatchName(name string) bool {
	return MatchString(CmpGlob, name, r.Name)
}

// SatisfiedBy reports whether a concrete provided capability satisfies the
// expression. A versionless expression matches any provide of the name; a
// versioned expression is never satisfied by a versionless provide. Provides
// are treated as version points: the range comparator a provide may carry is
// ignored and only its EVR participates in the comparison.
func (r Reldep) SatisfiedBy(provided Reldep) bool {
	if !r.MatchName(provided.Name) {
		return false
	}
	if r.Cmp == CmpNone {
		return true
	}
	if provided.Cmp == CmpNone || provided.EVR == "" {
		return false
	}
	return r.Cmp.Check(ParseEVR(provided.EVR).Compare(ParseEVR(r.EVR)))
}

// Intersects reports whether the version ranges of two expressions can be
// satisfied by a common version. Names are not considered. An unversioned
// side intersects everything. This intentionally approximates dependency
// intersection on version points and half-open ranges.
func (r Reldep) Intersects(o Reldep) bool {
	if r.Cmp == CmpNone || o.Cmp == CmpNone {
		return true
	}
	c := ParseEVR(r.EVR).Compare(ParseEVR(o.EVR))
	switch {
	case r.Cmp == CmpNEQ || o.Cmp == CmpNEQ:
		return !(r.Cmp == CmpEQ || o.Cmp == CmpEQ) || c != 0
	case r.Cmp == CmpEQ:
		return o.Cmp.Check(c)
	case o.Cmp == CmpEQ:
		return r.Cmp.Check(-c)
	}
	rLower := r.Cmp == CmpGT || r.Cmp == CmpGTE
	oLower := o.Cmp == CmpGT || o.Cmp == CmpGTE
	if rLower == oLower {
		// Two lower bounds or two upper bounds always overlap.
		return true
	}
	// One lower, one upper bound: the lower bound must not exceed the upper.
	lower, upper := r, o
	rel := c
	if !rLower {
		lower, upper = o, r
		rel = -rel
	}
	if rel != 0 {
		return rel < 0
	}
	return lower.Cmp == CmpGTE && upper.Cmp == CmpLTE
}

// ReldepList is an ordered list of dependency expressions.
type ReldepList []Reldep

// ParseReldepList parses each capability string. A single malformed entry
// fails the whole list.
func ParseReldepList(specs []string) (ReldepList, error) {
	list := make(ReldepList, 0, len(specs))
	for _, s := range specs {
		dep, err := ParseReldep(s)
		if err != nil {
			return nil, err
		}
		list = append(list, dep)
	}
	return list, nil
}

// SatisfiedByAny reports whether any expression in the list is satisfied by
// the provided capability.
func (l ReldepList) SatisfiedByAny(provided Reldep) bool {
	for _, r := range l {
		if r.SatisfiedBy(provided) {
			return true
		}
	}
	return false
}

// Strings renders the list back into capability notation.
func (l ReldepList) Strings() []string {
	out := make([]string, len(l))
	for i, r := range l {
		out[i] = r.String()
	}
	return out
}
