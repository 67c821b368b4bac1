package nevra

import (
	"strings"
)

// Cmp is a comparison operator used by query filters. Ordering comparators
// apply to EVR values, string comparators to names, archs and files.
type Cmp int

// Supported comparators.
const (
	CmpNone Cmp = iota
	CmpEQ
	CmpNEQ
	CmpGT
	CmpGTE
	CmpLT
	CmpLTE
	CmpGlob
	CmpIEQ
	CmpIGlob
)

// String returns the comparator in capability-expression notation.
func (c Cmp) String() string {
	switch c {
	case CmpEQ, CmpIEQ:
		return "="
	case CmpNEQ:
		return "!="
	case CmpGT:
		return ">"
	case CmpGTE:
		return ">="
	case CmpLT:
		return "<"
	case CmpLTE:
		return "<="
	case CmpGlob, CmpIGlob:
		return "~"
	default:
		return ""
	}
}

// Check reports whether an ordering result (-1, 0, 1 as returned by
// EVR.Compare) satisfies the comparator.
func (c Cmp) Check(rel int) bool {
	switch c {
	case CmpEQ, CmpIEQ:
		return rel == 0
	case CmpNEQ:
		return rel != 0
	case CmpGT:
		return rel > 0
	case CmpGTE:
		return rel >= 0
	case CmpLT:
		return rel < 0
	case CmpLTE:
		return rel <= 0
	default:
		return false
	}
}

// MatchString matches value against pattern under a string comparator.
// CmpGlob uses shell-style patterns; a pattern without glob characters
// degrades to an exact match so callers can pass user input unchanged.
func MatchString(c Cmp, value, pattern string) bool {
	switch c {
	case CmpIEQ, CmpIGlob:
		value = strings.ToLower(value)
		pattern = strings.ToLower(pattern)
	}
	switch c {
	case CmpEQ, CmpIEQ:
		return value == pattern
	case CmpNEQ:
		return value != pattern
	case CmpGlob, CmpIGlob:
		if !HasGlob(pattern) {
			return value == pattern
		}
		return globMatch(pattern, value)
	default:
		return false
	}
}

// globMatch matches value against a shell-style pattern with '*', '?',
// '[...]' classes and '\' escapes. Unlike path.Match the wildcards also
// cross '/', so file patterns like /usr/* reach into subdirectories.
func globMatch(pattern, value string) bool {
	px, vx := 0, 0
	starPx, starVx := -1, 0
	for vx < len(value) {
		if px < len(pattern) {
			switch pattern[px] {
			case '*':
				starPx, starVx = px, vx
				px++
				continue
			case '?':
				px++
				vx++
				continue
			case '[':
				if n, ok := matchClass(pattern[px:], value[vx]); ok {
					px += n
					vx++
					continue
				}
			case '\\':
				if px+1 < len(pattern) && pattern[px+1] == value[vx] {
					px += 2
					vx++
					continue
				}
			default:
				if pattern[px] == value[vx] {
					px++
					vx++
					continue
				}
			}
		}
		// Backtrack to the last '*' and let it swallow one more byte.
		if starPx >= 0 {
			starVx++
			px, vx = starPx+1, starVx
			continue
		}
		return false
	}
	for px < len(pattern) && pattern[px] == '*' {
		px++
	}
	return px == len(pattern)
}

// matchClass matches c against the '[...]' class at the start of pattern
// and returns the class length in bytes. An unterminated class never
// matches.
func matchClass(pattern string, c byte) (length int, matched bool) {
	i := 1
	negate := false
	if i < len(pattern) && (pattern[i] == '^' || pattern[i] == '!') {
		negate = true
		i++
	}
	for first := true; ; first = false {
		if i >= len(pattern) {
			return 0, false
		}
		if pattern[i] == ']' && !first {
			i++
			break
		}
		lo := pattern[i]
		i++
		if lo == '\\' && i < len(pattern) {
			lo = pattern[i]
			i++
		}
		hi := lo
		if i+1 < len(pattern) && pattern[i] == '-' && pattern[i+1] != ']' {
			i++
			hi = pattern[i]
			i++
			if hi == '\\' && i < len(pattern) {
				hi = pattern[i]
				i++
			}
		}
		if lo <= c && c <= hi {
			matched = true
		}
	}
	if negate {
		matched = !matched
	}
	return i, matched
}

// Fold returns the case-insensitive variant of a string comparator.
func (c Cmp) Fold() Cmp {
	switch c {
	case CmpEQ:
		return CmpIEQ
	case CmpGlob:
		return CmpIGlob
	default:
		return c
	}
}

// HasGlob reports whether s contains shell glob metacharacters.
func HasGlob(s string) bool {
	return strings.ContainsAny(s, "*?[")
}

// IsFilePattern reports whether a capability string looks like a file path
// rather than a symbolic provide.
func IsFilePattern(s string) bool {
	return strings.HasPrefix(s, "/") || strings.HasPrefix(s, "*/")
}
