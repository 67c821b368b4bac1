// Package nevra implements the canonical package identity tuple
// (Name-Epoch-Version-Release-Architecture), EVR ordering and parsed
// dependency expressions (reldeps). It is the vocabulary shared by the
// package pool and the query layer.
package nevra

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/hashicorp/go-version"
)

// EVR is the Epoch-Version-Release part of a package identity, used for
// version comparison.
type EVR struct {
	Epoch   int
	Version string
	Release string
}

// ParseEVR parses "epoch:version-release". Epoch and release are optional.
func ParseEVR(s string) EVR {
	var evr EVR
	if idx := strings.IndexByte(s, ':'); idx >= 0 {
		if e, err := strconv.Atoi(s[:idx]); err == nil {
			evr.Epoch = e
			s = s[idx+1:]
		}
	}
	if idx := strings.LastIndexByte(s, '-'); idx >= 0 {
		evr.Release = s[idx+1:]
		s = s[:idx]
	}
	evr.Version = s
	return evr
}

// String renders the EVR, omitting a zero epoch and an empty release.
func (e EVR) String() string {
	var sb strings.Builder
	if e.Epoch != 0 {
		fmt.Fprintf(&sb, "%d:", e.Epoch)
	}
	sb.WriteString(e.Version)
	if e.Release != "" {
		sb.WriteByte('-')
		sb.WriteString(e.Release)
	}
	return sb.String()
}

// Compare orders two EVRs: epoch first, then version, then release.
// Returns -1, 0 or 1.
func (e EVR) Compare(o EVR) int {
	switch {
	case e.Epoch < o.Epoch:
		return -1
	case e.Epoch > o.Epoch:
		return 1
	}
	if c := compareVersionPart(e.Version, o.Version); c != 0 {
		return c
	}
	return compareVersionPart(e.Release, o.Release)
}

// compareVersionPart compares a single version or release string. Strings
// that both parse as semantic-ish versions are ordered by
// hashicorp/go-version; anything else falls back to rpm-style segment
// ordering.
func compareVersionPart(a, b string) int {
	if a == b {
		return 0
	}
	va, errA := version.NewVersion(a)
	vb, errB := version.NewVersion(b)
	if errA == nil && errB == nil {
		return va.Compare(vb)
	}
	return compareSegments(a, b)
}

// compareSegments orders two strings by alternating numeric and alphabetic
// runs. Numeric runs compare as integers and sort after alphabetic runs,
// matching the conventional package version ordering.
func compareSegments(a, b string) int {
	for a != "" || b != "" {
		segA, numA, restA := nextSegment(a)
		segB, numB, restB := nextSegment(b)
		a, b = restA, restB

		switch {
		case segA == "" && segB == "":
			return 0
		case segA == "":
			return -1
		case segB == "":
			return 1
		case numA && !numB:
			return 1
		case !numA && numB:
			return -1
		case numA && numB:
			trimA := strings.TrimLeft(segA, "0")
			trimB := strings.TrimLeft(segB, "0")
			if len(trimA) != len(trimB) {
				if len(trimA) < len(trimB) {
					return -1
				}
				return 1
			}
			if c := strings.Compare(trimA, trimB); c != 0 {
				return c
			}
		default:
			if c := strings.Compare(segA, segB); c != 0 {
				return c
			}
		}
	}
	return 0
}

func nextSegment(s string) (seg string, numeric bool, rest string) {
	// Skip separators.
	i := 0
	for i < len(s) && !isAlnum(s[i]) {
		i++
	}
	s = s[i:]
	if s == "" {
		return "", false, ""
	}
	numeric = isDigit(s[0])
	j := 0
	for j < len(s) && (isDigit(s[j]) == numeric) && isAlnum(s[j]) {
		j++
	}
	return s[:j], numeric, s[j:]
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }

func isAlnum(c byte) bool {
	return isDigit(c) || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

// NEVRA is the full package identity tuple.
type NEVRA struct {
	Name string
	EVR
	Arch string
}

// String renders the full NEVRA as name-epoch:version-release.arch.
func (n NEVRA) String() string {
	return fmt.Sprintf("%s-%d:%s-%s.%s", n.Name, n.Epoch, n.Version, n.Release, n.Arch)
}
