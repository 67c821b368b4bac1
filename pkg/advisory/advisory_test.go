package advisory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func testSet() Set {
	return Set{
		{ID: "RQSA-2026:0001", Kind: KindSecurity, Severity: "Important"},
		{ID: "RQSA-2026:0002", Kind: KindSecurity, Severity: "Moderate"},
		{ID: "RQBA-2026:0100", Kind: KindBugfix, Severity: "Low"},
		{ID: "RQEA-2026:0200", Kind: KindEnhancement},
	}
}

func ids(s Set) []string {
	out := make([]string, 0, len(s))
	for _, a := range s {
		out = append(out, a.ID)
	}
	return out
}

func TestFilterKind(t *testing.T) {
	s := testSet()

	assert.Equal(t, []string{"RQSA-2026:0001", "RQSA-2026:0002"}, ids(s.FilterKind(KindSecurity)))
	assert.Equal(t, []string{"RQBA-2026:0100", "RQEA-2026:0200"}, ids(s.FilterKind(KindBugfix, KindEnhancement)))
	assert.Empty(t, s.FilterKind(KindNewPackage))
}

func TestFilterName(t *testing.T) {
	s := testSet()

	assert.Equal(t, []string{"RQBA-2026:0100"}, ids(s.FilterName("RQBA-2026:0100")))
	assert.Equal(t, []string{"RQSA-2026:0001", "RQSA-2026:0002"}, ids(s.FilterName("RQSA-*")))
	assert.Empty(t, s.FilterName("RQSA-2025:*"))
}

func TestFilterSeverity(t *testing.T) {
	s := testSet()

	// Severity comparison ignores case.
	assert.Equal(t, []string{"RQSA-2026:0001"}, ids(s.FilterSeverity("important")))
	assert.Equal(t, []string{"RQSA-2026:0002", "RQBA-2026:0100"}, ids(s.FilterSeverity("moderate", "low")))
	assert.Empty(t, s.FilterSeverity("critical"))
}

func TestFiltersChain(t *testing.T) {
	s := testSet()

	got := s.FilterKind(KindSecurity).FilterSeverity("Important")
	assert.Equal(t, []string{"RQSA-2026:0001"}, ids(got))
}
