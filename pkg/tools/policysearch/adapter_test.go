package policysearch

import (
	"testing"

	"ai-loanengine-be/pkg/store"
)

func TestRankClausesDeterministicOrder(t *testing.T) {
	clauses := []store.PolicyClause{
		{Section: "4.2", Score: 0.81},
		{Section: "1.3", Score: 0.92},
		{Section: "2.1", Score: 0.81},
		{Section: "1.1", Score: 0.81},
	}

	rankClauses(clauses)

	wantSections := []string{"1.3", "1.1", "2.1", "4.2"}
	for i, want := range wantSections {
		if clauses[i].Section != want {
			t.Errorf("clauses[%d].Section = %q, want %q", i, clauses[i].Section, want)
		}
	}
}

func TestRankClausesStableAcrossCalls(t *testing.T) {
	build := func() []store.PolicyClause {
		return []store.PolicyClause{
			{Section: "3.1", Score: 0.5},
			{Section: "2.9", Score: 0.5},
			{Section: "2.10", Score: 0.7},
		}
	}

	first := build()
	second := build()
	rankClauses(first)
	rankClauses(second)

	for i := range first {
		if first[i].Section != second[i].Section {
			t.Fatalf("ordering differs at %d: %q vs %q", i, first[i].Section, second[i].Section)
		}
	}
}
