package eligibility

import (
	"reflect"
	"strings"
	"testing"
	"time"

	"ai-loanengine-be/pkg/store"
)

func factsOf(values map[string]float64) store.ApplicantFacts {
	facts := store.ApplicantFacts{}
	now := time.Now()
	for name, v := range values {
		facts[name] = store.Fact{Name: name, Value: v, Provenance: store.ProvenanceStated, UpdatedAt: now}
	}
	return facts
}

func TestEvaluateHealthyApplicantPreApproved(t *testing.T) {
	facts := factsOf(map[string]float64{
		store.FactAnnualRevenue:    1550000,
		store.FactNetIncome:        183750,
		store.FactCreditScore:      762,
		store.FactMonthsInBusiness: 42,
		store.FactRequestedAmount:  150000,
	})

	decision := Evaluate(facts, nil, DefaultThresholds())

	if decision.Outcome != OutcomePreApproved {
		t.Fatalf("Outcome = %s, want %s (violated=%v marginal=%v missing=%v)",
			decision.Outcome, OutcomePreApproved, decision.Violated, decision.Marginal, decision.MissingFacts)
	}
	if len(decision.Violated) != 0 || len(decision.Marginal) != 0 {
		t.Errorf("expected clean decision, got violated=%v marginal=%v", decision.Violated, decision.Marginal)
	}
	if !decision.UsedDefaults {
		t.Error("expected UsedDefaults with no policy clauses")
	}
}

func TestEvaluateThinMarginAndHighDebtConditional(t *testing.T) {
	facts := factsOf(map[string]float64{
		store.FactAnnualRevenue:    668000,
		store.FactNetIncome:        16552,
		store.FactCreditScore:      698,
		store.FactMonthsInBusiness: 60,
		store.FactExistingDebt:     134100,
	})

	decision := Evaluate(facts, nil, DefaultThresholds())

	if decision.Outcome != OutcomeConditional {
		t.Fatalf("Outcome = %s, want %s (violated=%v missing=%v)",
			decision.Outcome, OutcomeConditional, decision.Violated, decision.MissingFacts)
	}
	wantRemediation := map[string]bool{
		RemediationCollateral: false,
		RemediationCashProof:  false,
	}
	for _, step := range decision.Remediation {
		if _, ok := wantRemediation[step]; ok {
			wantRemediation[step] = true
		}
	}
	for step, found := range wantRemediation {
		if !found {
			t.Errorf("remediation missing %q, got %v", step, decision.Remediation)
		}
	}
}

func TestEvaluateHardViolationsNotEligible(t *testing.T) {
	facts := factsOf(map[string]float64{
		store.FactMonthsInBusiness: 8,
		store.FactNetIncome:        -137700,
		store.FactCashBalance:      6170,
	})

	decision := Evaluate(facts, nil, DefaultThresholds())

	if decision.Outcome != OutcomeNotEligible {
		t.Fatalf("Outcome = %s, want %s", decision.Outcome, OutcomeNotEligible)
	}
	joined := strings.Join(decision.Violated, "; ")
	if !strings.Contains(joined, "time in business") {
		t.Errorf("violations should cite time in business, got %v", decision.Violated)
	}
	if !strings.Contains(joined, "negative cash flow") {
		t.Errorf("violations should cite negative cash flow, got %v", decision.Violated)
	}
	if len(decision.Remediation) != 0 {
		t.Errorf("NOT_ELIGIBLE must not carry remediation, got %v", decision.Remediation)
	}
}

func TestEvaluateMissingCreditScoreNeedsInfo(t *testing.T) {
	facts := factsOf(map[string]float64{
		store.FactAnnualRevenue:    900000,
		store.FactNetIncome:        120000,
		store.FactMonthsInBusiness: 36,
		store.FactRequestedAmount:  100000,
	})

	decision := Evaluate(facts, nil, DefaultThresholds())

	if decision.Outcome != OutcomeNeedsInfo {
		t.Fatalf("Outcome = %s, want %s", decision.Outcome, OutcomeNeedsInfo)
	}
	if want := []string{store.FactCreditScore}; !reflect.DeepEqual(decision.MissingFacts, want) {
		t.Errorf("MissingFacts = %v, want exactly %v", decision.MissingFacts, want)
	}
}

func TestEvaluateActiveDefaultNotEligible(t *testing.T) {
	facts := factsOf(map[string]float64{
		store.FactAnnualRevenue:    900000,
		store.FactNetIncome:        120000,
		store.FactCreditScore:      720,
		store.FactMonthsInBusiness: 36,
	})
	facts[store.FactActiveDefault] = store.Fact{
		Name: store.FactActiveDefault, BoolValue: true, IsBool: true,
		Provenance: store.ProvenanceStated, UpdatedAt: time.Now(),
	}

	decision := Evaluate(facts, nil, DefaultThresholds())

	if decision.Outcome != OutcomeNotEligible {
		t.Fatalf("Outcome = %s, want %s", decision.Outcome, OutcomeNotEligible)
	}
	if !strings.Contains(strings.Join(decision.Violated, "; "), "active default") {
		t.Errorf("violations should cite the active default, got %v", decision.Violated)
	}
}

func TestEvaluateInclusiveBoundaries(t *testing.T) {
	// Exactly on every threshold must count as satisfied.
	th := DefaultThresholds()
	facts := factsOf(map[string]float64{
		store.FactAnnualRevenue:    th.MinAnnualRevenue,
		store.FactNetIncome:        th.MinAnnualRevenue * th.MinNetMargin,
		store.FactCreditScore:      th.MinCreditScore,
		store.FactMonthsInBusiness: th.MinMonthsInBusiness,
		store.FactRequestedAmount:  th.MinAnnualRevenue * th.MaxLoanToRevenue,
		store.FactExistingDebt:     th.MinAnnualRevenue * th.MaxDebtToRevenue,
		store.FactCashBalance:      th.MinCashReserves,
	})

	decision := Evaluate(facts, nil, th)

	if decision.Outcome != OutcomePreApproved {
		t.Fatalf("Outcome = %s, want %s (violated=%v marginal=%v)",
			decision.Outcome, OutcomePreApproved, decision.Violated, decision.Marginal)
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	facts := factsOf(map[string]float64{
		store.FactAnnualRevenue:    668000,
		store.FactNetIncome:        16552,
		store.FactCreditScore:      698,
		store.FactMonthsInBusiness: 60,
		store.FactExistingDebt:     134100,
	})

	first := Evaluate(facts, nil, DefaultThresholds())
	for i := 0; i < 20; i++ {
		again := Evaluate(facts, nil, DefaultThresholds())
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("run %d differs from first run", i)
		}
	}
}

func TestParseThresholdsFromClauses(t *testing.T) {
	clauses := []store.PolicyClause{
		{Section: "2.1", Content: "Applicants must show a minimum annual revenue of $300,000 for unsecured products."},
		{Section: "2.4", Content: "A personal credit score of at least 700 is required for all term loans."},
		{Section: "3.2", Content: "The business must have operated for at least 24 months in business before applying."},
		{Section: "4.1", Content: "Loan amounts may not exceed 20% of annual revenue."},
	}

	th, usedDefaults := ParseThresholds(clauses, DefaultThresholds())

	if usedDefaults {
		t.Error("all four thresholds parsed, usedDefaults should be false")
	}
	if th.MinAnnualRevenue != 300000 {
		t.Errorf("MinAnnualRevenue = %v, want 300000", th.MinAnnualRevenue)
	}
	if th.MinCreditScore != 700 {
		t.Errorf("MinCreditScore = %v, want 700", th.MinCreditScore)
	}
	if th.MinMonthsInBusiness != 24 {
		t.Errorf("MinMonthsInBusiness = %v, want 24", th.MinMonthsInBusiness)
	}
	if th.MaxLoanToRevenue != 0.20 {
		t.Errorf("MaxLoanToRevenue = %v, want 0.20", th.MaxLoanToRevenue)
	}
}

func TestParseThresholdsPartialFallsBack(t *testing.T) {
	clauses := []store.PolicyClause{
		{Section: "2.4", Content: "A personal credit score of at least 640 is required."},
	}

	th, usedDefaults := ParseThresholds(clauses, DefaultThresholds())

	if !usedDefaults {
		t.Error("only one threshold parsed, usedDefaults should be true")
	}
	if th.MinCreditScore != 640 {
		t.Errorf("MinCreditScore = %v, want 640", th.MinCreditScore)
	}
	if th.MinAnnualRevenue != DefaultThresholds().MinAnnualRevenue {
		t.Errorf("MinAnnualRevenue should fall back to default, got %v", th.MinAnnualRevenue)
	}
}

func TestFormatAmount(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{1550000, "$1,550,000"},
		{150000, "$150,000"},
		{999, "$999"},
		{0, "$0"},
		{-137700, "-$137,700"},
	}
	for _, tt := range tests {
		if got := FormatAmount(tt.in); got != tt.want {
			t.Errorf("FormatAmount(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
