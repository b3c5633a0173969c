package eligibility

import (
	"fmt"
	"sort"

	"ai-loanengine-be/pkg/store"
)

// Outcome is the final prequalification verdict.
type Outcome string

const (
	OutcomePreApproved Outcome = "PRE_APPROVED"
	OutcomeConditional Outcome = "CONDITIONAL"
	OutcomeNeedsInfo   Outcome = "NEEDS_INFO"
	OutcomeNotEligible Outcome = "NOT_ELIGIBLE"
)

// Criterion names used in decision explanations.
const (
	CriterionTimeInBusiness = "time in business"
	CriterionCashFlow       = "cash flow"
	CriterionActiveDefault  = "active default"
	CriterionAnnualRevenue  = "annual revenue"
	CriterionCreditScore    = "credit score"
	CriterionLoanToRevenue  = "loan-to-revenue ratio"
	CriterionDebtToRevenue  = "debt-to-revenue ratio"
	CriterionProfitMargin   = "profit margin"
	CriterionCashReserves   = "cash reserves"
)

// Remediation actions attached to CONDITIONAL decisions.
const (
	RemediationCollateral   = "pledge collateral to secure the loan"
	RemediationBusinessPlan = "provide a business plan showing a path to profitability"
	RemediationCashProof    = "provide proof of cash reserves"
)

// Decision is the complete, explainable evaluation result. Given the same
// facts, clauses and defaults it is always identical.
type Decision struct {
	Outcome      Outcome  `json:"outcome"`
	Satisfied    []string `json:"satisfied"`
	Violated     []string `json:"violated"`
	Marginal     []string `json:"marginal"`
	MissingFacts []string `json:"missing_facts"`
	Remediation  []string `json:"remediation"`
	Thresholds   Thresholds
	UsedDefaults bool `json:"used_defaults"`
}

type criterionState int

const (
	stateSatisfied criterionState = iota
	stateViolated
	stateMarginal
	stateUnknown
)

type criterionResult struct {
	name        string
	state       criterionState
	hard        bool
	required    bool
	missing     []string
	explanation string
	remediation []string
}

// Evaluate applies every lending criterion to the collected facts and
// produces a deterministic decision. No call leaves this function: the
// evaluator is pure so the same inputs always yield the same verdict.
//
// Hard criteria (time in business, cash flow, active default) knock the
// applicant out when violated. Soft criteria below threshold make the
// decision CONDITIONAL with remediation steps. A required criterion that
// cannot be evaluated routes to NEEDS_INFO, never to a pass.
func Evaluate(facts store.ApplicantFacts, clauses []store.PolicyClause, defaults Thresholds) Decision {
	th, usedDefaults := ParseThresholds(clauses, defaults)

	results := []criterionResult{
		evalTimeInBusiness(facts, th),
		evalCashFlow(facts, th),
		evalActiveDefault(facts),
		evalAnnualRevenue(facts, th),
		evalCreditScore(facts, th),
		evalLoanToRevenue(facts, th),
		evalDebtToRevenue(facts, th),
		evalProfitMargin(facts, th),
		evalCashReserves(facts, th),
	}

	decision := Decision{
		Thresholds:   th,
		UsedDefaults: usedDefaults,
	}

	hardViolated := false
	requiredUnknown := false
	missingSet := map[string]bool{}

	for _, r := range results {
		switch r.state {
		case stateSatisfied:
			decision.Satisfied = append(decision.Satisfied, r.name)
		case stateViolated:
			decision.Violated = append(decision.Violated, r.explanation)
			if r.hard {
				hardViolated = true
			}
		case stateMarginal:
			decision.Marginal = append(decision.Marginal, r.explanation)
			decision.Remediation = append(decision.Remediation, r.remediation...)
		case stateUnknown:
			if r.required {
				requiredUnknown = true
				for _, f := range r.missing {
					missingSet[f] = true
				}
			}
		}
	}

	for f := range missingSet {
		decision.MissingFacts = append(decision.MissingFacts, f)
	}
	sort.Strings(decision.MissingFacts)
	decision.Remediation = dedupe(decision.Remediation)

	switch {
	case hardViolated:
		decision.Outcome = OutcomeNotEligible
		decision.Remediation = nil
	case requiredUnknown:
		decision.Outcome = OutcomeNeedsInfo
		decision.Remediation = nil
	case len(decision.Marginal) > 0:
		decision.Outcome = OutcomeConditional
	default:
		decision.Outcome = OutcomePreApproved
	}
	return decision
}

// --- Hard criteria ---

func evalTimeInBusiness(facts store.ApplicantFacts, th Thresholds) criterionResult {
	r := criterionResult{name: CriterionTimeInBusiness, hard: true, required: true}
	months, ok := facts.Lookup(store.FactMonthsInBusiness)
	if !ok {
		r.state = stateUnknown
		r.missing = []string{store.FactMonthsInBusiness}
		return r
	}
	if months >= th.MinMonthsInBusiness {
		r.state = stateSatisfied
		return r
	}
	r.state = stateViolated
	r.explanation = fmt.Sprintf("time in business below the %.0f-month minimum (%.0f months)", th.MinMonthsInBusiness, months)
	return r
}

// evalCashFlow is the solvency check. Negative net income is only fatal
// when cash reserves cannot absorb it; negative income with unknown
// reserves is an unknown, not a pass.
func evalCashFlow(facts store.ApplicantFacts, th Thresholds) criterionResult {
	r := criterionResult{name: CriterionCashFlow, hard: true, required: true}
	netIncome, ok := facts.Lookup(store.FactNetIncome)
	if !ok {
		r.state = stateUnknown
		r.missing = []string{store.FactNetIncome}
		return r
	}
	if netIncome >= 0 {
		r.state = stateSatisfied
		return r
	}
	cash, ok := facts.Lookup(store.FactCashBalance)
	if !ok {
		r.state = stateUnknown
		r.missing = []string{store.FactCashBalance}
		return r
	}
	if cash >= th.MinCashReserves {
		r.state = stateSatisfied
		return r
	}
	r.state = stateViolated
	r.explanation = fmt.Sprintf("negative cash flow (net income %s) without sufficient reserves", FormatAmount(netIncome))
	return r
}

func evalActiveDefault(facts store.ApplicantFacts) criterionResult {
	r := criterionResult{name: CriterionActiveDefault, hard: true}
	inDefault, ok := facts.LookupBool(store.FactActiveDefault)
	if !ok || !inDefault {
		// Absence of a reported default is not a missing datum.
		r.state = stateSatisfied
		return r
	}
	r.state = stateViolated
	r.explanation = "active default on an existing obligation"
	return r
}

// --- Soft criteria ---

func evalAnnualRevenue(facts store.ApplicantFacts, th Thresholds) criterionResult {
	r := criterionResult{name: CriterionAnnualRevenue, required: true}
	revenue, ok := facts.Lookup(store.FactAnnualRevenue)
	if !ok {
		r.state = stateUnknown
		r.missing = []string{store.FactAnnualRevenue}
		return r
	}
	if revenue >= th.MinAnnualRevenue {
		r.state = stateSatisfied
		return r
	}
	r.state = stateMarginal
	r.explanation = fmt.Sprintf("annual revenue below the %s minimum", FormatAmount(th.MinAnnualRevenue))
	r.remediation = []string{RemediationBusinessPlan}
	return r
}

func evalCreditScore(facts store.ApplicantFacts, th Thresholds) criterionResult {
	r := criterionResult{name: CriterionCreditScore, required: true}
	score, ok := facts.Lookup(store.FactCreditScore)
	if !ok {
		r.state = stateUnknown
		r.missing = []string{store.FactCreditScore}
		return r
	}
	if score >= th.MinCreditScore {
		r.state = stateSatisfied
		return r
	}
	r.state = stateMarginal
	r.explanation = fmt.Sprintf("credit score below the %.0f minimum", th.MinCreditScore)
	r.remediation = []string{RemediationCollateral}
	return r
}

// evalLoanToRevenue only applies once a requested amount is on file;
// before that the applicant simply has not asked for a figure yet.
func evalLoanToRevenue(facts store.ApplicantFacts, th Thresholds) criterionResult {
	r := criterionResult{name: CriterionLoanToRevenue}
	amount, okAmount := facts.Lookup(store.FactRequestedAmount)
	revenue, okRevenue := facts.Lookup(store.FactAnnualRevenue)
	if !okAmount || !okRevenue || revenue <= 0 {
		r.state = stateUnknown
		return r
	}
	if amount/revenue <= th.MaxLoanToRevenue {
		r.state = stateSatisfied
		return r
	}
	r.state = stateMarginal
	r.explanation = fmt.Sprintf("requested amount exceeds %.0f%% of annual revenue", th.MaxLoanToRevenue*100)
	r.remediation = []string{RemediationCollateral, RemediationBusinessPlan}
	return r
}

func evalDebtToRevenue(facts store.ApplicantFacts, th Thresholds) criterionResult {
	r := criterionResult{name: CriterionDebtToRevenue}
	debt, okDebt := facts.Lookup(store.FactExistingDebt)
	revenue, okRevenue := facts.Lookup(store.FactAnnualRevenue)
	if !okDebt || !okRevenue || revenue <= 0 {
		r.state = stateUnknown
		return r
	}
	if debt/revenue <= th.MaxDebtToRevenue {
		r.state = stateSatisfied
		return r
	}
	r.state = stateMarginal
	r.explanation = fmt.Sprintf("existing debt exceeds %.0f%% of annual revenue", th.MaxDebtToRevenue*100)
	r.remediation = []string{RemediationCollateral}
	return r
}

func evalProfitMargin(facts store.ApplicantFacts, th Thresholds) criterionResult {
	r := criterionResult{name: CriterionProfitMargin}
	netIncome, okIncome := facts.Lookup(store.FactNetIncome)
	revenue, okRevenue := facts.Lookup(store.FactAnnualRevenue)
	if !okIncome || !okRevenue || revenue <= 0 {
		r.state = stateUnknown
		return r
	}
	if netIncome < 0 {
		// Negative income is already the cash-flow criterion's call.
		r.state = stateUnknown
		return r
	}
	if netIncome/revenue >= th.MinNetMargin {
		r.state = stateSatisfied
		return r
	}
	r.state = stateMarginal
	r.explanation = fmt.Sprintf("profit margin below %.0f%%", th.MinNetMargin*100)
	r.remediation = []string{RemediationCashProof}
	return r
}

func evalCashReserves(facts store.ApplicantFacts, th Thresholds) criterionResult {
	r := criterionResult{name: CriterionCashReserves}
	cash, ok := facts.Lookup(store.FactCashBalance)
	if !ok {
		r.state = stateUnknown
		return r
	}
	if cash >= th.MinCashReserves {
		r.state = stateSatisfied
		return r
	}
	r.state = stateMarginal
	r.explanation = fmt.Sprintf("cash reserves below %s", FormatAmount(th.MinCashReserves))
	r.remediation = []string{RemediationCashProof}
	return r
}

// FormatAmount renders a dollar amount with thousands separators and no
// cents, e.g. 1550000 -> "$1,550,000". Negative values keep the sign
// before the dollar symbol.
func FormatAmount(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	whole := int64(v + 0.5)
	s := fmt.Sprintf("%d", whole)
	var out []byte
	for i, d := range []byte(s) {
		if i > 0 && (len(s)-i)%3 == 0 {
			out = append(out, ',')
		}
		out = append(out, d)
	}
	return sign + "$" + string(out)
}

func dedupe(items []string) []string {
	if len(items) == 0 {
		return nil
	}
	seen := map[string]bool{}
	var out []string
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
