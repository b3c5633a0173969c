package eligibility

import (
	"regexp"
	"strconv"
	"strings"

	"ai-loanengine-be/pkg/store"
)

// Thresholds is the full criterion threshold set. The first four can be
// parsed from retrieved policy text; the rest always come from config.
type Thresholds struct {
	MinAnnualRevenue    float64
	MinCreditScore      float64
	MinMonthsInBusiness float64
	MaxLoanToRevenue    float64

	MaxDebtToRevenue float64
	MinNetMargin     float64
	MinCashReserves  float64
}

// DefaultThresholds is the configured fallback set used when thresholds
// cannot be parsed from the policy corpus.
func DefaultThresholds() Thresholds {
	return Thresholds{
		MinAnnualRevenue:    250000,
		MinCreditScore:      680,
		MinMonthsInBusiness: 12,
		MaxLoanToRevenue:    0.25,
		MaxDebtToRevenue:    0.20,
		MinNetMargin:        0.05,
		MinCashReserves:     25000,
	}
}

var (
	revenuePattern = regexp.MustCompile(`(?i)minimum annual revenue of \$?([\d,]+)|at least \$?([\d,]+) in annual revenue`)
	creditPattern  = regexp.MustCompile(`(?i)credit score (?:of at least|of|must be at least|minimum of) (\d{3})`)
	monthsPattern  = regexp.MustCompile(`(?i)(?:at least|minimum of) (\d+) months in business`)
	loanPctPattern = regexp.MustCompile(`(?i)loan amounts? (?:must|may) not exceed (\d+(?:\.\d+)?)% of annual revenue`)
)

// ParseThresholds extracts structured thresholds from policy clauses.
// Each criterion falls back to its default independently; usedDefaults
// reports whether any fallback was taken, so the Decision can disclose it.
// The two code paths are explicit: a threshold is either parsed in full
// from clause text or taken verbatim from defaults, never blended.
func ParseThresholds(clauses []store.PolicyClause, defaults Thresholds) (Thresholds, bool) {
	parsed := defaults
	found := struct{ revenue, credit, months, loan bool }{}

	for _, clause := range clauses {
		text := clause.Content

		if !found.revenue {
			if m := revenuePattern.FindStringSubmatch(text); m != nil {
				raw := m[1]
				if raw == "" {
					raw = m[2]
				}
				if v, ok := parseAmount(raw); ok {
					parsed.MinAnnualRevenue = v
					found.revenue = true
				}
			}
		}
		if !found.credit {
			if m := creditPattern.FindStringSubmatch(text); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					parsed.MinCreditScore = v
					found.credit = true
				}
			}
		}
		if !found.months {
			if m := monthsPattern.FindStringSubmatch(text); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					parsed.MinMonthsInBusiness = v
					found.months = true
				}
			}
		}
		if !found.loan {
			if m := loanPctPattern.FindStringSubmatch(text); m != nil {
				if v, err := strconv.ParseFloat(m[1], 64); err == nil {
					parsed.MaxLoanToRevenue = v / 100
					found.loan = true
				}
			}
		}
	}

	usedDefaults := !found.revenue || !found.credit || !found.months || !found.loan
	return parsed, usedDefaults
}

func parseAmount(raw string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
