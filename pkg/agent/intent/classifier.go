package intent

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"ai-loanengine-be/pkg/store"
)

// Intent represents a stable, resolved user intention
type Intent string

// Intent constants
const (
	IntentGreeting        Intent = "GREETING"
	IntentProvideInfo     Intent = "PROVIDE_INFO"
	IntentAskPolicy       Intent = "ASK_POLICY"
	IntentRequestDecision Intent = "REQUEST_DECISION"
	IntentUnknown         Intent = "UNKNOWN"
)

// Classification is the resolved intent plus any financial facts stated
// in the message. Classification is rule-based, so the same message
// always yields the same result.
type Classification struct {
	Intent      Intent
	Facts       []store.Fact
	PolicyQuery string
}

var greetingWords = []string{
	"hi", "hello", "hey", "good morning", "good afternoon", "good evening", "howdy",
}

var decisionPhrases = []string{
	"qualify", "eligible", "eligibility", "approve", "approval",
	"prequalif", "pre-qualif", "decision", "can i get the loan", "do i get the loan",
}

var policyPhrases = []string{
	"requirement", "policy", "policies", "criteria", "interest rate",
	"what do you need", "what do i need", "how much can i borrow",
	"minimum", "terms", "collateral",
}

// Classify resolves the user's message into one intent. Priority when a
// message matches several: decision request, then stated facts, then a
// policy question, then greeting.
func Classify(text string, now time.Time) Classification {
	lowered := strings.ToLower(strings.TrimSpace(text))
	facts := extractFacts(text, now)

	if containsAny(lowered, decisionPhrases) {
		return Classification{Intent: IntentRequestDecision, Facts: facts}
	}
	if len(facts) > 0 {
		return Classification{Intent: IntentProvideInfo, Facts: facts}
	}
	if containsAny(lowered, policyPhrases) {
		return Classification{Intent: IntentAskPolicy, PolicyQuery: strings.TrimSpace(text)}
	}
	if isGreeting(lowered) {
		return Classification{Intent: IntentGreeting}
	}
	return Classification{Intent: IntentUnknown}
}

func containsAny(lowered string, phrases []string) bool {
	for _, p := range phrases {
		if strings.Contains(lowered, p) {
			return true
		}
	}
	return false
}

func isGreeting(lowered string) bool {
	for _, g := range greetingWords {
		if strings.HasPrefix(lowered, g) {
			return true
		}
	}
	return false
}

// --- Stated-fact extraction ---

// amountPatterns pair a fact name with the phrasing that introduces its
// dollar amount. Ordering matters: the first match per fact wins.
var amountPatterns = []struct {
	fact    string
	pattern *regexp.Regexp
}{
	{store.FactAnnualRevenue, regexp.MustCompile(`(?i)(?:annual\s+)?(?:revenue|sales|turnover)\s+(?:is|of|was|:)?\s*(?:about|around|roughly)?\s*\$?([\d,.]+)\s*(k|m|million|thousand)?`)},
	{store.FactNetIncome, regexp.MustCompile(`(?i)(?:net\s+income|profit|net\s+profit|earnings)\s+(?:is|of|was|:)?\s*(?:about|around|roughly)?\s*(-?\$?-?[\d,.]+)\s*(k|m|million|thousand)?`)},
	{store.FactExistingDebt, regexp.MustCompile(`(?i)(?:existing\s+debt|debt|owe|outstanding\s+loans?)\s+(?:is|of|was|:)?\s*(?:about|around|roughly)?\s*\$?([\d,.]+)\s*(k|m|million|thousand)?`)},
	{store.FactCashBalance, regexp.MustCompile(`(?i)(?:cash\s+(?:balance|reserves|on\s+hand)|bank\s+balance)\s+(?:is|of|was|:)?\s*(?:about|around|roughly)?\s*\$?([\d,.]+)\s*(k|m|million|thousand)?`)},
	{store.FactRequestedAmount, regexp.MustCompile(`(?i)(?:borrow|loan\s+(?:of|for)|looking\s+for|need|requesting|apply\s+for)\s*(?:a\s+loan\s+of\s*)?\$?([\d,.]+)\s*(k|m|million|thousand)?`)},
}

var creditScorePattern = regexp.MustCompile(`(?i)credit\s+score\s+(?:is|of|:)?\s*(\d{3})|(\d{3})\s+credit\s+score`)

var (
	monthsPattern = regexp.MustCompile(`(?i)(\d+)\s+months?\s+(?:in\s+business|of\s+operation|operating|old)`)
	yearsPattern  = regexp.MustCompile(`(?i)(\d+(?:\.\d+)?)\s+years?\s+(?:in\s+business|of\s+operation|operating|old)`)
)

var (
	defaultYes = regexp.MustCompile(`(?i)(?:am|are|currently|in)\s+(?:in\s+)?default|have\s+defaulted|active\s+default`)
	defaultNo  = regexp.MustCompile(`(?i)(?:no|never|not)\s+(?:been\s+in\s+|in\s+)?default`)
)

func extractFacts(text string, now time.Time) []store.Fact {
	var facts []store.Fact
	seen := map[string]bool{}

	add := func(name string, value float64) {
		if seen[name] {
			return
		}
		seen[name] = true
		facts = append(facts, store.Fact{
			Name:       name,
			Value:      value,
			Provenance: store.ProvenanceStated,
			UpdatedAt:  now,
		})
	}

	for _, p := range amountPatterns {
		if m := p.pattern.FindStringSubmatch(text); m != nil {
			if v, ok := parseMoney(m[1], m[2]); ok {
				add(p.fact, v)
			}
		}
	}

	if m := creditScorePattern.FindStringSubmatch(text); m != nil {
		raw := m[1]
		if raw == "" {
			raw = m[2]
		}
		if v, err := strconv.ParseFloat(raw, 64); err == nil {
			add(store.FactCreditScore, v)
		}
	}

	if m := monthsPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			add(store.FactMonthsInBusiness, v)
		}
	} else if m := yearsPattern.FindStringSubmatch(text); m != nil {
		if v, err := strconv.ParseFloat(m[1], 64); err == nil {
			add(store.FactMonthsInBusiness, v*12)
		}
	}

	// Negations first so "never been in default" does not match the
	// affirmative pattern through its "in default" tail.
	if defaultNo.MatchString(text) {
		facts = append(facts, store.Fact{
			Name: store.FactActiveDefault, BoolValue: false, IsBool: true,
			Provenance: store.ProvenanceStated, UpdatedAt: now,
		})
	} else if defaultYes.MatchString(text) {
		facts = append(facts, store.Fact{
			Name: store.FactActiveDefault, BoolValue: true, IsBool: true,
			Provenance: store.ProvenanceStated, UpdatedAt: now,
		})
	}

	return facts
}

// parseMoney normalizes "1,550,000", "1.55m", "150k" to a dollar value.
func parseMoney(raw, suffix string) (float64, bool) {
	cleaned := strings.ReplaceAll(raw, ",", "")
	negative := strings.HasPrefix(cleaned, "-")
	cleaned = strings.TrimLeft(cleaned, "-$")
	cleaned = strings.TrimSuffix(cleaned, ".")
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil {
		return 0, false
	}
	switch strings.ToLower(suffix) {
	case "k", "thousand":
		v *= 1000
	case "m", "million":
		v *= 1000000
	}
	if negative {
		v = -v
	}
	return v, true
}
