package compose

import (
	"context"
	"fmt"
	"log"
	"strings"

	"ai-loanengine-be/pkg/agent/router"
	"ai-loanengine-be/pkg/eligibility"
	"ai-loanengine-be/pkg/llm"
	"ai-loanengine-be/pkg/store"
	"ai-loanengine-be/pkg/tools/language"
)

const greetingReply = "Hello! I can help you find out whether your business pre-qualifies for a loan. To get started, could you tell me a bit about your business and its annual revenue?"

const clarifyReply = "I didn't quite catch that. You can tell me about your business finances, upload a financial document, or ask about our lending requirements."

const policyUnavailableNote = "Policy lookup is temporarily unavailable, so I'm answering from what I already have."

// followUps map missing facts to the single question the composer asks,
// in priority order.
var followUps = []struct {
	fact     string
	question string
}{
	{store.FactAnnualRevenue, "What was your business's annual revenue over the last twelve months?"},
	{store.FactNetIncome, "What was your net income over the same period?"},
	{store.FactMonthsInBusiness, "How long has the business been operating?"},
	{store.FactCreditScore, "What is your personal credit score?"},
	{store.FactCashBalance, "Roughly how much cash does the business hold in reserve?"},
	{store.FactRequestedAmount, "How much are you looking to borrow?"},
}

// factLabels are the human names used when acknowledging facts.
var factLabels = map[string]string{
	store.FactAnnualRevenue:    "annual revenue",
	store.FactNetIncome:        "net income",
	store.FactMonthsInBusiness: "time in business",
	store.FactCreditScore:      "credit score",
	store.FactRequestedAmount:  "requested amount",
	store.FactExistingDebt:     "existing debt",
	store.FactCashBalance:      "cash balance",
	store.FactActiveDefault:    "default status",
}

var outcomeLabels = map[eligibility.Outcome]string{
	eligibility.OutcomePreApproved: "pre-approved",
	eligibility.OutcomeConditional: "conditionally pre-approved",
	eligibility.OutcomeNeedsInfo:   "not decidable yet",
	eligibility.OutcomeNotEligible: "not eligible",
}

// Composer turns a routed result into the outgoing reply. The wording
// may be narrated by the text-generation provider, but every number and
// the decision label come from the deterministic draft: generation only
// rephrases, it never decides.
type Composer struct {
	llmProvider llm.LLMProvider
	logger      *log.Logger
}

func NewComposer(llmProvider llm.LLMProvider, logger *log.Logger) *Composer {
	return &Composer{
		llmProvider: llmProvider,
		logger:      logger,
	}
}

// Compose builds the reply text for one turn. The caller holds the
// session lock; newly disclosed facts are recorded on the session so no
// later turn restates them unless the value changed.
func (c *Composer) Compose(ctx context.Context, session *store.Session, result *router.Result) string {
	draft := c.draft(session, result)

	if c.llmProvider == nil || result.Decision == nil {
		return draft
	}

	narrated, err := c.narrate(ctx, draft, result.Decision)
	if err != nil {
		c.logger.Printf("[COMPOSER] narration failed, using draft: %v", err)
		return draft
	}
	return narrated
}

func (c *Composer) draft(session *store.Session, result *router.Result) string {
	var parts []string

	if result.Sentiment != nil && result.Sentiment.Sentiment == language.SentimentNegative {
		parts = append(parts, "I understand this can be stressful, and I'm here to help.")
	}

	for _, tool := range result.Unavailable {
		if tool == router.ToolPolicySearch {
			parts = append(parts, policyUnavailableNote)
		}
	}

	switch {
	case result.Phase == store.PhaseGreeting:
		parts = append(parts, greetingReply)
	case result.Decision != nil:
		parts = append(parts, c.renderDecision(session, result.Decision)...)
	case len(result.Clauses) > 0:
		parts = append(parts, c.renderClauses(session, result.Clauses)...)
	case len(result.Classification.Facts) > 0:
		parts = append(parts, c.acknowledgeFacts(session, result.Classification.Facts)...)
	default:
		parts = append(parts, clarifyReply)
	}

	return strings.Join(parts, " ")
}

// renderDecision produces the verdict paragraph. NEEDS_INFO ends with
// exactly one follow-up question for the highest-priority missing fact.
func (c *Composer) renderDecision(session *store.Session, decision *eligibility.Decision) []string {
	label := outcomeLabels[decision.Outcome]
	var parts []string

	switch decision.Outcome {
	case eligibility.OutcomePreApproved:
		parts = append(parts, fmt.Sprintf("Good news: based on what you've shared, your business is %s (%s).", label, decision.Outcome))
	case eligibility.OutcomeConditional:
		parts = append(parts, fmt.Sprintf("Your business is %s (%s).", label, decision.Outcome))
		if len(decision.Marginal) > 0 {
			parts = append(parts, "A few criteria are borderline: "+strings.Join(decision.Marginal, "; ")+".")
		}
		if len(decision.Remediation) > 0 {
			parts = append(parts, "To firm this up you could: "+strings.Join(decision.Remediation, "; ")+".")
		}
	case eligibility.OutcomeNotEligible:
		parts = append(parts, fmt.Sprintf("I'm sorry, but the application is %s (%s) under our current criteria.", label, decision.Outcome))
		if len(decision.Violated) > 0 {
			parts = append(parts, "The blocking issues: "+strings.Join(decision.Violated, "; ")+".")
		}
	case eligibility.OutcomeNeedsInfo:
		parts = append(parts, fmt.Sprintf("The application is %s (%s): I'm still missing some required information.", label, decision.Outcome))
		if q := c.nextQuestion(decision.MissingFacts); q != "" {
			parts = append(parts, q)
		}
		session.Disclosed["decision"] = string(decision.Outcome)
		return parts
	}

	if decision.UsedDefaults {
		parts = append(parts, "This assessment used our standard thresholds.")
	}
	session.Disclosed["decision"] = string(decision.Outcome)
	return parts
}

func (c *Composer) nextQuestion(missing []string) string {
	for _, f := range followUps {
		for _, m := range missing {
			if m == f.fact {
				return f.question
			}
		}
	}
	return ""
}

// renderClauses answers a policy question from retrieved clauses,
// skipping any clause already quoted earlier in the session.
func (c *Composer) renderClauses(session *store.Session, clauses []store.PolicyClause) []string {
	var fresh []store.PolicyClause
	for _, clause := range clauses {
		key := "policy:" + clause.Section
		if session.Disclosed[key] == clause.Content {
			continue
		}
		session.Disclosed[key] = clause.Content
		fresh = append(fresh, clause)
	}

	if len(fresh) == 0 {
		return []string{"I've already covered the relevant policy points above. Is there anything specific you'd like me to expand on?"}
	}

	var b strings.Builder
	b.WriteString("Here's what our lending policy says:")
	for _, clause := range fresh {
		b.WriteString(fmt.Sprintf(" [%s] %s", clause.Section, strings.TrimSpace(clause.Content)))
	}
	return []string{b.String()}
}

// acknowledgeFacts confirms newly stated facts without repeating ones
// already acknowledged at the same value, then asks for the single most
// useful missing fact.
func (c *Composer) acknowledgeFacts(session *store.Session, stated []store.Fact) []string {
	var acked []string
	for _, fact := range stated {
		key := "fact:" + fact.Name
		summary := factSummary(fact)
		if session.Disclosed[key] == summary {
			continue
		}
		session.Disclosed[key] = summary
		acked = append(acked, summary)
	}

	var parts []string
	if len(acked) > 0 {
		parts = append(parts, "Got it — I've noted "+strings.Join(acked, ", ")+".")
	} else {
		parts = append(parts, "Thanks, I already have that on file.")
	}

	if q := c.nextMissing(session); q != "" {
		parts = append(parts, q)
	}
	return parts
}

func (c *Composer) nextMissing(session *store.Session) string {
	for _, f := range followUps {
		if _, ok := session.Facts[f.fact]; !ok {
			return f.question
		}
	}
	return ""
}

func factSummary(fact store.Fact) string {
	label := factLabels[fact.Name]
	if label == "" {
		label = fact.Name
	}
	if fact.IsBool {
		if fact.BoolValue {
			return label + ": yes"
		}
		return label + ": no"
	}
	switch fact.Name {
	case store.FactCreditScore:
		return fmt.Sprintf("%s of %.0f", label, fact.Value)
	case store.FactMonthsInBusiness:
		return fmt.Sprintf("%s of %.0f months", label, fact.Value)
	default:
		return fmt.Sprintf("%s of %s", label, eligibility.FormatAmount(fact.Value))
	}
}

// narrate asks the text-generation provider to rephrase the draft. The
// result is rejected whenever the decision label went missing, so a
// drifting completion can never change the verdict.
func (c *Composer) narrate(ctx context.Context, draft string, decision *eligibility.Decision) (string, error) {
	var prompt strings.Builder
	prompt.WriteString("<system>\n")
	prompt.WriteString("You are a loan officer's assistant. Rephrase the message below in a warm, professional tone.\n")
	prompt.WriteString("Keep every number, every criterion, and the decision code exactly as written. Do not add new facts.\n")
	prompt.WriteString("</system>\n\n<message>\n")
	prompt.WriteString(draft)
	prompt.WriteString("\n</message>")

	response, err := c.llmProvider.Generate(ctx, prompt.String(), llm.WithTemperature(0.3))
	if err != nil {
		return "", err
	}
	response = strings.TrimSpace(response)
	if response == "" || !strings.Contains(response, string(decision.Outcome)) {
		return "", fmt.Errorf("narration dropped the decision label")
	}
	return response, nil
}
