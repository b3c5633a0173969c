package store

import (
	"time"
)

// Conversation phases for the router state machine
const (
	PhaseGreeting  = "GREETING"
	PhaseGathering = "GATHERING"
	PhaseAnalyzing = "ANALYZING"
	PhaseDeciding  = "DECIDING"
)

// Turn roles
const (
	RoleUser  = "user"
	RoleAgent = "agent"
)

// Fact provenance
const (
	ProvenanceDocument = "document"
	ProvenanceStated   = "stated"
)

// Canonical applicant fact names used by the eligibility evaluator
const (
	FactAnnualRevenue    = "annual_revenue"
	FactNetIncome        = "net_income"
	FactMonthsInBusiness = "months_in_business"
	FactCreditScore      = "credit_score"
	FactRequestedAmount  = "requested_amount"
	FactExistingDebt     = "existing_debt"
	FactCashBalance      = "cash_balance"
	FactActiveDefault    = "active_default"
)

// ToolCall records one adapter invocation performed while producing a turn.
type ToolCall struct {
	Tool    string `json:"tool"`
	Query   string `json:"query,omitempty"`
	Outcome string `json:"outcome"` // "ok" | "degraded" | "invalid_input"
}

// Turn is a single conversation entry. Immutable once appended.
type Turn struct {
	ID        string     `json:"id"`
	Role      string     `json:"role"`
	Content   string     `json:"content"`
	CreatedAt time.Time  `json:"created_at"`
	ToolCalls []ToolCall `json:"tool_calls,omitempty"`
}

// FieldValue is one typed value extracted from a document.
type FieldValue struct {
	Kind       string  `json:"kind"` // "amount" | "date" | "text"
	Text       string  `json:"text,omitempty"`
	Amount     float64 `json:"amount,omitempty"`
	Confidence float64 `json:"confidence,omitempty"`
}

// DocumentFact holds the normalized extraction result for one uploaded
// document. Never mutated; a newer upload of the same category replaces it.
type DocumentFact struct {
	Category   string                `json:"category"`
	Filename   string                `json:"filename"`
	Fields     map[string]FieldValue `json:"fields"`
	AnalyzedAt time.Time             `json:"analyzed_at"`
}

// Fact is a normalized applicant attribute with provenance and a freshness
// marker. Last write wins per fact name.
type Fact struct {
	Name       string    `json:"name"`
	Value      float64   `json:"value"`
	BoolValue  bool      `json:"bool_value,omitempty"`
	IsBool     bool      `json:"is_bool,omitempty"`
	Provenance string    `json:"provenance"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ApplicantFacts maps canonical fact names to their current values.
type ApplicantFacts map[string]Fact

// Lookup returns the numeric value of a fact if present.
func (f ApplicantFacts) Lookup(name string) (float64, bool) {
	fact, ok := f[name]
	if !ok || fact.IsBool {
		return 0, ok && !fact.IsBool
	}
	return fact.Value, true
}

// LookupBool returns the boolean value of a fact if present.
func (f ApplicantFacts) LookupBool(name string) (bool, bool) {
	fact, ok := f[name]
	if !ok || !fact.IsBool {
		return false, false
	}
	return fact.BoolValue, true
}

// PolicyClause is a retrieved excerpt of lending policy text. Ephemeral:
// not persisted beyond the turn that retrieved it.
type PolicyClause struct {
	Content string  `json:"content"`
	Section string  `json:"section"`
	Score   float64 `json:"score"`
}

// Session is the per-conversation state. Owned by the session repository
// and mutated only through its operations.
type Session struct {
	ID    string `json:"id"`
	Phase string `json:"phase"`

	Turns     []Turn                  `json:"turns"`
	Documents map[string]DocumentFact `json:"documents"` // keyed by category
	Facts     ApplicantFacts          `json:"facts"`

	// Disclosed tracks fact summaries already given to the user so the
	// composer never repeats them verbatim.
	Disclosed map[string]string `json:"disclosed"`

	CreatedAt      time.Time `json:"created_at"`
	LastActivityAt time.Time `json:"last_activity_at"`
}

// NewSession returns an empty session in the greeting phase.
func NewSession(id string, now time.Time) *Session {
	return &Session{
		ID:             id,
		Phase:          PhaseGreeting,
		Documents:      make(map[string]DocumentFact),
		Facts:          make(ApplicantFacts),
		Disclosed:      make(map[string]string),
		CreatedAt:      now,
		LastActivityAt: now,
	}
}

// MergeFacts applies last-write-wins per fact name, recording provenance.
// A document-derived fact contradicted by a newer document fact is
// overwritten together with its provenance, never silently.
func (s *Session) MergeFacts(facts []Fact) {
	for _, fact := range facts {
		s.Facts[fact.Name] = fact
	}
}

// FactsUpdatedSince reports whether any applicant fact changed after t.
// The router uses this to decide between cached facts and re-invocation.
func (s *Session) FactsUpdatedSince(t time.Time) bool {
	for _, fact := range s.Facts {
		if fact.UpdatedAt.After(t) {
			return true
		}
	}
	return false
}
