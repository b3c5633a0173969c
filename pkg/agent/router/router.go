package router

import (
	"context"
	"log"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/errgroup"

	"ai-loanengine-be/pkg/agent/intent"
	"ai-loanengine-be/pkg/agent/phase"
	"ai-loanengine-be/pkg/eligibility"
	"ai-loanengine-be/pkg/store"
	"ai-loanengine-be/pkg/tools"
	"ai-loanengine-be/pkg/tools/language"
)

// Tool names as recorded on turns.
const (
	ToolPolicySearch = "policysearch"
	ToolLanguage     = "language"
)

// Call outcomes as recorded on turns.
const (
	OutcomeOK       = "ok"
	OutcomeCached   = "cached"
	OutcomeDegraded = "degraded"
	OutcomeInvalid  = "invalid_input"
)

// decisionPolicyQuery is the canonical retrieval query used when the user
// asks for a verdict rather than a specific policy question.
const decisionPolicyQuery = "small business loan eligibility requirements"

// PolicySearcher retrieves ranked policy clauses for a query.
type PolicySearcher interface {
	Search(ctx context.Context, query string, topK int) ([]store.PolicyClause, error)
}

// LanguageAnalyzer extracts sentiment and entities from free text.
type LanguageAnalyzer interface {
	Analyze(ctx context.Context, text string) (*language.Analysis, error)
}

// Result is everything one routed turn produced, joined and ready for
// the composer.
type Result struct {
	Phase          string
	Classification intent.Classification
	Clauses        []store.PolicyClause
	Sentiment      *language.Analysis
	Decision       *eligibility.Decision
	ToolCalls      []store.ToolCall
	// Unavailable lists tools that degraded this turn so the composer
	// can state the limitation instead of silently omitting content.
	Unavailable []string
}

type cachedClauses struct {
	clauses     []store.PolicyClause
	retrievedAt time.Time
}

// policyOutcome and sentimentOutcome carry each goroutine's contribution
// to the Result so nothing shared is written before the join point.
type policyOutcome struct {
	clauses     []store.PolicyClause
	call        store.ToolCall
	unavailable bool
}

type sentimentOutcome struct {
	analysis *language.Analysis
	call     store.ToolCall
}

// Router selects and invokes tools for each turn based on the
// conversation phase and the classified intent. Independent tool calls
// run concurrently and are joined before the evaluator.
type Router struct {
	policy   PolicySearcher
	lang     LanguageAnalyzer
	defaults eligibility.Thresholds

	topK    int
	backoff time.Duration

	// clauseCache keeps recent retrievals per session and query so a
	// repeated question reuses clauses instead of re-invoking the tool,
	// unless a fact changed after the retrieval.
	clauseCache *gocache.Cache
	logger      *log.Logger
}

func NewRouter(policy PolicySearcher, lang LanguageAnalyzer, defaults eligibility.Thresholds, logger *log.Logger) *Router {
	return &Router{
		policy:      policy,
		lang:        lang,
		defaults:    defaults,
		topK:        5,
		backoff:     500 * time.Millisecond,
		clauseCache: gocache.New(10*time.Minute, 5*time.Minute),
		logger:      logger,
	}
}

// Route handles one user message. The caller holds the session lock, so
// Route may merge stated facts into the session directly. It never
// blocks indefinitely: an unavailable tool is reported in the result and
// the turn proceeds without it.
func (r *Router) Route(ctx context.Context, session *store.Session, message string, now time.Time) *Result {
	classified := intent.Classify(message, now)
	turnPhase := phase.Next(session.Phase, classified)

	result := &Result{
		Phase:          turnPhase,
		Classification: classified,
	}

	if len(classified.Facts) > 0 {
		session.MergeFacts(classified.Facts)
	}

	// A bare greeting invokes no tools at all.
	if turnPhase == store.PhaseGreeting {
		return result
	}

	// Each tool runs at most once per turn.
	invoked := map[string]bool{}

	policyQuery := ""
	switch classified.Intent {
	case intent.IntentAskPolicy:
		policyQuery = classified.PolicyQuery
	case intent.IntentRequestDecision:
		policyQuery = decisionPolicyQuery
	}

	var (
		policyRes    *policyOutcome
		sentimentRes *sentimentOutcome
	)

	g, gctx := errgroup.WithContext(ctx)

	if policyQuery != "" && !invoked[ToolPolicySearch] {
		invoked[ToolPolicySearch] = true
		g.Go(func() error {
			policyRes = r.retrievePolicy(gctx, session, policyQuery, now)
			return nil
		})
	}

	if r.lang != nil && !invoked[ToolLanguage] {
		invoked[ToolLanguage] = true
		g.Go(func() error {
			sentimentRes = r.analyzeSentiment(gctx, message)
			return nil
		})
	}

	// Join point: every adapter has returned or timed out before the
	// evaluator sees anything.
	_ = g.Wait()

	if policyRes != nil {
		result.Clauses = policyRes.clauses
		result.ToolCalls = append(result.ToolCalls, policyRes.call)
		if policyRes.unavailable {
			result.Unavailable = append(result.Unavailable, ToolPolicySearch)
		}
	}
	if sentimentRes != nil {
		result.Sentiment = sentimentRes.analysis
		result.ToolCalls = append(result.ToolCalls, sentimentRes.call)
	}

	if classified.Intent == intent.IntentRequestDecision {
		decision := eligibility.Evaluate(session.Facts, result.Clauses, r.defaults)
		result.Decision = &decision
	}

	return result
}

func (r *Router) retrievePolicy(ctx context.Context, session *store.Session, query string, now time.Time) *policyOutcome {
	cacheKey := session.ID + "|" + query
	if entry, ok := r.clauseCache.Get(cacheKey); ok {
		cached := entry.(cachedClauses)
		if !session.FactsUpdatedSince(cached.retrievedAt) {
			return &policyOutcome{
				clauses: cached.clauses,
				call:    store.ToolCall{Tool: ToolPolicySearch, Query: query, Outcome: OutcomeCached},
			}
		}
	}

	clauses, err := tools.WithRetry(ctx, ToolPolicySearch, r.backoff, func(ctx context.Context) ([]store.PolicyClause, error) {
		return r.policy.Search(ctx, query, r.topK)
	})
	if err != nil {
		outcome := OutcomeDegraded
		unavailable := true
		if tools.KindOf(err) == tools.KindInvalidInput {
			outcome = OutcomeInvalid
			unavailable = false
		}
		r.logger.Printf("[ROUTER] policy search failed (%s): %v", outcome, err)
		return &policyOutcome{
			call:        store.ToolCall{Tool: ToolPolicySearch, Query: query, Outcome: outcome},
			unavailable: unavailable,
		}
	}

	r.clauseCache.Set(cacheKey, cachedClauses{clauses: clauses, retrievedAt: now}, gocache.DefaultExpiration)
	return &policyOutcome{
		clauses: clauses,
		call:    store.ToolCall{Tool: ToolPolicySearch, Query: query, Outcome: OutcomeOK},
	}
}

// analyzeSentiment is best-effort: a failed sentiment call never blocks
// or degrades the turn, the composer just skips the empathetic preamble.
func (r *Router) analyzeSentiment(ctx context.Context, message string) *sentimentOutcome {
	analysis, err := tools.WithRetry(ctx, ToolLanguage, r.backoff, func(ctx context.Context) (*language.Analysis, error) {
		return r.lang.Analyze(ctx, message)
	})
	if err != nil {
		r.logger.Printf("[ROUTER] sentiment analysis skipped: %v", err)
		return &sentimentOutcome{
			call: store.ToolCall{Tool: ToolLanguage, Outcome: OutcomeDegraded},
		}
	}
	return &sentimentOutcome{
		analysis: analysis,
		call:     store.ToolCall{Tool: ToolLanguage, Outcome: OutcomeOK},
	}
}
