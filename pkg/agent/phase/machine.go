package phase

import (
	"ai-loanengine-be/pkg/agent/intent"
	"ai-loanengine-be/pkg/store"
)

// Next computes the phase this turn is handled in. The machine moves
// forward through GREETING, GATHERING, ANALYZING and DECIDING; a bare
// greeting or noise never advances it.
func Next(current string, classified intent.Classification) string {
	if current == "" {
		current = store.PhaseGreeting
	}

	switch classified.Intent {
	case intent.IntentRequestDecision:
		return store.PhaseDeciding
	case intent.IntentAskPolicy:
		// Policy, document and financial questions move the session
		// into analysis regardless of how little has been gathered.
		return store.PhaseAnalyzing
	case intent.IntentProvideInfo:
		if current == store.PhaseGreeting || current == store.PhaseDeciding {
			return store.PhaseGathering
		}
		return current
	default:
		if current == store.PhaseDeciding {
			return store.PhaseGathering
		}
		return current
	}
}

// After is the phase the session settles into once the turn completes.
// DECIDING is terminal for a single request only: the session returns to
// GATHERING so new facts can feed a later verdict.
func After(turnPhase string) string {
	if turnPhase == store.PhaseDeciding {
		return store.PhaseGathering
	}
	return turnPhase
}
