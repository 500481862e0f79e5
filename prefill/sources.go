// Package prefill implements the bounded tool-calling agent that gathers
// known client data from read-only sources before an intake session
// starts.
package prefill

import "context"

// ProfileSource looks up a client's personal record (name, date of birth,
// contact details, address) in the CRM.
type ProfileSource interface {
	LookupProfile(ctx context.Context, clientID string) (map[string]any, error)
}

// NotesSource retrieves CRM notes and activity records, which often carry
// meeting transcripts with financial data.
type NotesSource interface {
	LookupNotes(ctx context.Context, clientID string) (map[string]any, error)
}

// FinancialHistorySource retrieves prior policy and suitability data:
// income, net worth, risk tolerance, investment experience.
type FinancialHistorySource interface {
	LookupFinancialHistory(ctx context.Context, clientID string) (map[string]any, error)
}

// PreferenceSource retrieves an advisor's preference profile.
type PreferenceSource interface {
	LookupPreferences(ctx context.Context, advisorID string) (map[string]any, error)
}

// SuitabilityScorer runs a carrier's suitability decision engine against
// gathered client data.
type SuitabilityScorer interface {
	Score(ctx context.Context, carrierID string, clientData map[string]any) (map[string]any, error)
}

// Sources bundles the lookup collaborators available to the agent. Nil
// entries are reported to the model as unavailable rather than failing
// the loop.
type Sources struct {
	Profile     ProfileSource
	Notes       NotesSource
	Financial   FinancialHistorySource
	Preferences PreferenceSource
	Suitability SuitabilityScorer
}

// SourceLabels maps tool names to the human-readable source labels shown
// in progress displays.
var SourceLabels = map[string]string{
	toolLookupProfile:    "CRM Profile",
	toolLookupNotes:      "CRM Notes",
	toolLookupFinancial:  "Prior Policies",
	toolExtractDocument:  "Document Store",
	toolGetPreferences:   "Advisor Preferences",
	toolScoreSuitability: "Suitability Check",
}
