package appintake

import (
	"fmt"
	"strings"

	"github.com/coniferlabs/appintake/field"
	"github.com/coniferlabs/appintake/session"
)

// buildSystemPrompt renders the per-turn system prompt: who the assistant
// is, where the conversation stands, and what is left to do.
func buildSystemPrompt(st *session.State) string {
	var b strings.Builder
	b.WriteString("You are a friendly assistant collecting annuity application data through natural conversation.\n")
	b.WriteString("Ask for information conversationally, one topic at a time. Never fabricate values.\n")
	b.WriteString("Use the provided tools to record values the user states and to confirm pre-populated data.\n\n")

	fmt.Fprintf(&b, "Current phase: %s\n", st.Phase)

	switch st.Phase {
	case session.PhaseSpotCheck:
		b.WriteString("We have some data on file already. Walk the user through it and confirm or correct each value before collecting anything new.\n")
	case session.PhaseCollecting:
		b.WriteString("Collect the missing required fields below.\n")
	case session.PhaseReviewing:
		b.WriteString("All required data is in. Review it with the user and accept corrections; ask them to confirm when everything looks right.\n")
	}

	if active := st.ActiveFields(); len(active) > 0 {
		b.WriteString("\nFields:\n")
		for _, f := range active {
			fmt.Fprintf(&b, "- %s (%s): %s", f.DisplayName(), f.ID, f.Status)
			if !f.Value.IsNull() {
				fmt.Fprintf(&b, " = %s", f.Value.Text())
			}
			if f.ValidationError != "" {
				fmt.Fprintf(&b, " [error: %s]", f.ValidationError)
			}
			b.WriteString("\n")
		}
	}
	return b.String()
}

// greetingInstruction builds the one-shot instruction used to generate the
// opening message of a spot-check session.
func greetingInstruction(unconfirmed []*field.Field) string {
	parts := make([]string, 0, 5)
	for i, f := range unconfirmed {
		if i == 5 {
			break
		}
		parts = append(parts, fmt.Sprintf("%s: %s", f.DisplayName(), f.Value.Text()))
	}
	more := ""
	if len(unconfirmed) > 5 {
		more = fmt.Sprintf(" (and %d more)", len(unconfirmed)-5)
	}
	return fmt.Sprintf(
		"Generate a friendly greeting. We have some information on file already. "+
			"Summarize this known data naturally: %s%s. Ask if it all looks correct.",
		strings.Join(parts, ", "), more)
}

// collectingGreeting opens sessions that start with no known data.
const collectingGreeting = "Hi! I'll help you complete this application. I'll ask for what we need, one thing at a time."
