package appintake

import (
	"fmt"
	"strings"

	"github.com/cloudwego/eino/schema"

	"github.com/coniferlabs/appintake/field"
	"github.com/coniferlabs/appintake/session"
)

// toolsForPhase builds the tool set offered to the model for the session's
// current phase, scoped to the currently active fields. A tool with an
// empty scope is omitted entirely.
func toolsForPhase(st *session.State) []*schema.ToolInfo {
	var tools []*schema.ToolInfo
	if confirmable := confirmScope(st); len(confirmable) > 0 {
		tools = append(tools, confirmTool(confirmable))
	}
	if extractable := extractScope(st); len(extractable) > 0 {
		tools = append(tools, extractTool(extractable))
	}
	return tools
}

// confirmScope is the set of active fields the confirm tool may act on
// in the current phase.
func confirmScope(st *session.State) []*field.Field {
	active := st.ActiveFields()
	switch st.Phase {
	case session.PhaseSpotCheck:
		return filterStatus(active, field.StatusUnconfirmed)
	case session.PhaseReviewing:
		return append(filterStatus(active, field.StatusConfirmed), filterStatus(active, field.StatusCollected)...)
	default:
		return nil
	}
}

// extractScope is the set of active fields the extract tool may act on
// in the current phase.
func extractScope(st *session.State) []*field.Field {
	active := st.ActiveFields()
	switch st.Phase {
	case session.PhaseSpotCheck:
		return append(filterStatus(active, field.StatusMissing), filterStatus(active, field.StatusUnconfirmed)...)
	case session.PhaseCollecting:
		extractable := filterStatus(active, field.StatusMissing)
		seen := make(map[string]bool, len(extractable))
		for _, f := range extractable {
			seen[f.ID] = true
		}
		// Fields with a pending validation error are offered again so the
		// model can re-ask.
		for _, f := range active {
			if f.ValidationError != "" && !seen[f.ID] {
				seen[f.ID] = true
				extractable = append(extractable, f)
			}
		}
		return extractable
	case session.PhaseReviewing:
		return active
	default:
		return nil
	}
}

func filterStatus(fields []*field.Field, status field.Status) []*field.Field {
	var out []*field.Field
	for _, f := range fields {
		if f.Status == status {
			out = append(out, f)
		}
	}
	return out
}

func extractTool(fields []*field.Field) *schema.ToolInfo {
	params := make(map[string]*schema.ParameterInfo, len(fields))
	for _, f := range fields {
		params[f.ID] = fieldParam(f)
	}
	return &schema.ToolInfo{
		Name: ToolExtractFields,
		Desc: "Extract application field values from the conversation. " +
			"Only include fields the user has clearly provided. " +
			"Do not guess or fabricate values.",
		ParamsOneOf: schema.NewParamsOneOfByParams(params),
	}
}

func confirmTool(fields []*field.Field) *schema.ToolInfo {
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.ID)
	}
	return &schema.ToolInfo{
		Name: ToolConfirmFields,
		Desc: "Confirm that pre-populated field values are correct as stated by the user. " +
			"Pass the list of field_ids that the user has confirmed are accurate.",
		ParamsOneOf: schema.NewParamsOneOfByParams(map[string]*schema.ParameterInfo{
			"field_ids": {
				Type:     schema.Array,
				ElemInfo: &schema.ParameterInfo{Type: schema.String, Enum: ids},
				Desc:     "List of field IDs confirmed as correct by the user.",
				Required: true,
			},
		}),
	}
}

// fieldParam projects a tracked field's type, validation rules, and
// options into a tool parameter schema.
func fieldParam(f *field.Field) *schema.ParameterInfo {
	info := &schema.ParameterInfo{Desc: f.DisplayName()}

	switch f.Type {
	case field.TypeNumber, field.TypeCurrency:
		info.Type = schema.Number
	case field.TypeCheckbox:
		info.Type = schema.Boolean
	default:
		info.Type = schema.String
	}

	if f.Type == field.TypeSelect {
		for _, opt := range f.Options {
			info.Enum = append(info.Enum, opt.Value)
		}
	}

	if hints := ruleHints(f); len(hints) > 0 {
		info.Desc = fmt.Sprintf("%s (%s)", info.Desc, strings.Join(hints, ", "))
	}
	return info
}

func ruleHints(f *field.Field) []string {
	var hints []string
	switch f.Type {
	case field.TypeSSN:
		hints = append(hints, "format XXX-XX-XXXX")
	case field.TypeDate:
		hints = append(hints, "format YYYY-MM-DD")
	}
	for _, key := range []string{"min_length", "max_length", "min_value", "max_value", "pattern"} {
		if raw, ok := f.Validation[key]; ok {
			hints = append(hints, fmt.Sprintf("%s=%v", key, raw))
		}
	}
	return hints
}
