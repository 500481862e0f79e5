package appintake

import (
	"testing"

	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"

	"github.com/coniferlabs/appintake/field"
	"github.com/coniferlabs/appintake/session"
)

func toolNames(tools []*schema.ToolInfo) []string {
	names := make([]string, 0, len(tools))
	for _, tool := range tools {
		names = append(names, tool.Name)
	}
	return names
}

func fieldIDs(fields []*field.Field) []string {
	ids := make([]string, 0, len(fields))
	for _, f := range fields {
		ids = append(ids, f.ID)
	}
	return ids
}

func TestToolsForSpotCheck(t *testing.T) {
	t.Parallel()

	st := testSessionState()
	st.Phase = session.PhaseSpotCheck
	st.Fields["first_name"].Value = field.String("Margaret")
	st.Fields["first_name"].Status = field.StatusUnconfirmed

	assert.Equal(t, []string{ToolConfirmFields, ToolExtractFields}, toolNames(toolsForPhase(st)))
	assert.Equal(t, []string{"first_name"}, fieldIDs(confirmScope(st)))
	assert.ElementsMatch(t,
		[]string{"first_name", "email", "premium_amount", "is_replacement"},
		fieldIDs(extractScope(st)),
		"spot check extraction covers missing and unconfirmed fields")
}

func TestToolsForSpotCheckWithoutUnconfirmed(t *testing.T) {
	t.Parallel()

	st := testSessionState()
	st.Phase = session.PhaseSpotCheck

	assert.Equal(t, []string{ToolExtractFields}, toolNames(toolsForPhase(st)),
		"no confirm tool when nothing awaits confirmation")
}

func TestToolsForCollectingScopedToMissingAndErrored(t *testing.T) {
	t.Parallel()

	st := testSessionState()
	st.Fields["first_name"].Value = field.String("Margaret")
	st.Fields["first_name"].Status = field.StatusCollected
	st.Fields["email"].Value = field.String("m@example.com")
	st.Fields["email"].Status = field.StatusCollected
	st.Fields["email"].ValidationError = "Email must be a valid email address."

	assert.Equal(t, []string{ToolExtractFields}, toolNames(toolsForPhase(st)))

	ids := fieldIDs(extractScope(st))
	assert.NotContains(t, ids, "first_name", "already collected, no pending error")
	assert.Contains(t, ids, "email", "errored fields are offered for re-extraction")
	assert.Contains(t, ids, "premium_amount")
	assert.Empty(t, confirmScope(st), "collecting never confirms")
}

func TestToolsForReviewing(t *testing.T) {
	t.Parallel()

	st := testSessionState()
	st.Phase = session.PhaseReviewing
	for _, f := range st.Fields {
		f.Value = field.String("x")
		f.Status = field.StatusCollected
	}

	assert.Equal(t, []string{ToolConfirmFields, ToolExtractFields}, toolNames(toolsForPhase(st)),
		"reviewing offers confirmation plus corrections over every active field")
	assert.Len(t, extractScope(st), len(st.Fields))
	assert.Len(t, confirmScope(st), len(st.Fields))
}

func TestToolsExcludeInactiveFields(t *testing.T) {
	t.Parallel()

	st := testSessionState()
	st.Fields["replaced_carrier"] = &field.Field{
		ID: "replaced_carrier", Label: "Carrier Being Replaced", Type: field.TypeText, Required: true,
		Status: field.StatusMissing, Value: field.Null(),
		Conditions: []field.Condition{
			field.Leaf("is_replacement", field.OpEq, field.Bool(true)),
		},
	}
	st.Steps[0].FieldIDs = append(st.Steps[0].FieldIDs, "replaced_carrier")

	assert.NotContains(t, fieldIDs(extractScope(st)), "replaced_carrier")

	st.Fields["is_replacement"].Value = field.Bool(true)
	st.Fields["is_replacement"].Status = field.StatusCollected
	assert.Contains(t, fieldIDs(extractScope(st)), "replaced_carrier")
}

func TestToolsForTerminalPhases(t *testing.T) {
	t.Parallel()

	st := testSessionState()
	st.Phase = session.PhaseComplete
	assert.Empty(t, toolsForPhase(st))

	st.Phase = session.PhaseSubmitted
	assert.Empty(t, toolsForPhase(st))
}

func TestFieldParamProjection(t *testing.T) {
	t.Parallel()

	num := fieldParam(&field.Field{ID: "premium", Label: "Premium", Type: field.TypeCurrency})
	assert.Equal(t, schema.Number, num.Type)

	check := fieldParam(&field.Field{ID: "replacement", Type: field.TypeCheckbox})
	assert.Equal(t, schema.Boolean, check.Type)

	sel := fieldParam(&field.Field{
		ID: "risk", Type: field.TypeSelect,
		Options: []field.Option{{Value: "low"}, {Value: "high"}},
	})
	assert.Equal(t, schema.String, sel.Type)
	assert.Equal(t, []string{"low", "high"}, sel.Enum)

	ssn := fieldParam(&field.Field{ID: "ssn", Label: "SSN", Type: field.TypeSSN})
	assert.Contains(t, ssn.Desc, "XXX-XX-XXXX")
}
