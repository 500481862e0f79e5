package appintake

import (
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/bytedance/sonic"

	"github.com/coniferlabs/appintake/field"
	"github.com/coniferlabs/appintake/session"
)

// Tool names declared to the model.
const (
	ToolExtractFields = "extract_application_fields"
	ToolConfirmFields = "confirm_known_fields"
)

// toolKind is the closed set of tool intents the processor understands.
// Adding a tool means extending this enum and the dispatcher, checked at
// compile time rather than hidden behind string fallthrough.
type toolKind int

const (
	toolKindUnknown toolKind = iota
	toolKindExtract
	toolKindConfirm
)

func parseToolKind(name string) toolKind {
	switch name {
	case ToolExtractFields:
		return toolKindExtract
	case ToolConfirmFields:
		return toolKindConfirm
	default:
		return toolKindUnknown
	}
}

// ToolCall is one tool invocation issued by the model, with its raw JSON
// argument payload.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string
}

// FieldUpdate is the per-field outcome record propagated to the channel
// adapters after a tool-call batch.
type FieldUpdate struct {
	FieldID         string       `json:"field_id"`
	Status          field.Status `json:"status"`
	Value           field.Value  `json:"value,omitempty"`
	ValidationError string       `json:"validation_error,omitempty"`
}

type confirmArgs struct {
	FieldIDs []string `json:"field_ids"`
}

// processToolCalls applies a batch of tool calls to the session state.
// It never fails: every call, including unknown tools and malformed
// payloads, produces exactly one result string to replay to the model,
// and problems within one call never abort the rest of the batch.
func processToolCalls(logger *slog.Logger, st *session.State, calls []ToolCall) ([]FieldUpdate, map[string]string) {
	var updates []FieldUpdate
	results := make(map[string]string, len(calls))

	for _, call := range calls {
		switch parseToolKind(call.Name) {
		case toolKindExtract:
			batch, result := processExtract(logger, st, call)
			updates = append(updates, batch...)
			results[call.ID] = result
		case toolKindConfirm:
			batch, result := processConfirm(st, call)
			updates = append(updates, batch...)
			results[call.ID] = result
		default:
			logger.Debug("ignoring unknown tool call", "tool", call.Name, "session", st.ID)
			results[call.ID] = fmt.Sprintf("Unknown tool: %s", call.Name)
		}
	}

	return updates, results
}

func processExtract(logger *slog.Logger, st *session.State, call ToolCall) ([]FieldUpdate, string) {
	var raw map[string]any
	if err := sonic.UnmarshalString(call.Arguments, &raw); err != nil {
		logger.Debug("malformed extract payload", "session", st.ID, "error", err)
		return nil, "Validation errors: []"
	}

	ids := make([]string, 0, len(raw))
	for id := range raw {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var updates []FieldUpdate
	var accepted []string
	for _, id := range ids {
		value, ok := field.FromAny(raw[id])
		if !ok || value.IsNull() {
			continue
		}
		f, exists := st.Fields[id]
		if !exists {
			continue
		}

		if valid, errMsg := field.Validate(f, value); valid {
			f.Value = value
			f.Status = field.StatusCollected
			f.ValidationError = ""
			accepted = append(accepted, id)
			updates = append(updates, FieldUpdate{
				FieldID: id,
				Status:  field.StatusCollected,
				Value:   value,
			})
		} else {
			// Rejected values keep the prior status and value.
			f.ValidationError = errMsg
			updates = append(updates, FieldUpdate{
				FieldID:         id,
				Status:          f.Status,
				ValidationError: errMsg,
			})
		}
	}

	if len(accepted) > 0 {
		return updates, fmt.Sprintf("Accepted fields: [%s]", strings.Join(accepted, ", "))
	}
	var errs []string
	for _, f := range st.ActiveFields() {
		if f.ValidationError != "" {
			errs = append(errs, f.ValidationError)
		}
	}
	return updates, fmt.Sprintf("Validation errors: [%s]", strings.Join(errs, "; "))
}

func processConfirm(st *session.State, call ToolCall) ([]FieldUpdate, string) {
	var args confirmArgs
	if err := sonic.UnmarshalString(call.Arguments, &args); err != nil {
		return nil, "Confirmed fields: []"
	}

	var updates []FieldUpdate
	var confirmed []string
	for _, id := range args.FieldIDs {
		f, ok := st.Fields[id]
		if !ok || !f.HasValue() {
			// Confirmation is not a substitute for collection.
			continue
		}
		f.Status = field.StatusConfirmed
		f.ValidationError = ""
		confirmed = append(confirmed, id)
		updates = append(updates, FieldUpdate{
			FieldID: id,
			Status:  field.StatusConfirmed,
			Value:   f.Value,
		})
	}
	return updates, fmt.Sprintf("Confirmed fields: [%s]", strings.Join(confirmed, ", "))
}
