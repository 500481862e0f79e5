// Package formdef adapts external form definitions (steps of typed field
// definitions, as produced by the carrier schema service) into the tracked
// field set a session is built from. Conditions are decoded into their
// tagged form here, once, so the evaluator never sees wire formats.
package formdef

import (
	"fmt"

	"github.com/bytedance/sonic"

	"github.com/coniferlabs/appintake/field"
	"github.com/coniferlabs/appintake/session"
)

// FieldDef is one field definition inside a step.
type FieldDef struct {
	ID         string            `json:"field_id"`
	Label      string            `json:"label"`
	Type       field.Type        `json:"field_type"`
	Required   bool              `json:"required"`
	Validation map[string]any    `json:"validation,omitempty"`
	Options    []field.Option    `json:"options,omitempty"`
	Conditions []field.Condition `json:"conditions,omitempty"`
}

// StepDef is a display grouping of field definitions.
type StepDef struct {
	ID     string     `json:"step_id"`
	Title  string     `json:"title"`
	Fields []FieldDef `json:"fields"`
}

// ParseSteps decodes a JSON array of step definitions.
func ParseSteps(data []byte) ([]StepDef, error) {
	var steps []StepDef
	if err := sonic.Unmarshal(data, &steps); err != nil {
		return nil, fmt.Errorf("formdef: parse steps: %w", err)
	}
	return steps, nil
}

// Build materializes tracked fields from step definitions, pre-populating
// values from knownData as unconfirmed. Known values outside the closed
// value domain are ignored, leaving the field missing.
func Build(steps []StepDef, knownData map[string]any) (map[string]*field.Field, []session.Step) {
	fields := make(map[string]*field.Field)
	sessionSteps := make([]session.Step, 0, len(steps))

	for _, stepDef := range steps {
		step := session.Step{
			ID:       stepDef.ID,
			Title:    stepDef.Title,
			FieldIDs: make([]string, 0, len(stepDef.Fields)),
		}
		for _, def := range stepDef.Fields {
			step.FieldIDs = append(step.FieldIDs, def.ID)

			fieldType := def.Type
			if fieldType == "" {
				fieldType = field.TypeText
			}
			label := def.Label
			if label == "" {
				label = def.ID
			}

			f := &field.Field{
				ID:         def.ID,
				Value:      field.Null(),
				Status:     field.StatusMissing,
				Label:      label,
				Type:       fieldType,
				Required:   def.Required,
				Validation: def.Validation,
				Options:    def.Options,
				Conditions: def.Conditions,
			}
			if raw, ok := knownData[def.ID]; ok {
				if v, ok := field.FromAny(raw); ok && !v.IsNull() {
					f.Value = v
					f.Status = field.StatusUnconfirmed
				}
			}
			fields[def.ID] = f
		}
		sessionSteps = append(sessionSteps, step)
	}

	return fields, sessionSteps
}
