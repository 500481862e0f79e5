// Package field models the tracked data points of an application form:
// their values, lifecycle status, validation rules, and the visibility
// conditions that scope them in and out of the conversation.
package field

// Status is the lifecycle stage of a tracked field. It only moves forward:
// a rejected value keeps the previous status and records the error.
type Status string

const (
	StatusMissing     Status = "missing"
	StatusUnconfirmed Status = "unconfirmed"
	StatusConfirmed   Status = "confirmed"
	StatusCollected   Status = "collected"
)

// Type is the declared input type of a field; it selects the validator and
// the generated tool parameter schema.
type Type string

const (
	TypeText     Type = "text"
	TypeEmail    Type = "email"
	TypePhone    Type = "phone"
	TypeSSN      Type = "ssn"
	TypeDate     Type = "date"
	TypeNumber   Type = "number"
	TypeCurrency Type = "currency"
	TypeSelect   Type = "select"
	TypeCheckbox Type = "checkbox"
	TypeTextarea Type = "textarea"
)

// Option is one admissible choice of a select field.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

// Field is one tracked data point. Fields are created when a session is
// built from a form definition and are only ever mutated by the tool-call
// processor; fields removed from a form stay present but permanently
// inactive through their conditions.
type Field struct {
	ID              string         `json:"field_id"`
	Value           Value          `json:"value"`
	Status          Status         `json:"status"`
	Label           string         `json:"label"`
	Type            Type           `json:"field_type"`
	Required        bool           `json:"required"`
	Validation      map[string]any `json:"validation,omitempty"`
	Options         []Option       `json:"options,omitempty"`
	Conditions      []Condition    `json:"conditions,omitempty"`
	ValidationError string         `json:"validation_error,omitempty"`
}

// DisplayName is the label when present, otherwise the field id.
func (f *Field) DisplayName() string {
	if f.Label != "" {
		return f.Label
	}
	return f.ID
}

// HasValue reports whether the field carries any value, i.e. its status has
// advanced past missing.
func (f *Field) HasValue() bool {
	return f.Status != StatusMissing
}

// Active reports whether all of the field's visibility conditions hold for
// the given data. A field without conditions is always active.
func (f *Field) Active(data map[string]Value) bool {
	for _, c := range f.Conditions {
		if !c.Eval(data) {
			return false
		}
	}
	return true
}
