// Package session holds the per-conversation aggregate: tracked fields,
// message history, and the phase state machine, plus the pluggable store
// that owns them.
package session

import (
	"fmt"
	"sort"
	"time"

	"github.com/bytedance/sonic"

	"github.com/coniferlabs/appintake/field"
)

// Phase is the coarse-grained stage of a conversation.
type Phase string

const (
	PhaseSpotCheck  Phase = "spot_check"
	PhaseCollecting Phase = "collecting"
	PhaseReviewing  Phase = "reviewing"
	PhaseComplete   Phase = "complete"
	PhaseSubmitted  Phase = "submitted"
)

var phaseRank = map[Phase]int{
	PhaseSpotCheck:  0,
	PhaseCollecting: 1,
	PhaseReviewing:  2,
	PhaseComplete:   3,
	PhaseSubmitted:  4,
}

// Rank orders phases; transitions only ever move to a higher rank.
func (p Phase) Rank() int { return phaseRank[p] }

// Terminal reports whether the phase accepts no further user input.
func (p Phase) Terminal() bool {
	return p == PhaseComplete || p == PhaseSubmitted
}

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message is one conversation turn in the session transcript.
type Message struct {
	Role            Role                   `json:"role"`
	Content         string                 `json:"content"`
	Timestamp       time.Time              `json:"timestamp"`
	ExtractedFields map[string]field.Value `json:"extracted_fields,omitempty"`
}

// Step groups fields for display; it carries no collection semantics.
type Step struct {
	ID       string   `json:"step_id"`
	Title    string   `json:"title"`
	FieldIDs []string `json:"field_ids"`
}

// State is the root aggregate for one conversation. All reachable fields
// and messages are owned by the store; mutation must be serialized by the
// caller (the engine holds a per-session lock).
type State struct {
	ID            string                  `json:"session_id"`
	Phase         Phase                   `json:"phase"`
	Fields        map[string]*field.Field `json:"fields"`
	Steps         []Step                  `json:"steps"`
	CallbackURL   string                  `json:"callback_url,omitempty"`
	Messages      []Message               `json:"messages"`
	ModelOverride string                  `json:"model_override,omitempty"`
	CreatedAt     time.Time               `json:"created_at"`
	SubmittedAt   *time.Time              `json:"submitted_at,omitempty"`
}

// AppendMessage adds a turn to the transcript with the current time.
func (s *State) AppendMessage(role Role, content string, extracted map[string]field.Value) {
	s.Messages = append(s.Messages, Message{
		Role:            role,
		Content:         content,
		Timestamp:       time.Now().UTC(),
		ExtractedFields: extracted,
	})
}

// Data returns the non-null field values, the input to condition
// evaluation.
func (s *State) Data() map[string]field.Value {
	data := make(map[string]field.Value, len(s.Fields))
	for id, f := range s.Fields {
		if !f.Value.IsNull() {
			data[id] = f.Value
		}
	}
	return data
}

// ActiveFields returns the fields whose visibility conditions currently
// hold, in step order; fields not referenced by any step follow sorted by
// id so the order is deterministic.
func (s *State) ActiveFields() []*field.Field {
	data := s.Data()
	seen := make(map[string]bool, len(s.Fields))
	active := make([]*field.Field, 0, len(s.Fields))

	appendActive := func(id string) {
		if seen[id] {
			return
		}
		seen[id] = true
		if f, ok := s.Fields[id]; ok && f.Active(data) {
			active = append(active, f)
		}
	}

	for _, step := range s.Steps {
		for _, id := range step.FieldIDs {
			appendActive(id)
		}
	}
	rest := make([]string, 0)
	for id := range s.Fields {
		if !seen[id] {
			rest = append(rest, id)
		}
	}
	sort.Strings(rest)
	for _, id := range rest {
		appendActive(id)
	}
	return active
}

// FieldsByStatus returns the active fields currently in the given status.
func (s *State) FieldsByStatus(status field.Status) []*field.Field {
	var out []*field.Field
	for _, f := range s.ActiveFields() {
		if f.Status == status {
			out = append(out, f)
		}
	}
	return out
}

// MissingRequired returns active required fields with no value yet.
func (s *State) MissingRequired() []*field.Field {
	var out []*field.Field
	for _, f := range s.ActiveFields() {
		if f.Required && f.Status == field.StatusMissing {
			out = append(out, f)
		}
	}
	return out
}

// UnconfirmedFields returns active fields still awaiting confirmation of
// pre-populated data.
func (s *State) UnconfirmedFields() []*field.Field {
	return s.FieldsByStatus(field.StatusUnconfirmed)
}

// AllRequiredResolved reports whether every active required field is
// confirmed or collected.
func (s *State) AllRequiredResolved() bool {
	for _, f := range s.ActiveFields() {
		if f.Required && (f.Status == field.StatusMissing || f.Status == field.StatusUnconfirmed) {
			return false
		}
	}
	return true
}

// ReadyToComplete is the pure predicate behind the reviewing→complete
// transition: all active required fields resolved and nothing left
// unconfirmed. Advancing past reviewing is always an explicit caller
// action (submission), never a side effect of data alone.
func (s *State) ReadyToComplete() bool {
	if !s.AllRequiredResolved() {
		return false
	}
	for _, f := range s.ActiveFields() {
		if f.Status == field.StatusUnconfirmed {
			return false
		}
	}
	return true
}

// ApplicationData flattens confirmed and collected field values for
// submission.
func (s *State) ApplicationData() map[string]field.Value {
	out := make(map[string]field.Value)
	for id, f := range s.Fields {
		if (f.Status == field.StatusConfirmed || f.Status == field.StatusCollected) && !f.Value.IsNull() {
			out[id] = f.Value
		}
	}
	return out
}

// FieldSummary counts active fields by status.
func (s *State) FieldSummary() map[field.Status]int {
	counts := map[field.Status]int{
		field.StatusMissing:     0,
		field.StatusUnconfirmed: 0,
		field.StatusConfirmed:   0,
		field.StatusCollected:   0,
	}
	for _, f := range s.ActiveFields() {
		counts[f.Status]++
	}
	return counts
}

// AdvancePhase runs the data-driven transitions and reports whether the
// phase changed. It is idempotent: re-running it on an unchanged state is
// a no-op. The reviewing→complete edge is intentionally absent, see
// ReadyToComplete.
func (s *State) AdvancePhase() bool {
	before := s.Phase

	if s.Phase == PhaseSpotCheck && len(s.UnconfirmedFields()) == 0 {
		s.Phase = PhaseCollecting
	}
	if s.Phase == PhaseCollecting && s.AllRequiredResolved() {
		s.Phase = PhaseReviewing
	}

	return s.Phase != before
}

// Clone returns a deep copy of the state via its JSON form.
func (s *State) Clone() (*State, error) {
	data, err := sonic.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("session: clone %s: %w", s.ID, err)
	}
	var out State
	if err := sonic.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("session: clone %s: %w", s.ID, err)
	}
	return &out, nil
}

// InitialPhase picks the starting phase: spot check when any field was
// pre-populated, otherwise straight to collecting.
func InitialPhase(fields map[string]*field.Field) Phase {
	for _, f := range fields {
		if f.Status == field.StatusUnconfirmed {
			return PhaseSpotCheck
		}
	}
	return PhaseCollecting
}
