package field

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/bytedance/sonic"
)

// Op is a leaf condition comparison operator.
type Op string

const (
	OpEq       Op = "eq"
	OpNeq      Op = "neq"
	OpIn       Op = "in"
	OpNotIn    Op = "not_in"
	OpContains Op = "contains"
	OpGt       Op = "gt"
	OpGte      Op = "gte"
	OpLt       Op = "lt"
	OpLte      Op = "lte"
)

type condKind int

const (
	condLeaf condKind = iota
	condAnd
	condOr
	condNot
)

// Condition is a visibility predicate over current field values. It is a
// tagged variant: a leaf comparison, or an AND/OR/NOT over child
// conditions. NOT is satisfied when none of its children are satisfied
// (a NOR, not the negation of a single child).
//
// Conditions are built once when a form definition is adapted; the
// evaluator never inspects wire formats.
type Condition struct {
	kind     condKind
	field    string
	op       Op
	value    Value
	values   []Value
	children []Condition
}

// Leaf builds a comparison of one field's value against a literal.
func Leaf(fieldID string, op Op, value Value) Condition {
	return Condition{kind: condLeaf, field: fieldID, op: op, value: value}
}

// LeafIn builds an in/not_in membership test against a literal list.
func LeafIn(fieldID string, op Op, values ...Value) Condition {
	return Condition{kind: condLeaf, field: fieldID, op: op, values: values}
}

func And(children ...Condition) Condition { return Condition{kind: condAnd, children: children} }
func Or(children ...Condition) Condition  { return Condition{kind: condOr, children: children} }

// Not is satisfied iff none of its children are.
func Not(children ...Condition) Condition { return Condition{kind: condNot, children: children} }

// Eval evaluates the condition against the given field values. A field
// absent from data compares as null.
func (c Condition) Eval(data map[string]Value) bool {
	switch c.kind {
	case condAnd:
		for _, child := range c.children {
			if !child.Eval(data) {
				return false
			}
		}
		return true
	case condOr:
		for _, child := range c.children {
			if child.Eval(data) {
				return true
			}
		}
		return false
	case condNot:
		for _, child := range c.children {
			if child.Eval(data) {
				return false
			}
		}
		return true
	default:
		return c.evalLeaf(data[c.field])
	}
}

func (c Condition) evalLeaf(v Value) bool {
	switch c.op {
	case OpEq:
		return v.Equal(c.value)
	case OpNeq:
		return !v.Equal(c.value)
	case OpIn:
		for _, want := range c.values {
			if v.Equal(want) {
				return true
			}
		}
		return false
	case OpNotIn:
		for _, want := range c.values {
			if v.Equal(want) {
				return false
			}
		}
		return true
	case OpContains:
		// The closed value domain has no lists, so containment means
		// substring over strings.
		s, ok := v.AsString()
		if !ok {
			return false
		}
		want, ok := c.value.AsString()
		if !ok {
			return false
		}
		return strings.Contains(s, want)
	case OpGt, OpGte, OpLt, OpLte:
		return ordered(v, c.value, c.op)
	default:
		return true
	}
}

// ordered compares numbers numerically and strings lexicographically.
// Null or mismatched kinds never satisfy an ordered comparison.
func ordered(v, want Value, op Op) bool {
	var cmp int
	switch {
	case v.Kind() == KindNumber && want.Kind() == KindNumber:
		a, _ := v.AsNumber()
		b, _ := want.AsNumber()
		switch {
		case a < b:
			cmp = -1
		case a > b:
			cmp = 1
		}
	case v.Kind() == KindString && want.Kind() == KindString:
		a, _ := v.AsString()
		b, _ := want.AsString()
		cmp = strings.Compare(a, b)
	default:
		return false
	}
	switch op {
	case OpGt:
		return cmp > 0
	case OpGte:
		return cmp >= 0
	case OpLt:
		return cmp < 0
	default:
		return cmp <= 0
	}
}

// conditionWire is the serialized shape. Compound nodes carry operator +
// conditions; leaves carry field/op/value. Parsing also accepts the legacy
// leaf spellings (field_id, equals, not_equals) used by older form
// definitions.
type conditionWire struct {
	Operator   string          `json:"operator,omitempty"`
	Conditions []Condition     `json:"conditions,omitempty"`
	Field      string          `json:"field,omitempty"`
	FieldID    string          `json:"field_id,omitempty"`
	Op         Op              `json:"op,omitempty"`
	Value      json.RawMessage `json:"value,omitempty"`
}

func (c Condition) MarshalJSON() ([]byte, error) {
	switch c.kind {
	case condAnd, condOr, condNot:
		op := map[condKind]string{condAnd: "AND", condOr: "OR", condNot: "NOT"}[c.kind]
		return sonic.Marshal(map[string]any{"operator": op, "conditions": c.children})
	default:
		var value any
		if c.op == OpIn || c.op == OpNotIn {
			vs := make([]any, 0, len(c.values))
			for _, v := range c.values {
				vs = append(vs, v.Interface())
			}
			value = vs
		} else {
			value = c.value.Interface()
		}
		return sonic.Marshal(map[string]any{"field": c.field, "op": c.op, "value": value})
	}
}

func (c *Condition) UnmarshalJSON(data []byte) error {
	var wire conditionWire
	if err := sonic.Unmarshal(data, &wire); err != nil {
		return err
	}

	switch wire.Operator {
	case "AND":
		*c = And(wire.Conditions...)
		return nil
	case "OR":
		*c = Or(wire.Conditions...)
		return nil
	case "NOT":
		*c = Not(wire.Conditions...)
		return nil
	}

	fieldID := wire.Field
	if fieldID == "" {
		fieldID = wire.FieldID
	}
	op := wire.Op
	if op == "" && wire.Operator != "" {
		op = Op(wire.Operator)
	}
	switch op {
	case "", "equals":
		op = OpEq
	case "not_equals":
		op = OpNeq
	}

	if op == OpIn || op == OpNotIn {
		var raw []any
		// A missing or malformed expected list is treated as empty.
		if len(wire.Value) > 0 {
			_ = sonic.Unmarshal(wire.Value, &raw)
		}
		values := make([]Value, 0, len(raw))
		for _, item := range raw {
			v, ok := FromAny(item)
			if !ok {
				return fmt.Errorf("field: condition on %q has unsupported list item %T", fieldID, item)
			}
			values = append(values, v)
		}
		*c = LeafIn(fieldID, op, values...)
		return nil
	}

	var raw any
	if len(wire.Value) > 0 {
		if err := sonic.Unmarshal(wire.Value, &raw); err != nil {
			return err
		}
	}
	v, ok := FromAny(raw)
	if !ok {
		return fmt.Errorf("field: condition on %q has unsupported value %T", fieldID, raw)
	}
	*c = Leaf(fieldID, op, v)
	return nil
}
