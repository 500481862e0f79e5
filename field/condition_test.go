package field

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLeafOperators(t *testing.T) {
	t.Parallel()

	data := map[string]Value{
		"state":    String("CA"),
		"age":      Number(67),
		"married":  Bool(true),
		"nickname": Null(),
	}

	tests := []struct {
		name string
		cond Condition
		want bool
	}{
		{"eq match", Leaf("state", OpEq, String("CA")), true},
		{"eq mismatch", Leaf("state", OpEq, String("NY")), false},
		{"eq bool", Leaf("married", OpEq, Bool(true)), true},
		{"neq", Leaf("state", OpNeq, String("NY")), true},
		{"in member", LeafIn("state", OpIn, String("NY"), String("CA")), true},
		{"in non-member", LeafIn("state", OpIn, String("NY"), String("TX")), false},
		{"not_in", LeafIn("state", OpNotIn, String("NY"), String("TX")), true},
		{"contains substring", Leaf("state", OpContains, String("C")), true},
		{"contains non-string", Leaf("age", OpContains, String("6")), false},
		{"gt numeric", Leaf("age", OpGt, Number(65)), true},
		{"gte boundary", Leaf("age", OpGte, Number(67)), true},
		{"lt numeric", Leaf("age", OpLt, Number(65)), false},
		{"lte lexicographic", Leaf("state", OpLte, String("DA")), true},
		{"ordered across kinds", Leaf("age", OpGt, String("65")), false},
		{"unknown field", Leaf("ghost", OpEq, String("x")), false},
		{"null value never equal", Leaf("nickname", OpEq, String("Bob")), false},
		{"neq on null holds", Leaf("nickname", OpNeq, String("Bob")), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.cond.Eval(data))
		})
	}
}

func TestCompoundConditions(t *testing.T) {
	t.Parallel()

	data := map[string]Value{
		"state": String("CA"),
		"age":   Number(67),
	}

	and := And(
		Leaf("state", OpEq, String("CA")),
		Leaf("age", OpGte, Number(65)),
	)
	assert.True(t, and.Eval(data))
	assert.False(t, And(Leaf("state", OpEq, String("NY")), Leaf("age", OpGte, Number(65))).Eval(data))

	or := Or(
		Leaf("state", OpEq, String("NY")),
		Leaf("age", OpGte, Number(65)),
	)
	assert.True(t, or.Eval(data))

	// NOT is satisfied only when no child is.
	assert.False(t, Not(Leaf("state", OpEq, String("CA"))).Eval(data))
	assert.True(t, Not(Leaf("state", OpEq, String("NY"))).Eval(data))
	assert.False(t, Not(
		Leaf("state", OpEq, String("NY")),
		Leaf("age", OpGte, Number(65)),
	).Eval(data), "NOT over children behaves as NOR")

	// Empty compounds.
	assert.True(t, And().Eval(data))
	assert.False(t, Or().Eval(data))
	assert.True(t, Not().Eval(data))
}

func TestConditionUnmarshalForms(t *testing.T) {
	t.Parallel()

	data := map[string]Value{
		"marital_status": String("married"),
		"coverage":       String("term"),
	}

	tests := []struct {
		name string
		raw  string
		want bool
	}{
		{
			"modern leaf",
			`{"field": "marital_status", "op": "eq", "value": "married"}`,
			true,
		},
		{
			"legacy equals",
			`{"field_id": "marital_status", "operator": "equals", "value": "married"}`,
			true,
		},
		{
			"legacy not_equals",
			`{"field_id": "marital_status", "operator": "not_equals", "value": "single"}`,
			true,
		},
		{
			"legacy in",
			`{"field_id": "coverage", "operator": "in", "value": ["term", "whole"]}`,
			true,
		},
		{
			"compound and",
			`{"operator": "AND", "conditions": [
				{"field": "marital_status", "op": "eq", "value": "married"},
				{"field": "coverage", "op": "neq", "value": "universal"}
			]}`,
			true,
		},
		{
			"compound not",
			`{"operator": "NOT", "conditions": [
				{"field": "coverage", "op": "eq", "value": "term"}
			]}`,
			false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var c Condition
			require.NoError(t, sonic.UnmarshalString(tt.raw, &c))
			assert.Equal(t, tt.want, c.Eval(data))
		})
	}
}

func TestConditionMarshalRoundTrip(t *testing.T) {
	t.Parallel()

	orig := And(
		Leaf("age", OpGte, Number(18)),
		Not(LeafIn("state", OpIn, String("NY"))),
	)
	raw, err := sonic.Marshal(orig)
	require.NoError(t, err)

	var back Condition
	require.NoError(t, sonic.Unmarshal(raw, &back))

	data := map[string]Value{"age": Number(30), "state": String("CA")}
	assert.Equal(t, orig.Eval(data), back.Eval(data))
}
