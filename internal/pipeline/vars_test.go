package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sampleContext() *Context {
	user := StepResult{
		Index:   0,
		Alias:   "user",
		Command: "user-get",
		Status:  StepSuccess,
		Data: map[string]any{
			"id":   float64(123),
			"name": "Alice",
			"orders": []any{
				map[string]any{"sku": "a-1"},
				map[string]any{"sku": "a-2"},
			},
		},
	}
	ctx := &Context{
		Input: map[string]any{"region": "eu", "limits": map[string]any{"max": float64(10)}},
		Steps: []StepResult{user},
	}
	ctx.Previous = &ctx.Steps[0]
	return ctx
}

func TestNestedValue(t *testing.T) {
	obj := map[string]any{
		"a": map[string]any{
			"b": []any{"x", "y"},
		},
	}

	require.Equal(t, "y", nestedValue(obj, "a.b[1]"))
	require.Nil(t, nestedValue(obj, "a.b[5]"))
	require.Nil(t, nestedValue(obj, "a.missing"))
	require.Nil(t, nestedValue(nil, "a"))
	require.Nil(t, nestedValue("scalar", "a"))
}

func TestResolveVariable(t *testing.T) {
	ctx := sampleContext()

	cases := []struct {
		ref  string
		want any
	}{
		{"$prev.name", "Alice"},
		{"$prev.id", float64(123)},
		{"$first.name", "Alice"},
		{"$input", ctx.Input},
		{"$input.region", "eu"},
		{"$input.limits.max", float64(10)},
		{"$steps[0].name", "Alice"},
		{"$steps.user.name", "Alice"},
		{"$steps.user.orders[1].sku", "a-2"},
		{"$steps.unknown", nil},
		{"$steps[9]", nil},
		{"$prev.missing", nil},
		{"$bogus", nil},
		{"literal", "literal"},
	}
	for _, tc := range cases {
		require.Equal(t, tc.want, ResolveVariable(tc.ref, ctx), "ref %s", tc.ref)
	}
}

func TestResolveVariable_PrevWholeData(t *testing.T) {
	ctx := sampleContext()
	data, ok := ResolveVariable("$prev", ctx).(map[string]any)
	require.True(t, ok)
	require.Equal(t, "Alice", data["name"])
}

func TestResolveVariable_EmptyContext(t *testing.T) {
	ctx := &Context{}
	require.Nil(t, ResolveVariable("$prev", ctx))
	require.Nil(t, ResolveVariable("$first", ctx))
	require.Nil(t, ResolveVariable("$prev.id", ctx))
	require.Nil(t, ResolveVariable("$input", ctx))
}

func TestResolveVariables_Recursive(t *testing.T) {
	ctx := sampleContext()

	input := map[string]any{
		"userId": "$prev.id",
		"static": "value",
		"nested": map[string]any{"region": "$input.region"},
		"list":   []any{"$prev.name", "plain"},
	}

	resolved, ok := ResolveVariables(input, ctx).(map[string]any)
	require.True(t, ok)
	require.Equal(t, float64(123), resolved["userId"])
	require.Equal(t, "value", resolved["static"])
	require.Equal(t, map[string]any{"region": "eu"}, resolved["nested"])
	require.Equal(t, []any{"Alice", "plain"}, resolved["list"])
}
