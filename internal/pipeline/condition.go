package pipeline

// Condition gates a step. Conditions are JSON objects with a single
// operator key: $exists takes a variable reference; $eq/$ne/$gt/$gte/
// $lt/$lte take a [reference, value] pair; $and/$or take condition
// lists; $not takes one condition. Unknown shapes evaluate to false.
type Condition map[string]any

// Evaluate resolves the condition against the pipeline context.
func (c Condition) Evaluate(ctx *Context) bool {
	if ref, ok := c["$exists"].(string); ok {
		return ResolveVariable(ref, ctx) != nil
	}

	if pair, ok := asPair(c["$eq"]); ok {
		return resolvedEquals(pair, ctx, false)
	}
	if pair, ok := asPair(c["$ne"]); ok {
		return resolvedEquals(pair, ctx, true)
	}

	if pair, ok := asPair(c["$gt"]); ok {
		return compareNumeric(pair, ctx, func(v, t float64) bool { return v > t })
	}
	if pair, ok := asPair(c["$gte"]); ok {
		return compareNumeric(pair, ctx, func(v, t float64) bool { return v >= t })
	}
	if pair, ok := asPair(c["$lt"]); ok {
		return compareNumeric(pair, ctx, func(v, t float64) bool { return v < t })
	}
	if pair, ok := asPair(c["$lte"]); ok {
		return compareNumeric(pair, ctx, func(v, t float64) bool { return v <= t })
	}

	if list, ok := c["$and"].([]any); ok {
		for _, item := range list {
			if !asCondition(item).Evaluate(ctx) {
				return false
			}
		}
		return true
	}
	if list, ok := c["$or"].([]any); ok {
		for _, item := range list {
			if asCondition(item).Evaluate(ctx) {
				return true
			}
		}
		return false
	}
	if inner, ok := c["$not"]; ok {
		return !asCondition(inner).Evaluate(ctx)
	}

	return false
}

func asPair(v any) ([2]any, bool) {
	arr, ok := v.([]any)
	if !ok || len(arr) != 2 {
		return [2]any{}, false
	}
	return [2]any{arr[0], arr[1]}, true
}

func asCondition(v any) Condition {
	if c, ok := v.(Condition); ok {
		return c
	}
	if m, ok := v.(map[string]any); ok {
		return Condition(m)
	}
	return nil
}

func resolvedEquals(pair [2]any, ctx *Context, negate bool) bool {
	ref, ok := pair[0].(string)
	if !ok {
		return false
	}
	value := ResolveVariable(ref, ctx)
	equal := looseEqual(value, pair[1])
	if negate {
		return !equal
	}
	return equal
}

func compareNumeric(pair [2]any, ctx *Context, cmp func(v, t float64) bool) bool {
	ref, ok := pair[0].(string)
	if !ok {
		return false
	}
	threshold, ok := asFloat(pair[1])
	if !ok {
		return false
	}
	value, ok := asFloat(ResolveVariable(ref, ctx))
	if !ok {
		return false
	}
	return cmp(value, threshold)
}

// looseEqual compares decoded JSON values: numbers compare by value so
// int inputs match float64-decoded context data.
func looseEqual(a, b any) bool {
	if af, ok := asFloat(a); ok {
		if bf, ok := asFloat(b); ok {
			return af == bf
		}
		return false
	}
	return a == b
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	default:
		return 0, false
	}
}
