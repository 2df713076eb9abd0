package pipeline

import (
	"regexp"
	"strconv"
	"strings"
)

// Context is the state visible to variable references and conditions
// while a pipeline runs.
type Context struct {
	Input    map[string]any // $input
	Previous *StepResult    // $prev
	Steps    []StepResult   // $steps[n], $steps.alias, $first
}

var arraySegmentRe = regexp.MustCompile(`^(\w+)\[(\d+)\]$`)
var stepsIndexRe = regexp.MustCompile(`^\$steps\[(\d+)\]`)

// nestedValue walks obj by dot notation. Segments like "items[2]"
// index into arrays. Missing segments yield nil.
func nestedValue(obj any, path string) any {
	current := obj
	for _, part := range strings.Split(path, ".") {
		if current == nil {
			return nil
		}

		if m := arraySegmentRe.FindStringSubmatch(part); m != nil {
			obj, ok := current.(map[string]any)
			if !ok {
				return nil
			}
			arr, ok := obj[m[1]].([]any)
			if !ok {
				return nil
			}
			idx, _ := strconv.Atoi(m[2])
			if idx >= len(arr) {
				return nil
			}
			current = arr[idx]
			continue
		}

		obj, ok := current.(map[string]any)
		if !ok {
			return nil
		}
		current = obj[part]
	}
	return current
}

// ResolveVariable resolves a single $-reference against the context.
// Non-references pass through unchanged; unknown references yield nil.
func ResolveVariable(ref string, ctx *Context) any {
	if !strings.HasPrefix(ref, "$") {
		return ref
	}

	switch ref {
	case "$prev":
		if ctx.Previous != nil {
			return ctx.Previous.Data
		}
		return nil
	case "$first":
		if len(ctx.Steps) > 0 {
			return ctx.Steps[0].Data
		}
		return nil
	case "$input":
		return ctx.Input
	}

	if m := stepsIndexRe.FindStringSubmatch(ref); m != nil {
		idx, _ := strconv.Atoi(m[1])
		if idx >= len(ctx.Steps) {
			return nil
		}
		step := ctx.Steps[idx]
		remaining := ref[len(m[0]):]
		if strings.HasPrefix(remaining, ".") {
			return nestedValue(step.Data, remaining[1:])
		}
		return step.Data
	}

	if rest, ok := strings.CutPrefix(ref, "$steps."); ok {
		alias := rest
		path := ""
		if dot := strings.Index(rest, "."); dot >= 0 {
			alias = rest[:dot]
			path = rest[dot+1:]
		}
		for _, step := range ctx.Steps {
			if step.Alias == alias {
				if path != "" {
					return nestedValue(step.Data, path)
				}
				return step.Data
			}
		}
		return nil
	}

	if path, ok := strings.CutPrefix(ref, "$prev."); ok {
		if ctx.Previous != nil {
			return nestedValue(ctx.Previous.Data, path)
		}
		return nil
	}

	if path, ok := strings.CutPrefix(ref, "$first."); ok {
		if len(ctx.Steps) > 0 {
			return nestedValue(ctx.Steps[0].Data, path)
		}
		return nil
	}

	if path, ok := strings.CutPrefix(ref, "$input."); ok {
		return nestedValue(toAny(ctx.Input), path)
	}

	return nil
}

// ResolveVariables walks input, replacing every string that starts
// with $ by its resolved value. Maps and slices are resolved
// recursively; everything else passes through.
func ResolveVariables(input any, ctx *Context) any {
	switch v := input.(type) {
	case string:
		if strings.HasPrefix(v, "$") {
			return ResolveVariable(v, ctx)
		}
		return v
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = ResolveVariables(item, ctx)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, value := range v {
			out[key] = ResolveVariables(value, ctx)
		}
		return out
	default:
		return input
	}
}

func toAny(m map[string]any) any {
	if m == nil {
		return nil
	}
	return m
}
