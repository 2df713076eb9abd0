package command

import (
	"encoding/json"
	"fmt"
	"strings"
)

// FieldError is a single validation failure with the path of the
// offending field.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// FieldErrors collects the validation failures for one input payload.
type FieldErrors struct {
	Issues []FieldError `json:"issues"`
}

// Error implements the error interface with a summary of all issues.
func (e *FieldErrors) Error() string {
	parts := make([]string, len(e.Issues))
	for i, issue := range e.Issues {
		parts[i] = fmt.Sprintf("%s: %s", issue.Path, issue.Message)
	}
	return strings.Join(parts, "; ")
}

// Add appends an issue.
func (e *FieldErrors) Add(path, message string) {
	e.Issues = append(e.Issues, FieldError{Path: path, Message: message})
}

// Details converts the issues into the map shape carried by
// CommandError.Details.
func (e *FieldErrors) Details() map[string]any {
	fields := make([]map[string]any, len(e.Issues))
	for i, issue := range e.Issues {
		fields[i] = map[string]any{"path": issue.Path, "message": issue.Message}
	}
	return map[string]any{"fields": fields}
}

// InputSchema validates and parses raw command input. The platform never
// couples to a specific schema library: any validator can sit behind
// this interface.
type InputSchema interface {
	// Validate parses raw into the handler's input value, reporting
	// field-level errors on mismatch. The returned value is passed to
	// the handler unmodified.
	Validate(raw json.RawMessage) (any, *FieldErrors)

	// JSONSchema returns a JSON-Schema-shaped descriptor for wire
	// advertisement (MCP tools/list, registry-schema).
	JSONSchema() map[string]any
}

// FieldType is the JSON type of a schema field.
type FieldType string

const (
	FieldString  FieldType = "string"
	FieldNumber  FieldType = "number"
	FieldBoolean FieldType = "boolean"
	FieldObject  FieldType = "object"
	FieldArray   FieldType = "array"
)

// Field describes one property of an ObjectSchema.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool
	Enum        []string  // allowed values for string fields
	Items       FieldType // element type for array fields
	Default     any       // recorded in the descriptor; not applied during validation
}

// ObjectSchema is a hand-built object validator covering the common
// case: a flat set of typed, optionally-required properties. Unknown
// properties are rejected.
type ObjectSchema struct {
	fields []Field
}

// NewObjectSchema builds a schema from fields. Field order is preserved
// in descriptors.
func NewObjectSchema(fields ...Field) *ObjectSchema {
	return &ObjectSchema{fields: fields}
}

// EmptySchema returns a schema accepting only an empty (or absent)
// object, for commands that take no input.
func EmptySchema() *ObjectSchema {
	return NewObjectSchema()
}

// Fields returns the schema's field list.
func (s *ObjectSchema) Fields() []Field {
	return s.fields
}

// Validate implements InputSchema. nil or empty raw is treated as {}.
func (s *ObjectSchema) Validate(raw json.RawMessage) (any, *FieldErrors) {
	input := map[string]any{}
	if len(raw) > 0 && string(raw) != "null" {
		if err := json.Unmarshal(raw, &input); err != nil {
			errs := &FieldErrors{}
			errs.Add("$", fmt.Sprintf("input must be a JSON object: %v", err))
			return nil, errs
		}
	}

	errs := &FieldErrors{}
	byName := make(map[string]Field, len(s.fields))
	for _, f := range s.fields {
		byName[f.Name] = f
		if f.Required {
			if _, ok := input[f.Name]; !ok {
				errs.Add(f.Name, "required field is missing")
			}
		}
	}

	for name, value := range input {
		f, ok := byName[name]
		if !ok {
			errs.Add(name, "unknown field")
			continue
		}
		if value == nil {
			if f.Required {
				errs.Add(name, "required field is null")
			}
			continue
		}
		s.checkType(errs, f, value)
	}

	if len(errs.Issues) > 0 {
		return nil, errs
	}
	return input, nil
}

func (s *ObjectSchema) checkType(errs *FieldErrors, f Field, value any) {
	switch f.Type {
	case FieldString:
		str, ok := value.(string)
		if !ok {
			errs.Add(f.Name, "expected a string")
			return
		}
		if len(f.Enum) > 0 {
			for _, allowed := range f.Enum {
				if str == allowed {
					return
				}
			}
			errs.Add(f.Name, fmt.Sprintf("must be one of: %s", strings.Join(f.Enum, ", ")))
		}
	case FieldNumber:
		if _, ok := value.(float64); !ok {
			errs.Add(f.Name, "expected a number")
		}
	case FieldBoolean:
		if _, ok := value.(bool); !ok {
			errs.Add(f.Name, "expected a boolean")
		}
	case FieldObject:
		if _, ok := value.(map[string]any); !ok {
			errs.Add(f.Name, "expected an object")
		}
	case FieldArray:
		arr, ok := value.([]any)
		if !ok {
			errs.Add(f.Name, "expected an array")
			return
		}
		for i, item := range arr {
			if !matchesType(f.Items, item) {
				errs.Add(fmt.Sprintf("%s[%d]", f.Name, i), fmt.Sprintf("expected a %s", f.Items))
			}
		}
	}
}

func matchesType(t FieldType, value any) bool {
	switch t {
	case FieldString:
		_, ok := value.(string)
		return ok
	case FieldNumber:
		_, ok := value.(float64)
		return ok
	case FieldBoolean:
		_, ok := value.(bool)
		return ok
	case FieldObject:
		_, ok := value.(map[string]any)
		return ok
	case FieldArray:
		_, ok := value.([]any)
		return ok
	default:
		// Untyped array items accept anything.
		return true
	}
}

// JSONSchema implements InputSchema.
func (s *ObjectSchema) JSONSchema() map[string]any {
	properties := make(map[string]any, len(s.fields))
	var required []string
	for _, f := range s.fields {
		prop := map[string]any{"type": string(f.Type)}
		if f.Description != "" {
			prop["description"] = f.Description
		}
		if len(f.Enum) > 0 {
			prop["enum"] = f.Enum
		}
		if f.Type == FieldArray && f.Items != "" {
			prop["items"] = map[string]any{"type": string(f.Items)}
		}
		if f.Default != nil {
			prop["default"] = f.Default
		}
		properties[f.Name] = prop
		if f.Required {
			required = append(required, f.Name)
		}
	}
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// SchemaFunc adapts a custom validator function (and optional descriptor)
// to the InputSchema interface.
type SchemaFunc struct {
	ValidateFunc func(raw json.RawMessage) (any, *FieldErrors)
	SchemaDoc    map[string]any
}

// Validate implements InputSchema.
func (s SchemaFunc) Validate(raw json.RawMessage) (any, *FieldErrors) {
	return s.ValidateFunc(raw)
}

// JSONSchema implements InputSchema.
func (s SchemaFunc) JSONSchema() map[string]any {
	if s.SchemaDoc != nil {
		return s.SchemaDoc
	}
	return map[string]any{"type": "object"}
}
