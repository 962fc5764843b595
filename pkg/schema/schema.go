// Package schema provides declarative validation for JSON request bodies.
//
// A schema is an ordered set of field rules. Validating a decoded body
// returns a normalized copy (strings trimmed, defaults applied, unknown
// keys stripped) or an *Error carrying the full list of issues, one per
// failed rule, in field declaration order. Callers must use the returned
// map, not the raw input: normalization never mutates the input, so
// validating an already-normalized body yields the same body.
package schema

import (
	"fmt"
	"regexp"
	"strings"
)

// Issue codes, matching the field-level error contract clients render.
const (
	CodeInvalidType      = "invalid_type"
	CodeTooSmall         = "too_small"
	CodeTooBig           = "too_big"
	CodeInvalidString    = "invalid_string"
	CodeInvalidEnumValue = "invalid_enum_value"
)

// Issue describes a single validation failure.
type Issue struct {
	Code     string   `json:"code"`
	Expected string   `json:"expected,omitempty"`
	Received string   `json:"received,omitempty"`
	Path     []string `json:"path"`
	Message  string   `json:"message"`
}

// Error is the structured validation report. It serializes to the
// 422 response body as {"issues": [...], "name": "ValidationError"}.
type Error struct {
	Issues []Issue `json:"issues"`
	Name   string  `json:"name"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return "validation failed"
	}
	first := e.Issues[0]
	return fmt.Sprintf("validation failed: %s at %s: %s",
		first.Code, strings.Join(first.Path, "."), first.Message)
}

// newError wraps issues in an Error. Issues is never empty on failure.
func newError(issues []Issue) *Error {
	return &Error{Issues: issues, Name: "ValidationError"}
}

// Field is a single named rule set within an Object.
type Field interface {
	fieldName() string

	// check validates the raw value and returns the normalized value.
	// present is false when the key is absent from the body. keep
	// reports whether the value should appear in the normalized output.
	check(value any, present, optional bool) (normalized any, keep bool, issues []Issue)
}

// Object is an ordered body schema.
type Object struct {
	fields  []Field
	partial bool
}

// NewObject builds a schema from fields, validated in the given order.
func NewObject(fields ...Field) *Object {
	return &Object{fields: fields}
}

// Partial derives a schema where every field is optional and defaults
// are not injected for absent fields. Used for update payloads.
func (o *Object) Partial() *Object {
	return &Object{fields: o.fields, partial: true}
}

// Validate checks body against the schema. On success it returns the
// normalized body containing only schema-declared keys. On failure it
// returns a non-nil *Error with at least one issue.
func (o *Object) Validate(body map[string]any) (map[string]any, *Error) {
	normalized := make(map[string]any, len(o.fields))
	var issues []Issue

	for _, f := range o.fields {
		value, present := body[f.fieldName()]
		out, keep, fieldIssues := f.check(value, present, o.partial)
		if len(fieldIssues) > 0 {
			issues = append(issues, fieldIssues...)
			continue
		}
		if keep {
			normalized[f.fieldName()] = out
		}
	}

	if len(issues) > 0 {
		return nil, newError(issues)
	}
	return normalized, nil
}

// emailPattern is deliberately loose: one "@", no whitespace, a dot in
// the domain. Stricter checks belong to the mail delivery path.
var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// StringField validates a trimmed string value.
type StringField struct {
	name        string
	required    bool
	requiredMsg string
	minLen      int
	minMsg      string
	maxLen      int
	maxMsg      string
	email       bool
}

// String starts a string field rule. Values are always trimmed.
func String(name string) *StringField {
	return &StringField{name: name}
}

// Required marks the field mandatory. msg is reported when it is absent.
func (f *StringField) Required(msg string) *StringField {
	f.required = true
	f.requiredMsg = msg
	return f
}

// Min requires at least n characters after trimming.
func (f *StringField) Min(n int, msg string) *StringField {
	f.minLen = n
	f.minMsg = msg
	return f
}

// Max allows at most n characters after trimming.
func (f *StringField) Max(n int, msg string) *StringField {
	f.maxLen = n
	f.maxMsg = msg
	return f
}

// Email requires the trimmed value to look like an email address.
func (f *StringField) Email() *StringField {
	f.email = true
	return f
}

func (f *StringField) fieldName() string { return f.name }

func (f *StringField) check(value any, present, optional bool) (any, bool, []Issue) {
	if !present {
		if f.required && !optional {
			msg := f.requiredMsg
			if msg == "" {
				msg = "Required"
			}
			return nil, false, []Issue{{
				Code:     CodeInvalidType,
				Expected: "string",
				Received: "undefined",
				Path:     []string{f.name},
				Message:  msg,
			}}
		}
		return nil, false, nil
	}

	s, ok := value.(string)
	if !ok {
		return nil, false, []Issue{{
			Code:     CodeInvalidType,
			Expected: "string",
			Received: jsonTypeName(value),
			Path:     []string{f.name},
			Message:  fmt.Sprintf("Expected string, received %s", jsonTypeName(value)),
		}}
	}

	s = strings.TrimSpace(s)

	var issues []Issue
	if f.minLen > 0 && len([]rune(s)) < f.minLen {
		issues = append(issues, Issue{
			Code:    CodeTooSmall,
			Path:    []string{f.name},
			Message: f.minMsg,
		})
	}
	if f.maxLen > 0 && len([]rune(s)) > f.maxLen {
		issues = append(issues, Issue{
			Code:    CodeTooBig,
			Path:    []string{f.name},
			Message: f.maxMsg,
		})
	}
	if f.email && !emailPattern.MatchString(s) {
		issues = append(issues, Issue{
			Code:     CodeInvalidString,
			Expected: "email",
			Path:     []string{f.name},
			Message:  "Invalid email",
		})
	}

	if len(issues) > 0 {
		return nil, false, issues
	}
	return s, true, nil
}

// EnumField validates a string restricted to a fixed value set.
type EnumField struct {
	name       string
	values     []string
	defaultVal string
	hasDefault bool
}

// Enum starts an enum field rule over the given allowed values.
func Enum(name string, values ...string) *EnumField {
	return &EnumField{name: name, values: values}
}

// Default injects v when the field is absent (except in Partial schemas).
func (f *EnumField) Default(v string) *EnumField {
	f.defaultVal = v
	f.hasDefault = true
	return f
}

func (f *EnumField) fieldName() string { return f.name }

// expected renders the allowed values as 'a' | 'b' | 'c'.
func (f *EnumField) expected() string {
	quoted := make([]string, len(f.values))
	for i, v := range f.values {
		quoted[i] = "'" + v + "'"
	}
	return strings.Join(quoted, " | ")
}

func (f *EnumField) check(value any, present, optional bool) (any, bool, []Issue) {
	if !present {
		if f.hasDefault && !optional {
			return f.defaultVal, true, nil
		}
		return nil, false, nil
	}

	s, ok := value.(string)
	if !ok {
		return nil, false, []Issue{{
			Code:     CodeInvalidType,
			Expected: f.expected(),
			Received: jsonTypeName(value),
			Path:     []string{f.name},
			Message:  fmt.Sprintf("Expected %s, received %s", f.expected(), jsonTypeName(value)),
		}}
	}

	for _, v := range f.values {
		if s == v {
			return s, true, nil
		}
	}

	return nil, false, []Issue{{
		Code:     CodeInvalidEnumValue,
		Expected: f.expected(),
		Received: "'" + s + "'",
		Path:     []string{f.name},
		Message:  fmt.Sprintf("Invalid enum value. Expected %s, received '%s'", f.expected(), s),
	}}
}

// jsonTypeName names a decoded JSON value the way clients see it.
func jsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case bool:
		return "boolean"
	case float64:
		return "number"
	case string:
		return "string"
	case []any:
		return "array"
	case map[string]any:
		return "object"
	default:
		return "unknown"
	}
}
