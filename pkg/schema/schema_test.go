package schema

import (
	"reflect"
	"testing"
)

func taskSchema() *Object {
	return NewObject(
		String("title").Required("Title is required").Max(50, "Title should not be longer than 50 characters"),
		String("description").Required("Description is required"),
		Enum("priority", "low", "medium", "high").Default("low"),
	)
}

func TestValidate_NormalizesAndDefaults(t *testing.T) {
	body := map[string]any{
		"title":       "  Buy milk  ",
		"description": "two liters",
		"ignored":     "stripped",
	}

	out, verr := taskSchema().Validate(body)
	if verr != nil {
		t.Fatalf("unexpected validation error: %v", verr)
	}

	if got := out["title"]; got != "Buy milk" {
		t.Errorf("title not trimmed: %q", got)
	}
	if got := out["priority"]; got != "low" {
		t.Errorf("default not applied: %q", got)
	}
	if _, ok := out["ignored"]; ok {
		t.Error("unknown key survived normalization")
	}

	// Input must not be mutated.
	if body["title"] != "  Buy milk  " {
		t.Error("input body was mutated")
	}
}

func TestValidate_Idempotent(t *testing.T) {
	body := map[string]any{
		"title":       " report ",
		"description": "quarterly numbers",
		"priority":    "high",
	}

	first, verr := taskSchema().Validate(body)
	if verr != nil {
		t.Fatalf("first pass: %v", verr)
	}
	second, verr := taskSchema().Validate(first)
	if verr != nil {
		t.Fatalf("second pass: %v", verr)
	}
	if !reflect.DeepEqual(first, second) {
		t.Errorf("normalization not idempotent:\nfirst:  %#v\nsecond: %#v", first, second)
	}
}

func TestValidate_Issues(t *testing.T) {
	tests := []struct {
		name     string
		body     map[string]any
		wantCode string
		wantPath string
	}{
		{
			name:     "missing required field",
			body:     map[string]any{"description": "x"},
			wantCode: CodeInvalidType,
			wantPath: "title",
		},
		{
			name:     "wrong type",
			body:     map[string]any{"title": 42.0, "description": "x"},
			wantCode: CodeInvalidType,
			wantPath: "title",
		},
		{
			name: "over max length",
			body: map[string]any{
				"title":       "this title is definitely way longer than fifty characters, no doubt",
				"description": "x",
			},
			wantCode: CodeTooBig,
			wantPath: "title",
		},
		{
			name:     "invalid enum value",
			body:     map[string]any{"title": "t", "description": "x", "priority": "urgent"},
			wantCode: CodeInvalidEnumValue,
			wantPath: "priority",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, verr := taskSchema().Validate(tt.body)
			if verr == nil {
				t.Fatalf("expected validation error, got %#v", out)
			}
			if verr.Name != "ValidationError" {
				t.Errorf("Name = %q, want ValidationError", verr.Name)
			}
			if len(verr.Issues) != 1 {
				t.Fatalf("expected 1 issue, got %d: %#v", len(verr.Issues), verr.Issues)
			}
			issue := verr.Issues[0]
			if issue.Code != tt.wantCode {
				t.Errorf("code = %q, want %q", issue.Code, tt.wantCode)
			}
			if len(issue.Path) != 1 || issue.Path[0] != tt.wantPath {
				t.Errorf("path = %v, want [%s]", issue.Path, tt.wantPath)
			}
		})
	}
}

func TestValidate_CollectsAllIssuesInOrder(t *testing.T) {
	_, verr := taskSchema().Validate(map[string]any{})
	if verr == nil {
		t.Fatal("expected validation error")
	}
	if len(verr.Issues) != 2 {
		t.Fatalf("expected 2 issues, got %d", len(verr.Issues))
	}
	if verr.Issues[0].Path[0] != "title" || verr.Issues[1].Path[0] != "description" {
		t.Errorf("issues out of declaration order: %#v", verr.Issues)
	}
}

func TestValidate_MinLength(t *testing.T) {
	s := NewObject(String("title").Required("Title is required").Min(1, "Title should not be empty"))

	_, verr := s.Validate(map[string]any{"title": ""})
	if verr == nil {
		t.Fatal("expected validation error for empty title")
	}
	if verr.Issues[0].Code != CodeTooSmall {
		t.Errorf("code = %q, want %q", verr.Issues[0].Code, CodeTooSmall)
	}

	// Whitespace-only trims down to empty as well.
	_, verr = s.Validate(map[string]any{"title": "   "})
	if verr == nil {
		t.Fatal("expected validation error for blank title")
	}
}

func TestValidate_Email(t *testing.T) {
	s := NewObject(String("email").Required("Email is required").Email())

	if _, verr := s.Validate(map[string]any{"email": " a@b.com "}); verr != nil {
		t.Fatalf("valid email rejected: %v", verr)
	}

	for _, bad := range []string{"", "plain", "a@b", "a b@c.com"} {
		if _, verr := s.Validate(map[string]any{"email": bad}); verr == nil {
			t.Errorf("email %q accepted", bad)
		}
	}
}

func TestPartial_MakesFieldsOptional(t *testing.T) {
	partial := taskSchema().Partial()

	out, verr := partial.Validate(map[string]any{"title": " new name "})
	if verr != nil {
		t.Fatalf("partial update rejected: %v", verr)
	}
	if out["title"] != "new name" {
		t.Errorf("title = %q", out["title"])
	}
	if _, ok := out["priority"]; ok {
		t.Error("default injected into partial payload")
	}

	// Present fields are still validated.
	if _, verr := partial.Validate(map[string]any{"priority": "urgent"}); verr == nil {
		t.Error("invalid enum accepted by partial schema")
	}
}
