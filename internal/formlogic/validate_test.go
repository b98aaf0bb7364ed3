package formlogic

import (
	"errors"
	"reflect"
	"testing"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

func testForm() *models.Form {
	return &models.Form{
		Title:           "Hiring",
		AirtableBaseID:  "appBase",
		AirtableTableID: "tblTable",
		Questions: []models.Question{
			{QuestionKey: "role", AirtableFieldID: "fldRole", Label: "Role", Type: models.SingleSelect, Required: true, Options: []string{"Engineer", "Manager"}},
			{
				QuestionKey: "stack", AirtableFieldID: "fldStack", Label: "Stack", Type: models.MultipleSelects, Required: true,
				Options:          []string{"Go", "Rust", "JavaScript"},
				ConditionalRules: and(cond("role", models.OpEquals, "Engineer")),
			},
			{QuestionKey: "bio", AirtableFieldID: "fldBio", Label: "Bio", Type: models.MultilineText},
			{QuestionKey: "cv", AirtableFieldID: "fldCV", Label: "CV", Type: models.MultipleAttachments},
		},
	}
}

func messages(t *testing.T, err error) []string {
	t.Helper()
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected Errors, got %T: %v", err, err)
	}
	return verrs.Messages()
}

func TestValidateRequired(t *testing.T) {
	form := &models.Form{Questions: []models.Question{
		{QuestionKey: "role", AirtableFieldID: "fldRole", Label: "Role", Type: models.SingleLineText, Required: true},
	}}

	fields, err := Validate(form, Answers{})
	if fields != nil {
		t.Fatalf("expected no fields, got %v", fields)
	}
	got := messages(t, err)
	if !reflect.DeepEqual(got, []string{"Role is required"}) {
		t.Fatalf("unexpected errors: %v", got)
	}

	_, err = Validate(form, Answers{"role": ""})
	if got := messages(t, err); len(got) != 1 {
		t.Fatalf("empty string must count as missing, got %v", got)
	}
}

func TestValidateSkipsHiddenQuestions(t *testing.T) {
	fields, err := Validate(testForm(), Answers{"role": "Manager", "stack": []any{"Cobol"}})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Fields{"fldRole": "Manager"}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
}

func TestValidateVisibleRequired(t *testing.T) {
	_, err := Validate(testForm(), Answers{"role": "Engineer"})
	got := messages(t, err)
	if !reflect.DeepEqual(got, []string{"Stack is required"}) {
		t.Fatalf("unexpected errors: %v", got)
	}
}

func TestValidateInvalidOption(t *testing.T) {
	form := &models.Form{Questions: []models.Question{
		{QuestionKey: "q", AirtableFieldID: "fldQ", Label: "Q", Type: models.SingleSelect, Options: []string{"X", "Y"}},
	}}
	fields, err := Validate(form, Answers{"q": "Z"})
	if fields != nil {
		t.Fatalf("expected no fields, got %v", fields)
	}
	var verrs Errors
	if !errors.As(err, &verrs) || len(verrs) != 1 || verrs[0].Kind != InvalidOption {
		t.Fatalf("expected one InvalidOption error, got %v", err)
	}
	if verrs[0].Message != "Q has invalid option" {
		t.Fatalf("unexpected message %q", verrs[0].Message)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	_, err := Validate(testForm(), Answers{
		"role":  "Engineer",
		"stack": []any{"Go", "Cobol", "Fortran"},
		"cv":    "not-a-list",
	})
	var verrs Errors
	if !errors.As(err, &verrs) {
		t.Fatalf("expected Errors, got %v", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("expected 2 errors, got %v", verrs)
	}
	kinds := []Kind{verrs[0].Kind, verrs[1].Kind}
	if !reflect.DeepEqual(kinds, []Kind{InvalidOptionsList, InvalidAttachmentShape}) {
		t.Fatalf("unexpected errors: %v", verrs)
	}
	if verrs[0].Message != "Stack has invalid options" {
		t.Fatalf("unexpected message %q", verrs[0].Message)
	}
}

func TestValidateMultipleSelectsShape(t *testing.T) {
	_, err := Validate(testForm(), Answers{"role": "Engineer", "stack": "Go"})
	got := messages(t, err)
	if !reflect.DeepEqual(got, []string{"Stack must be an array"}) {
		t.Fatalf("unexpected errors: %v", got)
	}
}

func TestValidateSuccessKeysByFieldID(t *testing.T) {
	cv := []any{map[string]any{"url": "https://example.com/cv.pdf"}}
	fields, err := Validate(testForm(), Answers{
		"role":  "Engineer",
		"stack": []any{"Go", "Rust"},
		"bio":   "hello",
		"cv":    cv,
		"extra": "ignored",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := Fields{
		"fldRole":  "Engineer",
		"fldStack": []any{"Go", "Rust"},
		"fldBio":   "hello",
		"fldCV":    cv,
	}
	if !reflect.DeepEqual(fields, want) {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
}

func TestValidateNilAnswers(t *testing.T) {
	_, err := Validate(testForm(), nil)
	got := messages(t, err)
	if !reflect.DeepEqual(got, []string{"Role is required"}) {
		t.Fatalf("unexpected errors: %v", got)
	}
}

func TestValidateIdempotent(t *testing.T) {
	answers := Answers{"role": "Engineer", "stack": []any{"Rust", "Go"}}
	f1, err1 := Validate(testForm(), answers)
	f2, err2 := Validate(testForm(), answers)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if !reflect.DeepEqual(f1, f2) {
		t.Fatalf("results differ: %v vs %v", f1, f2)
	}
}
