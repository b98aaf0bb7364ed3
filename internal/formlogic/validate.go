package formlogic

import (
	"fmt"
	"slices"
	"strings"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

// Kind classifies a submission validation failure.
type Kind string

const (
	MissingAnswer          Kind = "missingAnswer"
	InvalidOption          Kind = "invalidOption"
	InvalidOptionsList     Kind = "invalidOptionsList"
	InvalidAttachmentShape Kind = "invalidAttachmentShape"
)

// FieldError is one failed check on one question.
type FieldError struct {
	Kind        Kind   `json:"kind"`
	QuestionKey string `json:"questionKey"`
	Message     string `json:"message"`
}

func (e FieldError) Error() string {
	return e.Message
}

// Errors holds every failure found in a single validation pass, in question order.
type Errors []FieldError

func (e Errors) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// Messages returns the human-readable messages, in order.
func (e Errors) Messages() []string {
	msgs := make([]string, len(e))
	for i, fe := range e {
		msgs[i] = fe.Message
	}
	return msgs
}

// Fields is a validated payload keyed by Airtable field id.
type Fields map[string]any

// Validate checks answers against the questions of form that are visible for
// those answers. Hidden questions are ignored entirely. On success it returns
// the answers keyed by Airtable field id; otherwise it returns nil and an
// Errors value listing every failure.
func Validate(form *models.Form, answers Answers) (Fields, error) {
	fields := Fields{}
	var errs Errors

	for _, q := range form.Questions {
		if !ShouldShow(q.ConditionalRules, answers) {
			continue
		}

		answer := answers[q.QuestionKey]
		if !present(answer) {
			if q.Required {
				errs = append(errs, newFieldError(MissingAnswer, q, "%s is required"))
			}
			continue
		}

		if fe := checkShape(q, answer); fe != nil {
			errs = append(errs, *fe)
			continue
		}
		fields[q.AirtableFieldID] = answer
	}

	if len(errs) > 0 {
		return nil, errs
	}
	return fields, nil
}

func checkShape(q models.Question, answer any) *FieldError {
	switch q.Type {
	case models.SingleSelect:
		s, ok := answer.(string)
		if !ok || !slices.Contains(q.Options, s) {
			fe := newFieldError(InvalidOption, q, "%s has invalid option")
			return &fe
		}
	case models.MultipleSelects:
		list, ok := asList(answer)
		if !ok {
			fe := newFieldError(InvalidOptionsList, q, "%s must be an array")
			return &fe
		}
		for _, el := range list {
			s, ok := el.(string)
			if !ok || !slices.Contains(q.Options, s) {
				fe := newFieldError(InvalidOptionsList, q, "%s has invalid options")
				return &fe
			}
		}
	case models.MultipleAttachments:
		if _, ok := asList(answer); !ok {
			fe := newFieldError(InvalidAttachmentShape, q, "%s must be an array of attachments")
			return &fe
		}
	}
	return nil
}

// present is false for absent, null and empty-string answers.
func present(answer any) bool {
	if isNil(answer) {
		return false
	}
	if s, ok := answer.(string); ok && s == "" {
		return false
	}
	return true
}

func newFieldError(kind Kind, q models.Question, format string) FieldError {
	return FieldError{
		Kind:        kind,
		QuestionKey: q.QuestionKey,
		Message:     fmt.Sprintf(format, q.Label),
	}
}
