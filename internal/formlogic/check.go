package formlogic

import (
	"errors"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

var ErrInvalidForm = errors.New("invalid form")

// VisibleQuestions returns the keys of the questions visible for answers, in form order.
func VisibleQuestions(form *models.Form, answers Answers) []string {
	keys := make([]string, 0, len(form.Questions))
	for _, q := range form.Questions {
		if ShouldShow(q.ConditionalRules, answers) {
			keys = append(keys, q.QuestionKey)
		}
	}
	return keys
}

// CheckForm verifies a form definition before it is stored. Rule sets without
// conditions are normalized to nil in place. Every returned error wraps
// ErrInvalidForm.
func CheckForm(form *models.Form) error {
	if form.Title == "" || form.AirtableBaseID == "" || form.AirtableTableID == "" {
		return fmt.Errorf("%w: title, airtableBaseId and airtableTableId are required", ErrInvalidForm)
	}
	if len(form.Questions) == 0 {
		return fmt.Errorf("%w: at least one question is required", ErrInvalidForm)
	}

	keys := make(map[string]bool, len(form.Questions))
	for _, q := range form.Questions {
		if q.QuestionKey == "" || q.AirtableFieldID == "" || q.Label == "" || q.Type == "" {
			return fmt.Errorf("%w: invalid question structure", ErrInvalidForm)
		}
		if !q.Type.Supported() {
			return fmt.Errorf("%w: unsupported field type: %s", ErrInvalidForm, q.Type)
		}
		if keys[q.QuestionKey] {
			return fmt.Errorf("%w: duplicate question key: %s", ErrInvalidForm, q.QuestionKey)
		}
		keys[q.QuestionKey] = true
	}

	for i := range form.Questions {
		q := &form.Questions[i]
		if q.ConditionalRules == nil {
			continue
		}
		if len(q.ConditionalRules.Conditions) == 0 {
			q.ConditionalRules = nil
			continue
		}
		if err := checkRules(q.QuestionKey, q.ConditionalRules, keys); err != nil {
			return err
		}
	}
	return nil
}

func checkRules(owner string, rules *models.ConditionalRules, keys map[string]bool) error {
	if rules.Logic != models.LogicAnd && rules.Logic != models.LogicOr {
		return fmt.Errorf("%w: question %s: unknown logic %q", ErrInvalidForm, owner, rules.Logic)
	}
	for _, c := range rules.Conditions {
		switch c.Operator {
		case models.OpEquals, models.OpNotEquals, models.OpContains:
		default:
			return fmt.Errorf("%w: question %s: unknown operator %q", ErrInvalidForm, owner, c.Operator)
		}
		if c.QuestionKey == owner {
			return fmt.Errorf("%w: question %s: condition references itself", ErrInvalidForm, owner)
		}
		if !keys[c.QuestionKey] {
			return fmt.Errorf("%w: question %s: condition references unknown question %s", ErrInvalidForm, owner, c.QuestionKey)
		}
		if c.Value == nil {
			return fmt.Errorf("%w: question %s: condition on %s has no value", ErrInvalidForm, owner, c.QuestionKey)
		}
	}
	return nil
}
