package service

import (
	"context"
	"encoding/json"
	"fmt"
	"reflect"
	"sort"

	"github.com/parisxmas/OxiDB/OxiForms/internal/airtable"
	"github.com/parisxmas/OxiDB/OxiForms/internal/formlogic"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

const (
	previewAnswers = 3
	previewRunes   = 50
)

type ResponseService struct {
	forms     *FormService
	responses ResponseStore
	users     UserStore
	tokens    *TokenKeeper
}

func NewResponseService(forms *FormService, responses ResponseStore, users UserStore, tokens *TokenKeeper) *ResponseService {
	return &ResponseService{forms: forms, responses: responses, users: users, tokens: tokens}
}

type SubmitResult struct {
	Response       *models.Response `json:"response"`
	AirtableRecord *airtable.Record `json:"airtableRecord"`
}

// Submit validates answers against the form, writes the record to the
// owner's Airtable table and stores the response. Validation failures are
// returned as formlogic.Errors.
func (s *ResponseService) Submit(ctx context.Context, formID string, answers formlogic.Answers) (*SubmitResult, error) {
	form, err := s.forms.Get(ctx, formID)
	if err != nil {
		return nil, err
	}
	fields, err := formlogic.Validate(form, answers)
	if err != nil {
		return nil, err
	}

	owner, err := s.users.FindByID(ctx, form.Owner)
	if err != nil {
		return nil, err
	}
	if owner == nil {
		return nil, fmt.Errorf("form owner: %w", ErrUserNotFound)
	}

	var record *airtable.Record
	err = s.tokens.With(ctx, owner, func(c Airtable) error {
		var err error
		record, err = c.CreateRecord(ctx, form.AirtableBaseID, form.AirtableTableID, fields)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("create airtable record: %w", err)
	}

	if answers == nil {
		answers = formlogic.Answers{}
	}
	ts := timestamp()
	resp := &models.Response{
		FormID:           form.ID,
		AirtableRecordID: record.ID,
		Answers:          answers,
		Status:           models.StatusActive,
		CreatedAt:        ts,
		UpdatedAt:        ts,
	}
	id, err := s.responses.Create(ctx, resp)
	if err != nil {
		return nil, fmt.Errorf("store response: %w", err)
	}
	resp.ID = id
	return &SubmitResult{Response: resp, AirtableRecord: record}, nil
}

// List returns the form's responses, newest first, as previews.
func (s *ResponseService) List(ctx context.Context, owner, formID string) ([]models.ResponseSummary, error) {
	form, err := s.forms.Owned(ctx, owner, formID)
	if err != nil {
		return nil, err
	}
	responses, err := s.responses.FindByFormID(ctx, form.ID)
	if err != nil {
		return nil, err
	}
	out := make([]models.ResponseSummary, len(responses))
	for i, r := range responses {
		out[i] = models.ResponseSummary{
			ID:               r.ID,
			AirtableRecordID: r.AirtableRecordID,
			Status:           r.Status,
			CreatedAt:        r.CreatedAt,
			UpdatedAt:        r.UpdatedAt,
			AnswersPreview:   preview(form, r.Answers),
		}
	}
	return out, nil
}

func (s *ResponseService) Get(ctx context.Context, owner, formID, responseID string) (*models.Response, error) {
	form, err := s.forms.Owned(ctx, owner, formID)
	if err != nil {
		return nil, err
	}
	resp, err := s.responses.FindByID(ctx, responseID)
	if err != nil {
		return nil, err
	}
	if resp == nil || resp.FormID != form.ID {
		return nil, ErrResponseNotFound
	}
	return resp, nil
}

// preview shows up to three answers: question order first, then any other
// keys alphabetically.
func preview(form *models.Form, answers map[string]any) map[string]string {
	out := map[string]string{}
	var keys []string
	seen := map[string]bool{}
	for _, q := range form.Questions {
		if _, ok := answers[q.QuestionKey]; ok {
			keys = append(keys, q.QuestionKey)
			seen[q.QuestionKey] = true
		}
	}
	var rest []string
	for k := range answers {
		if !seen[k] {
			rest = append(rest, k)
		}
	}
	sort.Strings(rest)
	keys = append(keys, rest...)

	for _, k := range keys {
		if len(out) == previewAnswers {
			break
		}
		out[k] = previewValue(answers[k])
	}
	return out
}

func previewValue(v any) string {
	if v != nil {
		rv := reflect.ValueOf(v)
		if (rv.Kind() == reflect.Slice || rv.Kind() == reflect.Array) && rv.Type().Elem().Kind() != reflect.Uint8 {
			return fmt.Sprintf("%d items", rv.Len())
		}
	}
	var s string
	switch x := v.(type) {
	case string:
		s = x
	case nil:
		s = "null"
	case bool, float64, float32, int, int32, int64:
		s = fmt.Sprint(x)
	default:
		data, err := json.Marshal(x)
		if err != nil {
			s = fmt.Sprint(x)
		} else {
			s = string(data)
		}
	}
	r := []rune(s)
	if len(r) > previewRunes {
		return string(r[:previewRunes])
	}
	return s
}

type FormStats struct {
	ID            string `json:"id"`
	Title         string `json:"title"`
	QuestionCount int    `json:"questionCount"`
	ResponseCount int    `json:"responseCount"`
	DeletedCount  int    `json:"deletedInAirtableCount"`
	CreatedAt     string `json:"createdAt"`
}

type Dashboard struct {
	FormCount     int         `json:"formCount"`
	ResponseCount int         `json:"responseCount"`
	Forms         []FormStats `json:"forms"`
}

// Dashboard counts the owner's forms and their responses.
func (s *ResponseService) Dashboard(ctx context.Context, owner string) (*Dashboard, error) {
	forms, err := s.forms.forms.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	d := &Dashboard{FormCount: len(forms), Forms: make([]FormStats, 0, len(forms))}
	for _, f := range forms {
		responses, err := s.responses.FindByFormID(ctx, f.ID)
		if err != nil {
			return nil, err
		}
		st := FormStats{
			ID:            f.ID,
			Title:         f.Title,
			QuestionCount: len(f.Questions),
			ResponseCount: len(responses),
			CreatedAt:     f.CreatedAt,
		}
		for _, r := range responses {
			if r.Status == models.StatusDeletedInAirtable {
				st.DeletedCount++
			}
		}
		d.ResponseCount += st.ResponseCount
		d.Forms = append(d.Forms, st)
	}
	return d, nil
}
