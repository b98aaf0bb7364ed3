package service

import (
	"context"
	"fmt"

	"github.com/parisxmas/OxiDB/OxiForms/internal/airtable"
	"github.com/parisxmas/OxiDB/OxiForms/internal/formlogic"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

type FormService struct {
	forms  FormStore
	tokens *TokenKeeper
}

func NewFormService(forms FormStore, tokens *TokenKeeper) *FormService {
	return &FormService{forms: forms, tokens: tokens}
}

type FormInput struct {
	Title           string            `json:"title"`
	AirtableBaseID  string            `json:"airtableBaseId"`
	AirtableTableID string            `json:"airtableTableId"`
	Questions       []models.Question `json:"questions"`
}

// FormUpdate changes the title and/or questions. Nil fields are kept.
type FormUpdate struct {
	Title     *string           `json:"title"`
	Questions []models.Question `json:"questions"`
}

func (s *FormService) Bases(ctx context.Context, userID string) ([]airtable.Base, error) {
	var bases []airtable.Base
	err := s.tokens.ForUser(ctx, userID, func(c Airtable) error {
		var err error
		bases, err = c.ListBases(ctx)
		return err
	})
	return bases, err
}

func (s *FormService) Tables(ctx context.Context, userID, baseID string) ([]airtable.Table, error) {
	var tables []airtable.Table
	err := s.tokens.ForUser(ctx, userID, func(c Airtable) error {
		var err error
		tables, err = c.ListTables(ctx, baseID)
		return err
	})
	return tables, err
}

func (s *FormService) Fields(ctx context.Context, userID, baseID, tableID string) ([]airtable.FormField, error) {
	var fields []airtable.FormField
	err := s.tokens.ForUser(ctx, userID, func(c Airtable) error {
		var err error
		fields, err = c.TableFields(ctx, baseID, tableID)
		return err
	})
	return fields, err
}

func (s *FormService) Create(ctx context.Context, owner string, in FormInput) (*models.Form, error) {
	ts := timestamp()
	form := &models.Form{
		Owner:           owner,
		Title:           in.Title,
		AirtableBaseID:  in.AirtableBaseID,
		AirtableTableID: in.AirtableTableID,
		Questions:       in.Questions,
		CreatedAt:       ts,
		UpdatedAt:       ts,
	}
	if err := formlogic.CheckForm(form); err != nil {
		return nil, err
	}
	id, err := s.forms.Create(ctx, form)
	if err != nil {
		return nil, fmt.Errorf("create form: %w", err)
	}
	form.ID = id
	return form, nil
}

// List returns the owner's forms without their questions, newest first.
func (s *FormService) List(ctx context.Context, owner string) ([]models.Form, error) {
	forms, err := s.forms.FindByOwner(ctx, owner)
	if err != nil {
		return nil, err
	}
	out := make([]models.Form, len(forms))
	for i := range forms {
		out[i] = forms[i].Summary()
	}
	return out, nil
}

// Get loads any form by id. Forms are public for viewing and submitting.
func (s *FormService) Get(ctx context.Context, id string) (*models.Form, error) {
	form, err := s.forms.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if form == nil {
		return nil, ErrFormNotFound
	}
	return form, nil
}

// Owned loads a form and checks that owner may manage it.
func (s *FormService) Owned(ctx context.Context, owner, id string) (*models.Form, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if form.Owner != owner {
		return nil, ErrForbidden
	}
	return form, nil
}

func (s *FormService) Update(ctx context.Context, owner, id string, in FormUpdate) (*models.Form, error) {
	form, err := s.Owned(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if in.Title != nil && *in.Title != "" {
		form.Title = *in.Title
	}
	if in.Questions != nil {
		form.Questions = in.Questions
	}
	if err := formlogic.CheckForm(form); err != nil {
		return nil, err
	}
	form.UpdatedAt = timestamp()
	if err := s.forms.Update(ctx, id, form); err != nil {
		return nil, fmt.Errorf("update form: %w", err)
	}
	return form, nil
}

func (s *FormService) Delete(ctx context.Context, owner, id string) error {
	if _, err := s.Owned(ctx, owner, id); err != nil {
		return err
	}
	return s.forms.Delete(ctx, id)
}

// Visibility returns the keys of the questions shown for answers.
func (s *FormService) Visibility(ctx context.Context, id string, answers formlogic.Answers) ([]string, error) {
	form, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	return formlogic.VisibleQuestions(form, answers), nil
}
