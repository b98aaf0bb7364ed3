package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/parisxmas/OxiDB/OxiForms/internal/formlogic"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

func setupResponses(t *testing.T) (*fixture, *ResponseService, *models.Form, *models.User) {
	t.Helper()
	f := newFixture()
	owner := f.addUser("usrOwner", "owner-token")
	forms := NewFormService(f.forms, f.tokens)
	form, err := forms.Create(context.Background(), owner.ID, testInput())
	require.NoError(t, err)
	return f, NewResponseService(forms, f.responses, f.users, f.tokens), form, owner
}

func TestSubmitValidationErrors(t *testing.T) {
	f, svc, form, _ := setupResponses(t)

	_, err := svc.Submit(context.Background(), form.ID, formlogic.Answers{"role": "Engineer", "tags": "a"})
	var verrs formlogic.Errors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, []string{"GitHub is required", "Tags must be an array"}, verrs.Messages())
	assert.Empty(t, f.at.created)
	assert.Empty(t, f.responses.all())
}

func TestSubmitWritesAirtableAndStoresRawAnswers(t *testing.T) {
	f, svc, form, _ := setupResponses(t)
	answers := formlogic.Answers{"role": "Manager", "github": "ignored-hidden", "tags": []any{"a"}}

	res, err := svc.Submit(context.Background(), form.ID, answers)
	require.NoError(t, err)

	require.Len(t, f.at.created, 1)
	assert.Equal(t, map[string]any{"fldRole": "Manager", "fldTags": []any{"a"}}, f.at.created[0])
	assert.Equal(t, []string{"owner-token"}, f.at.tokens)

	assert.Equal(t, "rec1", res.AirtableRecord.ID)
	assert.Equal(t, "rec1", res.Response.AirtableRecordID)
	assert.Equal(t, models.StatusActive, res.Response.Status)
	assert.Equal(t, "ignored-hidden", res.Response.Answers["github"])
	assert.Len(t, f.responses.all(), 1)
}

func TestSubmitPersistsRefreshedToken(t *testing.T) {
	f, svc, form, owner := setupResponses(t)
	f.oauth.refreshed = &oauth2.Token{AccessToken: "fresh", RefreshToken: "rt-2", Expiry: time.Now().Add(time.Hour)}

	_, err := svc.Submit(context.Background(), form.ID, formlogic.Answers{"role": "Manager"})
	require.NoError(t, err)

	stored, _ := f.users.FindByID(context.Background(), owner.ID)
	access, err := f.sealer.Open(stored.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "fresh", access)
	assert.NotEmpty(t, stored.TokenExpiresAt)
}

func TestSubmitErrors(t *testing.T) {
	f, svc, form, _ := setupResponses(t)

	_, err := svc.Submit(context.Background(), "missing", nil)
	assert.ErrorIs(t, err, ErrFormNotFound)

	f.at.createErr = errors.New("airtable down")
	_, err = svc.Submit(context.Background(), form.ID, formlogic.Answers{"role": "Manager"})
	assert.Error(t, err)
	assert.Empty(t, f.responses.all())
}

func TestListAndGet(t *testing.T) {
	ctx := context.Background()
	f, svc, form, owner := setupResponses(t)

	clock := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	now = func() time.Time { clock = clock.Add(time.Second); return clock }
	t.Cleanup(func() { now = func() time.Time { return time.Now().UTC() } })

	first, err := svc.Submit(ctx, form.ID, formlogic.Answers{
		"bio":  strings.Repeat("é", 60),
		"role": "Engineer", "github": "ada", "tags": []any{"a", "b"},
	})
	require.NoError(t, err)
	second, err := svc.Submit(ctx, form.ID, formlogic.Answers{"role": "Manager"})
	require.NoError(t, err)

	list, err := svc.List(ctx, owner.ID, form.ID)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.Response.ID, list[0].ID)
	assert.Equal(t, map[string]string{"role": "Engineer", "github": "ada", "tags": "2 items"}, list[1].AnswersPreview)

	_, err = svc.List(ctx, "intruder", form.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	got, err := svc.Get(ctx, owner.ID, form.ID, first.Response.ID)
	require.NoError(t, err)
	assert.Equal(t, first.Response.AirtableRecordID, got.AirtableRecordID)

	other, err := NewFormService(f.forms, f.tokens).Create(ctx, owner.ID, testInput())
	require.NoError(t, err)
	_, err = svc.Get(ctx, owner.ID, other.ID, first.Response.ID)
	assert.ErrorIs(t, err, ErrResponseNotFound)
}

func TestPreviewValue(t *testing.T) {
	assert.Equal(t, "3 items", previewValue([]string{"a", "b", "c"}))
	assert.Equal(t, "0 items", previewValue([]any{}))
	assert.Equal(t, "42", previewValue(float64(42)))
	assert.Equal(t, "true", previewValue(true))
	assert.Equal(t, `{"a":1}`, previewValue(map[string]any{"a": 1}))
	long := strings.Repeat("ж", 51)
	assert.Equal(t, []rune(long)[:50], []rune(previewValue(long)))
}

func TestPreviewFallsBackToOtherKeys(t *testing.T) {
	form := &models.Form{Questions: []models.Question{{QuestionKey: "q1"}}}
	got := preview(form, map[string]any{"z": "1", "q1": "x", "b": "2", "a": "3"})
	assert.Equal(t, map[string]string{"q1": "x", "a": "3", "b": "2"}, got)
}

func TestDashboard(t *testing.T) {
	ctx := context.Background()
	f, svc, form, owner := setupResponses(t)
	_, err := svc.Submit(ctx, form.ID, formlogic.Answers{"role": "Manager"})
	require.NoError(t, err)
	res, err := svc.Submit(ctx, form.ID, formlogic.Answers{"role": "Manager"})
	require.NoError(t, err)
	_, err = NewWebhookService(f.responses, "", false).Handle(ctx, WebhookEvent{
		EventType: EventRecordDeleted,
		Record:    &WebhookRecord{ID: res.Response.AirtableRecordID},
	})
	require.NoError(t, err)

	d, err := svc.Dashboard(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, d.FormCount)
	assert.Equal(t, 2, d.ResponseCount)
	require.Len(t, d.Forms, 1)
	assert.Equal(t, 4, d.Forms[0].QuestionCount)
	assert.Equal(t, 1, d.Forms[0].DeletedCount)

	empty, err := svc.Dashboard(ctx, "nobody")
	require.NoError(t, err)
	assert.Equal(t, 0, empty.FormCount)
	assert.NotNil(t, empty.Forms)
}
