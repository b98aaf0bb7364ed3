package service

import (
	"context"
	"errors"
	"time"

	"golang.org/x/oauth2"

	"github.com/parisxmas/OxiDB/OxiForms/internal/airtable"
	"github.com/parisxmas/OxiDB/OxiForms/internal/formlogic"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

var (
	ErrFormNotFound     = errors.New("form not found")
	ErrResponseNotFound = errors.New("response not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrForbidden        = errors.New("not authorized")
	ErrInvalidForm      = formlogic.ErrInvalidForm
)

// Stores return nil, nil from lookups that match nothing.

type FormStore interface {
	Create(ctx context.Context, form *models.Form) (string, error)
	FindByID(ctx context.Context, id string) (*models.Form, error)
	FindByOwner(ctx context.Context, owner string) ([]models.Form, error)
	Update(ctx context.Context, id string, form *models.Form) error
	Delete(ctx context.Context, id string) error
}

type ResponseStore interface {
	Create(ctx context.Context, resp *models.Response) (string, error)
	FindByID(ctx context.Context, id string) (*models.Response, error)
	FindByFormID(ctx context.Context, formID string) ([]models.Response, error)
	FindByRecordID(ctx context.Context, recordID string) (*models.Response, error)
	Update(ctx context.Context, id string, resp *models.Response) error
}

type UserStore interface {
	Create(ctx context.Context, user *models.User) (string, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByAirtableID(ctx context.Context, airtableUserID string) (*models.User, error)
	Update(ctx context.Context, id string, user *models.User) error
}

// Airtable is the part of the Airtable API the services call.
type Airtable interface {
	WhoAmI(ctx context.Context) (*airtable.WhoAmI, error)
	ListBases(ctx context.Context) ([]airtable.Base, error)
	ListTables(ctx context.Context, baseID string) ([]airtable.Table, error)
	TableFields(ctx context.Context, baseID, tableID string) ([]airtable.FormField, error)
	CreateRecord(ctx context.Context, baseID, tableID string, fields map[string]any) (*airtable.Record, error)
}

// AirtableFactory opens an Airtable client authorized by ts.
type AirtableFactory func(ts oauth2.TokenSource) Airtable

type OAuthProvider interface {
	Configured() bool
	NewVerifier() string
	AuthCodeURL(state, verifier string) (string, error)
	Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error)
	TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource
}

// Timestamps are UTC with fixed millisecond precision so that they sort
// lexicographically.
const timeLayout = "2006-01-02T15:04:05.000Z"

var now = func() time.Time { return time.Now().UTC() }

func timestamp() string {
	return now().Format(timeLayout)
}
