package service

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"golang.org/x/oauth2"

	"github.com/parisxmas/OxiDB/OxiForms/internal/airtable"
	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

const testSecret = "service-test-secret"

type memStore[T any] struct {
	mu   sync.Mutex
	next int
	docs map[string]T
}

func (m *memStore[T]) put(id string, v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.docs == nil {
		m.docs = map[string]T{}
	}
	m.docs[id] = v
}

func (m *memStore[T]) newID() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return strconv.Itoa(m.next)
}

func (m *memStore[T]) get(id string) (T, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.docs[id]
	return v, ok
}

func (m *memStore[T]) all() []T {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.docs))
	for k := range m.docs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		out = append(out, m.docs[k])
	}
	return out
}

type memForms struct{ memStore[models.Form] }

func (m *memForms) Create(_ context.Context, f *models.Form) (string, error) {
	id := m.newID()
	cp := *f
	cp.ID = id
	m.put(id, cp)
	return id, nil
}

func (m *memForms) FindByID(_ context.Context, id string) (*models.Form, error) {
	f, ok := m.get(id)
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (m *memForms) FindByOwner(_ context.Context, owner string) ([]models.Form, error) {
	var out []models.Form
	for _, f := range m.all() {
		if f.Owner == owner {
			out = append(out, f)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memForms) Update(_ context.Context, id string, f *models.Form) error {
	cp := *f
	cp.ID = id
	m.put(id, cp)
	return nil
}

func (m *memForms) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.docs, id)
	return nil
}

type memResponses struct{ memStore[models.Response] }

func (m *memResponses) Create(_ context.Context, r *models.Response) (string, error) {
	for _, existing := range m.all() {
		if existing.AirtableRecordID == r.AirtableRecordID {
			return "", errors.New("duplicate airtableRecordId")
		}
	}
	id := m.newID()
	cp := *r
	cp.ID = id
	m.put(id, cp)
	return id, nil
}

func (m *memResponses) FindByID(_ context.Context, id string) (*models.Response, error) {
	r, ok := m.get(id)
	if !ok {
		return nil, nil
	}
	return &r, nil
}

func (m *memResponses) FindByFormID(_ context.Context, formID string) ([]models.Response, error) {
	var out []models.Response
	for _, r := range m.all() {
		if r.FormID == formID {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt > out[j].CreatedAt })
	return out, nil
}

func (m *memResponses) FindByRecordID(_ context.Context, recordID string) (*models.Response, error) {
	for _, r := range m.all() {
		if r.AirtableRecordID == recordID {
			return &r, nil
		}
	}
	return nil, nil
}

func (m *memResponses) Update(_ context.Context, id string, r *models.Response) error {
	cp := *r
	cp.ID = id
	m.put(id, cp)
	return nil
}

type memUsers struct{ memStore[models.User] }

func (m *memUsers) Create(_ context.Context, u *models.User) (string, error) {
	id := m.newID()
	cp := *u
	cp.ID = id
	m.put(id, cp)
	return id, nil
}

func (m *memUsers) FindByID(_ context.Context, id string) (*models.User, error) {
	u, ok := m.get(id)
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (m *memUsers) FindByAirtableID(_ context.Context, airtableUserID string) (*models.User, error) {
	for _, u := range m.all() {
		if u.AirtableUserID == airtableUserID {
			return &u, nil
		}
	}
	return nil, nil
}

func (m *memUsers) Update(_ context.Context, id string, u *models.User) error {
	cp := *u
	cp.ID = id
	m.put(id, cp)
	return nil
}

type fakeAirtable struct {
	mu         sync.Mutex
	tokens     []string
	me         *airtable.WhoAmI
	whoErr     error
	bases      []airtable.Base
	created    []map[string]any
	createErr  error
	nextRecord int
}

func (f *fakeAirtable) factory(ts oauth2.TokenSource) Airtable {
	f.mu.Lock()
	defer f.mu.Unlock()
	if tok, err := ts.Token(); err == nil {
		f.tokens = append(f.tokens, tok.AccessToken)
	}
	return f
}

func (f *fakeAirtable) WhoAmI(context.Context) (*airtable.WhoAmI, error) {
	return f.me, f.whoErr
}

func (f *fakeAirtable) ListBases(context.Context) ([]airtable.Base, error) {
	return f.bases, nil
}

func (f *fakeAirtable) ListTables(context.Context, string) ([]airtable.Table, error) {
	return []airtable.Table{}, nil
}

func (f *fakeAirtable) TableFields(context.Context, string, string) ([]airtable.FormField, error) {
	return []airtable.FormField{}, nil
}

func (f *fakeAirtable) CreateRecord(_ context.Context, _, _ string, fields map[string]any) (*airtable.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return nil, f.createErr
	}
	f.created = append(f.created, fields)
	f.nextRecord++
	return &airtable.Record{ID: "rec" + strconv.Itoa(f.nextRecord), Fields: fields}, nil
}

type fakeOAuth struct {
	token        *oauth2.Token
	exchangeErr  error
	refreshed    *oauth2.Token
	gotCode      string
	gotVerifier  string
	notConfigure bool
}

func (f *fakeOAuth) Configured() bool    { return !f.notConfigure }
func (f *fakeOAuth) NewVerifier() string { return "verifier-123" }

func (f *fakeOAuth) AuthCodeURL(state, verifier string) (string, error) {
	if f.notConfigure {
		return "", airtable.ErrOAuthNotConfigured
	}
	return "https://airtable.example/authorize?state=" + state, nil
}

func (f *fakeOAuth) Exchange(_ context.Context, code, verifier string) (*oauth2.Token, error) {
	f.gotCode, f.gotVerifier = code, verifier
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return f.token, nil
}

func (f *fakeOAuth) TokenSource(_ context.Context, tok *oauth2.Token) oauth2.TokenSource {
	if f.refreshed != nil {
		return oauth2.StaticTokenSource(f.refreshed)
	}
	return oauth2.StaticTokenSource(tok)
}

type fixture struct {
	forms     *memForms
	responses *memResponses
	users     *memUsers
	at        *fakeAirtable
	oauth     *fakeOAuth
	sealer    *auth.Sealer
	tokens    *TokenKeeper
}

func newFixture() *fixture {
	f := &fixture{
		forms:     &memForms{},
		responses: &memResponses{},
		users:     &memUsers{},
		at:        &fakeAirtable{me: &airtable.WhoAmI{ID: "usrA", Email: "a@example.com"}},
		oauth:     &fakeOAuth{token: &oauth2.Token{AccessToken: "at-1", RefreshToken: "rt-1"}},
	}
	sealer, err := auth.NewSealer(testSecret)
	if err != nil {
		panic(err)
	}
	f.sealer = sealer
	f.tokens = NewTokenKeeper(f.users, f.oauth, sealer, f.at.factory)
	return f
}

// addUser stores a user holding sealed copies of access.
func (f *fixture) addUser(airtableID, access string) *models.User {
	u := &models.User{AirtableUserID: airtableID}
	if err := f.tokens.Seal(u, &oauth2.Token{AccessToken: access, RefreshToken: "rt"}); err != nil {
		panic(err)
	}
	id, _ := f.users.Create(context.Background(), u)
	u.ID = id
	return u
}
