package airtable

import (
	"context"
	"errors"

	"golang.org/x/oauth2"
)

const (
	DefaultAuthURL  = "https://airtable.com/oauth2/v1/authorize"
	DefaultTokenURL = "https://airtable.com/oauth2/v1/token"
	DefaultScopes   = "data.records:read data.records:write schema.bases:read"
)

var ErrOAuthNotConfigured = errors.New("airtable: oauth client id or redirect uri missing")

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	Scopes       []string
	AuthURL      string
	TokenURL     string
}

// OAuth runs the authorization code flow with PKCE against Airtable.
type OAuth struct {
	cfg *oauth2.Config
}

func NewOAuth(c OAuthConfig) *OAuth {
	if c.AuthURL == "" {
		c.AuthURL = DefaultAuthURL
	}
	if c.TokenURL == "" {
		c.TokenURL = DefaultTokenURL
	}
	return &OAuth{cfg: &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURI,
		Scopes:       c.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   c.AuthURL,
			TokenURL:  c.TokenURL,
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}}
}

func (o *OAuth) Configured() bool {
	return o.cfg.ClientID != "" && o.cfg.RedirectURL != ""
}

// NewVerifier returns a fresh PKCE code verifier.
func (o *OAuth) NewVerifier() string {
	return oauth2.GenerateVerifier()
}

// AuthCodeURL is the Airtable consent page for state, carrying the S256
// challenge of verifier.
func (o *OAuth) AuthCodeURL(state, verifier string) (string, error) {
	if !o.Configured() {
		return "", ErrOAuthNotConfigured
	}
	return o.cfg.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)), nil
}

func (o *OAuth) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	if !o.Configured() || o.cfg.ClientSecret == "" {
		return nil, ErrOAuthNotConfigured
	}
	return o.cfg.Exchange(ctx, code, oauth2.VerifierOption(verifier))
}

// TokenSource returns tok until it expires, then refreshes it.
func (o *OAuth) TokenSource(ctx context.Context, tok *oauth2.Token) oauth2.TokenSource {
	return o.cfg.TokenSource(ctx, tok)
}
