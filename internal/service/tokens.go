package service

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/oauth2"

	"github.com/parisxmas/OxiDB/OxiForms/internal/airtable"
	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

// TokenKeeper opens Airtable clients with a user's stored tokens and writes
// refreshed tokens back, sealed.
type TokenKeeper struct {
	users     UserStore
	oauth     OAuthProvider
	sealer    *auth.Sealer
	newClient AirtableFactory
}

func NewTokenKeeper(users UserStore, oauth OAuthProvider, sealer *auth.Sealer, newClient AirtableFactory) *TokenKeeper {
	return &TokenKeeper{users: users, oauth: oauth, sealer: sealer, newClient: newClient}
}

// Seal stores tok on user in sealed form.
func (k *TokenKeeper) Seal(user *models.User, tok *oauth2.Token) error {
	access, err := k.sealer.Seal(tok.AccessToken)
	if err != nil {
		return err
	}
	refresh, err := k.sealer.Seal(tok.RefreshToken)
	if err != nil {
		return err
	}
	user.AccessToken = access
	user.RefreshToken = refresh
	user.TokenExpiresAt = ""
	if !tok.Expiry.IsZero() {
		user.TokenExpiresAt = tok.Expiry.UTC().Format(time.RFC3339)
	}
	return nil
}

func (k *TokenKeeper) open(user *models.User) (*oauth2.Token, error) {
	access, err := k.sealer.Open(user.AccessToken)
	if err != nil {
		return nil, fmt.Errorf("open access token: %w", err)
	}
	refresh, err := k.sealer.Open(user.RefreshToken)
	if err != nil {
		return nil, fmt.Errorf("open refresh token: %w", err)
	}
	tok := &oauth2.Token{AccessToken: access, RefreshToken: refresh, TokenType: "Bearer"}
	if user.TokenExpiresAt != "" {
		if exp, err := time.Parse(time.RFC3339, user.TokenExpiresAt); err == nil {
			tok.Expiry = exp
		}
	}
	return tok, nil
}

// With runs fn against an Airtable client for user. A token refreshed
// during fn is persisted afterwards.
func (k *TokenKeeper) With(ctx context.Context, user *models.User, fn func(Airtable) error) error {
	tok, err := k.open(user)
	if err != nil {
		return err
	}
	ts := k.oauth.TokenSource(ctx, tok)
	fnErr := fn(k.newClient(ts))
	if airtable.IsUnauthorized(fnErr) {
		slog.Warn("airtable rejected stored token", slog.String("userId", user.ID), slog.String("error", fnErr.Error()))
	}

	current, err := ts.Token()
	if err != nil || current.AccessToken == tok.AccessToken {
		return fnErr
	}
	if err := k.Seal(user, current); err != nil {
		slog.Error("seal refreshed token", slog.String("userId", user.ID), slog.String("error", err.Error()))
		return fnErr
	}
	if err := k.users.Update(ctx, user.ID, user); err != nil {
		slog.Error("persist refreshed token", slog.String("userId", user.ID), slog.String("error", err.Error()))
	}
	return fnErr
}

// ForUser loads the user by id and runs fn with their Airtable client.
func (k *TokenKeeper) ForUser(ctx context.Context, userID string, fn func(Airtable) error) error {
	user, err := k.users.FindByID(ctx, userID)
	if err != nil {
		return err
	}
	if user == nil {
		return ErrUserNotFound
	}
	return k.With(ctx, user, fn)
}
