package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/oauth2"

	"github.com/parisxmas/OxiDB/OxiForms/internal/airtable"
	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/models"
)

const StateTTL = 10 * time.Minute

// LoginError is a failed OAuth callback. Code is the value passed back to
// the frontend login page.
type LoginError struct {
	Code string
	Err  error
}

func (e *LoginError) Error() string {
	if e.Err == nil {
		return "login failed: " + e.Code
	}
	return fmt.Sprintf("login failed: %s: %v", e.Code, e.Err)
}

func (e *LoginError) Unwrap() error { return e.Err }

func loginError(code string, err error) error {
	return &LoginError{Code: code, Err: err}
}

type AuthService struct {
	users      UserStore
	oauth      OAuthProvider
	tokens     *TokenKeeper
	sealer     *auth.Sealer
	jwtSecret  string
	sessionTTL time.Duration
}

func NewAuthService(users UserStore, oauth OAuthProvider, tokens *TokenKeeper, sealer *auth.Sealer, jwtSecret string, sessionTTL time.Duration) *AuthService {
	return &AuthService{
		users:      users,
		oauth:      oauth,
		tokens:     tokens,
		sealer:     sealer,
		jwtSecret:  jwtSecret,
		sessionTTL: sessionTTL,
	}
}

func (s *AuthService) SessionTTL() time.Duration { return s.sessionTTL }

type LoginStart struct {
	RedirectURL string
	StateToken  string
}

// BeginLogin creates the OAuth state and PKCE verifier and returns the
// Airtable consent URL together with the signed state to keep in a cookie.
func (s *AuthService) BeginLogin() (*LoginStart, error) {
	state := uuid.NewString()
	verifier := s.oauth.NewVerifier()
	redirect, err := s.oauth.AuthCodeURL(state, verifier)
	if err != nil {
		return nil, err
	}
	sealed, err := s.sealer.Seal(verifier)
	if err != nil {
		return nil, err
	}
	stateToken, err := auth.GenerateStateToken(s.jwtSecret, state, sealed, StateTTL)
	if err != nil {
		return nil, err
	}
	return &LoginStart{RedirectURL: redirect, StateToken: stateToken}, nil
}

type AuthResult struct {
	Token string              `json:"token"`
	User  models.UserResponse `json:"user"`
}

// CompleteLogin finishes the OAuth callback: it checks state, exchanges the
// code, upserts the Airtable user and issues a session token. Failures are
// *LoginError.
func (s *AuthService) CompleteLogin(ctx context.Context, stateToken, state, code string) (*AuthResult, error) {
	if code == "" {
		return nil, loginError("no_code", nil)
	}
	if stateToken == "" {
		return nil, loginError("session_expired", nil)
	}
	claims, err := auth.ValidateStateToken(s.jwtSecret, stateToken)
	if err != nil {
		return nil, loginError("session_expired", err)
	}
	if subtle.ConstantTimeCompare([]byte(claims.State), []byte(state)) != 1 {
		return nil, loginError("invalid_state", nil)
	}
	verifier, err := s.sealer.Open(claims.Verifier)
	if err != nil {
		return nil, loginError("session_expired", err)
	}

	tok, err := s.oauth.Exchange(ctx, code, verifier)
	if errors.Is(err, airtable.ErrOAuthNotConfigured) {
		return nil, loginError("config_missing", err)
	}
	if err != nil {
		return nil, loginError("token_exchange_failed", err)
	}
	if tok.AccessToken == "" {
		return nil, loginError("no_access_token", nil)
	}

	var me *airtable.WhoAmI
	client := s.tokens.newClient(oauth2.StaticTokenSource(tok))
	if me, err = client.WhoAmI(ctx); err != nil {
		return nil, loginError("user_fetch_failed", err)
	}

	user, err := s.upsertUser(ctx, me, tok)
	if err != nil {
		return nil, loginError("server_error", err)
	}
	session, err := auth.GenerateToken(s.jwtSecret, user.ID, user.AirtableUserID, s.sessionTTL)
	if err != nil {
		return nil, loginError("server_error", err)
	}
	slog.Info("user signed in", slog.String("userId", user.ID), slog.String("airtableUserId", user.AirtableUserID))
	return &AuthResult{Token: session, User: user.ToResponse()}, nil
}

func (s *AuthService) upsertUser(ctx context.Context, me *airtable.WhoAmI, tok *oauth2.Token) (*models.User, error) {
	user, err := s.users.FindByAirtableID(ctx, me.ID)
	if err != nil {
		return nil, err
	}
	ts := timestamp()
	if user == nil {
		user = &models.User{
			AirtableUserID: me.ID,
			Email:          me.Email,
			CreatedAt:      ts,
		}
	}
	if me.Email != "" {
		user.Email = me.Email
	}
	user.LoginAt = ts
	if err := s.tokens.Seal(user, tok); err != nil {
		return nil, err
	}

	if user.ID == "" {
		id, err := s.users.Create(ctx, user)
		if err != nil {
			return nil, err
		}
		user.ID = id
		return user, nil
	}
	if err := s.users.Update(ctx, user.ID, user); err != nil {
		return nil, err
	}
	return user, nil
}

func (s *AuthService) Me(ctx context.Context, userID string) (*models.UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	resp := user.ToResponse()
	return &resp, nil
}
