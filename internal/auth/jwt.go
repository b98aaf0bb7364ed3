package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	sessionAudience = "oxiforms-session"
	stateAudience   = "oxiforms-oauth-state"
)

// Claims identify the signed-in user of a session token.
type Claims struct {
	UserID         string `json:"userId"`
	AirtableUserID string `json:"airtableUserId"`
	jwt.RegisteredClaims
}

// StateClaims carry the OAuth state and PKCE verifier between the redirect
// to Airtable and its callback. Verifier is sealed ciphertext.
type StateClaims struct {
	State    string `json:"state"`
	Verifier string `json:"verifier"`
	jwt.RegisteredClaims
}

func GenerateToken(secret, userID, airtableUserID string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID:         userID,
		AirtableUserID: airtableUserID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			Audience:  jwt.ClaimStrings{sessionAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	}
	return sign(secret, claims)
}

func ValidateToken(secret, tokenStr string) (*Claims, error) {
	claims := &Claims{}
	if err := parse(secret, tokenStr, sessionAudience, claims); err != nil {
		return nil, err
	}
	if claims.UserID == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func GenerateStateToken(secret, state, sealedVerifier string, ttl time.Duration) (string, error) {
	now := time.Now()
	return sign(secret, StateClaims{
		State:    state,
		Verifier: sealedVerifier,
		RegisteredClaims: jwt.RegisteredClaims{
			Audience:  jwt.ClaimStrings{stateAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
}

func ValidateStateToken(secret, tokenStr string) (*StateClaims, error) {
	claims := &StateClaims{}
	if err := parse(secret, tokenStr, stateAudience, claims); err != nil {
		return nil, err
	}
	if claims.State == "" || claims.Verifier == "" {
		return nil, jwt.ErrTokenInvalidClaims
	}
	return claims, nil
}

func sign(secret string, claims jwt.Claims) (string, error) {
	if secret == "" {
		return "", errors.New("auth: empty signing secret")
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

func parse(secret, tokenStr, audience string, claims jwt.Claims) error {
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(audience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return err
	}
	if !token.Valid {
		return jwt.ErrSignatureInvalid
	}
	return nil
}
