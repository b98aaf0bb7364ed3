package handler

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/parisxmas/OxiDB/OxiForms/internal/auth"
	"github.com/parisxmas/OxiDB/OxiForms/internal/service"
)

type AuthHandler struct {
	svc          *service.AuthService
	frontendURL  string
	secureCookie bool
}

func NewAuthHandler(svc *service.AuthService, frontendURL string, secureCookie bool) *AuthHandler {
	return &AuthHandler{svc: svc, frontendURL: frontendURL, secureCookie: secureCookie}
}

// Start redirects the browser to the Airtable consent page.
func (h *AuthHandler) Start(w http.ResponseWriter, r *http.Request) {
	start, err := h.svc.BeginLogin()
	if err != nil {
		slog.Error("oauth start", slog.String("error", err.Error()))
		writeError(w, http.StatusInternalServerError, "OAuth configuration missing")
		return
	}
	auth.SetCookie(w, auth.StateCookie, start.StateToken, service.StateTTL, h.secureCookie)
	http.Redirect(w, r, start.RedirectURL, http.StatusFound)
}

func (h *AuthHandler) Callback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	auth.ClearCookie(w, auth.StateCookie, h.secureCookie)

	if oauthErr := q.Get("error"); oauthErr != "" {
		slog.Warn("oauth error from airtable", slog.String("error", oauthErr), slog.String("description", q.Get("error_description")))
		h.loginRedirect(w, r, url.Values{"error": {oauthErr}, "description": {q.Get("error_description")}})
		return
	}

	var stateToken string
	if c, err := r.Cookie(auth.StateCookie); err == nil {
		stateToken = c.Value
	}
	result, err := h.svc.CompleteLogin(r.Context(), stateToken, q.Get("state"), q.Get("code"))
	if err != nil {
		code := "oauth_failed"
		var le *service.LoginError
		if errors.As(err, &le) {
			code = le.Code
		}
		slog.Warn("oauth callback failed", slog.String("code", code), slog.String("error", err.Error()))
		h.loginRedirect(w, r, url.Values{"error": {code}})
		return
	}

	auth.SetCookie(w, auth.SessionCookie, result.Token, h.svc.SessionTTL(), h.secureCookie)
	http.Redirect(w, r, h.frontendURL+"/dashboard", http.StatusFound)
}

func (h *AuthHandler) loginRedirect(w http.ResponseWriter, r *http.Request, q url.Values) {
	http.Redirect(w, r, h.frontendURL+"/login?"+q.Encode(), http.StatusFound)
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := auth.GetUser(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	user, err := h.svc.Me(r.Context(), claims.UserID)
	if err != nil {
		writeServiceError(w, r, err, "Server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"user": user})
}

func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	auth.ClearCookie(w, auth.SessionCookie, h.secureCookie)
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}
