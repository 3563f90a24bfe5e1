package controllers

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"gitea.com/go-chi/session"

	"github.com/blogem/contact-guard/authenticator"
	"github.com/blogem/contact-guard/middleware"
	"github.com/blogem/contact-guard/services"
)

const (
	sessionKeyOIDCState = "oidc_state"
	sessionKeyOIDCNonce = "oidc_nonce"

	defaultAdminLanding = "/admin/diagnostics"
)

// AuthController handles the administrator login flow
type AuthController struct {
	provider authenticator.Provider
	allowed  map[string]bool
}

// NewAuthController creates an auth controller admitting only the given emails
func NewAuthController(provider authenticator.Provider, allowedEmails []string) *AuthController {
	allowed := make(map[string]bool, len(allowedEmails))
	for _, e := range allowedEmails {
		allowed[strings.ToLower(strings.TrimSpace(e))] = true
	}
	return &AuthController{provider: provider, allowed: allowed}
}

// Login handles GET /admin/login
func (ac *AuthController) Login(w http.ResponseWriter, r *http.Request) {
	state, err := randomValue()
	if err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}
	nonce, err := randomValue()
	if err != nil {
		http.Error(w, "Failed to start login", http.StatusInternalServerError)
		return
	}

	sess := session.GetSession(r)
	sess.Set(sessionKeyOIDCState, state)
	sess.Set(sessionKeyOIDCNonce, nonce)

	http.Redirect(w, r, ac.provider.AuthURL(state, nonce), http.StatusTemporaryRedirect)
}

// Callback handles GET /admin/callback
func (ac *AuthController) Callback(w http.ResponseWriter, r *http.Request) {
	sess := session.GetSession(r)

	state, _ := sess.Get(sessionKeyOIDCState).(string)
	nonce, _ := sess.Get(sessionKeyOIDCNonce).(string)
	sess.Delete(sessionKeyOIDCState)
	sess.Delete(sessionKeyOIDCNonce)

	if state == "" {
		http.Error(w, "State not found in session", http.StatusBadRequest)
		return
	}
	if r.URL.Query().Get("state") != state {
		http.Error(w, "Invalid state parameter", http.StatusBadRequest)
		return
	}
	if errMsg := r.URL.Query().Get("error"); errMsg != "" {
		slog.Warn("admin login: provider refused", "error", errMsg, "description", r.URL.Query().Get("error_description"))
		http.Error(w, "Login was not completed", http.StatusUnauthorized)
		return
	}

	identity, err := ac.provider.Authenticate(r.Context(), r.URL.Query().Get("code"), nonce)
	if err != nil {
		slog.Warn("admin login failed", "error", err, "nonce_mismatch", errors.Is(err, authenticator.ErrNonceMismatch))
		http.Error(w, "Authentication failed", http.StatusUnauthorized)
		return
	}

	if identity.Email == "" || !ac.allowed[strings.ToLower(identity.Email)] {
		slog.Warn("admin login refused", "email", identity.Email, "subject", identity.Subject)
		http.Error(w, "Forbidden", http.StatusForbidden)
		return
	}

	sess.Set(middleware.SessionKeyAdminEmail, identity.Email)
	slog.Info("admin signed in", "email", identity.Email)

	redirect := defaultAdminLanding
	if to, ok := sess.Get(middleware.SessionKeyRedirectAfterLogin).(string); ok && strings.HasPrefix(to, "/admin/") {
		redirect = to
	}
	sess.Delete(middleware.SessionKeyRedirectAfterLogin)

	http.Redirect(w, r, redirect, http.StatusSeeOther)
}

// Logout clears the administrator from the session
func (ac *AuthController) Logout(w http.ResponseWriter, r *http.Request) {
	sess := session.GetSession(r)
	if email := userEmail(sess); email != "" {
		slog.Info("admin signed out", "email", email)
	}
	sess.Delete(middleware.SessionKeyAdminEmail)
	http.Redirect(w, r, "/health", http.StatusSeeOther)
}

func userEmail(sess services.Session) string {
	email, _ := sess.Get(middleware.SessionKeyAdminEmail).(string)
	return email
}

// randomValue returns 32 random bytes, base64url encoded
func randomValue() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
