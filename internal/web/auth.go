package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/erazemk/qrstock/internal/auth"
	"github.com/erazemk/qrstock/internal/store"
)

const (
	stateCookie = "oauth_state"
	nextCookie  = "oauth_next"
	stateMaxAge = 10 * time.Minute
)

// Login handles GET /login by redirecting to the identity provider.
func (s *Server) Login(w http.ResponseWriter, r *http.Request) {
	if !s.Config.AuthEnabled() || s.Provider == nil || !s.Provider.Configured() {
		setFlash(w, "GitHub sign-in is not configured. Set GITHUB_CLIENT_ID and GITHUB_CLIENT_SECRET.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	state := uuid.NewString()
	setShortCookie(w, stateCookie, state)
	setShortCookie(w, nextCookie, safeNext(r.URL.Query().Get("next")))

	http.Redirect(w, r, s.Provider.AuthCodeURL(state, s.redirectURL(r)), http.StatusFound)
}

// Authorize handles GET /authorize, the provider callback.
func (s *Server) Authorize(w http.ResponseWriter, r *http.Request) {
	if !s.Config.AuthEnabled() || s.Provider == nil {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	stateC, err := r.Cookie(stateCookie)
	next := "/"
	if c, err := r.Cookie(nextCookie); err == nil {
		next = safeNext(c.Value)
	}
	clearShortCookie(w, stateCookie)
	clearShortCookie(w, nextCookie)

	q := r.URL.Query()
	if err != nil || stateC.Value == "" || q.Get("state") != stateC.Value {
		slog.Warn("oauth state mismatch", "remote", r.RemoteAddr)
		setFlash(w, "Sign-in failed. Please try again.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	if reason := q.Get("error"); reason != "" {
		slog.Warn("oauth authorization denied", "error", reason)
		setFlash(w, "Sign-in was cancelled.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	identity, err := s.Provider.Exchange(r.Context(), q.Get("code"), s.redirectURL(r))
	if err != nil {
		slog.Error("oauth exchange failed", "error", err)
		setFlash(w, "Sign-in failed. Please try again.")
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}

	user, err := store.UpsertUser(r.Context(), s.DB, identity.ExternalID, identity.Username, identity.Email, identity.AvatarURL)
	if err != nil {
		slog.Error("failed to save user", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	token, err := auth.GenerateToken(s.JWTSecret, user)
	if err != nil {
		slog.Error("failed to generate token", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	auth.SetSessionCookie(w, r, token)
	slog.Info("user logged in", "user", user.Username)
	http.Redirect(w, r, next, http.StatusSeeOther)
}

// Logout handles POST /logout. The session token is revoked server-side.
func (s *Server) Logout(w http.ResponseWriter, r *http.Request) {
	if claims := GetWebClaims(r.Context()); claims != nil && claims.ID != "" && claims.ExpiresAt != nil {
		if err := store.RevokeToken(r.Context(), s.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			slog.Error("failed to revoke token on logout", "error", err)
		} else {
			slog.Info("user logged out", "user", claims.Username)
		}
	}

	auth.ClearSessionCookie(w)
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) redirectURL(r *http.Request) string {
	return s.Config.PublicURL(r) + "/authorize"
}

func setShortCookie(w http.ResponseWriter, name, value string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(stateMaxAge.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func clearShortCookie(w http.ResponseWriter, name string) {
	http.SetCookie(w, &http.Cookie{
		Name:     name,
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

func username(claims *auth.Claims) string {
	if claims == nil {
		return "anonymous"
	}
	return claims.Username
}
