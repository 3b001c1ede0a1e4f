package api

import (
	"log/slog"
	"net/http"

	"github.com/erazemk/qrstock/internal/auth"
	"github.com/erazemk/qrstock/internal/db"
	"github.com/erazemk/qrstock/internal/store"
)

// AuthHandler handles session endpoints.
type AuthHandler struct {
	DB          *db.DB
	AuthEnabled bool
}

type meResponse struct {
	AuthEnabled bool   `json:"auth_enabled"`
	UserID      int64  `json:"user_id,omitempty"`
	Username    string `json:"username,omitempty"`
	AvatarURL   string `json:"avatar_url,omitempty"`
}

// Me handles GET /api/auth/me.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	resp := meResponse{AuthEnabled: h.AuthEnabled}
	if claims := GetClaims(r.Context()); claims != nil {
		resp.UserID = claims.UserID
		resp.Username = claims.Username
		resp.AvatarURL = claims.AvatarURL
	} else if h.AuthEnabled {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}
	jsonResponse(w, http.StatusOK, resp)
}

// Logout handles POST /api/auth/logout. It revokes the presented token.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r.Context())
	if claims == nil {
		jsonError(w, http.StatusUnauthorized, "not authenticated")
		return
	}

	if claims.ID != "" && claims.ExpiresAt != nil {
		if err := store.RevokeToken(r.Context(), h.DB, claims.ID, claims.ExpiresAt.Time); err != nil {
			slog.Error("failed to revoke token", "error", err)
			jsonError(w, http.StatusInternalServerError, "failed to log out")
			return
		}
	}

	auth.ClearSessionCookie(w)
	slog.Info("user logged out", "user", claims.Username)
	jsonResponse(w, http.StatusOK, map[string]any{"success": true, "message": "logged out"})
}
