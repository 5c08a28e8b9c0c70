package web

import (
	"encoding/json"
	"net/http"
	"net/mail"
	"strings"
)

// bearerToken pulls the access token out of the Authorization header. Auth
// routes reject before any downstream call when it is absent.
func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	token := strings.TrimPrefix(header, "Bearer ")
	if token == "" {
		return "", false
	}
	return token, true
}

func (h *Handler) handleMagicLink(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		jsonError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	redirect := h.FrontendURL + "/auth/verify"
	if err := h.DB.SendMagicLink(r.Context(), req.Email, redirect); err != nil {
		h.Logger.Error("send magic link", "error", err, "email", req.Email)
		jsonError(w, http.StatusInternalServerError, "Failed to send magic link")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"message": "Magic link sent to your email",
		"email":   req.Email,
	})
}

type profile struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// profileName looks up the optional display name in the users table. Missing
// profiles are not an error; the name is simply empty.
func (h *Handler) profileName(r *http.Request, email string) string {
	var profiles []profile
	err := h.DB.Select(r.Context(), "users", map[string]string{"email": email}, &profiles)
	if err != nil {
		h.Logger.Warn("profile lookup failed", "error", err)
		return ""
	}
	if len(profiles) == 0 {
		return ""
	}
	return profiles[0].Name
}

func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
		Token string `json:"token"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Email == "" || req.Token == "" {
		jsonError(w, http.StatusBadRequest, "missing required fields: email, token")
		return
	}

	session, err := h.DB.VerifyOTP(r.Context(), req.Email, req.Token)
	if err != nil {
		h.Logger.Error("verify magic link", "error", err)
		jsonError(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"user_id":       session.User.ID,
		"email":         req.Email,
		"name":          h.profileName(r, req.Email),
		"session_token": session.AccessToken,
	})
}

func (h *Handler) handleLogout(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "No valid session")
		return
	}

	if err := h.DB.Logout(r.Context(), token); err != nil {
		h.Logger.Error("logout", "error", err)
		jsonError(w, http.StatusInternalServerError, "Failed to logout")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Successfully logged out"})
}

func (h *Handler) handleMe(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "No valid session")
		return
	}

	user, err := h.DB.GetUser(r.Context(), token)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"user_id": user.ID,
		"email":   user.Email,
		"name":    h.profileName(r, user.Email),
	})
}

func (h *Handler) handleDeleteAccount(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "No valid session")
		return
	}

	user, err := h.DB.GetUser(r.Context(), token)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	if err := h.DB.DeleteUser(r.Context(), user.ID); err != nil {
		h.Logger.Error("delete auth user", "error", err, "user", user.ID)
		jsonError(w, http.StatusInternalServerError, "Failed to delete user from auth")
		return
	}

	// Profile row cleanup is best effort; the auth user is already gone.
	if err := h.DB.Delete(r.Context(), "users", map[string]string{"email": user.Email}); err != nil {
		h.Logger.Warn("delete profile row", "error", err, "email", user.Email)
	}

	respondJSON(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

func (h *Handler) handleUsage(w http.ResponseWriter, r *http.Request) {
	token, ok := bearerToken(r)
	if !ok {
		jsonError(w, http.StatusUnauthorized, "No valid session")
		return
	}

	user, err := h.DB.GetUser(r.Context(), token)
	if err != nil {
		jsonError(w, http.StatusUnauthorized, "Invalid session")
		return
	}

	filter := map[string]string{"user_id": user.ID}

	sessions, err := h.DB.Count(r.Context(), "sessions", filter)
	if err != nil {
		h.Logger.Warn("count sessions", "error", err)
		sessions = 0
	}

	entries, err := h.DB.Count(r.Context(), "journal_entries", filter)
	if err != nil {
		h.Logger.Warn("count entries", "error", err)
		entries = 0
	}

	respondJSON(w, http.StatusOK, map[string]any{
		"total_sessions": sessions,
		"total_entries":  entries,
		"created_at":     user.CreatedAt,
	})
}
