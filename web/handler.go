package web

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"whispers.town/algolia"
	"whispers.town/assemblyai"
	"whispers.town/llm"
	"whispers.town/search"
	"whispers.town/supabase"
)

// Handler wires the HTTP surface to the service adapters. Every route is a
// validate-call-reshape pass-through; the interesting work lives in the
// search orchestrator and the transcript relay.
type Handler struct {
	Index        *algolia.Client
	Model        llm.LanguageModel
	Speech       *assemblyai.Client
	DB           *supabase.Client
	Orchestrator *search.Orchestrator
	FrontendURL  string
	Logger       *log.Logger
}

func (h *Handler) Routes(r chi.Router) {
	r.Post("/index", h.handleIndex)
	r.Post("/search", h.handleSearch)
	r.Post("/summarize", h.handleSummarize)
	r.Get("/token", h.handleToken)
	r.Post("/start_session", h.handleStartSession)
	r.Get("/ws/transcribe", h.handleTranscribe)

	r.Route("/auth", func(r chi.Router) {
		r.Post("/magic-link", h.handleMagicLink)
		r.Post("/verify", h.handleVerify)
		r.Post("/logout", h.handleLogout)
		r.Get("/me", h.handleMe)
		r.Delete("/delete", h.handleDeleteAccount)
		r.Get("/usage", h.handleUsage)
	})
}

type indexRequest struct {
	EntryID   string   `json:"entry_id"`
	UserID    string   `json:"user_id"`
	SessionID string   `json:"session_id"`
	Date      string   `json:"date"`
	Timestamp string   `json:"timestamp"`
	Title     string   `json:"title"`
	Summary   string   `json:"summary"`
	Tags      []string `json:"tags"`
	Text      string   `json:"text"`
	AudioURL  string   `json:"audio_url"`
}

// missingFields names the required fields the request left empty. entry_id
// is optional; present means update, absent means create.
func (req *indexRequest) missingFields() []string {
	var missing []string
	require := func(name, value string) {
		if strings.TrimSpace(value) == "" {
			missing = append(missing, name)
		}
	}
	require("user_id", req.UserID)
	require("session_id", req.SessionID)
	require("date", req.Date)
	require("timestamp", req.Timestamp)
	require("title", req.Title)
	require("summary", req.Summary)
	require("text", req.Text)
	if req.Tags == nil {
		missing = append(missing, "tags")
	}
	return missing
}

func (h *Handler) handleIndex(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if missing := req.missingFields(); len(missing) > 0 {
		jsonError(w, http.StatusBadRequest,
			fmt.Sprintf("missing required fields: %s", strings.Join(missing, ", ")))
		return
	}

	result, err := h.Index.SaveObject(r.Context(), algolia.Record{
		ObjectID:  req.EntryID,
		UserID:    req.UserID,
		SessionID: req.SessionID,
		Date:      req.Date,
		Timestamp: req.Timestamp,
		Title:     req.Title,
		Summary:   req.Summary,
		Tags:      req.Tags,
		Text:      req.Text,
		AudioURL:  req.AudioURL,
	})
	if err != nil {
		h.Logger.Error("index entry", "error", err)
		jsonError(w, http.StatusBadGateway, "failed to index entry")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Query  string `json:"query"`
		UserID string `json:"user_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Query) == "" {
		jsonError(w, http.StatusBadRequest, "missing required fields: query")
		return
	}

	result, err := h.Orchestrator.Search(r.Context(), req.Query, req.UserID)
	if err != nil {
		h.Logger.Error("orchestrated search", "error", err)
		jsonError(w, http.StatusBadGateway, "search failed")
		return
	}

	respondJSON(w, http.StatusOK, result)
}

func (h *Handler) handleSummarize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		jsonError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Text) == "" {
		jsonError(w, http.StatusBadRequest, "missing required fields: text")
		return
	}

	card, err := llm.Summarize(r.Context(), h.Model, req.Text)
	if err != nil {
		h.Logger.Error("summarize entry", "error", err)
		jsonError(w, http.StatusBadGateway, "failed to summarize")
		return
	}

	respondJSON(w, http.StatusOK, card)
}

func (h *Handler) handleToken(w http.ResponseWriter, r *http.Request) {
	token, err := h.Speech.IssueToken(r.Context(), assemblyai.TokenTTL)
	if err != nil {
		h.Logger.Error("issue transcription token", "error", err)
		jsonError(w, http.StatusBadGateway, "failed to issue token")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"token": token})
}

func (h *Handler) handleStartSession(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC()
	session := supabase.Session{
		SessionID: uuid.NewString(),
		Date:      now.Format("2006-01-02"),
		CreatedAt: now.Format(time.RFC3339),
	}

	if err := h.DB.InsertSession(r.Context(), session); err != nil {
		h.Logger.Error("insert session", "error", err)
		jsonError(w, http.StatusBadGateway, "failed to start session")
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{
		"session_id": session.SessionID,
		"date":       session.Date,
		"created_at": session.CreatedAt,
	})
}

func respondJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("encode response", "error", err)
	}
}

func jsonError(w http.ResponseWriter, status int, detail string) {
	respondJSON(w, status, map[string]string{"detail": detail})
}
