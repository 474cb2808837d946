package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"notebot/internal/ledger"
	"notebot/internal/middleware"
	"notebot/internal/models"
	"notebot/internal/session"

	"go.uber.org/zap"
)

// Handlers exposes the session events over HTTP.
type Handlers struct {
	svc *session.Service
	log *zap.Logger
}

func NewHandlers(svc *session.Service, log *zap.Logger) *Handlers {
	return &Handlers{svc: svc, log: log}
}

// Routes registers every endpoint on mux.
func (h *Handlers) Routes(mux *http.ServeMux) {
	mux.HandleFunc("/api/start", h.StartHandler)
	mux.HandleFunc("/api/notes", h.NotesHandler)
	mux.HandleFunc("/api/notes/menu", h.DeleteMenuHandler)
}

type startResponse struct {
	Help     string `json:"help"`
	MaxNotes int    `json:"max_notes"`
}

type listResponse struct {
	Notes []ledger.Item `json:"notes"`
	Count int           `json:"count"`
	Limit int           `json:"limit"`
}

type errorResponse struct {
	Error     string `json:"error"`
	Remaining *int   `json:"remaining,omitempty"`
	Retract   bool   `json:"retract,omitempty"`
}

func (h *Handlers) StartHandler(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, startResponse{Help: HelpText, MaxNotes: models.MaxNotes})
}

func (h *Handlers) NotesHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	switch r.Method {
	case http.MethodGet:
		items, err := h.svc.OnList(r.Context(), userID)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, listResponse{Notes: items, Count: len(items), Limit: models.MaxNotes})

	case http.MethodPost:
		var body struct {
			Text string `json:"text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body.Text == "" {
			http.Error(w, "Invalid request body", http.StatusBadRequest)
			return
		}
		conf, err := h.svc.OnMessage(r.Context(), userID, body.Text)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, conf)

	case http.MethodDelete:
		noteID, err := strconv.Atoi(r.URL.Query().Get("id"))
		if err != nil {
			http.Error(w, "Invalid note ID", http.StatusBadRequest)
			return
		}
		conf, err := h.svc.OnDeleteConfirm(r.Context(), userID, noteID)
		if err != nil {
			h.fail(w, err)
			return
		}
		writeJSON(w, http.StatusOK, conf)

	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handlers) DeleteMenuHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.UserIDFromContext(r.Context())
	if !ok {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	items, err := h.svc.OnDeleteMenu(r.Context(), userID)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, listResponse{Notes: items, Count: len(items), Limit: models.MaxNotes})
}

func (h *Handlers) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrQuotaExceeded):
		zero := 0
		writeJSON(w, http.StatusTooManyRequests, errorResponse{
			Error:     "Limit reached. Delete a note and send the text again.",
			Remaining: &zero,
			Retract:   true,
		})
	case errors.Is(err, session.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: "Note not found"})
	default:
		h.log.Error("request failed", zap.Error(err))
		http.Error(w, "Storage error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
