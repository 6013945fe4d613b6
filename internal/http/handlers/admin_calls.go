package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/clinicdesk/clinic-voice-platform/internal/ledger"
	"github.com/clinicdesk/clinic-voice-platform/pkg/logging"
)

// AdminCallsHandler serves the admin's read-only view of the conversation
// ledger: recent calls per clinic and the full transcript of one call.
type AdminCallsHandler struct {
	records ledger.Reader
	logger  *logging.Logger
}

// NewAdminCallsHandler creates the admin calls handler.
func NewAdminCallsHandler(records ledger.Reader, logger *logging.Logger) *AdminCallsHandler {
	if records == nil {
		panic("handlers: ledger reader required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AdminCallsHandler{records: records, logger: logger}
}

// ListCalls handles GET /admin/calls?clinic_id=...&limit=N.
func (h *AdminCallsHandler) ListCalls(w http.ResponseWriter, r *http.Request) {
	clinicID := r.URL.Query().Get("clinic_id")
	if clinicID == "" {
		http.Error(w, "clinic_id required", http.StatusBadRequest)
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	sums, err := h.records.ListSummaries(r.Context(), clinicID, limit)
	if err != nil {
		h.logger.Error("admin: list call summaries", "error", err, "clinic_id", clinicID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"calls": sums})
}

// GetCall handles GET /admin/calls/{sessionID}: the summary plus the full
// turn-by-turn transcript.
func (h *AdminCallsHandler) GetCall(w http.ResponseWriter, r *http.Request) {
	sessionID := chi.URLParam(r, "sessionID")
	if sessionID == "" {
		http.Error(w, "session id required", http.StatusBadRequest)
		return
	}

	sum, err := h.records.GetSummary(r.Context(), sessionID)
	if errors.Is(err, ledger.ErrSummaryNotFound) {
		http.Error(w, "call not found", http.StatusNotFound)
		return
	}
	if err != nil {
		h.logger.Error("admin: get call summary", "error", err, "session_id", sessionID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	turns, err := h.records.ListTurns(r.Context(), sessionID)
	if err != nil {
		h.logger.Error("admin: list turns", "error", err, "session_id", sessionID)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"summary": sum,
		"turns":   turns,
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}
