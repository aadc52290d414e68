package server

import (
	"encoding/json"
	"net/http"

	"github.com/charmbracelet/log"

	"cookiewarden/internal/router"
)

const maxMessageBytes = 4 << 20

type handlers struct {
	messages MessageHandler
	state    StateSource
	rules    RuleSource
}

// message decodes one protocol request.  Protocol failures are reported in
// the response body with status 200.
func (h *handlers) message(w http.ResponseWriter, r *http.Request) {
	var req router.Request
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxMessageBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	subject, ok := SubjectFromContext(r.Context())
	if !ok {
		subject = "anonymous"
	}
	log.Debug("Handling message", "type", req.Type, "subject", subject)

	resp := h.messages.Handle(r.Context(), req)
	writeJSON(w, http.StatusOK, resp)
}

func (h *handlers) getState(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, h.state.Snapshot())
}

func (h *handlers) getRules(w http.ResponseWriter, r *http.Request) {
	installed, err := h.rules.DynamicRules(r.Context())
	if err != nil {
		log.Error("Listing dynamic rules failed", "error", err)
		writeError(w, "Failed to list rules", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, installed)
}

func healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
