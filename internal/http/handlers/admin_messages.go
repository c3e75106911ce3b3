package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/saglikops/checkup-tracker/internal/checkup"
)

type sendMessageRequest struct {
	To   string `json:"to"`
	Body string `json:"body"`
}

// SendMessage handles POST /admin/messages: a direct WhatsApp send from
// the staff console, appended to the message log.
func (h *AdminHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	if h.sender == nil {
		writeError(w, http.StatusServiceUnavailable, "outbound messaging disabled")
		return
	}
	var req sendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.To == "" || req.Body == "" {
		writeError(w, http.StatusBadRequest, "to and body are required")
		return
	}

	ctx := r.Context()
	if err := h.sender.Send(ctx, req.To, req.Body); err != nil {
		h.logger.Error("direct send failed", "to", req.To, "error", err)
		writeError(w, http.StatusBadGateway, "send failed")
		return
	}
	if err := h.store.InsertMessage(ctx, checkup.DirectionOutbound, "admin", req.To, req.Body); err != nil {
		h.logger.Warn("message log write failed", "error", err)
	}
	h.logger.Info("direct message sent", "to", req.To)
	writeJSON(w, http.StatusOK, map[string]string{"status": "sent"})
}

// ListMessages handles GET /admin/messages?limit=N, newest first.
func (h *AdminHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}
	messages, err := h.store.ListMessages(r.Context(), limit)
	if err != nil {
		h.logger.Error("list messages failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list messages")
		return
	}
	writeJSON(w, http.StatusOK, messages)
}
