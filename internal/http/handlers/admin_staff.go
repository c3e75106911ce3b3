package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/saglikops/checkup-tracker/internal/checkup"
)

type createStaffRequest struct {
	Name   string `json:"name"`
	Phone  string `json:"phone"`
	Email  string `json:"email,omitempty"`
	Active *bool  `json:"active,omitempty"`
}

// ListStaff handles GET /admin/staff.
func (h *AdminHandler) ListStaff(w http.ResponseWriter, r *http.Request) {
	staff, err := h.store.ListStaff(r.Context())
	if err != nil {
		h.logger.Error("list staff failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list staff")
		return
	}
	writeJSON(w, http.StatusOK, staff)
}

// CreateStaff handles POST /admin/staff. New staff default to active.
func (h *AdminHandler) CreateStaff(w http.ResponseWriter, r *http.Request) {
	var req createStaffRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.Name == "" || req.Phone == "" {
		writeError(w, http.StatusBadRequest, "name and phone are required")
		return
	}
	active := true
	if req.Active != nil {
		active = *req.Active
	}
	id, err := h.store.CreateStaff(r.Context(), checkup.Staff{
		Name:   req.Name,
		Phone:  req.Phone,
		Email:  req.Email,
		Active: active,
	})
	if err != nil {
		h.logger.Error("create staff failed", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create staff")
		return
	}
	h.logger.Info("staff created", "staff_id", id, "active", active)
	writeJSON(w, http.StatusCreated, map[string]int64{"staff_id": id})
}
