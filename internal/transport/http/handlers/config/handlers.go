// Package confighandler exposes the per-organization tuning settings.
// Reads are open to staff; writes are admin-only because the values
// drive the face-check and idle-detection behavior for every guard.
package confighandler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"guardsync/internal/auth"
	"guardsync/internal/domain/sysconfig"
	"guardsync/internal/transport/http/api"
	"guardsync/internal/transport/http/middleware"
)

type Handler struct {
	Store *sysconfig.Store
}

func NewHandler(store *sysconfig.Store) *Handler {
	return &Handler{Store: store}
}

func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin, auth.RoleStaff))
		r.Get("/config", h.handleGet)
	})
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequireRole(auth.RoleAdmin))
		r.Put("/config", h.handleUpdate)
	})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	cfg, err := h.Store.Get(r.Context(), user.OrgID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "config_load_failed", "failed to load settings", reqID)
		return
	}
	api.Success(w, cfg, reqID)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	reqID := middleware.GetRequestID(r.Context())
	user, _ := middleware.GetUser(r.Context())

	var cfg sysconfig.Settings
	if err := json.NewDecoder(r.Body).Decode(&cfg); err != nil {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "invalid request payload", reqID)
		return
	}
	if cfg.FaceChecksPerDayMax < cfg.FaceChecksPerDayMin {
		api.Fail(w, http.StatusBadRequest, "invalid_payload", "faceChecksPerDayMax must be at least faceChecksPerDayMin", reqID)
		return
	}

	if err := h.Store.Update(r.Context(), user.OrgID, cfg); err != nil {
		api.Fail(w, http.StatusInternalServerError, "config_update_failed", "failed to update settings", reqID)
		return
	}

	saved, err := h.Store.Get(r.Context(), user.OrgID)
	if err != nil {
		api.Fail(w, http.StatusInternalServerError, "config_load_failed", "failed to load settings", reqID)
		return
	}
	api.Success(w, saved, reqID)
}
